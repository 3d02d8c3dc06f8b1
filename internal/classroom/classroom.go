// Package classroom lists and starts virtual classroom meetings.
package classroom

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"unismart/internal/catalog"
	"unismart/internal/identity"
)

var (
	ErrForbidden      = errors.New("only staff can start meetings")
	ErrTitleRequired  = errors.New("meeting title is required")
	ErrUnknownSubject = errors.New("unknown subject")
)

// MeetingBaseURL prefixes generated meeting links.
const MeetingBaseURL = "https://zoom.us/j/"

type Status string

const (
	Live      Status = "live"
	Scheduled Status = "scheduled"
	Ended     Status = "ended"
)

type Meeting struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	SubjectID  string `json:"subjectId"`
	Instructor string `json:"instructor"`
	StartTime  string `json:"startTime"`
	Status     Status `json:"status"`
	URL        string `json:"url"`
}

func Seed() []Meeting {
	return []Meeting{
		{ID: "m1", Title: "مراجعة معمارية الحاسب - الفصل الأول", SubjectID: "s1", Instructor: "د. خالد العمري", StartTime: "10:30 AM", Status: Live, URL: MeetingBaseURL + "mock_meeting_1"},
		{ID: "m2", Title: "تدريب عملي: خوارزميات البحث", SubjectID: "s2", Instructor: "م. سارة محمود", StartTime: "01:00 PM", Status: Scheduled, URL: MeetingBaseURL + "mock_meeting_2"},
	}
}

// Subjects looks up catalog entries.
type Subjects interface {
	Get(id string) (catalog.Subject, error)
}

// Service holds meetings newest first.
type Service struct {
	mu       sync.RWMutex
	meetings []Meeting
	subjects Subjects
}

func NewService(subjects Subjects, meetings []Meeting) *Service {
	return &Service{subjects: subjects, meetings: append([]Meeting(nil), meetings...)}
}

func (s *Service) List() []Meeting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Meeting(nil), s.meetings...)
}

// Start opens a live meeting hosted by u.
func (s *Service) Start(u identity.User, title, subjectID string) (Meeting, error) {
	if !u.Role.IsStaff() {
		return Meeting{}, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Meeting{}, ErrTitleRequired
	}
	if _, err := s.subjects.Get(subjectID); err != nil {
		return Meeting{}, ErrUnknownSubject
	}

	id := uuid.NewString()
	m := Meeting{
		ID:         id,
		Title:      title,
		SubjectID:  subjectID,
		Instructor: u.Name,
		StartTime:  "الآن",
		Status:     Live,
		URL:        MeetingBaseURL + "new_meeting_" + strings.ReplaceAll(id, "-", "")[:10],
	}

	s.mu.Lock()
	s.meetings = append([]Meeting{m}, s.meetings...)
	s.mu.Unlock()
	return m, nil
}
