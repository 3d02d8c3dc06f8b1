package attendance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"unismart/internal/catalog"
	"unismart/internal/identity"
	"unismart/internal/queue"
	"unismart/internal/schedule"
)

// DefaultDedupWindow is how long a repeated scan returns the first record.
const DefaultDedupWindow = 5 * time.Minute

// ScanSuccess is shown to a student after a recorded scan.
const ScanSuccess = "تم تسجيل حضورك بنجاح في السكشن النشط حالياً."

// Recorder receives attendance counters.
type Recorder interface {
	RecordScan(outcome string)
	RecordCodeIssued()
	RecordGateDenial()
	RecordVerification(ok bool)
}

// Users looks up roster entries.
type Users interface {
	Get(ctx context.Context, id string) (identity.User, error)
}

// Subjects looks up catalog entries.
type Subjects interface {
	Get(id string) (catalog.Subject, error)
}

// ScanEvent is the body of an attendance.scan message.
type ScanEvent struct {
	RecordID   string    `json:"recordId"`
	StudentID  string    `json:"studentId"`
	ScheduleID string    `json:"scheduleId"`
	At         time.Time `json:"at"`
}

// Service coordinates the attendance view.
type Service struct {
	repo        Repository
	schedule    *schedule.Service
	users       Users
	subjects    Subjects
	codes       *Codes
	queue       queue.Queue
	metrics     Recorder
	log         *slog.Logger
	dedupWindow time.Duration
	NowFunc     func() time.Time
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo        Repository
	Schedule    *schedule.Service
	Users       Users
	Subjects    Subjects
	Codes       *Codes
	Queue       queue.Queue
	Metrics     Recorder
	Log         *slog.Logger
	DedupWindow time.Duration
}

func NewService(d Deps) *Service {
	if d.DedupWindow <= 0 {
		d.DedupWindow = DefaultDedupWindow
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Service{
		repo:        d.Repo,
		schedule:    d.Schedule,
		users:       d.Users,
		subjects:    d.Subjects,
		codes:       d.Codes,
		queue:       d.Queue,
		metrics:     d.Metrics,
		log:         d.Log,
		dedupWindow: d.DedupWindow,
		NowFunc:     time.Now,
	}
}

// ActiveView describes the live session as seen by one user.
type ActiveView struct {
	Session    *schedule.Item    `json:"session"`
	Subject    *catalog.Subject  `json:"subject,omitempty"`
	Instructor *identity.Profile `json:"instructor,omitempty"`
	Gate       *Decision         `json:"gate,omitempty"`
}

// ActiveSession resolves the live entry for u. A nil Session means nothing
// is live.
func (s *Service) ActiveSession(ctx context.Context, u identity.User, override string) (ActiveView, error) {
	item, ok, err := s.schedule.Active(ctx, override)
	if err != nil || !ok {
		return ActiveView{}, err
	}
	view := ActiveView{Session: &item}
	if subj, err := s.subjects.Get(item.SubjectID); err == nil {
		view.Subject = &subj
	}
	instructorName := ""
	if inst, err := s.users.Get(ctx, item.InstructorID); err == nil {
		p := inst.Profile()
		view.Instructor = &p
		instructorName = inst.Name
	}
	if u.Role.IsStaff() {
		d := Gate(u, item, instructorName)
		view.Gate = &d
	}
	return view, nil
}

// Code issues the display code of sessionID for u.
func (s *Service) Code(ctx context.Context, u identity.User, sessionID string) (Code, Decision, error) {
	item, err := s.schedule.Get(ctx, sessionID)
	if err != nil {
		return Code{}, Decision{}, err
	}
	instructorName := ""
	if inst, err := s.users.Get(ctx, item.InstructorID); err == nil {
		instructorName = inst.Name
	}
	d := Gate(u, item, instructorName)
	if !d.Allowed {
		s.metrics.RecordGateDenial()
		return Code{}, d, ErrForbidden
	}
	code, err := s.codes.Issue(ctx, item.ID)
	if err != nil {
		return Code{}, d, err
	}
	s.metrics.RecordCodeIssued()
	return code, d, nil
}

// ScanResult is the outcome of a student scan.
type ScanResult struct {
	Record    Record `json:"record"`
	Duplicate bool   `json:"duplicate"`
	Message   string `json:"message"`
}

// Scan records that student attended the live session. A repeated scan
// within the dedup window returns the existing record.
func (s *Service) Scan(ctx context.Context, student identity.User, code, override string) (ScanResult, error) {
	if student.Role != identity.RoleStudent {
		s.metrics.RecordScan("rejected")
		return ScanResult{}, ErrStudentsOnly
	}
	item, ok, err := s.schedule.Active(ctx, override)
	if err != nil {
		return ScanResult{}, err
	}
	if !ok {
		s.metrics.RecordScan("rejected")
		return ScanResult{}, ErrNoActiveSession
	}
	if code != "" {
		if err := s.codes.Check(ctx, item.ID, code); err != nil {
			s.metrics.RecordScan("rejected")
			return ScanResult{}, err
		}
	}

	now := s.NowFunc()
	recent, err := s.repo.Recent(ctx, student.ID, item.ID, now.Add(-s.dedupWindow))
	if err != nil {
		return ScanResult{}, err
	}
	if recent != nil {
		s.metrics.RecordScan("duplicate")
		return ScanResult{Record: *recent, Duplicate: true, Message: ScanSuccess}, nil
	}

	rec, err := s.repo.Insert(ctx, Record{
		StudentID:    student.ID,
		ScheduleID:   item.ID,
		When:         now,
		Status:       Present,
		Verification: Pending,
		CreatedAt:    now.UTC(),
	})
	if err != nil {
		return ScanResult{}, err
	}
	s.metrics.RecordScan("recorded")

	msg, err := queue.NewMessage(queue.TypeAttendanceScan, ScanEvent{
		RecordID:   rec.ID,
		StudentID:  rec.StudentID,
		ScheduleID: rec.ScheduleID,
		At:         rec.When,
	})
	if err == nil {
		err = s.queue.Publish(ctx, msg)
	}
	if err != nil {
		s.log.Warn("queue publish failed", "record", rec.ID, "error", err)
	}
	return ScanResult{Record: rec, Message: ScanSuccess}, nil
}

// Records lists stored records.
func (s *Service) Records(ctx context.Context, f ListFilter) ([]Record, error) {
	return s.repo.List(ctx, f)
}

// IsNotFound reports whether err means the session or record is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, schedule.ErrNotFound)
}
