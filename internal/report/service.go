package report

import (
	"context"

	"unismart/internal/attendance"
	"unismart/internal/catalog"
	"unismart/internal/identity"
	"unismart/internal/schedule"
)

// maxRecords caps how many records one report reads.
const maxRecords = 100000

type Roster interface {
	List(ctx context.Context, f identity.Filter) ([]identity.User, error)
}

type Records interface {
	Records(ctx context.Context, f attendance.ListFilter) ([]attendance.Record, error)
}

type Timetable interface {
	List(ctx context.Context) ([]schedule.Item, error)
}

type Catalog interface {
	List() []catalog.Subject
}

// Service assembles reports from the roster, timetable and records.
type Service struct {
	roster    Roster
	records   Records
	timetable Timetable
	catalog   Catalog
}

func NewService(roster Roster, records Records, timetable Timetable, cat Catalog) *Service {
	return &Service{roster: roster, records: records, timetable: timetable, catalog: cat}
}

// RecordsView is the administrator's records page.
type RecordsView struct {
	Summary  Summary    `json:"summary"`
	Students []Standing `json:"students"`
}

// Records returns filtered standings; the summary always covers every student.
func (s *Service) Records(ctx context.Context, f Filter, search string) (RecordsView, error) {
	students, err := s.roster.List(ctx, identity.Filter{Role: identity.RoleStudent})
	if err != nil {
		return RecordsView{}, err
	}
	records, err := s.records.Records(ctx, attendance.ListFilter{Limit: maxRecords})
	if err != nil {
		return RecordsView{}, err
	}
	all := Standings(students, records)
	return RecordsView{Summary: Summarize(all), Students: Select(all, f, search)}, nil
}

// Overview is the reports page.
type Overview struct {
	Subjects []SubjectReport `json:"subjects"`
	Sections []SectionReport `json:"sections"`
}

// Overview reports all subjects and the sections of subjectID (all when empty).
func (s *Service) Overview(ctx context.Context, subjectID string) (Overview, error) {
	items, err := s.timetable.List(ctx)
	if err != nil {
		return Overview{}, err
	}
	records, err := s.records.Records(ctx, attendance.ListFilter{Limit: maxRecords})
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		Subjects: Subjects(s.catalog.List(), items, records),
		Sections: Sections(items, records, subjectID),
	}, nil
}

// StandingOf returns the standing of one student.
func (s *Service) StandingOf(ctx context.Context, u identity.User) (Standing, error) {
	records, err := s.records.Records(ctx, attendance.ListFilter{StudentID: u.ID, Limit: maxRecords})
	if err != nil {
		return Standing{}, err
	}
	u.Role = identity.RoleStudent
	return Standings([]identity.User{u}, records)[0], nil
}
