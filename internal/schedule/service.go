package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"unismart/internal/catalog"
	"unismart/internal/identity"
)

// Subjects looks up catalog entries.
type Subjects interface {
	Get(id string) (catalog.Subject, error)
}

// Users looks up roster entries.
type Users interface {
	Get(ctx context.Context, id string) (identity.User, error)
}

// Service exposes timetable CRUD and the live-entry lookup.
type Service struct {
	repo     Repository
	subjects Subjects
	users    Users
	resolver Resolver
	validate *validator.Validate
	NowFunc  func() time.Time
}

func NewService(repo Repository, subjects Subjects, users Users, resolver Resolver) *Service {
	return &Service{
		repo:     repo,
		subjects: subjects,
		users:    users,
		resolver: resolver,
		validate: validator.New(),
		NowFunc:  time.Now,
	}
}

func (s *Service) List(ctx context.Context) ([]Item, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.repo.Get(ctx, id)
}

// Add validates and prepends a new entry.
func (s *Service) Add(ctx context.Context, in NewItem) (Item, error) {
	if err := s.validate.Struct(in); err != nil {
		return Item{}, fmt.Errorf("invalid schedule item: %w", err)
	}
	typ, err := ParseSessionType(in.Type)
	if err != nil {
		return Item{}, err
	}
	day, err := ParseWeekday(in.Day)
	if err != nil {
		return Item{}, err
	}
	start, err := ParseClock(in.StartTime)
	if err != nil {
		return Item{}, err
	}
	end, err := ParseClock(in.EndTime)
	if err != nil {
		return Item{}, err
	}
	if start >= end {
		return Item{}, ErrInvalidRange
	}
	if _, err := s.subjects.Get(in.SubjectID); err != nil {
		return Item{}, fmt.Errorf("%w: %s", ErrUnknownSubject, in.SubjectID)
	}
	instructor, err := s.users.Get(ctx, in.InstructorID)
	if errors.Is(err, identity.ErrNotFound) {
		return Item{}, ErrInvalidInstructor
	}
	if err != nil {
		return Item{}, err
	}
	if !instructor.Role.IsInstructor() {
		return Item{}, ErrInvalidInstructor
	}

	room := strings.TrimSpace(in.Room)
	if room == "" {
		room = DefaultRoom
	}
	item := Item{
		ID:            "sc-" + uuid.NewString(),
		SubjectID:     in.SubjectID,
		InstructorID:  in.InstructorID,
		Type:          typ,
		Day:           day,
		StartTime:     start,
		EndTime:       end,
		Room:          room,
		SectionNumber: in.SectionNumber,
	}
	if err := s.repo.Prepend(ctx, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Active returns the entry live now, honouring override.
func (s *Service) Active(ctx context.Context, override string) (Item, bool, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return Item{}, false, err
	}
	it, ok := s.resolver.Resolve(s.NowFunc(), items, override)
	return it, ok, nil
}
