// Package schedule manages the weekly timetable and resolves which entry is
// live at a given instant.
package schedule

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("schedule item not found")
	ErrInvalidClock      = errors.New("invalid time of day, expected HH:MM")
	ErrInvalidWeekday    = errors.New("invalid weekday")
	ErrInvalidType       = errors.New("invalid session type")
	ErrInvalidRange      = errors.New("start time must be before end time")
	ErrUnknownSubject    = errors.New("unknown subject")
	ErrInvalidInstructor = errors.New("instructor must be an existing doctor or TA")
)

// DefaultRoom is used when an entry is added without a room.
const DefaultRoom = "قاعة عامة"

type SessionType string

const (
	Lecture SessionType = "Lecture"
	Section SessionType = "Section"
	GD      SessionType = "GD"
)

func ParseSessionType(s string) (SessionType, error) {
	switch t := SessionType(strings.TrimSpace(s)); t {
	case Lecture, Section, GD:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Weekday is the English day name used by the timetable.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// ParseWeekday accepts any casing of an English day name.
func ParseWeekday(s string) (Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return Weekday(d.String()), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// WeekdayOf returns the day name of t in its own location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday().String())
}

// Clock is a time of day in minutes since midnight.
type Clock int

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// MustClock is ParseClock for literals.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf returns the minutes since midnight of t in its own location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores a Clock as HH:MM text.
func (c Clock) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c *Clock) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan clock: unsupported type %T", src)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Item is one weekly timetable entry.
type Item struct {
	ID            string      `json:"id" db:"id"`
	SubjectID     string      `json:"subjectId" db:"subject_id"`
	InstructorID  string      `json:"instructorId" db:"instructor_id"`
	Type          SessionType `json:"type" db:"session_type"`
	Day           Weekday     `json:"day" db:"day"`
	StartTime     Clock       `json:"startTime" db:"start_time"`
	EndTime       Clock       `json:"endTime" db:"end_time"`
	Room          string      `json:"room" db:"room"`
	SectionNumber *int        `json:"sectionNumber,omitempty" db:"section_number"`
}

// NewItem is the admin form for a timetable entry.
type NewItem struct {
	SubjectID     string `json:"subjectId" validate:"required"`
	InstructorID  string `json:"instructorId" validate:"required"`
	Type          string `json:"type" validate:"required,oneof=Lecture Section GD"`
	Day           string `json:"day" validate:"required"`
	StartTime     string `json:"startTime" validate:"required"`
	EndTime       string `json:"endTime" validate:"required"`
	Room          string `json:"room"`
	SectionNumber *int   `json:"sectionNumber" validate:"omitempty,gte=1"`
}

func intPtr(i int) *int { return &i }

// Seed returns the default weekly timetable.
func Seed() []Item {
	return []Item{
		{ID: "sc1", SubjectID: "s1", InstructorID: "2", Type: Lecture, Day: Monday, StartTime: MustClock("09:00"), EndTime: MustClock("11:00"), Room: "Hall A"},
		{ID: "sc2", SubjectID: "s2", InstructorID: "3", Type: Section, Day: Tuesday, StartTime: MustClock("12:00"), EndTime: MustClock("14:00"), Room: "Lab 4", SectionNumber: intPtr(5)},
		{ID: "sc3", SubjectID: "s3", InstructorID: "2", Type: Lecture, Day: Wednesday, StartTime: MustClock("10:00"), EndTime: MustClock("12:00"), Room: "Hall C"},
	}
}
