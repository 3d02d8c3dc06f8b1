// Package attendance implements the attendance view: who may display a
// session's code, student scans and their simulated verification.
package attendance

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("attendance record not found")
	ErrNoActiveSession = errors.New("لا يوجد سكشن نشط في هذا الوقت.")
	ErrStudentsOnly    = errors.New("only students can scan attendance codes")
	ErrForbidden       = errors.New("not allowed to display this session's code")
	ErrCodeMismatch    = errors.New("code does not belong to the active session")
	ErrCodeExpired     = errors.New("attendance code expired")
)

type Status string

const (
	Present Status = "Present"
	Absent  Status = "Absent"
)

type Verification string

const (
	Pending  Verification = "pending"
	Verified Verification = "verified"
	Failed   Verification = "failed"
)

// Record is one attendance mark for a student in a timetable entry.
type Record struct {
	ID           string       `json:"id" db:"id"`
	StudentID    string       `json:"studentId" db:"student_id"`
	ScheduleID   string       `json:"scheduleId" db:"schedule_id"`
	When         time.Time    `json:"timestamp" db:"occurred_at"`
	Status       Status       `json:"status" db:"status"`
	Verification Verification `json:"verification" db:"verification"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
}

// ListFilter narrows record listings. Zero values match everything.
type ListFilter struct {
	StudentID  string
	ScheduleID string
	Limit      int
	Offset     int
}

func (f ListFilter) normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
