// Package report computes attendance standings and subject reports.
package report

import (
	"fmt"
	"strings"

	"unismart/internal/attendance"
	"unismart/internal/identity"
)

// Thresholds on the absence rate, in percent.
const (
	DisciplinedMax = 10
	BarredAbove    = 25
	TargetRate     = 75
)

// Standing is a student's cumulative attendance.
type Standing struct {
	StudentID    string `json:"studentId"`
	Name         string `json:"name"`
	Username     string `json:"username"`
	BatchID      string `json:"batchId,omitempty"`
	PresentCount int    `json:"presentCount"`
	AbsentCount  int    `json:"absentCount"`
	Rate         int    `json:"rate"`
	IsBarred     bool   `json:"isBarred"`
}

// AbsenceRate is absent*100/(present+absent), truncated; 0 without records.
func AbsenceRate(present, absent int) int {
	if present+absent == 0 {
		return 0
	}
	return absent * 100 / (present + absent)
}

// Standings computes one entry per student in roster order.
func Standings(students []identity.User, records []attendance.Record) []Standing {
	type tally struct{ present, absent int }
	counts := map[string]*tally{}
	for _, rec := range records {
		t := counts[rec.StudentID]
		if t == nil {
			t = &tally{}
			counts[rec.StudentID] = t
		}
		switch rec.Status {
		case attendance.Present:
			t.present++
		case attendance.Absent:
			t.absent++
		}
	}

	out := make([]Standing, 0, len(students))
	for _, s := range students {
		if s.Role != identity.RoleStudent {
			continue
		}
		st := Standing{StudentID: s.ID, Name: s.Name, Username: s.Username, BatchID: s.BatchID}
		if t := counts[s.ID]; t != nil {
			st.PresentCount, st.AbsentCount = t.present, t.absent
		}
		st.Rate = AbsenceRate(st.PresentCount, st.AbsentCount)
		st.IsBarred = st.Rate > BarredAbove
		out = append(out, st)
	}
	return out
}

// Filter selects standings by attendance band.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterPresent Filter = "present"
	FilterAbsent  Filter = "absent"
	FilterBarred  Filter = "barred"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPresent, FilterAbsent, FilterBarred:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

func (f Filter) match(st Standing) bool {
	switch f {
	case FilterPresent:
		return st.Rate <= DisciplinedMax
	case FilterAbsent:
		return st.Rate > DisciplinedMax && !st.IsBarred
	case FilterBarred:
		return st.IsBarred
	case FilterAll:
		return true
	}
	return true
}

// Select applies the band filter and a substring search on name or username.
func Select(standings []Standing, f Filter, search string) []Standing {
	out := []Standing{}
	for _, st := range standings {
		if search != "" && !strings.Contains(st.Name, search) && !strings.Contains(st.Username, search) {
			continue
		}
		if f.match(st) {
			out = append(out, st)
		}
	}
	return out
}

// Summary counts students per band.
type Summary struct {
	TotalStudents int `json:"totalStudents"`
	Disciplined   int `json:"disciplined"`
	Warned        int `json:"warned"`
	Barred        int `json:"barred"`
}

func Summarize(standings []Standing) Summary {
	s := Summary{TotalStudents: len(standings)}
	for _, st := range standings {
		switch {
		case st.IsBarred:
			s.Barred++
		case st.Rate > DisciplinedMax:
			s.Warned++
		default:
			s.Disciplined++
		}
	}
	return s
}
