package report

import (
	"fmt"

	"unismart/internal/attendance"
	"unismart/internal/catalog"
	"unismart/internal/schedule"
)

// SubjectReport is the attendance rate of one subject against the target.
type SubjectReport struct {
	SubjectID   string `json:"subjectId"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Rate        int    `json:"rate"`
	Target      int    `json:"target"`
	Students    int    `json:"students"`
	BelowTarget bool   `json:"belowTarget"`
}

// SectionReport is the attendance of one timetable entry.
type SectionReport struct {
	ScheduleID string `json:"scheduleId"`
	Section    string `json:"section"`
	Attendance int    `json:"attendance"`
	Status     string `json:"status"`
}

// StatusLabel grades a section attendance percentage.
func StatusLabel(attendance int) string {
	switch {
	case attendance >= 90:
		return "ممتاز"
	case attendance >= 80:
		return "جيد جداً"
	default:
		return "تحت المراجعة"
	}
}

// SectionLabel names a timetable entry the way the reports page does.
func SectionLabel(it schedule.Item) string {
	switch it.Type {
	case schedule.Section:
		if it.SectionNumber != nil {
			return fmt.Sprintf("سكشن %d", *it.SectionNumber)
		}
		return "سكشن"
	case schedule.Lecture:
		return "المحاضرة العامة"
	case schedule.GD:
		return "مجموعة نقاش"
	}
	return string(it.Type)
}

type counter struct {
	present, total int
	students       map[string]struct{}
}

func (c *counter) add(rec attendance.Record) {
	if c.students == nil {
		c.students = map[string]struct{}{}
	}
	c.total++
	if rec.Status == attendance.Present {
		c.present++
	}
	c.students[rec.StudentID] = struct{}{}
}

func (c *counter) rate() int {
	if c == nil || c.total == 0 {
		return 0
	}
	return c.present * 100 / c.total
}

// Subjects reports every catalog subject, in catalog order.
func Subjects(subjects []catalog.Subject, items []schedule.Item, records []attendance.Record) []SubjectReport {
	subjectOf := make(map[string]string, len(items))
	for _, it := range items {
		subjectOf[it.ID] = it.SubjectID
	}
	bySubject := map[string]*counter{}
	for _, rec := range records {
		sid, ok := subjectOf[rec.ScheduleID]
		if !ok {
			continue
		}
		c := bySubject[sid]
		if c == nil {
			c = &counter{}
			bySubject[sid] = c
		}
		c.add(rec)
	}

	out := make([]SubjectReport, 0, len(subjects))
	for _, s := range subjects {
		c := bySubject[s.ID]
		r := SubjectReport{SubjectID: s.ID, Code: s.Code, Name: s.Name, Rate: c.rate(), Target: TargetRate}
		if c != nil {
			r.Students = len(c.students)
		}
		r.BelowTarget = r.Rate < r.Target
		out = append(out, r)
	}
	return out
}

// Sections reports the timetable entries of subjectID that have records.
// An empty subjectID covers every entry.
func Sections(items []schedule.Item, records []attendance.Record, subjectID string) []SectionReport {
	byItem := map[string]*counter{}
	for _, rec := range records {
		c := byItem[rec.ScheduleID]
		if c == nil {
			c = &counter{}
			byItem[rec.ScheduleID] = c
		}
		c.add(rec)
	}

	out := []SectionReport{}
	for _, it := range items {
		if subjectID != "" && it.SubjectID != subjectID {
			continue
		}
		c := byItem[it.ID]
		if c == nil {
			continue
		}
		pct := c.rate()
		out = append(out, SectionReport{ScheduleID: it.ID, Section: SectionLabel(it), Attendance: pct, Status: StatusLabel(pct)})
	}
	return out
}
