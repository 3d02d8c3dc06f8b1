package attendance

import (
	"context"
	"fmt"
	"time"
)

// SeedHistory returns past records for the demo student: 18 present and 7
// absent, an absence rate of 28%.
func SeedHistory(studentID, scheduleID string, before time.Time) []Record {
	var out []Record
	for i := 0; i < 25; i++ {
		status := Present
		if i >= 18 {
			status = Absent
		}
		when := before.AddDate(0, 0, -7*(25-i)).UTC()
		out = append(out, Record{
			ID:           fmt.Sprintf("seed-%s-%02d", studentID, i),
			StudentID:    studentID,
			ScheduleID:   scheduleID,
			When:         when,
			Status:       status,
			Verification: Verified,
			CreatedAt:    when,
		})
	}
	return out
}

// SeedIfEmpty inserts records when repo holds none.
func SeedIfEmpty(ctx context.Context, repo Repository, records []Record) error {
	existing, err := repo.List(ctx, ListFilter{Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, rec := range records {
		if _, err := repo.Insert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
