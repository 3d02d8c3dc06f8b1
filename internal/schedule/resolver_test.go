package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"unismart/internal/schedule"
)

// 2024-01-01 is a Monday.
func at(day int, hhmm string) time.Time {
	c := schedule.MustClock(hhmm)
	return time.Date(2024, time.January, day, int(c)/60, int(c)%60, 0, 0, time.UTC)
}

func TestResolveFixedWindow(t *testing.T) {
	r := schedule.NewResolver(time.UTC, 0, schedule.WindowFixed)
	items := schedule.Seed()

	tests := []struct {
		name   string
		now    time.Time
		wantID string
	}{
		{name: "monday at start", now: at(1, "09:00"), wantID: "sc1"},
		{name: "monday 10:30", now: at(1, "10:30"), wantID: "sc1"},
		{name: "monday last minute", now: at(1, "10:59"), wantID: "sc1"},
		{name: "monday window closed", now: at(1, "11:00")},
		{name: "monday 11:30", now: at(1, "11:30")},
		{name: "monday before start", now: at(1, "08:59")},
		{name: "tuesday section", now: at(2, "13:59"), wantID: "sc2"},
		{name: "wednesday 11:45", now: at(3, "11:45"), wantID: "sc3"},
		{name: "thursday", now: at(4, "10:00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, ok := r.Resolve(tt.now, items, "")
			if tt.wantID == "" {
				assert.False(t, ok)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.wantID, it.ID)
		})
	}
}

func TestResolveFixedWindowIgnoresDeclaredEnd(t *testing.T) {
	items := []schedule.Item{{
		ID: "short", Day: schedule.Monday,
		StartTime: schedule.MustClock("09:00"), EndTime: schedule.MustClock("09:30"),
	}}

	_, ok := schedule.NewResolver(time.UTC, 0, schedule.WindowFixed).Resolve(at(1, "10:45"), items, "")
	assert.True(t, ok)

	_, ok = schedule.NewResolver(time.UTC, 0, schedule.WindowDeclared).Resolve(at(1, "10:45"), items, "")
	assert.False(t, ok)

	_, ok = schedule.NewResolver(time.UTC, 0, schedule.WindowDeclared).Resolve(at(1, "09:29"), items, "")
	assert.True(t, ok)
}

func TestResolveFirstMatchWins(t *testing.T) {
	items := []schedule.Item{
		{ID: "a", Day: schedule.Monday, StartTime: schedule.MustClock("09:00"), EndTime: schedule.MustClock("11:00")},
		{ID: "b", Day: schedule.Monday, StartTime: schedule.MustClock("10:00"), EndTime: schedule.MustClock("12:00")},
	}
	it, ok := schedule.NewResolver(time.UTC, 0, "").Resolve(at(1, "10:15"), items, "")
	assert.True(t, ok)
	assert.Equal(t, "a", it.ID)
}

func TestResolveOverride(t *testing.T) {
	r := schedule.NewResolver(time.UTC, 0, schedule.WindowFixed)
	items := schedule.Seed()

	it, ok := r.Resolve(at(5, "03:00"), items, "sc2")
	assert.True(t, ok)
	assert.Equal(t, "sc2", it.ID)

	_, ok = r.Resolve(at(1, "10:00"), items, "missing")
	assert.False(t, ok)
}

func TestResolveUsesCampusZone(t *testing.T) {
	riyadh := time.FixedZone("AST", 3*60*60)
	r := schedule.NewResolver(riyadh, 0, schedule.WindowFixed)

	// 07:30 UTC is 10:30 in the campus zone.
	it, ok := r.Resolve(at(1, "07:30"), schedule.Seed(), "")
	assert.True(t, ok)
	assert.Equal(t, "sc1", it.ID)
}

func TestResolveCustomWindow(t *testing.T) {
	r := schedule.NewResolver(time.UTC, 30*time.Minute, schedule.WindowFixed)
	_, ok := r.Resolve(at(1, "09:45"), schedule.Seed(), "")
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	c, err := schedule.ParseClock("09:05")
	assert.NoError(t, err)
	assert.Equal(t, schedule.Clock(545), c)
	assert.Equal(t, "09:05", c.String())

	_, err = schedule.ParseClock("25:00")
	assert.ErrorIs(t, err, schedule.ErrInvalidClock)

	d, err := schedule.ParseWeekday("tuesday")
	assert.NoError(t, err)
	assert.Equal(t, schedule.Tuesday, d)

	_, err = schedule.ParseWeekday("Funday")
	assert.ErrorIs(t, err, schedule.ErrInvalidWeekday)

	assert.Equal(t, schedule.WindowDeclared, schedule.ParseWindowMode("DECLARED"))
	assert.Equal(t, schedule.WindowFixed, schedule.ParseWindowMode("whatever"))
}
