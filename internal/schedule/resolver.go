package schedule

import (
	"strings"
	"time"
)

// WindowMode selects how long an entry stays live after it starts.
type WindowMode string

const (
	// WindowFixed keeps an entry live for Resolver.Window after its start,
	// ignoring the declared end time.
	WindowFixed WindowMode = "fixed"
	// WindowDeclared keeps an entry live between its start and end times.
	WindowDeclared WindowMode = "declared"
)

// DefaultWindow is the fixed live window.
const DefaultWindow = 2 * time.Hour

func ParseWindowMode(s string) WindowMode {
	if strings.EqualFold(strings.TrimSpace(s), string(WindowDeclared)) {
		return WindowDeclared
	}
	return WindowFixed
}

// Resolver picks the live timetable entry for an instant.
type Resolver struct {
	Location *time.Location
	Window   time.Duration
	Mode     WindowMode
}

func NewResolver(loc *time.Location, window time.Duration, mode WindowMode) Resolver {
	if loc == nil {
		loc = time.Local
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if mode == "" {
		mode = WindowFixed
	}
	return Resolver{Location: loc, Window: window, Mode: mode}
}

// Resolve returns the first entry live at now. A non-empty override selects
// the entry with that id regardless of time; an unknown override selects
// nothing.
func (r Resolver) Resolve(now time.Time, items []Item, override string) (Item, bool) {
	if override != "" {
		for _, it := range items {
			if it.ID == override {
				return it, true
			}
		}
		return Item{}, false
	}

	local := now.In(r.location())
	day := WeekdayOf(local)
	minute := ClockOf(local)
	for _, it := range items {
		if it.Day != day {
			continue
		}
		if minute >= it.StartTime && minute < r.end(it) {
			return it, true
		}
	}
	return Item{}, false
}

func (r Resolver) end(it Item) Clock {
	if r.Mode == WindowDeclared {
		return it.EndTime
	}
	w := r.Window
	if w <= 0 {
		w = DefaultWindow
	}
	return it.StartTime + Clock(w/time.Minute)
}

func (r Resolver) location() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}
