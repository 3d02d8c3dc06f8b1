package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"unismart/internal/queue"
)

// Gauge exports the live entry.
type Gauge interface {
	SetActiveSession(id string)
}

// Snapshot is the result of the latest evaluation.
type Snapshot struct {
	Active      *Item     `json:"active"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// ActiveChange is the body of a schedule.active_changed message.
type ActiveChange struct {
	PreviousID string    `json:"previousId,omitempty"`
	CurrentID  string    `json:"currentId,omitempty"`
	At         time.Time `json:"at"`
}

// Monitor re-evaluates the live entry on a fixed interval.
type Monitor struct {
	svc      *Service
	queue    queue.Queue
	gauge    Gauge
	log      *slog.Logger
	interval time.Duration

	mu   sync.RWMutex
	last Snapshot
}

func NewMonitor(svc *Service, q queue.Queue, gauge Gauge, log *slog.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{svc: svc, queue: q, gauge: gauge, log: log, interval: interval}
}

// Run evaluates immediately and then once per interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick performs one evaluation and publishes a change message when the live
// entry differs from the previous evaluation.
func (m *Monitor) Tick(ctx context.Context) Snapshot {
	it, ok, err := m.svc.Active(ctx, "")
	if err != nil {
		m.log.Error("evaluate active session", "error", err)
		return m.Snapshot()
	}

	next := Snapshot{EvaluatedAt: m.svc.NowFunc()}
	if ok {
		next.Active = &it
	}

	m.mu.Lock()
	prev := m.last
	m.last = next
	m.mu.Unlock()

	prevID, nextID := idOf(prev.Active), idOf(next.Active)
	if m.gauge != nil {
		m.gauge.SetActiveSession(nextID)
	}
	if prevID == nextID && !prev.EvaluatedAt.IsZero() {
		return next
	}

	m.log.Info("active session changed", "previous", prevID, "current", nextID)
	if m.queue == nil {
		return next
	}
	msg, err := queue.NewMessage(queue.TypeActiveSessionChange, ActiveChange{
		PreviousID: prevID,
		CurrentID:  nextID,
		At:         next.EvaluatedAt,
	})
	if err == nil {
		err = m.queue.Publish(ctx, msg)
	}
	if err != nil {
		m.log.Warn("publish active session change", "error", err)
	}
	return next
}

// Snapshot returns the latest evaluation.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

func idOf(it *Item) string {
	if it == nil {
		return ""
	}
	return it.ID
}
