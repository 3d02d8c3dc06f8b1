package attendance

import (
	"context"
	"log/slog"
	"time"

	"unismart/internal/queue"
)

// DefaultVerifyDelay is the simulated verification latency.
const DefaultVerifyDelay = 1500 * time.Millisecond

// Verifier marks scanned records verified after a fixed delay.
type Verifier struct {
	repo    Repository
	metrics Recorder
	log     *slog.Logger
	delay   time.Duration
}

func NewVerifier(repo Repository, metrics Recorder, log *slog.Logger, delay time.Duration) *Verifier {
	if delay < 0 {
		delay = DefaultVerifyDelay
	}
	return &Verifier{repo: repo, metrics: metrics, log: log, delay: delay}
}

// Run consumes q until ctx is done. Messages of other types are ignored.
func (v *Verifier) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	v.log.Info("verifier started", "delay", v.delay)
	for msg := range messages {
		if msg.Type != queue.TypeAttendanceScan {
			continue
		}
		var evt ScanEvent
		if err := msg.Decode(&evt); err != nil {
			v.log.Warn("undecodable scan message", "error", err)
			continue
		}
		if err := v.Process(ctx, evt); err != nil && ctx.Err() == nil {
			v.log.Error("verification failed", "record", evt.RecordID, "error", err)
		}
	}
	v.log.Info("verifier stopped")
	return nil
}

// Process verifies one scanned record.
func (v *Verifier) Process(ctx context.Context, evt ScanEvent) error {
	rec, err := v.repo.Get(ctx, evt.RecordID)
	if err != nil {
		v.metrics.RecordVerification(false)
		return err
	}
	if rec.Verification != Pending {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(v.delay):
	}

	if err := v.repo.SetVerification(ctx, rec.ID, Verified); err != nil {
		v.metrics.RecordVerification(false)
		return err
	}
	v.metrics.RecordVerification(true)
	v.log.Debug("record verified", "record", rec.ID, "student", rec.StudentID)
	return nil
}
