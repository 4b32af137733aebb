package services

import (
	"context"
	"log"
	"time"

	"skillswap_server/models"
)

// Sweepable is what the sweeper schedules.
type Sweepable interface {
	SweepExpired(ctx context.Context) (int, error)
}

// SessionSweeper runs the expiry sweep on a fixed interval, independent
// of request traffic. It has an explicit start/stop lifecycle; a failed
// tick is logged and the next tick retries.
type SessionSweeper struct {
	Sessions Sweepable
	Interval time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewSessionSweeper(sessions Sweepable, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = models.SweepInterval
	}
	return &SessionSweeper{
		Sessions: sessions,
		Interval: interval,
	}
}

// Start launches the periodic sweep. Calling Start on a running sweeper
// is a no-op.
func (w *SessionSweeper) Start(ctx context.Context) {
	if w.stop != nil {
		return
	}
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()

		log.Printf("🧹 Session sweeper started, interval %s", w.Interval)
		for {
			select {
			case <-ticker.C:
				w.sweepOnce(ctx)
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			}
		}
	}()
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (w *SessionSweeper) Stop() {
	if w.stop == nil {
		return
	}
	close(w.stop)
	<-w.done
	w.stop = nil
	log.Println("🧹 Session sweeper stopped")
}

func (w *SessionSweeper) sweepOnce(ctx context.Context) {
	deleted, err := w.Sessions.SweepExpired(ctx)
	if err != nil {
		log.Printf("❌ Session sweep failed, retrying on next tick: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("🧹 Session sweep removed %d expired room(s)", deleted)
	}
}
