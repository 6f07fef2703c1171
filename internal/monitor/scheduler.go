package monitor

import (
	"context"
	"sync"
	"time"
)

// Scheduler is the injected recurring-wakeup capability. Abstracting it
// keeps the monitor host-agnostic and unit-testable without real timers.
type Scheduler interface {
	// ScheduleRecurring invokes callback every interval until the returned
	// handle is cancelled. The first invocation happens one interval after
	// scheduling, not immediately.
	ScheduleRecurring(interval time.Duration, callback func(context.Context)) (Handle, error)
}

// Handle cancels a recurring schedule. Cancel is idempotent.
type Handle interface {
	Cancel()
}

// TickerScheduler implements Scheduler on a goroutine and time.Ticker.
type TickerScheduler struct{}

func NewTickerScheduler() *TickerScheduler { return &TickerScheduler{} }

func (s *TickerScheduler) ScheduleRecurring(interval time.Duration, callback func(context.Context)) (Handle, error) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &tickerHandle{cancel: cancel}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				callback(ctx)
			}
		}
	}()

	return h, nil
}

type tickerHandle struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (h *tickerHandle) Cancel() {
	h.once.Do(h.cancel)
}
