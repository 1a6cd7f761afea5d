package timers

import (
	"context"
	"fmt"
	"time"
)

// ProgressUpdate is one tick emitted by WaitWithProgress.
type ProgressUpdate struct {
	Elapsed   time.Duration
	Remaining time.Duration
	Done      bool
}

// WaitSeconds blocks the caller for d seconds or until ctx is cancelled.
func (m *Manager) WaitSeconds(ctx context.Context, seconds float64) error {
	return m.block(ctx, time.Duration(seconds*float64(time.Second)))
}

// WaitMinutes blocks the caller for d minutes or until ctx is cancelled.
func (m *Manager) WaitMinutes(ctx context.Context, minutes float64) error {
	return m.block(ctx, time.Duration(minutes*float64(time.Minute)))
}

// WaitUntilTimestamp blocks until the given instant, or returns
// immediately if it has already passed.
func (m *Manager) WaitUntilTimestamp(ctx context.Context, target time.Time) error {
	d := time.Until(target)
	if d <= 0 {
		return nil
	}
	return m.block(ctx, d)
}

func (m *Manager) block(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitWithProgress blocks for duration, emitting a ProgressUpdate on ch at
// every interval tick and a final Done update when it completes. ch is
// closed when the wait ends, whether by completion or cancellation.
func (m *Manager) WaitWithProgress(ctx context.Context, duration, interval time.Duration) (<-chan ProgressUpdate, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("timers: duration must be positive")
	}
	if interval <= 0 {
		interval = duration
	}

	ch := make(chan ProgressUpdate)
	go func() {
		defer close(ch)

		start := time.Now()
		end := start.Add(duration)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				elapsed := now.Sub(start)
				if !now.Before(end) {
					select {
					case ch <- ProgressUpdate{Elapsed: duration, Remaining: 0, Done: true}:
					case <-ctx.Done():
					}
					return
				}
				select {
				case ch <- ProgressUpdate{Elapsed: elapsed, Remaining: end.Sub(now), Done: false}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
