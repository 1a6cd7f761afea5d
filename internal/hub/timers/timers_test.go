package timers

import (
	"context"
	"testing"
	"time"
)

func TestStartTimer_CompletesAfterDuration(t *testing.T) {
	m := New()
	handle, err := m.StartTimer(context.Background(), 30*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	if handle.Status != StatusRunning {
		t.Fatalf("expected running immediately after start, got %s", handle.Status)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		got, err := m.GetStatus(handle.ID)
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if got.Status == StatusCompleted {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timer never reached completed status")
}

func TestCancelTimer_TransitionsToCancelled(t *testing.T) {
	m := New()
	handle, err := m.StartTimer(context.Background(), time.Hour, time.Minute)
	if err != nil {
		t.Fatalf("StartTimer: %v", err)
	}

	if err := m.CancelTimer(handle.ID); err != nil {
		t.Fatalf("CancelTimer: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		got, err := m.GetStatus(handle.ID)
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if got.Status == StatusCancelled {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timer never reached cancelled status")
}

func TestCancelTimer_UnknownIDReturnsNotFound(t *testing.T) {
	m := New()
	if err := m.CancelTimer("missing"); err != ErrTimerNotFound {
		t.Fatalf("expected ErrTimerNotFound, got %v", err)
	}
}

func TestListActiveTimers_OnlyReturnsRunning(t *testing.T) {
	m := New()
	running, err := m.StartTimer(context.Background(), time.Hour, time.Minute)
	if err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	done, err := m.StartTimer(context.Background(), 10*time.Millisecond, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("StartTimer: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		h, err := m.GetStatus(done.ID)
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if h.Status != StatusRunning {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	active := m.ListActiveTimers()
	if len(active) != 1 || active[0].ID != running.ID {
		t.Fatalf("expected only %s active, got %+v", running.ID, active)
	}
}

func TestCleanupTimers_RemovesTerminalOnly(t *testing.T) {
	m := New()
	running, err := m.StartTimer(context.Background(), time.Hour, time.Minute)
	if err != nil {
		t.Fatalf("StartTimer: %v", err)
	}
	done, err := m.StartTimer(context.Background(), 10*time.Millisecond, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("StartTimer: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		h, err := m.GetStatus(done.ID)
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if h.Status == StatusCompleted {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	removed := m.CleanupTimers()
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := m.GetStatus(done.ID); err != ErrTimerNotFound {
		t.Fatalf("expected completed timer pruned, got err=%v", err)
	}
	if _, err := m.GetStatus(running.ID); err != nil {
		t.Fatalf("expected running timer retained, got err=%v", err)
	}
}

func TestWaitSeconds_BlocksApproximateDuration(t *testing.T) {
	m := New()
	start := time.Now()
	if err := m.WaitSeconds(context.Background(), 0.02); err != nil {
		t.Fatalf("WaitSeconds: %v", err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("expected WaitSeconds to actually block")
	}
}

func TestWaitSeconds_RespectsCancellation(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.WaitSeconds(ctx, 10); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestWaitUntilTimestamp_PastTimeReturnsImmediately(t *testing.T) {
	m := New()
	if err := m.WaitUntilTimestamp(context.Background(), time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("expected nil for past timestamp, got %v", err)
	}
}

func TestWaitWithProgress_EmitsFinalDoneUpdate(t *testing.T) {
	m := New()
	ch, err := m.WaitWithProgress(context.Background(), 20*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitWithProgress: %v", err)
	}

	var last ProgressUpdate
	for update := range ch {
		last = update
	}
	if !last.Done {
		t.Fatalf("expected final update to be Done, got %+v", last)
	}
}
