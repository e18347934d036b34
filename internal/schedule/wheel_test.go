package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestWheelFiresOnce(t *testing.T) {
	w := NewWheel(time.Millisecond)
	defer w.Stop()

	done := make(chan struct{})
	var calls atomic.Int32
	w.AfterFunc(20*time.Millisecond, func() {
		if calls.Add(1) == 1 {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("task did not fire")
	}
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one call, got %d", got)
	}
}

func TestWheelStopCancelsTask(t *testing.T) {
	w := NewWheel(time.Millisecond)
	defer w.Stop()

	var fired atomic.Bool
	task := w.AfterFunc(200*time.Millisecond, func() { fired.Store(true) })
	if !task.Stop() {
		t.Fatalf("expected Stop to cancel a pending task")
	}
	time.Sleep(300 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("cancelled task fired")
	}
}

func TestStoppedWheelRejectsTasks(t *testing.T) {
	w := NewWheel(0)
	w.Stop()
	w.Stop()

	var fired atomic.Bool
	task := w.AfterFunc(time.Millisecond, func() { fired.Store(true) })
	if task.Stop() {
		t.Fatalf("task from stopped wheel reported pending")
	}
	time.Sleep(20 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("stopped wheel ran a task")
	}
}
