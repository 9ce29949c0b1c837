package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestQueue_AfterFires(t *testing.T) {
	q := NewQueue()
	defer q.Stop()

	fired := make(chan struct{})
	q.After(time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("task did not fire")
	}
}

func TestQueue_StopCancelsPending(t *testing.T) {
	q := NewQueue()

	var fired atomic.Bool
	q.After(50*time.Millisecond, func() { fired.Store(true) })
	if q.PendingLen() != 1 {
		t.Fatalf("PendingLen = %d, want 1", q.PendingLen())
	}

	q.Stop()
	if q.PendingLen() != 0 {
		t.Errorf("PendingLen after Stop = %d, want 0", q.PendingLen())
	}

	time.Sleep(100 * time.Millisecond)
	if fired.Load() {
		t.Error("task fired after Stop")
	}
}

func TestQueue_AfterOnStoppedQueueIsDropped(t *testing.T) {
	q := NewQueue()
	q.Stop()

	var fired atomic.Bool
	q.After(time.Millisecond, func() { fired.Store(true) })

	time.Sleep(20 * time.Millisecond)
	if fired.Load() {
		t.Error("stopped queue ran a task")
	}
	if q.PendingLen() != 0 {
		t.Errorf("PendingLen = %d, want 0", q.PendingLen())
	}
}

func TestQueue_FiredTaskLeavesPending(t *testing.T) {
	q := NewQueue()
	defer q.Stop()

	done := make(chan struct{})
	q.After(time.Millisecond, func() { close(done) })
	<-done

	// The callback removes itself before running fn.
	deadline := time.After(time.Second)
	for q.PendingLen() != 0 {
		select {
		case <-deadline:
			t.Fatalf("PendingLen = %d, want 0", q.PendingLen())
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestQueue_CustomAfterFunc(t *testing.T) {
	var captured func()
	q := NewQueueWithAfterFunc(func(d time.Duration, fn func()) *time.Timer {
		captured = fn
		return time.NewTimer(time.Hour)
	})
	defer q.Stop()

	fired := false
	q.After(time.Hour, func() { fired = true })
	if captured == nil {
		t.Fatal("afterFunc was not invoked")
	}

	captured()
	if !fired {
		t.Error("manually firing the captured task did not run fn")
	}
}
