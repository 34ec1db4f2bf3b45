package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitAndDrain(t *testing.T) {
	p := New(2, 10, nil)
	var count atomic.Int32

	for i := 0; i < 5; i++ {
		if !p.Submit(func() { count.Add(1) }) {
			t.Fatalf("Submit %d failed", i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Drain(ctx)

	if got := count.Load(); got != 5 {
		t.Fatalf("count = %d, want 5", got)
	}
}

func TestSubmitAfterDrainReturnsFalse(t *testing.T) {
	p := New(1, 1, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Drain(ctx)

	if p.Submit(func() {}) {
		t.Fatal("Submit after Drain should return false")
	}
}

func TestQueueFullDropsTask(t *testing.T) {
	p := New(1, 1, nil)
	blocker := make(chan struct{})
	started := make(chan struct{})
	p.Submit(func() {
		close(started)
		<-blocker
	})
	<-started

	if !p.Submit(func() {}) {
		t.Fatal("queue slot should be free")
	}
	if p.Submit(func() {}) {
		t.Fatal("Submit should return false when queue is full")
	}

	close(blocker)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Drain(ctx)
}

func TestPanickingTaskDoesNotKillWorker(t *testing.T) {
	p := New(1, 4, nil)
	var ran atomic.Bool
	p.Submit(func() { panic("boom") })
	p.Submit(func() { ran.Store(true) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Drain(ctx)

	if !ran.Load() {
		t.Fatal("task after panic did not run")
	}
}

func TestDrainRespectsDeadline(t *testing.T) {
	p := New(1, 1, nil)
	blocker := make(chan struct{})
	defer close(blocker)
	p.Submit(func() { <-blocker })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	p.Drain(ctx)
	if time.Since(start) > 2*time.Second {
		t.Fatal("Drain ignored the context deadline")
	}
}
