package pool

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

func TestSubmit(t *testing.T) {
	p := New(2)
	defer p.Close()

	n := atomic.NewInt32(0)
	futures := make([]*Future, 10)
	for i := range futures {
		futures[i] = p.Submit(func() { n.Inc() })
	}
	for _, f := range futures {
		f.Wait()
	}
	if n.Load() != 10 {
		t.Errorf("tasks run: want 10, got %d", n.Load())
	}
}

func TestFutureDone(t *testing.T) {
	p := New(1)
	defer p.Close()

	f := p.Submit(func() {})
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future did not resolve")
	}
}

func TestSubmitNil(t *testing.T) {
	p := New(1)
	defer p.Close()
	p.Submit(nil).Wait() // resolves immediately
	p.SubmitDetached(nil)
}

func TestSubmitAfterClose(t *testing.T) {
	p := New(1)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	n := atomic.NewInt32(0)
	f := p.Submit(func() { n.Inc() })
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future after close should resolve immediately")
	}
	if n.Load() != 0 {
		t.Error("task must not run after close")
	}
}

func TestPending(t *testing.T) {
	p := New(1)
	gate := make(chan struct{})
	first := p.Submit(func() { <-gate })
	for i := 0; i < 3; i++ {
		p.SubmitDetached(func() { <-gate })
	}

	// The single worker holds one task; the rest stay queued.
	deadline := time.Now().Add(2 * time.Second)
	for p.Pending() != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("pending: want 3, got %d", p.Pending())
		}
		time.Sleep(time.Millisecond)
	}

	close(gate)
	first.Wait()
	p.Close()
}

func TestNumIdle(t *testing.T) {
	p := New(3)
	defer p.Close()

	deadline := time.Now().Add(2 * time.Second)
	for p.NumIdle() != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("idle: want 3, got %d", p.NumIdle())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCloseResolvesQueuedFutures(t *testing.T) {
	p := New(1)
	gate := make(chan struct{})
	first := p.Submit(func() { <-gate })
	ran := atomic.NewBool(false)
	second := p.Submit(func() { ran.Store(true) })

	// The single worker holds the first task; the second stays queued.
	deadline := time.Now().Add(2 * time.Second)
	for p.Pending() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("pending: want 1, got %d", p.Pending())
		}
		time.Sleep(time.Millisecond)
	}

	closed := make(chan error)
	go func() { closed <- p.Close() }()
	for p.work.Valid() {
		if time.Now().After(deadline) {
			t.Fatal("close did not invalidate the work queue")
		}
		time.Sleep(time.Millisecond)
	}
	close(gate)

	first.Wait()
	select {
	case <-second.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future of a never-run task did not resolve at close")
	}
	if ran.Load() {
		t.Error("queued task must not run after close")
	}
	if err := <-closed; err != nil {
		t.Fatal(err)
	}
}

func TestNumIdleAfterClose(t *testing.T) {
	p := New(3)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if n := p.NumIdle(); n != 0 {
		t.Errorf("idle after close: want 0, got %d", n)
	}
}

func TestOnShutdown(t *testing.T) {
	p := New(1)
	ran := atomic.NewInt32(0)
	p.OnShutdown(func() error { ran.Inc(); return nil })
	p.OnShutdown(func() error { ran.Inc(); return errors.New("flush failed") })
	p.OnShutdown(nil)

	err := p.Close()
	if ran.Load() != 2 {
		t.Errorf("callbacks run: want 2, got %d", ran.Load())
	}
	if err == nil || err.Error() != "flush failed" {
		t.Errorf("want flush failed, got %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	p := New(2)
	p.OnShutdown(func() error { return errors.New("once") })
	first := p.Close()
	second := p.Close()
	if first == nil || second != first {
		t.Errorf("close should return the same error: %v vs %v", first, second)
	}
}
