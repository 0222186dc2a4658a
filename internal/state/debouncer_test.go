package state

import (
	"sync"
	"testing"
	"time"
)

func TestDebouncer_StateMachine(t *testing.T) {
	var mu sync.Mutex
	writes := 0
	persist := func() {
		mu.Lock()
		writes++
		mu.Unlock()
	}
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return writes
	}

	window := 60 * time.Millisecond
	d := newDebouncer(window, persist)

	if got := d.pendingCount(); got != 0 {
		t.Fatalf("idle pendingCount() = %d, want 0", got)
	}

	// Idle -> armed: immediate write.
	d.request()
	if got := count(); got != 1 {
		t.Fatalf("writes after first request = %d, want 1", got)
	}
	if got := d.pendingCount(); got != 1 {
		t.Fatalf("armed pendingCount() = %d, want 1", got)
	}

	// Armed: further requests only bump the counter.
	d.request()
	d.request()
	if got := count(); got != 1 {
		t.Fatalf("writes while armed = %d, want 1", got)
	}
	if got := d.pendingCount(); got != 3 {
		t.Fatalf("pendingCount() = %d, want 3", got)
	}

	// Window elapses: one trailing write, back to idle.
	time.Sleep(window + 40*time.Millisecond)
	if got := count(); got != 2 {
		t.Fatalf("writes after window = %d, want 2", got)
	}
	if got := d.pendingCount(); got != 0 {
		t.Fatalf("pendingCount() after window = %d, want 0", got)
	}
}

func TestDebouncer_ConcurrentRequests(t *testing.T) {
	var mu sync.Mutex
	writes := 0
	persist := func() {
		mu.Lock()
		writes++
		mu.Unlock()
	}

	window := 80 * time.Millisecond
	d := newDebouncer(window, persist)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.request()
		}()
	}
	wg.Wait()

	time.Sleep(window + 40*time.Millisecond)

	mu.Lock()
	got := writes
	mu.Unlock()
	if got != 2 {
		t.Errorf("writes = %d, want 2 (one immediate, one trailing)", got)
	}
}

func TestDebouncer_CloseIsIdempotent(t *testing.T) {
	writes := 0
	d := newDebouncer(time.Hour, func() { writes++ })

	d.request()
	d.close()
	d.close()
	d.request()

	if writes != 1 {
		t.Errorf("writes = %d, want 1", writes)
	}
}
