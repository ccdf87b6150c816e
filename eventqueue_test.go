package drumengine

import (
	"sync"
	"testing"
)

func TestEventQueueEnqueueDequeueOrder(t *testing.T) {
	q := NewEventQueue()
	q.Enqueue(PedalPress, 1)
	q.Enqueue(PedalRelease, 2)

	ev, arg, ok := q.TryDequeue()
	if !ok || ev != PedalPress || arg != 1 {
		t.Fatalf("expected (PedalPress, 1), got (%v, %d, %v)", ev, arg, ok)
	}
	ev, arg, ok = q.TryDequeue()
	if !ok || ev != PedalRelease || arg != 2 {
		t.Fatalf("expected (PedalRelease, 2), got (%v, %d, %v)", ev, arg, ok)
	}
	if _, _, ok = q.TryDequeue(); ok {
		t.Errorf("expected an empty queue to report ok=false")
	}
}

func TestEventQueueDropsPastCapacity(t *testing.T) {
	q := NewEventQueue()
	for i := 0; i < eventQueueCapacity+5; i++ {
		q.Enqueue(PedalPress, i)
	}
	if q.Len() != eventQueueCapacity {
		t.Errorf("expected the queue to cap at %d entries, got %d", eventQueueCapacity, q.Len())
	}
}

// TestEventQueueConcurrentAccessNeverPanics exercises Enqueue from several
// writer goroutines against a reader that polls TryDequeue concurrently,
// mirroring the real split between control-thread pedal calls and the
// audio loop's once-per-refresh drain.
func TestEventQueueConcurrentAccessNeverPanics(t *testing.T) {
	q := NewEventQueue()
	var wg sync.WaitGroup

	const writers = 8
	const perWriter = 200

	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				q.Enqueue(PedalPress, id)
			}
		}(w)
	}

	stop := make(chan struct{})
	drained := 0
	var drainedMu sync.Mutex
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				if _, _, ok := q.TryDequeue(); ok {
					drainedMu.Lock()
					drained++
					drainedMu.Unlock()
				}
			}
		}
	}()

	wg.Wait()
	close(stop)

	// drain whatever remains so Len() settles at 0
	for {
		if _, _, ok := q.TryDequeue(); !ok {
			break
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected the queue to be fully drained, got %d remaining", q.Len())
	}
}
