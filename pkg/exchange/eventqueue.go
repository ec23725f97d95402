package exchange

import (
	"container/heap"
	"sync"
	"time"

	"github.com/erain9/marketsim/pkg/core"
)

// eventQueue is the manager's inbound queue: a priority queue ordered by
// simulation time, safe for many producers and one consumer. Ties resolve
// by arrival sequence so same-timestamp events keep submission order.
type eventQueue struct {
	mu     sync.Mutex
	items  eventHeap
	seq    uint64
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

// Push enqueues an event without blocking the producer.
func (q *eventQueue) Push(e core.Event) {
	q.mu.Lock()
	q.seq++
	heap.Push(&q.items, queuedEvent{event: e, seq: q.seq})
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// DrainWait pulls all currently-available events in time order, blocking up
// to maxWait when the queue is empty. It returns whatever is available once
// the first event arrives.
func (q *eventQueue) DrainWait(maxWait time.Duration) []core.Event {
	if out := q.drain(); len(out) > 0 {
		return out
	}

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	select {
	case <-q.signal:
		return q.drain()
	case <-timer.C:
		return q.drain()
	}
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *eventQueue) drain() []core.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		return nil
	}
	out := make([]core.Event, 0, q.items.Len())
	for q.items.Len() > 0 {
		out = append(out, heap.Pop(&q.items).(queuedEvent).event)
	}
	return out
}

type queuedEvent struct {
	event core.Event
	seq   uint64
}

type eventHeap []queuedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if !h[i].event.Time.Equal(h[j].event.Time) {
		return h[i].event.Time.Before(h[j].event.Time)
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queuedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
