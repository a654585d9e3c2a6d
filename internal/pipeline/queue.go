package pipeline

import (
	"context"
	"sync"

	"github.com/satriahrh/jurubahasa/domain/entities"
	"github.com/satriahrh/jurubahasa/internal/metrics"
)

// Item is one entry of a Queue: either an utterance or the end marker
type Item struct {
	Utterance *entities.Utterance
	End       bool
}

// Queue is the unbounded FIFO handing utterances from a connection's capture
// goroutine to its consumer goroutine. Put never blocks. Once the end marker
// has been put, later items are dropped.
type Queue struct {
	mu      sync.Mutex
	items   []Item
	ended   bool
	notify  chan struct{}
	metrics *metrics.Metrics
}

// NewQueue creates an empty queue
func NewQueue(m *metrics.Metrics) *Queue {
	return &Queue{
		notify:  make(chan struct{}, 1),
		metrics: m,
	}
}

// Put appends item. It reports false when the item was dropped because the
// end marker is already queued.
func (q *Queue) Put(item Item) bool {
	q.mu.Lock()
	if q.ended {
		q.mu.Unlock()
		return false
	}
	if item.End {
		q.ended = true
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	if !item.End {
		q.metrics.QueueChanged(1)
	}

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Close puts the end marker. Calling it more than once is safe.
func (q *Queue) Close() {
	q.Put(Item{End: true})
}

// Get removes and returns the oldest item, waiting until one is available or
// ctx is done.
func (q *Queue) Get(ctx context.Context) (Item, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = Item{}
			q.items = q.items[1:]
			q.mu.Unlock()

			if !item.End {
				q.metrics.QueueChanged(-1)
			}
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return Item{}, ctx.Err()
		}
	}
}

// Len returns the number of queued items, the end marker included
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Discard drops every queued item and returns how many utterances were
// dropped. The end marker state is kept.
func (q *Queue) Discard() int {
	q.mu.Lock()
	dropped := 0
	for _, item := range q.items {
		if !item.End {
			dropped++
		}
	}
	q.items = nil
	q.mu.Unlock()

	q.metrics.QueueChanged(-dropped)
	return dropped
}
