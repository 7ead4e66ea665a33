package runtime

import (
	"context"
	"sync"

	"chat-relay/protocol"
)

// outboundQueue is the multi-producer single-consumer unbounded queue
// behind a session's delivery handle. Ordering is preserved per
// producer, not globally across racing producers.
type outboundQueue struct {
	mu     sync.Mutex
	items  []protocol.ServerFrame
	ready  chan struct{}
	closed bool
}

func newOutboundQueue() *outboundQueue {
	return &outboundQueue{
		ready: make(chan struct{}, 1),
	}
}

// Enqueue appends a frame. It never blocks and reports false once the
// owning session has terminated.
func (q *outboundQueue) Enqueue(frame protocol.ServerFrame) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, frame)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// Dequeue blocks until a frame is available, the queue is closed and
// drained, or the context is canceled.
func (q *outboundQueue) Dequeue(ctx context.Context) (protocol.ServerFrame, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			frame := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return frame, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-q.ready:
		}
	}
}

// Close rejects further producers. The consumer may still drain what is
// already queued.
func (q *outboundQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}
