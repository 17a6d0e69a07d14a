package monitor

import (
	"sync"

	"github.com/eliteGoblin/focusd/flmon/internal/domain"
)

type messageKind int

const (
	msgTitleChanged messageKind = iota
	msgForeground
	msgTick
	msgRenamed
)

func (k messageKind) String() string {
	switch k {
	case msgTitleChanged:
		return "title_changed"
	case msgForeground:
		return "foreground"
	case msgTick:
		return "tick"
	case msgRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// message is one inbound trigger for an instance.
type message struct {
	kind   messageKind
	window domain.WindowHandle
}

// eventQueue is an unbounded FIFO. push never blocks, so it is safe to call
// from OS callback threads.
type eventQueue struct {
	mu    sync.Mutex
	items []message
	ready chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

func (q *eventQueue) push(m message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// take removes and returns everything queued so far, in arrival order.
func (q *eventQueue) take() []message {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
