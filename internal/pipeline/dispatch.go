package pipeline

import (
	"sync"

	"github.com/omegacore/omega/pkg/models"
)

// senderQueue tracks the in-flight state for one sender_id: whether a
// call is active, and any messages that arrived while it was.
type senderQueue struct {
	mu     sync.Mutex
	active bool
	queue  []models.IncomingMessage
}

// dispatcher enforces spec §4.8 step 1 and §5's per-sender strict FIFO
// guarantee: the first message for a sender claims its slot and runs;
// later ones buffer until the active call drains them in arrival order.
type dispatcher struct {
	mu      sync.Mutex
	senders map[string]*senderQueue
}

func newDispatcher() *dispatcher {
	return &dispatcher{senders: make(map[string]*senderQueue)}
}

func (d *dispatcher) queueFor(key string) *senderQueue {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.senders[key]
	if !ok {
		q = &senderQueue{}
		d.senders[key] = q
	}
	return q
}

// claim reports whether the caller may proceed immediately (true) or
// was enqueued behind an active call (false).
func (q *senderQueue) claim(m models.IncomingMessage) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active {
		q.queue = append(q.queue, m)
		return false
	}
	q.active = true
	return true
}

// next pops the oldest buffered message, or releases the slot if none
// remain.
func (q *senderQueue) next() (models.IncomingMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		q.active = false
		return models.IncomingMessage{}, false
	}
	m := q.queue[0]
	q.queue = q.queue[1:]
	return m, true
}
