// Package events carries the change-event stream the chat core emits after
// every committed mutation. Collaborators (persistence write-through,
// client notification fanout) subscribe independently; a slow subscriber
// drops events rather than blocking the core.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

// Type identifies a change-event kind.
type Type string

const (
	NodeCreated        Type = "node_created"
	NodeUpdated        Type = "node_updated"
	NodeDeleted        Type = "node_deleted"
	ParticipantJoined  Type = "participant_joined"
	ParticipantLeft    Type = "participant_left"
	ParticipantUpdated Type = "participant_updated"
	MessageAppended    Type = "message_appended"
	ReactionChanged    Type = "reaction_changed"
)

// Event describes one committed mutation. TS is UTC nanoseconds. Seq is the
// node's mutation counter, stamped under the node lock; consumers may use it
// to drop snapshots that arrive out of order (0 means unstamped).
type Event struct {
	Type  Type
	Node  string
	Actor string
	MsgID int64
	Seq   int64
	TS    int64
}

// Item wraps an Event plus an optional payload (the node snapshot taken at
// commit time). Payload may be backed by a pooled buffer; subscribers MUST
// call Done() exactly once after processing.
type Item struct {
	Event   Event
	Payload []byte

	buf  *bytebufferpool.ByteBuffer
	once sync.Once
}

// Done releases the pooled payload buffer, if any.
func (it *Item) Done() {
	it.once.Do(func() {
		if it.buf != nil {
			it.Payload = nil
			bytebufferpool.Put(it.buf)
			it.buf = nil
		}
	})
}

// Bus fans events out to subscribers over bounded channels. Publishing
// never blocks: when a subscriber's channel is full the event is dropped
// for that subscriber and counted.
type Bus struct {
	mu       sync.RWMutex
	subs     []chan *Item
	capacity int
	closed   bool
	dropped  uint64
}

// NewBus creates a Bus whose subscriber channels hold capacity items.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Bus{capacity: capacity}
}

// Subscribe registers a new subscriber and returns its receive channel.
// The channel is closed when the bus closes.
func (b *Bus) Subscribe() <-chan *Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *Item, b.capacity)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers ev with a copy of payload to every subscriber. Each
// subscriber receives its own Item owning its own pooled buffer, so Done()
// calls do not interfere across subscribers.
func (b *Bus) Publish(ev Event, payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		it := &Item{Event: ev}
		if len(payload) > 0 {
			bb := bytebufferpool.Get()
			bb.B = append(bb.B[:0], payload...)
			it.buf = bb
			it.Payload = bb.B[:len(payload)]
		}
		select {
		case ch <- it:
		default:
			it.Done()
			atomic.AddUint64(&b.dropped, 1)
		}
	}
}

// Dropped returns how many events were dropped on full subscriber channels.
func (b *Bus) Dropped() uint64 { return atomic.LoadUint64(&b.dropped) }

// Close closes every subscriber channel. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
