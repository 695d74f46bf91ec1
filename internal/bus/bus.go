// Package bus is an in-process publish/subscribe bus used to report the
// progress of long-running operations.
package bus

import (
	"strings"
	"sync"
	"time"
)

// Event kinds published during an export.
const (
	ExportStarted  = "export.started"
	ExportSession  = "export.session"
	ExportFinished = "export.finished"
)

// Event is one notification. Payload depends on Kind.
type Event struct {
	Kind    string
	Time    time.Time
	Payload any
}

// Bus delivers events to subscribers whose prefix matches the event kind.
// A nil *Bus accepts and drops every event.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscription)}
}

// Publish stamps evt and offers it to every matching subscriber. Slow
// subscribers miss events rather than block the publisher.
func (b *Bus) Publish(kind string, payload any) {
	if b == nil {
		return
	}
	evt := Event{Kind: kind, Time: time.Now(), Payload: payload}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !strings.HasPrefix(kind, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// Subscribe returns a channel receiving events whose kind starts with prefix,
// and a function that unsubscribes and closes the channel.
func (b *Bus) Subscribe(prefix string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{prefix: prefix, ch: ch}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}
