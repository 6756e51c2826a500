package eventlog

import (
	"sync"
	"time"
)

// MaxEvents is the ring buffer's retention bound.
const MaxEvents = 1000

// Log is a bounded FIFO of Events. All state transitions and external
// mutations in the reconciler must append exactly one Event here.
type Log struct {
	mu     sync.Mutex
	events []Event
	subs   []chan Event
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{}
}

// Append records an event, stamping it with the current time, and evicts the
// oldest entry once the log exceeds MaxEvents.
func (l *Log) Append(e Event) {
	e.Time = time.Now()

	l.mu.Lock()
	l.events = append(l.events, e)
	if len(l.events) > MaxEvents {
		l.events = l.events[len(l.events)-MaxEvents:]
	}
	subs := append([]chan Event(nil), l.subs...)
	l.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Snapshot returns a copy of the current event log contents, oldest first.
func (l *Log) Snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the current number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Subscribe registers a channel that receives every event appended from this
// point on, for live-tailing consumers such as the admin API's websocket
// stream. Sends are non-blocking: a slow subscriber misses events rather than
// stalling the logger. Call Unsubscribe to stop receiving.
func (l *Log) Subscribe() chan Event {
	ch := make(chan Event, 64)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel previously returned by Subscribe.
func (l *Log) Unsubscribe(ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, s := range l.subs {
		if s == ch {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			return
		}
	}
}
