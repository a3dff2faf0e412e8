// Package notify is the error broadcast channel. The API client publishes
// every normalized failure here; the registry keeps each one until it is
// dismissed and subscribers (the TUI toast layer, the CLI) render them.
//
// Failures of the passive identity check are recorded but never shown.
package notify

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/doctag/internal/apierr"
)

// DefaultTTL is how long a toast stays up before it dismisses itself.
const DefaultTTL = 5 * time.Second

// EventType distinguishes broadcast events
type EventType int

const (
	// EventToast announces a newly published error
	EventToast EventType = iota
	// EventDismissed announces that an error left the registry
	EventDismissed
)

// Event is delivered to subscribers.
type Event struct {
	Type  EventType
	Toast Toast
}

// Toast is a displayable notification for one error.
type Toast struct {
	ID  string
	Err *apierr.Error
}

// Title renders "<Severity> - <Resource>", e.g. "Error - Projects".
func (t Toast) Title() string {
	severity := "Error"
	if t.Err != nil && t.Err.Severity == apierr.SeverityWarning {
		severity = "Warning"
	}
	resource := ""
	if t.Err != nil {
		resource = lastSegment(t.Err.URL)
	}
	if resource == "" {
		return severity
	}
	return severity + " - " + resource
}

// Message returns the error text shown in the toast body
func (t Toast) Message() string {
	if t.Err == nil {
		return ""
	}
	return t.Err.Message
}

func lastSegment(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	url = strings.TrimRight(url, "/")
	seg := url[strings.LastIndex(url, "/")+1:]
	if seg == "" || strings.Contains(seg, ":") {
		return ""
	}
	return strings.ToUpper(seg[:1]) + seg[1:]
}

type entry struct {
	err   *apierr.Error
	timer *time.Timer
}

// Broadcaster is the error registry plus its subscribers.
type Broadcaster struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	subs    map[int]func(Event)
	nextSub int
	closed  bool
}

// Option configures a Broadcaster
type Option func(*Broadcaster)

// WithTTL sets the auto-dismiss delay. Zero disables auto-dismiss.
func WithTTL(ttl time.Duration) Option {
	return func(b *Broadcaster) { b.ttl = ttl }
}

// New creates a broadcaster
func New(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		ttl:     DefaultTTL,
		entries: make(map[string]*entry),
		subs:    make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish assigns err an ID and records it. Unless err comes from the
// identity check, subscribers receive a toast and the entry is dismissed
// automatically after the TTL. It implements api.Reporter.
func (b *Broadcaster) Publish(err *apierr.Error) string {
	if err == nil {
		return ""
	}
	id := uuid.NewString()
	err.ID = id

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return id
	}
	e := &entry{err: err}
	b.entries[id] = e
	b.order = append(b.order, id)

	silent := err.IsIdentityCheck()
	if !silent && b.ttl > 0 {
		e.timer = time.AfterFunc(b.ttl, func() { b.Dismiss(id) })
	}
	fns := b.subscribersLocked()
	b.mu.Unlock()

	if !silent {
		emit(fns, Event{Type: EventToast, Toast: Toast{ID: id, Err: err}})
	}
	return id
}

// Dismiss removes an entry. Unknown ids are ignored.
func (b *Broadcaster) Dismiss(id string) {
	b.mu.Lock()
	e, ok := b.entries[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(b.entries, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	fns := b.subscribersLocked()
	b.mu.Unlock()

	emit(fns, Event{Type: EventDismissed, Toast: Toast{ID: id, Err: e.err}})
}

// Subscribe registers fn for future events. The returned function removes it.
func (b *Broadcaster) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Entries returns the registered errors in publish order.
func (b *Broadcaster) Entries() []*apierr.Error {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*apierr.Error, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.entries[id].err)
	}
	return out
}

// Get returns the error registered under id
func (b *Broadcaster) Get(id string) (*apierr.Error, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[id]
	if !ok {
		return nil, false
	}
	return e.err, true
}

// Len returns the number of registered errors
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Close stops every pending auto-dismiss timer. Later publishes are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, e := range b.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}

func (b *Broadcaster) subscribersLocked() []func(Event) {
	fns := make([]func(Event), 0, len(b.subs))
	for i := 0; i < b.nextSub; i++ {
		if fn, ok := b.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func emit(fns []func(Event), ev Event) {
	for _, fn := range fns {
		fn(ev)
	}
}
