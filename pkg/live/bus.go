package live

import (
	"fmt"
	"log/slog"
	"sync"
)

// Handler is a listener callback. Handlers run synchronously on the
// session's inbound-processing goroutine; a slow handler stalls delivery
// for its own session only, so handlers should be quick or offload work.
type Handler func(Event)

// Handle identifies one subscription for removal.
type Handle struct {
	kind EventKind
	id   uint64
}

// Kind returns the event kind the handle was subscribed to.
func (h Handle) Kind() EventKind { return h.kind }

type subscription struct {
	id uint64
	fn Handler
}

// Bus is a typed publish/subscribe registry. Publish delivers each event
// to the handlers subscribed to its kind, in subscription order, on the
// publishing goroutine. Subscribe and Unsubscribe are safe to call from
// within a handler: a handler added while event N is being delivered first
// sees event N+1, and a handler removed during delivery of N is skipped if
// the dispatch loop has not reached it yet.
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[EventKind][]subscription
	logger   *slog.Logger
}

// NewBus creates an empty bus. logger may be nil.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[EventKind][]subscription),
		logger:   logger,
	}
}

// Subscribe registers fn for events of the given kind and returns a handle
// for removal. There is no limit on the number of handlers per kind.
func (b *Bus) Subscribe(kind EventKind, fn Handler) Handle {
	if fn == nil {
		return Handle{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], subscription{id: b.nextID, fn: fn})
	return Handle{kind: kind, id: b.nextID}
}

// Unsubscribe removes the subscription identified by h. It reports whether
// a subscription was actually removed.
func (b *Bus) Unsubscribe(h Handle) bool {
	if h.id == 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[h.kind]
	for i, sub := range subs {
		if sub.id == h.id {
			b.handlers[h.kind] = append(subs[:i:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers event to every handler currently subscribed to its
// kind. A panicking handler does not stop delivery to the remaining
// handlers; the panic is captured and republished as a Warning event
// (or only logged when the panicking handler was itself a Warning
// handler, so a broken Warning listener cannot recurse).
func (b *Bus) Publish(event Event) {
	if event == nil {
		return
	}
	kind := event.Kind()

	b.mu.Lock()
	snapshot := append([]subscription(nil), b.handlers[kind]...)
	b.mu.Unlock()

	for _, sub := range snapshot {
		if !b.subscribed(kind, sub.id) {
			continue
		}
		b.invoke(kind, sub, event)
	}
}

func (b *Bus) subscribed(kind EventKind, id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.handlers[kind] {
		if sub.id == id {
			return true
		}
	}
	return false
}

func (b *Bus) invoke(kind EventKind, sub subscription, event Event) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := fmt.Errorf("listener panic: %v", r)
		if kind == KindWarning {
			b.logger.Warn("warning listener panicked", "error", err)
			return
		}
		b.Publish(WarningEvent{
			Code:    WarnListenerPanic,
			Message: fmt.Sprintf("listener for %s events panicked", kind),
			Err:     err,
		})
	}()
	sub.fn(event)
}
