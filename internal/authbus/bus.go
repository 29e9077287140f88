// Package authbus delivers auth-state changes to subscribers.
package authbus

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/sehatin/internal/model"
)

// Listener receives an auth event and the session it produced (nil on sign-out).
type Listener func(event model.AuthEvent, session *model.Session)

type entry struct {
	id uint64
	fn Listener
}

// Bus is a synchronous fan-out of auth events. The zero value is not usable; use New.
type Bus struct {
	mu      sync.Mutex
	nextID  uint64
	entries []entry
	closed  bool
	log     *zap.Logger
}

// New constructs an empty bus.
func New(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log}
}

// Subscription is the capability returned by Subscribe.
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

// Unsubscribe removes the listener. Further calls are no-ops.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() { s.bus.remove(s.id) })
}

// Subscribe registers fn. Subscribing to a closed bus yields an inert subscription.
func (b *Bus) Subscribe(fn Listener) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{bus: b, id: b.nextID}
	if !b.closed && fn != nil {
		b.entries = append(b.entries, entry{id: sub.id, fn: fn})
	}
	return sub
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.entries {
		if e.id == id {
			b.entries = append(b.entries[:i:i], b.entries[i+1:]...)
			return
		}
	}
}

// Len reports the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Notify calls every listener registered at the time of the call, in
// registration order. A panicking listener is logged and skipped.
func (b *Bus) Notify(event model.AuthEvent, session *model.Session) {
	b.mu.Lock()
	snapshot := make([]entry, len(b.entries))
	copy(snapshot, b.entries)
	b.mu.Unlock()

	for _, e := range snapshot {
		b.dispatch(e, event, session)
	}
}

func (b *Bus) dispatch(e entry, event model.AuthEvent, session *model.Session) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("auth listener panic",
				zap.Any("reason", r),
				zap.String("event", string(event)),
				zap.Uint64("listener", e.id),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	var s *model.Session
	if session != nil {
		cp := *session
		s = &cp
	}
	e.fn(event, s)
}

// Close drops all listeners and rejects new ones.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
	b.closed = true
}
