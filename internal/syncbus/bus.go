// Package syncbus is the broadcast channel keeping sibling tabs of one
// browser profile consistent. Delivery is fire-and-forget: no ordering
// across publishers, no persistence, no acknowledgment. A message published
// while nobody listens is lost, which is acceptable because the publishing
// store already holds the authoritative change.
package syncbus

import (
	"sync"

	"github.com/go-notify-sync/internal/domain"
	"github.com/google/uuid"
)

// Handler consumes one inbound sync message.
type Handler func(domain.SyncMessage)

// Bus fans sync messages out to every connection except the publisher's own.
type Bus struct {
	mu    sync.Mutex
	conns map[string]*Conn
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{conns: make(map[string]*Conn)}
}

// Conn is one tab's handle on the bus, analogous to a per-tab channel
// endpoint: publishes go to every other connection, never back to this one.
type Conn struct {
	bus *Bus
	id  string

	mu       sync.Mutex
	handlers map[string]Handler
	closed   bool
}

// Connect opens a new connection on the bus.
func (b *Bus) Connect() *Conn {
	c := &Conn{
		bus:      b,
		id:       uuid.NewString(),
		handlers: make(map[string]Handler),
	}
	b.mu.Lock()
	b.conns[c.id] = c
	b.mu.Unlock()
	return c
}

// Publish delivers msg to every other open connection. Best effort: a closed
// or handlerless connection simply misses it.
func (c *Conn) Publish(msg domain.SyncMessage) {
	c.bus.mu.Lock()
	targets := make([]*Conn, 0, len(c.bus.conns))
	for id, conn := range c.bus.conns {
		if id != c.id {
			targets = append(targets, conn)
		}
	}
	c.bus.mu.Unlock()

	for _, conn := range targets {
		conn.deliver(msg)
	}
}

func (c *Conn) deliver(msg domain.SyncMessage) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fns := make([]Handler, 0, len(c.handlers))
	for _, h := range c.handlers {
		fns = append(fns, h)
	}
	c.mu.Unlock()

	for _, h := range fns {
		h(msg)
	}
}

// Subscribe registers h for inbound messages and returns an unsubscribe func.
// The returned func is idempotent: calling it twice, or after Close, is safe.
func (c *Conn) Subscribe(h Handler) func() {
	id := uuid.NewString()
	c.mu.Lock()
	if !c.closed {
		c.handlers[id] = h
	}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.handlers, id)
		c.mu.Unlock()
	}
}

// Close detaches the connection from the bus. Safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.handlers = make(map[string]Handler)
	c.mu.Unlock()

	c.bus.mu.Lock()
	delete(c.bus.conns, c.id)
	c.bus.mu.Unlock()
}

var (
	sharedMu  sync.Mutex
	sharedBus *Bus
)

// Shared returns the process-wide bus, creating it lazily on first use.
func Shared() *Bus {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedBus == nil {
		sharedBus = NewBus()
	}
	return sharedBus
}

// Reset discards the shared bus so the next Shared call yields a clean one.
// Connections on the old bus keep working among themselves; tests use this to
// force a fresh handle.
func Reset() {
	sharedMu.Lock()
	sharedBus = nil
	sharedMu.Unlock()
}
