// Package autoread marks notifications read after the user has dwelled on
// the entity they reference.
package autoread

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-notify-sync/internal/domain"
	"github.com/go-notify-sync/internal/session"
)

// DefaultDelay is the dwell grace period before notifications are considered seen.
const DefaultDelay = 5 * time.Second

// LocalStore applies the optimistic local mutation. Auto-read never
// broadcasts: sibling tabs converge through their own engines or the server.
type LocalStore interface {
	MarkAsRead(id string, broadcast bool)
}

// RemoteAPI performs the server-side mark-read.
type RemoteAPI interface {
	MarkNotificationRead(ctx context.Context, id string) error
}

// Options tune an Engine.
type Options struct {
	// Delay before a dwell counts as having seen the entity. Zero means DefaultDelay.
	Delay time.Duration
	// MaxAttempts bounds remote retries per notification per entity view.
	// Zero means unbounded: a failed id is simply retried on the next
	// qualifying activation.
	MaxAttempts int
}

type activation struct {
	module     domain.Module
	entityType string
	entityID   string
}

// Engine watches the currently viewed entity and, after the dwell delay,
// marks every unread notification referencing it as read — locally first,
// then on the server. The processed set guarantees at most one outstanding
// remote request per notification per entity view.
type Engine struct {
	auth  func() session.AuthState
	list  func() []domain.Notification
	store LocalStore
	api   RemoteAPI
	opts  Options

	mu        sync.Mutex
	current   activation
	active    bool
	timer     *time.Timer
	gen       uint64
	processed map[string]struct{}
	attempts  map[string]int
	closed    bool
}

// NewEngine builds an engine. auth supplies the ambient auth/tenant context;
// list supplies the ambient notification snapshot, re-read each time the
// timer fires.
func NewEngine(auth func() session.AuthState, list func() []domain.Notification, st LocalStore, api RemoteAPI, opts Options) *Engine {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	return &Engine{
		auth:      auth,
		list:      list,
		store:     st,
		api:       api,
		opts:      opts,
		processed: make(map[string]struct{}),
		attempts:  make(map[string]int),
	}
}

// Activate starts (or restarts) the dwell timer for the given entity
// identity. Changing identity resets the processed set; re-activating the
// same identity keeps it, so a notification already submitted is not
// submitted again.
func (e *Engine) Activate(module domain.Module, entityType, entityID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	key := activation{module: module, entityType: entityType, entityID: entityID}
	if key != e.current {
		e.current = key
		e.processed = make(map[string]struct{})
		e.attempts = make(map[string]int)
	}
	e.active = true
	e.stopTimerLocked()
	gen := e.gen
	e.timer = time.AfterFunc(e.opts.Delay, func() { e.fire(gen) })
}

// Deactivate cancels any pending timer; no side effect occurs for a dwell
// that never completed.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = false
	e.stopTimerLocked()
}

// Close deactivates permanently. Safe to call on an engine that never ran.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.active = false
	e.stopTimerLocked()
}

// stopTimerLocked invalidates the pending timer. The generation bump makes a
// timer that already fired but has not run yet a no-op, so a stale dwell can
// never mark a different entity's notifications.
func (e *Engine) stopTimerLocked() {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) fire(gen uint64) {
	e.mu.Lock()
	if e.closed || !e.active || e.gen != gen {
		e.mu.Unlock()
		return
	}
	key := e.current
	e.mu.Unlock()

	if e.auth().SyncContext().IsZero() {
		return
	}

	for _, n := range e.list() {
		if !matches(n, key) {
			continue
		}
		e.mu.Lock()
		if e.current != key || e.closed {
			e.mu.Unlock()
			return
		}
		if _, done := e.processed[n.ID]; done {
			e.mu.Unlock()
			continue
		}
		if e.opts.MaxAttempts > 0 && e.attempts[n.ID] >= e.opts.MaxAttempts {
			e.mu.Unlock()
			continue
		}
		// Insert before the remote call so a slow request cannot be doubled.
		e.processed[n.ID] = struct{}{}
		e.attempts[n.ID]++
		e.mu.Unlock()

		e.store.MarkAsRead(n.ID, false)
		go e.remoteMarkRead(key, n.ID)
	}
}

// remoteMarkRead performs the server call. Failure evicts the id from the
// processed set so a later activation may retry; the optimistic local state
// is never rolled back.
func (e *Engine) remoteMarkRead(key activation, id string) {
	if e.api == nil {
		return
	}
	if err := e.api.MarkNotificationRead(context.Background(), id); err != nil {
		slog.Warn("auto-read remote mark failed", "id", id, "error", err)
		e.mu.Lock()
		if e.current == key {
			delete(e.processed, id)
		}
		e.mu.Unlock()
	}
}

func matches(n domain.Notification, key activation) bool {
	if n.IsRead || n.Module != key.module {
		return false
	}
	if n.EntityType == nil || *n.EntityType != key.entityType {
		return false
	}
	return n.EntityID != nil && *n.EntityID == key.entityID
}
