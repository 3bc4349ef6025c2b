// Package session exposes the ambient auth/tenant context a tab reacts to.
// The subsystem only reads it; the host application sets it on sign-in,
// sign-out and tenant switch.
package session

import (
	"sync"

	"github.com/go-notify-sync/internal/domain"
)

// User is the signed-in identity.
type User struct {
	ID       string
	TenantID string
}

// AuthState is a point-in-time view of the authentication context.
type AuthState struct {
	IsAuthenticated  bool
	User             User
	SelectedTenantID string
}

// ResolveTenant returns the tenant scope for outbound requests: the
// explicitly selected tenant, falling back to the user's own.
func (s AuthState) ResolveTenant() string {
	if s.SelectedTenantID != "" {
		return s.SelectedTenantID
	}
	return s.User.TenantID
}

// SyncContext derives the (tenant, user) pair the tab is allowed to display.
// Unauthenticated or incomplete states map to the signed-out context.
func (s AuthState) SyncContext() domain.SyncContext {
	if !s.IsAuthenticated || s.User.ID == "" {
		return domain.SyncContext{}
	}
	tenant := s.ResolveTenant()
	if tenant == "" {
		return domain.SyncContext{}
	}
	return domain.SyncContext{TenantID: tenant, UserID: s.User.ID}
}

// Context holds the current AuthState and notifies watchers on change.
type Context struct {
	mu       sync.Mutex
	state    AuthState
	watchers map[int]func(AuthState)
	next     int
}

func NewContext() *Context {
	return &Context{watchers: make(map[int]func(AuthState))}
}

// Current returns the active state.
func (c *Context) Current() AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Set replaces the state and notifies watchers if it changed.
func (c *Context) Set(state AuthState) {
	c.mu.Lock()
	if state == c.state {
		c.mu.Unlock()
		return
	}
	c.state = state
	fns := make([]func(AuthState), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Watch registers fn for state changes and returns an idempotent remove func.
func (c *Context) Watch(fn func(AuthState)) func() {
	c.mu.Lock()
	id := c.next
	c.next++
	c.watchers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}
