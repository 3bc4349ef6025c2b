// Package tab assembles the per-tab notification subsystem: one store, one
// sync-bus connection, one realtime subscription and one auto-read engine,
// with an explicit construction and teardown lifecycle.
package tab

import (
	"time"

	"github.com/go-notify-sync/internal/autoread"
	"github.com/go-notify-sync/internal/domain"
	"github.com/go-notify-sync/internal/realtime"
	"github.com/go-notify-sync/internal/session"
	"github.com/go-notify-sync/internal/store"
	"github.com/go-notify-sync/internal/syncbus"
)

// API is the remote surface shared by the realtime manager and the
// auto-read engine.
type API interface {
	realtime.RemoteAPI
}

// Options wires a Tab. Bus is required; everything else may be nil, leaving
// the corresponding capability disabled.
type Options struct {
	Bus           *syncbus.Bus
	Transport     realtime.Transport
	Alerter       realtime.Alerter
	API           API
	AutoReadDelay time.Duration
}

// Tab is one browser tab's worth of notification state and machinery.
type Tab struct {
	Auth  *session.Context
	Store *store.Store

	conn    *syncbus.Conn
	unsub   func()
	manager *realtime.Manager
	engine  *autoread.Engine
	unwatch func()
}

// New constructs a Tab on the given bus. The returned Tab is signed out
// until its Auth context is set.
func New(opts Options) *Tab {
	t := &Tab{Auth: session.NewContext()}

	t.conn = opts.Bus.Connect()
	t.Store = store.New(t.conn)

	dispatcher := syncbus.NewDispatcher(t.Store)
	t.unsub = t.conn.Subscribe(dispatcher.Handle)

	t.manager = realtime.NewManager(opts.Transport, t.Store, opts.Alerter, opts.API)

	t.engine = autoread.NewEngine(
		t.Auth.Current,
		func() []domain.Notification { return t.Store.Snapshot().Notifications },
		t.Store,
		opts.API,
		autoread.Options{Delay: opts.AutoReadDelay},
	)

	t.unwatch = t.Auth.Watch(func(state session.AuthState) {
		t.Store.SetSyncContext(state.SyncContext())
		t.manager.Apply(state)
	})

	return t
}

// SignIn sets the ambient auth state for this tab.
func (t *Tab) SignIn(state session.AuthState) {
	t.Auth.Set(state)
}

// SignOut clears the auth state, tearing down the realtime subscription and
// discarding held notifications.
func (t *Tab) SignOut() {
	t.Auth.Set(session.AuthState{})
}

// ViewEntity tells the auto-read engine which entity this tab is dwelling on.
func (t *Tab) ViewEntity(module domain.Module, entityType, entityID string) {
	t.engine.Activate(module, entityType, entityID)
}

// LeaveEntity cancels any pending auto-read dwell.
func (t *Tab) LeaveEntity() {
	t.engine.Deactivate()
}

// Close tears the tab down: auto-read timers, the realtime channel, the bus
// subscription and the bus connection. Idempotent.
func (t *Tab) Close() {
	t.engine.Close()
	t.manager.Close()
	t.unwatch()
	t.unsub()
	t.conn.Close()
}
