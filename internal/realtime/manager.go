// Package realtime maintains the live-event subscription delivering
// server-pushed notifications into a tab's store.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/go-notify-sync/internal/domain"
	"github.com/go-notify-sync/internal/routes"
	"github.com/go-notify-sync/internal/session"
)

// State is the subscription lifecycle position.
type State int

const (
	Unsubscribed State = iota
	Subscribing
	Subscribed
)

func (s State) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Subscribed:
		return "subscribed"
	}
	return "unsubscribed"
}

// ChannelName derives the private per-user channel for a sync context.
func ChannelName(ctx domain.SyncContext) string {
	return domain.ChannelName(ctx.TenantID, ctx.UserID)
}

// Subscription is one live channel membership. Events yields raw
// notification.created payloads; the channel closes when the subscription
// ends, from either side.
type Subscription interface {
	Events() <-chan json.RawMessage
	Close() error
}

// Transport obtains live subscriptions. Subscribe returns once the channel
// is acknowledged by the server.
type Transport interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Alert is the transient, dismissible surface raised for an unread arrival.
// Route is nil when the notification is not navigable; OnClick is set only
// alongside a route and fire-and-forgets the remote mark-read.
type Alert struct {
	NotificationID string
	Title          string
	Message        string
	Icon           string
	Route          *routes.Route
	OnClick        func()
}

// Alerter displays alerts. Implementations belong to the host UI layer.
type Alerter interface {
	Show(a Alert)
}

// NotificationStore is the store surface the manager writes to.
type NotificationStore interface {
	AddNotification(n domain.Notification)
	MarkAsRead(id string, broadcast bool)
}

// RemoteAPI marks notifications read on the server.
type RemoteAPI interface {
	MarkNotificationRead(ctx context.Context, id string) error
}

// Manager keeps exactly one subscription matching the current (tenant, user)
// pair, recreating it on change and tearing it down on sign-out. The old
// channel is always left before a new subscribe begins so an event can never
// arrive through a channel whose context no longer matches the tab.
type Manager struct {
	transport Transport
	store     NotificationStore
	alerter   Alerter
	api       RemoteAPI

	mu      sync.Mutex
	state   State
	current domain.SyncContext
	sub     Subscription
	gen     uint64
}

// NewManager builds a manager. transport may be nil: real-time push is then
// disabled and every Apply is a no-op. alerter and api may also be nil.
func NewManager(transport Transport, st NotificationStore, alerter Alerter, api RemoteAPI) *Manager {
	return &Manager{transport: transport, store: st, alerter: alerter, api: api}
}

// State returns the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Apply reacts to an auth state change: it leaves any channel whose context
// no longer matches and, for an authenticated state with a resolvable tenant,
// begins a new subscription.
func (m *Manager) Apply(auth session.AuthState) {
	target := auth.SyncContext()

	m.mu.Lock()
	if target == m.current && m.state != Unsubscribed {
		m.mu.Unlock()
		return
	}
	m.teardownLocked()
	m.current = target
	if target.IsZero() || m.transport == nil {
		m.mu.Unlock()
		return
	}
	m.state = Subscribing
	gen := m.gen
	m.mu.Unlock()

	go m.subscribe(gen, target)
}

// Close leaves the current channel, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	m.teardownLocked()
	m.current = domain.SyncContext{}
	m.mu.Unlock()
}

// teardownLocked invalidates the current generation and leaves the channel.
// A failing leave is logged, never propagated: delivery is best effort.
func (m *Manager) teardownLocked() {
	m.gen++
	m.state = Unsubscribed
	if m.sub != nil {
		if err := m.sub.Close(); err != nil {
			slog.Warn("leaving realtime channel failed", "error", err)
		}
		m.sub = nil
	}
}

func (m *Manager) subscribe(gen uint64, target domain.SyncContext) {
	sub, err := m.transport.Subscribe(context.Background(), ChannelName(target))

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		if sub != nil {
			_ = sub.Close()
		}
		return
	}
	if err != nil {
		m.state = Unsubscribed
		m.mu.Unlock()
		slog.Warn("realtime subscription unavailable, push disabled", "channel", ChannelName(target), "error", err)
		return
	}
	m.sub = sub
	m.state = Subscribed
	m.mu.Unlock()

	go m.receive(gen, sub)
}

func (m *Manager) receive(gen uint64, sub Subscription) {
	for raw := range sub.Events() {
		m.handleEvent(gen, raw)
	}
}

// eventPayload is the notification.created wire shape. updated_at is
// optional; absent, it defaults to created_at.
type eventPayload struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenant_id"`
	UserID     string            `json:"user_id"`
	Module     domain.Module     `json:"module"`
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Message    *string           `json:"message"`
	EntityType *string           `json:"entity_type"`
	EntityID   *string           `json:"entity_id"`
	IsRead     bool              `json:"is_read"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  *time.Time        `json:"updated_at"`
}

func (m *Manager) handleEvent(gen uint64, raw json.RawMessage) {
	var p eventPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		slog.Warn("dropping malformed realtime event", "error", err)
		return
	}
	if p.ID == "" {
		slog.Warn("dropping realtime event without id")
		return
	}

	// Checked at insertion time, not just at channel read time: a context
	// switch racing the receive loop must not land the old context's event
	// in the new context's store.
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	n := domain.Notification{
		ID:         p.ID,
		TenantID:   p.TenantID,
		UserID:     p.UserID,
		Module:     p.Module,
		Type:       p.Type,
		Title:      p.Title,
		Message:    p.Message,
		EntityType: p.EntityType,
		EntityID:   p.EntityID,
		IsRead:     p.IsRead,
		Metadata:   p.Metadata,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.CreatedAt,
	}
	if p.UpdatedAt != nil {
		n.UpdatedAt = *p.UpdatedAt
	}

	m.store.AddNotification(n)

	if n.IsRead || m.alerter == nil {
		return
	}
	m.alerter.Show(m.buildAlert(n))
}

func (m *Manager) buildAlert(n domain.Notification) Alert {
	a := Alert{
		NotificationID: n.ID,
		Title:          n.Title,
		Icon:           moduleIcon(n.Module),
	}
	if n.Message != nil {
		a.Message = *n.Message
	}
	if r, ok := routes.Resolve(n); ok {
		route := r
		a.Route = &route
		id := n.ID
		a.OnClick = func() {
			// Optimistic: mark read locally (and in sibling tabs) right away.
			// The remote call is fire-and-forget and never rolls the click back.
			m.store.MarkAsRead(id, true)
			go func() {
				if m.api == nil {
					return
				}
				if err := m.api.MarkNotificationRead(context.Background(), id); err != nil {
					slog.Warn("mark-read after alert click failed", "id", id, "error", err)
				}
			}()
		}
	}
	return a
}

func moduleIcon(m domain.Module) string {
	switch m {
	case domain.ModuleTasks:
		return "check-square"
	case domain.ModuleCost:
		return "dollar-sign"
	case domain.ModuleDocuments:
		return "file-text"
	case domain.ModuleRBAC:
		return "shield"
	}
	return "bell"
}
