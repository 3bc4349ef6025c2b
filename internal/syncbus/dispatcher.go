package syncbus

import (
	"encoding/json"
	"log/slog"

	"github.com/go-notify-sync/internal/domain"
)

// SyncStore is the subset of store operations the dispatcher drives. All of
// them apply without re-broadcasting.
type SyncStore interface {
	SyncContext() domain.SyncContext
	ApplyNotificationFromSync(n domain.Notification)
	ApplyNotificationReadFromSync(id string)
	ApplyBulkReadFromSync(ids []string)
}

// Dispatcher validates, filters and routes inbound sync messages into a tab's
// store. Messages whose (tenant, user) pair does not exactly match the tab's
// current sync context are discarded without logging: cross-account traffic on
// a shared browser is expected, not anomalous.
type Dispatcher struct {
	store SyncStore
}

func NewDispatcher(store SyncStore) *Dispatcher {
	return &Dispatcher{store: store}
}

// Handle is the bus handler. Malformed messages are dropped after a warning;
// unknown types are logged and ignored so newer message kinds degrade cleanly.
func (d *Dispatcher) Handle(msg domain.SyncMessage) {
	if msg.Type == "" || len(msg.Payload) == 0 {
		slog.Warn("dropping malformed sync message", "type", msg.Type)
		return
	}

	switch msg.Type {
	case domain.SyncNewNotification:
		var p domain.NewNotificationPayload
		if !d.decode(msg, &p) || !d.matches(p.TenantID, p.UserID) {
			return
		}
		d.store.ApplyNotificationFromSync(p.Notification)

	case domain.SyncNotificationRead:
		var p domain.NotificationReadPayload
		if !d.decode(msg, &p) || !d.matches(p.TenantID, p.UserID) {
			return
		}
		d.store.ApplyNotificationReadFromSync(p.NotificationID)

	case domain.SyncBulkRead:
		var p domain.BulkReadPayload
		if !d.decode(msg, &p) || !d.matches(p.TenantID, p.UserID) {
			return
		}
		d.store.ApplyBulkReadFromSync(p.NotificationIDs)

	default:
		slog.Warn("ignoring unknown sync message type", "type", msg.Type)
	}
}

func (d *Dispatcher) decode(msg domain.SyncMessage, v any) bool {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		slog.Warn("dropping malformed sync message", "type", msg.Type, "error", err)
		return false
	}
	return true
}

func (d *Dispatcher) matches(tenantID, userID string) bool {
	ctx := d.store.SyncContext()
	if ctx.IsZero() {
		return false
	}
	return ctx.TenantID == tenantID && ctx.UserID == userID
}
