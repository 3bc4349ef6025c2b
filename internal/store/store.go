// Package store holds the per-tab source of truth for notification state.
// Every other component reads and mutates notifications through it.
package store

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/go-notify-sync/internal/domain"
)

// Publisher emits sync messages to sibling tabs. The store never receives its
// own messages back; sync-originated mutations go through the ApplyXFromSync
// operations, which do not publish.
type Publisher interface {
	Publish(msg domain.SyncMessage)
}

// Snapshot is the read-only view handed to change listeners and the UI layer.
type Snapshot struct {
	Notifications []domain.Notification
	UnreadCount   int
	SyncContext   domain.SyncContext
}

// Store is the authoritative notification state for one tab. All operations
// are atomic: the unread count always equals the number of unread entries at
// every observable point, and no two entries share an id.
type Store struct {
	mu            sync.Mutex
	notifications []domain.Notification
	unread        int
	syncCtx       domain.SyncContext
	pub           Publisher

	listeners  map[int]func(Snapshot)
	nextListen int
}

// New creates a Store. pub may be nil, in which case mutations are applied
// locally without cross-tab broadcast.
func New(pub Publisher) *Store {
	return &Store{
		pub:       pub,
		listeners: make(map[int]func(Snapshot)),
	}
}

// Subscribe registers a listener invoked with a snapshot after every state
// change. The returned func removes the listener and is safe to call twice.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextListen
	s.nextListen++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	out := make([]domain.Notification, len(s.notifications))
	copy(out, s.notifications)
	return Snapshot{Notifications: out, UnreadCount: s.unread, SyncContext: s.syncCtx}
}

// SyncContext returns the active (tenant, user) pair.
func (s *Store) SyncContext() domain.SyncContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncCtx
}

// SetSyncContext replaces the active context. Switching to a different tenant
// or user discards previously loaded notifications: state from one account
// must never remain visible under another.
func (s *Store) SetSyncContext(ctx domain.SyncContext) {
	s.mu.Lock()
	if ctx != s.syncCtx {
		s.notifications = nil
		s.unread = 0
	}
	s.syncCtx = ctx
	snap, fns := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()
	notify(fns, snap)
}

// AddNotification inserts n at the head of the list and broadcasts a
// NEW_NOTIFICATION message. Re-delivery of an already-held id is a no-op:
// the list, the unread count and the sync channel all stay untouched.
func (s *Store) AddNotification(n domain.Notification) {
	s.add(n, true)
}

// ApplyNotificationFromSync applies a sync-originated insertion. It never
// re-broadcasts; doing so would loop the message across tabs forever.
func (s *Store) ApplyNotificationFromSync(n domain.Notification) {
	s.add(n, false)
}

func (s *Store) add(n domain.Notification, broadcast bool) {
	s.mu.Lock()
	for _, held := range s.notifications {
		if held.ID == n.ID {
			s.mu.Unlock()
			return
		}
	}
	s.notifications = append([]domain.Notification{n}, s.notifications...)
	if !n.IsRead {
		s.unread++
	}
	var msg *domain.SyncMessage
	if broadcast {
		msg = newMessage(domain.SyncNewNotification, domain.NewNotificationPayload{
			Notification: n,
			TenantID:     s.syncCtx.TenantID,
			UserID:       s.syncCtx.UserID,
		})
	}
	snap, fns := s.snapshotLocked(), s.listenersLocked()
	pub := s.pub
	s.mu.Unlock()

	if msg != nil && pub != nil {
		pub.Publish(*msg)
	}
	notify(fns, snap)
}

// MarkAsRead sets is_read on the matching entry if currently unread.
// Unknown or already-read ids are no-ops. When broadcast is true a
// NOTIFICATION_READ message is emitted; sync-originated callers pass false.
func (s *Store) MarkAsRead(id string, broadcast bool) {
	s.mu.Lock()
	idx := -1
	for i := range s.notifications {
		if s.notifications[i].ID == id && !s.notifications[i].IsRead {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.notifications[idx].IsRead = true
	s.unread--
	var msg *domain.SyncMessage
	if broadcast {
		msg = newMessage(domain.SyncNotificationRead, domain.NotificationReadPayload{
			NotificationID: id,
			TenantID:       s.syncCtx.TenantID,
			UserID:         s.syncCtx.UserID,
		})
	}
	snap, fns := s.snapshotLocked(), s.listenersLocked()
	pub := s.pub
	s.mu.Unlock()

	if msg != nil && pub != nil {
		pub.Publish(*msg)
	}
	notify(fns, snap)
}

// ApplyNotificationReadFromSync applies a sync-originated single read without
// re-broadcasting.
func (s *Store) ApplyNotificationReadFromSync(id string) {
	s.MarkAsRead(id, false)
}

// MarkAllAsRead marks every unread entry read. When broadcast is true a
// NOTIFICATIONS_BULK_READ message with a nil id list ("all") is emitted.
func (s *Store) MarkAllAsRead(broadcast bool) {
	s.bulkRead(nil, broadcast)
}

// ApplyBulkReadFromSync applies a sync-originated bulk read. A nil ids slice
// means every unread entry.
func (s *Store) ApplyBulkReadFromSync(ids []string) {
	s.bulkRead(ids, false)
}

func (s *Store) bulkRead(ids []string, broadcast bool) {
	s.mu.Lock()
	if ids == nil {
		for i := range s.notifications {
			s.notifications[i].IsRead = true
		}
	} else {
		wanted := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			wanted[id] = struct{}{}
		}
		for i := range s.notifications {
			if _, ok := wanted[s.notifications[i].ID]; ok {
				s.notifications[i].IsRead = true
			}
		}
	}
	// Recompute rather than decrement: correct even if entries were removed
	// between the caller's view and now.
	s.unread = 0
	for i := range s.notifications {
		if !s.notifications[i].IsRead {
			s.unread++
		}
	}
	var msg *domain.SyncMessage
	if broadcast {
		msg = newMessage(domain.SyncBulkRead, domain.BulkReadPayload{
			NotificationIDs: ids,
			TenantID:        s.syncCtx.TenantID,
			UserID:          s.syncCtx.UserID,
		})
	}
	snap, fns := s.snapshotLocked(), s.listenersLocked()
	pub := s.pub
	s.mu.Unlock()

	if msg != nil && pub != nil {
		pub.Publish(*msg)
	}
	notify(fns, snap)
}

func (s *Store) listenersLocked() []func(Snapshot) {
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(Snapshot), snap Snapshot) {
	for _, fn := range fns {
		fn(snap)
	}
}

func newMessage(t domain.SyncMessageType, payload any) *domain.SyncMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("sync message not built", "type", t, "error", err)
		return nil
	}
	return &domain.SyncMessage{Type: t, Payload: raw}
}
