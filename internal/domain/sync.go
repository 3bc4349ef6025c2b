package domain

import (
	"encoding/json"
	"fmt"
)

// ChannelName derives the private realtime channel for a (tenant, user)
// pair. Channels are authenticated server-side; the name being deterministic
// does not make it joinable cross-tenant.
func ChannelName(tenantID, userID string) string {
	return fmt.Sprintf("tenant.%s.user.%s.notifications", tenantID, userID)
}

// SyncContext is the (tenant, user) pair a tab is currently allowed to display.
// Both fields empty means signed out.
type SyncContext struct {
	TenantID string
	UserID   string
}

// IsZero reports whether the context represents a signed-out tab.
func (c SyncContext) IsZero() bool {
	return c.TenantID == "" && c.UserID == ""
}

// SyncMessageType discriminates cross-tab sync messages.
type SyncMessageType string

const (
	SyncNewNotification  SyncMessageType = "NEW_NOTIFICATION"
	SyncNotificationRead SyncMessageType = "NOTIFICATION_READ"
	SyncBulkRead         SyncMessageType = "NOTIFICATIONS_BULK_READ"
)

// SyncMessage is the cross-tab wire record. Payload is decoded per Type:
// NEW_NOTIFICATION carries NewNotificationPayload, NOTIFICATION_READ carries
// NotificationReadPayload, NOTIFICATIONS_BULK_READ carries BulkReadPayload.
// Delivery is fire-and-forget: no ordering, no persistence, no acknowledgment.
type SyncMessage struct {
	Type    SyncMessageType `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type NewNotificationPayload struct {
	Notification Notification `json:"notification"`
	TenantID     string       `json:"tenant_id"`
	UserID       string       `json:"user_id"`
}

type NotificationReadPayload struct {
	NotificationID string `json:"notification_id"`
	TenantID       string `json:"tenant_id"`
	UserID         string `json:"user_id"`
}

// BulkReadPayload marks the listed ids read; a nil NotificationIDs slice
// means "all currently unread".
type BulkReadPayload struct {
	NotificationIDs []string `json:"notification_ids"`
	TenantID        string   `json:"tenant_id"`
	UserID          string   `json:"user_id"`
}
