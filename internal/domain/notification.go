package domain

import "time"

// Module identifies the application area a notification originates from.
type Module string

const (
	ModuleTasks     Module = "tasks"
	ModuleCost      Module = "cost"
	ModuleDocuments Module = "documents"
	ModuleRBAC      Module = "rbac"
	ModuleSystem    Module = "system"
)

// Notification is the value record delivered to a user. Immutable except for
// IsRead and UpdatedAt; identity is ID and must survive at-least-once delivery.
type Notification struct {
	ID         string            `json:"id" dynamodbav:"notification_id" validate:"required"`
	TenantID   string            `json:"tenant_id" dynamodbav:"tenant_id" validate:"required"`
	UserID     string            `json:"user_id" dynamodbav:"user_id" validate:"required"`
	Module     Module            `json:"module" dynamodbav:"module"`
	Type       string            `json:"type" dynamodbav:"type"`
	Title      string            `json:"title" dynamodbav:"title" validate:"required"`
	Message    *string           `json:"message" dynamodbav:"message"`
	EntityType *string           `json:"entity_type" dynamodbav:"entity_type"`
	EntityID   *string           `json:"entity_id" dynamodbav:"entity_id"`
	IsRead     bool              `json:"is_read" dynamodbav:"is_read"`
	Metadata   map[string]string `json:"metadata" dynamodbav:"metadata"`
	CreatedAt  time.Time         `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" dynamodbav:"updated_at"`
}

// CreateNotificationRequest is the payload accepted by the create endpoint.
type CreateNotificationRequest struct {
	TenantID   string            `json:"tenant_id" validate:"required"`
	UserID     string            `json:"user_id" validate:"required"`
	Module     Module            `json:"module" validate:"required"`
	Type       string            `json:"type" validate:"required"`
	Title      string            `json:"title" validate:"required"`
	Message    *string           `json:"message"`
	EntityType *string           `json:"entity_type"`
	EntityID   *string           `json:"entity_id"`
	Metadata   map[string]string `json:"metadata"`
}
