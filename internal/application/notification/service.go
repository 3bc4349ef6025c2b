package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-notify-sync/internal/domain"
	"github.com/go-notify-sync/internal/pkg/id"
	"github.com/go-notify-sync/internal/pkg/validate"
	"github.com/go-notify-sync/internal/push"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByUser(ctx context.Context, tenantID, userID string, limit int32, cursor string) ([]domain.Notification, string, error)
	MarkAsRead(ctx context.Context, notificationID string) (*domain.Notification, error)
	MarkAllAsRead(ctx context.Context, tenantID, userID string) ([]string, error)
}

// Pusher delivers live events to subscribed clients.
type Pusher interface {
	Publish(channel string, ev push.Event)
}

// EventPublisher mirrors created events to an external topic; optional.
type EventPublisher interface {
	PublishCreated(ctx context.Context, n *domain.Notification) error
}

type Service interface {
	Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, error)
	List(ctx context.Context, tenantID, userID string, limit int32, cursor string) ([]domain.Notification, string, error)
	MarkRead(ctx context.Context, notificationID, tenantID, userID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, tenantID, userID string) ([]string, error)
}

type service struct {
	repo      Repository
	pusher    Pusher
	publisher EventPublisher
}

// NewService builds the notification service. publisher may be nil.
func NewService(repo Repository, pusher Pusher, publisher EventPublisher) Service {
	return &service{repo: repo, pusher: pusher, publisher: publisher}
}

// Create persists a notification and pushes a notification.created event to
// the owner's private channel. Persistence failures abort; push and topic
// fan-out failures are logged only — delivery is best effort on top of the
// stored record.
func (s *service) Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	now := time.Now().UTC()
	n := &domain.Notification{
		ID:         id.New(),
		TenantID:   req.TenantID,
		UserID:     req.UserID,
		Module:     req.Module,
		Type:       req.Type,
		Title:      req.Title,
		Message:    req.Message,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Metadata:   req.Metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	if body, err := json.Marshal(n); err == nil {
		s.pusher.Publish(domain.ChannelName(n.TenantID, n.UserID), push.Event{
			Name: "notification.created",
			Data: body,
		})
	} else {
		slog.Warn("notification event not pushed", "id", n.ID, "error", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishCreated(ctx, n); err != nil {
			slog.Warn("SNS fan-out failed", "id", n.ID, "error", err)
		}
	}
	return n, nil
}

func (s *service) List(ctx context.Context, tenantID, userID string, limit int32, cursor string) ([]domain.Notification, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, tenantID, userID, limit, cursor)
}

// MarkRead marks one notification read after an ownership check: callers may
// only touch notifications scoped to their own tenant and user.
func (s *service) MarkRead(ctx context.Context, notificationID, tenantID, userID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID || n.TenantID != tenantID {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrForbidden)
	}
	return s.repo.MarkAsRead(ctx, notificationID)
}

func (s *service) MarkAllRead(ctx context.Context, tenantID, userID string) ([]string, error) {
	return s.repo.MarkAllAsRead(ctx, tenantID, userID)
}
