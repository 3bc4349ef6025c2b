package http

import (
	"github.com/go-notify-sync/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-notify-sync/internal/infrastructure/jwt"
	"github.com/go-notify-sync/internal/infrastructure/sns"
	"github.com/go-notify-sync/internal/push"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	NotificationRepo *dynamo.NotificationRepo
	Hub              *push.Hub
	EventPublisher   sns.EventPublisher // optional
	JWTProvider      *jwtinfra.Provider
}
