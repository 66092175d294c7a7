package router

import (
	"github.com/labstack/echo/v4"

	"bridgeit/internal/adapter/api/handler"
	"bridgeit/internal/adapter/api/middleware"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Chat      *handler.ChatHandler
	Profile   *handler.ProfileHandler
	WebSocket *handler.WebSocketHandler
	Health    *handler.HealthHandler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	SetupHealthRouter(e, h.Health)
	SetupChatRouter(e, h.Chat, authMiddleware)
	SetupProfileRouter(e, h.Profile, authMiddleware)
	SetupWebSocketRouter(e, h.WebSocket)
}
