package router

import (
	"github.com/labstack/echo/v4"

	"bridgeit/internal/adapter/api/handler"
	"bridgeit/internal/adapter/api/middleware"
)

// SetupChatRouter sets up all chat-related routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.POST("", chatHandler.CreateChat)
	chatGroup.GET("", chatHandler.GetUserChats)
	chatGroup.GET("/unread-count", chatHandler.GetUnreadCount)
	chatGroup.GET("/:id", chatHandler.GetChatByID)
	chatGroup.PUT("/:id/read", chatHandler.MarkChatAsRead)

	chatGroup.POST("/:id/messages", chatHandler.SendMessage)
	chatGroup.GET("/:id/messages", chatHandler.GetChatMessages)
}

func SetupProfileRouter(e *echo.Echo, profileHandler *handler.ProfileHandler, authMiddleware *middleware.AuthMiddleware) {
	profileGroup := e.Group("/v1/profiles")
	profileGroup.Use(authMiddleware.Authenticate)

	profileGroup.GET("/:id/identity", profileHandler.GetIdentity)
}
