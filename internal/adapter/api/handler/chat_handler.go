package handler

import (
	"github.com/labstack/echo/v4"

	"bridgeit/internal/usecase"
	"bridgeit/pkg/response"
	"bridgeit/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createChatRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"max=4000"`
}

// CreateChat returns the chat with the recipient, creating it on first contact.
func (h *ChatHandler) CreateChat(c echo.Context) error {
	var req createChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	id, err := h.chatUseCase.GetOrCreateConversation(c.Request().Context(), userID, req.RecipientID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]string{"id": id})
}

// GetUserChats lists the authenticated user's chats, most recent first.
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	userID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c, 20)

	entries, err := h.chatUseCase.ListConversations(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	page := usecase.Page(entries, params.Limit, params.Offset)
	return response.SuccessPaginated(c, page, int64(len(entries)), params.Limit, params.Offset)
}

func (h *ChatHandler) GetUnreadCount(c echo.Context) error {
	userID := c.Get("uid").(string)

	count, err := h.chatUseCase.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"count": count})
}

func (h *ChatHandler) GetChatByID(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.GetConversation(c.Request().Context(), chatID, userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// SendMessage posts a message. Blank text stores nothing and answers 204.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), chatID, userID, req.Text)
	if err != nil {
		return response.Error(c, err)
	}
	if message == nil {
		return response.NoContent(c)
	}

	return response.Created(c, message)
}

// GetChatMessages returns the day grouped feed, labelled in the ?tz= zone.
func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)
	loc := h.chatUseCase.Location(c.QueryParam("tz"))

	feed, err := h.chatUseCase.GetFeed(c.Request().Context(), chatID, userID, loc)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, feed)
}

func (h *ChatHandler) MarkChatAsRead(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.chatUseCase.MarkRead(c.Request().Context(), chatID, userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Chat marked as read"})
}
