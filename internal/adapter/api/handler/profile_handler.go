package handler

import (
	"github.com/labstack/echo/v4"

	"bridgeit/internal/usecase"
	"bridgeit/pkg/response"
)

type ProfileHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewProfileHandler(chatUseCase *usecase.ChatUseCase) *ProfileHandler {
	return &ProfileHandler{
		chatUseCase: chatUseCase,
	}
}

// GetIdentity returns how a user is shown in chat. Unknown users resolve to
// the placeholder identity rather than an error.
func (h *ProfileHandler) GetIdentity(c echo.Context) error {
	identity := h.chatUseCase.ResolveIdentity(c.Request().Context(), c.Param("id"))
	return response.Success(c, identity)
}
