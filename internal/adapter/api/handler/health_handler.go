package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ConnectionCounter reports connected websocket clients.
type ConnectionCounter interface {
	ClientCount() int
}

type HealthHandler struct {
	connections ConnectionCounter
	storeDriver string
}

func NewHealthHandler(connections ConnectionCounter, storeDriver string) *HealthHandler {
	return &HealthHandler{
		connections: connections,
		storeDriver: storeDriver,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status": "Server is running",
		"time":   time.Now().Format(time.RFC3339),
		"store":  h.storeDriver,
	}
	if h.connections != nil {
		body["websocket_clients"] = h.connections.ClientCount()
	}
	return c.JSON(http.StatusOK, body)
}
