package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/calebwray/interest-radar/internal/domain"
)

// Handler upgrades HTTP requests to websocket sessions and wires each one
// into the connection registry.
type Handler struct {
	registry *domain.Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. An allowedOrigin of "*" accepts any origin;
// otherwise the request's Origin header must match it exactly.
func NewHandler(registry *domain.Registry, allowedOrigin string, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// ServeHTTP upgrades the connection and starts the session pumps. The session
// stays anonymous, and ineligible for delivery, until its join frame arrives.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(conn, h.registry, h.logger)
	go client.writePump()
	go client.readPump()
}
