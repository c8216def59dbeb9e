package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/service-marketplace/internal/http/middleware"
	"github.com/ignatzorin/service-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/service-marketplace/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений.
type WSHandler struct {
	hub      *ws.Hub
	tokens   middleware.TokenParser
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. Пустой allowedOrigins разрешает любой Origin.
func NewWSHandler(hub *ws.Hub, tokens middleware.TokenParser, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
// Браузер не умеет передавать заголовок Authorization при апгрейде, поэтому токен в query.
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		_ = c.Error(apperror.ErrUnauthorized)
		return
	}

	caller, err := h.tokens.ParseAccess(rawToken)
	if err != nil {
		_ = c.Error(apperror.Wrap(err, apperror.ErrCodeUnauthorized, "невалидный access токен"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		return
	}

	ws.NewClient(conn, h.hub, caller.UserID).Run()
}
