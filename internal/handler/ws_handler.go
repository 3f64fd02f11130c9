package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/bppowerplay/portal/internal/cache"
	"github.com/bppowerplay/portal/internal/model"
	"github.com/bppowerplay/portal/internal/ws"
	"github.com/bppowerplay/portal/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, validate origin
	},
}

// WSHandler handles the page event channel: warnings and controller lifecycle
// events flow out, the skip-waiting command flows in.
type WSHandler struct {
	hub        *ws.Hub
	controller *cache.Controller
	tokens     *auth.TokenManager
}

func NewWSHandler(hub *ws.Hub, controller *cache.Controller, tokens *auth.TokenManager) *WSHandler {
	return &WSHandler{
		hub:        hub,
		controller: controller,
		tokens:     tokens,
	}
}

// HandleWebSocket upgrades HTTP to WebSocket and manages the connection.
// Pages connect with ws://host/ws?token=<session token>; pages without a
// session connect anonymously and still receive broadcast events.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	email := ""
	if tokenString := c.Query("token"); tokenString != "" {
		claims, err := h.tokens.Validate(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		email = claims.Email
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, email)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleWSMessage)
}

// handleWSMessage processes incoming page messages. The only accepted
// command is skip-waiting for the cache controller.
func (h *WSHandler) handleWSMessage(client *ws.Client, event model.WSEvent) {
	switch event.Type {
	case model.WSEventSkipWaiting:
		h.controller.HandleMessage(context.Background(), event)
	default:
		log.Printf("📩 Unknown WS message type: %s", event.Type)
	}
}
