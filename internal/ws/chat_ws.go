package ws

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"critico/internal/observability"
	"critico/internal/repositories"
)

// TokenValidator verifies a session token and returns the user id.
type TokenValidator interface {
	ValidateToken(token string) (int, error)
}

// ChatWebSocketHandler handles direct-chat websocket connections.
type ChatWebSocketHandler struct {
	hub      *Hub
	chatRepo repositories.ChatRepository
	verifier TokenValidator
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, chatRepo repositories.ChatRepository, verifier TokenValidator) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{hub: hub, chatRepo: chatRepo, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client in the chat room.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	ctx, span := otel.Tracer("critico/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := userFromRequest(c, h.verifier)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for chat"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddChatClient(chatID, conn, info)

	runReader(ctx, conn, "chat", chatID, info, func() {
		h.hub.RemoveChatClient(chatID, conn)
	})
}

// userFromRequest resolves the session user from the Authorization header or,
// for browser websocket clients that cannot set headers, a token query param.
func userFromRequest(c *gin.Context, verifier TokenValidator) (int, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" {
			header = "Bearer " + token
		}
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid token")
	}
	return verifier.ValidateToken(parts[1])
}

// runReader keeps the connection alive, publishes lifecycle events and
// guarantees removal from the hub when the connection closes.
func runReader(ctx context.Context, conn *websocket.Conn, kind string, resourceID int, info ConnInfo, remove func()) {
	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	publishWSEvent(ctx, kind, resourceID, info, "ws_connect", "")

	go func() {
		var closeReason string
		defer func() {
			remove()
			observability.DecWSActive(kind)
			observability.IncWSEvent(kind, "ws_disconnect")
			publishWSEvent(ctx, kind, resourceID, info, "ws_disconnect", closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(kind, "ws_error")
					publishWSEvent(ctx, kind, resourceID, info, "ws_error", closeReason)
				}
				return
			}
		}
	}()
}

func publishWSEvent(ctx context.Context, kind string, resourceID int, info ConnInfo, event, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events."+kind, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        kind,
				"resource_id": resourceID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id": info.UserID,
				"ip":      info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
