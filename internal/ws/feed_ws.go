package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"critico/internal/observability"
)

// FeedWebSocketHandler serves the per-user feed: new-message and unread
// badge events for the conversation list.
type FeedWebSocketHandler struct {
	hub      *Hub
	verifier TokenValidator
}

// NewFeedWebSocketHandler constructs a FeedWebSocketHandler.
func NewFeedWebSocketHandler(hub *Hub, verifier TokenValidator) *FeedWebSocketHandler {
	return &FeedWebSocketHandler{hub: hub, verifier: verifier}
}

// Handle upgrades the connection and registers it as the caller's feed.
func (h *FeedWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("critico/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := userFromRequest(c, h.verifier)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
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
	h.hub.AddFeedClient(userID, conn, info)

	runReader(ctx, conn, "feed", userID, info, func() {
		h.hub.RemoveFeedClient(userID, conn)
	})
}
