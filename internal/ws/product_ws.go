package ws

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"critico/internal/observability"
	"critico/internal/repositories"
)

// ProductWebSocketHandler streams comment-thread events for one product.
// Product threads are public, so no membership check is needed beyond a
// valid session.
type ProductWebSocketHandler struct {
	hub         *Hub
	productRepo repositories.ProductRepository
	verifier    TokenValidator
}

// NewProductWebSocketHandler constructs a ProductWebSocketHandler.
func NewProductWebSocketHandler(hub *Hub, productRepo repositories.ProductRepository, verifier TokenValidator) *ProductWebSocketHandler {
	return &ProductWebSocketHandler{hub: hub, productRepo: productRepo, verifier: verifier}
}

// Handle upgrades the connection and registers it on the product thread.
func (h *ProductWebSocketHandler) Handle(c *gin.Context) {
	productID, err := strconv.Atoi(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
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

	if _, err := h.productRepo.GetOwnerID(c.Request.Context(), productID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
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
	h.hub.AddProductClient(productID, conn, info)

	runReader(ctx, conn, "product", productID, info, func() {
		h.hub.RemoveProductClient(productID, conn)
	})
}
