package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"critico/internal/models"
	"critico/internal/observability"
	"critico/internal/repositories"
	"critico/internal/requests"
	"critico/internal/telemetry"
)

// requestBroadcaster is the hub surface the request handler needs.
type requestBroadcaster interface {
	BroadcastChatMessage(chatID int, msg models.Message)
	BroadcastChatUpdate(chatID int, msg models.Message)
}

// RequestHandler drives the test-request lifecycle endpoints.
type RequestHandler struct {
	service     requests.Service
	messageRepo repositories.MessageRepository
	tokenRepo   repositories.TokenRepository
	hub         requestBroadcaster
	notifier    feedNotifier
	audit       *telemetry.AuditEmitter
	baseURL     string
}

// NewRequestHandler builds a RequestHandler.
func NewRequestHandler(service requests.Service, messageRepo repositories.MessageRepository, tokenRepo repositories.TokenRepository, hub requestBroadcaster, notifier feedNotifier, audit *telemetry.AuditEmitter, baseURL string) *RequestHandler {
	return &RequestHandler{
		service:     service,
		messageRepo: messageRepo,
		tokenRepo:   tokenRepo,
		hub:         hub,
		notifier:    notifier,
		audit:       audit,
		baseURL:     baseURL,
	}
}

// CreateRequest handles POST /requests: a tester asks to trial a product.
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req struct {
		ProductID int `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.service.Create(c.Request.Context(), userID, req.ProductID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		case errors.Is(err, requests.ErrOwnProduct):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot request your own product"})
		case errors.Is(err, requests.ErrRequestPending):
			c.JSON(http.StatusConflict, gin.H{"error": "request already pending"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create request"})
		}
		return
	}

	h.hub.BroadcastChatMessage(msg.ChatID, msg)
	if msg.ReceiverID != nil {
		h.notifier.NotifyMessage(c.Request.Context(), *msg.ReceiverID, models.FeedEvent{Type: "request", Message: &msg})
	}
	h.audit.Emit(c.Request.Context(), "INFO", "test request created", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, msg)
}

// ListPendingRequests returns the caller's request inbox.
func (h *RequestHandler) ListPendingRequests(c *gin.Context) {
	userID := c.GetInt("userID")
	msgs, err := h.messageRepo.PendingRequests(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": msgs, "pending_count": len(msgs)})
}

// AcceptRequest handles POST /requests/:message_id/accept. Only the product
// owner may accept; the transition mints a redemption token and an
// owner-addressed QR-ready message in one transaction.
func (h *RequestHandler) AcceptRequest(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt("userID")
	result, err := h.service.Accept(c.Request.Context(), userID, messageID)
	if err != nil {
		observability.IncRequestTransition("accept", "rejected")
		h.respondTransitionError(c, err)
		return
	}
	observability.IncRequestTransition("accept", "ok")

	h.hub.BroadcastChatUpdate(result.Request.ChatID, result.Request)
	h.notifier.NotifyMessage(c.Request.Context(), userID, models.FeedEvent{Type: "token", Message: &result.TokenMessage})
	h.audit.Emit(c.Request.Context(), "INFO", "test request accepted", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, result)
}

// DeclineRequest handles POST /requests/:message_id/decline.
func (h *RequestHandler) DeclineRequest(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.service.Decline(c.Request.Context(), userID, messageID)
	if err != nil {
		observability.IncRequestTransition("decline", "rejected")
		h.respondTransitionError(c, err)
		return
	}
	observability.IncRequestTransition("decline", "ok")

	h.hub.BroadcastChatUpdate(msg.ChatID, msg)
	h.audit.Emit(c.Request.Context(), "INFO", "test request declined", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, msg)
}

// RedeemToken handles POST /tokens/:token/redeem: the tester activates the
// token and gains comment permission for the product.
func (h *RequestHandler) RedeemToken(c *gin.Context) {
	userID := c.GetInt("userID")
	productID, err := h.service.Redeem(c.Request.Context(), userID, c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, requests.ErrTokenNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		case errors.Is(err, requests.ErrTokenRedeemed):
			c.JSON(http.StatusConflict, gin.H{"error": "token already redeemed"})
		case errors.Is(err, requests.ErrNotTester):
			c.JSON(http.StatusForbidden, gin.H{"error": "no permission to redeem this token"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not redeem token"})
		}
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "token redeemed", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"product_id": productID})
}

// TokenQR handles GET /tokens/:token/qr.png. Only the product owner may
// render the QR image; everyone else gets a permission error, never the
// link itself.
func (h *RequestHandler) TokenQR(c *gin.Context) {
	token, err := h.tokenRepo.GetToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrTokenNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "token not found"})
		return
	}

	userID := c.GetInt("userID")
	if userID != token.OwnerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "no permission to view this token"})
		return
	}

	png, err := qrcode.Encode(requests.ActivationURL(h.baseURL, token.Token), qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *RequestHandler) respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
	case errors.Is(err, requests.ErrNotARequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is not a test request"})
	case errors.Is(err, requests.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": "request already resolved"})
	case errors.Is(err, requests.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "no permission to resolve this request"})
	default:
		h.audit.Emit(c.Request.Context(), "ERROR", "request transition failed", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve request"})
	}
}
