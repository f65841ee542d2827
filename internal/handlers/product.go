package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"critico/internal/models"
	"critico/internal/repositories"
	"critico/internal/telemetry"
)

// productBroadcaster is the hub surface the product handler needs.
type productBroadcaster interface {
	BroadcastProductComment(productID int, msg models.Message)
}

// ProductHandler manages product listings and comment threads.
type ProductHandler struct {
	productRepo repositories.ProductRepository
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	reviewRepo  repositories.ReviewRepository
	hub         productBroadcaster
	audit       *telemetry.AuditEmitter
}

// NewProductHandler builds a ProductHandler.
func NewProductHandler(productRepo repositories.ProductRepository, chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, reviewRepo repositories.ReviewRepository, hub productBroadcaster, audit *telemetry.AuditEmitter) *ProductHandler {
	return &ProductHandler{
		productRepo: productRepo,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		reviewRepo:  reviewRepo,
		hub:         hub,
		audit:       audit,
	}
}

// CreateProduct handles POST /products.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req struct {
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description"`
		PriceCents  int      `json:"price_cents"`
		Tags        []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	product, err := h.productRepo.CreateProduct(c.Request.Context(), userID, req.Title, req.Description, req.PriceCents, req.Tags)
	if err != nil {
		h.audit.Emit(c.Request.Context(), "ERROR", "product insert failed", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create product"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "product created", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, product)
}

// ListProducts handles GET /products.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.productRepo.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProduct handles GET /products/:product_id.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	product, err := h.productRepo.GetProduct(c.Request.Context(), productID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProductNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/:product_id (owner only).
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	ownerID, err := h.productRepo.GetOwnerID(c.Request.Context(), productID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProductNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "product not found"})
		return
	}
	if ownerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can delete a product"})
		return
	}

	if err := h.productRepo.DeleteProduct(c.Request.Context(), productID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete product"})
		return
	}
	c.Status(http.StatusNoContent)
}

// AddImage handles POST /products/:product_id/images (owner only). Images
// live in external object storage; only their public URLs are stored.
func (h *ProductHandler) AddImage(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	var req struct {
		URL string `json:"url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	ownerID, err := h.productRepo.GetOwnerID(c.Request.Context(), productID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProductNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "product not found"})
		return
	}
	if ownerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can add images"})
		return
	}

	if err := h.productRepo.AddImage(c.Request.Context(), productID, req.URL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store image"})
		return
	}
	c.Status(http.StatusCreated)
}

// GetComments handles GET /products/:product_id/comments.
func (h *ProductHandler) GetComments(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	if _, err := h.productRepo.GetOwnerID(c.Request.Context(), productID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProductNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "product not found"})
		return
	}

	thread, err := h.chatRepo.CreateOrGetProductThread(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comment thread"})
		return
	}

	msgs, err := h.messageRepo.GetProductThreadMessages(c.Request.Context(), thread.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": msgs})
}

// PostComment handles POST /products/:product_id/comments. A comment
// permission grant is the sole authority for posting; there is no
// client-side shortcut around it.
func (h *ProductHandler) PostComment(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment content is empty"})
		return
	}

	userID := c.GetInt("userID")
	if _, err := h.productRepo.GetOwnerID(c.Request.Context(), productID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProductNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "product not found"})
		return
	}

	allowed, err := h.reviewRepo.HasCommentPermission(c.Request.Context(), userID, productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check permission"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "no permission to comment on this product"})
		return
	}

	thread, err := h.chatRepo.CreateOrGetProductThread(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comment thread"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), models.Message{
		ChatID:    thread.ID,
		SenderID:  userID,
		ProductID: &productID,
		Content:   req.Content,
		Type:      models.MessageProduct,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store comment"})
		return
	}

	h.hub.BroadcastProductComment(productID, msg)
	c.JSON(http.StatusCreated, msg)
}

func parseProductID(c *gin.Context) (int, bool) {
	productID, err := strconv.Atoi(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return productID, true
}
