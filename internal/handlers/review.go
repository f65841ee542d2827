package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"critico/internal/repositories"
	"critico/internal/telemetry"
)

// ReviewHandler manages star-rated product reviews.
type ReviewHandler struct {
	reviewRepo  repositories.ReviewRepository
	productRepo repositories.ProductRepository
	audit       *telemetry.AuditEmitter
}

// NewReviewHandler builds a ReviewHandler.
func NewReviewHandler(reviewRepo repositories.ReviewRepository, productRepo repositories.ProductRepository, audit *telemetry.AuditEmitter) *ReviewHandler {
	return &ReviewHandler{reviewRepo: reviewRepo, productRepo: productRepo, audit: audit}
}

// CreateReview handles POST /products/:product_id/reviews. Only users
// holding a comment-permission grant may review, once per product.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	var req struct {
		Stars int    `json:"stars" binding:"required,min=1,max=5"`
		Body  string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
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
		c.JSON(http.StatusForbidden, gin.H{"error": "no permission to review this product"})
		return
	}

	review, err := h.reviewRepo.CreateReview(c.Request.Context(), productID, userID, req.Stars, req.Body)
	if err != nil {
		if errors.Is(err, repositories.ErrReviewExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "product already reviewed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store review"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "review created", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, review)
}

// ListReviews handles GET /products/:product_id/reviews.
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	reviews, err := h.reviewRepo.ListReviews(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reviews"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}
