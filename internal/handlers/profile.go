package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"critico/internal/models"
	"critico/internal/repositories"
)

// ProfileHandler serves own and public user profiles.
type ProfileHandler struct {
	userRepo    repositories.UserRepository
	productRepo repositories.ProductRepository
	reviewRepo  repositories.ReviewRepository
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(userRepo repositories.UserRepository, productRepo repositories.ProductRepository, reviewRepo repositories.ReviewRepository) *ProfileHandler {
	return &ProfileHandler{userRepo: userRepo, productRepo: productRepo, reviewRepo: reviewRepo}
}

// GetOwnProfile handles GET /profile.
func (h *ProfileHandler) GetOwnProfile(c *gin.Context) {
	userID := c.GetInt("userID")
	h.respondProfile(c, userID, true)
}

// GetPublicProfile handles GET /users/:user_id/profile.
func (h *ProfileHandler) GetPublicProfile(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	h.respondProfile(c, userID, false)
}

// UpdatePicture handles PUT /profile/picture. The picture itself lives in
// external object storage; only its public URL is stored.
func (h *ProfileHandler) UpdatePicture(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if err := h.userRepo.UpdatePicture(c.Request.Context(), userID, req.URL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update picture"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProfileHandler) respondProfile(c *gin.Context, userID int, includeEmail bool) {
	user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	products, err := h.productRepo.ListProductsByOwner(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load products"})
		return
	}

	reviewCount, err := h.reviewRepo.CountReviewsByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load review count"})
		return
	}

	resp := gin.H{
		"id":          user.ID,
		"name":        user.Name,
		"surname":     user.Surname,
		"picture_url": user.PictureURL,
		"products":    products,
		"trustlevel":  models.TrustlevelFor(reviewCount),
	}
	if includeEmail {
		resp["email"] = user.Email
	}
	c.JSON(http.StatusOK, resp)
}
