package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"critico/internal/mocks"
	"critico/internal/models"
	"critico/internal/repositories"
)

func setupReviewRouter(handler *ReviewHandler, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	r.POST("/products/:product_id/reviews", handler.CreateReview)
	r.GET("/products/:product_id/reviews", handler.ListReviews)
	return r
}

func TestCreateReviewSuccess(t *testing.T) {
	reviewRepo := new(mocks.ReviewRepositoryMock)
	productRepo := new(mocks.ProductRepositoryMock)
	handler := NewReviewHandler(reviewRepo, productRepo, nil)
	router := setupReviewRouter(handler, 2)

	productRepo.On("GetOwnerID", mock.Anything, 4).Return(9, nil).Once()
	reviewRepo.On("HasCommentPermission", mock.Anything, 2, 4).Return(true, nil).Once()
	reviewRepo.On("CreateReview", mock.Anything, 4, 2, 5, "great build").
		Return(models.Review{ID: 1, ProductID: 4, UserID: 2, Stars: 5}, nil).Once()

	body := bytes.NewBufferString(`{"stars":5,"body":"great build"}`)
	req := httptest.NewRequest(http.MethodPost, "/products/4/reviews", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	reviewRepo.AssertExpectations(t)
}

func TestCreateReviewWithoutPermission(t *testing.T) {
	reviewRepo := new(mocks.ReviewRepositoryMock)
	productRepo := new(mocks.ProductRepositoryMock)
	handler := NewReviewHandler(reviewRepo, productRepo, nil)
	router := setupReviewRouter(handler, 2)

	productRepo.On("GetOwnerID", mock.Anything, 4).Return(9, nil).Once()
	reviewRepo.On("HasCommentPermission", mock.Anything, 2, 4).Return(false, nil).Once()

	body := bytes.NewBufferString(`{"stars":4}`)
	req := httptest.NewRequest(http.MethodPost, "/products/4/reviews", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	reviewRepo.AssertNotCalled(t, "CreateReview", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateReviewDuplicate(t *testing.T) {
	reviewRepo := new(mocks.ReviewRepositoryMock)
	productRepo := new(mocks.ProductRepositoryMock)
	handler := NewReviewHandler(reviewRepo, productRepo, nil)
	router := setupReviewRouter(handler, 2)

	productRepo.On("GetOwnerID", mock.Anything, 4).Return(9, nil).Once()
	reviewRepo.On("HasCommentPermission", mock.Anything, 2, 4).Return(true, nil).Once()
	reviewRepo.On("CreateReview", mock.Anything, 4, 2, 3, "").
		Return(models.Review{}, repositories.ErrReviewExists).Once()

	body := bytes.NewBufferString(`{"stars":3}`)
	req := httptest.NewRequest(http.MethodPost, "/products/4/reviews", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateReviewStarsOutOfRange(t *testing.T) {
	handler := NewReviewHandler(new(mocks.ReviewRepositoryMock), new(mocks.ProductRepositoryMock), nil)
	router := setupReviewRouter(handler, 2)

	body := bytes.NewBufferString(`{"stars":6}`)
	req := httptest.NewRequest(http.MethodPost, "/products/4/reviews", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListReviews(t *testing.T) {
	reviewRepo := new(mocks.ReviewRepositoryMock)
	handler := NewReviewHandler(reviewRepo, new(mocks.ProductRepositoryMock), nil)
	router := setupReviewRouter(handler, 2)

	reviewRepo.On("ListReviews", mock.Anything, 4).Return([]models.Review{{ID: 1, Stars: 5}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/products/4/reviews", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
