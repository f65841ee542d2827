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
	"critico/internal/ws"
)

func setupProductRouter(handler *ProductHandler, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	r.POST("/products", handler.CreateProduct)
	r.GET("/products/:product_id", handler.GetProduct)
	r.DELETE("/products/:product_id", handler.DeleteProduct)
	r.POST("/products/:product_id/images", handler.AddImage)
	r.GET("/products/:product_id/comments", handler.GetComments)
	r.POST("/products/:product_id/comments", handler.PostComment)
	return r
}

func newProductHandler(productRepo *mocks.ProductRepositoryMock, chatRepo *mocks.ChatRepositoryMock, messageRepo *mocks.MessageRepositoryMock, reviewRepo *mocks.ReviewRepositoryMock) *ProductHandler {
	return NewProductHandler(productRepo, chatRepo, messageRepo, reviewRepo, ws.NewHub(), nil)
}

func TestCreateProductSuccess(t *testing.T) {
	productRepo := new(mocks.ProductRepositoryMock)
	handler := newProductHandler(productRepo, new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.ReviewRepositoryMock))
	router := setupProductRouter(handler, 9)

	productRepo.On("CreateProduct", mock.Anything, 9, "Lamp", "A lamp", 1500, []string{"home"}).
		Return(models.Product{ID: 4, OwnerID: 9, Title: "Lamp"}, nil).Once()

	body := bytes.NewBufferString(`{"title":"Lamp","description":"A lamp","price_cents":1500,"tags":["home"]}`)
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	productRepo.AssertExpectations(t)
}

func TestGetProductNotFound(t *testing.T) {
	productRepo := new(mocks.ProductRepositoryMock)
	handler := newProductHandler(productRepo, new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.ReviewRepositoryMock))
	router := setupProductRouter(handler, 9)

	productRepo.On("GetProduct", mock.Anything, 4).Return(models.Product{}, repositories.ErrProductNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/products/4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProductNotOwner(t *testing.T) {
	productRepo := new(mocks.ProductRepositoryMock)
	handler := newProductHandler(productRepo, new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.ReviewRepositoryMock))
	router := setupProductRouter(handler, 2)

	productRepo.On("GetOwnerID", mock.Anything, 4).Return(9, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/products/4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	productRepo.AssertNotCalled(t, "DeleteProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddImageOwnerOnly(t *testing.T) {
	productRepo := new(mocks.ProductRepositoryMock)
	handler := newProductHandler(productRepo, new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.ReviewRepositoryMock))
	router := setupProductRouter(handler, 9)

	productRepo.On("GetOwnerID", mock.Anything, 4).Return(9, nil).Once()
	productRepo.On("AddImage", mock.Anything, 4, "https://cdn.critico.test/lamp.jpg").Return(nil).Once()

	body := bytes.NewBufferString(`{"url":"https://cdn.critico.test/lamp.jpg"}`)
	req := httptest.NewRequest(http.MethodPost, "/products/4/images", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	productRepo.AssertExpectations(t)
}

func TestPostCommentWithoutPermission(t *testing.T) {
	productRepo := new(mocks.ProductRepositoryMock)
	reviewRepo := new(mocks.ReviewRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newProductHandler(productRepo, new(mocks.ChatRepositoryMock), messageRepo, reviewRepo)
	router := setupProductRouter(handler, 2)

	productRepo.On("GetOwnerID", mock.Anything, 4).Return(9, nil).Once()
	reviewRepo.On("HasCommentPermission", mock.Anything, 2, 4).Return(false, nil).Once()

	body := bytes.NewBufferString(`{"content":"nice lamp"}`)
	req := httptest.NewRequest(http.MethodPost, "/products/4/comments", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestPostCommentWithPermission(t *testing.T) {
	productRepo := new(mocks.ProductRepositoryMock)
	chatRepo := new(mocks.ChatRepositoryMock)
	reviewRepo := new(mocks.ReviewRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newProductHandler(productRepo, chatRepo, messageRepo, reviewRepo)
	router := setupProductRouter(handler, 2)

	productID := 4
	threadProduct := productID
	productRepo.On("GetOwnerID", mock.Anything, 4).Return(9, nil).Once()
	reviewRepo.On("HasCommentPermission", mock.Anything, 2, 4).Return(true, nil).Once()
	chatRepo.On("CreateOrGetProductThread", mock.Anything, 4).Return(models.Chat{ID: 30, ProductID: &threadProduct}, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.ChatID == 30 && msg.SenderID == 2 && msg.Type == models.MessageProduct &&
			msg.ProductID != nil && *msg.ProductID == productID
	})).Return(models.Message{ID: 50, ChatID: 30, SenderID: 2, Type: models.MessageProduct}, nil).Once()

	body := bytes.NewBufferString(`{"content":"nice lamp"}`)
	req := httptest.NewRequest(http.MethodPost, "/products/4/comments", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestGetCommentsOpenToEveryone(t *testing.T) {
	productRepo := new(mocks.ProductRepositoryMock)
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newProductHandler(productRepo, chatRepo, messageRepo, new(mocks.ReviewRepositoryMock))
	router := setupProductRouter(handler, 2)

	productID := 4
	productRepo.On("GetOwnerID", mock.Anything, 4).Return(9, nil).Once()
	chatRepo.On("CreateOrGetProductThread", mock.Anything, 4).Return(models.Chat{ID: 30, ProductID: &productID}, nil).Once()
	messageRepo.On("GetProductThreadMessages", mock.Anything, 30).Return([]models.Message{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/products/4/comments", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
