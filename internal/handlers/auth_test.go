package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"critico/internal/auth"
	"critico/internal/mocks"
	"critico/internal/models"
	"critico/internal/repositories"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	return r
}

func TestRegisterSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewManager("test-secret"), nil)
	router := setupAuthRouter(handler)

	userRepo.On("CreateUser", mock.Anything, "anna@example.com", mock.AnythingOfType("string"), "Anna", "Schmidt").
		Return(models.User{ID: 1, Email: "anna@example.com", Name: "Anna", Surname: "Schmidt"}, nil).Once()

	body := bytes.NewBufferString(`{"email":"Anna@Example.com","password":"hunter22!","name":"Anna","surname":"Schmidt"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 1, resp.User.ID)
	userRepo.AssertExpectations(t)
}

func TestRegisterEmailTaken(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewManager("test-secret"), nil)
	router := setupAuthRouter(handler)

	userRepo.On("CreateUser", mock.Anything, "anna@example.com", mock.AnythingOfType("string"), "Anna", "").
		Return(models.User{}, repositories.ErrEmailTaken).Once()

	body := bytes.NewBufferString(`{"email":"anna@example.com","password":"hunter22!","name":"Anna"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterPasswordTooShort(t *testing.T) {
	handler := NewAuthHandler(new(mocks.UserRepositoryMock), auth.NewManager("test-secret"), nil)
	router := setupAuthRouter(handler)

	body := bytes.NewBufferString(`{"email":"anna@example.com","password":"short","name":"Anna"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewManager("test-secret"), nil)
	router := setupAuthRouter(handler)

	hash, err := auth.HashPassword("hunter22!")
	require.NoError(t, err)
	userRepo.On("GetUserByEmail", mock.Anything, "anna@example.com").
		Return(models.User{ID: 1, Email: "anna@example.com", PasswordHash: hash}, nil).Once()

	body := bytes.NewBufferString(`{"email":"anna@example.com","password":"hunter22!"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewManager("test-secret"), nil)
	router := setupAuthRouter(handler)

	hash, err := auth.HashPassword("hunter22!")
	require.NoError(t, err)
	userRepo.On("GetUserByEmail", mock.Anything, "anna@example.com").
		Return(models.User{ID: 1, Email: "anna@example.com", PasswordHash: hash}, nil).Once()

	body := bytes.NewBufferString(`{"email":"anna@example.com","password":"wrong-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewManager("test-secret"), nil)
	router := setupAuthRouter(handler)

	userRepo.On("GetUserByEmail", mock.Anything, "ghost@example.com").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"email":"ghost@example.com","password":"whatever1"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
