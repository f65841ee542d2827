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

	"critico/internal/conversations"
	"critico/internal/mocks"
	"critico/internal/models"
	"critico/internal/ws"
)

func setupChatRouter(handler *ChatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/conversations", handler.ListConversations)
	r.POST("/chats/direct/start", handler.StartChat)
	r.GET("/chats/:chat_id/messages", handler.GetChatMessages)
	r.POST("/chats/:chat_id/messages", handler.PostChatMessage)
	r.POST("/chats/:chat_id/read", handler.MarkChatRead)
	return r
}

func TestListConversationsSuccess(t *testing.T) {
	convos := new(mocks.ConversationListerMock)
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), convos, ws.NewHub(), new(mocks.NotifierMock), nil)
	router := setupChatRouter(handler)

	convos.On("List", mock.Anything, 1, "anna").Return(conversations.Overview{
		Conversations: []models.ChatPreview{{ChatID: 3, PartnerID: 2, PartnerName: "Anna"}},
		UnreadTotal:   4,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations?search=anna", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp conversations.Overview
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 4, resp.UnreadTotal)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "Anna", resp.Conversations[0].PartnerName)

	convos.AssertExpectations(t)
}

func TestListConversationsError(t *testing.T) {
	convos := new(mocks.ConversationListerMock)
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), convos, ws.NewHub(), new(mocks.NotifierMock), nil)
	router := setupChatRouter(handler)

	convos.On("List", mock.Anything, 1, "").Return(conversations.Overview{}, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStartChatSuccess(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, new(mocks.MessageRepositoryMock), new(mocks.ConversationListerMock), ws.NewHub(), new(mocks.NotifierMock), nil)
	router := setupChatRouter(handler)

	chatRepo.On("CreateOrGetDirectChat", mock.Anything, 1, 2).Return(models.Chat{ID: 10}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/direct/start", bytes.NewBufferString(`{"partner_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	chatRepo.AssertExpectations(t)
}

func TestStartChatWithSelf(t *testing.T) {
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.ConversationListerMock), ws.NewHub(), new(mocks.NotifierMock), nil)
	router := setupChatRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/chats/direct/start", bytes.NewBufferString(`{"partner_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetChatMessagesSuccess(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(chatRepo, messageRepo, new(mocks.ConversationListerMock), ws.NewHub(), new(mocks.NotifierMock), nil)
	router := setupChatRouter(handler)

	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	messageRepo.On("GetChatHistory", mock.Anything, 5, 1).Return([]models.Message{{ID: 1, ChatID: 5, SenderID: 1, Type: models.MessageDirect}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	chatRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestGetChatMessagesNotMember(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, new(mocks.MessageRepositoryMock), new(mocks.ConversationListerMock), ws.NewHub(), new(mocks.NotifierMock), nil)
	router := setupChatRouter(handler)

	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPostChatMessageSuccess(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	notifier := new(mocks.NotifierMock)
	handler := NewChatHandler(chatRepo, messageRepo, new(mocks.ConversationListerMock), ws.NewHub(), notifier, nil)
	router := setupChatRouter(handler)

	partnerID := 2
	chatRepo.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5}, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	chatRepo.On("GetPartner", mock.Anything, 5, 1).Return(models.User{ID: partnerID}, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.ChatID == 5 && msg.SenderID == 1 && msg.ReceiverID != nil && *msg.ReceiverID == partnerID &&
			msg.Type == models.MessageDirect && !msg.Read
	})).Return(models.Message{ID: 7, ChatID: 5, SenderID: 1, Content: "hi", Type: models.MessageDirect}, nil).Once()
	notifier.On("NotifyMessage", mock.Anything, partnerID, mock.Anything).Return().Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	chatRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestPostChatMessageWhitespaceOnlyIsNoOp(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(chatRepo, messageRepo, new(mocks.ConversationListerMock), ws.NewHub(), new(mocks.NotifierMock), nil)
	router := setupChatRouter(handler)

	chatRepo.On("GetChat", mock.Anything, 5).Return(models.Chat{ID: 5}, nil).Once()
	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages", bytes.NewBufferString(`{"content":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestPostChatMessageInvalidID(t *testing.T) {
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.ConversationListerMock), ws.NewHub(), new(mocks.NotifierMock), nil)
	router := setupChatRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/chats/bad/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkChatReadNotifies(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	notifier := new(mocks.NotifierMock)
	handler := NewChatHandler(chatRepo, messageRepo, new(mocks.ConversationListerMock), ws.NewHub(), notifier, nil)
	router := setupChatRouter(handler)

	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	messageRepo.On("MarkChatRead", mock.Anything, 5, 1).Return(3, nil).Once()
	notifier.On("NotifyRead", 1).Return().Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	notifier.AssertExpectations(t)
}

func TestMarkChatReadNothingUnreadSkipsNotify(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	notifier := new(mocks.NotifierMock)
	handler := NewChatHandler(chatRepo, messageRepo, new(mocks.ConversationListerMock), ws.NewHub(), notifier, nil)
	router := setupChatRouter(handler)

	chatRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	messageRepo.On("MarkChatRead", mock.Anything, 5, 1).Return(0, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	notifier.AssertNotCalled(t, "NotifyRead", 1)
}
