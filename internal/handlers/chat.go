package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"critico/internal/conversations"
	"critico/internal/models"
	"critico/internal/repositories"
	"critico/internal/telemetry"
)

// chatBroadcaster is the hub surface the chat handler needs.
type chatBroadcaster interface {
	BroadcastChatMessage(chatID int, msg models.Message)
}

// feedNotifier pushes conversation-list events to user feeds.
type feedNotifier interface {
	NotifyMessage(ctx context.Context, userID int, event models.FeedEvent)
	NotifyRead(userID int)
}

// conversationLister computes the conversation-list projection.
type conversationLister interface {
	List(ctx context.Context, userID int, search string) (conversations.Overview, error)
}

// ChatHandler manages direct-chat endpoints.
type ChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	convos      conversationLister
	hub         chatBroadcaster
	notifier    feedNotifier
	audit       *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, convos conversationLister, hub chatBroadcaster, notifier feedNotifier, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		convos:      convos,
		hub:         hub,
		notifier:    notifier,
		audit:       audit,
	}
}

// ListConversations returns previews for all direct chats of the caller,
// optionally narrowed by ?search=, plus the global unread badge.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	overview, err := h.convos.List(c.Request.Context(), userID, c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, overview)
}

// StartChat creates or returns the direct chat with another user.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		PartnerID int `json:"partner_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if userID == req.PartnerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	chat, err := h.chatRepo.CreateOrGetDirectChat(c.Request.Context(), userID, req.PartnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_id": chat.ID})
}

// GetChatMessages returns the direct-chat history in created_at ascending
// order. Redemption-link messages only appear for the user they are
// addressed to.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID := c.GetInt("userID")
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	msgs, err := h.messageRepo.GetChatHistory(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage stores a direct message, broadcasts it to the chat room
// and notifies the receiver's feed. Empty or whitespace-only content is a
// no-op: no row is created.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID := c.GetInt("userID")
	chat, err := h.chatRepo.GetChat(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}
	if !chat.IsDirect() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a direct chat"})
		return
	}

	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
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
		c.JSON(http.StatusBadRequest, gin.H{"error": "message content is empty"})
		return
	}

	partner, err := h.chatRepo.GetPartner(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve chat partner"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), models.Message{
		ChatID:     chatID,
		SenderID:   userID,
		ReceiverID: &partner.ID,
		Content:    req.Content,
		Type:       models.MessageDirect,
	})
	if err != nil {
		h.audit.Emit(c.Request.Context(), "ERROR", "message insert failed", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.hub.BroadcastChatMessage(chatID, msg)
	h.notifier.NotifyMessage(c.Request.Context(), partner.ID, models.FeedEvent{Type: "message", Message: &msg})
	c.JSON(http.StatusCreated, msg)
}

// MarkChatRead flips the read flag on all direct messages addressed to the
// caller in the chat. A debounced badge push follows.
func (h *ChatHandler) MarkChatRead(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID := c.GetInt("userID")
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	updated, err := h.messageRepo.MarkChatRead(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark chat read"})
		return
	}

	if updated > 0 {
		h.notifier.NotifyRead(userID)
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
