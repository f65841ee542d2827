// Package conversations builds the conversation-list projection: one preview
// per direct chat with partner info, last message and unread count, plus the
// global unread badge.
package conversations

import (
	"context"
	"errors"
	"sort"
	"strings"

	"critico/internal/models"
	"critico/internal/repositories"
)

// Overview is the full conversation-list payload for a user.
type Overview struct {
	Conversations []models.ChatPreview `json:"conversations"`
	UnreadTotal   int                  `json:"unread_total"`
}

// Service aggregates chats, messages and users into previews.
type Service struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
}

// NewService constructs a Service.
func NewService(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository) *Service {
	return &Service{chatRepo: chatRepo, messageRepo: messageRepo}
}

// List computes previews for all direct chats of the user, newest activity
// first. When search is non-empty the result is narrowed to conversations
// whose partner full name or last message contains it (case-insensitive);
// the unread badge is always computed over the unfiltered set. A chat whose
// partner row is missing is silently skipped.
func (s *Service) List(ctx context.Context, userID int, search string) (Overview, error) {
	chatIDs, err := s.chatRepo.ListDirectChatIDs(ctx, userID)
	if err != nil {
		return Overview{}, err
	}

	previews := make([]models.ChatPreview, 0, len(chatIDs))
	unreadTotal := 0
	for _, chatID := range chatIDs {
		partner, err := s.chatRepo.GetPartner(ctx, chatID, userID)
		if errors.Is(err, repositories.ErrPartnerNotFound) {
			continue
		}
		if err != nil {
			return Overview{}, err
		}

		preview := models.ChatPreview{
			ChatID:         chatID,
			PartnerID:      partner.ID,
			PartnerName:    partner.Name,
			PartnerSurname: partner.Surname,
			PartnerPicture: partner.PictureURL,
		}

		last, err := s.messageRepo.LastDirectMessage(ctx, chatID)
		switch {
		case err == nil:
			preview.LastMessage = last.Content
			preview.LastMessageTime = last.CreatedAt
		case errors.Is(err, repositories.ErrMessageNotFound):
			// chat exists but nothing said yet
		default:
			return Overview{}, err
		}

		unread, err := s.messageRepo.UnreadDirectCount(ctx, chatID, userID)
		if err != nil {
			return Overview{}, err
		}
		preview.UnreadCount = unread
		unreadTotal += unread

		previews = append(previews, preview)
	}

	sort.SliceStable(previews, func(i, j int) bool {
		return previews[i].LastMessageTime.After(previews[j].LastMessageTime)
	})

	if search != "" {
		previews = filterPreviews(previews, search)
	}

	return Overview{Conversations: previews, UnreadTotal: unreadTotal}, nil
}

// UnreadTotal sums unread direct messages addressed to the user across all
// conversations. Used for badge pushes on the user feed.
func (s *Service) UnreadTotal(ctx context.Context, userID int) (int, error) {
	chatIDs, err := s.chatRepo.ListDirectChatIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, chatID := range chatIDs {
		unread, err := s.messageRepo.UnreadDirectCount(ctx, chatID, userID)
		if err != nil {
			return 0, err
		}
		total += unread
	}
	return total, nil
}

func filterPreviews(previews []models.ChatPreview, search string) []models.ChatPreview {
	needle := strings.ToLower(search)
	filtered := previews[:0]
	for _, p := range previews {
		fullName := strings.ToLower(strings.TrimSpace(p.PartnerName + " " + p.PartnerSurname))
		if strings.Contains(fullName, needle) || strings.Contains(strings.ToLower(p.LastMessage), needle) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
