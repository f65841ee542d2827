package models

import "time"

// Chat is a conversation container. ProductID is nil for a 1:1 direct chat
// and set for a product comment thread.
type Chat struct {
	ID        int       `db:"id" json:"id"`
	ProductID *int      `db:"product_id" json:"product_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsDirect reports whether the chat is a 1:1 conversation.
func (c Chat) IsDirect() bool {
	return c.ProductID == nil
}

// ChatPreview is the derived projection shown in the conversation list.
// It is recomputed on every load and never persisted.
type ChatPreview struct {
	ChatID          int       `json:"chat_id"`
	PartnerID       int       `json:"partner_id"`
	PartnerName     string    `json:"partner_name"`
	PartnerSurname  string    `json:"partner_surname"`
	PartnerPicture  string    `json:"partner_picture,omitempty"`
	LastMessage     string    `json:"last_message,omitempty"`
	LastMessageTime time.Time `json:"last_message_time,omitempty"`
	UnreadCount     int       `json:"unread_count"`
}
