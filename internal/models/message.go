package models

import "time"

// MessageType is the closed set of message kinds Critico knows about.
type MessageType string

const (
	MessageDirect          MessageType = "direct"
	MessageRequest         MessageType = "request"
	MessageRequestQRReady  MessageType = "request_qr_ready"
	MessageRequestAccepted MessageType = "request_accepted"
	MessageRequestDeclined MessageType = "request_declined"
	MessageProduct         MessageType = "product"
)

// IsRequestFamily reports whether the type belongs to the test-request lifecycle.
func (t MessageType) IsRequestFamily() bool {
	switch t {
	case MessageRequest, MessageRequestQRReady, MessageRequestAccepted, MessageRequestDeclined:
		return true
	}
	return false
}

// CarriesProduct reports whether a message of this type must reference a product.
func (t MessageType) CarriesProduct() bool {
	return t.IsRequestFamily() || t == MessageProduct
}

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	return t == MessageDirect || t.CarriesProduct()
}

// Message represents a row in the messages table. Rows are immutable once
// written except for the read flag and, for request messages, the type flip
// performed by the request state machine.
type Message struct {
	ID         int         `db:"id" json:"id"`
	ChatID     int         `db:"chat_id" json:"chat_id"`
	SenderID   int         `db:"sender_id" json:"sender_id"`
	ReceiverID *int        `db:"receiver_id" json:"receiver_id,omitempty"`
	ProductID  *int        `db:"product_id" json:"product_id,omitempty"`
	Content    string      `db:"content" json:"content"`
	Type       MessageType `db:"message_type" json:"message_type"`
	Read       bool        `db:"read" json:"read"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// ChatEvent is broadcasted through chat and product-thread websockets.
type ChatEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
}

// FeedEvent is pushed on a user's feed connection to keep the conversation
// list and the unread badge live.
type FeedEvent struct {
	Type        string   `json:"type"`
	Message     *Message `json:"message,omitempty"`
	UnreadTotal int      `json:"unread_total"`
}
