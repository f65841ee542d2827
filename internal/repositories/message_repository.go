package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"critico/internal/models"
)

var (
	ErrMessageNotFound   = errors.New("message not found")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrProductIDMismatch = errors.New("message type and product reference do not match")
)

// MessageRepository defines interactions for chat and thread messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	GetChatHistory(ctx context.Context, chatID int, viewerID int) ([]models.Message, error)
	GetProductThreadMessages(ctx context.Context, chatID int) ([]models.Message, error)
	LastDirectMessage(ctx context.Context, chatID int) (models.Message, error)
	UnreadDirectCount(ctx context.Context, chatID int, userID int) (int, error)
	MarkChatRead(ctx context.Context, chatID int, readerID int) (int, error)
	PendingRequests(ctx context.Context, userID int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, chat_id, sender_id, receiver_id, product_id, content, message_type, read, created_at`

// CreateMessage inserts a message after enforcing the type/product invariant:
// request-family and product messages must carry a product id, direct ones
// must not.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if !msg.Type.Valid() {
		return models.Message{}, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, msg.Type)
	}
	if msg.Type.CarriesProduct() != (msg.ProductID != nil) {
		return models.Message{}, ErrProductIDMismatch
	}

	var out models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (chat_id, sender_id, receiver_id, product_id, content, message_type, read)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+messageColumns,
		msg.ChatID, msg.SenderID, msg.ReceiverID, msg.ProductID, msg.Content, msg.Type, msg.Read).StructScan(&out)
	return out, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// GetChatHistory returns the direct-chat view of a conversation in
// created_at ascending order. Product-thread messages never appear here;
// QR-ready messages appear only for the user they are addressed to, so the
// redemption link is never served to the other party.
func (r *MessageRepo) GetChatHistory(ctx context.Context, chatID int, viewerID int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
        WHERE chat_id=$1
        AND (message_type IN ('direct', 'request', 'request_accepted', 'request_declined')
            OR (message_type = 'request_qr_ready' AND receiver_id=$2))
        ORDER BY created_at ASC, id ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, chatID, viewerID)
	return msgs, err
}

// GetProductThreadMessages returns product comments oldest first.
func (r *MessageRepo) GetProductThreadMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
        WHERE chat_id=$1 AND message_type='product'
        ORDER BY created_at ASC, id ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, chatID)
	return msgs, err
}

// LastDirectMessage returns the newest direct message of a chat.
func (r *MessageRepo) LastDirectMessage(ctx context.Context, chatID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages
        WHERE chat_id=$1 AND message_type='direct'
        ORDER BY created_at DESC, id DESC LIMIT 1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UnreadDirectCount counts unread direct messages addressed to the user.
func (r *MessageRepo) UnreadDirectCount(ctx context.Context, chatID int, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages
        WHERE chat_id=$1 AND receiver_id=$2 AND message_type='direct' AND read=FALSE`, chatID, userID)
	return count, err
}

// MarkChatRead flips the read flag on all direct messages addressed to the
// reader in the chat and reports how many rows changed.
func (r *MessageRepo) MarkChatRead(ctx context.Context, chatID int, readerID int) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read=TRUE
        WHERE chat_id=$1 AND receiver_id=$2 AND message_type='direct' AND read=FALSE`, chatID, readerID)
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	return int(count), err
}

// PendingRequests returns unresolved test requests addressed to the user,
// newest first.
func (r *MessageRepo) PendingRequests(ctx context.Context, userID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE receiver_id=$1 AND message_type='request'
        ORDER BY created_at DESC, id DESC`, userID)
	return msgs, err
}
