package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"

	"critico/internal/models"
)

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrPartnerNotFound = errors.New("chat partner not found")
)

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	CreateOrGetDirectChat(ctx context.Context, userID int, partnerID int) (models.Chat, error)
	CreateOrGetProductThread(ctx context.Context, productID int) (models.Chat, error)
	GetChat(ctx context.Context, chatID int) (models.Chat, error)
	IsParticipant(ctx context.Context, chatID int, userID int) (bool, error)
	ListDirectChatIDs(ctx context.Context, userID int) ([]int, error)
	GetPartner(ctx context.Context, chatID int, userID int) (models.User, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateOrGetDirectChat returns the direct chat between two users, creating
// it on first interaction. The operation is idempotent for a given pair.
func (r *ChatRepo) CreateOrGetDirectChat(ctx context.Context, userID int, partnerID int) (models.Chat, error) {
	if userID == partnerID {
		return models.Chat{}, errors.New("cannot create chat with self")
	}
	participants := []int{userID, partnerID}
	sort.Ints(participants)

	var chat models.Chat
	query := `SELECT c.id, c.product_id, c.created_at FROM chats c
        JOIN chat_participants p1 ON p1.chat_id = c.id AND p1.user_id = $1
        JOIN chat_participants p2 ON p2.chat_id = c.id AND p2.user_id = $2
        WHERE c.product_id IS NULL`
	err := r.db.GetContext(ctx, &chat, query, participants[0], participants[1])
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer tx.Rollback()

	if err := tx.QueryRowxContext(ctx, `INSERT INTO chats (product_id) VALUES (NULL) RETURNING id, product_id, created_at`).StructScan(&chat); err != nil {
		return models.Chat{}, err
	}
	for _, id := range participants {
		if _, err := tx.ExecContext(ctx, `INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2)`, chat.ID, id); err != nil {
			return models.Chat{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// CreateOrGetProductThread returns the comment thread chat for a product,
// creating it lazily. At most one thread exists per product.
func (r *ChatRepo) CreateOrGetProductThread(ctx context.Context, productID int) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT id, product_id, created_at FROM chats WHERE product_id=$1`, productID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, err
	}

	err = r.db.QueryRowxContext(ctx, `INSERT INTO chats (product_id) VALUES ($1)
        ON CONFLICT (product_id) WHERE product_id IS NOT NULL DO UPDATE SET product_id = EXCLUDED.product_id
        RETURNING id, product_id, created_at`, productID).StructScan(&chat)
	return chat, err
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT id, product_id, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// IsParticipant checks whether a user belongs to the chat. Product threads
// are open to everyone.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(
        SELECT 1 FROM chats c WHERE c.id=$1 AND (c.product_id IS NOT NULL
            OR EXISTS(SELECT 1 FROM chat_participants p WHERE p.chat_id=c.id AND p.user_id=$2)))`, chatID, userID)
	return exists, err
}

// ListDirectChatIDs returns ids of all direct chats the user participates in.
func (r *ChatRepo) ListDirectChatIDs(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT c.id FROM chats c
        JOIN chat_participants p ON p.chat_id = c.id AND p.user_id = $1
        WHERE c.product_id IS NULL`, userID)
	return ids, err
}

// GetPartner returns the other participant of a direct chat.
func (r *ChatRepo) GetPartner(ctx context.Context, chatID int, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT u.id, u.email, u.password_hash, u.name, u.surname, u.picture_url, u.created_at
        FROM users u
        JOIN chat_participants p ON p.user_id = u.id
        WHERE p.chat_id = $1 AND p.user_id <> $2`, chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrPartnerNotFound
	}
	return user, err
}
