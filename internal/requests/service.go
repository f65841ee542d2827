// Package requests implements the test-request lifecycle: a tester asks to
// trial a product, the owner accepts or declines, acceptance mints a one-time
// redemption token, and redeeming the token grants comment permission.
//
// All multi-row workflows run in single database transactions so a failure
// can never strand a half-applied request.
package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"critico/internal/models"
	"critico/internal/repositories"
)

var (
	ErrNotARequest     = errors.New("message is not a test request")
	ErrAlreadyResolved = errors.New("request already resolved")
	ErrNotOwner        = errors.New("only the product owner may resolve a request")
	ErrOwnProduct      = errors.New("cannot request to test your own product")
	ErrRequestPending  = errors.New("a request for this product is already pending")
	ErrTokenNotFound   = errors.New("token not found")
	ErrTokenRedeemed   = errors.New("token already redeemed")
	ErrNotTester       = errors.New("token belongs to a different tester")
)

// AcceptResult carries the rows produced by accepting a request.
type AcceptResult struct {
	Request      models.Message      `json:"request"`
	TokenMessage models.Message      `json:"token_message"`
	Token        models.RequestToken `json:"token"`
}

// Service drives the request message state machine.
type Service interface {
	Create(ctx context.Context, testerID int, productID int) (models.Message, error)
	Accept(ctx context.Context, callerID int, messageID int) (AcceptResult, error)
	Decline(ctx context.Context, callerID int, messageID int) (models.Message, error)
	Redeem(ctx context.Context, testerID int, token string) (int, error)
}

// RequestService is the sqlx-backed implementation.
type RequestService struct {
	db       *sqlx.DB
	chatRepo repositories.ChatRepository
	baseURL  string

	ownerMu sync.RWMutex
	owners  map[int]int
}

// NewService constructs a RequestService. baseURL is the public address used
// to build token activation links.
func NewService(db *sqlx.DB, chatRepo repositories.ChatRepository, baseURL string) *RequestService {
	return &RequestService{
		db:       db,
		chatRepo: chatRepo,
		baseURL:  baseURL,
		owners:   make(map[int]int),
	}
}

// validateResolvable checks that a message may undergo an accept or decline
// transition. Terminal states are never re-enterable.
func validateResolvable(t models.MessageType) error {
	switch t {
	case models.MessageRequest:
		return nil
	case models.MessageRequestAccepted, models.MessageRequestDeclined, models.MessageRequestQRReady:
		return ErrAlreadyResolved
	default:
		return ErrNotARequest
	}
}

// ActivationURL builds the public link a tester follows to redeem a token.
func ActivationURL(baseURL, token string) string {
	return baseURL + "/activate/" + token
}

// ownerOf resolves a product to its owner, caching the result. Ownership
// never changes, so the cache has no invalidation.
func (s *RequestService) ownerOf(ctx context.Context, q sqlx.QueryerContext, productID int) (int, error) {
	s.ownerMu.RLock()
	ownerID, ok := s.owners[productID]
	s.ownerMu.RUnlock()
	if ok {
		return ownerID, nil
	}

	if err := sqlx.GetContext(ctx, q, &ownerID, `SELECT owner_id FROM products WHERE id=$1`, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repositories.ErrProductNotFound
		}
		return 0, err
	}

	s.ownerMu.Lock()
	s.owners[productID] = ownerID
	s.ownerMu.Unlock()
	return ownerID, nil
}

// Create files a test request: it reuses or creates the direct chat between
// tester and owner, then checks for a pending duplicate and inserts the
// request message addressed to the owner in one transaction. The partial
// unique index on pending requests backstops the check, so a concurrent
// duplicate loses the insert race and still surfaces as ErrRequestPending.
func (s *RequestService) Create(ctx context.Context, testerID int, productID int) (models.Message, error) {
	ownerID, err := s.ownerOf(ctx, s.db, productID)
	if err != nil {
		return models.Message{}, err
	}
	if ownerID == testerID {
		return models.Message{}, ErrOwnProduct
	}

	chat, err := s.chatRepo.CreateOrGetDirectChat(ctx, testerID, ownerID)
	if err != nil {
		return models.Message{}, fmt.Errorf("get or create chat: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var pending bool
	if err := tx.GetContext(ctx, &pending, `SELECT EXISTS(
        SELECT 1 FROM messages WHERE sender_id=$1 AND product_id=$2 AND message_type='request')`,
		testerID, productID); err != nil {
		return models.Message{}, err
	}
	if pending {
		return models.Message{}, ErrRequestPending
	}

	var msg models.Message
	err = tx.QueryRowxContext(ctx, `INSERT INTO messages (chat_id, sender_id, receiver_id, product_id, content, message_type, read)
        VALUES ($1, $2, $3, $4, $5, 'request', FALSE)
        RETURNING id, chat_id, sender_id, receiver_id, product_id, content, message_type, read, created_at`,
		chat.ID, testerID, ownerID, productID, "Test request").StructScan(&msg)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return models.Message{}, ErrRequestPending
		}
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Accept resolves a pending request in one transaction: the request message
// flips to request_accepted, a redemption token is minted for the tester,
// and an owner-addressed QR-ready message carrying the activation link is
// inserted. Only the product owner may accept; terminal states are rejected
// without mutation.
func (s *RequestService) Accept(ctx context.Context, callerID int, messageID int) (AcceptResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return AcceptResult{}, err
	}
	defer tx.Rollback()

	msg, err := s.lockRequest(ctx, tx, messageID)
	if err != nil {
		return AcceptResult{}, err
	}
	if err := validateResolvable(msg.Type); err != nil {
		return AcceptResult{}, err
	}

	ownerID, err := s.ownerOf(ctx, tx, *msg.ProductID)
	if err != nil {
		return AcceptResult{}, err
	}
	if callerID != ownerID {
		return AcceptResult{}, ErrNotOwner
	}
	testerID := msg.SenderID

	if err := tx.QueryRowxContext(ctx, `UPDATE messages SET message_type='request_accepted', read=TRUE
        WHERE id=$1
        RETURNING id, chat_id, sender_id, receiver_id, product_id, content, message_type, read, created_at`,
		messageID).StructScan(&msg); err != nil {
		return AcceptResult{}, err
	}

	token := models.RequestToken{}
	if err := tx.QueryRowxContext(ctx, `INSERT INTO request_tokens (token, product_id, owner_id, tester_id)
        VALUES ($1, $2, $3, $4)
        RETURNING token, product_id, owner_id, tester_id, created_at, redeemed_at`,
		uuid.NewString(), *msg.ProductID, ownerID, testerID).StructScan(&token); err != nil {
		return AcceptResult{}, err
	}

	var tokenMsg models.Message
	if err := tx.QueryRowxContext(ctx, `INSERT INTO messages (chat_id, sender_id, receiver_id, product_id, content, message_type, read)
        VALUES ($1, $2, $3, $4, $5, 'request_qr_ready', TRUE)
        RETURNING id, chat_id, sender_id, receiver_id, product_id, content, message_type, read, created_at`,
		msg.ChatID, ownerID, ownerID, *msg.ProductID, ActivationURL(s.baseURL, token.Token)).StructScan(&tokenMsg); err != nil {
		return AcceptResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return AcceptResult{}, err
	}
	return AcceptResult{Request: msg, TokenMessage: tokenMsg, Token: token}, nil
}

// Decline resolves a pending request as declined. No token is minted.
func (s *RequestService) Decline(ctx context.Context, callerID int, messageID int) (models.Message, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	msg, err := s.lockRequest(ctx, tx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if err := validateResolvable(msg.Type); err != nil {
		return models.Message{}, err
	}

	ownerID, err := s.ownerOf(ctx, tx, *msg.ProductID)
	if err != nil {
		return models.Message{}, err
	}
	if callerID != ownerID {
		return models.Message{}, ErrNotOwner
	}

	if err := tx.QueryRowxContext(ctx, `UPDATE messages SET message_type='request_declined', read=TRUE
        WHERE id=$1
        RETURNING id, chat_id, sender_id, receiver_id, product_id, content, message_type, read, created_at`,
		messageID).StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Redeem consumes a token exactly once: it stamps redeemed_at and grants the
// tester comment permission for the product, returning the product id.
func (s *RequestService) Redeem(ctx context.Context, testerID int, token string) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var t models.RequestToken
	err = tx.GetContext(ctx, &t, `SELECT token, product_id, owner_id, tester_id, created_at, redeemed_at
        FROM request_tokens WHERE token=$1 FOR UPDATE`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, err
	}
	if t.Redeemed() {
		return 0, ErrTokenRedeemed
	}
	if t.TesterID != testerID {
		return 0, ErrNotTester
	}

	if _, err := tx.ExecContext(ctx, `UPDATE request_tokens SET redeemed_at=NOW() WHERE token=$1`, token); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO comment_permissions (user_id, product_id) VALUES ($1, $2)
        ON CONFLICT DO NOTHING`, t.TesterID, t.ProductID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return t.ProductID, nil
}

func (s *RequestService) lockRequest(ctx context.Context, tx *sqlx.Tx, messageID int) (models.Message, error) {
	var msg models.Message
	err := tx.GetContext(ctx, &msg, `SELECT id, chat_id, sender_id, receiver_id, product_id, content, message_type, read, created_at
        FROM messages WHERE id=$1 FOR UPDATE`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, repositories.ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	if msg.ProductID == nil {
		return models.Message{}, ErrNotARequest
	}
	return msg, nil
}
