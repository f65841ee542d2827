package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"critico/internal/models"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenRepository reads request tokens. Minting and redemption happen inside
// the request service's transactions; this repository only serves lookups
// (QR rendering, owner views).
type TokenRepository interface {
	GetToken(ctx context.Context, token string) (models.RequestToken, error)
}

// TokenRepo is a sqlx implementation of TokenRepository.
type TokenRepo struct {
	db *sqlx.DB
}

// NewTokenRepo constructs a TokenRepo.
func NewTokenRepo(db *sqlx.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// GetToken fetches a token row.
func (r *TokenRepo) GetToken(ctx context.Context, token string) (models.RequestToken, error) {
	var t models.RequestToken
	err := r.db.GetContext(ctx, &t, `SELECT token, product_id, owner_id, tester_id, created_at, redeemed_at
        FROM request_tokens WHERE token=$1`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RequestToken{}, ErrTokenNotFound
	}
	return t, err
}
