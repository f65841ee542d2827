package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"critico/internal/models"
)

var ErrReviewExists = errors.New("review already exists for this product")

// ReviewRepository handles reviews and comment-permission grants. The
// existence of a permission row is the sole authority for "may this user
// rate this product".
type ReviewRepository interface {
	HasCommentPermission(ctx context.Context, userID int, productID int) (bool, error)
	CreateReview(ctx context.Context, productID int, userID int, stars int, body string) (models.Review, error)
	ListReviews(ctx context.Context, productID int) ([]models.Review, error)
	CountReviewsByUser(ctx context.Context, userID int) (int, error)
}

// ReviewRepo is a sqlx implementation of ReviewRepository.
type ReviewRepo struct {
	db *sqlx.DB
}

// NewReviewRepo constructs a ReviewRepo.
func NewReviewRepo(db *sqlx.DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

// HasCommentPermission checks for a permission grant.
func (r *ReviewRepo) HasCommentPermission(ctx context.Context, userID int, productID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(
        SELECT 1 FROM comment_permissions WHERE user_id=$1 AND product_id=$2)`, userID, productID)
	return exists, err
}

// CreateReview inserts a review. At most one review per (user, product).
func (r *ReviewRepo) CreateReview(ctx context.Context, productID int, userID int, stars int, body string) (models.Review, error) {
	var review models.Review
	err := r.db.QueryRowxContext(ctx, `INSERT INTO reviews (product_id, user_id, stars, body)
        VALUES ($1, $2, $3, $4) RETURNING id, product_id, user_id, stars, body, created_at`,
		productID, userID, stars, body).StructScan(&review)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return models.Review{}, ErrReviewExists
	}
	return review, err
}

// ListReviews returns reviews for a product, newest first.
func (r *ReviewRepo) ListReviews(ctx context.Context, productID int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.SelectContext(ctx, &reviews, `SELECT id, product_id, user_id, stars, body, created_at
        FROM reviews WHERE product_id=$1 ORDER BY created_at DESC, id DESC`, productID)
	return reviews, err
}

// CountReviewsByUser counts reviews written by a user; feeds the trustlevel
// computation.
func (r *ReviewRepo) CountReviewsByUser(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reviews WHERE user_id=$1`, userID)
	return count, err
}
