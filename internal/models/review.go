package models

import "time"

// Review is a star-rated product review. At most one per (user, product),
// gated by a comment-permission grant.
type Review struct {
	ID        int       `db:"id" json:"id"`
	ProductID int       `db:"product_id" json:"product_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Stars     int       `db:"stars" json:"stars"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
