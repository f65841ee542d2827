package models

import "time"

// Product is a listed item users can request to test and review.
type Product struct {
	ID          int       `db:"id" json:"id"`
	OwnerID     int       `db:"owner_id" json:"owner_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	PriceCents  int       `db:"price_cents" json:"price_cents"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	Tags   []string `json:"tags,omitempty"`
	Images []string `json:"images,omitempty"`
}

// ProductSummary augments a product with aggregates for listing pages.
type ProductSummary struct {
	Product
	OwnerName   string  `json:"owner_name"`
	AvgStars    float64 `json:"avg_stars"`
	ReviewCount int     `json:"review_count"`
}
