package models

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           int       `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Surname      string    `db:"surname" json:"surname"`
	PictureURL   string    `db:"picture_url" json:"picture_url,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FullName joins name and surname for display and search.
func (u User) FullName() string {
	if u.Surname == "" {
		return u.Name
	}
	return u.Name + " " + u.Surname
}

// Trustlevel is the gamification tier derived from a user's review count.
type Trustlevel struct {
	Tier        string `json:"tier"`
	EXP         int    `json:"exp"`
	ReviewCount int    `json:"review_count"`
}

const expPerReview = 25

// TrustlevelFor computes the tier and point total for a review count.
func TrustlevelFor(reviewCount int) Trustlevel {
	tier := "Newcomer"
	switch {
	case reviewCount >= 30:
		tier = "Elite"
	case reviewCount >= 12:
		tier = "Critic"
	case reviewCount >= 4:
		tier = "Reviewer"
	}
	return Trustlevel{Tier: tier, EXP: reviewCount * expPerReview, ReviewCount: reviewCount}
}
