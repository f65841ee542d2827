package models

import "time"

// RequestToken is the one-time credential minted when a product owner accepts
// a test request. Owner and tester are stored explicitly; sender/receiver
// conventions on messages are never used to resolve roles.
type RequestToken struct {
	Token      string     `db:"token" json:"token"`
	ProductID  int        `db:"product_id" json:"product_id"`
	OwnerID    int        `db:"owner_id" json:"owner_id"`
	TesterID   int        `db:"tester_id" json:"tester_id"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	RedeemedAt *time.Time `db:"redeemed_at" json:"redeemed_at,omitempty"`
}

// Redeemed reports whether the token has already been activated.
func (t RequestToken) Redeemed() bool {
	return t.RedeemedAt != nil
}
