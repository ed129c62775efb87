package model

import "time"

// IdentityChallenge is a server-issued, nonce-bound message a user signs with
// an external identity's key to prove ownership. The nonce is only ever
// transported inside the message text; it is never returned separately.
type IdentityChallenge struct {
	ID         string       `db:"id" json:"id"`
	UserID     UserID       `db:"user_id" json:"user_id"`
	Type       IdentityType `db:"type" json:"type"`
	Identifier string       `db:"identifier" json:"identifier"`
	Nonce      string       `db:"nonce" json:"-"`
	Message    string       `db:"message" json:"message"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	ExpiresAt  time.Time    `db:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time   `db:"consumed_at" json:"-"`
}
