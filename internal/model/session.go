package model

import "time"

// Session is an authenticated browser session. Only the SHA-256 hash of the
// refresh token is ever persisted; the plaintext lives in the httpOnly
// cookie and nowhere else.
type Session struct {
	ID               string     `db:"id" json:"id"`
	UserID           UserID     `db:"user_id" json:"user_id"`
	RefreshTokenHash string     `db:"refresh_token_hash" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt        time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt        *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// Valid reports whether the session is usable at the given instant.
func (s *Session) Valid(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
