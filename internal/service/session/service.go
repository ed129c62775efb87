// Package session maps opaque refresh tokens to users. Sessions are valid
// while unrevoked and unexpired; an expired session is reported distinctly so
// clients can trigger re-auth instead of generic 401 handling.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/userbase-net/userbase/internal/model"
	"github.com/userbase-net/userbase/internal/store"
)

type Database interface {
	InsertSession(ctx context.Context, session *model.Session) error
	GetSessionByTokenHash(ctx context.Context, hash string) (*model.Session, error)
	RevokeSession(ctx context.Context, hash string, at time.Time) error
}

type Service struct {
	db        Database
	jwtSecret []byte
	accessTTL time.Duration
	now       func() time.Time
}

var _ Database = (*store.Store)(nil)

func New(db Database, jwtSecret string, accessTTL time.Duration) *Service {
	return &Service{
		db:        db,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

// Resolve maps a presented refresh token to its owning user. Pure lookup, no
// mutation. Missing or revoked rows are Unauthorized; a present-but-stale row
// is SessionExpired.
func (s *Service) Resolve(ctx context.Context, token string) (model.UserID, error) {
	if token == "" {
		return "", model.ErrUnauthorized
	}

	session, err := s.db.GetSessionByTokenHash(ctx, model.HashToken(token))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", model.ErrUnauthorized
		}
		return "", fmt.Errorf("looking up session: %w", err)
	}
	if session.RevokedAt != nil {
		return "", model.ErrUnauthorized
	}
	if !s.now().Before(session.ExpiresAt) {
		return "", model.ErrSessionExpired
	}

	return session.UserID, nil
}

// Issue creates a session and returns the plaintext refresh token exactly
// once. Only its hash is persisted.
func (s *Service) Issue(ctx context.Context, userID model.UserID, ttl time.Duration) (string, *model.Session, error) {
	token := model.NewRefreshToken()
	now := s.now().UTC()
	session := &model.Session{
		ID:               model.CreateID(),
		UserID:           userID,
		RefreshTokenHash: model.HashToken(token),
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}
	if err := s.db.InsertSession(ctx, session); err != nil {
		return "", nil, fmt.Errorf("issuing session: %w", err)
	}
	return token, session, nil
}

// Revoke signs out the presented session. Revoking an unknown token is a
// no-op: sign-out is idempotent.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return model.ErrUnauthorized
	}
	if err := s.db.RevokeSession(ctx, model.HashToken(token), s.now().UTC()); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// AccessToken mints a short-lived HS256 token for downstream services from an
// already-resolved user.
func (s *Service) AccessToken(userID model.UserID) (string, time.Time, error) {
	if len(s.jwtSecret) == 0 {
		return "", time.Time{}, fmt.Errorf("%w: JWT_SECRET not set", model.ErrConfig)
	}

	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": string(userID),
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}
