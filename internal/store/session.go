package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/userbase-net/userbase/internal/model"
)

func (s *Store) InsertSession(ctx context.Context, session *model.Session) error {
	_, err := s.db.NamedExecContext(ctx, `insert into sessions
		(id, user_id, refresh_token_hash, created_at, expires_at, revoked_at)
		values(:id, :user_id, :refresh_token_hash, :created_at, :expires_at, :revoked_at)`, session)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, hash string) (*model.Session, error) {
	session := &model.Session{}
	err := s.db.GetContext(ctx, session,
		`select * from sessions where refresh_token_hash = ?`, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("fetching session: %w", err)
	}
	return session, nil
}

func (s *Store) RevokeSession(ctx context.Context, hash string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set revoked_at = ? where refresh_token_hash = ? and revoked_at is null`, at, hash)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}
