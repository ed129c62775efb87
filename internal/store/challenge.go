package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/userbase-net/userbase/internal/model"
)

func (s *Store) InsertChallenge(ctx context.Context, challenge *model.IdentityChallenge) error {
	_, err := s.db.NamedExecContext(ctx, `insert into identity_challenges
		(id, user_id, type, identifier, nonce, message, created_at, expires_at, consumed_at)
		values(:id, :user_id, :type, :identifier, :nonce, :message, :created_at, :expires_at, :consumed_at)`, challenge)
	if err != nil {
		return fmt.Errorf("inserting challenge: %w", err)
	}
	return nil
}

func (s *Store) GetChallengeByNonce(ctx context.Context, userID model.UserID, nonce string) (*model.IdentityChallenge, error) {
	challenge := &model.IdentityChallenge{}
	err := s.db.GetContext(ctx, challenge,
		`select * from identity_challenges where user_id = ? and nonce = ?`, userID, nonce)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("fetching challenge: %w", err)
	}
	return challenge, nil
}

// ConsumeChallenge stamps a challenge as used. Each nonce is single-purpose:
// a consumed challenge can never satisfy a second verification.
func (s *Store) ConsumeChallenge(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update identity_challenges set consumed_at = ? where id = ? and consumed_at is null`, at, id)
	if err != nil {
		return fmt.Errorf("consuming challenge: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return model.ErrChallengeExpired
	}
	return nil
}

func (s *Store) DeleteExpiredChallenges(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from identity_challenges where expires_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("deleting expired challenges: %w", err)
	}
	rows, _ := res.RowsAffected()
	return int(rows), nil
}
