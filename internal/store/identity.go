package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/userbase-net/userbase/internal/model"
)

// InsertIdentity records a newly verified identity. The unique index on
// (type, identifier) enforces single ownership; a constraint violation maps
// to model.ErrIdentityTaken.
func (s *Store) InsertIdentity(ctx context.Context, identity *model.Identity) error {
	_, err := s.db.NamedExecContext(ctx, `insert into identities
		(id, user_id, type, identifier, verified_at, is_primary, metadata, created_at)
		values(:id, :user_id, :type, :identifier, :verified_at, :is_primary, :metadata, :created_at)`, identity)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
			return model.ErrIdentityTaken
		}
		return fmt.Errorf("inserting identity: %w", err)
	}
	return nil
}

func (s *Store) GetIdentity(ctx context.Context, typ model.IdentityType, identifier string) (*model.Identity, error) {
	identity := &model.Identity{}
	err := s.db.GetContext(ctx, identity,
		`select * from identities where type = ? and identifier = ?`, typ, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("fetching identity: %w", err)
	}
	return identity, nil
}

func (s *Store) GetIdentityByID(ctx context.Context, id string) (*model.Identity, error) {
	identity := &model.Identity{}
	err := s.db.GetContext(ctx, identity, `select * from identities where id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("fetching identity: %w", err)
	}
	return identity, nil
}

func (s *Store) ListIdentities(ctx context.Context, userID model.UserID) ([]*model.Identity, error) {
	identities := []*model.Identity{}
	err := s.db.SelectContext(ctx, &identities,
		`select * from identities where user_id = ? order by created_at asc`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing identities: %w", err)
	}
	return identities, nil
}

func (s *Store) DeleteIdentity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from identities where id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting identity: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) CountIdentities(ctx context.Context, userID model.UserID) (int, error) {
	return s.countForUser(ctx, "identities", userID)
}

func (s *Store) CountSessions(ctx context.Context, userID model.UserID) (int, error) {
	return s.countForUser(ctx, "sessions", userID)
}

func (s *Store) CountAuthMethods(ctx context.Context, userID model.UserID) (int, error) {
	return s.countForUser(ctx, "auth_methods", userID)
}

func (s *Store) CountSoftPosts(ctx context.Context, userID model.UserID) (int, error) {
	return s.countForUser(ctx, "soft_posts", userID)
}

func (s *Store) CountSoftVotes(ctx context.Context, userID model.UserID) (int, error) {
	return s.countForUser(ctx, "soft_votes", userID)
}

// countForUser fetches a bare count(*), never row payloads.
func (s *Store) countForUser(ctx context.Context, table string, userID model.UserID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`select count(*) from `+table+` where user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return count, nil
}
