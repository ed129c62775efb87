package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/userbase-net/userbase/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	res, err := s.db.NamedExecContext(ctx, `insert into users
		(id, display_name, handle, avatar_url, created_at)
		values(:id, :display_name, :handle, :avatar_url, :created_at)`, user)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	} else if rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	user := &model.User{}
	err := s.db.GetContext(ctx, user, `select * from users where id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUsers(ctx context.Context, ids []model.UserID) (map[model.UserID]*model.User, error) {
	result := make(map[model.UserID]*model.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query, args, err := sqlxIn(`select * from users where id in (?)`, ids)
	if err != nil {
		return nil, err
	}
	users := []*model.User{}
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("fetching users: %w", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}
