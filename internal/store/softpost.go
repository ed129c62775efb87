package store

import (
	"context"
	"fmt"

	"github.com/userbase-net/userbase/internal/model"
)

func (s *Store) InsertSoftPost(ctx context.Context, post *model.SoftPost) error {
	_, err := s.db.NamedExecContext(ctx, `insert into soft_posts
		(id, author, permlink, type, metadata, user_id, safe_user)
		values(:id, :author, :permlink, :type, :metadata, :user_id, :safe_user)`, post)
	if err != nil {
		return fmt.Errorf("inserting soft post: %w", err)
	}
	return nil
}

// SelectSoftPostsByPairs is the exact (author, permlink) lookup pass.
func (s *Store) SelectSoftPostsByPairs(ctx context.Context, pairs [][2]string) ([]*model.SoftPost, error) {
	posts := []*model.SoftPost{}
	if len(pairs) == 0 {
		return posts, nil
	}
	clause, args := pairClause(pairs)
	if err := s.db.SelectContext(ctx, &posts,
		`select * from soft_posts where `+clause, args...); err != nil {
		return nil, fmt.Errorf("selecting soft posts: %w", err)
	}
	return posts, nil
}

// SelectSoftPostsBySafeUsers is the alias pass: a deliberately broad fetch by
// safe_user and permlink sets. Callers must filter results back to the
// requested key set.
func (s *Store) SelectSoftPostsBySafeUsers(ctx context.Context, safeUsers, permlinks []string) ([]*model.SoftPost, error) {
	posts := []*model.SoftPost{}
	if len(safeUsers) == 0 || len(permlinks) == 0 {
		return posts, nil
	}
	query, args, err := sqlxIn(
		`select * from soft_posts where safe_user in (?) and permlink in (?)`,
		safeUsers, permlinks)
	if err != nil {
		return nil, err
	}
	if err := s.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("selecting soft posts by safe user: %w", err)
	}
	return posts, nil
}
