package store

import (
	"context"
	"fmt"
	"time"

	"github.com/userbase-net/userbase/internal/model"
)

// UpsertSoftVote records a vote intent. (user_id, author, permlink) is the
// idempotency key: repeating the same intent updates weight and re-queues the
// row instead of queueing a duplicate broadcast.
func (s *Store) UpsertSoftVote(ctx context.Context, vote *model.SoftVote) error {
	_, err := s.db.NamedExecContext(ctx, `insert into soft_votes
		(id, user_id, author, permlink, weight, status, error, created_at, updated_at, broadcasted_at)
		values(:id, :user_id, :author, :permlink, :weight, :status, :error, :created_at, :updated_at, :broadcasted_at)
		on conflict(user_id, author, permlink) do update set
			weight = excluded.weight,
			status = excluded.status,
			error = '',
			updated_at = excluded.updated_at`, vote)
	if err != nil {
		return fmt.Errorf("upserting soft vote: %w", err)
	}
	return nil
}

// SelectPendingVotes returns queued and failed rows oldest first. When
// olderThan is non-zero only rows created at or before it qualify.
func (s *Store) SelectPendingVotes(ctx context.Context, limit int, olderThan time.Time) ([]*model.SoftVote, error) {
	votes := []*model.SoftVote{}
	query := `select * from soft_votes where status in ('queued', 'failed')`
	args := []interface{}{}
	if !olderThan.IsZero() {
		query += ` and created_at <= ?`
		args = append(args, olderThan)
	}
	query += ` order by created_at asc limit ?`
	args = append(args, limit)
	if err := s.db.SelectContext(ctx, &votes, query, args...); err != nil {
		return nil, fmt.Errorf("selecting pending votes: %w", err)
	}
	return votes, nil
}

func (s *Store) MarkVoteBroadcasted(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `update soft_votes
		set status = ?, error = '', broadcasted_at = ?, updated_at = ?
		where id = ? and status != ?`,
		model.VoteStatusBroadcasted, at, at, id, model.VoteStatusBroadcasted)
	if err != nil {
		return fmt.Errorf("marking vote broadcasted: %w", err)
	}
	return nil
}

func (s *Store) MarkVoteFailed(ctx context.Context, id string, message string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `update soft_votes
		set status = ?, error = ?, updated_at = ?
		where id = ? and status != ?`,
		model.VoteStatusFailed, message, at, id, model.VoteStatusBroadcasted)
	if err != nil {
		return fmt.Errorf("marking vote failed: %w", err)
	}
	return nil
}

// DeleteFailedVotesBefore dead-letters failed rows created strictly before
// the cutoff. Queued and broadcasted rows are never touched.
func (s *Store) DeleteFailedVotesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from soft_votes where status = ? and created_at < ?`,
		model.VoteStatusFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting failed votes: %w", err)
	}
	rows, _ := res.RowsAffected()
	return int(rows), nil
}

// SelectVotesForPosts returns the caller's own soft votes for the given
// (author, permlink) pairs. Other users' rows are invisible here.
func (s *Store) SelectVotesForPosts(ctx context.Context, userID model.UserID, pairs [][2]string) ([]*model.SoftVote, error) {
	votes := []*model.SoftVote{}
	if len(pairs) == 0 {
		return votes, nil
	}
	clause, args := pairClause(pairs)
	query := `select * from soft_votes where user_id = ? and (` + clause + `)`
	allArgs := append([]interface{}{userID}, args...)
	if err := s.db.SelectContext(ctx, &votes, query, allArgs...); err != nil {
		return nil, fmt.Errorf("selecting votes for posts: %w", err)
	}
	return votes, nil
}
