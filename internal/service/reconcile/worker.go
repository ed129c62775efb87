// Package reconcile drains queued and failed soft votes into real Ledger
// broadcasts using the system broadcaster identity.
//
// State machine per soft vote: queued -> broadcasted on success, queued ->
// failed on a broadcast error, failed -> broadcasted when a later retry
// succeeds, failed -> deleted once past the cleanup horizon. broadcasted is
// terminal.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/userbase-net/userbase/internal/alert"
	"github.com/userbase-net/userbase/internal/ledger"
	"github.com/userbase-net/userbase/internal/model"
	"github.com/userbase-net/userbase/internal/store"
)

const (
	DefaultLimit       = 25
	MaxLimit           = 100
	DefaultCleanupDays = 30
)

type Database interface {
	SelectPendingVotes(ctx context.Context, limit int, olderThan time.Time) ([]*model.SoftVote, error)
	MarkVoteBroadcasted(ctx context.Context, id string, at time.Time) error
	MarkVoteFailed(ctx context.Context, id string, message string, at time.Time) error
	DeleteFailedVotesBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type Notifier interface {
	Notify(ctx context.Context, payload interface{})
}

type Worker struct {
	db      Database
	ledger  ledger.Ledger
	alerts  Notifier
	account string
	now     func() time.Time
}

var _ Database = (*store.Store)(nil)
var _ Notifier = (*alert.Webhook)(nil)

func NewWorker(db Database, l ledger.Ledger, alerts Notifier, broadcastAccount string) *Worker {
	return &Worker{
		db:      db,
		ledger:  l,
		alerts:  alerts,
		account: broadcastAccount,
		now:     time.Now,
	}
}

type Params struct {
	Limit         int `json:"limit,omitempty"`
	MaxAgeMinutes int `json:"max_age_minutes,omitempty"`
	CleanupDays   int `json:"cleanup_days,omitempty"`
}

type Result struct {
	Attempted int `json:"attempted"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Cleaned   int `json:"cleaned"`
}

// Run drains one batch. Broadcasts are strictly sequential: the system
// account signs every operation and out-of-order signatures from one account
// collide on chain. One row failing never stops the rest of the batch.
func (w *Worker) Run(ctx context.Context, params Params) (*Result, error) {
	if w.account == "" {
		return nil, fmt.Errorf("%w: HIVE_BROADCAST_ACCOUNT not set", model.ErrConfig)
	}

	limit := params.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	olderThan := time.Time{}
	if params.MaxAgeMinutes > 0 {
		olderThan = w.now().Add(-time.Duration(params.MaxAgeMinutes) * time.Minute)
	}

	votes, err := w.db.SelectPendingVotes(ctx, limit, olderThan)
	if err != nil {
		return nil, fmt.Errorf("selecting pending votes: %w", err)
	}

	result := &Result{}
	for _, vote := range votes {
		if vote.Status == model.VoteStatusBroadcasted {
			// Terminal rows are never selected; guard anyway.
			continue
		}
		result.Attempted++
		if err := w.broadcast(ctx, vote); err != nil {
			result.Failed++
			w.recordFailure(ctx, vote, err)
			continue
		}
		if err := w.db.MarkVoteBroadcasted(ctx, vote.ID, w.now().UTC()); err != nil {
			log.Errorf("reconcile: marking vote %s broadcasted: %v", vote.ID, err)
		}
		result.Success++
	}

	cleanupDays := params.CleanupDays
	if cleanupDays <= 0 {
		cleanupDays = DefaultCleanupDays
	}
	cutoff := w.now().AddDate(0, 0, -cleanupDays)
	cleaned, err := w.db.DeleteFailedVotesBefore(ctx, cutoff)
	if err != nil {
		log.Errorf("reconcile: dead-lettering failed votes: %v", err)
	} else {
		result.Cleaned = cleaned
	}

	return result, nil
}

func (w *Worker) broadcast(ctx context.Context, vote *model.SoftVote) error {
	if vote.Author == "" || vote.Permlink == "" {
		return fmt.Errorf("vote %s missing author or permlink", vote.ID)
	}
	if vote.Weight < model.VoteWeightMin || vote.Weight > model.VoteWeightMax {
		return fmt.Errorf("vote %s weight %d out of range", vote.ID, vote.Weight)
	}
	return w.ledger.BroadcastVote(ctx, ledger.Vote{
		Voter:    w.account,
		Author:   vote.Author,
		Permlink: vote.Permlink,
		Weight:   vote.Weight,
	})
}

func (w *Worker) recordFailure(ctx context.Context, vote *model.SoftVote, cause error) {
	log.Errorf("reconcile: vote %s failed: %v", vote.ID, cause)
	if err := w.db.MarkVoteFailed(ctx, vote.ID, cause.Error(), w.now().UTC()); err != nil {
		log.Errorf("reconcile: marking vote %s failed: %v", vote.ID, err)
	}
	w.alerts.Notify(ctx, map[string]interface{}{
		"type":         "soft_vote_failed",
		"soft_vote_id": vote.ID,
		"author":       vote.Author,
		"permlink":     vote.Permlink,
		"error":        cause.Error(),
	})
}
