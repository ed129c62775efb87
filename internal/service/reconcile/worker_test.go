package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/userbase-net/userbase/internal/ledger"
	"github.com/userbase-net/userbase/internal/model"
	"github.com/userbase-net/userbase/internal/store"
)

type fakeLedger struct {
	broadcasts []ledger.Vote
	failFor    map[string]error
}

func (f *fakeLedger) GetAccount(ctx context.Context, name string) (*ledger.Account, error) {
	return &ledger.Account{Name: name}, nil
}

func (f *fakeLedger) BroadcastVote(ctx context.Context, vote ledger.Vote) error {
	if err, ok := f.failFor[vote.Permlink]; ok {
		return err
	}
	f.broadcasts = append(f.broadcasts, vote)
	return nil
}

type recordingNotifier struct {
	payloads []interface{}
}

func (r *recordingNotifier) Notify(ctx context.Context, payload interface{}) {
	r.payloads = append(r.payloads, payload)
}

func newTestWorker(t *testing.T) (*Worker, *store.Store, *fakeLedger, *recordingNotifier) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := store.Open(fmt.Sprintf("%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hive := &fakeLedger{failFor: map[string]error{}}
	alerts := &recordingNotifier{}
	return NewWorker(db, hive, alerts, "userbase.app"), db, hive, alerts
}

func seedVote(t *testing.T, db *store.Store, author, permlink string, weight int, status model.VoteStatus, createdAt time.Time) {
	t.Helper()
	err := db.UpsertSoftVote(context.Background(), &model.SoftVote{
		ID: model.CreateID(), UserID: "u1",
		Author: author, Permlink: permlink, Weight: weight,
		Status: status, CreatedAt: createdAt, UpdatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("seeding vote: %v", err)
	}
}

func TestRunMixedBatch(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	worker, db, hive, alerts := newTestWorker(t)

	base := time.Now().UTC().Add(-time.Hour)
	seedVote(t, db, "alice", "p1", 10000, model.VoteStatusQueued, base)
	seedVote(t, db, "bob", "", 500, model.VoteStatusQueued, base.Add(time.Minute))
	seedVote(t, db, "carol", "p3", -2500, model.VoteStatusQueued, base.Add(2*time.Minute))

	result, err := worker.Run(ctx, Params{})
	assert.Nil(err)
	assert.Equal(3, result.Attempted)
	assert.Equal(2, result.Success)
	assert.Equal(1, result.Failed)
	assert.Equal(0, result.Cleaned)

	t.Run("broadcasts use the system account", func(t *testing.T) {
		assert.Len(hive.broadcasts, 2)
		for _, vote := range hive.broadcasts {
			assert.Equal("userbase.app", vote.Voter)
		}
	})

	t.Run("failed row keeps a non-empty error", func(t *testing.T) {
		votes, err := db.SelectPendingVotes(ctx, 10, time.Time{})
		assert.Nil(err)
		assert.Len(votes, 1)
		assert.Equal("bob", votes[0].Author)
		assert.Equal(model.VoteStatusFailed, votes[0].Status)
		assert.NotEmpty(votes[0].Error)
	})

	t.Run("alert fired for the failure", func(t *testing.T) {
		assert.Len(alerts.payloads, 1)
		payload := alerts.payloads[0].(map[string]interface{})
		assert.Equal("soft_vote_failed", payload["type"])
		assert.NotEmpty(payload["error"])
	})
}

func TestRunFailureDoesNotStopBatch(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	worker, db, hive, _ := newTestWorker(t)

	base := time.Now().UTC().Add(-time.Hour)
	seedVote(t, db, "alice", "boom", 100, model.VoteStatusQueued, base)
	seedVote(t, db, "bob", "p2", 100, model.VoteStatusQueued, base.Add(time.Minute))
	hive.failFor["boom"] = errors.New("rpc timeout")

	result, err := worker.Run(ctx, Params{})
	assert.Nil(err)
	assert.Equal(2, result.Attempted)
	assert.Equal(1, result.Success)
	assert.Equal(1, result.Failed)

	// A later sweep retries the failed row.
	delete(hive.failFor, "boom")
	result, err = worker.Run(ctx, Params{})
	assert.Nil(err)
	assert.Equal(1, result.Attempted)
	assert.Equal(1, result.Success)
}

func TestRunLimitClamped(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	worker, db, _, _ := newTestWorker(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		seedVote(t, db, "author", fmt.Sprintf("p%d", i), 100, model.VoteStatusQueued, base.Add(time.Duration(i)*time.Second))
	}

	// Negative limits clamp to the floor of 1, not the default.
	result, err := worker.Run(ctx, Params{Limit: -5})
	assert.Nil(err)
	assert.Equal(1, result.Attempted)

	result, err = worker.Run(ctx, Params{Limit: 3})
	assert.Nil(err)
	assert.Equal(3, result.Attempted)

	// Oversized limits fall back to the cap.
	result, err = worker.Run(ctx, Params{Limit: 100000})
	assert.Nil(err)
	assert.Equal(1, result.Attempted)
}

func TestRunNeverTouchesBroadcasted(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	worker, db, hive, _ := newTestWorker(t)

	base := time.Now().UTC().Add(-time.Hour)
	seedVote(t, db, "alice", "done", 100, model.VoteStatusBroadcasted, base)

	result, err := worker.Run(ctx, Params{})
	assert.Nil(err)
	assert.Equal(0, result.Attempted)
	assert.Empty(hive.broadcasts)
}

func TestRunCleanup(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	worker, db, _, _ := newTestWorker(t)

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	seedVote(t, db, "old-queued", "q1", 100, model.VoteStatusQueued, cutoff.Add(-2*time.Hour))
	seedVote(t, db, "stale", "f1", 100, model.VoteStatusFailed, cutoff.Add(-time.Hour))
	seedVote(t, db, "fresh", "f2", 100, model.VoteStatusFailed, cutoff.Add(time.Millisecond))

	// Limit 1 drains only the oldest (queued) row, so the failed rows under
	// test still hold their status when the cleanup runs.
	result, err := worker.Run(ctx, Params{Limit: 1, CleanupDays: 30})
	assert.Nil(err)
	assert.Equal(1, result.Cleaned)

	votes, err := db.SelectPendingVotes(ctx, 10, time.Time{})
	assert.Nil(err)
	for _, vote := range votes {
		assert.NotEqual("f1", vote.Permlink, "only the stale failed row is dead-lettered")
	}
}

func TestRunCleanupDefaultHorizon(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	worker, db, hive, _ := newTestWorker(t)

	// The row is retried in the same sweep; keep it failing so the cleanup
	// pass sees it still in failed state.
	seedVote(t, db, "alice", "stale", 100, model.VoteStatusFailed, time.Now().UTC().AddDate(0, 0, -40))
	hive.failFor["stale"] = errors.New("rpc timeout")

	result, err := worker.Run(ctx, Params{})
	assert.Nil(err)
	assert.Equal(1, result.Failed)
	assert.Equal(1, result.Cleaned, "a 40-day-old failed row falls past the default 30-day horizon")

	votes, err := db.SelectPendingVotes(ctx, 10, time.Time{})
	assert.Nil(err)
	assert.Empty(votes)
}

func TestRunWithoutBroadcastAccount(t *testing.T) {
	assert := assert.New(t)
	worker, _, _, _ := newTestWorker(t)
	worker.account = ""

	_, err := worker.Run(context.Background(), Params{})
	assert.ErrorIs(err, model.ErrConfig)
}

func TestRunMaxAgeFilter(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	worker, db, _, _ := newTestWorker(t)

	now := time.Now().UTC()
	seedVote(t, db, "old", "p1", 100, model.VoteStatusQueued, now.Add(-time.Hour))
	seedVote(t, db, "new", "p2", 100, model.VoteStatusQueued, now)

	result, err := worker.Run(ctx, Params{MaxAgeMinutes: 30})
	assert.Nil(err)
	assert.Equal(1, result.Attempted)
}
