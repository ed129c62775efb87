package model

import "time"

type VoteStatus string

const (
	VoteStatusQueued      VoteStatus = "queued"
	VoteStatusBroadcasted VoteStatus = "broadcasted"
	VoteStatusFailed      VoteStatus = "failed"
)

const (
	VoteWeightMin = -10000
	VoteWeightMax = 10000
)

// SoftVote is an optimistically recorded vote awaiting a Ledger broadcast.
// (user_id, author, permlink) acts as the idempotency key: re-recording the
// same intent updates the existing row rather than queueing a duplicate.
// Once broadcasted the row is terminal and must never be re-broadcast.
type SoftVote struct {
	ID            string     `db:"id" json:"id"`
	UserID        UserID     `db:"user_id" json:"user_id"`
	Author        string     `db:"author" json:"author"`
	Permlink      string     `db:"permlink" json:"permlink"`
	Weight        int        `db:"weight" json:"weight"`
	Status        VoteStatus `db:"status" json:"status"`
	Error         string     `db:"error" json:"error,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	BroadcastedAt *time.Time `db:"broadcasted_at" json:"broadcasted_at,omitempty"`
}
