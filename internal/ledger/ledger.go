// Package ledger is the blockchain read/broadcast collaborator. The rest of
// the subsystem depends only on the Ledger interface; the Hive condenser-api
// client is the shipped adapter.
package ledger

import (
	"context"
	"errors"
	"strings"
)

type Account struct {
	Name         string `json:"name"`
	CreatedAt    string `json:"created"`
	PostingCount int    `json:"post_count"`
}

type Vote struct {
	Voter    string `json:"voter"`
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
	Weight   int    `json:"weight"`
}

type Ledger interface {
	// GetAccount resolves an account by name. A missing account yields
	// ErrAccountNotFound; any other failure is a transport/upstream error.
	GetAccount(ctx context.Context, name string) (*Account, error)
	// BroadcastVote signs and submits a vote operation. Calls must be
	// serialized per broadcaster account to keep signatures ordered.
	BroadcastVote(ctx context.Context, vote Vote) error
}

var ErrAccountNotFound = errors.New("account not found")

// RPCError is a structured error response from the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// IsNotFound classifies a Ledger read failure as "no such account": the
// explicit sentinel, a message containing "not found", or a 404 code. Any
// other failure must be treated as an upstream outage, not as absence.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) {
		return true
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == 404 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
