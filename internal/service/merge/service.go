// Package merge is the read-only conflict detector consulted before linking
// an identity that may already belong to someone else.
package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/userbase-net/userbase/internal/model"
	"github.com/userbase-net/userbase/internal/store"
)

type Database interface {
	GetIdentity(ctx context.Context, typ model.IdentityType, identifier string) (*model.Identity, error)
	CountIdentities(ctx context.Context, userID model.UserID) (int, error)
	CountSessions(ctx context.Context, userID model.UserID) (int, error)
	CountAuthMethods(ctx context.Context, userID model.UserID) (int, error)
	CountSoftPosts(ctx context.Context, userID model.UserID) (int, error)
	CountSoftVotes(ctx context.Context, userID model.UserID) (int, error)
}

type Service struct {
	db Database
}

var _ Database = (*store.Store)(nil)

func New(db Database) *Service {
	return &Service{db}
}

// Counts is the blast radius of merging the other account: advisory exact row
// counts, fetched as bare counts with no row payloads.
type Counts struct {
	Identities  int `json:"identities"`
	Sessions    int `json:"sessions"`
	AuthMethods int `json:"auth_methods"`
	SoftPosts   int `json:"soft_posts"`
	SoftVotes   int `json:"soft_votes"`
}

type Preview struct {
	Exists       bool          `json:"exists"`
	SameUser     bool          `json:"same_user,omitempty"`
	SourceUserID *model.UserID `json:"source_user_id,omitempty"`
	Counts       *Counts       `json:"counts,omitempty"`
}

// Preview reports whether the candidate identity is linkable, already the
// caller's, or owned by another user (with counts). It never mutates
// anything and is safe to repeat.
func (s *Service) Preview(ctx context.Context, typ model.IdentityType, rawIdentifier string, callerID model.UserID) (*Preview, error) {
	identifier, err := typ.Normalize(rawIdentifier)
	if err != nil {
		return nil, err
	}

	identity, err := s.db.GetIdentity(ctx, typ, identifier)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// Not an error: the identity is unclaimed and safe to link.
			return &Preview{Exists: false}, nil
		}
		return nil, fmt.Errorf("looking up identity: %w", err)
	}

	if identity.UserID == callerID {
		return &Preview{Exists: true, SameUser: true}, nil
	}

	counts := &Counts{}
	owner := identity.UserID
	for _, c := range []struct {
		dst   *int
		count func(context.Context, model.UserID) (int, error)
	}{
		{&counts.Identities, s.db.CountIdentities},
		{&counts.Sessions, s.db.CountSessions},
		{&counts.AuthMethods, s.db.CountAuthMethods},
		{&counts.SoftPosts, s.db.CountSoftPosts},
		{&counts.SoftVotes, s.db.CountSoftVotes},
	} {
		n, err := c.count(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("counting rows for %s: %w", owner, err)
		}
		*c.dst = n
	}

	return &Preview{
		Exists:       true,
		SameUser:     false,
		SourceUserID: &owner,
		Counts:       counts,
	}, nil
}
