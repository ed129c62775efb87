// Package overlay records and serves optimistic vote/post state so the UI
// can render actions before they are confirmed on the Ledger.
package overlay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/userbase-net/userbase/internal/model"
	"github.com/userbase-net/userbase/internal/store"
)

// MaxBatch caps how many (author, permlink) pairs one lookup may carry.
const MaxBatch = 200

type Database interface {
	UpsertSoftVote(ctx context.Context, vote *model.SoftVote) error
	SelectVotesForPosts(ctx context.Context, userID model.UserID, pairs [][2]string) ([]*model.SoftVote, error)
	SelectSoftPostsByPairs(ctx context.Context, pairs [][2]string) ([]*model.SoftPost, error)
	SelectSoftPostsBySafeUsers(ctx context.Context, safeUsers, permlinks []string) ([]*model.SoftPost, error)
	GetUsers(ctx context.Context, ids []model.UserID) (map[model.UserID]*model.User, error)
}

type Service struct {
	db  Database
	now func() time.Time
}

var _ Database = (*store.Store)(nil)

func New(db Database) *Service {
	return &Service{db: db, now: time.Now}
}

type PostKey struct {
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
}

// NormalizeKeys trims both fields, drops pairs with an empty side, removes
// duplicates and truncates to MaxBatch.
func NormalizeKeys(keys []PostKey) []PostKey {
	seen := make(map[PostKey]struct{}, len(keys))
	normalized := make([]PostKey, 0, len(keys))
	for _, key := range keys {
		key.Author = strings.TrimSpace(key.Author)
		key.Permlink = strings.TrimSpace(key.Permlink)
		if key.Author == "" || key.Permlink == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, key)
		if len(normalized) == MaxBatch {
			break
		}
	}
	return normalized
}

type VoteOverlay struct {
	Author    string           `json:"author"`
	Permlink  string           `json:"permlink"`
	Weight    int              `json:"weight"`
	Status    model.VoteStatus `json:"status"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// GetOverlays returns the caller's own soft votes for the requested pairs.
// Rows belonging to other users are invisible even when they track an
// identical pair.
func (s *Service) GetOverlays(ctx context.Context, userID model.UserID, keys []PostKey) ([]VoteOverlay, error) {
	keys = NormalizeKeys(keys)
	pairs := make([][2]string, len(keys))
	for i, key := range keys {
		pairs[i] = [2]string{key.Author, key.Permlink}
	}

	votes, err := s.db.SelectVotesForPosts(ctx, userID, pairs)
	if err != nil {
		return nil, fmt.Errorf("fetching overlays: %w", err)
	}

	overlays := make([]VoteOverlay, 0, len(votes))
	for _, vote := range votes {
		overlays = append(overlays, VoteOverlay{
			Author:    vote.Author,
			Permlink:  vote.Permlink,
			Weight:    vote.Weight,
			Status:    vote.Status,
			UpdatedAt: vote.UpdatedAt,
		})
	}
	return overlays, nil
}

// RecordVote queues (or re-queues) a vote intent for reconciliation. The
// (user, author, permlink) idempotency key makes repeating the same intent a
// safe update rather than a duplicate broadcast.
func (s *Service) RecordVote(ctx context.Context, userID model.UserID, author, permlink string, weight int) (*model.SoftVote, error) {
	author = strings.TrimSpace(author)
	permlink = strings.TrimSpace(permlink)
	if author == "" || permlink == "" {
		return nil, fmt.Errorf("%w: author and permlink required", model.ErrValidation)
	}
	if weight < model.VoteWeightMin || weight > model.VoteWeightMax {
		return nil, fmt.Errorf("%w: weight out of range", model.ErrValidation)
	}

	now := s.now().UTC()
	vote := &model.SoftVote{
		ID:        model.CreateID(),
		UserID:    userID,
		Author:    author,
		Permlink:  permlink,
		Weight:    weight,
		Status:    model.VoteStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.UpsertSoftVote(ctx, vote); err != nil {
		return nil, err
	}
	return vote, nil
}

type SoftPostRequest struct {
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
	SafeUser string `json:"safe_user,omitempty"`
}

// GetSoftPosts merges two lookup passes: exact (author, permlink) matches
// first, then (safe_user, permlink) alias matches. Results are deduplicated
// by (author, permlink) with the primary pass winning, and any row whose keys
// fall outside the requested set is discarded, guarding against the alias
// pass over-fetching.
func (s *Service) GetSoftPosts(ctx context.Context, requests []SoftPostRequest) ([]model.SoftPostView, error) {
	requested := make(map[PostKey]struct{})
	pairs := make([][2]string, 0, len(requests))
	safeUsers := []string{}
	permlinks := []string{}
	seenSafe := map[string]struct{}{}
	seenPermlink := map[string]struct{}{}
	for _, req := range requests {
		author := strings.TrimSpace(req.Author)
		permlink := strings.TrimSpace(req.Permlink)
		if author == "" || permlink == "" {
			continue
		}
		if len(pairs) == MaxBatch {
			break
		}
		key := PostKey{author, permlink}
		if _, ok := requested[key]; !ok {
			requested[key] = struct{}{}
			pairs = append(pairs, [2]string{author, permlink})
		}
		if _, ok := seenPermlink[permlink]; !ok {
			seenPermlink[permlink] = struct{}{}
			permlinks = append(permlinks, permlink)
		}
		if safeUser := strings.TrimSpace(req.SafeUser); safeUser != "" {
			requested[PostKey{safeUser, permlink}] = struct{}{}
			if _, ok := seenSafe[safeUser]; !ok {
				seenSafe[safeUser] = struct{}{}
				safeUsers = append(safeUsers, safeUser)
			}
		}
	}

	primary, err := s.db.SelectSoftPostsByPairs(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("fetching soft posts: %w", err)
	}
	aliased, err := s.db.SelectSoftPostsBySafeUsers(ctx, safeUsers, permlinks)
	if err != nil {
		return nil, fmt.Errorf("fetching aliased soft posts: %w", err)
	}

	// Primary matches are concatenated before alias matches so the primary
	// row wins on a key collision.
	merged := append(primary, aliased...)
	picked := make([]*model.SoftPost, 0, len(merged))
	taken := make(map[PostKey]struct{}, len(merged))
	userIDs := []model.UserID{}
	seenUser := map[model.UserID]struct{}{}
	for _, post := range merged {
		_, direct := requested[PostKey{post.Author, post.Permlink}]
		_, viaAlias := requested[PostKey{post.SafeUser, post.Permlink}]
		if !direct && !viaAlias {
			continue
		}
		key := PostKey{post.Author, post.Permlink}
		if _, ok := taken[key]; ok {
			continue
		}
		taken[key] = struct{}{}
		picked = append(picked, post)
		if _, ok := seenUser[post.UserID]; !ok {
			seenUser[post.UserID] = struct{}{}
			userIDs = append(userIDs, post.UserID)
		}
	}

	users, err := s.db.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching post authors: %w", err)
	}

	views := make([]model.SoftPostView, 0, len(picked))
	for _, post := range picked {
		view := model.SoftPostView{
			Author:   post.Author,
			Permlink: post.Permlink,
			Type:     post.Type,
			Metadata: post.Metadata,
		}
		if user, ok := users[post.UserID]; ok {
			view.User = model.SoftPostUser{
				ID:          user.ID,
				DisplayName: user.DisplayName,
				Handle:      user.Handle,
				AvatarURL:   user.AvatarURL,
			}
		}
		views = append(views, view)
	}
	return views, nil
}
