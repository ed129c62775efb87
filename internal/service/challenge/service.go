// Package challenge builds and consumes the signable proof-of-ownership
// messages used to link an external identity to a user.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/userbase-net/userbase/internal/ledger"
	"github.com/userbase-net/userbase/internal/model"
	"github.com/userbase-net/userbase/internal/store"
)

// Banner is the first line of every challenge message. The full message text
// is part of the signing contract: issuance and verification must see the
// exact same bytes, so the layout below is never reordered or reformatted.
const Banner = "UserBase Account Linking"

const TTL = 10 * time.Minute

type Database interface {
	InsertChallenge(ctx context.Context, challenge *model.IdentityChallenge) error
	GetChallengeByNonce(ctx context.Context, userID model.UserID, nonce string) (*model.IdentityChallenge, error)
	ConsumeChallenge(ctx context.Context, id string, at time.Time) error
	InsertIdentity(ctx context.Context, identity *model.Identity) error
}

type Service struct {
	db       Database
	ledger   ledger.Ledger
	verifier Verifier
	now      func() time.Time
}

var _ Database = (*store.Store)(nil)

func New(db Database, l ledger.Ledger, verifier Verifier) *Service {
	return &Service{
		db:       db,
		ledger:   l,
		verifier: verifier,
		now:      time.Now,
	}
}

type Challenge struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateHive issues a challenge for linking a Hive handle. The handle must
// exist on the Ledger; a read outage is reported as upstream, never as
// absence.
func (s *Service) CreateHive(ctx context.Context, userID model.UserID, rawHandle string) (*Challenge, error) {
	handle := strings.ToLower(strings.TrimSpace(rawHandle))
	if handle == "" {
		return nil, fmt.Errorf("%w: handle required", model.ErrValidation)
	}

	if _, err := s.ledger.GetAccount(ctx, handle); err != nil {
		if ledger.IsNotFound(err) {
			return nil, model.ErrHiveAccountNotFound
		}
		return nil, fmt.Errorf("%w: reading account %q: %v", model.ErrUpstream, handle, err)
	}

	now := s.now().UTC()
	nonce := model.NewNonce()
	challenge := &model.IdentityChallenge{
		ID:         model.CreateID(),
		UserID:     userID,
		Type:       model.IdentityTypeHive,
		Identifier: handle,
		Nonce:      nonce,
		Message:    BuildMessage(userID, handle, nonce, now),
		CreatedAt:  now,
		ExpiresAt:  now.Add(TTL),
	}
	if err := s.db.InsertChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("persisting challenge: %w", err)
	}

	return &Challenge{Message: challenge.Message, ExpiresAt: challenge.ExpiresAt}, nil
}

// BuildMessage renders the deterministic multi-line challenge text. The nonce
// travels only inside this text.
func BuildMessage(userID model.UserID, handle, nonce string, issuedAt time.Time) string {
	sb := strings.Builder{}
	sb.WriteString(Banner)
	sb.WriteString("\n\n")
	sb.WriteString("User ID: " + string(userID) + "\n")
	sb.WriteString("Hive: @" + handle + "\n")
	sb.WriteString("Nonce: " + nonce + "\n")
	sb.WriteString("Issued At: " + issuedAt.UTC().Format(time.RFC3339))
	return sb.String()
}

// ParseMessage extracts the nonce and handle back out of a challenge message.
// Verification trusts only the stored challenge row; the parsed fields are
// the lookup key.
func ParseMessage(message string) (nonce, handle string, err error) {
	if !strings.HasPrefix(message, Banner+"\n") {
		return "", "", fmt.Errorf("%w: unrecognized message", model.ErrValidation)
	}
	for _, line := range strings.Split(message, "\n") {
		if v, ok := strings.CutPrefix(line, "Nonce: "); ok {
			nonce = v
		}
		if v, ok := strings.CutPrefix(line, "Hive: @"); ok {
			handle = v
		}
	}
	if nonce == "" || handle == "" {
		return "", "", fmt.Errorf("%w: message missing nonce or handle", model.ErrValidation)
	}
	return nonce, handle, nil
}

type VerifyParams struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key,omitempty"`
}

// Verify consumes a challenge: it checks nonce freshness, expiry and
// single-use, delegates signature checking to the configured verifier, and on
// success links the identity. The linked identity row is the only mutation
// besides stamping the challenge consumed.
func (s *Service) Verify(ctx context.Context, userID model.UserID, params VerifyParams) (*model.Identity, error) {
	nonce, _, err := ParseMessage(params.Message)
	if err != nil {
		return nil, err
	}

	challenge, err := s.db.GetChallengeByNonce(ctx, userID, nonce)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrChallengeExpired
		}
		return nil, fmt.Errorf("looking up challenge: %w", err)
	}

	now := s.now().UTC()
	if challenge.ConsumedAt != nil || !now.Before(challenge.ExpiresAt) {
		return nil, model.ErrChallengeExpired
	}
	// The stored message is authoritative. A reformatted or re-ordered copy
	// is a different signing payload and must not verify.
	if params.Message != challenge.Message {
		return nil, fmt.Errorf("%w: message does not match issued challenge", model.ErrValidation)
	}

	if err := s.verifier.Verify(ctx, challenge, params); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	if err := s.db.ConsumeChallenge(ctx, challenge.ID, now); err != nil {
		return nil, err
	}

	identity := &model.Identity{
		ID:         model.CreateID(),
		UserID:     userID,
		Type:       challenge.Type,
		Identifier: challenge.Identifier,
		VerifiedAt: &now,
		CreatedAt:  now,
	}
	if err := s.db.InsertIdentity(ctx, identity); err != nil {
		return nil, err
	}
	return identity, nil
}
