package challenge

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/userbase-net/userbase/internal/ledger"
	"github.com/userbase-net/userbase/internal/model"
	"github.com/userbase-net/userbase/internal/store"
)

type fakeLedger struct {
	accounts map[string]bool
	err      error
}

func (f *fakeLedger) GetAccount(ctx context.Context, name string) (*ledger.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !f.accounts[name] {
		return nil, ledger.ErrAccountNotFound
	}
	return &ledger.Account{Name: name}, nil
}

func (f *fakeLedger) BroadcastVote(ctx context.Context, vote ledger.Vote) error {
	return nil
}

func newTestService(t *testing.T, hive *fakeLedger) (*Service, *store.Store) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := store.Open(fmt.Sprintf("%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	err = db.CreateUser(context.Background(), &model.User{ID: "u1", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}

	return New(db, hive, ES256Verifier{}), db
}

func TestCreateHive(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	hive := &fakeLedger{accounts: map[string]bool{"xvlad": true}}
	service, _ := newTestService(t, hive)

	t.Run("existing handle", func(t *testing.T) {
		challenge, err := service.CreateHive(ctx, "u1", "  XVlad ")
		assert.Nil(err)
		assert.Contains(challenge.Message, Banner)
		assert.Contains(challenge.Message, "User ID: u1")
		assert.Contains(challenge.Message, "Hive: @xvlad")
		assert.Regexp(regexp.MustCompile(`Nonce: [0-9a-f]{32}\n`), challenge.Message)
		assert.True(challenge.ExpiresAt.After(time.Now().Add(9 * time.Minute)))
	})

	t.Run("second call gets a fresh nonce", func(t *testing.T) {
		first, err := service.CreateHive(ctx, "u1", "xvlad")
		assert.Nil(err)
		second, err := service.CreateHive(ctx, "u1", "xvlad")
		assert.Nil(err)

		nonceA, _, err := ParseMessage(first.Message)
		assert.Nil(err)
		nonceB, _, err := ParseMessage(second.Message)
		assert.Nil(err)
		assert.NotEqual(nonceA, nonceB)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := service.CreateHive(ctx, "u1", "zz_not_real")
		assert.ErrorIs(err, model.ErrHiveAccountNotFound)
	})

	t.Run("ledger outage is upstream, not absence", func(t *testing.T) {
		hive.err = errors.New("connection refused")
		defer func() { hive.err = nil }()
		_, err := service.CreateHive(ctx, "u1", "xvlad")
		assert.ErrorIs(err, model.ErrUpstream)
		assert.NotErrorIs(err, model.ErrHiveAccountNotFound)
	})

	t.Run("empty handle", func(t *testing.T) {
		_, err := service.CreateHive(ctx, "u1", "   ")
		assert.ErrorIs(err, model.ErrValidation)
	})
}

func signMessage(t *testing.T, privateKey *ecdsa.PrivateKey, message string) string {
	t.Helper()
	hash := sha256.Sum256([]byte(message))
	r, s, err := ecdsa.Sign(rand.Reader, privateKey, hash[:])
	if err != nil {
		t.Fatalf("signing message: %v", err)
	}
	signature := make([]byte, 64)
	r.FillBytes(signature[0:32])
	s.FillBytes(signature[32:64])
	return strings.TrimRight(base64.URLEncoding.EncodeToString(signature), "=")
}

func TestVerify(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	hive := &fakeLedger{accounts: map[string]bool{"xvlad": true}}
	service, db := newTestService(t, hive)

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	assert.Nil(err)
	publicKey, err := EncodePublicKey(&privateKey.PublicKey, "u1")
	assert.Nil(err)

	challenge, err := service.CreateHive(ctx, "u1", "xvlad")
	assert.Nil(err)

	t.Run("wrong signature rejected", func(t *testing.T) {
		other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		assert.Nil(err)
		_, verifyErr := service.Verify(ctx, "u1", VerifyParams{
			Message:   challenge.Message,
			Signature: signMessage(t, other, challenge.Message),
			PublicKey: publicKey,
		})
		assert.ErrorIs(verifyErr, model.ErrValidation)
	})

	t.Run("valid proof links identity", func(t *testing.T) {
		identity, err := service.Verify(ctx, "u1", VerifyParams{
			Message:   challenge.Message,
			Signature: signMessage(t, privateKey, challenge.Message),
			PublicKey: publicKey,
		})
		assert.Nil(err)
		assert.Equal(model.IdentityTypeHive, identity.Type)
		assert.Equal("xvlad", identity.Identifier)
		assert.NotNil(identity.VerifiedAt)

		stored, err := db.GetIdentity(ctx, model.IdentityTypeHive, "xvlad")
		assert.Nil(err)
		assert.Equal(model.UserID("u1"), stored.UserID)
	})

	t.Run("challenge is single use", func(t *testing.T) {
		_, err := service.Verify(ctx, "u1", VerifyParams{
			Message:   challenge.Message,
			Signature: signMessage(t, privateKey, challenge.Message),
			PublicKey: publicKey,
		})
		assert.ErrorIs(err, model.ErrChallengeExpired)
	})
}

func TestVerifyExpired(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	hive := &fakeLedger{accounts: map[string]bool{"xvlad": true}}
	service, _ := newTestService(t, hive)

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	assert.Nil(err)
	publicKey, err := EncodePublicKey(&privateKey.PublicKey, "u1")
	assert.Nil(err)

	challenge, err := service.CreateHive(ctx, "u1", "xvlad")
	assert.Nil(err)

	service.now = func() time.Time { return time.Now().Add(TTL + time.Minute) }
	_, err = service.Verify(ctx, "u1", VerifyParams{
		Message:   challenge.Message,
		Signature: signMessage(t, privateKey, challenge.Message),
		PublicKey: publicKey,
	})
	assert.ErrorIs(err, model.ErrChallengeExpired)
}

func TestVerifyTamperedMessage(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	hive := &fakeLedger{accounts: map[string]bool{"xvlad": true}}
	service, _ := newTestService(t, hive)

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	assert.Nil(err)
	publicKey, err := EncodePublicKey(&privateKey.PublicKey, "u1")
	assert.Nil(err)

	challenge, err := service.CreateHive(ctx, "u1", "xvlad")
	assert.Nil(err)

	// Re-ordering the message lines changes the signing payload; even a
	// valid signature over the altered text must not verify.
	tampered := challenge.Message + "\nExtra: line"
	_, err = service.Verify(ctx, "u1", VerifyParams{
		Message:   tampered,
		Signature: signMessage(t, privateKey, tampered),
		PublicKey: publicKey,
	})
	assert.ErrorIs(err, model.ErrValidation)
}
