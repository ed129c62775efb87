package challenge

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/rakutentech/jwk-go/jwk"
	"github.com/userbase-net/userbase/internal/model"
)

// Verifier checks that a challenge message was signed by the key holder of
// the claimed identity. Production deployments inject chain-specific
// implementations; which key role and scheme applies is a contract of the
// external identity system, not of this service.
type Verifier interface {
	Verify(ctx context.Context, challenge *model.IdentityChallenge, params VerifyParams) error
}

var ErrInvalidSignature = errors.New("invalid signature")

// ES256Verifier validates an ECDSA P-256 signature over the raw message text
// with a JWK-encoded public key supplied alongside the proof. Used for dev
// and for identity systems exposing plain ES256 keys.
type ES256Verifier struct{}

func (ES256Verifier) Verify(ctx context.Context, challenge *model.IdentityChallenge, params VerifyParams) error {
	if params.PublicKey == "" {
		return fmt.Errorf("public key required")
	}
	publicKey, err := DecodePublicKey(params.PublicKey)
	if err != nil {
		return err
	}

	signature, err := decodeSegment(params.Signature)
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}
	if len(signature) != 64 {
		return ErrInvalidSignature
	}
	r := new(big.Int).SetBytes(signature[0:32])
	s := new(big.Int).SetBytes(signature[32:64])

	hash := sha256.Sum256([]byte(params.Message))
	if !ecdsa.Verify(publicKey, hash[:], r, s) {
		return ErrInvalidSignature
	}
	return nil
}

func EncodePublicKey(publicKey *ecdsa.PublicKey, keyID string) (string, error) {
	ks := jwk.NewSpec(publicKey)
	rawJWK, err := ks.ToJWK()
	if err != nil {
		return "", fmt.Errorf("creating JWK: %w", err)
	}

	rawJWK.Use = "sig"
	rawJWK.Alg = "ES256"
	rawJWK.Kid = keyID

	keyData, err := rawJWK.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshalling JWK: %w", err)
	}
	return base64.StdEncoding.EncodeToString(keyData), nil
}

func DecodePublicKey(publicKey string) (*ecdsa.PublicKey, error) {
	keyData, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}

	keySpec, err := jwk.Parse(string(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	key, ok := keySpec.Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an ECDSA public key")
	}
	return key, nil
}

func decodeSegment(seg string) ([]byte, error) {
	if l := len(seg) % 4; l > 0 {
		seg += strings.Repeat("=", 4-l)
	}
	return base64.URLEncoding.DecodeString(seg)
}
