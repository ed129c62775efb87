package model

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
)

func CreateID() string {
	uuid, _ := uuid.NewRandom()
	return base58.Encode(uuid[:])
}

// NewRefreshToken returns an opaque 32-byte random token, base58 encoded.
func NewRefreshToken() string {
	buf := make([]byte, 32)
	rand.Read(buf)
	return base58.Encode(buf)
}

// HashToken is the at-rest form of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewNonce returns 16 random bytes hex encoded (32 lowercase hex characters).
func NewNonce() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
