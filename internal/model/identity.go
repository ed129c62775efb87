package model

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// IdentityType tags one of the external identity systems a user can link.
// Each variant carries its own normalization and format rules so that adding
// a new system is a new entry in identitySpecs rather than scattered
// conditionals.
type IdentityType string

const (
	IdentityTypeHive      IdentityType = "hive"
	IdentityTypeEvm       IdentityType = "evm"
	IdentityTypeFarcaster IdentityType = "farcaster"
)

// Identity links a user to one external identity. (type, identifier) is
// unique across all users: an identity has at most one owner at a time.
type Identity struct {
	ID         string       `db:"id" json:"id"`
	UserID     UserID       `db:"user_id" json:"user_id"`
	Type       IdentityType `db:"type" json:"type"`
	Identifier string       `db:"identifier" json:"identifier"`
	VerifiedAt *time.Time   `db:"verified_at" json:"verified_at,omitempty"`
	IsPrimary  bool         `db:"is_primary" json:"is_primary"`
	Metadata   string       `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

type identitySpec struct {
	normalize func(raw string) (string, error)
}

var identitySpecs = map[IdentityType]identitySpec{
	IdentityTypeHive:      {normalize: normalizeHiveHandle},
	IdentityTypeEvm:       {normalize: normalizeEvmAddress},
	IdentityTypeFarcaster: {normalize: normalizeFID},
}

func (t IdentityType) Known() bool {
	_, ok := identitySpecs[t]
	return ok
}

// Normalize validates raw against the variant's format rules and returns the
// canonical identifier string. Normalization is idempotent: feeding the
// result back in yields the same string.
func (t IdentityType) Normalize(raw string) (string, error) {
	spec, ok := identitySpecs[t]
	if !ok {
		return "", fmt.Errorf("%w: unknown identity type %q", ErrValidation, string(t))
	}
	return spec.normalize(strings.TrimSpace(raw))
}

// Hive handle rules: 3-16 chars, starts with a lowercase letter, ends with a
// letter or digit, only [a-z0-9.-], no adjacent punctuation, every
// dot-separated segment at least 3 chars.
func normalizeHiveHandle(raw string) (string, error) {
	handle := strings.ToLower(raw)
	if len(handle) < 3 || len(handle) > 16 {
		return "", fmt.Errorf("%w: hive handle must be 3-16 characters", ErrValidation)
	}
	if handle[0] < 'a' || handle[0] > 'z' {
		return "", fmt.Errorf("%w: hive handle must start with a letter", ErrValidation)
	}
	last := handle[len(handle)-1]
	if !isHiveAlnum(last) {
		return "", fmt.Errorf("%w: hive handle must end with a letter or digit", ErrValidation)
	}
	prevPunct := false
	for i := 0; i < len(handle); i++ {
		c := handle[i]
		switch {
		case isHiveAlnum(c):
			prevPunct = false
		case c == '.' || c == '-':
			if prevPunct {
				return "", fmt.Errorf("%w: hive handle has adjacent punctuation", ErrValidation)
			}
			prevPunct = true
		default:
			return "", fmt.Errorf("%w: hive handle has invalid character %q", ErrValidation, string(c))
		}
	}
	for _, seg := range strings.Split(handle, ".") {
		if len(seg) < 3 {
			return "", fmt.Errorf("%w: hive handle segment %q too short", ErrValidation, seg)
		}
	}
	return handle, nil
}

func isHiveAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// EVM addresses must be 0x-prefixed 40-hex strings; mixed-case input must
// carry a valid EIP-55 checksum. The canonical form is lowercase.
func normalizeEvmAddress(raw string) (string, error) {
	if len(raw) != 42 || !strings.HasPrefix(raw, "0x") {
		return "", fmt.Errorf("%w: evm address must be a 0x-prefixed 40-hex string", ErrValidation)
	}
	body := raw[2:]
	hasUpper, hasLower := false, false
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
			hasLower = true
		case c >= 'A' && c <= 'F':
			hasUpper = true
		default:
			return "", fmt.Errorf("%w: evm address has non-hex character %q", ErrValidation, string(c))
		}
	}
	if hasUpper && hasLower && !evmChecksumValid(body) {
		return "", fmt.Errorf("%w: evm address fails EIP-55 checksum", ErrValidation)
	}
	return "0x" + strings.ToLower(body), nil
}

func evmChecksumValid(body string) bool {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(strings.ToLower(body)))
	sum := hash.Sum(nil)
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c >= '0' && c <= '9' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		upper := c >= 'A' && c <= 'F'
		if upper != (nibble >= 8) {
			return false
		}
	}
	return true
}

// Farcaster identifiers are numeric FIDs, used as-is.
func normalizeFID(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: farcaster id required", ErrValidation)
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return "", fmt.Errorf("%w: farcaster id must be numeric", ErrValidation)
		}
	}
	return raw, nil
}
