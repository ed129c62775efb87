package ledger

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcutil/base58"
)

// OperationSigner signs transaction digests with the system broadcaster key.
// The client assembles and serializes the transaction; the signer only ever
// sees the digest.
type OperationSigner interface {
	Sign(digest []byte) ([]byte, error)
}

const wifVersion = 0x80

// WIFSigner holds a secp256k1 private key decoded from wallet import format,
// the form Hive distributes posting keys in.
type WIFSigner struct {
	key *btcec.PrivateKey
}

func NewWIFSigner(wif string) (*WIFSigner, error) {
	decoded, version, err := base58.CheckDecode(wif)
	if err != nil {
		return nil, fmt.Errorf("decoding wif: %w", err)
	}
	if version != wifVersion {
		return nil, fmt.Errorf("unexpected wif version byte %#x", version)
	}
	if len(decoded) != 32 {
		return nil, fmt.Errorf("wif payload is %d bytes, want 32", len(decoded))
	}
	key, _ := btcec.PrivKeyFromBytes(btcec.S256(), decoded)
	return &WIFSigner{key: key}, nil
}

// Sign produces a 65-byte compact recoverable signature over the digest.
func (s *WIFSigner) Sign(digest []byte) ([]byte, error) {
	return btcec.SignCompact(btcec.S256(), s.key, digest, true)
}

// sigIsCanonical reports whether a compact signature satisfies the chain's
// canonicality rules. Nodes reject non-canonical signatures, so callers
// re-sign a slightly altered transaction until one passes.
func sigIsCanonical(sig []byte) bool {
	return len(sig) == 65 &&
		sig[1]&0x80 == 0 &&
		!(sig[1] == 0 && sig[2]&0x80 == 0) &&
		sig[33]&0x80 == 0 &&
		!(sig[33] == 0 && sig[34]&0x80 == 0)
}
