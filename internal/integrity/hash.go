// Package integrity implements the canonical episode hash, the
// order-independent Merkle tree over all episodes, and verifiable
// per-episode proofs (C5).
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	engerrors "github.com/engramhq/engram/internal/errors"
)

// CanonicalBytes serializes v with object keys in lexicographic order at
// every nesting level. encoding/json already sorts map[string]T keys; round
// -tripping a struct through a generic map forces that sort onto struct
// fields too, so two values with the same fields in different declaration
// or key order hash identically.
func CanonicalBytes(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, engerrors.Malformed("marshal for canonicalization", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, engerrors.Malformed("unmarshal for canonicalization", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, engerrors.Malformed("remarshal canonical form", err)
	}
	return canonical, nil
}

// Hash returns the SHA-256 of v's canonical form, as a lowercase hex string.
// Callers must hash the as-stored representation (ciphertext form when
// encrypted) so a remote verifier never needs the decryption key.
func Hash(v any) (string, error) {
	canonical, err := CanonicalBytes(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// HashBytes is the raw SHA-256 digest of b.
func HashBytes(b []byte) [32]byte {
	return sha256.Sum256(b)
}
