// Package crypto implements the encryption-at-rest envelope (C6): AEAD
// encryption of episode text and tags with ChaCha20-Poly1305, and the
// layered key resolution spec'd in §4.6.
package crypto

import (
	"crypto/rand"
	"encoding/json"

	"golang.org/x/crypto/chacha20poly1305"

	engerrors "github.com/engramhq/engram/internal/errors"
)

// KeySize is the required raw key length in bytes (§4.6).
const KeySize = chacha20poly1305.KeySize

// Key is 32 bytes of AEAD key material. Never logged or serialized.
type Key [KeySize]byte

// Envelope is the serialized AEAD payload stored in place of plaintext
// (§4.6, §6.4): a random nonce, the ciphertext, and its authentication tag,
// split out as distinct fields even though chacha20poly1305.Seal appends
// the tag to the ciphertext internally.
type Envelope struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	Tag        []byte `json:"tag"`
}

// Encrypt seals plaintext under key with a fresh random nonce.
func Encrypt(plaintext []byte, key Key) (*Envelope, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, engerrors.PolicyError("construct AEAD cipher", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, engerrors.TransportError("generate nonce", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	overhead := aead.Overhead()
	return &Envelope{
		Nonce:      nonce,
		Ciphertext: sealed[:len(sealed)-overhead],
		Tag:        sealed[len(sealed)-overhead:],
	}, nil
}

// Decrypt opens env under key. A tag mismatch (wrong key or tampered
// ciphertext) surfaces as an IntegrityFailure, never as silently returned
// ciphertext (§4.6, §7).
func Decrypt(env *Envelope, key Key) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, engerrors.PolicyError("construct AEAD cipher", err)
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.Tag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)

	plaintext, err := aead.Open(nil, env.Nonce, sealed, nil)
	if err != nil {
		return nil, engerrors.IntegrityFailure("decrypt envelope: authentication tag mismatch", err)
	}
	return plaintext, nil
}

// MarshalEnvelope serializes env to the JSON form stored in an episode's
// text or tags field.
func MarshalEnvelope(env *Envelope) (string, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return "", engerrors.Malformed("marshal envelope", err)
	}
	return string(data), nil
}

// UnmarshalEnvelope parses the JSON form back into an Envelope.
func UnmarshalEnvelope(data string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, engerrors.Malformed("unmarshal envelope", err)
	}
	return &env, nil
}
