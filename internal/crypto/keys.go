package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	engerrors "github.com/engramhq/engram/internal/errors"
)

// On-disk key material file names (§6.1).
const (
	KeyFileName  = "engram.key"
	SaltFileName = "engram.salt"
)

const (
	pbkdf2Iterations = 100_000
	saltSize         = 16
)

// KeyOptions carries every key source the resolver may consult, in the
// priority order of §4.6: raw key, password, environment variable, key
// file. KeyDir is the local store's base path, used to read/write
// engram.key and engram.salt; it may be empty when the backing store has
// no filesystem presence (e.g. a remote store), in which case only
// RawKeyHex/Password/EnvVar sources are usable.
type KeyOptions struct {
	RawKeyHex string
	Password  string
	EnvVar    string // defaults to "ENGRAM_KEY" if empty
	KeyDir    string
}

// ResolveKey resolves 32 bytes of key material from the first available
// source, in priority order: (1) an explicit raw hex key, (2) a password
// combined with a persisted salt via PBKDF2-HMAC-SHA512, (3) an environment
// variable, (4) a per-store key file. Returns a PolicyError if none is
// available — callers only reach this path when encryption is demanded.
func ResolveKey(opts KeyOptions) (Key, error) {
	if opts.RawKeyHex != "" {
		return decodeHexKey(opts.RawKeyHex)
	}

	if opts.Password != "" {
		return deriveFromPassword(opts.Password, opts.KeyDir)
	}

	envVar := opts.EnvVar
	if envVar == "" {
		envVar = "ENGRAM_KEY"
	}
	if v := os.Getenv(envVar); v != "" {
		return decodeHexKey(v)
	}

	if opts.KeyDir != "" {
		if key, ok, err := readKeyFile(opts.KeyDir); err != nil {
			return Key{}, err
		} else if ok {
			return key, nil
		}
	}

	return Key{}, engerrors.PolicyError("encryption enabled but no key material resolvable (raw key, password, "+envVar+", or "+KeyFileName+")", nil)
}

// decodeHexKey parses a 64-hex-character string into a 32-byte Key.
func decodeHexKey(hexKey string) (Key, error) {
	trimmed := strings.TrimSpace(hexKey)
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Key{}, engerrors.PolicyError("key material is not valid hex", err)
	}
	if len(raw) != KeySize {
		return Key{}, engerrors.PolicyError("key material must be 32 bytes (64 hex chars)", nil)
	}
	var k Key
	copy(k[:], raw)
	return k, nil
}

// deriveFromPassword derives a key from password via PBKDF2-HMAC-SHA512
// over a persisted salt. Per the recommendation in spec.md §9 ("password
// salt persistence timing"), the salt is written to disk before the key is
// returned to the caller — never lazily on first encrypted write — so a
// crash between derivation and salt persistence can't strand the store.
func deriveFromPassword(password, keyDir string) (Key, error) {
	salt, err := loadOrCreateSalt(keyDir)
	if err != nil {
		return Key{}, err
	}

	derived := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, KeySize, sha512.New)
	var k Key
	copy(k[:], derived)
	return k, nil
}

func saltPath(keyDir string) string {
	return filepath.Join(keyDir, SaltFileName)
}

// loadOrCreateSalt reads the persisted 16-byte salt, or generates and
// persists a new one if absent.
func loadOrCreateSalt(keyDir string) ([]byte, error) {
	if keyDir == "" {
		return nil, engerrors.PolicyError("password-derived key requires a store directory to persist the salt", nil)
	}

	path := saltPath(keyDir)
	data, err := os.ReadFile(path)
	if err == nil {
		salt, decErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil || len(salt) != saltSize {
			return nil, engerrors.Malformed("parse persisted salt: "+path, decErr)
		}
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return nil, engerrors.TransportError("read salt file: "+path, err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, engerrors.TransportError("generate salt", err)
	}
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return nil, engerrors.TransportError("create store directory for salt", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(salt)), 0o600); err != nil {
		return nil, engerrors.TransportError("persist salt: "+path, err)
	}
	return salt, nil
}

// readKeyFile reads a 64-hex-character key from <keyDir>/engram.key. A
// trailing newline is tolerated. Returns ok=false if the file is absent.
func readKeyFile(keyDir string) (Key, bool, error) {
	path := filepath.Join(keyDir, KeyFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Key{}, false, nil
		}
		return Key{}, false, engerrors.TransportError("read key file: "+path, err)
	}
	key, err := decodeHexKey(string(data))
	if err != nil {
		return Key{}, false, err
	}
	return key, true, nil
}
