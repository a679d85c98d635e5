package crypto

import (
	"encoding/json"

	engerrors "github.com/engramhq/engram/internal/errors"
	"github.com/engramhq/engram/internal/store"
)

// EncryptEpisode returns a copy of ep with text (and, if non-empty, tags)
// replaced by serialized AEAD envelopes (§4.6). Non-secret fields — id,
// type, importance, timestamps, supersedes/supersededBy, metadata,
// chunkIndex — remain cleartext so the index stays usable without the key.
//
// Per the recommendation in spec.md §9 ("tokens stored on-disk"), the
// stemmed token list is stripped from the encrypted form: it is derived
// from text and would otherwise leak content alongside an encrypted body.
// Callers that need tokens after encryption recompute them from the
// decrypted text.
func EncryptEpisode(ep *store.Episode, key Key) (*store.Episode, error) {
	out := *ep

	textEnv, err := Encrypt([]byte(ep.Text), key)
	if err != nil {
		return nil, err
	}
	textJSON, err := MarshalEnvelope(textEnv)
	if err != nil {
		return nil, err
	}
	out.Text = textJSON
	out.Encrypted = true
	out.Tokens = nil

	if len(ep.Tags) > 0 {
		tagsJSON, err := json.Marshal(ep.Tags)
		if err != nil {
			return nil, engerrors.Malformed("marshal tags for encryption", err)
		}
		tagEnv, err := Encrypt(tagsJSON, key)
		if err != nil {
			return nil, err
		}
		tagEnvJSON, err := MarshalEnvelope(tagEnv)
		if err != nil {
			return nil, err
		}
		out.Tags = []string{tagEnvJSON}
		out.TagsEncrypted = true
	}

	return &out, nil
}

// DecryptEpisode reverses EncryptEpisode, returning a copy of ep with
// plaintext text and tags restored. Episodes that were never encrypted are
// returned as a shallow copy, unchanged.
func DecryptEpisode(ep *store.Episode, key Key) (*store.Episode, error) {
	out := *ep

	if ep.Encrypted {
		env, err := UnmarshalEnvelope(ep.Text)
		if err != nil {
			return nil, err
		}
		plain, err := Decrypt(env, key)
		if err != nil {
			return nil, err
		}
		out.Text = string(plain)
		out.Encrypted = false
	}

	if ep.TagsEncrypted {
		if len(ep.Tags) != 1 {
			return nil, engerrors.Malformed("encrypted tags sideband must hold exactly one envelope", nil)
		}
		env, err := UnmarshalEnvelope(ep.Tags[0])
		if err != nil {
			return nil, err
		}
		plain, err := Decrypt(env, key)
		if err != nil {
			return nil, err
		}
		var tags []string
		if err := json.Unmarshal(plain, &tags); err != nil {
			return nil, engerrors.Malformed("unmarshal decrypted tags", err)
		}
		out.Tags = tags
		out.TagsEncrypted = false
	}

	return &out, nil
}
