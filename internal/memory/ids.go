package memory

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	engerrors "github.com/engramhq/engram/internal/errors"
)

// newEpisodeID produces an id of the form ep_<agentId>_<unixMillis>_<8-hex-random>
// (§3.1). Collisions within the same millisecond are avoided by the random
// suffix; IDs are never reused once generated.
func newEpisodeID(agentID string, nowUnixMs int64) (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", engerrors.TransportError("generate episode id suffix", err)
	}
	return fmt.Sprintf("ep_%s_%d_%s", agentID, nowUnixMs, hex.EncodeToString(buf[:])), nil
}

// sourceID is a 12-hex prefix of SHA-256 of the pre-chunk text, linking every
// chunk produced from a single remember() call (§3.1).
func sourceID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:12]
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
