package integrity

import (
	"sort"

	"github.com/engramhq/engram/internal/store"
)

// EngramVersion is the format tag stamped on every snapshot (§6.3).
const EngramVersion = "1.0"

// Snapshot is the ordered list of episode canonical hashes and the Merkle
// root over them at a moment in time (§6.3).
type Snapshot struct {
	Root          string   `json:"root"`
	EpisodeCount  int      `json:"episodeCount"`
	Timestamp     int64    `json:"timestamp"`
	EpisodeHashes []string `json:"episodeHashes"`
	EpisodeIDs    []string `json:"episodeIds"`
	EngramVersion string   `json:"engramVersion"`

	tree *Tree // retained for proof generation; not serialized
}

// EpisodeProof is the sibling path for one episode plus the leaf hash it
// starts from, so verification doesn't require recomputing the hash.
type EpisodeProof struct {
	EpisodeID string      `json:"episodeId"`
	LeafHash  string      `json:"leafHash"`
	Proof     []ProofStep `json:"proof"`
}

// CreateSnapshot hashes every episode's as-stored canonical form, sorts by
// episode id (the sort is what makes the snapshot permutation-independent of
// the input slice order — hashPair's commutativity alone protects only
// adjacent-pair order within the tree), and builds the Merkle tree over the
// sorted leaves.
func CreateSnapshot(episodes []*store.Episode, timestampUnixMs int64) (*Snapshot, error) {
	type leaf struct {
		id   string
		hash string
	}

	leaves := make([]leaf, 0, len(episodes))
	for _, ep := range episodes {
		h, err := Hash(ep)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf{id: ep.ID, hash: h})
	}

	sort.Slice(leaves, func(i, j int) bool { return leaves[i].id < leaves[j].id })

	ids := make([]string, len(leaves))
	hashes := make([]string, len(leaves))
	for i, l := range leaves {
		ids[i] = l.id
		hashes[i] = l.hash
	}

	tree := BuildTree(hashes)

	return &Snapshot{
		Root:          tree.Root(),
		EpisodeCount:  len(leaves),
		Timestamp:     timestampUnixMs,
		EpisodeHashes: hashes,
		EpisodeIDs:    ids,
		EngramVersion: EngramVersion,
		tree:          tree,
	}, nil
}

// GetEpisodeProof returns the proof for id within snap, or nil if id is not
// part of the snapshot. If snap was deserialized (tree is nil), the proof is
// rebuilt from EpisodeHashes.
func GetEpisodeProof(snap *Snapshot, id string) *EpisodeProof {
	idx := -1
	for i, existing := range snap.EpisodeIDs {
		if existing == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	tree := snap.tree
	if tree == nil {
		tree = BuildTree(snap.EpisodeHashes)
	}

	return &EpisodeProof{
		EpisodeID: id,
		LeafHash:  snap.EpisodeHashes[idx],
		Proof:     tree.Proof(idx),
	}
}

// VerifyEpisode reports whether ep's current canonical hash still proves
// into root via proof. Any change to ep's canonical bytes since the proof
// was produced makes this false.
func VerifyEpisode(ep *store.Episode, proof []ProofStep, root string) bool {
	leafHash, err := Hash(ep)
	if err != nil {
		return false
	}
	return VerifyProof(leafHash, proof, root)
}
