package integrity

import (
	"testing"

	"github.com/engramhq/engram/internal/store"
)

func snapshotEpisodes() []*store.Episode {
	return []*store.Episode{
		{ID: "ep-001", Text: "first fact", Type: "fact", CreatedAt: 1000},
		{ID: "ep-002", Text: "second fact", Type: "fact", CreatedAt: 2000},
		{ID: "ep-003", Text: "third fact", Type: "fact", CreatedAt: 3000},
	}
}

func TestCreateSnapshot_RootIsDeterministic(t *testing.T) {
	first, err := CreateSnapshot(snapshotEpisodes(), 5000)
	if err != nil {
		t.Fatal(err)
	}
	second, err := CreateSnapshot(snapshotEpisodes(), 6000)
	if err != nil {
		t.Fatal(err)
	}
	if first.Root != second.Root {
		t.Errorf("same episodes produced different roots: %s vs %s", first.Root, second.Root)
	}
	if first.EpisodeCount != 3 {
		t.Errorf("expected episodeCount 3, got %d", first.EpisodeCount)
	}
	if first.EngramVersion != EngramVersion {
		t.Errorf("expected version tag %q, got %q", EngramVersion, first.EngramVersion)
	}
}

func TestCreateSnapshot_IndependentOfInputOrder(t *testing.T) {
	eps := snapshotEpisodes()
	reversed := []*store.Episode{eps[2], eps[1], eps[0]}

	a, err := CreateSnapshot(eps, 5000)
	if err != nil {
		t.Fatal(err)
	}
	b, err := CreateSnapshot(reversed, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if a.Root != b.Root {
		t.Errorf("input order changed the root: %s vs %s", a.Root, b.Root)
	}
	for i := range a.EpisodeIDs {
		if a.EpisodeIDs[i] != b.EpisodeIDs[i] {
			t.Errorf("episode id order differs at %d: %s vs %s", i, a.EpisodeIDs[i], b.EpisodeIDs[i])
		}
	}
}

func TestCreateSnapshot_MutatedBodyChangesRoot(t *testing.T) {
	original, err := CreateSnapshot(snapshotEpisodes(), 5000)
	if err != nil {
		t.Fatal(err)
	}

	mutated := snapshotEpisodes()
	mutated[0].Text = "tampered body"
	tampered, err := CreateSnapshot(mutated, 5000)
	if err != nil {
		t.Fatal(err)
	}

	if original.Root == tampered.Root {
		t.Error("mutating an episode body must change the snapshot root")
	}
}

func TestGetEpisodeProof_VerifiesAndDetectsTamper(t *testing.T) {
	eps := snapshotEpisodes()
	snap, err := CreateSnapshot(eps, 5000)
	if err != nil {
		t.Fatal(err)
	}

	proof := GetEpisodeProof(snap, "ep-001")
	if proof == nil {
		t.Fatal("expected a proof for ep-001")
	}

	if !VerifyEpisode(eps[0], proof.Proof, snap.Root) {
		t.Error("proof for an untouched episode must verify")
	}

	eps[0].Text = "tampered after snapshot"
	if VerifyEpisode(eps[0], proof.Proof, snap.Root) {
		t.Error("proof must fail once the episode's canonical bytes change")
	}
}

func TestGetEpisodeProof_EveryEpisodeProves(t *testing.T) {
	eps := snapshotEpisodes()
	snap, err := CreateSnapshot(eps, 5000)
	if err != nil {
		t.Fatal(err)
	}

	for _, ep := range eps {
		proof := GetEpisodeProof(snap, ep.ID)
		if proof == nil {
			t.Fatalf("missing proof for %s", ep.ID)
		}
		if !VerifyEpisode(ep, proof.Proof, snap.Root) {
			t.Errorf("proof for %s failed to verify", ep.ID)
		}
	}
}

func TestGetEpisodeProof_UnknownID_ReturnsNil(t *testing.T) {
	snap, err := CreateSnapshot(snapshotEpisodes(), 5000)
	if err != nil {
		t.Fatal(err)
	}
	if proof := GetEpisodeProof(snap, "ep-404"); proof != nil {
		t.Errorf("expected nil proof for unknown id, got %+v", proof)
	}
}

func TestGetEpisodeProof_RebuildsTreeFromDeserializedSnapshot(t *testing.T) {
	snap, err := CreateSnapshot(snapshotEpisodes(), 5000)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a snapshot loaded from disk: same exported fields, no tree.
	loaded := &Snapshot{
		Root:          snap.Root,
		EpisodeCount:  snap.EpisodeCount,
		Timestamp:     snap.Timestamp,
		EpisodeHashes: snap.EpisodeHashes,
		EpisodeIDs:    snap.EpisodeIDs,
		EngramVersion: snap.EngramVersion,
	}

	proof := GetEpisodeProof(loaded, "ep-002")
	if proof == nil {
		t.Fatal("expected a proof from a deserialized snapshot")
	}
	if !VerifyProof(proof.LeafHash, proof.Proof, loaded.Root) {
		t.Error("proof rebuilt from a deserialized snapshot failed to verify")
	}
}
