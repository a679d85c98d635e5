package index

import (
	"context"
	"testing"

	"github.com/engramhq/engram/internal/store"
)

func newTestStore(t *testing.T) *store.LocalStore {
	t.Helper()
	s := store.NewLocalStore(t.TempDir())
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func save(t *testing.T, s *store.LocalStore, ep *store.Episode) {
	t.Helper()
	if err := s.SaveEpisode(context.Background(), ep); err != nil {
		t.Fatalf("SaveEpisode(%s): %v", ep.ID, err)
	}
}

func TestSupersessionChain_LinearChain_OldestToNewest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	save(t, s, &store.Episode{ID: "v1", Text: "fact v1"})
	save(t, s, &store.Episode{ID: "v2", Text: "fact v2", Supersedes: []string{"v1"}})
	save(t, s, &store.Episode{ID: "v3", Text: "fact v3", Supersedes: []string{"v2"}})
	// Maintain the back-links the orchestrator would set on remember().
	save(t, s, &store.Episode{ID: "v1", Text: "fact v1", SupersededBy: []string{"v2"}})
	save(t, s, &store.Episode{ID: "v2", Text: "fact v2", Supersedes: []string{"v1"}, SupersededBy: []string{"v3"}})

	chain, err := SupersessionChain(ctx, "v1", s)
	if err != nil {
		t.Fatalf("SupersessionChain: %v", err)
	}
	want := []string{"v1", "v2", "v3"}
	if len(chain) != len(want) {
		t.Fatalf("got %v, want %v", chain, want)
	}
	for i, id := range want {
		if chain[i] != id {
			t.Errorf("chain[%d] = %q, want %q", i, chain[i], id)
		}
	}
}

func TestSupersessionChain_StartingFromMiddleFindsFullChain(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	save(t, s, &store.Episode{ID: "v1", Text: "fact v1", SupersededBy: []string{"v2"}})
	save(t, s, &store.Episode{ID: "v2", Text: "fact v2", Supersedes: []string{"v1"}, SupersededBy: []string{"v3"}})
	save(t, s, &store.Episode{ID: "v3", Text: "fact v3", Supersedes: []string{"v2"}})

	chain, err := SupersessionChain(ctx, "v2", s)
	if err != nil {
		t.Fatalf("SupersessionChain: %v", err)
	}
	if len(chain) != 3 || chain[0] != "v1" || chain[2] != "v3" {
		t.Fatalf("got %v", chain)
	}
}

func TestSupersessionChain_SingleEpisode_ReturnsItself(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	save(t, s, &store.Episode{ID: "solo", Text: "alone"})

	chain, err := SupersessionChain(ctx, "solo", s)
	if err != nil {
		t.Fatalf("SupersessionChain: %v", err)
	}
	if len(chain) != 1 || chain[0] != "solo" {
		t.Fatalf("got %v", chain)
	}
}

func TestSupersessionChain_CycleGuard_Terminates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Pathological, hand-constructed cycle: a supersedes b, b supersedes a.
	save(t, s, &store.Episode{ID: "a", Text: "a", Supersedes: []string{"b"}, SupersededBy: []string{"b"}})
	save(t, s, &store.Episode{ID: "b", Text: "b", Supersedes: []string{"a"}, SupersededBy: []string{"a"}})

	chain, err := SupersessionChain(ctx, "a", s)
	if err != nil {
		t.Fatalf("SupersessionChain: %v", err)
	}
	if len(chain) > 2 {
		t.Errorf("expected cycle guard to bound the chain length, got %v", chain)
	}
}

func TestWouldCreateCycle_DetectsTransitiveAncestor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	save(t, s, &store.Episode{ID: "v1", Text: "v1", SupersededBy: []string{"v2"}})
	save(t, s, &store.Episode{ID: "v2", Text: "v2", Supersedes: []string{"v1"}, SupersededBy: []string{"v3"}})
	save(t, s, &store.Episode{ID: "v3", Text: "v3", Supersedes: []string{"v2"}})

	cycle, err := WouldCreateCycle(ctx, "v1", "v3", s)
	if err != nil {
		t.Fatalf("WouldCreateCycle: %v", err)
	}
	if !cycle {
		t.Error("expected v1 <- v3 to be detected as a cycle (v1 is already v3's ancestor)")
	}
}

func TestWouldCreateCycle_UnrelatedEpisodes_ReturnsFalse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	save(t, s, &store.Episode{ID: "a", Text: "a"})
	save(t, s, &store.Episode{ID: "b", Text: "b"})

	cycle, err := WouldCreateCycle(ctx, "a", "b", s)
	if err != nil {
		t.Fatalf("WouldCreateCycle: %v", err)
	}
	if cycle {
		t.Error("expected unrelated episodes to not form a cycle")
	}
}
