package memory

import (
	"context"
	"sort"

	"github.com/engramhq/engram/internal/scoring"
	"github.com/engramhq/engram/internal/store"
)

// PruneOptions configures prune() (§4.8). Zero fields fall back to the
// orchestrator's configured prune policy.
type PruneOptions struct {
	Keep          int
	MaxAgeDays    int
	MinImportance *float64
}

// PruneResult reports what prune() did.
type PruneResult struct {
	Pruned []string
	Kept   int
}

// Prune ranks all episodes by effective importance and forgets every episode
// ranked outside the top Keep, plus any episode (including one inside
// the top Keep) older than MaxAgeDays whose effective importance has decayed
// below MinImportance (§4.8 prune).
func (m *Memory) Prune(ctx context.Context, opts PruneOptions) (*PruneResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return nil, err
	}

	keep := opts.Keep
	if keep == 0 {
		keep = m.cfg.Prune.Keep
	}
	maxAgeDays := opts.MaxAgeDays
	if maxAgeDays == 0 {
		maxAgeDays = m.cfg.Prune.MaxAgeDays
	}
	minImportance := m.cfg.Prune.MinImportance
	if opts.MinImportance != nil {
		minImportance = *opts.MinImportance
	}

	allEps, err := m.storage.GetAllEpisodes(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	type scored struct {
		ep            *store.Episode
		effImportance float64
		ageDays       float64
	}
	ranked := make([]scored, 0, len(allEps))
	for _, ep := range allEps {
		ranked = append(ranked, scored{
			ep:            ep,
			effImportance: scoring.EffectiveImportance(ep.Importance, ep.LastAccessedAt, now),
			ageDays:       scoring.DaysSince(ep.CreatedAt, now),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].effImportance != ranked[j].effImportance {
			return ranked[i].effImportance > ranked[j].effImportance
		}
		return ranked[i].ep.ID < ranked[j].ep.ID
	})

	var pruned []string
	for rank, s := range ranked {
		stale := s.ageDays > float64(maxAgeDays) && s.effImportance < minImportance
		if rank >= keep || stale {
			ok, err := m.forgetLocked(ctx, s.ep.ID)
			if err != nil {
				return nil, err
			}
			if ok {
				pruned = append(pruned, s.ep.ID)
			}
		}
	}

	return &PruneResult{Pruned: pruned, Kept: len(ranked) - len(pruned)}, nil
}
