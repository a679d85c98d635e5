package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/engramhq/engram/internal/store"
)

const summarySourceTruncateChars = 200

// HourlySummary gathers every non-summary episode created within the
// trailing hours window and emits a single "summary" episode listing them
// (§4.8 hourlySummary). When markSuperseded is true, the summary supersedes
// every source episode it rolled up.
func (m *Memory) HourlySummary(ctx context.Context, hours int, markSuperseded bool) (*store.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return nil, err
	}

	now := m.now()
	cutoff := now - int64(hours)*3600*1000

	entries := m.idx.AllEntries()
	filtered := entries[:0:0]
	for _, e := range entries {
		if e.Type == "summary" {
			continue
		}
		if e.CreatedAt < cutoff {
			continue
		}
		filtered = append(filtered, e)
	}
	if len(filtered) == 0 {
		return nil, nil
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].CreatedAt != filtered[j].CreatedAt {
			return filtered[i].CreatedAt < filtered[j].CreatedAt
		}
		return filtered[i].ID < filtered[j].ID
	})

	ids := make([]string, len(filtered))
	for i, e := range filtered {
		ids[i] = e.ID
	}
	eps, err := m.hydrateManyByIDLocked(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Single newlines throughout: a blank line would make the default
	// paragraph chunker split the summary into multiple episodes.
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summary of the last %d hour(s), %d episode(s):\n", hours, len(eps))
	for _, ep := range eps {
		fmt.Fprintf(&sb, "- (%s) %s\n", ep.Type, truncateAtNewline(ep.Text, summarySourceTruncateChars))
	}

	opts := RememberOptions{
		Type:       "summary",
		Tags:       []string{"hourly-summary"},
		Importance: 0.6,
	}
	if markSuperseded {
		opts.Supersedes = ids
	}

	summaryEpisodes, err := m.rememberLocked(ctx, sb.String(), opts)
	if err != nil {
		return nil, err
	}
	if len(summaryEpisodes) == 0 {
		return nil, nil
	}
	return summaryEpisodes[0], nil
}
