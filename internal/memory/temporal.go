package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/engramhq/engram/internal/store"
)

const dayMillis int64 = 86400000

// temporalPattern is one phrase parseTemporal recognizes, anchored to the
// query's "now". Patterns are checked in order; the first match wins.
type temporalPattern struct {
	phrase       string
	after, before func(startOfDay, now int64) int64
}

// temporalPatterns is deliberately shallow (spec.md §1 "natural-language
// temporal parsing ... deliberately shallow") — a handful of fixed phrases,
// not a calendar-aware parser.
var temporalPatterns = []temporalPattern{
	{"yesterday", func(s, n int64) int64 { return s - dayMillis }, func(s, n int64) int64 { return s }},
	{"last week", func(s, n int64) int64 { return s - 14*dayMillis }, func(s, n int64) int64 { return s - 7*dayMillis }},
	{"this week", func(s, n int64) int64 { return s - 7*dayMillis }, func(s, n int64) int64 { return n }},
	{"last month", func(s, n int64) int64 { return s - 60*dayMillis }, func(s, n int64) int64 { return s - 30*dayMillis }},
	{"this month", func(s, n int64) int64 { return s - 30*dayMillis }, func(s, n int64) int64 { return n }},
	{"today", func(s, n int64) int64 { return s }, func(s, n int64) int64 { return n }},
}

// TemporalQuery is parseTemporal's output (§4.8, §8.2 S5): the parsed range,
// if any, and the query text with the matched time phrase removed.
type TemporalQuery struct {
	After     *int64
	Before    *int64
	Remaining string
}

// ParseTemporal matches query against a fixed set of time phrases anchored
// to nowUnixMs, returning the inferred [after, before] range and the
// remaining query text. A query with no recognized phrase returns a zero
// range and the original (trimmed) text.
func ParseTemporal(query string, nowUnixMs int64) TemporalQuery {
	lower := strings.ToLower(query)
	startOfDay := (nowUnixMs / dayMillis) * dayMillis

	for _, p := range temporalPatterns {
		idx := strings.Index(lower, p.phrase)
		if idx < 0 {
			continue
		}
		after := p.after(startOfDay, nowUnixMs)
		before := p.before(startOfDay, nowUnixMs)
		remaining := strings.TrimSpace(lower[:idx] + lower[idx+len(p.phrase):])
		remaining = strings.Join(strings.Fields(remaining), " ")
		return TemporalQuery{After: &after, Before: &before, Remaining: remaining}
	}

	return TemporalQuery{Remaining: strings.TrimSpace(query)}
}

// Temporal resolves a time-scoped query (§4.8 temporal). If the query holds
// a recognized time phrase and nothing else, the range is returned verbatim,
// newest-first. Otherwise the parsed range (if any) constrains a normal
// recall over the remaining text.
func (m *Memory) Temporal(ctx context.Context, query string, opts RecallOptions) ([]*store.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return nil, err
	}

	parsed := ParseTemporal(query, m.now())

	if (parsed.After != nil || parsed.Before != nil) && parsed.Remaining == "" {
		entries := m.idx.AllEntries()
		filtered := entries[:0:0]
		for _, e := range entries {
			if parsed.After != nil && e.CreatedAt < *parsed.After {
				continue
			}
			if parsed.Before != nil && e.CreatedAt > *parsed.Before {
				continue
			}
			filtered = append(filtered, e)
		}
		sort.Slice(filtered, func(i, j int) bool {
			if filtered[i].CreatedAt != filtered[j].CreatedAt {
				return filtered[i].CreatedAt > filtered[j].CreatedAt
			}
			return filtered[i].ID < filtered[j].ID
		})
		ids := make([]string, len(filtered))
		for i, e := range filtered {
			ids[i] = e.ID
		}
		return m.hydrateManyByIDLocked(ctx, ids)
	}

	if parsed.After != nil {
		opts.After = *parsed.After
	}
	if parsed.Before != nil {
		opts.Before = *parsed.Before
	}
	results, err := m.recallLocked(ctx, parsed.Remaining, opts)
	if err != nil {
		return nil, err
	}
	eps := make([]*store.Episode, len(results))
	for i, r := range results {
		eps[i] = r.Episode
	}
	return eps, nil
}
