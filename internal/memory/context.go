package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/engramhq/engram/internal/analyzer"
	"github.com/engramhq/engram/internal/store"
)

const (
	buildContextLimit      = 20
	injectSearchLimit      = 15
	defaultRecentLimit     = 10
	defaultInjectMaxTokens = 2000
	episodeTruncateChars   = 300
)

// typePriority is the fixed ordering postCompactionContext sorts by (§4.8).
// Types absent from the table (custom episode types the caller invented)
// sort after every named type.
var typePriority = map[string]int{
	"checkpoint":   0,
	"decision":     1,
	"lesson":       2,
	"event":        3,
	"fact":         4,
	"trade":        5,
	"position":     6,
	"document":     7,
	"summary":      8,
	"conversation": 9,
	"custom":       10,
}

func priorityOf(episodeType string) int {
	if p, ok := typePriority[episodeType]; ok {
		return p
	}
	return len(typePriority) + 1
}

func formatEpisodeLine(ep *store.Episode) string {
	date := time.UnixMilli(ep.CreatedAt).UTC().Format("2006-01-02")
	return fmt.Sprintf("[%s] (%s)%v: %s", date, ep.Type, ep.Tags, ep.Text)
}

func truncateAtNewline(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, "\n"); idx > 0 {
		return cut[:idx]
	}
	return cut
}

// BuildContext recalls the top 20 matches for query and concatenates
// formatted lines until adding one more would exceed maxTokens (§4.8
// buildContext).
func (m *Memory) BuildContext(ctx context.Context, query string, maxTokens int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return "", err
	}

	results, err := m.recallLocked(ctx, query, RecallOptions{Limit: buildContextLimit})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	tokens := 0
	for _, r := range results {
		line := formatEpisodeLine(r.Episode) + "\n\n"
		lineTokens := len(analyzer.Tokenize(line))
		if tokens > 0 && tokens+lineTokens > maxTokens {
			break
		}
		sb.WriteString(line)
		tokens += lineTokens
	}
	return sb.String(), nil
}

// InjectOptions configures injectContext (§4.8).
type InjectOptions struct {
	ExcludeTags  []string
	PriorityTags []string
	RecentLimit  int // 0 => defaultRecentLimit
	MaxTokens    int // 0 => defaultInjectMaxTokens
}

type candidate struct {
	id    string
	score float64
}

// InjectContext builds a compact prompt-injection block: the fast in-memory
// search + recency path of §4.8 injectContext, with priority-tag boosting,
// excluded-tag filtering, per-episode truncation, and a final whole-string
// truncation at maxTokens×3.5 characters.
func (m *Memory) InjectContext(ctx context.Context, query string, opts InjectOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return "", err
	}

	recentLimit := opts.RecentLimit
	if recentLimit == 0 {
		recentLimit = defaultRecentLimit
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultInjectMaxTokens
	}

	now := m.now()
	searchHits := m.idx.Search(query, now, m.syn, RecallOptions{Limit: injectSearchLimit}.toSearchOptions(m.cfg))

	entries := m.idx.AllEntries()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt != entries[j].CreatedAt {
			return entries[i].CreatedAt > entries[j].CreatedAt
		}
		return entries[i].ID < entries[j].ID
	})

	excluded := func(tags []string) bool {
		for _, t := range tags {
			for _, ex := range opts.ExcludeTags {
				if t == ex {
					return true
				}
			}
		}
		return false
	}
	boosted := func(tags []string) bool {
		for _, t := range tags {
			for _, p := range opts.PriorityTags {
				if t == p {
					return true
				}
			}
		}
		return false
	}

	relevant := make([]candidate, 0, len(searchHits))
	seen := make(map[string]struct{}, len(searchHits))
	for _, h := range searchHits {
		entry, ok := m.idx.Get(h.ID)
		if !ok || excluded(entry.Tags) {
			continue
		}
		score := h.Score
		if boosted(entry.Tags) {
			score *= 1.5
		}
		relevant = append(relevant, candidate{id: h.ID, score: score})
		seen[h.ID] = struct{}{}
	}
	sort.Slice(relevant, func(i, j int) bool {
		if relevant[i].score != relevant[j].score {
			return relevant[i].score > relevant[j].score
		}
		return relevant[i].id < relevant[j].id
	})

	recent := make([]string, 0, recentLimit)
	for _, e := range entries {
		if len(recent) >= recentLimit {
			break
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		if excluded(e.Tags) {
			continue
		}
		recent = append(recent, e.ID)
	}

	relevantIDs := make([]string, len(relevant))
	for i, c := range relevant {
		relevantIDs[i] = c.id
	}

	relevantEps, err := m.hydrateManyByIDLocked(ctx, relevantIDs)
	if err != nil {
		return "", err
	}
	recentEps, err := m.hydrateManyByIDLocked(ctx, recent)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if len(relevantEps) > 0 {
		sb.WriteString("## Relevant Memories\n")
		for _, ep := range relevantEps {
			sb.WriteString(truncateAtNewline(ep.Text, episodeTruncateChars))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if len(recentEps) > 0 {
		sb.WriteString("## Recent Context\n")
		for _, ep := range recentEps {
			sb.WriteString(truncateAtNewline(ep.Text, episodeTruncateChars))
			sb.WriteString("\n")
		}
	}

	maxChars := int(float64(maxTokens) * 3.5)
	return truncateAtNewline(sb.String(), maxChars), nil
}

// hydrateManyByIDLocked hydrates ids in the given order via
// hydrateManyLocked, which preserves input order; callers here pass ids
// sorted by their own criteria rather than raw index.Search hits.
func (m *Memory) hydrateManyByIDLocked(ctx context.Context, ids []string) ([]*store.Episode, error) {
	return m.hydrateManyLocked(ctx, ids)
}

// CompactionContextOptions configures postCompactionContext (§4.8).
type CompactionContextOptions struct {
	HoursBack int // 0 => 24
	MaxChars  int // 0 => 4000
}

// PostCompactionContext gathers episodes created within the trailing
// HoursBack window, orders them by the fixed type-priority table (newer
// first within a tie), hydrates, and truncates per episode and overall
// character budget (§4.8 postCompactionContext).
func (m *Memory) PostCompactionContext(ctx context.Context, opts CompactionContextOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return "", err
	}

	hoursBack := opts.HoursBack
	if hoursBack == 0 {
		hoursBack = 24
	}
	maxChars := opts.MaxChars
	if maxChars == 0 {
		maxChars = 4000
	}

	now := m.now()
	cutoff := now - int64(hoursBack)*3600*1000

	entries := m.idx.AllEntries()
	filtered := entries[:0:0]
	for _, e := range entries {
		if e.CreatedAt >= cutoff {
			filtered = append(filtered, e)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		pi, pj := priorityOf(filtered[i].Type), priorityOf(filtered[j].Type)
		if pi != pj {
			return pi < pj
		}
		if filtered[i].CreatedAt != filtered[j].CreatedAt {
			return filtered[i].CreatedAt > filtered[j].CreatedAt
		}
		return filtered[i].ID < filtered[j].ID
	})

	ids := make([]string, len(filtered))
	for i, e := range filtered {
		ids[i] = e.ID
	}
	eps, err := m.hydrateManyByIDLocked(ctx, ids)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, ep := range eps {
		line := truncateAtNewline(ep.Text, episodeTruncateChars) + "\n"
		if sb.Len()+len(line) > maxChars {
			break
		}
		sb.WriteString(line)
	}
	return sb.String(), nil
}
