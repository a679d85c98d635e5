// Package synonyms implements bidirectional equivalence-class lookup for
// query expansion. A Table is an injected handle, not a process-wide
// singleton — each store owns its own vocabulary.
package synonyms

import (
	"sort"
	"strings"
	"sync"
)

// Result is the output of Expand: the query's own terms plus the terms
// contributed by matching synonym groups.
type Result struct {
	Original []string
	Expanded []string
}

// Table is a bidirectional equivalence-class synonym lookup. Phrases within
// the same group are treated as mutually interchangeable; the lookup maps
// each lowercased phrase to the set of its peers.
type Table struct {
	mu     sync.RWMutex
	groups [][]string          // raw groups, insertion order, for inspection/serialization
	lookup map[string][]string // lowercased phrase -> peer phrases (self excluded)
}

// New returns an empty synonym table.
func New() *Table {
	return &Table{
		lookup: make(map[string][]string),
	}
}

// AddGroup merges a set of mutually-equivalent phrases into the table.
// Groups with fewer than 2 entries are ignored. Loading is additive: calling
// AddGroup repeatedly (across layers) only ever grows the lookup.
func (t *Table) AddGroup(phrases []string) {
	if len(phrases) < 2 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	if len(normalized) < 2 {
		return
	}

	t.groups = append(t.groups, normalized)

	for _, phrase := range normalized {
		for _, peer := range normalized {
			if peer == phrase {
				continue
			}
			if !containsString(t.lookup[phrase], peer) {
				t.lookup[phrase] = append(t.lookup[phrase], peer)
			}
		}
	}
}

// AddGroups merges multiple groups at once.
func (t *Table) AddGroups(groups [][]string) {
	for _, g := range groups {
		t.AddGroup(g)
	}
}

// Groups returns the raw groups loaded into the table, in insertion order.
func (t *Table) Groups() [][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([][]string, len(t.groups))
	copy(out, t.groups)
	return out
}

// Expand matches phrase keys against the lowercased query as substrings,
// longest key first, and collects the peer phrases' individual words that
// are not already present in the original query's own words.
func (t *Table) Expand(query string) Result {
	original := strings.Fields(strings.ToLower(query))

	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]string, 0, len(t.lookup))
	for k := range t.lookup {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	inOriginal := make(map[string]struct{}, len(original))
	for _, w := range original {
		inOriginal[w] = struct{}{}
	}

	lowerQuery := strings.ToLower(query)
	var expanded []string
	seen := make(map[string]struct{})

	for _, key := range keys {
		if !strings.Contains(lowerQuery, key) {
			continue
		}
		for _, peer := range t.lookup[key] {
			for _, word := range strings.Fields(peer) {
				if _, already := inOriginal[word]; already {
					continue
				}
				if _, dup := seen[word]; dup {
					continue
				}
				seen[word] = struct{}{}
				expanded = append(expanded, word)
			}
		}
	}

	return Result{Original: original, Expanded: expanded}
}

func containsString(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
