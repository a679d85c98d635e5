// Package index implements the in-memory BM25 query engine (C7): inverted
// statistics (document frequency, document lengths, per-doc term
// frequencies), persisted-index restore, and filtered ranked search.
package index

import (
	"sync"

	"github.com/engramhq/engram/internal/store"
)

// DocEntry is the per-document state the index needs for scoring:
// everything in §3.2's "per-doc entry" plus the raw tf counts used for
// BM25. TF is empty after RestoreFromPersisted until a caller repopulates
// it (the persisted format excludes it — see §4.8, §9).
type DocEntry struct {
	ID             string
	DL             int
	TF             map[string]int
	CreatedAt      int64
	Importance     float64
	LastAccessedAt int64
	Tags           []string
	Type           string
	SupersededBy   []string
}

// Index holds the inverted posting statistics over the currently indexed
// episodes (§3.2) plus per-doc metadata needed for filtering and scoring.
// Safe for concurrent use; the orchestrator (§5) treats its own methods as
// mutually exclusive but an internal mutex costs nothing and protects
// against misuse.
type Index struct {
	mu sync.RWMutex

	df                   map[string]int
	docs                 map[string]*DocEntry
	totalDocs            int
	totalLength          int
	lastIndexedTimestamp int64
}

// New returns an empty index.
func New() *Index {
	return &Index{
		df:   make(map[string]int),
		docs: make(map[string]*DocEntry),
	}
}

// Add indexes ep. A no-op if ep.ID is already present (§4.5 "add").
func (idx *Index) Add(ep *store.Episode) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.addLocked(ep)
}

func (idx *Index) addLocked(ep *store.Episode) {
	if _, exists := idx.docs[ep.ID]; exists {
		return
	}

	tf := make(map[string]int, len(ep.Tokens))
	for _, t := range ep.Tokens {
		tf[t]++
	}

	for term := range tf {
		idx.df[term]++
	}

	entry := &DocEntry{
		ID:             ep.ID,
		DL:             len(ep.Tokens),
		TF:             tf,
		CreatedAt:      ep.CreatedAt,
		Importance:     ep.Importance,
		LastAccessedAt: ep.LastAccessedAt,
		Tags:           append([]string(nil), ep.Tags...),
		Type:           ep.Type,
		SupersededBy:   append([]string(nil), ep.SupersededBy...),
	}
	idx.docs[ep.ID] = entry
	idx.totalDocs++
	idx.totalLength += entry.DL
	if ep.CreatedAt > idx.lastIndexedTimestamp {
		idx.lastIndexedTimestamp = ep.CreatedAt
	}
}

// Remove deindexes id, decrementing df for each of its distinct terms and
// dropping df entries that reach zero (§3.3 invariant 4). Reports whether
// id was present.
func (idx *Index) Remove(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.removeLocked(id)
}

func (idx *Index) removeLocked(id string) bool {
	entry, ok := idx.docs[id]
	if !ok {
		return false
	}

	for term := range entry.TF {
		idx.df[term]--
		if idx.df[term] <= 0 {
			delete(idx.df, term)
		}
	}

	idx.totalDocs--
	idx.totalLength -= entry.DL
	delete(idx.docs, id)
	return true
}

// Rebuild clears the index and re-adds every episode in eps.
func (idx *Index) Rebuild(eps []*store.Episode) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.df = make(map[string]int)
	idx.docs = make(map[string]*DocEntry)
	idx.totalDocs = 0
	idx.totalLength = 0
	idx.lastIndexedTimestamp = 0

	for _, ep := range eps {
		idx.addLocked(ep)
	}
}

// UpdateSupersededBy records that id is now superseded by supersededByID,
// without touching posting statistics (called when a later remember()
// pushes a back-link onto an already-indexed episode).
func (idx *Index) UpdateSupersededBy(id string, supersededByID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry, ok := idx.docs[id]
	if !ok {
		return
	}
	for _, existing := range entry.SupersededBy {
		if existing == supersededByID {
			return
		}
	}
	entry.SupersededBy = append(entry.SupersededBy, supersededByID)
}

// RestoreFromPersisted populates df, totals, and per-doc metadata from a
// persisted BM25Index. Per-doc tf is NOT in the persisted format (§4.8)
// and is left empty; callers follow this with a full reload to rebuild it.
func (idx *Index) RestoreFromPersisted(persisted *store.BM25Index) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.df = make(map[string]int, len(persisted.DF))
	for term, count := range persisted.DF {
		idx.df[term] = count
	}

	idx.docs = make(map[string]*DocEntry, len(persisted.DocMeta))
	for id, meta := range persisted.DocMeta {
		idx.docs[id] = &DocEntry{
			ID:             id,
			DL:             persisted.DocLengths[id],
			TF:             map[string]int{},
			CreatedAt:      meta.CreatedAt,
			Importance:     meta.Importance,
			LastAccessedAt: meta.LastAccessedAt,
			Tags:           append([]string(nil), meta.Tags...),
			Type:           meta.Type,
		}
	}

	idx.totalDocs = persisted.TotalDocs
	idx.totalLength = persisted.TotalLength
	idx.lastIndexedTimestamp = persisted.LastIndexedTimestamp
}

// ToPersisted snapshots the index into the on-disk BM25Index form (§6.2).
func (idx *Index) ToPersisted() *store.BM25Index {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	df := make(map[string]int, len(idx.df))
	for term, count := range idx.df {
		df[term] = count
	}

	docLengths := make(map[string]int, len(idx.docs))
	docMeta := make(map[string]store.DocMeta, len(idx.docs))
	for id, entry := range idx.docs {
		docLengths[id] = entry.DL
		docMeta[id] = store.DocMeta{
			CreatedAt:      entry.CreatedAt,
			Importance:     entry.Importance,
			LastAccessedAt: entry.LastAccessedAt,
			Tags:           append([]string(nil), entry.Tags...),
			Type:           entry.Type,
		}
	}

	return &store.BM25Index{
		Version:              "1.1",
		DF:                   df,
		DocLengths:           docLengths,
		DocMeta:              docMeta,
		TotalDocs:            idx.totalDocs,
		TotalLength:          idx.totalLength,
		LastIndexedTimestamp: idx.lastIndexedTimestamp,
	}
}

// TotalDocs returns the number of currently indexed documents.
func (idx *Index) TotalDocs() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.totalDocs
}

// LastIndexedTimestamp returns the newest createdAt seen by Add.
func (idx *Index) LastIndexedTimestamp() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.lastIndexedTimestamp
}

// AvgDL returns the mean document length across indexed episodes, or 1
// when empty (§ glossary avgdl).
func (idx *Index) AvgDL() float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.avgDLLocked()
}

func (idx *Index) avgDLLocked() float64 {
	if idx.totalDocs == 0 {
		return 1
	}
	return float64(idx.totalLength) / float64(idx.totalDocs)
}

// Has reports whether id is currently indexed.
func (idx *Index) Has(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.docs[id]
	return ok
}

// Get returns a copy of id's doc entry, if indexed.
func (idx *Index) Get(id string) (DocEntry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.docs[id]
	if !ok {
		return DocEntry{}, false
	}
	return *entry, true
}

// UpdateLastAccessed records a new lastAccessedAt for id without touching
// posting statistics, keeping the in-memory doc's effective-importance
// decay in sync after a recall() hydration updates the stored episode.
func (idx *Index) UpdateLastAccessed(id string, ts int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if entry, ok := idx.docs[id]; ok {
		entry.LastAccessedAt = ts
	}
}

// AllEntries returns a copy of every currently indexed doc entry, in
// unspecified order.
func (idx *Index) AllEntries() []DocEntry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]DocEntry, 0, len(idx.docs))
	for _, entry := range idx.docs {
		out = append(out, *entry)
	}
	return out
}

// AllIDs returns every currently indexed id, in unspecified order.
func (idx *Index) AllIDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.docs))
	for id := range idx.docs {
		ids = append(ids, id)
	}
	return ids
}

// CheckInvariants recomputes df/totals from scratch and reports whether
// they match the index's current state (§3.3, §8.1 property 4). Intended
// for tests.
func (idx *Index) CheckInvariants() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.totalDocs != len(idx.docs) {
		return false
	}

	wantDF := make(map[string]int)
	wantLength := 0
	for _, entry := range idx.docs {
		wantLength += entry.DL
		for term, count := range entry.TF {
			if count > 0 {
				wantDF[term]++
			}
		}
	}
	if wantLength != idx.totalLength {
		return false
	}
	if len(wantDF) != len(idx.df) {
		return false
	}
	for term, count := range wantDF {
		if idx.df[term] != count {
			return false
		}
	}
	return true
}
