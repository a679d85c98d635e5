// Package memory implements the Agent Memory orchestrator (C8): the
// top-level remember/recall/stats/prune/temporal/context surface that wires
// together the text analyzer, the BM25 query engine, the synonym table, the
// storage contract, and the optional crypto envelope into one cooperative,
// single-writer service (§4.8, §5).
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/engramhq/engram/internal/analyzer"
	"github.com/engramhq/engram/internal/config"
	"github.com/engramhq/engram/internal/crypto"
	engerrors "github.com/engramhq/engram/internal/errors"
	"github.com/engramhq/engram/internal/index"
	"github.com/engramhq/engram/internal/store"
	"github.com/engramhq/engram/internal/synonyms"
)

// Options configures a new Memory orchestrator.
type Options struct {
	// AgentID scopes every episode created through this orchestrator.
	AgentID string
	// Storage is the backing Store implementation (local or remote).
	Storage store.Store
	// Config holds scoring weights, chunking, and prune defaults. A nil
	// Config falls back to config.NewConfig().
	Config *config.Config
	// Synonyms is the layered synonym table. A nil table disables expansion.
	Synonyms *synonyms.Table
	// Key is the resolved 32-byte encryption key. Nil means episodes are
	// stored and returned in cleartext.
	Key *crypto.Key
	// Now overrides the orchestrator's clock; nil uses real wall-clock
	// time. Tests supply a fixed function for deterministic scenarios.
	Now func() int64
}

// Memory is the Agent Memory orchestrator (C8). All top-level operations
// are mutually exclusive with respect to one another (§5): a single mutex
// serializes them, and every suspension point inside a locked section is an
// I/O boundary against storage.
type Memory struct {
	mu sync.Mutex

	agentID  string
	storage  store.Store
	idx      *index.Index
	syn      *synonyms.Table
	cfg      *config.Config
	key      *crypto.Key
	now      func() int64
	initDone bool
}

// New constructs an orchestrator. Initialization is lazy: it happens on the
// first call to a top-level operation, per §4.8.
func New(opts Options) *Memory {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	return &Memory{
		agentID: opts.AgentID,
		storage: opts.Storage,
		idx:     index.New(),
		syn:     opts.Synonyms,
		cfg:     cfg,
		key:     opts.Key,
		now:     now,
	}
}

// ensureInitLocked performs §4.8's lazy init exactly once. Callers must
// already hold mu.
func (m *Memory) ensureInitLocked(ctx context.Context) error {
	if m.initDone {
		return nil
	}

	if err := m.storage.Init(ctx); err != nil {
		return err
	}

	accepted := false
	persister, persistable := m.storage.(store.IndexPersister)
	if persistable {
		persisted, err := persister.LoadBM25Index(ctx)
		if err != nil {
			return err
		}
		if persisted != nil {
			newEps, err := m.storage.GetEpisodesSince(ctx, persisted.LastIndexedTimestamp)
			if err != nil {
				return err
			}
			allIDs, err := m.storage.ListEpisodeIDs(ctx)
			if err != nil {
				return err
			}
			lower := persisted.TotalDocs
			upper := persisted.TotalDocs + len(newEps)
			if len(allIDs) >= lower && len(allIDs) <= upper {
				m.idx.RestoreFromPersisted(persisted)
				accepted = true
			}
		}
	}

	// Whether accepted or not, the persisted index omits per-doc tf (§9),
	// so either path ends with a full reload to rebuild term frequencies —
	// the persisted index served only as an oracle for whether the episode
	// set looked consistent, not as a shortcut around the reload.
	slog.Debug("memory_init", slog.Bool("incremental_accepted", accepted))
	allEps, err := m.storage.GetAllEpisodes(ctx)
	if err != nil {
		return err
	}
	indexable, err := m.indexableEpisodes(allEps)
	if err != nil {
		return err
	}
	m.idx.Rebuild(indexable)

	if persistable {
		if err := persister.SaveBM25Index(ctx, m.idx.ToPersisted()); err != nil {
			return err
		}
	}

	m.initDone = true
	return nil
}

// indexableEpisode returns a copy of ep suitable for index.Add: decrypted
// and with tokens recomputed if ep carries an encrypted body (tokens are
// stripped from the on-disk form under encryption — §9 "tokens stored
// on-disk").
func (m *Memory) indexableEpisode(ep *store.Episode) (*store.Episode, error) {
	if !ep.Encrypted {
		return ep, nil
	}
	if m.key == nil {
		return nil, engerrors.PolicyError("episode "+ep.ID+" is encrypted but no key is configured", nil)
	}
	dec, err := crypto.DecryptEpisode(ep, *m.key)
	if err != nil {
		return nil, err
	}
	clone := *dec
	clone.Tokens = analyzer.Tokenize(dec.Text)
	return &clone, nil
}

// indexableEpisodes decrypts/re-tokenizes a batch of episodes in parallel —
// the persistence-glue hydration the teacher's search engine performs with
// errgroup for independent reads (see internal/search/multi_query.go),
// adapted here to independent per-episode decrypt+tokenize work during a
// full rebuild.
func (m *Memory) indexableEpisodes(eps []*store.Episode) ([]*store.Episode, error) {
	out := make([]*store.Episode, len(eps))
	g := new(errgroup.Group)
	for i, ep := range eps {
		i, ep := i, ep
		g.Go(func() error {
			prepared, err := m.indexableEpisode(ep)
			if err != nil {
				return err
			}
			out[i] = prepared
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Memory) persistIndexLocked(ctx context.Context) error {
	persister, ok := m.storage.(store.IndexPersister)
	if !ok {
		return nil
	}
	return persister.SaveBM25Index(ctx, m.idx.ToPersisted())
}

// hydrateLocked loads id's episode and, if encrypted, decrypts it. Returns
// nil, nil if the episode is absent (a stale index entry or a concurrent
// forget).
func (m *Memory) hydrateLocked(ctx context.Context, id string) (*store.Episode, error) {
	ep, err := m.storage.GetEpisode(ctx, id)
	if err != nil {
		return nil, err
	}
	if ep == nil {
		return nil, nil
	}
	if ep.Encrypted || ep.TagsEncrypted {
		if m.key == nil {
			return nil, engerrors.PolicyError("episode "+id+" is encrypted but no key is configured", nil)
		}
		return crypto.DecryptEpisode(ep, *m.key)
	}
	return ep, nil
}

// hydrateManyLocked hydrates a batch of ids in parallel, dropping any that
// come back absent. Order matches the order hits were ranked in.
func (m *Memory) hydrateManyLocked(ctx context.Context, ids []string) ([]*store.Episode, error) {
	out := make([]*store.Episode, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			ep, err := m.hydrateLocked(gctx, id)
			if err != nil {
				return err
			}
			out[i] = ep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]*store.Episode, 0, len(out))
	for _, ep := range out {
		if ep != nil {
			result = append(result, ep)
		}
	}
	return result, nil
}

func (m *Memory) encryptForStorage(ep *store.Episode) (*store.Episode, error) {
	if m.key == nil {
		return ep, nil
	}
	return crypto.EncryptEpisode(ep, *m.key)
}

// RememberOptions configures a remember() call (§4.8).
type RememberOptions struct {
	Type       string
	Tags       []string
	Importance float64 // 0 => default 0.5
	Supersedes []string
	Metadata   map[string]string
	ChunkMode  analyzer.Mode // "" => config default
	MaxTokens  int           // 0 => config default
	Overlap    int           // 0 => config default / analyzer.DefaultOverlap
}

// Remember chunks text, constructs one episode per chunk, indexes, encrypts,
// persists, and maintains supersession back-links (§4.8 remember).
func (m *Memory) Remember(ctx context.Context, text string, opts RememberOptions) ([]*store.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return nil, err
	}
	return m.rememberLocked(ctx, text, opts)
}

func (m *Memory) rememberLocked(ctx context.Context, text string, opts RememberOptions) ([]*store.Episode, error) {
	mode := opts.ChunkMode
	if mode == "" {
		mode = analyzer.Mode(m.cfg.Chunking.Mode)
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = m.cfg.Chunking.MaxTokens
	}
	overlap := opts.Overlap
	if overlap == 0 {
		overlap = m.cfg.Chunking.OverlapTokens
	}
	if overlap == 0 {
		overlap = analyzer.DefaultOverlap
	}

	chunks := analyzer.Chunk(text, mode, maxTokens, overlap)
	if len(chunks) == 0 {
		return nil, nil
	}

	now := m.now()
	importance := opts.Importance
	if importance == 0 {
		importance = 0.5
	}
	src := sourceID(text)
	tags := dedupeTags(opts.Tags)
	typ := opts.Type
	if typ == "" {
		typ = "fact"
	}

	episodes := make([]*store.Episode, 0, len(chunks))
	for i, chunkText := range chunks {
		id, err := newEpisodeID(m.agentID, now)
		if err != nil {
			return nil, err
		}
		ep := &store.Episode{
			ID:             id,
			Text:           chunkText,
			Type:           typ,
			Tags:           tags,
			Importance:     importance,
			AgentID:        m.agentID,
			Metadata:       opts.Metadata,
			ChunkIndex:     i,
			TotalChunks:    len(chunks),
			SourceID:       src,
			CreatedAt:      now,
			LastAccessedAt: now,
			Tokens:         analyzer.Tokenize(chunkText),
		}
		if i == 0 && len(opts.Supersedes) > 0 {
			ep.Supersedes = append([]string(nil), opts.Supersedes...)
		}
		episodes = append(episodes, ep)
	}

	for _, ep := range episodes {
		m.idx.Add(ep)
		toSave, err := m.encryptForStorage(ep)
		if err != nil {
			return nil, err
		}
		if err := m.storage.SaveEpisode(ctx, toSave); err != nil {
			return nil, err
		}
		if err := m.storage.AddToTagIndex(ctx, toSave); err != nil {
			return nil, err
		}
	}

	if len(episodes) > 0 && len(opts.Supersedes) > 0 {
		newID := episodes[0].ID
		for _, oldID := range opts.Supersedes {
			cycle, err := index.WouldCreateCycle(ctx, newID, oldID, m.storage)
			if err != nil {
				return nil, err
			}
			if cycle {
				return nil, engerrors.UsageError("supersedes "+oldID+" would create a cycle", nil)
			}

			oldEp, err := m.storage.GetEpisode(ctx, oldID)
			if err != nil {
				return nil, err
			}
			if oldEp == nil {
				continue
			}
			if !containsID(oldEp.SupersededBy, newID) {
				oldEp.SupersededBy = append(oldEp.SupersededBy, newID)
				if err := m.storage.SaveEpisode(ctx, oldEp); err != nil {
					return nil, err
				}
			}
			m.idx.UpdateSupersededBy(oldID, newID)
		}
	}

	if err := m.persistIndexLocked(ctx); err != nil {
		return nil, err
	}

	return episodes, nil
}

// RecallOptions configures a recall() call (§4.5 search options, surfaced
// through the orchestrator).
type RecallOptions struct {
	Tags              []string
	Type              string
	After             int64
	Before            int64
	MinImportance     *float64
	UseSynonyms       *bool
	IncludeSuperseded bool
	Limit             int
}

func (o RecallOptions) toSearchOptions(cfg *config.Config) index.SearchOptions {
	limit := o.Limit
	if limit == 0 {
		limit = cfg.Index.DefaultLimit
	}
	return index.SearchOptions{
		Tags:              o.Tags,
		Type:              o.Type,
		After:             o.After,
		Before:            o.Before,
		MinImportance:     o.MinImportance,
		UseSynonyms:       o.UseSynonyms,
		IncludeSuperseded: o.IncludeSuperseded,
		Limit:             limit,
		RecencyWeight:     cfg.Index.RecencyWeight,
		RecencyLambda:     cfg.Index.RecencyLambda,
		SynonymWeight:     cfg.Index.SynonymWeight,
		SupersededPenalty: cfg.Index.SupersededPenalty,
		K1:                cfg.Index.K1,
		B:                 cfg.Index.B,
	}
}

// RecallResult is one ranked, hydrated recall hit (§4.8's "_score"/"_bm25"/
// "_recency" annotation).
type RecallResult struct {
	Episode *store.Episode
	Score   float64
	BM25    float64
	Recency float64
}

// Recall searches in memory, lazily hydrates the top-K episodes, decrypts
// them, updates access stats, and re-persists the touched episodes (§4.8
// recall).
func (m *Memory) Recall(ctx context.Context, query string, opts RecallOptions) ([]*RecallResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return nil, err
	}
	return m.recallLocked(ctx, query, opts)
}

func (m *Memory) recallLocked(ctx context.Context, query string, opts RecallOptions) ([]*RecallResult, error) {
	now := m.now()
	hits := m.idx.Search(query, now, m.syn, opts.toSearchOptions(m.cfg))
	if len(hits) == 0 {
		return nil, nil
	}

	results := make([]*RecallResult, 0, len(hits))
	for _, h := range hits {
		ep, err := m.hydrateLocked(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		if ep == nil {
			continue
		}

		ep.LastAccessedAt = now
		ep.AccessCount++
		m.idx.UpdateLastAccessed(h.ID, now)

		toSave, err := m.encryptForStorage(ep)
		if err != nil {
			return nil, err
		}
		if err := m.storage.SaveEpisode(ctx, toSave); err != nil {
			return nil, err
		}

		results = append(results, &RecallResult{Episode: ep, Score: h.Score, BM25: h.BM25, Recency: h.Recency})
	}
	return results, nil
}

// Stats reports store and index counts (§4.1 getStats).
func (m *Memory) Stats(ctx context.Context) (*store.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return nil, err
	}
	return m.storage.GetStats(ctx)
}

// Forget deletes id from storage, the tag index, and the in-memory index,
// re-persisting the index afterward (§3.4). Reports false if id was absent.
func (m *Memory) Forget(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return false, err
	}
	return m.forgetLocked(ctx, id)
}

func (m *Memory) forgetLocked(ctx context.Context, id string) (bool, error) {
	deleted, err := m.storage.DeleteEpisode(ctx, id)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}
	m.idx.Remove(id)
	if err := m.storage.RemoveFromTagIndex(ctx, id); err != nil {
		return false, err
	}
	if err := m.persistIndexLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// GetRecent returns the n most recently created episodes, newest first.
func (m *Memory) GetRecent(ctx context.Context, n int) ([]*store.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return nil, err
	}
	return m.getRecentLocked(ctx, n)
}

func (m *Memory) getRecentLocked(ctx context.Context, n int) ([]*store.Episode, error) {
	entries := m.idx.AllEntries()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt != entries[j].CreatedAt {
			return entries[i].CreatedAt > entries[j].CreatedAt
		}
		return entries[i].ID < entries[j].ID
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return m.hydrateManyLocked(ctx, ids)
}

// FindByTag returns every episode carrying tag, in the tag index's
// insertion order.
func (m *Memory) FindByTag(ctx context.Context, tag string) ([]*store.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return nil, err
	}
	ids, err := m.storage.GetByTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	return m.hydrateManyLocked(ctx, ids)
}

// SupersessionChain returns the full oldest→newest chain rootID belongs to
// (§4.5 supersessionChain), hydrated.
func (m *Memory) SupersessionChain(ctx context.Context, rootID string) ([]*store.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureInitLocked(ctx); err != nil {
		return nil, err
	}
	ids, err := index.SupersessionChain(ctx, rootID, m.storage)
	if err != nil {
		return nil, err
	}
	chain := make([]*store.Episode, 0, len(ids))
	for _, id := range ids {
		ep, err := m.hydrateLocked(ctx, id)
		if err != nil {
			return nil, err
		}
		if ep != nil {
			chain = append(chain, ep)
		}
	}
	return chain, nil
}
