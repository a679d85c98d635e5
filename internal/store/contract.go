package store

import "context"

// Store is the storage contract (§4.1). Both the local filesystem tree and
// the remote key-value adapter satisfy it; core code must not assume one
// implementation over the other.
type Store interface {
	// Init creates any backing containers. Idempotent.
	Init(ctx context.Context) error

	// SaveEpisode overwrites by id. Last-writer-wins.
	SaveEpisode(ctx context.Context, ep *Episode) error

	// GetEpisode returns the episode most recently written, or nil if absent.
	GetEpisode(ctx context.Context, id string) (*Episode, error)

	// DeleteEpisode reports true on removal, false if the id was absent.
	DeleteEpisode(ctx context.Context, id string) (bool, error)

	// GetAllEpisodes may eagerly materialize the whole store; order is
	// unspecified.
	GetAllEpisodes(ctx context.Context) ([]*Episode, error)

	// ListEpisodeIDs is cheap: no episode body is read.
	ListEpisodeIDs(ctx context.Context) ([]string, error)

	// GetEpisodesSince returns all episodes with createdAt > sinceUnixMs.
	GetEpisodesSince(ctx context.Context, sinceUnixMs int64) ([]*Episode, error)

	// AddToTagIndex, RemoveFromTagIndex, GetByTag maintain tag -> ids, ids
	// unique per tag, order = insertion.
	AddToTagIndex(ctx context.Context, ep *Episode) error
	RemoveFromTagIndex(ctx context.Context, id string) error
	GetByTag(ctx context.Context, tag string) ([]string, error)

	// GetStats reports episode count, bytes, and the backing path.
	GetStats(ctx context.Context) (*Stats, error)
}

// IndexPersister is a capability a Store may optionally satisfy: persisting
// and restoring the BM25 index (§4.1's "optional; absent implementations
// force full rebuild"). Checked with a type assertion rather than a duck-type
// method-presence probe.
type IndexPersister interface {
	LoadBM25Index(ctx context.Context) (*BM25Index, error)
	SaveBM25Index(ctx context.Context, idx *BM25Index) error
}
