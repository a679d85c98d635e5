// Package store defines the storage contract (C4) for episode persistence
// and its two implementations: a local filesystem tree and a remote
// key-value adapter. Core code depends only on the Store interface.
package store

// Episode is the on-disk/wire representation of a stored memory unit. JSON
// tags match the on-disk schema (§6.4): non-secret fields always remain in
// cleartext; text/tags may hold serialized AEAD envelopes instead of their
// plain form when the sideband flags are set.
type Episode struct {
	ID             string            `json:"id"`
	Text           string            `json:"text"`
	Type           string            `json:"type"`
	Tags           []string          `json:"tags"`
	Importance     float64           `json:"importance"`
	AgentID        string            `json:"agentId"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	ChunkIndex     int               `json:"chunkIndex"`
	TotalChunks    int               `json:"totalChunks"`
	SourceID       string            `json:"sourceId"`
	CreatedAt      int64             `json:"createdAt"`
	LastAccessedAt int64             `json:"lastAccessedAt"`
	AccessCount    int               `json:"accessCount"`
	Tokens         []string          `json:"tokens,omitempty"`
	Supersedes     []string          `json:"supersedes,omitempty"`
	SupersededBy   []string          `json:"supersededBy,omitempty"`
	Encrypted      bool              `json:"_encrypted,omitempty"`
	TagsEncrypted  bool              `json:"_tagsEncrypted,omitempty"`
}

// DocMeta is the slim per-doc metadata persisted alongside the BM25 index
// (§6.2 docMeta) — everything search needs except per-doc term frequency.
type DocMeta struct {
	CreatedAt      int64    `json:"createdAt"`
	Importance     float64  `json:"importance"`
	LastAccessedAt int64    `json:"lastAccessedAt"`
	Tags           []string `json:"tags"`
	Type           string   `json:"type"`
}

// BM25Index is the persisted form of the inverted statistics (§6.2). Per-doc
// term frequency is deliberately absent; see the package doc on
// internal/index for the rebuild policy this implies.
type BM25Index struct {
	Version              string             `json:"version"`
	DF                   map[string]int     `json:"df"`
	DocLengths           map[string]int     `json:"docLengths"`
	DocMeta              map[string]DocMeta `json:"docMeta"`
	TotalDocs            int                `json:"totalDocs"`
	TotalLength          int                `json:"totalLength"`
	LastIndexedTimestamp int64              `json:"lastIndexedTimestamp"`
}

// Stats summarizes a store's contents (§4.1 getStats).
type Stats struct {
	EpisodeCount int    `json:"episodeCount"`
	TotalBytes   int64  `json:"totalBytes"`
	BackingPath  string `json:"backingPath"`
}
