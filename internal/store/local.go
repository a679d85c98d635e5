package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	engerrors "github.com/engramhq/engram/internal/errors"
)

const (
	episodesDirName = "episodes"
	indexDirName    = "index"
	anchorsDirName  = "anchors"
	tagsFileName    = "tags.json"
	bm25FileName    = "bm25-index.json"
)

// LocalStore is the local filesystem tree implementation of Store (§6.1).
// Episode bodies live one-per-file under episodes/; the tag index and BM25
// index are single JSON files under index/.
type LocalStore struct {
	basePath string
	lock     *storeLock

	tagMu sync.Mutex
}

// NewLocalStore returns a LocalStore rooted at basePath. Call Init before
// any other operation.
func NewLocalStore(basePath string) *LocalStore {
	return &LocalStore{
		basePath: basePath,
		lock:     newStoreLock(basePath),
	}
}

// Init creates the backing directory tree and takes the advisory exclusive
// lock. Idempotent across repeated calls within the same process; a second
// process pointed at the same path fails with a TransportError.
func (s *LocalStore) Init(ctx context.Context) error {
	for _, dir := range []string{
		s.basePath,
		filepath.Join(s.basePath, episodesDirName),
		filepath.Join(s.basePath, indexDirName),
		filepath.Join(s.basePath, anchorsDirName),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return engerrors.TransportError("create store directory: "+dir, err)
		}
	}

	if !s.lock.locked {
		if err := s.lock.acquire(); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the store's advisory lock.
func (s *LocalStore) Close() error {
	return s.lock.release()
}

func (s *LocalStore) episodePath(id string) string {
	return filepath.Join(s.basePath, episodesDirName, id+".json")
}

// writeJSONAtomic marshals v as pretty JSON and writes it via a temp-file +
// rename so a crash mid-write never leaves a half-written file in place.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return engerrors.Malformed("marshal "+path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return engerrors.TransportError("write "+path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return engerrors.TransportError("rename into place: "+path, err)
	}
	return nil
}

// SaveEpisode overwrites by id; last writer wins.
func (s *LocalStore) SaveEpisode(ctx context.Context, ep *Episode) error {
	return writeJSONAtomic(s.episodePath(ep.ID), ep)
}

// GetEpisode returns the episode most recently written, or nil if absent.
// A corrupt episode file is Malformed, never poisoning callers that iterate
// the whole store — see GetAllEpisodes.
func (s *LocalStore) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	data, err := os.ReadFile(s.episodePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, engerrors.TransportError("read episode: "+id, err)
	}

	var ep Episode
	if err := json.Unmarshal(data, &ep); err != nil {
		return nil, engerrors.Malformed("parse episode: "+id, err)
	}
	return &ep, nil
}

// DeleteEpisode reports true on removal, false if the id was absent.
func (s *LocalStore) DeleteEpisode(ctx context.Context, id string) (bool, error) {
	err := os.Remove(s.episodePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, engerrors.TransportError("delete episode: "+id, err)
	}
	return true, nil
}

// GetAllEpisodes reads every episode file. A malformed individual file is
// skipped silently rather than failing the whole call (§7 Malformed policy).
func (s *LocalStore) GetAllEpisodes(ctx context.Context) ([]*Episode, error) {
	ids, err := s.ListEpisodeIDs(ctx)
	if err != nil {
		return nil, err
	}

	episodes := make([]*Episode, 0, len(ids))
	for _, id := range ids {
		ep, err := s.GetEpisode(ctx, id)
		if err != nil {
			if engerrors.GetCategory(err) == engerrors.CategoryMalformed {
				continue
			}
			return nil, err
		}
		if ep != nil {
			episodes = append(episodes, ep)
		}
	}
	return episodes, nil
}

// ListEpisodeIDs is cheap: it reads directory entries, not episode bodies.
func (s *LocalStore) ListEpisodeIDs(ctx context.Context) ([]string, error) {
	dir := filepath.Join(s.basePath, episodesDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, engerrors.TransportError("list episodes directory", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".tmp") && strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	return ids, nil
}

// GetEpisodesSince returns all episodes with createdAt strictly greater
// than sinceUnixMs.
func (s *LocalStore) GetEpisodesSince(ctx context.Context, sinceUnixMs int64) ([]*Episode, error) {
	all, err := s.GetAllEpisodes(ctx)
	if err != nil {
		return nil, err
	}

	var out []*Episode
	for _, ep := range all {
		if ep.CreatedAt > sinceUnixMs {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (s *LocalStore) tagsPath() string {
	return filepath.Join(s.basePath, indexDirName, tagsFileName)
}

func (s *LocalStore) readTagIndex() (map[string][]string, error) {
	data, err := os.ReadFile(s.tagsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, engerrors.TransportError("read tag index", err)
	}

	tags := map[string][]string{}
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, engerrors.Malformed("parse tag index", err)
	}
	return tags, nil
}

// AddToTagIndex records ep.ID under each of ep.Tags, insertion-ordered,
// deduplicated per tag.
func (s *LocalStore) AddToTagIndex(ctx context.Context, ep *Episode) error {
	s.tagMu.Lock()
	defer s.tagMu.Unlock()

	tags, err := s.readTagIndex()
	if err != nil {
		return err
	}

	for _, tag := range ep.Tags {
		ids := tags[tag]
		if !containsID(ids, ep.ID) {
			tags[tag] = append(ids, ep.ID)
		}
	}

	return writeJSONAtomic(s.tagsPath(), tags)
}

// RemoveFromTagIndex strips id from every tag's id list.
func (s *LocalStore) RemoveFromTagIndex(ctx context.Context, id string) error {
	s.tagMu.Lock()
	defer s.tagMu.Unlock()

	tags, err := s.readTagIndex()
	if err != nil {
		return err
	}

	changed := false
	for tag, ids := range tags {
		filtered := make([]string, 0, len(ids))
		for _, existing := range ids {
			if existing == id {
				changed = true
				continue
			}
			filtered = append(filtered, existing)
		}
		if len(filtered) == 0 {
			delete(tags, tag)
			changed = true
		} else {
			tags[tag] = filtered
		}
	}

	if !changed {
		return nil
	}
	return writeJSONAtomic(s.tagsPath(), tags)
}

// GetByTag returns the ids recorded for tag, in insertion order.
func (s *LocalStore) GetByTag(ctx context.Context, tag string) ([]string, error) {
	s.tagMu.Lock()
	defer s.tagMu.Unlock()

	tags, err := s.readTagIndex()
	if err != nil {
		return nil, err
	}
	return tags[tag], nil
}

func (s *LocalStore) bm25Path() string {
	return filepath.Join(s.basePath, indexDirName, bm25FileName)
}

// LoadBM25Index returns the persisted index, or nil if absent or corrupt
// (treated as "absent" per §7, forcing the caller to do a full rebuild).
func (s *LocalStore) LoadBM25Index(ctx context.Context) (*BM25Index, error) {
	data, err := os.ReadFile(s.bm25Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, engerrors.TransportError("read bm25 index", err)
	}

	var idx BM25Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, nil
	}
	return &idx, nil
}

// SaveBM25Index persists the current index snapshot.
func (s *LocalStore) SaveBM25Index(ctx context.Context, idx *BM25Index) error {
	return writeJSONAtomic(s.bm25Path(), idx)
}

// GetStats reports episode count, total bytes of episode files, and the
// backing path.
func (s *LocalStore) GetStats(ctx context.Context) (*Stats, error) {
	dir := filepath.Join(s.basePath, episodesDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Stats{BackingPath: s.basePath}, nil
		}
		return nil, engerrors.TransportError("stat episodes directory", err)
	}

	var total int64
	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
		count++
	}

	return &Stats{
		EpisodeCount: count,
		TotalBytes:   total,
		BackingPath:  s.basePath,
	}, nil
}

// AnchorsDir returns the directory snapshot records are written to.
func (s *LocalStore) AnchorsDir() string {
	return filepath.Join(s.basePath, anchorsDirName)
}

// BasePath returns the store's root directory.
func (s *LocalStore) BasePath() string {
	return s.basePath
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

var _ Store = (*LocalStore)(nil)
var _ IndexPersister = (*LocalStore)(nil)
