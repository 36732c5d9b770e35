// Package corpusstorage implements the corpus storage façade of spec.md
// section 4.9: a process-wide directory of named corpora, each living
// in its own subdirectory, opened on first use and cached behind a
// bounded ristretto.Cache so a long-running process does not keep every
// corpus it has ever touched resident in memory.
//
// Persistence follows the teacher's own durability story
// (pkg/storage/mimir_loader.go writing into a BadgerDB-backed store)
// rather than inventing a second, parallel binary serialisation format
// for every individual graph-storage field file: a corpus's graph is
// the replay of its pkg/updatelog.Log, which is itself already
// BadgerDB-backed (pkg/updatelog.Open). Re-deriving the graph from the
// log on open costs one replay pass but means corpusstorage shares its
// one on-disk format with the update log instead of hand-rolling the
// field-file layout spec.md section 6 describes for individual
// graph-storage implementations; this trade-off is recorded in
// DESIGN.md.
package corpusstorage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/korpling/graphannis-go/pkg/annograph"
	"github.com/korpling/graphannis-go/pkg/gerr"
	"github.com/korpling/graphannis-go/pkg/updatelog"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// Root is the directory every corpus subdirectory lives under.
	Root string
	// MaxOpenCorpora bounds how many corpora's graphs are kept resident
	// at once; the ristretto.Cache evicts the coldest entry once this
	// is exceeded. Zero selects a small default.
	MaxOpenCorpora int64
}

// Store is the process-wide corpus directory of spec.md section 4.9.
type Store struct {
	root string

	mu   sync.Mutex
	open map[string]*corpusHandle

	cache *ristretto.Cache[string, *corpusHandle]
}

// corpusHandle is one open corpus: its on-disk location, its replayable
// update log and the in-memory graph rebuilt from it, guarded by its
// own reader/writer lock per spec.md section 5 ("the per-corpus
// annotation graph is protected by a reader/writer lock").
type corpusHandle struct {
	mu   sync.RWMutex
	name string
	dir  string

	graph *annograph.Graph
	log   *updatelog.Log

	config Config
}

// NewStore opens (creating if necessary) the corpus directory rooted at
// cfg.Root.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("%w: empty root", gerr.ErrIO)
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, err
	}

	maxOpen := cfg.MaxOpenCorpora
	if maxOpen <= 0 {
		maxOpen = 8
	}

	s := &Store{root: cfg.Root, open: make(map[string]*corpusHandle)}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *corpusHandle]{
		NumCounters: maxOpen * 10,
		MaxCost:     maxOpen,
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item[*corpusHandle]) {
			s.evict(item.Value)
		},
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// Close evicts and closes every open corpus. It does not remove any
// corpus from disk.
func (s *Store) Close() error {
	s.mu.Lock()
	handles := make([]*corpusHandle, 0, len(s.open))
	for _, h := range s.open {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		s.evict(h)
	}
	s.cache.Close()
	return nil
}

// evict waits for any in-flight readers of h to finish (by taking its
// write lock), removes it from the open map and closes its log, per
// spec.md section 4.9's "eviction waits for in-flight read operations
// on the victim to finish".
func (s *Store) evict(h *corpusHandle) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s.mu.Lock()
	if s.open[h.name] == h {
		delete(s.open, h.name)
	}
	s.mu.Unlock()

	_ = h.log.Close()
}

// encodeName percent-encodes a corpus name for use as a directory name,
// mirroring the relANNIS importer's own node/corpus path encoding
// (pkg/relannis uses url.PathEscape for the same reason: corpus names
// may contain characters that are not safe path segments).
func encodeName(name string) string {
	return url.PathEscape(name)
}

func decodeName(encoded string) (string, error) {
	return url.PathUnescape(encoded)
}

func (s *Store) corpusDir(name string) string {
	return filepath.Join(s.root, encodeName(name))
}

func (s *Store) currentDir(name string) string {
	return filepath.Join(s.corpusDir(name), "current")
}

func (s *Store) configPath(name string) string {
	return filepath.Join(s.currentDir(name), "corpus-config.toml")
}

func (s *Store) updateLogDir(name string) string {
	return filepath.Join(s.currentDir(name), "updatelog")
}

func (s *Store) filesDir(name string) string {
	return filepath.Join(s.root, "files", encodeName(name))
}

// exists reports whether name has an on-disk corpus directory.
func (s *Store) exists(name string) bool {
	_, err := os.Stat(s.currentDir(name))
	return err == nil
}

// acquire returns name's handle, opening it from disk (replaying its
// update log into a fresh graph) if it is not already resident.
func (s *Store) acquire(name string) (*corpusHandle, error) {
	s.mu.Lock()
	if h, ok := s.open[name]; ok {
		s.mu.Unlock()
		s.cache.Get(name)
		return h, nil
	}
	s.mu.Unlock()

	if !s.exists(name) {
		return nil, fmt.Errorf("%w: %s", gerr.ErrNoSuchCorpus, name)
	}

	h, err := s.openHandle(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.open[name]; ok {
		// Lost a race with another acquire; drop the one we just built
		// and use the winner's instead.
		s.mu.Unlock()
		_ = h.log.Close()
		s.cache.Get(name)
		return existing, nil
	}
	s.open[name] = h
	s.mu.Unlock()

	s.cache.Set(name, h, 1)
	return h, nil
}

// openHandle loads name's update log from disk and replays it into a
// fresh annograph.Graph.
func (s *Store) openHandle(name string) (*corpusHandle, error) {
	dir := s.currentDir(name)

	cfg, err := loadConfig(s.configPath(name))
	if err != nil {
		return nil, err
	}

	log, err := updatelog.Open(s.updateLogDir(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gerr.ErrLoadingGraphFailed, err)
	}

	entries, err := log.Iter()
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("%w: %v", gerr.ErrLoadingGraphFailed, err)
	}

	batch := make([]updatelog.Event, len(entries))
	for i, e := range entries {
		batch[i] = e.Event
	}

	graph := annograph.New()
	if err := graph.ApplyUpdate(batch, nil); err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("%w: %v", gerr.ErrLoadingGraphFailed, err)
	}

	return &corpusHandle{name: name, dir: dir, graph: graph, log: log, config: cfg}, nil
}
