package corpusstorage

import (
	"fmt"
	"os"

	"github.com/korpling/graphannis-go/internal/dirlock"
	"github.com/korpling/graphannis-go/pkg/annograph"
	"github.com/korpling/graphannis-go/pkg/annostorage"
	"github.com/korpling/graphannis-go/pkg/gerr"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/relannis"
	"github.com/korpling/graphannis-go/pkg/updatelog"
)

// CorpusInfo is one entry of List's result.
type CorpusInfo struct {
	Name   string
	Config Config
}

// List enumerates every corpus subdirectory under the store's root,
// skipping any whose corpus-config fails to load, per spec.md section
// 4.9.
func (s *Store) List() ([]CorpusInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []CorpusInfo
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "files" {
			continue
		}
		name, err := decodeName(entry.Name())
		if err != nil {
			continue
		}
		cfg, err := loadConfig(s.configPath(name))
		if err != nil {
			continue
		}
		out = append(out, CorpusInfo{Name: name, Config: cfg})
	}
	return out, nil
}

// ImportOptions configures one Import call.
type ImportOptions struct {
	// Path is the relANNIS export directory to read.
	Path string
	// Replace allows overwriting an existing corpus of the same name;
	// without it, Import fails with ErrCorpusExists.
	Replace bool
	// Config seeds the imported corpus's corpus-config. When the export
	// has resolver visualizer entries or example queries, they replace
	// Config's Visualizers or ExampleQueries list respectively.
	Config Config
	Progress relannis.ProgressFunc
}

// Import drives the relANNIS loader, applies the resulting update
// events to a fresh annotation graph, and persists both the graph (via
// its update log) and its corpus-config, per spec.md section 4.9.
func (s *Store) Import(name string, opts ImportOptions) (*relannis.Result, error) {
	if s.exists(name) {
		if !opts.Replace {
			return nil, fmt.Errorf("%w: %s", gerr.ErrCorpusExists, name)
		}
		if err := s.Delete(name); err != nil {
			return nil, err
		}
	}

	dir := s.corpusDir(name)
	current := s.currentDir(name)
	if err := os.MkdirAll(current, 0o755); err != nil {
		return nil, err
	}

	lock, err := dirlock.Acquire(dir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	events, result, err := relannis.Import(opts.Path, opts.Progress)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	graph := annograph.New()
	if err := graph.ApplyUpdate(events, nil); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	log, err := updatelog.Open(s.updateLogDir(name))
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	for _, event := range events {
		if _, err := log.Append(event); err != nil {
			_ = log.Close()
			_ = os.RemoveAll(dir)
			return nil, err
		}
	}

	cfg := opts.Config
	if len(result.ResolverVisMap) > 0 {
		cfg.Visualizers = make([]VisualizerRule, len(result.ResolverVisMap))
		for i, r := range result.ResolverVisMap {
			cfg.Visualizers[i] = VisualizerRule{
				Namespace: r.Namespace, Element: r.Element, VisType: r.VisType,
				DisplayName: r.DisplayName, Visibility: r.Visibility, Order: r.Order,
				Mappings: r.Mappings,
			}
		}
	}
	if len(result.ExampleQueries) > 0 {
		cfg.ExampleQueries = make([]ExampleQuery, len(result.ExampleQueries))
		for i, q := range result.ExampleQueries {
			cfg.ExampleQueries[i] = ExampleQuery{Query: q.Query, Description: q.Description}
		}
	}
	if err := saveConfig(s.configPath(name), cfg); err != nil {
		_ = log.Close()
		_ = os.RemoveAll(dir)
		return nil, err
	}

	s.mu.Lock()
	s.open[name] = &corpusHandle{name: name, dir: current, graph: graph, log: log, config: cfg}
	s.mu.Unlock()
	s.cache.Set(name, s.open[name], 1)

	return result, nil
}

// Delete removes name's corpus directory under its write lock, per
// spec.md section 4.9. Any cached handle is evicted first so the log's
// BadgerDB files are closed before their directory is removed.
func (s *Store) Delete(name string) error {
	if !s.exists(name) {
		return fmt.Errorf("%w: %s", gerr.ErrNoSuchCorpus, name)
	}

	dir := s.corpusDir(name)
	lock, err := dirlock.Acquire(dir)
	if err != nil {
		return err
	}
	defer lock.Release()

	s.mu.Lock()
	h, ok := s.open[name]
	delete(s.open, name)
	s.mu.Unlock()
	if ok {
		h.mu.Lock()
		_ = h.log.Close()
		h.mu.Unlock()
	}
	s.cache.Del(name)

	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	_ = os.RemoveAll(s.filesDir(name))
	return nil
}

// Info reports a corpus's resident component set and sizing, per
// spec.md section 4.9's info() call.
type Info struct {
	Name       string
	Config     Config
	Components []string
	NodeCount  int64
}

func (s *Store) Info(name string) (*Info, error) {
	h, err := s.acquire(name)
	if err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	comps := h.graph.Components()
	names := make([]string, len(comps))
	for i, c := range comps {
		names[i] = c.String()
	}
	var count int64
	for range h.graph.Nodes.ExactAnnoSearch(gmodel.NodeNameKey, annostorage.ValueSearch{Kind: annostorage.Any}) {
		count++
	}
	return &Info{Name: name, Config: h.config, Components: names, NodeCount: count}, nil
}
