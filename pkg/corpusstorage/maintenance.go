package corpusstorage

import (
	"github.com/korpling/graphannis-go/pkg/aql"
)

// UpdateStatistics recomputes every component's statistics and, where
// the shape they reveal suggests a better-fitting representation,
// switches the component's graph storage to it, per spec.md section
// 4.6's OptimizeGSImpl and section 4.9's write-locked maintenance call.
func (s *Store) UpdateStatistics(name string) error {
	h, err := s.acquire(name)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.graph.Components() {
		if err := h.graph.OptimizeGSImpl(c); err != nil {
			return err
		}
	}
	return nil
}

// Preload forces name's graph to be loaded and cached, without running
// a query against it, per spec.md section 4.9.
func (s *Store) Preload(name string) error {
	h, err := s.acquire(name)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return nil
}

// Plan returns the human-readable plan fragments, one per conjunction
// of query, built against name without executing them, per
// spec.md section 4.9.
func (s *Store) Plan(name, query string) ([]string, error) {
	h, err := s.acquire(name)
	if err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	trees, err := h.queryPlans(query)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(trees))
	for i, tree := range trees {
		out[i] = tree.Descriptor().Plan
	}
	return out, nil
}

// ParseQuery exposes pkg/aql.Parse directly, for the CLI's standalone
// "parse" command (spec.md section 6), which only needs to validate a
// query's syntax without planning or running it against any corpus.
func ParseQuery(query string) (*aql.Query, error) {
	return aql.Parse(query)
}
