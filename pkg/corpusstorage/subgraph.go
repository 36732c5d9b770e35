package corpusstorage

import (
	"context"

	"github.com/korpling/graphannis-go/pkg/annograph"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/subgraph"
)

// Subgraph delegates to pkg/subgraph.Extract for a named set of nodes,
// per spec.md section 4.9.
func (s *Store) Subgraph(name string, nodeNames []string, ctxLeft, ctxRight int, segmentation string) (*annograph.Graph, error) {
	h, err := s.acquire(name)
	if err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	return subgraph.Extract(h.graph, subgraph.Request{
		NodeNames:    nodeNames,
		CtxLeft:      ctxLeft,
		CtxRight:     ctxRight,
		Segmentation: segmentation,
	})
}

// SubgraphForQuery runs query's first match and extracts its induced
// sub-graph, restricted to componentTypes if non-empty, per spec.md
// section 4.9.
func (s *Store) SubgraphForQuery(ctx context.Context, name, query string, componentTypes []gmodel.ComponentType) (*annograph.Graph, error) {
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

	var names []string
	for _, tree := range trees {
		for m, err := range tree.Matches(ctx) {
			if err != nil {
				return nil, err
			}
			row, err := h.rowToMatchRow(m)
			if err != nil {
				return nil, err
			}
			for _, el := range row {
				names = append(names, el.NodeName)
			}
			break
		}
		if names != nil {
			break
		}
	}

	return subgraph.Extract(h.graph, subgraph.Request{
		NodeNames:      names,
		ComponentTypes: componentTypes,
	})
}
