package corpusstorage

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/korpling/graphannis-go/pkg/aql"
	"github.com/korpling/graphannis-go/pkg/exec"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/plan"
)

// Order selects how Find sorts its result rows, per spec.md section
// 4.9.
type Order int

const (
	Normal Order = iota
	Inverted
	Randomized
	NotSorted
)

// MatchRow is one Find result: the matched node names, annotated with
// the qualified key each position matched under.
type MatchRow []MatchedNode

// MatchedNode is one bound position in a MatchRow.
type MatchedNode struct {
	NodeName string
	Key      gmodel.AnnoKey
}

// queryPlans parses query into its disjunction of conjunctions and
// plans each one against h's graph. h must already be locked by the
// caller.
func (h *corpusHandle) queryPlans(query string) ([]exec.Node, error) {
	parsed, err := aql.Parse(query)
	if err != nil {
		return nil, err
	}
	nodes := make([]exec.Node, 0, len(parsed.Conjunctions))
	for _, conj := range parsed.Conjunctions {
		n, err := plan.Plan(h.graph, conj)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// rowToMatchRow converts one exec.Match into node names, resolving each
// bound id via h's graph. h must already be locked by the caller.
func (h *corpusHandle) rowToMatchRow(m exec.Match) (MatchRow, error) {
	out := make(MatchRow, len(m))
	for i, el := range m {
		name, ok := h.graph.NodeName(el.Node)
		if !ok {
			return nil, fmt.Errorf("corpusstorage: match referenced unknown node %d", el.Node)
		}
		out[i] = MatchedNode{NodeName: name, Key: el.Key}
	}
	return out, nil
}

// Count parses query, plans and executes it over the union of corpora
// and returns the total number of matches, per spec.md section 4.9.
func (s *Store) Count(ctx context.Context, corpora []string, query string) (int64, error) {
	var total int64
	for _, name := range corpora {
		h, err := s.acquire(name)
		if err != nil {
			return 0, err
		}
		h.mu.RLock()
		n, err := countOne(ctx, h, query)
		h.mu.RUnlock()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func countOne(ctx context.Context, h *corpusHandle, query string) (int64, error) {
	trees, err := h.queryPlans(query)
	if err != nil {
		return 0, err
	}
	var count int64
	for _, tree := range trees {
		for _, err := range tree.Matches(ctx) {
			if err != nil {
				return 0, err
			}
			count++
		}
	}
	return count, nil
}

// CountExtraResult is Count's "extra" variant: the total match count
// plus the number of distinct documents (the nearest PartOf ancestor of
// each match's first node) that contain at least one match.
type CountExtraResult struct {
	MatchCount    int64
	DocumentCount int64
}

func (s *Store) CountExtra(ctx context.Context, corpora []string, query string) (*CountExtraResult, error) {
	result := &CountExtraResult{}
	docs := make(map[string]bool)
	for _, name := range corpora {
		h, err := s.acquire(name)
		if err != nil {
			return nil, err
		}
		h.mu.RLock()
		err = func() error {
			trees, err := h.queryPlans(query)
			if err != nil {
				return err
			}
			partOf, _ := h.graph.GraphStorage(gmodel.AnnisComponent(gmodel.PartOf, ""))
			for _, tree := range trees {
				for row, err := range tree.Matches(ctx) {
					if err != nil {
						return err
					}
					result.MatchCount++
					if len(row) == 0 {
						continue
					}
					doc := nearestDocument(partOf, row[0].Node)
					if docName, ok := h.graph.NodeName(doc); ok {
						docs[name+"\x00"+docName] = true
					}
				}
			}
			return nil
		}()
		h.mu.RUnlock()
		if err != nil {
			return nil, err
		}
	}
	result.DocumentCount = int64(len(docs))
	return result, nil
}

// nearestDocument walks one PartOf hop from id, returning id itself if
// it has none (a top-level corpus node, or PartOf was not loaded).
func nearestDocument(partOf interface {
	GetOutgoingEdges(gmodel.NodeID) ([]gmodel.NodeID, error)
}, id gmodel.NodeID) gmodel.NodeID {
	if partOf == nil {
		return id
	}
	targets, err := partOf.GetOutgoingEdges(id)
	if err != nil || len(targets) == 0 {
		return id
	}
	return targets[0]
}

// Find returns a page of MatchRows for query over the union of corpora,
// per spec.md section 4.9.
func (s *Store) Find(ctx context.Context, corpora []string, query string, offset, limit int, order Order) ([]MatchRow, error) {
	var all []MatchRow
	for _, name := range corpora {
		h, err := s.acquire(name)
		if err != nil {
			return nil, err
		}
		h.mu.RLock()
		rows, err := func() ([]MatchRow, error) {
			trees, err := h.queryPlans(query)
			if err != nil {
				return nil, err
			}
			var out []MatchRow
			for _, tree := range trees {
				for m, err := range tree.Matches(ctx) {
					if err != nil {
						return nil, err
					}
					row, err := h.rowToMatchRow(m)
					if err != nil {
						return nil, err
					}
					out = append(out, row)
				}
			}
			return out, nil
		}()
		h.mu.RUnlock()
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}

	switch order {
	case Inverted:
		sort.SliceStable(all, func(i, j int) bool { return rowKey(all[i]) > rowKey(all[j]) })
	case Normal:
		sort.SliceStable(all, func(i, j int) bool { return rowKey(all[i]) < rowKey(all[j]) })
	case Randomized:
		rand.New(rand.NewSource(int64(plan.Seed))).Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	case NotSorted:
	}

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func rowKey(row MatchRow) string {
	if len(row) == 0 {
		return ""
	}
	return row[0].NodeName
}
