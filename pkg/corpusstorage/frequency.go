package corpusstorage

import (
	"context"
	"sort"
	"strings"

	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// FrequencyDef names one column of a frequency table: the conjunction
// position whose bound node's annotation value should be projected.
type FrequencyDef struct {
	NodePos int
	Key     gmodel.AnnoKey
}

// FrequencyTableEntry is one row of Frequency's result: the projected
// values, in FrequencyDef order, and how many matches produced them.
type FrequencyTableEntry struct {
	Values []string
	Count  int64
}

// Frequency projects, for every match of query over corpora, the
// annotation values named by defs and counts identical projections,
// returning the table sorted by count descending, per spec.md section
// 4.9.
func (s *Store) Frequency(ctx context.Context, corpora []string, query string, defs []FrequencyDef) ([]FrequencyTableEntry, error) {
	counts := make(map[string]int64)
	order := make(map[string][]string)

	for _, name := range corpora {
		h, err := s.acquire(name)
		if err != nil {
			return nil, err
		}
		h.mu.RLock()
		err = tallyFrequency(ctx, h, query, defs, counts, order)
		h.mu.RUnlock()
		if err != nil {
			return nil, err
		}
	}

	out := make([]FrequencyTableEntry, 0, len(counts))
	for key, count := range counts {
		out = append(out, FrequencyTableEntry{Values: order[key], Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.Join(out[i].Values, "\x00") < strings.Join(out[j].Values, "\x00")
	})
	return out, nil
}

func tallyFrequency(ctx context.Context, h *corpusHandle, query string, defs []FrequencyDef, counts map[string]int64, order map[string][]string) error {
	trees, err := h.queryPlans(query)
	if err != nil {
		return err
	}
	for _, tree := range trees {
		for m, err := range tree.Matches(ctx) {
			if err != nil {
				return err
			}
			values := make([]string, len(defs))
			for i, def := range defs {
				col, ok := tree.Descriptor().NodePos[def.NodePos]
				if !ok || col >= len(m) {
					continue
				}
				v, ok, err := h.graph.Nodes.GetValueForItem(m[col].Node, def.Key)
				if err != nil {
					return err
				}
				if ok {
					values[i] = v
				}
			}
			key := strings.Join(values, "\x00")
			counts[key]++
			if _, ok := order[key]; !ok {
				order[key] = values
			}
		}
	}
	return nil
}
