package graphstorage

import (
	"sort"

	"github.com/korpling/graphannis-go/internal/keycodec"
	"github.com/korpling/graphannis-go/internal/kvstore"
	"github.com/korpling/graphannis-go/pkg/gmodel"
)

const (
	prefixOut byte = 'O'
	prefixIn  byte = 'N'
)

// AdjacencyListDisk is the on-disk counterpart of AdjacencyList, backed
// by internal/kvstore in the directory passed to OpenAdjacencyListDisk.
// It keeps the same composite-key scheme
// the annotation storage uses: a forward index and a symmetric inverse
// index, both keyed on fixed big-endian node-id pairs so Range scans
// come back already sorted.
type AdjacencyListDisk struct {
	common
	kv kvstore.Store
}

// OpenAdjacencyListDisk opens (creating if necessary) a disk-backed
// adjacency list rooted at dir.
func OpenAdjacencyListDisk(dir string) (*AdjacencyListDisk, error) {
	kv, err := kvstore.OpenBadger(kvstore.BadgerOptions{Dir: dir})
	if err != nil {
		return nil, err
	}
	a := &AdjacencyListDisk{kv: kv}
	a.common = common{self: a}
	return a, nil
}

func outKey(src, tgt gmodel.NodeID) []byte {
	return keycodec.Concat([]byte{prefixOut}, keycodec.EncodeUint64(uint64(src)), keycodec.EncodeUint64(uint64(tgt)))
}

func inKey(tgt, src gmodel.NodeID) []byte {
	return keycodec.Concat([]byte{prefixIn}, keycodec.EncodeUint64(uint64(tgt)), keycodec.EncodeUint64(uint64(src)))
}

func outPrefix(src gmodel.NodeID) []byte {
	return keycodec.Concat([]byte{prefixOut}, keycodec.EncodeUint64(uint64(src)))
}

func inPrefix(tgt gmodel.NodeID) []byte {
	return keycodec.Concat([]byte{prefixIn}, keycodec.EncodeUint64(uint64(tgt)))
}

func (a *AdjacencyListDisk) AddEdge(edge gmodel.Edge) error {
	if err := a.kv.Insert(outKey(edge.Source, edge.Target), []byte{}); err != nil {
		return err
	}
	return a.kv.Insert(inKey(edge.Target, edge.Source), []byte{})
}

func (a *AdjacencyListDisk) DeleteEdge(edge gmodel.Edge) error {
	if err := a.kv.Remove(outKey(edge.Source, edge.Target)); err != nil {
		return err
	}
	return a.kv.Remove(inKey(edge.Target, edge.Source))
}

func (a *AdjacencyListDisk) DeleteNode(node gmodel.NodeID) error {
	targets, err := a.GetOutgoingEdges(node)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if err := a.DeleteEdge(gmodel.Edge{Source: node, Target: t}); err != nil {
			return err
		}
	}
	sources, err := a.GetIngoingEdges(node)
	if err != nil {
		return err
	}
	for _, s := range sources {
		if err := a.DeleteEdge(gmodel.Edge{Source: s, Target: node}); err != nil {
			return err
		}
	}
	return nil
}

func (a *AdjacencyListDisk) Clear() error {
	var keys [][]byte
	if err := a.kv.Range(nil, nil, func(k, _ []byte) (bool, error) {
		keys = append(keys, append([]byte{}, k...))
		return true, nil
	}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := a.kv.Remove(k); err != nil {
			return err
		}
	}
	return nil
}

func (a *AdjacencyListDisk) GetOutgoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error) {
	prefix := outPrefix(node)
	var out []gmodel.NodeID
	err := a.kv.Range(prefix, keycodec.PrefixUpperBound(prefix), func(k, _ []byte) (bool, error) {
		out = append(out, gmodel.NodeID(keycodec.DecodeUint64(k[len(prefix):])))
		return true, nil
	})
	return out, err
}

func (a *AdjacencyListDisk) GetIngoingEdges(node gmodel.NodeID) ([]gmodel.NodeID, error) {
	prefix := inPrefix(node)
	var out []gmodel.NodeID
	err := a.kv.Range(prefix, keycodec.PrefixUpperBound(prefix), func(k, _ []byte) (bool, error) {
		out = append(out, gmodel.NodeID(keycodec.DecodeUint64(k[len(prefix):])))
		return true, nil
	})
	return out, err
}

func (a *AdjacencyListDisk) HasOutgoingEdges(node gmodel.NodeID) (bool, error) {
	prefix := outPrefix(node)
	found := false
	err := a.kv.Range(prefix, keycodec.PrefixUpperBound(prefix), func(k, _ []byte) (bool, error) {
		found = true
		return false, nil
	})
	return found, err
}

func (a *AdjacencyListDisk) SourceNodes() ([]gmodel.NodeID, error) {
	seen := make(map[gmodel.NodeID]bool)
	var out []gmodel.NodeID
	err := a.kv.Range([]byte{prefixOut}, keycodec.PrefixUpperBound([]byte{prefixOut}), func(k, _ []byte) (bool, error) {
		src := gmodel.NodeID(keycodec.DecodeUint64(k[1:9]))
		if !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
		return true, nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, err
}

func (a *AdjacencyListDisk) GetStatistics() Statistics {
	stats, _ := ComputeStatistics(a)
	return stats
}

func (a *AdjacencyListDisk) SerializationID() string { return "DiskAdjacencyListV1" }

func (a *AdjacencyListDisk) CopyFrom(other GraphStorage) error {
	if err := a.Clear(); err != nil {
		return err
	}
	sources, err := other.SourceNodes()
	if err != nil {
		return err
	}
	for _, src := range sources {
		targets, err := other.GetOutgoingEdges(src)
		if err != nil {
			return err
		}
		for _, tgt := range targets {
			if err := a.AddEdge(gmodel.Edge{Source: src, Target: tgt}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases the underlying kvstore.
func (a *AdjacencyListDisk) Close() error {
	return a.kv.Close()
}
