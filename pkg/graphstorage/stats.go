package graphstorage

import (
	"sort"

	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// ComputeStatistics walks every root of ec with a cycle-safe DFS,
// measuring max depth and fan-out and detecting cycles and non-tree
// shapes, per spec.md section 4.4.
func ComputeStatistics(ec EdgeContainer) (Statistics, error) {
	sources, err := ec.SourceNodes()
	if err != nil {
		return Statistics{}, err
	}

	incoming := make(map[gmodel.NodeID]int)
	outgoing := make(map[gmodel.NodeID][]gmodel.NodeID)
	allNodes := make(map[gmodel.NodeID]bool)
	var numEdges int64

	for _, src := range sources {
		allNodes[src] = true
		targets, err := ec.GetOutgoingEdges(src)
		if err != nil {
			return Statistics{}, err
		}
		outgoing[src] = targets
		for _, t := range targets {
			allNodes[t] = true
			incoming[t]++
			numEdges++
		}
	}

	var roots []gmodel.NodeID
	for n := range allNodes {
		if incoming[n] == 0 {
			roots = append(roots, n)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	stats := Statistics{NumberOfEdges: numEdges, NumberOfRoots: int64(len(roots)), RootedTree: true}
	if numEdges == 0 {
		return stats, nil
	}
	if len(roots) == 0 {
		// Every node has an incoming edge: the component has no entry
		// point, so it cannot be a tree.
		stats.RootedTree = false
		stats.Cyclic = true
		return stats, nil
	}

	var fanouts []int64
	visited := make(map[gmodel.NodeID]bool)

	next := func(n gmodel.NodeID) ([]gmodel.NodeID, error) { return outgoing[n], nil }

	for _, root := range roots {
		if incoming[root] > 1 {
			stats.RootedTree = false
		}
		depth, cyclic, err := walkDepthAndFanout(root, next, incoming, visited, &fanouts, &stats.RootedTree)
		if err != nil {
			return Statistics{}, err
		}
		if depth > stats.MaxDepth {
			stats.MaxDepth = depth
		}
		if cyclic {
			stats.Cyclic = true
		}
	}

	for n := range allNodes {
		if incoming[n] > 1 {
			stats.RootedTree = false
		}
	}

	sort.Slice(fanouts, func(i, j int) bool { return fanouts[i] < fanouts[j] })
	var sum int64
	for _, f := range fanouts {
		sum += f
		if f > stats.MaxFanOut {
			stats.MaxFanOut = f
		}
	}
	if len(fanouts) > 0 {
		stats.AvgFanOut = float64(sum) / float64(len(fanouts))
		idx := (len(fanouts) * 99) / 100
		if idx >= len(fanouts) {
			idx = len(fanouts) - 1
		}
		stats.FanOut99Percentile = fanouts[idx]
	}

	return stats, nil
}

// walkDepthAndFanout performs one cycle-safe DFS from root, recording
// each node's fan-out and returning the deepest level reached and
// whether a cycle was observed.
func walkDepthAndFanout(root gmodel.NodeID, next nextFunc, incoming map[gmodel.NodeID]int, visited map[gmodel.NodeID]bool, fanouts *[]int64, rootedTree *bool) (int64, bool, error) {
	onPath := make(map[gmodel.NodeID]bool)
	var maxDepth int64
	cyclic := false

	var visit func(node gmodel.NodeID, depth int64) error
	visit = func(node gmodel.NodeID, depth int64) error {
		onPath[node] = true
		visited[node] = true
		if depth > maxDepth {
			maxDepth = depth
		}
		defer delete(onPath, node)

		children, err := next(node)
		if err != nil {
			return err
		}
		*fanouts = append(*fanouts, int64(len(children)))

		for _, child := range children {
			if onPath[child] {
				cyclic = true
				*rootedTree = false
				continue
			}
			if err := visit(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(root, 0); err != nil {
		return 0, false, err
	}
	return maxDepth, cyclic, nil
}
