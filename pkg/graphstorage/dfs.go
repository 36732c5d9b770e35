package graphstorage

import "github.com/korpling/graphannis-go/pkg/gmodel"

// nextFunc retrieves one node's out-edges in whichever direction a walk
// is proceeding.
type nextFunc func(gmodel.NodeID) ([]gmodel.NodeID, error)

// walkConnected performs the cycle-safe DFS of spec.md section 4.4: it
// keeps the current path as both a stack and a membership set so a
// back-edge can be detected in constant time before ever descending into
// it, and it yields a node at most once even if several paths reach it.
func walkConnected(start gmodel.NodeID, minDist int, maxDist Bound, next nextFunc) ([]gmodel.NodeID, error) {
	visited := make(map[gmodel.NodeID]bool)
	onPath := make(map[gmodel.NodeID]bool)
	var result []gmodel.NodeID

	var visit func(node gmodel.NodeID, depth int) error
	visit = func(node gmodel.NodeID, depth int) error {
		onPath[node] = true
		defer delete(onPath, node)

		children, err := next(node)
		if err != nil {
			return err
		}
		for _, child := range children {
			childDepth := depth + 1
			if onPath[child] {
				// Back-edge onto the current path: a cycle, do not
				// descend further into it.
				continue
			}
			if !maxDist.Allows(childDepth) {
				continue
			}
			if childDepth >= minDist && !visited[child] {
				visited[child] = true
				result = append(result, child)
			}
			if maxDist.Kind == Unbounded || childDepth < maxBoundCeiling(maxDist) {
				if err := visit(child, childDepth); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := visit(start, 0); err != nil {
		return nil, err
	}
	return result, nil
}

// maxBoundCeiling returns the deepest depth still worth descending past,
// so the walk stops recursing once no child could satisfy the bound.
func maxBoundCeiling(b Bound) int {
	switch b.Kind {
	case Included:
		return b.Value
	case Excluded:
		return b.Value - 1
	default:
		return int(^uint(0) >> 1)
	}
}
