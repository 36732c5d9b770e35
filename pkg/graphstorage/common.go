package graphstorage

import "github.com/korpling/graphannis-go/pkg/gmodel"

// common implements the traversal, distance and connectivity operations
// that are identical across every GraphStorage implementation, in terms
// of whichever concrete GetOutgoingEdges/GetIngoingEdges the embedding
// type supplies. Each concrete storage embeds a common pointed at
// itself, set up in its constructor.
type common struct {
	self EdgeContainer
}

func (c common) FindConnected(node gmodel.NodeID, minDist int, maxDist Bound) ([]gmodel.NodeID, error) {
	return walkConnected(node, minDist, maxDist, c.self.GetOutgoingEdges)
}

func (c common) FindConnectedInverse(node gmodel.NodeID, minDist int, maxDist Bound) ([]gmodel.NodeID, error) {
	return walkConnected(node, minDist, maxDist, c.self.GetIngoingEdges)
}

func (c common) Distance(source, target gmodel.NodeID) (int, bool, error) {
	if source == target {
		return 0, true, nil
	}
	visited := map[gmodel.NodeID]bool{source: true}
	frontier := []gmodel.NodeID{source}
	depth := 0
	for len(frontier) > 0 {
		depth++
		var next []gmodel.NodeID
		for _, n := range frontier {
			children, err := c.self.GetOutgoingEdges(n)
			if err != nil {
				return 0, false, err
			}
			for _, child := range children {
				if child == target {
					return depth, true, nil
				}
				if !visited[child] {
					visited[child] = true
					next = append(next, child)
				}
			}
		}
		frontier = next
	}
	return 0, false, nil
}

func (c common) IsConnected(source, target gmodel.NodeID, minDist int, maxBound Bound) (bool, error) {
	dist, found, err := c.Distance(source, target)
	if err != nil || !found {
		return false, err
	}
	return dist >= minDist && maxBound.Allows(dist), nil
}

func (c common) InverseHasSameCost() bool { return false }
