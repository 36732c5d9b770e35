package annograph

import (
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/graphstorage"
)

// OptimizeGSImpl consults component's statistics and, when a different
// representation would be strictly better suited to the shape they
// reveal, copies it into that representation, per spec.md section 4.6:
// a linear chain (every fan-out at most 1, no cycle) becomes a
// LinearGraphStorage; a rooted tree becomes a PrePostOrderStorage;
// anything else stays (or becomes) an AdjacencyList.
func (g *Graph) OptimizeGSImpl(c gmodel.Component) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	existing, ok := g.components[c]
	if !ok {
		return nil
	}
	stats := existing.GetStatistics()

	var target graphstorage.GraphStorage
	switch {
	case !stats.Cyclic && stats.MaxFanOut <= 1:
		if _, already := existing.(*graphstorage.LinearGraphStorage[int64]); already {
			return nil
		}
		target = graphstorage.NewLinearGraphStorage[int64]()
	case stats.RootedTree && !stats.Cyclic:
		if _, already := existing.(*graphstorage.PrePostOrderStorage[int64, int32]); already {
			return nil
		}
		target = graphstorage.NewPrePostOrderStorage[int64, int32]()
	default:
		if _, already := existing.(*graphstorage.AdjacencyList); already {
			return nil
		}
		target = graphstorage.NewAdjacencyList()
	}

	copyable, ok := target.(graphstorage.Copyable)
	if !ok {
		return nil
	}
	if err := copyable.CopyFrom(existing); err != nil {
		return err
	}
	g.components[c] = target
	return nil
}
