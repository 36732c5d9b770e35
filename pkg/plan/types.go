// Package plan implements the query planner of spec.md section 4.7: it
// turns a parsed pkg/aql.Conjunction into a tree of pkg/exec.Node,
// choosing join shapes by a cost model and reordering operators with a
// seeded randomised hill-climbing pass so identical queries always
// produce identical plans.
package plan

import (
	"github.com/korpling/graphannis-go/pkg/annograph"
	"github.com/korpling/graphannis-go/pkg/aql"
	"github.com/korpling/graphannis-go/pkg/exec"
)

// Seed is the fixed constant the hill-climbing pass's RNG is seeded
// from, per spec.md section 4.7's determinism requirement.
const Seed uint64 = 0x9E3779B97F4A7C15

// MaxStaleGenerations bounds the hill-climbing pass: it stops after this
// many consecutive swaps fail to improve the total processed cost.
const MaxStaleGenerations = 64

// candidatePlan is one proposed operator ordering together with the
// execution tree and total cost it produces, kept around only while the
// hill-climbing pass searches for a better one.
type candidatePlan struct {
	order []int
	root  exec.Node
	total int64
}

// Plan builds an execution tree for one conjunction. g provides the
// node annotation storage (for base searches) and the component graph
// storages (for operator candidate generation).
func Plan(g *annograph.Graph, conj aql.Conjunction) (exec.Node, error) {
	return newPlanner(g, conj).plan()
}
