package plan

import (
	"fmt"
	"math/rand/v2"

	"github.com/korpling/graphannis-go/pkg/annograph"
	"github.com/korpling/graphannis-go/pkg/aql"
	"github.com/korpling/graphannis-go/pkg/exec"
	"github.com/korpling/graphannis-go/pkg/gerr"
)

// planner holds the state one Plan call threads through: the graph it
// plans against and the conjunction being planned. newPlanner/plan
// implement the four-step algorithm of spec.md section 4.7.
type planner struct {
	g    *annograph.Graph
	conj aql.Conjunction
}

func newPlanner(g *annograph.Graph, conj aql.Conjunction) *planner {
	return &planner{g: g, conj: conj}
}

// plan implements spec.md section 4.7's planning algorithm: build a base
// node per position (step 1), reorder the operator list with a seeded
// randomised hill-climbing pass (step 2), emit joins in the chosen order
// (step 3), and check full connectivity (step 4).
func (p *planner) plan() (exec.Node, error) {
	if len(p.conj.Nodes) == 0 {
		return nil, gerr.ErrNoExecutionNode
	}

	baseNodes := make([]exec.Node, len(p.conj.Nodes))
	for i, spec := range p.conj.Nodes {
		n, err := p.baseNode(i, spec)
		if err != nil {
			return nil, err
		}
		baseNodes[i] = n
	}

	order := make([]int, len(p.conj.Operators))
	for i := range order {
		order[i] = i
	}

	best, err := p.buildForOrder(baseNodes, order)
	if err != nil {
		return nil, err
	}

	// Step 2: randomised hill climbing, seeded so identical queries
	// always produce identical plans (spec.md's determinism
	// requirement).
	rng := rand.New(rand.NewPCG(Seed, Seed))
	stale := 0
	for stale < MaxStaleGenerations && len(order) > 1 {
		candidate := append([]int(nil), order...)
		i, j := rng.IntN(len(candidate)), rng.IntN(len(candidate))
		candidate[i], candidate[j] = candidate[j], candidate[i]

		cp, err := p.buildForOrder(baseNodes, candidate)
		if err != nil || cp.total >= best.total {
			stale++
			continue
		}
		best = cp
		order = candidate
		stale = 0
	}

	return best.root, nil
}

// buildForOrder emits one join per operator in order, maintaining a
// union-find of which conjunction positions already share a partial
// result row so it can tell a BinaryFilter from a join (spec.md section
// 4.7 step 3), and returns gerr.ErrComponentsNotConnected if any two
// positions remain unjoined at the end (step 4).
func (p *planner) buildForOrder(baseNodes []exec.Node, order []int) (candidatePlan, error) {
	uf := newUnionFind(len(baseNodes))
	roots := make(map[int]exec.Node, len(baseNodes))
	for i, n := range baseNodes {
		roots[i] = n
	}

	for _, opIdx := range order {
		op := p.conj.Operators[opIdx]
		leftRoot, rightRoot := uf.find(op.Left), uf.find(op.Right)

		if leftRoot == rightRoot {
			node, err := p.emitFilter(roots[leftRoot], op)
			if err != nil {
				return candidatePlan{}, err
			}
			roots[leftRoot] = node
			continue
		}

		leftNode, rightNode := roots[leftRoot], roots[rightRoot]
		node, err := p.emitJoin(leftNode, rightNode, op)
		if err != nil {
			return candidatePlan{}, err
		}
		newRoot := uf.union(leftRoot, rightRoot)
		roots[newRoot] = node
	}

	root0 := uf.find(0)
	for i := 1; i < len(baseNodes); i++ {
		if uf.find(i) != root0 {
			return candidatePlan{}, gerr.ErrComponentsNotConnected
		}
	}
	final := roots[root0]
	return candidatePlan{order: order, root: final, total: final.Descriptor().Cost.IntermediateSum}, nil
}

// emitFilter builds the BinaryFilter for an operator whose two operands
// already live in the same partial-result node.
func (p *planner) emitFilter(child exec.Node, op aql.OperatorSpec) (exec.Node, error) {
	pred, err := p.predicateFor(op)
	if err != nil {
		return nil, err
	}
	leftPos, ok := child.Descriptor().NodePos[op.Left]
	if !ok {
		return nil, gerr.ErrLhsOperandNotFound
	}
	rightPos, ok := child.Descriptor().NodePos[op.Right]
	if !ok {
		return nil, gerr.ErrRhsOperandNotFound
	}
	cost := filterCost(child.Descriptor().Cost, p.selectivityFor(op))
	planStr := fmt.Sprintf("filter(#%d, #%d)", op.Left+1, op.Right+1)
	return exec.NewBinaryFilter(child, leftPos, rightPos, pred, planStr, cost), nil
}

// emitJoin builds either an IndexJoin or a NestedLoopJoin for an
// operator whose operands are still in two different partial results,
// per spec.md section 4.7 step 3: an IndexJoin is preferred whenever one
// side is still an untouched node search and the operator supports
// index probing; a NestedLoopJoin is the fallback.
func (p *planner) emitJoin(leftNode, rightNode exec.Node, op aql.OperatorSpec) (exec.Node, error) {
	if supportsIndexProbe(op.Op) {
		if isBaseSearch(rightNode, op.Right) {
			return p.emitIndexJoin(leftNode, rightNode, op, true)
		}
		if isBaseSearch(leftNode, op.Left) {
			return p.emitIndexJoin(rightNode, leftNode, op, false)
		}
	}
	return p.emitNestedLoop(leftNode, rightNode, op)
}

// emitIndexJoin builds an IndexJoin probing the spec at op's
// still-untouched position (rightConjPos) from base, which is the
// already-partially-joined side. forward selects whether candidates are
// generated by walking the operator forward from base's bound node
// (base is the operator's Left operand) or backward (base is Right).
func (p *planner) emitIndexJoin(base, untouched exec.Node, op aql.OperatorSpec, forward bool) (exec.Node, error) {
	untouchedConjPos := op.Right
	basePos := op.Left
	if !forward {
		untouchedConjPos = op.Left
		basePos = op.Right
	}

	cand, err := p.candidateFuncFor(op, forward)
	if err != nil {
		return nil, err
	}
	spec := p.conj.Nodes[untouchedConjPos]
	probe := p.probeFor(spec)

	basePosInRow, ok := base.Descriptor().NodePos[basePos]
	if !ok {
		return nil, gerr.ErrLhsOperandNotFound
	}

	cost := indexJoinCost(base.Descriptor().Cost, untouched.Descriptor().Cost.Output, p.selectivityFor(op))
	planStr := fmt.Sprintf("indexJoin(#%d -> #%d)", basePos+1, untouchedConjPos+1)
	return exec.NewIndexJoin(base, basePosInRow, untouchedConjPos, cand, probe, reflexive(op.Op), planStr, cost), nil
}

// emitNestedLoop buffers whichever side has the smaller estimated
// output, per spec.md section 4.7's "chooses which side to buffer by
// cost".
func (p *planner) emitNestedLoop(leftNode, rightNode exec.Node, op aql.OperatorSpec) (exec.Node, error) {
	pred, err := p.predicateFor(op)
	if err != nil {
		return nil, err
	}
	cost := nestedLoopCost(leftNode.Descriptor().Cost, rightNode.Descriptor().Cost, p.selectivityFor(op))

	leftPos, ok := leftNode.Descriptor().NodePos[op.Left]
	if !ok {
		return nil, gerr.ErrLhsOperandNotFound
	}
	rightPos, ok := rightNode.Descriptor().NodePos[op.Right]
	if !ok {
		return nil, gerr.ErrRhsOperandNotFound
	}

	planStr := fmt.Sprintf("nestedLoop(#%d, #%d)", op.Left+1, op.Right+1)
	if leftNode.Descriptor().Cost.Output <= rightNode.Descriptor().Cost.Output {
		return exec.NewNestedLoopJoin(leftNode, rightNode, leftPos, rightPos, pred, planStr, cost), nil
	}
	return exec.NewNestedLoopJoin(rightNode, leftNode, rightPos, leftPos, pred, planStr, cost), nil
}

// isBaseSearch reports whether node is still exactly the untouched base
// search for conjunction position pos: a BaseNode whose only bound
// position is pos. A join's NodePos carries more than one entry, but a
// BinaryFilter keeps its child's NodePos unchanged, so the node type is
// checked as well to exclude a filtered base search.
func isBaseSearch(node exec.Node, pos int) bool {
	if _, ok := node.(*exec.BaseNode); !ok {
		return false
	}
	nodePos := node.Descriptor().NodePos
	if len(nodePos) != 1 {
		return false
	}
	only, ok := nodePos[pos]
	return ok && only == 0
}
