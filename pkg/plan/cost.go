package plan

import "github.com/korpling/graphannis-go/pkg/exec"

// The three cost formulas of spec.md section 4.7: for an operator with
// selectivity s and children with outputs L and R, an IndexJoin
// processes L + s*L*R, a NestedLoop processes L*R, and a filter
// processes L. IntermediateSum accumulates Processed across the whole
// plan built so far, which is exactly the figure the hill-climbing pass
// minimises.

func indexJoinCost(base exec.Cost, untouchedOutput int64, selectivity float64) exec.Cost {
	out := scale(base.Output, untouchedOutput, selectivity)
	processed := base.Output + out
	return exec.Cost{
		Output:          out,
		Processed:       processed,
		IntermediateSum: base.IntermediateSum + processed,
	}
}

func nestedLoopCost(left, right exec.Cost, selectivity float64) exec.Cost {
	processed := left.Output * right.Output
	out := scale(processed, 1, selectivity)
	return exec.Cost{
		Output:          out,
		Processed:       processed,
		IntermediateSum: left.IntermediateSum + right.IntermediateSum + processed,
	}
}

func filterCost(child exec.Cost, selectivity float64) exec.Cost {
	out := scale(child.Output, 1, selectivity)
	processed := child.Output
	return exec.Cost{
		Output:          out,
		Processed:       processed,
		IntermediateSum: child.IntermediateSum + processed,
	}
}

// scale computes a * b * selectivity truncated toward zero, clamped to
// zero, without
// overflowing for the corpus sizes this planner is meant to reorder for
// (intermediate sums are a heuristic ranking signal, not an exact
// count).
func scale(a, b int64, selectivity float64) int64 {
	v := float64(a) * float64(b) * selectivity
	if v < 0 {
		return 0
	}
	return int64(v)
}
