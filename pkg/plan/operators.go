package plan

import (
	"context"
	"fmt"
	"iter"
	"regexp"

	"github.com/korpling/graphannis-go/pkg/aql"
	"github.com/korpling/graphannis-go/pkg/exec"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/graphstorage"
)

// reflexive reports whether an operator can hold between a node and
// itself. Precedence/Dominance/Pointing/PartOfSubcorpus relate distinct
// nodes; the coverage-shaped operators and IdenticalNode are naturally
// reflexive (a node identically covers, includes and overlaps itself,
// and IdenticalNode is only useful precisely because it can match a
// single node against itself under two different annotation keys).
func reflexive(op aql.OperatorKind) bool {
	switch op {
	case aql.IdenticalCoverage, aql.Inclusion, aql.Overlap, aql.IdenticalNode:
		return true
	default:
		return false
	}
}

// supportsIndexProbe reports whether op's right-hand candidates can be
// generated directly from the left-hand node (spec.md section 4.7 step
// 3's "RHS...supports index probing"), rather than requiring the whole
// right-hand result set to be buffered and scanned.
func supportsIndexProbe(op aql.OperatorKind) bool {
	switch op {
	case aql.Precedence, aql.Dominance, aql.Pointing, aql.PartOfSubcorpus, aql.IdenticalNode:
		return true
	default:
		return false
	}
}

// bound turns an operator's [min, max] distance into a graphstorage.Bound.
func bound(maxD int) graphstorage.Bound {
	if maxD == aql.Unbounded || maxD < 0 {
		return graphstorage.Bound{Kind: graphstorage.Unbounded}
	}
	return graphstorage.Bound{Kind: graphstorage.Included, Value: maxD}
}

// componentsOfType returns every component storage of type t currently
// present on the graph. An un-named operator in the AQL subset (no
// explicit layer or relation name) matches an edge in any component of
// its type, so candidate generation and predicates both union over all
// of them.
func (p *planner) componentsOfType(t gmodel.ComponentType) []graphstorage.GraphStorage {
	var out []graphstorage.GraphStorage
	for _, c := range p.g.Components() {
		if c.Type != t {
			continue
		}
		if gs, ok := p.g.GraphStorage(c); ok {
			out = append(out, gs)
		}
	}
	return out
}

// graphCandidates builds a CandidateFunc that unions FindConnected
// across every storage in stores, for the Precedence/Dominance/Pointing/
// PartOfSubcorpus operators.
func graphCandidates(stores []graphstorage.GraphStorage, minD, maxD int) exec.CandidateFunc {
	return func(ctx context.Context, left gmodel.NodeID) iter.Seq2[gmodel.NodeID, error] {
		return func(yield func(gmodel.NodeID, error) bool) {
			seen := make(map[gmodel.NodeID]bool)
			for _, gs := range stores {
				nodes, err := gs.FindConnected(left, minD, bound(maxD))
				if err != nil {
					yield(0, err)
					return
				}
				for _, n := range nodes {
					if seen[n] {
						continue
					}
					seen[n] = true
					if !yield(n, nil) {
						return
					}
				}
			}
		}
	}
}

// graphCandidatesInverse is graphCandidates walked backward, used when
// the bare (not yet joined) operand is the operator's left-hand side:
// the planner then iterates the right-hand side's existing rows and
// probes leftward via FindConnectedInverse instead of re-deriving the
// inverse relation by hand.
func graphCandidatesInverse(stores []graphstorage.GraphStorage, minD, maxD int) exec.CandidateFunc {
	return func(ctx context.Context, right gmodel.NodeID) iter.Seq2[gmodel.NodeID, error] {
		return func(yield func(gmodel.NodeID, error) bool) {
			seen := make(map[gmodel.NodeID]bool)
			for _, gs := range stores {
				nodes, err := gs.FindConnectedInverse(right, minD, bound(maxD))
				if err != nil {
					yield(0, err)
					return
				}
				for _, n := range nodes {
					if seen[n] {
						continue
					}
					seen[n] = true
					if !yield(n, nil) {
						return
					}
				}
			}
		}
	}
}

// identicalNodeCandidates implements IdenticalNode's candidate side: the
// only candidate for a node is the node itself, from either direction.
func identicalNodeCandidates() exec.CandidateFunc {
	return func(ctx context.Context, node gmodel.NodeID) iter.Seq2[gmodel.NodeID, error] {
		return func(yield func(gmodel.NodeID, error) bool) {
			yield(node, nil)
		}
	}
}

// emptyCandidates is used when an operator's component type has no
// storage at all on the current graph (e.g. a query asks for Pointing
// but the corpus carries no pointing relations).
func emptyCandidates(ctx context.Context, left gmodel.NodeID) iter.Seq2[gmodel.NodeID, error] {
	return func(yield func(gmodel.NodeID, error) bool) {}
}

// graphPredicate is the BinaryFilter/NestedLoop counterpart of
// graphCandidates: true iff right is reachable from left within
// [minD, maxD] in any of stores.
func graphPredicate(stores []graphstorage.GraphStorage, minD, maxD int) exec.Predicate {
	b := bound(maxD)
	return func(left, right gmodel.NodeID) (bool, error) {
		for _, gs := range stores {
			ok, err := gs.IsConnected(left, right, minD, b)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// selectivity estimates the fraction of (left, right) pairs an operator
// relates, for the cost model's s in "L + s*L*R". For graph-distance
// operators this is approximated from the components' average fan-out
// scaled by how wide the requested distance window is; a window with no
// upper bound is treated as a handful of hops deep. This is a modelling
// simplification: spec.md leaves the exact estimator unspecified, so the
// same shape of estimate the annotation storage already uses
// (GuessMaxCount's sampled-histogram scaling) is mirrored here at the
// graph-statistics level instead of computed exactly.
func selectivity(stores []graphstorage.GraphStorage, minD, maxD int) float64 {
	width := maxD - minD + 1
	if maxD == aql.Unbounded || maxD < 0 {
		width = 8
	}
	var s float64
	for _, gs := range stores {
		stats := gs.GetStatistics()
		s += stats.AvgFanOut * float64(width)
	}
	if s <= 0 {
		s = 0.01
	}
	if s > 1 {
		s = 1
	}
	return s
}

// coveragePredicate implements the three coverage-shaped operators via
// token-range comparison rather than graph traversal, since no index
// maps "every node whose range contains/overlaps/equals X" directly;
// pkg/plan instead always treats these as NestedLoop (supportsIndexProbe
// returns false for them) and relies on coveragePredicate alone.
func coveragePredicate(op aql.OperatorKind, g tokenRanger) exec.Predicate {
	return func(left, right gmodel.NodeID) (bool, error) {
		ll, lr, ok := g.TokenRange(left)
		if !ok {
			return false, nil
		}
		rl, rr, ok := g.TokenRange(right)
		if !ok {
			return false, nil
		}
		lp1, ok1 := g.TokenPosition(ll)
		lp2, ok2 := g.TokenPosition(lr)
		rp1, ok3 := g.TokenPosition(rl)
		rp2, ok4 := g.TokenPosition(rr)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return false, nil
		}
		switch op {
		case aql.IdenticalCoverage:
			return lp1 == rp1 && lp2 == rp2, nil
		case aql.Inclusion:
			return rp1 >= lp1 && rp2 <= lp2, nil
		case aql.Overlap:
			return lp1 <= rp2 && rp1 <= lp2, nil
		default:
			return false, nil
		}
	}
}

// identicalNodePredicate implements the IdenticalNode operator: true
// iff left and right are literally the same node.
func identicalNodePredicate() exec.Predicate {
	return func(left, right gmodel.NodeID) (bool, error) {
		return left == right, nil
	}
}

// tokenRanger is the subset of *annograph.Graph the coverage-shaped
// operators need, narrowed to keep this file's dependency surface
// explicit.
type tokenRanger interface {
	TokenRange(id gmodel.NodeID) (left, right gmodel.NodeID, ok bool)
	TokenPosition(id gmodel.NodeID) (int, bool)
}

// probeFor builds the ProbeFunc that checks an IndexJoin candidate
// against the right-hand node-search spec directly — the annotation
// storage is probed for the specific candidate instead of intersecting
// with its full result set.
func (p *planner) probeFor(spec aql.NodeSearchSpec) exec.ProbeFunc {
	switch spec.Kind {
	case aql.ExactAnnoSearch:
		return p.exactProbe(spec.Namespace, spec.Name, spec.Value)
	case aql.RegexAnnoSearch:
		return p.regexProbe(spec.Namespace, spec.Name, spec.Value)
	case aql.ExactTokenValue:
		return p.exactProbe(gmodel.AnnisNamespace, "tok", spec.Value)
	case aql.RegexTokenValue:
		return p.regexProbe(gmodel.AnnisNamespace, "tok", spec.Value)
	case aql.AnyToken:
		return p.anyProbe(gmodel.TokKey)
	default: // AnyNode
		return p.anyProbe(gmodel.NodeTypeKey)
	}
}

func (p *planner) exactProbe(ns, name, value string) exec.ProbeFunc {
	key := gmodel.AnnoKey{Namespace: ns, Name: name}
	return func(candidate gmodel.NodeID) (gmodel.AnnoKey, bool, error) {
		if value == "" {
			_, ok, err := p.g.Nodes.GetValueForItem(candidate, key)
			return key, ok, err
		}
		v, ok, err := p.g.Nodes.GetValueForItem(candidate, key)
		if err != nil || !ok {
			return key, false, err
		}
		return key, v == value, nil
	}
}

func (p *planner) regexProbe(ns, name, pattern string) exec.ProbeFunc {
	key := gmodel.AnnoKey{Namespace: ns, Name: name}
	re := mustCompile(pattern)
	return func(candidate gmodel.NodeID) (gmodel.AnnoKey, bool, error) {
		v, ok, err := p.g.Nodes.GetValueForItem(candidate, key)
		if err != nil || !ok {
			return key, false, err
		}
		return key, re.MatchString(v), nil
	}
}

func (p *planner) anyProbe(key gmodel.AnnoKey) exec.ProbeFunc {
	return func(candidate gmodel.NodeID) (gmodel.AnnoKey, bool, error) {
		_, ok, err := p.g.Nodes.GetValueForItem(candidate, key)
		return key, ok, err
	}
}

// alwaysFalse is the predicate/candidate fallback for an operator whose
// component type has no storage on the current graph at all.
func alwaysFalse(left, right gmodel.NodeID) (bool, error) { return false, nil }

// storesFor returns the component storages relevant to op, unioning
// across every component of the matching type for an un-named operator.
func (p *planner) storesFor(op aql.OperatorKind) []graphstorage.GraphStorage {
	switch op {
	case aql.Precedence:
		if gs, ok := p.g.GraphStorage(gmodel.AnnisComponent(gmodel.Ordering, "")); ok {
			return []graphstorage.GraphStorage{gs}
		}
		return nil
	case aql.Dominance:
		return p.componentsOfType(gmodel.Dominance)
	case aql.Pointing:
		return p.componentsOfType(gmodel.Pointing)
	case aql.PartOfSubcorpus:
		return p.componentsOfType(gmodel.PartOf)
	default:
		return nil
	}
}

// predicateFor builds the BinaryFilter/NestedLoop predicate for op,
// dispatching to the graph-traversal, coverage or identity predicate
// depending on its shape.
func (p *planner) predicateFor(op aql.OperatorSpec) (exec.Predicate, error) {
	switch op.Op {
	case aql.Precedence, aql.Dominance, aql.Pointing, aql.PartOfSubcorpus:
		stores := p.storesFor(op.Op)
		if len(stores) == 0 {
			return alwaysFalse, nil
		}
		return graphPredicate(stores, op.Min, op.Max), nil
	case aql.IdenticalCoverage, aql.Inclusion, aql.Overlap:
		return coveragePredicate(op.Op, p.g), nil
	case aql.IdenticalNode:
		return identicalNodePredicate(), nil
	default:
		return nil, fmt.Errorf("plan: unknown operator %d", op.Op)
	}
}

// candidateFuncFor builds the IndexJoin CandidateFunc for op, walking
// forward from the already-bound operand when forward is true, or
// backward via FindConnectedInverse when the bare operand is on the
// left instead.
func (p *planner) candidateFuncFor(op aql.OperatorSpec, forward bool) (exec.CandidateFunc, error) {
	if op.Op == aql.IdenticalNode {
		return identicalNodeCandidates(), nil
	}
	if !supportsIndexProbe(op.Op) {
		return nil, fmt.Errorf("plan: operator %d does not support index probing", op.Op)
	}
	stores := p.storesFor(op.Op)
	if len(stores) == 0 {
		return emptyCandidates, nil
	}
	if forward {
		return graphCandidates(stores, op.Min, op.Max), nil
	}
	return graphCandidatesInverse(stores, op.Min, op.Max), nil
}

// selectivityFor estimates the join selectivity for op, used by both
// the IndexJoin and NestedLoop cost estimates.
func (p *planner) selectivityFor(op aql.OperatorSpec) float64 {
	if op.Op == aql.IdenticalNode {
		return 0.01
	}
	stores := p.storesFor(op.Op)
	if len(stores) == 0 {
		return 0.01
	}
	return selectivity(stores, op.Min, op.Max)
}

// mustCompile anchors pattern the same way
// pkg/annostorage.RegexAnnoSearch does, so an IndexJoin probe agrees
// with what a NestedLoop/BinaryFilter built from the same spec would
// have matched. An invalid pattern is rejected with ErrRegex when its
// base node is built (regexSearch), before any probe is planned, so a
// compile failure here falls back to a never-matching regexp rather than
// panicking.
func mustCompile(pattern string) *regexp.Regexp {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return regexp.MustCompile("$^")
	}
	return re
}
