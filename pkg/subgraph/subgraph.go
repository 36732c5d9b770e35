// Package subgraph implements the sub-graph extractor of spec.md
// section 4.8: given a match's node names and a left/right context
// size, it reconstructs the induced sub-graph a viewer needs to show
// that match in context — the covered tokens, the spans/structures that
// cover them, and the corpus/document ancestors — as a fresh
// *annograph.Graph, grounded on the teacher's own traversal helper
// (pkg/cypher/traversal.go) for the "walk outward from a seed set and
// collect what you touch" shape.
package subgraph

import (
	"fmt"
	"sort"

	"github.com/korpling/graphannis-go/pkg/annograph"
	"github.com/korpling/graphannis-go/pkg/gerr"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/graphstorage"
	"github.com/korpling/graphannis-go/pkg/updatelog"
)

// Request describes one sub-graph extraction call.
type Request struct {
	// NodeNames are the matched nodes' external annis::node_name
	// values, per spec.md section 4.8 step 1.
	NodeNames []string
	// CtxLeft/CtxRight are the number of chain steps to expand on
	// either side of the match's token span, per step 3.
	CtxLeft, CtxRight int
	// Segmentation, if non-empty, names the Ordering component whose
	// chain the context walk should follow instead of the token
	// Ordering chain, per step 3's segmentation variant.
	Segmentation string
	// ComponentTypes restricts which component types' edges are copied
	// into the result, per step 5. A nil/empty slice means "every type
	// except the excluded index components".
	ComponentTypes []gmodel.ComponentType
}

// excludedIndexComponents are the engine-internal index components
// spec.md section 4.8 step 5 explicitly excludes from the result graph,
// regardless of the caller's component-type filter: they exist purely
// to accelerate lookups and would otherwise duplicate information
// already reconstructible from Dominance/Coverage.
var excludedIndexComponents = map[gmodel.Component]bool{
	gmodel.AnnisComponent(gmodel.Coverage, gmodel.InheritedCoverageName): true,
	gmodel.AnnisComponent(gmodel.LeftToken, ""):                          true,
	gmodel.AnnisComponent(gmodel.RightToken, ""):                        true,
}

// Extract builds the induced sub-graph for req against g, per spec.md
// section 4.8's five steps.
func Extract(g *annograph.Graph, req Request) (*annograph.Graph, error) {
	if len(req.NodeNames) == 0 {
		return nil, gerr.ErrNoSuchNodeID
	}

	// Step 1: resolve match node names to internal ids.
	matchIDs := make([]gmodel.NodeID, 0, len(req.NodeNames))
	for _, name := range req.NodeNames {
		id, ok := g.ResolveNodeID(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", gerr.ErrNoSuchNodeID, name)
		}
		matchIDs = append(matchIDs, id)
	}

	// Step 2: find the left- and right-most covered token of the whole
	// match, via TokenRange (backed by the materialised LeftToken/
	// RightToken components).
	leftToken, rightToken, ok, err := matchTokenSpan(g, matchIDs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gerr.ErrNoCoveredTokenForSubgraph
	}

	// Step 3: expand the context window.
	tokens, err := contextWindow(g, leftToken, rightToken, req.CtxLeft, req.CtxRight, req.Segmentation)
	if err != nil {
		return nil, err
	}

	// Collect every node covering any window token, plus the match
	// nodes and tokens themselves.
	nodeSet := make(map[gmodel.NodeID]bool)
	for _, t := range tokens {
		nodeSet[t] = true
	}
	for _, id := range matchIDs {
		nodeSet[id] = true
	}
	inherited, hasInherited := g.GraphStorage(gmodel.AnnisComponent(gmodel.Coverage, gmodel.InheritedCoverageName))
	if hasInherited {
		for _, t := range tokens {
			covering, err := inherited.GetIngoingEdges(t)
			if err != nil {
				return nil, err
			}
			for _, c := range covering {
				nodeSet[c] = true
			}
		}
	}

	// Step 4: add every PartOf ancestor of each match node.
	if partOf, ok := g.GraphStorage(gmodel.AnnisComponent(gmodel.PartOf, "")); ok {
		for _, id := range matchIDs {
			ancestors, err := partOf.FindConnected(id, 0, graphstorage.Bound{Kind: graphstorage.Unbounded})
			if err != nil {
				return nil, err
			}
			for _, a := range ancestors {
				nodeSet[a] = true
			}
		}
	}

	// Step 5: materialise the result as a fresh annotation graph.
	return buildResult(g, nodeSet, req.ComponentTypes)
}

// matchTokenSpan finds the leftmost and rightmost token covered by any
// of ids, comparing token positions along the default token Ordering
// chain.
func matchTokenSpan(g *annograph.Graph, ids []gmodel.NodeID) (left, right gmodel.NodeID, ok bool, err error) {
	havePos := false
	for _, id := range ids {
		l, r, tok := g.TokenRange(id)
		if !tok {
			return 0, 0, false, nil
		}
		lp, lok := g.TokenPosition(l)
		rp, rok := g.TokenPosition(r)
		if !lok || !rok {
			return 0, 0, false, nil
		}
		if !havePos {
			left, right = l, r
			havePos = true
			continue
		}
		if lp < mustPos(g, left) {
			left = l
		}
		if rp > mustPos(g, right) {
			right = r
		}
	}
	return left, right, havePos, nil
}

func mustPos(g *annograph.Graph, id gmodel.NodeID) int {
	pos, _ := g.TokenPosition(id)
	return pos
}

// contextWindow walks the ordering chain (token or segmentation) outward
// from [left, right] by ctxLeft/ctxRight steps, per spec.md section 4.8
// step 3, and returns the resulting set of token ids.
func contextWindow(g *annograph.Graph, left, right gmodel.NodeID, ctxLeft, ctxRight int, segmentation string) ([]gmodel.NodeID, error) {
	if segmentation == "" {
		return orderingWindow(g, gmodel.AnnisComponent(gmodel.Ordering, ""), left, right, ctxLeft, ctxRight)
	}
	return segmentationWindow(g, left, right, ctxLeft, ctxRight, segmentation)
}

// orderingWindow walks component (an Ordering-typed chain) outward from
// [left, right] and returns every node visited: the span between left
// and right plus ctxLeft steps backward from left and ctxRight steps
// forward from right, clamped at the chain's ends by FindConnected's own
// cycle-safe traversal running out of edges.
func orderingWindow(g *annograph.Graph, component gmodel.Component, left, right gmodel.NodeID, ctxLeft, ctxRight int) ([]gmodel.NodeID, error) {
	gs, ok := g.GraphStorage(component)
	if !ok {
		return nil, gerr.ErrNoComponentForNode
	}

	dist, reachable, err := gs.Distance(left, right)
	if err != nil {
		return nil, err
	}
	if !reachable {
		dist = 0
	}

	span, err := gs.FindConnected(left, 0, graphstorage.Bound{Kind: graphstorage.Included, Value: dist})
	if err != nil {
		return nil, err
	}
	leftCtx, err := gs.FindConnectedInverse(left, 1, graphstorage.Bound{Kind: graphstorage.Included, Value: ctxLeft})
	if err != nil {
		return nil, err
	}
	rightCtx, err := gs.FindConnected(right, 1, graphstorage.Bound{Kind: graphstorage.Included, Value: ctxRight})
	if err != nil {
		return nil, err
	}

	seen := make(map[gmodel.NodeID]bool)
	var out []gmodel.NodeID
	for _, group := range [][]gmodel.NodeID{{left}, span, leftCtx, rightCtx} {
		for _, n := range group {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// segmentationWindow implements spec.md section 4.8 step 3's
// segmentation variant: the context walk runs over the named
// segmentation's own Ordering chain at segmentation-node granularity,
// and the result is the set of tokens each segmentation node in that
// window covers (via inherited coverage), rather than the token chain
// directly.
func segmentationWindow(g *annograph.Graph, leftTok, rightTok gmodel.NodeID, ctxLeft, ctxRight int, segmentation string) ([]gmodel.NodeID, error) {
	var segComponent gmodel.Component
	found := false
	for _, c := range g.Components() {
		if c.Type == gmodel.Ordering && c.Name == segmentation {
			segComponent = c
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no such segmentation %q", gerr.ErrNoComponentForNode, segmentation)
	}
	segGS, _ := g.GraphStorage(segComponent)

	inherited, ok := g.GraphStorage(gmodel.AnnisComponent(gmodel.Coverage, gmodel.InheritedCoverageName))
	if !ok {
		return nil, gerr.ErrNoComponentForNode
	}

	leftSeg, err := segmentationNodeCovering(inherited, segGS, leftTok)
	if err != nil {
		return nil, err
	}
	rightSeg, err := segmentationNodeCovering(inherited, segGS, rightTok)
	if err != nil {
		return nil, err
	}

	segNodes, err := orderingWindow(g, segComponent, leftSeg, rightSeg, ctxLeft, ctxRight)
	if err != nil {
		return nil, err
	}

	seen := make(map[gmodel.NodeID]bool)
	var tokens []gmodel.NodeID
	for _, seg := range segNodes {
		covered, err := inherited.GetOutgoingEdges(seg)
		if err != nil {
			return nil, err
		}
		for _, t := range covered {
			if !seen[t] {
				seen[t] = true
				tokens = append(tokens, t)
			}
		}
	}
	return tokens, nil
}

// segmentationNodeCovering finds which source node of segGS covers tok
// according to the inherited-coverage component, per
// segmentationWindow's anchor-resolution step.
func segmentationNodeCovering(inherited, segGS graphstorage.EdgeContainer, tok gmodel.NodeID) (gmodel.NodeID, error) {
	candidates, err := inherited.GetIngoingEdges(tok)
	if err != nil {
		return 0, err
	}
	segSources, err := segGS.SourceNodes()
	if err != nil {
		return 0, err
	}
	isSegSource := make(map[gmodel.NodeID]bool, len(segSources))
	for _, s := range segSources {
		isSegSource[s] = true
	}
	for _, c := range candidates {
		if isSegSource[c] {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: no segmentation node covers token", gerr.ErrNoCoveredTokenForSubgraph)
}

// buildResult materialises nodeSet (and the edges between its members,
// restricted to componentTypes) as a fresh *annograph.Graph, by replaying
// the same update-event mechanism pkg/annograph already implements for
// ordinary imports rather than poking at its internals directly.
func buildResult(g *annograph.Graph, nodeSet map[gmodel.NodeID]bool, componentTypes []gmodel.ComponentType) (*annograph.Graph, error) {
	result := annograph.New()

	ids := make([]gmodel.NodeID, 0, len(nodeSet))
	for id := range nodeSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var batch []updatelog.Event
	names := make(map[gmodel.NodeID]string, len(ids))
	for _, id := range ids {
		name, ok := g.NodeName(id)
		if !ok {
			continue
		}
		names[id] = name
		nodeType, _, err := g.Nodes.GetValueForItem(id, gmodel.NodeTypeKey)
		if err != nil {
			return nil, err
		}
		batch = append(batch, updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: name}, NodeType: nodeType})

		annos, err := g.Nodes.GetAnnotationsForItem(id)
		if err != nil {
			return nil, err
		}
		for _, a := range annos {
			if a.Key == gmodel.NodeNameKey || a.Key == gmodel.NodeTypeKey {
				continue
			}
			batch = append(batch, updatelog.Event{
				Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: name},
				AnnoNamespace: a.Key.Namespace, AnnoName: a.Key.Name, AnnoValue: a.Value,
			})
		}
	}

	wantType := func(t gmodel.ComponentType) bool {
		if len(componentTypes) == 0 {
			return true
		}
		for _, w := range componentTypes {
			if w == t {
				return true
			}
		}
		return false
	}

	for _, c := range g.Components() {
		if excludedIndexComponents[c] || !wantType(c.Type) {
			continue
		}
		gs, ok := g.GraphStorage(c)
		if !ok {
			continue
		}
		for _, src := range ids {
			if _, ok := names[src]; !ok {
				continue
			}
			targets, err := gs.GetOutgoingEdges(src)
			if err != nil {
				return nil, err
			}
			for _, tgt := range targets {
				if !nodeSet[tgt] {
					continue
				}
				tgtName, ok := names[tgt]
				if !ok {
					continue
				}
				edgeRef := updatelog.EdgeRef{
					Source: names[src], Target: tgtName,
					ComponentType: string(c.Type), Layer: c.Layer, Name: c.Name,
				}
				batch = append(batch, updatelog.Event{Kind: updatelog.AddEdge, Edge: edgeRef})

				annos, err := g.Edges.GetAnnotationsForItem(gmodel.Edge{Source: src, Target: tgt})
				if err != nil {
					return nil, err
				}
				for _, a := range annos {
					batch = append(batch, updatelog.Event{
						Kind: updatelog.AddEdgeLabel, Edge: edgeRef,
						AnnoNamespace: a.Key.Namespace, AnnoName: a.Key.Name, AnnoValue: a.Value,
					})
				}
			}
		}
	}

	if err := result.ApplyUpdate(batch, nil); err != nil {
		return nil, err
	}
	return result, nil
}
