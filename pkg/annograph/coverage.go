package annograph

import "github.com/korpling/graphannis-go/pkg/gmodel"

// isToken reports whether id carries a token value annotation, the
// criterion spec.md's glossary uses to distinguish a terminal token
// node from a structural (span, document, corpus) node.
func (g *Graph) isToken(id gmodel.NodeID) bool {
	_, ok, _ := g.Nodes.GetValueForItem(id, gmodel.TokKey)
	return ok
}

// IsToken reports whether id carries a token value annotation.
func (g *Graph) IsToken(id gmodel.NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.isToken(id)
}

// tokenPositionsLocked assigns every token on the Ordering chain its
// ordinal position, by walking from every root (a node with no incoming
// Ordering edge) forward until the chain ends. This is computed against
// the EdgeContainer contract alone so it works regardless of which
// concrete GraphStorage currently backs the Ordering component. Callers
// must hold g.mu.
func (g *Graph) tokenPositionsLocked() (map[gmodel.NodeID]int, error) {
	ordering := g.components[gmodel.AnnisComponent(gmodel.Ordering, "")]
	positions := make(map[gmodel.NodeID]int)
	if ordering == nil {
		return positions, nil
	}

	sources, err := ordering.SourceNodes()
	if err != nil {
		return nil, err
	}
	hasIncoming := make(map[gmodel.NodeID]bool)
	for _, src := range sources {
		targets, err := ordering.GetOutgoingEdges(src)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			hasIncoming[t] = true
		}
	}
	var roots []gmodel.NodeID
	for _, src := range sources {
		if !hasIncoming[src] {
			roots = append(roots, src)
		}
	}

	for _, root := range roots {
		pos := 0
		node := root
		visited := map[gmodel.NodeID]bool{}
		for {
			if visited[node] {
				break
			}
			visited[node] = true
			positions[node] = pos
			next, err := ordering.GetOutgoingEdges(node)
			if err != nil {
				return nil, err
			}
			if len(next) == 0 {
				break
			}
			node = next[0]
			pos++
		}
	}
	return positions, nil
}

// rebuildInheritedCoverageLocked rebuilds the annis/inherited-coverage
// component so a single hop from any non-token node reaches every token
// it transitively covers through Coverage and Dominance edges, per
// spec.md section 4.6. It also re-materialises the LeftToken and
// RightToken components, one edge per non-token node to the leftmost
// and rightmost token it covers, since the sub-graph extractor (pkg
// subgraph) needs a single hop to find a match's token span the same
// way it needs inherited coverage. Callers must hold g.mu.
func (g *Graph) rebuildInheritedCoverageLocked() error {
	coverage := g.components[gmodel.AnnisComponent(gmodel.Coverage, "")]
	dominance := g.components[gmodel.AnnisComponent(gmodel.Dominance, "")]

	inherited := newDefaultStorageFor(gmodel.AnnisComponent(gmodel.Coverage, gmodel.InheritedCoverageName))
	leftTok := newDefaultStorageFor(gmodel.AnnisComponent(gmodel.LeftToken, ""))
	rightTok := newDefaultStorageFor(gmodel.AnnisComponent(gmodel.RightToken, ""))

	positions, err := g.tokenPositionsLocked()
	if err != nil {
		return err
	}

	sources := make(map[gmodel.NodeID]bool)
	if coverage != nil {
		if nodes, err := coverage.SourceNodes(); err == nil {
			for _, n := range nodes {
				sources[n] = true
			}
		}
	}
	if dominance != nil {
		if nodes, err := dominance.SourceNodes(); err == nil {
			for _, n := range nodes {
				sources[n] = true
			}
		}
	}

	for node := range sources {
		if g.isToken(node) {
			continue
		}
		tokens, err := g.reachableTokensLocked(node, coverage, dominance)
		if err != nil {
			return err
		}
		var leftmost, rightmost gmodel.NodeID
		havePos := false
		for _, tok := range tokens {
			if err := inherited.AddEdge(gmodel.Edge{Source: node, Target: tok}); err != nil {
				return err
			}
			if !havePos {
				leftmost, rightmost = tok, tok
				havePos = true
				continue
			}
			if positions[tok] < positions[leftmost] {
				leftmost = tok
			}
			if positions[tok] > positions[rightmost] {
				rightmost = tok
			}
		}
		if havePos {
			if err := leftTok.AddEdge(gmodel.Edge{Source: node, Target: leftmost}); err != nil {
				return err
			}
			if err := rightTok.AddEdge(gmodel.Edge{Source: node, Target: rightmost}); err != nil {
				return err
			}
		}
	}

	g.components[gmodel.AnnisComponent(gmodel.Coverage, gmodel.InheritedCoverageName)] = inherited
	g.components[gmodel.AnnisComponent(gmodel.LeftToken, "")] = leftTok
	g.components[gmodel.AnnisComponent(gmodel.RightToken, "")] = rightTok
	return nil
}

// TokenRange returns the leftmost and rightmost token id covered by id,
// per the materialised LeftToken/RightToken components, or id itself
// (twice) when id is already a token. Used by pkg/plan to evaluate the
// coverage-shaped operators (identical coverage, inclusion, overlap).
func (g *Graph) TokenRange(id gmodel.NodeID) (left, right gmodel.NodeID, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.isToken(id) {
		return id, id, true
	}
	leftComp := g.components[gmodel.AnnisComponent(gmodel.LeftToken, "")]
	rightComp := g.components[gmodel.AnnisComponent(gmodel.RightToken, "")]
	if leftComp == nil || rightComp == nil {
		return 0, 0, false
	}
	lefts, err := leftComp.GetOutgoingEdges(id)
	if err != nil || len(lefts) == 0 {
		return 0, 0, false
	}
	rights, err := rightComp.GetOutgoingEdges(id)
	if err != nil || len(rights) == 0 {
		return 0, 0, false
	}
	return lefts[0], rights[0], true
}

// TokenPosition returns a token's ordinal position on the Ordering
// chain, used by pkg/plan to compare token ranges by position rather
// than by id.
func (g *Graph) TokenPosition(id gmodel.NodeID) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	positions, err := g.tokenPositionsLocked()
	if err != nil {
		return 0, false
	}
	pos, ok := positions[id]
	return pos, ok
}

// reachableTokensLocked finds every token reachable from node via a
// cycle-safe walk across both the Coverage and Dominance components
// together, since a dominance-only structure node reaches its tokens
// via one or more intermediate span nodes.
func (g *Graph) reachableTokensLocked(node gmodel.NodeID, coverage, dominance interface {
	GetOutgoingEdges(gmodel.NodeID) ([]gmodel.NodeID, error)
}) ([]gmodel.NodeID, error) {
	visited := map[gmodel.NodeID]bool{node: true}
	queue := []gmodel.NodeID{node}
	var tokens []gmodel.NodeID

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var children []gmodel.NodeID
		if coverage != nil {
			c, err := coverage.GetOutgoingEdges(current)
			if err != nil {
				return nil, err
			}
			children = append(children, c...)
		}
		if dominance != nil {
			d, err := dominance.GetOutgoingEdges(current)
			if err != nil {
				return nil, err
			}
			children = append(children, d...)
		}

		for _, child := range children {
			if visited[child] {
				continue
			}
			visited[child] = true
			if g.isToken(child) {
				tokens = append(tokens, child)
			} else {
				queue = append(queue, child)
			}
		}
	}
	return tokens, nil
}
