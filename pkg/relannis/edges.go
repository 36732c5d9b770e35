package relannis

import (
	"fmt"
	"io"

	"github.com/korpling/graphannis-go/pkg/gerr"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/updatelog"
)

// componentInfo is one row of component.tab: the (type, layer, name)
// triple a rank.tab row's component_ref resolves to.
type componentInfo struct {
	componentType gmodel.ComponentType
	layer, name   string
}

// parseComponentTab reads component.tab/component.annis per
// load_component_tab. A row whose type column is NULL is skipped, same
// as the original loader (such rows exist in some exports as leftover
// placeholders).
func parseComponentTab(dir string, is33 bool) (map[uint32]componentInfo, error) {
	r, closeFn, err := openTSV(tablePath(dir, "component", is33))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	out := make(map[uint32]componentInfo)
	err = r.forEach(func(row tsvRow) error {
		idStr, err := row.getNotNull(0, "id")
		if err != nil {
			return err
		}
		cid, err := parseUint32(idStr, "id")
		if err != nil {
			return err
		}
		shortType := row.get(1)
		if shortType == nil {
			return nil
		}
		ctype, err := componentTypeFromShortName(*shortType)
		if err != nil {
			return err
		}
		layer := ""
		if v := row.get(2); v != nil {
			layer = *v
		}
		name := ""
		if v := row.get(3); v != nil {
			name = *v
		}
		out[cid] = componentInfo{componentType: ctype, layer: layer, name: name}
		return nil
	})
	if err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

func componentTypeFromShortName(short string) (gmodel.ComponentType, error) {
	switch short {
	case "c":
		return gmodel.Coverage, nil
	case "d":
		return gmodel.Dominance, nil
	case "p":
		return gmodel.Pointing, nil
	case "o":
		return gmodel.Ordering, nil
	default:
		return "", fmt.Errorf("%w: invalid component short name %q", gerr.ErrIO, short)
	}
}

// rankResult carries the rank.tab edges forward to edge_annotation.tab,
// keyed by rank's own pre-order column as the original loader's
// edges_by_pre/components_by_pre maps do.
type rankResult struct {
	edgesByPre      map[uint32]gmodel.Edge
	componentByPre  map[uint32]componentInfo
	edgeCount       int
}

// parseRankTab reads rank.tab/rank.annis in two passes, as
// load_rank_tab does: the first pass records every row's pre-order ->
// node id, so the second pass can resolve a row's parent pre-order
// reference into that parent's node id (rank.tab stores tree edges as
// "my parent is the row with this pre-order value", not a node id
// directly).
func parseRankTab(dir string, is33 bool, events *[]updatelog.Event, components map[uint32]componentInfo, nodeResult *nodeTabResult) (*rankResult, error) {
	path := tablePath(dir, "rank", is33)

	nodeRefCol, componentRefCol, parentCol := 2, 3, 4
	if is33 {
		nodeRefCol, componentRefCol, parentCol = 3, 4, 5
	}

	preToNodeID := make(map[uint32]uint32)
	r1, closeFn1, err := openTSV(path)
	if err != nil {
		return nil, err
	}
	err = wrapEOF(r1.forEach(func(row tsvRow) error {
		preStr, err := row.getNotNull(0, "pre")
		if err != nil {
			return err
		}
		pre, err := parseUint32(preStr, "pre")
		if err != nil {
			return err
		}
		nodeRefStr, err := row.getNotNull(nodeRefCol, "node_ref")
		if err != nil {
			return err
		}
		nodeRef, err := parseUint32(nodeRefStr, "node_ref")
		if err != nil {
			return err
		}
		preToNodeID[pre] = nodeRef
		return nil
	}))
	closeFn1()
	if err != nil {
		return nil, err
	}

	result := &rankResult{
		edgesByPre:     make(map[uint32]gmodel.Edge),
		componentByPre: make(map[uint32]componentInfo),
	}

	r2, closeFn2, err := openTSV(path)
	if err != nil {
		return nil, err
	}
	defer closeFn2()

	err = wrapEOF(r2.forEach(func(row tsvRow) error {
		componentRefStr, err := row.getNotNull(componentRefCol, "component_ref")
		if err != nil {
			return err
		}
		componentRef, err := parseUint32(componentRefStr, "component_ref")
		if err != nil {
			return err
		}
		targetStr, err := row.getNotNull(nodeRefCol, "node_ref")
		if err != nil {
			return err
		}
		target, err := parseUint32(targetStr, "node_ref")
		if err != nil {
			return err
		}

		parentField := row.get(parentCol)
		if parentField == nil {
			return nil
		}
		parent, err := parseUint32(*parentField, "parent")
		if err != nil {
			return err
		}
		source, ok := preToNodeID[parent]
		if !ok {
			return nil
		}
		c, ok := components[componentRef]
		if !ok {
			return nil
		}

		sourceName, ok := nodeResult.idToName[source]
		if !ok {
			return fmt.Errorf("%w: node %d", gerr.ErrIO, source)
		}
		targetName, ok := nodeResult.idToName[target]
		if !ok {
			return fmt.Errorf("%w: node %d", gerr.ErrIO, target)
		}

		*events = append(*events, updatelog.Event{
			Kind: updatelog.AddEdge,
			Edge: updatelog.EdgeRef{
				Source: sourceName, Target: targetName,
				ComponentType: string(c.componentType), Layer: c.layer, Name: c.name,
			},
		})

		preStr, err := row.getNotNull(0, "pre")
		if err != nil {
			return err
		}
		pre, err := parseUint32(preStr, "pre")
		if err != nil {
			return err
		}
		result.edgesByPre[pre] = gmodel.Edge{Source: gmodel.NodeID(source), Target: gmodel.NodeID(target)}
		result.componentByPre[pre] = c
		result.edgeCount++
		return nil
	}))
	if err != nil {
		return nil, err
	}

	return result, nil
}

// parseEdgeAnnotationTab reads edge_annotation.tab, resolving each row's
// pre-order reference back to the edge rank.tab recorded for it, per
// load_edge_annotation.
func parseEdgeAnnotationTab(dir string, is33 bool, events *[]updatelog.Event, rank *rankResult, nodeResult *nodeTabResult) error {
	r, closeFn, err := openTSV(tablePath(dir, "edge_annotation", is33))
	if err != nil {
		return err
	}
	defer closeFn()

	return wrapEOF(r.forEach(func(row tsvRow) error {
		preStr, err := row.getNotNull(0, "pre")
		if err != nil {
			return err
		}
		pre, err := parseUint32(preStr, "pre")
		if err != nil {
			return err
		}
		c, ok := rank.componentByPre[pre]
		if !ok {
			return nil
		}
		edge, ok := rank.edgesByPre[pre]
		if !ok {
			return nil
		}
		ns := ""
		if v := row.get(1); v != nil {
			ns = *v
		}
		name, err := row.getNotNull(2, "name")
		if err != nil {
			return err
		}
		val := invalidString
		if v := row.get(3); v != nil {
			val = *v
		}

		sourceName, ok := nodeResult.idToName[uint32(edge.Source)]
		if !ok {
			return fmt.Errorf("%w: node %d", gerr.ErrIO, edge.Source)
		}
		targetName, ok := nodeResult.idToName[uint32(edge.Target)]
		if !ok {
			return fmt.Errorf("%w: node %d", gerr.ErrIO, edge.Target)
		}

		*events = append(*events, updatelog.Event{
			Kind: updatelog.AddEdgeLabel,
			Edge: updatelog.EdgeRef{
				Source: sourceName, Target: targetName,
				ComponentType: string(c.componentType), Layer: c.layer, Name: c.name,
			},
			AnnoNamespace: ns, AnnoName: name, AnnoValue: val,
		})
		return nil
	}))
}
