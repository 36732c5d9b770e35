package annograph

import (
	"fmt"

	"github.com/korpling/graphannis-go/pkg/gerr"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/graphstorage"
	"github.com/korpling/graphannis-go/pkg/updatelog"
)

var errNoSuchNode = gerr.ErrNoSuchNodeID

// newDefaultStorageFor allocates the writable representation used when
// a component is first written to (or must be upgraded to writable):
// always an AdjacencyList, the one representation every other
// implementation can be copied into, per GetOrCreateWritable.
func newDefaultStorageFor(c gmodel.Component) *graphstorage.AdjacencyList {
	return graphstorage.NewAdjacencyList()
}

// ApplyUpdate applies batch to the graph in order, translating external
// node names to internal ids (allocating ids for names never seen
// before) as it goes. The batch is applied atomically from the caller's
// perspective in the sense that no lock is released mid-batch; on error,
// already-applied events are not rolled back and the error names the
// offending event's position, per spec.md section 4.6.
func (g *Graph) ApplyUpdate(batch []updatelog.Event, progress ProgressFunc) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	touchesStructural := false

	for i, event := range batch {
		if err := g.applyOneLocked(event, &touchesStructural); err != nil {
			return fmt.Errorf("update event %d (%s): %w", i, event.Kind, err)
		}
		if progress != nil {
			progress(i+1, len(batch))
		}
	}

	if touchesStructural {
		if err := g.rebuildInheritedCoverageLocked(); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) applyOneLocked(event updatelog.Event, touchesStructural *bool) error {
	switch event.Kind {
	case updatelog.AddNode:
		id := g.resolveOrAllocate(event.Node.Name)
		if _, _, err := g.Nodes.Insert(id, gmodel.Anno{Key: gmodel.NodeNameKey, Value: event.Node.Name}); err != nil {
			return err
		}
		if event.NodeType != "" {
			if _, _, err := g.Nodes.Insert(id, gmodel.Anno{Key: gmodel.NodeTypeKey, Value: event.NodeType}); err != nil {
				return err
			}
		}

	case updatelog.DeleteNode:
		id, ok := g.resolve(event.Node.Name)
		if !ok {
			return nil
		}
		if err := g.Nodes.RemoveItem(id); err != nil {
			return err
		}
		for _, gs := range g.components {
			if writable, ok := gs.(interface{ DeleteNode(gmodel.NodeID) error }); ok {
				if err := writable.DeleteNode(id); err != nil {
					return err
				}
			}
		}
		delete(g.nameToID, event.Node.Name)
		delete(g.idToName, id)

	case updatelog.AddNodeLabel:
		id := g.resolveOrAllocate(event.Node.Name)
		key := gmodel.AnnoKey{Namespace: event.AnnoNamespace, Name: event.AnnoName}
		if _, _, err := g.Nodes.Insert(id, gmodel.Anno{Key: key, Value: event.AnnoValue}); err != nil {
			return err
		}

	case updatelog.DeleteNodeLabel:
		id, ok := g.resolve(event.Node.Name)
		if !ok {
			return nil
		}
		key := gmodel.AnnoKey{Namespace: event.AnnoNamespace, Name: event.AnnoName}
		if err := g.Nodes.RemoveAnnotationForItem(id, key); err != nil {
			return err
		}

	case updatelog.AddEdge:
		edge, component, err := g.resolveEdgeLocked(event.Edge, true)
		if err != nil {
			return err
		}
		writable, err := g.getOrCreateWritableLocked(component)
		if err != nil {
			return err
		}
		if err := writable.AddEdge(edge); err != nil {
			return err
		}
		markIfStructural(component, touchesStructural)

	case updatelog.DeleteEdge:
		edge, component, err := g.resolveEdgeLocked(event.Edge, false)
		if err != nil {
			return nil
		}
		writable, err := g.getOrCreateWritableLocked(component)
		if err != nil {
			return err
		}
		if err := writable.DeleteEdge(edge); err != nil {
			return err
		}
		markIfStructural(component, touchesStructural)

	case updatelog.AddEdgeLabel:
		edge, _, err := g.resolveEdgeLocked(event.Edge, false)
		if err != nil {
			return nil
		}
		key := gmodel.AnnoKey{Namespace: event.AnnoNamespace, Name: event.AnnoName}
		if _, _, err := g.Edges.Insert(edge, gmodel.Anno{Key: key, Value: event.AnnoValue}); err != nil {
			return err
		}

	case updatelog.DeleteEdgeLabel:
		edge, _, err := g.resolveEdgeLocked(event.Edge, false)
		if err != nil {
			return nil
		}
		key := gmodel.AnnoKey{Namespace: event.AnnoNamespace, Name: event.AnnoName}
		if err := g.Edges.RemoveAnnotationForItem(edge, key); err != nil {
			return err
		}
	}
	return nil
}

// resolveEdgeLocked resolves an EdgeRef's endpoint names to internal
// ids and its component identity. When allocate is true, unseen names
// are allocated fresh ids (used by AddEdge); otherwise an unknown name
// is reported via gerr.ErrNoSuchNodeID's caller (a no-op delete).
func (g *Graph) resolveEdgeLocked(ref updatelog.EdgeRef, allocate bool) (gmodel.Edge, gmodel.Component, error) {
	var source, target gmodel.NodeID
	var ok bool
	if allocate {
		source = g.resolveOrAllocate(ref.Source)
		target = g.resolveOrAllocate(ref.Target)
	} else {
		source, ok = g.resolve(ref.Source)
		if !ok {
			return gmodel.Edge{}, gmodel.Component{}, errNoSuchNode
		}
		target, ok = g.resolve(ref.Target)
		if !ok {
			return gmodel.Edge{}, gmodel.Component{}, errNoSuchNode
		}
	}
	component := gmodel.Component{Type: gmodel.ComponentType(ref.ComponentType), Layer: ref.Layer, Name: ref.Name}
	return gmodel.Edge{Source: source, Target: target}, component, nil
}

func (g *Graph) getOrCreateWritableLocked(c gmodel.Component) (interface {
	AddEdge(gmodel.Edge) error
	DeleteEdge(gmodel.Edge) error
}, error) {
	existing, ok := g.components[c]
	if ok && isNativelyWritable(existing) {
		return existing.(interface {
			AddEdge(gmodel.Edge) error
			DeleteEdge(gmodel.Edge) error
		}), nil
	}
	fresh := newDefaultStorageFor(c)
	if ok {
		if err := fresh.CopyFrom(existing); err != nil {
			return nil, err
		}
	}
	g.components[c] = fresh
	return fresh, nil
}

func markIfStructural(c gmodel.Component, touched *bool) {
	switch c.Type {
	case gmodel.Coverage, gmodel.Dominance, gmodel.Ordering:
		*touched = true
	}
}
