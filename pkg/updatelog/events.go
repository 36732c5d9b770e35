// Package updatelog implements the append-only graph update log of
// spec.md section 4.5: a durable, replayable, sequence-ordered stream of
// tagged events, directly grounded on the teacher's write-ahead log
// entry shape (sequence, timestamp, operation, payload, checksum).
package updatelog

// EventKind tags which of the eight update-event variants an Event
// carries.
type EventKind string

const (
	AddNode         EventKind = "AddNode"
	DeleteNode      EventKind = "DeleteNode"
	AddNodeLabel    EventKind = "AddNodeLabel"
	DeleteNodeLabel EventKind = "DeleteNodeLabel"
	AddEdge         EventKind = "AddEdge"
	DeleteEdge      EventKind = "DeleteEdge"
	AddEdgeLabel    EventKind = "AddEdgeLabel"
	DeleteEdgeLabel EventKind = "DeleteEdgeLabel"
)

// NodeRef names a node by its external, stable name rather than its
// internal id, since update events cross the boundary before ids are
// allocated.
type NodeRef struct {
	Name string
}

// EdgeRef identifies an edge and its component by the external names of
// its endpoints, per spec.md section 4.5.
type EdgeRef struct {
	Source        string
	Target        string
	ComponentType string
	Layer         string
	Name          string
}

// Event is one tagged update-event variant. Only the fields relevant to
// Kind are populated; the rest are left zero.
type Event struct {
	Kind EventKind

	// AddNode / DeleteNode
	Node NodeRef
	// AddNode's node type (DeleteNode needs only the name)
	NodeType string

	// AddNodeLabel / DeleteNodeLabel
	AnnoNamespace string
	AnnoName      string
	AnnoValue     string

	// AddEdge / DeleteEdge / AddEdgeLabel / DeleteEdgeLabel
	Edge EdgeRef
}
