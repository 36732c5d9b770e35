// Package gmodel defines the data model shared by every layer of the
// graph engine: node identifiers, annotation keys and values, edges, and
// the component identity that every graph-storage implementation is keyed
// by.
package gmodel

import "fmt"

// NodeID is a 64-bit node identifier, stable within a single corpus.
//
// Ids are allocated by the annotation graph's node-id allocator
// (pkg/annograph) when a node is first created by an AddNode update and
// are never reused within the lifetime of the corpus.
type NodeID uint64

// AnnoKey is a qualified annotation key: a namespace and a name. The
// reserved "annis" namespace holds engine-internal keys such as
// NodeNameKey and TokKey.
type AnnoKey struct {
	Namespace string
	Name      string
}

func (k AnnoKey) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "::" + k.Name
}

// Anno is a single (key, value) annotation. A node or edge carries at
// most one Anno per AnnoKey.
type Anno struct {
	Key   AnnoKey
	Value string
}

// Reserved keys in the "annis" namespace, per spec.md section 3.
const (
	AnnisNamespace = "annis"
)

var (
	NodeNameKey = AnnoKey{Namespace: AnnisNamespace, Name: "node_name"}
	NodeTypeKey = AnnoKey{Namespace: AnnisNamespace, Name: "node_type"}
	TokKey      = AnnoKey{Namespace: AnnisNamespace, Name: "tok"}
	TokWSBefore = AnnoKey{Namespace: AnnisNamespace, Name: "tok-whitespace-before"}
	TokWSAfter  = AnnoKey{Namespace: AnnisNamespace, Name: "tok-whitespace-after"}
	LayerKey    = AnnoKey{Namespace: AnnisNamespace, Name: "layer"}
)

// Edge is a directed, ordered pair of node ids within a single component.
type Edge struct {
	Source NodeID
	Target NodeID
}

// EdgeAnno is an annotation attached to a specific edge in a specific
// component, used where the edge annotation storage needs to address one
// edge among potentially several components sharing the same pair.
type EdgeAnno struct {
	Edge  Edge
	Anno  Anno
}

// ComponentType is one of the seven edge relation kinds graphANNIS
// distinguishes (spec.md section 3).
type ComponentType string

const (
	Coverage    ComponentType = "Coverage"
	Dominance   ComponentType = "Dominance"
	Pointing    ComponentType = "Pointing"
	Ordering    ComponentType = "Ordering"
	LeftToken   ComponentType = "LeftToken"
	RightToken  ComponentType = "RightToken"
	PartOf      ComponentType = "PartOf"
)

// InheritedCoverageName is the name of the materialised component that
// lets a single hop from any span reach every token it transitively
// covers (spec.md section 3 and section 4.6).
const InheritedCoverageName = "inherited-coverage"

// Component identifies one independently-stored edge relation: a type, a
// layer and a name. Two edges with the same source and target in
// different components are distinct edges.
type Component struct {
	Type   ComponentType
	Layer  string
	Name   string
}

func (c Component) String() string {
	return fmt.Sprintf("%s/%s/%s", c.Type, c.Layer, c.Name)
}

// AnnisComponent builds a Component in the reserved "annis" layer, used
// for the engine-internal Ordering, Coverage index and inherited-coverage
// components.
func AnnisComponent(t ComponentType, name string) Component {
	return Component{Type: t, Layer: AnnisNamespace, Name: name}
}
