// Package aql implements a subset of the ANNIS Query Language: enough to
// build a disjunction of conjunctions of node searches and the binary
// operators named in spec.md section 6, so pkg/plan and pkg/exec have
// real parsed input instead of only hand-built structs. This is not a
// port of the original Rust grammar; it is a fresh internal parser
// grounded on the teacher's own hand-rolled Cypher parser
// (pkg/cypher/parser.go), following the same character tokenizer plus
// position-indexed token-array parsing style.
package aql

import "github.com/korpling/graphannis-go/pkg/gmodel"

// NodeSearchKind distinguishes the shapes of node-search spec named in
// spec.md section 4.7.
type NodeSearchKind int

const (
	ExactAnnoSearch NodeSearchKind = iota
	RegexAnnoSearch
	ExactTokenValue
	RegexTokenValue
	AnyToken
	AnyNode
)

// NodeSearchSpec describes one position in a conjunction's node list.
// Namespace and Value are optional: an absent Namespace matches any
// qualifying namespace; an absent Value (for ExactAnnoSearch/RegexAnnoSearch)
// matches any value as long as the key is present on the node.
type NodeSearchSpec struct {
	Kind       NodeSearchKind
	Namespace  string
	Name       string
	Value      string
	LeavesOnly bool
}

// OperatorKind enumerates the binary operators recognised from spec.md
// section 6.
type OperatorKind int

const (
	Precedence OperatorKind = iota
	Dominance
	Pointing
	IdenticalCoverage
	Inclusion
	Overlap
	IdenticalNode
	PartOfSubcorpus
)

// Unbounded is the sentinel used for an operator's Max field when no
// upper distance bound was given in the query text.
const Unbounded = -1

// OperatorSpec is one entry in a conjunction's operator list: a binary
// relation between the node search at position Left and the node
// search at position Right.
type OperatorSpec struct {
	Op       OperatorKind
	Left     int
	Right    int
	Name     string
	Min      int
	Max      int
	EdgeAnno *gmodel.AnnoKey
}

// Conjunction is a list of node-search specs, indexed by position, and
// the binary operators relating them.
type Conjunction struct {
	Nodes     []NodeSearchSpec
	Operators []OperatorSpec
}

// Query is a disjunction of conjunctions, the top-level shape spec.md
// section 4.7 describes as the planner's input.
type Query struct {
	Conjunctions []Conjunction
}
