package aql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExactAnnoSearch(t *testing.T) {
	q, err := Parse(`pos="NN"`)
	require.NoError(t, err)
	require.Len(t, q.Conjunctions, 1)
	nodes := q.Conjunctions[0].Nodes
	require.Len(t, nodes, 1)
	assert.Equal(t, ExactAnnoSearch, nodes[0].Kind)
	assert.Equal(t, "pos", nodes[0].Name)
	assert.Equal(t, "NN", nodes[0].Value)
}

func TestParseNamespacedAnno(t *testing.T) {
	q, err := Parse(`annis:node_type="node"`)
	require.NoError(t, err)
	spec := q.Conjunctions[0].Nodes[0]
	assert.Equal(t, "annis", spec.Namespace)
	assert.Equal(t, "node_type", spec.Name)
	assert.Equal(t, "node", spec.Value)
}

func TestParseRegexAnno(t *testing.T) {
	q, err := Parse(`pos=/N.*/`)
	require.NoError(t, err)
	spec := q.Conjunctions[0].Nodes[0]
	assert.Equal(t, RegexAnnoSearch, spec.Kind)
	assert.Equal(t, "N.*", spec.Value)
}

func TestParseTokVariants(t *testing.T) {
	q, err := Parse(`tok & tok="cat" & tok=/d.g/`)
	require.NoError(t, err)
	nodes := q.Conjunctions[0].Nodes
	require.Len(t, nodes, 3)
	assert.Equal(t, AnyToken, nodes[0].Kind)
	assert.Equal(t, ExactTokenValue, nodes[1].Kind)
	assert.Equal(t, "cat", nodes[1].Value)
	assert.Equal(t, RegexTokenValue, nodes[2].Kind)
	assert.Equal(t, "d.g", nodes[2].Value)
}

func TestParseAnyNode(t *testing.T) {
	q, err := Parse(`node`)
	require.NoError(t, err)
	assert.Equal(t, AnyNode, q.Conjunctions[0].Nodes[0].Kind)
}

func TestParsePrecedenceWithDistance(t *testing.T) {
	q, err := Parse(`tok="cat" & tok="mat" & #1 .2,4 #2`)
	require.NoError(t, err)
	conj := q.Conjunctions[0]
	require.Len(t, conj.Operators, 1)
	op := conj.Operators[0]
	assert.Equal(t, Precedence, op.Op)
	assert.Equal(t, 0, op.Left)
	assert.Equal(t, 1, op.Right)
	assert.Equal(t, 2, op.Min)
	assert.Equal(t, 4, op.Max)
}

func TestParseDefaultDistanceIsOne(t *testing.T) {
	q, err := Parse(`tok="cat" & tok="mat" & #1 . #2`)
	require.NoError(t, err)
	op := q.Conjunctions[0].Operators[0]
	assert.Equal(t, 1, op.Min)
	assert.Equal(t, 1, op.Max)
}

func TestParseDominanceAndPointing(t *testing.T) {
	q, err := Parse(`node & node & #1 > #2 | node & node & #1 -> #2`)
	require.NoError(t, err)
	require.Len(t, q.Conjunctions, 2)
	assert.Equal(t, Dominance, q.Conjunctions[0].Operators[0].Op)
	assert.Equal(t, Pointing, q.Conjunctions[1].Operators[0].Op)
}

func TestParseCoverageOperators(t *testing.T) {
	q, err := Parse(`node & node & #1 _=_ #2 & #1 _i_ #2 & #1 _o_ #2`)
	require.NoError(t, err)
	ops := q.Conjunctions[0].Operators
	require.Len(t, ops, 3)
	assert.Equal(t, IdenticalCoverage, ops[0].Op)
	assert.Equal(t, Inclusion, ops[1].Op)
	assert.Equal(t, Overlap, ops[2].Op)
}

func TestParseIdenticalNodeAndPartOfSubcorpus(t *testing.T) {
	q, err := Parse(`node & node & #1 == #2 & #1 @ #2`)
	require.NoError(t, err)
	ops := q.Conjunctions[0].Operators
	require.Len(t, ops, 2)
	assert.Equal(t, IdenticalNode, ops[0].Op)
	assert.Equal(t, PartOfSubcorpus, ops[1].Op)
	assert.Equal(t, Unbounded, ops[1].Max)
}

func TestParseOutOfRangeReference(t *testing.T) {
	_, err := Parse(`node & #1 . #2`)
	require.Error(t, err)
}

func TestParseUnknownOperator(t *testing.T) {
	_, err := Parse(`node & node & #1 ~ #2`)
	require.Error(t, err)
}

func TestParseTrailingGarbage(t *testing.T) {
	_, err := Parse(`node )`)
	require.Error(t, err)
}
