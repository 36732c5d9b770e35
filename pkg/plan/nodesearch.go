package plan

import (
	"fmt"

	"github.com/korpling/graphannis-go/pkg/annostorage"
	"github.com/korpling/graphannis-go/pkg/aql"
	"github.com/korpling/graphannis-go/pkg/exec"
	"github.com/korpling/graphannis-go/pkg/gerr"
	"github.com/korpling/graphannis-go/pkg/gmodel"
)

// baseNode builds the leaf execution node for one node-search spec, per
// the planning algorithm's step 1: the node's cost output is derived
// from the annotation storage's GuessMaxCount/GuessMaxCountRegex, or, for
// a search without a value, from CalculateStatistics' Count (at least 1).
func (p *planner) baseNode(pos int, spec aql.NodeSearchSpec) (exec.Node, error) {
	switch spec.Kind {
	case aql.ExactAnnoSearch:
		return p.exactSearch(pos, spec.Namespace, spec.Name, spec.Value)
	case aql.RegexAnnoSearch:
		return p.regexSearch(pos, spec.Namespace, spec.Name, spec.Value)
	case aql.ExactTokenValue:
		return p.exactSearch(pos, gmodel.AnnisNamespace, "tok", spec.Value)
	case aql.RegexTokenValue:
		return p.regexSearch(pos, gmodel.AnnisNamespace, "tok", spec.Value)
	case aql.AnyToken:
		return p.anySearch(pos, gmodel.TokKey, "tok")
	case aql.AnyNode:
		return p.anySearch(pos, gmodel.NodeTypeKey, "node")
	default:
		return nil, fmt.Errorf("plan: unknown node search kind %d", spec.Kind)
	}
}

func (p *planner) exactSearch(pos int, ns, name, value string) (exec.Node, error) {
	key := gmodel.AnnoKey{Namespace: ns, Name: name}
	if value == "" {
		return p.anySearch(pos, key, name)
	}
	search := annostorage.ValueSearch{Kind: annostorage.Some, Value: value}
	matches := p.g.Nodes.ExactAnnoSearch(key, search)
	output := p.g.Nodes.GuessMaxCount(key, value)
	plan := fmt.Sprintf("#%d: %s=%q", pos+1, key, value)
	return exec.NewBaseNode(pos, plan, exec.Cost{Output: output, Processed: output, IntermediateSum: output}, matches), nil
}

func (p *planner) regexSearch(pos int, ns, name, pattern string) (exec.Node, error) {
	key := gmodel.AnnoKey{Namespace: ns, Name: name}
	matches, err := p.g.Nodes.RegexAnnoSearch(key, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gerr.ErrRegex, err)
	}
	output := p.g.Nodes.GuessMaxCountRegex(key, pattern)
	planStr := fmt.Sprintf("#%d: %s=/%s/", pos+1, key, pattern)
	return exec.NewBaseNode(pos, planStr, exec.Cost{Output: output, Processed: output, IntermediateSum: output}, matches), nil
}

func (p *planner) anySearch(pos int, key gmodel.AnnoKey, label string) (exec.Node, error) {
	matches := p.g.Nodes.ExactAnnoSearch(key, annostorage.ValueSearch{Kind: annostorage.Any})
	stats := p.g.Nodes.CalculateStatistics(key)
	output := stats.Count
	if output == 0 {
		output = 1
	}
	planStr := fmt.Sprintf("#%d: any %s", pos+1, label)
	return exec.NewBaseNode(pos, planStr, exec.Cost{Output: output, Processed: output, IntermediateSum: output}, matches), nil
}
