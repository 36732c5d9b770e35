package aql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/korpling/graphannis-go/pkg/gerr"
)

// parser walks the flat token stream tokenize produces, following the
// teacher's own hand-rolled parser style (pkg/cypher/parser.go): a
// position index into a pre-tokenized slice rather than a separate
// lexer/parser pipeline.
type parser struct {
	toks []string
	pos  int
}

// Parse builds a Query from an AQL-subset query string: a disjunction
// ('|'-separated) of conjunctions ('&'-separated node searches and
// operator terms), per spec.md section 6. Operator terms reference
// previously introduced node searches by position with a 1-based #N
// reference, e.g. `tok="cat" & tok="sits" & #1 . #2`.
func Parse(query string) (*Query, error) {
	p := &parser{toks: tokenize(query)}
	var q Query
	for {
		conj, err := p.parseConjunction()
		if err != nil {
			return nil, err
		}
		q.Conjunctions = append(q.Conjunctions, conj)
		if p.peek() == "|" {
			p.pos++
			continue
		}
		break
	}
	if p.pos != len(p.toks) {
		return nil, p.errorf("unexpected token %q", p.peek())
	}
	return &q, nil
}

func (p *parser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return &gerr.AqlSyntax{Line: 1, Column: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseConjunction() (Conjunction, error) {
	var conj Conjunction
	for {
		if err := p.parseTerm(&conj); err != nil {
			return conj, err
		}
		if p.peek() == "&" {
			p.pos++
			continue
		}
		break
	}
	return conj, nil
}

func (p *parser) parseTerm(conj *Conjunction) error {
	if strings.HasPrefix(p.peek(), "#") {
		return p.parseOperatorTerm(conj)
	}
	spec, err := p.parseNodeSpec()
	if err != nil {
		return err
	}
	conj.Nodes = append(conj.Nodes, spec)
	return nil
}

func (p *parser) parseNodeSpec() (NodeSearchSpec, error) {
	first := p.next()
	if first == "" {
		return NodeSearchSpec{}, p.errorf("expected a node search, found end of input")
	}
	switch first {
	case "tok":
		return p.parseTokOrAnno("", "tok", true)
	case "node":
		return NodeSearchSpec{Kind: AnyNode}, nil
	default:
		name := unquote(first)
		ns := ""
		if p.peek() == ":" {
			p.pos++
			ns = name
			name = unquote(p.next())
		}
		return p.parseTokOrAnno(ns, name, false)
	}
}

// parseTokOrAnno parses the optional "=value" suffix of a node search,
// where value is either a quoted literal or a /regex/ literal.
func (p *parser) parseTokOrAnno(ns, name string, isTok bool) (NodeSearchSpec, error) {
	if p.peek() != "=" {
		if isTok {
			return NodeSearchSpec{Kind: AnyToken}, nil
		}
		return NodeSearchSpec{Kind: ExactAnnoSearch, Namespace: ns, Name: name}, nil
	}
	p.pos++
	valTok := p.next()
	if valTok == "" {
		return NodeSearchSpec{}, p.errorf("expected a value after '='")
	}
	if isRegexLiteral(valTok) {
		kind := RegexAnnoSearch
		if isTok {
			kind = RegexTokenValue
		}
		return NodeSearchSpec{Kind: kind, Namespace: ns, Name: name, Value: regexBody(valTok)}, nil
	}
	kind := ExactAnnoSearch
	if isTok {
		kind = ExactTokenValue
	}
	return NodeSearchSpec{Kind: kind, Namespace: ns, Name: name, Value: unquote(valTok)}, nil
}

// parseOperatorTerm parses one `#N <op> #M` entry, recognising the
// precedence/dominance/pointing/identical-node/part-of-subcorpus
// operator tokens directly, and the single `_=_` token and the
// three-token `_i_`/`_o_` forms for the coverage-shaped operators, per
// spec.md section 6.
func (p *parser) parseOperatorTerm(conj *Conjunction) error {
	left, err := p.parseRef(len(conj.Nodes))
	if err != nil {
		return err
	}

	var kind OperatorKind
	min, max := 1, 1

	// "_=_" merges into a single punctuation token in tokenize (both '_'
	// and '=' belong to the run-merging charset), while "_i_" and "_o_"
	// stay three separate tokens since 'i'/'o' are ordinary word runes.
	switch {
	case p.peek() == "_=_":
		p.pos++
		kind = IdenticalCoverage
		min, max = 0, Unbounded
	case p.peek() == "_":
		p.pos++
		mid := p.next()
		if p.peek() != "_" {
			return p.errorf("expected closing '_' in coverage operator")
		}
		p.pos++
		switch mid {
		case "i":
			kind = Inclusion
		case "o":
			kind = Overlap
		default:
			return p.errorf("unknown coverage operator _%s_", mid)
		}
		min, max = 0, Unbounded
	default:
		opTok := p.next()
		var ok bool
		kind, ok = operatorKindFor(opTok)
		if !ok {
			return p.errorf("unknown operator %q", opTok)
		}
		if kind == PartOfSubcorpus {
			min, max = 1, Unbounded
		}
		if m, M, consumed := p.tryParseDistance(); consumed {
			min, max = m, M
		}
	}

	right, err := p.parseRef(len(conj.Nodes))
	if err != nil {
		return err
	}
	conj.Operators = append(conj.Operators, OperatorSpec{Op: kind, Left: left, Right: right, Min: min, Max: max})
	return nil
}

func operatorKindFor(tok string) (OperatorKind, bool) {
	switch tok {
	case ".":
		return Precedence, true
	case ">":
		return Dominance, true
	case "->":
		return Pointing, true
	case "==":
		return IdenticalNode, true
	case "@":
		return PartOfSubcorpus, true
	default:
		return 0, false
	}
}

// parseRef parses a 1-based "#N" node reference and translates it to a
// 0-based conjunction position, bounds-checked against the positions
// introduced so far.
func (p *parser) parseRef(introduced int) (int, error) {
	tok := p.next()
	if !strings.HasPrefix(tok, "#") {
		return 0, p.errorf("expected a node reference, found %q", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		return 0, p.errorf("invalid node reference %q", tok)
	}
	idx := n - 1
	if idx < 0 || idx >= introduced {
		return 0, p.errorf("node reference #%d is out of range", n)
	}
	return idx, nil
}

// tryParseDistance consumes an optional "min" or "min,max" distance
// immediately following an operator token (e.g. the "2,4" in ".2,4").
func (p *parser) tryParseDistance() (min, max int, consumed bool) {
	tok := p.peek()
	if !isAllDigits(tok) {
		return 0, 0, false
	}
	p.pos++
	min, _ = strconv.Atoi(tok)
	max = min
	if p.peek() == "," {
		p.pos++
		maxTok := p.next()
		if isAllDigits(maxTok) {
			max, _ = strconv.Atoi(maxTok)
		}
	}
	return min, max, true
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
