package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/korpling/graphannis-go/pkg/corpusstorage"
	"github.com/korpling/graphannis-go/pkg/exec"
	"github.com/korpling/graphannis-go/pkg/gmodel"
)

func (sh *shell) cmdImport(args []string) error {
	if err := requireArgs(args, 1, "import <path> [corpus-name] [--replace]"); err != nil {
		return err
	}
	path := args[0]
	name := lastPathComponent(path)
	replace := false
	for _, a := range args[1:] {
		if a == "--replace" {
			replace = true
			continue
		}
		name = a
	}

	result, err := sh.store.Import(name, corpusstorage.ImportOptions{
		Path:    path,
		Replace: replace,
		Config:  corpusstorage.DefaultConfig(),
		Progress: func(stage string) {
			fmt.Fprintf(sh.out, "  %s\n", stage)
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "imported %q: %d nodes, %d edges\n", name, result.NodesImported, result.EdgesImported)
	for _, w := range result.Warnings {
		fmt.Fprintf(sh.out, "  warning: %s\n", w)
	}
	return nil
}

func lastPathComponent(path string) string {
	trimmed := strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func (sh *shell) cmdList() error {
	corpora, err := sh.store.List()
	if err != nil {
		return err
	}
	if len(corpora) == 0 {
		fmt.Fprintln(sh.out, "(no corpora)")
		return nil
	}
	for _, c := range corpora {
		fmt.Fprintln(sh.out, c.Name)
	}
	return nil
}

func (sh *shell) cmdDelete(args []string) error {
	if err := requireArgs(args, 1, "delete <name>"); err != nil {
		return err
	}
	name := args[0]
	if err := sh.store.Delete(name); err != nil {
		return err
	}
	if sh.corpus == name {
		sh.corpus = ""
	}
	fmt.Fprintf(sh.out, "deleted %q\n", name)
	return nil
}

func (sh *shell) cmdCorpus(args []string) error {
	if err := requireArgs(args, 1, "corpus <name>"); err != nil {
		return err
	}
	sh.corpus = args[0]
	return nil
}

func (sh *shell) cmdPreload(args []string) error {
	name := sh.corpus
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		return fmt.Errorf("usage: preload [name] (or select one with: corpus <name>)")
	}
	if err := sh.store.Preload(name); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "preloaded %q\n", name)
	return nil
}

func (sh *shell) cmdUpdateStatistics(args []string) error {
	name := sh.corpus
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		return fmt.Errorf("usage: update_statistics [name] (or select one with: corpus <name>)")
	}
	if err := sh.store.UpdateStatistics(name); err != nil {
		return err
	}
	fmt.Fprintln(sh.out, "statistics updated")
	return nil
}

func (sh *shell) cmdCount(args []string) error {
	name, err := sh.currentCorpus()
	if err != nil {
		return err
	}
	query := joinQuery(args)
	if query == "" {
		return fmt.Errorf("usage: count <query>")
	}
	ctx := exec.WithParallel(context.Background(), sh.parallel)
	n, err := sh.store.Count(ctx, []string{name}, query)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, n)
	return nil
}

// cmdFind parses "find [offset] [limit] <query...>"; a bare non-numeric
// first/second token is treated as the start of the query, leaving
// offset/limit at their defaults (0, all).
func (sh *shell) cmdFind(args []string) error {
	name, err := sh.currentCorpus()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: find [offset] [limit] <query>")
	}

	offset, limit := 0, 0
	rest := args
	if v, ok := tryAtoi(rest[0]); ok && len(rest) > 1 {
		offset = v
		rest = rest[1:]
		if v2, ok := tryAtoi(rest[0]); ok && len(rest) > 1 {
			limit = v2
			rest = rest[1:]
		}
	}
	query := joinQuery(rest)
	if query == "" {
		return fmt.Errorf("usage: find [offset] [limit] <query>")
	}

	ctx := exec.WithParallel(context.Background(), sh.parallel)
	rows, err := sh.store.Find(ctx, []string{name}, query, offset, limit, corpusstorage.Normal)
	if err != nil {
		return err
	}
	for _, row := range rows {
		names := make([]string, len(row))
		for i, m := range row {
			names[i] = m.NodeName
		}
		fmt.Fprintln(sh.out, strings.Join(names, "  "))
	}
	return nil
}

func tryAtoi(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	return v, err == nil
}

// cmdFrequency parses "frequency <pos>:<ns>:<name>[,...] / <query>".
func (sh *shell) cmdFrequency(args []string) error {
	name, err := sh.currentCorpus()
	if err != nil {
		return err
	}
	line := joinQuery(args)
	defsPart, queryPart, ok := strings.Cut(line, "/")
	if !ok {
		return fmt.Errorf("usage: frequency <pos>:<ns>:<name>[,...] / <query>")
	}
	defs, err := parseFrequencyDefs(strings.TrimSpace(defsPart))
	if err != nil {
		return err
	}
	query := strings.TrimSpace(queryPart)
	if query == "" {
		return fmt.Errorf("usage: frequency <pos>:<ns>:<name>[,...] / <query>")
	}

	ctx := exec.WithParallel(context.Background(), sh.parallel)
	table, err := sh.store.Frequency(ctx, []string{name}, query, defs)
	if err != nil {
		return err
	}
	for _, entry := range table {
		fmt.Fprintf(sh.out, "%d\t%s\n", entry.Count, strings.Join(entry.Values, "\t"))
	}
	return nil
}

func parseFrequencyDefs(spec string) ([]corpusstorage.FrequencyDef, error) {
	if spec == "" {
		return nil, fmt.Errorf("no frequency columns given")
	}
	parts := strings.Split(spec, ",")
	defs := make([]corpusstorage.FrequencyDef, 0, len(parts))
	for _, p := range parts {
		fields := strings.SplitN(strings.TrimSpace(p), ":", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed frequency column %q; want pos:ns:name", p)
		}
		pos, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("malformed frequency column %q: %w", p, err)
		}
		defs = append(defs, corpusstorage.FrequencyDef{
			NodePos: pos,
			Key:     gmodel.AnnoKey{Namespace: fields[1], Name: fields[2]},
		})
	}
	return defs, nil
}

func (sh *shell) cmdPlan(args []string) error {
	name, err := sh.currentCorpus()
	if err != nil {
		return err
	}
	query := joinQuery(args)
	if query == "" {
		return fmt.Errorf("usage: plan <query>")
	}
	fragments, err := sh.store.Plan(name, query)
	if err != nil {
		return err
	}
	for i, f := range fragments {
		fmt.Fprintf(sh.out, "-- disjunct %d --\n%s\n", i, f)
	}
	return nil
}

func (sh *shell) cmdParse(args []string) error {
	query := joinQuery(args)
	if query == "" {
		return fmt.Errorf("usage: parse <query>")
	}
	parsed, err := corpusstorage.ParseQuery(query)
	if err != nil {
		return err
	}
	for i, conj := range parsed.Conjunctions {
		fmt.Fprintf(sh.out, "disjunct %d: %d node(s), %d operator(s)\n",
			i, len(conj.Nodes), len(conj.Operators))
	}
	return nil
}

func (sh *shell) cmdUseParallel(args []string) error {
	if err := requireArgs(args, 1, "use_parallel on|off"); err != nil {
		return err
	}
	switch args[0] {
	case "on":
		sh.parallel = true
	case "off":
		sh.parallel = false
	default:
		return fmt.Errorf("usage: use_parallel on|off")
	}
	fmt.Fprintf(sh.out, "parallel execution: %t\n", sh.parallel)
	return nil
}
