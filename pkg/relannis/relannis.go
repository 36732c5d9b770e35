// Package relannis implements the relANNIS TSV importer of spec.md
// section 6 and section 9: it reads a relANNIS 3.2/3.3 export directory
// and emits a stream of updatelog.Event values that, once applied to a
// fresh annograph.Graph, reconstruct the corpus exactly as the original
// tool exported it, including the coverage/ordering/corpus-structure
// edges rank.tab only encodes implicitly and the whitespace-before/after
// token labels the raw text carries but no table names directly.
//
// The pipeline mirrors the teacher's own bulk-import shape
// (pkg/storage/mimir_loader.go's LoadFromMimirExport: stream each table,
// convert row by row, accumulate a result-stats struct, treat optional
// tables as warnings rather than failures) generalised from JSON arrays
// to relANNIS' tab-separated Postgres dump format.
package relannis

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/korpling/graphannis-go/pkg/gerr"
	"github.com/korpling/graphannis-go/pkg/updatelog"
)

// ProgressFunc is invoked with a human-readable description of the
// current loading stage, mirroring the original loader's
// progress_callback.
type ProgressFunc func(stage string)

// Result collects counts and warnings from one Import call, in the
// shape of the teacher's MimirImportResult.
type Result struct {
	NodesImported int
	EdgesImported int
	Warnings      []string

	// ResolverVisMap and ExampleQueries hold the optional visualisation
	// hints of the same name; neither affects graph structure, so
	// corpusstorage persists them in the corpus's resolver/example
	// metadata rather than folding them into the update stream.
	ResolverVisMap []ResolverEntry
	ExampleQueries []ExampleQuery
}

// ResolverEntry is one visualizer rule contributed by resolver_vis_map.tab.
type ResolverEntry struct {
	Namespace, Element, VisType, DisplayName, Visibility string
	Order                                                int
	Mappings                                             map[string]string
}

// ExampleQuery is one row of example_queries.tab.
type ExampleQuery struct {
	Query, Description string
}

const (
	annisNamespace = "annis"
	defaultNS      = "default_ns"
	tokAnno        = "tok"
)

// Import reads the relANNIS export directory at dir and returns the
// update events that reconstruct it, plus import statistics. It does
// not apply the events itself; the caller (pkg/corpusstorage) decides
// which graph to apply them against.
func Import(dir string, progress ProgressFunc) ([]updatelog.Event, *Result, error) {
	if progress == nil {
		progress = func(string) {}
	}
	is33, err := detectVersion(dir)
	if err != nil {
		return nil, nil, err
	}

	var events []updatelog.Event
	result := &Result{}

	progress(fmt.Sprintf("loading %s", tablePath(dir, "corpus", is33)))
	corpusTable, err := parseCorpusTab(dir, is33)
	if err != nil {
		return nil, nil, fmt.Errorf("relannis: corpus table: %w", err)
	}

	progress(fmt.Sprintf("loading %s", tablePath(dir, "text", is33)))
	texts, err := parseTextTab(dir, is33)
	if err != nil {
		return nil, nil, fmt.Errorf("relannis: text table: %w", err)
	}

	progress(fmt.Sprintf("loading %s", tablePath(dir, "node", is33)))
	nodeResult, err := parseNodeTab(dir, is33, &events, texts, corpusTable)
	if err != nil {
		return nil, nil, fmt.Errorf("relannis: node table: %w", err)
	}
	result.NodesImported = len(nodeResult.idToName)

	progress(fmt.Sprintf("loading %s", tablePath(dir, "node_annotation", is33)))
	if err := parseNodeAnnotationTab(dir, is33, &events, nodeResult); err != nil {
		return nil, nil, fmt.Errorf("relannis: node_annotation table: %w", err)
	}

	progress(fmt.Sprintf("loading %s", tablePath(dir, "component", is33)))
	components, err := parseComponentTab(dir, is33)
	if err != nil {
		return nil, nil, fmt.Errorf("relannis: component table: %w", err)
	}

	progress(fmt.Sprintf("loading %s", tablePath(dir, "rank", is33)))
	rankResult, err := parseRankTab(dir, is33, &events, components, nodeResult)
	if err != nil {
		return nil, nil, fmt.Errorf("relannis: rank table: %w", err)
	}
	result.EdgesImported = rankResult.edgeCount

	progress(fmt.Sprintf("loading %s", tablePath(dir, "edge_annotation", is33)))
	if err := parseEdgeAnnotationTab(dir, is33, &events, rankResult, nodeResult); err != nil {
		return nil, nil, fmt.Errorf("relannis: edge_annotation table: %w", err)
	}

	progress(fmt.Sprintf("loading %s", tablePath(dir, "corpus_annotation", is33)))
	corpusAnnos, err := parseCorpusAnnotationTab(dir, is33)
	if err != nil {
		return nil, nil, fmt.Errorf("relannis: corpus_annotation table: %w", err)
	}

	progress("adding corpus and document structure")
	if err := addSubcorpora(&events, corpusTable, nodeResult, texts, corpusAnnos, is33, dir); err != nil {
		return nil, nil, fmt.Errorf("relannis: corpus structure: %w", err)
	}

	progress("calculating automatically generated Ordering edges")
	calculateAutomaticTokenOrder(&events, nodeResult)

	progress("adding non-tokenized primary text segments as white-space labels")
	addWhitespaceTokenLabels(&events, nodeResult, texts)

	if entries, err := parseResolverVisMap(dir, is33); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("resolver_vis_map: %v", err))
	} else {
		result.ResolverVisMap = entries
	}

	if queries, err := parseExampleQueries(dir, is33); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("example_queries: %v", err))
	} else {
		result.ExampleQueries = queries
	}

	return events, result, nil
}

// detectVersion reports whether dir is a relANNIS 3.3 export (".annis"
// table extensions) as opposed to 3.2 or older (".tab").
func detectVersion(dir string) (bool, error) {
	if _, err := os.Stat(filepath.Join(dir, "node.annis")); err == nil {
		return true, nil
	}
	if _, err := os.Stat(filepath.Join(dir, "node.tab")); err == nil {
		return false, nil
	}
	return false, fmt.Errorf("%w: no node.annis or node.tab in %s", gerr.ErrIO, dir)
}

func tablePath(dir, table string, is33 bool) string {
	if is33 {
		return filepath.Join(dir, table+".annis")
	}
	return filepath.Join(dir, table+".tab")
}

func parseUint32(s, field string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", gerr.ErrParseInt, field, s, err)
	}
	return uint32(v), nil
}

// sortedPreorders returns the corpus ids of corpusTable in ascending
// pre-order, matching the original loader's BTreeMap<pre, id> iteration
// order.
func sortedPreorders(corpusTable *corpusTableInfo) []uint32 {
	pres := make([]int, 0, len(corpusTable.byPreorder))
	for pre := range corpusTable.byPreorder {
		pres = append(pres, int(pre))
	}
	sort.Ints(pres)
	out := make([]uint32, 0, len(pres))
	for _, pre := range pres {
		out = append(out, corpusTable.byPreorder[uint32(pre)])
	}
	return out
}
