package relannis

import (
	"fmt"
	"io"
	"sort"

	"github.com/korpling/graphannis-go/pkg/gerr"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/updatelog"
)

// textKey identifies one text.tab row. corpusRef is absent for relANNIS
// versions older than 3.3, where it is instead recovered from the first
// node.tab row referencing that text (see patchTextCorpusRef).
type textKey struct {
	id           uint32
	corpusRef    uint32
	hasCorpusRef bool
}

type textValue struct {
	name, val string
}

// parseTextTab reads text.tab/text.annis per parse_text_tab.
func parseTextTab(dir string, is33 bool) (map[textKey]textValue, error) {
	r, closeFn, err := openTSV(tablePath(dir, "text", is33))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	idCol, nameCol, valCol := 0, 1, 2
	if is33 {
		idCol, nameCol, valCol = 1, 2, 3
	}

	out := make(map[textKey]textValue)
	err = r.forEach(func(row tsvRow) error {
		idStr, err := row.getNotNull(idCol, "id")
		if err != nil {
			return err
		}
		id, err := parseUint32(idStr, "id")
		if err != nil {
			return err
		}
		name, err := row.getNotNull(nameCol, "name")
		if err != nil {
			return err
		}
		value, err := row.getNotNull(valCol, "text")
		if err != nil {
			return err
		}
		key := textKey{id: id}
		if is33 {
			refStr, err := row.getNotNull(0, "corpus_ref")
			if err != nil {
				return err
			}
			ref, err := parseUint32(refStr, "corpus_ref")
			if err != nil {
				return err
			}
			key.corpusRef, key.hasCorpusRef = ref, true
		}
		out[key] = textValue{name: name, val: value}
		return nil
	})
	if err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

// textProperty orders a node within one text (or one segmentation's
// tokenisation of that text), matching TextProperty in the original
// loader.
type textProperty struct {
	corpusID, textID uint32
	segmentation     string
	val              uint32
}

type tokenIndexEntry struct {
	prop   textProperty
	nodeID uint32
}

// nodeTabResult accumulates everything later stages need from node.tab:
// the id -> full node path map, the nodes grouped by the text they
// belong to (for the PartOf edges to the text's datasource node), the
// character-offset tables for whitespace reconstruction and the token
// ordering keyed by text/segmentation.
type nodeTabResult struct {
	idToName       map[uint32]string
	textEntries    map[textKey][]uint32
	missingSegSpan map[uint32]string
	leftChar       map[uint32]uint32
	rightChar      map[uint32]uint32
	tokenByIndex   []tokenIndexEntry
}

// parseNodeTab reads node.tab/node.annis, emitting one AddNode (plus an
// optional "layer"/"tok" AddNodeLabel) event per row, and recording the
// character-offset and token-order bookkeeping the later stages need.
// Column layout mirrors load_node_tab in the original loader. Columns
// 5/6 are read as character offsets; the left_token/right_token
// alignment columns are not read: annograph.Graph already re-derives the LeftToken/RightToken
// components from Coverage edges once rank.tab's edges are applied.
func parseNodeTab(dir string, is33 bool, events *[]updatelog.Event, texts map[textKey]textValue, corpusTable *corpusTableInfo) (*nodeTabResult, error) {
	r, closeFn, err := openTSV(tablePath(dir, "node", is33))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	result := &nodeTabResult{
		idToName:       make(map[uint32]string),
		textEntries:    make(map[textKey][]uint32),
		missingSegSpan: make(map[uint32]string),
		leftChar:       make(map[uint32]uint32),
		rightChar:      make(map[uint32]uint32),
	}

	err = r.forEach(func(row tsvRow) error {
		hasSegmentations := is33 || len(row) > 10

		idStr, err := row.getNotNull(0, "id")
		if err != nil {
			return err
		}
		nodeID, err := parseUint32(idStr, "id")
		if err != nil {
			return err
		}
		textIDStr, err := row.getNotNull(1, "text_ref")
		if err != nil {
			return err
		}
		textID, err := parseUint32(textIDStr, "text_ref")
		if err != nil {
			return err
		}
		corpusIDStr, err := row.getNotNull(2, "corpus_ref")
		if err != nil {
			return err
		}
		corpusID, err := parseUint32(corpusIDStr, "corpus_ref")
		if err != nil {
			return err
		}
		layer := row.get(3)
		name, err := row.getNotNull(4, "name")
		if err != nil {
			return err
		}

		key := textKey{id: textID, corpusRef: corpusID, hasCorpusRef: true}
		result.textEntries[key] = append(result.textEntries[key], nodeID)
		if !is33 {
			patchTextCorpusRef(texts, textID, corpusID)
		}

		corpusPath, err := corpusTable.corpusPath(corpusID)
		if err != nil {
			return err
		}
		nodePath := corpusPath + "#" + name
		result.idToName[nodeID] = nodePath

		*events = append(*events, updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: nodePath}, NodeType: "node"})
		if layer != nil && *layer != "" {
			*events = append(*events, updatelog.Event{
				Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: nodePath},
				AnnoNamespace: annisNamespace, AnnoName: "layer", AnnoValue: *layer,
			})
		}

		leftCharStr, err := row.getNotNull(5, "left")
		if err != nil {
			return err
		}
		leftChar, err := parseUint32(leftCharStr, "left")
		if err != nil {
			return err
		}
		rightCharStr, err := row.getNotNull(6, "right")
		if err != nil {
			return err
		}
		rightChar, err := parseUint32(rightCharStr, "right")
		if err != nil {
			return err
		}
		result.leftChar[nodeID] = leftChar
		result.rightChar[nodeID] = rightChar

		tokenIndexRaw := row.get(7)

		if tokenIndexRaw != nil {
			spanCol := 9
			if hasSegmentations {
				spanCol = 12
			}
			span, err := row.getNotNull(spanCol, "span")
			if err != nil {
				return err
			}
			*events = append(*events, updatelog.Event{
				Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: nodePath},
				AnnoNamespace: annisNamespace, AnnoName: tokAnno, AnnoValue: span,
			})

			tokenIndex, err := parseUint32(*tokenIndexRaw, "token_index")
			if err != nil {
				return err
			}
			result.tokenByIndex = append(result.tokenByIndex, tokenIndexEntry{
				prop:   textProperty{corpusID: corpusID, textID: textID, segmentation: "", val: tokenIndex},
				nodeID: nodeID,
			})
		} else if hasSegmentations {
			segNameCol := 8
			if is33 {
				segNameCol = 11
			}
			segName := row.get(segNameCol)
			if segName != nil && *segName != "" {
				segIndexCol := 9
				if is33 {
					segIndexCol = 10
				}
				segIndexStr, err := row.getNotNull(segIndexCol, "seg_index")
				if err != nil {
					return err
				}
				segIndex, err := parseUint32(segIndexStr, "seg_index")
				if err != nil {
					return err
				}
				if is33 {
					span, err := row.getNotNull(12, "span")
					if err != nil {
						return err
					}
					*events = append(*events, updatelog.Event{
						Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: nodePath},
						AnnoNamespace: annisNamespace, AnnoName: tokAnno, AnnoValue: span,
					})
				} else {
					result.missingSegSpan[nodeID] = *segName
				}
				result.tokenByIndex = append(result.tokenByIndex, tokenIndexEntry{
					prop:   textProperty{corpusID: corpusID, textID: textID, segmentation: *segName, val: segIndex},
					nodeID: nodeID,
				})
			}
		}

		return nil
	})
	if err != nil && err != io.EOF {
		return nil, err
	}

	return result, nil
}

// patchTextCorpusRef completes the corpus reference for relANNIS
// versions older than 3.3, where text.tab does not itself carry one:
// the first node.tab row referencing a text supplies it.
func patchTextCorpusRef(texts map[textKey]textValue, textID, corpusID uint32) {
	bare := textKey{id: textID}
	if v, ok := texts[bare]; ok {
		delete(texts, bare)
		texts[textKey{id: textID, corpusRef: corpusID, hasCorpusRef: true}] = v
	}
}

// parseNodeAnnotationTab reads node_annotation.tab, emitting one
// AddNodeLabel event per row; the "annis:tok" namespace/name pair is
// skipped since parseNodeTab already derived it from node.tab's span
// column, and a row matching a missing pre-3.3 segmentation span
// additionally re-derives the "annis:tok" label from that segment's own
// value, per load_node_anno_tab.
func parseNodeAnnotationTab(dir string, is33 bool, events *[]updatelog.Event, nodeResult *nodeTabResult) error {
	r, closeFn, err := openTSV(tablePath(dir, "node_annotation", is33))
	if err != nil {
		return err
	}
	defer closeFn()

	return wrapEOF(r.forEach(func(row tsvRow) error {
		idStr, err := row.getNotNull(0, "id")
		if err != nil {
			return err
		}
		nodeID, err := parseUint32(idStr, "id")
		if err != nil {
			return err
		}
		name, ok := nodeResult.idToName[nodeID]
		if !ok {
			return fmt.Errorf("%w: node %d", gerr.ErrIO, nodeID)
		}
		ns := ""
		if v := row.get(1); v != nil {
			ns = *v
		}
		annoName, err := row.getNotNull(2, "name")
		if err != nil {
			return err
		}
		val := row.get(3)
		if ns == annisNamespace && annoName == tokAnno {
			return nil
		}
		hasValue := val != nil
		value := invalidString
		if hasValue {
			value = *val
		}

		if seg, ok := nodeResult.missingSegSpan[nodeID]; ok && seg == annoName && hasValue {
			*events = append(*events, updatelog.Event{
				Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: name},
				AnnoNamespace: annisNamespace, AnnoName: tokAnno, AnnoValue: value,
			})
		}

		*events = append(*events, updatelog.Event{
			Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: name},
			AnnoNamespace: ns, AnnoName: annoName, AnnoValue: value,
		})
		return nil
	}))
}

func wrapEOF(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}

// calculateAutomaticTokenOrder sorts every recorded token position and
// emits an Ordering edge between consecutive tokens of the same text
// (or the same segmentation's tokenisation), per
// calculate_automatic_token_order.
func calculateAutomaticTokenOrder(events *[]updatelog.Event, nodeResult *nodeTabResult) {
	entries := append([]tokenIndexEntry(nil), nodeResult.tokenByIndex...)
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].prop, entries[j].prop
		if a.corpusID != b.corpusID {
			return a.corpusID < b.corpusID
		}
		if a.textID != b.textID {
			return a.textID < b.textID
		}
		if a.segmentation != b.segmentation {
			return a.segmentation < b.segmentation
		}
		return a.val < b.val
	})

	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if prev.prop.corpusID != cur.prop.corpusID || prev.prop.textID != cur.prop.textID || prev.prop.segmentation != cur.prop.segmentation {
			continue
		}
		layer := annisNamespace
		if cur.prop.segmentation != "" {
			layer = defaultNS
		}
		sourceName := nodeResult.idToName[prev.nodeID]
		targetName := nodeResult.idToName[cur.nodeID]
		*events = append(*events, updatelog.Event{
			Kind: updatelog.AddEdge,
			Edge: updatelog.EdgeRef{Source: sourceName, Target: targetName, ComponentType: string(gmodel.Ordering), Layer: layer, Name: cur.prop.segmentation},
		})
	}
}

// addWhitespaceTokenLabels derives tok-whitespace-before/after labels
// for every primary-tokenisation token (segmentation == "") from the
// raw text and that token's character offsets, per
// add_white_space_token_labels.
func addWhitespaceTokenLabels(events *[]updatelog.Event, nodeResult *nodeTabResult, texts map[textKey]textValue) {
	primary := make(map[textKey][]tokenIndexEntry)
	for _, e := range nodeResult.tokenByIndex {
		if e.prop.segmentation != "" {
			continue
		}
		key := textKey{id: e.prop.textID, corpusRef: e.prop.corpusID, hasCorpusRef: true}
		primary[key] = append(primary[key], e)
	}

	for key, tv := range texts {
		toks, ok := primary[key]
		if !ok || len(toks) == 0 {
			continue
		}
		sort.Slice(toks, func(i, j int) bool { return toks[i].prop.val < toks[j].prop.val })

		runes := []rune(tv.val)
		offset := 0
		for i, e := range toks {
			left, lok := nodeResult.leftChar[e.nodeID]
			right, rok := nodeResult.rightChar[e.nodeID]
			if !lok || !rok {
				continue
			}
			tokenLeft, tokenRight := int(left), int(right)
			name := nodeResult.idToName[e.nodeID]

			if i == 0 && offset < tokenLeft {
				before := sliceRunes(runes, offset, tokenLeft)
				offset = tokenLeft
				*events = append(*events, updatelog.Event{
					Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: name},
					AnnoNamespace: annisNamespace, AnnoName: gmodel.TokWSBefore.Name, AnnoValue: before,
				})
			}

			if offset < tokenRight {
				offset = tokenRight
			}

			nextLeft := len(runes)
			if i+1 < len(toks) {
				if nl, ok := nodeResult.leftChar[toks[i+1].nodeID]; ok {
					nextLeft = int(nl)
				}
			}
			if offset < nextLeft {
				after := sliceRunes(runes, offset, nextLeft)
				offset = nextLeft
				*events = append(*events, updatelog.Event{
					Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: name},
					AnnoNamespace: annisNamespace, AnnoName: gmodel.TokWSAfter.Name, AnnoValue: after,
				})
			}
		}
	}
}

func sliceRunes(runes []rune, from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(runes) {
		to = len(runes)
	}
	if from >= to {
		return ""
	}
	return string(runes[from:to])
}
