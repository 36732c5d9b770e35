package relannis

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/korpling/graphannis-go/pkg/gerr"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/updatelog"
)

// corpusEntry is one row of corpus.tab: a (sub-)corpus or document in
// the pre/post-order-numbered corpus tree.
type corpusEntry struct {
	name           string
	normalizedName string
	corpusType     string
	pre, post      uint32
}

type corpusTableInfo struct {
	byID         map[uint32]corpusEntry
	byPreorder   map[uint32]uint32 // pre -> id
	toplevelName string
}

// parseCorpusTab reads corpus.tab/corpus.annis, building the pre/post
// ordered corpus tree per parse_corpus_tab in the original loader.
// Duplicate DOCUMENT names are disambiguated the same way: a
// "_duplicated_document_name_N" suffix is appended past the first
// occurrence, since relANNIS does not itself enforce unique document
// names across sub-corpora.
func parseCorpusTab(dir string, is33 bool) (*corpusTableInfo, error) {
	r, closeFn, err := openTSV(tablePath(dir, "corpus", is33))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	byID := make(map[uint32]corpusEntry)
	byPreorder := make(map[uint32]uint32)
	documentNames := make(map[string]int)

	err = r.forEach(func(row tsvRow) error {
		idStr, err := row.getNotNull(0, "id")
		if err != nil {
			return err
		}
		id, err := parseUint32(idStr, "id")
		if err != nil {
			return err
		}
		name, err := row.getNotNull(1, "name")
		if err != nil {
			return err
		}
		corpusType, err := row.getNotNull(2, "type")
		if err != nil {
			return err
		}
		if corpusType == "DOCUMENT" {
			documentNames[name]++
			if documentNames[name] > 1 {
				name = fmt.Sprintf("%s_duplicated_document_name_%d", name, documentNames[name])
			}
		}
		preStr, err := row.getNotNull(4, "pre")
		if err != nil {
			return err
		}
		pre, err := parseUint32(preStr, "pre")
		if err != nil {
			return err
		}
		postStr, err := row.getNotNull(5, "post")
		if err != nil {
			return err
		}
		post, err := parseUint32(postStr, "post")
		if err != nil {
			return err
		}

		byID[id] = corpusEntry{
			name:           name,
			normalizedName: url.PathEscape(name),
			corpusType:     corpusType,
			pre:            pre,
			post:           post,
		}
		byPreorder[pre] = id
		return nil
	})
	if err != nil && err != io.EOF {
		return nil, err
	}

	minPre := ^uint32(0)
	var toplevelID uint32
	found := false
	for pre, id := range byPreorder {
		if !found || pre < minPre {
			minPre = pre
			toplevelID = id
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: toplevel corpus not found in %s", gerr.ErrIO, dir)
	}

	return &corpusTableInfo{
		byID:         byID,
		byPreorder:   byPreorder,
		toplevelName: byID[toplevelID].name,
	}, nil
}

// parentPath returns the slash-joined normalised names of every
// ancestor of cid, per get_parent_path: an ancestor is any corpus whose
// pre-order precedes cid's and whose post-order follows it.
func (t *corpusTableInfo) parentPath(cid uint32) (string, error) {
	entry, ok := t.byID[cid]
	if !ok {
		return "", fmt.Errorf("%w: corpus id %d", gerr.ErrIO, cid)
	}
	var segments []string
	for pre := uint32(0); pre < entry.pre; pre++ {
		parentID, ok := t.byPreorder[pre]
		if !ok {
			continue
		}
		parent := t.byID[parentID]
		if entry.post < parent.post {
			segments = append(segments, parent.normalizedName)
		}
	}
	return strings.Join(segments, "/"), nil
}

// corpusPath returns cid's full node path, the corpus-tree analogue of
// get_corpus_path.
func (t *corpusTableInfo) corpusPath(cid uint32) (string, error) {
	parent, err := t.parentPath(cid)
	if err != nil {
		return "", err
	}
	entry, ok := t.byID[cid]
	if !ok {
		return "", fmt.Errorf("%w: corpus id %d", gerr.ErrIO, cid)
	}
	if parent == "" {
		return entry.normalizedName, nil
	}
	return parent + "/" + entry.normalizedName, nil
}

// corpusAnnoKey matches an (corpus id, namespace, name) row of
// corpus_annotation.tab to its value.
type corpusAnnoKey struct {
	id        uint32
	ns, name  string
}

func parseCorpusAnnotationTab(dir string, is33 bool) (map[corpusAnnoKey]string, error) {
	r, closeFn, err := openTSV(tablePath(dir, "corpus_annotation", is33))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	out := make(map[corpusAnnoKey]string)
	err = r.forEach(func(row tsvRow) error {
		idStr, err := row.getNotNull(0, "id")
		if err != nil {
			return err
		}
		id, err := parseUint32(idStr, "id")
		if err != nil {
			return err
		}
		ns := ""
		if v := row.get(1); v != nil {
			ns = *v
		}
		name, err := row.getNotNull(2, "name")
		if err != nil {
			return err
		}
		val := invalidString
		if v := row.get(3); v != nil {
			val = *v
		}
		out[corpusAnnoKey{id: id, ns: ns, name: name}] = val
		return nil
	})
	if err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

// invalidString stands in for a NULL annotation value, matching
// INVALID_STRING in the original loader: the annotation can still be
// found by name but never matches an exact-value search.
const invalidString = "￿"

// addSubcorpora emits the toplevel corpus node, every sub-corpus and
// document node linked to it by a PartOf edge, and a datasource node per
// text linked to its document, with every node belonging to that text
// linked onward to the datasource node. Grounded on add_subcorpora in
// the original loader.
func addSubcorpora(events *[]updatelog.Event, corpusTable *corpusTableInfo, nodeResult *nodeTabResult, texts map[textKey]textValue, corpusAnnos map[corpusAnnoKey]string, is33 bool, extDataRoot string) error {
	toplevel := corpusTable.toplevelName
	*events = append(*events, updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: toplevel}, NodeType: "corpus"})

	relannisVersion := "3.2"
	if is33 {
		relannisVersion = "3.3"
	}
	*events = append(*events, updatelog.Event{
		Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: toplevel},
		AnnoNamespace: annisNamespace, AnnoName: "relannis-version", AnnoValue: relannisVersion,
	})

	toplevelID, ok := corpusTable.byPreorder[0]
	if ok {
		addCorpusAnnotations(events, toplevel, toplevelID, corpusAnnos)
	}
	if err := addExternalDataFiles(events, extDataRoot, toplevel, ""); err != nil {
		return err
	}

	for _, cid := range sortedPreorders(corpusTable) {
		entry := corpusTable.byID[cid]
		if entry.pre == 0 {
			continue
		}
		path, err := corpusTable.corpusPath(cid)
		if err != nil {
			return err
		}
		*events = append(*events, updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: path}, NodeType: "corpus"})
		*events = append(*events, updatelog.Event{
			Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: path},
			AnnoNamespace: annisNamespace, AnnoName: "doc", AnnoValue: entry.name,
		})
		addCorpusAnnotations(events, path, cid, corpusAnnos)
		*events = append(*events, updatelog.Event{
			Kind: updatelog.AddEdge,
			Edge: updatelog.EdgeRef{Source: path, Target: toplevel, ComponentType: string(gmodel.PartOf), Layer: annisNamespace},
		})
		if err := addExternalDataFiles(events, extDataRoot, path, entry.name); err != nil {
			return err
		}
	}

	for key, text := range texts {
		if !key.hasCorpusRef {
			continue
		}
		subcorpusPath, err := corpusTable.corpusPath(key.corpusRef)
		if err != nil {
			return err
		}
		textName := url.PathEscape(text.name)
		textFullName := subcorpusPath + "#" + textName

		*events = append(*events, updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: textFullName}, NodeType: "datasource"})
		*events = append(*events, updatelog.Event{
			Kind: updatelog.AddEdge,
			Edge: updatelog.EdgeRef{Source: textFullName, Target: subcorpusPath, ComponentType: string(gmodel.PartOf), Layer: annisNamespace},
		})

		for _, entry := range nodeResult.textEntries[key] {
			name, ok := nodeResult.idToName[entry]
			if !ok {
				continue
			}
			*events = append(*events, updatelog.Event{
				Kind: updatelog.AddEdge,
				Edge: updatelog.EdgeRef{Source: name, Target: textFullName, ComponentType: string(gmodel.PartOf), Layer: annisNamespace},
			})
		}
	}

	return nil
}

func addCorpusAnnotations(events *[]updatelog.Event, path string, cid uint32, corpusAnnos map[corpusAnnoKey]string) {
	for key, val := range corpusAnnos {
		if key.id != cid {
			continue
		}
		*events = append(*events, updatelog.Event{
			Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: path},
			AnnoNamespace: key.ns, AnnoName: key.name, AnnoValue: val,
		})
	}
}

// addExternalDataFiles links every file under <root>/ExtData[/document]
// to parentNodeName as a "file" node, per add_external_data_files in the
// original loader: toplevel attachments live directly under ExtData,
// per-document attachments under an ExtData/<document name> subfolder.
func addExternalDataFiles(events *[]updatelog.Event, root, parentNodeName, document string) error {
	extData := filepath.Join(root, "ExtData")
	if document != "" {
		extData = filepath.Join(extData, document)
	}
	info, err := os.Stat(extData)
	if err != nil || !info.IsDir() {
		return nil
	}
	entries, err := os.ReadDir(extData)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		nodeName := parentNodeName + "/" + entry.Name()
		abs, err := filepath.Abs(filepath.Join(extData, entry.Name()))
		if err != nil {
			return err
		}
		*events = append(*events, updatelog.Event{Kind: updatelog.AddNode, Node: updatelog.NodeRef{Name: nodeName}, NodeType: "file"})
		*events = append(*events, updatelog.Event{
			Kind: updatelog.AddNodeLabel, Node: updatelog.NodeRef{Name: nodeName},
			AnnoNamespace: annisNamespace, AnnoName: "file", AnnoValue: abs,
		})
		*events = append(*events, updatelog.Event{
			Kind: updatelog.AddEdge,
			Edge: updatelog.EdgeRef{Source: nodeName, Target: parentNodeName, ComponentType: string(gmodel.PartOf), Layer: annisNamespace},
		})
	}
	return nil
}
