package main

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/graphannis-go/pkg/gmodel"
)

func TestParseFrequencyDefs(t *testing.T) {
	defs, err := parseFrequencyDefs("0:annis:tok, 1:default:pos")
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, 0, defs[0].NodePos)
	assert.Equal(t, gmodel.AnnoKey{Namespace: "annis", Name: "tok"}, defs[0].Key)
	assert.Equal(t, 1, defs[1].NodePos)
	assert.Equal(t, gmodel.AnnoKey{Namespace: "default", Name: "pos"}, defs[1].Key)
}

func TestParseFrequencyDefsRejectsMalformed(t *testing.T) {
	_, err := parseFrequencyDefs("tok")
	assert.Error(t, err)

	_, err = parseFrequencyDefs("")
	assert.Error(t, err)

	_, err = parseFrequencyDefs("notanumber:annis:tok")
	assert.Error(t, err)
}

func TestLastPathComponent(t *testing.T) {
	assert.Equal(t, "mycorpus", lastPathComponent("/data/exports/mycorpus"))
	assert.Equal(t, "mycorpus", lastPathComponent("/data/exports/mycorpus/"))
	assert.Equal(t, "mycorpus", lastPathComponent("mycorpus"))
}

func TestTryAtoi(t *testing.T) {
	v, ok := tryAtoi("42")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = tryAtoi("tok=\"cat\"")
	assert.False(t, ok)
}

func TestShellDispatchUnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	sh := &shell{parallel: true, out: bufio.NewWriter(&buf)}

	quit := sh.dispatch("bogus")
	sh.out.Flush()
	assert.False(t, quit)
	assert.Contains(t, buf.String(), "unknown command")
}

func TestShellDispatchQuit(t *testing.T) {
	var buf bytes.Buffer
	sh := &shell{parallel: true, out: bufio.NewWriter(&buf)}
	assert.True(t, sh.dispatch("quit"))
	assert.True(t, sh.dispatch("exit"))
}
