package fixture

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dexcfg/dexcfg/internal/dex"
)

func buildSampleList() (*dex.ItemList, int) {
	catchEntry := &dex.CatchEntry{Type: "LException;", Index: 0}
	try := &dex.TryMarker{ID: 1, Catches: []*dex.CatchEntry{catchEntry}}

	tryStart := &dex.Item{Kind: dex.ItemTryStart, Try: try}
	invoke := dex.NewOpcodeItem(dex.OpInvoke)
	tryEnd := &dex.Item{Kind: dex.ItemTryEnd, Try: try}
	afterTry := dex.NewOpcodeItem(dex.OpReturnVoid)
	catchMarker := &dex.Item{Kind: dex.ItemCatch, Catch: catchEntry}
	handlerBody := dex.NewOpcodeItem(dex.OpThrow)

	items := []*dex.Item{tryStart, invoke, tryEnd, afterTry, catchMarker, handlerBody}
	return dex.NewItemList(items...), 3
}

func TestToFromDocument_RoundTrip(t *testing.T) {
	list, regs := buildSampleList()
	doc := ToDocument(list, regs)

	require.Equal(t, regs, doc.RegistersSize)
	require.Len(t, doc.Items, 6)

	round, roundRegs, err := FromDocument(doc)
	require.NoError(t, err)
	require.Equal(t, regs, roundRegs)

	roundItems := round.Items()
	require.Len(t, roundItems, 6)
	require.Equal(t, dex.ItemTryStart, roundItems[0].Kind)
	require.Equal(t, dex.ItemCatch, roundItems[4].Kind)
	require.Same(t, roundItems[0].Try, roundItems[2].Try, "try-start and try-end must share the same TryMarker")
	require.Equal(t, "LException;", roundItems[4].Catch.Type)

	// The round-tripped list must still Build successfully, preserving the
	// THROW edge from the invoke block to the handler block.
	c := dex.Build(round, roundRegs, true)
	var tryBlk *dex.Block
	for _, blk := range c.Blocks() {
		if first := blk.FirstOpcode(); first != nil && first.Op == dex.OpInvoke {
			tryBlk = blk
		}
	}
	require.NotNil(t, tryBlk)
	var throwEdge *dex.Edge
	for _, e := range tryBlk.Succs() {
		if e.Kind() == dex.EdgeThrow {
			throwEdge = e
		}
	}
	require.NotNil(t, throwEdge)
	require.Equal(t, "LException;", throwEdge.CatchType())
}

func TestWriteReadYAML_RoundTrip(t *testing.T) {
	list, regs := buildSampleList()

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, list, regs))
	require.Contains(t, buf.String(), "registers_size")

	round, roundRegs, err := ReadYAML(&buf)
	require.NoError(t, err)
	require.Equal(t, regs, roundRegs)
	require.Len(t, round.Items(), 6)
}

func TestReadYAML_UnknownKind(t *testing.T) {
	_, _, err := ReadYAML(bytes.NewBufferString("registers_size: 1\nitems:\n  - kind: bogus\n"))
	require.Error(t, err)
}

func TestDumpAndLoadCrash(t *testing.T) {
	list, regs := buildSampleList()
	dir := t.TempDir()

	path, err := DumpCrash(dir, list, regs)
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(path) || filepath.Dir(path) == dir)
	require.FileExists(t, path)

	round, roundRegs, err := LoadCrashDump(path)
	require.NoError(t, err)
	require.Equal(t, regs, roundRegs)
	require.Len(t, round.Items(), 6)
}

func TestDumpCrash_CreatesDir(t *testing.T) {
	list, regs := buildSampleList()
	dir := filepath.Join(t.TempDir(), "nested", "crashes")

	path, err := DumpCrash(dir, list, regs)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
