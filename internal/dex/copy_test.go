package dex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeepCopy_Isomorphic(t *testing.T) {
	c, _, _, _, _ := buildDiamond(t)
	cp := c.DeepCopy()

	require.Equal(t, c.NumBlocks(), cp.NumBlocks())
	require.Equal(t, c.RegistersSize(), cp.RegistersSize())
	require.NotSame(t, c.Entry(), cp.Entry())
	require.Equal(t, c.Entry().id, cp.Entry().id)
	require.Equal(t, c.Entry().NumSuccs(), cp.Entry().NumSuccs())
}

func TestDeepCopy_SharesNoItemsOrEdges(t *testing.T) {
	c, _, _, _, _ := buildDiamond(t)
	cp := c.DeepCopy()

	origItems := make(map[*Item]bool)
	for _, blk := range c.Blocks() {
		for _, it := range blk.Items() {
			origItems[it] = true
		}
	}
	for _, blk := range cp.Blocks() {
		for _, it := range blk.Items() {
			require.False(t, origItems[it], "clone must not share Item pointers with the original")
		}
	}
	for e := range cp.edges {
		_, shared := c.edges[e]
		require.False(t, shared, "clone must not share Edge pointers with the original")
	}

	// Mutating the copy must not affect the original.
	cp.Entry().appendItem(NewOpcodeItem(OpNop))
	require.NotEqual(t, c.Entry().Len(), cp.Entry().Len())
}

func TestDeepCopy_PreservesTryCatch(t *testing.T) {
	catchEntry := &CatchEntry{Type: "LException;", Index: 0}
	try := &TryMarker{ID: 1, Catches: []*CatchEntry{catchEntry}}

	tryStart := &Item{Kind: ItemTryStart, Try: try}
	invoke := NewOpcodeItem(OpInvoke)
	tryEnd := &Item{Kind: ItemTryEnd, Try: try}
	afterTry := NewOpcodeItem(OpReturnVoid)
	catchMarker := &Item{Kind: ItemCatch, Catch: catchEntry}
	handlerBody := NewOpcodeItem(OpThrow)

	items := []*Item{tryStart, invoke, tryEnd, afterTry, catchMarker, handlerBody}
	c := Build(NewItemList(items...), 0, true)
	cp := c.DeepCopy()

	var tryBlk *Block
	for _, blk := range cp.Blocks() {
		if first := blk.FirstOpcode(); first != nil && first.Op == OpInvoke {
			tryBlk = blk
		}
	}
	require.NotNil(t, tryBlk)
	throwEdges := tryBlk.succsOfKind(EdgeThrow)
	require.Len(t, throwEdges, 1)
	require.Equal(t, "LException;", throwEdges[0].CatchType())
}
