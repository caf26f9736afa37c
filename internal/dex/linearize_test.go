package dex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinearize_RoundTrip_Linear(t *testing.T) {
	items := []*Item{
		NewOpcodeItem(OpConst),
		NewOpcodeItem(OpConst),
		NewOpcodeItem(OpReturnVoid),
	}
	c := Build(NewItemList(items...), 2, true)

	list := Linearize(c)
	require.Equal(t, 0, c.Entry().Len(), "linearize must drain the CFG's blocks")

	c2 := Build(list, 2, true)
	require.Equal(t, 1, c2.NumBlocks())
	require.Equal(t, 3, c2.Entry().Len())
	require.Equal(t, OpReturnVoid, c2.Entry().LastOpcode().Op)
}

func TestLinearize_RoundTrip_ConditionalDiamond(t *testing.T) {
	c, _, _, _, _ := buildDiamond(t)

	list := Linearize(c)
	c2 := Build(list, 1, true)

	require.Equal(t, 4, c2.NumBlocks())
	entry := c2.Entry()
	require.Equal(t, 2, entry.NumSuccs())

	var branch, fall *Edge
	for _, e := range entry.Succs() {
		if e.Kind() == EdgeBranch {
			branch = e
		} else if e.Kind() == EdgeGoto {
			fall = e
		}
	}
	require.NotNil(t, branch)
	require.NotNil(t, fall)
	exit := branch.Target().succOfKind(EdgeGoto).Target()
	require.Equal(t, exit, fall.Target().succOfKind(EdgeGoto).Target())
	require.Equal(t, OpReturnVoid, exit.FirstOpcode().Op)
}

func TestLinearize_RoundTrip_TryCatch(t *testing.T) {
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

	list := Linearize(c)
	c2 := Build(list, 0, true)

	var tryBlk, handlerBlk *Block
	for _, blk := range c2.Blocks() {
		if first := blk.FirstOpcode(); first != nil && first.Op == OpInvoke {
			tryBlk = blk
		}
		if first := blk.FirstOpcode(); first != nil && first.Op == OpThrow {
			handlerBlk = blk
		}
	}
	require.NotNil(t, tryBlk)
	require.NotNil(t, handlerBlk)

	var throwEdge *Edge
	for _, e := range tryBlk.Succs() {
		if e.Kind() == EdgeThrow {
			throwEdge = e
		}
	}
	require.NotNil(t, throwEdge, "try/catch round-trip must preserve the THROW edge")
	require.Equal(t, handlerBlk, throwEdge.Target())
	require.Equal(t, "LException;", throwEdge.CatchType())
}

func TestLinearize_SharedCatchAcrossSeparateTries(t *testing.T) {
	// Two non-overlapping try regions, each guarding a different invoke,
	// both routed to the very same physical handler block. The non-throwing
	// mid block between them closes the first region before the second opens.
	catch1 := &CatchEntry{Type: "LException;", Index: 0}
	catch2 := &CatchEntry{Type: "LException;", Index: 0}

	c := NewCFG(true, 0)
	b0 := c.CreateBlock()
	mid := c.CreateBlock()
	b1 := c.CreateBlock()
	handler := c.CreateBlock()
	exitBlk := c.CreateBlock()

	b0.appendItem(NewOpcodeItem(OpInvoke))
	mid.appendItem(NewOpcodeItem(OpNop))
	b1.appendItem(NewOpcodeItem(OpInvoke))
	handler.appendItem(NewOpcodeItem(OpThrow))
	exitBlk.appendItem(NewOpcodeItem(OpReturnVoid))

	c.AddEdge(b0, mid, EdgeGoto)
	c.AddEdge(mid, b1, EdgeGoto)
	c.AddEdge(b0, handler, EdgeThrow, WithCatch(catch1.Type, catch1.Index))
	c.AddEdge(b1, exitBlk, EdgeGoto)
	c.AddEdge(b1, handler, EdgeThrow, WithCatch(catch2.Type, catch2.Index))

	list := Linearize(c)
	c2 := Build(list, 0, true)

	var handlerBlk *Block
	var throwingBlocks int
	for _, blk := range c2.Blocks() {
		if first := blk.FirstOpcode(); first != nil && first.Op == OpThrow {
			handlerBlk = blk
		}
		for _, e := range blk.succsOfKind(EdgeThrow) {
			if e.Target().FirstOpcode() != nil && e.Target().FirstOpcode().Op == OpThrow {
				throwingBlocks++
			}
		}
	}
	require.NotNil(t, handlerBlk)
	require.Equal(t, 2, throwingBlocks, "both independent try regions must route to the shared handler")
}
