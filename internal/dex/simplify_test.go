package dex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildThreeBlockChain builds a three-block chain (b0 -> b1 -> b2) where b0
// holds only a goto; Build turns that goto into an edge, leaving b0 empty,
// and relies on Simplify to splice it out.
func buildThreeBlockChain(t *testing.T) *CFG {
	t.Helper()
	gotoItem := NewOpcodeItem(OpGoto)
	midOp := NewOpcodeItem(OpNop)
	midTarget := &Item{Kind: ItemBranchTarget, BranchSrc: gotoItem}
	lastTarget := &Item{Kind: ItemBranchTarget, BranchSrc: NewOpcodeItem(OpGoto)}
	last := NewOpcodeItem(OpReturnVoid)

	// b0: goto b1; b1: nop; goto b2; b2: return-void
	mid2Goto := NewOpcodeItem(OpGoto)
	lastTarget.BranchSrc = mid2Goto

	items := []*Item{
		gotoItem,
		midTarget, midOp, mid2Goto,
		lastTarget, last,
	}
	list := NewItemList(items...)
	return Build(list, 0, true)
}

func TestRemoveOpcode_ConditionalBranchCascade(t *testing.T) {
	ifItem := NewOpcodeItem(OpIfEqz)
	takenTarget := &Item{Kind: ItemBranchTarget, BranchSrc: ifItem}
	takenBody := NewOpcodeItem(OpReturnVoid)
	fallBody := NewOpcodeItem(OpReturnVoid)

	items := []*Item{ifItem, fallBody, takenTarget, takenBody}
	c := Build(NewItemList(items...), 0, true)

	entry := c.Entry()
	require.Equal(t, 2, entry.NumSuccs())

	// Removing the if-eqz should drop its BRANCH edge (without running the
	// terminator-fixup rule), leaving only the GOTO fallthrough edge.
	last := entry.LastOpcode()
	require.Equal(t, OpIfEqz, last.Op)
	c.RemoveOpcode(last)

	require.Equal(t, 1, entry.NumSuccs())
	require.Equal(t, EdgeGoto, entry.succs[0].Kind())
}

func TestSimplify_RemovesUnreachableAndEmptyBlocks(t *testing.T) {
	c := buildThreeBlockChain(t)
	require.NotNil(t, c.Entry())

	// After Build's internal Simplify, the chain should have collapsed any
	// empty intermediate blocks and still reach a return.
	require.Equal(t, 2, c.NumBlocks(), "the empty goto-only block must have been removed")
	exitCandidate := c.Entry()
	for exitCandidate.NumSuccs() > 0 {
		exitCandidate = exitCandidate.succs[0].target
	}
	require.Equal(t, OpReturnVoid, exitCandidate.LastOpcode().Op)
}

func TestMergeBlocks(t *testing.T) {
	c := NewCFG(true, 0)
	b0 := c.CreateBlock()
	b1 := c.CreateBlock()
	b0.appendItem(NewOpcodeItem(OpNop))
	b1.appendItem(NewOpcodeItem(OpReturnVoid))
	c.AddEdge(b0, b1, EdgeGoto)

	c.MergeBlocks(b0, b1)

	require.Equal(t, 1, c.NumBlocks())
	require.Equal(t, 2, b0.Len())
	require.Equal(t, OpReturnVoid, b0.LastOpcode().Op)
}

func TestBlocksAreInSameTry(t *testing.T) {
	c := NewCFG(true, 0)
	handler := c.CreateBlock()
	b0 := c.CreateBlock()
	b1 := c.CreateBlock()

	c.AddEdge(b0, handler, EdgeThrow, WithCatch("LFoo;", 0))
	c.AddEdge(b1, handler, EdgeThrow, WithCatch("LFoo;", 0))
	require.True(t, BlocksAreInSameTry(b0, b1))

	b2 := c.CreateBlock()
	require.False(t, BlocksAreInSameTry(b0, b2))
}
