package dex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlocksPostOrder_Diamond(t *testing.T) {
	c, entry, b1, b2, b3 := buildDiamond(t)

	post := c.BlocksPostOrder()
	require.Len(t, post, 4)
	require.Equal(t, b3, post[0], "the merge block has no unvisited successors first")
	require.Equal(t, entry, post[len(post)-1], "entry is visited last in postorder")

	rpost := c.BlocksReversePostOrder()
	require.Equal(t, entry, rpost[0])
	require.Contains(t, rpost[1:3], b1)
	require.Contains(t, rpost[1:3], b2)
	require.Equal(t, b3, rpost[3])
}

func TestSplitBlock(t *testing.T) {
	c := NewCFG(true, 0)
	b0 := c.CreateBlock()
	b1 := c.CreateBlock()
	op0 := NewOpcodeItem(OpConst)
	op1 := NewOpcodeItem(OpConst)
	op2 := NewOpcodeItem(OpReturnVoid)
	b0.appendItem(op0)
	b0.appendItem(op1)
	b0.appendItem(op2)
	b1.appendItem(NewOpcodeItem(OpNop))
	c.AddEdge(b0, b1, EdgeGoto)

	front, back := SplitBlock(c, b0, 0)

	require.Equal(t, front, b0)
	require.Equal(t, 1, front.Len())
	require.Equal(t, 2, back.Len())
	require.Equal(t, OpConst, front.FirstOpcode().Op)
	require.Equal(t, OpConst, back.FirstOpcode().Op)

	require.Equal(t, 1, front.NumSuccs())
	g := front.succOfKind(EdgeGoto)
	require.NotNil(t, g)
	require.Equal(t, back, g.Target())

	// b0's original successor to b1 must now originate at back.
	require.Equal(t, 1, back.NumSuccs())
	require.Equal(t, b1, back.succOfKind(EdgeGoto).Target())
}

func TestSplitBlock_RejectsEmptyHalf(t *testing.T) {
	c := NewCFG(true, 0)
	b0 := c.CreateBlock()
	b0.appendItem(NewOpcodeItem(OpConst))
	b0.appendItem(NewOpcodeItem(OpReturnVoid))

	require.Panics(t, func() { SplitBlock(c, b0, 1) })
}
