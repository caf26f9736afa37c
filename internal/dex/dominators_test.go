package dex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildDiamond constructs the classic diamond: entry branches to b1/b2,
// both converge on b3.
func buildDiamond(t *testing.T) (c *CFG, entry, b1, b2, b3 *Block) {
	t.Helper()
	ifItem := NewOpcodeItem(OpIfEqz)
	gotoItem := NewOpcodeItem(OpGoto)
	b2First := NewOpcodeItem(OpConst)
	b3First := NewOpcodeItem(OpReturnVoid)

	ifTarget := &Item{Kind: ItemBranchTarget, BranchSrc: ifItem}
	gotoTarget := &Item{Kind: ItemBranchTarget, BranchSrc: gotoItem}

	items := []*Item{
		ifItem,
		NewOpcodeItem(OpConst), // b1 body
		gotoItem,
		ifTarget, b2First, // b2
		gotoTarget, b3First, // b3
	}
	c = Build(NewItemList(items...), 1, true)

	entry = c.Entry()
	for _, e := range entry.Succs() {
		if e.Kind() == EdgeBranch {
			b2 = e.Target()
		} else {
			b1 = e.Target()
		}
	}
	b3 = b1.succOfKind(EdgeGoto).Target()
	return
}

func TestComputeDominators_Diamond(t *testing.T) {
	c, entry, b1, b2, b3 := buildDiamond(t)
	doms := ComputeDominators(c)

	require.Equal(t, entry, doms.Idom(entry))
	require.Equal(t, entry, doms.Idom(b1))
	require.Equal(t, entry, doms.Idom(b2))
	require.Equal(t, entry, doms.Idom(b3), "merge point's immediate dominator is the branch point, not either arm")

	require.True(t, doms.Dominates(entry, b3))
	require.False(t, doms.Dominates(b1, b3))
	require.False(t, doms.Dominates(b2, b3))
	require.True(t, doms.Dominates(b3, b3))
}

func TestComputeDominators_LinearChain(t *testing.T) {
	items := []*Item{
		NewOpcodeItem(OpConst),
		NewOpcodeItem(OpConst),
		NewOpcodeItem(OpReturnVoid),
	}
	c := Build(NewItemList(items...), 1, true)
	doms := ComputeDominators(c)

	entry := c.Entry()
	require.Equal(t, entry, doms.Idom(entry))
	idx, ok := doms.PostorderIndex(entry)
	require.True(t, ok)
	require.Equal(t, 0, idx)
}

func TestComputeDominators_EmptyCFG(t *testing.T) {
	c := NewCFG(true, 0)
	doms := ComputeDominators(c)
	require.Empty(t, doms.idom)
	require.Empty(t, doms.postorder)
}
