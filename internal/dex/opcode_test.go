package dex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodeClassifiers(t *testing.T) {
	assert.True(t, IsGoto(OpGoto))
	assert.False(t, IsGoto(OpIfEqz))

	assert.True(t, IsConditionalBranch(OpIfEqz))
	assert.True(t, IsConditionalBranch(OpIfNez))
	assert.False(t, IsConditionalBranch(OpSwitch))

	assert.True(t, IsSwitch(OpSwitch))

	for _, op := range []Opcode{OpGoto, OpIfEqz, OpIfNez, OpSwitch} {
		assert.True(t, IsBranch(op), "%s should be a branch", op)
	}
	assert.False(t, IsBranch(OpConst))

	assert.True(t, IsReturn(OpReturn))
	assert.True(t, IsReturn(OpReturnWide))
	assert.True(t, IsReturn(OpReturnVoid))
	assert.False(t, IsReturn(OpThrow))

	assert.True(t, IsThrow(OpThrow))

	for _, op := range []Opcode{OpArrayGet, OpArrayPut, OpInstanceGet, OpInstancePut, OpDiv, OpRem, OpCheckCast, OpInvoke, OpNewInstance} {
		assert.True(t, MayThrow(op), "%s should may-throw", op)
	}
	assert.False(t, MayThrow(OpConst))

	assert.True(t, IsMoveResult(OpMoveResult))
	assert.True(t, IsMoveResult(OpMoveResultWide))
	assert.False(t, IsMoveResult(OpMoveResultPseudo))

	assert.True(t, IsMoveResultPseudo(OpMoveResultPseudo))

	assert.True(t, IsInternal(OpMoveResultPseudo))
	assert.True(t, IsInternal(OpMoveException))
	assert.False(t, IsInternal(OpMoveResult))

	assert.True(t, DestIsWide(OpMoveWide))
	assert.True(t, DestIsWide(OpMoveResultWide))
	assert.True(t, DestIsWide(OpReturnWide))
	assert.False(t, DestIsWide(OpMove))

	assert.True(t, SrcIsWide(OpMoveWide))
	assert.False(t, SrcIsWide(OpMove))

	assert.True(t, InvokeProducesResult(OpInvoke))
	assert.False(t, InvokeProducesResult(OpConst))
}

func TestGetBranchingness(t *testing.T) {
	cases := map[Opcode]Branchingness{
		OpGoto:       BranchingnessGoto,
		OpIfEqz:      BranchingnessConditional,
		OpIfNez:      BranchingnessConditional,
		OpSwitch:     BranchingnessSwitch,
		OpReturn:     BranchingnessReturn,
		OpReturnVoid: BranchingnessReturn,
		OpThrow:      BranchingnessThrow,
		OpConst:      BranchingnessNone,
	}
	for op, want := range cases {
		require.Equal(t, want, GetBranchingness(op), "opcode %s", op)
	}
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "goto", OpGoto.String())
	assert.Equal(t, "invoke", OpInvoke.String())
	assert.Equal(t, "opcode(?)", Opcode(255).String())
}
