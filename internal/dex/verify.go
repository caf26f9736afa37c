package dex

import (
	"fmt"
	"strings"
)

// Verify runs the sanity checks of §4.9 against an editable CFG and panics
// with every violation found, rather than returning an error: a failing
// invariant here means the builder or a mutation produced a structurally
// broken graph, which §7 treats as a fatal programming error, not a
// recoverable condition.
//
// Adapted from you-not-fish-yoru's internal/ssa/verify.go, which accumulates
// every violation before reporting; that accumulate-then-report shape is kept
// here, but surfaced as a panic instead of a returned error.
func Verify(c *CFG) {
	var errs []string
	note := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	for _, blk := range c.Blocks() {
		blk.forEach(func(it *Item) bool {
			switch it.Kind {
			case ItemBranchTarget, ItemTryStart, ItemTryEnd, ItemCatch:
				note("block %d: marker item %s survived finalization", blk.id, it.Kind)
			case ItemOpcode:
				if it.Op == OpGoto {
					note("block %d: OPCODE_GOTO survived finalization; gotos must be edges", blk.id)
				}
			}
			return true
		})

		verifyTerminatorShape(blk, note)

		for _, e := range blk.succs {
			if !edgeIn(e.target.preds, e) {
				note("block %d: successor edge to %d missing from target's predecessor list", blk.id, e.target.id)
			}
		}
		for _, e := range blk.preds {
			if !edgeIn(e.src.succs, e) {
				note("block %d: predecessor edge from %d missing from source's successor list", blk.id, e.src.id)
			}
		}
	}

	if c.exit != nil && len(c.exit.succs) != 0 {
		note("exit block %d has %d successor edges; the exit block must have none", c.exit.id, len(c.exit.succs))
	}

	gotRegs := c.registersSize
	c.RecomputeRegistersSize()
	if c.registersSize != gotRegs {
		note("registersSize stale: recorded %d, recomputed %d", gotRegs, c.registersSize)
		c.registersSize = gotRegs // restore; verification must not mutate observable state on success path only
	}

	verifyPositionParents(c, note)

	if len(errs) > 0 {
		panic("dex: Verify: " + strings.Join(errs, "; "))
	}
}

// verifyTerminatorShape checks the terminator-to-successor shape table of
// §4.8/§4.9: a conditional branch or switch must have at least one BRANCH
// successor plus exactly one GOTO fallthrough edge; a return/throw block
// must have no GOTO/BRANCH successors (THROW edges from a may-throw
// non-terminal return are not possible, since return/throw are themselves
// terminal); any other last opcode must have no BRANCH successors and at most
// one GOTO successor (THROW and GHOST edges are not limited here).
func verifyTerminatorShape(blk *Block, note func(string, ...any)) {
	last := blk.LastOpcode()
	gotos := blk.succsOfKind(EdgeGoto)
	branches := blk.succsOfKind(EdgeBranch)

	switch {
	case last != nil && (IsConditionalBranch(last.Op) || IsSwitch(last.Op)):
		if len(branches) == 0 {
			note("block %d: branch/switch terminator has no BRANCH successor edges", blk.id)
		}
		if len(gotos) != 1 {
			note("block %d: branch/switch terminator must have exactly one GOTO fallthrough edge, has %d", blk.id, len(gotos))
		}
	case last != nil && (IsReturn(last.Op) || IsThrow(last.Op)):
		if len(gotos) != 0 || len(branches) != 0 {
			note("block %d: return/throw terminator has GOTO or BRANCH successor edges", blk.id)
		}
	default:
		if len(branches) != 0 {
			note("block %d: non-branching terminator has BRANCH successor edges", blk.id)
		}
		if len(gotos) > 1 {
			note("block %d: non-branching terminator has more than one GOTO successor edge", blk.id)
		}
	}
}

func edgeIn(edges []*Edge, e *Edge) bool {
	for _, x := range edges {
		if x == e {
			return true
		}
	}
	return false
}

// verifyPositionParents checks that every live ItemPosition's Parent pointer,
// if set, targets a position that is itself still present in some block
// (§4.2/§4.9's dangling-parent sweep postcondition).
func verifyPositionParents(c *CFG, note func(string, ...any)) {
	live := make(map[*SourcePosition]bool)
	for _, blk := range c.Blocks() {
		for _, it := range blk.Items() {
			if it.Kind == ItemPosition && it.Pos != nil {
				live[it.Pos] = true
			}
		}
	}
	for _, blk := range c.Blocks() {
		for _, it := range blk.Items() {
			if it.Kind == ItemPosition && it.Pos != nil && it.Pos.Parent != nil && !live[it.Pos.Parent] {
				note("block %d: source position has a parent pointer that is no longer present in any block", blk.id)
			}
		}
	}
}
