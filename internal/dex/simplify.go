package dex

// Simplify runs remove-unreachable-blocks, then remove-empty-blocks, then
// recompute-registers-size, per §4.2. It is idempotent: Simplify(Simplify(c))
// leaves c unchanged.
func Simplify(c *CFG) {
	removeUnreachableBlocks(c)
	removeEmptyBlocks(c)
	c.RecomputeRegistersSize()
}

// removeUnreachableBlocks deletes every block not reachable from entry, clearing dangling source-position parent pointers along the way
// (§4.2).
func removeUnreachableBlocks(c *CFG) {
	reachable := reachableFromEntry(c)
	var dead []*Block
	for _, blk := range c.Blocks() {
		if !reachable[blk.id] {
			dead = append(dead, blk)
		}
	}
	deadSet := make(map[BlockID]bool, len(dead))
	for _, blk := range dead {
		deadSet[blk.id] = true
	}
	for _, blk := range dead {
		for _, e := range blk.Preds() {
			c.RemoveEdge(e, false)
		}
		for _, e := range blk.Succs() {
			c.RemoveEdge(e, false)
		}
		delete(c.blocks, blk.id)
		if c.exit == blk {
			c.exit = nil
		}
	}
	sweepDanglingPositions(c, deadSet)
}

// sweepDanglingPositions clears the Parent pointer of any live
// ItemPosition whose parent lived in a just-deleted block, per §4.2/§4.9.
func sweepDanglingPositions(c *CFG, deadBlocks map[BlockID]bool) {
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
				it.Pos.Parent = nil
			}
		}
	}
}

// removeEmptyBlocks bypasses every block with no entries at all that is not the
// exit block and has at most one successor (§4.2): its predecessors are
// retargeted to its sole successor and it is deleted. A self-loop empty
// block (an infinite-loop placeholder) is left alone.
func removeEmptyBlocks(c *CFG) {
	changed := true
	for changed {
		changed = false
		for _, blk := range c.Blocks() {
			if blk == c.exit || !blk.IsEmpty() {
				continue
			}
			if len(blk.succs) > 1 {
				panic("dex: simplify: empty block has more than one successor")
			}
			if len(blk.succs) == 0 {
				continue // empty block with no successor: leave it (e.g. a bare exit candidate)
			}
			succ := blk.succs[0].target
			if succ == blk {
				continue // self-loop placeholder: leave in place
			}
			for _, e := range blk.Preds() {
				c.SetEdgeTarget(e, succ)
			}
			c.RemoveEdge(blk.succs[0], false)
			if blk == c.entry {
				c.entry = succ
			}
			delete(c.blocks, blk.id)
			changed = true
		}
	}
}
