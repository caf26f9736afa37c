package dex

// Linearize rebuilds a flat instruction list from an editable CFG, per §4.5:
// it orders blocks, reinserts branch-target/goto items and try/catch
// markers, and returns the result as a fresh ItemList. The CFG's blocks are
// left empty afterward; their entries have moved into the returned list.
//
// Block order is id order by default, except that a block reached from its
// sole predecessor by a GOTO edge and beginning with a move-result(-pseudo)
// is always placed immediately after that predecessor, preserving the
// adjacency invariant of §3/§8. Any total order satisfying that constraint is
// acceptable (§ Open Questions); this is simply the one this implementation
// produces.
func Linearize(c *CFG) *ItemList {
	order := linearOrder(c)
	reinsertBranchMarkers(order)
	reinsertTryCatchMarkers(order)

	out := &ItemList{}
	for _, blk := range order {
		first, last, n := blk.head, blk.tail, blk.count
		out.appendRange(first, last, n)
		blk.head, blk.tail, blk.count = nil, nil, 0
	}
	return out
}

// linearOrder computes the block ordering described above.
func linearOrder(c *CFG) []*Block {
	blocks := c.Blocks()

	// forcedNext[pred.id] = succ when succ must immediately follow pred.
	forcedNext := make(map[BlockID]*Block)
	forcedInto := make(map[BlockID]bool) // succ ids already claimed as someone's forced-next
	for _, blk := range blocks {
		g := blk.succOfKind(EdgeGoto)
		if g == nil {
			continue
		}
		succ := g.target
		if succ.beginsWithMoveResult() && len(succ.preds) == 1 && !forcedInto[succ.id] {
			forcedNext[blk.id] = succ
			forcedInto[succ.id] = true
		}
	}

	var order []*Block
	placed := make(map[BlockID]bool, len(blocks))
	for _, blk := range blocks {
		if placed[blk.id] || forcedInto[blk.id] {
			continue // will be placed in its forcing predecessor's chain, or already placed
		}
		for cur := blk; cur != nil && !placed[cur.id]; cur = forcedNext[cur.id] {
			order = append(order, cur)
			placed[cur.id] = true
		}
	}
	// Any block that is somehow still unplaced (unreachable orphan chains
	// whose forcing predecessor was itself skipped) is appended in id order.
	for _, blk := range blocks {
		if !placed[blk.id] {
			order = append(order, blk)
			placed[blk.id] = true
		}
	}
	return order
}

// forcingPredecessor returns the block that placed blk immediately after
// itself via the move-result forced-chain rule, or nil if blk was placed as
// its own chain head.
func forcingPredecessor(blk *Block) *Block {
	if !blk.beginsWithMoveResult() || len(blk.preds) != 1 {
		return nil
	}
	pred := blk.preds[0]
	if pred.kind != EdgeGoto {
		return nil
	}
	return pred.src
}

// effectiveOpenBlock walks backward through the move-result forced-chain to
// find the block a TRY_START destined for blk must actually be prepended to,
// so that the marker never lands between a move-result(-pseudo) and its
// primary (§4.5).
func effectiveOpenBlock(blk *Block) *Block {
	for {
		p := forcingPredecessor(blk)
		if p == nil {
			return blk
		}
		blk = p
	}
}

// reinsertBranchMarkers reinserts GOTO opcodes (when fallthrough to the next
// block in order does not already reach the target) and branch-target
// marker items for every BRANCH/GOTO edge, per §4.5.
func reinsertBranchMarkers(order []*Block) {
	next := make(map[BlockID]*Block, len(order))
	for i, blk := range order {
		if i+1 < len(order) {
			next[blk.id] = order[i+1]
		}
	}

	for _, blk := range order {
		g := blk.succOfKind(EdgeGoto)
		if g != nil && g.target != next[blk.id] {
			gotoItem := NewOpcodeItem(OpGoto)
			blk.appendItem(gotoItem)
			prependBranchTarget(g.target, gotoItem, nil)
		}

		for _, e := range blk.succsOfKind(EdgeBranch) {
			last := blk.LastOpcode()
			var caseKey *int32
			if k, ok := e.CaseKey(); ok {
				kk := k
				caseKey = &kk
			}
			prependBranchTarget(e.target, last, caseKey)
		}
	}
}

// prependBranchTarget installs a fresh ItemBranchTarget at target's front,
// linked to src with the given case key (nil for a plain "if" edge).
func prependBranchTarget(target *Block, src *Item, caseKey *int32) {
	marker := &Item{Kind: ItemBranchTarget, BranchSrc: src, CaseKey: caseKey}
	target.prependItem(marker)
}

// reinsertTryCatchMarkers reinserts TRY_START/TRY_END/catch markers by
// diffing each adjacent pair of blocks' sorted THROW-edge projections
// (via the handle built from throwEdges/projectThrows): a run of
// consecutively-ordered blocks sharing the same catch handle shares one try
// region, per §4.5/§4.6.
func reinsertTryCatchMarkers(order []*Block) {
	var activeTry *TryMarker
	var activeHandle []throwProjection
	var tryCounter int

	closeActive := func(closeAfter *Block) {
		if activeTry == nil {
			return
		}
		closeAfter.appendItem(&Item{Kind: ItemTryEnd, Try: activeTry})
		activeTry, activeHandle = nil, nil
	}

	sameHandle := func(a, b []throwProjection) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	for i, blk := range order {
		handle := projectThrows(blk.throwEdges())

		if activeTry != nil && !sameHandle(handle, activeHandle) {
			closeActive(order[i-1])
		}
		if activeTry == nil && len(handle) > 0 {
			tryCounter++
			try := &TryMarker{ID: tryCounter}
			entries := make([]*CatchEntry, len(handle))
			for i, h := range handle {
				entries[i] = &CatchEntry{Type: h.catch, Index: i}
			}
			try.Catches = entries
			for i := len(handle) - 1; i >= 0; i-- {
				handle[i].target.prependItem(&Item{Kind: ItemCatch, Catch: entries[i]})
			}
			effectiveOpenBlock(blk).prependItem(&Item{Kind: ItemTryStart, Try: try})
			activeTry, activeHandle = try, handle
		}

		if i == len(order)-1 {
			closeActive(blk)
		}
	}
}
