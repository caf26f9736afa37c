package dex

// Dominators holds, for every block reachable from entry, its immediate
// dominator and its reverse-postorder index, per spec §4.4.
type Dominators struct {
	idom      map[BlockID]*Block
	postorder map[BlockID]int
}

// Idom returns b's immediate dominator. Entry's immediate dominator is
// entry itself; a block with no predecessors at all is its own dominator.
func (d *Dominators) Idom(b *Block) *Block { return d.idom[b.id] }

// PostorderIndex returns b's reverse-postorder index, as assigned by the
// DFS in ComputeDominators.
func (d *Dominators) PostorderIndex(b *Block) (int, bool) {
	i, ok := d.postorder[b.id]
	return i, ok
}

// Dominates reports whether a strictly or non-strictly dominates b
// (strict when a != b), by walking up b's idom chain.
func (d *Dominators) Dominates(a, b *Block) bool {
	for cur := b; cur != nil; cur = d.idom[cur.id] {
		if cur == a {
			return true
		}
		if d.idom[cur.id] == cur {
			break // reached entry (self-dominating sentinel)
		}
	}
	return false
}

// ComputeDominators computes the immediate dominator of every block
// reachable from entry using the Cooper-Harvey-Kennedy algorithm, per §4.4.
// Grounded on wazero's ssa.calculateDominators/intersect (itself adapted
// from "A Simple, Fast Dominance Algorithm").
func ComputeDominators(c *CFG) *Dominators {
	if c.entry == nil {
		return &Dominators{idom: map[BlockID]*Block{}, postorder: map[BlockID]int{}}
	}

	rpo := reversePostorderSeedingOrphans(c)
	postorder := make(map[BlockID]int, len(rpo))
	for i, blk := range rpo {
		postorder[blk.id] = i
	}

	idom := make(map[BlockID]*Block, len(rpo))
	idom[c.entry.id] = c.entry
	for _, blk := range rpo {
		if len(blk.preds) == 0 && blk != c.entry {
			idom[blk.id] = blk // orphan entry: its own dominator (§4.4 step 2)
		}
	}

	changed := true
	for changed {
		changed = false
		for _, blk := range rpo {
			if blk == c.entry {
				continue
			}
			var newIdom *Block
			for _, e := range blk.preds {
				pred := e.src
				if idom[pred.id] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = pred
				} else {
					newIdom = intersectDoms(idom, postorder, newIdom, pred)
				}
			}
			if newIdom == nil {
				continue
			}
			if idom[blk.id] != newIdom {
				idom[blk.id] = newIdom
				changed = true
			}
		}
	}

	return &Dominators{idom: idom, postorder: postorder}
}

// intersectDoms returns the closest common dominator of a and b, repeatedly
// walking whichever "finger" has the larger (reverse-)postorder index up its
// idom chain until the two meet.
func intersectDoms(idom map[BlockID]*Block, postorder map[BlockID]int, a, b *Block) *Block {
	for a != b {
		for postorder[a.id] > postorder[b.id] {
			a = idom[a.id]
		}
		for postorder[b.id] > postorder[a.id] {
			b = idom[b.id]
		}
	}
	return a
}

// reversePostorderSeedingOrphans produces a reverse postorder of blocks
// reachable from entry. Blocks with no predecessors other than entry are
// pushed first, so orphan entries (unreachable-except-from-entry blocks
// with dangling predecessor-free status) are still ordered sensibly ahead
// of blocks that depend on them (§4.4 step 1).
func reversePostorderSeedingOrphans(c *CFG) []*Block {
	visited := make(map[BlockID]bool)
	var postorder []*Block

	var seeds []*Block
	for _, blk := range c.Blocks() {
		if blk == c.entry {
			continue
		}
		onlyEntryPred := true
		for _, e := range blk.preds {
			if e.src != c.entry {
				onlyEntryPred = false
				break
			}
		}
		if onlyEntryPred && len(blk.preds) > 0 {
			seeds = append(seeds, blk)
		}
	}

	type frame struct {
		blk  *Block
		next int
	}
	var stack []frame
	push := func(b *Block) {
		if visited[b.id] {
			return
		}
		visited[b.id] = true
		stack = append(stack, frame{blk: b})
	}

	push(c.entry)
	for _, s := range seeds {
		push(s)
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.blk.succs) {
			succ := top.blk.succs[top.next].target
			top.next++
			if !visited[succ.id] {
				visited[succ.id] = true
				stack = append(stack, frame{blk: succ})
			}
			continue
		}
		postorder = append(postorder, top.blk)
		stack = stack[:len(stack)-1]
	}

	// Reverse postorder -> RPO.
	for i, j := 0, len(postorder)-1; i < j; i, j = i+1, j-1 {
		postorder[i], postorder[j] = postorder[j], postorder[i]
	}
	return postorder
}
