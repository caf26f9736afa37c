package dex

// DeepCopy produces an isomorphic editable CFG: every block's items are
// cloned independently (so the copy shares no Item, Block, or Edge with c),
// and every adjacency pointer is remapped through an old->new block table,
// per §4.7. c need not itself be editable; the result always is.
func (c *CFG) DeepCopy() *CFG {
	out := NewCFG(true, c.registersSize)
	out.nextID = c.nextID

	blockMap := make(map[BlockID]*Block, len(c.blocks))
	posMap := make(map[*SourcePosition]*SourcePosition)

	for _, id := range c.order {
		src, ok := c.blocks[id]
		if !ok {
			continue
		}
		dst := out.blockArena.Allocate()
		*dst = Block{id: src.id, cfg: out, shared: false}
		out.blocks[dst.id] = dst
		out.order = append(out.order, dst.id)
		blockMap[src.id] = dst
	}

	for _, id := range c.order {
		src, ok := c.blocks[id]
		if !ok {
			continue
		}
		dst := blockMap[id]
		for _, it := range src.Items() {
			dst.appendItem(cloneItem(it, posMap))
		}
	}

	// Remap source-position parent pointers through the clone table, now
	// that every position has been cloned.
	for _, pos := range posMap {
		if pos.Parent != nil {
			pos.Parent = posMap[pos.Parent]
		}
	}

	for e := range c.edges {
		ne := out.edgeArena.Allocate()
		*ne = Edge{
			kind:       e.kind,
			src:        blockMap[e.src.id],
			target:     blockMap[e.target.id],
			catchType:  e.catchType,
			catchIndex: e.catchIndex,
		}
		if e.caseKey != nil {
			k := *e.caseKey
			ne.caseKey = &k
		}
		out.edges[ne] = struct{}{}
		ne.src.addSucc(ne)
		ne.target.addPred(ne)
	}

	if c.entry != nil {
		out.entry = blockMap[c.entry.id]
	}
	if c.exit != nil {
		out.exit = blockMap[c.exit.id]
	}
	return out
}

// cloneItem copies it's scalar fields and (for Try/Catch/Pos payloads) deep-
// clones the referenced structure so the copy shares no pointers with the
// original, except BranchSrc which is left nil: branch-target markers never
// survive into an editable CFG's blocks (they exist only transiently during
// Build/Linearize), so a cloned editable CFG never carries one.
func cloneItem(it *Item, posMap map[*SourcePosition]*SourcePosition) *Item {
	clone := &Item{
		Kind:    it.Kind,
		Op:      it.Op,
		Dest:    it.Dest,
		Src0:    it.Src0,
		Src1:    it.Src1,
		Literal: it.Literal,
		Method:  it.Method,
		Debug:   it.Debug,
	}
	if it.Try != nil {
		nt := &TryMarker{ID: it.Try.ID}
		for _, ce := range it.Try.Catches {
			nt.Catches = append(nt.Catches, &CatchEntry{Type: ce.Type, Index: ce.Index})
		}
		clone.Try = nt
	}
	if it.Catch != nil {
		clone.Catch = &CatchEntry{Type: it.Catch.Type, Index: it.Catch.Index}
	}
	if it.Pos != nil {
		if np, ok := posMap[it.Pos]; ok {
			clone.Pos = np
		} else {
			np := &SourcePosition{File: it.Pos.File, Method: it.Pos.Method, Line: it.Pos.Line, Parent: it.Pos.Parent}
			posMap[it.Pos] = np
			clone.Pos = np
		}
	}
	return clone
}
