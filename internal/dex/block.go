package dex

// BlockID is a dense, monotonically-assigned, non-negative integer
// identifying a block within one CFG. IDs are assigned once at block
// creation and are never reused, even after the block is removed (§3).
type BlockID int32

// Block is a basic block: an ordered run of instruction items plus the two
// adjacency lists of incident edges, per spec §3.
//
// In editable mode a Block exclusively owns its entries (spliced out of the
// input list at construction, spliced back out at linearization). In
// read-only mode entries instead describe a half-open range borrowed from
// the CFG's original shared list; Block never copies items in that mode.
type Block struct {
	id  BlockID
	cfg *CFG

	// entries: editable mode owns [head,tail] exclusively; read-only mode
	// borrows the same range from the shared list without claiming ownership.
	head, tail *Item
	count      int
	shared     bool // true in read-only mode: entries are borrowed, not owned

	preds []*Edge
	succs []*Edge
}

// ID returns the block's identifier.
func (b *Block) ID() BlockID { return b.id }

// IsEmpty reports whether the block has no entries at all (opcodes or
// markers).
func (b *Block) IsEmpty() bool { return b.count == 0 }

// Len returns the number of entries (of any kind) in the block.
func (b *Block) Len() int { return b.count }

// Preds returns a snapshot of the block's predecessor edges. Per §5, callers
// must snapshot before mutating; this always returns a fresh copy so the
// caller can safely range over it while calling mutation methods.
func (b *Block) Preds() []*Edge {
	out := make([]*Edge, len(b.preds))
	copy(out, b.preds)
	return out
}

// Succs returns a snapshot of the block's successor edges (see Preds).
func (b *Block) Succs() []*Edge {
	out := make([]*Edge, len(b.succs))
	copy(out, b.succs)
	return out
}

// NumPreds returns the number of incoming edges.
func (b *Block) NumPreds() int { return len(b.preds) }

// NumSuccs returns the number of outgoing edges.
func (b *Block) NumSuccs() int { return len(b.succs) }

// FirstItem returns the block's first entry, or nil if empty.
func (b *Block) FirstItem() *Item { return b.head }

// LastItem returns the block's last entry, or nil if empty.
func (b *Block) LastItem() *Item { return b.tail }

// FirstOpcode returns the block's first ItemOpcode entry, or nil if the
// block has no opcode entries (e.g. an empty block, or one holding only
// markers before they're stripped).
func (b *Block) FirstOpcode() *Item {
	var found *Item
	b.forEach(func(it *Item) bool {
		if it.Kind == ItemOpcode {
			found = it
			return false
		}
		return true
	})
	return found
}

// LastOpcode returns the block's last ItemOpcode entry, or nil.
func (b *Block) LastOpcode() *Item {
	var found *Item
	b.forEach(func(it *Item) bool {
		if it.Kind == ItemOpcode {
			found = it
		}
		return true
	})
	return found
}

// Items returns a snapshot slice of the block's entries in order.
func (b *Block) Items() []*Item {
	out := make([]*Item, 0, b.count)
	b.forEach(func(it *Item) bool {
		out = append(out, it)
		return true
	})
	return out
}

// forEach walks the block's entries from head to tail inclusive, stopping
// either when tail is reached or visit returns false. Bounded by [head,tail]
// rather than by nil-termination because a read-only (shared) block's
// entries remain linked into the surrounding borrowed list past its own
// tail.
func (b *Block) forEach(visit func(*Item) bool) {
	if b.head == nil {
		return
	}
	for it := b.head; ; it = it.next {
		if !visit(it) {
			return
		}
		if it == b.tail {
			return
		}
	}
}

// beginsWithMoveResult reports whether the block's first opcode is a
// move-result or move-result-pseudo, the pairing that §3/§8 require to have
// exactly one predecessor.
func (b *Block) beginsWithMoveResult() bool {
	first := b.FirstOpcode()
	return first != nil && (IsMoveResult(first.Op) || IsMoveResultPseudo(first.Op))
}

// setRange installs [first,last] (inclusive, already linked to each other)
// as the block's entries, with count n. Used by the builder when slicing
// boundaries out of the input list.
func (b *Block) setRange(first, last *Item, n int) {
	b.head, b.tail, b.count = first, last, n
}

// requireEditable panics if the block is shared (read-only mode), since
// structural mutation is forbidden there (§3).
func (b *Block) requireEditable() {
	if b.shared {
		panic("dex: structural mutation is forbidden on a non-editable (read-only) block")
	}
}

// appendItem appends it to the block's entries. The block must be editable.
func (b *Block) appendItem(it *Item) {
	b.requireEditable()
	it.prev, it.next = b.tail, nil
	if b.tail != nil {
		b.tail.next = it
	} else {
		b.head = it
	}
	b.tail = it
	b.count++
}

// prependItem inserts it as the block's new first entry.
func (b *Block) prependItem(it *Item) {
	b.requireEditable()
	it.next, it.prev = b.head, nil
	if b.head != nil {
		b.head.prev = it
	} else {
		b.tail = it
	}
	b.head = it
	b.count++
}

// insertItemAfter inserts it immediately after after, which must currently
// be an entry of this block (or nil to insert at the front).
func (b *Block) insertItemAfter(after, it *Item) {
	b.requireEditable()
	if after == nil {
		b.prependItem(it)
		return
	}
	it.prev, it.next = after, after.next
	if after.next != nil {
		after.next.prev = it
	} else {
		b.tail = it
	}
	after.next = it
	b.count++
}

// removeItem unlinks it from the block's entries. it must currently be an
// entry of this block.
func (b *Block) removeItem(it *Item) {
	b.requireEditable()
	if it.prev != nil {
		it.prev.next = it.next
	} else {
		b.head = it.next
	}
	if it.next != nil {
		it.next.prev = it.prev
	} else {
		b.tail = it.prev
	}
	it.prev, it.next = nil, nil
	b.count--
}

// spliceAllInto moves this block's entire entry list onto the end of
// dst's entries, leaving this block empty. Used by MergeBlocks.
func (b *Block) spliceAllInto(dst *Block) {
	if b.head == nil {
		return
	}
	if dst.tail != nil {
		dst.tail.next = b.head
		b.head.prev = dst.tail
	} else {
		dst.head = b.head
	}
	dst.tail = b.tail
	dst.count += b.count
	b.head, b.tail, b.count = nil, nil, 0
}

// addSucc / addPred record e on this block's adjacency list. Only called by
// CFG edge-management methods, which are the sole owners of edge identity.
func (b *Block) addSucc(e *Edge) { b.succs = append(b.succs, e) }
func (b *Block) addPred(e *Edge) { b.preds = append(b.preds, e) }

// removeSucc / removePred remove the first occurrence of e from the
// respective adjacency list. Both return whether an entry was removed.
func (b *Block) removeSucc(e *Edge) bool { return removeEdgeFromSlice(&b.succs, e) }
func (b *Block) removePred(e *Edge) bool { return removeEdgeFromSlice(&b.preds, e) }

func removeEdgeFromSlice(edges *[]*Edge, e *Edge) bool {
	s := *edges
	for i, x := range s {
		if x == e {
			s = append(s[:i], s[i+1:]...)
			*edges = s
			return true
		}
	}
	return false
}

// hasPred reports whether any predecessor edge satisfies kind.
func (b *Block) hasPred(kind EdgeKind) bool {
	for _, e := range b.preds {
		if e.kind == kind {
			return true
		}
	}
	return false
}

// hasSucc reports whether any successor edge satisfies kind.
func (b *Block) hasSucc(kind EdgeKind) bool {
	for _, e := range b.succs {
		if e.kind == kind {
			return true
		}
	}
	return false
}

// succOfKind returns the first successor edge of kind, or nil.
func (b *Block) succOfKind(kind EdgeKind) *Edge {
	for _, e := range b.succs {
		if e.kind == kind {
			return e
		}
	}
	return nil
}

// succsOfKind returns all successor edges of kind, in adjacency order.
func (b *Block) succsOfKind(kind EdgeKind) []*Edge {
	var out []*Edge
	for _, e := range b.succs {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// throwEdges returns the block's THROW successor edges sorted by
// catch-chain index, ascending.
func (b *Block) throwEdges() []*Edge {
	out := b.succsOfKind(EdgeThrow)
	sortEdgesByCatchIndex(out)
	return out
}

func sortEdgesByCatchIndex(edges []*Edge) {
	for i := 1; i < len(edges); i++ {
		for j := i; j > 0 && edges[j-1].catchIndex > edges[j].catchIndex; j-- {
			edges[j-1], edges[j] = edges[j], edges[j-1]
		}
	}
}
