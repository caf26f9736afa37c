package dex

import "fmt"

// Build constructs a CFG from a linear instruction list, per spec §4.1.
// list must be non-empty. In editable mode, Build drains list: every item
// ends up owned by exactly one block. In non-editable (read-only) mode,
// blocks instead borrow ranges of list and no markers are stripped.
//
// Build panics (rather than returning an error) on any invariant violation,
// matching §7: a malformed input (e.g. a TRY_START mid-block) is a fatal
// programming error, and construction is not partially recoverable.
func Build(list *ItemList, registersSize int, editable bool) *CFG {
	items := list.Items()
	if len(items) == 0 {
		panic("dex: Build: instruction list must be non-empty")
	}

	cfg := NewCFG(editable, registersSize)
	bld := &builder{
		cfg:             cfg,
		editable:        editable,
		targetsByBranch: make(map[*Item][]*Item),
		catchBlocks:     make(map[*CatchEntry]*Block),
	}
	bld.findBoundaries(items)
	bld.connectEdges()
	bld.connectCatchEdges()

	if editable {
		*list = ItemList{} // every item now belongs to a block
		bld.stripMarkers()
		Simplify(cfg)
		Verify(cfg)
	} else {
		bld.pruneUnreachableSuccessors()
	}
	return cfg
}

type tryEndRecord struct {
	try *TryMarker
	end *Block
}

type builder struct {
	cfg      *CFG
	editable bool

	inTry  bool
	curTry *TryMarker

	blocksInOrder []*Block

	targetsByBranch map[*Item][]*Item // branch opcode item -> ordered target marker items
	tryEnds         []tryEndRecord
	catchBlocks     map[*CatchEntry]*Block
}

// findBoundaries performs the linear boundary-finding walk of §4.1,
// partitioning items into blocks and populating the builder's scratch maps.
func (bld *builder) findBoundaries(items []*Item) {
	start := 0
	for i, it := range items {
		var next *Item
		if i+1 < len(items) {
			next = items[i+1]
		}

		if it.Kind == ItemTryStart {
			if i != start {
				panic("dex: Build: TRY_START must sit at the start of a block")
			}
			bld.inTry = true
			bld.curTry = it.Try
		}
		if it.Kind == ItemCatch {
			bld.recordCatchLater(it)
		}
		if it.Kind == ItemBranchTarget {
			bld.targetsByBranch[it.BranchSrc] = append(bld.targetsByBranch[it.BranchSrc], it)
		}

		ends := bld.itemEndsBlock(it, next)
		if ends {
			blk := bld.cfg.newBlock()
			first, last := items[start], it
			if bld.editable {
				detachRange(first, last)
			}
			blk.setRange(first, last, i-start+1)
			bld.blocksInOrder = append(bld.blocksInOrder, blk)
			bld.indexCatchBlock(first, blk)

			if it.Kind == ItemTryEnd {
				bld.tryEnds = append(bld.tryEnds, tryEndRecord{try: bld.curTry, end: blk})
				bld.inTry = false
				bld.curTry = nil
			}
			start = i + 1
		}
	}
	if start != len(items) {
		panic("dex: Build: trailing items did not form a complete block")
	}
}

// recordCatchLater defers catch-block indexing until the containing block
// is known (it happens at block-close time, see indexCatchBlock).
func (bld *builder) recordCatchLater(*Item) {}

func (bld *builder) indexCatchBlock(first *Item, blk *Block) {
	// A block may open with a run of consecutive catch markers when several
	// catch types fall into the same handler (rule 3 only forces a boundary
	// before the first one, not between them).
	for it := first; it != nil && it.Kind == ItemCatch; it = it.next {
		bld.catchBlocks[it.Catch] = blk
		if it == blk.LastItem() {
			break
		}
	}
}

// itemEndsBlock implements the six boundary rules of §4.1.
func (bld *builder) itemEndsBlock(it, next *Item) bool {
	if next == nil {
		return true // rule 1
	}
	if next.Kind == ItemBranchTarget && it.Kind != ItemBranchTarget {
		return true // rule 2
	}
	if next.Kind == ItemCatch && it.Kind != ItemCatch {
		return true // rule 3
	}
	if next.Kind == ItemTryStart || it.Kind == ItemTryEnd {
		return true // rule 4
	}
	if it.Kind == ItemOpcode {
		if bld.inTry && MayThrow(it.Op) {
			return true // rule 5
		}
		if IsBranch(it.Op) || IsReturn(it.Op) || IsThrow(it.Op) {
			return true // rule 6
		}
	}
	return false
}

// connectEdges wires each block's outgoing edges from its last opcode, per
// §4.1 "Edge connection".
func (bld *builder) connectEdges() {
	for i, blk := range bld.blocksInOrder {
		last := blk.LastOpcode()
		var fallthroughAllowed bool

		switch {
		case last != nil && IsGoto(last.Op):
			for _, tgt := range bld.targetsByBranch[last] {
				targetBlk := bld.blockStartingWith(tgt)
				bld.cfg.AddEdge(blk, targetBlk, EdgeGoto)
				if bld.editable {
					bld.stripTarget(targetBlk, tgt)
				}
			}
			if bld.editable {
				blk.removeItem(last)
			}
		case last != nil && (IsConditionalBranch(last.Op) || IsSwitch(last.Op)):
			for _, tgt := range bld.targetsByBranch[last] {
				targetBlk := bld.blockStartingWith(tgt)
				var opts []EdgeOption
				if IsSwitch(last.Op) && tgt.CaseKey != nil {
					opts = append(opts, WithCaseKey(*tgt.CaseKey))
				}
				bld.cfg.AddEdge(blk, targetBlk, EdgeBranch, opts...)
				if bld.editable {
					bld.stripTarget(targetBlk, tgt)
				}
			}
			fallthroughAllowed = true
		case last != nil && (IsReturn(last.Op) || IsThrow(last.Op)):
			fallthroughAllowed = false
		default:
			fallthroughAllowed = true
		}

		if fallthroughAllowed && i+1 < len(bld.blocksInOrder) {
			bld.cfg.AddEdge(blk, bld.blocksInOrder[i+1], EdgeGoto)
		}
	}
}

// blockStartingWith returns the block whose first item is tgt.
func (bld *builder) blockStartingWith(tgt *Item) *Block {
	for _, blk := range bld.blocksInOrder {
		if blk.FirstItem() == tgt {
			return blk
		}
	}
	panic("dex: Build: branch target marker without a matching block")
}

// stripTarget removes the now-redundant branch-target marker item from the
// front of targetBlk.
func (bld *builder) stripTarget(targetBlk *Block, tgt *Item) {
	if targetBlk.FirstItem() == tgt {
		targetBlk.removeItem(tgt)
	}
}

// connectCatchEdges implements §4.1 "Catch-edge construction": for each
// recorded try-end, walk block ids backwards from the end block, adding one
// THROW edge per catch chain entry for every may-throw block encountered,
// until a block whose first item is the matching TRY_START is reached.
func (bld *builder) connectCatchEdges() {
	for _, rec := range bld.tryEnds {
		endIdx := bld.indexOf(rec.end)
		for i := endIdx; i >= 0; i-- {
			blk := bld.blocksInOrder[i]
			isStart := false
			if first := blk.FirstItem(); first != nil && first.Kind == ItemTryStart && first.Try == rec.try {
				isStart = true
			}
			if bld.blockHasMayThrow(blk) {
				for _, catch := range rec.try.Catches {
					target := bld.catchBlocks[catch]
					if target == nil {
						panic(fmt.Sprintf("dex: Build: catch entry %q has no recorded handler block", catch.Type))
					}
					bld.cfg.AddEdge(blk, target, EdgeThrow, WithCatch(catch.Type, catch.Index))
				}
			}
			if isStart {
				break
			}
		}
	}
}

func (bld *builder) indexOf(blk *Block) int {
	for i, b := range bld.blocksInOrder {
		if b == blk {
			return i
		}
	}
	panic("dex: Build: block not found in build order")
}

func (bld *builder) blockHasMayThrow(blk *Block) bool {
	found := false
	blk.forEach(func(it *Item) bool {
		if it.Kind == ItemOpcode && MayThrow(it.Op) {
			found = true
			return false
		}
		return true
	})
	return found
}

// stripMarkers removes all remaining TRY_START/TRY_END/ItemCatch items from
// every block (§4.1 Finalization, editable mode): try regions are now
// encoded solely as THROW edges.
func (bld *builder) stripMarkers() {
	for _, blk := range bld.blocksInOrder {
		for _, it := range blk.Items() {
			switch it.Kind {
			case ItemTryStart, ItemTryEnd, ItemCatch:
				blk.removeItem(it)
			}
		}
	}
}

// pruneUnreachableSuccessors implements the non-editable finalization step:
// remove successor edges from blocks not reachable from entry, tolerating
// unreachable blocks with no successors remaining.
func (bld *builder) pruneUnreachableSuccessors() {
	reachable := reachableFromEntry(bld.cfg)
	for _, blk := range bld.blocksInOrder {
		if !reachable[blk.id] {
			bld.cfg.RemoveSuccEdges(blk, nil)
		}
	}
}

func reachableFromEntry(c *CFG) map[BlockID]bool {
	seen := make(map[BlockID]bool)
	if c.entry == nil {
		return seen
	}
	stack := []*Block{c.entry}
	seen[c.entry.id] = true
	for len(stack) > 0 {
		n := len(stack) - 1
		blk := stack[n]
		stack = stack[:n]
		for _, e := range blk.succs {
			if !seen[e.target.id] {
				seen[e.target.id] = true
				stack = append(stack, e.target)
			}
		}
	}
	return seen
}
