package dex

import (
	"fmt"

	"github.com/dexcfg/dexcfg/internal/arena"
)

// CFG is a control-flow graph: the container that owns every block and edge
// constructed from (or added to) it, per spec §3 and §5.
//
// A CFG is single-threaded and non-reentrant (§5): iteration over an
// adjacency list is invalidated by any mutation to that list, so every
// mutation method that iterates an adjacency list snapshots it first.
type CFG struct {
	blockArena arena.Pool[Block]
	edgeArena  arena.Pool[Edge]

	blocks map[BlockID]*Block
	order  []BlockID // insertion order, preserved across removal (gaps left in place)
	nextID BlockID

	edges map[*Edge]struct{}

	entry *Block
	exit  *Block

	registersSize int
	editable      bool
}

// NewCFG creates an empty CFG. editable selects the mode described in §3:
// editable CFGs own their instruction items and permit structural mutation;
// non-editable ("read-only") CFGs borrow ranges from an external list and
// forbid everything but successor-edge pruning on unreachable blocks.
func NewCFG(editable bool, registersSize int) *CFG {
	return &CFG{
		blockArena:    arena.NewPool[Block](),
		edgeArena:     arena.NewPool[Edge](),
		blocks:        make(map[BlockID]*Block),
		edges:         make(map[*Edge]struct{}),
		registersSize: registersSize,
		editable:      editable,
	}
}

// Editable reports whether this CFG permits structural mutation.
func (c *CFG) Editable() bool { return c.editable }

// RegistersSize returns the currently recorded register-file size.
func (c *CFG) RegistersSize() int { return c.registersSize }

// ArenaStats reports how many Block and Edge slots have ever been allocated
// from this CFG's backing pools, including ones since freed by RemoveBlock/
// RemoveEdge (the pools never shrink). Useful for diagnosing a CFG that has
// churned through far more blocks than it currently holds.
func (c *CFG) ArenaStats() (blocksAllocated, edgesAllocated int) {
	return c.blockArena.Allocated(), c.edgeArena.Allocated()
}

// Entry returns the entry block.
func (c *CFG) Entry() *Block { return c.entry }

// Exit returns the exit block, if CalculateExitBlock has been run.
func (c *CFG) Exit() *Block { return c.exit }

// NumBlocks returns the number of live blocks.
func (c *CFG) NumBlocks() int { return len(c.blocks) }

// Block looks up a block by id.
func (c *CFG) Block(id BlockID) *Block { return c.blocks[id] }

// newBlock allocates and registers a fresh block, in insertion ("id") order.
func (c *CFG) newBlock() *Block {
	blk := c.blockArena.Allocate()
	*blk = Block{id: c.nextID, cfg: c, shared: !c.editable}
	c.blocks[blk.id] = blk
	c.order = append(c.order, blk.id)
	c.nextID++
	if c.entry == nil {
		c.entry = blk
	}
	return blk
}

// CreateBlock allocates a new, detached block not yet wired into the graph.
// Supplemented from original_source/libredex/ControlFlow.cpp's create_block:
// the caller is expected to wire it in with AddEdge or InsertBlockBefore/
// InsertBlockAfter.
func (c *CFG) CreateBlock() *Block {
	if !c.editable {
		panic("dex: CreateBlock on a non-editable CFG")
	}
	return c.newBlock()
}

// Blocks returns a snapshot of all live blocks in id (insertion) order.
func (c *CFG) Blocks() []*Block {
	out := make([]*Block, 0, len(c.blocks))
	for _, id := range c.order {
		if blk, ok := c.blocks[id]; ok {
			out = append(out, blk)
		}
	}
	return out
}

// AddEdge appends a new edge from src to target of the given kind, wiring it
// into both adjacency lists. caseKey/catchType/catchIndex are interpreted
// per kind: caseKey for EdgeBranch (nil for a plain "if" edge), catchType
// and catchIndex for EdgeThrow.
func (c *CFG) AddEdge(src, target *Block, kind EdgeKind, opts ...EdgeOption) *Edge {
	e := c.edgeArena.Allocate()
	*e = Edge{kind: kind, src: src, target: target}
	for _, opt := range opts {
		opt(e)
	}
	c.edges[e] = struct{}{}
	src.addSucc(e)
	target.addPred(e)
	return e
}

// EdgeOption configures an edge's payload at AddEdge time.
type EdgeOption func(*Edge)

// WithCaseKey attaches a switch case key to a BRANCH edge.
func WithCaseKey(key int32) EdgeOption {
	return func(e *Edge) { k := key; e.caseKey = &k }
}

// WithCatch attaches a catch type and chain index to a THROW edge.
func WithCatch(catchType string, index int) EdgeOption {
	return func(e *Edge) { e.catchType = catchType; e.catchIndex = index }
}

// RemoveEdge unlinks e from both adjacency lists and frees it. If cleanup is
// true, the terminator-fixup rule (§4.2) runs afterward on e's former
// source.
func (c *CFG) RemoveEdge(e *Edge, cleanup bool) {
	e.src.removeSucc(e)
	e.target.removePred(e)
	delete(c.edges, e)
	if cleanup {
		c.fixupTerminator(e.src)
	}
}

// RemoveSuccEdges removes every successor edge of b matching pred (nil
// matches all), per §4.2.
func (c *CFG) RemoveSuccEdges(b *Block, pred func(*Edge) bool) {
	for _, e := range b.Succs() {
		if pred == nil || pred(e) {
			c.RemoveEdge(e, false)
		}
	}
}

// RemovePredEdges removes every predecessor edge of b matching pred (nil
// matches all), per §4.2.
func (c *CFG) RemovePredEdges(b *Block, pred func(*Edge) bool) {
	for _, e := range b.Preds() {
		if pred == nil || pred(e) {
			c.RemoveEdge(e, false)
		}
	}
}

// SetEdgeTarget splices e out of its old target's predecessor list and into
// t's, preserving e's identity.
func (c *CFG) SetEdgeTarget(e *Edge, t *Block) {
	e.target.removePred(e)
	e.target = t
	t.addPred(e)
}

// SetEdgeSource splices e out of its old source's successor list and into
// s's, preserving e's identity.
func (c *CFG) SetEdgeSource(e *Edge, s *Block) {
	e.src.removeSucc(e)
	e.src = s
	s.addSucc(e)
}

// fixupTerminator implements the terminator-fixup cleanup rule (§4.2): if
// b's terminator is a conditional branch or switch and only one successor
// edge remains, erase the terminator opcode and convert the remaining edge
// to GOTO.
func (c *CFG) fixupTerminator(b *Block) {
	last := b.LastOpcode()
	if last == nil || !(IsConditionalBranch(last.Op) || IsSwitch(last.Op)) {
		return
	}
	branches := b.succsOfKind(EdgeBranch)
	gotos := b.succsOfKind(EdgeGoto)
	if len(branches)+len(gotos) != 1 {
		return
	}
	b.removeItem(last)
	if len(branches) == 1 {
		branches[0].kind = EdgeGoto
		branches[0].caseKey = nil
	}
}

// RemoveBlock deletes b: if b is the entry, entry is reassigned to b's
// unique successor (precondition: exactly one); every incident edge is
// removed; the block is unregistered.
func (c *CFG) RemoveBlock(b *Block) {
	if b == c.entry {
		if len(b.succs) != 1 {
			panic(fmt.Sprintf("dex: RemoveBlock: entry block %d must have exactly one successor to reassign entry, has %d", b.id, len(b.succs)))
		}
		c.entry = b.succs[0].target
	}
	for _, e := range b.Preds() {
		c.RemoveEdge(e, false)
	}
	for _, e := range b.Succs() {
		c.RemoveEdge(e, false)
	}
	delete(c.blocks, b.id)
	if c.exit == b {
		c.exit = nil
	}
}

// ReplaceBlock reroutes every predecessor of old to new, then removes old.
func (c *CFG) ReplaceBlock(old, new *Block) {
	for _, e := range old.Preds() {
		c.SetEdgeTarget(e, new)
	}
	c.RemoveBlock(old)
}

// MergeBlocks merges succ into pred. Precondition: pred has exactly one
// successor edge, of kind GOTO, targeting succ, and succ has exactly one
// predecessor (§4.2).
func (c *CFG) MergeBlocks(pred, succ *Block) {
	if len(pred.succs) != 1 || pred.succs[0].kind != EdgeGoto || pred.succs[0].target != succ {
		panic("dex: MergeBlocks: pred must have exactly one GOTO successor edge targeting succ")
	}
	if len(succ.preds) != 1 {
		panic("dex: MergeBlocks: succ must have exactly one predecessor")
	}
	c.RemoveEdge(pred.succs[0], false)
	succ.spliceAllInto(pred)
	for _, e := range succ.Succs() {
		c.SetEdgeSource(e, pred)
	}
	delete(c.blocks, succ.id)
	if c.exit == succ {
		c.exit = pred
	}
}

// InsertBlockBefore splices fresh (a detached block from CreateBlock) in
// along anchor's single incoming GOTO-shaped position: every predecessor
// edge of anchor is retargeted to fresh, and a GOTO edge from fresh to
// anchor is added. Supplemented from original_source's create_block/
// insert-before usage.
func (c *CFG) InsertBlockBefore(anchor, fresh *Block) {
	for _, e := range anchor.Preds() {
		c.SetEdgeTarget(e, fresh)
	}
	c.AddEdge(fresh, anchor, EdgeGoto)
	if c.entry == anchor {
		c.entry = fresh
	}
}

// InsertBlockAfter splices fresh in immediately after anchor along a single
// GOTO successor: anchor's existing GOTO successor (if any) is retargeted to
// originate at fresh, and a GOTO edge from anchor to fresh is added.
func (c *CFG) InsertBlockAfter(anchor, fresh *Block) {
	if g := anchor.succOfKind(EdgeGoto); g != nil {
		c.SetEdgeSource(g, fresh)
	}
	c.AddEdge(anchor, fresh, EdgeGoto)
}

// RemoveOpcode removes one opcode item from its block, applying the
// cascades specified in §4.2.
func (c *CFG) RemoveOpcode(it *Item) {
	if it.Kind != ItemOpcode {
		panic("dex: RemoveOpcode: item is not an opcode")
	}
	if it.Op == OpGoto {
		panic("dex: RemoveOpcode: cannot remove OPCODE_GOTO; gotos live only as edges in editable mode")
	}
	blk := blockOwning(c, it)
	if blk == nil {
		panic("dex: RemoveOpcode: item not found in any live block")
	}

	if IsConditionalBranch(it.Op) || IsSwitch(it.Op) {
		c.RemoveSuccEdges(blk, func(e *Edge) bool { return e.kind == EdgeBranch })
	}

	if InvokeProducesResult(it.Op) {
		c.removeMoveResultPairFor(blk, it)
	}

	if blk.LastOpcode() == it && (IsThrow(it.Op) || MayThrow(it.Op)) {
		c.RemoveSuccEdges(blk, func(e *Edge) bool { return e.kind == EdgeThrow })
	}

	blk.removeItem(it)
}

// removeMoveResultPairFor removes the move-result(-pseudo) paired with a
// result-producing instruction primary, wherever it lives (§4.2).
func (c *CFG) removeMoveResultPairFor(blk *Block, primary *Item) {
	if n := primary.next; n != nil && n.Kind == ItemOpcode && (IsMoveResult(n.Op) || IsMoveResultPseudo(n.Op)) {
		blk.removeItem(n)
		return
	}
	if blk.LastOpcode() != primary {
		return
	}
	g := blk.succOfKind(EdgeGoto)
	if g == nil {
		return
	}
	succ := g.target
	if len(succ.preds) != 1 {
		panic("dex: RemoveOpcode: move-result successor must have exactly one predecessor")
	}
	if first := succ.FirstOpcode(); first != nil && (IsMoveResult(first.Op) || IsMoveResultPseudo(first.Op)) {
		succ.removeItem(first)
	}
}

func blockOwning(c *CFG, it *Item) *Block {
	for _, blk := range c.blocks {
		for e := blk.head; e != nil; e = e.next {
			if e == it {
				return blk
			}
		}
	}
	return nil
}

// BlocksAreInSameTry reports whether b1 and b2 share the same set of THROW
// targets and catch types, per §4.6.
func BlocksAreInSameTry(b1, b2 *Block) bool {
	t1, t2 := b1.throwEdges(), b2.throwEdges()
	if len(t1) != len(t2) {
		return false
	}
	p1, p2 := projectThrows(t1), projectThrows(t2)
	for i := range p1 {
		if p1[i] != p2[i] {
			return false
		}
	}
	return true
}

type throwProjection struct {
	target *Block
	catch  string
}

func projectThrows(edges []*Edge) []throwProjection {
	out := make([]throwProjection, len(edges))
	for i, e := range edges {
		out[i] = throwProjection{target: e.target, catch: e.catchType}
	}
	// sort by (target id, catch type) for order-independent comparison.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func less(a, b throwProjection) bool {
	if a.target.id != b.target.id {
		return a.target.id < b.target.id
	}
	return a.catch < b.catch
}

// RecomputeRegistersSize scans every opcode operand referenced by any block
// and sets RegistersSize to one past the maximum, counting wide operands as
// occupying two registers (§4.2 simplify, §8).
func (c *CFG) RecomputeRegistersSize() {
	max := int32(-1)
	bump := func(reg int32, wide bool) {
		top := reg
		if wide {
			top++
		}
		if top > max {
			max = top
		}
	}
	for _, blk := range c.blocks {
		for it := blk.head; it != nil; it = it.next {
			if it.Kind != ItemOpcode {
				continue
			}
			bump(it.Dest, DestIsWide(it.Op))
			bump(it.Src0, SrcIsWide(it.Op))
			bump(it.Src1, false)
		}
	}
	c.registersSize = int(max) + 1
}
