package dex

// tarjanState carries the exit analysis of §4.3: an iterative Tarjan strongly-connected-
// component walk from entry that identifies real exit blocks (blocks ending
// in return/throw, plus the heads of terminal SCCs — infinite loops with no
// outgoing edges), and the installation of a synthetic ghost exit when more
// than one real exit exists.
//
// The walk is iterative with an explicit stack rather than recursive, per
// §4.3's "tens of thousands of blocks" recursion budget; the three-state
// visited bookkeeping is grounded on wazero's ssa.passCalculateImmediateDominators
// explore-stack pattern, adapted here to carry Tarjan's dfs-number/lowlink
// rather than a plain postorder.
type tarjanState struct {
	index   map[BlockID]int
	lowlink map[BlockID]int
	onStack map[BlockID]bool
	stack   []*Block
	next    int

	realExits []*Block
}

// RealExitBlocksViaSCC returns the set of real exit blocks computed via
// Tarjan SCC from entry: blocks terminating in return/throw, and the root
// of every SCC that has no edge leaving it (an infinite loop).
func RealExitBlocksViaSCC(c *CFG) []*Block {
	if c.entry == nil {
		return nil
	}
	st := &tarjanState{
		index:   make(map[BlockID]int),
		lowlink: make(map[BlockID]int),
		onStack: make(map[BlockID]bool),
	}
	st.run(c)
	return st.realExits
}

type tarjanFrame struct {
	blk      *Block
	succIdx  int
}

func (st *tarjanState) run(c *CFG) {
	var work []*tarjanFrame
	st.visit(c.entry)
	work = append(work, &tarjanFrame{blk: c.entry})

	for len(work) > 0 {
		top := work[len(work)-1]
		b := top.blk

		advanced := false
		for top.succIdx < len(b.succs) {
			succ := b.succs[top.succIdx].target
			top.succIdx++
			if _, seen := st.index[succ.id]; !seen {
				st.visit(succ)
				work = append(work, &tarjanFrame{blk: succ})
				advanced = true
				break
			} else if st.onStack[succ.id] {
				if st.lowlink[succ.id] < st.lowlink[b.id] {
					st.lowlink[b.id] = st.lowlink[succ.id]
				}
			}
		}
		if advanced {
			continue
		}

		// All successors explored: pop this frame.
		work = work[:len(work)-1]
		if len(work) > 0 {
			parent := work[len(work)-1].blk
			if st.lowlink[b.id] < st.lowlink[parent.id] {
				st.lowlink[parent.id] = st.lowlink[b.id]
			}
		}

		if st.lowlink[b.id] == st.index[b.id] {
			scc := st.popSCC(b)
			if !st.hasOutgoingEdge(scc) {
				st.realExits = append(st.realExits, b) // SCC root = exit head
			}
		}
	}

	// Blocks ending in return/throw are always real exits, even when their
	// singleton SCC has outgoing edges (a return block may still have a
	// GHOST edge from a prior calculate_exit_block call, which is not a
	// "real" outgoing edge for this purpose and is excluded in
	// hasOutgoingEdge).
	seen := make(map[BlockID]bool, len(st.realExits))
	for _, b := range st.realExits {
		seen[b.id] = true
	}
	for _, b := range c.Blocks() {
		last := b.LastOpcode()
		if last != nil && (IsReturn(last.Op) || IsThrow(last.Op)) && !seen[b.id] {
			st.realExits = append(st.realExits, b)
			seen[b.id] = true
		}
	}
}

func (st *tarjanState) visit(b *Block) {
	st.index[b.id] = st.next
	st.lowlink[b.id] = st.next
	st.next++
	st.stack = append(st.stack, b)
	st.onStack[b.id] = true
}

// popSCC pops the stack down to and including root, returning the SCC.
func (st *tarjanState) popSCC(root *Block) []*Block {
	var scc []*Block
	for {
		n := len(st.stack) - 1
		b := st.stack[n]
		st.stack = st.stack[:n]
		st.onStack[b.id] = false
		scc = append(scc, b)
		if b == root {
			break
		}
	}
	return scc
}

// hasOutgoingEdge reports whether any block in scc has a real (non-GHOST)
// successor edge leaving the SCC.
func (st *tarjanState) hasOutgoingEdge(scc []*Block) bool {
	in := make(map[BlockID]bool, len(scc))
	for _, b := range scc {
		in[b.id] = true
	}
	for _, b := range scc {
		for _, e := range b.succs {
			if e.kind == EdgeGhost {
				continue
			}
			if !in[e.target.id] {
				return true
			}
		}
	}
	return false
}

// CalculateExitBlock installs c.exit per §4.3. If there is exactly one real
// exit, it becomes the exit block directly. Otherwise a fresh ghost exit
// block is created and every real exit gets a GHOST edge to it. If c.exit
// was already a ghost exit, its old ghost edges and the old ghost block are
// removed first so the computation is idempotent.
func CalculateExitBlock(c *CFG) *Block {
	if c.exit != nil {
		wasGhost := c.exit.hasPred(EdgeGhost)
		c.RemovePredEdges(c.exit, func(e *Edge) bool { return e.kind == EdgeGhost })
		if wasGhost {
			c.RemoveBlock(c.exit)
		}
	}

	exits := RealExitBlocksViaSCC(c)
	switch len(exits) {
	case 0:
		c.exit = nil
	case 1:
		c.exit = exits[0]
	default:
		ghost := c.newBlock()
		for _, b := range exits {
			c.AddEdge(b, ghost, EdgeGhost)
		}
		c.exit = ghost
	}
	return c.exit
}

// RealExitBlocks returns the real exit blocks per §4.3's
// real_exit_blocks(include_infinite_loops). When includeInfiniteLoops is
// true, it returns either the sources of the ghost exit's predecessor edges
// or the single exit block. When false, it returns every block whose
// terminator is return or throw, found without SCC analysis.
func RealExitBlocks(c *CFG, includeInfiniteLoops bool) []*Block {
	if includeInfiniteLoops {
		if c.exit == nil {
			return nil
		}
		var ghostSrcs []*Block
		for _, e := range c.exit.preds {
			if e.kind == EdgeGhost {
				ghostSrcs = append(ghostSrcs, e.src)
			}
		}
		if len(ghostSrcs) > 0 {
			return ghostSrcs
		}
		return []*Block{c.exit}
	}
	var out []*Block
	for _, b := range c.Blocks() {
		last := b.LastOpcode()
		if last != nil && (IsReturn(last.Op) || IsThrow(last.Op)) {
			out = append(out, b)
		}
	}
	return out
}
