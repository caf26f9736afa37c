package dex

// BlocksPostOrder returns every block reachable from entry in postorder
// (a block is yielded only after all of its successors have been), and then
// appends any remaining unreachable blocks in id order. Supplemented from
// original_source/libredex/ControlFlow.cpp's blocks_post_order /
// blocks_reverse_post_order iteration queries.
func (c *CFG) BlocksPostOrder() []*Block {
	order := postorderFromEntry(c)
	return appendUnreachable(c, order)
}

// BlocksReversePostOrder returns every block reachable from entry in reverse
// postorder, then appends any remaining unreachable blocks in id order.
func (c *CFG) BlocksReversePostOrder() []*Block {
	order := postorderFromEntry(c)
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return appendUnreachable(c, order)
}

func postorderFromEntry(c *CFG) []*Block {
	if c.entry == nil {
		return nil
	}
	visited := make(map[BlockID]bool)
	var out []*Block

	type frame struct {
		blk  *Block
		next int
	}
	stack := []frame{{blk: c.entry}}
	visited[c.entry.id] = true

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
		out = append(out, top.blk)
		stack = stack[:len(stack)-1]
	}
	return out
}

func appendUnreachable(c *CFG, order []*Block) []*Block {
	seen := make(map[BlockID]bool, len(order))
	for _, blk := range order {
		seen[blk.id] = true
	}
	for _, blk := range c.Blocks() {
		if !seen[blk.id] {
			order = append(order, blk)
		}
	}
	return order
}

// SplitBlock splits b after its at-th entry (0-indexed): b keeps entries
// [0,at], a freshly created block receives entries [at+1,end], a GOTO edge
// connects b to the new block, and b's former successor edges are rewired to
// originate at the new block. Supplemented from
// original_source/libredex/ControlFlow.cpp's split_block.
//
// at must leave at least one entry on each side; splitting would otherwise
// produce an empty half, which simplify (not split) is responsible for
// cleaning up.
func SplitBlock(c *CFG, b *Block, at int) (front, back *Block) {
	if !c.editable {
		panic("dex: SplitBlock on a non-editable CFG")
	}
	items := b.Items()
	if at < 0 || at >= len(items)-1 {
		panic("dex: SplitBlock: at must leave at least one entry on each side")
	}

	back = c.newBlock()
	tailFirst := items[at+1]
	tailLast := items[len(items)-1]
	n := len(items) - (at + 1)

	// Unlink the tail run from b and install it on back.
	if tailFirst.prev != nil {
		tailFirst.prev.next = nil
	}
	tailFirst.prev = nil
	b.tail = items[at]
	b.tail.next = nil
	b.count = at + 1
	back.setRange(tailFirst, tailLast, n)

	for _, e := range b.Succs() {
		c.SetEdgeSource(e, back)
	}
	c.AddEdge(b, back, EdgeGoto)
	return b, back
}
