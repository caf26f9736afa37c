package dex

// ItemList is a minimal stand-in for the owning instruction-list container
// that §1 and §6 name as an external collaborator (split/splice primitives,
// opaque to the core beyond what it needs to drain one on Build and produce
// a fresh one on Linearize). It is intentionally thin: a doubly-linked
// sequence of Items with push and splice at the back only, mirroring the contract
// in §6 without implementing the owning container's full feature set
// (iterator-to queries, disposal policies) which belongs to that
// collaborator, not the CFG core.
type ItemList struct {
	head, tail *Item
	len        int
}

// NewItemList builds a list from items in order.
func NewItemList(items ...*Item) *ItemList {
	l := &ItemList{}
	for _, it := range items {
		l.PushBack(it)
	}
	return l
}

// Len returns the number of items in the list.
func (l *ItemList) Len() int { return l.len }

// Front returns the first item, or nil if the list is empty.
func (l *ItemList) Front() *Item { return l.head }

// Back returns the last item, or nil if the list is empty.
func (l *ItemList) Back() *Item { return l.tail }

// PushBack appends it to the end of the list.
func (l *ItemList) PushBack(it *Item) {
	it.prev, it.next = l.tail, nil
	if l.tail != nil {
		l.tail.next = it
	} else {
		l.head = it
	}
	l.tail = it
	l.len++
}

// Items returns a snapshot slice of the list contents in order.
func (l *ItemList) Items() []*Item {
	out := make([]*Item, 0, l.len)
	for it := l.head; it != nil; it = it.next {
		out = append(out, it)
	}
	return out
}

// appendRange splices the already-linked closed range [first, last] onto the
// end of the list in one step, without touching the items' mutual links.
// Used by the linearizer to move a block's entries into the output list.
func (l *ItemList) appendRange(first, last *Item, n int) {
	if first == nil {
		return
	}
	first.prev = l.tail
	if l.tail != nil {
		l.tail.next = first
	} else {
		l.head = first
	}
	l.tail = last
	l.len += n
}

// detachRange unlinks the closed range [first, last] from whatever list it
// currently lives in (this ItemList, or a Block's entries) without touching
// the items' internal links to each other, leaving [first, last] as a bare
// chain. It does not update any ItemList's head, tail, or length. Callers
// splice the chain into their own storage.
func detachRange(first, last *Item) {
	if p := first.prev; p != nil {
		p.next = last.next
	}
	if n := last.next; n != nil {
		n.prev = first.prev
	}
	first.prev = nil
	last.next = nil
}
