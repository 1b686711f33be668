package rdf

import (
	"errors"
)

var (
	// ErrListClosed is returned when appending to a terminated list.
	ErrListClosed = errors.New("rdf: list is closed")
	// ErrMalformedList is returned when a stored list is cyclic or lacks rdf:first.
	ErrMalformedList = errors.New("rdf: malformed list")
)

// List is a singly linked rdf:first/rdf:rest list stored in a Graph.
//
// The list hangs off a link triple (owner, pred, cell) whose object is the
// first cell, or rdf:nil once an empty list is closed. head is the arena
// index of the link triple and tail the index of the last cell's rdf:first
// triple. Both are -1 while the list is empty.
type List struct {
	g      *Graph
	owner  Term
	pred   IRI
	head   int
	tail   int
	cells  []Term
	closed bool
}

// NewList starts an empty, open list anchored at (owner, pred).
func NewList(g *Graph, owner Term, pred IRI) *List {
	return &List{g: g, owner: owner, pred: pred, head: -1, tail: -1}
}

// OpenList loads the list anchored at (owner, pred) and reopens it for
// appending by removing its rdf:nil terminator. A missing link yields an
// empty list.
func OpenList(g *Graph, owner Term, pred IRI) (*List, error) {
	l := NewList(g, owner, pred)
	cells, terminated, err := walkList(g, owner, pred)
	if err != nil {
		return nil, err
	}
	l.cells = cells
	if terminated {
		if len(cells) == 0 {
			g.Remove(owner, pred, RDFNil)
		} else {
			g.Remove(cells[len(cells)-1], RDFRest, RDFNil)
		}
	}
	l.reindex()
	return l, nil
}

// ReadList returns the items of the list anchored at (owner, pred) without
// modifying the graph.
func ReadList(g *Graph, owner Term, pred IRI) ([]Term, error) {
	cells, _, err := walkList(g, owner, pred)
	if err != nil {
		return nil, err
	}
	items := make([]Term, 0, len(cells))
	for _, cell := range cells {
		item, _ := g.Object(cell, RDFFirst)
		items = append(items, item)
	}
	return items, nil
}

// Len returns the number of items.
func (l *List) Len() int { return len(l.cells) }

// Closed reports whether the list has been terminated.
func (l *List) Closed() bool { return l.closed }

// Head returns the arena index of the link triple, or -1.
func (l *List) Head() int { return l.head }

// Tail returns the arena index of the last rdf:first triple, or -1.
func (l *List) Tail() int { return l.tail }

// Append adds item at the end of the list.
func (l *List) Append(item Term) error {
	if l.closed {
		return ErrListClosed
	}
	cell := l.g.NewBlankNode()
	if len(l.cells) == 0 {
		l.head = l.g.Add(l.owner, l.pred, cell)
	} else {
		l.g.Add(l.cells[len(l.cells)-1], RDFRest, cell)
	}
	l.tail = l.g.Add(cell, RDFFirst, item)
	l.cells = append(l.cells, cell)
	return nil
}

// Close terminates the list with rdf:nil. Closing twice is a no-op.
func (l *List) Close() {
	if l.closed {
		return
	}
	if len(l.cells) == 0 {
		l.head = l.g.Add(l.owner, l.pred, RDFNil)
	} else {
		l.g.Add(l.cells[len(l.cells)-1], RDFRest, RDFNil)
	}
	l.closed = true
}

// Item returns the item at position i (0-based).
func (l *List) Item(i int) (Term, bool) {
	if i < 0 || i >= len(l.cells) {
		return nil, false
	}
	return l.g.Object(l.cells[i], RDFFirst)
}

// Items returns all items in order.
func (l *List) Items() []Term {
	out := make([]Term, 0, len(l.cells))
	for _, cell := range l.cells {
		if item, ok := l.g.Object(cell, RDFFirst); ok {
			out = append(out, item)
		}
	}
	return out
}

// IndexOf returns the position of item, or -1.
func (l *List) IndexOf(item Term) int {
	for i, cell := range l.cells {
		if l.g.Contains(cell, RDFFirst, item) {
			return i
		}
	}
	return -1
}

// RemoveItem unlinks the first cell holding item and reports whether one was found.
func (l *List) RemoveItem(item Term) bool {
	i := l.IndexOf(item)
	if i < 0 {
		return false
	}
	cell := l.cells[i]
	prevS, prevP := l.owner, l.pred
	if i > 0 {
		prevS, prevP = l.cells[i-1], RDFRest
	}
	next, hasNext := l.g.Object(cell, RDFRest)
	l.g.Remove(prevS, prevP, cell)
	l.g.RemoveMatching(cell, IRI{}, nil)
	if hasNext {
		l.g.Add(prevS, prevP, next)
	}
	l.cells = append(l.cells[:i:i], l.cells[i+1:]...)
	l.reindex()
	return true
}

// Clear removes every cell and the link triple. The list is left open and empty.
func (l *List) Clear() {
	for _, cell := range l.cells {
		l.g.RemoveMatching(cell, IRI{}, nil)
	}
	l.g.RemoveMatching(l.owner, l.pred, nil)
	l.cells = nil
	l.closed = false
	l.head, l.tail = -1, -1
}

func (l *List) reindex() {
	l.head, l.tail = -1, -1
	if len(l.cells) == 0 {
		if l.closed {
			l.head = l.g.indexOf(l.owner, l.pred, RDFNil)
		}
		return
	}
	l.head = l.g.indexOf(l.owner, l.pred, l.cells[0])
	last := l.cells[len(l.cells)-1]
	if item, ok := l.g.Object(last, RDFFirst); ok {
		l.tail = l.g.indexOf(last, RDFFirst, item)
	}
}

// walkList follows the chain from (owner, pred) and returns its cells and
// whether it ended in rdf:nil.
func walkList(g *Graph, owner Term, pred IRI) ([]Term, bool, error) {
	cur, ok := g.Object(owner, pred)
	if !ok {
		return nil, false, nil
	}
	var cells []Term
	visited := make(map[string]struct{})
	for {
		if TermEqual(cur, RDFNil) {
			return cells, true, nil
		}
		if !IsResource(cur) {
			return nil, false, ErrMalformedList
		}
		key := termKey(cur)
		if _, seen := visited[key]; seen {
			return nil, false, ErrMalformedList
		}
		visited[key] = struct{}{}
		if _, ok := g.Object(cur, RDFFirst); !ok {
			return nil, false, ErrMalformedList
		}
		cells = append(cells, cur)
		next, ok := g.Object(cur, RDFRest)
		if !ok {
			return cells, false, nil
		}
		cur = next
	}
}
