package rdf

import (
	"errors"
	"testing"
)

func TestListAppendAndClose(t *testing.T) {
	g := NewGraph()
	owner := NewIRI("http://example.org/page")
	items := NewIRI("http://example.org/items")
	l := NewList(g, owner, items)
	if l.Head() != -1 || l.Tail() != -1 {
		t.Fatal("empty list should have no head or tail")
	}
	for _, v := range []string{"a", "b", "c"} {
		if err := l.Append(NewIRI("http://example.org/" + v)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	head, ok := g.At(l.Head())
	if !ok || head.S != owner || head.P != items {
		t.Fatalf("head does not point at link triple: %+v", head)
	}
	tail, ok := g.At(l.Tail())
	if !ok || tail.P != RDFFirst || tail.O != NewIRI("http://example.org/c") {
		t.Fatalf("tail does not point at last item: %+v", tail)
	}
	l.Close()
	if !l.Closed() {
		t.Fatal("expected closed list")
	}
	if err := l.Append(NewIRI("http://example.org/d")); !errors.Is(err, ErrListClosed) {
		t.Fatalf("expected ErrListClosed, got %v", err)
	}
	got, err := ReadList(g, owner, items)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 || got[2] != NewIRI("http://example.org/c") {
		t.Fatalf("unexpected items %v", got)
	}
	if !g.Contains(g.Find(nil, RDFFirst, NewIRI("http://example.org/c"))[0].S, RDFRest, RDFNil) {
		t.Fatal("last cell not terminated with rdf:nil")
	}
}

func TestListCloseEmpty(t *testing.T) {
	g := NewGraph()
	owner := NewIRI("http://example.org/page")
	l := NewList(g, owner, RDFRest)
	l.Close()
	if !g.Contains(owner, RDFRest, RDFNil) {
		t.Fatal("empty closed list must link to rdf:nil")
	}
	items, err := ReadList(g, owner, RDFRest)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty list, got %v %v", items, err)
	}
}

func TestOpenListReopensAndRemoves(t *testing.T) {
	g := NewGraph()
	seq := NewIRI("http://example.org/c/#annotations")
	l := NewList(g, seq, RDFRest)
	a, b, c := NewIRI("http://example.org/a"), NewIRI("http://example.org/b"), NewIRI("http://example.org/c")
	_ = l.Append(a)
	_ = l.Append(b)
	l.Close()

	reopened, err := OpenList(g, seq, RDFRest)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if reopened.Len() != 2 || reopened.Closed() {
		t.Fatalf("unexpected reopened state len=%d closed=%v", reopened.Len(), reopened.Closed())
	}
	if err := reopened.Append(c); err != nil {
		t.Fatalf("append: %v", err)
	}
	if !reopened.RemoveItem(a) {
		t.Fatal("expected a to be removed")
	}
	if reopened.RemoveItem(a) {
		t.Fatal("a removed twice")
	}
	reopened.Close()

	items, err := ReadList(g, seq, RDFRest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 2 || items[0] != b || items[1] != c {
		t.Fatalf("unexpected order %v", items)
	}
	head, ok := g.At(reopened.Head())
	if !ok || head.S != seq {
		t.Fatal("head not relinked after removing first item")
	}
}

func TestListClear(t *testing.T) {
	g := NewGraph()
	seq := NewIRI("http://example.org/c/#annotations")
	l := NewList(g, seq, RDFRest)
	_ = l.Append(NewIRI("http://example.org/a"))
	l.Close()
	l.Clear()
	l.Close()
	if g.Len() != 1 || !g.Contains(seq, RDFRest, RDFNil) {
		t.Fatalf("expected only the nil link to remain:\n%s", g)
	}
}

func TestReadListRejectsCycles(t *testing.T) {
	g := NewGraph()
	owner := NewIRI("http://example.org/o")
	cell := BlankNode{ID: "c"}
	g.Add(owner, RDFRest, cell)
	g.Add(cell, RDFFirst, NewLiteral("x"))
	g.Add(cell, RDFRest, cell)
	if _, err := ReadList(g, owner, RDFRest); !errors.Is(err, ErrMalformedList) {
		t.Fatalf("expected ErrMalformedList, got %v", err)
	}
}
