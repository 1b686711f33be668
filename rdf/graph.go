package rdf

import (
	"fmt"
	"strconv"
)

// Graph is a mutable set of triples stored in an arena.
//
// Triples are appended to the arena and addressed by index. Removal leaves a
// tombstone so indices held by a List stay stable. Subject, predicate and
// object indexes map a term key to arena indices for pattern lookups.
type Graph struct {
	arena       []Triple
	live        int
	bySubject   map[string][]int
	byPredicate map[string][]int
	byObject    map[string][]int
	blankSeq    int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		bySubject:   make(map[string][]int),
		byPredicate: make(map[string][]int),
		byObject:    make(map[string][]int),
	}
}

// Len returns the number of live triples.
func (g *Graph) Len() int { return g.live }

// Add inserts a triple and returns its arena index. Adding a triple that is
// already present returns the existing index.
func (g *Graph) Add(s Term, p IRI, o Term) int {
	if idx := g.indexOf(s, p, o); idx >= 0 {
		return idx
	}
	idx := len(g.arena)
	g.arena = append(g.arena, Triple{S: s, P: p, O: o})
	g.live++
	g.bySubject[termKey(s)] = append(g.bySubject[termKey(s)], idx)
	g.byPredicate[termKey(p)] = append(g.byPredicate[termKey(p)], idx)
	g.byObject[termKey(o)] = append(g.byObject[termKey(o)], idx)
	return idx
}

// AddTriple inserts t.
func (g *Graph) AddTriple(t Triple) int { return g.Add(t.S, t.P, t.O) }

// At returns the triple stored at idx and whether it is still live.
func (g *Graph) At(idx int) (Triple, bool) {
	if idx < 0 || idx >= len(g.arena) || g.arena[idx].S == nil {
		return Triple{}, false
	}
	return g.arena[idx], true
}

// Contains reports whether the triple is in the graph.
func (g *Graph) Contains(s Term, p IRI, o Term) bool {
	return g.indexOf(s, p, o) >= 0
}

// Remove deletes a triple. It reports whether the triple was present.
func (g *Graph) Remove(s Term, p IRI, o Term) bool {
	idx := g.indexOf(s, p, o)
	if idx < 0 {
		return false
	}
	g.removeAt(idx)
	return true
}

// RemoveMatching deletes every triple matching the pattern and returns the count.
// Nil terms and the zero IRI act as wildcards.
func (g *Graph) RemoveMatching(s Term, p IRI, o Term) int {
	idxs := g.match(s, p, o)
	for _, idx := range idxs {
		g.removeAt(idx)
	}
	return len(idxs)
}

// Find returns the triples matching the pattern in insertion order.
// Nil terms and the zero IRI act as wildcards.
func (g *Graph) Find(s Term, p IRI, o Term) []Triple {
	idxs := g.match(s, p, o)
	out := make([]Triple, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, g.arena[idx])
	}
	return out
}

// Object returns the first object of (s, p, *), if any.
func (g *Graph) Object(s Term, p IRI) (Term, bool) {
	idxs := g.match(s, p, nil)
	if len(idxs) == 0 {
		return nil, false
	}
	return g.arena[idxs[0]].O, true
}

// Objects returns every object of (s, p, *).
func (g *Graph) Objects(s Term, p IRI) []Term {
	idxs := g.match(s, p, nil)
	out := make([]Term, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, g.arena[idx].O)
	}
	return out
}

// Subjects returns the distinct subjects of (*, p, o) in insertion order.
func (g *Graph) Subjects(p IRI, o Term) []Term {
	seen := make(map[string]struct{})
	var out []Term
	for _, idx := range g.match(nil, p, o) {
		s := g.arena[idx].S
		key := termKey(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SubjectsOfType returns the distinct subjects typed with class.
func (g *Graph) SubjectsOfType(class IRI) []Term {
	return g.Subjects(RDFType, class)
}

// Mentions reports whether term appears as subject or object.
func (g *Graph) Mentions(term Term) bool {
	key := termKey(term)
	return len(g.bySubject[key]) > 0 || len(g.byObject[key]) > 0
}

// Triples returns all live triples in insertion order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, 0, g.live)
	for _, t := range g.arena {
		if t.S != nil {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a compacted deep copy of g.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	for _, t := range g.arena {
		if t.S != nil {
			c.Add(t.S, t.P, t.O)
		}
	}
	c.blankSeq = g.blankSeq
	return c
}

// AddGraph copies every triple of other into g, keeping blank node labels.
func (g *Graph) AddGraph(other *Graph) {
	for _, t := range other.Triples() {
		g.Add(t.S, t.P, t.O)
	}
}

// Merge copies every triple of other into g. Blank nodes of other are
// relabelled to fresh labels so they cannot collide with nodes of g.
func (g *Graph) Merge(other *Graph) {
	relabel := make(map[string]BlankNode)
	mapTerm := func(t Term) Term {
		b, ok := t.(BlankNode)
		if !ok {
			return t
		}
		if fresh, ok := relabel[b.ID]; ok {
			return fresh
		}
		fresh := g.NewBlankNode()
		relabel[b.ID] = fresh
		return fresh
	}
	for _, t := range other.Triples() {
		g.Add(mapTerm(t.S), t.P, mapTerm(t.O))
	}
}

// NewBlankNode returns a blank node whose label is not used in g.
func (g *Graph) NewBlankNode() BlankNode {
	for {
		g.blankSeq++
		b := BlankNode{ID: "n" + strconv.Itoa(g.blankSeq)}
		if !g.Mentions(b) {
			return b
		}
	}
}

// Rename replaces every occurrence of from in subject or object position by
// to and returns the number of rewritten triples. Predicates are untouched.
func (g *Graph) Rename(from, to Term) int {
	if TermEqual(from, to) {
		return 0
	}
	key := termKey(from)
	var idxs []int
	seen := make(map[int]struct{})
	for _, list := range [][]int{g.bySubject[key], g.byObject[key]} {
		for _, idx := range list {
			if _, ok := seen[idx]; ok {
				continue
			}
			seen[idx] = struct{}{}
			idxs = append(idxs, idx)
		}
	}
	batch := make([]Triple, 0, len(idxs))
	for _, idx := range idxs {
		t := g.arena[idx]
		if TermEqual(t.S, from) {
			t.S = to
		}
		if TermEqual(t.O, from) {
			t.O = to
		}
		batch = append(batch, t)
		g.removeAt(idx)
	}
	for _, t := range batch {
		g.Add(t.S, t.P, t.O)
	}
	return len(batch)
}

// SubGraph collects every triple reachable from root by walking from
// subjects to IRI and blank node objects, breadth first.
func (g *Graph) SubGraph(root Term) *Graph {
	sub := NewGraph()
	queue := []Term{root}
	visited := map[string]struct{}{termKey(root): {}}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, idx := range g.match(node, IRI{}, nil) {
			t := g.arena[idx]
			sub.Add(t.S, t.P, t.O)
			if !IsResource(t.O) {
				continue
			}
			key := termKey(t.O)
			if _, ok := visited[key]; ok {
				continue
			}
			visited[key] = struct{}{}
			queue = append(queue, t.O)
		}
	}
	return sub
}

// String renders the graph as N-Triples, mainly for debugging.
func (g *Graph) String() string {
	s, err := EncodeNTriples(g)
	if err != nil {
		return fmt.Sprintf("graph(%d triples): %v", g.live, err)
	}
	return s
}

func (g *Graph) indexOf(s Term, p IRI, o Term) int {
	if s == nil || o == nil || p.Value == "" {
		return -1
	}
	for _, idx := range g.bySubject[termKey(s)] {
		t := g.arena[idx]
		if t.P == p && TermEqual(t.O, o) {
			return idx
		}
	}
	return -1
}

// match returns live arena indices matching the pattern using the narrowest index.
func (g *Graph) match(s Term, p IRI, o Term) []int {
	var candidates []int
	switch {
	case s != nil:
		candidates = g.bySubject[termKey(s)]
	case o != nil:
		candidates = g.byObject[termKey(o)]
	case p.Value != "":
		candidates = g.byPredicate[termKey(p)]
	default:
		candidates = make([]int, 0, g.live)
		for idx, t := range g.arena {
			if t.S != nil {
				candidates = append(candidates, idx)
			}
		}
	}
	out := make([]int, 0, len(candidates))
	for _, idx := range candidates {
		t := g.arena[idx]
		if t.S == nil {
			continue
		}
		if s != nil && !TermEqual(t.S, s) {
			continue
		}
		if p.Value != "" && t.P != p {
			continue
		}
		if o != nil && !TermEqual(t.O, o) {
			continue
		}
		out = append(out, idx)
	}
	return out
}

func (g *Graph) removeAt(idx int) {
	t := g.arena[idx]
	if t.S == nil {
		return
	}
	dropIndex(g.bySubject, termKey(t.S), idx)
	dropIndex(g.byPredicate, termKey(t.P), idx)
	dropIndex(g.byObject, termKey(t.O), idx)
	g.arena[idx] = Triple{}
	g.live--
}

func dropIndex(index map[string][]int, key string, idx int) {
	list := index[key]
	for i, v := range list {
		if v == idx {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(index, key)
		return
	}
	index[key] = list
}
