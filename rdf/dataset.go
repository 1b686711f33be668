package rdf

import "sort"

// Dataset is a default graph plus a set of named graphs.
type Dataset struct {
	Default *Graph
	named   map[string]*Graph
	order   []string
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{Default: NewGraph(), named: make(map[string]*Graph)}
}

// AddQuad inserts q into the graph it names.
func (d *Dataset) AddQuad(q Quad) {
	if q.G == nil {
		d.Default.Add(q.S, q.P, q.O)
		return
	}
	d.Graph(q.G.String()).Add(q.S, q.P, q.O)
}

// Graph returns the named graph, creating it when absent.
func (d *Dataset) Graph(name string) *Graph {
	if g, ok := d.named[name]; ok {
		return g
	}
	g := NewGraph()
	d.named[name] = g
	d.order = append(d.order, name)
	return g
}

// Lookup returns the named graph if present.
func (d *Dataset) Lookup(name string) (*Graph, bool) {
	g, ok := d.named[name]
	return g, ok
}

// Names returns the graph names in sorted order.
func (d *Dataset) Names() []string {
	names := append([]string(nil), d.order...)
	sort.Strings(names)
	return names
}

// Union returns a graph holding the default graph and every named graph.
func (d *Dataset) Union() *Graph {
	g := d.Default.Clone()
	for _, name := range d.order {
		g.AddGraph(d.named[name])
	}
	return g
}

// Quads returns every statement of the dataset, default graph first.
func (d *Dataset) Quads() []Quad {
	var out []Quad
	for _, t := range d.Default.Triples() {
		out = append(out, t.ToQuad())
	}
	for _, name := range d.order {
		graph := graphNameTerm(name)
		for _, t := range d.named[name].Triples() {
			out = append(out, t.ToQuadInGraph(graph))
		}
	}
	return out
}

// Len returns the number of statements across all graphs.
func (d *Dataset) Len() int {
	n := d.Default.Len()
	for _, g := range d.named {
		n += g.Len()
	}
	return n
}

func graphNameTerm(name string) Term {
	if len(name) > 2 && name[:2] == "_:" {
		return BlankNode{ID: name[2:]}
	}
	return IRI{Value: name}
}
