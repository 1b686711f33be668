// Package model wraps the graphs of the annotation store into typed views.
//
// Annotations, containers and pages are regions of an RDF graph. Each view
// owns a node (its IRI), an ETag and the triples describing it. The ETag is
// kept out of the graph while the view is in memory and written back by
// ToGraph when the view is persisted.
package model

import (
	"strings"
	"time"

	"github.com/geoknoesis/wap-go/internal/etag"
	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/rdf"
)

// Kind selects the frame and default profiles used to render a view.
type Kind string

// View kinds.
const (
	KindAnnotation     Kind = "ANNOTATION"
	KindContainer      Kind = "CONTAINER"
	KindPage           Kind = "PAGE"
	KindAnnotationList Kind = "ANNOTATION_LIST"
)

// Object is the part shared by annotations and containers.
type Object struct {
	graph *rdf.Graph
	iri   rdf.Term
	etag  string
}

// loadObject locates the first subject typed class in g and moves its
// wap:etag triple out of the graph. The node is nil when no subject matches.
func loadObject(g *rdf.Graph, class rdf.IRI) Object {
	o := Object{graph: g}
	subjects := g.SubjectsOfType(class)
	if len(subjects) == 0 {
		return o
	}
	o.iri = subjects[0]
	if tag, ok := g.Object(o.iri, vocab.Etag); ok {
		if lit, ok := tag.(rdf.Literal); ok {
			o.etag = lit.Lexical
		}
		g.RemoveMatching(o.iri, vocab.Etag, nil)
	}
	return o
}

// IRI returns the node of the object, an IRI or a blank node.
func (o *Object) IRI() rdf.Term { return o.iri }

// IRIString returns the IRI value, or the blank node label with its _: prefix.
func (o *Object) IRIString() string { return termValue(o.iri) }

// ETag returns the unquoted ETag, empty until the object was persisted.
func (o *Object) ETag() string { return o.etag }

// QuotedETag returns the ETag in header form.
func (o *Object) QuotedETag() string { return etag.Quote(o.etag) }

// SetETag replaces the ETag.
func (o *Object) SetETag(tag string) { o.etag = tag }

// Graph returns the in-memory graph without the ETag triple.
func (o *Object) Graph() *rdf.Graph { return o.graph }

// ToGraph returns a copy of the graph with the ETag triple restored.
func (o *Object) ToGraph() *rdf.Graph {
	g := o.graph.Clone()
	if o.etag != "" {
		g.Add(o.iri, vocab.Etag, rdf.NewLiteral(o.etag))
	}
	return g
}

// SetIRI renames the object's node in subject and object position. With
// copyVia the previous IRI is kept as oa:via unless it was a blank node.
func (o *Object) SetIRI(iri string, copyVia bool) {
	o.rename(rdf.NewIRI(iri), copyVia)
}

func (o *Object) rename(to rdf.Term, copyVia bool) {
	if o.iri == nil || rdf.TermEqual(o.iri, to) {
		return
	}
	old := o.iri
	o.graph.Rename(old, to)
	o.iri = to
	if _, blank := old.(rdf.BlankNode); copyVia && !blank {
		o.graph.Add(to, vocab.Via, old)
	}
}

// Value returns the first value of pred on the object.
func (o *Object) Value(pred rdf.IRI) (string, bool) {
	v, ok := o.graph.Object(o.iri, pred)
	if !ok {
		return "", false
	}
	return termValue(v), true
}

// Values returns every value of pred on the object.
func (o *Object) Values(pred rdf.IRI) []string {
	terms := o.graph.Objects(o.iri, pred)
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, termValue(t))
	}
	return out
}

// HasProperty reports whether pred has at least one value.
func (o *Object) HasProperty(pred rdf.IRI) bool {
	_, ok := o.graph.Object(o.iri, pred)
	return ok
}

// SameValue reports whether both objects carry the same first value of pred,
// or both lack it.
func (o *Object) SameValue(other *Object, pred rdf.IRI) bool {
	a, okA := o.Value(pred)
	b, okB := other.Value(pred)
	return okA == okB && a == b
}

// SameValues reports whether both objects carry the same set of pred values.
func (o *Object) SameValues(other *Object, pred rdf.IRI) bool {
	a, b := o.Values(pred), other.Values(pred)
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(b))
	for _, v := range b {
		set[v]++
	}
	for _, v := range a {
		if set[v] == 0 {
			return false
		}
		set[v]--
	}
	return true
}

// IsDeleted reports the soft-delete flag. A missing flag and an explicit
// false both mean not deleted.
func (o *Object) IsDeleted() bool {
	return IsDeletedIn(o.graph, o.iri)
}

// MarkDeleted sets the soft-delete flag.
func (o *Object) MarkDeleted() {
	MarkDeletedIn(o.graph, o.iri)
}

// SetCreated adds dcterms:created unless the object already has one.
func (o *Object) SetCreated(now time.Time) {
	if o.HasProperty(vocab.Created) {
		return
	}
	o.graph.Add(o.iri, vocab.Created, DateTimeLiteral(now))
}

// Touch assigns a fresh ETag and replaces dcterms:modified. It returns the
// new ETag.
func (o *Object) Touch(now time.Time) string {
	o.etag = etag.New()
	TouchGraph(o.graph, o.iri, "", now)
	return o.etag
}

// IsDeletedIn reads the soft-delete flag of node in g.
func IsDeletedIn(g *rdf.Graph, node rdf.Term) bool {
	v, ok := g.Object(node, vocab.Deleted)
	if !ok {
		return false
	}
	lit, ok := v.(rdf.Literal)
	if !ok {
		return true
	}
	return lit.Lexical != "false" && lit.Lexical != "0"
}

// MarkDeletedIn sets the soft-delete flag of node in g.
func MarkDeletedIn(g *rdf.Graph, node rdf.Term) {
	g.RemoveMatching(node, vocab.Deleted, nil)
	g.Add(node, vocab.Deleted, rdf.NewTypedLiteral("true", vocab.Boolean.Value))
}

// TouchGraph replaces the modified timestamp of node and, when tag is not
// empty, its stored ETag.
func TouchGraph(g *rdf.Graph, node rdf.Term, tag string, now time.Time) {
	if tag != "" {
		g.RemoveMatching(node, vocab.Etag, nil)
		g.Add(node, vocab.Etag, rdf.NewLiteral(tag))
	}
	g.RemoveMatching(node, vocab.Modified, nil)
	g.Add(node, vocab.Modified, DateTimeLiteral(now))
}

// StoredETag reads the ETag persisted in g for node.
func StoredETag(g *rdf.Graph, node rdf.Term) string {
	v, ok := g.Object(node, vocab.Etag)
	if !ok {
		return ""
	}
	if lit, ok := v.(rdf.Literal); ok {
		return lit.Lexical
	}
	return ""
}

// DateTimeLiteral formats t as an xsd:dateTime in UTC with second precision.
func DateTimeLiteral(t time.Time) rdf.Literal {
	return rdf.NewTypedLiteral(t.UTC().Format("2006-01-02T15:04:05Z"), vocab.DateTime.Value)
}

// ParentIRI returns the IRI of the container holding iri: everything up to
// and including the last slash before the final character.
func ParentIRI(iri string) string {
	if len(iri) < 2 {
		return ""
	}
	idx := strings.LastIndex(iri[:len(iri)-1], "/")
	return iri[:idx+1]
}

func termValue(t rdf.Term) string {
	switch v := t.(type) {
	case nil:
		return ""
	case rdf.IRI:
		return v.Value
	case rdf.Literal:
		return v.Lexical
	default:
		return t.String()
	}
}
