package model

import (
	"errors"
	"strconv"

	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/internal/waperr"
	"github.com/geoknoesis/wap-go/rdf"
)

// Container is the view of a node typed ldp:BasicContainer and
// as:OrderedCollection.
//
// A container owns two membership sequences stored next to it: sub
// containers under <iri>#containers and annotations under <iri>#annotations.
// Each sequence header is typed rdf:Seq and anchors an rdf.List through
// rdf:rest. Stored sequences are always closed.
type Container struct {
	Object
}

// ContainerSeqIRI returns the header node of the sub container sequence.
func ContainerSeqIRI(containerIRI string) rdf.IRI {
	return rdf.NewIRI(containerIRI + "#containers")
}

// AnnotationSeqIRI returns the header node of the annotation sequence.
func AnnotationSeqIRI(containerIRI string) rdf.IRI {
	return rdf.NewIRI(containerIRI + "#annotations")
}

// NewContainer wraps g. A non-empty newIRI renames the container node,
// keeping the old IRI as oa:via. Missing sequence headers are created.
func NewContainer(g *rdf.Graph, newIRI string) (*Container, error) {
	o := loadObject(g, vocab.BasicContainer)
	if o.iri == nil || len(g.SubjectsOfType(vocab.OrderedCollection)) == 0 {
		return nil, waperr.New(waperr.InvalidContainer,
			"The given data does not represent a valid container: "+
				"a container has to be an ldp:BasicContainer and an as:OrderedCollection")
	}
	c := &Container{Object: o}
	if newIRI != "" {
		c.SetIRI(newIRI, true)
	}
	c.ensureSequences()
	return c, nil
}

// Kind implements the formatter contract.
func (c *Container) Kind() Kind { return KindContainer }

// SetIRI renames the container and both sequence headers in lockstep.
func (c *Container) SetIRI(iri string, copyVia bool) {
	if old, ok := c.iri.(rdf.IRI); ok && old.Value != iri {
		c.graph.Rename(ContainerSeqIRI(old.Value), ContainerSeqIRI(iri))
		c.graph.Rename(AnnotationSeqIRI(old.Value), AnnotationSeqIRI(iri))
	}
	c.Object.SetIRI(iri, copyVia)
	c.ensureSequences()
}

// Label returns the rdfs:label of the container.
func (c *Container) Label() (string, bool) { return c.Value(vocab.Label) }

// CreateDefaultLabel labels the container with its own IRI if it has no label.
func (c *Container) CreateDefaultLabel() {
	if _, ok := c.Label(); ok {
		return
	}
	c.graph.Add(c.iri, vocab.Label, rdf.NewLiteral(c.IRIString()))
}

// SubContainers returns the IRIs of the sub container sequence in order.
func (c *Container) SubContainers() ([]string, error) {
	return c.members(ContainerSeqIRI(c.IRIString()))
}

// AnnotationIRIs returns the IRIs of the annotation sequence in order.
func (c *Container) AnnotationIRIs() ([]string, error) {
	return c.members(AnnotationSeqIRI(c.IRIString()))
}

// AddSubContainer appends iri to the sub container sequence.
func (c *Container) AddSubContainer(iri string) error {
	return c.editSequence(ContainerSeqIRI(c.IRIString()), func(l *rdf.List) error {
		return l.Append(rdf.NewIRI(iri))
	})
}

// AddAnnotation appends iri to the annotation sequence.
func (c *Container) AddAnnotation(iri string) error {
	return c.editSequence(AnnotationSeqIRI(c.IRIString()), func(l *rdf.List) error {
		return l.Append(rdf.NewIRI(iri))
	})
}

// RemoveMember unlinks iri from whichever sequence holds it and reports
// whether it was found.
func (c *Container) RemoveMember(iri string) (bool, error) {
	var removed bool
	for _, seq := range []rdf.IRI{ContainerSeqIRI(c.IRIString()), AnnotationSeqIRI(c.IRIString())} {
		err := c.editSequence(seq, func(l *rdf.List) error {
			if l.RemoveItem(rdf.NewIRI(iri)) {
				removed = true
			}
			return nil
		})
		if err != nil || removed {
			return removed, err
		}
	}
	return false, nil
}

// ClearAnnotations empties the annotation sequence.
func (c *Container) ClearAnnotations() error {
	return c.editSequence(AnnotationSeqIRI(c.IRIString()), func(l *rdf.List) error {
		l.Clear()
		return nil
	})
}

// ensureSequences adds the empty sub container and annotation sequences of
// a container with an IRI when they are missing.
func (c *Container) ensureSequences() {
	iri, ok := c.iri.(rdf.IRI)
	if !ok {
		return
	}
	for _, seq := range []rdf.IRI{ContainerSeqIRI(iri.Value), AnnotationSeqIRI(iri.Value)} {
		c.graph.Add(seq, vocab.Type, vocab.Seq)
		if _, linked := c.graph.Object(seq, rdf.RDFRest); !linked {
			rdf.NewList(c.graph, seq, rdf.RDFRest).Close()
		}
	}
}

func (c *Container) editSequence(seq rdf.IRI, edit func(*rdf.List) error) error {
	l, err := rdf.OpenList(c.graph, seq, rdf.RDFRest)
	if err != nil {
		return sequenceError(seq, err)
	}
	if err := edit(l); err != nil {
		return sequenceError(seq, err)
	}
	l.Close()
	return nil
}

func (c *Container) members(seq rdf.IRI) ([]string, error) {
	items, err := rdf.ReadList(c.graph, seq, rdf.RDFRest)
	if err != nil {
		return nil, sequenceError(seq, err)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, termValue(item))
	}
	return out, nil
}

func sequenceError(seq rdf.IRI, err error) error {
	if errors.Is(err, rdf.ErrMalformedList) {
		return waperr.Wrap(waperr.InternalServerError, err, "sequence %s is corrupt", seq.Value)
	}
	return waperr.Wrap(waperr.InternalServerError, err, "cannot update sequence %s", seq.Value)
}

// OutputContainer is the container view returned to clients. Its node is
// the collection IRI (<iri>?iris=0|1), the stored sequences are replaced by
// as:totalItems, first/last page links and ldp:contains, and the first page
// is embedded unless a minimal container was requested.
type OutputContainer struct {
	Object
	source *Container
	prefs  Preferences
	total  int
}

// NewOutputContainer builds the client view of c. firstPage may be nil for
// empty or minimal containers.
func NewOutputContainer(c *Container, prefs Preferences, pageSize int, firstPage *Page) (*OutputContainer, error) {
	subs, err := c.SubContainers()
	if err != nil {
		return nil, err
	}
	annos, err := c.AnnotationIRIs()
	if err != nil {
		return nil, err
	}

	g := c.Graph().Clone()
	for _, seq := range []rdf.IRI{ContainerSeqIRI(c.IRIString()), AnnotationSeqIRI(c.IRIString())} {
		if l, err := rdf.OpenList(g, seq, rdf.RDFRest); err == nil {
			l.Clear()
		}
		g.RemoveMatching(seq, rdf.IRI{}, nil)
	}

	out := &OutputContainer{
		Object: Object{graph: g, iri: c.IRI(), etag: c.ETag()},
		source: c,
		prefs:  prefs,
		total:  len(annos),
	}
	irisOnly := prefs.IRIsOnly()
	out.Object.SetIRI(CollectionIRI(c.IRIString(), irisOnly), false)

	g.Add(out.iri, vocab.TotalItems, NonNegativeInteger(out.total))
	if out.total > 0 {
		count := PageCount(out.total, pageSize)
		g.Add(out.iri, vocab.First, rdf.NewIRI(PageIRI(c.IRIString(), irisOnly, 0)))
		g.Add(out.iri, vocab.Last, rdf.NewIRI(PageIRI(c.IRIString(), irisOnly, count-1)))
	}
	if !prefs.MinimalContainer {
		for _, sub := range subs {
			g.Add(out.iri, vocab.Contains, rdf.NewIRI(sub))
		}
		if firstPage != nil {
			g.Merge(firstPage.Graph())
		}
	}
	return out, nil
}

// Kind implements the formatter contract.
func (o *OutputContainer) Kind() Kind { return KindContainer }

// ContainerIRI returns the IRI of the stored container.
func (o *OutputContainer) ContainerIRI() string { return o.source.IRIString() }

// TotalItems returns the number of annotations in the container.
func (o *OutputContainer) TotalItems() int { return o.total }

// Preferences returns the preferences the view was built with.
func (o *OutputContainer) Preferences() Preferences { return o.prefs }

// NonNegativeInteger returns n as an xsd:nonNegativeInteger literal.
func NonNegativeInteger(n int) rdf.Literal {
	return rdf.NewTypedLiteral(strconv.Itoa(n), vocab.NonNegativeInteger.Value)
}
