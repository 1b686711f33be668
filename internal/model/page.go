package model

import (
	"strconv"
	"time"

	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/internal/waperr"
	"github.com/geoknoesis/wap-go/rdf"
)

// PageSpec describes the page to build.
type PageSpec struct {
	ContainerIRI string
	Number       int
	Size         int
	Total        int
	IRIsOnly     bool
	// Embedded pages are rendered inside their container and omit the
	// collection description.
	Embedded bool
	Modified time.Time
	Label    string
}

// Page is an as:OrderedCollectionPage listing a window of a container's
// annotations, either as IRIs or as full descriptions.
type Page struct {
	graph *rdf.Graph
	iri   rdf.IRI
	spec  PageSpec
	items *rdf.List
}

// CollectionIRI returns the IRI under which a container is served as a
// collection.
func CollectionIRI(containerIRI string, irisOnly bool) string {
	return containerIRI + "?iris=" + irisFlag(irisOnly)
}

// PageIRI returns the IRI of page number p.
func PageIRI(containerIRI string, irisOnly bool, p int) string {
	return CollectionIRI(containerIRI, irisOnly) + "&page=" + strconv.Itoa(p)
}

func irisFlag(irisOnly bool) string {
	if irisOnly {
		return "1"
	}
	return "0"
}

// PageCount returns the number of pages needed for total items.
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// PageBounds returns the 1-based positions of the first and last item of
// page p. A page starting past the last item does not exist.
func PageBounds(total, size, p int) (first, last int, err error) {
	if size <= 0 || p < 0 {
		return 0, 0, waperr.New(waperr.InvalidRequest, "Invalid page %d of size %d", p, size)
	}
	first = p*size + 1
	if first > total {
		return 0, 0, waperr.New(waperr.NotExistent, "The page with the given number does not exist")
	}
	last = first + size - 1
	if last > total {
		last = total
	}
	return first, last, nil
}

// NewPage builds the page skeleton: type, links and an open as:items list.
// Items are added with AddAnnotationIRI or AddAnnotation and the page must
// be closed before rendering.
func NewPage(spec PageSpec) (*Page, error) {
	if _, _, err := PageBounds(spec.Total, spec.Size, spec.Number); err != nil {
		if waperr.Is(err, waperr.NotExistent) {
			return nil, waperr.New(waperr.NotExistent,
				"The page with the given number does not exist : %d in container %s", spec.Number, spec.ContainerIRI)
		}
		return nil, err
	}
	g := rdf.NewGraph()
	p := &Page{
		graph: g,
		iri:   rdf.NewIRI(PageIRI(spec.ContainerIRI, spec.IRIsOnly, spec.Number)),
		spec:  spec,
	}
	count := PageCount(spec.Total, spec.Size)

	g.Add(p.iri, vocab.Type, vocab.OrderedCollectionPage)
	if !spec.Embedded {
		collection := rdf.NewIRI(CollectionIRI(spec.ContainerIRI, spec.IRIsOnly))
		g.Add(p.iri, vocab.PartOf, collection)
		g.Add(collection, vocab.TotalItems, NonNegativeInteger(spec.Total))
		if !spec.Modified.IsZero() {
			g.Add(collection, vocab.Modified, DateTimeLiteral(spec.Modified))
		}
		g.Add(collection, vocab.First, rdf.NewIRI(PageIRI(spec.ContainerIRI, spec.IRIsOnly, 0)))
		g.Add(collection, vocab.Last, rdf.NewIRI(PageIRI(spec.ContainerIRI, spec.IRIsOnly, count-1)))
		if spec.Label != "" {
			g.Add(collection, vocab.Label, rdf.NewLiteral(spec.Label))
		}
	}
	g.Add(p.iri, vocab.StartIndex, NonNegativeInteger(spec.Number*spec.Size))
	if spec.Number < count-1 {
		g.Add(p.iri, vocab.Next, rdf.NewIRI(PageIRI(spec.ContainerIRI, spec.IRIsOnly, spec.Number+1)))
	}
	if spec.Number > 0 {
		g.Add(p.iri, vocab.Prev, rdf.NewIRI(PageIRI(spec.ContainerIRI, spec.IRIsOnly, spec.Number-1)))
	}
	p.items = rdf.NewList(g, p.iri, vocab.Items)
	return p, nil
}

// Kind implements the formatter contract.
func (p *Page) Kind() Kind { return KindPage }

// IRI returns the page IRI.
func (p *Page) IRI() string { return p.iri.Value }

// Number returns the 0-based page number.
func (p *Page) Number() int { return p.spec.Number }

// ContainerIRI returns the IRI of the paged container.
func (p *Page) ContainerIRI() string { return p.spec.ContainerIRI }

// Graph returns the page graph.
func (p *Page) Graph() *rdf.Graph { return p.graph }

// Len returns the number of items added so far.
func (p *Page) Len() int { return p.items.Len() }

// AddAnnotationIRI appends an item by reference. Only valid on IRI pages.
func (p *Page) AddAnnotationIRI(iri string) error {
	if !p.spec.IRIsOnly {
		return waperr.New(waperr.InternalServerError, "page %s embeds descriptions, not IRIs", p.IRI())
	}
	return p.appendItem(rdf.NewIRI(iri))
}

// AddAnnotation appends an item and merges its description. Only valid on
// description pages.
func (p *Page) AddAnnotation(a *Annotation) error {
	if p.spec.IRIsOnly {
		return waperr.New(waperr.InternalServerError, "page %s embeds IRIs, not descriptions", p.IRI())
	}
	p.graph.Merge(a.Graph())
	return p.appendItem(a.IRI())
}

func (p *Page) appendItem(item rdf.Term) error {
	if err := p.items.Append(item); err != nil {
		return waperr.Wrap(waperr.InternalServerError, err, "cannot add to page %s", p.IRI())
	}
	return nil
}

// Close terminates the item list. No items can be added afterwards.
func (p *Page) Close() { p.items.Close() }

// Closed reports whether the page is ready to be rendered.
func (p *Page) Closed() bool { return p.items.Closed() }
