package model

import (
	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/internal/waperr"
	"github.com/geoknoesis/wap-go/rdf"
)

// Annotation is the view of a node typed oa:Annotation.
type Annotation struct {
	Object
}

// NewAnnotation wraps g. The first subject typed oa:Annotation becomes the
// annotation node.
func NewAnnotation(g *rdf.Graph) (*Annotation, error) {
	o := loadObject(g, vocab.Annotation)
	if o.iri == nil {
		return nil, waperr.New(waperr.NotAnAnnotation, "")
	}
	return &Annotation{Object: o}, nil
}

// Kind implements the formatter contract.
func (a *Annotation) Kind() Kind { return KindAnnotation }

// HasTarget reports whether the annotation names at least one target.
func (a *Annotation) HasTarget() bool { return a.HasProperty(vocab.HasTarget) }

// ContainerIRI returns the IRI of the container the annotation lives in.
func (a *Annotation) ContainerIRI() string { return ParentIRI(a.IRIString()) }

// AnnotationList holds the annotations of one request body.
type AnnotationList struct {
	Annotations  []*Annotation
	ContainerIRI string
	ContainerTag string
}

// ParseAnnotations splits ds into one annotation per subject typed
// oa:Annotation. Each annotation receives the triples reachable from its node.
func ParseAnnotations(ds *rdf.Dataset) (*AnnotationList, error) {
	union := ds.Union()
	subjects := union.SubjectsOfType(vocab.Annotation)
	if len(subjects) == 0 {
		return nil, waperr.New(waperr.NotAnAnnotation, "")
	}
	list := &AnnotationList{}
	for _, s := range subjects {
		anno, err := NewAnnotation(union.SubGraph(s))
		if err != nil {
			return nil, err
		}
		list.Annotations = append(list.Annotations, anno)
	}
	return list, nil
}

// Kind implements the formatter contract.
func (l *AnnotationList) Kind() Kind { return KindAnnotationList }

// Len returns the number of annotations.
func (l *AnnotationList) Len() int { return len(l.Annotations) }

// IRI returns the single annotation's IRI, or the container IRI for several.
func (l *AnnotationList) IRI() string {
	if len(l.Annotations) == 1 {
		return l.Annotations[0].IRIString()
	}
	return l.ContainerIRI
}

// ETag returns the single annotation's ETag, or the container ETag for several.
func (l *AnnotationList) ETag() string {
	if len(l.Annotations) == 1 {
		return l.Annotations[0].ETag()
	}
	return l.ContainerTag
}

// Graph returns the union of all annotation graphs.
func (l *AnnotationList) Graph() *rdf.Graph {
	g := rdf.NewGraph()
	for _, a := range l.Annotations {
		g.AddGraph(a.Graph())
	}
	return g
}
