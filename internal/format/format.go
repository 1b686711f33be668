// Package format renders the model views into RDF serializations and
// selects a serialization from the Accept header of a request.
//
// A Formatter is stateful: it is created per request by the Registry,
// configured with the parameters of one Accept part (SetAcceptPart) and then
// renders one object. The Negotiator ranks the formatters of every
// acceptable part by their q value.
package format

import (
	"context"
	"errors"
	"strings"

	"github.com/geoknoesis/wap-go/internal/model"
	"github.com/geoknoesis/wap-go/rdf"
)

// Format names a serialization.
type Format string

// Supported formats. The names are the ones used in the SimpleFormatters
// configuration value.
const (
	JSONLD   Format = "JSON_LD"
	Turtle   Format = "TURTLE"
	RDFXML   Format = "RDF_XML"
	RDFJSON  Format = "RDF_JSON"
	NTriples Format = "NTRIPLES"
	NQuads   Format = "NQUADS"
)

var allFormats = []Format{JSONLD, Turtle, RDFXML, RDFJSON, NTriples, NQuads}

// ParseFormat resolves a format name, ignoring case.
func ParseFormat(name string) (Format, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, f := range allFormats {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// MediaType returns the default media type of f.
func (f Format) MediaType() string {
	switch f {
	case JSONLD:
		return "application/ld+json"
	case Turtle:
		return "text/turtle"
	case RDFXML:
		return "application/rdf+xml"
	case RDFJSON:
		return "application/rdf+json"
	case NTriples:
		return "application/n-triples"
	case NQuads:
		return "application/n-quads"
	}
	return ""
}

// Syntax returns the rdf package codec of f.
func (f Format) Syntax() rdf.Format {
	switch f {
	case JSONLD:
		return rdf.FormatJSONLD
	case Turtle:
		return rdf.FormatTurtle
	case RDFXML:
		return rdf.FormatRDFXML
	case RDFJSON:
		return rdf.FormatRDFJSON
	case NTriples:
		return rdf.FormatNTriples
	case NQuads:
		return rdf.FormatNQuads
	}
	return ""
}

// ErrUnknownFormat is returned for format strings no formatter is
// registered for.
var ErrUnknownFormat = errors.New("format: unknown format string")

// Formattable is anything a formatter can render.
type Formattable interface {
	Kind() model.Kind
	Graph() *rdf.Graph
}

// closer is implemented by views that must be finished before rendering.
type closer interface {
	Closed() bool
}

// Formatter renders objects in one serialization.
type Formatter interface {
	// Format returns the serialization.
	Format() Format
	// FormatString returns the media type the formatter is registered under.
	FormatString() string
	// ContentType returns the Content-Type header of rendered output.
	ContentType() string
	// SetAcceptPart configures the formatter from the parameters of one
	// Accept part (without media type and q value). An error means the
	// formatter cannot serve the part.
	SetAcceptPart(ctx context.Context, part string, kind model.Kind) error
	// Render serializes obj.
	Render(ctx context.Context, obj Formattable) (string, error)
}

// graphView adapts a bare graph to Formattable.
type graphView struct {
	kind  model.Kind
	graph *rdf.Graph
}

func (v graphView) Kind() model.Kind { return v.kind }
func (v graphView) Graph() *rdf.Graph { return v.graph }
