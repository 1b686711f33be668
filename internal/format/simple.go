package format

import (
	"context"

	"github.com/geoknoesis/wap-go/internal/model"
	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/internal/waperr"
	"github.com/geoknoesis/wap-go/rdf"
)

// SimpleFormatter writes the plain graph of an object with one of the rdf
// codecs. Accept parameters are ignored.
type SimpleFormatter struct {
	format       Format
	formatString string
}

// NewSimpleFormatter returns a formatter for format registered under
// formatString.
func NewSimpleFormatter(format Format, formatString string) *SimpleFormatter {
	return &SimpleFormatter{format: format, formatString: formatString}
}

func (f *SimpleFormatter) Format() Format { return f.format }
func (f *SimpleFormatter) FormatString() string { return f.formatString }

func (f *SimpleFormatter) ContentType() string {
	return f.formatString + ";charset=utf-8"
}

// SetAcceptPart accepts any parameters.
func (f *SimpleFormatter) SetAcceptPart(_ context.Context, _ string, _ model.Kind) error {
	return nil
}

func (f *SimpleFormatter) Render(ctx context.Context, obj Formattable) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c, ok := obj.(closer); ok && !c.Closed() {
		return "", waperr.New(waperr.InternalServerError, "page must be closed before rendering")
	}
	g := obj.Graph()
	var (
		out string
		err error
	)
	switch f.format {
	case Turtle:
		out, err = rdf.EncodeTurtle(g, rdf.TurtleEncodeOptions{Prefixes: vocab.Prefixes})
	case NTriples:
		out, err = rdf.EncodeNTriples(g)
	case NQuads:
		ds := rdf.NewDataset()
		ds.Default.AddGraph(g)
		out, err = rdf.EncodeNQuads(ds)
	case RDFJSON:
		out, err = rdf.EncodeRDFJSON(g)
	case RDFXML:
		out, err = rdf.EncodeRDFXML(g, rdf.RDFXMLEncodeOptions{Prefixes: vocab.Prefixes})
	default:
		return "", waperr.New(waperr.NotImplemented, "%s output is not implemented", f.formatString)
	}
	if err != nil {
		return "", waperr.Wrap(waperr.FormatException, err, "cannot write %s", f.formatString)
	}
	return out, nil
}
