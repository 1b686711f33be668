package format

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/geoknoesis/wap-go/internal/config"
	"github.com/geoknoesis/wap-go/internal/model"
	"github.com/geoknoesis/wap-go/internal/waperr"
	"github.com/geoknoesis/wap-go/rdf"
)

// Registry knows every format string the server reads and writes.
type Registry struct {
	profiles          Profiles
	alwaysAddDefaults bool
	negotiation       bool
	log               *logrus.Entry

	formats map[string]Format // format string -> format
	order   []string          // format strings, registration order
}

// NewRegistry registers JSON-LD, Turtle, N-Quads and RDF/XML plus the simple
// formatters listed in cfg.SimpleFormatters ("NAME*media/type|...").
// Malformed entries are logged and skipped.
func NewRegistry(cfg *config.Config, profiles Profiles, logger *logrus.Logger) *Registry {
	r := &Registry{
		profiles:          profiles,
		alwaysAddDefaults: cfg.JSONLDAlwaysAddDefaultProfiles,
		negotiation:       cfg.ContentNegotiation,
		log:               logger.WithField("component", "format"),
		formats:           make(map[string]Format),
	}
	for _, f := range []Format{JSONLD, Turtle, NQuads, RDFXML} {
		r.register(f, f.MediaType())
	}
	for _, entry := range strings.Split(cfg.SimpleFormatters, "|") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, formatString, ok := strings.Cut(entry, "*")
		formatString = strings.ToLower(strings.TrimSpace(formatString))
		f, known := ParseFormat(name)
		switch {
		case !ok || formatString == "" || !known:
			r.log.WithField("entry", entry).Warn("skipping malformed simple formatter")
		case f == JSONLD:
			r.log.WithField("entry", entry).Warn("JSON-LD cannot be registered as a simple formatter")
		default:
			r.register(f, formatString)
		}
	}
	return r
}

func (r *Registry) register(f Format, formatString string) {
	if _, dup := r.formats[formatString]; dup {
		r.log.WithField("format", formatString).Warn("format string already registered")
		return
	}
	r.formats[formatString] = f
	r.order = append(r.order, formatString)
	r.log.WithFields(logrus.Fields{"format": f, "media_type": formatString}).Debug("format registered")
}

// FormatStrings returns the registered format strings, longest first so that
// prefix matching picks the most specific one.
func (r *Registry) FormatStrings() []string {
	out := append([]string(nil), r.order...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// Lookup returns the format registered under formatString.
func (r *Registry) Lookup(formatString string) (Format, bool) {
	f, ok := r.formats[strings.ToLower(strings.TrimSpace(formatString))]
	return f, ok
}

// NewFormatter returns a fresh formatter for formatString.
func (r *Registry) NewFormatter(formatString string) (Formatter, error) {
	formatString = strings.ToLower(strings.TrimSpace(formatString))
	f, ok := r.formats[formatString]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, formatString)
	}
	if f == JSONLD {
		return NewJSONLDFormatter(r.profiles, r.alwaysAddDefaults), nil
	}
	return NewSimpleFormatter(f, formatString), nil
}

// DefaultFormatter returns the JSON-LD formatter with the default profiles
// of kind.
func (r *Registry) DefaultFormatter(ctx context.Context, kind model.Kind) Formatter {
	f := NewJSONLDFormatter(r.profiles, r.alwaysAddDefaults)
	_ = f.SetAcceptPart(ctx, "", kind)
	return f
}

// MediaType strips the parameters of a Content-Type header.
func MediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// Parse reads body in the format named by contentType. JSON-LD is expanded
// with contexts from the profile cache; an empty @id is dropped and an @id
// that is not an absolute IRI is rejected.
func (r *Registry) Parse(ctx context.Context, body []byte, contentType string) (*rdf.Dataset, error) {
	mt := MediaType(contentType)
	f, ok := r.formats[mt]
	if !ok {
		return nil, waperr.New(waperr.UnsupportedMediaType, "Content type %q is not supported", mt)
	}
	var (
		ds  *rdf.Dataset
		err error
	)
	switch f {
	case JSONLD:
		return r.parseJSONLD(ctx, body)
	case Turtle:
		var g *rdf.Graph
		if g, err = rdf.DecodeTurtle(bytes.NewReader(body), ""); err == nil {
			ds = datasetOf(g)
		}
	case NTriples:
		var g *rdf.Graph
		if g, err = rdf.DecodeNTriples(bytes.NewReader(body)); err == nil {
			ds = datasetOf(g)
		}
	case NQuads:
		ds, err = rdf.DecodeNQuads(bytes.NewReader(body))
	case RDFJSON:
		var g *rdf.Graph
		if g, err = rdf.DecodeRDFJSON(bytes.NewReader(body)); err == nil {
			ds = datasetOf(g)
		}
	case RDFXML:
		var g *rdf.Graph
		if g, err = rdf.DecodeRDFXML(bytes.NewReader(body), ""); err == nil {
			ds = datasetOf(g)
		}
	default:
		return nil, waperr.New(waperr.NotImplemented, "Reading %s is not implemented", mt)
	}
	if err != nil {
		if rdf.Code(err) == rdf.ErrCodeContextCanceled {
			return nil, waperr.Wrap(waperr.InternalServerError, err, "Parsing the %s body was interrupted", mt)
		}
		return nil, waperr.Wrap(waperr.FormatException, err, "Cannot parse %s body", mt)
	}
	return ds, nil
}

func (r *Registry) parseJSONLD(ctx context.Context, body []byte) (*rdf.Dataset, error) {
	doc, err := rdf.ReadJSON(bytes.NewReader(body))
	if err != nil {
		return nil, waperr.Wrap(waperr.FormatException, err, "Cannot parse JSON-LD body")
	}
	opts := r.profiles.Options()
	expanded, err := rdf.ExpandJSONLD(ctx, doc, opts)
	if err != nil {
		return nil, waperr.Wrap(waperr.FormatException, err, "Cannot expand JSON-LD body")
	}
	if err := checkIDs(expanded); err != nil {
		return nil, err
	}
	ds, err := rdf.DecodeJSONLD(ctx, expanded, opts)
	if err != nil {
		return nil, waperr.Wrap(waperr.FormatException, err, "Cannot read JSON-LD body")
	}
	return ds, nil
}

// checkIDs walks an expanded document, removing empty @id members and
// rejecting relative ones.
func checkIDs(doc interface{}) error {
	switch v := doc.(type) {
	case map[string]interface{}:
		if id, ok := v["@id"].(string); ok {
			switch {
			case id == "":
				delete(v, "@id")
			case !strings.Contains(id, ":"):
				return waperr.New(waperr.InvalidRequest, "Invalid @id %q, an absolute IRI is required", id)
			}
		}
		for key, child := range v {
			if key == "@value" {
				continue
			}
			if err := checkIDs(child); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, child := range v {
			if err := checkIDs(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func datasetOf(g *rdf.Graph) *rdf.Dataset {
	ds := rdf.NewDataset()
	ds.Default = g
	return ds
}

// Convert re-serializes body from one media type into another, framing
// JSON-LD output as kind.
func (r *Registry) Convert(ctx context.Context, body []byte, from, to string, kind model.Kind) (string, error) {
	ds, err := r.Parse(ctx, body, from)
	if err != nil {
		return "", err
	}
	f, err := r.NewFormatter(MediaType(to))
	if err != nil {
		return "", waperr.Wrap(waperr.FormatNotAvailable, err, "Cannot write %s", to)
	}
	_, params, _ := strings.Cut(to, ";")
	if err := f.SetAcceptPart(ctx, strings.TrimSpace(params), kind); err != nil {
		return "", waperr.Wrap(waperr.FormatNotAvailable, err, "Cannot write %s", to)
	}
	return f.Render(ctx, graphView{kind: kind, graph: ds.Union()})
}
