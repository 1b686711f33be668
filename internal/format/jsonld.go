package format

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/geoknoesis/wap-go/internal/model"
	"github.com/geoknoesis/wap-go/internal/vocab"
	"github.com/geoknoesis/wap-go/internal/waperr"
	"github.com/geoknoesis/wap-go/rdf"
)

// ErrNoUsableProfile is returned when an Accept part names profiles and none
// of them can be cached.
var ErrNoUsableProfile = errors.New("format: no requested profile is available")

// Profiles is the part of the profile cache the JSON-LD formatter uses.
type Profiles interface {
	CacheProfile(ctx context.Context, url string) bool
	Options() rdf.JSONLDOptions
	Frame(kind model.Kind) (interface{}, error)
}

// JSONLDFormatter renders objects as framed and compacted JSON-LD.
type JSONLDFormatter struct {
	cache             Profiles
	alwaysAddDefaults bool
	formatString      string
	profiles          []string
}

// NewJSONLDFormatter returns a formatter resolving profiles through cache.
func NewJSONLDFormatter(cache Profiles, alwaysAddDefaults bool) *JSONLDFormatter {
	return &JSONLDFormatter{
		cache:             cache,
		alwaysAddDefaults: alwaysAddDefaults,
		formatString:      JSONLD.MediaType(),
	}
}

func (f *JSONLDFormatter) Format() Format { return JSONLD }
func (f *JSONLDFormatter) FormatString() string { return f.formatString }

// Profiles returns the selected profile URLs in request order.
func (f *JSONLDFormatter) Profiles() []string {
	return append([]string(nil), f.profiles...)
}

// ContentType lists the selected profiles in the profile parameter.
func (f *JSONLDFormatter) ContentType() string {
	if len(f.profiles) == 0 {
		return f.formatString + ";charset=utf-8"
	}
	return f.formatString + `;profile="` + strings.Join(f.profiles, " ") + `";charset=utf-8`
}

// SetAcceptPart reads the profile parameter, a quoted space separated list of
// context URLs. Only URLs the cache can serve are kept. Without a profile
// parameter, or when defaults are always added, the default profiles of kind
// are appended.
func (f *JSONLDFormatter) SetAcceptPart(ctx context.Context, part string, kind model.Kind) error {
	f.profiles = nil
	requested := false
	for _, param := range strings.Split(part, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "profile") {
			continue
		}
		requested = true
		for _, u := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
			if f.cache.CacheProfile(ctx, u) {
				f.addProfile(u)
			}
		}
	}
	if requested && len(f.profiles) == 0 {
		return ErrNoUsableProfile
	}
	if !requested || f.alwaysAddDefaults {
		for _, u := range defaultProfiles(kind) {
			f.addProfile(u)
		}
	}
	return nil
}

func (f *JSONLDFormatter) addProfile(u string) {
	for _, p := range f.profiles {
		if p == u {
			return
		}
	}
	f.profiles = append(f.profiles, u)
}

func defaultProfiles(kind model.Kind) []string {
	if kind == model.KindContainer {
		return []string{vocab.LDPContext, vocab.AnnoContext}
	}
	return []string{vocab.AnnoContext}
}

// Render frames the object graph by kind and compacts it with the selected
// profiles. An annotation list with several members renders as a JSON array.
func (f *JSONLDFormatter) Render(ctx context.Context, obj Formattable) (string, error) {
	if c, ok := obj.(closer); ok && !c.Closed() {
		return "", waperr.New(waperr.InternalServerError, "page must be closed before rendering")
	}
	var out interface{}
	if list, ok := obj.(*model.AnnotationList); ok {
		docs := make([]interface{}, 0, list.Len())
		for _, a := range list.Annotations {
			doc, err := f.document(ctx, a.Graph(), model.KindAnnotation)
			if err != nil {
				return "", err
			}
			docs = append(docs, doc)
		}
		out = docs
		if len(docs) == 1 {
			out = docs[0]
		}
	} else {
		doc, err := f.document(ctx, obj.Graph(), obj.Kind())
		if err != nil {
			return "", err
		}
		out = doc
	}

	// encoding/json sorts map keys, which puts @context first.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return "", waperr.Wrap(waperr.FormatException, err, "cannot write JSON-LD")
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (f *JSONLDFormatter) document(ctx context.Context, g *rdf.Graph, kind model.Kind) (interface{}, error) {
	opts := f.cache.Options()
	expanded, err := rdf.GraphToJSONLD(ctx, g, opts)
	if err != nil {
		return nil, waperr.Wrap(waperr.FormatException, err, "cannot convert graph to JSON-LD")
	}
	frame, err := f.cache.Frame(kind)
	if err != nil {
		return nil, waperr.Wrap(waperr.InternalServerError, err, "cannot load frame for %s", kind)
	}
	opts.CompactArrays = true
	framed, err := rdf.FrameJSONLD(ctx, expanded, frame, opts)
	if err != nil {
		return nil, waperr.Wrap(waperr.FormatException, err, "cannot frame %s", kind)
	}
	var doc interface{} = framed
	if len(f.profiles) > 0 {
		// compact with exactly the emitted @context; the last profile wins on
		// conflicting terms
		compacted, err := rdf.CompactJSONLD(ctx, framed, f.contextValue(), opts)
		if err != nil {
			return nil, waperr.Wrap(waperr.FormatException, err, "cannot compact %s", kind)
		}
		compacted["@context"] = f.contextValue()
		doc = compacted
	}
	rdf.StripBlankNodeIDs(doc)
	return doc, nil
}

// contextValue is the profile URL for a single profile and the list of URLs
// otherwise.
func (f *JSONLDFormatter) contextValue() interface{} {
	if len(f.profiles) == 1 {
		return f.profiles[0]
	}
	list := make([]interface{}, 0, len(f.profiles))
	for _, p := range f.profiles {
		list = append(list, p)
	}
	return list
}
