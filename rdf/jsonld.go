package rdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	ld "github.com/piprate/json-gold/ld"
)

// JSONLDOptions configures JSON-LD processing.
type JSONLDOptions struct {
	// Base resolves relative IRIs.
	Base string
	// CompactArrays controls compaction of single-element arrays.
	CompactArrays bool
	// DocumentLoader resolves remote contexts. Nil uses json-gold's network loader.
	DocumentLoader DocumentLoader
}

// DocumentLoader resolves remote contexts/documents.
type DocumentLoader interface {
	LoadDocument(ctx context.Context, iri string) (RemoteDocument, error)
}

// RemoteDocument represents a fetched JSON-LD document.
type RemoteDocument struct {
	DocumentURL string
	Document    interface{}
	ContextURL  string
}

// ReadJSON parses a JSON document into the generic form json-gold works on.
func ReadJSON(r io.Reader) (interface{}, error) {
	doc, err := ld.DocumentFromReader(r)
	if err != nil {
		return nil, wrapParseError(FormatJSONLD, "", 0, 0, err)
	}
	return doc, nil
}

// ExpandJSONLD runs the JSON-LD expansion algorithm.
func ExpandJSONLD(ctx context.Context, input interface{}, opts JSONLDOptions) ([]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proc := ld.NewJsonLdProcessor()
	expanded, err := proc.Expand(input, newJSONGoldOptions(ctx, opts))
	if err != nil {
		return nil, wrapParseError(FormatJSONLD, "", 0, 0, err)
	}
	return expanded, nil
}

// CompactJSONLD compacts input against context.
func CompactJSONLD(ctx context.Context, input interface{}, context interface{}, opts JSONLDOptions) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proc := ld.NewJsonLdProcessor()
	return proc.Compact(input, context, newJSONGoldOptions(ctx, opts))
}

// FrameJSONLD applies a JSON-LD frame to input. A result graph holding a
// single node is unwrapped to that node.
func FrameJSONLD(ctx context.Context, input interface{}, frame interface{}, opts JSONLDOptions) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proc := ld.NewJsonLdProcessor()
	framed, err := proc.Frame(input, frame, newJSONGoldOptions(ctx, opts))
	if err != nil {
		return nil, err
	}
	if graph, ok := framed["@graph"].([]interface{}); ok && len(graph) == 1 {
		if node, ok := graph[0].(map[string]interface{}); ok {
			if c, ok := framed["@context"]; ok {
				node["@context"] = c
			}
			return node, nil
		}
	}
	return framed, nil
}

// DecodeJSONLD converts a parsed JSON-LD document into a dataset.
func DecodeJSONLD(ctx context.Context, input interface{}, opts JSONLDOptions) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proc := ld.NewJsonLdProcessor()
	goldOpts := newJSONGoldOptions(ctx, opts)
	goldOpts.Format = "application/n-quads"
	result, err := proc.ToRDF(input, goldOpts)
	if err != nil {
		return nil, wrapParseError(FormatJSONLD, "", 0, 0, err)
	}
	nquads, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("jsonld: unexpected ToRDF result %T", result)
	}
	return DecodeNQuads(strings.NewReader(nquads))
}

// GraphToJSONLD converts g into expanded JSON-LD with the fromRDF algorithm.
func GraphToJSONLD(ctx context.Context, g *Graph, opts JSONLDOptions) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteNTriples(&buf, g); err != nil {
		return nil, err
	}
	proc := ld.NewJsonLdProcessor()
	goldOpts := newJSONGoldOptions(ctx, opts)
	goldOpts.Format = "application/n-quads"
	return proc.FromRDF(buf.String(), goldOpts)
}

// StripBlankNodeIDs removes "@id" and "id" members that hold blank node
// labels. Labels produced during serialization are only unique within one
// document and must not leak to clients.
func StripBlankNodeIDs(doc interface{}) {
	switch v := doc.(type) {
	case map[string]interface{}:
		for _, key := range []string{"@id", "id"} {
			if id, ok := v[key].(string); ok && strings.HasPrefix(id, "_:") {
				delete(v, key)
			}
		}
		for _, child := range v {
			StripBlankNodeIDs(child)
		}
	case []interface{}:
		for _, child := range v {
			StripBlankNodeIDs(child)
		}
	}
}

type jsonGoldDocumentLoader struct {
	ctx   context.Context
	inner DocumentLoader
}

func (l jsonGoldDocumentLoader) LoadDocument(iri string) (*ld.RemoteDocument, error) {
	remote, err := l.inner.LoadDocument(l.ctx, iri)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	return &ld.RemoteDocument{
		DocumentURL: remote.DocumentURL,
		Document:    remote.Document,
		ContextURL:  remote.ContextURL,
	}, nil
}

func newJSONGoldOptions(ctx context.Context, opts JSONLDOptions) *ld.JsonLdOptions {
	goldOpts := ld.NewJsonLdOptions(opts.Base)
	goldOpts.CompactArrays = opts.CompactArrays
	if opts.DocumentLoader != nil {
		goldOpts.DocumentLoader = jsonGoldDocumentLoader{ctx: ctx, inner: opts.DocumentLoader}
	}
	return goldOpts
}
