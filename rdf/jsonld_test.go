package rdf

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const inlineContextDoc = `{
  "@context": {"ex": "http://example.org/", "label": "http://www.w3.org/2000/01/rdf-schema#label"},
  "@id": "ex:s",
  "@type": "ex:Thing",
  "label": "thing",
  "ex:part": {"label": "nested"}
}`

func TestDecodeJSONLD(t *testing.T) {
	doc, err := ReadJSON(strings.NewReader(inlineContextDoc))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	ds, err := DecodeJSONLD(context.Background(), doc, JSONLDOptions{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	g := ds.Default
	s := NewIRI("http://example.org/s")
	if !g.Contains(s, RDFType, NewIRI("http://example.org/Thing")) {
		t.Fatalf("missing type:\n%s", g)
	}
	part, ok := g.Object(s, NewIRI("http://example.org/part"))
	if !ok || part.Kind() != TermBlankNode {
		t.Fatalf("expected blank node part, got %v", part)
	}
}

func TestGraphToJSONLDFrameAndStrip(t *testing.T) {
	g := NewGraph()
	s := NewIRI("http://example.org/s")
	body := BlankNode{ID: "b0"}
	g.Add(s, RDFType, NewIRI("http://example.org/Thing"))
	g.Add(s, NewIRI("http://example.org/body"), body)
	g.Add(body, NewIRI("http://example.org/value"), NewLiteral("v"))

	ctx := context.Background()
	expanded, err := GraphToJSONLD(ctx, g, JSONLDOptions{})
	if err != nil {
		t.Fatalf("fromRDF: %v", err)
	}
	framed, err := FrameJSONLD(ctx, expanded, map[string]interface{}{
		"@type": "http://example.org/Thing",
	}, JSONLDOptions{})
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if framed["@id"] != "http://example.org/s" {
		t.Fatalf("frame root not unwrapped: %v", framed)
	}
	StripBlankNodeIDs(framed)
	nested, _ := framed["http://example.org/body"].(map[string]interface{})
	if nested == nil {
		t.Fatalf("body not embedded: %v", framed)
	}
	if _, ok := nested["@id"]; ok {
		t.Fatalf("blank node id not stripped: %v", nested)
	}
}

type failingLoader struct{}

func (failingLoader) LoadDocument(context.Context, string) (RemoteDocument, error) {
	return RemoteDocument{}, errors.New("offline")
}

func TestExpandJSONLDUsesLoader(t *testing.T) {
	doc := map[string]interface{}{
		"@context": "http://example.org/context.jsonld",
		"@id":      "http://example.org/s",
	}
	_, err := ExpandJSONLD(context.Background(), doc, JSONLDOptions{DocumentLoader: failingLoader{}})
	if err == nil {
		t.Fatal("expected loader failure to surface")
	}
}
