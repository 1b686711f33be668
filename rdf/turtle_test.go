package rdf

import (
	"strings"
	"testing"
)

const annotationTurtle = `@prefix oa: <http://www.w3.org/ns/oa#> .
@prefix dc: <http://purl.org/dc/terms/> .
@base <http://example.org/> .

<anno1> a oa:Annotation ;
    oa:hasTarget <page1>, <page2> ;
    oa:hasBody [ a oa:TextualBody ; oa:value "nice"@en ] ;
    dc:created "2020-01-01T00:00:00Z"^^<http://www.w3.org/2001/XMLSchema#dateTime> ;
    <http://example.org/count> 3 ;
    <http://example.org/flag> true ;
    <http://example.org/order> ( <a> <b> ) .
`

func TestDecodeTurtle(t *testing.T) {
	g, err := DecodeTurtle(strings.NewReader(annotationTurtle), "")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	anno := NewIRI("http://example.org/anno1")
	if !g.Contains(anno, RDFType, NewIRI("http://www.w3.org/ns/oa#Annotation")) {
		t.Fatalf("missing type triple:\n%s", g)
	}
	if got := len(g.Objects(anno, NewIRI("http://www.w3.org/ns/oa#hasTarget"))); got != 2 {
		t.Fatalf("expected 2 targets, got %d", got)
	}
	body, ok := g.Object(anno, NewIRI("http://www.w3.org/ns/oa#hasBody"))
	if !ok {
		t.Fatal("missing body")
	}
	if v, _ := g.Object(body, NewIRI("http://www.w3.org/ns/oa#value")); v != (Literal{Lexical: "nice", Lang: "en"}) {
		t.Fatalf("unexpected body value %v", v)
	}
	if v, _ := g.Object(anno, NewIRI("http://example.org/count")); v != (Literal{Lexical: "3", Datatype: XSDInteger}) {
		t.Fatalf("unexpected count %v", v)
	}
	if v, _ := g.Object(anno, NewIRI("http://example.org/flag")); v != (Literal{Lexical: "true", Datatype: XSDBoolean}) {
		t.Fatalf("unexpected flag %v", v)
	}
	items, err := ReadList(g, anno, NewIRI("http://example.org/order"))
	if err != nil || len(items) != 2 || items[1] != NewIRI("http://example.org/b") {
		t.Fatalf("unexpected collection %v %v", items, err)
	}
}

func TestDecodeTurtleErrors(t *testing.T) {
	cases := []string{
		"<http://example.org/s> <http://example.org/p> <http://example.org/o>",
		"ex:s ex:p ex:o .",
		"<http://example.org/s> <http://example.org/p> \"open .",
		"<http://example.org/s> \"lit\" <http://example.org/o> .",
	}
	for _, input := range cases {
		if _, err := DecodeTurtle(strings.NewReader(input), ""); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestTurtleRoundTrip(t *testing.T) {
	g, err := DecodeTurtle(strings.NewReader(annotationTurtle), "")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := EncodeTurtle(g, TurtleEncodeOptions{Prefixes: map[string]string{
		"oa": "http://www.w3.org/ns/oa#",
		"dc": "http://purl.org/dc/terms/",
	}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(out, "@prefix oa: <http://www.w3.org/ns/oa#> .") {
		t.Fatalf("missing prefix header:\n%s", out)
	}
	if !strings.Contains(out, " a oa:Annotation") {
		t.Fatalf("rdf:type not abbreviated:\n%s", out)
	}
	again, err := DecodeTurtle(strings.NewReader(out), "")
	if err != nil {
		t.Fatalf("re-decode: %v\n%s", err, out)
	}
	if again.Len() != g.Len() {
		t.Fatalf("triple count changed: %d != %d", again.Len(), g.Len())
	}
}
