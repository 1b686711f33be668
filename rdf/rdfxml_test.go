package rdf

import (
	"errors"
	"strings"
	"testing"
)

const rdfxmlDoc = `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:oa="http://www.w3.org/ns/oa#"
         xmlns:dc="http://purl.org/dc/terms/"
         xml:base="http://example.org/anno/">
  <oa:Annotation rdf:about="a1" dc:creator="alice">
    <oa:motivatedBy rdf:resource="http://www.w3.org/ns/oa#commenting"/>
    <oa:hasBody>
      <oa:TextualBody>
        <rdf:value xml:lang="en">Nice &amp; tidy</rdf:value>
      </oa:TextualBody>
    </oa:hasBody>
    <oa:hasTarget rdf:nodeID="t"/>
    <dc:created rdf:datatype="http://www.w3.org/2001/XMLSchema#dateTime">2024-01-02T03:04:05Z</dc:created>
  </oa:Annotation>
  <rdf:Description rdf:nodeID="t">
    <oa:hasSource rdf:resource="page1"/>
    <oa:hasSelector rdf:parseType="Resource">
      <rdf:value>#xpointer(/a)</rdf:value>
    </oa:hasSelector>
  </rdf:Description>
</rdf:RDF>
`

func TestRDFXMLDecode(t *testing.T) {
	g, err := DecodeRDFXML(strings.NewReader(rdfxmlDoc), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	anno := IRI{Value: "http://example.org/anno/a1"}
	oa := "http://www.w3.org/ns/oa#"
	if !g.Contains(anno, RDFType, IRI{Value: oa + "Annotation"}) {
		t.Fatalf("missing annotation type:\n%s", g)
	}
	if !g.Contains(anno, IRI{Value: "http://purl.org/dc/terms/creator"}, NewLiteral("alice")) {
		t.Fatalf("missing property attribute triple:\n%s", g)
	}
	if !g.Contains(anno, IRI{Value: oa + "motivatedBy"}, IRI{Value: oa + "commenting"}) {
		t.Fatalf("missing motivation:\n%s", g)
	}
	created := NewTypedLiteral("2024-01-02T03:04:05Z", XSDNamespace+"dateTime")
	if !g.Contains(anno, IRI{Value: "http://purl.org/dc/terms/created"}, created) {
		t.Fatalf("missing typed literal:\n%s", g)
	}

	body, ok := g.Object(anno, IRI{Value: oa + "hasBody"})
	if !ok || body.Kind() != TermBlankNode {
		t.Fatalf("expected blank body, got %v", body)
	}
	value := Literal{Lexical: "Nice & tidy", Lang: "en"}
	if !g.Contains(body, IRI{Value: RDFNamespace + "value"}, value) {
		t.Fatalf("missing body value:\n%s", g)
	}

	target, ok := g.Object(anno, IRI{Value: oa + "hasTarget"})
	if !ok {
		t.Fatalf("missing target")
	}
	if !g.Contains(target, IRI{Value: oa + "hasSource"}, IRI{Value: "http://example.org/anno/page1"}) {
		t.Fatalf("nodeID did not join the target description:\n%s", g)
	}
	selector, ok := g.Object(target, IRI{Value: oa + "hasSelector"})
	if !ok || !g.Contains(selector, IRI{Value: RDFNamespace + "value"}, NewLiteral("#xpointer(/a)")) {
		t.Fatalf("parseType Resource not expanded:\n%s", g)
	}
}

func TestRDFXMLDecodeContainersAndCollections(t *testing.T) {
	input := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/">
  <rdf:Seq rdf:about="http://example.org/seq">
    <rdf:li rdf:resource="http://example.org/one"/>
    <rdf:li rdf:resource="http://example.org/two"/>
  </rdf:Seq>
  <rdf:Description rdf:about="http://example.org/s">
    <ex:items rdf:parseType="Collection">
      <rdf:Description rdf:about="http://example.org/x"/>
      <rdf:Description rdf:about="http://example.org/y"/>
    </ex:items>
  </rdf:Description>
</rdf:RDF>`
	g, err := DecodeRDFXML(strings.NewReader(input), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq := IRI{Value: "http://example.org/seq"}
	if !g.Contains(seq, IRI{Value: RDFNamespace + "_1"}, IRI{Value: "http://example.org/one"}) ||
		!g.Contains(seq, IRI{Value: RDFNamespace + "_2"}, IRI{Value: "http://example.org/two"}) {
		t.Fatalf("rdf:li not numbered:\n%s", g)
	}
	head, ok := g.Object(IRI{Value: "http://example.org/s"}, IRI{Value: "http://example.org/items"})
	if !ok {
		t.Fatalf("missing collection head")
	}
	var got []string
	for head != RDFNil {
		first, ok := g.Object(head, RDFFirst)
		if !ok {
			t.Fatalf("broken collection:\n%s", g)
		}
		got = append(got, first.String())
		head, _ = g.Object(head, RDFRest)
	}
	if strings.Join(got, " ") != "http://example.org/x http://example.org/y" {
		t.Fatalf("unexpected collection order %v", got)
	}
}

func TestRDFXMLDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"truncated":        `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description rdf:about="http://example.org/s">`,
		"resource+nodeID":  `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/"><rdf:Description><ex:p rdf:resource="http://example.org/o" rdf:nodeID="b"/></rdf:Description></rdf:RDF>`,
		"about+nodeID":     `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description rdf:about="http://example.org/s" rdf:nodeID="b"/></rdf:RDF>`,
		"two nodes":        `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/"><rdf:Description><ex:p><rdf:Description/><rdf:Description/></ex:p></rdf:Description></rdf:RDF>`,
		"literal parse":    `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/"><rdf:Description><ex:p rdf:parseType="Literal"><b/></ex:p></rdf:Description></rdf:RDF>`,
		"illegal property": `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description><rdf:about>x</rdf:about></rdf:Description></rdf:RDF>`,
	}
	for name, input := range cases {
		_, err := DecodeRDFXML(strings.NewReader(input), "")
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		var parseErr *ParseError
		if !errors.As(err, &parseErr) || parseErr.Format != FormatRDFXML {
			t.Fatalf("%s: expected RDF/XML ParseError, got %v", name, err)
		}
		if Code(err) != ErrCodeParseError {
			t.Fatalf("%s: unexpected code %s", name, Code(err))
		}
	}
}

func TestRDFXMLRoundTrip(t *testing.T) {
	g := NewGraph()
	s := IRI{Value: "http://example.org/anno/1"}
	b := g.NewBlankNode()
	g.Add(s, RDFType, IRI{Value: "http://www.w3.org/ns/oa#Annotation"})
	g.Add(s, IRI{Value: "http://www.w3.org/ns/oa#hasBody"}, b)
	g.Add(s, IRI{Value: "http://example.org/vocab/count"}, NewTypedLiteral("3", XSDInteger.Value))
	g.Add(b, IRI{Value: RDFNamespace + "value"}, Literal{Lexical: `a <b> & "c"`, Lang: "en"})
	g.Add(b, IRI{Value: "http://purl.org/dc/terms/format"}, NewLiteral("text/plain"))

	out, err := EncodeRDFXML(g, RDFXMLEncodeOptions{Prefixes: map[string]string{"oa": "http://www.w3.org/ns/oa#"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(out, `xmlns:oa="http://www.w3.org/ns/oa#"`) || !strings.Contains(out, "<oa:hasBody") {
		t.Fatalf("expected oa prefix in output:\n%s", out)
	}
	if !strings.Contains(out, `xmlns:ns0=`) {
		t.Fatalf("expected generated prefix in output:\n%s", out)
	}

	back, err := DecodeRDFXML(strings.NewReader(out), "")
	if err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if back.Len() != g.Len() {
		t.Fatalf("expected %d triples, got %d:\n%s", g.Len(), back.Len(), back)
	}
	if !back.Contains(s, IRI{Value: "http://example.org/vocab/count"}, NewTypedLiteral("3", XSDInteger.Value)) {
		t.Fatalf("typed literal lost:\n%s", back)
	}
	body, ok := back.Object(s, IRI{Value: "http://www.w3.org/ns/oa#hasBody"})
	if !ok {
		t.Fatalf("body lost:\n%s", back)
	}
	if !back.Contains(body, IRI{Value: RDFNamespace + "value"}, Literal{Lexical: `a <b> & "c"`, Lang: "en"}) {
		t.Fatalf("escaped literal lost:\n%s", back)
	}
}

func TestRDFXMLEncodeRejectsUnsplittablePredicate(t *testing.T) {
	g := NewGraph()
	g.Add(IRI{Value: "http://example.org/s"}, IRI{Value: "http://example.org/1p"}, NewLiteral("x"))
	if _, err := EncodeRDFXML(g, RDFXMLEncodeOptions{}); err == nil {
		t.Fatalf("expected error for predicate without a valid local name")
	}
}
