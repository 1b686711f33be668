package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// RDFXMLEncodeOptions configures RDF/XML encoding.
type RDFXMLEncodeOptions struct {
	Indent   string
	Prefixes map[string]string
	BaseIRI  string
}

// EncodeRDFXML serializes g as RDF/XML with one rdf:Description per subject.
func EncodeRDFXML(g *Graph, opts RDFXMLEncodeOptions) (string, error) {
	var b strings.Builder
	if err := WriteRDFXML(&b, g, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

// WriteRDFXML writes g as RDF/XML. Predicates in a namespace missing from
// opts.Prefixes get generated ns0, ns1, ... prefixes declared on rdf:RDF.
func WriteRDFXML(w io.Writer, g *Graph, opts RDFXMLEncodeOptions) error {
	indent := opts.Indent
	if indent == "" {
		indent = "  "
	}
	names := newRDFXMLNames(opts.Prefixes)
	var order []string
	bySubject := map[string][]Triple{}
	for _, t := range g.Triples() {
		if _, err := names.qname(t.P.Value); err != nil {
			return err
		}
		key := termKey(t.S)
		if _, ok := bySubject[key]; !ok {
			order = append(order, key)
		}
		bySubject[key] = append(bySubject[key], t)
	}

	bw := bufio.NewWriter(w)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rdf:RDF`)
	for _, prefix := range sortedPrefixKeys(names.prefixes) {
		b.WriteString("\n" + indent + `xmlns:` + prefix + `="` + escapeXML(names.prefixes[prefix]) + `"`)
	}
	if opts.BaseIRI != "" {
		b.WriteString("\n" + indent + `xml:base="` + escapeXML(opts.BaseIRI) + `"`)
	}
	b.WriteString(">\n")
	if _, err := bw.WriteString(b.String()); err != nil {
		return err
	}

	for _, key := range order {
		triples := bySubject[key]
		b.Reset()
		attrs, err := rdfxmlSubjectAttrs(triples[0].S)
		if err != nil {
			return err
		}
		b.WriteString(indent + "<rdf:Description " + attrs + ">\n")
		for _, t := range triples {
			qname, _ := names.qname(t.P.Value)
			b.WriteString(indent + indent + "<" + qname)
			switch o := t.O.(type) {
			case IRI:
				b.WriteString(` rdf:resource="` + escapeXML(o.Value) + `"/>` + "\n")
			case BlankNode:
				b.WriteString(` rdf:nodeID="` + escapeXML(o.ID) + `"/>` + "\n")
			case Literal:
				if o.Lang != "" {
					b.WriteString(` xml:lang="` + escapeXML(o.Lang) + `"`)
				} else if o.Datatype.Value != "" {
					b.WriteString(` rdf:datatype="` + escapeXML(o.Datatype.Value) + `"`)
				}
				b.WriteString(">" + escapeXML(o.Lexical) + "</" + qname + ">\n")
			default:
				return fmt.Errorf("rdfxml: unsupported object type %T", t.O)
			}
		}
		b.WriteString(indent + "</rdf:Description>\n")
		if _, err := bw.WriteString(b.String()); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("</rdf:RDF>\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// rdfxmlNames maps predicate IRIs to prefixed element names.
type rdfxmlNames struct {
	prefixes map[string]string
	nsToPref map[string]string
	autoSeq  int
}

func newRDFXMLNames(prefixes map[string]string) *rdfxmlNames {
	n := &rdfxmlNames{prefixes: map[string]string{}, nsToPref: map[string]string{}}
	for prefix, ns := range prefixes {
		if prefix == "" || prefix == "rdf" || prefix == "xml" || prefix == "xmlns" {
			continue
		}
		n.prefixes[prefix] = ns
		n.nsToPref[ns] = prefix
	}
	n.prefixes["rdf"] = RDFNamespace
	n.nsToPref[RDFNamespace] = "rdf"
	return n
}

func (n *rdfxmlNames) qname(iri string) (string, error) {
	ns, local, ok := splitIRIForQName(iri)
	if !ok {
		return "", fmt.Errorf("rdfxml: unable to abbreviate predicate IRI %q", iri)
	}
	if prefix, ok := n.nsToPref[ns]; ok {
		return prefix + ":" + local, nil
	}
	for {
		prefix := fmt.Sprintf("ns%d", n.autoSeq)
		n.autoSeq++
		if _, taken := n.prefixes[prefix]; taken {
			continue
		}
		n.prefixes[prefix] = ns
		n.nsToPref[ns] = prefix
		return prefix + ":" + local, nil
	}
}

func rdfxmlSubjectAttrs(term Term) (string, error) {
	switch value := term.(type) {
	case IRI:
		return `rdf:about="` + escapeXML(value.Value) + `"`, nil
	case BlankNode:
		return `rdf:nodeID="` + escapeXML(value.ID) + `"`, nil
	default:
		return "", fmt.Errorf("rdfxml: unsupported subject type %T", term)
	}
}

// splitIRIForQName splits iri after its last '#' or '/' when the remainder is
// a valid XML local name.
func splitIRIForQName(iri string) (string, string, bool) {
	idx := strings.LastIndexAny(iri, "#/")
	if idx <= 0 || idx+1 >= len(iri) {
		return "", "", false
	}
	local := iri[idx+1:]
	if !isQNameLocal(local) || (local[0] >= '0' && local[0] <= '9') {
		return "", "", false
	}
	return iri[:idx+1], local, true
}

var xmlEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	`'`, "&apos;",
)

func escapeXML(value string) string {
	return xmlEscaper.Replace(value)
}
