package rdf

import (
	"bufio"
	"io"
	"sort"
	"strings"
)

// TurtleEncodeOptions configures Turtle encoding.
type TurtleEncodeOptions struct {
	Indent   string
	Prefixes map[string]string
	BaseIRI  string
}

// EncodeTurtle serializes g as Turtle, grouping triples by subject.
func EncodeTurtle(g *Graph, opts TurtleEncodeOptions) (string, error) {
	var b strings.Builder
	if err := WriteTurtle(&b, g, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

// WriteTurtle writes g as Turtle. Subjects appear in first-seen order and
// their predicates are joined with ';', repeated objects with ','.
func WriteTurtle(w io.Writer, g *Graph, opts TurtleEncodeOptions) error {
	bw := bufio.NewWriter(w)
	if err := writeTurtleHeader(bw, opts); err != nil {
		return err
	}
	indent := opts.Indent
	if indent == "" {
		indent = "    "
	}
	var order []string
	bySubject := map[string][]Triple{}
	for _, t := range g.Triples() {
		key := termKey(t.S)
		if _, ok := bySubject[key]; !ok {
			order = append(order, key)
		}
		bySubject[key] = append(bySubject[key], t)
	}
	for _, key := range order {
		triples := bySubject[key]
		var b strings.Builder
		b.WriteString(renderTermWithPrefixes(triples[0].S, opts.Prefixes))
		for i, t := range triples {
			samePredicate := i > 0 && triples[i-1].P == t.P
			switch {
			case i == 0:
				b.WriteString("\n" + indent)
			case samePredicate:
				b.WriteString(" ,\n" + indent + indent)
			default:
				b.WriteString(" ;\n" + indent)
			}
			if !samePredicate {
				b.WriteString(renderPredicate(t.P, opts.Prefixes))
				b.WriteByte(' ')
			}
			b.WriteString(renderTermWithPrefixes(t.O, opts.Prefixes))
		}
		b.WriteString(" .\n\n")
		if _, err := bw.WriteString(b.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeTurtleHeader(w *bufio.Writer, opts TurtleEncodeOptions) error {
	if opts.BaseIRI != "" {
		if _, err := w.WriteString("@base <" + opts.BaseIRI + "> .\n"); err != nil {
			return err
		}
	}
	for _, prefix := range sortedPrefixKeys(opts.Prefixes) {
		line := "@prefix " + prefix + ": <" + opts.Prefixes[prefix] + "> .\n"
		if _, err := w.WriteString(line); err != nil {
			return err
		}
	}
	if len(opts.Prefixes) > 0 || opts.BaseIRI != "" {
		_, err := w.WriteString("\n")
		return err
	}
	return nil
}

func sortedPrefixKeys(prefixes map[string]string) []string {
	keys := make([]string, 0, len(prefixes))
	for key := range prefixes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func renderPredicate(p IRI, prefixes map[string]string) string {
	if p == RDFType {
		return "a"
	}
	return renderIRIWithPrefixes(p, prefixes)
}

func renderIRIWithPrefixes(iri IRI, prefixes map[string]string) string {
	if qname, ok := abbreviateQName(iri.Value, prefixes); ok {
		return qname
	}
	return renderIRI(iri)
}

func renderTermWithPrefixes(term Term, prefixes map[string]string) string {
	switch value := term.(type) {
	case IRI:
		return renderIRIWithPrefixes(value, prefixes)
	case Literal:
		return renderLiteral(value, renderIRIWithPrefixes(value.Datatype, prefixes))
	default:
		return renderTerm(term)
	}
}

func abbreviateQName(iri string, prefixes map[string]string) (string, bool) {
	bestNS := ""
	bestPrefix := ""
	found := false
	for prefix, ns := range prefixes {
		if !strings.HasPrefix(iri, ns) {
			continue
		}
		if !isQNameLocal(iri[len(ns):]) {
			continue
		}
		if len(ns) > len(bestNS) {
			bestNS = ns
			bestPrefix = prefix
			found = true
		}
	}
	if !found {
		return "", false
	}
	return bestPrefix + ":" + iri[len(bestNS):], true
}
