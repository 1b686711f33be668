package rdf

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// DecodeRDFXML reads an RDF/XML document into a graph. baseIRI resolves
// relative IRI references and may be empty; xml:base overrides it per element.
//
// Node elements, typed node elements, property attributes, rdf:li and the
// Resource and Collection parse types are supported.
func DecodeRDFXML(r io.Reader, baseIRI string) (*Graph, error) {
	d := &rdfxmlDecoder{
		dec:    xml.NewDecoder(r),
		graph:  NewGraph(),
		labels: map[string]BlankNode{},
	}
	scope := rdfxmlScope{base: baseIRI}
	for {
		tok, err := d.dec.Token()
		if errors.Is(err, io.EOF) {
			return d.graph, nil
		}
		if err != nil {
			return nil, d.wrap(err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if isRDFName(start.Name, "RDF") {
			if err := d.nodeElements(start, scope.enter(start)); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := d.nodeElement(start, scope); err != nil {
			return nil, err
		}
	}
}

type rdfxmlDecoder struct {
	dec    *xml.Decoder
	graph  *Graph
	labels map[string]BlankNode
}

// rdfxmlScope carries the inherited xml:base and xml:lang.
type rdfxmlScope struct {
	base string
	lang string
}

func (s rdfxmlScope) enter(el xml.StartElement) rdfxmlScope {
	if base, ok := lookupAttr(el.Attr, xmlNamespace, "base"); ok {
		s.base = resolveAgainst(s.base, base)
	}
	if lang, ok := lookupAttr(el.Attr, xmlNamespace, "lang"); ok {
		s.lang = lang
	}
	return s
}

// nodeElements reads node elements until the end of parent.
func (d *rdfxmlDecoder) nodeElements(parent xml.StartElement, scope rdfxmlScope) error {
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return d.wrap(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if _, err := d.nodeElement(t, scope); err != nil {
				return err
			}
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return d.errorf("unexpected text inside %s", parent.Name.Local)
			}
		case xml.EndElement:
			return nil
		}
	}
}

// nodeElement reads one node element and its property elements and returns
// the subject it describes.
func (d *rdfxmlDecoder) nodeElement(el xml.StartElement, outer rdfxmlScope) (Term, error) {
	scope := outer.enter(el)
	if el.Name.Space == "" {
		return nil, d.errorf("node element %s has no namespace", el.Name.Local)
	}
	if el.Name.Space == RDFNamespace && (isRDFSyntaxName(el.Name.Local) || el.Name.Local == "li") {
		return nil, d.errorf("illegal node element rdf:%s", el.Name.Local)
	}
	subject, err := d.subjectOf(el, scope)
	if err != nil {
		return nil, err
	}
	if !isRDFName(el.Name, "Description") {
		d.graph.Add(subject, RDFType, IRI{Value: el.Name.Space + el.Name.Local})
	}
	if err := d.propertyAttributes(subject, el.Attr, scope); err != nil {
		return nil, err
	}
	if err := d.propertyElements(subject, scope); err != nil {
		return nil, err
	}
	return subject, nil
}

func (d *rdfxmlDecoder) subjectOf(el xml.StartElement, scope rdfxmlScope) (Term, error) {
	about, hasAbout := lookupAttr(el.Attr, RDFNamespace, "about")
	id, hasID := lookupAttr(el.Attr, RDFNamespace, "ID")
	nodeID, hasNodeID := lookupAttr(el.Attr, RDFNamespace, "nodeID")
	n := 0
	for _, ok := range []bool{hasAbout, hasID, hasNodeID} {
		if ok {
			n++
		}
	}
	if n > 1 {
		return nil, d.errorf("rdf:about, rdf:ID and rdf:nodeID are mutually exclusive")
	}
	switch {
	case hasAbout:
		return IRI{Value: resolveAgainst(scope.base, about)}, nil
	case hasID:
		return IRI{Value: resolveAgainst(scope.base, "#"+id)}, nil
	case hasNodeID:
		return d.label(nodeID), nil
	default:
		return d.graph.NewBlankNode(), nil
	}
}

// propertyAttributes turns non-syntax attributes into triples on subject.
func (d *rdfxmlDecoder) propertyAttributes(subject Term, attrs []xml.Attr, scope rdfxmlScope) error {
	for _, attr := range attrs {
		if !isPropertyAttr(attr.Name) {
			continue
		}
		if isRDFName(attr.Name, "li") {
			return d.errorf("rdf:li is not allowed as an attribute")
		}
		pred := IRI{Value: attr.Name.Space + attr.Name.Local}
		if pred == RDFType {
			d.graph.Add(subject, pred, IRI{Value: resolveAgainst(scope.base, attr.Value)})
			continue
		}
		d.graph.Add(subject, pred, Literal{Lexical: attr.Value, Lang: scope.lang})
	}
	return nil
}

func (d *rdfxmlDecoder) propertyElements(subject Term, scope rdfxmlScope) error {
	li := 0
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return d.wrap(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := d.propertyElement(subject, t, scope, &li); err != nil {
				return err
			}
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return d.errorf("unexpected text between property elements")
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (d *rdfxmlDecoder) propertyElement(subject Term, el xml.StartElement, outer rdfxmlScope, li *int) error {
	scope := outer.enter(el)
	pred, err := d.predicateOf(el, li)
	if err != nil {
		return err
	}
	resource, hasResource := lookupAttr(el.Attr, RDFNamespace, "resource")
	nodeID, hasNodeID := lookupAttr(el.Attr, RDFNamespace, "nodeID")
	parseType, hasParseType := lookupAttr(el.Attr, RDFNamespace, "parseType")
	if hasResource && hasNodeID {
		return d.errorf("rdf:resource and rdf:nodeID are mutually exclusive")
	}
	if hasParseType && (hasResource || hasNodeID) {
		return d.errorf("rdf:parseType cannot be used with rdf:resource or rdf:nodeID")
	}

	switch {
	case hasParseType && parseType == "Resource":
		object := d.graph.NewBlankNode()
		d.graph.Add(subject, pred, object)
		return d.propertyElements(object, scope)
	case hasParseType && parseType == "Collection":
		return d.collection(subject, pred, scope)
	case hasParseType:
		return d.errorf("rdf:parseType %q is not supported", parseType)
	}

	if hasResource || hasNodeID || hasPropertyAttrs(el.Attr) {
		var object Term
		switch {
		case hasResource:
			object = IRI{Value: resolveAgainst(scope.base, resource)}
		case hasNodeID:
			object = d.label(nodeID)
		default:
			object = d.graph.NewBlankNode()
		}
		d.graph.Add(subject, pred, object)
		if err := d.propertyAttributes(object, el.Attr, scope); err != nil {
			return err
		}
		return d.emptyElement(el)
	}

	object, err := d.propertyContent(el, scope)
	if err != nil {
		return err
	}
	d.graph.Add(subject, pred, object)
	return nil
}

func (d *rdfxmlDecoder) predicateOf(el xml.StartElement, li *int) (IRI, error) {
	if el.Name.Space == RDFNamespace {
		if isRDFName(el.Name, "li") {
			*li++
			return IRI{Value: RDFNamespace + "_" + strconv.Itoa(*li)}, nil
		}
		if isRDFSyntaxName(el.Name.Local) || el.Name.Local == "Description" {
			return IRI{}, d.errorf("illegal property element rdf:%s", el.Name.Local)
		}
	}
	if el.Name.Space == "" {
		return IRI{}, d.errorf("property element %s has no namespace", el.Name.Local)
	}
	return IRI{Value: el.Name.Space + el.Name.Local}, nil
}

// propertyContent reads either a literal or a single nested node element.
func (d *rdfxmlDecoder) propertyContent(el xml.StartElement, scope rdfxmlScope) (Term, error) {
	var text strings.Builder
	var object Term
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, d.wrap(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			if object != nil {
				return nil, d.errorf("property element %s has more than one node", el.Name.Local)
			}
			if strings.TrimSpace(text.String()) != "" {
				return nil, d.errorf("property element %s mixes text and elements", el.Name.Local)
			}
			object, err = d.nodeElement(t, scope)
			if err != nil {
				return nil, err
			}
			text.Reset()
		case xml.EndElement:
			if object != nil {
				if strings.TrimSpace(text.String()) != "" {
					return nil, d.errorf("property element %s mixes text and elements", el.Name.Local)
				}
				return object, nil
			}
			if datatype, ok := lookupAttr(el.Attr, RDFNamespace, "datatype"); ok {
				return Literal{Lexical: text.String(), Datatype: IRI{Value: resolveAgainst(scope.base, datatype)}}, nil
			}
			return Literal{Lexical: text.String(), Lang: scope.lang}, nil
		}
	}
}

// collection reads the node elements of a parseType="Collection" property
// into an rdf:first/rdf:rest chain.
func (d *rdfxmlDecoder) collection(subject Term, pred IRI, scope rdfxmlScope) error {
	var items []Term
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return d.wrap(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			item, err := d.nodeElement(t, scope)
			if err != nil {
				return err
			}
			items = append(items, item)
		case xml.EndElement:
			var head Term = RDFNil
			for i := len(items) - 1; i >= 0; i-- {
				cell := d.graph.NewBlankNode()
				d.graph.Add(cell, RDFFirst, items[i])
				d.graph.Add(cell, RDFRest, head)
				head = cell
			}
			d.graph.Add(subject, pred, head)
			return nil
		}
	}
}

func (d *rdfxmlDecoder) emptyElement(el xml.StartElement) error {
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return d.wrap(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return d.errorf("property element %s must be empty", el.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return d.errorf("property element %s must be empty", el.Name.Local)
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (d *rdfxmlDecoder) label(id string) BlankNode {
	if node, ok := d.labels[id]; ok {
		return node
	}
	node := d.graph.NewBlankNode()
	d.labels[id] = node
	return node
}

func (d *rdfxmlDecoder) errorf(format string, args ...interface{}) error {
	line, col := d.dec.InputPos()
	return &ParseError{Format: FormatRDFXML, Line: line, Column: col, Err: fmt.Errorf(format, args...)}
}

func (d *rdfxmlDecoder) wrap(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return err
	}
	line, col := d.dec.InputPos()
	return wrapParseError(FormatRDFXML, "", line, col, err)
}

func isRDFName(name xml.Name, local string) bool {
	return name.Space == RDFNamespace && name.Local == local
}

// isRDFSyntaxName reports names reserved by the RDF/XML grammar that cannot
// be used as node or property elements.
func isRDFSyntaxName(local string) bool {
	switch local {
	case "RDF", "ID", "about", "parseType", "resource", "nodeID", "datatype",
		"bagID", "aboutEach", "aboutEachPrefix":
		return true
	}
	return false
}

func isPropertyAttr(name xml.Name) bool {
	switch {
	case name.Space == "xmlns" || (name.Space == "" && name.Local == "xmlns"):
		return false
	case name.Space == xmlNamespace:
		return false
	case name.Space == "":
		return false
	case name.Space == RDFNamespace && isRDFSyntaxName(name.Local):
		return false
	}
	return true
}

func hasPropertyAttrs(attrs []xml.Attr) bool {
	for _, attr := range attrs {
		if isPropertyAttr(attr.Name) {
			return true
		}
	}
	return false
}

func lookupAttr(attrs []xml.Attr, space, local string) (string, bool) {
	for _, attr := range attrs {
		if attr.Name.Space == space && attr.Name.Local == local {
			return attr.Value, true
		}
	}
	return "", false
}

func resolveAgainst(base, ref string) string {
	if base == "" {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil || rel.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(rel).String()
}
