package rdf

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type rdfJSONObject struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// EncodeRDFJSON serializes g in the RDF/JSON format
// (subject -> predicate -> array of object descriptions).
func EncodeRDFJSON(g *Graph) (string, error) {
	doc := map[string]map[string][]rdfJSONObject{}
	for _, t := range g.Triples() {
		subject := t.S.String()
		if _, ok := doc[subject]; !ok {
			doc[subject] = map[string][]rdfJSONObject{}
		}
		obj, err := toRDFJSONObject(t.O)
		if err != nil {
			return "", err
		}
		doc[subject][t.P.Value] = append(doc[subject][t.P.Value], obj)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeRDFJSON reads an RDF/JSON document into a graph.
func DecodeRDFJSON(r io.Reader) (*Graph, error) {
	var doc map[string]map[string][]rdfJSONObject
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, wrapParseError(FormatRDFJSON, "", 0, 0, err)
	}
	g := NewGraph()
	for subject, predicates := range doc {
		s := Term(IRI{Value: subject})
		if strings.HasPrefix(subject, "_:") {
			s = BlankNode{ID: subject[2:]}
		}
		for predicate, objects := range predicates {
			for _, obj := range objects {
				o, err := fromRDFJSONObject(obj)
				if err != nil {
					return nil, wrapParseError(FormatRDFJSON, subject, 0, 0, err)
				}
				g.Add(s, IRI{Value: predicate}, o)
			}
		}
	}
	return g, nil
}

func toRDFJSONObject(term Term) (rdfJSONObject, error) {
	switch v := term.(type) {
	case IRI:
		return rdfJSONObject{Type: "uri", Value: v.Value}, nil
	case BlankNode:
		return rdfJSONObject{Type: "bnode", Value: v.String()}, nil
	case Literal:
		return rdfJSONObject{Type: "literal", Value: v.Lexical, Lang: v.Lang, Datatype: v.Datatype.Value}, nil
	default:
		return rdfJSONObject{}, fmt.Errorf("rdfjson: unsupported term %T", term)
	}
}

func fromRDFJSONObject(obj rdfJSONObject) (Term, error) {
	switch obj.Type {
	case "uri":
		return IRI{Value: obj.Value}, nil
	case "bnode":
		return BlankNode{ID: strings.TrimPrefix(obj.Value, "_:")}, nil
	case "literal":
		return Literal{Lexical: obj.Value, Lang: obj.Lang, Datatype: IRI{Value: obj.Datatype}}, nil
	default:
		return nil, fmt.Errorf("unknown object type %q", obj.Type)
	}
}
