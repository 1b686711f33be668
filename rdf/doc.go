// Package rdf provides a compact, mutable RDF model for the annotation store.
//
// Copyright 2026 Geoknoesis LLC (www.geoknoesis.com)
//
// The model is built around Graph, an arena of triples indexed by subject,
// predicate and object. Arena indices stay valid across removals, which lets
// List keep head/tail handles into the arena while it is being built:
//
//	g := rdf.NewGraph()
//	items := rdf.NewList(g, page, asItems)
//	for _, iri := range annotations {
//	    _ = items.Append(iri)
//	}
//	items.Close() // terminates with rdf:nil
//
// Graph also implements the two structural operations the object model
// relies on:
//   - Rename rewrites a node in subject and object position in one batch.
//   - SubGraph collects everything reachable from a root node, which splits a
//     multi-subject payload into one graph per resource.
//
// Supported syntaxes:
//   - N-Triples and N-Quads (decode and encode)
//   - Turtle (decode and encode)
//   - RDF/JSON (decode and encode)
//   - RDF/XML (decode and encode)
//   - JSON-LD through json-gold (expand, toRDF, fromRDF, frame, compact)
package rdf
