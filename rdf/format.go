package rdf

// Format identifies RDF serialization formats.
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
	FormatNQuads   Format = "nquads"
	FormatRDFXML   Format = "rdfxml"
	FormatRDFJSON  Format = "rdfjson"
	FormatJSONLD   Format = "jsonld"
)

