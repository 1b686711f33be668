// Package vocab holds the IRIs of the vocabularies the annotation store reads
// and writes.
package vocab

import "github.com/geoknoesis/wap-go/rdf"

const (
	WAP     = "http://dem.scc.kit.edu/wapserv/ns#"
	OA      = "http://www.w3.org/ns/oa#"
	LDP     = "http://www.w3.org/ns/ldp#"
	AS      = "http://www.w3.org/ns/activitystreams#"
	RDFS    = "http://www.w3.org/2000/01/rdf-schema#"
	DCTerms = "http://purl.org/dc/terms/"
	XSD     = rdf.XSDNamespace
)

// Server bookkeeping.
var (
	Deleted = rdf.NewIRI(WAP + "deleted")
	Etag    = rdf.NewIRI(WAP + "etag")
)

// Web Annotation vocabulary.
var (
	Annotation = rdf.NewIRI(OA + "Annotation")
	HasTarget  = rdf.NewIRI(OA + "hasTarget")
	Via        = rdf.NewIRI(OA + "via")
	Canonical  = rdf.NewIRI(OA + "canonical")

	PreferContainedIRIs         = rdf.NewIRI(OA + "PreferContainedIRIs")
	PreferContainedDescriptions = rdf.NewIRI(OA + "PreferContainedDescriptions")
)

// Linked Data Platform.
var (
	BasicContainer         = rdf.NewIRI(LDP + "BasicContainer")
	Contains               = rdf.NewIRI(LDP + "contains")
	PreferMinimalContainer = rdf.NewIRI(LDP + "PreferMinimalContainer")
	ConstrainedBy          = rdf.NewIRI(LDP + "constrainedBy")
	Resource               = rdf.NewIRI(LDP + "Resource")
)

// ActivityStreams collections.
var (
	OrderedCollection     = rdf.NewIRI(AS + "OrderedCollection")
	OrderedCollectionPage = rdf.NewIRI(AS + "OrderedCollectionPage")
	Items                 = rdf.NewIRI(AS + "items")
	PartOf                = rdf.NewIRI(AS + "partOf")
	TotalItems            = rdf.NewIRI(AS + "totalItems")
	First                 = rdf.NewIRI(AS + "first")
	Last                  = rdf.NewIRI(AS + "last")
	Next                  = rdf.NewIRI(AS + "next")
	Prev                  = rdf.NewIRI(AS + "prev")
	StartIndex            = rdf.NewIRI(AS + "startIndex")
)

// RDF, RDFS and Dublin Core terms.
var (
	Type     = rdf.RDFType
	Seq      = rdf.NewIRI(rdf.RDFNamespace + "Seq")
	Label    = rdf.NewIRI(RDFS + "label")
	Created  = rdf.NewIRI(DCTerms + "created")
	Modified = rdf.NewIRI(DCTerms + "modified")

	DateTime           = rdf.NewIRI(XSD + "dateTime")
	Boolean            = rdf.XSDBoolean
	NonNegativeInteger = rdf.NewIRI(XSD + "nonNegativeInteger")
)

// JSON-LD contexts served for annotations and containers.
const (
	AnnoContext = "http://www.w3.org/ns/anno.jsonld"
	LDPContext  = "http://www.w3.org/ns/ldp.jsonld"
)

// Prefixes used when writing Turtle.
var Prefixes = map[string]string{
	"oa":      OA,
	"ldp":     LDP,
	"as":      AS,
	"rdf":     rdf.RDFNamespace,
	"rdfs":    RDFS,
	"dcterms": DCTerms,
	"xsd":     XSD,
	"wap":     WAP,
}
