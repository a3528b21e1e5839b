package graph

// Namespaces used throughout the agricultural graph.
const (
	// NS is the base namespace for every entity minted by the builder.
	NS = "http://example.org/agricultura/"

	// Schema is the schema.org vocabulary namespace.
	Schema = "https://schema.org/"

	// RDF is the core RDF vocabulary namespace.
	RDF = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	// OWL is the OWL vocabulary namespace.
	OWL = "http://www.w3.org/2002/07/owl#"

	// XSD is the XML Schema datatype namespace.
	XSD = "http://www.w3.org/2001/XMLSchema#"

	// WD is the Wikidata entity namespace.
	WD = "http://www.wikidata.org/entity/"

	// WDT is the Wikidata direct-property namespace. No stored fact uses it,
	// but exports declare it alongside wd: for consumers that query them.
	WDT = "http://www.wikidata.org/prop/direct/"
)

// Classes assigned to minted entities.
const (
	SchemaPlace             = Schema + "Place"
	SchemaProduct           = Schema + "Product"
	SchemaEvent             = Schema + "Event"
	SchemaQuantitativeValue = Schema + "QuantitativeValue"
	SchemaMonetaryAmount    = Schema + "MonetaryAmount"
	SchemaGeoCoordinates    = Schema + "GeoCoordinates"
)

// Properties used on minted entities.
const (
	RDFType = RDF + "type"

	OWLSameAs = OWL + "sameAs"

	SchemaName               = Schema + "name"
	SchemaAdditionalType     = Schema + "additionalType"
	SchemaContainedInPlace   = Schema + "containedInPlace"
	SchemaCategory           = Schema + "category"
	SchemaLocation           = Schema + "location"
	SchemaAbout              = Schema + "about"
	SchemaArea               = Schema + "area"
	SchemaAdditionalProperty = Schema + "additionalProperty"
	SchemaValue              = Schema + "value"
	SchemaUnitCode           = Schema + "unitCode"
	SchemaCurrency           = Schema + "currency"
	SchemaGeo                = Schema + "geo"
	SchemaLatitude           = Schema + "latitude"
	SchemaLongitude          = Schema + "longitude"
	SchemaPopulation         = Schema + "population"
)

// Datatypes attached to typed literals.
const (
	XSDDecimal = XSD + "decimal"
	XSDInteger = XSD + "integer"
	XSDDouble  = XSD + "double"
)

// namespacePrefixes maps the short prefixes used by the serializers to their
// namespaces, in the order they are declared in an export.
var namespacePrefixes = []struct {
	Prefix string
	NS     string
}{
	{"ex", NS},
	{"schema", Schema},
	{"rdf", RDF},
	{"owl", OWL},
	{"xsd", XSD},
	{"wd", WD},
	{"wdt", WDT},
}
