package graph

import (
	"encoding/json"
	"io"
	"strings"
)

// EncodeJSONLD writes the graph as a flat JSON-LD document: a @context with
// the namespace prefixes and one @graph node per subject.
func EncodeJSONLD(w io.Writer, g *Store) error {
	context := make(map[string]string, len(namespacePrefixes))
	for _, p := range namespacePrefixes {
		context[p.Prefix] = p.NS
	}

	var subjects []string
	bySubject := make(map[string][]Triple)
	for _, t := range g.Triples() {
		if _, ok := bySubject[t.Subject]; !ok {
			subjects = append(subjects, t.Subject)
		}
		bySubject[t.Subject] = append(bySubject[t.Subject], t)
	}

	nodes := make([]map[string]interface{}, 0, len(subjects))
	for _, s := range subjects {
		node := map[string]interface{}{"@id": compactIRI(s)}
		for _, t := range bySubject[s] {
			if t.Predicate == RDFType && t.Object.Kind == IRITerm {
				node["@type"] = appendValue(node["@type"], compactIRI(t.Object.Value))
				continue
			}
			key := compactIRI(t.Predicate)
			node[key] = appendValue(node[key], jsonLDObject(t.Object))
		}
		nodes = append(nodes, node)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(map[string]interface{}{
		"@context": context,
		"@graph":   nodes,
	})
}

// appendValue keeps single values scalar and grows a slice only when a
// predicate repeats, the shape JSON-LD consumers expect.
func appendValue(existing interface{}, v interface{}) interface{} {
	switch cur := existing.(type) {
	case nil:
		return v
	case []interface{}:
		return append(cur, v)
	default:
		return []interface{}{cur, v}
	}
}

func jsonLDObject(t Term) interface{} {
	if t.Kind == IRITerm {
		return map[string]interface{}{"@id": compactIRI(t.Value)}
	}
	switch {
	case t.Lang != "":
		return map[string]interface{}{"@value": t.Value, "@language": t.Lang}
	case t.Datatype != "":
		return map[string]interface{}{"@value": t.Value, "@type": compactIRI(t.Datatype)}
	default:
		return t.Value
	}
}

// compactIRI shortens an IRI with the export prefixes where possible. JSON-LD
// allows any local part after the prefix, unlike Turtle.
func compactIRI(iri string) string {
	for _, p := range namespacePrefixes {
		if rest, ok := strings.CutPrefix(iri, p.NS); ok && rest != "" {
			return p.Prefix + ":" + rest
		}
	}
	return iri
}
