package graph

import (
	"bufio"
	"io"
)

// EncodeNTriples writes the graph as N-Triples, one fact per line in
// insertion order. The output is also valid Turtle, so DecodeTurtle reads
// it back.
func EncodeNTriples(w io.Writer, g *Store) error {
	bw := bufio.NewWriter(w)
	for _, t := range g.Triples() {
		bw.WriteByte('<')
		bw.WriteString(t.Subject)
		bw.WriteString("> <")
		bw.WriteString(t.Predicate)
		bw.WriteString("> ")
		writeNTTerm(bw, t.Object)
		bw.WriteString(" .\n")
	}
	return bw.Flush()
}

func writeNTTerm(bw *bufio.Writer, t Term) {
	if t.Kind == IRITerm {
		bw.WriteByte('<')
		bw.WriteString(t.Value)
		bw.WriteByte('>')
		return
	}
	bw.WriteByte('"')
	bw.WriteString(escapeLiteral(t.Value))
	bw.WriteByte('"')
	switch {
	case t.Lang != "":
		bw.WriteByte('@')
		bw.WriteString(t.Lang)
	case t.Datatype != "":
		bw.WriteString("^^<")
		bw.WriteString(t.Datatype)
		bw.WriteByte('>')
	}
}
