package graph

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// EncodeTurtle writes the graph as Turtle. Facts are grouped by subject in
// first-seen order, so re-encoding a decoded graph is stable.
func EncodeTurtle(w io.Writer, g *Store) error {
	bw := bufio.NewWriter(w)
	for _, p := range namespacePrefixes {
		fmt.Fprintf(bw, "@prefix %s: <%s> .\n", p.Prefix, p.NS)
	}
	bw.WriteByte('\n')

	triples := g.Triples()
	var subjects []string
	bySubject := make(map[string][]Triple)
	for _, t := range triples {
		if _, ok := bySubject[t.Subject]; !ok {
			subjects = append(subjects, t.Subject)
		}
		bySubject[t.Subject] = append(bySubject[t.Subject], t)
	}

	for _, s := range subjects {
		bw.WriteString(formatIRI(s))
		bw.WriteByte(' ')
		for i, t := range bySubject[s] {
			if i > 0 {
				bw.WriteString(" ;\n    ")
			}
			bw.WriteString(formatPredicate(t.Predicate))
			bw.WriteByte(' ')
			bw.WriteString(formatTerm(t.Object))
		}
		bw.WriteString(" .\n\n")
	}
	return bw.Flush()
}

// formatPredicate prints a predicate, using the 'a' shorthand for rdf:type.
func formatPredicate(iri string) string {
	if iri == RDFType {
		return "a"
	}
	return formatIRI(iri)
}

// formatIRI prints an IRI, compacted to a prefixed name when the local part
// stays within the safe charset, in angle brackets otherwise.
func formatIRI(iri string) string {
	for _, p := range namespacePrefixes {
		if rest, ok := strings.CutPrefix(iri, p.NS); ok && safeLocal(rest) {
			return p.Prefix + ":" + rest
		}
	}
	return "<" + iri + ">"
}

// safeLocal reports whether a local name can appear in a prefixed name
// without escaping. Entity paths with '/' fall back to full IRIs.
func safeLocal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

func formatTerm(t Term) string {
	if t.Kind == IRITerm {
		return formatIRI(t.Value)
	}
	quoted := `"` + escapeLiteral(t.Value) + `"`
	switch {
	case t.Lang != "":
		return quoted + "@" + t.Lang
	case t.Datatype != "":
		return quoted + "^^" + formatIRI(t.Datatype)
	default:
		return quoted
	}
}

func escapeLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DecodeTurtle reads a Turtle document into a new store. It covers the
// subset this package writes, which includes every N-Triples document, plus
// prefixed names, the 'a' shorthand, object and predicate lists, comments
// and numeric shorthand.
func DecodeTurtle(r io.Reader) (*Store, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	p := &ttlParser{src: string(src), line: 1, prefixes: make(map[string]string)}
	g := NewStore()
	for {
		p.skipWS()
		if p.eof() {
			return g, nil
		}
		if p.lit("@prefix") {
			if err := p.parsePrefix(); err != nil {
				return nil, err
			}
			continue
		}
		if err := p.parseStatement(g); err != nil {
			return nil, err
		}
	}
}

type ttlParser struct {
	src      string
	pos      int
	line     int
	prefixes map[string]string
}

func (p *ttlParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *ttlParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

// lit consumes s if it appears at the cursor.
func (p *ttlParser) lit(s string) bool {
	if strings.HasPrefix(p.src[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *ttlParser) skipWS() {
	for !p.eof() {
		switch c := p.src[p.pos]; {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '#':
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *ttlParser) errf(format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", p.line, fmt.Sprintf(format, args...))
}

func (p *ttlParser) expect(c byte) error {
	p.skipWS()
	if p.peek() != c {
		return p.errf("expected %q", string(c))
	}
	p.pos++
	return nil
}

func (p *ttlParser) parsePrefix() error {
	p.skipWS()
	start := p.pos
	for !p.eof() && p.src[p.pos] != ':' {
		p.pos++
	}
	if p.eof() {
		return p.errf("unterminated @prefix")
	}
	name := strings.TrimSpace(p.src[start:p.pos])
	p.pos++ // ':'

	p.skipWS()
	ns, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	p.prefixes[name] = ns
	return p.expect('.')
}

func (p *ttlParser) parseStatement(g *Store) error {
	subject, err := p.parseIRI()
	if err != nil {
		return err
	}

	for {
		p.skipWS()
		predicate, err := p.parsePredicate()
		if err != nil {
			return err
		}

		for {
			p.skipWS()
			object, err := p.parseObject()
			if err != nil {
				return err
			}
			g.Add(subject, predicate, object)

			p.skipWS()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}

		p.skipWS()
		switch p.peek() {
		case ';':
			p.pos++
			p.skipWS()
			if p.peek() == '.' { // trailing semicolon
				p.pos++
				return nil
			}
			continue
		case '.':
			p.pos++
			return nil
		default:
			return p.errf("expected ';' or '.' after object")
		}
	}
}

func (p *ttlParser) parsePredicate() (string, error) {
	// 'a' shorthand, only when followed by whitespace.
	if p.peek() == 'a' && p.pos+1 < len(p.src) {
		switch p.src[p.pos+1] {
		case ' ', '\t', '\r', '\n', '<':
			p.pos++
			return RDFType, nil
		}
	}
	return p.parseIRI()
}

// parseIRI reads either an angle-bracketed IRI or a prefixed name.
func (p *ttlParser) parseIRI() (string, error) {
	if p.peek() == '<' {
		return p.parseIRIRef()
	}
	return p.parsePrefixedName()
}

func (p *ttlParser) parseIRIRef() (string, error) {
	if p.peek() != '<' {
		return "", p.errf("expected IRI")
	}
	p.pos++
	start := p.pos
	for !p.eof() && p.src[p.pos] != '>' {
		if p.src[p.pos] == '\n' {
			return "", p.errf("unterminated IRI")
		}
		p.pos++
	}
	if p.eof() {
		return "", p.errf("unterminated IRI")
	}
	iri := p.src[start:p.pos]
	p.pos++
	return iri, nil
}

func (p *ttlParser) parsePrefixedName() (string, error) {
	start := p.pos
	for !p.eof() && isPNChar(p.src[p.pos]) {
		p.pos++
	}
	if p.eof() || p.src[p.pos] != ':' {
		return "", p.errf("expected prefixed name")
	}
	prefix := p.src[start:p.pos]
	p.pos++

	ns, ok := p.prefixes[prefix]
	if !ok {
		return "", p.errf("unknown prefix %q", prefix)
	}

	start = p.pos
	for !p.eof() && isPNChar(p.src[p.pos]) {
		p.pos++
	}
	return ns + p.src[start:p.pos], nil
}

func isPNChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	}
	return false
}

func (p *ttlParser) parseObject() (Term, error) {
	switch c := p.peek(); {
	case c == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return Term{}, err
		}
		return IRI(iri), nil
	case c == '"':
		return p.parseLiteral()
	case c == '+' || c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		iri, err := p.parsePrefixedName()
		if err != nil {
			return Term{}, err
		}
		return IRI(iri), nil
	}
}

func (p *ttlParser) parseLiteral() (Term, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for {
		if p.eof() {
			return Term{}, p.errf("unterminated literal")
		}
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return p.literalSuffix(b.String())
		case '\\':
			p.pos++
			if p.eof() {
				return Term{}, p.errf("unterminated escape")
			}
			switch e := p.src[p.pos]; e {
			case 't':
				b.WriteByte('\t')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'u', 'U':
				n := 4
				if e == 'U' {
					n = 8
				}
				if p.pos+n >= len(p.src) {
					return Term{}, p.errf("truncated unicode escape")
				}
				var r rune
				if _, err := fmt.Sscanf(p.src[p.pos+1:p.pos+1+n], "%x", &r); err != nil || !utf8.ValidRune(r) {
					return Term{}, p.errf("bad unicode escape")
				}
				b.WriteRune(r)
				p.pos += n
			default:
				return Term{}, p.errf("unknown escape \\%c", e)
			}
			p.pos++
		case '\n':
			return Term{}, p.errf("newline in literal")
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

// literalSuffix reads an optional language tag or datatype after the closing
// quote.
func (p *ttlParser) literalSuffix(value string) (Term, error) {
	switch {
	case p.peek() == '@':
		p.pos++
		start := p.pos
		for !p.eof() {
			c := p.src[p.pos]
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' {
				p.pos++
				continue
			}
			break
		}
		if p.pos == start {
			return Term{}, p.errf("empty language tag")
		}
		return Text(value, p.src[start:p.pos]), nil
	case p.lit("^^"):
		dt, err := p.parseIRI()
		if err != nil {
			return Term{}, err
		}
		return Typed(value, dt), nil
	default:
		return Literal(value), nil
	}
}

func (p *ttlParser) parseNumber() (Term, error) {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	tok := p.src[start:p.pos]
	// A trailing dot is the statement terminator, not part of the number.
	if strings.HasSuffix(tok, ".") {
		tok = tok[:len(tok)-1]
		p.pos--
	}
	if tok == "" || tok == "+" || tok == "-" {
		return Term{}, p.errf("bad numeric literal")
	}
	switch {
	case strings.ContainsAny(tok, "eE"):
		return Typed(tok, XSDDouble), nil
	case strings.Contains(tok, "."):
		return Typed(tok, XSDDecimal), nil
	default:
		return Typed(tok, XSDInteger), nil
	}
}
