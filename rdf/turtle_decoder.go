package rdf

import (
	"fmt"
	"io"
	"net/url"
	"strings"
)

// DecodeTurtle reads a Turtle document into a graph. baseIRI resolves
// relative IRI references and may be empty.
func DecodeTurtle(r io.Reader, baseIRI string) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapParseError(FormatTurtle, "", 0, 0, err)
	}
	c := &turtleCursor{
		input:    string(data),
		prefixes: map[string]string{},
		base:     baseIRI,
		graph:    NewGraph(),
	}
	for {
		c.skipWS()
		if c.eof() {
			return c.graph, nil
		}
		if err := c.parseStatement(); err != nil {
			return nil, err
		}
	}
}

type turtleCursor struct {
	input    string
	pos      int
	prefixes map[string]string
	base     string
	graph    *Graph
	labels   map[string]BlankNode
}

func (c *turtleCursor) eof() bool { return c.pos >= len(c.input) }

func (c *turtleCursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.input[c.pos]
}

func (c *turtleCursor) skipWS() {
	for !c.eof() {
		switch c.input[c.pos] {
		case ' ', '\t', '\r', '\n':
			c.pos++
		case '#':
			for !c.eof() && c.input[c.pos] != '\n' {
				c.pos++
			}
		default:
			return
		}
	}
}

func (c *turtleCursor) consume(ch byte) bool {
	c.skipWS()
	if c.peek() == ch {
		c.pos++
		return true
	}
	return false
}

func (c *turtleCursor) hasKeyword(word string) bool {
	end := c.pos + len(word)
	if end > len(c.input) || !strings.EqualFold(c.input[c.pos:end], word) {
		return false
	}
	return end == len(c.input) || !isNameChar(c.input[end])
}

func (c *turtleCursor) parseStatement() error {
	switch {
	case strings.HasPrefix(c.input[c.pos:], "@prefix"):
		c.pos += len("@prefix")
		return c.parsePrefix(true)
	case strings.HasPrefix(c.input[c.pos:], "@base"):
		c.pos += len("@base")
		return c.parseBase(true)
	case c.hasKeyword("PREFIX"):
		c.pos += len("PREFIX")
		return c.parsePrefix(false)
	case c.hasKeyword("BASE"):
		c.pos += len("BASE")
		return c.parseBase(false)
	}
	subject, err := c.parseSubject()
	if err != nil {
		return err
	}
	c.skipWS()
	if c.peek() == '.' {
		// a bare blank node property list is a complete statement
		if _, ok := subject.(BlankNode); ok {
			c.pos++
			return nil
		}
	}
	if err := c.parsePredicateObjectList(subject); err != nil {
		return err
	}
	if !c.consume('.') {
		return c.errorf("expected '.' at end of statement")
	}
	return nil
}

func (c *turtleCursor) parsePrefix(atForm bool) error {
	c.skipWS()
	start := c.pos
	for !c.eof() && c.input[c.pos] != ':' {
		c.pos++
	}
	if c.eof() {
		return c.errorf("expected ':' in prefix declaration")
	}
	name := strings.TrimSpace(c.input[start:c.pos])
	c.pos++
	iri, err := c.parseIRIRef()
	if err != nil {
		return err
	}
	c.prefixes[name] = iri.Value
	if atForm && !c.consume('.') {
		return c.errorf("expected '.' after @prefix")
	}
	return nil
}

func (c *turtleCursor) parseBase(atForm bool) error {
	iri, err := c.parseIRIRef()
	if err != nil {
		return err
	}
	c.base = iri.Value
	if atForm && !c.consume('.') {
		return c.errorf("expected '.' after @base")
	}
	return nil
}

func (c *turtleCursor) parseSubject() (Term, error) {
	c.skipWS()
	switch c.peek() {
	case '[':
		return c.parseBlankNodePropertyList()
	case '(':
		return c.parseCollection()
	}
	term, err := c.parseTerm(false)
	if err != nil {
		return nil, err
	}
	return term, nil
}

func (c *turtleCursor) parsePredicate() (IRI, error) {
	c.skipWS()
	if c.peek() == 'a' && c.pos+1 < len(c.input) && !isNameChar(c.input[c.pos+1]) && c.input[c.pos+1] != ':' {
		c.pos++
		return RDFType, nil
	}
	term, err := c.parseTerm(false)
	if err != nil {
		return IRI{}, err
	}
	iri, ok := term.(IRI)
	if !ok {
		return IRI{}, c.errorf("predicate must be an IRI")
	}
	return iri, nil
}

func (c *turtleCursor) parsePredicateObjectList(subject Term) error {
	for {
		predicate, err := c.parsePredicate()
		if err != nil {
			return err
		}
		if err := c.parseObjectList(subject, predicate); err != nil {
			return err
		}
		if !c.consume(';') {
			return nil
		}
		// trailing or repeated semicolons are allowed
		for c.consume(';') {
		}
		c.skipWS()
		switch c.peek() {
		case '.', ']', 0:
			return nil
		}
	}
}

func (c *turtleCursor) parseObjectList(subject Term, predicate IRI) error {
	for {
		object, err := c.parseObject()
		if err != nil {
			return err
		}
		c.graph.Add(subject, predicate, object)
		if !c.consume(',') {
			return nil
		}
	}
}

func (c *turtleCursor) parseObject() (Term, error) {
	c.skipWS()
	switch c.peek() {
	case '[':
		return c.parseBlankNodePropertyList()
	case '(':
		return c.parseCollection()
	}
	return c.parseTerm(true)
}

func (c *turtleCursor) parseBlankNodePropertyList() (Term, error) {
	c.pos++
	node := c.graph.NewBlankNode()
	if c.consume(']') {
		return node, nil
	}
	if err := c.parsePredicateObjectList(node); err != nil {
		return nil, err
	}
	if !c.consume(']') {
		return nil, c.errorf("expected ']'")
	}
	return node, nil
}

func (c *turtleCursor) parseCollection() (Term, error) {
	c.pos++
	var items []Term
	for {
		if c.consume(')') {
			break
		}
		if c.eof() {
			return nil, c.errorf("unterminated collection")
		}
		item, err := c.parseObject()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return RDFNil, nil
	}
	head := c.graph.NewBlankNode()
	cell := head
	for i, item := range items {
		c.graph.Add(cell, RDFFirst, item)
		if i == len(items)-1 {
			c.graph.Add(cell, RDFRest, RDFNil)
			break
		}
		next := c.graph.NewBlankNode()
		c.graph.Add(cell, RDFRest, next)
		cell = next
	}
	return head, nil
}

func (c *turtleCursor) parseTerm(allowLiteral bool) (Term, error) {
	c.skipWS()
	if c.eof() {
		return nil, c.errorf("unexpected end of input")
	}
	ch := c.peek()
	switch {
	case ch == '<':
		return c.parseIRIRef()
	case strings.HasPrefix(c.input[c.pos:], "_:"):
		return c.parseBlankNode()
	case ch == '"' || ch == '\'':
		if !allowLiteral {
			return nil, c.errorf("literal not allowed here")
		}
		return c.parseLiteral()
	case allowLiteral && (ch == '+' || ch == '-' || ch == '.' || (ch >= '0' && ch <= '9')):
		if lit, ok := c.tryParseNumericLiteral(); ok {
			return lit, nil
		}
		return nil, c.errorf("invalid numeric literal")
	case allowLiteral && (c.hasKeyword("true") || c.hasKeyword("false")):
		value := "true"
		if c.hasKeyword("false") {
			value = "false"
		}
		c.pos += len(value)
		return Literal{Lexical: value, Datatype: XSDBoolean}, nil
	default:
		return c.parsePrefixedName()
	}
}

func (c *turtleCursor) parseIRIRef() (IRI, error) {
	if !c.consume('<') {
		return IRI{}, c.errorf("expected IRI")
	}
	end := strings.IndexByte(c.input[c.pos:], '>')
	if end < 0 {
		return IRI{}, c.errorf("unterminated IRI")
	}
	raw, err := unescapeString(c.input[c.pos : c.pos+end])
	if err != nil {
		return IRI{}, c.errorf("%v", err)
	}
	c.pos += end + 1
	return IRI{Value: c.resolve(raw)}, nil
}

func (c *turtleCursor) resolve(ref string) string {
	if c.base == "" {
		return ref
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	base, err := url.Parse(c.base)
	if err != nil {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(rel).String()
}

func (c *turtleCursor) parsePrefixedName() (Term, error) {
	start := c.pos
	for !c.eof() && c.input[c.pos] != ':' && isNameChar(c.input[c.pos]) {
		c.pos++
	}
	if c.peek() != ':' {
		return nil, c.errorf("unexpected token %q", c.input[start:min(len(c.input), start+10)])
	}
	prefix := c.input[start:c.pos]
	c.pos++
	localStart := c.pos
	for !c.eof() && (isNameChar(c.input[c.pos]) || c.input[c.pos] == ':' || c.input[c.pos] == '%' || c.input[c.pos] == '\\') {
		if c.input[c.pos] == '\\' {
			c.pos++
		}
		c.pos++
	}
	// a trailing '.' terminates the statement
	for c.pos > localStart && c.input[c.pos-1] == '.' {
		c.pos--
	}
	ns, ok := c.prefixes[prefix]
	if !ok {
		return nil, c.errorf("undefined prefix %q", prefix)
	}
	local := strings.ReplaceAll(c.input[localStart:c.pos], "\\", "")
	return IRI{Value: ns + local}, nil
}

func (c *turtleCursor) parseBlankNode() (Term, error) {
	c.pos += 2
	start := c.pos
	for !c.eof() && isNameChar(c.input[c.pos]) {
		c.pos++
	}
	for c.pos > start && c.input[c.pos-1] == '.' {
		c.pos--
	}
	if start == c.pos {
		return nil, c.errorf("blank node id missing")
	}
	label := c.input[start:c.pos]
	if c.labels == nil {
		c.labels = map[string]BlankNode{}
	}
	if node, ok := c.labels[label]; ok {
		return node, nil
	}
	node := c.graph.NewBlankNode()
	c.labels[label] = node
	return node, nil
}

func (c *turtleCursor) parseLiteral() (Term, error) {
	quote := c.input[c.pos]
	long := strings.Repeat(string(quote), 3)
	var raw string
	if strings.HasPrefix(c.input[c.pos:], long) {
		c.pos += 3
		end := strings.Index(c.input[c.pos:], long)
		for end > 0 && c.input[c.pos+end-1] == '\\' {
			next := strings.Index(c.input[c.pos+end+1:], long)
			if next < 0 {
				end = -1
				break
			}
			end += next + 1
		}
		if end < 0 {
			return nil, c.errorf("unterminated long string")
		}
		raw = c.input[c.pos : c.pos+end]
		c.pos += end + 3
	} else {
		c.pos++
		start := c.pos
		for !c.eof() && c.input[c.pos] != quote {
			if c.input[c.pos] == '\\' {
				c.pos += 2
				continue
			}
			if c.input[c.pos] == '\n' {
				return nil, c.errorf("newline in short string")
			}
			c.pos++
		}
		if c.eof() {
			return nil, c.errorf("unterminated string")
		}
		raw = c.input[start:c.pos]
		c.pos++
	}
	lexical, err := unescapeString(raw)
	if err != nil {
		return nil, c.errorf("%v", err)
	}
	switch {
	case c.peek() == '@':
		c.pos++
		start := c.pos
		for !c.eof() && (isAlnum(c.input[c.pos]) || c.input[c.pos] == '-') {
			c.pos++
		}
		return Literal{Lexical: lexical, Lang: c.input[start:c.pos]}, nil
	case strings.HasPrefix(c.input[c.pos:], "^^"):
		c.pos += 2
		dt, err := c.parseTerm(false)
		if err != nil {
			return nil, err
		}
		iri, ok := dt.(IRI)
		if !ok {
			return nil, c.errorf("datatype must be an IRI")
		}
		return Literal{Lexical: lexical, Datatype: iri}, nil
	}
	return Literal{Lexical: lexical}, nil
}

func (c *turtleCursor) tryParseNumericLiteral() (Literal, bool) {
	start := c.pos
	i := c.pos
	if i < len(c.input) && (c.input[i] == '+' || c.input[i] == '-') {
		i++
	}
	digits, dot, exp := 0, false, false
	for i < len(c.input) {
		ch := c.input[i]
		switch {
		case ch >= '0' && ch <= '9':
			digits++
		case ch == '.' && !dot && !exp && i+1 < len(c.input) && c.input[i+1] >= '0' && c.input[i+1] <= '9':
			dot = true
		case (ch == 'e' || ch == 'E') && !exp && digits > 0:
			exp = true
			if i+1 < len(c.input) && (c.input[i+1] == '+' || c.input[i+1] == '-') {
				i++
			}
		default:
			goto done
		}
		i++
	}
done:
	if digits == 0 {
		return Literal{}, false
	}
	c.pos = i
	lexical := c.input[start:i]
	switch {
	case exp:
		return Literal{Lexical: lexical, Datatype: XSDDouble}, true
	case dot:
		return Literal{Lexical: lexical, Datatype: XSDDecimal}, true
	default:
		return Literal{Lexical: lexical, Datatype: XSDInteger}, true
	}
}

func (c *turtleCursor) errorf(format string, args ...interface{}) error {
	line := 1 + strings.Count(c.input[:min(c.pos, len(c.input))], "\n")
	col := c.pos - strings.LastIndexByte(c.input[:min(c.pos, len(c.input))], '\n')
	excerpt := c.input[c.pos:min(len(c.input), c.pos+40)]
	return &ParseError{Format: FormatTurtle, Statement: excerpt, Line: line, Column: col, Err: fmt.Errorf(format, args...)}
}
