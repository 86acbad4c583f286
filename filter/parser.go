package filter

import (
	"fmt"
	"strings"
)

// ParseError describes a syntax error in a filter string. It records the
// position of the failure and the offending fragment so hand-written filters
// can be debugged from the message alone.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	frag := e.Input[e.Pos:]
	if len(frag) > 20 {
		frag = frag[:20] + "..."
	}
	if frag == "" {
		return fmt.Sprintf("filter: %s at end of %q", e.Msg, e.Input)
	}
	return fmt.Sprintf("filter: %s at position %d near %q", e.Msg, e.Pos, frag)
}

// Parse parses a filter string into a Node. Two input shapes are accepted:
//
//   - a bare key=value pair, which becomes an equality comparison (or a
//     presence check when the value is exactly "*")
//   - a fully parenthesized LDAP-style expression:
//     (attr=value), (attr>=value), (attr>value), (attr<=value), (attr<value),
//     (attr=*), (attr=sub*string*), (&(f)(f)...), (|(f)(f)...), (!(f))
//
// Malformed input returns a *ParseError; it is never silently recovered into
// a default filter.
func Parse(s string) (Node, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, &ParseError{Input: s, Pos: 0, Msg: "empty filter"}
	}

	if !strings.HasPrefix(trimmed, "(") {
		return parseSimple(trimmed)
	}

	p := &parser{input: trimmed}
	node, err := p.parseFilter()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, p.errorf(p.pos, "unexpected trailing characters")
	}
	return node, nil
}

// parseSimple handles the bare key=value form.
func parseSimple(s string) (Node, error) {
	eq := strings.Index(s, "=")
	if eq < 0 {
		return nil, &ParseError{Input: s, Pos: 0, Msg: "expected key=value"}
	}
	attr := strings.TrimSpace(s[:eq])
	value := strings.TrimSpace(s[eq+1:])
	if attr == "" {
		return nil, &ParseError{Input: s, Pos: 0, Msg: "missing attribute name"}
	}
	if value == "" {
		return nil, &ParseError{Input: s, Pos: eq + 1, Msg: "missing value"}
	}
	if value == "*" {
		return NewPresence(attr), nil
	}
	return NewComparison(attr, OpEqual, value), nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) errorf(pos int, format string, args ...interface{}) *ParseError {
	return &ParseError{Input: p.input, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) peek() byte {
	return p.input[p.pos]
}

func (p *parser) consume(c byte) bool {
	if p.eof() || p.input[p.pos] != c {
		return false
	}
	p.pos++
	return true
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

// parseFilter parses one parenthesized filter starting at the current
// position, consuming the closing parenthesis.
func (p *parser) parseFilter() (Node, error) {
	p.skipSpace()
	open := p.pos
	if !p.consume('(') {
		return nil, p.errorf(p.pos, "expected '('")
	}
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf(open, "unterminated filter")
	}

	var node Node
	switch p.peek() {
	case '&':
		p.pos++
		mark := p.pos
		children, err := p.parseChildren()
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, p.errorf(mark, "empty '&' group")
		}
		node = NewAnd(children...)
	case '|':
		p.pos++
		mark := p.pos
		children, err := p.parseChildren()
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, p.errorf(mark, "empty '|' group")
		}
		node = NewOr(children...)
	case '!':
		p.pos++
		child, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		node = NewNot(child)
	default:
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		node = item
	}

	p.skipSpace()
	if !p.consume(')') {
		return nil, p.errorf(p.pos, "expected ')'")
	}
	return node, nil
}

// parseChildren parses the filter list of a boolean group, stopping at the
// group's closing parenthesis.
func (p *parser) parseChildren() ([]Node, error) {
	var children []Node
	for {
		p.skipSpace()
		if p.eof() || p.peek() != '(' {
			return children, nil
		}
		child, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
}

// parseItem parses "attribute operator value" up to, but not including, the
// closing parenthesis. Multi-character operators are tried before
// single-character ones so ">=" is never read as ">" followed by "=".
func (p *parser) parseItem() (Node, error) {
	start := p.pos
	i := p.pos
	for i < len(p.input) && !isOperatorStart(p.input[i]) && p.input[i] != '(' && p.input[i] != ')' {
		i++
	}
	attr := strings.TrimSpace(p.input[start:i])
	if attr == "" {
		return nil, p.errorf(start, "missing attribute name")
	}
	if i >= len(p.input) || p.input[i] == ')' || p.input[i] == '(' {
		return nil, p.errorf(i, "expected operator")
	}

	var op Operator
	switch {
	case strings.HasPrefix(p.input[i:], ">="):
		op = OpGreaterOrEqual
		i += 2
	case strings.HasPrefix(p.input[i:], "<="):
		op = OpLessOrEqual
		i += 2
	case p.input[i] == '=':
		op = OpEqual
		i++
	case p.input[i] == '>':
		op = OpGreater
		i++
	case p.input[i] == '<':
		op = OpLess
		i++
	default:
		return nil, p.errorf(i, "unknown operator")
	}

	vstart := i
	for i < len(p.input) && p.input[i] != ')' {
		i++
	}
	if i >= len(p.input) {
		return nil, p.errorf(vstart, "missing closing parenthesis")
	}
	value := strings.TrimSpace(p.input[vstart:i])
	if value == "" {
		return nil, p.errorf(vstart, "missing value")
	}
	p.pos = i

	switch {
	case op == OpEqual && value == "*":
		return NewPresence(attr), nil
	case op == OpEqual && strings.Contains(value, "*"):
		return NewSubstring(attr, value), nil
	default:
		return NewComparison(attr, op, value), nil
	}
}

func isOperatorStart(c byte) bool {
	return c == '=' || c == '>' || c == '<'
}
