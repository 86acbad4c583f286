package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Operator identifies the comparison operator of a ComparisonNode.
type Operator int

const (
	// OpEqual represents an equality comparison (attr=value).
	OpEqual Operator = iota
	// OpGreaterOrEqual represents a greater-or-equal comparison (attr>=value).
	OpGreaterOrEqual
	// OpGreater represents a greater-than comparison (attr>value).
	OpGreater
	// OpLessOrEqual represents a less-or-equal comparison (attr<=value).
	OpLessOrEqual
	// OpLess represents a less-than comparison (attr<value).
	OpLess
)

// String returns the operator as it appears in filter text.
func (op Operator) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpGreaterOrEqual:
		return ">="
	case OpGreater:
		return ">"
	case OpLessOrEqual:
		return "<="
	case OpLess:
		return "<"
	default:
		return "?"
	}
}

// Node is a single node of a parsed filter tree. Nodes are immutable once
// constructed and evaluation never mutates them, so a tree may be shared
// freely between concurrent scans.
type Node interface {
	// String renders the node back into filter text.
	String() string
}

// AndNode matches when every child matches. An AndNode with no children is
// vacuously true.
type AndNode struct {
	Children []Node
}

func (n *AndNode) String() string {
	return "(&" + joinChildren(n.Children) + ")"
}

// OrNode matches when at least one child matches. An OrNode with no children
// matches nothing.
type OrNode struct {
	Children []Node
}

func (n *OrNode) String() string {
	return "(|" + joinChildren(n.Children) + ")"
}

// NotNode negates its child.
type NotNode struct {
	Child Node
}

func (n *NotNode) String() string {
	if n.Child == nil {
		return "(!)"
	}
	return "(!" + n.Child.String() + ")"
}

// ComparisonNode compares an attribute against a literal value. The value is
// kept as the literal string from the filter; numeric coercion happens at
// evaluation time.
type ComparisonNode struct {
	Attribute string
	Op        Operator
	Value     string
}

func (n *ComparisonNode) String() string {
	return fmt.Sprintf("(%s%s%s)", n.Attribute, n.Op, n.Value)
}

// PresenceNode matches when the attribute exists with a non-empty value.
type PresenceNode struct {
	Attribute string
}

func (n *PresenceNode) String() string {
	return "(" + n.Attribute + "=*)"
}

// SubstringNode matches an attribute against a wildcard pattern. The matcher
// is compiled once at construction; '*' matches any run of zero or more
// characters and matching is case-insensitive.
type SubstringNode struct {
	Attribute string
	Pattern   string

	re *regexp.Regexp
}

func (n *SubstringNode) String() string {
	return "(" + n.Attribute + "=" + n.Pattern + ")"
}

// NewAnd creates an AndNode with the given children.
func NewAnd(children ...Node) *AndNode {
	return &AndNode{Children: children}
}

// NewOr creates an OrNode with the given children.
func NewOr(children ...Node) *OrNode {
	return &OrNode{Children: children}
}

// NewNot creates a NotNode negating child.
func NewNot(child Node) *NotNode {
	return &NotNode{Child: child}
}

// NewComparison creates a ComparisonNode for attribute op value.
func NewComparison(attribute string, op Operator, value string) *ComparisonNode {
	return &ComparisonNode{Attribute: attribute, Op: op, Value: value}
}

// NewPresence creates a PresenceNode for attribute.
func NewPresence(attribute string) *PresenceNode {
	return &PresenceNode{Attribute: attribute}
}

// NewSubstring creates a SubstringNode for attribute and a pattern containing
// at least one '*' wildcard.
func NewSubstring(attribute, pattern string) *SubstringNode {
	return &SubstringNode{
		Attribute: attribute,
		Pattern:   pattern,
		re:        compileWildcard(pattern),
	}
}

func joinChildren(children []Node) string {
	var b strings.Builder
	for _, child := range children {
		b.WriteString(child.String())
	}
	return b.String()
}
