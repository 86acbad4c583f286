// Package filter parses and evaluates LDAP-style boolean filter expressions
// against directory records.
//
// A filter is either a bare key=value pair or a fully parenthesized
// expression:
//
//	(cn=alice)
//	(uidNumber>=1000)
//	(mail=*)
//	(cn=jo*n*)
//	(&(memberOf=Admins)(!(userAccountControl>=514)))
//
// Parse turns a filter string into an immutable tree of Node values and
// Evaluate walks the tree against one Record, an attribute-value map whose
// values are strings, integers, or lists of strings. Attribute names match
// case-insensitively. FilterRecords applies a tree to a slice of records and
// returns the matching subsequence in input order.
//
// Evaluation is total: missing attributes and values that fail numeric
// coercion make the enclosing predicate false instead of raising an error.
// Only malformed filter syntax produces an error, reported as a *ParseError
// naming the offending fragment.
package filter
