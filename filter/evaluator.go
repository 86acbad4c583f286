package filter

// Evaluate tests whether a record matches a filter tree. It is a total
// function: a node referencing an attribute absent from the record is simply
// false, so malformed data never aborts a scan. Evaluation mutates neither
// the record nor the tree.
func Evaluate(node Node, record Record) bool {
	switch n := node.(type) {
	case *AndNode:
		for _, child := range n.Children {
			if !Evaluate(child, record) {
				return false
			}
		}
		// An empty AND group is vacuously true.
		return true
	case *OrNode:
		for _, child := range n.Children {
			if Evaluate(child, record) {
				return true
			}
		}
		return false
	case *NotNode:
		if n.Child == nil {
			return false
		}
		return !Evaluate(n.Child, record)
	case *PresenceNode:
		v, ok := record.Get(n.Attribute)
		return ok && !v.IsEmpty()
	case *ComparisonNode:
		v, ok := record.Get(n.Attribute)
		if !ok {
			return false
		}
		if n.Op == OpEqual {
			return matchEqual(v, n.Value)
		}
		return matchOrdering(n.Op, v, n.Value)
	case *SubstringNode:
		v, ok := record.Get(n.Attribute)
		if !ok {
			return false
		}
		return matchWildcard(n.re, v)
	default:
		return false
	}
}

// FilterRecords applies node to every record in input order and returns the
// matching subsequence. The input slice is never modified.
func FilterRecords(node Node, records []Record) []Record {
	matched := make([]Record, 0, len(records))
	for _, record := range records {
		if Evaluate(node, record) {
			matched = append(matched, record)
		}
	}
	return matched
}

// Match parses a filter string and evaluates it against a single record.
func Match(filterStr string, record Record) (bool, error) {
	node, err := Parse(filterStr)
	if err != nil {
		return false, err
	}
	return Evaluate(node, record), nil
}
