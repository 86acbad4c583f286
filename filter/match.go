package filter

import (
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

// matchEqual performs case-insensitive equality against a value. Multi-valued
// attributes match when any element matches.
func matchEqual(v Value, target string) bool {
	for _, s := range v.Strings() {
		if strings.EqualFold(s, target) {
			return true
		}
	}
	return false
}

// matchOrdering evaluates the ordering operators (>=, >, <=, <). Both sides
// are coerced to integers when possible and compared numerically; when either
// side does not coerce, the comparison deterministically falls back to
// case-insensitive lexicographic string ordering with the same operator.
// Multi-valued attributes match when any element matches.
func matchOrdering(op Operator, v Value, target string) bool {
	targetNum, targetErr := cast.ToInt64E(target)
	for _, s := range v.Strings() {
		if targetErr == nil {
			if n, err := cast.ToInt64E(s); err == nil {
				if compareInt(op, n, targetNum) {
					return true
				}
				continue
			}
		}
		if compareString(op, strings.ToLower(s), strings.ToLower(target)) {
			return true
		}
	}
	return false
}

func compareInt(op Operator, a, b int64) bool {
	switch op {
	case OpGreaterOrEqual:
		return a >= b
	case OpGreater:
		return a > b
	case OpLessOrEqual:
		return a <= b
	case OpLess:
		return a < b
	default:
		return false
	}
}

func compareString(op Operator, a, b string) bool {
	switch op {
	case OpGreaterOrEqual:
		return a >= b
	case OpGreater:
		return a > b
	case OpLessOrEqual:
		return a <= b
	case OpLess:
		return a < b
	default:
		return false
	}
}

// matchWildcard tests a compiled wildcard pattern against a value. Multi-valued
// attributes match when any element matches.
func matchWildcard(re *regexp.Regexp, v Value) bool {
	for _, s := range v.Strings() {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// compileWildcard translates a pattern containing '*' wildcards into a
// case-insensitive regular expression. Each '*' matches any run of zero or
// more characters; everything else is literal. The pattern is anchored at
// both ends, so anchoring is relaxed only by explicit leading or trailing
// wildcards.
func compileWildcard(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?i)^")
	for i, part := range strings.Split(pattern, "*") {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
