// Package match implements the concrete match predicates consumed by
// package rule's expression evaluator (§3 Predicate, §4.3.1). Regex
// predicates use regexp2 rather than the standard library's regexp:
// mail-matching rule files commonly rely on backreferences and
// lookaround, which RE2 (and so stdlib regexp) cannot express.
package match

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// CompileRegex compiles pattern with regexp2, case-insensitively when
// caseInsensitive is set. Compilation happens once at rule-load time;
// Match never recompiles.
func CompileRegex(pattern string, caseInsensitive bool) (*regexp2.Regexp, error) {
	opts := regexp2.None
	if caseInsensitive {
		opts = regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, fmt.Errorf("match: invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// findSubmatch runs re against s and, on a match, returns the full match
// plus every capture group (including unmatched groups as "") — the
// shape the RML cache stores (§3, §4.3.1 "regex cache").
func findSubmatch(re *regexp2.Regexp, s string) (groups []string, ok bool, err error) {
	m, err := re.FindStringMatch(s)
	if err != nil {
		return nil, false, fmt.Errorf("match: regex evaluation failed: %w", err)
	}
	if m == nil {
		return nil, false, nil
	}
	gs := m.Groups()
	out := make([]string, len(gs))
	for i, g := range gs {
		if len(g.Captures) > 0 {
			out[i] = g.Capture.String()
		}
	}
	return out, true, nil
}
