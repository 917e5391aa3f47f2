package match

import (
	"fmt"

	"github.com/gobwas/glob"
	"github.com/mailshim/mailshim/mailmsg"
	"github.com/mailshim/mailshim/types"
)

// GlobPredicate matches a header's (folded, trimmed) value against a
// shell-style glob, for rule files that write "from *@example.com"
// instead of a full regex (§3 Predicate). It never populates the RML
// cache: there is nothing resembling a capture group in a glob match.
type GlobPredicate struct {
	Name    string
	Pattern string
	g       glob.Glob
}

func NewGlobPredicate(name, pattern string) (*GlobPredicate, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("match: invalid glob %q: %w", pattern, err)
	}
	return &GlobPredicate{Name: name, Pattern: pattern, g: g}, nil
}

func (p *GlobPredicate) Match(ctx *types.MatchCtx) (types.MatchResult, error) {
	val, ok := mailmsg.FindHeader(ctx.Mail, p.Name, true)
	if !ok {
		return types.MatchFalse, nil
	}
	if p.g.Match(val) {
		return types.MatchTrue, nil
	}
	return types.MatchFalse, nil
}

func (p *GlobPredicate) Describe() string {
	return fmt.Sprintf("header(%s) glob %s", p.Name, p.Pattern)
}
