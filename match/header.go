package match

import (
	"fmt"

	"github.com/dlclark/regexp2"
	"github.com/mailshim/mailshim/mailmsg"
	"github.com/mailshim/mailshim/types"
)

// HeaderPredicate matches a header's (folded, trimmed) value against a
// regex, caching capture groups on a successful match (§3 Predicate).
// A header that is absent never matches and is not an error.
type HeaderPredicate struct {
	Name string
	Re   *regexp2.Regexp
}

// NewHeaderPredicate compiles pattern and returns a predicate matching
// the named header against it.
func NewHeaderPredicate(name, pattern string, caseInsensitive bool) (*HeaderPredicate, error) {
	re, err := CompileRegex(pattern, caseInsensitive)
	if err != nil {
		return nil, err
	}
	return &HeaderPredicate{Name: name, Re: re}, nil
}

func (p *HeaderPredicate) Match(ctx *types.MatchCtx) (types.MatchResult, error) {
	val, ok := mailmsg.FindHeader(ctx.Mail, p.Name, true)
	if !ok {
		return types.MatchFalse, nil
	}
	groups, matched, err := findSubmatch(p.Re, val)
	if err != nil {
		return types.MatchError, err
	}
	if !matched {
		return types.MatchFalse, nil
	}
	ctx.Mail.RML.Set(groups)
	return types.MatchTrue, nil
}

func (p *HeaderPredicate) Describe() string {
	return fmt.Sprintf("header(%s) =~ %s", p.Name, p.Re.String())
}
