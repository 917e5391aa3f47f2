package match

import (
	"fmt"

	"github.com/dlclark/regexp2"
	"github.com/mailshim/mailshim/mailmsg"
	"github.com/mailshim/mailshim/types"
)

// BodyPredicate matches the mail body against a regex. The caller is
// responsible for switching the mail into its unwrapped view before any
// BodyPredicate runs and back to wrapped afterward (§3 invariant);
// package child does this around the whole rule walk. BodyPredicate
// itself only reads.
type BodyPredicate struct {
	Re *regexp2.Regexp
}

func NewBodyPredicate(pattern string, caseInsensitive bool) (*BodyPredicate, error) {
	re, err := CompileRegex(pattern, caseInsensitive)
	if err != nil {
		return nil, err
	}
	return &BodyPredicate{Re: re}, nil
}

func (p *BodyPredicate) Match(ctx *types.MatchCtx) (types.MatchResult, error) {
	m := ctx.Mail
	mailmsg.ResolveBody(m)
	if m.Body < 0 || m.Body >= m.Size {
		return types.MatchFalse, nil
	}
	body := string(m.Bytes[m.Body:m.Size])
	groups, matched, err := findSubmatch(p.Re, body)
	if err != nil {
		return types.MatchError, err
	}
	if !matched {
		return types.MatchFalse, nil
	}
	m.RML.Set(groups)
	return types.MatchTrue, nil
}

func (p *BodyPredicate) Describe() string {
	return fmt.Sprintf("body =~ %s", p.Re.String())
}
