package match

import (
	"fmt"

	"github.com/mailshim/mailshim/types"
)

// TaggedPredicate matches if the named tag is present on the mail, with
// an optional exact-value requirement (empty Value means "any value");
// it lets a later rule branch on tags an earlier rule set (§3, §4.3
// step 3).
type TaggedPredicate struct {
	Key   string
	Value string
}

func (p *TaggedPredicate) Match(ctx *types.MatchCtx) (types.MatchResult, error) {
	v, ok := ctx.Mail.Tags.Get(p.Key)
	if !ok {
		return types.MatchFalse, nil
	}
	if p.Value != "" && v != p.Value {
		return types.MatchFalse, nil
	}
	return types.MatchTrue, nil
}

func (p *TaggedPredicate) Describe() string {
	if p.Value == "" {
		return fmt.Sprintf("tagged(%s)", p.Key)
	}
	return fmt.Sprintf("tagged(%s=%s)", p.Key, p.Value)
}
