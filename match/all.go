package match

import "github.com/mailshim/mailshim/types"

// AllPredicate always matches. It exists so a RuleExpression rule can
// include an unconditional item inside a larger OR/AND chain; a bare
// ALL rule (types.RuleAll) does not go through the predicate path at
// all (§4.3 step 2).
type AllPredicate struct{}

func (AllPredicate) Match(*types.MatchCtx) (types.MatchResult, error) {
	return types.MatchTrue, nil
}

func (AllPredicate) Describe() string { return "all" }
