// Package rule implements the rule tree evaluator (§4.3): per-mail
// account gating, the non-short-circuit boolean expression accumulator,
// tag assignment, action dispatch, nested-rule recursion, stop
// propagation, and the implicit keep/drop decision.
package rule

import (
	"fmt"

	"github.com/mailshim/mailshim/types"
)

// EvalExpr evaluates an ordered expression left to right, accumulating
// a boolean result. Every item is evaluated regardless of whether the
// accumulator is already decided: predicates are allowed to have
// observable side effects (populating the RML capture cache), so the
// evaluator never skips one once reached (§4.3.1). A MatchError aborts
// the whole rule walk; its error is returned to the caller wrapped with
// the predicate's description, and package child treats it as a
// per-mail failure (§7).
func EvalExpr(ctx *types.MatchCtx, expr []types.ExprItem) (bool, error) {
	var acc bool
	for i, item := range expr {
		res, err := item.Predicate.Match(ctx)
		if err != nil {
			return false, fmt.Errorf("rule: predicate %q: %w", item.Predicate.Describe(), err)
		}
		if res == types.MatchError {
			return false, fmt.Errorf("rule: predicate %q reported an error result", item.Predicate.Describe())
		}

		cres := res == types.MatchTrue
		if item.Inverted {
			cres = !cres
		}

		switch {
		case i == 0:
			acc = cres
		case item.Op == types.OperatorAnd:
			acc = acc && cres
		default: // OperatorOr, and a subsequent OperatorNone treated as OR
			acc = acc || cres
		}
	}
	return acc, nil
}
