package rule

import (
	"fmt"

	"github.com/mailshim/mailshim/interp"
	"github.com/mailshim/mailshim/log"
	"github.com/mailshim/mailshim/types"
)

// Dispatcher is the narrow surface the evaluator needs from the action
// dispatcher (C5, §4.5): resolve and carry out one named action against
// the mail currently under evaluation. Package action's dispatcher
// implements this.
type Dispatcher interface {
	Dispatch(ctx *types.MatchCtx, actionName string, r *types.Rule) error
}

// Evaluate walks rules against ctx.Mail in order (§4.3), then, unless a
// Stop fired anywhere in the walk, resolves the implicit decision
// against the configured implicit value, then applies the keep-all
// overrides — account-level or global — which always win, even over a
// Stop that skipped the implicit-decision step (§4.3 "global override").
func Evaluate(ctx *types.MatchCtx, rules []*types.Rule, dispatch Dispatcher, implicit types.Decision, keepAll bool, logger *log.Logger) error {
	stopped, err := walk(ctx, rules, dispatch)
	if err != nil {
		return err
	}
	if !stopped {
		resolveImplicit(ctx, implicit, logger)
	}
	if ctx.Account.Keep || keepAll {
		ctx.Mail.Decision = types.DecisionKeep
	}
	return nil
}

// resolveImplicit applies the configured implicit decision once the
// walk runs out without a Stop (§4.3 step 7). It is a flat configured
// value, independent of whether any rule actually matched: DecisionNone
// ("no choice configured") resolves to keep, with a warning, per §9.
func resolveImplicit(ctx *types.MatchCtx, implicit types.Decision, logger *log.Logger) {
	switch implicit {
	case types.DecisionDrop:
		ctx.Mail.Decision = types.DecisionDrop
	case types.DecisionKeep:
		ctx.Mail.Decision = types.DecisionKeep
	default:
		if logger != nil {
			logger.Warn("no implicit decision configured, defaulting to keep", nil)
		}
		ctx.Mail.Decision = types.DecisionKeep
	}
}

// walk processes one level of the rule tree, returning whether a Stop
// fired anywhere in this subtree (propagated straight up through the
// recursion, per §4.3 step 6: "stop" is not scoped to Rules).
func walk(ctx *types.MatchCtx, rules []*types.Rule, dispatch Dispatcher) (bool, error) {
	for _, r := range rules {
		if !accountMatches(ctx.Account.Name, r.Accounts) {
			continue
		}

		var matched bool
		var err error
		switch r.Kind {
		case types.RuleAll:
			matched = true
		default:
			matched, err = EvalExpr(ctx, r.Expr)
			if err != nil {
				return false, fmt.Errorf("rule %d: %w", r.Idx, err)
			}
		}
		if !matched {
			continue
		}
		ctx.Matched = true

		if err := applyTag(ctx, r); err != nil {
			return false, fmt.Errorf("rule %d: %w", r.Idx, err)
		}

		for _, actionTmpl := range r.Actions {
			name, err := interp.Expand(actionTmpl, ctx.Mail)
			if err != nil {
				return false, fmt.Errorf("rule %d: action template: %w", r.Idx, err)
			}
			if name == "" {
				continue
			}
			if err := dispatch.Dispatch(ctx, name, r); err != nil {
				return false, fmt.Errorf("rule %d: action %q: %w", r.Idx, name, err)
			}
		}

		if len(r.Rules) > 0 {
			childStopped, err := walk(ctx, r.Rules, dispatch)
			if err != nil {
				return false, err
			}
			if childStopped {
				return true, nil
			}
		}

		if r.Stop {
			ctx.Stopped = true
			return true, nil
		}
	}
	return false, nil
}

// applyTag interpolates and assigns a rule's key/value templates. A key
// that interpolates to the empty string is skipped — no tag is set —
// per §7 tier 1 ("interpolation yielding empty key -> skip tag").
func applyTag(ctx *types.MatchCtx, r *types.Rule) error {
	if r.KeyTemplate == "" {
		return nil
	}
	key, err := interp.Expand(r.KeyTemplate, ctx.Mail)
	if err != nil {
		return fmt.Errorf("tag key template: %w", err)
	}
	if key == "" {
		return nil
	}
	val, err := interp.Expand(r.ValueTemplate, ctx.Mail)
	if err != nil {
		return fmt.Errorf("tag value template: %w", err)
	}
	ctx.Mail.Tags.Set(key, val)
	return nil
}
