package config

import (
	"fmt"

	"github.com/mailshim/mailshim/deliver"
	"github.com/mailshim/mailshim/match"
	"github.com/mailshim/mailshim/types"
)

// ToAccount converts a loaded AccountConfig into the runtime types.Account
// the child orchestrator consumes.
func (a AccountConfig) ToAccount() *types.Account {
	return &types.Account{
		Name:             a.Name,
		Backend:          a.Backend,
		BackendConfig:    a.BackendConfig,
		Keep:             a.Keep,
		Users:            a.Users,
		FindUID:          a.FindUID,
		SizeLimit:        a.SizeLimit,
		DelBig:           a.DelBig,
		PurgeAfter:       a.PurgeAfter,
		SuppressReceived: a.SuppressReceived,
	}
}

// Build constructs the concrete ActionDef named by this config entry.
// Kind selects the package deliver constructor; unknown kinds are a
// configuration error rather than a silent no-op.
func (a ActionConfig) Build() (types.ActionDef, error) {
	var def types.ActionDef
	var err error
	switch a.Kind {
	case "discard":
		def = deliver.NewDiscard()
	case "maildir":
		if a.Path == "" {
			return types.ActionDef{}, fmt.Errorf("config: action %q: maildir requires path", a.Name)
		}
		def = deliver.NewMaildir(a.Name, a.Path)
	case "mbox":
		if a.Path == "" {
			return types.ActionDef{}, fmt.Errorf("config: action %q: mbox requires path", a.Name)
		}
		def = deliver.NewMbox(a.Name, a.Path)
	case "strip_attachments":
		maxBytes := a.MaxPartBytes
		if maxBytes <= 0 {
			maxBytes = 1 << 20
		}
		def = deliver.NewStripAttachments(a.Name, maxBytes)
	case "webhook":
		def, err = deliver.NewWebhook(a.Name, deliver.WebhookConfig{
			URL:     a.URL,
			Headers: a.Headers,
			Timeout: a.Timeout.Duration,
			Retries: a.Retries,
		})
		if err != nil {
			return types.ActionDef{}, err
		}
	default:
		return types.ActionDef{}, fmt.Errorf("config: action %q: unknown kind %q", a.Name, a.Kind)
	}
	if a.Name != "" {
		def.Name = a.Name
	}
	def.FindUID = a.FindUID
	def.Users = a.Users
	return def, nil
}

// Build converts a PredicateConfig into the concrete match.Predicate it
// names. Type selects the constructor; the remaining fields are
// interpreted only by that constructor.
func (p PredicateConfig) Build() (types.Predicate, error) {
	switch p.Type {
	case "header":
		return match.NewHeaderPredicate(p.Header, p.Pattern, p.CaseInsensitive)
	case "body":
		return match.NewBodyPredicate(p.Pattern, p.CaseInsensitive)
	case "size":
		cmp, err := parseSizeCmp(p.Cmp)
		if err != nil {
			return nil, err
		}
		return &match.SizePredicate{Cmp: cmp, Threshold: p.Bytes}, nil
	case "tagged":
		return &match.TaggedPredicate{Key: p.Key, Value: p.Value}, nil
	case "glob":
		return match.NewGlobPredicate(p.Header, p.Pattern)
	case "all":
		return match.AllPredicate{}, nil
	default:
		return nil, fmt.Errorf("config: predicate: unknown type %q", p.Type)
	}
}

func parseSizeCmp(s string) (match.SizeCmp, error) {
	switch s {
	case "lt":
		return match.SizeLess, nil
	case "le":
		return match.SizeLessOrEqual, nil
	case "gt":
		return match.SizeGreater, nil
	case "ge":
		return match.SizeGreaterOrEqual, nil
	default:
		return 0, fmt.Errorf("config: predicate: unknown size comparison %q", s)
	}
}

// Build converts this RuleConfig, and all of its nested sub-rules, into
// a *types.Rule tree. idx assigns 1-based diagnostic indices depth-first
// across the whole tree, matching the order rules are declared.
func (r RuleConfig) Build(idx *int) (*types.Rule, error) {
	*idx++
	out := &types.Rule{
		Idx:           *idx,
		Accounts:      r.Accounts,
		KeyTemplate:   r.Key,
		ValueTemplate: r.Value,
		Actions:       r.Actions,
		Stop:          r.Stop,
		FindUID:       r.FindUID,
		Users:         r.Users,
	}

	switch r.Kind {
	case "", "expression":
		out.Kind = types.RuleExpression
		expr, err := buildExpr(r.Expr)
		if err != nil {
			return nil, fmt.Errorf("config: rule %d: %w", *idx, err)
		}
		out.Expr = expr
	case "all":
		out.Kind = types.RuleAll
	default:
		return nil, fmt.Errorf("config: rule %d: unknown kind %q", *idx, r.Kind)
	}

	for _, childCfg := range r.Rules {
		child, err := childCfg.Build(idx)
		if err != nil {
			return nil, err
		}
		out.Rules = append(out.Rules, child)
	}
	return out, nil
}

func buildExpr(items []ExprItemConfig) ([]types.ExprItem, error) {
	out := make([]types.ExprItem, 0, len(items))
	for i, it := range items {
		pred, err := it.Predicate.Build()
		if err != nil {
			return nil, fmt.Errorf("expr item %d: %w", i, err)
		}
		op, err := parseOperator(it.Op, i)
		if err != nil {
			return nil, fmt.Errorf("expr item %d: %w", i, err)
		}
		out = append(out, types.ExprItem{Predicate: pred, Inverted: it.Invert, Op: op})
	}
	return out, nil
}

func parseOperator(s string, idx int) (types.Operator, error) {
	switch s {
	case "":
		if idx == 0 {
			return types.OperatorNone, nil
		}
		return types.OperatorOr, nil
	case "and":
		return types.OperatorAnd, nil
	case "or":
		return types.OperatorOr, nil
	case "none":
		return types.OperatorNone, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", s)
	}
}

// BuildRules converts the whole configured rule list, in declaration
// order, into the *types.Rule tree the child orchestrator evaluates.
func BuildRules(cfgs []RuleConfig) ([]*types.Rule, error) {
	idx := 0
	out := make([]*types.Rule, 0, len(cfgs))
	for _, c := range cfgs {
		r, err := c.Build(&idx)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// BuildActions converts the whole configured action list into
// types.ActionDef values suitable for action.NewRegistry.
func BuildActions(cfgs []ActionConfig) ([]types.ActionDef, error) {
	out := make([]types.ActionDef, 0, len(cfgs))
	for _, c := range cfgs {
		def, err := c.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}
