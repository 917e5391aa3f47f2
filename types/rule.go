package types

// RuleKind distinguishes a conditional EXPRESSION rule from an
// unconditional ALL rule (§3, §4.3 step 2).
type RuleKind int

const (
	// RuleExpression evaluates Expr to decide whether the rule matches.
	RuleExpression RuleKind = iota
	// RuleAll matches unconditionally.
	RuleAll
)

// Operator is the left-associative boolean combinator linking an
// expritem's result into the running accumulator (§4.3.1).
type Operator int

const (
	// OperatorNone marks the first item: the accumulator becomes the
	// item's result outright. Subsequent items must not use NONE; the
	// evaluator treats a stray NONE after the first item as OR.
	OperatorNone Operator = iota
	// OperatorOr: acc = acc OR cres.
	OperatorOr
	// OperatorAnd: acc = acc AND cres.
	OperatorAnd
)

// MatchResult is the tri-state outcome of a single predicate evaluation.
type MatchResult int

const (
	// MatchFalse: the predicate did not match.
	MatchFalse MatchResult = iota
	// MatchTrue: the predicate matched.
	MatchTrue
	// MatchError: the predicate failed; aborts the whole rule walk.
	MatchError
)

// Predicate evaluates a single match expression item against a mail.
// Implementations corresponding to concrete predicates (header regex,
// size comparisons, etc.) live in package match.
type Predicate interface {
	// Match evaluates the predicate. Observable side effects (e.g.
	// caching capture groups) are part of the contract: the evaluator
	// never skips a predicate once reached, even after the accumulator
	// is already decided (§4.3.1).
	Match(ctx *MatchCtx) (MatchResult, error)
	// Describe renders a short diagnostic description, used in logs.
	Describe() string
}

// ExprItem is one item in an ordered expression (§3, §4.3.1).
type ExprItem struct {
	Predicate Predicate
	Inverted  bool
	Op        Operator
}

// Rule is a node in the ordered rule tree (§3).
type Rule struct {
	// Idx is this rule's 1-based position for diagnostics.
	Idx int
	// Accounts is a set of glob patterns matched against Account.Name.
	// Empty means "match any account" (§4.3 step 1).
	Accounts []string
	// Kind selects EXPRESSION vs ALL evaluation (§4.3 step 2).
	Kind RuleKind
	// Expr is the ordered expression evaluated when Kind == RuleExpression.
	Expr []ExprItem
	// KeyTemplate / ValueTemplate are optional tag-interpolation templates
	// (§4.3 step 3); if KeyTemplate interpolates to a non-empty string,
	// KeyTemplate -> ValueTemplate is added to the mail's tags.
	KeyTemplate   string
	ValueTemplate string
	// Actions is an optional ordered list of action-name templates
	// (§4.3 step 4, §4.5).
	Actions []string
	// Rules is an optional ordered list of nested sub-rules (§4.3 step 5).
	Rules []*Rule
	// Stop terminates the enclosing rule walk after this rule (§4.3 step 6).
	Stop bool
	// FindUID / Users set the rule-scope delivery-user policy, highest
	// precedence in the dispatcher's chain (§4.5 step 3).
	FindUID bool
	Users   []string
}
