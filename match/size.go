package match

import (
	"fmt"

	"github.com/mailshim/mailshim/types"
)

// SizeCmp is the comparison a SizePredicate applies.
type SizeCmp int

const (
	SizeLess SizeCmp = iota
	SizeLessOrEqual
	SizeGreater
	SizeGreaterOrEqual
)

func (c SizeCmp) symbol() string {
	switch c {
	case SizeLess:
		return "<"
	case SizeLessOrEqual:
		return "<="
	case SizeGreater:
		return ">"
	default:
		return ">="
	}
}

// SizePredicate matches the mail's total byte size against a threshold
// (§3 Predicate; the fetch-loop's own oversize handling is separate —
// this is the rule-expression form of the same comparison, e.g. to
// route mails over some size differently without discarding them).
type SizePredicate struct {
	Cmp       SizeCmp
	Threshold int64
}

func (p *SizePredicate) Match(ctx *types.MatchCtx) (types.MatchResult, error) {
	size := int64(ctx.Mail.Size)
	var ok bool
	switch p.Cmp {
	case SizeLess:
		ok = size < p.Threshold
	case SizeLessOrEqual:
		ok = size <= p.Threshold
	case SizeGreater:
		ok = size > p.Threshold
	case SizeGreaterOrEqual:
		ok = size >= p.Threshold
	}
	if ok {
		return types.MatchTrue, nil
	}
	return types.MatchFalse, nil
}

func (p *SizePredicate) Describe() string {
	return fmt.Sprintf("size %s %d", p.Cmp.symbol(), p.Threshold)
}
