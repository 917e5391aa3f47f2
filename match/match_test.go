package match

import (
	"testing"

	"github.com/mailshim/mailshim/mailmsg"
	"github.com/mailshim/mailshim/types"
)

func newMail(t *testing.T, raw string) *types.Mail {
	t.Helper()
	m := types.NewMail()
	mailmsg.Append(m, []byte(raw))
	return m
}

func TestHeaderPredicate_MatchSetsRML(t *testing.T) {
	m := newMail(t, "Subject: invoice 12345\r\n\r\nbody\r\n")
	ctx := &types.MatchCtx{Mail: m}

	p, err := NewHeaderPredicate("Subject", `invoice (\d+)`, false)
	if err != nil {
		t.Fatalf("NewHeaderPredicate: %v", err)
	}
	res, err := p.Match(ctx)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res != types.MatchTrue {
		t.Fatalf("res = %v, want MatchTrue", res)
	}
	if got := m.RML.Group(1); got != "12345" {
		t.Fatalf("RML group 1 = %q, want 12345", got)
	}
}

func TestHeaderPredicate_MissingHeaderIsFalseNotError(t *testing.T) {
	m := newMail(t, "Subject: hi\r\n\r\nbody\r\n")
	ctx := &types.MatchCtx{Mail: m}

	p, err := NewHeaderPredicate("X-Spam-Flag", `yes`, true)
	if err != nil {
		t.Fatalf("NewHeaderPredicate: %v", err)
	}
	res, err := p.Match(ctx)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res != types.MatchFalse {
		t.Fatalf("res = %v, want MatchFalse", res)
	}
}

func TestBodyPredicate_MatchesUnwrappedBody(t *testing.T) {
	m := newMail(t, "Subject: hi\r\n\r\nhello world\r\n")
	ctx := &types.MatchCtx{Mail: m}

	p, err := NewBodyPredicate(`hello (\w+)`, false)
	if err != nil {
		t.Fatalf("NewBodyPredicate: %v", err)
	}
	res, err := p.Match(ctx)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res != types.MatchTrue {
		t.Fatalf("res = %v, want MatchTrue", res)
	}
	if got := m.RML.Group(1); got != "world" {
		t.Fatalf("RML group 1 = %q, want world", got)
	}
}

func TestSizePredicate(t *testing.T) {
	m := newMail(t, "Subject: hi\r\n\r\nbody\r\n")
	ctx := &types.MatchCtx{Mail: m}

	p := &SizePredicate{Cmp: SizeGreater, Threshold: 1}
	res, err := p.Match(ctx)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res != types.MatchTrue {
		t.Fatalf("res = %v, want MatchTrue", res)
	}

	p2 := &SizePredicate{Cmp: SizeLess, Threshold: 1}
	res2, _ := p2.Match(ctx)
	if res2 != types.MatchFalse {
		t.Fatalf("res2 = %v, want MatchFalse", res2)
	}
}

func TestTaggedPredicate(t *testing.T) {
	m := newMail(t, "Subject: hi\r\n\r\nbody\r\n")
	m.Tags.Set("folder", "inbox")
	ctx := &types.MatchCtx{Mail: m}

	p := &TaggedPredicate{Key: "folder", Value: "inbox"}
	res, _ := p.Match(ctx)
	if res != types.MatchTrue {
		t.Fatalf("res = %v, want MatchTrue", res)
	}

	p2 := &TaggedPredicate{Key: "folder", Value: "archive"}
	res2, _ := p2.Match(ctx)
	if res2 != types.MatchFalse {
		t.Fatalf("res2 = %v, want MatchFalse", res2)
	}
}

func TestGlobPredicate(t *testing.T) {
	m := newMail(t, "From: alice@example.com\r\n\r\nbody\r\n")
	ctx := &types.MatchCtx{Mail: m}

	p, err := NewGlobPredicate("From", "*@example.com")
	if err != nil {
		t.Fatalf("NewGlobPredicate: %v", err)
	}
	res, _ := p.Match(ctx)
	if res != types.MatchTrue {
		t.Fatalf("res = %v, want MatchTrue", res)
	}
}
