package child

import (
	"context"
	"errors"
	"testing"

	"github.com/mailshim/mailshim/action"
	"github.com/mailshim/mailshim/deliver"
	"github.com/mailshim/mailshim/fetchbackend"
	"github.com/mailshim/mailshim/log"
	"github.com/mailshim/mailshim/match"
	"github.com/mailshim/mailshim/metrics"
	"github.com/mailshim/mailshim/types"
)

type doneCall struct {
	uid  string
	keep bool
}

type fakeBackend struct {
	messages  []fetchbackend.FetchResult
	idx       int
	doneCalls []doneCall
	purgeRuns int
	startErr  error
	fetchErr  error
}

func (f *fakeBackend) Start(ctx context.Context, acct *types.Account) error { return f.startErr }

func (f *fakeBackend) Fetch(ctx context.Context) (fetchbackend.FetchResult, error) {
	if f.fetchErr != nil {
		return fetchbackend.FetchResult{}, f.fetchErr
	}
	if f.idx >= len(f.messages) {
		return fetchbackend.FetchResult{Status: types.FetchComplete}, nil
	}
	m := f.messages[f.idx]
	f.idx++
	return m, nil
}

func (f *fakeBackend) Done(ctx context.Context, uid string, keep bool) error {
	f.doneCalls = append(f.doneCalls, doneCall{uid: uid, keep: keep})
	return nil
}

func (f *fakeBackend) Purge(ctx context.Context) error {
	f.purgeRuns++
	return nil
}

func (f *fakeBackend) Finish(ctx context.Context) error { return nil }

func newOrchestrator(acct *types.Account, be *fakeBackend, rules []*types.Rule) *Orchestrator {
	reg := action.NewRegistry([]types.ActionDef{deliver.NewDiscard()})
	return &Orchestrator{
		Account:          acct,
		Backend:          be,
		Rules:            rules,
		Registry:         reg,
		Logger:           log.NewLogger(acct.Name),
		Metrics:          metrics.NewCollector(acct.Name, acct.Backend),
		ImplicitDecision: types.DecisionDrop,
	}
}

func TestOrchestrator_DropsUnmatchedMail(t *testing.T) {
	be := &fakeBackend{messages: []fetchbackend.FetchResult{
		{Status: types.FetchSuccess, UID: "1", Bytes: []byte("Subject: hi\r\n\r\nbody\r\n")},
	}}
	acct := &types.Account{Name: "work", Backend: "fake"}
	o := newOrchestrator(acct, be, nil)

	code, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != ExitSuccess {
		t.Fatalf("code = %v, want ExitSuccess", code)
	}
	if len(be.doneCalls) != 1 || be.doneCalls[0] != (doneCall{uid: "1", keep: false}) {
		t.Fatalf("doneCalls = %v, want [{1 false}]", be.doneCalls)
	}
	if o.Metrics.Snapshot().MailsDropped != 1 {
		t.Fatal("expected MailsDropped == 1")
	}
}

func TestOrchestrator_KeepsMatchedMailAndCallsDoneWithKeep(t *testing.T) {
	be := &fakeBackend{messages: []fetchbackend.FetchResult{
		{Status: types.FetchSuccess, UID: "1", Bytes: []byte("Subject: invoice\r\n\r\nbody\r\n")},
	}}
	acct := &types.Account{Name: "work", Backend: "fake"}
	p, _ := match.NewHeaderPredicate("Subject", "invoice", false)
	rules := []*types.Rule{
		{Idx: 1, Kind: types.RuleExpression, Expr: []types.ExprItem{{Predicate: p, Op: types.OperatorNone}}, Actions: []string{"discard"}},
	}
	o := newOrchestrator(acct, be, rules)
	o.ImplicitDecision = types.DecisionKeep

	code, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != ExitSuccess {
		t.Fatalf("code = %v, want ExitSuccess", code)
	}
	if len(be.doneCalls) != 1 || be.doneCalls[0] != (doneCall{uid: "1", keep: true}) {
		t.Fatalf("doneCalls = %v, want [{1 true}] (backend must be told to keep, not just skipped)", be.doneCalls)
	}
	if o.Metrics.Snapshot().MailsKept != 1 {
		t.Fatal("expected MailsKept == 1")
	}
}

func TestOrchestrator_OversizeWithoutDelBigIsAccountFatal(t *testing.T) {
	be := &fakeBackend{messages: []fetchbackend.FetchResult{
		{Status: types.FetchOversize, UID: "1"},
	}}
	acct := &types.Account{Name: "work", Backend: "fake", DelBig: false}
	o := newOrchestrator(acct, be, nil)

	code, err := o.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for oversize without del_big")
	}
	if code != ExitAccountFatal {
		t.Fatalf("code = %v, want ExitAccountFatal", code)
	}
}

func TestOrchestrator_OversizeWithDelBigContinues(t *testing.T) {
	be := &fakeBackend{messages: []fetchbackend.FetchResult{
		{Status: types.FetchOversize, UID: "1"},
		{Status: types.FetchSuccess, UID: "2", Bytes: []byte("Subject: hi\r\n\r\nbody\r\n")},
	}}
	acct := &types.Account{Name: "work", Backend: "fake", DelBig: true}
	o := newOrchestrator(acct, be, nil)

	code, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != ExitSuccess {
		t.Fatalf("code = %v, want ExitSuccess", code)
	}
	snap := o.Metrics.Snapshot()
	if snap.MailsDelBig != 1 {
		t.Fatalf("MailsDelBig = %d, want 1", snap.MailsDelBig)
	}
	if snap.MailsDropped != 1 {
		t.Fatalf("MailsDropped = %d, want 1", snap.MailsDropped)
	}
}

func TestOrchestrator_StartFailureIsAccountFatal(t *testing.T) {
	be := &fakeBackend{startErr: errors.New("auth failed")}
	acct := &types.Account{Name: "work", Backend: "fake"}
	o := newOrchestrator(acct, be, nil)

	code, err := o.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if code != ExitAccountFatal {
		t.Fatalf("code = %v, want ExitAccountFatal", code)
	}
}

func TestOrchestrator_EmptyMessageIsSkipped(t *testing.T) {
	be := &fakeBackend{messages: []fetchbackend.FetchResult{
		{Status: types.FetchSuccess, UID: "1", Bytes: nil},
	}}
	acct := &types.Account{Name: "work", Backend: "fake"}
	o := newOrchestrator(acct, be, nil)

	code, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != ExitSuccess {
		t.Fatalf("code = %v, want ExitSuccess", code)
	}
	if len(be.doneCalls) != 0 {
		t.Fatal("empty message should not reach the done-block")
	}
}

func TestOrchestrator_EmptyAfterTrimIsSkippedBeforeCounting(t *testing.T) {
	be := &fakeBackend{messages: []fetchbackend.FetchResult{
		{Status: types.FetchSuccess, UID: "1", Bytes: []byte("From \n")},
	}}
	acct := &types.Account{Name: "work", Backend: "fake"}
	o := newOrchestrator(acct, be, nil)

	code, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != ExitSuccess {
		t.Fatalf("code = %v, want ExitSuccess", code)
	}
	if len(be.doneCalls) != 0 {
		t.Fatal("message empty after trim should not reach the done-block")
	}
	snap := o.Metrics.Snapshot()
	if snap.MailsFetched != 0 || snap.MailsKept != 0 || snap.MailsDropped != 0 {
		t.Fatalf("counters should be unchanged for a message discarded before rule evaluation, got %+v", snap)
	}
}

func TestOrchestrator_KeepAccountOverride(t *testing.T) {
	be := &fakeBackend{messages: []fetchbackend.FetchResult{
		{Status: types.FetchSuccess, UID: "1", Bytes: []byte("Subject: anything\r\n\r\nbody\r\n")},
	}}
	acct := &types.Account{Name: "work", Backend: "fake", Keep: true}
	o := newOrchestrator(acct, be, nil)

	code, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != ExitSuccess {
		t.Fatalf("code = %v, want ExitSuccess", code)
	}
	if len(be.doneCalls) != 1 || be.doneCalls[0] != (doneCall{uid: "1", keep: true}) {
		t.Fatalf("doneCalls = %v, want [{1 true}] (Keep account override should keep, not skip Done)", be.doneCalls)
	}
}
