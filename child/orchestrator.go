// Package child implements the per-account child orchestrator (C6,
// §4.4): the single-threaded startup/poll/fetch/done/shutdown loop that
// drives one fetch-backend instance through its lifecycle, evaluates
// the rule tree against each fetched mail, and dispatches actions
// in-process or over IPC to the privileged parent.
//
// Grounded on the teacher's RunOrchestrator (runtime/run.go): the same
// start -> process-loop -> wait -> determine-outcome shape, generalized
// from a single subprocess run to a long-lived per-account loop with a
// per-mail instead of per-run granularity.
package child

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mailshim/mailshim/action"
	"github.com/mailshim/mailshim/fetchbackend"
	"github.com/mailshim/mailshim/ipc"
	"github.com/mailshim/mailshim/log"
	"github.com/mailshim/mailshim/mailmsg"
	"github.com/mailshim/mailshim/metrics"
	"github.com/mailshim/mailshim/rule"
	"github.com/mailshim/mailshim/types"
)

// ExitCode classifies how the child process should terminate (§7).
type ExitCode int

const (
	// ExitSuccess: the fetch loop ran to FetchComplete with no
	// unrecovered errors.
	ExitSuccess ExitCode = 0
	// ExitAccountFatal: the backend reported an unrecoverable error
	// (§7 tier 2); cleanup still runs, but the account's fetch loop
	// stops.
	ExitAccountFatal ExitCode = 1
	// ExitProtocolFatal: the IPC channel to the privileged parent
	// broke in a way that cannot be recovered within this run (§7 tier 3).
	// Run never returns it: an IPC error fails only the current mail,
	// which fetchLoop logs and skips.
	ExitProtocolFatal ExitCode = 2
)

const receivedHeaderMaxField = 450

// Orchestrator drives one account's fetch-backend instance for the
// lifetime of the child process.
type Orchestrator struct {
	Account  *types.Account
	Backend  fetchbackend.Backend
	Rules    []*types.Rule
	Registry *action.Registry
	IPC      types.IPCHandle
	Logger   *log.Logger
	Metrics  *metrics.Collector

	// ImplicitDecision is the configured fallback applied when the rule
	// tree runs to completion without a Stop (§4.3 step 7). The zero
	// value, types.DecisionNone, resolves to keep with a warning.
	ImplicitDecision types.Decision
	// KeepAll forces every mail to be kept, a global counterpart to
	// Account.Keep (§4.3 "global override").
	KeepAll bool
	// FQDN names this host in the "Received:" header (§4.4.1 step 2).
	// Left empty, insertReceived falls back to os.Hostname().
	FQDN string
}

// Run executes the full child lifecycle (§4.4): startup, the FETCH
// loop with its done-block, and shutdown. The returned ExitCode is
// authoritative for the process's exit status; a non-nil error
// describes why, for logging.
func (o *Orchestrator) Run(ctx context.Context) (ExitCode, error) {
	if err := o.Backend.Start(ctx, o.Account); err != nil {
		o.Logger.Error("backend start failed", map[string]any{"error": err.Error()})
		return ExitAccountFatal, fmt.Errorf("child: start: %w", err)
	}

	dispatcher := action.NewDispatcher(o.Registry, o.Metrics)
	processed := 0

	loopErr := o.fetchLoop(ctx, dispatcher, &processed)

	if finishErr := o.Backend.Finish(ctx); finishErr != nil {
		o.Logger.Warn("backend finish failed", map[string]any{"error": finishErr.Error()})
		if loopErr == nil {
			loopErr = finishErr
		}
	}

	if loopErr != nil {
		return ExitAccountFatal, loopErr
	}
	return ExitSuccess, nil
}

// fetchLoop runs Fetch until FetchComplete or a backend error, handling
// oversize/del_big per message and running the rule evaluator and
// done-block for every successfully fetched mail (§4.4 FETCH).
func (o *Orchestrator) fetchLoop(ctx context.Context, dispatcher *action.Dispatcher, processed *int) error {
	if poller, ok := o.Backend.(fetchbackend.Poller); ok {
		if _, err := poller.Poll(ctx); err != nil {
			return fmt.Errorf("child: poll: %w", err)
		}
	}

	for {
		result, err := o.Backend.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("child: fetch: %w", err)
		}

		switch result.Status {
		case types.FetchComplete:
			return nil

		case types.FetchOversize:
			if !o.Account.DelBig {
				return fmt.Errorf("child: oversize message uid=%s exceeds size_limit and del_big is disabled", result.UID)
			}
			o.Metrics.IncMailsOversize()
			o.Metrics.IncMailsDelBig()
			if doner, ok := o.Backend.(fetchbackend.Doner); ok {
				if err := doner.Done(ctx, result.UID, false); err != nil {
					o.Logger.Warn("done failed for oversize message", map[string]any{"uid": result.UID, "error": err.Error()})
				}
			}

		case types.FetchError:
			return fmt.Errorf("child: backend reported a fetch error for uid=%s", result.UID)

		case types.FetchSuccess:
			if len(result.Bytes) == 0 {
				continue
			}

			mail := types.NewMail()
			mailmsg.Append(mail, result.Bytes)
			mailmsg.TrimFrom(mail)
			if mail.Size == 0 {
				o.Logger.Warn("message empty after trim, skipping", map[string]any{"uid": result.UID})
				continue
			}

			o.Metrics.IncMailsFetched()
			if err := o.processOne(ctx, dispatcher, result, mail); err != nil {
				o.Metrics.IncMailsError()
				o.Logger.Warn("mail processing failed, skipping", map[string]any{"uid": result.UID, "error": err.Error()})
				continue
			}
			*processed++
			if o.Account.PurgeAfter > 0 && *processed%o.Account.PurgeAfter == 0 {
				if purger, ok := o.Backend.(fetchbackend.Purger); ok {
					if err := purger.Purge(ctx); err != nil {
						o.Logger.Warn("purge failed", map[string]any{"error": err.Error()})
					} else {
						o.Metrics.IncPurgeRun()
					}
				}
			}
		}
	}
}

// processOne runs one fetched, non-empty message through header
// bookkeeping, rule evaluation, and the done-block (§4.4 FETCH
// "fetch_got", §4.3, §4.5). mail has already been appended and
// trimmed by the caller.
func (o *Orchestrator) processOne(ctx context.Context, dispatcher *action.Dispatcher, result fetchbackend.FetchResult, mail *types.Mail) error {
	mailmsg.ResolveBody(mail)

	if err := o.tagMessageID(mail, result.UID); err != nil {
		return fmt.Errorf("message-id tagging: %w", err)
	}
	if !o.Account.SuppressReceived {
		if err := o.insertReceived(mail); err != nil {
			return fmt.Errorf("received header: %w", err)
		}
	}

	mailmsg.FillWrapped(mail)
	mailmsg.SetWrapped(mail, ' ')

	matchCtx := &types.MatchCtx{Mail: mail, Account: o.Account, IPC: o.IPC}
	if err := rule.Evaluate(matchCtx, o.Rules, dispatcher, o.ImplicitDecision, o.KeepAll, o.Logger); err != nil {
		mailmsg.SetWrapped(mail, '\n')
		return fmt.Errorf("rule evaluation: %w", err)
	}
	mailmsg.SetWrapped(mail, '\n')

	keep := mail.Decision != types.DecisionDrop
	if keep {
		o.Metrics.IncMailsKept()
	} else {
		o.Metrics.IncMailsDropped()
	}
	if doner, ok := o.Backend.(fetchbackend.Doner); ok {
		if err := doner.Done(ctx, result.UID, keep); err != nil {
			return fmt.Errorf("done: %w", err)
		}
	}
	return nil
}

// tagMessageID records the Message-Id tag from the mail's own header,
// falling back to a generated UUID stamped into the mail when the
// header is absent, so every mail is addressable regardless of
// upstream hygiene.
func (o *Orchestrator) tagMessageID(mail *types.Mail, uid string) error {
	if v, ok := mailmsg.FindHeader(mail, "Message-Id", true); ok && v != "" {
		mail.Tags.Set("message_id", v)
		return nil
	}
	generated := "<" + uuid.NewString() + "@mailshim.generated>"
	if err := mailmsg.InsertHeader(mail, "Message-Id: %s", generated); err != nil {
		return err
	}
	mail.Tags.Set("message_id", generated)
	return nil
}

// insertReceived prepends a "Received:" header identifying the host,
// program, and account, truncating the host and account-name fields to
// receivedHeaderMaxField bytes each to keep the header line within
// mailmsg's 998-byte limit (§4.4.1 step 2).
func (o *Orchestrator) insertReceived(mail *types.Mail) error {
	host := o.FQDN
	if host == "" {
		if h, err := os.Hostname(); err == nil {
			host = h
		} else {
			host = "localhost"
		}
	}
	if len(host) > receivedHeaderMaxField {
		host = host[:receivedHeaderMaxField]
	}
	account := o.Account.Name
	if len(account) > receivedHeaderMaxField {
		account = account[:receivedHeaderMaxField]
	}
	return mailmsg.InsertHeader(mail, "Received: by %s (%s %s, account %q); %s",
		host, types.ProgName, types.Version, account, time.Now().UTC().Format(time.RFC1123Z))
}

// SendExit notifies the privileged parent the child is terminating,
// completing the MSG_EXIT handshake (§4.6, §4.7).
func SendExit(ch *ipc.Channel, failed bool) error {
	return ch.SendExit(failed)
}
