// Package fetchbackend defines the capability-probed fetch-backend
// adapter (C2, §4.1): a set of single-method interfaces a concrete
// backend implements however many of, probed with a type assertion
// rather than required wholesale. This mirrors the teacher's Executor
// capability split (runtime/executor.go), generalized from a single
// Execute method to the ordered fetch lifecycle a mail source goes
// through once per child run.
package fetchbackend

import (
	"context"

	"github.com/mailshim/mailshim/types"
)

// Starter opens the backend's connection for the account (§4.1 "start").
// Every backend must support this; Backend embeds it, so a type
// without Start does not satisfy Backend.
type Starter interface {
	Start(ctx context.Context, acct *types.Account) error
}

// Poller checks, without fetching, whether new mail is available
// (§4.1 "poll"). Backends that cannot cheaply distinguish this from a
// fetch omit it; the orchestrator then always proceeds straight to
// Fetch.
type Poller interface {
	Poll(ctx context.Context) (bool, error)
}

// FetchResult is one fetched message plus its outcome classification.
type FetchResult struct {
	Status types.FetchStatus
	// UID identifies the message within the backend, used for the
	// done-block's per-message acknowledgement and for Message-Id
	// fallback tagging.
	UID string
	// Bytes holds the raw RFC 5322 message when Status is FetchSuccess
	// or FetchOversize; nil for FetchComplete.
	Bytes []byte
	// Size is the backend-reported size, which may be known before the
	// bytes are retrieved (e.g. from a FETCH RFC822.SIZE probe) and so
	// can differ from len(Bytes) for an OVERSIZE result whose body was
	// never downloaded.
	Size int64
}

// Fetcher retrieves the next message, if any (§4.1 "fetch"). A backend
// signals there is nothing left by returning a FetchResult with Status
// FetchComplete.
type Fetcher interface {
	Fetch(ctx context.Context) (FetchResult, error)
}

// Doner acknowledges processing of one message, e.g. deleting or
// flagging it server-side (§4.1 "done"). Called once per message that
// left the done-block with a decision, keep or drop, never for one
// that aborted the fetch loop with a fatal error; keep tells the
// backend which of the two happened, since the backend alone decides
// how keep and drop are each realized (flag, move, expunge, no-op).
type Doner interface {
	Done(ctx context.Context, uid string, keep bool) error
}

// Purger runs the backend's periodic maintenance pass (§4.1 "purge",
// Account.PurgeAfter). Optional; most backends are no-ops here.
type Purger interface {
	Purge(ctx context.Context) error
}

// Finisher closes the backend's connection during shutdown (§4.1
// "finish", §4.4 shutdown). Every backend must support this.
type Finisher interface {
	Finish(ctx context.Context) error
}

// Backend is the union every concrete backend is expected to implement
// at minimum; optional capabilities are probed separately with type
// assertions against the narrower interfaces above (§4.1: "a backend
// need not implement every operation").
type Backend interface {
	Starter
	Fetcher
	Finisher
}
