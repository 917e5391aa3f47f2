// Package metrics provides per-account fetch/rule/delivery counters.
//
// The Collector accumulates counters during a single child process's
// lifetime. It is a leaf package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of one account's counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Fetch loop (§4.4 FETCH)
	MailsFetched  int64
	MailsOversize int64
	MailsError    int64

	// Rule evaluation / done-block outcome (§4.3, §4.4 done-block)
	MailsKept    int64
	MailsDropped int64
	MailsDelBig  int64

	// Action dispatch (§4.5)
	ActionsDispatched int64
	ActionsFailed     int64

	// IPC (§4.6)
	IPCDecodeErrors int64

	// Maintenance (§4.1 "purge")
	PurgeRuns int64

	// Dimensions (informational, set at construction)
	Account string
	Backend string
}

// Collector accumulates metrics during a single child process's run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	mailsFetched  int64
	mailsOversize int64
	mailsError    int64

	mailsKept    int64
	mailsDropped int64
	mailsDelBig  int64

	actionsDispatched int64
	actionsFailed     int64

	ipcDecodeErrors int64
	purgeRuns       int64

	account string
	backend string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(account, backend string) *Collector {
	return &Collector{account: account, backend: backend}
}

// IncMailsFetched records a successfully fetched message (§4.4 FETCH).
func (c *Collector) IncMailsFetched() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.mailsFetched++
	c.mu.Unlock()
}

// IncMailsOversize records an OVERSIZE fetch result (§4.1, §4.4 scenario 5).
func (c *Collector) IncMailsOversize() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.mailsOversize++
	c.mu.Unlock()
}

// IncMailsError records a recoverable-per-mail error (§7 tier 1).
func (c *Collector) IncMailsError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.mailsError++
	c.mu.Unlock()
}

// IncMailsKept records a mail leaving the done-block with decision KEEP.
func (c *Collector) IncMailsKept() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.mailsKept++
	c.mu.Unlock()
}

// IncMailsDropped records a mail leaving the done-block with decision DROP.
func (c *Collector) IncMailsDropped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.mailsDropped++
	c.mu.Unlock()
}

// IncMailsDelBig records an OVERSIZE mail accepted as DROP under
// Account.DelBig instead of aborting the fetch loop.
func (c *Collector) IncMailsDelBig() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.mailsDelBig++
	c.mu.Unlock()
}

// IncActionsDispatched records one action dispatch attempt (§4.5).
func (c *Collector) IncActionsDispatched() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.actionsDispatched++
	c.mu.Unlock()
}

// IncActionsFailed records an action dispatch failure.
func (c *Collector) IncActionsFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.actionsFailed++
	c.mu.Unlock()
}

// IncIPCDecodeErrors records an IPC frame decode error (§7 tier 3).
func (c *Collector) IncIPCDecodeErrors() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ipcDecodeErrors++
	c.mu.Unlock()
}

// IncPurgeRun records one completed purge() pass (§4.1, Account.PurgeAfter).
func (c *Collector) IncPurgeRun() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.purgeRuns++
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		MailsFetched:  c.mailsFetched,
		MailsOversize: c.mailsOversize,
		MailsError:    c.mailsError,

		MailsKept:    c.mailsKept,
		MailsDropped: c.mailsDropped,
		MailsDelBig:  c.mailsDelBig,

		ActionsDispatched: c.actionsDispatched,
		ActionsFailed:     c.actionsFailed,

		IPCDecodeErrors: c.ipcDecodeErrors,
		PurgeRuns:       c.purgeRuns,

		Account: c.account,
		Backend: c.backend,
	}
}
