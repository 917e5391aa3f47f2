package types

// Account is the immutable-during-run descriptor for a single mail
// source, per the data model in §3. Exactly one child process handles
// exactly one Account for its entire lifetime.
type Account struct {
	// Name identifies the account; matched against Rule.Accounts glob
	// patterns and stamped into the "Received:" header.
	Name string
	// Backend is the configured fetch-backend kind, e.g. "imap".
	Backend string
	// BackendConfig holds backend-specific settings (DSN, mailbox, etc.),
	// opaque to the core and interpreted only by the named backend.
	BackendConfig map[string]string
	// Keep overrides the implicit decision: if true, every mail fetched
	// from this account is force-kept (§4.3 global override).
	Keep bool
	// Users is the default delivery-user list used when no rule, action,
	// or find_uid policy supplies one.
	Users []string
	// FindUID requests deriving the delivery user from mail headers
	// rather than from Users, at account scope (§4.5 precedence chain).
	FindUID bool
	// SizeLimit is the maximum accepted message size in bytes, for a
	// backend that reports OVERSIZE for larger messages (§4.1). Zero
	// means no limit. Package imapbackend does not consult it.
	SizeLimit int64
	// DelBig, if true, accepts an OVERSIZE mail into the done-block as
	// DROP instead of aborting the fetch loop (§4.4 FETCH, scenario 5).
	DelBig bool
	// PurgeAfter is the number of successfully-processed mails between
	// purge() calls; zero disables purging (§4.1).
	PurgeAfter int
	// SuppressReceived disables prepending the "Received:" header
	// (§4.4.1 step 2).
	SuppressReceived bool
}
