package types

// Mail is the mutable per-message record (§3). It is created per fetch
// and must be destroyed on every exit path before the next fetch call.
//
// Grounded on the byte-owning record shape of the teacher's storage
// record type (adapted here to the wrapped-view / unwrapped-view and
// tag/decision bookkeeping the mail core needs instead of a storage
// partition key).
type Mail struct {
	// Bytes holds the raw message (headers + body). Size is authoritative,
	// never cap(Bytes); Bytes may have spare capacity from chunked growth.
	Bytes []byte
	// Size is the current logical byte length.
	Size int
	// Body is the byte offset where the body begins, or -1 until known.
	Body int
	// Tags is the ordered tag map (§3).
	Tags *TagMap
	// Wrapped maps byte offsets where physical line-wraps were replaced,
	// so the mail can switch between the wrapped view (newline, what the
	// transport sees) and the unwrapped view (space, what predicates see).
	Wrapped map[int]byte
	// Decision is the mail's keep/drop disposition, DecisionDrop until
	// set by rule evaluation.
	Decision Decision
	// RML is the regex-match-list cache shared by successive
	// interpolations within one mail's evaluation (§3, §4.3.1).
	RML *RegexMatchCache
	// unwrapped tracks whether the mail is currently presented in its
	// unwrapped view; used to assert the wrapped-view-before-transmit
	// invariant (§3).
	unwrapped bool
}

// NewMail allocates a fresh Mail with decision DROP and body unknown,
// per the FETCH loop's per-iteration initialization (§4.4 FETCH).
func NewMail() *Mail {
	return &Mail{
		Body:     -1,
		Tags:     NewTagMap(),
		Wrapped:  make(map[int]byte),
		Decision: DecisionDrop,
		RML:      NewRegexMatchCache(),
	}
}

// IsUnwrapped reports whether the mail is currently in its unwrapped
// view. Evaluation-only: delivery and IPC transmit must see the wrapped
// view (§3 invariant).
func (m *Mail) IsUnwrapped() bool {
	return m.unwrapped
}

// SetUnwrapped records the current view state. Callers use SetWrapped
// (package mailmsg) to actually rewrite the wrap bytes; this flag tracks
// which state is active for invariant assertions.
func (m *Mail) SetUnwrapped(u bool) {
	m.unwrapped = u
}

// RegexMatchCache holds the capture groups of the most recent successful
// regex match, whichever predicate produced them, so subsequent %0.."%9" interpolation
// templates can reference the last successful match (§3, §4.3.1).
type RegexMatchCache struct {
	Groups []string
}

// NewRegexMatchCache returns an empty cache.
func NewRegexMatchCache() *RegexMatchCache {
	return &RegexMatchCache{}
}

// Set replaces the cached capture groups.
func (c *RegexMatchCache) Set(groups []string) {
	c.Groups = groups
}

// Group returns the n-th capture group (0 = whole match), or "" if absent.
func (c *RegexMatchCache) Group(n int) string {
	if c == nil || n < 0 || n >= len(c.Groups) {
		return ""
	}
	return c.Groups[n]
}

// MatchCtx is the per-message evaluation state threaded through the rule
// evaluator, the action dispatcher, and the IPC round-trip (§3).
type MatchCtx struct {
	Mail    *Mail
	Account *Account
	IPC     IPCHandle
	// Matched is set once any rule's predicate gate (or ALL) matches.
	Matched bool
	// Stopped is set once a rule's Stop flag fires; propagates upward
	// immediately through nested rule recursion (§4.3 step 6).
	Stopped bool
}

// IPCHandle is the narrow surface the action dispatcher needs from the
// IPC channel: send one ACTION request and block for its DONE reply.
// Defined here (rather than imported from package ipc) to keep package
// types free of the ipc package's framing details; package ipc's
// Channel implements it.
type IPCHandle interface {
	SendAction(req *ActionRequest) (*ActionReply, error)
}

// ActionRequest is the child->parent MSG_ACTION payload (§4.6).
type ActionRequest struct {
	AccountName string
	ActionName  string
	UID         string
	Tags        *TagMap
	// WriteBack indicates the action's deliver kind is DeliverWriteBack;
	// the parent may return replacement mail bytes only in this case.
	WriteBack bool
	Size      int
	Body      int
	Bytes     []byte
}

// ActionReply is the parent->child MSG_DONE payload (§4.6).
type ActionReply struct {
	Error bool
	// Tags is mandatory: a null/empty blob is a protocol violation (§4.5
	// step 4).
	Tags *TagMap
	// ReplacementBytes is populated only for WRITE-BACK actions (§4.5
	// step 7). Size / Body are set on every reply: the post-action values
	// for a write-back action, an echo of the request's values otherwise.
	ReplacementBytes []byte
	Size             int
	Body             int
}
