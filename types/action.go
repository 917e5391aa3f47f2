package types

// DeliverKind classifies how a resolved Action is carried out (§3, §4.5).
type DeliverKind int

const (
	// DeliverInChild runs entirely inside the unprivileged child process.
	DeliverInChild DeliverKind = iota
	// DeliverWriteBack runs in the privileged parent and rewrites the
	// mail, returning new bytes (§4.5 step 7).
	DeliverWriteBack
	// DeliverStateful runs in the privileged parent without rewriting
	// the mail (a plain remote delivery).
	DeliverStateful
)

func (k DeliverKind) String() string {
	switch k {
	case DeliverInChild:
		return "in-child"
	case DeliverWriteBack:
		return "write-back"
	default:
		return "stateful"
	}
}

// DeliverStatus is the outcome of a deliver-action invocation (§6).
type DeliverStatus int

const (
	DeliverSuccess DeliverStatus = iota
	DeliverFailure
)

// ActionDef is a named delivery prescription (§3). Concrete deliver
// functions for every DeliverKind live in package deliver.
type ActionDef struct {
	// Name is the action's configured name, matched against a rule's
	// interpolated action-name templates (§4.5 step 2).
	Name string
	// Kind selects in-child vs privileged dispatch.
	Kind DeliverKind
	// Deliver carries out the delivery: in the child process for
	// DeliverInChild actions (§4.5 step 2), in the privileged parent
	// (action.Registry.ServePrivileged) for the other kinds.
	Deliver func(ctx *DeliverCtx) (DeliverStatus, error)
	// FindUID / Users set the action-scope delivery-user policy, second
	// in the dispatcher's precedence chain: after the rule scope, ahead
	// of the account scope (§4.5 step 3).
	FindUID bool
	Users   []string
}

// DeliverCtx is the context handed to an in-child deliver function.
type DeliverCtx struct {
	Account *Account
	Mail    *Mail
}
