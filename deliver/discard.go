// Package deliver implements concrete ActionDef values for the named
// actions a rule's Actions list can reference (§3 ActionDef, §4.5).
// In-child actions run their Deliver function directly in the
// unprivileged process; write-back and stateful actions are registered
// identically here but only ever invoked from within the privileged
// parent process, after an ACTION/DONE round-trip carries the request
// across the IPC channel (§4.5 steps 5-7).
package deliver

import "github.com/mailshim/mailshim/types"

// NewDiscard returns the trivial in-child action that does nothing and
// always succeeds, useful for rules whose only purpose is tagging or
// stopping the walk without an observable delivery (§4.5).
func NewDiscard() types.ActionDef {
	return types.ActionDef{
		Name: "discard",
		Kind: types.DeliverInChild,
		Deliver: func(ctx *types.DeliverCtx) (types.DeliverStatus, error) {
			return types.DeliverSuccess, nil
		},
	}
}
