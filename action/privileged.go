package action

import (
	"fmt"

	"github.com/mailshim/mailshim/types"
)

// ServePrivileged runs one MSG_ACTION request in the privileged parent
// process: it looks up the named action in registry (the same registry
// the child resolved from config, built once by the parent at startup)
// and invokes its Deliver function directly, since a write-back or
// stateful action's Deliver is privileged-context code regardless of
// which process calls it (§4.5 steps 5-7).
//
// The echo invariant is the caller's responsibility on the child side
// (package action's Dispatcher); ServePrivileged always echoes the
// mail's (possibly rewritten) tags and, when req.WriteBack, its
// (possibly unchanged) bytes.
func (r *Registry) ServePrivileged(acct *types.Account, req *types.ActionRequest) *types.ActionReply {
	def, ok := r.Lookup(req.ActionName)
	if !ok {
		return &types.ActionReply{Error: true, Tags: req.Tags}
	}

	mail := &types.Mail{
		Bytes: req.Bytes,
		Size:  req.Size,
		Body:  req.Body,
		Tags:  req.Tags,
	}

	status, err := def.Deliver(&types.DeliverCtx{Account: acct, Mail: mail})
	reply := &types.ActionReply{
		Error: err != nil || status == types.DeliverFailure,
		Tags:  mail.Tags,
		Size:  mail.Size,
		Body:  mail.Body,
	}
	if req.WriteBack {
		reply.ReplacementBytes = mail.Bytes
	}
	if err != nil {
		reply.Tags.Set("action_error", fmt.Sprintf("%s: %v", req.ActionName, err))
	}
	return reply
}
