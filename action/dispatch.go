package action

import (
	"fmt"

	"github.com/mailshim/mailshim/mailmsg"
	"github.com/mailshim/mailshim/metrics"
	"github.com/mailshim/mailshim/types"
)

// Dispatcher resolves a rule-supplied action name and carries it out,
// implementing package rule's Dispatcher interface (§4.5).
type Dispatcher struct {
	registry *Registry
	metrics  *metrics.Collector
}

// NewDispatcher returns a Dispatcher backed by registry. m may be nil;
// Collector's increment methods are nil-receiver safe.
func NewDispatcher(registry *Registry, m *metrics.Collector) *Dispatcher {
	return &Dispatcher{registry: registry, metrics: m}
}

// Dispatch resolves actionName, determines the effective find_uid/users
// policy (§4.5 step 3: rule overrides action overrides account), and
// either runs the action in-process (DeliverInChild) or round-trips it
// through ctx.IPC to the privileged parent (DeliverWriteBack,
// DeliverStateful).
func (d *Dispatcher) Dispatch(ctx *types.MatchCtx, actionName string, r *types.Rule) error {
	def, ok := d.registry.Lookup(actionName)
	if !ok {
		d.metrics.IncActionsFailed()
		return fmt.Errorf("action: unknown action %q", actionName)
	}
	d.metrics.IncActionsDispatched()
	ctx.Mail.Tags.Set("action", def.Name)

	// Delivery and IPC transmit see the wrapped view; an unwrapped view is
	// restored afterward for the rest of the rule walk.
	if ctx.Mail.IsUnwrapped() {
		mailmsg.SetWrapped(ctx.Mail, '\n')
		defer mailmsg.SetWrapped(ctx.Mail, ' ')
	}

	findUID, users := resolveUserPolicy(r, def, ctx.Account)

	if def.Kind == types.DeliverInChild {
		status, err := def.Deliver(&types.DeliverCtx{Account: ctx.Account, Mail: ctx.Mail})
		if err != nil {
			d.metrics.IncActionsFailed()
			return fmt.Errorf("action %q: %w", actionName, err)
		}
		if status != types.DeliverSuccess {
			d.metrics.IncActionsFailed()
			return fmt.Errorf("action %q: delivery failed", actionName)
		}
		return nil
	}

	if err := d.dispatchPrivileged(ctx, def, findUID, users); err != nil {
		d.metrics.IncActionsFailed()
		return err
	}
	return nil
}

// dispatchPrivileged builds the user-uid list per the precedence chain's
// fallback (§4.5 step 3's final "otherwise") and sends one ACTION message
// per uid, in list order (§5 ordering guarantees).
func (d *Dispatcher) dispatchPrivileged(ctx *types.MatchCtx, def types.ActionDef, findUID bool, users []string) error {
	var uids []string
	switch {
	case findUID:
		uids = []string{""} // resolved server-side from mail headers
	case len(users) > 0:
		uids = users
	default:
		uids = []string{""} // singleton list: the configured default uid
	}

	for _, uid := range uids {
		if err := d.dispatchOne(ctx, def, uid); err != nil {
			return err
		}
	}
	return nil
}

// dispatchOne sends a single ACTION message and applies its DONE reply
// (§4.5 steps 4-8): tag-map re-ownership, the write-back rebuild, and the
// non-write-back echo invariant.
func (d *Dispatcher) dispatchOne(ctx *types.MatchCtx, def types.ActionDef, uid string) error {
	req := &types.ActionRequest{
		AccountName: ctx.Account.Name,
		ActionName:  def.Name,
		UID:         uid,
		Tags:        ctx.Mail.Tags.Clone(),
		WriteBack:   def.Kind == types.DeliverWriteBack,
		Size:        ctx.Mail.Size,
		Body:        ctx.Mail.Body,
		Bytes:       ctx.Mail.Bytes,
	}

	reply, err := ctx.IPC.SendAction(req)
	if err != nil {
		return fmt.Errorf("action %q: ipc: %w", def.Name, err)
	}
	if reply.Error {
		return fmt.Errorf("action %q: parent reported delivery failure", def.Name)
	}
	if reply.Tags == nil {
		return fmt.Errorf("action %q: protocol violation: DONE carried no tag map", def.Name)
	}

	if !req.WriteBack && len(reply.ReplacementBytes) > 0 {
		return fmt.Errorf("action %q: protocol violation: non-write-back action returned replacement bytes", def.Name)
	}

	ctx.Mail.Tags = reply.Tags

	if req.WriteBack {
		ctx.Mail.Bytes = reply.ReplacementBytes
		ctx.Mail.Size = reply.Size
		ctx.Mail.Body = reply.Body
		mailmsg.TrimFrom(ctx.Mail)
		mailmsg.FillWrapped(ctx.Mail)
		if ctx.Mail.IsUnwrapped() {
			mailmsg.SetWrapped(ctx.Mail, ' ')
		}
		return nil
	}

	if reply.Size != req.Size || reply.Body != req.Body {
		return fmt.Errorf("action %q: protocol violation: non-write-back action changed size/body (size %d->%d, body %d->%d)",
			def.Name, req.Size, reply.Size, req.Body, reply.Body)
	}
	return nil
}

// resolveUserPolicy applies the precedence chain: a rule-scope setting
// wins outright, then an action-scope setting, then the account's
// default (§4.5 step 3).
func resolveUserPolicy(r *types.Rule, def types.ActionDef, acct *types.Account) (findUID bool, users []string) {
	if r != nil && (r.FindUID || len(r.Users) > 0) {
		return r.FindUID, r.Users
	}
	if def.FindUID || len(def.Users) > 0 {
		return def.FindUID, def.Users
	}
	return acct.FindUID, acct.Users
}

var _ interface {
	Dispatch(ctx *types.MatchCtx, actionName string, r *types.Rule) error
} = (*Dispatcher)(nil)
