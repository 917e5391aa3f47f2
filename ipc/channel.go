package ipc

import (
	"fmt"
	"io"
	"sync"

	"github.com/mailshim/mailshim/types"
)

// Channel is the full-duplex, line-aware IPC channel over a pre-existing
// file descriptor (§4.6). Reads block with an infinite timeout — the
// child has no independent work while awaiting a parent reply — so
// Channel never sets a read deadline on conn itself; callers that need
// a timeout wrap conn before constructing a Channel.
//
// A Channel is created at child startup and destroyed immediately
// before exit (§3 lifecycles).
type Channel struct {
	conn io.ReadWriteCloser
	dec  *FrameDecoder

	mu sync.Mutex // serializes writes; the protocol is strictly request/reply
}

// NewChannel wraps conn (typically one end of a socket pair inherited
// from the parent) as an IPC channel.
func NewChannel(conn io.ReadWriteCloser) *Channel {
	return &Channel{conn: conn, dec: NewFrameDecoder(conn)}
}

// Close tears down the channel.
func (c *Channel) Close() error {
	return c.conn.Close()
}

// SendAction implements types.IPCHandle: sends MSG_ACTION and blocks for
// the MSG_DONE reply (§4.5 step 4, §4.6).
func (c *Channel) SendAction(req *types.ActionRequest) (*types.ActionReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := &record{
		Kind:        MsgAction,
		AccountName: req.AccountName,
		ActionName:  req.ActionName,
		UID:         req.UID,
		WriteBack:   req.WriteBack,
		Size:        req.Size,
		Body:        req.Body,
		HasMail:     true,
	}
	if err := writeSegments(c.conn, rec, req.Tags, req.Bytes); err != nil {
		return nil, fmt.Errorf("ipc: send action: %w", err)
	}

	replyRec, tags, mailBytes, err := readSegments(c.dec)
	if err != nil {
		return nil, fmt.Errorf("ipc: recv done: %w", err)
	}
	if replyRec.Kind != MsgDone {
		return nil, fmt.Errorf("%w: got %s, want DONE", ErrUnexpectedKind, replyRec.Kind)
	}
	if tags == nil || tags.Len() == 0 {
		// A mandatory-but-empty tag blob is itself a protocol violation
		// per §4.5 step 4, except an action that legitimately clears all
		// tags would still echo at least one (action->name); treat a
		// wholly empty blob as a violation.
		return nil, fmt.Errorf("ipc: protocol violation: DONE reply carried an empty tag blob")
	}

	reply := &types.ActionReply{
		Error: replyRec.Error,
		Tags:  tags,
		Size:  replyRec.Size,
		Body:  replyRec.Body,
	}
	if replyRec.WriteBack {
		reply.ReplacementBytes = mailBytes
	}
	return reply, nil
}

// SendExit sends MSG_EXIT and blocks for the peer's MSG_EXIT
// acknowledgement (§4.4 shutdown, §4.6).
func (c *Channel) SendExit(failed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := &record{Kind: MsgExit, ExitFailed: failed, HasMail: false}
	if err := writeSegments(c.conn, rec, types.NewTagMap(), nil); err != nil {
		return fmt.Errorf("ipc: send exit: %w", err)
	}

	ackRec, _, _, err := readSegments(c.dec)
	if err != nil {
		return fmt.Errorf("ipc: recv exit ack: %w", err)
	}
	if ackRec.Kind != MsgExit {
		return fmt.Errorf("%w: got %s, want EXIT", ErrUnexpectedKind, ackRec.Kind)
	}
	return nil
}

// RecvAction blocks for the next MSG_ACTION from the child. Used by this
// package's tests; cmd/mailshim reads requests through Serve instead.
func (c *Channel) RecvAction() (*types.ActionRequest, error) {
	rec, tags, mailBytes, err := readSegments(c.dec)
	if err != nil {
		return nil, err
	}
	if rec.Kind != MsgAction {
		return nil, fmt.Errorf("%w: got %s, want ACTION", ErrUnexpectedKind, rec.Kind)
	}
	return &types.ActionRequest{
		AccountName: rec.AccountName,
		ActionName:  rec.ActionName,
		UID:         rec.UID,
		Tags:        tags,
		WriteBack:   rec.WriteBack,
		Size:        rec.Size,
		Body:        rec.Body,
		Bytes:       mailBytes,
	}, nil
}

// SendDone replies to a received MSG_ACTION with a MSG_DONE.
func (c *Channel) SendDone(reply *types.ActionReply) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := &record{
		Kind:      MsgDone,
		Error:     reply.Error,
		WriteBack: len(reply.ReplacementBytes) > 0,
		Size:      reply.Size,
		Body:      reply.Body,
		HasMail:   len(reply.ReplacementBytes) > 0,
	}
	tags := reply.Tags
	if tags == nil {
		tags = types.NewTagMap()
	}
	return writeSegments(c.conn, rec, tags, reply.ReplacementBytes)
}

// RecvExit blocks for the peer's MSG_EXIT and acknowledges it with its
// own MSG_EXIT, per the shutdown handshake (§4.4, §4.6).
func (c *Channel) RecvExit() error {
	rec, _, _, err := readSegments(c.dec)
	if err != nil {
		return err
	}
	if rec.Kind != MsgExit {
		return fmt.Errorf("%w: got %s, want EXIT", ErrUnexpectedKind, rec.Kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ack := &record{Kind: MsgExit, HasMail: false}
	return writeSegments(c.conn, ack, types.NewTagMap(), nil)
}

// Serve blocks for the next frame from the child and reports which
// kind arrived: an ACTION request to hand to handle, or the child's
// final EXIT (which Serve acknowledges itself, completing the shutdown
// handshake before returning). Any other kind is a protocol violation
// (§4.6: "Any unexpected message kind ... is fatal").
//
// The parent-side driver loop is: call Serve; if exited is true, stop;
// otherwise run handle(req), then SendDone(reply), then call Serve
// again.
func (c *Channel) Serve() (req *types.ActionRequest, exited bool, err error) {
	rec, tags, mailBytes, err := readSegments(c.dec)
	if err != nil {
		return nil, false, err
	}

	switch rec.Kind {
	case MsgAction:
		return &types.ActionRequest{
			AccountName: rec.AccountName,
			ActionName:  rec.ActionName,
			UID:         rec.UID,
			Tags:        tags,
			WriteBack:   rec.WriteBack,
			Size:        rec.Size,
			Body:        rec.Body,
			Bytes:       mailBytes,
		}, false, nil
	case MsgExit:
		c.mu.Lock()
		defer c.mu.Unlock()
		ack := &record{Kind: MsgExit, HasMail: false}
		if err := writeSegments(c.conn, ack, types.NewTagMap(), nil); err != nil {
			return nil, true, fmt.Errorf("ipc: exit ack: %w", err)
		}
		return nil, true, nil
	default:
		return nil, false, fmt.Errorf("%w: got %s, want ACTION or EXIT", ErrUnexpectedKind, rec.Kind)
	}
}

var _ types.IPCHandle = (*Channel)(nil)
