package ipc

import (
	"net"
	"testing"

	"github.com/mailshim/mailshim/types"
)

// The tests hand net.Pipe halves straight to NewChannel: a net.Conn
// already satisfies io.ReadWriteCloser.

func TestChannel_ActionRoundTrip(t *testing.T) {
	childConn, parentConn := net.Pipe()
	child := NewChannel(childConn)
	parent := NewChannel(parentConn)

	tags := types.NewTagMap()
	tags.Set("action", "mbox")

	done := make(chan error, 1)
	go func() {
		req, err := parent.RecvAction()
		if err != nil {
			done <- err
			return
		}
		if req.ActionName != "mbox" || req.UID != "alice" {
			done <- errUnexpected("req fields")
			return
		}
		replyTags := types.NewTagMap()
		replyTags.Set("action", "mbox")
		replyTags.Set("message_id", "abc")
		done <- parent.SendDone(&types.ActionReply{Tags: replyTags})
	}()

	reply, err := child.SendAction(&types.ActionRequest{
		AccountName: "work",
		ActionName:  "mbox",
		UID:         "alice",
		Tags:        tags,
		Size:        5,
		Body:        2,
		Bytes:       []byte("hello"),
	})
	if err != nil {
		t.Fatalf("SendAction: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("peer side: %v", err)
	}
	if reply.Error {
		t.Fatalf("reply.Error = true, want false")
	}
	if v, _ := reply.Tags.Get("message_id"); v != "abc" {
		t.Fatalf("reply tag message_id = %q, want abc", v)
	}
}

func TestChannel_WriteBackEchoesMailBytes(t *testing.T) {
	childConn, parentConn := net.Pipe()
	child := NewChannel(childConn)
	parent := NewChannel(parentConn)

	done := make(chan error, 1)
	go func() {
		req, err := parent.RecvAction()
		if err != nil {
			done <- err
			return
		}
		replyTags := types.NewTagMap()
		replyTags.Set("action", "mbox")
		done <- parent.SendDone(&types.ActionReply{
			Tags:             replyTags,
			ReplacementBytes: append([]byte("X-New: 1\r\n"), req.Bytes...),
			Size:             len("X-New: 1\r\n") + len(req.Bytes),
			Body:             len("X-New: 1\r\n"),
		})
	}()

	reply, err := child.SendAction(&types.ActionRequest{
		AccountName: "work",
		ActionName:  "mbox",
		WriteBack:   true,
		Size:        5,
		Body:        0,
		Bytes:       []byte("hello"),
		Tags:        types.NewTagMap(),
	})
	if err != nil {
		t.Fatalf("SendAction: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("peer side: %v", err)
	}
	if len(reply.ReplacementBytes) == 0 {
		t.Fatalf("expected replacement bytes for write-back action")
	}
	if reply.Body != 10 {
		t.Fatalf("reply.Body = %d, want 10", reply.Body)
	}
}

func TestChannel_ExitHandshake(t *testing.T) {
	childConn, parentConn := net.Pipe()
	child := NewChannel(childConn)
	parent := NewChannel(parentConn)

	done := make(chan error, 1)
	go func() { done <- parent.RecvExit() }()

	if err := child.SendExit(false); err != nil {
		t.Fatalf("SendExit: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("RecvExit: %v", err)
	}
}

func TestChannel_ServeDispatchesActionThenExit(t *testing.T) {
	childConn, parentConn := net.Pipe()
	child := NewChannel(childConn)
	parent := NewChannel(parentConn)

	done := make(chan error, 1)
	go func() {
		req, exited, err := parent.Serve()
		if err != nil {
			done <- err
			return
		}
		if exited || req.ActionName != "mbox" {
			done <- errUnexpected("expected an action frame first")
			return
		}
		replyTags := types.NewTagMap()
		replyTags.Set("action", "mbox")
		if err := parent.SendDone(&types.ActionReply{Tags: replyTags}); err != nil {
			done <- err
			return
		}
		_, exited, err = parent.Serve()
		if err != nil {
			done <- err
			return
		}
		if !exited {
			done <- errUnexpected("expected EXIT as the second frame")
			return
		}
		done <- nil
	}()

	if _, err := child.SendAction(&types.ActionRequest{
		AccountName: "work",
		ActionName:  "mbox",
		Tags:        types.NewTagMap(),
		Bytes:       []byte("hello"),
	}); err != nil {
		t.Fatalf("SendAction: %v", err)
	}
	if err := child.SendExit(false); err != nil {
		t.Fatalf("SendExit: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Serve loop: %v", err)
	}
}

type unexpectedErr string

func (e unexpectedErr) Error() string { return string(e) }

func errUnexpected(s string) error { return unexpectedErr(s) }
