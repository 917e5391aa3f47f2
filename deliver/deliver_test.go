package deliver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mailshim/mailshim/types"
)

func TestDiscard_AlwaysSucceeds(t *testing.T) {
	a := NewDiscard()
	status, err := a.Deliver(&types.DeliverCtx{Mail: types.NewMail()})
	if err != nil || status != types.DeliverSuccess {
		t.Fatalf("status=%v err=%v, want success/nil", status, err)
	}
	if a.Kind != types.DeliverInChild {
		t.Fatalf("Kind = %v, want DeliverInChild", a.Kind)
	}
}

func TestMaildir_WritesToNew(t *testing.T) {
	dir := t.TempDir()
	a := NewMaildir("inbox", dir)

	m := types.NewMail()
	m.Bytes = []byte("Subject: hi\r\n\r\nbody\r\n")

	status, err := a.Deliver(&types.DeliverCtx{Mail: m})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if status != types.DeliverSuccess {
		t.Fatalf("status = %v, want success", status)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "new"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, "new", entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != string(m.Bytes) {
		t.Fatalf("delivered bytes mismatch")
	}
}

func TestMbox_AppendsEnvelopeAndBody(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.mbox")
	a := NewMbox("archive", path)
	if a.Kind != types.DeliverStateful {
		t.Fatalf("Kind = %v, want DeliverStateful", a.Kind)
	}

	m := types.NewMail()
	m.Bytes = []byte("From: alice@example.com\r\nSubject: hi\r\n\r\nbody\r\n")

	status, err := a.Deliver(&types.DeliverCtx{Mail: m})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if status != types.DeliverSuccess {
		t.Fatalf("status = %v, want success", status)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(data), "From alice@example.com ") {
		t.Fatalf("mbox file missing envelope line: %q", string(data)[:40])
	}
	if !strings.Contains(string(data), "Subject: hi") {
		t.Fatal("mbox file missing message body")
	}
}

func TestStripAttachments_NonMultipartPassesThrough(t *testing.T) {
	a := NewStripAttachments("strip", 1024)
	m := types.NewMail()
	m.Bytes = []byte("Subject: hi\r\nContent-Type: text/plain\r\n\r\nbody\r\n")
	orig := string(m.Bytes)

	status, err := a.Deliver(&types.DeliverCtx{Mail: m})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if status != types.DeliverSuccess {
		t.Fatalf("status = %v, want success", status)
	}
	if string(m.Bytes) != orig {
		t.Fatal("non-multipart message should be left unchanged")
	}
}

func TestStripAttachments_DropsLargeAttachment(t *testing.T) {
	a := NewStripAttachments("strip", 10)

	raw := "Content-Type: multipart/mixed; boundary=XYZ\r\n\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"hello\r\n" +
		"--XYZ\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Disposition: attachment; filename=big.bin\r\n\r\n" +
		"0123456789ABCDEF\r\n" +
		"--XYZ--\r\n"

	m := types.NewMail()
	m.Bytes = []byte(raw)

	status, err := a.Deliver(&types.DeliverCtx{Mail: m})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if status != types.DeliverSuccess {
		t.Fatalf("status = %v, want success", status)
	}
	if strings.Contains(string(m.Bytes), "big.bin") {
		t.Fatal("expected large attachment part to be dropped")
	}
	if !strings.Contains(string(m.Bytes), "hello") {
		t.Fatal("expected inline text part to survive")
	}
}
