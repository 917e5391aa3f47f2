package mailmsg

import (
	"strings"
	"testing"

	"github.com/mailshim/mailshim/types"
)

func newTestMail(t *testing.T, raw string) *types.Mail {
	t.Helper()
	m := types.NewMail()
	Append(m, []byte(raw))
	return m
}

func TestTrimFrom(t *testing.T) {
	m := newTestMail(t, "From sender@example.com Mon Jan 1 00:00:00 2024\r\nSubject: hi\r\n\r\nbody\r\n")
	if !TrimFrom(m) {
		t.Fatal("expected TrimFrom to report a removed envelope line")
	}
	if strings.HasPrefix(string(m.Bytes), "From ") {
		t.Fatalf("From line not removed: %q", m.Bytes)
	}
	if m.Size != len(m.Bytes) {
		t.Fatalf("Size %d != len(Bytes) %d", m.Size, len(m.Bytes))
	}
}

func TestTrimFrom_NoEnvelope(t *testing.T) {
	m := newTestMail(t, "Subject: hi\r\n\r\nbody\r\n")
	if TrimFrom(m) {
		t.Fatal("expected no envelope line to be removed")
	}
}

func TestFindHeader_CaseInsensitiveAndFolded(t *testing.T) {
	m := newTestMail(t, "Subject: hello\r\n continuation\r\nFrom: a@b.com\r\n\r\nbody\r\n")
	v, ok := FindHeader(m, "SUBJECT", true)
	if !ok {
		t.Fatal("expected Subject header to be found")
	}
	if v != "hello continuation" {
		t.Fatalf("got %q, want folded continuation", v)
	}
}

func TestFindHeader_Missing(t *testing.T) {
	m := newTestMail(t, "Subject: hello\r\n\r\nbody\r\n")
	if _, ok := FindHeader(m, "Message-Id", true); ok {
		t.Fatal("expected Message-Id to be absent")
	}
}

func TestInsertHeader_PrependsAndShiftsBody(t *testing.T) {
	m := newTestMail(t, "Subject: hi\r\n\r\nbody\r\n")
	ResolveBody(m)
	oldBody := m.Body
	oldSize := m.Size

	if err := InsertHeader(m, "Received: by host (mailshim 1.0, account %q);", "work"); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}

	if m.Size <= oldSize {
		t.Fatalf("Size did not grow: %d -> %d", oldSize, m.Size)
	}
	if m.Body <= oldBody {
		t.Fatalf("Body offset did not advance: %d -> %d", oldBody, m.Body)
	}
	if !strings.HasPrefix(string(m.Bytes), "Received:") {
		t.Fatalf("header not prepended: %q", m.Bytes[:20])
	}
}

func TestInsertHeader_TooLongFails(t *testing.T) {
	m := newTestMail(t, "Subject: hi\r\n\r\nbody\r\n")
	long := strings.Repeat("x", 1000)
	if err := InsertHeader(m, "X-Long: %s", long); err == nil {
		t.Fatal("expected error for over-length header line")
	}
}

func TestFillWrapped_FindsSoftWraps(t *testing.T) {
	longLine := strings.Repeat("a", 90)
	m := newTestMail(t, "Subject: hi\r\n\r\n"+longLine+"\r\nmore text\r\n\r\n")
	n := FillWrapped(m)
	if n != 1 {
		t.Fatalf("FillWrapped found %d wrap points, want 1", n)
	}
}

func TestSetWrapped_TogglesView(t *testing.T) {
	longLine := strings.Repeat("a", 90)
	m := newTestMail(t, "Subject: hi\r\n\r\n"+longLine+"\r\nmore text\r\n\r\n")
	FillWrapped(m)

	SetWrapped(m, ' ')
	if !m.IsUnwrapped() {
		t.Fatal("expected unwrapped view after SetWrapped(' ')")
	}
	for offset := range m.Wrapped {
		if m.Bytes[offset] != ' ' {
			t.Fatalf("offset %d = %q, want space", offset, m.Bytes[offset])
		}
	}

	SetWrapped(m, '\n')
	if m.IsUnwrapped() {
		t.Fatal("expected wrapped view after SetWrapped('\\n')")
	}
	for offset := range m.Wrapped {
		if m.Bytes[offset] != '\n' {
			t.Fatalf("offset %d = %q, want newline", offset, m.Bytes[offset])
		}
	}
}
