// Package mailmsg implements the Mail object operations of §4.2: the
// byte buffer a mail's header index, wrap-point map, and body offset are
// derived from. Operations here never allocate a types.Mail themselves
// (types.NewMail does that); they only mutate one.
package mailmsg

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mailshim/mailshim/types"
)

// maxHeaderLine is the longest a formatted header line may be (§4.2):
// insert_header fails if the formatted line would exceed this.
const maxHeaderLine = 998

// Append grows m.Bytes by chunk allocation and appends data, keeping
// m.Size authoritative (never cap(m.Bytes)) per §4.2.
func Append(m *types.Mail, data []byte) {
	m.Bytes = append(m.Bytes, data...)
	m.Size = len(m.Bytes)
}

// TrimFrom strips a leading "From " envelope line, if present, reducing
// Size accordingly (§4.2, §3 invariants). Returns true if a line was
// removed.
func TrimFrom(m *types.Mail) bool {
	if !bytes.HasPrefix(m.Bytes, []byte("From ")) {
		return false
	}
	nl := bytes.IndexByte(m.Bytes, '\n')
	if nl < 0 {
		return false
	}
	cut := nl + 1
	m.Bytes = append([]byte(nil), m.Bytes[cut:]...)
	m.Size = len(m.Bytes)
	if m.Body >= 0 {
		m.Body -= cut
		if m.Body < 0 {
			m.Body = 0
		}
	}
	return true
}

// FindHeader returns the first value of the named header, matched
// case-insensitively, optionally trimmed of leading/trailing whitespace
// (§4.2). The header-name lookup only scans up to the first blank line
// (the body boundary is not assumed known yet).
func FindHeader(m *types.Mail, name string, trim bool) (string, bool) {
	headerEnd := headerBoundary(m.Bytes)
	headers := m.Bytes[:headerEnd]

	lines := splitHeaderLines(headers)
	prefix := strings.ToLower(name) + ":"
	for _, line := range lines {
		if len(line) < len(prefix) {
			continue
		}
		if strings.ToLower(line[:len(prefix)]) == prefix {
			val := line[len(prefix):]
			if trim {
				val = strings.TrimSpace(val)
			}
			return val, true
		}
	}
	return "", false
}

// InsertHeader prepends a header line built from format/args, ahead of
// the existing headers. Fails if the formatted line (including the
// trailing CRLF) would exceed 998 bytes (§4.2).
func InsertHeader(m *types.Mail, format string, args ...any) error {
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\r\n") {
		line += "\r\n"
	}
	if len(line) > maxHeaderLine {
		return fmt.Errorf("mailmsg: header line length %d exceeds %d bytes", len(line), maxHeaderLine)
	}

	newBytes := make([]byte, 0, len(line)+len(m.Bytes))
	newBytes = append(newBytes, line...)
	newBytes = append(newBytes, m.Bytes...)
	m.Bytes = newBytes
	m.Size = len(m.Bytes)
	if m.Body >= 0 {
		m.Body += len(line)
	}
	return nil
}

// headerBoundary returns the byte offset of the blank line separating
// headers from body (CRLFCRLF or LFLF), or len(b) if none is found.
func headerBoundary(b []byte) int {
	if i := bytes.Index(b, []byte("\r\n\r\n")); i >= 0 {
		return i + 2
	}
	if i := bytes.Index(b, []byte("\n\n")); i >= 0 {
		return i + 1
	}
	return len(b)
}

// splitHeaderLines splits a raw header block into unfolded logical
// lines: a line that starts with a space or tab is a continuation of
// the previous line and is joined to it with a single space.
func splitHeaderLines(headers []byte) []string {
	raw := strings.Split(strings.ReplaceAll(string(headers), "\r\n", "\n"), "\n")
	var lines []string
	for _, l := range raw {
		if l == "" {
			continue
		}
		if (strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += " " + strings.TrimLeft(l, " \t")
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// ResolveBody sets m.Body to the byte offset where the body begins, if
// not already known, per §4.2 ("Body offset is recomputed only on
// mail_receive"). Safe to call unconditionally; a no-op if Body is
// already >= 0.
func ResolveBody(m *types.Mail) {
	if m.Body >= 0 {
		return
	}
	b := headerBoundary(m.Bytes)
	switch {
	case bytes.HasPrefix(m.Bytes[b:], []byte("\r\n")):
		b += 2
	case bytes.HasPrefix(m.Bytes[b:], []byte("\n")):
		b++
	}
	m.Body = b
}
