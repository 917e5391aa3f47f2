package mailmsg

import "github.com/mailshim/mailshim/types"

// softWrapWidth is the column beyond which a body line is considered a
// physical soft-wrap candidate when scanning for wrap points. fdm uses
// the conventional 80-column convention for mail bodies; mailshim keeps
// the same default.
const softWrapWidth = 80

// FillWrapped scans the mail body for long-line split points and
// records them in m.Wrapped, in the wrapped view (newline at each
// recorded offset). Returns the number of wrap points found (§4.2).
// For a CRLF line ending the recorded offset is that of the LF; the CR
// stays in place in both views.
//
// A wrap point is a newline immediately followed by a non-blank,
// non-header-like continuation that would, if the newline were a
// space instead, read as one long logical line. This mirrors the
// source's soft-wrap heuristic: a line broken purely for display width
// rather than a deliberate paragraph break.
func FillWrapped(m *types.Mail) int {
	ResolveBody(m)
	m.Wrapped = make(map[int]byte)
	if m.Body < 0 || m.Body >= m.Size {
		return 0
	}

	body := m.Bytes[m.Body:m.Size]
	count := 0
	lineStart := 0
	for i := 0; i < len(body); i++ {
		if body[i] != '\n' {
			continue
		}
		lineLen := i - lineStart
		nlOffset := m.Body + i

		hasNext := i+1 < len(body)
		nextIsBlank := hasNext && (body[i+1] == '\n' || body[i+1] == '\r')
		if lineLen >= softWrapWidth && hasNext && !nextIsBlank {
			m.Wrapped[nlOffset] = '\n'
			count++
		}
		lineStart = i + 1
	}
	return count
}

// SetWrapped rewrites every recorded wrap point to byte c: ' ' switches
// to the unwrapped view for expression evaluation, '\n' restores the
// wrapped view before delivery or IPC transmit (§3, §4.2).
func SetWrapped(m *types.Mail, c byte) {
	for offset := range m.Wrapped {
		if offset >= 0 && offset < len(m.Bytes) {
			m.Bytes[offset] = c
		}
	}
	m.SetUnwrapped(c == ' ')
}
