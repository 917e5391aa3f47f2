// Package interp implements the replacestr-style tag/header/regex-capture
// interpolation used to build rule key/value templates and action-name
// templates (§3 Rule fields, §1 "string interpolation (replacestr):
// consumed as pure utilities"). The concrete template shape is not given
// by spec.md; it is supplied here per SPEC_FULL.md §3.5, grounded on
// fdm's replacestr.c (original_source/).
package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mailshim/mailshim/mailmsg"
	"github.com/mailshim/mailshim/types"
)

// Expand substitutes every recognized placeholder in tmpl:
//
//	%{tag-name}     -> the mail's current tag value, or "" if unset
//	%[header-name]  -> the first matching header value (trimmed), or ""
//	%0 .. %9        -> the mail's cached regex capture groups (§3 RML)
//	%%              -> a literal percent sign
//
// An unresolvable placeholder (malformed %{ or %[ with no closing
// brace/bracket) is an error; unresolved tags/headers are not errors —
// they simply interpolate empty (§7 tier 1: "Interpolation yielding
// empty key -> skip tag").
func Expand(tmpl string, mail *types.Mail) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(tmpl) {
		c := tmpl[i]
		if c != '%' {
			out.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(tmpl) {
			return "", fmt.Errorf("interp: dangling %%%% at end of template %q", tmpl)
		}
		switch next := tmpl[i+1]; {
		case next == '%':
			out.WriteByte('%')
			i += 2
		case next == '{':
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end < 0 {
				return "", fmt.Errorf("interp: unterminated %%{ in template %q", tmpl)
			}
			name := tmpl[i+2 : i+2+end]
			if v, ok := mail.Tags.Get(name); ok {
				out.WriteString(v)
			}
			i += 2 + end + 1
		case next == '[':
			end := strings.IndexByte(tmpl[i+2:], ']')
			if end < 0 {
				return "", fmt.Errorf("interp: unterminated %%[ in template %q", tmpl)
			}
			name := tmpl[i+2 : i+2+end]
			if v, ok := mailmsg.FindHeader(mail, name, true); ok {
				out.WriteString(v)
			}
			i += 2 + end + 1
		case next >= '0' && next <= '9':
			n, _ := strconv.Atoi(string(next))
			out.WriteString(mail.RML.Group(n))
			i += 2
		default:
			return "", fmt.Errorf("interp: unrecognized escape %%%c in template %q", next, tmpl)
		}
	}
	return out.String(), nil
}
