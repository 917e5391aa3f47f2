package deliver

import (
	"bytes"
	"fmt"
	"net/mail"
	"os"
	"time"

	gombox "github.com/emersion/go-mbox"
	"github.com/mailshim/mailshim/types"
)

// NewMbox returns a stateful action (privileged: mbox files commonly
// live outside the unprivileged child's write access) that appends the
// mail to an mbox file at path, creating it if necessary. The envelope
// "From " line's sender and date come from the mail's own From/Date
// headers when present, falling back to "mailshim"/now (grounded on
// the reference mailbox-export tool's mbox.NewReader / time.Now
// fallback pattern, mirrored here for writing).
func NewMbox(name, path string) types.ActionDef {
	return types.ActionDef{
		Name: name,
		Kind: types.DeliverStateful,
		Deliver: func(ctx *types.DeliverCtx) (types.DeliverStatus, error) {
			if err := appendMbox(path, ctx.Mail.Bytes); err != nil {
				return types.DeliverFailure, err
			}
			return types.DeliverSuccess, nil
		},
	}
}

func appendMbox(path string, raw []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("deliver: open mbox %s: %w", path, err)
	}
	defer f.Close()

	from, date := envelopeFromDate(raw)

	w := gombox.NewWriter(f)
	mw, err := w.CreateMessage(from, date)
	if err != nil {
		return fmt.Errorf("deliver: mbox envelope: %w", err)
	}
	if _, err := mw.Write(raw); err != nil {
		return fmt.Errorf("deliver: mbox write: %w", err)
	}
	return nil
}

func envelopeFromDate(raw []byte) (string, time.Time) {
	from := "mailshim"
	date := time.Now()

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return from, date
	}
	if addrs, err := msg.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		from = addrs[0].Address
	}
	if d, err := msg.Header.Date(); err == nil {
		date = d
	}
	return from, date
}
