package deliver

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/mailshim/mailshim/types"
)

// NewStripAttachments returns a write-back action (privileged: it
// rewrites the mail and the child must pick up the replacement bytes
// via the IPC echo, §4.5 step 7) that drops any MIME part disposed as
// an attachment whose body exceeds maxPartBytes, leaving inline parts
// untouched. Non-multipart messages pass through unchanged. Grounded
// on the reference reflector's extractBodies MIME walk, run here in
// reverse: rebuild instead of extract.
func NewStripAttachments(name string, maxPartBytes int) types.ActionDef {
	return types.ActionDef{
		Name: name,
		Kind: types.DeliverWriteBack,
		Deliver: func(ctx *types.DeliverCtx) (types.DeliverStatus, error) {
			out, changed, err := stripAttachments(ctx.Mail.Bytes, maxPartBytes)
			if err != nil {
				return types.DeliverFailure, err
			}
			if changed {
				ctx.Mail.Bytes = out
				ctx.Mail.Size = len(out)
				ctx.Mail.Body = -1
			}
			return types.DeliverSuccess, nil
		},
	}
}

func stripAttachments(raw []byte, maxPartBytes int) ([]byte, bool, error) {
	e, err := message.Read(bytes.NewReader(raw))
	if err != nil {
		return nil, false, fmt.Errorf("deliver: parse mime: %w", err)
	}

	mediaType, _, _ := e.Header.ContentType()
	if !strings.HasPrefix(mediaType, "multipart/") {
		return raw, false, nil
	}

	var buf bytes.Buffer
	mw, err := message.CreateWriter(&buf, e.Header)
	if err != nil {
		return nil, false, fmt.Errorf("deliver: create writer: %w", err)
	}

	mr := e.MultipartReader()
	changed := false
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			mw.Close()
			return nil, false, fmt.Errorf("deliver: read part: %w", err)
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			mw.Close()
			return nil, false, fmt.Errorf("deliver: read part body: %w", err)
		}

		disposition, _, _ := part.Header.ContentDisposition()
		if disposition == "attachment" && len(body) > maxPartBytes {
			changed = true
			continue
		}

		pw, err := mw.CreatePart(part.Header)
		if err != nil {
			mw.Close()
			return nil, false, fmt.Errorf("deliver: create part: %w", err)
		}
		if _, err := pw.Write(body); err != nil {
			pw.Close()
			mw.Close()
			return nil, false, fmt.Errorf("deliver: write part: %w", err)
		}
		pw.Close()
	}
	if err := mw.Close(); err != nil {
		return nil, false, fmt.Errorf("deliver: finalize mime: %w", err)
	}
	if !changed {
		return raw, false, nil
	}
	return buf.Bytes(), true, nil
}
