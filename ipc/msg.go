package ipc

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mailshim/mailshim/types"
)

// MsgKind is the frame type discriminant (§4.6, §6).
type MsgKind uint8

const (
	// MsgAction is sent child->parent: requests one delivery.
	MsgAction MsgKind = iota + 1
	// MsgDone is sent parent->child: reply to MsgAction.
	MsgDone
	// MsgExit is sent in both directions: completion + acknowledgement.
	MsgExit
)

func (k MsgKind) String() string {
	switch k {
	case MsgAction:
		return "ACTION"
	case MsgDone:
		return "DONE"
	case MsgExit:
		return "EXIT"
	default:
		return "UNKNOWN"
	}
}

// record is the fixed-size portion of a frame (§6: "data: fixed record
// (account-ptr, action-ptr, uid, error flag, mail-descriptor)"). The
// child performs no validation of these fields beyond matching them to
// its own local tables; the parent is trusted.
type record struct {
	Kind        MsgKind `msgpack:"kind"`
	AccountName string  `msgpack:"account"`
	ActionName  string  `msgpack:"action,omitempty"`
	UID         string  `msgpack:"uid,omitempty"`
	Error       bool    `msgpack:"error"`
	WriteBack   bool    `msgpack:"write_back"`
	Size        int     `msgpack:"size"`
	Body        int     `msgpack:"body"`
	HasMail     bool    `msgpack:"has_mail"`
	ExitFailed  bool    `msgpack:"exit_failed,omitempty"`
}

// writeSegments writes the fixed record, the tag-map payload, and, if
// present, the mail-bytes payload, each as its own length-prefixed
// segment (§6: "Mail bytes ... ride as a second payload segment").
func writeSegments(w io.Writer, rec *record, tags *types.TagMap, mail []byte) error {
	recBytes, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if _, err := w.Write(EncodeFrame(recBytes)); err != nil {
		return fmt.Errorf("write record frame: %w", err)
	}

	tagBytes, err := msgpack.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	if _, err := w.Write(EncodeFrame(tagBytes)); err != nil {
		return fmt.Errorf("write tag frame: %w", err)
	}

	if rec.HasMail {
		if _, err := w.Write(EncodeFrame(mail)); err != nil {
			return fmt.Errorf("write mail frame: %w", err)
		}
	}
	return nil
}

// readSegments reads the fixed record, the tag-map payload, and,
// if the record declares HasMail, the mail-bytes payload.
func readSegments(d *FrameDecoder) (*record, *types.TagMap, []byte, error) {
	recPayload, err := d.ReadFrame()
	if err != nil {
		return nil, nil, nil, err
	}
	var rec record
	if err := msgpack.Unmarshal(recPayload, &rec); err != nil {
		return nil, nil, nil, &FrameError{Kind: FrameErrorDecode, Msg: "decode record", Err: err}
	}

	tagPayload, err := d.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return nil, nil, nil, &FrameError{Kind: FrameErrorPartial, Msg: "truncated stream: missing tag segment"}
		}
		return nil, nil, nil, err
	}
	tags := types.NewTagMap()
	if len(tagPayload) > 0 {
		if err := msgpack.Unmarshal(tagPayload, tags); err != nil {
			return nil, nil, nil, &FrameError{Kind: FrameErrorDecode, Msg: "decode tags", Err: err}
		}
	}

	var mail []byte
	if rec.HasMail {
		mail, err = d.ReadFrame()
		if err != nil {
			if err == io.EOF {
				return nil, nil, nil, &FrameError{Kind: FrameErrorPartial, Msg: "truncated stream: missing mail segment"}
			}
			return nil, nil, nil, err
		}
	}

	return &rec, tags, mail, nil
}

// ErrUnexpectedKind is returned when a received frame's Kind does not
// match what the caller expected (§4.6: "Any unexpected message kind
// ... is fatal").
var ErrUnexpectedKind = errors.New("ipc: unexpected message kind")
