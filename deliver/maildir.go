package deliver

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mailshim/mailshim/types"
)

// NewMaildir returns an in-child action that writes the mail into dir's
// "new" subdirectory using a unique filename, in the conventional
// maildir delivery style: write to tmp, then rename into new so a
// concurrent reader never observes a partial file.
func NewMaildir(name, dir string) types.ActionDef {
	return types.ActionDef{
		Name: name,
		Kind: types.DeliverInChild,
		Deliver: func(ctx *types.DeliverCtx) (types.DeliverStatus, error) {
			if err := deliverMaildir(dir, ctx.Mail.Bytes); err != nil {
				return types.DeliverFailure, err
			}
			return types.DeliverSuccess, nil
		},
	}
}

func deliverMaildir(dir string, bytes []byte) error {
	for _, sub := range []string{"tmp", "new", "cur"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return fmt.Errorf("deliver: maildir mkdir %s: %w", sub, err)
		}
	}

	name := fmt.Sprintf("%d.%s.mailshim", time.Now().UnixNano(), uuid.NewString())
	tmpPath := filepath.Join(dir, "tmp", name)
	newPath := filepath.Join(dir, "new", name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("deliver: create %s: %w", tmpPath, err)
	}
	if _, err := f.Write(bytes); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("deliver: write %s: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("deliver: sync %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("deliver: close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, newPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("deliver: rename into new: %w", err)
	}
	return nil
}
