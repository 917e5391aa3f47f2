// Package imapbackend implements fetchbackend.Backend (plus Poller and
// Doner) against a real IMAP server, using github.com/emersion/go-imap
// and its client subpackage the way the teacher's reference IMAP tool
// does it (imaputil.DialAndLogin / SearchUIDsSince / downloadMailbox in
// the example pack), adapted from a bulk mailbox-export tool into a
// one-message-at-a-time fetch loop.
package imapbackend

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/mailshim/mailshim/fetchbackend"
	"github.com/mailshim/mailshim/types"
)

// Backend fetches from a single IMAP mailbox. BackendConfig keys
// recognized from types.Account.BackendConfig: host, port, user, pass,
// mailbox (default INBOX), tls ("starttls" or "direct", default direct),
// insecure_skip_verify ("1" to disable certificate verification).
// Account.SizeLimit is not applied: Fetch never reports FetchOversize.
type Backend struct {
	cfg    config
	client *client.Client
	// pending holds UIDs discovered by the most recent search that have
	// not yet been handed out by Fetch, oldest first.
	pending []uint32
	polled  bool
}

type config struct {
	host, port, user, pass, mailbox string
	startTLS, insecure              bool
}

func New() *Backend {
	return &Backend{}
}

func parseConfig(m map[string]string) (config, error) {
	c := config{
		host:    m["host"],
		port:    m["port"],
		user:    m["user"],
		pass:    m["pass"],
		mailbox: m["mailbox"],
	}
	if c.mailbox == "" {
		c.mailbox = "INBOX"
	}
	if c.port == "" {
		c.port = "993"
	}
	if c.host == "" || c.user == "" {
		return config{}, fmt.Errorf("imapbackend: host and user are required")
	}
	c.startTLS = m["tls"] == "starttls"
	c.insecure = m["insecure_skip_verify"] == "1"
	return c, nil
}

// Start dials, authenticates, and selects the configured mailbox
// (§4.1 "start").
func (b *Backend) Start(ctx context.Context, acct *types.Account) error {
	cfg, err := parseConfig(acct.BackendConfig)
	if err != nil {
		return err
	}
	b.cfg = cfg

	addr := cfg.host + ":" + cfg.port
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.insecure, ServerName: cfg.host}

	var c *client.Client
	if cfg.startTLS {
		c, err = client.Dial(addr)
		if err != nil {
			return fmt.Errorf("imapbackend: dial: %w", err)
		}
		if err := c.StartTLS(tlsConfig); err != nil {
			_ = c.Logout()
			return fmt.Errorf("imapbackend: starttls: %w", err)
		}
	} else {
		c, err = client.DialTLS(addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("imapbackend: dial tls: %w", err)
		}
	}

	if err := c.Login(cfg.user, cfg.pass); err != nil {
		_ = c.Logout()
		return fmt.Errorf("imapbackend: login: %w", err)
	}
	if _, err := c.Select(cfg.mailbox, false); err != nil {
		_ = c.Logout()
		return fmt.Errorf("imapbackend: select %s: %w", cfg.mailbox, err)
	}

	b.client = c
	return nil
}

// Poll searches for unseen messages without downloading them (§4.1
// "poll"). A non-empty result primes Fetch's pending queue so the
// following Fetch calls do not re-search.
func (b *Backend) Poll(ctx context.Context) (bool, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := b.client.UidSearch(criteria)
	if err != nil {
		return false, fmt.Errorf("imapbackend: search: %w", err)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	b.pending = uids
	b.polled = true
	return len(uids) > 0, nil
}

// Fetch returns the next pending message, searching first if Poll was
// never called (§4.1 "fetch").
func (b *Backend) Fetch(ctx context.Context) (fetchbackend.FetchResult, error) {
	if !b.polled {
		if _, err := b.Poll(ctx); err != nil {
			return fetchbackend.FetchResult{}, err
		}
	}
	if len(b.pending) == 0 {
		return fetchbackend.FetchResult{Status: types.FetchComplete}, nil
	}

	uid := b.pending[0]
	b.pending = b.pending[1:]

	seq := new(imap.SeqSet)
	seq.AddNum(uid)
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchRFC822Size, imap.FetchUid}

	msgs := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- b.client.UidFetch(seq, items, msgs)
	}()

	msg, ok := <-msgs
	if fetchErr := <-done; fetchErr != nil {
		return fetchbackend.FetchResult{}, fmt.Errorf("imapbackend: fetch uid %d: %w", uid, fetchErr)
	}
	if !ok || msg == nil {
		return fetchbackend.FetchResult{}, fmt.Errorf("imapbackend: uid %d vanished mid-fetch", uid)
	}

	body := msg.GetBody(section)
	if body == nil {
		return fetchbackend.FetchResult{}, fmt.Errorf("imapbackend: uid %d: no body section in response", uid)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return fetchbackend.FetchResult{}, fmt.Errorf("imapbackend: read uid %d: %w", uid, err)
	}

	return fetchbackend.FetchResult{
		Status: types.FetchSuccess,
		UID:    strconv.FormatUint(uint64(uid), 10),
		Bytes:  buf.Bytes(),
		Size:   int64(msg.Size),
	}, nil
}

// Done marks uid \Deleted and expunges it when keep is false; a kept
// message is left untouched in the mailbox (§4.1 "done").
func (b *Backend) Done(ctx context.Context, uid string, keep bool) error {
	if keep {
		return nil
	}
	n, err := strconv.ParseUint(uid, 10, 32)
	if err != nil {
		return fmt.Errorf("imapbackend: invalid uid %q: %w", uid, err)
	}
	seq := new(imap.SeqSet)
	seq.AddNum(uint32(n))

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []any{imap.DeletedFlag}
	if err := b.client.UidStore(seq, item, flags, nil); err != nil {
		return fmt.Errorf("imapbackend: store \\Deleted on uid %s: %w", uid, err)
	}
	return b.client.Expunge(nil)
}

// Purge is a no-op: expunge already runs per Done call, so there is no
// separate maintenance pass for this backend (§4.1 "purge" is optional).
func (b *Backend) Purge(ctx context.Context) error { return nil }

// Finish logs out and releases the connection (§4.1 "finish").
func (b *Backend) Finish(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	return b.client.Logout()
}

var (
	_ fetchbackend.Starter  = (*Backend)(nil)
	_ fetchbackend.Poller   = (*Backend)(nil)
	_ fetchbackend.Fetcher  = (*Backend)(nil)
	_ fetchbackend.Doner    = (*Backend)(nil)
	_ fetchbackend.Purger   = (*Backend)(nil)
	_ fetchbackend.Finisher = (*Backend)(nil)
)
