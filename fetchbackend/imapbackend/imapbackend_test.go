package imapbackend

import (
	"testing"

	"github.com/mailshim/mailshim/fetchbackend"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(map[string]string{"host": "imap.example.com", "user": "alice"})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.mailbox != "INBOX" {
		t.Fatalf("mailbox = %q, want INBOX", cfg.mailbox)
	}
	if cfg.port != "993" {
		t.Fatalf("port = %q, want 993", cfg.port)
	}
	if cfg.startTLS {
		t.Fatal("startTLS should default to false (direct TLS)")
	}
}

func TestParseConfig_MissingHostOrUser(t *testing.T) {
	if _, err := parseConfig(map[string]string{"user": "alice"}); err == nil {
		t.Fatal("expected error for missing host")
	}
	if _, err := parseConfig(map[string]string{"host": "imap.example.com"}); err == nil {
		t.Fatal("expected error for missing user")
	}
}

func TestParseConfig_StartTLSAndInsecure(t *testing.T) {
	cfg, err := parseConfig(map[string]string{
		"host": "imap.example.com", "user": "alice", "tls": "starttls", "insecure_skip_verify": "1",
	})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if !cfg.startTLS || !cfg.insecure {
		t.Fatalf("cfg = %+v, want startTLS and insecure both true", cfg)
	}
}

func TestBackend_SatisfiesCapabilityInterfaces(t *testing.T) {
	b := New()
	var _ fetchbackend.Starter = b
	var _ fetchbackend.Poller = b
	var _ fetchbackend.Fetcher = b
	var _ fetchbackend.Doner = b
	var _ fetchbackend.Purger = b
	var _ fetchbackend.Finisher = b
}
