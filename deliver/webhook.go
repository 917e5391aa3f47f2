package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mailshim/mailshim/iox"
	"github.com/mailshim/mailshim/mailmsg"
	"github.com/mailshim/mailshim/types"
)

// WebhookConfig configures a webhook notification action.
type WebhookConfig struct {
	// URL is the HTTP endpoint to POST to (required).
	URL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (0 means a single
	// attempt; negative values are rejected).
	Retries int
}

const defaultWebhookTimeout = 10 * time.Second

// webhookEvent is the JSON body POSTed for a delivered mail: a
// notification payload, not the mail itself, so the receiving endpoint
// never has to parse MIME to learn a mail arrived.
type webhookEvent struct {
	Account   string `json:"account"`
	UID       string `json:"uid"`
	Subject   string `json:"subject,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Size      int    `json:"size"`
}

// NewWebhook returns a stateful action (privileged: outbound network
// access belongs to the parent process) that POSTs a JSON summary of
// the mail to cfg.URL, retrying with exponential backoff on 5xx
// responses and network errors; 4xx responses are treated as
// non-retriable. Grounded on the reference run-completion webhook
// adapter's retry/backoff shape, retargeted from a run-event payload
// to a per-mail notification.
func NewWebhook(name string, cfg WebhookConfig) (types.ActionDef, error) {
	if cfg.URL == "" {
		return types.ActionDef{}, errors.New("deliver: webhook action requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWebhookTimeout
	}
	if cfg.Retries < 0 {
		return types.ActionDef{}, fmt.Errorf("deliver: webhook retries must be >= 0, got %d", cfg.Retries)
	}

	client := &http.Client{Timeout: cfg.Timeout}

	return types.ActionDef{
		Name: name,
		Kind: types.DeliverStateful,
		Deliver: func(ctx *types.DeliverCtx) (types.DeliverStatus, error) {
			subject, _ := mailmsg.FindHeader(ctx.Mail, "Subject", true)
			messageID, _ := ctx.Mail.Tags.Get("message_id")
			event := webhookEvent{
				Account:   ctx.Account.Name,
				Subject:   subject,
				MessageID: messageID,
				Size:      ctx.Mail.Size,
			}
			if v, ok := ctx.Mail.Tags.Get("uid"); ok {
				event.UID = v
			}

			if err := publishWebhook(context.Background(), client, cfg, event); err != nil {
				return types.DeliverFailure, err
			}
			return types.DeliverSuccess, nil
		},
	}, nil
}

func publishWebhook(ctx context.Context, client *http.Client, cfg WebhookConfig, event webhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("deliver: webhook marshal event: %w", err)
	}

	var lastErr error
	attempts := 1 + cfg.Retries

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("deliver: webhook context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("deliver: webhook context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = doWebhookRequest(ctx, client, cfg, body)
		if lastErr == nil {
			return nil
		}

		var statusErr *webhookStatusError
		if errors.As(lastErr, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			return fmt.Errorf("deliver: webhook non-retriable error: %w", lastErr)
		}
	}

	return fmt.Errorf("deliver: webhook failed after %d attempts: %w", attempts, lastErr)
}

// webhookStatusError is returned for non-2xx HTTP responses, so callers
// can distinguish retriable (5xx) from non-retriable (4xx) failures.
type webhookStatusError struct {
	Code int
}

func (e *webhookStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

func doWebhookRequest(ctx context.Context, client *http.Client, cfg WebhookConfig, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("deliver: webhook create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver: webhook request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &webhookStatusError{Code: resp.StatusCode}
	}
	return nil
}
