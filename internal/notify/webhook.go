package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// WebhookNotifier POSTs the generation payload to a fixed URL.
type WebhookNotifier struct {
	URL    string
	Token  string // sent as a bearer token when set
	Client *http.Client
}

// NewWebhookNotifier returns a WebhookNotifier using http.DefaultClient.
// Per-call deadlines come from the context passed to Notify.
func NewWebhookNotifier(url, token string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, Token: token, Client: http.DefaultClient}
}

// Name implements Notifier.
func (w *WebhookNotifier) Name() string { return "webhook" }

// Notify sends req and treats any non-2xx response as a failure.
func (w *WebhookNotifier) Notify(ctx context.Context, req GenerationRequest) error {
	body, err := Payload(req)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrDeliveryFailed, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(w.Token) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.Token)
	}

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: webhook responded %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}
