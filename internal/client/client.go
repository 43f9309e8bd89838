// Package client is a small Go client for the podcast generation API. It is
// what podcastctl uses, and it speaks the same JSON envelopes the server
// writes: `{success:true, ...}` on success and
// `{success:false, error, code, request_id}` on failure.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-podcast-backend/internal/domain"
)

// DefaultTimeout bounds each request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// ErrUnexpectedResponse is returned when the server answers with a body that
// is not one of the API envelopes.
var ErrUnexpectedResponse = errors.New("client: unexpected response")

// APIError is a failure envelope returned by the server.
type APIError struct {
	Status    int    `json:"-"`
	Message   string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s (%d %s, request %s)", e.Message, e.Status, e.Code, e.RequestID)
	}
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client calls the API rooted at BaseURL (including the base path, e.g.
// "http://localhost:8080/api").
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// CallbackToken authenticates ReportResult.
	CallbackToken string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.HTTP = hc } }

// WithTimeout sets a per-request timeout on a fresh http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTP = &http.Client{Timeout: d} }
}

// WithCallbackToken sets the bearer token sent by ReportResult.
func WithCallbackToken(token string) Option { return func(c *Client) { c.CallbackToken = token } }

// New returns a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GenerateRequest is a submission. Length is in minutes.
type GenerateRequest struct {
	CityName string  `json:"city_name"`
	Language string  `json:"language"`
	Length   float64 `json:"length"`
}

// GenerateResult is the code issued for a submission.
type GenerateResult struct {
	Code string
	// Replayed is true when the server returned the code of an earlier
	// submission with the same idempotency key.
	Replayed bool
}

// Generate submits a job. A non-empty idempotencyKey makes retries safe.
func (c *Client) Generate(ctx context.Context, req GenerateRequest, idempotencyKey string) (*GenerateResult, error) {
	hdr := http.Header{}
	if idempotencyKey != "" {
		hdr.Set("Idempotency-Key", idempotencyKey)
	}
	var body struct {
		Code string `json:"code"`
	}
	resp, err := c.do(ctx, http.MethodPost, "/generate-podcast", nil, hdr, req, &body)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Code: body.Code, Replayed: resp.Header.Get("Idempotent-Replay") == "true"}, nil
}

// Podcast polls the summary view of a job.
func (c *Client) Podcast(ctx context.Context, code string) (*domain.PodcastSummary, error) {
	var body struct {
		Podcast domain.PodcastSummary `json:"podcast"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/podcast/"+url.PathEscape(code), nil, nil, nil, &body); err != nil {
		return nil, err
	}
	return &body.Podcast, nil
}

// Record fetches the full record of a job.
func (c *Client) Record(ctx context.Context, code string) (*domain.Podcast, error) {
	var body struct {
		Podcast domain.Podcast `json:"podcast"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/podcasts/"+url.PathEscape(code), nil, nil, nil, &body); err != nil {
		return nil, err
	}
	return &body.Podcast, nil
}

// List returns the newest jobs. A limit <= 0 uses the server bound.
func (c *Client) List(ctx context.Context, limit int) ([]domain.Podcast, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var body struct {
		Podcasts []domain.Podcast `json:"podcasts"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/podcasts", q, nil, nil, &body); err != nil {
		return nil, err
	}
	return body.Podcasts, nil
}

// Result is a generator outcome sent to ReportResult.
type Result struct {
	Status        domain.Status      `json:"status"`
	Title         *string            `json:"title,omitempty"`
	Description   *string            `json:"description,omitempty"`
	AudioURL      *string            `json:"audio_url,omitempty"`
	ScriptContent *string            `json:"script_content,omitempty"`
	References    []domain.Reference `json:"references,omitempty"`
	ErrorMessage  *string            `json:"error_message,omitempty"`
}

// ReportResult moves a job forward on behalf of the generator.
func (c *Client) ReportResult(ctx context.Context, code string, res Result) (*domain.Podcast, error) {
	hdr := http.Header{}
	if c.CallbackToken != "" {
		hdr.Set("Authorization", "Bearer "+c.CallbackToken)
	}
	var body struct {
		Podcast domain.Podcast `json:"podcast"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/podcasts/"+url.PathEscape(code)+"/result", nil, hdr, res, &body); err != nil {
		return nil, err
	}
	return &body.Podcast, nil
}

// Wait polls Podcast every interval until the job reaches a terminal status
// or ctx ends, in which case the last summary seen is returned with ctx.Err().
// onPoll, when set, sees every summary.
func (c *Client) Wait(ctx context.Context, code string, interval time.Duration, onPoll func(*domain.PodcastSummary)) (*domain.PodcastSummary, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	var last *domain.PodcastSummary
	for {
		p, err := c.Podcast(ctx, code)
		if err != nil {
			if ctx.Err() != nil && last != nil {
				return last, ctx.Err()
			}
			return nil, err
		}
		last = p
		if onPoll != nil {
			onPoll(p)
		}
		if p.Status.IsTerminal() {
			return p, nil
		}
		select {
		case <-ctx.Done():
			return p, ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, hdr http.Header, in, out any) (*http.Response, error) {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var rdr io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("client: encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("client: read body: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
			return nil, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
		}
		return nil, apiErr
	}

	var env struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || !env.Success {
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("client: decode response: %w", err)
		}
	}
	return resp, nil
}
