// Package upstream is the terminal's client for the remote StoreMate sales
// API. It owns the cross-cutting request decoration (bearer token, X-Reason
// audit header, idempotency key) so no call site hand-rolls headers.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/storemate/terminal-backend/pkg/config"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/types"
)

const (
	salesPath         = "/sales"
	quotePath         = "/sales/quote"
	errorBodyLimit = 4096
	defaultTimeout = 10 * time.Second
)

var errBaseURLRequired = errors.New("upstream base url is required")

// Client talks to the remote sales API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the upstream client from configuration.
func NewClient(cfg config.UpstreamConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		baseURL:    baseURL,
		apiToken:   strings.TrimSpace(cfg.APIToken),
		httpClient: &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// CreateSale posts a checkout request to the upstream. Any transport error or
// non-2xx response comes back as a coded error; callers decide whether that
// means "queue offline".
func (c *Client) CreateSale(ctx context.Context, req types.CheckoutRequest) (*types.Receipt, error) {
	var receipt types.Receipt
	if err := c.post(ctx, salesPath, req, req.IdempotencyKey, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// QuoteSale asks the upstream for authoritative totals without committing a
// sale. Quotes are advisory: quote failures never block a checkout.
func (c *Client) QuoteSale(ctx context.Context, req types.CheckoutRequest) (*types.Totals, error) {
	var quoted types.Totals
	if err := c.post(ctx, quotePath, req, "", &quoted); err != nil {
		return nil, err
	}
	return &quoted, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, idempotencyKey string, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode upstream request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upstream request")
	}
	c.decorate(ctx, httpReq, idempotencyKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "call upstream sales api")
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.errorFromResponse(resp, path)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode upstream response")
	}
	return nil
}

func (c *Client) errorFromResponse(resp *http.Response, path string) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	var envelope types.ErrorEnvelope
	message := fmt.Sprintf("upstream %s returned %d", path, resp.StatusCode)
	if err := json.Unmarshal(snippet, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	code := pkgerrors.CodeUpstream
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = pkgerrors.CodeValidation
	case http.StatusConflict:
		code = pkgerrors.CodeConflict
	case http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	}

	return pkgerrors.New(code, message).WithDetails(map[string]any{
		"status": resp.StatusCode,
		"path":   path,
	})
}
