// Package client is a typed HTTP client for a server hosting the idlink
// facade. It wraps the JSON endpoints and turns error outcomes back into
// idlink.FlowError values, so client-side code can switch on the same kinds
// the server raised.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	il "github.com/panyam/idlink"
)

// LinkClient talks to a server's /auth/links and /auth/email endpoints
type LinkClient struct {
	serverURL  string
	httpClient *http.Client
}

// ClientOption configures a LinkClient
type ClientOption func(*LinkClient)

// WithHTTPClient sets a custom HTTP client (for timeouts, TLS config, etc.)
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *LinkClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBearerToken authenticates every request with the given bearer token
func WithBearerToken(token string) ClientOption {
	return func(c *LinkClient) {
		c.httpClient.Transport = &bearerTransport{
			base:  c.httpClient.Transport,
			token: token,
		}
	}
}

// bearerTransport stamps the Authorization header onto every outgoing request
type bearerTransport struct {
	base  http.RoundTripper
	token string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone so the caller's request is never mutated
	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+t.token)

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(authed)
}

// NewLinkClient creates a client for the given server
func NewLinkClient(serverURL string, opts ...ClientOption) *LinkClient {
	c := &LinkClient{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ServerURL returns the server URL this client is configured for
func (c *LinkClient) ServerURL() string {
	return c.serverURL
}

// IssueLinkToken requests a link token for the given provider
func (c *LinkClient) IssueLinkToken(ctx context.Context, provider il.Provider) (*il.IssuedLink, error) {
	var out il.IssuedLink
	err := c.do(ctx, http.MethodPost, "/auth/links/token", map[string]string{
		"provider": string(provider),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmLink submits a provider confirmation token
func (c *LinkClient) ConfirmLink(ctx context.Context, token string) (*il.LinkResult, error) {
	var out il.LinkResult
	err := c.do(ctx, http.MethodPost, "/auth/links/confirm", map[string]string{
		"token": token,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListIdentities fetches the caller's attached identities
func (c *LinkClient) ListIdentities(ctx context.Context) ([]*il.ProviderIdentity, error) {
	var out struct {
		Identities []*il.ProviderIdentity `json:"identities"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/links", nil, &out); err != nil {
		return nil, err
	}
	return out.Identities, nil
}

// Unlink detaches the given provider from the caller's account
func (c *LinkClient) Unlink(ctx context.Context, provider il.Provider) error {
	return c.do(ctx, http.MethodDelete, "/auth/links/"+string(provider), nil, nil)
}

// RequestEmailCode asks the server to send a verification code to the
// caller's email address.
func (c *LinkClient) RequestEmailCode(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/email/code", nil, nil)
}

// ConfirmEmail submits the email and code pair. No authentication is needed;
// the pair itself is the proof.
func (c *LinkClient) ConfirmEmail(ctx context.Context, email, code string) error {
	return c.do(ctx, http.MethodPost, "/auth/email/confirm", map[string]string{
		"email": email,
		"code":  code,
	}, nil)
}

// do performs a JSON round trip. Non-2xx responses with a "reason" field
// become FlowErrors of that kind.
func (c *LinkClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var outcome struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(raw, &outcome); err == nil && outcome.Reason != "" {
			return il.NewFlowError(il.ErrorKind(outcome.Reason), fmt.Sprintf("server returned HTTP %d", resp.StatusCode))
		}
		return fmt.Errorf("server returned HTTP %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("invalid response from server: %w", err)
		}
	}
	return nil
}
