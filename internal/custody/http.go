package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/vencura/vencura/internal/logger"
)

// HTTPClient talks JSON to the custody service, scoped to one environment.
//
// Only the token exchange is retried on transient failures. Account and
// signing calls are repeated only after a 401, which the service answers
// before doing any work, so a signature is never requested twice.
type HTTPClient struct {
	baseURL       string
	environmentID string
	debug         bool

	http     *http.Client
	authHTTP *retryablehttp.Client

	mu     sync.RWMutex
	apiKey string
	token  string
}

// HTTPClientOptions configures an HTTPClient
type HTTPClientOptions struct {
	BaseURL       string
	EnvironmentID string
	Debug         bool
	Timeout       time.Duration
	AuthRetries   int
}

// NewHTTPClient creates a client; call Authenticate before any other method
func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	retries := opts.AuthRetries
	if retries == 0 {
		retries = 3
	}

	authHTTP := retryablehttp.NewClient()
	authHTTP.RetryMax = retries
	authHTTP.RetryWaitMin = 200 * time.Millisecond
	authHTTP.RetryWaitMax = 2 * time.Second
	authHTTP.HTTPClient.Timeout = timeout
	authHTTP.Logger = nil

	return &HTTPClient{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		environmentID: opts.EnvironmentID,
		debug:         opts.Debug,
		http:          &http.Client{Timeout: timeout},
		authHTTP:      authHTTP,
	}
}

type authRequest struct {
	APIToken string `json:"apiToken"`
}

type authResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type signatureResponse struct {
	Signature string `json:"signature"`
}

func (c *HTTPClient) envPath(parts ...string) string {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, "environments", url.PathEscape(c.environmentID))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// Authenticate exchanges the API key for a session token
func (c *HTTPClient) Authenticate(ctx context.Context, apiKey string) error {
	body, err := json.Marshal(authRequest{APIToken: apiKey})
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.envPath("auth", "api-token"), body)
	if err != nil {
		return fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.authHTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: authenticate: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(ctx, "authenticate", resp, false)
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("%w: authenticate: invalid response: %v", ErrRequestFailed, err)
	}
	if out.Token == "" {
		return fmt.Errorf("%w: authenticate: empty token", ErrRequestFailed)
	}

	c.mu.Lock()
	c.apiKey = apiKey
	c.token = out.Token
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) CreateAccount(ctx context.Context, r CreateAccountRequest) (*CreateAccountResult, error) {
	var out CreateAccountResult
	if err := c.do(ctx, http.MethodPost, c.envPath("accounts"), r, &out, false); err != nil {
		return nil, err
	}
	if out.AccountAddress == "" {
		return nil, fmt.Errorf("%w: create account: missing account address", ErrRequestFailed)
	}
	return &out, nil
}

func (c *HTTPClient) UpdatePassword(ctx context.Context, r UpdatePasswordRequest) error {
	return c.do(ctx, http.MethodPut, c.envPath("accounts", r.AccountAddress, "password"), r, nil, true)
}

func (c *HTTPClient) SignMessage(ctx context.Context, r SignMessageRequest) (string, error) {
	var out signatureResponse
	if err := c.do(ctx, http.MethodPost, c.envPath("accounts", r.AccountAddress, "sign-message"), r, &out, true); err != nil {
		return "", err
	}
	return out.Signature, nil
}

func (c *HTTPClient) SignTransaction(ctx context.Context, r SignTransactionRequest) (string, error) {
	var out signatureResponse
	if err := c.do(ctx, http.MethodPost, c.envPath("accounts", r.SenderAddress, "sign-transaction"), r, &out, true); err != nil {
		return "", err
	}
	return out.Signature, nil
}

// do sends one JSON request. A 401 is first treated as an expired session:
// the client re-authenticates once and repeats the request. Only a rejection
// that survives a fresh session is reported as a wrong password.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, in, out interface{}, passwordBearing bool) error {
	c.mu.RLock()
	token, apiKey := c.token, c.apiKey
	c.mu.RUnlock()
	if token == "" {
		return ErrNotAuthenticated
	}

	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	resp, err := c.send(ctx, method, endpoint, body, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && apiKey != "" {
		resp.Body.Close()

		logger.Info(ctx, "custody session rejected, re-authenticating", "method", method, "url", endpoint)
		if err := c.Authenticate(ctx, apiKey); err != nil {
			return fmt.Errorf("%w: refresh session: %v", ErrRequestFailed, err)
		}

		c.mu.RLock()
		token = c.token
		c.mu.RUnlock()

		resp, err = c.send(ctx, method, endpoint, body, token)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(ctx, method+" "+endpoint, resp, passwordBearing)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid response: %v", ErrRequestFailed, err)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, method, endpoint string, body []byte, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	if c.debug {
		logger.Debug(ctx, "custody request", "method", method, "url", endpoint)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrRequestFailed, method, endpoint, err)
	}

	if c.debug {
		logger.Debug(ctx, "custody response", "method", method, "url", endpoint, "status", resp.StatusCode)
	}
	return resp, nil
}

func (c *HTTPClient) statusError(ctx context.Context, op string, resp *http.Response, passwordBearing bool) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var e errorResponse
	_ = json.Unmarshal(raw, &e)
	msg := e.Message
	if msg == "" {
		msg = e.Error
	}

	logger.Warn(ctx, "custody request rejected", "op", op, "status", resp.StatusCode, "message", msg)

	if passwordBearing && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return ErrInvalidPassword
	}
	return fmt.Errorf("%w: %s: status %d", ErrRequestFailed, op, resp.StatusCode)
}

var _ Client = (*HTTPClient)(nil)
