// Package client is a Go client for the advisory request API.
//
// Every Client carries its own Session. Login fills it, a 401 response clears
// it, and nothing is shared between clients.
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
	"sync"
	"time"
)

const defaultTimeout = 15 * time.Second

var (
	// ErrUnauthenticated matches errors for 401 responses. The session has
	// been cleared when it is returned.
	ErrUnauthenticated = errors.New("client: not authenticated")
	// ErrForbidden matches errors for 403 responses. The session is kept.
	ErrForbidden = errors.New("client: forbidden")
)

// APIError is returned for every non-2xx response.
type APIError struct {
	Status int
	Kind   string
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Kind, e.Detail)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	}
	return false
}

// Session is the bearer token a Client sends.
type Session struct {
	AccessToken string
	TokenType   string
}

func (s Session) Authenticated() bool { return s.AccessToken != "" }

type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	session Session
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSession starts the client with an existing token.
func WithSession(s Session) Option {
	return func(c *Client) { c.session = s }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) SetSession(s Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// Logout forgets the current token. Tokens are stateless, so nothing is sent.
func (c *Client) Logout() {
	c.SetSession(Session{})
}

// --- Auth ---

func (c *Client) Register(ctx context.Context, in RegisterInput) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	form := url.Values{"username": {email}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if _, err := c.send(req, &tok); err != nil {
		return Session{}, err
	}
	s := Session{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	c.SetSession(s)
	return s, nil
}

// --- Profile ---

func (c *Client) MyProfile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/me/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveProfile(ctx context.Context, in ProfileInput) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodPost, "/me/profile", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Requests ---

// CreateRequest opens a request. A non-empty idempotencyKey makes retries
// return the first result; replayed reports whether that happened.
func (c *Client) CreateRequest(ctx context.Context, in CreateRequestInput, idempotencyKey string) (req *Request, replayed bool, err error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/requests", in)
	if err != nil {
		return nil, false, err
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	var out Request
	resp, err := c.send(httpReq, &out)
	if err != nil {
		return nil, false, err
	}
	return &out, resp.Header.Get("Idempotent-Replayed") == "true", nil
}

func (c *Client) MyRequests(ctx context.Context) ([]Request, error) {
	var out []Request
	if err := c.do(ctx, http.MethodGet, "/requests/me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MyRequest(ctx context.Context, id string) (*Request, error) {
	var out Request
	if err := c.do(ctx, http.MethodGet, "/requests/me/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelRequest(ctx context.Context, id string) (*Request, error) {
	var out Request
	body := map[string]string{"status": StatusCancelled}
	if err := c.do(ctx, http.MethodPatch, "/requests/me/"+url.PathEscape(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRequests returns a page of every client's requests. Staff only.
func (c *Client) ListRequests(ctx context.Context, opts ListOptions) (*RequestPage, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Skip > 0 {
		q.Set("skip", strconv.Itoa(opts.Skip))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/requests"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out RequestPage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id, status string) (*Request, error) {
	var out Request
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, "/requests/"+url.PathEscape(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	var out []HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/requests/"+url.PathEscape(id)+"/history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.do(ctx, http.MethodGet, "/requests/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Transport ---

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	_, err = c.send(req, out)
	return err
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if s := c.Session(); s.Authenticated() {
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Kind   string `json:"kind"`
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			apiErr.Kind, apiErr.Detail = envelope.Kind, envelope.Detail
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.Logout()
		}
		return resp, apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}
