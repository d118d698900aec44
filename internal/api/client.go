package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tuannvm/impactlens/internal/auth"
	log "github.com/tuannvm/impactlens/internal/logging"
	"github.com/tuannvm/impactlens/internal/models"
)

// LoginRoute is where the navigator is sent when the backend rejects the token.
const LoginRoute = "/login"

const (
	pathAnalyze    = "/api/analysis/analyze"
	pathStatus     = "/api/analysis/status/"
	pathHistory    = "/api/analysis/history"
	pathAnalysis   = "/api/analysis/"
	pathHealth     = "/api/analysis/health"
	pathCacheState = "/api/cache/status"
	pathCacheClear = "/api/cache/clear"

	maxErrorBody = 4096
)

// Config holds what the client needs to reach the backend.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Navigator moves the user to another screen. The CLI and the dashboard each
// provide their own.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Client talks to the ImpactLens analysis API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     auth.TokenStore
	navigator  Navigator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. The configured timeout is
// not applied to a caller-supplied client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenStore sets where the bearer token is read from and cleared on 401.
func WithTokenStore(store auth.TokenStore) Option {
	return func(c *Client) { c.tokens = store }
}

// WithNavigator sets who is told to show the login screen on 401.
func WithNavigator(nav Navigator) Option {
	return func(c *Client) { c.navigator = nav }
}

// New creates a new API client
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     auth.NewMemoryStore(""),
		navigator:  NavigatorFunc(func(string) {}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// Analyze submits a ticket for analysis and waits for the report.
func (c *Client) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResponse, error) {
	var resp models.AnalysisResponse
	if err := c.doJSON(ctx, http.MethodPost, pathAnalyze, nil, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to analyze %s: %w", req.TicketID, err)
	}
	return &resp, nil
}

// Status fetches an analysis by id.
func (c *Client) Status(ctx context.Context, id string) (*models.AnalysisResponse, error) {
	if id == "" {
		return nil, fmt.Errorf("analysis id is required")
	}
	var resp models.AnalysisResponse
	if err := c.doJSON(ctx, http.MethodGet, pathStatus+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get analysis status: %w", err)
	}
	return &resp, nil
}

// History fetches one page of past analyses. Pages are zero-based.
func (c *Client) History(ctx context.Context, page, size int) ([]models.AnalysisResponse, error) {
	if page < 0 {
		page = 0
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, pathHistory, query, nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to get analysis history: %w", err)
	}
	items, err := decodeHistory(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode analysis history: %w", err)
	}
	return items, nil
}

// Delete removes an analysis by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("analysis id is required")
	}
	if _, err := c.do(ctx, http.MethodDelete, pathAnalysis+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete analysis %s: %w", id, err)
	}
	return nil
}

// Health returns the backend's health message.
func (c *Client) Health(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, pathHealth, nil, nil)
	if err != nil {
		return "", fmt.Errorf("health check failed: %w", err)
	}
	return textBody(body), nil
}

// CacheStatus returns the backend's cache statistics as reported.
func (c *Client) CacheStatus(ctx context.Context) (map[string]interface{}, error) {
	status := map[string]interface{}{}
	if err := c.doJSON(ctx, http.MethodGet, pathCacheState, nil, nil, &status); err != nil {
		return nil, fmt.Errorf("failed to get cache status: %w", err)
	}
	return status, nil
}

// ClearCache empties the backend's caches and returns its confirmation text.
func (c *Client) ClearCache(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodDelete, pathCacheClear, nil, nil)
	if err != nil {
		return "", fmt.Errorf("failed to clear cache: %w", err)
	}
	return textBody(body), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	body, err := c.do(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do sends one request through the request and response interceptors and
// returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in interface{}) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID, err := c.prepare(req, in != nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debugf("[%s] %s %s failed after %s: %v", requestID, method, path, time.Since(start), err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debugf("[%s] %s %s -> %d in %s", requestID, method, path, resp.StatusCode, time.Since(start))

	if err := c.check(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// prepare is the request interceptor.
func (c *Client) prepare(req *http.Request, hasBody bool) (string, error) {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("failed to load auth token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return requestID, nil
}

// check is the response interceptor.
func (c *Client) check(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if status == http.StatusUnauthorized {
		if err := c.tokens.Clear(); err != nil {
			log.Warnf("Failed to clear auth token after 401: %v", err)
		}
		c.navigator.Navigate(LoginRoute)
		return ErrUnauthorized
	}

	text := string(body)
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return &APIError{
		StatusCode: status,
		Message:    serverMessage(body),
		Body:       text,
	}
}

// decodeHistory accepts both a bare JSON array and a paged object with a
// "content" array.
func decodeHistory(raw json.RawMessage) ([]models.AnalysisResponse, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []models.AnalysisResponse{}, nil
	}
	if trimmed[0] == '[' {
		var items []models.AnalysisResponse
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var page struct {
		Content []models.AnalysisResponse `json:"content"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, err
	}
	if page.Content == nil {
		page.Content = []models.AnalysisResponse{}
	}
	return page.Content, nil
}

// textBody returns a plain-text body, unwrapping a JSON string if the server
// sent one.
func textBody(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	var s string
	if len(trimmed) > 0 && trimmed[0] == '"' && json.Unmarshal(trimmed, &s) == nil {
		return s
	}
	return string(trimmed)
}
