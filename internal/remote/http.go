package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/kinosync/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "kinosync/1.0"
)

// HTTPClient implements domain.Remote against the store's REST API.
// Every call is bounded by the client timeout; failures come back as
// *domain.RemoteError.
type HTTPClient struct {
	baseURL    string
	token      string
	user       string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a client for baseURL acting as user.
// A zero timeout selects the default.
func NewHTTPClient(baseURL, token, user string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		user:    user,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// WatchProgress implements domain.Remote.
func (c *HTTPClient) WatchProgress() domain.KeyedRemote[domain.WatchProgress] {
	return &httpKeyed[domain.WatchProgress]{
		c:      c,
		domain: domain.DomainWatchProgress,
		path:   PathWatchProgress,
		body: func(key string, v domain.WatchProgress) any {
			return UpsertProgressRequest[domain.WatchProgress]{Key: key, Record: v}
		},
	}
}

// Favorites implements domain.Remote.
func (c *HTTPClient) Favorites() domain.KeyedRemote[domain.Favorite] {
	return &httpKeyed[domain.Favorite]{
		c:      c,
		domain: domain.DomainFavorites,
		path:   PathFavorites,
		body: func(key string, v domain.Favorite) any {
			return UpsertFavoriteRequest[domain.Favorite]{Key: key, Favorite: v}
		},
	}
}

// SearchHistory implements domain.Remote.
func (c *HTTPClient) SearchHistory() domain.HistoryRemote {
	return &httpHistory{c: c}
}

// doRequest performs an authenticated request and returns the response body.
func (c *HTTPClient) doRequest(ctx context.Context, d domain.Domain, op, method, path string, query url.Values, payload any) ([]byte, error) {
	fail := func(status int, err error) error {
		return &domain.RemoteError{Op: op, Domain: d, StatusCode: status, Err: err}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fail(0, fmt.Errorf("failed to encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fail(0, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.user != "" {
		req.Header.Set(UserHeader, c.user)
	}

	c.logger.Debug("remote request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("remote request failed", "method", method, "url", reqURL, "error", err)
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fail(resp.StatusCode, domain.ErrUnauthorized)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		var er ErrorResponse
		if json.Unmarshal(respBody, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status: %s", msg))
	}

	return respBody, nil
}

type httpKeyed[V any] struct {
	c      *HTTPClient
	domain domain.Domain
	path   string
	body   func(key string, v V) any
}

func (k *httpKeyed[V]) FetchAll(ctx context.Context) (map[string]V, error) {
	data, err := k.c.doRequest(ctx, k.domain, domain.OpFetch, http.MethodGet, k.path, nil, nil)
	if err != nil {
		return nil, err
	}
	var records map[string]V
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &domain.RemoteError{Op: domain.OpFetch, Domain: k.domain, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if records == nil {
		records = make(map[string]V)
	}
	return records, nil
}

func (k *httpKeyed[V]) Upsert(ctx context.Context, key string, value V) error {
	_, err := k.c.doRequest(ctx, k.domain, domain.OpUpsert, http.MethodPost, k.path, nil, k.body(key, value))
	return err
}

func (k *httpKeyed[V]) Delete(ctx context.Context, key string) error {
	_, err := k.c.doRequest(ctx, k.domain, domain.OpDelete, http.MethodDelete, k.path, url.Values{ParamKey: {key}}, nil)
	return err
}

func (k *httpKeyed[V]) Clear(ctx context.Context) error {
	_, err := k.c.doRequest(ctx, k.domain, domain.OpClear, http.MethodDelete, k.path, nil, nil)
	return err
}

type httpHistory struct {
	c *HTTPClient
}

func (h *httpHistory) FetchAll(ctx context.Context) ([]string, error) {
	data, err := h.c.doRequest(ctx, domain.DomainSearchHistory, domain.OpFetch, http.MethodGet, PathSearchHistory, nil, nil)
	if err != nil {
		return nil, err
	}
	var keywords []string
	if err := json.Unmarshal(data, &keywords); err != nil {
		return nil, &domain.RemoteError{Op: domain.OpFetch, Domain: domain.DomainSearchHistory, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if keywords == nil {
		keywords = []string{}
	}
	return keywords, nil
}

func (h *httpHistory) Add(ctx context.Context, keyword string) error {
	_, err := h.c.doRequest(ctx, domain.DomainSearchHistory, domain.OpAdd, http.MethodPost, PathSearchHistory, nil, AddKeywordRequest{Keyword: keyword})
	return err
}

func (h *httpHistory) Remove(ctx context.Context, keyword string) error {
	_, err := h.c.doRequest(ctx, domain.DomainSearchHistory, domain.OpRemove, http.MethodDelete, PathSearchHistory, url.Values{ParamKeyword: {keyword}}, nil)
	return err
}

func (h *httpHistory) Clear(ctx context.Context) error {
	_, err := h.c.doRequest(ctx, domain.DomainSearchHistory, domain.OpClear, http.MethodDelete, PathSearchHistory, nil, nil)
	return err
}
