// Package fakestore is a client of a fakestoreapi.com shaped product API.
package fakestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/niksmo/prodmng/internal/core/domain"
	"github.com/niksmo/prodmng/internal/core/port"
	"github.com/niksmo/prodmng/pkg/retry"
)

var _ port.RemoteCatalog = (*Client)(nil)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrMalformedBody    = errors.New("malformed response body")
)

const (
	defaultTimeout = 10 * time.Second
	maxErrBody     = 4 << 10
)

// A StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %d", ErrUnexpectedStatus, e.Code)
	}
	return fmt.Sprintf("%s: %d: %s", ErrUnexpectedStatus, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

type Opt func(*clientOpts) error

type clientOpts struct {
	baseURL    string
	httpClient *http.Client
	retry      retry.RetryConfig
	token      string
	tempToken  string
}

func BaseURLOpt(rawURL string) Opt {
	return func(o *clientOpts) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return err
		}
		if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("base url %q: want absolute http(s) url", rawURL)
		}
		o.baseURL = strings.TrimRight(u.String(), "/")
		return nil
	}
}

func HTTPClientOpt(cl *http.Client) Opt {
	return func(o *clientOpts) error {
		if cl == nil {
			return errors.New("http client is nil")
		}
		o.httpClient = cl
		return nil
	}
}

func TimeoutOpt(d time.Duration) Opt {
	return func(o *clientOpts) error {
		if d <= 0 {
			return fmt.Errorf("timeout %s: must be positive", d)
		}
		o.httpClient = &http.Client{Timeout: d}
		return nil
	}
}

// RetryOpt sets how listing the catalog is retried. Writes are never
// retried.
func RetryOpt(attempts int, delay time.Duration) Opt {
	return func(o *clientOpts) error {
		o.retry.MaxAttempts = attempts
		o.retry.Backoff = retry.ExponentialBackoff(delay)
		return nil
	}
}

// CredentialsOpt sets the session credentials. A bearer token takes
// precedence over a temporary token.
func CredentialsOpt(token, tempToken string) Opt {
	return func(o *clientOpts) error {
		o.token = token
		o.tempToken = tempToken
		return nil
	}
}

// A Client talks to the remote product API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      retry.RetryConfig

	mu        sync.RWMutex
	token     string
	tempToken string
}

func NewClient(opts ...Opt) (*Client, error) {
	const op = "fakestore.NewClient"

	if len(opts) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrTooFewOpts)
	}

	options := clientOpts{
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if options.baseURL == "" {
		return nil, fmt.Errorf("%s: base url: %w", op, ErrTooFewOpts)
	}

	options.retry.ShouldRetry = temporary

	return &Client{
		baseURL:    options.baseURL,
		httpClient: options.httpClient,
		retry:      options.retry,
		token:      options.token,
		tempToken:  options.tempToken,
	}, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "Client.ListProducts"

	ps, err := retry.DoWithResult(ctx, c.retry, func() ([]domain.Product, error) {
		var ps []domain.Product
		err := c.do(ctx, http.MethodGet, "/products", nil, &ps)
		return ps, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ps == nil {
		ps = []domain.Product{}
	}
	return ps, nil
}

// productPayload is a product without its id, as the API expects on create.
type productPayload struct {
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
}

func (c *Client) CreateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	const op = "Client.CreateProduct"

	payload := productPayload{
		Title:       p.Title,
		Price:       p.Price,
		Description: p.Description,
		Category:    p.Category,
		Image:       p.Image,
	}

	var created domain.Product
	if err := c.do(ctx, http.MethodPost, "/products", payload, &created); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

func (c *Client) UpdateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	const op = "Client.UpdateProduct"

	var updated domain.Product
	if err := c.do(ctx, http.MethodPut, productPath(p.ID), p, &updated); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id domain.ID) error {
	const op = "Client.DeleteProduct"

	if err := c.do(ctx, http.MethodDelete, productPath(id), nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func productPath(id domain.ID) string {
	return "/products/" + url.PathEscape(string(id))
}

func (c *Client) do(
	ctx context.Context, method, path string, in, out any,
) error {
	const op = "Client.do"

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.dropToken()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrMalformedBody, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		return
	}
	if c.tempToken != "" {
		req.Header["temp_token"] = []string{c.tempToken}
	}
}

func (c *Client) dropToken() {
	const op = "Client.dropToken"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		return
	}
	c.token = ""
	slog.Error("unauthorized, bearer token dropped", "op", op)
}

// temporary reports whether a failed request may succeed when repeated.
func temporary(err error) bool {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrMalformedBody) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return true
}
