// Package upstream talks to the external products, orders and appointments API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"syntrad-backend/dtos"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const maxResponseBytes = 4 << 20

// ErrUnavailable wraps transport failures: the API could not be reached or
// did not answer in time.
var ErrUnavailable = errors.New("upstream API unavailable")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream API returned %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream API returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL       string
	http          *http.Client
	log           logrus.FieldLogger
	maxRetries    uint64
	retryInterval time.Duration
}

type Option func(*Client)

// WithRetry sets how often idempotent calls are retried and the first wait between attempts.
func WithRetry(maxRetries uint64, initialInterval time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryInterval = initialInterval
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(baseURL string, timeout time.Duration, log logrus.FieldLogger, opts ...Option) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Timeout: timeout},
		log:           log,
		maxRetries:    3,
		retryInterval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	method  string
	path    string
	token   string
	body    any
	headers map[string]string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var payload io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", r.method, r.path, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, payload)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, r.method, r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %v", ErrUnavailable, r.method, r.path, err)
	}

	c.log.WithFields(logrus.Fields{
		"method":  r.method,
		"path":    r.path,
		"status":  resp.StatusCode,
		"latency": time.Since(start).String(),
	}).Debug("upstream call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

// doIdempotent retries transport failures and 5xx answers with exponential
// backoff. Only use it for calls that are safe to repeat.
func (c *Client) doIdempotent(ctx context.Context, r request, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := c.do(ctx, r, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		c.log.WithError(err).WithField("attempt", attempt).Warn("upstream call failed, retrying")
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx))
}

func errorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func (c *Client) ListProducts(ctx context.Context) ([]dtos.Product, error) {
	var out dtos.ProductList
	if err := c.doIdempotent(ctx, request{method: http.MethodGet, path: "/api/products"}, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// FindProduct looks a product up by id in the catalog listing.
func (c *Client) FindProduct(ctx context.Context, id string) (*dtos.Product, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, nil
}

func (c *Client) CreateProduct(ctx context.Context, token string, req dtos.CreateProductRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/products", token: token, body: req}, &out)
	return out, err
}

// CreateOrder is never retried: a lost response could otherwise place the
// order twice. The idempotency key lets the API drop duplicates of its own.
func (c *Client) CreateOrder(ctx context.Context, order dtos.CheckoutOrder, idempotencyKey string) (*dtos.CheckoutResponse, error) {
	var out dtos.CheckoutResponse
	r := request{
		method:  http.MethodPost,
		path:    "/api/orders/checkout",
		body:    order,
		headers: map[string]string{"Idempotency-Key": idempotencyKey},
	}
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MarkOrderPaid(ctx context.Context, orderID string) error {
	return c.doIdempotent(ctx, request{
		method: http.MethodPatch,
		path:   "/api/orders/" + url.PathEscape(orderID) + "/paypal",
	}, nil)
}

func (c *Client) ListOrders(ctx context.Context, token string) ([]dtos.Record, error) {
	var out dtos.OrderList
	if err := c.doIdempotent(ctx, request{method: http.MethodGet, path: "/api/orders", token: token}, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) UpdateOrder(ctx context.Context, token, orderID string, update dtos.OrderUpdate) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doIdempotent(ctx, request{
		method: http.MethodPatch,
		path:   "/api/orders/" + url.PathEscape(orderID),
		token:  token,
		body:   update,
	}, &out)
	return out, err
}

func (c *Client) CreateAppointment(ctx context.Context, req dtos.AppointmentRequest) (*dtos.APIResult, error) {
	var out dtos.APIResult
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/appointments", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAppointments(ctx context.Context, token string) ([]dtos.Record, error) {
	var out dtos.AppointmentList
	if err := c.doIdempotent(ctx, request{method: http.MethodGet, path: "/api/appointments", token: token}, &out); err != nil {
		return nil, err
	}
	return out.Appointments, nil
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, token, id, status string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doIdempotent(ctx, request{
		method: http.MethodPatch,
		path:   "/api/appointments/" + url.PathEscape(id) + "/status",
		token:  token,
		body:   map[string]string{"status": status},
	}, &out)
	return out, err
}

// ListMyOrders returns the orders of the token's owner.
func (c *Client) ListMyOrders(ctx context.Context, token string) ([]dtos.Record, error) {
	var out dtos.OrderList
	if err := c.doIdempotent(ctx, request{method: http.MethodGet, path: "/api/orders/my", token: token}, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) ListMyAppointments(ctx context.Context, token string) ([]dtos.Record, error) {
	var out dtos.AppointmentList
	if err := c.doIdempotent(ctx, request{method: http.MethodGet, path: "/api/appointments/my-appointments", token: token}, &out); err != nil {
		return nil, err
	}
	return out.Appointments, nil
}

func (c *Client) GetProfile(ctx context.Context, token string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doIdempotent(ctx, request{method: http.MethodGet, path: "/api/user/profile", token: token}, &out)
	return out, err
}

// UpdateProfile is sent once: a password change must not be replayed.
func (c *Client) UpdateProfile(ctx context.Context, token string, update dtos.ProfileUpdate) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/user/profile", token: token, body: update}, &out)
	return out, err
}
