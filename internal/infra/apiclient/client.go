// Package apiclient implements domain.APICaller against a remote task
// service over HTTP and JSON.
package apiclient

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

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/runoshun/label-crew/internal/domain"
)

const (
	logCategory = "api"

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 32 << 20
)

// Ensure Client implements domain.APICaller.
var _ domain.APICaller = (*Client)(nil)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Action domain.Action
	Body   string
	Code   int
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("%s: %d %s", e.Action, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%s: %d %s: %s", e.Action, e.Code, http.StatusText(e.Code), msg)
}

// Is maps 404 responses to the matching domain error.
func (e *StatusError) Is(target error) bool {
	if e.Code != http.StatusNotFound {
		return false
	}
	switch target {
	case domain.ErrTaskNotFound:
		return e.Action == domain.ActionTask || e.Action == domain.ActionSubmitAnnotation || e.Action == domain.ActionSkipTask
	case domain.ErrAnnotationNotFound:
		return e.Action == domain.ActionUpdateAnnotation || e.Action == domain.ActionDeleteAnnotation
	}
	return false
}

// Client calls the task service.
// Fields are ordered to minimize memory padding.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	metrics *Metrics
	logger  domain.Logger
	routes  map[domain.Action]route
	base    *url.URL
	token   string
	group   singleflight.Group
	timeout time.Duration // Bounds shared reads, which no single caller owns
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records traffic into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l domain.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for cfg.Gateway. endpoints override DefaultRoutes.
func New(cfg domain.APIConfig, endpoints map[domain.Action]string, opts ...Option) (*Client, error) {
	if cfg.Gateway == "" {
		return nil, errors.New("api gateway is not configured")
	}
	base, err := url.Parse(strings.TrimRight(cfg.Gateway, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse gateway: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("parse gateway: unsupported scheme %q", base.Scheme)
	}

	routes, err := routeTable(endpoints)
	if err != nil {
		return nil, fmt.Errorf("endpoints: %w", err)
	}

	c := &Client{
		http:    http.DefaultClient,
		logger:  domain.NopLogger{},
		routes:  routes,
		base:    base,
		token:   cfg.Token,
		timeout: time.Duration(cfg.Timeout),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c, nil
}

// rawResponse is what a request returns before decoding.
type rawResponse struct {
	body []byte
	code int
}

// shared performs a GET through the singleflight group. The request runs
// detached from the caller that started it; every caller waits on its own ctx
// and leaves on cancellation without failing the others.
func (c *Client) shared(ctx context.Context, action domain.Action, target string) (rawResponse, error) {
	ch := c.group.DoChan(target, func() (any, error) {
		reqCtx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(reqCtx, c.timeout)
			defer cancel()
		}
		return c.do(reqCtx, http.MethodGet, target, nil)
	})

	select {
	case <-ctx.Done():
		return rawResponse{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.metrics.sharedTotal.WithLabelValues(string(action)).Inc()
		}
		if res.Err != nil {
			return rawResponse{}, res.Err
		}
		return res.Val.(rawResponse), nil
	}
}

// Call performs action against the task service.
// Identical concurrent GETs other than nextTask share one request.
func (c *Client) Call(ctx context.Context, action domain.Action, params domain.Params, body any) (*domain.APIResponse, error) {
	r, ok := c.routes[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAction, action)
	}

	path, query, err := r.build(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", action, err)
		}
	}

	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	start := time.Now()
	var raw rawResponse
	// nextTask hands out a different task per call, so it is never shared.
	if r.method == http.MethodGet && payload == nil && action != domain.ActionNextTask {
		raw, err = c.shared(ctx, action, u.String())
	} else {
		raw, err = c.do(ctx, r.method, u.String(), payload)
	}
	c.metrics.requestDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.requestsTotal.WithLabelValues(string(action), "error").Inc()
		c.logger.Warn(0, logCategory, fmt.Sprintf("%s %s failed: %v", r.method, u.Path, err))
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	c.metrics.requestsTotal.WithLabelValues(string(action), strconv.Itoa(raw.code)).Inc()
	c.logger.Debug(0, logCategory, fmt.Sprintf("%s %s -> %d", r.method, u.Path, raw.code))

	switch {
	case raw.code == http.StatusNoContent:
		return &domain.APIResponse{OK: true}, nil
	case raw.code == http.StatusNotFound && action == domain.ActionNextTask:
		// Nothing left to label.
		return &domain.APIResponse{OK: true}, nil
	case raw.code < 200 || raw.code > 299:
		return nil, &StatusError{Action: action, Code: raw.code, Body: string(raw.body)}
	}

	resp, err := decodeResponse(action, raw.body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return resp, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	start := time.Now()
	err := c.limiter.Wait(ctx)
	c.metrics.limiterWait.Observe(time.Since(start).Seconds())
	return err
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) (rawResponse, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return rawResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return rawResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return rawResponse{}, fmt.Errorf("read response: %w", err)
	}
	return rawResponse{code: resp.StatusCode, body: body}, nil
}
