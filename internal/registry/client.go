// SPDX-License-Identifier: MIT

package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/sportarr/sportarr/internal/cache"
	"github.com/sportarr/sportarr/internal/log"
)

const listCacheKey = "registry:channels"

// Client is the HTTP implementation of API. List results are cached
// with a short TTL so back-to-back passes skip the expensive full
// enumeration; any successful write invalidates the cached listing.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	cache   cache.Cache
	logger  zerolog.Logger
}

// Option tweaks client construction.
type Option func(*Client)

// WithHTTPClient substitutes the transport, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewClient builds a Client against the registry base URL.
func NewClient(base string, listCache cache.Cache, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		cache:   listCache,
		logger:  log.WithComponent("registry"),
	}
	for _, o := range opts {
		o(c)
	}
	if c.cache == nil {
		c.cache = cache.NewNoOpCache()
	}
	return c
}

func (c *Client) List(ctx context.Context) ([]Channel, error) {
	if v, ok := c.cache.Get(listCacheKey); ok {
		if chs, ok := v.([]Channel); ok {
			return chs, nil
		}
	}

	var payload struct {
		Channels []Channel `json:"channels"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/channels", nil, &payload); err != nil {
		return nil, err
	}
	c.cache.Set(listCacheKey, payload.Channels, ListCacheTTL)
	return payload.Channels, nil
}

func (c *Client) Create(ctx context.Context, spec Spec) (Channel, error) {
	var out Channel
	if err := c.do(ctx, http.MethodPost, "/api/channels", spec, &out); err != nil {
		return Channel{}, err
	}
	c.cache.Delete(listCacheKey)
	return out, nil
}

func (c *Client) Update(ctx context.Context, ref string, spec Spec) error {
	if err := c.do(ctx, http.MethodPut, "/api/channels/"+url.PathEscape(ref), spec, nil); err != nil {
		return err
	}
	c.cache.Delete(listCacheKey)
	return nil
}

func (c *Client) Delete(ctx context.Context, ref string) error {
	err := c.do(ctx, http.MethodDelete, "/api/channels/"+url.PathEscape(ref), nil, nil)
	if errors.Is(err, ErrNotFound) {
		// Deleting a channel that is already gone is a success for an
		// idempotent caller.
		err = nil
	}
	if err != nil {
		return err
	}
	c.cache.Delete(listCacheKey)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Sentinel: ErrTimeout, Operation: op, Err: err}
	}

	var rd *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", op, err)
		}
		rd = bytes.NewReader(buf)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		sentinel := ErrUnavailable
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			sentinel = ErrTimeout
		}
		return &Error{Sentinel: sentinel, Operation: op, Err: err}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return &Error{Sentinel: ErrNotFound, Operation: op, Status: res.StatusCode}
	case res.StatusCode == http.StatusConflict:
		return &Error{Sentinel: ErrConflict, Operation: op, Status: res.StatusCode}
	case res.StatusCode >= 500:
		return &Error{Sentinel: ErrUpstream, Operation: op, Status: res.StatusCode}
	case res.StatusCode >= 400:
		return &Error{Sentinel: ErrBadResponse, Operation: op, Status: res.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &Error{Sentinel: ErrBadResponse, Operation: op, Status: res.StatusCode, Err: err}
	}
	return nil
}
