// Package transport sends edited requests to their target over HTTP.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/0x6d61/sqlistudio/internal/request"
)

// Client sends edited requests to their target.
type Client interface {
	// Do sends req as written and returns the response.
	Do(ctx context.Context, req request.HTTPRequest, opts ...RequestOption) (*Response, error)

	// SetProxy routes later requests through an HTTP or SOCKS5 proxy.
	SetProxy(proxyURL string) error

	// SetRateLimit caps requests per second; 0 removes the cap.
	SetRateLimit(rps float64)

	// Stats reports totals over every completed request.
	Stats() *TransportStats
}

// TransportStats counts completed requests and their round-trip time.
type TransportStats struct {
	TotalRequests int64
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	// Timeout bounds each request unless overridden with WithTimeout.
	Timeout time.Duration

	// ProxyURL, if set, is passed to SetProxy.
	ProxyURL string

	FollowRedirects    bool
	InsecureSkipVerify bool

	// RandomUserAgent picks a browser User-Agent for requests that do not
	// carry one.
	RandomUserAgent bool

	// MaxRPS caps the request rate. 0 means no cap.
	MaxRPS float64

	// Logger receives per-request debug lines. nil discards them.
	Logger *slog.Logger
}

var errNotHTTPTransport = errors.New("transport: proxy requires *http.Transport")

// DefaultClient sends requests with net/http.
type DefaultClient struct {
	httpClient *http.Client
	opts       ClientOptions
	logger     *slog.Logger

	mu       sync.RWMutex
	limiter  *rate.Limiter
	sent     int64
	sentTime time.Duration
}

// NewClient builds a DefaultClient from opts.
func NewClient(opts ClientOptions) (*DefaultClient, error) {
	hc := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:   &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify},
			ForceAttemptHTTP2: true,
		},
		Timeout: opts.Timeout,
	}
	if !opts.FollowRedirects {
		hc.CheckRedirect = stopAtFirstResponse
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &DefaultClient{httpClient: hc, opts: opts, logger: logger}
	if opts.ProxyURL != "" {
		if err := c.SetProxy(opts.ProxyURL); err != nil {
			return nil, err
		}
	}
	c.SetRateLimit(opts.MaxRPS)
	return c, nil
}

func stopAtFirstResponse(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// Do sends req. Header fields are sent in their edited order. A Host field
// sets the request host and Content-Length is recomputed from the body.
func (c *DefaultClient) Do(ctx context.Context, req request.HTTPRequest, opts ...RequestOption) (*Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := c.clientFor(collectOptions(opts)).Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Debug("request failed", "method", httpReq.Method, "url", req.URL, "error", err)
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	resp := &Response{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		ContentLength: httpResp.ContentLength,
		Duration:      elapsed,
		URL:           httpResp.Request.URL.String(),
		Protocol:      fmt.Sprintf("HTTP/%d.%d", httpResp.ProtoMajor, httpResp.ProtoMinor),
	}
	c.logger.Debug("request sent",
		"method", httpReq.Method,
		"url", req.URL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", elapsed,
	)

	c.mu.Lock()
	c.sent++
	c.sentTime += elapsed
	c.mu.Unlock()
	return resp, nil
}

func (c *DefaultClient) wait(ctx context.Context) error {
	c.mu.RLock()
	limiter := c.limiter
	c.mu.RUnlock()
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (c *DefaultClient) newHTTPRequest(ctx context.Context, req request.HTTPRequest) (*http.Request, error) {
	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for _, f := range req.Header.Fields() {
		switch {
		case strings.EqualFold(f.Name, "Host"):
			httpReq.Host = f.Value
		case strings.EqualFold(f.Name, "Content-Length"):
		default:
			httpReq.Header.Add(f.Name, f.Value)
		}
	}
	if c.opts.RandomUserAgent && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", RandomUserAgent())
	}
	return httpReq, nil
}

// clientFor returns the shared client, or a copy of it when ro overrides
// the timeout or redirect policy.
func (c *DefaultClient) clientFor(ro requestOptions) *http.Client {
	if ro.timeout <= 0 && ro.followRedirects == nil {
		return c.httpClient
	}
	cc := *c.httpClient
	if ro.timeout > 0 {
		cc.Timeout = ro.timeout
	}
	if ro.followRedirects != nil {
		cc.CheckRedirect = nil
		if !*ro.followRedirects {
			cc.CheckRedirect = stopAtFirstResponse
		}
	}
	return &cc
}

// SetProxy routes later requests through proxyURL.
func (c *DefaultClient) SetProxy(proxyURL string) error {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid proxy URL: missing scheme or host")
	}
	t, ok := c.httpClient.Transport.(*http.Transport)
	if !ok {
		return errNotHTTPTransport
	}
	t.Proxy = http.ProxyURL(u)
	return nil
}

// SetRateLimit caps the request rate. rps <= 0 removes the cap.
func (c *DefaultClient) SetRateLimit(rps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rps <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// Stats returns totals over every completed request.
func (c *DefaultClient) Stats() *TransportStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := &TransportStats{TotalRequests: c.sent, TotalDuration: c.sentTime}
	if c.sent > 0 {
		s.AvgDuration = c.sentTime / time.Duration(c.sent)
	}
	return s
}
