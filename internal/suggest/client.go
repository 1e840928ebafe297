// Package suggest asks the payload analysis service for SQL injection
// payloads that fit a request.
package suggest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"golang.org/x/time/rate"

	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/request"
)

// InvokePath is the analysis endpoint, relative to the base URL.
const InvokePath = "/payload-suggestor/invoke/v2"

// DefaultMessage is sent when the caller gives no instruction.
const DefaultMessage = "Analyze this request for SQL injection vulnerabilities and suggest payloads."

// DefaultDBType is sent when the target database is not known.
const DefaultDBType = "Unknown"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// ErrEmptyBaseURL is returned by New when no service URL is configured.
var ErrEmptyBaseURL = errors.New("suggest: empty base URL")

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// MaxRPS limits calls per second (0 = unlimited).
	MaxRPS float64
	// HTTPClient overrides the default client; Timeout is then ignored.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Query is one analysis request.
type Query struct {
	Request     request.HTTPRequest
	UserMessage string
	DBType      string
}

// Client calls the analysis service.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// invokeBody is the wire form of a Query.
type invokeBody struct {
	Request     request.HTTPRequest `json:"request"`
	UserMessage string              `json:"user_message"`
	DBType      string              `json:"db_type"`
}

// New creates a Client for the service at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, ErrEmptyBaseURL
	}
	if _, err := request.ParseAbsoluteURL(base); err != nil {
		return nil, fmt.Errorf("suggest: invalid base URL: %w", err)
	}

	c := &Client{
		endpoint: base + InvokePath,
		http:     opts.HTTPClient,
		logger:   opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: opts.Timeout}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.MaxRPS), 1)
	}
	return c, nil
}

// Endpoint returns the full URL the client posts to.
func (c *Client) Endpoint() string { return c.endpoint }

// Suggest posts q to the service and returns its suggestions in the order
// received. Suggestions without a payload are dropped.
func (c *Client) Suggest(ctx context.Context, q Query) ([]payload.Suggestion, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	in := invokeBody{Request: q.Request, UserMessage: q.UserMessage, DBType: q.DBType}
	if in.UserMessage == "" {
		in.UserMessage = DefaultMessage
	}
	if in.DBType == "" {
		in.DBType = DefaultDBType
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("suggest: encode query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("suggest: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("suggest: reading response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("suggest: service returned %s: %s", resp.Status, snippet(body))
	}

	suggestions, err := decodeSuggestions(body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("suggestions received",
		"count", len(suggestions),
		"duration", time.Since(start),
		"db_type", in.DBType,
	)
	return suggestions, nil
}

// decodeSuggestions accepts a bare array or an object wrapping it under
// "output" or "suggestions".
func decodeSuggestions(body []byte) ([]payload.Suggestion, error) {
	raw := jsontext.Value(bytes.TrimSpace(body))
	if !raw.IsValid() {
		return nil, fmt.Errorf("suggest: response is not valid JSON: %s", snippet(body))
	}

	var list []payload.Suggestion
	switch raw.Kind() {
	case '[':
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("suggest: decode suggestions: %w", err)
		}
	case '{':
		var wrapped struct {
			Output      []payload.Suggestion `json:"output"`
			Suggestions []payload.Suggestion `json:"suggestions"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("suggest: decode suggestions: %w", err)
		}
		list = wrapped.Output
		if len(list) == 0 {
			list = wrapped.Suggestions
		}
	default:
		return nil, fmt.Errorf("suggest: unexpected response: %s", snippet(body))
	}

	out := make([]payload.Suggestion, 0, len(list))
	for _, s := range list {
		if s.Payload == "" {
			continue
		}
		if s.Source == "" {
			s.Source = "analysis"
		}
		out = append(out, s)
	}
	return out, nil
}

func snippet(b []byte) string {
	const n = 200
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
