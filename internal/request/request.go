// Package request provides the structured HTTP request model shared by the
// editor, the payload engine and the transport layer.
package request

import (
	"errors"
	"fmt"
	"net/url"
)

// HTTPRequest is the structured form of an editable HTTP request.
//
// HTTPRequest is a value type. Header mutations return a new Header, so a
// copy handed to another component never aliases the caller's state.
type HTTPRequest struct {
	// Method is the HTTP method token (GET, POST, PUT, ...).
	Method string `json:"method"`

	// URL is the absolute target URL.
	URL string `json:"url"`

	// Header holds the request headers in their stored order.
	Header Header `json:"headers"`

	// Body is the raw request body. Its interpretation (JSON, form, opaque)
	// is decided only when a payload is applied.
	Body string `json:"body"`
}

// Errors returned by Validate.
var (
	ErrMissingMethod = errors.New("request: missing method")
	ErrMissingURL    = errors.New("request: missing URL")
)

// Default returns the request a fresh workspace starts with.
func Default() HTTPRequest {
	return HTTPRequest{
		Method: "GET",
		URL:    "https://example.com/api/users?id=1",
		Header: NewHeader(
			"Content-Type", "application/json",
			"User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		),
	}
}

// Clone returns a deep copy of the request.
func (r HTTPRequest) Clone() HTTPRequest {
	r.Header = r.Header.Clone()
	return r
}

// Equal reports whether two requests have the same method, URL, headers
// (including order) and body.
func (r HTTPRequest) Equal(o HTTPRequest) bool {
	return r.Method == o.Method &&
		r.URL == o.URL &&
		r.Body == o.Body &&
		r.Header.Equal(o.Header)
}

// Validate checks the structural invariant: a method and an absolute URL
// with a host are required.
func (r HTTPRequest) Validate() error {
	if r.Method == "" {
		return ErrMissingMethod
	}
	if r.URL == "" {
		return ErrMissingURL
	}
	if _, err := ParseAbsoluteURL(r.URL); err != nil {
		return err
	}
	return nil
}

// ParseAbsoluteURL parses rawURL and requires a scheme and a host.
func ParseAbsoluteURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing scheme or host", rawURL)
	}
	return u, nil
}
