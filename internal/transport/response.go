package transport

import (
	"fmt"
	"net/http"
	"time"
)

// Response is what the target returned for a sent request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers contains the response headers.
	Headers http.Header

	// Body is the raw response body.
	Body []byte

	// ContentLength is the content length from the response header.
	ContentLength int64

	// Duration is the round-trip time for the request.
	Duration time.Duration

	// URL is the final URL after any redirects.
	URL string

	// Protocol is the protocol version (e.g., "HTTP/1.1", "HTTP/2.0").
	Protocol string
}

// BodyString returns the response body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}

// Summary renders a one-line status such as "HTTP/1.1 200 OK, 512 bytes, 31ms".
func (r *Response) Summary() string {
	return fmt.Sprintf("%s %d %s, %d bytes, %s",
		r.Protocol, r.StatusCode, http.StatusText(r.StatusCode), len(r.Body), r.Duration.Round(time.Millisecond))
}
