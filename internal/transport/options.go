package transport

import "time"

// requestOptions holds per-request overrides of the client defaults.
type requestOptions struct {
	// followRedirects overrides the client-level redirect setting.
	// nil means use the client default.
	followRedirects *bool

	// timeout overrides the client-level timeout. Zero means use the
	// client default.
	timeout time.Duration
}

// RequestOption overrides a client default for a single Do call.
type RequestOption func(*requestOptions)

// WithFollowRedirects overrides whether redirects are followed.
func WithFollowRedirects(follow bool) RequestOption {
	return func(o *requestOptions) { o.followRedirects = &follow }
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) { o.timeout = d }
}

func collectOptions(opts []RequestOption) requestOptions {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
