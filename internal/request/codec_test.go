package request

import (
	"testing"
)

func TestSerialize_WireFormat(t *testing.T) {
	r := HTTPRequest{
		Method: "POST",
		URL:    "https://example.com/login",
		Header: NewHeader("Content-Type", "application/x-www-form-urlencoded", "X-Trace", "1"),
		Body:   "user=admin&pass=x",
	}
	want := "POST https://example.com/login HTTP/1.1\n" +
		"Content-Type: application/x-www-form-urlencoded\n" +
		"X-Trace: 1\n" +
		"\n" +
		"user=admin&pass=x"
	if got := Serialize(r); got != want {
		t.Errorf("Serialize() =\n%q\nwant\n%q", got, want)
	}
}

func TestSerialize_EmptyBodyKeepsSeparator(t *testing.T) {
	r := HTTPRequest{Method: "GET", URL: "https://example.com/", Header: NewHeader("A", "b")}
	want := "GET https://example.com/ HTTP/1.1\nA: b\n\n"
	if got := Serialize(r); got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
}

func TestSerialize_NoHeaders(t *testing.T) {
	r := HTTPRequest{Method: "GET", URL: "https://example.com/"}
	want := "GET https://example.com/ HTTP/1.1\n\n\n"
	if got := Serialize(r); got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  HTTPRequest
	}{
		{
			name: "default request",
			req:  Default(),
		},
		{
			name: "no headers no body",
			req:  HTTPRequest{Method: "GET", URL: "https://example.com/api/users?id=1"},
		},
		{
			name: "no headers with body",
			req:  HTTPRequest{Method: "POST", URL: "https://example.com/", Body: "a=1"},
		},
		{
			name: "no headers body starting with newline",
			req:  HTTPRequest{Method: "POST", URL: "https://example.com/", Body: "\nline"},
		},
		{
			name: "json body spanning lines",
			req: HTTPRequest{
				Method: "PUT",
				URL:    "http://127.0.0.1:8080/api/items/4",
				Header: NewHeader("Content-Type", "application/json", "Authorization", "Bearer abc.def"),
				Body:   "{\n  \"name\": \"x\",\n\n  \"qty\": 2\n}",
			},
		},
		{
			name: "header value containing colon",
			req: HTTPRequest{
				Method: "GET",
				URL:    "https://example.com/",
				Header: NewHeader("Referer", "https://other.example.com:8443/page"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(Serialize(tt.req))
			if !ok {
				t.Fatalf("Parse(Serialize(r)) failed for %+v", tt.req)
			}
			if !got.Equal(tt.req) {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, tt.req)
			}
		})
	}
}

func TestParse_MissingMethodOrURL(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"method only", "GET"},
		{"double space", "GET  https://example.com/ HTTP/1.1"},
		{"leading space", " https://example.com/"},
		{"relative url", "GET /api/users HTTP/1.1\nHost: example.com\n\n"},
		{"no host", "GET https:///path HTTP/1.1\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r, ok := Parse(tt.text); ok {
				t.Errorf("Parse(%q) = %+v, want failure", tt.text, r)
			}
		})
	}
}

func TestParse_SkipsMalformedHeaders(t *testing.T) {
	text := "GET https://example.com/ HTTP/1.1\n" +
		"Good: yes\n" +
		"no colon here\n" +
		"   : empty name\n" +
		"Spaced :   padded value  \n" +
		"\n" +
		"body"
	r, ok := Parse(text)
	if !ok {
		t.Fatal("Parse failed")
	}
	if r.Header.Len() != 2 {
		t.Fatalf("header count = %d, want 2 (%v)", r.Header.Len(), r.Header.Fields())
	}
	if got := r.Header.Get("Good"); got != "yes" {
		t.Errorf("Good = %q, want %q", got, "yes")
	}
	if got := r.Header.Get("Spaced"); got != "padded value" {
		t.Errorf("Spaced = %q, want %q", got, "padded value")
	}
	if r.Body != "body" {
		t.Errorf("Body = %q, want %q", r.Body, "body")
	}
}

func TestParse_NoBlankLineMeansEmptyBody(t *testing.T) {
	r, ok := Parse("POST https://example.com/ HTTP/1.1\nA: 1\nB: 2")
	if !ok {
		t.Fatal("Parse failed")
	}
	if r.Body != "" {
		t.Errorf("Body = %q, want empty", r.Body)
	}
	if r.Header.Len() != 2 {
		t.Errorf("header count = %d, want 2", r.Header.Len())
	}
}

func TestParse_CRLFInput(t *testing.T) {
	r, ok := Parse("GET https://example.com/ HTTP/1.1\r\nAccept: */*\r\n\r\nbody")
	if !ok {
		t.Fatal("Parse failed")
	}
	if got := r.Header.Get("Accept"); got != "*/*" {
		t.Errorf("Accept = %q, want %q", got, "*/*")
	}
	if r.Body != "body" {
		t.Errorf("Body = %q, want %q", r.Body, "body")
	}
}

func TestParse_DuplicateHeaderLastWins(t *testing.T) {
	r, ok := Parse("GET https://example.com/ HTTP/1.1\nA: 1\nB: 2\nA: 3\n\n")
	if !ok {
		t.Fatal("Parse failed")
	}
	fields := r.Header.Fields()
	if len(fields) != 2 || fields[0] != (Field{"A", "3"}) || fields[1] != (Field{"B", "2"}) {
		t.Errorf("fields = %v, want [{A 3} {B 2}]", fields)
	}
}

func TestParse_MethodKeptVerbatim(t *testing.T) {
	r, ok := Parse("patch https://example.com/x HTTP/1.1\n\n")
	if !ok {
		t.Fatal("Parse failed")
	}
	if r.Method != "patch" {
		t.Errorf("Method = %q, want %q", r.Method, "patch")
	}
}
