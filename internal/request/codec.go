package request

import (
	"strings"
)

// protocolToken is appended to every serialized request line.
const protocolToken = "HTTP/1.1"

// Serialize renders r in the raw editable form:
//
//	<METHOD> <URL> HTTP/1.1
//	<Name>: <value>
//	...
//	<blank line>
//	<body>
//
// The blank line is always emitted, even when the body is empty.
func Serialize(r HTTPRequest) string {
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteByte(' ')
	b.WriteString(r.URL)
	b.WriteByte(' ')
	b.WriteString(protocolToken)
	b.WriteByte('\n')

	for i, f := range r.Header.fields {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}

	b.WriteString("\n\n")
	b.WriteString(r.Body)
	return b.String()
}

// Parse converts raw request text back into an HTTPRequest.
//
// ok is false when the request line lacks a method or URL token, or when
// the URL is not absolute. Callers must keep their previous structured
// value in that case. Header lines without a colon or with an empty name
// are skipped and never fail the parse.
func Parse(text string) (r HTTPRequest, ok bool) {
	lines := strings.Split(text, "\n")

	tokens := strings.Split(lines[0], " ")
	if len(tokens) < 2 || tokens[0] == "" || tokens[1] == "" {
		return HTTPRequest{}, false
	}
	method, rawURL := tokens[0], tokens[1]
	if _, err := ParseAbsoluteURL(rawURL); err != nil {
		return HTTPRequest{}, false
	}

	var header Header
	bodyStart := -1
	for i := 1; i < len(lines); i++ {
		if isBlank(lines[i]) {
			bodyStart = i + 1
			// Zero headers serialize as two blank lines: the empty header
			// block followed by the separator.
			if i == 1 && len(lines) > 2 && isBlank(lines[2]) {
				bodyStart = 3
			}
			break
		}
		name, value, found := strings.Cut(lines[i], ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		header = header.With(name, strings.TrimSpace(value))
	}

	var body string
	if bodyStart >= 0 && bodyStart < len(lines) {
		body = strings.Join(lines[bodyStart:], "\n")
	}

	return HTTPRequest{
		Method: method,
		URL:    rawURL,
		Header: header,
		Body:   body,
	}, true
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
