package payload

import (
	"net/url"
	"strings"
)

// pair is one key=value entry of a query string or form body.
type pair struct {
	key   string
	value string
}

// parsePairs splits an application/x-www-form-urlencoded string into
// ordered pairs. A leading "?" is ignored, empty segments are dropped and a
// segment without "=" has an empty value. Malformed percent escapes are
// kept literally instead of failing.
func parsePairs(s string) []pair {
	s = strings.TrimPrefix(s, "?")
	var out []pair
	for _, seg := range strings.Split(s, "&") {
		if seg == "" {
			continue
		}
		k, v, _ := strings.Cut(seg, "=")
		out = append(out, pair{key: formUnescape(k), value: formUnescape(v)})
	}
	return out
}

// FormValues parses a query string or form body the way the engine does,
// keeping malformed escapes literally. Values keep their input order.
func FormValues(s string) url.Values {
	values := url.Values{}
	for _, p := range parsePairs(s) {
		values[p.key] = append(values[p.key], p.value)
	}
	return values
}

// encodePairs serializes pairs form-style: spaces become "+", everything
// outside the unreserved set is percent-encoded.
func encodePairs(pairs []pair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = url.QueryEscape(p.key) + "=" + url.QueryEscape(p.value)
	}
	return strings.Join(parts, "&")
}

// getPair returns the first value stored for key, or "".
func getPair(pairs []pair, key string) string {
	for _, p := range pairs {
		if p.key == key {
			return p.value
		}
	}
	return ""
}

// setPair sets key to value: the first occurrence is updated in place,
// later duplicates are removed, and a missing key is appended.
func setPair(pairs []pair, key, value string) []pair {
	out := make([]pair, 0, len(pairs)+1)
	found := false
	for _, p := range pairs {
		if p.key != key {
			out = append(out, p)
			continue
		}
		if !found {
			out = append(out, pair{key: key, value: value})
			found = true
		}
	}
	if !found {
		out = append(out, pair{key: key, value: value})
	}
	return out
}

func formUnescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return strings.ReplaceAll(s, "+", " ")
}
