// Package detector discovers candidate injection points in a request.
package detector

import (
	"mime"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/0x6d61/sqlistudio/internal/jsontree"
	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/request"
)

// integerPattern matches an optional minus sign followed by one or more digits.
var integerPattern = regexp.MustCompile(`^-?[0-9]+$`)

// floatPattern matches an optional minus sign, one or more digits, a dot, then one or more digits.
var floatPattern = regexp.MustCompile(`^-?[0-9]+\.[0-9]+$`)

// ValueType is the inferred data type of a parameter value.
type ValueType int

const (
	TypeString ValueType = iota
	TypeInteger
	TypeFloat
)

// String returns the type name.
func (t ValueType) String() string {
	names := [...]string{"string", "integer", "float"}
	if int(t) < len(names) {
		return names[t]
	}
	return "unknown"
}

// injectableHeaders lists headers commonly reflected into SQL queries
// (logging, analytics, session lookups). Matching is case-insensitive.
var injectableHeaders = []string{
	"User-Agent",
	"Referer",
	"X-Forwarded-For",
	"X-Real-IP",
	"X-Client-IP",
	"Cookie",
}

// Discover returns every injection point found in req, in this order:
// query parameters, body fields (form or JSON), then headers.
func Discover(req request.HTTPRequest) []payload.InjectionPoint {
	var points []payload.InjectionPoint
	points = append(points, URLParameters(req.URL)...)
	points = append(points, BodyParameters(req.Body, contentType(req.Header))...)
	points = append(points, HeaderParameters(req.Header)...)
	return points
}

// URLParameters extracts query string parameters from rawURL. Names are
// sorted; a repeated name yields one point holding its first value.
func URLParameters(rawURL string) []payload.InjectionPoint {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return formPoints(payload.FormValues(parsed.RawQuery), payload.LocationURLParameter)
}

// BodyParameters extracts fields from a form-encoded or JSON body. Form
// pairs are parsed leniently, as the engine parses them. A body with an
// content type other than JSON is sniffed for JSON first; a text/plain
// body containing "=" is read as form pairs.
func BodyParameters(body, contentType string) []payload.InjectionPoint {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	if isJSON(contentType) {
		return jsonPoints(body)
	}
	if looksLikeJSON(body) {
		if points := jsonPoints(body); points != nil {
			return points
		}
	}
	if isFormURLEncoded(contentType) || (mediaType(contentType) == "text/plain" && strings.Contains(body, "=")) {
		return formPoints(payload.FormValues(body), payload.LocationFormData)
	}
	return nil
}

// HeaderParameters returns points for the injectable headers present in h.
func HeaderParameters(h request.Header) []payload.InjectionPoint {
	var points []payload.InjectionPoint
	for _, f := range h.Fields() {
		for _, name := range injectableHeaders {
			if strings.EqualFold(f.Name, name) {
				points = append(points, payload.InjectionPoint{
					Location:  payload.LocationHeader,
					Parameter: f.Name,
					Value:     f.Value,
					RiskLevel: payload.RiskLow,
				})
				break
			}
		}
	}
	return points
}

// InferType guesses the parameter type from its value.
// - Integers: "123", "-45", "0"
// - Floats: "1.5", "-3.14", "0.0"
// - Strings: everything else
func InferType(value string) ValueType {
	if integerPattern.MatchString(value) {
		return TypeInteger
	}
	if floatPattern.MatchString(value) {
		return TypeFloat
	}
	return TypeString
}

// RiskFor rates a value: bare integers are the classic unquoted SQL
// context and rank highest.
func RiskFor(value string) payload.RiskLevel {
	if InferType(value) == TypeInteger {
		return payload.RiskHigh
	}
	return payload.RiskMedium
}

func formPoints(values url.Values, location payload.Location) []payload.InjectionPoint {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	points := make([]payload.InjectionPoint, 0, len(names))
	for _, name := range names {
		v := ""
		if vals := values[name]; len(vals) > 0 {
			v = vals[0]
		}
		points = append(points, payload.InjectionPoint{
			Location:  location,
			Parameter: name,
			Value:     v,
			RiskLevel: RiskFor(v),
		})
	}
	return points
}

// jsonPoints walks every scalar leaf of a JSON body in document order and
// returns its dotted path. Keys containing "." are skipped because the
// accessor cannot address them.
func jsonPoints(body string) []payload.InjectionPoint {
	tree, err := jsontree.Parse(body)
	if err != nil {
		return nil
	}
	points := []payload.InjectionPoint{}
	var walk func(node jsontree.Value, path string)
	walk = func(node jsontree.Value, path string) {
		switch n := node.(type) {
		case *jsontree.Object:
			for _, k := range n.Keys() {
				if strings.Contains(k, ".") {
					continue
				}
				member, _ := n.Get(k)
				walk(member, joinPath(path, k))
			}
		case []jsontree.Value:
			for i, elem := range n {
				walk(elem, joinPath(path, strconv.Itoa(i)))
			}
		default:
			if path == "" {
				return
			}
			v := jsontree.Stringify(n)
			points = append(points, payload.InjectionPoint{
				Location:  payload.LocationJSONBody,
				Parameter: path,
				Value:     v,
				RiskLevel: RiskFor(v),
			})
		}
	}
	walk(tree, "")
	return points
}

func joinPath(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

// contentType returns the Content-Type header, matched case-insensitively.
func contentType(h request.Header) string {
	for _, f := range h.Fields() {
		if strings.EqualFold(f.Name, "Content-Type") {
			return f.Value
		}
	}
	return ""
}

func mediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		// Strip parameters like "; charset=utf-8"
		mt = strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	}
	return strings.ToLower(mt)
}

func isJSON(ct string) bool {
	mt := mediaType(ct)
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// isFormURLEncoded checks whether the content type indicates
// application/x-www-form-urlencoded. An empty content type is treated as
// form-urlencoded for convenience (common in simple POST requests).
func isFormURLEncoded(ct string) bool {
	if ct == "" {
		return true
	}
	return mediaType(ct) == "application/x-www-form-urlencoded"
}

func looksLikeJSON(body string) bool {
	s := strings.TrimSpace(body)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
