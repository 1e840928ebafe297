package payload

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/0x6d61/sqlistudio/internal/jsontree"
	"github.com/0x6d61/sqlistudio/internal/request"
)

// UnsupportedLocationMessage is the error reported for an injection point
// whose location has no handler.
const UnsupportedLocationMessage = "Unsupported injection point location"

// jsonIndent is used when a JSON body is re-serialized after mutation.
const jsonIndent = "  "

// mutation is what a location handler produces on success.
type mutation struct {
	request  request.HTTPRequest
	original string
	modified string
}

// handler mutates req (already a private copy) for one location.
type handler func(req request.HTTPRequest, param string, method Method, payload string) (mutation, error)

// Engine applies suggestions to requests. An Engine holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	handlers map[Location]handler
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for apply diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the timestamp source for Application records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides how Application IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an Engine with the four built-in location handlers.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	e.handlers = map[Location]handler{
		LocationURLParameter: applyURLParameter,
		LocationJSONBody:     applyJSONBody,
		LocationFormData:     applyFormData,
		LocationHeader:       applyHeader,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply inserts s.Payload at point and returns the modified request with
// an audit record. Apply never panics and never modifies req: every
// failure is reported through Result.Success and Result.Error, with
// ModifiedRequest equal to req.
func (e *Engine) Apply(req request.HTTPRequest, s Suggestion, point InjectionPoint) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = e.failure(req, s, point, fmt.Sprintf("%v", r))
		}
	}()

	h, ok := e.handlers[point.Location]
	if !ok {
		e.logger.Warn("unsupported injection point location", "location", string(point.Location))
		return e.failure(req, s, point, UnsupportedLocationMessage)
	}

	method := s.ApplicationMethod.Resolve()
	m, err := h(req.Clone(), point.Parameter, method, s.Payload)
	if err != nil {
		return e.failure(req, s, point, err.Error())
	}

	preview := fmt.Sprintf("%s \"%s\" changed from \"%s\" to \"%s\"",
		point.Location.Label(), point.Parameter, m.original, m.modified)
	e.logger.Debug("payload applied",
		"location", string(point.Location),
		"parameter", point.Parameter,
		"method", string(method),
	)

	return Result{
		Success:         true,
		ModifiedRequest: m.request,
		Applied: Application{
			ID:             e.newID(),
			Suggestion:     s,
			InjectionPoint: point,
			AppliedAt:      e.now(),
			OriginalValue:  m.original,
			ModifiedValue:  m.modified,
			Success:        true,
		},
		Preview: preview,
	}
}

// Preview describes what applying s at point would do to original without
// touching any request.
func (e *Engine) Preview(s Suggestion, point InjectionPoint, original string) string {
	modified := s.ApplicationMethod.Combine(original, s.Payload)
	return fmt.Sprintf("%s \"%s\": \"%s\" → \"%s\"", point.Location, point.Parameter, original, modified)
}

func (e *Engine) failure(req request.HTTPRequest, s Suggestion, point InjectionPoint, msg string) Result {
	e.logger.Warn("payload application failed",
		"location", string(point.Location),
		"parameter", point.Parameter,
		"error", msg,
	)
	return Result{
		Success:         false,
		ModifiedRequest: req.Clone(),
		Applied: Application{
			ID:             e.newID(),
			Suggestion:     s,
			InjectionPoint: point,
			AppliedAt:      e.now(),
			Success:        false,
			Error:          msg,
		},
		Error: msg,
	}
}

func applyURLParameter(req request.HTTPRequest, param string, method Method, payload string) (mutation, error) {
	u, err := request.ParseAbsoluteURL(req.URL)
	if err != nil {
		return mutation{}, err
	}
	pairs := parsePairs(u.RawQuery)
	original := getPair(pairs, param)
	modified := method.Combine(original, payload)

	u.RawQuery = encodePairs(setPair(pairs, param, modified))
	req.URL = u.String()
	return mutation{request: req, original: original, modified: modified}, nil
}

func applyJSONBody(req request.HTTPRequest, param string, method Method, payload string) (mutation, error) {
	tree, err := jsontree.Parse(req.Body)
	if err != nil {
		return mutation{}, fmt.Errorf("failed to parse JSON body: %w", err)
	}
	original := jsontree.Get(tree, param)
	modified := method.Combine(original, payload)

	if err := jsontree.Set(tree, param, modified); err != nil {
		return mutation{}, err
	}
	body, err := jsontree.Encode(tree, jsonIndent)
	if err != nil {
		return mutation{}, err
	}
	req.Body = body
	return mutation{request: req, original: original, modified: modified}, nil
}

func applyFormData(req request.HTTPRequest, param string, method Method, payload string) (mutation, error) {
	pairs := parsePairs(req.Body)
	original := getPair(pairs, param)
	modified := method.Combine(original, payload)

	req.Body = encodePairs(setPair(pairs, param, modified))
	return mutation{request: req, original: original, modified: modified}, nil
}

func applyHeader(req request.HTTPRequest, param string, method Method, payload string) (mutation, error) {
	original := req.Header.Get(param)
	modified := method.Combine(original, payload)

	req.Header = req.Header.With(param, modified)
	return mutation{request: req, original: original, modified: modified}, nil
}
