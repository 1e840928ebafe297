// Package studio ties the live request editor to the payload engine, the
// application history and the transport.
package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/0x6d61/sqlistudio/internal/detector"
	"github.com/0x6d61/sqlistudio/internal/editsync"
	"github.com/0x6d61/sqlistudio/internal/history"
	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/request"
	"github.com/0x6d61/sqlistudio/internal/transport"
)

// ErrNoPoint is returned when a suggestion does not say where it applies
// and no discovered point matches it.
var ErrNoPoint = errors.New("studio: suggestion has no usable injection point")

// ErrNoSender is returned by Send when the workspace has no transport.
var ErrNoSender = errors.New("studio: no transport configured")

// Workspace is one editing session over a single request.
type Workspace struct {
	ctrl    *editsync.Controller
	engine  *payload.Engine
	store   history.Store
	sender  transport.Client
	logger  *slog.Logger
	ctrlOpt []editsync.Option
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithEngine replaces the default payload engine.
func WithEngine(e *payload.Engine) Option {
	return func(w *Workspace) { w.engine = e }
}

// WithHistory records every successful application in store.
func WithHistory(store history.Store) Option {
	return func(w *Workspace) { w.store = store }
}

// WithSender sets the transport used by Send.
func WithSender(c transport.Client) Option {
	return func(w *Workspace) { w.sender = c }
}

// WithLogger sets the workspace logger. It is also handed to the engine
// and controller created by New.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// WithEditorOptions passes options through to the edit controller.
func WithEditorOptions(opts ...editsync.Option) Option {
	return func(w *Workspace) { w.ctrlOpt = append(w.ctrlOpt, opts...) }
}

// New opens a workspace holding req.
func New(req request.HTTPRequest, opts ...Option) *Workspace {
	w := &Workspace{}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if w.engine == nil {
		w.engine = payload.NewEngine(payload.WithLogger(w.logger))
	}
	ctrlOpts := append([]editsync.Option{editsync.WithLogger(w.logger)}, w.ctrlOpt...)
	w.ctrl = editsync.New(req, ctrlOpts...)
	return w
}

// Editor returns the controller that owns the request text.
func (w *Workspace) Editor() *editsync.Controller { return w.ctrl }

// Request returns the current structured request.
func (w *Workspace) Request() request.HTTPRequest {
	return w.ctrl.Snapshot().Request
}

// Text returns the current editor text.
func (w *Workspace) Text() string {
	return w.ctrl.Snapshot().Text
}

// Points discovers injection points in the current request.
func (w *Workspace) Points() []payload.InjectionPoint {
	return detector.Discover(w.Request())
}

// Apply applies s at point to the current request. On success the
// modified request replaces the editor's request. Every attempt, failed or
// not, is recorded when a history store is configured. The returned error
// is only set for history failures; apply failures are reported in the
// Result.
func (w *Workspace) Apply(ctx context.Context, s payload.Suggestion, point payload.InjectionPoint) (payload.Result, error) {
	original := w.Request()
	res := w.engine.Apply(original, s, point)
	if res.Success {
		w.ctrl.SetRequest(res.ModifiedRequest)
		w.logger.Info("payload applied", "id", res.Applied.ID, "preview", res.Preview)
	} else {
		w.logger.Info("payload not applied", "id", res.Applied.ID, "error", res.Error)
	}

	if w.store == nil {
		return res, nil
	}
	if err := w.store.Record(ctx, history.NewEntry(original, res)); err != nil {
		return res, fmt.Errorf("studio: record application: %w", err)
	}
	return res, nil
}

// ApplySuggestion applies s at the point it names. A suggestion without an
// explicit point falls back to the first discovered point whose parameter
// is s.TargetParameter.
func (w *Workspace) ApplySuggestion(ctx context.Context, s payload.Suggestion) (payload.Result, error) {
	point, err := w.ResolvePoint(s)
	if err != nil {
		return payload.Result{}, err
	}
	return w.Apply(ctx, s, point)
}

// ResolvePoint finds where s should be applied.
func (w *Workspace) ResolvePoint(s payload.Suggestion) (payload.InjectionPoint, error) {
	if s.InjectionPoint != nil && s.InjectionPoint.Location != "" && s.InjectionPoint.Parameter != "" {
		return *s.InjectionPoint, nil
	}
	target := s.TargetParameter
	if target == "" && s.InjectionPoint != nil {
		target = s.InjectionPoint.Parameter
	}
	if target == "" {
		return payload.InjectionPoint{}, ErrNoPoint
	}
	for _, p := range w.Points() {
		if p.Parameter == target {
			return p, nil
		}
	}
	return payload.InjectionPoint{}, fmt.Errorf("%w: parameter %q not found", ErrNoPoint, target)
}

// Replay re-applies a recorded application to the current request.
func (w *Workspace) Replay(ctx context.Context, id string) (payload.Result, error) {
	if w.store == nil {
		return payload.Result{}, errors.New("studio: history is disabled")
	}
	e, err := w.store.Get(ctx, id)
	if err != nil {
		return payload.Result{}, err
	}
	return w.Apply(ctx, e.Application.Suggestion, e.Application.InjectionPoint)
}

// Send flushes pending edits and sends the current request.
func (w *Workspace) Send(ctx context.Context, opts ...transport.RequestOption) (*transport.Response, error) {
	if w.sender == nil {
		return nil, ErrNoSender
	}
	w.ctrl.Flush()
	req := w.Request()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("studio: %w", err)
	}
	resp, err := w.sender.Do(ctx, req, opts...)
	if err != nil {
		return nil, err
	}
	w.logger.Info("request sent", "url", req.URL, "status", resp.StatusCode)
	return resp, nil
}

// Close releases the editor timer.
func (w *Workspace) Close() {
	w.ctrl.Close()
}
