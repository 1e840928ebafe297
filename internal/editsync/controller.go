// Package editsync keeps a structured HTTP request and its editable raw
// text in agreement while the user types and while payloads are applied
// from elsewhere.
package editsync

import (
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/0x6d61/sqlistudio/internal/request"
)

// DefaultDebounce is how long typing must pause before the text is parsed.
const DefaultDebounce = time.Second

// State is the controller's position in the edit cycle.
type State int

const (
	// Idle means text and request agree and no timer is pending.
	Idle State = iota
	// Editing means the user owns the buffer.
	Editing
	// Reconciling is held while typed text is being parsed.
	Reconciling
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Reconciling:
		return "reconciling"
	default:
		return "unknown"
	}
}

// Origin tells a listener why the request changed.
type Origin int

const (
	// OriginEdit is a change adopted from the user's typed text.
	OriginEdit Origin = iota
	// OriginExternal is a change made through SetRequest.
	OriginExternal
)

// Listener is called after the structured request changes.
type Listener func(req request.HTTPRequest, origin Origin)

// Surface is the text input the controller writes into. Offsets are byte
// offsets into the current text.
type Surface interface {
	Selection() (start, end int)
	SetText(text string)
	SetSelection(start, end int)
}

// Snapshot is a consistent view of the controller state.
type Snapshot struct {
	Text    string
	Request request.HTTPRequest
	State   State
	Focused bool
	Pending bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the quiet interval after the last keystroke.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithIdleThreshold sets how long a focused input must be idle before a
// timer fire parses. It defaults to the debounce interval.
func WithIdleThreshold(d time.Duration) Option {
	return func(c *Controller) { c.idle = d }
}

// WithClock replaces the system clock.
func WithClock(clk Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

// WithLogger sets the logger used for reconcile diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSurface attaches the text input that receives external updates.
func WithSurface(s Surface) Option {
	return func(c *Controller) { c.surface = s }
}

// Controller reconciles a request with its live-edited text.
//
// Events are serialized by a mutex. Listener and Surface callbacks run
// after the mutex is released, on the goroutine that delivered the event
// (for timer fires, the clock's goroutine).
type Controller struct {
	debounce time.Duration
	idle     time.Duration
	clock    Clock
	logger   *slog.Logger
	surface  Surface

	mu         sync.Mutex
	req        request.HTTPRequest
	text       string
	lastParsed string
	parsedReq  request.HTTPRequest
	hasParsed  bool
	state      State
	focused    bool
	dirty      bool // buffer holds keystrokes not yet adopted
	deferred   bool // an external update is waiting for Idle
	timer      Timer
	gen        uint64
	lastKey    time.Time
	closed     bool
	listeners  map[int]Listener
	nextID     int
}

// New creates a controller holding req with its serialized text.
func New(req request.HTTPRequest, opts ...Option) *Controller {
	c := &Controller{
		debounce:  DefaultDebounce,
		clock:     SystemClock(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		req:       req.Clone(),
		text:      request.Serialize(req),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.idle <= 0 {
		c.idle = c.debounce
	}
	return c
}

// Keystroke records the full buffer text after a user edit. The text is
// kept exactly as typed and parsing is deferred until typing pauses.
func (c *Controller) Keystroke(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.text = text
	c.dirty = true
	c.lastKey = c.clock.Now()
	c.state = Editing
	c.arm(c.debounce)
}

// Focus marks the input as focused.
func (c *Controller) Focus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.focused = true
	if c.state == Idle {
		c.state = Editing
	}
}

// Blur marks the input as unfocused. Without a pending timer the
// controller returns to Idle and flushes a deferred external update.
func (c *Controller) Blur() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.focused = false
	var effects []func()
	if c.timer == nil && c.state == Editing {
		c.state = Idle
		effects = c.flushDeferred()
	}
	c.mu.Unlock()
	run(effects)
}

// SetRequest replaces the request for a reason other than typing, such as
// an applied payload. Listeners are notified at once; the buffer follows
// only when the user is not editing.
func (c *Controller) SetRequest(req request.HTTPRequest) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.req = req.Clone()
	effects := c.notify(c.req, OriginExternal)
	if c.state == Idle && c.timer == nil && !c.dirty {
		effects = append(effects, c.push()...)
	} else {
		c.deferred = true
		c.logger.Debug("external update deferred", "state", c.state.String())
	}
	c.mu.Unlock()
	run(effects)
}

// Flush parses pending typed text now, ignoring focus and the debounce
// timer. It reports whether the buffer is in agreement with the request
// afterwards.
func (c *Controller) Flush() bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.stopTimer()
	var effects []func()
	if c.dirty {
		effects = c.reconcile()
	} else {
		c.state = Idle
		effects = c.flushDeferred()
	}
	ok := !c.dirty
	c.mu.Unlock()
	run(effects)
	return ok
}

// Snapshot returns the current text, request and state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Text:    c.text,
		Request: c.req.Clone(),
		State:   c.state,
		Focused: c.focused,
		Pending: c.timer != nil,
	}
}

// Subscribe registers fn for request changes and returns its cancel func.
func (c *Controller) Subscribe(fn Listener) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Close cancels any pending timer. Later events are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimer()
	c.listeners = map[int]Listener{}
}

// arm replaces any pending timer with one firing after d. c.mu is held.
func (c *Controller) arm(d time.Duration) {
	c.stopTimer()
	gen := c.gen
	c.timer = c.clock.AfterFunc(d, func() { c.fire(gen) })
}

// stopTimer cancels the pending timer, if any. Bumping gen makes a fire
// that already started ignore itself. c.mu is held.
func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil

	if c.focused {
		if quiet := c.clock.Now().Sub(c.lastKey); quiet < c.idle {
			c.arm(c.idle - quiet)
			c.mu.Unlock()
			return
		}
	}
	effects := c.reconcile()
	c.mu.Unlock()
	run(effects)
}

// reconcile parses the buffer and returns to Idle. c.mu is held.
func (c *Controller) reconcile() []func() {
	c.state = Reconciling
	var effects []func()

	parsed, ok := request.Parse(c.text)
	if ok {
		c.req = parsed
		c.lastParsed = c.text
		c.parsedReq = parsed.Clone()
		c.hasParsed = true
		c.dirty = false
		if c.deferred {
			c.logger.Warn("typed text supersedes deferred external update",
				"url", parsed.URL,
			)
			c.deferred = false
		}
		effects = c.notify(parsed, OriginEdit)
	} else {
		c.logger.Warn("request text does not parse; keeping previous request",
			"bytes", len(c.text),
		)
	}

	c.state = Idle
	return append(effects, c.flushDeferred()...)
}

// flushDeferred pushes a deferred external update if the buffer is free.
// c.mu is held.
func (c *Controller) flushDeferred() []func() {
	if !c.deferred || c.dirty || c.state != Idle {
		return nil
	}
	return c.push()
}

// push writes the serialized request into the buffer unless that would
// echo text the controller already holds. c.mu is held.
func (c *Controller) push() []func() {
	c.deferred = false
	// The request is the one parsed from the untouched buffer.
	if c.hasParsed && c.text == c.lastParsed && c.req.Equal(c.parsedReq) {
		return nil
	}
	text := request.Serialize(c.req)
	if text == c.text {
		return nil
	}
	c.text = text
	c.lastParsed = text
	c.parsedReq = c.req.Clone()
	c.hasParsed = true
	c.dirty = false

	s := c.surface
	if s == nil {
		return nil
	}
	if !c.focused {
		return []func(){func() { s.SetText(text) }}
	}
	return []func(){func() {
		start, end := s.Selection()
		s.SetText(text)
		s.SetSelection(clamp(start, len(text)), clamp(end, len(text)))
	}}
}

// notify snapshots the listeners for a change. c.mu is held.
func (c *Controller) notify(req request.HTTPRequest, origin Origin) []func() {
	if len(c.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	effects := make([]func(), 0, len(ids))
	for _, id := range ids {
		fn := c.listeners[id]
		r := req.Clone()
		effects = append(effects, func() { fn(r, origin) })
	}
	return effects
}

func run(effects []func()) {
	for _, f := range effects {
		f()
	}
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}
