// Package history keeps an append-only log of payload applications so
// past edits can be listed, inspected and replayed.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/request"
)

// ErrNotFound is returned when no entry matches the requested ID.
var ErrNotFound = errors.New("history: entry not found")

// Entry is one recorded application together with the request before and
// after it.
type Entry struct {
	ID          string              `json:"id"`
	TargetURL   string              `json:"target_url"`
	Original    request.HTTPRequest `json:"original_request"`
	Modified    request.HTTPRequest `json:"modified_request"`
	Application payload.Application `json:"application"`
	RecordedAt  time.Time           `json:"recorded_at"`
}

// NewEntry builds an Entry from an engine result. The entry shares the
// application's ID.
func NewEntry(original request.HTTPRequest, res payload.Result) *Entry {
	return &Entry{
		ID:          res.Applied.ID,
		TargetURL:   original.URL,
		Original:    original.Clone(),
		Modified:    res.ModifiedRequest.Clone(),
		Application: res.Applied,
		RecordedAt:  res.Applied.AppliedAt,
	}
}

// Summary is a lightweight entry overview.
type Summary struct {
	ID         string           `json:"id"`
	TargetURL  string           `json:"target_url"`
	Location   payload.Location `json:"location"`
	Parameter  string           `json:"parameter"`
	Payload    string           `json:"payload"`
	Success    bool             `json:"success"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// ListOptions narrows List. A zero Limit returns every entry.
type ListOptions struct {
	TargetURL string
	Limit     int
}

// Store persists and retrieves application entries.
type Store interface {
	Record(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, opts ListOptions) ([]*Summary, error)
	Delete(ctx context.Context, id string) error
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
	Close() error
}
