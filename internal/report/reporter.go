// Package report renders payload applications and discovered injection
// points for the terminal or for machines.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/request"
	"github.com/0x6d61/sqlistudio/internal/transport"
)

// ApplyReport is the outcome of one payload application, optionally with
// the target's response when the modified request was sent.
type ApplyReport struct {
	Original request.HTTPRequest
	Result   payload.Result
	Response *transport.Response
}

// PointsReport lists the injection points found in a request.
type PointsReport struct {
	Request request.HTTPRequest
	Points  []payload.InjectionPoint
}

// Reporter generates output in a specific format.
type Reporter interface {
	// Format returns the format name (e.g., "text", "json").
	Format() string

	// Generate writes an application report to w.
	Generate(ctx context.Context, r *ApplyReport, w io.Writer) error

	// GeneratePoints writes an injection point listing to w.
	GeneratePoints(ctx context.Context, r *PointsReport, w io.Writer) error
}

// New creates a reporter by format name ("text" or "json").
// The format name is case-insensitive.
func New(format string) (Reporter, error) {
	switch strings.ToLower(format) {
	case "text":
		return &TextReporter{}, nil
	case "json":
		return &JSONReporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %q", format)
	}
}

// countByLocation tallies points per location.
func countByLocation(points []payload.InjectionPoint) map[payload.Location]int {
	counts := make(map[payload.Location]int)
	for _, p := range points {
		counts[p.Location]++
	}
	return counts
}
