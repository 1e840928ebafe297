package report

import (
	"context"
	"io"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/request"
)

const (
	schemaVersion = "1.0"
	toolName      = "sqlistudio"
)

// JSONReporter outputs structured JSON.
type JSONReporter struct {
	// Compact outputs single-line JSON when true (no indentation).
	Compact bool
}

// Format returns "json".
func (r *JSONReporter) Format() string {
	return "json"
}

// jsonApply is the top-level structure of an application report.
type jsonApply struct {
	SchemaVersion   string              `json:"schema_version"`
	Tool            string              `json:"tool"`
	Success         bool                `json:"success"`
	Error           string              `json:"error,omitempty"`
	Preview         string              `json:"preview,omitempty"`
	OriginalRequest jsonRequest         `json:"original_request"`
	ModifiedRequest jsonRequest         `json:"modified_request"`
	Application     payload.Application `json:"application"`
	Response        *jsonResponse       `json:"response,omitempty"`
}

// jsonRequest carries both the structured request and its raw text.
type jsonRequest struct {
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers request.Header `json:"headers"`
	Body    string         `json:"body"`
	Raw     string         `json:"raw"`
}

// jsonResponse summarizes what the target returned.
type jsonResponse struct {
	StatusCode int     `json:"status_code"`
	Protocol   string  `json:"protocol"`
	URL        string  `json:"url"`
	Bytes      int     `json:"bytes"`
	DurationMS float64 `json:"duration_ms"`
}

// jsonPoints is the top-level structure of a points report.
type jsonPoints struct {
	SchemaVersion string                   `json:"schema_version"`
	Tool          string                   `json:"tool"`
	Target        jsonTarget               `json:"target"`
	Points        []payload.InjectionPoint `json:"points"`
	Summary       jsonPointsSummary        `json:"summary"`
}

type jsonTarget struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

type jsonPointsSummary struct {
	Total      int                      `json:"total"`
	ByLocation map[payload.Location]int `json:"by_location"`
}

func newJSONRequest(r request.HTTPRequest) jsonRequest {
	return jsonRequest{
		Method:  r.Method,
		URL:     r.URL,
		Headers: r.Header,
		Body:    r.Body,
		Raw:     request.Serialize(r),
	}
}

// Generate writes a JSON application report to w.
func (r *JSONReporter) Generate(ctx context.Context, rep *ApplyReport, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := rep.Result
	output := jsonApply{
		SchemaVersion:   schemaVersion,
		Tool:            toolName,
		Success:         res.Success,
		Error:           res.Error,
		Preview:         res.Preview,
		OriginalRequest: newJSONRequest(rep.Original),
		ModifiedRequest: newJSONRequest(res.ModifiedRequest),
		Application:     res.Applied,
	}
	if resp := rep.Response; resp != nil {
		output.Response = &jsonResponse{
			StatusCode: resp.StatusCode,
			Protocol:   resp.Protocol,
			URL:        resp.URL,
			Bytes:      len(resp.Body),
			DurationMS: float64(resp.Duration) / float64(time.Millisecond),
		}
	}
	return r.write(w, output)
}

// GeneratePoints writes a JSON injection point listing to w.
func (r *JSONReporter) GeneratePoints(ctx context.Context, rep *PointsReport, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	points := rep.Points
	if points == nil {
		points = []payload.InjectionPoint{}
	}
	output := jsonPoints{
		SchemaVersion: schemaVersion,
		Tool:          toolName,
		Target:        jsonTarget{URL: rep.Request.URL, Method: rep.Request.Method},
		Points:        points,
		Summary: jsonPointsSummary{
			Total:      len(points),
			ByLocation: countByLocation(points),
		},
	}
	return r.write(w, output)
}

func (r *JSONReporter) write(w io.Writer, v any) error {
	opts := []json.Options{json.Deterministic(true)}
	if !r.Compact {
		opts = append(opts, jsontext.WithIndent("  "))
	}
	if err := json.MarshalWrite(w, v, opts...); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
