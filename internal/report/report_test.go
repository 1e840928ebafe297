package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/request"
	"github.com/0x6d61/sqlistudio/internal/transport"
)

// newTestApplyReport applies a payload to a realistic request.
func newTestApplyReport(t *testing.T) *ApplyReport {
	t.Helper()
	original := request.HTTPRequest{
		Method: "GET",
		URL:    "https://example.com/api/users?id=1",
		Header: request.NewHeader("Accept", "application/json"),
	}
	e := payload.NewEngine(
		payload.WithIDGenerator(func() string { return "app-123" }),
		payload.WithClock(func() time.Time { return time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC) }),
	)
	res := e.Apply(original,
		payload.Suggestion{Payload: "' OR '1'='1", ApplicationMethod: payload.MethodReplace},
		payload.InjectionPoint{Location: payload.LocationURLParameter, Parameter: "id", Value: "1"},
	)
	if !res.Success {
		t.Fatalf("Apply failed: %s", res.Error)
	}
	return &ApplyReport{Original: original, Result: res}
}

func newTestPointsReport() *PointsReport {
	return &PointsReport{
		Request: request.HTTPRequest{Method: "POST", URL: "https://example.com/login?next=1"},
		Points: []payload.InjectionPoint{
			{Location: payload.LocationURLParameter, Parameter: "next", Value: "1", RiskLevel: payload.RiskHigh},
			{Location: payload.LocationFormData, Parameter: "user", Value: "bob", RiskLevel: payload.RiskMedium},
			{Location: payload.LocationHeader, Parameter: "User-Agent", Value: "curl/8", RiskLevel: payload.RiskLow},
		},
	}
}

// --- New ---

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"text", "text", false},
		{"json", "json", false},
		{"JSON", "json", false},
		{"Text", "text", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			r, err := New(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("New(%q) should fail", tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q): %v", tt.format, err)
			}
			if r.Format() != tt.want {
				t.Errorf("Format() = %q, want %q", r.Format(), tt.want)
			}
		})
	}
}

// --- Text ---

func TestTextReporter_Generate_Success(t *testing.T) {
	var buf bytes.Buffer
	r := &TextReporter{}
	if err := r.Generate(context.Background(), newTestApplyReport(t), &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"sqlistudio - Payload Application",
		"Target: https://example.com/api/users?id=1",
		"[+] Payload applied",
		"URL parameter",
		`"1"`,
		"' OR '1'='1",
		"Modified request:",
		"GET https://example.com/api/users?id=%27+OR+%271%27%3D%271 HTTP/1.1",
		"app-123",
		strings.Repeat(doubleLine, lineWidth),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Output to a buffer carries no ANSI escapes.
	if strings.Contains(out, "\x1b[") {
		t.Errorf("output contains escape sequences:\n%q", out)
	}
}

func TestTextReporter_Generate_FailureAndResponse(t *testing.T) {
	rep := newTestApplyReport(t)
	rep.Result = payload.NewEngine().Apply(rep.Original,
		payload.Suggestion{Payload: "x"},
		payload.InjectionPoint{Location: payload.LocationJSONBody, Parameter: "a"},
	)
	rep.Response = &transport.Response{StatusCode: 500, Protocol: "HTTP/1.1", Body: []byte("boom"), Duration: 12 * time.Millisecond}

	var buf bytes.Buffer
	if err := (&TextReporter{}).Generate(context.Background(), rep, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "[-] Payload not applied") {
		t.Errorf("missing failure marker:\n%s", out)
	}
	if !strings.Contains(out, "failed to parse JSON body") {
		t.Errorf("missing error text:\n%s", out)
	}
	if strings.Contains(out, "Modified request:") {
		t.Errorf("failed application should not print a modified request:\n%s", out)
	}
	if !strings.Contains(out, "Response: HTTP/1.1 500 Internal Server Error, 4 bytes, 12ms") {
		t.Errorf("missing response summary:\n%s", out)
	}
}

func TestTextReporter_Generate_HideRequest(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextReporter{HideRequest: true}).Generate(context.Background(), newTestApplyReport(t), &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(buf.String(), "Modified request:") {
		t.Error("HideRequest should omit the modified request")
	}
}

func TestTextReporter_GeneratePoints(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextReporter{}).GeneratePoints(context.Background(), newTestPointsReport(), &buf); err != nil {
		t.Fatalf("GeneratePoints: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"sqlistudio - Injection Points",
		"[high]",
		`next = "1"`,
		`User-Agent = "curl/8"`,
		"Summary: 3 injection point(s) (1 url_parameter, 1 form_data, 1 header)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextReporter_GeneratePoints_Empty(t *testing.T) {
	var buf bytes.Buffer
	rep := &PointsReport{Request: request.Default()}
	if err := (&TextReporter{}).GeneratePoints(context.Background(), rep, &buf); err != nil {
		t.Fatalf("GeneratePoints: %v", err)
	}
	if !strings.Contains(buf.String(), "No injection points found.") {
		t.Errorf("missing empty marker:\n%s", buf.String())
	}
}

// --- JSON ---

func TestJSONReporter_Generate(t *testing.T) {
	rep := newTestApplyReport(t)
	rep.Response = &transport.Response{StatusCode: 200, Protocol: "HTTP/1.1", URL: rep.Result.ModifiedRequest.URL, Body: []byte("ok"), Duration: 1500 * time.Microsecond}

	var buf bytes.Buffer
	if err := (&JSONReporter{}).Generate(context.Background(), rep, &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if out["schema_version"] != "1.0" || out["tool"] != "sqlistudio" {
		t.Errorf("unexpected envelope: %v", out)
	}
	if out["success"] != true {
		t.Errorf("success = %v, want true", out["success"])
	}
	modified := out["modified_request"].(map[string]any)
	if modified["url"] != "https://example.com/api/users?id=%27+OR+%271%27%3D%271" {
		t.Errorf("modified url = %v", modified["url"])
	}
	if !strings.HasPrefix(modified["raw"].(string), "GET https://example.com/api/users?id=") {
		t.Errorf("modified raw = %v", modified["raw"])
	}
	headers := modified["headers"].(map[string]any)
	if headers["Accept"] != "application/json" {
		t.Errorf("headers = %v", headers)
	}
	app := out["application"].(map[string]any)
	if app["id"] != "app-123" || app["original_value"] != "1" {
		t.Errorf("application = %v", app)
	}
	resp := out["response"].(map[string]any)
	if resp["status_code"] != float64(200) || resp["duration_ms"] != 1.5 {
		t.Errorf("response = %v", resp)
	}
	if !strings.Contains(buf.String(), "\n  \"") {
		t.Error("expected indented output by default")
	}
}

func TestJSONReporter_Generate_CompactWithoutResponse(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONReporter{Compact: true}).Generate(context.Background(), newTestApplyReport(t), &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := strings.TrimSuffix(buf.String(), "\n")
	if strings.Contains(out, "\n") {
		t.Errorf("compact output spans lines:\n%s", out)
	}
	if strings.Contains(out, `"response"`) {
		t.Error("response should be omitted when not sent")
	}
}

func TestJSONReporter_GeneratePoints(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONReporter{}).GeneratePoints(context.Background(), newTestPointsReport(), &buf); err != nil {
		t.Fatalf("GeneratePoints: %v", err)
	}
	var out struct {
		Target struct {
			URL    string `json:"url"`
			Method string `json:"method"`
		} `json:"target"`
		Points  []payload.InjectionPoint `json:"points"`
		Summary struct {
			Total      int            `json:"total"`
			ByLocation map[string]int `json:"by_location"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out.Target.Method != "POST" || len(out.Points) != 3 || out.Summary.Total != 3 {
		t.Errorf("unexpected output: %+v", out)
	}
	if out.Summary.ByLocation["header"] != 1 {
		t.Errorf("by_location = %v", out.Summary.ByLocation)
	}
	if out.Points[0].Parameter != "next" || out.Points[0].RiskLevel != payload.RiskHigh {
		t.Errorf("points[0] = %+v", out.Points[0])
	}
}

func TestJSONReporter_GeneratePoints_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONReporter{Compact: true}).GeneratePoints(context.Background(), &PointsReport{Request: request.Default()}, &buf); err != nil {
		t.Fatalf("GeneratePoints: %v", err)
	}
	if !strings.Contains(buf.String(), `"points":[]`) {
		t.Errorf("expected empty points array, got %s", buf.String())
	}
}

// --- Context ---

func TestGenerate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, r := range []Reporter{&TextReporter{}, &JSONReporter{}} {
		var buf bytes.Buffer
		if err := r.Generate(ctx, newTestApplyReport(t), &buf); err == nil {
			t.Errorf("%s Generate should fail on cancelled context", r.Format())
		}
		if err := r.GeneratePoints(ctx, newTestPointsReport(), &buf); err == nil {
			t.Errorf("%s GeneratePoints should fail on cancelled context", r.Format())
		}
		if buf.Len() != 0 {
			t.Errorf("%s wrote output on cancelled context", r.Format())
		}
	}
}
