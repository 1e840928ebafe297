package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/request"
)

const (
	doubleLine = "\u2550" // ═
	singleLine = "\u2500" // ─
	lineWidth  = 50
)

// TextReporter outputs terminal text. Colors are used only when w is a
// color-capable terminal.
type TextReporter struct {
	// HideRequest omits the full modified request from application reports.
	HideRequest bool
}

// Format returns "text".
func (r *TextReporter) Format() string {
	return "text"
}

// styles are bound to the destination writer so redirected output stays plain.
type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	muted   lipgloss.Style
	payload lipgloss.Style
}

func newStyles(w io.Writer) styles {
	re := lipgloss.NewRenderer(w)
	return styles{
		title:   re.NewStyle().Bold(true),
		label:   re.NewStyle().Foreground(lipgloss.Color("244")),
		ok:      re.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		failed:  re.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		muted:   re.NewStyle().Foreground(lipgloss.Color("241")),
		payload: re.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// Generate writes a formatted application report to w.
func (r *TextReporter) Generate(ctx context.Context, rep *ApplyReport, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	st := newStyles(w)
	b := &strings.Builder{}
	doubleBar := strings.Repeat(doubleLine, lineWidth)
	singleBar := strings.Repeat(singleLine, lineWidth)

	fmt.Fprintln(b, doubleBar)
	fmt.Fprintln(b, st.title.Render("sqlistudio - Payload Application"))
	fmt.Fprintln(b, doubleBar)
	fmt.Fprintf(b, "%s %s\n", st.label.Render("Target:"), rep.Original.URL)
	fmt.Fprintf(b, "%s %s\n", st.label.Render("Method:"), rep.Original.Method)
	fmt.Fprintln(b, singleBar)

	res := rep.Result
	app := res.Applied
	if res.Success {
		fmt.Fprintln(b, st.ok.Render("[+] Payload applied"))
	} else {
		fmt.Fprintln(b, st.failed.Render("[-] Payload not applied"))
	}
	field := func(name, value string) {
		fmt.Fprintf(b, "  %s %s\n", st.label.Render(fmt.Sprintf("%-11s", name+":")), value)
	}
	field("Location", app.InjectionPoint.Location.Label())
	field("Parameter", app.InjectionPoint.Parameter)
	field("Method", string(app.Suggestion.ApplicationMethod.Resolve()))
	field("Payload", st.payload.Render(app.Suggestion.Payload))
	if res.Success {
		field("Original", fmt.Sprintf("%q", app.OriginalValue))
		field("Modified", fmt.Sprintf("%q", app.ModifiedValue))
		field("Preview", res.Preview)
	} else {
		field("Error", st.failed.Render(res.Error))
	}
	field("ID", st.muted.Render(app.ID))

	if res.Success && !r.HideRequest {
		fmt.Fprintln(b, singleBar)
		fmt.Fprintln(b, st.title.Render("Modified request:"))
		fmt.Fprintln(b, request.Serialize(res.ModifiedRequest))
	}

	if rep.Response != nil {
		fmt.Fprintln(b, singleBar)
		fmt.Fprintf(b, "%s %s\n", st.label.Render("Response:"), rep.Response.Summary())
	}

	fmt.Fprintln(b, doubleBar)

	_, err := io.WriteString(w, b.String())
	return err
}

// GeneratePoints writes a formatted injection point listing to w.
func (r *TextReporter) GeneratePoints(ctx context.Context, rep *PointsReport, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	st := newStyles(w)
	b := &strings.Builder{}
	doubleBar := strings.Repeat(doubleLine, lineWidth)
	singleBar := strings.Repeat(singleLine, lineWidth)

	fmt.Fprintln(b, doubleBar)
	fmt.Fprintln(b, st.title.Render("sqlistudio - Injection Points"))
	fmt.Fprintln(b, doubleBar)
	fmt.Fprintf(b, "%s %s\n", st.label.Render("Target:"), rep.Request.URL)
	fmt.Fprintf(b, "%s %s\n", st.label.Render("Method:"), rep.Request.Method)
	fmt.Fprintln(b, singleBar)

	if len(rep.Points) == 0 {
		fmt.Fprintln(b, "No injection points found.")
	}
	for _, p := range rep.Points {
		risk := st.muted.Render(fmt.Sprintf("[%s]", p.RiskLevel))
		if p.RiskLevel == payload.RiskHigh {
			risk = st.failed.Render(fmt.Sprintf("[%s]", p.RiskLevel))
		}
		fmt.Fprintf(b, "%-8s %-14s %s = %q\n", risk, p.Location.Label(), p.Parameter, p.Value)
	}

	fmt.Fprintln(b, doubleBar)
	counts := countByLocation(rep.Points)
	parts := make([]string, 0, len(counts))
	for _, loc := range payload.Locations() {
		if n := counts[loc]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, loc))
		}
	}
	summary := fmt.Sprintf("Summary: %d injection point(s)", len(rep.Points))
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	fmt.Fprintln(b, summary)
	fmt.Fprintln(b, doubleBar)

	_, err := io.WriteString(w, b.String())
	return err
}
