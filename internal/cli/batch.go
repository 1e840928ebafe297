package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/studio"
	"github.com/0x6d61/sqlistudio/internal/tamper"
	"github.com/0x6d61/sqlistudio/internal/transport"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Apply every suggestion in a file to a request",
	Long: `Batch applies each suggestion from a suggestions file to its own copy of
the request and, with --send, sends the variants concurrently. One line is
printed per suggestion, in file order.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringP("request", "r", "", "Raw request file (- for stdin)")
	batchCmd.Flags().String("suggestions", "", "Suggestions file (JSON array)")
	batchCmd.Flags().Bool("send", false, "Send every modified request")
	batchCmd.Flags().Int("threads", 4, "Number of concurrent senders")
	batchCmd.Flags().String("tamper", "", "Comma-separated payload tampers applied to every suggestion")
	addOutputFlags(batchCmd)
}

// batchLine is the JSON form of one variant.
type batchLine struct {
	Index         int              `json:"index"`
	Success       bool             `json:"success"`
	Error         string           `json:"error,omitempty"`
	Location      payload.Location `json:"location,omitempty"`
	Parameter     string           `json:"parameter,omitempty"`
	Payload       string           `json:"payload"`
	ModifiedValue string           `json:"modified_value,omitempty"`
	StatusCode    int              `json:"status_code,omitempty"`
	Bytes         int              `json:"bytes,omitempty"`
	DurationMS    float64          `json:"duration_ms,omitempty"`
	SendError     string           `json:"send_error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	requestPath, _ := cmd.Flags().GetString("request")
	suggestionsPath, _ := cmd.Flags().GetString("suggestions")
	send, _ := cmd.Flags().GetBool("send")
	threads, _ := cmd.Flags().GetInt("threads")
	tamperList, _ := cmd.Flags().GetString("tamper")
	format, _ := cmd.Flags().GetString("format")

	if format != "text" && format != "json" {
		return fmt.Errorf("unknown report format %q", format)
	}
	req, err := readRequest(cmd, requestPath)
	if err != nil {
		return err
	}
	if suggestionsPath == "" {
		return fmt.Errorf("a suggestions file is required (use --suggestions)")
	}
	suggestions, err := loadSuggestions(suggestionsPath)
	if err != nil {
		return err
	}
	chain, err := tamper.Parse(tamperList)
	if err != nil {
		return err
	}
	for i := range suggestions {
		suggestions[i] = chain.Suggestion(suggestions[i])
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd)

	opts := []studio.Option{studio.WithLogger(logger)}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, studio.WithHistory(store))
	}
	var client *transport.DefaultClient
	if send {
		client, err = newTransport(cfg, logger)
		if err != nil {
			return err
		}
		opts = append(opts, studio.WithSender(client))
	}
	ws := studio.New(req, opts...)
	defer ws.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	info(cmd, "Applying %d suggestion(s) to %s", len(suggestions), req.URL)
	variants, err := ws.RunBatch(ctx, suggestions, studio.BatchOptions{Workers: threads, Send: send})
	if err != nil {
		return err
	}

	lines := make([]batchLine, len(variants))
	failed := 0
	for i, v := range variants {
		lines[i] = newBatchLine(v, suggestions[i])
		if !v.Result.Success {
			failed++
		}
	}

	out, closeOut, err := reportOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()
	if format == "json" {
		if err := json.MarshalWrite(out, lines, jsontext.WithIndent("  ")); err != nil {
			return fmt.Errorf("failed to write batch report: %w", err)
		}
		fmt.Fprintln(out)
	} else if err := writeBatchTable(out, lines, send); err != nil {
		return err
	}

	if client != nil {
		stats := client.Stats()
		info(cmd, "Sent %d request(s), average %s", stats.TotalRequests, stats.AvgDuration.Round(time.Millisecond))
	}
	if failed > 0 {
		warn(cmd, "%d of %d suggestion(s) could not be applied", failed, len(variants))
	}
	return nil
}

func newBatchLine(v studio.Variant, s payload.Suggestion) batchLine {
	app := v.Result.Applied
	line := batchLine{
		Index:         v.Index,
		Success:       v.Result.Success,
		Error:         v.Result.Error,
		Location:      app.InjectionPoint.Location,
		Parameter:     app.InjectionPoint.Parameter,
		Payload:       s.Payload,
		ModifiedValue: app.ModifiedValue,
	}
	if v.Response != nil {
		line.StatusCode = v.Response.StatusCode
		line.Bytes = len(v.Response.Body)
		line.DurationMS = float64(v.Response.Duration) / float64(time.Millisecond)
	}
	if v.SendErr != nil {
		line.SendError = v.SendErr.Error()
	}
	return line
}

func writeBatchTable(w io.Writer, lines []batchLine, sent bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if sent {
		fmt.Fprintln(tw, "#\t\tLOCATION\tPARAMETER\tPAYLOAD\tSTATUS\tBYTES\tTIME")
	} else {
		fmt.Fprintln(tw, "#\t\tLOCATION\tPARAMETER\tPAYLOAD\tVALUE")
	}
	for _, l := range lines {
		mark := "[+]"
		if !l.Success {
			mark = "[-]"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%q", l.Index, mark, l.Location, l.Parameter, l.Payload)
		switch {
		case !l.Success:
			fmt.Fprintf(tw, "\t%s\n", l.Error)
		case !sent:
			fmt.Fprintf(tw, "\t%q\n", l.ModifiedValue)
		case l.SendError != "":
			fmt.Fprintf(tw, "\terror: %s\n", l.SendError)
		default:
			fmt.Fprintf(tw, "\t%d\t%d\t%.0fms\n", l.StatusCode, l.Bytes, l.DurationMS)
		}
	}
	return tw.Flush()
}
