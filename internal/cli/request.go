package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/report"
	"github.com/0x6d61/sqlistudio/internal/request"
	"github.com/0x6d61/sqlistudio/internal/studio"
	"github.com/0x6d61/sqlistudio/internal/suggest"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt",
	Short: "Normalize a raw request file",
	Long: `Fmt parses a raw HTTP request and prints it in canonical form: the
request line, one "Name: Value" line per header, a blank line and the body.`,
	RunE: runFmt,
}

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "List injection points in a raw request",
	RunE:  runPoints,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Ask the analysis service for payload suggestions",
	Long: `Suggest posts the request to the payload analysis service and prints the
suggestions as a JSON array that apply --suggestions accepts.`,
	RunE: runSuggest,
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a raw request and print the response status",
	RunE:  runSend,
}

func init() {
	rootCmd.AddCommand(fmtCmd, pointsCmd, suggestCmd, sendCmd)

	fmtCmd.Flags().StringP("request", "r", "", "Raw request file (- for stdin)")
	fmtCmd.Flags().BoolP("write", "w", false, "Write the result back to the request file")

	pointsCmd.Flags().StringP("request", "r", "", "Raw request file (- for stdin)")
	addOutputFlags(pointsCmd)

	suggestCmd.Flags().StringP("request", "r", "", "Raw request file (- for stdin)")
	suggestCmd.Flags().String("message", "", "Instruction for the analysis service")
	suggestCmd.Flags().String("db-type", "", "Target database type (overrides config)")
	suggestCmd.Flags().String("base-url", "", "Analysis service base URL (overrides config)")
	suggestCmd.Flags().StringP("output", "o", "", "Output file path")

	sendCmd.Flags().StringP("request", "r", "", "Raw request file (- for stdin)")
	sendCmd.Flags().Bool("body", false, "Print the response body")
}

func runFmt(cmd *cobra.Command, args []string) error {
	requestPath, _ := cmd.Flags().GetString("request")
	write, _ := cmd.Flags().GetBool("write")

	req, err := readRequest(cmd, requestPath)
	if err != nil {
		return err
	}
	text := request.Serialize(req)
	if write && requestPath != "-" {
		if err := os.WriteFile(requestPath, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write request file: %w", err)
		}
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runPoints(cmd *cobra.Command, args []string) error {
	requestPath, _ := cmd.Flags().GetString("request")
	req, err := readRequest(cmd, requestPath)
	if err != nil {
		return err
	}

	ws := studio.New(req, studio.WithLogger(newLogger(cmd)))
	defer ws.Close()

	reporter, err := newReporter(cmd)
	if err != nil {
		return err
	}
	out, closeOut, err := reportOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	rep := &report.PointsReport{Request: req, Points: ws.Points()}
	if err := reporter.GeneratePoints(cmd.Context(), rep, out); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	requestPath, _ := cmd.Flags().GetString("request")
	message, _ := cmd.Flags().GetString("message")
	dbType, _ := cmd.Flags().GetString("db-type")
	baseURL, _ := cmd.Flags().GetString("base-url")

	req, err := readRequest(cmd, requestPath)
	if err != nil {
		return err
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if baseURL == "" {
		baseURL = cfg.Suggest.BaseURL
	}
	if dbType == "" {
		dbType = cfg.Suggest.DBType
	}

	client, err := suggest.New(suggest.Options{
		BaseURL: baseURL,
		Timeout: cfg.Suggest.Timeout,
		MaxRPS:  cfg.Suggest.MaxRPS,
		Logger:  newLogger(cmd),
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	info(cmd, "Requesting suggestions from %s", client.Endpoint())
	suggestions, err := client.Suggest(ctx, suggest.Query{Request: req, UserMessage: message, DBType: dbType})
	if err != nil {
		return err
	}
	info(cmd, "Received %d suggestion(s)", len(suggestions))

	out, closeOut, err := reportOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()
	if suggestions == nil {
		suggestions = []payload.Suggestion{}
	}
	if err := json.MarshalWrite(out, suggestions, jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("failed to write suggestions: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	requestPath, _ := cmd.Flags().GetString("request")
	showBody, _ := cmd.Flags().GetBool("body")

	req, err := readRequest(cmd, requestPath)
	if err != nil {
		return err
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd)
	client, err := newTransport(cfg, logger)
	if err != nil {
		return err
	}

	ws := studio.New(req, studio.WithLogger(logger), studio.WithSender(client))
	defer ws.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	info(cmd, "Sending %s %s", req.Method, req.URL)
	resp, err := ws.Send(ctx)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Summary())
	if showBody {
		fmt.Fprintln(cmd.OutOrStdout(), resp.BodyString())
	}
	return nil
}
