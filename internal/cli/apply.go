package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-json-experiment/json"
	"github.com/spf13/cobra"

	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/report"
	"github.com/0x6d61/sqlistudio/internal/studio"
	"github.com/0x6d61/sqlistudio/internal/tamper"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a payload at an injection point of a raw request",
	Long: `Apply inserts a payload into a raw HTTP request at a URL parameter, a JSON
body field (dotted path), a form field or a header, and prints the modified
request. The payload comes from --payload or from a suggestions file written
by the suggest command.`,
	Example: `  sqlistudio apply -r req.txt --location url_parameter --parameter id --payload "' OR '1'='1"
  sqlistudio apply -r req.txt --location json_body --parameter user.name --payload "'" --method append
  sqlistudio apply -r req.txt --suggestions suggestions.json --index 2 --send
  sqlistudio apply -r req.txt -l url_parameter -p id --payload "1 union select null" --tamper uppercase,space2comment`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringP("request", "r", "", "Raw request file (- for stdin)")
	applyCmd.Flags().StringP("location", "l", "", "Injection location (url_parameter, json_body, form_data, header)")
	applyCmd.Flags().StringP("parameter", "p", "", "Parameter name, header name or dotted JSON path")
	applyCmd.Flags().String("payload", "", "Payload to apply")
	applyCmd.Flags().StringP("method", "m", "replace", "Application method (replace, append, prepend)")
	applyCmd.Flags().String("suggestions", "", "Suggestions file (JSON array) to take the payload from")
	applyCmd.Flags().Int("index", 0, "Suggestion index (0-based) in --suggestions")
	applyCmd.Flags().Bool("send", false, "Send the modified request and include the response")
	applyCmd.Flags().Bool("dry-run", false, "Only describe the change; do not apply or record it")
	applyCmd.Flags().String("tamper", "", "Comma-separated payload tampers (e.g. space2comment,uppercase)")
	addOutputFlags(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	requestPath, _ := cmd.Flags().GetString("request")
	location, _ := cmd.Flags().GetString("location")
	parameter, _ := cmd.Flags().GetString("parameter")
	payloadStr, _ := cmd.Flags().GetString("payload")
	method, _ := cmd.Flags().GetString("method")
	suggestionsPath, _ := cmd.Flags().GetString("suggestions")
	index, _ := cmd.Flags().GetInt("index")
	send, _ := cmd.Flags().GetBool("send")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	tamperList, _ := cmd.Flags().GetString("tamper")

	req, err := readRequest(cmd, requestPath)
	if err != nil {
		return err
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd)

	// ------------------------------------------------------------------ //
	// Suggestion
	// ------------------------------------------------------------------ //
	var suggestion payload.Suggestion
	switch {
	case suggestionsPath != "":
		suggestion, err = loadSuggestion(suggestionsPath, index)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("method") {
			suggestion.ApplicationMethod = payload.Method(method)
		}
	case cmd.Flags().Changed("payload"):
		suggestion = payload.Suggestion{
			Payload:           payloadStr,
			ApplicationMethod: payload.Method(method),
			Source:            "manual",
		}
	default:
		return fmt.Errorf("a payload is required (use --payload or --suggestions)")
	}
	chain, err := tamper.Parse(tamperList)
	if err != nil {
		return err
	}
	suggestion = chain.Suggestion(suggestion)

	// ------------------------------------------------------------------ //
	// Workspace
	// ------------------------------------------------------------------ //
	opts := []studio.Option{studio.WithLogger(logger)}
	if !dryRun {
		store, err := openHistory(cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			opts = append(opts, studio.WithHistory(store))
		}
	}
	if send {
		client, err := newTransport(cfg, logger)
		if err != nil {
			return err
		}
		opts = append(opts, studio.WithSender(client))
	}
	ws := studio.New(req, opts...)
	defer ws.Close()

	var point payload.InjectionPoint
	if location != "" {
		point = payload.InjectionPoint{Location: payload.Location(location), Parameter: parameter}
		if parameter == "" {
			return fmt.Errorf("--parameter is required with --location")
		}
	} else {
		point, err = ws.ResolvePoint(suggestion)
		if err != nil {
			return fmt.Errorf("no injection point: use --location and --parameter (%w)", err)
		}
	}

	if dryRun {
		current := ""
		for _, p := range ws.Points() {
			if p.Location == point.Location && p.Parameter == point.Parameter {
				current = p.Value
				break
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), payload.NewEngine().Preview(suggestion, point, current))
		return nil
	}

	// ------------------------------------------------------------------ //
	// Apply (CTRL+C cancels history writes and sending)
	// ------------------------------------------------------------------ //
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	res, err := ws.Apply(ctx, suggestion, point)
	if err != nil {
		warn(cmd, "Failed to record application: %v", err)
	}

	rep := &report.ApplyReport{Original: req, Result: res}
	if res.Success && send {
		info(cmd, "Sending %s %s", res.ModifiedRequest.Method, res.ModifiedRequest.URL)
		resp, err := ws.Send(ctx)
		if err != nil {
			return fmt.Errorf("failed to send modified request: %w", err)
		}
		rep.Response = resp
	}

	reporter, err := newReporter(cmd)
	if err != nil {
		return err
	}
	out, closeOut, err := reportOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()
	if err := reporter.Generate(ctx, rep, out); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if !res.Success {
		return fmt.Errorf("payload was not applied: %s", res.Error)
	}
	return nil
}

// loadSuggestions reads a JSON array of suggestions.
func loadSuggestions(path string) ([]payload.Suggestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suggestions file: %w", err)
	}
	var suggestions []payload.Suggestion
	if err := json.Unmarshal(data, &suggestions); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions file: %w", err)
	}
	return suggestions, nil
}

// loadSuggestion returns the suggestion at index in the file at path.
func loadSuggestion(path string, index int) (payload.Suggestion, error) {
	suggestions, err := loadSuggestions(path)
	if err != nil {
		return payload.Suggestion{}, err
	}
	if index < 0 || index >= len(suggestions) {
		return payload.Suggestion{}, fmt.Errorf("suggestion index %d out of range (have %d)", index, len(suggestions))
	}
	return suggestions[index], nil
}
