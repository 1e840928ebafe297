package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0x6d61/sqlistudio/internal/config"
	"github.com/0x6d61/sqlistudio/internal/history"
	"github.com/0x6d61/sqlistudio/internal/report"
	"github.com/0x6d61/sqlistudio/internal/request"
	"github.com/0x6d61/sqlistudio/internal/transport"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sqlistudio",
	Short: "Interactive SQL injection payload workbench",
	Long: `sqlistudio - Interactive SQL injection payload workbench

Edit raw HTTP requests, discover injection points, apply payload suggestions
at URL parameters, JSON fields, form fields and headers, and keep a history
of every application.

WARNING: Use this tool only against systems you have explicit permission to test.
Unauthorized access to computer systems is illegal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Settings
	rootCmd.PersistentFlags().String("config", config.DefaultPath(), "Config file path (YAML)")
	rootCmd.PersistentFlags().IntP("verbose", "v", 0, "Verbosity level (0-3)")

	// History
	rootCmd.PersistentFlags().String("history-db", "", "History database path (overrides config)")
	rootCmd.PersistentFlags().Bool("no-history", false, "Do not record applications")

	// Connection flags
	rootCmd.PersistentFlags().String("proxy", "", "Proxy URL (http://host:port or socks5://host:port)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Request timeout (overrides config)")
	rootCmd.PersistentFlags().Bool("random-agent", false, "Use random User-Agent when the request has none")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sqlistudio %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

// loadSettings reads the config file and applies persistent flag overrides.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if dbPath, _ := cmd.Flags().GetString("history-db"); dbPath != "" {
		cfg.History.Path = dbPath
		cfg.History.Enabled = true
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.History.Enabled = false
	}
	if proxy, _ := cmd.Flags().GetString("proxy"); proxy != "" {
		cfg.Transport.Proxy = proxy
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.Transport.Timeout = timeout
	}
	if randomAgent, _ := cmd.Flags().GetBool("random-agent"); randomAgent {
		cfg.Transport.RandomAgent = true
	}
	return cfg, nil
}

// newLogger maps --verbose to a slog level: 0=Error, 1=Warn, 2=Info, 3=Debug.
func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetInt("verbose")
	logLevel := slog.LevelError
	switch {
	case verbose >= 3:
		logLevel = slog.LevelDebug
	case verbose >= 2:
		logLevel = slog.LevelInfo
	case verbose >= 1:
		logLevel = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))
}

// openHistory opens the configured store, or returns nil when history is
// disabled.
func openHistory(cfg *config.Config) (history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	path := config.ExpandHome(cfg.History.Path)
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	store, err := history.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %q: %w", path, err)
	}
	return store, nil
}

// newTransport builds a client from the transport settings.
func newTransport(cfg *config.Config, logger *slog.Logger) (*transport.DefaultClient, error) {
	client, err := transport.NewClient(transport.ClientOptions{
		Timeout:            cfg.Transport.Timeout,
		ProxyURL:           cfg.Transport.Proxy,
		FollowRedirects:    cfg.Transport.FollowRedirects,
		InsecureSkipVerify: cfg.Transport.Insecure,
		RandomUserAgent:    cfg.Transport.RandomAgent,
		MaxRPS:             cfg.Transport.MaxRPS,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return client, nil
}

// readRequest loads a raw request from path, or from stdin when path is "-".
func readRequest(cmd *cobra.Command, path string) (request.HTTPRequest, error) {
	if path == "" {
		return request.HTTPRequest{}, fmt.Errorf("request file is required (use --request or -r)")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return request.HTTPRequest{}, fmt.Errorf("failed to read request file: %w", err)
	}

	// Files saved on Windows or copied from proxies often use CRLF.
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	req, ok := request.Parse(text)
	if !ok {
		return request.HTTPRequest{}, fmt.Errorf("request text does not parse: the first line must be \"METHOD URL\"")
	}
	return req, nil
}

// reportOutput returns the report writer and a close func.
func reportOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %q: %w", outputPath, err)
	}
	return f, func() { f.Close() }, nil
}

// newReporter resolves --format.
func newReporter(cmd *cobra.Command) (report.Reporter, error) {
	format, _ := cmd.Flags().GetString("format")
	reporter, err := report.New(format)
	if err != nil {
		return nil, fmt.Errorf("unknown report format %q: %w", format, err)
	}
	return reporter, nil
}

// addOutputFlags registers --format and --output on cmd.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	cmd.Flags().StringP("output", "o", "", "Output file path")
}

func ensureParentDir(path string) error {
	if path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	return nil
}

func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "[*] "+format+"\n", args...)
}

func warn(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "[!] "+format+"\n", args...)
}
