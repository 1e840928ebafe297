package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/0x6d61/sqlistudio/internal/history"
	"github.com/0x6d61/sqlistudio/internal/payload"
	"github.com/0x6d61/sqlistudio/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage recorded payload applications",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded applications, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one recorded application",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one recorded application",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete applications older than --max-age",
	Args:  cobra.NoArgs,
	RunE:  runHistoryCleanup,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyCleanupCmd)

	historyListCmd.Flags().String("target", "", "Only entries for this target URL")
	historyListCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries (0 = all)")
	historyListCmd.Flags().Bool("json", false, "Print JSON instead of a table")

	addOutputFlags(historyShowCmd)

	historyCleanupCmd.Flags().Duration("max-age", 0, "Maximum entry age (default from config)")
}

// withStore opens the history database for a history subcommand.
func withStore(cmd *cobra.Command, fn func(history.Store) error) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled")
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetString("target")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withStore(cmd, func(store history.Store) error {
		summaries, err := store.List(cmd.Context(), history.ListOptions{TargetURL: target, Limit: limit})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON {
			if summaries == nil {
				summaries = []*history.Summary{}
			}
			if err := json.MarshalWrite(out, summaries, jsontext.WithIndent("  ")); err != nil {
				return fmt.Errorf("failed to write history: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}
		if len(summaries) == 0 {
			info(cmd, "No recorded applications")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tRECORDED\tLOCATION\tPARAMETER\tPAYLOAD\tTARGET")
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%q\t%s\n",
				s.ID, s.RecordedAt.Local().Format(time.DateTime), s.Location, s.Parameter, s.Payload, s.TargetURL)
		}
		return tw.Flush()
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(store history.Store) error {
		entry, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
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

		a := entry.Application
		rep := &report.ApplyReport{
			Original: entry.Original,
			Result: payload.Result{
				Success:         a.Success,
				ModifiedRequest: entry.Modified,
				Applied:         a,
				Error:           a.Error,
			},
		}
		if a.Success {
			rep.Result.Preview = fmt.Sprintf("%s \"%s\" changed from \"%s\" to \"%s\"",
				a.InjectionPoint.Location.Label(), a.InjectionPoint.Parameter, a.OriginalValue, a.ModifiedValue)
		}
		return reporter.Generate(cmd.Context(), rep, out)
	})
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(store history.Store) error {
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		info(cmd, "Deleted %s", args[0])
		return nil
	})
}

func runHistoryCleanup(cmd *cobra.Command, args []string) error {
	maxAge, _ := cmd.Flags().GetDuration("max-age")
	return withStore(cmd, func(store history.Store) error {
		if maxAge <= 0 {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			maxAge = cfg.History.MaxAge
		}
		if maxAge <= 0 {
			return fmt.Errorf("a positive --max-age is required")
		}
		deleted, err := store.Cleanup(cmd.Context(), maxAge)
		if err != nil {
			return err
		}
		info(cmd, "Removed %d application(s) older than %s", deleted, maxAge)
		return nil
	})
}
