package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/breakbot/internal/config"
	"github.com/goodtune/breakbot/internal/journal"
	"github.com/goodtune/breakbot/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	reportDate   string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the break journal for a day",
	Long: `Print the breaks and fine decisions journaled on a day. Only the bolt and
redis storage backends keep a journal between runs.`,
	Example: `  breakbot -c breakbot.yaml report
  breakbot report --date 2024-05-06 --format yaml`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Day to report (YYYY-MM-DD) - defaults to today")
	reportCmd.Flags().StringVar(&reportFormat, "format", "table", "Output format: table or yaml")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	day := time.Now()
	if reportDate != "" {
		parsed, err := time.ParseInLocation(storage.DateLayout, reportDate, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", reportDate)
		}
		day = parsed
	}

	if reportFormat != "table" && reportFormat != "yaml" {
		return fmt.Errorf("invalid format %q (table or yaml)", reportFormat)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Storage.Type == config.StorageMemory {
		return fmt.Errorf("storage type %q keeps no journal between runs; use bolt or redis", cfg.Storage.Type)
	}

	store, err := openStorage(cfg.Storage, cfg.Retention())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := journal.BuildReport(ctx, store.Journal(), day)
	if err != nil {
		return err
	}

	if reportFormat == "yaml" {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(report)
	}

	printReport(os.Stdout, report)
	return nil
}

// printReport prints the report as aligned tables
func printReport(out io.Writer, report *journal.Report) {
	cyan := color.New(color.FgCyan, color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	_, _ = cyan.Fprintf(out, "BREAK REPORT %s\n\n", report.Date)

	if len(report.Breaks) == 0 {
		_, _ = fmt.Fprintln(out, "No breaks journaled.")
	} else {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "TYPE\tBREAKS\tLATE\tEXPIRED\tMINUTES")
		for _, s := range report.Summary {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.BreakType, s.Breaks, s.Late, s.Expired, s.TotalMinutes)
		}
		_ = tw.Flush()

		_, _ = fmt.Fprintln(out)
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "USER\tTYPE\tSTARTED\tENDED\tMINUTES\tOUTCOME")
		for _, b := range report.Breaks {
			outcome := green.Sprint(b.Outcome)
			if b.Outcome != storage.OutcomeOnTime {
				outcome = red.Sprint(b.Outcome)
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
				b.DisplayName, b.BreakType,
				b.StartedAt.Local().Format("15:04"), b.EndedAt.Local().Format("15:04"),
				b.DurationMinutes, outcome)
		}
		_ = tw.Flush()
	}

	if len(report.Fines) > 0 {
		_, _ = fmt.Fprintln(out)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "USER\tTYPE\tMINUTES\tDECISION\tAMOUNT\tREASON")
		for _, f := range report.Fines {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d %s\t%s\n",
				f.DisplayName, f.BreakType, f.DurationMinutes, f.Decision, f.Amount, f.Currency, f.Reason)
		}
		_ = tw.Flush()
	}

	_, _ = fmt.Fprintf(out, "\nFines imposed: %d (%d %s), waived: %d\n",
		report.FinesImposed, report.FineTotal, report.FineCurrency, report.FinesWaived)
}
