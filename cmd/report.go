package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/sqlite"
	"github.com/kozaktomas/face-attendance/internal/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <kind>",
	Short: "Generate an attendance report",
	Long: `Generate one of the dashboard reports for a date range and write it as CSV.

Kinds: summary, permissions, late, breaks, lunch, attendance-log, permission-log

Without --from and --to the last 30 days are used.

Examples:
  face-attendance report late --from 2025-03-01 --to 2025-03-31
  face-attendance report summary --out march.csv
  face-attendance report permission-log --json`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("from", "", "First date (YYYY-MM-DD)")
	reportCmd.Flags().String("to", "", "Last date (YYYY-MM-DD)")
	reportCmd.Flags().String("out", "", "Write CSV to this file (default: <kind>_<from>_<to>.csv, - for stdout)")
	reportCmd.Flags().Bool("json", false, "Print the report as JSON instead of CSV")
}

func runReport(cmd *cobra.Command, args []string) error {
	kind, err := report.ParseKind(args[0])
	if err != nil {
		names := make([]string, 0, len(report.Kinds()))
		for _, k := range report.Kinds() {
			names = append(names, string(k))
		}
		return fmt.Errorf("%w (available: %s)", err, strings.Join(names, ", "))
	}
	rng, err := report.ParseRange(mustGetString(cmd, "from"), mustGetString(cmd, "to"), time.Now())
	if err != nil {
		return err
	}

	cfg := config.Load()
	ctx := cmd.Context()
	pool, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	rep, err := report.Build(ctx, sqlite.NewAttendanceRepository(pool), kind, rng)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(rep)
	}

	out := mustGetString(cmd, "out")
	if out == "-" {
		return rep.WriteCSV(os.Stdout)
	}
	if out == "" {
		out = rep.Filename()
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := rep.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Printf("Wrote %d rows (%s to %s) to %s\n", rep.Count, rng.From, rng.To, out)
	return nil
}
