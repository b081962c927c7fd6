package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect and maintain the embedding corpus",
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered employees in match priority order",
	Args:  cobra.NoArgs,
	RunE:  runCorpusList,
}

var corpusAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Find samples that recognition may attribute to the wrong employee",
	Long: `Recognition takes the first corpus record within the threshold, not the
nearest one. This command builds a nearest-neighbour index over the corpus and
reports records that

  - an earlier record of another employee already matches (shadowed), or
  - sit within the threshold of another employee's record (crowded).

Nothing is changed; use "corpus remove" and re-register to fix a finding.`,
	Args: cobra.NoArgs,
	RunE: runCorpusAudit,
}

var corpusExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the corpus as JSON",
	Args:  cobra.NoArgs,
	RunE:  runCorpusExport,
}

var corpusRemoveCmd = &cobra.Command{
	Use:   "remove <emp_id>",
	Short: "Remove every sample of an employee",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusRemove,
}

func init() {
	rootCmd.AddCommand(corpusCmd)
	corpusCmd.AddCommand(corpusListCmd)
	corpusCmd.AddCommand(corpusAuditCmd)
	corpusCmd.AddCommand(corpusExportCmd)
	corpusCmd.AddCommand(corpusRemoveCmd)

	corpusListCmd.Flags().Bool("json", false, "Output as JSON")
	corpusAuditCmd.Flags().Int("k", constants.DefaultAuditNeighbors, "Nearest neighbours inspected per record")
	corpusAuditCmd.Flags().Bool("json", false, "Output as JSON")
	corpusExportCmd.Flags().String("out", "", "Write to this file instead of stdout")
}

func loadCorpus() (*config.Config, *database.Corpus, []database.EmbeddingRecord, error) {
	cfg := config.Load()
	corpus := database.NewCorpus(cfg.Corpus.Path)
	records, err := corpus.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading corpus: %w", err)
	}
	return cfg, corpus, records, nil
}

func runCorpusList(cmd *cobra.Command, args []string) error {
	_, corpus, records, err := loadCorpus()
	if err != nil {
		return err
	}
	summary := database.Summarize(records)

	if mustGetBool(cmd, "json") {
		return outputJSON(summary)
	}

	fmt.Printf("Corpus %s: %d records, %d employees\n\n", corpus.Path(), len(records), len(summary))
	fmt.Printf("%-6s %-12s %-30s %-20s %s\n", "FIRST", "EMP_ID", "NAME", "TEAM", "SAMPLES")
	for _, s := range summary {
		fmt.Printf("%-6d %-12s %-30s %-20s %d\n", s.FirstIndex, s.EmpID, s.Name, s.Team, s.Samples)
	}
	return nil
}

func runCorpusAudit(cmd *cobra.Command, args []string) error {
	cfg, _, records, err := loadCorpus()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("Corpus is empty, nothing to audit")
		return nil
	}
	matcher, err := facematch.NewMatcher(cfg.Matching.Metric, cfg.Matching.Threshold)
	if err != nil {
		return err
	}
	jsonOutput := mustGetBool(cmd, "json")

	var progress func()
	if !jsonOutput {
		bar := progressbar.NewOptions(len(records),
			progressbar.OptionSetDescription("Auditing corpus"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("records"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
		progress = func() { bar.Add(1) }
	}

	findings, err := matcher.Audit(records, mustGetInt(cmd, "k"), progress)
	if err != nil {
		return err
	}

	if jsonOutput {
		if findings == nil {
			findings = []facematch.Finding{}
		}
		return outputJSON(findings)
	}

	fmt.Printf("\n\n%d records, metric %s, threshold %.2f\n", len(records), matcher.Metric, matcher.Threshold)
	if len(findings) == 0 {
		fmt.Println("No conflicts found")
		return nil
	}
	for _, f := range findings {
		if f.Shadowed {
			fmt.Printf("  #%d %s (%s) is matched as %s by record #%d (distance %.3f)\n",
				f.Index, f.EmpID, f.Name, f.MatchedEmpID, f.MatchedIndex, f.MatchedDistance)
		} else {
			fmt.Printf("  #%d %s (%s) is within the threshold of %s record #%d (distance %.3f)\n",
				f.Index, f.EmpID, f.Name, f.NearestOtherEmpID, f.NearestOtherIndex, f.NearestOtherDistance)
		}
	}
	fmt.Printf("%d findings\n", len(findings))
	return nil
}

func runCorpusExport(cmd *cobra.Command, args []string) error {
	_, _, records, err := loadCorpus()
	if err != nil {
		return err
	}
	if records == nil {
		records = []database.EmbeddingRecord{}
	}

	out := mustGetString(cmd, "out")
	if out == "" {
		return outputJSON(records)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Printf("Exported %d records to %s\n", len(records), out)
	return nil
}

func runCorpusRemove(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	corpus := database.NewCorpus(cfg.Corpus.Path)

	removed, err := corpus.Remove(args[0])
	if err != nil {
		return fmt.Errorf("removing samples: %w", err)
	}
	if removed == 0 {
		fmt.Printf("No samples of %s in %s\n", args[0], corpus.Path())
		return nil
	}
	fmt.Printf("Removed %d samples of %s\n", removed, args[0])
	return nil
}
