package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/analyzer"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/sqlite"
	"github.com/kozaktomas/face-attendance/internal/registration"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register an employee's face",
	Long: `Register an employee by collecting face samples from a camera or a directory
of photos. Accepted samples are appended to the embedding corpus, written to
IMAGES_DIR/<id>/ and the employee row is created or updated.

Registering an existing ID adds samples after the ones already stored; earlier
samples keep their match priority.

Examples:
  # Interactive registration on the entry camera
  face-attendance register --id E042 --name "Jana Nováková" --role Engineer --team Core

  # Import three photos without prompting
  face-attendance register --id E042 --name "Jana Nováková" --from-dir ./photos/jana --yes`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("id", "", "Employee ID (required)")
	registerCmd.Flags().String("name", "", "Full name (required)")
	registerCmd.Flags().String("role", "", "Role or job title")
	registerCmd.Flags().String("team", "", "Team")
	registerCmd.Flags().String("email", "", "Email address")
	registerCmd.Flags().String("phone", "", "Phone number")
	registerCmd.Flags().Int("camera", -1, "Camera device number (defaults to CAMERA_IN)")
	registerCmd.Flags().String("from-dir", "", "Read samples from image files instead of a camera")
	registerCmd.Flags().Int("samples", constants.RegistrationSamples, "Number of samples to collect")
	registerCmd.Flags().Bool("yes", false, "Accept every detected face without asking")
	registerCmd.Flags().Bool("skip-duplicates", false, "Skip frames that look the same as an accepted sample")

	registerCmd.MarkFlagRequired("id")
	registerCmd.MarkFlagRequired("name")
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	fromDir := mustGetString(cmd, "from-dir")
	samples := mustGetInt(cmd, "samples")
	if samples < 1 {
		return fmt.Errorf("--samples must be at least 1")
	}

	source, err := openFrameSource(cfg, fromDir, cameraIndex(cmd, cfg.Camera.InIndex))
	if err != nil {
		return err
	}
	defer source.Close()

	pool, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	registrar := &registration.Registrar{
		Analyzer:       analyzer.NewClient(cfg.Embedding.URL),
		Corpus:         database.NewCorpus(cfg.Corpus.Path),
		Employees:      sqlite.NewEmployeeRepository(pool),
		ImagesDir:      cfg.Corpus.ImagesDir,
		Samples:        samples,
		SkipDuplicates: mustGetBool(cmd, "skip-duplicates"),
	}

	var confirmer registration.Confirmer = registration.NewPromptConfirmer(os.Stdin, os.Stdout)
	if mustGetBool(cmd, "yes") || fromDir != "" {
		confirmer = registration.AutoConfirmer{}
	}
	if fromDir != "" {
		bar := progressbar.NewOptions(samples,
			progressbar.OptionSetDescription("Collecting samples"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
		registrar.Progress = func(accepted, _ int) { bar.Set(accepted) }
		defer bar.Finish()
	}

	info := registration.EmployeeInfo{
		EmpID: mustGetString(cmd, "id"),
		Name:  mustGetString(cmd, "name"),
		Role:  mustGetString(cmd, "role"),
		Team:  mustGetString(cmd, "team"),
		Email: mustGetString(cmd, "email"),
		Phone: mustGetString(cmd, "phone"),
	}

	result, err := registrar.Register(ctx, info, source, confirmer)
	if errors.Is(err, registration.ErrNoSamples) {
		return fmt.Errorf("no face sample was accepted, nothing was saved")
	}
	if err != nil {
		return fmt.Errorf("registering %s: %w", info.EmpID, err)
	}

	fmt.Printf("\nRegistered %s (%s)\n", result.Employee.Name, result.Employee.EmpID)
	fmt.Printf("  Samples:     %d\n", len(result.Records))
	fmt.Printf("  Skipped:     %d\n", result.Skipped)
	fmt.Printf("  Corpus size: %d records\n", result.CorpusSize)
	return nil
}
