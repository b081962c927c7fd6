package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/sqlite"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API",
	Long: `Start the dashboard API server.
The dashboard reads the same SQLite database the camera processes write to and
serves the ledger, reports, employee directory, corpus summary and Prometheus
metrics under /api/v1 and /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	sessionSecret := mustGetString(cmd, "session-secret")

	if sessionSecret == "" {
		sessionSecret = os.Getenv("WEB_SESSION_SECRET")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, sessionSecret
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	schedule, err := attendance.NewSchedule(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	matcher, err := facematch.NewMatcher(cfg.Matching.Metric, cfg.Matching.Threshold)
	if err != nil {
		return err
	}

	fmt.Printf("Opening SQLite database %s...\n", cfg.Database.Path)
	pool, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := sqlite.NewUserRepository(pool)
	created, err := users.EnsureAdmin(ctx, cfg.Dashboard.AdminPassword)
	if err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}
	if created {
		fmt.Println("Created dashboard account \"admin\" (password from DASHBOARD_ADMIN_PASSWORD)")
	}

	port, host, sessionSecret := resolveServeHostPort(cmd)
	cfg.Dashboard.SessionSecret = sessionSecret
	if sessionSecret == "" {
		fmt.Println("Warning: WEB_SESSION_SECRET is not set, using the development secret")
	}

	server, err := web.NewServer(cfg, port, host, web.Deps{
		Employees:  sqlite.NewEmployeeRepository(pool),
		Attendance: sqlite.NewAttendanceRepository(pool),
		Users:      users,
		Sessions:   sqlite.NewSessionRepository(pool),
		Corpus:     database.NewCorpus(cfg.Corpus.Path),
		Matcher:    matcher,
		Schedule:   schedule,
		Metrics:    metrics.NewRecorder(),
	})
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance dashboard on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
