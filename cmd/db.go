package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/sqlite"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the attendance database",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database, apply migrations and seed the admin account",
	Long: `Create the SQLite database at DATABASE_PATH, apply pending migrations and,
when no dashboard account exists yet, create "admin" with DASHBOARD_ADMIN_PASSWORD.

Both camera processes and the dashboard run migrations on start, so this is only
needed to prepare a database ahead of time.`,
	Args: cobra.NoArgs,
	RunE: runDBInit,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List applied migrations",
	Args:  cobra.NoArgs,
	RunE:  runDBStatus,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbStatusCmd)
}

// openDatabase opens the shared SQLite database and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config) (*sqlite.Pool, error) {
	pool, err := sqlite.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Database.Path, err)
	}
	return pool, nil
}

func runDBInit(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	pool, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	created, err := sqlite.NewUserRepository(pool).EnsureAdmin(ctx, cfg.Dashboard.AdminPassword)
	if err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}

	fmt.Printf("Database ready at %s\n", cfg.Database.Path)
	if created {
		fmt.Println("Created dashboard account \"admin\" (password from DASHBOARD_ADMIN_PASSWORD)")
	}
	return nil
}

func runDBStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	pool, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		return err
	}
	pending, err := pool.PendingMigrations(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	for _, v := range applied {
		fmt.Printf("  applied  %s\n", v)
	}
	for _, v := range pending {
		fmt.Printf("  pending  %s\n", v)
	}
	return nil
}
