package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/sqlite"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// passwordEnv lets scripts set a password without a terminal
const passwordEnv = "FACE_ATTENDANCE_PASSWORD"

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage dashboard accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a dashboard account",
	Long: `Create a dashboard account. The password is read from the terminal, or from
the FACE_ATTENDANCE_PASSWORD environment variable when it is set.

Roles: admin, manager, user`,
	Args: cobra.ExactArgs(1),
	RunE: runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dashboard accounts",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Set a new password for an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserPasswd,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userPasswdCmd)

	userAddCmd.Flags().String("role", database.RoleUser, "Account role (admin, manager, user)")
	userListCmd.Flags().Bool("json", false, "Output as JSON")
}

func openUsers(ctx context.Context) (*sqlite.Pool, *sqlite.UserRepository, error) {
	pool, err := openDatabase(ctx, config.Load())
	if err != nil {
		return nil, nil, err
	}
	return pool, sqlite.NewUserRepository(pool), nil
}

// readPassword asks twice on a terminal, once from a pipe.
func readPassword() (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func readNewPassword() (string, error) {
	pw, err := readPassword()
	if err != nil {
		return "", err
	}
	if len(pw) < constants.MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", constants.MinPasswordLength)
	}
	return pw, nil
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := strings.TrimSpace(args[0])
	role := mustGetString(cmd, "role")
	switch role {
	case database.RoleAdmin, database.RoleManager, database.RoleUser:
	default:
		return fmt.Errorf("invalid role %q", role)
	}

	pw, err := readNewPassword()
	if err != nil {
		return err
	}
	hash, err := database.HashPassword(pw)
	if err != nil {
		return err
	}

	pool, users, err := openUsers(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	err = users.CreateUser(cmd.Context(), &database.User{Username: username, PasswordHash: hash, Role: role})
	if errors.Is(err, database.ErrDuplicate) {
		return fmt.Errorf("user %s already exists", username)
	}
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	fmt.Printf("Created %s user %s\n", role, username)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	pool, users, err := openUsers(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	list, err := users.ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	if mustGetBool(cmd, "json") {
		if list == nil {
			list = []database.User{}
		}
		return outputJSON(list)
	}
	fmt.Printf("%-20s %-10s %s\n", "USERNAME", "ROLE", "CREATED")
	for _, u := range list {
		fmt.Printf("%-20s %-10s %s\n", u.Username, u.Role, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	pw, err := readNewPassword()
	if err != nil {
		return err
	}
	hash, err := database.HashPassword(pw)
	if err != nil {
		return err
	}

	pool, users, err := openUsers(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	err = users.UpdatePassword(cmd.Context(), args[0], hash)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("user %s not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	fmt.Printf("Password of %s updated\n", args[0])
	return nil
}
