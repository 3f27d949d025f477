package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	identityapp "github.com/agualoti/backend/internal/application/identity"
	"github.com/agualoti/backend/internal/infrastructure/auth"
	"github.com/agualoti/backend/internal/infrastructure/config"
	"github.com/agualoti/backend/internal/infrastructure/logger"
	"github.com/agualoti/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// passwordEnv lets scripts provide the password without exposing it in the process list
const passwordEnv = "AGUA_ADMIN_PASSWORD"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administrative tasks for the billing backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	user := &cobra.Command{Use: "user", Short: "Manage operator accounts"}
	user.AddCommand(newUserCreateCmd())

	token := &cobra.Command{Use: "token", Short: "Issue access tokens"}
	token.AddCommand(newTokenIssueCmd())

	root.AddCommand(user, token)
	return root
}

func newUserCreateCmd() *cobra.Command {
	var username, password, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an operator or admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if password == "" {
				return fmt.Errorf("--password or %s is required", passwordEnv)
			}
			return withAuthService(func(svc *identityapp.AuthService) error {
				info, err := svc.CreateUser(cmd.Context(), identityapp.CreateUserInput{
					Username: username,
					Password: password,
					Role:     role,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, info)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 8 characters")
	cmd.Flags().StringVar(&role, "role", "operator", "operator or admin")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var username string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a token for an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAuthService(func(svc *identityapp.AuthService) error {
				res, err := svc.IssueToken(cmd.Context(), identityapp.IssueTokenInput{Username: username, TTL: ttl})
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account to issue the token for")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to jwt.access_token_expiration")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func withAuthService(fn func(*identityapp.AuthService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if db.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			return err
		}
	}

	log.Debug("Connected to database", zap.String("driver", db.Driver))
	svc := identityapp.NewAuthService(persistence.NewGormUserRepository(db.DB), auth.NewJWTService(cfg.JWT), log)
	return fn(svc)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
