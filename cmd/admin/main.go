// Command admin is the operator CLI for subscriptions and Asaas webhooks.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kevin07696/lawdesk/internal/adapters/database"
	"github.com/kevin07696/lawdesk/internal/adapters/postgres"
	"github.com/kevin07696/lawdesk/internal/config"
	"github.com/kevin07696/lawdesk/internal/services/credential"
	"github.com/kevin07696/lawdesk/internal/services/lifecycle"
)

// app holds what the database-backed commands share
type app struct {
	db        *database.PostgreSQLAdapter
	executor  *postgres.DBExecutor
	lifecycle *lifecycle.Service
	secrets   *credential.SecretService
	logger    *zap.Logger
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	_ = a.logger.Sync()
}

// newApp connects to the database and builds the services
func newApp(ctx context.Context, verbose bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}

	dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.ConnectionString(cfg.Database.Password))
	dbCfg.MaxConns = 2
	dbCfg.MinConns = 0
	db, err := database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
	if err != nil {
		return nil, err
	}

	cols, err := postgres.ProbeSchema(ctx, db.Pool())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("probe schema: %w", err)
	}

	executor := postgres.NewDBExecutor(db.Pool())
	repos := postgres.NewRepositories(executor, cols, dbCfg.ComplexQueryTimeout)

	return &app{
		db:        db,
		executor:  executor,
		lifecycle: lifecycle.NewService(executor, repos.Companies, repos.Plans, logger),
		secrets: credential.NewSecretService(executor, repos.Credentials, credential.URLConfig{
			PublicWebhookURL: cfg.Asaas.WebhookPublicURL,
			PublicBaseURL:    cfg.Server.PublicBaseURL,
		}, logger),
		logger: logger,
	}, nil
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operate lawdesk billing",
		Long:          `Inspect and repair company subscriptions and manage Asaas webhook credentials.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log service activity to stderr")

	withApp := func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), verbose)
			if err != nil {
				return err
			}
			defer a.close()
			return run(cmd, a, args)
		}
	}

	root.AddCommand(newSubscriptionCmd(withApp))
	root.AddCommand(newWebhookCmd(withApp))
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
