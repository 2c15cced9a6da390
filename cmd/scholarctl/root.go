package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/scholar-search-service/internal/app"
	"github.com/helixir/scholar-search-service/internal/config"
	"github.com/helixir/scholar-search-service/internal/observability"
)

// newRootCmd builds the scholarctl command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scholarctl",
		Short: "Federated academic search from the command line",
		Long: `scholarctl runs the same unified search as the HTTP service. It fans a query
out to OpenAlex, Semantic Scholar, arXiv, Crossref and ORCID, merges and
deduplicates the results, and prints the response envelope as JSON.

Configuration is read from .env, config.yaml and SCHOLAR_* environment
variables, exactly as the server reads it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "warn", "log level written to stderr")

	root.AddCommand(newSearchCmd())
	root.AddCommand(newProvidersCmd())
	return root
}

// loadApp reads configuration and assembles the service for one command.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, _ := cmd.Flags().GetString("log-level")
	logger := newCLILogger(cmd.ErrOrStderr(), level)

	return app.New(cfg, logger, app.Options{}), nil
}

func newCLILogger(w io.Writer, level string) zerolog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:  level,
		Format: "console",
		Writer: w,
	})
}
