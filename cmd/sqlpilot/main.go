package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pario-ai/sqlpilot/pkg/backend"
	"github.com/pario-ai/sqlpilot/pkg/budget"
	"github.com/pario-ai/sqlpilot/pkg/config"
	"github.com/pario-ai/sqlpilot/pkg/optimizer"
	"github.com/pario-ai/sqlpilot/pkg/prompt"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "sqlpilot",
		Short:         "sqlpilot turns natural-language requests into safe SQL",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "sqlpilot.yaml", "path to config file")

	root.AddCommand(
		newGenerateCmd(&configPath),
		newExplainCmd(&configPath),
		newRunCmd(&configPath),
		newSchemaCmd(&configPath),
		newServeCmd(&configPath),
		newMCPCmd(&configPath),
		newStatsCmd(&configPath),
		newCostCmd(&configPath),
		newBudgetCmd(&configPath),
		newHistoryCmd(&configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes user errors (2) from failures talking to a
// backend or database (1).
func exitCode(err error) int {
	switch {
	case errors.Is(err, prompt.ErrUnsupportedDialect),
		errors.Is(err, optimizer.ErrUnsafeStatement),
		errors.Is(err, config.ErrInvalid),
		errors.Is(err, backend.ErrMissingCredential),
		errors.Is(err, budget.ErrBudgetExceeded):
		return 2
	default:
		return 1
	}
}
