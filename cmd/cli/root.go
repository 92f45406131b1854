// Package cli implements the guardrail-admin command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvit-hq/guardrail/internal/config"
	redisinfra "github.com/samvit-hq/guardrail/internal/infrastructure/redis"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

// rootCmd represents the base command when the guardrail-admin binary is
// called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "guardrail-admin",
	Short: "Operational CLI for the guardrail admission service",
	Long: `guardrail-admin performs administrative tasks against the shared store:
revoking credentials and identities, checking revocation state, and
inspecting or resetting rate limit partitions.

Configuration is resolved exactly like the server: config.yaml from
/etc/guardrail, ./configs or the working directory, overridable through
GUARDRAIL_* environment variables.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// opTimeout bounds every store operation issued by the CLI.
const opTimeout = 10 * time.Second

// withConnection loads the configuration, connects to the store and hands
// both to fn. The connection is closed when fn returns.
func withConnection(fn func(ctx context.Context, cfg *config.Config, conn *redisinfra.Connection) error) error {
	log := logger.NewNoopLogger()

	cfg, err := config.LoadConfig(log)
	if err != nil {
		return err
	}

	conn := redisinfra.NewConnection(&cfg.Redis, log)
	if err := conn.Connect(); err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return fn(ctx, cfg, conn)
}
