package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvit-hq/guardrail/internal/config"
	redisinfra "github.com/samvit-hq/guardrail/internal/infrastructure/redis"
)

// limitsCmd groups partition maintenance commands. Keys are passed in full,
// e.g. "rl:_api_v1_payslips:user:42".
var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Inspect and reset rate limit partitions",
}

var limitsInspectCmd = &cobra.Command{
	Use:   "inspect <key>",
	Short: "Show the stored state of a partition key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(func(ctx context.Context, _ *config.Config, conn *redisinfra.Connection) error {
			client := conn.Client()
			key := args[0]

			keyType, err := client.Type(ctx, key).Result()
			if err != nil {
				return fmt.Errorf("inspect %s: %w", key, err)
			}

			switch keyType {
			case "zset":
				hits, err := client.ZCard(ctx, key).Result()
				if err != nil {
					return fmt.Errorf("inspect %s: %w", key, err)
				}
				ttl, _ := client.TTL(ctx, key).Result()
				fmt.Printf("strategy: sliding_window\nhits in window: %d\nexpires in: %s\n", hits, ttl)

			case "hash":
				values, err := client.HMGet(ctx, key, "tokens", "last_refill").Result()
				if err != nil {
					return fmt.Errorf("inspect %s: %w", key, err)
				}
				ttl, _ := client.TTL(ctx, key).Result()
				tokens, lastRefill := "?", "?"
				if s, ok := values[0].(string); ok {
					tokens = s
				}
				if s, ok := values[1].(string); ok {
					lastRefill = s
				}
				fmt.Printf("strategy: token_bucket\ntokens: %s\nlast refill (unix): %s\nexpires in: %s\n",
					tokens, lastRefill, ttl)

			case "none":
				fmt.Println("no state for key (never used or expired)")

			default:
				fmt.Printf("key holds unexpected type %q\n", keyType)
			}
			return nil
		})
	},
}

var limitsResetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Delete a partition's stored state, refilling its budget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(func(ctx context.Context, _ *config.Config, conn *redisinfra.Connection) error {
			deleted, err := conn.Client().Del(ctx, args[0]).Result()
			if err != nil {
				return fmt.Errorf("reset %s: %w", args[0], err)
			}
			if deleted == 0 {
				fmt.Println("no state for key (nothing to reset)")
			} else {
				fmt.Println("partition reset")
			}
			return nil
		})
	},
}

func init() {
	limitsCmd.AddCommand(limitsInspectCmd, limitsResetCmd)
	rootCmd.AddCommand(limitsCmd)
}
