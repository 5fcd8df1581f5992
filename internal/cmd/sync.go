package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// syncTimeout bounds the one-shot upsert.
const syncTimeout = 30 * time.Second

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh and publish the status document once",
	Long: `Connect to the status store, refresh host telemetry, upsert the status
document once and print the stored result.

Examples:
  eae-status sync --store-url mongodb://db:27017/opal --type opal_algoservice --port 8080
  eae-status sync --store-url sqlite:///tmp/status.db --format yaml`,
	RunE: runSync,
}

var syncFormat string

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVarP(&syncFormat, "format", "f", "json", "Output format (json|yaml)")
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncFormat != "json" && syncFormat != "yaml" {
		return exitError(foundry.ExitInvalidArgument, "Invalid --format value",
			fmt.Errorf("format must be one of: json, yaml"))
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.URL == "" {
		return exitError(foundry.ExitInvalidArgument, "No status store configured",
			fmt.Errorf("set --store-url or EAE_STORE_URL"))
	}

	h, err := connectHelper(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer h.StopPeriodicUpdate()

	h.Refresh()

	ctx, cancel := context.WithTimeout(cmd.Context(), syncTimeout)
	defer cancel()
	if err := h.Sync(ctx); err != nil {
		logger.Error("Status sync failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Status sync failed", err)
	}

	if err := writeStatus(cmd.OutOrStdout(), h.Snapshot(), syncFormat); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write status", err)
	}
	return nil
}
