package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/eae-utils/internal/config"
	"github.com/3leaps/eae-utils/pkg/model"
	"github.com/3leaps/eae-utils/pkg/status"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print this node's status document without publishing it",
	Long: `Refresh host telemetry once and print the status document that run
would publish. Nothing is written to the status store.

Examples:
  eae-status show
  eae-status show --type opal_db --port 8082 --format yaml`,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "json", "Output format (json|yaml)")
}

func runShow(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(strings.TrimSpace(showFormat))
	if format != "json" && format != "yaml" {
		return exitError(foundry.ExitInvalidArgument, "Invalid --format value",
			fmt.Errorf("format must be one of: json, yaml"))
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	h := status.New(helperConfig(cfg, logger))
	h.Refresh()

	if err := writeStatus(cmd.OutOrStdout(), h.Snapshot(), format); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write status", err)
	}
	return nil
}

func helperConfig(cfg *config.Config, logger *zap.Logger) status.Config {
	return status.Config{
		Type:        cfg.Service.Type,
		Port:        cfg.Service.Port,
		ComputeType: cfg.Service.ComputeType,
		Version:     optionalString(cfg.Service.Version),
		Logger:      logger,
		Telemetry:   newTelemetry(logger),
	}
}

func writeStatus(w io.Writer, s model.Status, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
}
