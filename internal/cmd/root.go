// Package cmd implements the eae-status command line.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/eae-utils/internal/config"
	"github.com/3leaps/eae-utils/internal/observability"

	// Status store backends.
	_ "github.com/3leaps/eae-utils/pkg/store/mongostore"
	_ "github.com/3leaps/eae-utils/pkg/store/sqlitestore"
)

const binaryName = "eae-status"

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata injected by main.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	cfgFile        string
	verbose        bool
	logLevel       string
	logProfile     string
	storeURL       string
	serviceType    string
	servicePort    int
	computeTypes   []string
	serviceVersion string
	updateInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   binaryName,
	Short: "Publish EAE service status to the global status collection",
	Long: `eae-status samples host telemetry and upserts this node's status
document into opal_global_status, keyed by (ip, port).

Configuration is read from defaults, an optional YAML file (--config or
EAE_CONFIG), EAE_* environment variables and flags, in increasing order of
precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Path to YAML config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Console logging at debug level")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	pf.StringVar(&logProfile, "log-profile", "", "Log profile (structured|console)")
	pf.StringVar(&storeURL, "store-url", "", "Status store URL (mongodb://, mongodb+srv://, sqlite://path; bare sqlite:// uses the app data dir)")
	pf.StringVar(&serviceType, "type", "", "Service type tag")
	pf.IntVar(&servicePort, "port", 0, "Service port published in the status document")
	pf.StringSliceVar(&computeTypes, "compute-type", nil, "Supported compute types")
	pf.StringVar(&serviceVersion, "service-version", "", "Service version published in the status document")
	pf.DurationVar(&updateInterval, "interval", 0, "Periodic update interval")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// configOverrides maps the flags set on cmd to config keys.
func configOverrides(cmd *cobra.Command) map[string]any {
	flags := cmd.Flags()
	o := map[string]any{}
	if flags.Changed("log-level") {
		o["logging.level"] = logLevel
	}
	if flags.Changed("log-profile") {
		o["logging.profile"] = logProfile
	}
	if flags.Changed("store-url") {
		o["store.url"] = storeURL
	}
	if flags.Changed("type") {
		o["service.type"] = serviceType
	}
	if flags.Changed("port") {
		o["service.port"] = servicePort
	}
	if flags.Changed("compute-type") {
		o["service.compute_type"] = computeTypes
	}
	if flags.Changed("service-version") {
		o["service.version"] = serviceVersion
	}
	if flags.Changed("interval") {
		o["status.update_interval"] = updateInterval
	}
	return o
}

// setup loads configuration and installs the CLI logger.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFile(cmd.Context(), resolveConfigPath(), configOverrides(cmd))
	if err != nil {
		return nil, nil, exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	if verbose {
		observability.InitCLILogger(binaryName, true)
	} else {
		logger, err := observability.NewLogger(binaryName, cfg.Logging.Level, cfg.Logging.Profile)
		if err != nil {
			return nil, nil, exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
		}
		observability.SetCLILogger(logger)
	}
	return cfg, observability.CLILogger, nil
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return os.Getenv(config.ConfigFileEnv)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
