package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/eae-utils/internal/config"
	"github.com/3leaps/eae-utils/internal/server"
	"github.com/3leaps/eae-utils/internal/server/handlers"
	"github.com/3leaps/eae-utils/pkg/status"
	"github.com/3leaps/eae-utils/pkg/telemetry"
)

var (
	runServe    bool
	runHTTPHost string
	runHTTPPort int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Publish status periodically until interrupted",
	Long: `Connect to the status store, then refresh host telemetry and upsert the
status document every update interval until SIGINT or SIGTERM.

Sync failures are logged and retried on the next tick. When --serve is set,
the current document is also served over HTTP at /status with /health,
/version and /metrics.

Examples:
  eae-status run --type opal_cache --port 8081 --store-url mongodb://db:27017/opal
  eae-status run --store-url sqlite:///var/lib/eae/status.db --interval 10s --serve`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runServe, "serve", false, "Serve status, health and metrics over HTTP")
	runCmd.Flags().StringVar(&runHTTPHost, "http-host", "", "HTTP listen host")
	runCmd.Flags().IntVar(&runHTTPPort, "http-port", 0, "HTTP listen port")
}

// newTelemetry is replaced in tests.
var newTelemetry = func(logger *zap.Logger) telemetry.Provider {
	return telemetry.NewHost(logger)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	applyServerFlags(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	var metrics *status.Metrics
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = status.NewMetrics(reg)
	}

	h, err := connectHelper(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer h.StopPeriodicUpdate()

	h.Refresh()
	if cfg.Store.URL != "" {
		if err := h.Sync(ctx); err != nil {
			logger.Warn("Initial status sync failed", zap.Error(err))
		}
	} else {
		logger.Warn("No status store configured; status is refreshed but not published")
	}
	h.StartPeriodicUpdate(cfg.Status.UpdateInterval)

	logger.Info("Publishing status",
		zap.String("type", cfg.Service.Type),
		zap.Int("port", cfg.Service.Port),
		zap.Duration("interval", cfg.Status.UpdateInterval))

	if cfg.Server.Enabled {
		srv := newStatusServer(cfg, h, reg, logger)
		if err := srv.Start(ctx); err != nil {
			return exitError(foundry.ExitExternalServiceUnavailable, "Status server failed", err)
		}
	} else {
		<-ctx.Done()
	}

	logger.Info("Stopping status updates")
	return nil
}

func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("serve") {
		cfg.Server.Enabled = runServe
	}
	if flags.Changed("http-host") {
		cfg.Server.Host = runHTTPHost
	}
	if flags.Changed("http-port") {
		cfg.Server.Port = runHTTPPort
	}
}

// connectHelper builds the status helper and waits for its store connection.
func connectHelper(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *status.Metrics) (*status.Helper, error) {
	opts := []status.Option{
		status.WithComputeType(cfg.Service.ComputeType...),
		status.WithLogger(logger),
		status.WithTelemetry(newTelemetry(logger)),
		status.WithMetrics(metrics),
		status.WithFatalHandler(func(err error) {
			logger.Error("Failed to connect to status store", zap.Error(err))
		}),
	}
	if cfg.Service.Version != "" {
		opts = append(opts, status.WithVersion(cfg.Service.Version))
	}
	h := status.NewHelper(ctx, cfg.Service.Type, cfg.Service.Port, cfg.Store.URL, opts...)

	select {
	case <-h.Ready():
	case <-ctx.Done():
		return nil, exitError(foundry.ExitSignalInt, "Interrupted while connecting to status store", ctx.Err())
	}
	if err := h.InitErr(); err != nil {
		return nil, exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to status store", err)
	}
	return h, nil
}

func newStatusServer(cfg *config.Config, h *status.Helper, reg *prometheus.Registry, logger *zap.Logger) *server.Server {
	health := handlers.NewHealthManager(versionInfo.Version)
	health.RegisterChecker("updater", handlers.CheckerFunc(func(context.Context) error {
		if !h.Running() {
			return errors.New("periodic update stopped")
		}
		return nil
	}))
	if cfg.Store.URL != "" {
		health.RegisterChecker("store", handlers.CheckerFunc(func(context.Context) error {
			if !h.Connected() {
				return errors.New("status store not connected")
			}
			return nil
		}))
	}

	opts := []server.Option{
		server.WithStatusSource(h),
		server.WithHealthManager(health),
		server.WithLogger(logger),
		server.WithVersion(handlers.VersionInfo{
			Version:   versionInfo.Version,
			Commit:    versionInfo.Commit,
			BuildDate: versionInfo.BuildDate,
		}),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithGatherer(reg))
	}
	return server.New(cfg.Server.Host, cfg.Server.Port, opts...)
}
