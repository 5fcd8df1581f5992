package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3leaps/eae-utils/internal/config"
	"github.com/3leaps/eae-utils/pkg/telemetry"
)

// executeCommand runs rootCmd with args and resets every flag afterwards.
func executeCommand(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	out := prepareCommand(t, args...)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// prepareCommand isolates the environment and sets rootCmd's args and output.
func prepareCommand(t *testing.T, args ...string) *bytes.Buffer {
	t.Helper()
	t.Setenv(config.ConfigFileEnv, "")
	t.Setenv("EAE_STORE_URL", "")
	t.Setenv("EAE_MONGO_URL", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
	})
	return &out
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// useStaticTelemetry makes commands report a fixed host.
func useStaticTelemetry(t *testing.T) {
	t.Helper()
	orig := newTelemetry
	newTelemetry = func(*zap.Logger) telemetry.Provider {
		return telemetry.Static{
			Hostname:    "algo-7",
			Address:     "10.20.0.7",
			Arch:        "amd64",
			OSType:      "linux",
			Platform:    "ubuntu",
			Release:     "22.04",
			TotalMemory: 8 << 30,
			FreeMemory:  2 << 30,
			CPUs: []telemetry.CPU{
				{Model: "Xeon", MHz: 2200},
				{Model: "Xeon", MHz: 2200},
			},
			LoadAvg: [3]float64{0.5, 0.25, 0.1},
		}
	}
	t.Cleanup(func() { newTelemetry = orig })
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	return exitErr.Code
}

func TestSetVersionInfo(t *testing.T) {
	orig := versionInfo
	defer func() { versionInfo = orig }()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{name: "set all values", version: "1.0.0", commit: "abc123", buildDate: "2024-01-15"},
		{name: "set dev version", version: "dev", commit: "HEAD", buildDate: "unknown"},
		{name: "set empty values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	orig := versionInfo
	defer func() { versionInfo = orig }()
	SetVersionInfo("1.4.2", "deadbeef", "2024-06-01")

	out, err := executeCommand(t, context.Background(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "eae-status 1.4.2")
	assert.Contains(t, out, "Commit: deadbeef")
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")
	err := exitError(foundry.ExitInvalidArgument, "Invalid thing", cause)

	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Invalid thing: boom")

	assert.Contains(t, exitError(foundry.ExitSignalInt, "Stopped", nil).Error(), "Stopped (exit code")
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := executeCommand(t, context.Background(), "show", "--log-profile", "xml")
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))
}
