package cmd

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/eae-utils/pkg/defines"
	"github.com/3leaps/eae-utils/pkg/model"
)

func TestShowJSON(t *testing.T) {
	useStaticTelemetry(t)

	out, err := executeCommand(t, context.Background(), "show",
		"--type", defines.ServiceTypeAlgoService,
		"--port", "9001",
		"--compute-type", "python,r",
		"--service-version", "2.1.0")
	require.NoError(t, err)

	var got model.Status
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, defines.ServiceTypeAlgoService, got.Type)
	assert.Equal(t, 9001, got.Port)
	assert.Equal(t, []string{"python", "r"}, got.ComputeType)
	assert.Equal(t, defines.ServiceStatusIdle, got.Status)
	require.NotNil(t, got.Version)
	assert.Equal(t, "2.1.0", *got.Version)
	assert.Equal(t, "10.20.0.7", got.IP)
	assert.Equal(t, "algo-7", got.Hostname)
	assert.Equal(t, "8.0 GiB", got.Memory.Total)
	assert.Equal(t, "2.0 GiB", got.Memory.Free)
	assert.Len(t, got.CPU.Cores, 2)
	assert.NotNil(t, got.LastUpdate)
}

func TestShowDefaults(t *testing.T) {
	useStaticTelemetry(t)

	out, err := executeCommand(t, context.Background(), "show")
	require.NoError(t, err)

	var got model.Status
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, defines.DefaultServiceType, got.Type)
	assert.Equal(t, 8080, got.Port)
	assert.Empty(t, got.ComputeType)
	assert.Nil(t, got.Version)
}

func TestShowYAML(t *testing.T) {
	useStaticTelemetry(t)

	out, err := executeCommand(t, context.Background(), "show", "--format", "yaml", "--port", "7000")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 7000, doc["port"])
	assert.Equal(t, "10.20.0.7", doc["ip"])
	assert.Contains(t, doc, "computeType")
	assert.Contains(t, doc, "statusLock")
}

func TestShowInvalidFormat(t *testing.T) {
	_, err := executeCommand(t, context.Background(), "show", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, exitCode(t, err))
}
