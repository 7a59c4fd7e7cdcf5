package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/noesis/pkg/cycle"
	"github.com/dyluth/noesis/pkg/telemetry"
	"github.com/dyluth/noesis/pkg/workspace"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "noesis.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
instance: "lab"
engine:
  workspace_capacity: 20
  attention_threshold: 0.5
  seed: 42
telemetry:
  stability_cooldown: 50
redis:
  addr: "localhost:6379"
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "lab", config.Instance)
	assert.Equal(t, 20, *config.Engine.WorkspaceCapacity)
	assert.Equal(t, 0.5, *config.Engine.AttentionThreshold)
	assert.Equal(t, int64(42), *config.Engine.Seed)
	assert.Equal(t, 50, *config.Telemetry.StabilityCooldown)
	assert.Equal(t, "localhost:6379", config.Redis.Addr)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/noesis.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
engine:
  - this is invalid
    yaml syntax
`)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate_Version(t *testing.T) {
	config := &NoesisConfig{Version: "2.0"}
	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version")
}

func TestValidate_Defaults(t *testing.T) {
	config := &NoesisConfig{Version: "1.0"}
	require.NoError(t, config.Validate())

	assert.Equal(t, DefaultInstance, config.Instance)
	assert.Equal(t, workspace.DefaultCapacity, *config.Engine.WorkspaceCapacity)
	assert.Equal(t, workspace.DefaultAttentionThreshold, *config.Engine.AttentionThreshold)
	assert.Equal(t, cycle.DefaultMaxReflectionDepth, *config.Engine.MaxReflectionDepth)
	assert.Equal(t, cycle.DefaultTheoryInterval, *config.Engine.TheoryInterval)
	assert.Equal(t, DefaultRateHz, *config.Engine.RateHz)
	assert.Nil(t, config.Engine.Seed) // unset seed stays unset
	assert.Equal(t, telemetry.DefaultWindowSize, *config.Telemetry.WindowSize)
	assert.Nil(t, config.Redis)
}

func TestValidate_ExplicitZeroRejected(t *testing.T) {
	// Pointer fields distinguish "unset" (defaulted) from explicit bad values.
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "zero workspace capacity",
			yaml:    "version: \"1.0\"\nengine:\n  workspace_capacity: 0\n",
			wantErr: "workspace_capacity",
		},
		{
			name:    "attention threshold above one",
			yaml:    "version: \"1.0\"\nengine:\n  attention_threshold: 1.5\n",
			wantErr: "attention_threshold",
		},
		{
			name:    "zero reflection depth",
			yaml:    "version: \"1.0\"\nengine:\n  max_reflection_depth: 0\n",
			wantErr: "max_reflection_depth",
		},
		{
			name:    "zero theory interval",
			yaml:    "version: \"1.0\"\nengine:\n  theory_interval: 0\n",
			wantErr: "theory_interval",
		},
		{
			name:    "negative rate",
			yaml:    "version: \"1.0\"\nengine:\n  rate_hz: -1\n",
			wantErr: "rate_hz",
		},
		{
			name:    "zero stability stddev",
			yaml:    "version: \"1.0\"\ntelemetry:\n  stability_std_dev: 0\n",
			wantErr: "stability_std_dev",
		},
		{
			name:    "redis without addr",
			yaml:    "version: \"1.0\"\nredis: {}\n",
			wantErr: "addr is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.yaml)
			_, err := Load(configPath)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefault(t *testing.T) {
	config := Default()
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, DefaultInstance, config.Instance)
	assert.NotNil(t, config.Engine)
	assert.NotNil(t, config.Telemetry)
}

func TestEngineOptions(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
engine:
  workspace_capacity: 5
  attention_threshold: 0.6
  theory_interval: 25
telemetry:
  window_size: 200
`)
	config, err := Load(configPath)
	require.NoError(t, err)

	opts := config.EngineOptions()
	assert.Equal(t, 5, opts.WorkspaceCapacity)
	assert.Equal(t, 0.6, opts.AttentionThreshold)
	assert.Equal(t, 25, opts.TheoryInterval)
	assert.Equal(t, 200, opts.Telemetry.WindowSize)
}
