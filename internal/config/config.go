package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/noesis/pkg/cycle"
	"github.com/dyluth/noesis/pkg/snapshot"
	"github.com/dyluth/noesis/pkg/telemetry"
	"github.com/dyluth/noesis/pkg/workspace"
)

// NoesisConfig represents the top-level noesis.yml configuration
type NoesisConfig struct {
	Version   string           `yaml:"version"`
	Instance  string           `yaml:"instance"`
	Engine    *EngineConfig    `yaml:"engine,omitempty"`
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
	Redis     *RedisConfig     `yaml:"redis,omitempty"`
}

// EngineConfig specifies cognitive cycle behavior.
// Optional fields are pointers so "unset" and "explicit zero" stay distinct;
// Validate fills unset fields with defaults.
type EngineConfig struct {
	WorkspaceCapacity    *int     `yaml:"workspace_capacity,omitempty"`     // Broadcast buffer size (default 10)
	AttentionThreshold   *float64 `yaml:"attention_threshold,omitempty"`    // Minimum attention for broadcast (default 0.7)
	SnapshotMaxScalarLen *int     `yaml:"snapshot_max_scalar_len,omitempty"` // Scalar truncation length (default 100)
	MaxReflectionDepth   *int     `yaml:"max_reflection_depth,omitempty"`   // Recursive reflection bound (default 3)
	TheoryInterval       *int     `yaml:"theory_interval,omitempty"`        // Theory generation cadence in cycles (default 100)
	Seed                 *int64   `yaml:"seed,omitempty"`                   // RNG seed; unset means time-based
	RateHz               *float64 `yaml:"rate_hz,omitempty"`                // Cycle frequency for `noesis run` (default 10)
}

// TelemetryConfig specifies the introspection monitor's tunables.
type TelemetryConfig struct {
	WindowSize        *int     `yaml:"window_size,omitempty"`        // Sliding window (default 100)
	StabilityStdDev   *float64 `yaml:"stability_std_dev,omitempty"`  // Stability threshold (default 0.01)
	StabilityCooldown *int     `yaml:"stability_cooldown,omitempty"` // Cycles between stability reports (default 100)
}

// RedisConfig specifies the optional telemetry feed connection.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// Defaults for optional engine settings.
const (
	DefaultInstance = "default"
	DefaultRateHz   = 10.0
)

// Validate performs strict validation on the configuration and fills unset
// optional fields with defaults.
func (c *NoesisConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Instance == "" {
		c.Instance = DefaultInstance
	}

	if c.Engine == nil {
		c.Engine = &EngineConfig{}
	}
	if err := c.Engine.validate(); err != nil {
		return err
	}

	if c.Telemetry == nil {
		c.Telemetry = &TelemetryConfig{}
	}
	if err := c.Telemetry.validate(); err != nil {
		return err
	}

	if c.Redis != nil && c.Redis.Addr == "" {
		return fmt.Errorf("redis section present but addr is empty")
	}

	return nil
}

func (e *EngineConfig) validate() error {
	if e.WorkspaceCapacity == nil {
		v := workspace.DefaultCapacity
		e.WorkspaceCapacity = &v
	}
	if *e.WorkspaceCapacity < 1 {
		return fmt.Errorf("engine.workspace_capacity must be >= 1, got %d", *e.WorkspaceCapacity)
	}

	if e.AttentionThreshold == nil {
		v := workspace.DefaultAttentionThreshold
		e.AttentionThreshold = &v
	}
	if *e.AttentionThreshold <= 0 || *e.AttentionThreshold > 1 {
		return fmt.Errorf("engine.attention_threshold must be in (0, 1], got %f", *e.AttentionThreshold)
	}

	if e.SnapshotMaxScalarLen == nil {
		v := snapshot.DefaultMaxScalarLen
		e.SnapshotMaxScalarLen = &v
	}
	if *e.SnapshotMaxScalarLen < 1 {
		return fmt.Errorf("engine.snapshot_max_scalar_len must be >= 1, got %d", *e.SnapshotMaxScalarLen)
	}

	if e.MaxReflectionDepth == nil {
		v := cycle.DefaultMaxReflectionDepth
		e.MaxReflectionDepth = &v
	}
	if *e.MaxReflectionDepth < 1 {
		return fmt.Errorf("engine.max_reflection_depth must be >= 1, got %d", *e.MaxReflectionDepth)
	}

	if e.TheoryInterval == nil {
		v := cycle.DefaultTheoryInterval
		e.TheoryInterval = &v
	}
	if *e.TheoryInterval < 1 {
		return fmt.Errorf("engine.theory_interval must be >= 1, got %d", *e.TheoryInterval)
	}

	if e.RateHz == nil {
		v := DefaultRateHz
		e.RateHz = &v
	}
	if *e.RateHz <= 0 {
		return fmt.Errorf("engine.rate_hz must be positive, got %f", *e.RateHz)
	}

	return nil
}

func (t *TelemetryConfig) validate() error {
	if t.WindowSize == nil {
		v := telemetry.DefaultWindowSize
		t.WindowSize = &v
	}
	if *t.WindowSize < 1 {
		return fmt.Errorf("telemetry.window_size must be >= 1, got %d", *t.WindowSize)
	}

	if t.StabilityStdDev == nil {
		v := telemetry.DefaultStabilityStdDev
		t.StabilityStdDev = &v
	}
	if *t.StabilityStdDev <= 0 {
		return fmt.Errorf("telemetry.stability_std_dev must be positive, got %f", *t.StabilityStdDev)
	}

	if t.StabilityCooldown == nil {
		v := telemetry.DefaultStabilityCooldown
		t.StabilityCooldown = &v
	}
	if *t.StabilityCooldown < 0 {
		return fmt.Errorf("telemetry.stability_cooldown must be >= 0, got %d", *t.StabilityCooldown)
	}

	return nil
}

// EngineOptions converts the validated config into orchestrator options.
// Call only after Validate has filled the defaults.
func (c *NoesisConfig) EngineOptions() cycle.Options {
	return cycle.Options{
		WorkspaceCapacity:  *c.Engine.WorkspaceCapacity,
		AttentionThreshold: *c.Engine.AttentionThreshold,
		MaxScalarLen:       *c.Engine.SnapshotMaxScalarLen,
		MaxReflectionDepth: *c.Engine.MaxReflectionDepth,
		TheoryInterval:     *c.Engine.TheoryInterval,
		Telemetry: telemetry.Options{
			WindowSize:        *c.Telemetry.WindowSize,
			StabilityStdDev:   *c.Telemetry.StabilityStdDev,
			StabilityCooldown: *c.Telemetry.StabilityCooldown,
		},
	}
}

// Default returns a validated configuration with every field defaulted.
// Used when no noesis.yml is present.
func Default() *NoesisConfig {
	config := &NoesisConfig{Version: "1.0"}
	// Cannot fail: every field is defaulted.
	if err := config.Validate(); err != nil {
		panic(err)
	}
	return config
}

// Load reads and validates noesis.yml from the specified path
func Load(path string) (*NoesisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config NoesisConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
