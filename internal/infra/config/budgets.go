package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CrateBudget holds the budget and default verification level for a single
// crate, as loaded from budgets.yaml. Bytes accepts human sizes like
// "256MiB" (see ParseByteSize).
type CrateBudget struct {
	Bytes             string `yaml:"bytes" json:"bytes"`
	VerificationLevel string `yaml:"verification_level,omitempty" json:"verification_level,omitempty"`
}

// RuntimeConfig is the top-level budgets.yaml document: per-crate budgets,
// the ASIL profile (which selects default scheduler/ordering policy), and
// the observability surface port.
type RuntimeConfig struct {
	ASILProfile         string                 `yaml:"asil_profile" json:"asil_profile"`
	Crates              map[string]CrateBudget `yaml:"crates" json:"crates"`
	ObservabilityPort   int                    `yaml:"observability_port,omitempty" json:"observability_port,omitempty"`
	SchedulerPolicy     string                 `yaml:"scheduler_policy,omitempty" json:"scheduler_policy,omitempty"`
	DemotionWindow      int                    `yaml:"demotion_window,omitempty" json:"demotion_window,omitempty"`

	// SamplingSweepSchedule is a 5-field cron expression (or "@every ..."
	// shorthand) controlling how often Sampling-verification-level
	// collections get their checksum re-checked. Empty disables the sweep.
	SamplingSweepSchedule string `yaml:"sampling_sweep_schedule,omitempty" json:"sampling_sweep_schedule,omitempty"`
}

// CrateBudgetBytes returns the parsed byte budget for crate, or 0, false if
// the crate is absent or its size string is malformed.
func (c *RuntimeConfig) CrateBudgetBytes(crate string) (int64, bool) {
	if c == nil || c.Crates == nil {
		return 0, false
	}
	entry, ok := c.Crates[crate]
	if !ok {
		return 0, false
	}
	bytes, err := ParseByteSize(entry.Bytes)
	if err != nil {
		return 0, false
	}
	return bytes, true
}

// LoadRuntimeConfigFromPath loads budgets.yaml from the given path.
func LoadRuntimeConfigFromPath(path string) (*RuntimeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read runtime config: %w", err)
	}

	var cfg RuntimeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse runtime config: %w", err)
	}

	for name, budget := range cfg.Crates {
		if budget.Bytes == "" {
			return nil, fmt.Errorf("crate %s: bytes budget is required", name)
		}
		if _, err := ParseByteSize(budget.Bytes); err != nil {
			return nil, fmt.Errorf("crate %s: invalid bytes budget %q: %w", name, budget.Bytes, err)
		}
	}

	return &cfg, nil
}

// LoadRuntimeConfig loads config/budgets.yaml relative to the working directory.
func LoadRuntimeConfig() (*RuntimeConfig, error) {
	return LoadRuntimeConfigFromPath(filepath.Join("config", "budgets.yaml"))
}

// LoadRuntimeConfigOrDefault loads budgets.yaml or falls back to
// DefaultRuntimeConfig if the file is absent or malformed.
func LoadRuntimeConfigOrDefault() *RuntimeConfig {
	cfg, err := LoadRuntimeConfig()
	if err != nil {
		return DefaultRuntimeConfig()
	}
	return cfg
}

// DefaultRuntimeConfig returns the default QM-profile crate budgets: every
// crate gets the same 8MiB budget (48MiB across the six crates).
func DefaultRuntimeConfig() *RuntimeConfig {
	const perCrate = "8MiB"
	return &RuntimeConfig{
		ASILProfile: "QM",
		Crates: map[string]CrateBudget{
			"foundation": {Bytes: perCrate, VerificationLevel: "Standard"},
			"decoder":    {Bytes: perCrate, VerificationLevel: "Standard"},
			"runtime":    {Bytes: perCrate, VerificationLevel: "Standard"},
			"component":  {Bytes: perCrate, VerificationLevel: "Standard"},
			"host":       {Bytes: perCrate, VerificationLevel: "Sampling"},
			"platform":   {Bytes: perCrate, VerificationLevel: "Sampling"},
		},
		ObservabilityPort:     9988,
		SchedulerPolicy:       "cooperative",
		DemotionWindow:        4096,
		SamplingSweepSchedule: "@every 30m",
	}
}
