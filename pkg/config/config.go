// Package config loads the swarm core's configuration: the environment
// variable feature-flag surface from SPEC_FULL.md §6, plus a YAML file
// overlay for everything too structured to live in an env var (gate
// timeouts, tier budgets, canary/speculation tuning), grounded in the
// teacher's internal/config.Load pattern (YAML file, defaults for missing
// values, validator tags, duration parsing).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// Config is the process-wide configuration loaded once at startup.
type Config struct {
	Verifier   VerifierConfig   `yaml:"verifier"`
	Memory     MemoryConfig     `yaml:"memory"`
	Escalation EscalationConfig `yaml:"escalation"`
	Canary     CanaryConfig     `yaml:"canary"`
	Flags      FlagsConfig      `yaml:"-"`
}

// VerifierConfig mirrors spec.md §4.B's configuration surface.
type VerifierConfig struct {
	Comprehensive  bool          `yaml:"comprehensive"`
	GateTimeout    time.Duration `yaml:"gate_timeout" validate:"required"`
	StderrMaxBytes int           `yaml:"stderr_max_bytes" validate:"min=0"`
	PackageScope   string        `yaml:"package_scope"`
}

// MemoryConfig mirrors spec.md §4.D's TokenBudget.
type MemoryConfig struct {
	MaxTokens           int `yaml:"max_tokens" validate:"required,min=1"`
	TargetTokens        int `yaml:"target_tokens" validate:"required,min=1,ltefield=MaxTokens"`
	MinRetainedEntries  int `yaml:"min_retained_entries" validate:"min=0"`
	SystemReserveTokens int `yaml:"system_reserve_tokens" validate:"min=0"`
}

// EscalationConfig mirrors spec.md §4.G's per-tier budgets.
type EscalationConfig struct {
	WorkerBudget         int `yaml:"worker_budget" validate:"required,min=1"`
	IntegratorBudget     int `yaml:"integrator_budget" validate:"required,min=1"`
	CloudBudget          int `yaml:"cloud_budget" validate:"required,min=1"`
	RepeatThreshold      int `yaml:"repeat_threshold" validate:"required,min=1"`
	FailureThreshold     int `yaml:"failure_threshold" validate:"required,min=1"`
	MultiFileThreshold   int `yaml:"multi_file_threshold" validate:"required,min=1"`
}

// CanaryConfig mirrors spec.md §4.H and the env vars in §6.
type CanaryConfig struct {
	BudgetCap       int     `yaml:"budget_cap" validate:"min=0"`
	ConfidenceMin   float64 `yaml:"confidence_min" validate:"min=0,max=1"`
	MinRisk         string  `yaml:"min_risk"`
	MaxProposals    int     `yaml:"max_proposals" validate:"min=0"`
	TokenBudget     int     `yaml:"token_budget" validate:"min=0"`
}

// FlagsConfig is the boolean feature-flag surface, read from environment
// variables only (spec.md §6), never the YAML file.
type FlagsConfig struct {
	SmartRouterEnabled             bool
	StateMachineEnabled            bool
	CanaryEnabled                  bool
	StructuredEvaluatorRequired    bool
	WorkerFirstEnabled             bool
	SpeculationEnabled             bool
}

var defaultConfig = Config{
	Verifier: VerifierConfig{
		Comprehensive:  false,
		GateTimeout:    2 * time.Minute,
		StderrMaxBytes: 8192,
	},
	Memory: MemoryConfig{
		MaxTokens:          8000,
		TargetTokens:       6000,
		MinRetainedEntries: 5,
	},
	Escalation: EscalationConfig{
		WorkerBudget:       5,
		IntegratorBudget:   3,
		CloudBudget:        2,
		RepeatThreshold:    2,
		FailureThreshold:   5,
		MultiFileThreshold: 8,
	},
	Canary: CanaryConfig{
		MinRisk: "high",
	},
}

var validate = validator.New()

// Load reads a YAML config file, applying defaults for anything absent,
// overlays the environment variable feature-flag surface, and validates the
// result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, swarmerrors.FailedTo("read config file", err)
	}

	cfg := defaultConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, swarmerrors.FailedTo("parse config file", err)
	}

	cfg.Flags = LoadFlagsFromEnv(os.LookupEnv)
	OverlayCanaryFromEnv(&cfg.Canary, os.LookupEnv)

	if err := validate.Struct(cfg.Verifier); err != nil {
		return nil, swarmerrors.FailedTo("validate verifier config", err)
	}
	if err := validate.Struct(cfg.Memory); err != nil {
		return nil, swarmerrors.FailedTo("validate memory config", err)
	}
	if err := validate.Struct(cfg.Escalation); err != nil {
		return nil, swarmerrors.FailedTo("validate escalation config", err)
	}
	if err := validate.Struct(cfg.Canary); err != nil {
		return nil, swarmerrors.FailedTo("validate canary config", err)
	}
	return &cfg, nil
}

// LoadFlagsFromEnv reads the env var surface from spec.md §6, where
// "1" | "true" | "yes" (case-insensitive) means enabled and anything else
// (including unset) means disabled. lookup is injected so tests don't
// depend on process-global environment state.
func LoadFlagsFromEnv(lookup func(string) (string, bool)) FlagsConfig {
	enabled := func(name string) bool {
		v, ok := lookup(name)
		if !ok {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes":
			return true
		default:
			return false
		}
	}
	return FlagsConfig{
		SmartRouterEnabled:          enabled("SWARM_SMART_ROUTER_ENABLED"),
		StateMachineEnabled:         enabled("SWARM_STATE_MACHINE_ENABLED"),
		CanaryEnabled:               enabled("SWARM_CANARY_ENABLED"),
		StructuredEvaluatorRequired: enabled("SWARM_STRUCTURED_EVALUATOR_REQUIRED"),
		WorkerFirstEnabled:          enabled("SWARM_WORKER_FIRST_ENABLED"),
		SpeculationEnabled:          enabled("SWARM_SPECULATION_ENABLED"),
	}
}

// OverlayCanaryFromEnv applies the canary/speculation tuning env vars from
// spec.md §6 over the YAML-loaded values. A variable that is unset or fails
// to parse leaves the existing value in place: these are operator
// overrides, not required configuration.
func OverlayCanaryFromEnv(cfg *CanaryConfig, lookup func(string) (string, bool)) {
	if v, ok := lookup("SWARM_CANARY_BUDGET_CAP"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			cfg.BudgetCap = n
		}
	}
	if v, ok := lookup("SWARM_CANARY_CONFIDENCE"); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f >= 0 && f <= 1 {
			cfg.ConfidenceMin = f
		}
	}
	if v, ok := lookup("SWARM_CANARY_MIN_RISK"); ok {
		switch risk := strings.ToLower(strings.TrimSpace(v)); risk {
		case "critical", "high", "medium":
			cfg.MinRisk = risk
		}
	}
	if v, ok := lookup("SWARM_SPECULATION_MAX_PROPOSALS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			cfg.MaxProposals = n
		}
	}
	if v, ok := lookup("SWARM_SPECULATION_TOKEN_BUDGET"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			cfg.TokenBudget = n
		}
	}
}
