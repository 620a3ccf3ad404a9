// Package config loads the governance orchestrator's tunables from an XDG
// config file, with GOVERNOR_* environment variables overriding it; CLI
// flags are not bound here. Grounded on the teacher's internal/config Manager (viper.New() +
// adrg/xdg directory resolution), with the field set replaced by this
// spec's retry/backoff/iteration-cap vocabulary.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppName is used for XDG config/data path resolution.
const AppName = "governor"

// ProviderSpec configures one named provider adapter.
type ProviderSpec struct {
	Kind     string `mapstructure:"kind" yaml:"kind"` // "cli", "http", "rotating", "mock"
	Binary   string `mapstructure:"binary" yaml:"binary,omitempty"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// ModelPolicy constrains which models a rotating provider is allowed to
// target. ForbiddenModels is checked at adapter-construction time; a model
// on this list causes construction to fail outright. RequiredModelPrefix,
// when non-empty, requires the configured model to start with this prefix
// (e.g. restricting a rotating provider to a specific model family).
type ModelPolicy struct {
	ForbiddenModels     []string `mapstructure:"forbidden_models" yaml:"forbidden_models,omitempty"`
	RequiredModelPrefix string   `mapstructure:"required_model_prefix" yaml:"required_model_prefix,omitempty"`
}

// WorkflowCaps holds the per-workflow max-iteration bounds.
type WorkflowCaps struct {
	Issue   int `mapstructure:"issue" yaml:"issue"`
	LLD     int `mapstructure:"lld" yaml:"lld"`
	Testing int `mapstructure:"testing" yaml:"testing"`
}

// Gates toggles optional gate stages on or off.
type Gates struct {
	HumanGate        bool `mapstructure:"human_gate" yaml:"human_gate"`
	CompletenessGate bool `mapstructure:"completeness_gate" yaml:"completeness_gate"`
}

// Tunables is the full set of runtime-adjustable behavior.
type Tunables struct {
	DataDir           string                  `mapstructure:"data_dir" yaml:"data_dir" validate:"required"`
	BaseBackoff       time.Duration           `mapstructure:"base_backoff" yaml:"base_backoff" validate:"gt=0"`
	MaxBackoff        time.Duration           `mapstructure:"max_backoff" yaml:"max_backoff" validate:"gtefield=BaseBackoff"`
	MaxRetryAttempts  int                     `mapstructure:"max_retry_attempts" yaml:"max_retry_attempts" validate:"gte=1"` // MAX_RETRIES_PER_CREDENTIAL
	CallsPerSecond    float64                 `mapstructure:"calls_per_second" yaml:"calls_per_second" validate:"gt=0"`
	PrimaryTimeout    time.Duration           `mapstructure:"primary_timeout" yaml:"primary_timeout" validate:"gt=0"`
	WorkflowCaps      WorkflowCaps            `mapstructure:"workflow_caps" yaml:"workflow_caps"`
	Gates             Gates                   `mapstructure:"gates" yaml:"gates"`
	Providers         map[string]ProviderSpec `mapstructure:"providers" yaml:"providers,omitempty"`
	ModelPolicy       ModelPolicy             `mapstructure:"model_policy" yaml:"model_policy,omitempty"`
	MaxValidationPass int                     `mapstructure:"max_validation_attempts" yaml:"max_validation_attempts" validate:"gte=1"`
}

var tunablesValidator = validator.New()

// Validate checks Tunables against its struct-tag constraints (non-empty
// data dir, positive timeouts, max_backoff no smaller than base_backoff),
// mirroring the teacher's config-validation pass after unmarshaling.
func (t Tunables) Validate() error {
	if err := tunablesValidator.Struct(t); err != nil {
		return fmt.Errorf("config: invalid tunables: %w", err)
	}
	return nil
}

// DefaultTunables returns the baseline configuration, matching spec.md §9's
// defaults (5/20/3 per-workflow iteration caps).
func DefaultTunables() Tunables {
	dataDir := filepath.Join(xdg.DataHome, AppName)
	return Tunables{
		DataDir:          dataDir,
		BaseBackoff:      1 * time.Second,
		MaxBackoff:       60 * time.Second,
		MaxRetryAttempts: 8,
		CallsPerSecond:   1.0,
		PrimaryTimeout:   180 * time.Second,
		WorkflowCaps: WorkflowCaps{
			Issue:   5,
			LLD:     20,
			Testing: 3,
		},
		Gates: Gates{
			HumanGate:        true,
			CompletenessGate: true,
		},
		Providers:         map[string]ProviderSpec{},
		ModelPolicy:       ModelPolicy{},
		MaxValidationPass: 3,
	}
}

// Manager loads and serves Tunables from the layered config sources.
type Manager struct {
	v      *viper.Viper
	config Tunables
}

// NewManager builds a Manager with viper configured to read
// $XDG_CONFIG_HOME/governor/config.yaml, overridable by GOVERNOR_* env vars.
func NewManager() *Manager {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(xdg.ConfigHome, AppName))
	v.SetEnvPrefix("GOVERNOR")
	v.AutomaticEnv()
	return &Manager{v: v, config: DefaultTunables()}
}

// Load reads the config file (if present) and merges it onto the defaults.
// A missing config file is not an error.
func (m *Manager) Load() (Tunables, error) {
	defaults := DefaultTunables()
	m.config = defaults

	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return m.config, fmt.Errorf("config: reading config file: %w", err)
		}
		return m.config, nil
	}

	if err := m.v.Unmarshal(&m.config); err != nil {
		return m.config, fmt.Errorf("config: unmarshaling config: %w", err)
	}
	if m.config.Providers == nil {
		m.config.Providers = map[string]ProviderSpec{}
	}
	if err := m.config.Validate(); err != nil {
		return m.config, err
	}
	return m.config, nil
}

// Config returns the most recently loaded Tunables.
func (m *Manager) Config() Tunables { return m.config }

// DefaultConfigYAML renders DefaultTunables as YAML, suitable for seeding
// $XDG_CONFIG_HOME/governor/config.yaml on first run.
func DefaultConfigYAML() ([]byte, error) {
	out, err := yaml.Marshal(DefaultTunables())
	if err != nil {
		return nil, fmt.Errorf("config: marshaling default config: %w", err)
	}
	return out, nil
}
