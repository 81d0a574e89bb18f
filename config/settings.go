package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding settings
const EnvPrefix = "STAGEFLOW"

// Settings represents the complete stageflow configuration
type Settings struct {
	Engine  EngineSettings  `mapstructure:"engine"`
	Logging LoggingSettings `mapstructure:"logging"`
	History HistorySettings `mapstructure:"history"`
}

// EngineSettings controls how workflows are simulated
type EngineSettings struct {
	// TickInterval is the period between two progress ticks
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// MinIncrement is the smallest progress increment per tick
	MinIncrement int `mapstructure:"min_increment"`
	// MaxIncrement is the largest progress increment per tick
	MaxIncrement int `mapstructure:"max_increment"`
	// MaxDuration stops a run that has not finished in time (0 = disabled)
	MaxDuration time.Duration `mapstructure:"max_duration"`
	// BaselineStepDuration is the expected duration of one step, used for efficiency
	BaselineStepDuration time.Duration `mapstructure:"baseline_step_duration"`
	// Seed makes progress reproducible (0 = random)
	Seed uint64 `mapstructure:"seed"`
}

// LoggingSettings controls diagnostic output
type LoggingSettings struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
}

// HistorySettings controls the run history database
type HistorySettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Default returns Settings with sensible default values
func Default() *Settings {
	return &Settings{
		Engine: EngineSettings{
			TickInterval:         500 * time.Millisecond,
			MinIncrement:         5,
			MaxIncrement:         15,
			BaselineStepDuration: 2 * time.Second,
		},
		Logging: LoggingSettings{
			Level: "warn",
		},
		History: HistorySettings{
			Enabled: true,
			Path:    DefaultHistoryPath(),
		},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("engine.tick_interval", defaults.Engine.TickInterval)
	v.SetDefault("engine.min_increment", defaults.Engine.MinIncrement)
	v.SetDefault("engine.max_increment", defaults.Engine.MaxIncrement)
	v.SetDefault("engine.max_duration", defaults.Engine.MaxDuration)
	v.SetDefault("engine.baseline_step_duration", defaults.Engine.BaselineStepDuration)
	v.SetDefault("engine.seed", defaults.Engine.Seed)

	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetDefault("history.enabled", defaults.History.Enabled)
	v.SetDefault("history.path", defaults.History.Path)
}

// NewViper returns a viper instance with defaults, environment overrides and,
// when configFile is empty, the default search paths.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("stageflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(ConfigDir())
	}
	return v
}

// ReadConfig reads the config file of v. A missing file in the default
// search paths is not an error.
func ReadConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load reads the configuration from v into Settings and validates it
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}

	if errs := s.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &s, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "stageflow")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stageflow"
	}
	return filepath.Join(home, ".config", "stageflow")
}

// DataDir returns the path to the user's data directory
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "stageflow")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stageflow"
	}
	return filepath.Join(home, ".local", "share", "stageflow")
}

// DefaultHistoryPath returns the default location of the history database
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history.db")
}

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The settings key (e.g., "engine.min_increment")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Settings for invalid values and returns all validation errors found
func (s *Settings) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, s.validateEngine()...)
	errors = append(errors, s.validateLogging()...)
	errors = append(errors, s.validateHistory()...)

	return errors
}

func (s *Settings) validateEngine() []ValidationError {
	var errors []ValidationError
	e := s.Engine

	if e.TickInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.tick_interval",
			Value:   e.TickInterval,
			Message: "must be positive",
		})
	}
	if e.MinIncrement < 1 {
		errors = append(errors, ValidationError{
			Field:   "engine.min_increment",
			Value:   e.MinIncrement,
			Message: "must be at least 1",
		})
	}
	if e.MaxIncrement < e.MinIncrement {
		errors = append(errors, ValidationError{
			Field:   "engine.max_increment",
			Value:   e.MaxIncrement,
			Message: fmt.Sprintf("must be at least engine.min_increment (%d)", e.MinIncrement),
		})
	}
	if e.MaxIncrement > 100 {
		errors = append(errors, ValidationError{
			Field:   "engine.max_increment",
			Value:   e.MaxIncrement,
			Message: "must be at most 100",
		})
	}
	if e.MaxDuration < 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.max_duration",
			Value:   e.MaxDuration,
			Message: "must be zero (disabled) or positive",
		})
	}
	if e.BaselineStepDuration <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.baseline_step_duration",
			Value:   e.BaselineStepDuration,
			Message: "must be positive",
		})
	}

	return errors
}

func (s *Settings) validateLogging() []ValidationError {
	if s.Logging.Level == "" || slices.Contains(ValidLogLevels(), strings.ToLower(s.Logging.Level)) {
		return nil
	}
	return []ValidationError{{
		Field:   "logging.level",
		Value:   s.Logging.Level,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
	}}
}

func (s *Settings) validateHistory() []ValidationError {
	if s.History.Enabled && strings.TrimSpace(s.History.Path) == "" {
		return []ValidationError{{
			Field:   "history.path",
			Value:   s.History.Path,
			Message: "is required when history is enabled",
		}}
	}
	return nil
}
