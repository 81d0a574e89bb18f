package builder

import (
	"fmt"
	"strings"

	"github.com/simon020286/go-stageflow/config"
	"github.com/simon020286/go-stageflow/models"
)

// DefaultStepType is used for steps that declare no step_type
const DefaultStepType = "noop"

// CreateBehavior creates a behavior from the default registry
func CreateBehavior(stepType string, stepConfig map[string]any) (models.Behavior, error) {
	if stepType == "" {
		stepType = DefaultStepType
	}
	return defaultRegistry.Create(stepType, stepConfig)
}

// ParseConfigValue converts a value from YAML configuration into a ValueSpec.
// Recognized prefixes: "$js:" (JavaScript expression), "$var:" (workflow
// variable), "$env:" (environment variable). Anything else is static.
// Values that already are a ValueSpec are returned as is.
func ParseConfigValue(v any) config.ValueSpec {
	switch val := v.(type) {
	case config.ValueSpec:
		return val
	case string:
		switch {
		case strings.HasPrefix(val, config.PrefixJS):
			return config.DynamicValue{
				Language:   "js",
				Expression: strings.TrimSpace(strings.TrimPrefix(val, config.PrefixJS)),
			}
		case strings.HasPrefix(val, config.PrefixVar):
			return config.VariableReference{Name: strings.TrimSpace(strings.TrimPrefix(val, config.PrefixVar))}
		case strings.HasPrefix(val, config.PrefixEnv):
			return config.EnvReference{Name: strings.TrimSpace(strings.TrimPrefix(val, config.PrefixEnv))}
		}
	}

	// Otherwise it's a static value
	return config.StaticValue{Value: v}
}

// ParseConfigValues converts every entry of a map with ParseConfigValue
func ParseConfigValues(values map[string]any) map[string]config.ValueSpec {
	specs := make(map[string]config.ValueSpec, len(values))
	for k, v := range values {
		specs[k] = ParseConfigValue(v)
	}
	return specs
}

// RequiredValue returns the ValueSpec of a required key
func RequiredValue(cfg map[string]any, key string) (config.ValueSpec, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return nil, models.ErrMissingConfig(key)
	}
	return ParseConfigValue(v), nil
}

// OptionalValue returns the ValueSpec of key, or a static fallback
func OptionalValue(cfg map[string]any, key string, fallback any) config.ValueSpec {
	v, ok := cfg[key]
	if !ok || v == nil {
		return config.NewStaticValue(fallback)
	}
	return ParseConfigValue(v)
}

// StringList reads a list of strings from step_config
func StringList(cfg map[string]any, key string) ([]string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: expected a string, got %T", key, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected a list of strings, got %T", key, raw)
	}
}
