package config

import (
	"fmt"
	"strings"
)

// ValidateWorkflowConfig checks the structure of a workflow definition.
// Cycle detection happens when the definition is built, on the resolved steps.
func ValidateWorkflowConfig(cfg *WorkflowConfig) error {
	if cfg == nil {
		return fmt.Errorf("workflow configuration is nil")
	}
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(cfg.Steps) == 0 {
		return fmt.Errorf("workflow %s must have at least one step", cfg.Name)
	}

	ids := make(map[string]bool, len(cfg.Steps))
	for i, step := range cfg.Steps {
		if strings.TrimSpace(step.ID) == "" {
			return fmt.Errorf("workflow %s: step %d: id is required", cfg.Name, i)
		}
		if ids[step.ID] {
			return fmt.Errorf("workflow %s: duplicate step id '%s'", cfg.Name, step.ID)
		}
		ids[step.ID] = true
	}

	for _, step := range cfg.Steps {
		if err := validateDependencies(step, ids); err != nil {
			return fmt.Errorf("workflow %s: %w", cfg.Name, err)
		}
		if err := validateStepConfig(step.StepConfig); err != nil {
			return fmt.Errorf("workflow %s: step '%s': %w", cfg.Name, step.ID, err)
		}
	}

	if _, err := cfg.Settings.TickIntervalDuration(); err != nil {
		return fmt.Errorf("workflow %s: %w", cfg.Name, err)
	}
	if _, _, err := cfg.Settings.MaxDurationValue(); err != nil {
		return fmt.Errorf("workflow %s: %w", cfg.Name, err)
	}

	return nil
}

// validateDependencies verifies every dependency names another declared step
func validateDependencies(step StepConfig, ids map[string]bool) error {
	for _, dep := range step.Dependencies {
		if dep == step.ID {
			return fmt.Errorf("step '%s' depends on itself", step.ID)
		}
		if !ids[dep] {
			return fmt.Errorf("step '%s' depends on non-existent step '%s'", step.ID, dep)
		}
	}
	return nil
}

// validateStepConfig verifies value references in step_config are well formed
func validateStepConfig(cfg map[string]any) error {
	for key, value := range cfg {
		if err := validateValueReference(value); err != nil {
			return fmt.Errorf("step_config.%s: %w", key, err)
		}
	}
	return nil
}

func validateValueReference(value any) error {
	switch v := value.(type) {
	case string:
		for _, prefix := range []string{PrefixJS, PrefixVar, PrefixEnv} {
			if strings.HasPrefix(v, prefix) && strings.TrimSpace(strings.TrimPrefix(v, prefix)) == "" {
				return fmt.Errorf("empty %s reference", strings.TrimSuffix(prefix, ":"))
			}
		}
	case map[string]any:
		for key, nested := range v {
			if err := validateValueReference(nested); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	case []any:
		for i, item := range v {
			if err := validateValueReference(item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}
	return nil
}
