package steps

import (
	"errors"
	"fmt"
	"maps"

	"github.com/simon020286/go-stageflow/builder"
	"github.com/simon020286/go-stageflow/config"
	"github.com/simon020286/go-stageflow/models"
)

// @step name=merge category=data description=Combines the results of completed steps and computed fields into one result
type MergeConfig struct {
	From   []string       `step:"name=from,desc=IDs of completed steps whose results are merged"`
	Fields map[string]any `step:"name=fields,desc=Extra fields; values may use $js: $var: or $env: references"`
}

type MergeStep struct {
	from   []string
	fields map[string]config.ValueSpec
}

func (s *MergeStep) Check(*models.TickContext) error {
	return nil
}

func (s *MergeStep) Result(tc *models.TickContext) (any, error) {
	merged := make(map[string]any)

	for _, id := range s.from {
		result, ok := tc.Results[id]
		if !ok {
			return nil, fmt.Errorf("step '%s' has not completed", id)
		}
		// Map results are flattened, anything else is stored under the step ID
		if m, ok := result.(map[string]any); ok {
			maps.Copy(merged, m)
		} else {
			merged[id] = result
		}
	}

	for key, spec := range s.fields {
		resolved, err := spec.Resolve(tc)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve field %s: %w", key, err)
		}
		merged[key] = resolved
	}

	return merged, nil
}

func init() {
	builder.RegisterStepType("merge", func(cfg map[string]any) (models.Behavior, error) {
		from, err := builder.StringList(cfg, "from")
		if err != nil {
			return nil, err
		}
		fields, err := parseFields(cfg["fields"])
		if err != nil {
			return nil, err
		}
		if len(from) == 0 && len(fields) == 0 {
			return nil, errors.New("merge step needs 'from' or 'fields'")
		}

		return &MergeStep{from: from, fields: fields}, nil
	})
}

// parseFields accepts either a mapping or a list of {name, value} entries
func parseFields(raw any) (map[string]config.ValueSpec, error) {
	switch fields := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return builder.ParseConfigValues(fields), nil
	case []any:
		specs := make(map[string]config.ValueSpec, len(fields))
		for _, field := range fields {
			fieldMap, ok := field.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("each field must be a map, got %T", field)
			}

			name, ok := fieldMap["name"].(string)
			if !ok {
				return nil, fmt.Errorf("field map must contain a 'name' key with a string value, got %T", fieldMap["name"])
			}

			value, ok := fieldMap["value"]
			if !ok {
				return nil, fmt.Errorf("field map must contain a 'value' key, got %v", fieldMap)
			}

			specs[name] = builder.ParseConfigValue(value)
		}
		return specs, nil
	default:
		return nil, fmt.Errorf("fields must be a map or a list of maps, got %T", raw)
	}
}
