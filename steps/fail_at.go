package steps

import (
	"errors"
	"fmt"

	"github.com/simon020286/go-stageflow/builder"
	"github.com/simon020286/go-stageflow/config"
	"github.com/simon020286/go-stageflow/models"
)

// @step name=fail_at category=fault description=Fails the step once its progress reaches a threshold
type FailAtConfig struct {
	Progress int    `step:"name=progress,required,desc=Progress percentage at which the step fails"`
	Message  string `step:"name=message,desc=Error message recorded on the failed step"`
	When     bool   `step:"name=when,default=true,desc=Condition evaluated on every tick; the failure only triggers while it holds"`
}

type FailAtStep struct {
	progress config.ValueSpec
	message  config.ValueSpec
	when     config.ValueSpec
}

func (s *FailAtStep) Check(tc *models.TickContext) error {
	enabled, err := s.when.Resolve(tc)
	if err != nil {
		return fmt.Errorf("failed to resolve when: %w", err)
	}
	if !config.Truthy(enabled) {
		return nil
	}

	threshold, err := config.ResolveInt(s.progress, tc)
	if err != nil {
		return fmt.Errorf("failed to resolve progress: %w", err)
	}
	if tc.Progress < threshold {
		return nil
	}

	msg, err := s.message.Resolve(tc)
	if err != nil {
		return fmt.Errorf("failed to resolve message: %w", err)
	}
	if text := fmt.Sprint(msg); msg != nil && text != "" {
		return errors.New(text)
	}
	return fmt.Errorf("failed at %d%%", threshold)
}

func (s *FailAtStep) Result(*models.TickContext) (any, error) {
	return nil, nil
}

func init() {
	builder.RegisterStepType("fail_at", func(cfg map[string]any) (models.Behavior, error) {
		progress, err := builder.RequiredValue(cfg, "progress")
		if err != nil {
			return nil, err
		}
		if v, ok := progress.GetStaticValue(); ok {
			if _, err := config.ToFloat(v); err != nil {
				return nil, fmt.Errorf("progress: %w", err)
			}
		}

		return &FailAtStep{
			progress: progress,
			message:  builder.OptionalValue(cfg, "message", nil),
			when:     builder.OptionalValue(cfg, "when", true),
		}, nil
	})
}
