package steps

import (
	"github.com/simon020286/go-stageflow/builder"
	"github.com/simon020286/go-stageflow/models"
)

// @step name=noop category=flow description=Runs to completion without failing and produces no result
type NoopConfig struct{}

type NoopStep struct{}

func (NoopStep) Check(*models.TickContext) error { return nil }

func (NoopStep) Result(*models.TickContext) (any, error) { return nil, nil }

func init() {
	builder.RegisterStepType("noop", func(map[string]any) (models.Behavior, error) {
		return NoopStep{}, nil
	})
}
