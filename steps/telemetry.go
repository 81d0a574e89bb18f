package steps

import (
	"fmt"
	"math"
	"sync"

	"github.com/simon020286/go-stageflow/builder"
	"github.com/simon020286/go-stageflow/config"
	"github.com/simon020286/go-stageflow/models"
)

// Source produces uniformly distributed values in [0, 1)
type Source interface {
	Float64() float64
}

// @step name=telemetry category=data description=Synthesizes random metric readings as the step result
type TelemetryConfig struct {
	Metrics []string `step:"name=metrics,required,desc=Names of the metrics to synthesize"`
	Min     float64  `step:"name=min,default=0,desc=Lower bound of generated values"`
	Max     float64  `step:"name=max,default=100,desc=Upper bound of generated values"`
	Samples int      `step:"name=samples,default=1,desc=Readings per metric; more than one yields a series"`
	Seed    int      `step:"name=seed,desc=Seed for reproducible readings (0 = random)"`
}

type TelemetryStep struct {
	metrics  []string
	min, max float64
	samples  int

	mu     sync.Mutex
	source Source
}

// NewTelemetryStep creates a telemetry behavior reading from source.
// A nil source draws from an unseeded generator.
func NewTelemetryStep(metrics []string, min, max float64, samples int, source Source) (*TelemetryStep, error) {
	if len(metrics) == 0 {
		return nil, models.ErrMissingConfig("metrics")
	}
	if max < min {
		return nil, fmt.Errorf("max (%v) must not be lower than min (%v)", max, min)
	}
	if samples < 1 {
		return nil, fmt.Errorf("samples must be at least 1, got %d", samples)
	}
	if source == nil {
		source = newRand(0)
	}
	return &TelemetryStep{
		metrics: metrics,
		min:     min,
		max:     max,
		samples: samples,
		source:  source,
	}, nil
}

func (s *TelemetryStep) Check(*models.TickContext) error {
	return nil
}

func (s *TelemetryStep) Result(*models.TickContext) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	readings := make(map[string]any, len(s.metrics))
	for _, metric := range s.metrics {
		if s.samples == 1 {
			readings[metric] = s.reading()
			continue
		}
		series := make([]any, s.samples)
		for i := range series {
			series[i] = s.reading()
		}
		readings[metric] = series
	}
	return readings, nil
}

func (s *TelemetryStep) reading() float64 {
	v := s.min + s.source.Float64()*(s.max-s.min)
	return math.Round(v*1000) / 1000
}

func init() {
	builder.RegisterStepType("telemetry", func(cfg map[string]any) (models.Behavior, error) {
		metrics, err := builder.StringList(cfg, "metrics")
		if err != nil {
			return nil, err
		}
		minV, err := staticFloat(cfg, "min", 0)
		if err != nil {
			return nil, err
		}
		maxV, err := staticFloat(cfg, "max", 100)
		if err != nil {
			return nil, err
		}
		samples, err := staticFloat(cfg, "samples", 1)
		if err != nil {
			return nil, err
		}
		seed, err := seedFrom(cfg)
		if err != nil {
			return nil, err
		}

		return NewTelemetryStep(metrics, minV, maxV, int(samples), newRand(seed))
	})
}

// staticFloat reads an optional static number from step_config
func staticFloat(cfg map[string]any, key string, fallback float64) (float64, error) {
	spec := builder.OptionalValue(cfg, key, fallback)
	v, ok := spec.GetStaticValue()
	if !ok {
		return 0, fmt.Errorf("%s must be a static number", key)
	}
	f, err := config.ToFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
