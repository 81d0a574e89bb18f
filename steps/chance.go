package steps

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/simon020286/go-stageflow/builder"
	"github.com/simon020286/go-stageflow/config"
	"github.com/simon020286/go-stageflow/models"
)

// @step name=chance category=fault description=Fails the step with a given probability when it reaches 100%
type ChanceConfig struct {
	Probability float64 `step:"name=probability,required,desc=Failure probability between 0 and 1"`
	Message     string  `step:"name=message,default=random failure,desc=Error message recorded on the failed step"`
	Seed        int     `step:"name=seed,desc=Seed for a reproducible draw (0 = random)"`
}

type ChanceStep struct {
	probability config.ValueSpec
	message     string

	mu  sync.Mutex
	rng *rand.Rand
}

func (s *ChanceStep) Check(*models.TickContext) error {
	return nil
}

func (s *ChanceStep) Result(tc *models.TickContext) (any, error) {
	p, err := config.ResolveFloat(s.probability, tc)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve probability: %w", err)
	}

	s.mu.Lock()
	draw := s.rng.Float64()
	s.mu.Unlock()

	if draw < p {
		return nil, errors.New(s.message)
	}
	return map[string]any{"draw": draw, "probability": p}, nil
}

func init() {
	builder.RegisterStepType("chance", func(cfg map[string]any) (models.Behavior, error) {
		probability, err := builder.RequiredValue(cfg, "probability")
		if err != nil {
			return nil, err
		}
		if v, ok := probability.GetStaticValue(); ok {
			p, err := config.ToFloat(v)
			if err != nil {
				return nil, fmt.Errorf("probability: %w", err)
			}
			if p < 0 || p > 1 {
				return nil, fmt.Errorf("probability must be between 0 and 1, got %v", p)
			}
		}

		message := "random failure"
		if m, ok := cfg["message"].(string); ok && m != "" {
			message = m
		}

		seed, err := seedFrom(cfg)
		if err != nil {
			return nil, err
		}

		return &ChanceStep{
			probability: probability,
			message:     message,
			rng:         newRand(seed),
		}, nil
	})
}

// seedFrom reads an optional static seed from step_config
func seedFrom(cfg map[string]any) (uint64, error) {
	raw, ok := cfg["seed"]
	if !ok || raw == nil {
		return 0, nil
	}
	f, err := config.ToFloat(raw)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("seed must be a non-negative number, got %v", raw)
	}
	return uint64(f), nil
}

// newRand returns a PCG generator; seed 0 draws a random seed
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
