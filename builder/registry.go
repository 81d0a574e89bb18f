package builder

import (
	"fmt"
	"slices"
	"sync"

	"github.com/simon020286/go-stageflow/models"
)

// BehaviorFactory creates a Behavior from the step_config of a step
type BehaviorFactory func(config map[string]any) (models.Behavior, error)

// Registry maps step types to behavior factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]BehaviorFactory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]BehaviorFactory)}
}

// Register registers a factory for a step type, replacing any previous one
func (r *Registry) Register(stepType string, factory BehaviorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[stepType] = factory
}

// Factory returns the factory for a step type
func (r *Registry) Factory(stepType string) (BehaviorFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[stepType]
	if !exists {
		return nil, fmt.Errorf("unknown step type: %s", stepType)
	}
	return factory, nil
}

// Create builds the behavior for a step type
func (r *Registry) Create(stepType string, config map[string]any) (models.Behavior, error) {
	factory, err := r.Factory(stepType)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = map[string]any{}
	}
	behavior, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stepType, err)
	}
	return behavior, nil
}

// Types returns all registered step types, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// defaultRegistry is filled by init() in behavior packages
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by RegisterStepType
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterStepType registers a factory for a step type in the default registry.
// This function is called by init() in behavior packages.
func RegisterStepType(stepType string, factory BehaviorFactory) {
	defaultRegistry.Register(stepType, factory)
}

// GetStepFactory returns the factory for a step type from the default registry
func GetStepFactory(stepType string) (BehaviorFactory, error) {
	return defaultRegistry.Factory(stepType)
}

// ListStepTypes returns all step types of the default registry
func ListStepTypes() []string {
	return defaultRegistry.Types()
}
