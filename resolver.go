package stageflow

import (
	"strings"

	"github.com/simon020286/go-stageflow/models"
)

// IsEligible reports whether step may transition to running:
// it must be pending and every dependency must be completed.
// Dependencies that do not appear in steps are never satisfied.
func IsEligible(step models.Step, steps []models.Step) bool {
	if step.Status != models.StatusPending {
		return false
	}
	for _, depID := range step.Dependencies {
		satisfied := false
		for _, other := range steps {
			if other.ID == depID {
				satisfied = other.Status == models.StatusCompleted
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}

// DetectCycle reports whether the dependency relation contains a cycle
func DetectCycle(defs []models.StepDefinition) bool {
	return len(findCycle(defs)) > 0
}

// findCycle returns the ids along the first cycle found (DFS in definition order),
// closing with the repeated id, or nil if the graph is acyclic.
// Unknown dependency ids are ignored here; ValidateDefinition reports them.
func findCycle(defs []models.StepDefinition) []string {
	byID := make(map[string]models.StepDefinition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	var path []string
	var cycle []string

	var visit func(string) bool
	visit = func(id string) bool {
		visited[id] = true
		recStack[id] = true
		path = append(path, id)

		for _, depID := range byID[id].Dependencies {
			if _, known := byID[depID]; !known {
				continue
			}
			if !visited[depID] {
				if visit(depID) {
					return true
				}
			} else if recStack[depID] {
				for i, p := range path {
					if p == depID {
						cycle = append(append([]string{}, path[i:]...), depID)
						break
					}
				}
				return true
			}
		}

		recStack[id] = false
		path = path[:len(path)-1]
		return false
	}

	for _, def := range defs {
		if !visited[def.ID] {
			if visit(def.ID) {
				return cycle
			}
		}
	}
	return nil
}

// ValidateDefinition checks a definition before any state exists:
// non-empty, unique non-empty ids, known dependencies, no cycles.
// Every returned error wraps models.ErrInvalidDefinition.
func ValidateDefinition(defs []models.StepDefinition) error {
	if len(defs) == 0 {
		return models.ErrDefinition("", "at least one step is required")
	}

	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		if strings.TrimSpace(def.ID) == "" {
			return models.ErrDefinition("", "step %d has an empty id", i)
		}
		if seen[def.ID] {
			return models.ErrDefinition(def.ID, "duplicate step id")
		}
		seen[def.ID] = true
	}

	for _, def := range defs {
		for _, depID := range def.Dependencies {
			if !seen[depID] {
				return models.ErrDefinition(def.ID, "depends on non-existent step '%s'", depID)
			}
		}
	}

	if cycle := findCycle(defs); cycle != nil {
		return models.ErrDefinition("", "circular dependency detected: %s", strings.Join(cycle, " -> "))
	}

	return nil
}

// detectExecutionMode picks dependency gating as soon as one step declares dependencies
func detectExecutionMode(defs []models.StepDefinition) models.ExecutionMode {
	for _, def := range defs {
		if len(def.Dependencies) > 0 {
			return models.ModeDependency
		}
	}
	return models.ModeSequential
}

// selectNext returns the index of the next step to run, -1 when no step is
// pending, or ErrDeadlockDetected when pending steps remain but none is eligible.
func selectNext(steps []models.Step, mode models.ExecutionMode) (int, error) {
	pending := 0
	for i, step := range steps {
		if step.Status != models.StatusPending {
			continue
		}
		pending++
		if mode == models.ModeSequential || IsEligible(step, steps) {
			return i, nil
		}
	}
	if pending > 0 {
		return -1, models.ErrDeadlockDetected
	}
	return -1, nil
}
