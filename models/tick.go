package models

// TickContext contains what a Behavior may look at while its step runs
type TickContext struct {
	WorkflowID string         // ID of the workflow run
	StepID     string         // Step being driven
	StepName   string         // Human-readable step label
	Tick       int            // 1-based tick counter for the current step
	Progress   int            // Progress value after this tick was applied
	Variables  map[string]any // Workflow variables
	Results    map[string]any // Results of already completed steps, by step ID
}

// Scope flattens the context into the map exposed to scripts as `ctx`
func (tc *TickContext) Scope() map[string]any {
	results := make(map[string]any, len(tc.Results))
	for id, r := range tc.Results {
		results[id] = r
	}
	vars := make(map[string]any, len(tc.Variables))
	for k, v := range tc.Variables {
		vars[k] = v
	}
	return map[string]any{
		"workflow": tc.WorkflowID,
		"step":     tc.StepID,
		"name":     tc.StepName,
		"tick":     tc.Tick,
		"progress": tc.Progress,
		"vars":     vars,
		"results":  results,
	}
}
