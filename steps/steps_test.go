package steps

import (
	"errors"
	"strings"
	"testing"

	"github.com/simon020286/go-stageflow/builder"
	"github.com/simon020286/go-stageflow/models"
)

func tick(progress int) *models.TickContext {
	return &models.TickContext{
		WorkflowID: "run-1",
		StepID:     "current",
		Tick:       1,
		Progress:   progress,
		Variables:  map[string]any{"threshold": 40, "flaky": false, "label": "block"},
		Results: map[string]any{
			"fetch": map[string]any{"latency_ms": 12.5, "peers": 8},
			"hash":  "0xabc",
		},
	}
}

func create(t *testing.T, stepType string, cfg map[string]any) models.Behavior {
	t.Helper()
	b, err := builder.CreateBehavior(stepType, cfg)
	if err != nil {
		t.Fatalf("CreateBehavior(%s) failed: %v", stepType, err)
	}
	return b
}

func TestBuiltinsRegistered(t *testing.T) {
	registered := builder.ListStepTypes()
	for _, meta := range GetBehaviorsMetadata() {
		found := false
		for _, st := range registered {
			if st == meta.Name {
				found = true
			}
		}
		if !found {
			t.Errorf("Behavior %s has metadata but is not registered", meta.Name)
		}
	}
	if len(GetBehaviorsMetadata()) != 6 {
		t.Errorf("Expected 6 behaviors, got %d", len(GetBehaviorsMetadata()))
	}
}

func TestBehaviorMetadata(t *testing.T) {
	meta, ok := GetBehaviorMetadata("fail_at")
	if !ok {
		t.Fatal("Expected fail_at metadata")
	}
	if meta.Category != "fault" || len(meta.Params) != 3 || !meta.Params[0].Required {
		t.Errorf("Unexpected metadata: %+v", meta)
	}
	if _, ok := GetBehaviorMetadata("ghost"); ok {
		t.Error("Expected no metadata for unknown behavior")
	}
	if got := GetCategories(); len(got) != 4 {
		t.Errorf("Expected 4 categories, got %v", got)
	}
}

func TestNoop(t *testing.T) {
	b := create(t, "noop", nil)
	if err := b.Check(tick(100)); err != nil {
		t.Errorf("Check: %v", err)
	}
	result, err := b.Result(tick(100))
	if err != nil || result != nil {
		t.Errorf("Result = %v, %v; want nil, nil", result, err)
	}

	if _, err := builder.CreateBehavior("", nil); err != nil {
		t.Errorf("Empty step type should default to noop: %v", err)
	}
}

func TestFailAt(t *testing.T) {
	b := create(t, "fail_at", map[string]any{"progress": 50})

	if err := b.Check(tick(49)); err != nil {
		t.Errorf("Check below threshold: %v", err)
	}
	err := b.Check(tick(50))
	if err == nil || err.Error() != "failed at 50%" {
		t.Errorf("Expected 'failed at 50%%', got %v", err)
	}
}

func TestFailAt_MessageAndVariable(t *testing.T) {
	b := create(t, "fail_at", map[string]any{
		"progress": "$var:threshold",
		"message":  "$js: 'bad ' + ctx.vars.label",
	})

	if err := b.Check(tick(39)); err != nil {
		t.Errorf("Check below threshold: %v", err)
	}
	err := b.Check(tick(45))
	if err == nil || err.Error() != "bad block" {
		t.Errorf("Expected 'bad block', got %v", err)
	}
}

func TestFailAt_When(t *testing.T) {
	b := create(t, "fail_at", map[string]any{"progress": 10, "when": "$var:flaky"})
	if err := b.Check(tick(90)); err != nil {
		t.Errorf("Failure should be disabled while 'when' is false: %v", err)
	}
}

func TestFailAt_InvalidConfig(t *testing.T) {
	_, err := builder.CreateBehavior("fail_at", map[string]any{})
	var missing *models.MissingConfigError
	if !errors.As(err, &missing) {
		t.Errorf("Expected MissingConfigError, got %v", err)
	}

	if _, err := builder.CreateBehavior("fail_at", map[string]any{"progress": "half"}); err == nil {
		t.Error("Expected error for non-numeric progress")
	}
}

func TestChance(t *testing.T) {
	always := create(t, "chance", map[string]any{"probability": 1, "message": "unlucky"})
	if err := always.Check(tick(50)); err != nil {
		t.Errorf("Check: %v", err)
	}
	if _, err := always.Result(tick(100)); err == nil || err.Error() != "unlucky" {
		t.Errorf("Expected 'unlucky', got %v", err)
	}

	never := create(t, "chance", map[string]any{"probability": 0, "seed": 3})
	result, err := never.Result(tick(100))
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if m, ok := result.(map[string]any); !ok || m["probability"] != 0.0 {
		t.Errorf("Unexpected result %v", result)
	}
}

func TestChance_Seeded(t *testing.T) {
	cfg := map[string]any{"probability": 0.5, "seed": 42}
	a := create(t, "chance", cfg)
	b := create(t, "chance", cfg)

	for i := 0; i < 10; i++ {
		_, errA := a.Result(tick(100))
		_, errB := b.Result(tick(100))
		if (errA == nil) != (errB == nil) {
			t.Fatalf("Draw %d differs between identically seeded behaviors", i)
		}
	}
}

func TestChance_InvalidConfig(t *testing.T) {
	tests := []map[string]any{
		{},
		{"probability": 1.5},
		{"probability": "often"},
		{"probability": 0.5, "seed": -1},
	}
	for _, cfg := range tests {
		if _, err := builder.CreateBehavior("chance", cfg); err == nil {
			t.Errorf("Expected error for %v", cfg)
		}
	}
}

func TestScript_Result(t *testing.T) {
	b := create(t, "script", map[string]any{
		"code": "return { hash: ctx.results.hash, peers: ctx.results.fetch.peers * 2, label: $vars.label };",
	})

	result, err := b.Result(tick(100))
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("Expected map result, got %T", result)
	}
	if m["hash"] != "0xabc" || m["peers"] != int64(16) || m["label"] != "block" {
		t.Errorf("Unexpected result %v", m)
	}
}

func TestScript_Check(t *testing.T) {
	b := create(t, "script", map[string]any{
		"code":  "return 1;",
		"check": "ctx.progress < 80",
	})

	if err := b.Check(tick(50)); err != nil {
		t.Errorf("Check: %v", err)
	}
	err := b.Check(tick(85))
	if err == nil || !strings.Contains(err.Error(), "check failed: ctx.progress < 80") {
		t.Errorf("Expected check failure, got %v", err)
	}

	withMessage := create(t, "script", map[string]any{
		"code":    "return 1;",
		"check":   "false",
		"message": "model diverged",
	})
	if err := withMessage.Check(tick(1)); err == nil || err.Error() != "model diverged" {
		t.Errorf("Expected 'model diverged', got %v", err)
	}
}

func TestScript_Errors(t *testing.T) {
	if _, err := builder.CreateBehavior("script", map[string]any{}); err == nil {
		t.Error("Expected error for missing code")
	}
	if _, err := builder.CreateBehavior("script", map[string]any{"code": "return {"}); err == nil {
		t.Error("Expected compile error")
	}

	b := create(t, "script", map[string]any{"code": "throw new Error('boom');"})
	_, err := b.Result(tick(100))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected runtime error, got %v", err)
	}
}

type fixedSource []float64

func (f *fixedSource) Float64() float64 {
	v := (*f)[0]
	*f = append((*f)[1:], v)
	return v
}

func TestTelemetry(t *testing.T) {
	src := &fixedSource{0, 0.5, 0.999}
	b, err := NewTelemetryStep([]string{"latency_ms"}, 10, 20, 3, src)
	if err != nil {
		t.Fatalf("NewTelemetryStep: %v", err)
	}

	result, err := b.Result(tick(100))
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	series := result.(map[string]any)["latency_ms"].([]any)
	if len(series) != 3 || series[0] != 10.0 || series[1] != 15.0 || series[2] != 19.99 {
		t.Errorf("Unexpected series %v", series)
	}
}

func TestTelemetry_Registered(t *testing.T) {
	b := create(t, "telemetry", map[string]any{
		"metrics": []any{"loss", "accuracy"},
		"min":     0.1,
		"max":     0.9,
		"seed":    7,
	})

	result, err := b.Result(tick(100))
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	readings := result.(map[string]any)
	for _, metric := range []string{"loss", "accuracy"} {
		v, ok := readings[metric].(float64)
		if !ok || v < 0.1 || v > 0.9 {
			t.Errorf("%s = %v, want a value in [0.1, 0.9]", metric, readings[metric])
		}
	}
}

func TestTelemetry_InvalidConfig(t *testing.T) {
	tests := []map[string]any{
		{},
		{"metrics": []any{"x"}, "min": 10, "max": 1},
		{"metrics": []any{"x"}, "samples": 0},
		{"metrics": []any{"x"}, "min": "$var:low"},
	}
	for _, cfg := range tests {
		if _, err := builder.CreateBehavior("telemetry", cfg); err == nil {
			t.Errorf("Expected error for %v", cfg)
		}
	}
}

func TestMerge(t *testing.T) {
	b := create(t, "merge", map[string]any{
		"from": []any{"fetch", "hash"},
		"fields": map[string]any{
			"threshold": "$var:threshold",
			"fast":      "$js: ctx.results.fetch.latency_ms < 20",
		},
	})

	result, err := b.Result(tick(100))
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	m := result.(map[string]any)
	if m["latency_ms"] != 12.5 || m["peers"] != 8 {
		t.Errorf("Expected fetch result flattened, got %v", m)
	}
	if m["hash"] != "0xabc" {
		t.Errorf("Expected scalar result under step id, got %v", m["hash"])
	}
	if m["threshold"] != 40 || m["fast"] != true {
		t.Errorf("Unexpected fields %v", m)
	}
}

func TestMerge_FieldList(t *testing.T) {
	b := create(t, "merge", map[string]any{
		"fields": []any{
			map[string]any{"name": "a", "value": 1},
			map[string]any{"name": "b", "value": "$js: ctx.progress"},
		},
	})

	result, err := b.Result(tick(100))
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	m := result.(map[string]any)
	if m["a"] != 1 || m["b"] != int64(100) {
		t.Errorf("Unexpected result %v", m)
	}
}

func TestMerge_Errors(t *testing.T) {
	if _, err := builder.CreateBehavior("merge", map[string]any{}); err == nil {
		t.Error("Expected error for empty merge")
	}
	if _, err := builder.CreateBehavior("merge", map[string]any{"fields": []any{"x"}}); err == nil {
		t.Error("Expected error for malformed field list")
	}

	b := create(t, "merge", map[string]any{"from": []any{"ghost"}})
	if _, err := b.Result(tick(100)); err == nil {
		t.Error("Expected error for a step without result")
	}
}

func TestTelemetryStep_NilSourceDrawsInRange(t *testing.T) {
	b, err := NewTelemetryStep([]string{"cpu"}, 1, 2, 1, nil)
	if err != nil {
		t.Fatalf("NewTelemetryStep: %v", err)
	}
	result, err := b.Result(tick(100))
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	v := result.(map[string]any)["cpu"].(float64)
	if v < 1 || v > 2 {
		t.Fatalf("reading %v outside [1, 2]", v)
	}
}
