package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/dop251/goja"

	"github.com/simon020286/go-stageflow/models"
)

// Prefixes recognized in step_config string values
const (
	PrefixJS  = "$js:"
	PrefixVar = "$var:"
	PrefixEnv = "$env:"
)

// ValueSpec represents a value that can be static or dynamic
type ValueSpec interface {
	IsStatic() bool
	GetStaticValue() (any, bool)
	GetDynamicExpression() (DynamicValue, bool)
	// Resolve resolves the value against the running step
	Resolve(tc *models.TickContext) (any, error)
}

// StaticValue represents a literal value (number, string, bool, etc.)
type StaticValue struct {
	Value any
}

func NewStaticValue(value any) StaticValue {
	return StaticValue{
		Value: value,
	}
}

func (s StaticValue) IsStatic() bool {
	return true
}

func (s StaticValue) GetStaticValue() (any, bool) {
	return s.Value, true
}

func (s StaticValue) GetDynamicExpression() (DynamicValue, bool) {
	return DynamicValue{}, false
}

func (s StaticValue) Resolve(*models.TickContext) (any, error) {
	return s.Value, nil
}

// DynamicValue represents an expression evaluated on every resolution
type DynamicValue struct {
	Language   string // "js"
	Expression string // the expression to evaluate
}

func (d DynamicValue) IsStatic() bool {
	return false
}

func (d DynamicValue) GetStaticValue() (any, bool) {
	return nil, false
}

func (d DynamicValue) GetDynamicExpression() (DynamicValue, bool) {
	return d, true
}

func (d DynamicValue) Resolve(tc *models.TickContext) (any, error) {
	switch d.Language {
	case "js", "javascript", "":
		return d.resolveJS(tc)
	default:
		return nil, fmt.Errorf("unsupported language: %s", d.Language)
	}
}

// resolveJS evaluates a JavaScript expression using Goja.
// The expression sees `ctx` (see models.TickContext.Scope) and `$vars`.
func (d DynamicValue) resolveJS(tc *models.TickContext) (any, error) {
	runtime, err := NewScriptRuntime(tc)
	if err != nil {
		return nil, err
	}

	wrappedCode := "(function() {\n return " + d.Expression + "\n})()"

	result, err := runtime.RunString(wrappedCode)
	if err != nil {
		return nil, fmt.Errorf("failed to execute JS expression '%s': %w", d.Expression, err)
	}

	return result.Export(), nil
}

// NewScriptRuntime prepares a goja runtime exposing the tick context
func NewScriptRuntime(tc *models.TickContext) (*goja.Runtime, error) {
	runtime := goja.New()
	if tc == nil {
		tc = &models.TickContext{}
	}

	scope := tc.Scope()
	if err := runtime.Set("ctx", scope); err != nil {
		return nil, fmt.Errorf("failed to set context: %w", err)
	}
	if err := runtime.Set("$vars", scope["vars"]); err != nil {
		return nil, fmt.Errorf("failed to set workflow variables: %w", err)
	}
	return runtime, nil
}

// VariableReference represents a reference to a workflow variable ($var:name)
type VariableReference struct {
	Name string
}

func (v VariableReference) IsStatic() bool {
	return false
}

func (v VariableReference) GetStaticValue() (any, bool) {
	return nil, false
}

func (v VariableReference) GetDynamicExpression() (DynamicValue, bool) {
	return DynamicValue{}, false
}

func (v VariableReference) Resolve(tc *models.TickContext) (any, error) {
	if tc == nil || tc.Variables == nil {
		return nil, fmt.Errorf("variable '%s' not found: no workflow variables defined", v.Name)
	}

	value, exists := tc.Variables[v.Name]
	if !exists {
		return nil, fmt.Errorf("variable '%s' not found in workflow variables", v.Name)
	}

	return value, nil
}

// EnvReference represents a reference to an environment variable ($env:NAME)
type EnvReference struct {
	Name string
}

func (e EnvReference) IsStatic() bool {
	return false
}

func (e EnvReference) GetStaticValue() (any, bool) {
	return nil, false
}

func (e EnvReference) GetDynamicExpression() (DynamicValue, bool) {
	return DynamicValue{}, false
}

func (e EnvReference) Resolve(*models.TickContext) (any, error) {
	value := os.Getenv(e.Name)
	if value == "" {
		return nil, fmt.Errorf("environment variable '%s' is not set or is empty", e.Name)
	}

	return value, nil
}

// HasDynamicValues checks if at least one value is dynamic
func HasDynamicValues(values map[string]ValueSpec) bool {
	for _, v := range values {
		if !v.IsStatic() {
			return true
		}
	}
	return false
}

// ResolveFloat resolves spec and converts the result to float64
func ResolveFloat(spec ValueSpec, tc *models.TickContext) (float64, error) {
	raw, err := spec.Resolve(tc)
	if err != nil {
		return 0, err
	}
	return ToFloat(raw)
}

// ResolveInt resolves spec and converts the result to int
func ResolveInt(spec ValueSpec, tc *models.TickContext) (int, error) {
	f, err := ResolveFloat(spec, tc)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

// ToFloat converts the numeric shapes produced by YAML, goja and env lookups
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %q", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

// Truthy follows JavaScript truthiness for exported values
func Truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	case int64:
		return b != 0
	case int:
		return b != 0
	case float64:
		return b != 0 && !math.IsNaN(b)
	default:
		return true
	}
}
