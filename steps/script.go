package steps

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/simon020286/go-stageflow/builder"
	"github.com/simon020286/go-stageflow/config"
	"github.com/simon020286/go-stageflow/models"
)

// @step name=script category=script description=Computes the step result with JavaScript and optionally guards every tick with a JavaScript condition
type ScriptConfig struct {
	Code    string `step:"name=code,required,desc=Function body returning the step result; ctx and $vars are in scope"`
	Check   string `step:"name=check,desc=Expression evaluated on every tick; a falsy value fails the step"`
	Message string `step:"name=message,desc=Error message used when check fails"`
}

type ScriptStep struct {
	code    *goja.Program
	check   *goja.Program
	source  string
	message string
}

func (s *ScriptStep) Check(tc *models.TickContext) error {
	if s.check == nil {
		return nil
	}

	value, err := run(s.check, tc)
	if err != nil {
		return fmt.Errorf("check error: %w", err)
	}
	if config.Truthy(value) {
		return nil
	}
	if s.message != "" {
		return errors.New(s.message)
	}
	return fmt.Errorf("check failed: %s", s.source)
}

func (s *ScriptStep) Result(tc *models.TickContext) (any, error) {
	value, err := run(s.code, tc)
	if err != nil {
		return nil, fmt.Errorf("JavaScript execution error: %w", err)
	}
	return value, nil
}

func run(program *goja.Program, tc *models.TickContext) (any, error) {
	runtime, err := config.NewScriptRuntime(tc)
	if err != nil {
		return nil, err
	}
	result, err := runtime.RunProgram(program)
	if err != nil {
		return nil, err
	}
	return result.Export(), nil
}

func init() {
	builder.RegisterStepType("script", func(cfg map[string]any) (models.Behavior, error) {
		code, ok := cfg["code"].(string)
		if !ok || code == "" {
			return nil, errors.New("missing 'code' in script step")
		}

		// Wrap the code in an anonymous function to allow return usage
		program, err := goja.Compile("code", "(function() {\n"+code+"\n})()", false)
		if err != nil {
			return nil, fmt.Errorf("invalid code: %w", err)
		}

		step := &ScriptStep{code: program}
		if check, ok := cfg["check"].(string); ok && check != "" {
			step.check, err = goja.Compile("check", "(function() {\n return "+check+"\n})()", false)
			if err != nil {
				return nil, fmt.Errorf("invalid check: %w", err)
			}
			step.source = check
		}
		if msg, ok := cfg["message"].(string); ok {
			step.message = msg
		}

		return step, nil
	})
}
