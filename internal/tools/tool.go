package tools

import (
	"math"

	"github.com/ZanzyTHEbar/virtualtools"
)

// Func is a pure numeric operation over positional arguments.
type Func func(args []virtualtools.Arg) (float64, error)

// Tool is a named operation in the registry together with the metadata the
// planner prompt is rendered from.
type Tool struct {
	name        string
	fn          Func
	description string
	parameters  []string
	returns     string
	examples    []string
}

// ToolOption represents an option for configuring a Tool.
type ToolOption func(*Tool)

// WithDescription sets a detailed description for the tool.
func WithDescription(description string) ToolOption {
	return func(t *Tool) {
		t.description = description
	}
}

// WithParameters sets the positional parameter descriptions.
func WithParameters(parameters ...string) ToolOption {
	return func(t *Tool) {
		t.parameters = parameters
	}
}

// WithReturns sets the return value description.
func WithReturns(returns string) ToolOption {
	return func(t *Tool) {
		t.returns = returns
	}
}

// WithExamples adds usage examples.
func WithExamples(examples ...string) ToolOption {
	return func(t *Tool) {
		t.examples = examples
	}
}

// NewTool creates a new tool from a Go function.
func NewTool(name string, fn Func, options ...ToolOption) *Tool {
	t := &Tool{name: name, fn: fn}
	for _, option := range options {
		option(t)
	}
	return t
}

func (t *Tool) Name() string         { return t.name }
func (t *Tool) Description() string  { return t.description }
func (t *Tool) Parameters() []string { return t.parameters }
func (t *Tool) Returns() string      { return t.returns }
func (t *Tool) Examples() []string   { return t.examples }

// Schema returns a description of the tool, used by the planner prompt.
func (t *Tool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"name":        t.name,
		"description": t.description,
		"parameters":  t.parameters,
		"returns":     t.returns,
		"examples":    t.examples,
	}
}

// Call invokes the tool with positional arguments. Non-finite results are
// errors and negative zero is returned as zero.
func (t *Tool) Call(args []virtualtools.Arg) (float64, error) {
	result, err := t.fn(args)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, virtualtools.NewNonFiniteError(t.name, result)
	}
	if result == 0 {
		return 0, nil
	}
	return result, nil
}

// numbers checks that args holds exactly n numeric arguments and returns them.
func numbers(tool string, args []virtualtools.Arg, n int) ([]float64, error) {
	if len(args) != n {
		return nil, virtualtools.NewArityError(tool, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		v, ok := a.Float()
		if !ok {
			return nil, virtualtools.NewInvalidArgumentError(tool, i, "expected a number, got a list")
		}
		out[i] = v
	}
	return out, nil
}

// list checks that args holds exactly one list argument and returns it.
func list(tool string, args []virtualtools.Arg) ([]float64, error) {
	if len(args) != 1 {
		return nil, virtualtools.NewArityError(tool, 1, len(args))
	}
	values, ok := args[0].Floats()
	if !ok {
		return nil, virtualtools.NewInvalidArgumentError(tool, 0, "expected a list of numbers, got a number")
	}
	return values, nil
}
