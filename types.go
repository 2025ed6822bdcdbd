package virtualtools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Arg is a single positional tool argument: either a number or a list of numbers.
// The zero value is the number 0.
type Arg struct {
	num    float64
	list   []float64
	isList bool
}

// Number returns a numeric argument.
func Number(v float64) Arg {
	return Arg{num: v}
}

// List returns a list argument. The values are copied.
func List(values ...float64) Arg {
	cp := make([]float64, len(values))
	copy(cp, values)
	return Arg{list: cp, isList: true}
}

// IsList reports whether the argument holds a list.
func (a Arg) IsList() bool { return a.isList }

// Float returns the numeric value; ok is false for list arguments.
func (a Arg) Float() (float64, bool) {
	if a.isList {
		return 0, false
	}
	return a.num, true
}

// Floats returns a copy of the list value; ok is false for numeric arguments.
func (a Arg) Floats() ([]float64, bool) {
	if !a.isList {
		return nil, false
	}
	cp := make([]float64, len(a.list))
	copy(cp, a.list)
	return cp, true
}

// Value returns the argument as a plain Go value (float64 or []float64).
func (a Arg) Value() any {
	if a.isList {
		v, _ := a.Floats()
		return v
	}
	return a.num
}

func (a Arg) String() string {
	if !a.isList {
		return formatNumber(a.num)
	}
	parts := make([]string, len(a.list))
	for i, v := range a.list {
		parts[i] = formatNumber(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalJSON renders the argument as a bare number or an array of numbers.
func (a Arg) MarshalJSON() ([]byte, error) {
	if a.isList {
		if a.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.list)
	}
	return json.Marshal(a.num)
}

// UnmarshalJSON accepts a number or an array of numbers. Anything else is an error.
func (a *Arg) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("argument must be a number or a list of numbers, got null")
	}
	if len(data) > 0 && data[0] == '[' {
		var values []float64
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("list argument must contain only numbers: %w", err)
		}
		*a = List(values...)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("argument must be a number or a list of numbers, got %s", string(data))
	}
	*a = Number(v)
	return nil
}

// ParseArg converts a decoded JSON or YAML value into an Arg.
func ParseArg(v any) (Arg, error) {
	switch val := v.(type) {
	case Arg:
		return val, nil
	case []any:
		values := make([]float64, 0, len(val))
		for i, item := range val {
			f, ok := toFloat(item)
			if !ok {
				return Arg{}, fmt.Errorf("list element %d must be a number, got %T", i, item)
			}
			values = append(values, f)
		}
		return List(values...), nil
	case []float64:
		return List(val...), nil
	default:
		f, ok := toFloat(v)
		if !ok {
			return Arg{}, fmt.Errorf("argument must be a number or a list of numbers, got %T", v)
		}
		return Number(f), nil
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ToolCall is one step of a plan: a tool name and its positional arguments.
type ToolCall struct {
	Tool string `json:"tool"`
	Args []Arg  `json:"args"`
}

// NewToolCall builds a ToolCall from plain values (numbers or lists of numbers).
func NewToolCall(tool string, args ...any) (ToolCall, error) {
	call := ToolCall{Tool: tool, Args: make([]Arg, 0, len(args))}
	for i, a := range args {
		arg, err := ParseArg(a)
		if err != nil {
			return ToolCall{}, fmt.Errorf("argument %d for %s: %w", i, tool, err)
		}
		call.Args = append(call.Args, arg)
	}
	return call, nil
}

// MarshalJSON always emits an args array, even when empty.
func (c ToolCall) MarshalJSON() ([]byte, error) {
	args := c.Args
	if args == nil {
		args = []Arg{}
	}
	return json.Marshal(struct {
		Tool string `json:"tool"`
		Args []Arg  `json:"args"`
	}{Tool: c.Tool, Args: args})
}

func (c ToolCall) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return c.Tool + "(" + strings.Join(parts, ", ") + ")"
}

// Plan is an ordered list of tool calls; order is execution order.
type Plan []ToolCall

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	if p == nil {
		return nil
	}
	out := make(Plan, len(p))
	for i, call := range p {
		args := make([]Arg, len(call.Args))
		copy(args, call.Args)
		out[i] = ToolCall{Tool: call.Tool, Args: args}
	}
	return out
}

func (p Plan) String() string {
	parts := make([]string, len(p))
	for i, call := range p {
		parts[i] = call.String()
	}
	return strings.Join(parts, " -> ")
}

// StepResult is the outcome of executing a single plan step.
// OK == false is the "no result" sentinel: the step failed even after one correction.
type StepResult struct {
	Call      ToolCall // The call as planned
	Executed  ToolCall // The call that produced Value (the correction when Corrected)
	Value     float64
	OK        bool
	Corrected bool
	Err       error // The original failure (when Corrected) or the terminal failure
}

// Status is the terminal state of a Solve call.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusExecutionFailed  Status = "execution_failed"
	StatusValidationFailed Status = "validation_failed"
	StatusPlanningFailed   Status = "planning_failed"
)

// Outcome is the result of Solve. It is never nil-valued: failures are carried in Status and Err.
type Outcome struct {
	Status   Status
	Result   float64 // Valid only when Status == StatusSuccess
	Plan     Plan
	CacheHit bool
	Steps    []StepResult
	Err      error
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// Message returns the user-facing error message, or "" on success.
func (o Outcome) Message() string {
	switch o.Status {
	case StatusSuccess:
		return ""
	case StatusExecutionFailed:
		return "Execution failed"
	case StatusValidationFailed:
		return "Validation failed"
	case StatusPlanningFailed:
		if o.Err != nil {
			return "Planning failed: " + o.Err.Error()
		}
		return "Planning failed"
	default:
		return "Unknown failure"
	}
}

// MarshalJSON renders {"result": n} on success and {"error": msg} otherwise.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.OK() {
		return json.Marshal(map[string]float64{"result": o.Result})
	}
	return json.Marshal(map[string]string{"error": o.Message()})
}
