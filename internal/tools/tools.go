// Package tools holds the fixed registry of math operations a plan may call.
package tools

import (
	"log"
	"math"
	"sort"

	"github.com/ZanzyTHEbar/virtualtools"
)

// Fault probabilities for the unreliable variants.
const (
	UnreliableSumRate     = 0.4
	UnreliableProductRate = 0.3
)

// Registry resolves tool names to tools. It is read-only after construction.
type Registry struct {
	tools    map[string]*Tool
	injector FaultInjector
}

// Option configures a Registry.
type Option func(*Registry)

// WithFaultInjector enables fault injection for UNRELIABLE_SUM and
// UNRELIABLE_PRODUCT. Without it they behave like SUM and PRODUCT.
func WithFaultInjector(injector FaultInjector) Option {
	return func(r *Registry) {
		r.injector = injector
	}
}

// NewRegistry creates the registry with the fixed tool set.
func NewRegistry(options ...Option) *Registry {
	r := &Registry{}
	for _, option := range options {
		option(r)
	}
	r.tools = r.setupTools()
	return r
}

// Lookup returns the named tool or an UnknownTool error. Names are case-sensitive.
func (r *Registry) Lookup(name string) (*Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, virtualtools.NewUnknownToolError("lookup", name)
	}
	return t, nil
}

// Invoke looks up name and calls it with args.
func (r *Registry) Invoke(name string, args []virtualtools.Arg) (float64, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return 0, err
	}
	return t.Call(args)
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []*Tool {
	names := r.Names()
	out := make([]*Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// FaultInjectionEnabled reports whether the unreliable tools can misbehave.
func (r *Registry) FaultInjectionEnabled() bool {
	return r.injector != nil
}

func (r *Registry) setupTools() map[string]*Tool {
	all := []*Tool{
		NewTool("SUM", Sum,
			WithDescription("Adds two numbers."),
			WithParameters("a: number", "b: number"),
			WithReturns("a + b"),
			WithExamples(`{"tool": "SUM", "args": [5, 3]}`),
		),
		NewTool("PRODUCT", Product,
			WithDescription("Multiplies two numbers."),
			WithParameters("a: number", "b: number"),
			WithReturns("a * b"),
			WithExamples(`{"tool": "PRODUCT", "args": [3, 5]}`),
		),
		NewTool("QUOTIENT", Quotient,
			WithDescription("Divides a by b. Fails when b is zero."),
			WithParameters("a: number", "b: number"),
			WithReturns("a / b"),
			WithExamples(`{"tool": "QUOTIENT", "args": [20, 4]}`),
		),
		NewTool("POWER", Power,
			WithDescription("Raises a to the power b."),
			WithParameters("a: number", "b: number"),
			WithReturns("a ^ b"),
			WithExamples(`{"tool": "POWER", "args": [2, 10]}`),
		),
		NewTool("SQRT", Sqrt,
			WithDescription("Square root of a. Fails when a is negative."),
			WithParameters("a: number"),
			WithReturns("the non-negative square root of a"),
			WithExamples(`{"tool": "SQRT", "args": [16]}`),
		),
		NewTool("AVG", Avg,
			WithDescription("Arithmetic mean of a list. Fails on an empty list."),
			WithParameters("values: list of numbers"),
			WithReturns("the mean of values"),
			WithExamples(`{"tool": "AVG", "args": [[1, 2, 3]]}`),
		),
		NewTool("ROUND", Round,
			WithDescription("Rounds a to the nearest integer, ties to even."),
			WithParameters("a: number"),
			WithReturns("the nearest integer to a"),
			WithExamples(`{"tool": "ROUND", "args": [2.5]}`),
		),
		NewTool("MODULO", Modulo,
			WithDescription("Remainder of a divided by b, with the sign of b. Fails when b is zero."),
			WithParameters("a: number", "b: number"),
			WithReturns("a mod b"),
			WithExamples(`{"tool": "MODULO", "args": [10, 3]}`),
		),
		NewTool("ABS", Abs,
			WithDescription("Absolute value of a."),
			WithParameters("a: number"),
			WithReturns("|a|"),
			WithExamples(`{"tool": "ABS", "args": [-7]}`),
		),
		NewTool("UNRELIABLE_SUM", r.unreliable("UNRELIABLE_SUM", UnreliableSumRate, Sum),
			WithDescription("Adds two numbers. May fail or return a perturbed result."),
			WithParameters("a: number", "b: number"),
			WithReturns("a + b"),
		),
		NewTool("UNRELIABLE_PRODUCT", r.unreliable("UNRELIABLE_PRODUCT", UnreliableProductRate, Product),
			WithDescription("Multiplies two numbers. May fail or return a perturbed result."),
			WithParameters("a: number", "b: number"),
			WithReturns("a * b"),
		),
	}

	m := make(map[string]*Tool, len(all))
	for _, t := range all {
		m[t.Name()] = t
	}
	return m
}

// unreliable wraps fn with the registry's fault injector.
func (r *Registry) unreliable(name string, rate float64, fn Func) Func {
	return func(args []virtualtools.Arg) (float64, error) {
		result, err := fn(args)
		if err != nil || r.injector == nil {
			return result, err
		}
		switch fault := r.injector.Inject(name, rate); fault.Kind {
		case FaultError:
			log.Printf("TOOL: Injected fault (tool: %s)", name)
			return 0, virtualtools.NewSimulatedFaultError(name)
		case FaultNoise:
			log.Printf("TOOL: Injected noise (tool: %s, offset: %d)", name, fault.Offset)
			return result + float64(fault.Offset), nil
		}
		return result, nil
	}
}

// Sum returns a + b.
func Sum(args []virtualtools.Arg) (float64, error) {
	v, err := numbers("SUM", args, 2)
	if err != nil {
		return 0, err
	}
	return v[0] + v[1], nil
}

// Product returns a * b.
func Product(args []virtualtools.Arg) (float64, error) {
	v, err := numbers("PRODUCT", args, 2)
	if err != nil {
		return 0, err
	}
	return v[0] * v[1], nil
}

// Quotient returns a / b.
func Quotient(args []virtualtools.Arg) (float64, error) {
	v, err := numbers("QUOTIENT", args, 2)
	if err != nil {
		return 0, err
	}
	if v[1] == 0 {
		return 0, virtualtools.NewDivisionByZeroError("QUOTIENT")
	}
	return v[0] / v[1], nil
}

// Power returns a raised to b.
func Power(args []virtualtools.Arg) (float64, error) {
	v, err := numbers("POWER", args, 2)
	if err != nil {
		return 0, err
	}
	return math.Pow(v[0], v[1]), nil
}

// Sqrt returns the square root of a.
func Sqrt(args []virtualtools.Arg) (float64, error) {
	v, err := numbers("SQRT", args, 1)
	if err != nil {
		return 0, err
	}
	if v[0] < 0 {
		return 0, virtualtools.NewNegativeInputError("SQRT", v[0])
	}
	return math.Sqrt(v[0]), nil
}

// Avg returns the arithmetic mean of a list.
func Avg(args []virtualtools.Arg) (float64, error) {
	values, err := list("AVG", args)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, virtualtools.NewEmptyInputError("AVG")
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values)), nil
}

// Round rounds half to even.
func Round(args []virtualtools.Arg) (float64, error) {
	v, err := numbers("ROUND", args, 1)
	if err != nil {
		return 0, err
	}
	return math.RoundToEven(v[0]), nil
}

// Modulo returns a mod b with the sign of b (floored division).
func Modulo(args []virtualtools.Arg) (float64, error) {
	v, err := numbers("MODULO", args, 2)
	if err != nil {
		return 0, err
	}
	a, b := v[0], v[1]
	if b == 0 {
		return 0, virtualtools.NewDivisionByZeroError("MODULO")
	}
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r, nil
}

// Abs returns |a|.
func Abs(args []virtualtools.Arg) (float64, error) {
	v, err := numbers("ABS", args, 1)
	if err != nil {
		return 0, err
	}
	return math.Abs(v[0]), nil
}
