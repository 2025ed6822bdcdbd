package virtualtools

import "context"

// Planner converts a free-text question into an ordered list of tool calls.
type Planner interface {
	// Plan must return a non-empty plan or an error carrying ErrCodePlanParse
	// (malformed model output) or ErrCodePlanGeneration (model call failed).
	Plan(ctx context.Context, question string) (Plan, error)
}

// Corrector proposes a single replacement call for a tool call that failed.
type Corrector interface {
	Correct(ctx context.Context, toolName string, args []Arg, errMessage string) (ToolCall, error)
}

// Executor runs one tool call, repairing it at most once through a Corrector.
// A failed step is reported through StepResult.OK, never through a panic or error return.
type Executor interface {
	Execute(ctx context.Context, call ToolCall) StepResult
}

// Validator compares the last step's result with the caller-supplied expected value.
type Validator interface {
	Validate(computed float64, expected *float64) bool
}

// PlanStore holds validated question -> plan mappings.
//
// Contract:
// - Keys are exact question strings (case- and whitespace-sensitive).
// - Add is insert-if-absent: it reports false and leaves the entry untouched when the key exists.
// - Add persists the full mapping before returning.
type PlanStore interface {
	Exists(ctx context.Context, question string) bool
	Get(ctx context.Context, question string) (Plan, error)
	Add(ctx context.Context, question string, plan Plan) (bool, error)
	Questions(ctx context.Context) []string
}
