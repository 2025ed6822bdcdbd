package virtualtools

import (
	"errors"
	"fmt"
)

// Error codes for specific failure types
const (
	// Tool domain errors
	ErrCodeUnknownTool     = "UNKNOWN_TOOL"
	ErrCodeDivisionByZero  = "DIVISION_BY_ZERO"
	ErrCodeNegativeInput   = "NEGATIVE_INPUT"
	ErrCodeEmptyInput      = "EMPTY_INPUT"
	ErrCodeSimulatedFault  = "SIMULATED_FAULT"
	ErrCodeArity           = "ARITY"
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeNonFinite       = "NON_FINITE_RESULT"

	// Collaborator errors
	ErrCodePlanGeneration       = "PLAN_GENERATION_ERROR"
	ErrCodePlanParse            = "PLAN_PARSE_ERROR"
	ErrCodeCorrectionGeneration = "CORRECTION_GENERATION_ERROR"
	ErrCodeCorrectionParse      = "CORRECTION_PARSE_ERROR"

	// Solve outcomes
	ErrCodeExecutionFailed  = "EXECUTION_FAILED"
	ErrCodeValidationFailed = "VALIDATION_FAILED"

	ErrCodeCache         = "CACHE_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
)

// Sentinels for errors.Is matching. Any *Error with the same code matches.
var (
	ErrUnknownTool      = &Error{Code: ErrCodeUnknownTool}
	ErrDivisionByZero   = &Error{Code: ErrCodeDivisionByZero}
	ErrNegativeInput    = &Error{Code: ErrCodeNegativeInput}
	ErrEmptyInput       = &Error{Code: ErrCodeEmptyInput}
	ErrSimulatedFault   = &Error{Code: ErrCodeSimulatedFault}
	ErrArity            = &Error{Code: ErrCodeArity}
	ErrInvalidArgument  = &Error{Code: ErrCodeInvalidArgument}
	ErrNonFinite        = &Error{Code: ErrCodeNonFinite}
	ErrPlanGeneration   = &Error{Code: ErrCodePlanGeneration}
	ErrPlanParse        = &Error{Code: ErrCodePlanParse}
	ErrCorrectionGen    = &Error{Code: ErrCodeCorrectionGeneration}
	ErrCorrectionParse  = &Error{Code: ErrCodeCorrectionParse}
	ErrExecutionFailed  = &Error{Code: ErrCodeExecutionFailed}
	ErrValidationFailed = &Error{Code: ErrCodeValidationFailed}
	ErrCache            = &Error{Code: ErrCodeCache}
	ErrConfiguration    = &Error{Code: ErrCodeConfiguration}
)

var errEmptyPlan = errors.New("plan has no steps")

// Error is the coded error type used across virtualtools.
type Error struct {
	Code    string // A machine-readable error code (e.g., ErrCodeUnknownTool)
	Message string // A human-readable message
	Stage   string // The stage where the error occurred (e.g., "planning", "execution")
	Cause   error  // The underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Stage, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Stage, e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error, allowing for error chaining.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error.
func NewError(code, stage, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) string {
	var vtErr *Error
	if errors.As(err, &vtErr) {
		return vtErr.Code
	}
	return ""
}

// Specific error constructors

func NewUnknownToolError(stage, toolName string) *Error {
	return NewError(ErrCodeUnknownTool, stage, fmt.Sprintf("tool '%s' not found", toolName), nil)
}

func NewDivisionByZeroError(toolName string) *Error {
	return NewError(ErrCodeDivisionByZero, "tool", fmt.Sprintf("%s: division by zero", toolName), nil)
}

func NewNegativeInputError(toolName string, value float64) *Error {
	return NewError(ErrCodeNegativeInput, "tool", fmt.Sprintf("%s: negative input %v", toolName, value), nil)
}

func NewEmptyInputError(toolName string) *Error {
	return NewError(ErrCodeEmptyInput, "tool", fmt.Sprintf("%s: empty input list", toolName), nil)
}

func NewSimulatedFaultError(toolName string) *Error {
	return NewError(ErrCodeSimulatedFault, "tool", fmt.Sprintf("%s: simulated fault", toolName), nil)
}

func NewArityError(toolName string, want, got int) *Error {
	msg := fmt.Sprintf("%s expects %d argument(s), got %d", toolName, want, got)
	return NewError(ErrCodeArity, "tool", msg, nil)
}

func NewInvalidArgumentError(toolName string, position int, message string) *Error {
	msg := fmt.Sprintf("%s argument %d: %s", toolName, position, message)
	return NewError(ErrCodeInvalidArgument, "tool", msg, nil)
}

func NewNonFiniteError(toolName string, value float64) *Error {
	return NewError(ErrCodeNonFinite, "tool", fmt.Sprintf("%s produced non-finite result %v", toolName, value), nil)
}

func NewPlanGenerationError(cause error) *Error {
	return NewError(ErrCodePlanGeneration, "planning", "failed to generate plan", cause)
}

func NewPlanParseError(cause error) *Error {
	return NewError(ErrCodePlanParse, "planning", "failed to parse plan", cause)
}

func NewCorrectionGenerationError(toolName string, cause error) *Error {
	msg := fmt.Sprintf("failed to generate correction for tool '%s'", toolName)
	return NewError(ErrCodeCorrectionGeneration, "correction", msg, cause)
}

func NewCorrectionParseError(cause error) *Error {
	return NewError(ErrCodeCorrectionParse, "correction", "failed to parse error correction response", cause)
}

func NewExecutionFailedError(step int, toolName string, cause error) *Error {
	msg := fmt.Sprintf("step %d (%s) failed after correction", step, toolName)
	return NewError(ErrCodeExecutionFailed, "execution", msg, cause)
}

func NewValidationFailedError(computed float64) *Error {
	msg := fmt.Sprintf("computed result %v does not match expected output", computed)
	return NewError(ErrCodeValidationFailed, "validation", msg, nil)
}

func NewCacheError(stage, operation string, cause error) *Error {
	return NewError(ErrCodeCache, stage, fmt.Sprintf("cache operation '%s' failed", operation), cause)
}

func NewConfigurationError(message string, cause error) *Error {
	return NewError(ErrCodeConfiguration, "initialization", message, cause)
}
