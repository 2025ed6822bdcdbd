package virtualtools

import (
	"context"
	"fmt"
	"time"
)

// SolveState is a state of the per-question solve state machine.
type SolveState string

const (
	// StateInit looks the question up in the plan store
	StateInit SolveState = "init"
	// StatePlanning asks the planner for a fresh plan
	StatePlanning SolveState = "planning"
	// StateExecution runs the plan steps in order
	StateExecution SolveState = "execution"
	// StateValidation compares the last result with the expected value
	StateValidation SolveState = "validation"
	// StateCaching stores a validated fresh plan
	StateCaching SolveState = "caching"

	// Terminal states
	StateComplete         SolveState = "complete"
	StatePlanningFailed   SolveState = "planning_failed"
	StateExecutionFailed  SolveState = "execution_failed"
	StateValidationFailed SolveState = "validation_failed"
	StateCancelled        SolveState = "cancelled"
)

// SolveContext carries the data of one Solve call through the state machine.
type SolveContext struct {
	// Input parameters
	RunID    string
	Question string
	Expected *float64

	// Intermediate results
	Plan     Plan
	CacheHit bool
	Steps    []StepResult
	Result   float64

	// Error handling
	LastError  error
	ErrorStage SolveState

	// State management
	CurrentState SolveState
	History      []SolveState

	// Timestamp tracking
	StartTime       time.Time
	EndTime         time.Time
	StateStartTimes map[SolveState]time.Time
}

// NewSolveContext creates a solve context in StateInit.
func NewSolveContext(runID, question string, expected *float64) *SolveContext {
	now := time.Now()
	return &SolveContext{
		RunID:           runID,
		Question:        question,
		Expected:        expected,
		CurrentState:    StateInit,
		StartTime:       now,
		StateStartTimes: map[SolveState]time.Time{StateInit: now},
	}
}

// Transition records the current state in the history and moves to state.
func (sc *SolveContext) Transition(state SolveState) {
	sc.History = append(sc.History, sc.CurrentState)
	sc.CurrentState = state
	now := time.Now()
	sc.StateStartTimes[state] = now
	if sc.IsTerminal() {
		sc.EndTime = now
	}
}

// Fail records err as raised during the current state and moves to the terminal state.
func (sc *SolveContext) Fail(state SolveState, err error) {
	sc.LastError = err
	sc.ErrorStage = sc.CurrentState
	sc.Transition(state)
}

// IsTerminal reports whether the current state ends the run.
func (sc *SolveContext) IsTerminal() bool {
	switch sc.CurrentState {
	case StateComplete, StatePlanningFailed, StateExecutionFailed, StateValidationFailed, StateCancelled:
		return true
	}
	return false
}

// GetTotalDuration returns the total duration of the run so far.
func (sc *SolveContext) GetTotalDuration() time.Duration {
	if sc.IsTerminal() {
		return sc.EndTime.Sub(sc.StartTime)
	}
	return time.Since(sc.StartTime)
}

// Status maps the terminal state to the outcome status. A cancelled run is a
// planning failure when no plan was obtained, and an execution failure otherwise.
func (sc *SolveContext) Status() Status {
	switch sc.CurrentState {
	case StateComplete:
		return StatusSuccess
	case StatePlanningFailed:
		return StatusPlanningFailed
	case StateValidationFailed:
		return StatusValidationFailed
	case StateCancelled:
		if len(sc.Plan) == 0 {
			return StatusPlanningFailed
		}
		return StatusExecutionFailed
	default:
		return StatusExecutionFailed
	}
}

// Outcome builds the caller-facing outcome from a terminal context.
func (sc *SolveContext) Outcome() Outcome {
	o := Outcome{
		Status:   sc.Status(),
		Plan:     sc.Plan,
		CacheHit: sc.CacheHit,
		Steps:    sc.Steps,
		Err:      sc.LastError,
	}
	if o.Status == StatusSuccess {
		o.Result = sc.Result
		o.Err = nil
	}
	return o
}

// StateTransition handles one non-terminal state and returns the next state.
// On error the returned state is the terminal failure state to enter.
type StateTransition func(ctx context.Context, sc *SolveContext) (SolveState, error)

// StateMachine runs registered transitions until a terminal state is reached.
type StateMachine struct {
	transitions map[SolveState]StateTransition
}

// NewStateMachine creates an empty state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		transitions: make(map[SolveState]StateTransition),
	}
}

// RegisterTransition registers a state transition function.
func (sm *StateMachine) RegisterTransition(state SolveState, transition StateTransition) {
	sm.transitions[state] = transition
}

// Execute runs the state machine until a terminal state is reached.
func (sm *StateMachine) Execute(ctx context.Context, sc *SolveContext) {
	for !sc.IsTerminal() {
		if err := ctx.Err(); err != nil {
			sc.Fail(StateCancelled, err)
			return
		}

		transition, exists := sm.transitions[sc.CurrentState]
		if !exists {
			sc.Fail(StateExecutionFailed, fmt.Errorf("no transition defined for state: %s", sc.CurrentState))
			return
		}

		next, err := transition(ctx, sc)
		if err != nil {
			sc.Fail(next, err)
			continue
		}
		sc.Transition(next)
	}
}
