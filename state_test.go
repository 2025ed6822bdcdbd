package virtualtools

import (
	"context"
	"errors"
	"testing"
)

func TestStateMachine_Execute_Success(t *testing.T) {
	sm := NewStateMachine()
	sm.RegisterTransition(StateInit, func(ctx context.Context, sc *SolveContext) (SolveState, error) {
		return StatePlanning, nil
	})
	sm.RegisterTransition(StatePlanning, func(ctx context.Context, sc *SolveContext) (SolveState, error) {
		sc.Plan = Plan{{Tool: "SUM", Args: []Arg{Number(1), Number(2)}}}
		return StateExecution, nil
	})
	sm.RegisterTransition(StateExecution, func(ctx context.Context, sc *SolveContext) (SolveState, error) {
		sc.Result = 3
		return StateComplete, nil
	})

	sc := NewSolveContext("run", "q", nil)
	sm.Execute(context.Background(), sc)

	if sc.CurrentState != StateComplete {
		t.Fatalf("expected complete, got %s", sc.CurrentState)
	}
	want := []SolveState{StateInit, StatePlanning, StateExecution}
	if len(sc.History) != len(want) {
		t.Fatalf("history = %v, want %v", sc.History, want)
	}
	for i := range want {
		if sc.History[i] != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, sc.History[i], want[i])
		}
	}
	outcome := sc.Outcome()
	if !outcome.OK() || outcome.Result != 3 || outcome.Err != nil {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if sc.GetTotalDuration() < 0 {
		t.Error("negative duration")
	}
}

func TestStateMachine_Execute_Failure(t *testing.T) {
	boom := errors.New("boom")
	sm := NewStateMachine()
	sm.RegisterTransition(StateInit, func(ctx context.Context, sc *SolveContext) (SolveState, error) {
		return StatePlanningFailed, boom
	})

	sc := NewSolveContext("run", "q", nil)
	sm.Execute(context.Background(), sc)

	if sc.CurrentState != StatePlanningFailed || sc.ErrorStage != StateInit || !errors.Is(sc.LastError, boom) {
		t.Errorf("unexpected failure record: state=%s stage=%s err=%v", sc.CurrentState, sc.ErrorStage, sc.LastError)
	}
	if sc.Outcome().Message() != "Planning failed: boom" {
		t.Errorf("unexpected message %q", sc.Outcome().Message())
	}
}

func TestStateMachine_Execute_MissingTransition(t *testing.T) {
	sc := NewSolveContext("run", "q", nil)
	NewStateMachine().Execute(context.Background(), sc)
	if sc.CurrentState != StateExecutionFailed || sc.LastError == nil {
		t.Errorf("expected execution failure for missing transition, got %s %v", sc.CurrentState, sc.LastError)
	}
}

func TestStateMachine_Execute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sc := NewSolveContext("run", "q", nil)
	NewStateMachine().Execute(ctx, sc)
	if sc.CurrentState != StateCancelled || !errors.Is(sc.LastError, context.Canceled) {
		t.Fatalf("expected cancelled, got %s %v", sc.CurrentState, sc.LastError)
	}
	if sc.Status() != StatusPlanningFailed {
		t.Errorf("cancelled without plan should be a planning failure, got %s", sc.Status())
	}

	sc.Plan = Plan{{Tool: "SUM"}}
	if sc.Status() != StatusExecutionFailed {
		t.Errorf("cancelled with plan should be an execution failure, got %s", sc.Status())
	}
}

func TestValidators(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	a, b := 0.1, 0.2
	drift := a + b
	tests := []struct {
		name      string
		validator Validator
		computed  float64
		expected  *float64
		want      bool
	}{
		{"exact match", NewValidator(0), 15, f(15), true},
		{"exact mismatch", NewValidator(0), 8, f(9), false},
		{"exact nil", NewValidator(0), 0, nil, false},
		{"exact float drift", NewValidator(0), drift, f(0.3), false},
		{"tolerance drift", NewValidator(1e-9), drift, f(0.3), true},
		{"tolerance outside", NewValidator(1e-9), 0.31, f(0.3), false},
		{"tolerance nil", NewValidator(1e-9), 0, nil, false},
	}
	for _, tt := range tests {
		if got := tt.validator.Validate(tt.computed, tt.expected); got != tt.want {
			t.Errorf("%s: Validate(%v) = %v, want %v", tt.name, tt.computed, got, tt.want)
		}
	}
}
