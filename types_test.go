package virtualtools

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestToolCall_JSON(t *testing.T) {
	var plan Plan
	if err := json.Unmarshal([]byte(`[{"tool":"SUM","args":[5,3]},{"tool":"AVG","args":[[1,2.5]]}]`), &plan); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if plan.String() != "SUM(5, 3) -> AVG([1, 2.5])" {
		t.Errorf("unexpected plan: %s", plan)
	}

	b, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != `[{"tool":"SUM","args":[5,3]},{"tool":"AVG","args":[[1,2.5]]}]` {
		t.Errorf("unexpected encoding: %s", b)
	}

	empty, _ := json.Marshal(ToolCall{Tool: "ABS"})
	if string(empty) != `{"tool":"ABS","args":[]}` {
		t.Errorf("nil args should encode as []: %s", empty)
	}
}

func TestArg_RejectsNonNumbers(t *testing.T) {
	for _, in := range []string{`"5"`, `null`, `true`, `{"a":1}`, `[1,"2"]`} {
		var a Arg
		if err := json.Unmarshal([]byte(in), &a); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
	if _, err := NewToolCall("SUM", "5", 3); err == nil {
		t.Error("expected error for string argument")
	}
}

func TestOutcome_JSON(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{Outcome{Status: StatusSuccess, Result: 15}, `{"result":15}`},
		{Outcome{Status: StatusSuccess, Result: 2.5}, `{"result":2.5}`},
		{Outcome{Status: StatusExecutionFailed}, `{"error":"Execution failed"}`},
		{Outcome{Status: StatusValidationFailed}, `{"error":"Validation failed"}`},
		{Outcome{Status: StatusPlanningFailed, Err: errors.New("bad plan")}, `{"error":"Planning failed: bad plan"}`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.outcome)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(b) != tt.want {
			t.Errorf("got %s, want %s", b, tt.want)
		}
	}
}

func TestError_IsByCode(t *testing.T) {
	err := NewExecutionFailedError(2, "SQRT", NewNegativeInputError("SQRT", -4))
	if !errors.Is(err, ErrExecutionFailed) {
		t.Error("expected ExecutionFailed match")
	}
	if !errors.Is(err, ErrNegativeInput) {
		t.Error("expected cause to match through Unwrap")
	}
	if errors.Is(err, ErrDivisionByZero) {
		t.Error("unexpected DivisionByZero match")
	}
	if CodeOf(err) != ErrCodeExecutionFailed {
		t.Errorf("CodeOf = %s", CodeOf(err))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("CodeOf should be empty for foreign errors")
	}
}
