package virtualtools_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/virtualtools"
	"github.com/ZanzyTHEbar/virtualtools/internal/cache"
	"github.com/ZanzyTHEbar/virtualtools/internal/eventbus"
	"github.com/ZanzyTHEbar/virtualtools/internal/executor"
	"github.com/ZanzyTHEbar/virtualtools/internal/tools"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// scriptedPlanner returns canned plans per question and counts calls.
type scriptedPlanner struct {
	plans map[string]virtualtools.Plan
	err   error
	calls int
}

func (p *scriptedPlanner) Plan(ctx context.Context, question string) (virtualtools.Plan, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	plan, ok := p.plans[question]
	if !ok {
		return nil, virtualtools.NewPlanParseError(errors.New("no scripted plan"))
	}
	return plan.Clone(), nil
}

// scriptedCorrector always suggests the same call.
type scriptedCorrector struct {
	call  virtualtools.ToolCall
	err   error
	calls int
}

func (c *scriptedCorrector) Correct(ctx context.Context, toolName string, args []virtualtools.Arg, errMessage string) (virtualtools.ToolCall, error) {
	c.calls++
	return c.call, c.err
}

func call(t *testing.T, tool string, args ...any) virtualtools.ToolCall {
	t.Helper()
	c, err := virtualtools.NewToolCall(tool, args...)
	if err != nil {
		t.Fatalf("NewToolCall failed: %v", err)
	}
	return c
}

func expect(v float64) *float64 { return &v }

type harness struct {
	planner   *scriptedPlanner
	corrector *scriptedCorrector
	store     *cache.FilePlanStore
	path      string
	system    *virtualtools.Orchestrator
}

func newHarness(t *testing.T, path string, plans map[string]virtualtools.Plan, options ...virtualtools.Option) *harness {
	t.Helper()
	h := &harness{
		planner:   &scriptedPlanner{plans: plans},
		corrector: &scriptedCorrector{err: virtualtools.NewCorrectionParseError(errors.New("no suggestion"))},
		path:      path,
	}
	h.store = cache.NewFilePlanStore(context.Background(), path)
	base := []virtualtools.Option{
		virtualtools.WithPlanner(h.planner),
		virtualtools.WithExecutor(executor.NewExecutor(tools.NewRegistry(), h.corrector)),
		virtualtools.WithPlanStore(h.store),
	}
	system, err := virtualtools.New(append(base, options...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h.system = system
	return h
}

func outcomeJSON(t *testing.T, o virtualtools.Outcome) string {
	t.Helper()
	b, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal outcome: %v", err)
	}
	return string(b)
}

func TestSolve_SuccessThenCacheHit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "virtual_tools.json")
	q := "What is the product of 3 and 5?"
	h := newHarness(t, path, map[string]virtualtools.Plan{q: {call(t, "PRODUCT", 3, 5)}})

	first := h.system.Solve(ctx, q, expect(15))
	if got := outcomeJSON(t, first); got != `{"result":15}` {
		t.Fatalf("first solve = %s", got)
	}
	if first.CacheHit {
		t.Error("first solve should not be a cache hit")
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cache file not written: %v", err)
	}

	second := h.system.Solve(ctx, q, expect(15))
	if got := outcomeJSON(t, second); got != `{"result":15}` {
		t.Fatalf("second solve = %s", got)
	}
	if !second.CacheHit {
		t.Error("second solve should be a cache hit")
	}
	if h.planner.calls != 1 {
		t.Errorf("planner called %d times, want 1", h.planner.calls)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("cache file changed on cache-hit solve")
	}
}

func TestSolve_Quotient(t *testing.T) {
	q := "What is 20 divided by 4?"
	h := newHarness(t, filepath.Join(t.TempDir(), "c.json"), map[string]virtualtools.Plan{q: {call(t, "QUOTIENT", 20, 4)}})
	if got := outcomeJSON(t, h.system.Solve(context.Background(), q, expect(5))); got != `{"result":5}` {
		t.Errorf("solve = %s", got)
	}
}

func TestSolve_ExecutionFailedAfterCorrection(t *testing.T) {
	tests := []struct {
		question string
		plan     virtualtools.Plan
		fix      virtualtools.ToolCall
	}{
		{"What is 10 divided by 0?", virtualtools.Plan{call(t, "QUOTIENT", 10, 0)}, call(t, "QUOTIENT", 10, 0)},
		{"What is the square root of -16?", virtualtools.Plan{call(t, "SQRT", -16)}, call(t, "SQRT", -16)},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			h := newHarness(t, filepath.Join(t.TempDir(), "c.json"), map[string]virtualtools.Plan{tt.question: tt.plan})
			h.corrector.call, h.corrector.err = tt.fix, nil

			outcome := h.system.Solve(context.Background(), tt.question, nil)
			if got := outcomeJSON(t, outcome); got != `{"error":"Execution failed"}` {
				t.Errorf("solve = %s", got)
			}
			if !errors.Is(outcome.Err, virtualtools.ErrExecutionFailed) {
				t.Errorf("expected ExecutionFailed error, got %v", outcome.Err)
			}
			if h.corrector.calls != 1 {
				t.Errorf("corrector called %d times, want 1", h.corrector.calls)
			}
			if h.store.Exists(context.Background(), tt.question) {
				t.Error("failed question must not be cached")
			}
		})
	}
}

func TestSolve_ValidationGatesCaching(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	q := "What is 5 plus 3?"
	plans := map[string]virtualtools.Plan{q: {call(t, "SUM", 5, 3)}}

	wrong := newHarness(t, filepath.Join(dir, "wrong.json"), plans)
	if got := outcomeJSON(t, wrong.system.Solve(ctx, q, expect(9))); got != `{"error":"Validation failed"}` {
		t.Errorf("solve with wrong expectation = %s", got)
	}
	if wrong.store.Exists(ctx, q) {
		t.Error("validation failure must not be cached")
	}

	right := newHarness(t, filepath.Join(dir, "right.json"), plans)
	if got := outcomeJSON(t, right.system.Solve(ctx, q, expect(8))); got != `{"result":8}` {
		t.Errorf("solve with right expectation = %s", got)
	}
	if !right.store.Exists(ctx, q) {
		t.Error("validated plan should be cached")
	}
}

func TestSolve_NilExpectedNeverCaches(t *testing.T) {
	q := "What is 5 plus 3?"
	h := newHarness(t, filepath.Join(t.TempDir(), "c.json"), map[string]virtualtools.Plan{q: {call(t, "SUM", 5, 3)}})
	outcome := h.system.Solve(context.Background(), q, nil)
	if outcome.Status != virtualtools.StatusValidationFailed {
		t.Errorf("expected validation failure, got %s", outcome.Status)
	}
	if h.store.Exists(context.Background(), q) {
		t.Error("unvalidated plan must not be cached")
	}
}

func TestSolve_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "virtual_tools.json")
	q := "What is 2 to the power of 10?"
	first := newHarness(t, path, map[string]virtualtools.Plan{q: {call(t, "POWER", 2, 10)}})
	if !first.system.Solve(ctx, q, expect(1024)).OK() {
		t.Fatal("first solve failed")
	}

	second := newHarness(t, path, nil)
	outcome := second.system.Solve(ctx, q, expect(1024))
	if !outcome.OK() || !outcome.CacheHit {
		t.Errorf("expected cache hit from prior instance, got %+v", outcome)
	}
	if second.planner.calls != 0 {
		t.Errorf("planner should not be called, got %d calls", second.planner.calls)
	}
}

func TestSolve_UnreadableCachedPlanFallsBackToPlanner(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "virtual_tools.json")
	q := "What is 2 plus two?"
	raw := `{"What is 2 plus two?":[{"tool":"SUM","args":[2,"two"]}]}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, path, map[string]virtualtools.Plan{q: {call(t, "SUM", 2, 2)}})
	outcome := h.system.Solve(ctx, q, expect(4))
	if got := outcomeJSON(t, outcome); got != `{"result":4}` {
		t.Fatalf("solve = %s", got)
	}
	if outcome.CacheHit || h.planner.calls != 1 {
		t.Errorf("expected planner fallback, cache_hit=%v planner calls=%d", outcome.CacheHit, h.planner.calls)
	}
	data, _ := os.ReadFile(path)
	var onDisk map[string][]map[string]interface{}
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("cache file unreadable: %v", err)
	}
	args, _ := onDisk[q][0]["args"].([]interface{})
	if len(args) != 2 || args[1] != "two" {
		t.Errorf("unreadable entry was overwritten: %s", data)
	}
}

func TestSolve_SeededPlanWins(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "virtual_tools.json")
	q := "What is 6 times 7?"
	seed := cache.NewFilePlanStore(ctx, path)
	if _, err := seed.Add(ctx, q, virtualtools.Plan{call(t, "SUM", 40, 2)}); err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	h := newHarness(t, path, map[string]virtualtools.Plan{q: {call(t, "PRODUCT", 6, 7)}})
	outcome := h.system.Solve(ctx, q, expect(42))
	if !outcome.OK() || outcome.Plan.String() != "SUM(40, 2)" {
		t.Errorf("expected seeded plan to run, got %+v", outcome)
	}
	if h.planner.calls != 0 {
		t.Errorf("planner should not be called for a seeded question, got %d calls", h.planner.calls)
	}
}

func TestSolve_PlanningFailed(t *testing.T) {
	q := "What is the meaning of life?"
	h := newHarness(t, filepath.Join(t.TempDir(), "c.json"), nil)
	h.planner.err = virtualtools.NewPlanParseError(errors.New("invalid character 'T'"))

	outcome := h.system.Solve(context.Background(), q, expect(42))
	if outcome.Status != virtualtools.StatusPlanningFailed {
		t.Fatalf("expected planning failure, got %s", outcome.Status)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(outcomeJSON(t, outcome)), &body); err != nil {
		t.Fatal(err)
	}
	if msg := body["error"]; len(msg) < len("Planning failed: ") || msg[:len("Planning failed: ")] != "Planning failed: " {
		t.Errorf("unexpected error message %q", msg)
	}
	if h.corrector.calls != 0 {
		t.Error("planner failures must not be corrected")
	}
	if h.store.Exists(context.Background(), q) {
		t.Error("nothing should be cached after a planning failure")
	}
}

func TestSolve_EmptyPlanIsPlanningFailure(t *testing.T) {
	q := "Nothing to do"
	h := newHarness(t, filepath.Join(t.TempDir(), "c.json"), map[string]virtualtools.Plan{q: {}})
	outcome := h.system.Solve(context.Background(), q, expect(0))
	if outcome.Status != virtualtools.StatusPlanningFailed || !errors.Is(outcome.Err, virtualtools.ErrPlanParse) {
		t.Errorf("expected PlanParse planning failure, got %s %v", outcome.Status, outcome.Err)
	}
}

func TestSolve_EmptyCachedPlanIsExecutionFailure(t *testing.T) {
	ctx := context.Background()
	q := "Nothing cached"
	store := cache.NewMemoryPlanStore(map[string]virtualtools.Plan{q: {}})
	system, err := virtualtools.New(
		virtualtools.WithPlanner(&scriptedPlanner{}),
		virtualtools.WithExecutor(executor.NewExecutor(tools.NewRegistry(), nil)),
		virtualtools.WithPlanStore(store),
	)
	if err != nil {
		t.Fatal(err)
	}
	if outcome := system.Solve(ctx, q, expect(0)); outcome.Status != virtualtools.StatusExecutionFailed {
		t.Errorf("expected execution failure, got %s", outcome.Status)
	}
}

func TestSolve_LastStepOnlyAndAbortOnFailure(t *testing.T) {
	ctx := context.Background()
	multi := "Add 1 and 2, then multiply 3 by 4"
	broken := "Divide 1 by 0 then add 1 and 1"
	h := newHarness(t, filepath.Join(t.TempDir(), "c.json"), map[string]virtualtools.Plan{
		multi:  {call(t, "SUM", 1, 2), call(t, "PRODUCT", 3, 4)},
		broken: {call(t, "QUOTIENT", 1, 0), call(t, "SUM", 1, 1)},
	})

	outcome := h.system.Solve(ctx, multi, expect(12))
	if !outcome.OK() || outcome.Result != 12 || len(outcome.Steps) != 2 {
		t.Errorf("expected result 12 from last step, got %+v", outcome)
	}

	outcome = h.system.Solve(ctx, broken, expect(2))
	if outcome.Status != virtualtools.StatusExecutionFailed {
		t.Fatalf("expected execution failure, got %s", outcome.Status)
	}
	if len(outcome.Steps) != 1 {
		t.Errorf("remaining steps should not run, got %d steps", len(outcome.Steps))
	}
}

func TestSolve_CorrectedStepCachesPlannedCall(t *testing.T) {
	ctx := context.Background()
	q := "What is 10 divided by 2?"
	h := newHarness(t, filepath.Join(t.TempDir(), "c.json"), map[string]virtualtools.Plan{q: {call(t, "QUOTIENT", 10, 0)}})
	h.corrector.call, h.corrector.err = call(t, "QUOTIENT", 10, 2), nil

	outcome := h.system.Solve(ctx, q, expect(5))
	if !outcome.OK() || !outcome.Steps[0].Corrected {
		t.Fatalf("expected corrected success, got %+v", outcome)
	}
	cached, err := h.store.Get(ctx, q)
	if err != nil {
		t.Fatalf("plan not cached: %v", err)
	}
	if cached.String() != "QUOTIENT(10, 0)" {
		t.Errorf("cached plan = %s, want the planned call", cached)
	}
}

func TestSolve_FaultInjectionRepair(t *testing.T) {
	q := "What is 5 plus 3, unreliably?"
	h := &harness{
		planner:   &scriptedPlanner{plans: map[string]virtualtools.Plan{q: {call(t, "UNRELIABLE_SUM", 5, 3)}}},
		corrector: &scriptedCorrector{call: call(t, "SUM", 5, 3)},
	}
	registry := tools.NewRegistry(tools.WithFaultInjector(tools.FixedFaultInjector{Fault: tools.Fault{Kind: tools.FaultError}}))
	system, err := virtualtools.New(
		virtualtools.WithPlanner(h.planner),
		virtualtools.WithExecutor(executor.NewExecutor(registry, h.corrector)),
		virtualtools.WithPlanStore(cache.NewMemoryPlanStore(nil)),
	)
	if err != nil {
		t.Fatal(err)
	}
	outcome := system.Solve(context.Background(), q, expect(8))
	if !outcome.OK() || h.corrector.calls != 1 {
		t.Errorf("expected repaired success, got %+v (corrections: %d)", outcome, h.corrector.calls)
	}
	if !errors.Is(outcome.Steps[0].Err, virtualtools.ErrSimulatedFault) {
		t.Errorf("expected SimulatedFault to be recorded, got %v", outcome.Steps[0].Err)
	}
}

func TestSolve_Tolerance(t *testing.T) {
	ctx := context.Background()
	q := "What is 1 divided by 3?"
	plans := map[string]virtualtools.Plan{q: {call(t, "QUOTIENT", 1, 3)}}

	strict := newHarness(t, filepath.Join(t.TempDir(), "a.json"), plans)
	if strict.system.Solve(ctx, q, expect(0.3333)).OK() {
		t.Error("exact validation should reject an approximate expectation")
	}

	cfg := virtualtools.DefaultConfig()
	cfg.Validation.Tolerance = 1e-3
	tolerant := newHarness(t, filepath.Join(t.TempDir(), "b.json"), plans, virtualtools.WithConfig(cfg))
	if !tolerant.system.Solve(ctx, q, expect(0.3333)).OK() {
		t.Error("tolerance validation should accept an approximate expectation")
	}
}

func TestSolve_Observability(t *testing.T) {
	ctx := context.Background()
	q := "What is 3 times 5?"

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	bus := eventbus.NewSyncEventBus()
	var events []eventbus.EventType
	_, _ = bus.SubscribeAll(func(ctx context.Context, event eventbus.Event) error {
		events = append(events, event.Type())
		return nil
	})

	h := newHarness(t, filepath.Join(t.TempDir(), "c.json"), map[string]virtualtools.Plan{q: {call(t, "PRODUCT", 3, 5)}},
		virtualtools.WithTracer(tp.Tracer("test")),
		virtualtools.WithMeter(mp.Meter("test")),
		virtualtools.WithEventBus(bus),
	)
	h.system.Solve(ctx, q, expect(15))
	h.system.Solve(ctx, q, expect(15))

	want := []eventbus.EventType{
		eventbus.EventPlanCacheMiss, eventbus.EventPlanGenerated, eventbus.EventPlanCached, eventbus.EventSolveSuccess,
		eventbus.EventPlanCacheHit, eventbus.EventSolveSuccess,
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, events[i], want[i])
		}
	}

	solveSpans := 0
	for _, span := range recorder.Ended() {
		if span.Name() == "virtualtools.solve" {
			solveSpans++
		}
	}
	if solveSpans != 2 {
		t.Errorf("expected 2 solve spans, got %d", solveSpans)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	for name, wantValue := range map[string]int64{
		virtualtools.MetricPlanCacheHits:    1,
		virtualtools.MetricPlanCacheMisses:  1,
		virtualtools.MetricPlanCacheInserts: 1,
		virtualtools.MetricSolveOutcomes:    2,
	} {
		if got := sumMetric(rm, name); got != wantValue {
			t.Errorf("%s = %d, want %d", name, got, wantValue)
		}
	}
}

func sumMetric(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestNew_RequiresComponents(t *testing.T) {
	store := cache.NewMemoryPlanStore(nil)
	exec := executor.NewExecutor(tools.NewRegistry(), nil)
	planner := &scriptedPlanner{}

	cases := map[string][]virtualtools.Option{
		"no planner":  {virtualtools.WithExecutor(exec), virtualtools.WithPlanStore(store)},
		"no executor": {virtualtools.WithPlanner(planner), virtualtools.WithPlanStore(store)},
		"no store":    {virtualtools.WithPlanner(planner), virtualtools.WithExecutor(exec)},
	}
	for name, opts := range cases {
		if _, err := virtualtools.New(opts...); !errors.Is(err, virtualtools.ErrConfiguration) {
			t.Errorf("%s: expected configuration error, got %v", name, err)
		}
	}
}
