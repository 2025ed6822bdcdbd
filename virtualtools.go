// Package virtualtools answers arithmetic questions by executing model-generated
// tool-call plans, repairing failed steps once, and memoizing plans that
// produced the expected answer.
package virtualtools

import (
	"context"
	"log"

	"github.com/ZanzyTHEbar/virtualtools/internal/eventbus"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/ZanzyTHEbar/virtualtools"
	eventSource         = "orchestrator"
)

// Orchestrator runs the plan-cache and execution-with-repair loop.
type Orchestrator struct {
	// Core components
	planner   Planner
	executor  Executor
	store     PlanStore
	validator Validator
	eventBus  eventbus.EventBus

	// Observability
	tracer      trace.Tracer
	meter       metric.Meter
	instruments *instruments

	machine *StateMachine

	// Configuration
	config Config
}

// ModelConfig describes the language model behind the planner and corrector.
type ModelConfig struct {
	Name            string  `yaml:"name"`
	APIKey          string  `yaml:"api_key"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	Temperature     float64 `yaml:"temperature"`
}

// ToolsConfig controls the tool registry.
type ToolsConfig struct {
	// Enable UNRELIABLE_SUM/UNRELIABLE_PRODUCT faults
	FaultInjection bool `yaml:"fault_injection"`
	// PRNG seed for fault injection; zero seeds from the clock
	Seed int64 `yaml:"seed"`
}

// ValidationConfig controls result validation.
type ValidationConfig struct {
	// Zero means exact equality
	Tolerance float64 `yaml:"tolerance"`
}

// Config holds the configuration options for the virtualtools runtime.
type Config struct {
	// Plan store location, a local path or any afs URL
	CachePath  string           `yaml:"cache_path"`
	Model      ModelConfig      `yaml:"model"`
	Tools      ToolsConfig      `yaml:"tools"`
	Validation ValidationConfig `yaml:"validation"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CachePath: "virtual_tools.json",
		Model: ModelConfig{
			Name:            "googleai/gemini-1.5-flash",
			MaxOutputTokens: 150,
			Temperature:     0,
		},
	}
}

// Option is a function that configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig sets the configuration.
func WithConfig(config Config) Option {
	return func(o *Orchestrator) {
		o.config = config
	}
}

// WithPlanner sets the planner component.
func WithPlanner(planner Planner) Option {
	return func(o *Orchestrator) {
		o.planner = planner
	}
}

// WithExecutor sets the executor component.
func WithExecutor(executor Executor) Option {
	return func(o *Orchestrator) {
		o.executor = executor
	}
}

// WithPlanStore sets the plan cache.
func WithPlanStore(store PlanStore) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithValidator overrides the validator derived from Config.Validation.
func WithValidator(validator Validator) Option {
	return func(o *Orchestrator) {
		o.validator = validator
	}
}

// WithTracer sets the tracer used for solve spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithMeter sets the meter used for cache and outcome counters.
func WithMeter(meter metric.Meter) Option {
	return func(o *Orchestrator) {
		o.meter = meter
	}
}

// New creates a new Orchestrator with the provided options.
func New(options ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		config: DefaultConfig(),
	}

	for _, option := range options {
		option(o)
	}

	// Validate required components
	if o.planner == nil {
		return nil, NewConfigurationError("planner is required", nil)
	}
	if o.executor == nil {
		return nil, NewConfigurationError("executor is required", nil)
	}
	if o.store == nil {
		return nil, NewConfigurationError("plan store is required", nil)
	}

	if o.validator == nil {
		o.validator = NewValidator(o.config.Validation.Tolerance)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}
	if o.meter == nil {
		o.meter = otel.Meter(instrumentationName)
	}
	inst, err := newInstruments(o.meter)
	if err != nil {
		return nil, NewConfigurationError("failed to create metric instruments", err)
	}
	o.instruments = inst

	o.machine = NewStateMachine()
	o.machine.RegisterTransition(StateInit, o.lookupPlan)
	o.machine.RegisterTransition(StatePlanning, o.generatePlan)
	o.machine.RegisterTransition(StateExecution, o.executePlan)
	o.machine.RegisterTransition(StateValidation, o.validateResult)
	o.machine.RegisterTransition(StateCaching, o.cachePlan)

	return o, nil
}

// Config returns the orchestrator's configuration.
func (o *Orchestrator) Config() Config {
	return o.config
}

// Solve answers question. A nil expected value never validates, so such a
// call cannot succeed or populate the cache. Solve always returns an Outcome;
// tool and collaborator failures are reported through its Status.
func (o *Orchestrator) Solve(ctx context.Context, question string, expected *float64) Outcome {
	runID := uuid.New().String()
	ctx, span := o.tracer.Start(ctx, "virtualtools.solve", trace.WithAttributes(
		attribute.String("solve.run_id", runID),
		attribute.String("solve.question", question),
	))
	defer span.End()

	log.Printf("Solve starting (run_id: %s, question: %q)", runID, question)
	sc := NewSolveContext(runID, question, expected)
	o.machine.Execute(ctx, sc)
	outcome := sc.Outcome()

	o.instruments.recordOutcome(ctx, outcome.Status)
	span.SetAttributes(
		attribute.String("solve.status", string(outcome.Status)),
		attribute.Bool("solve.cache_hit", outcome.CacheHit),
	)
	if outcome.OK() {
		log.Printf("Solve finished (run_id: %s, result: %v, cache_hit: %t, duration: %s)", runID, outcome.Result, outcome.CacheHit, sc.GetTotalDuration())
		o.publish(ctx, eventbus.EventSolveSuccess, outcome, runID)
	} else {
		log.Printf("Solve failed (run_id: %s, status: %s, stage: %s, error: %v)", runID, outcome.Status, sc.ErrorStage, outcome.Err)
		if outcome.Err != nil {
			span.RecordError(outcome.Err)
		}
		span.SetStatus(codes.Error, outcome.Message())
		o.publish(ctx, eventbus.EventSolveFailure, outcome, runID)
	}
	return outcome
}

// lookupPlan uses a cached plan when one exists.
func (o *Orchestrator) lookupPlan(ctx context.Context, sc *SolveContext) (SolveState, error) {
	if o.store.Exists(ctx, sc.Question) {
		plan, err := o.store.Get(ctx, sc.Question)
		if err == nil {
			log.Printf("Using cached plan (question: %q, plan: %s)", sc.Question, plan)
			sc.Plan, sc.CacheHit = plan, true
			o.instruments.cacheHits.Add(ctx, 1)
			o.publish(ctx, eventbus.EventPlanCacheHit, plan, sc.RunID)
			return StateExecution, nil
		}
		log.Printf("Cached plan unreadable, falling back to planner (question: %q, error: %v)", sc.Question, err)
	}
	o.instruments.cacheMisses.Add(ctx, 1)
	o.publish(ctx, eventbus.EventPlanCacheMiss, sc.Question, sc.RunID)
	return StatePlanning, nil
}

// generatePlan asks the planner. Planner failures are not corrected.
func (o *Orchestrator) generatePlan(ctx context.Context, sc *SolveContext) (SolveState, error) {
	plan, err := o.planner.Plan(ctx, sc.Question)
	if err == nil && len(plan) == 0 {
		err = NewPlanParseError(errEmptyPlan)
	}
	if err != nil {
		o.publish(ctx, eventbus.EventPlanGenerationFailure, err, sc.RunID)
		return StatePlanningFailed, err
	}
	sc.Plan = plan
	o.publish(ctx, eventbus.EventPlanGenerated, plan, sc.RunID)
	return StateExecution, nil
}

// executePlan runs every step in order and stops at the first step without a result.
func (o *Orchestrator) executePlan(ctx context.Context, sc *SolveContext) (SolveState, error) {
	if len(sc.Plan) == 0 {
		return StateExecutionFailed, NewExecutionFailedError(0, "", errEmptyPlan)
	}
	for i, call := range sc.Plan {
		result := o.executor.Execute(ctx, call)
		sc.Steps = append(sc.Steps, result)
		if !result.OK {
			return StateExecutionFailed, NewExecutionFailedError(i, call.Tool, result.Err)
		}
		sc.Result = result.Value
	}
	return StateValidation, nil
}

// validateResult compares the last step's value with the expected one.
func (o *Orchestrator) validateResult(ctx context.Context, sc *SolveContext) (SolveState, error) {
	if !o.validator.Validate(sc.Result, sc.Expected) {
		return StateValidationFailed, NewValidationFailedError(sc.Result)
	}
	return StateCaching, nil
}

// cachePlan stores a freshly generated plan. Persistence failures are logged
// and do not change the outcome.
func (o *Orchestrator) cachePlan(ctx context.Context, sc *SolveContext) (SolveState, error) {
	if sc.CacheHit || o.store.Exists(ctx, sc.Question) {
		return StateComplete, nil
	}
	added, err := o.store.Add(ctx, sc.Question, sc.Plan)
	if added {
		o.instruments.cacheInserts.Add(ctx, 1)
	}
	if err != nil {
		log.Printf("Failed to cache plan (question: %q, error: %v)", sc.Question, err)
		o.publish(ctx, eventbus.EventPlanCacheFailed, err, sc.RunID)
		return StateComplete, nil
	}
	if added {
		o.publish(ctx, eventbus.EventPlanCached, sc.Plan, sc.RunID)
	}
	return StateComplete, nil
}

func (o *Orchestrator) publish(ctx context.Context, eventType eventbus.EventType, payload interface{}, runID string) {
	event := eventbus.NewEvent(eventType, payload, eventSource, map[string]interface{}{
		"run_id": runID,
	})
	if err := eventbus.PublishIfSet(ctx, o.eventBus, event); err != nil {
		log.Printf("Error publishing %s event: %v", eventType, err)
	}
}
