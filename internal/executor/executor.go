// Package executor runs single plan steps against the tool registry, repairing
// a failed step at most once through a Corrector.
package executor

import (
	"context"
	"log"
	"time"

	"github.com/ZanzyTHEbar/virtualtools"
	"github.com/ZanzyTHEbar/virtualtools/internal/eventbus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const eventSource = "executor"

// ToolInvoker resolves and calls a tool by name.
type ToolInvoker interface {
	Invoke(name string, args []virtualtools.Arg) (float64, error)
}

// StepExecutor implements virtualtools.Executor.
type StepExecutor struct {
	tools     ToolInvoker
	corrector virtualtools.Corrector
	tracer    trace.Tracer
	eventBus  eventbus.EventBus

	// Statistics and metrics
	metrics ExecutorMetrics
}

// ExecutorOption represents an option for configuring the StepExecutor.
type ExecutorOption func(*StepExecutor)

// WithTracer sets the tracer used for step spans.
func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *StepExecutor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithEventBus publishes step and correction events to bus.
func WithEventBus(bus eventbus.EventBus) ExecutorOption {
	return func(e *StepExecutor) {
		e.eventBus = bus
	}
}

// NewExecutor creates a step executor. A nil corrector makes every failure terminal.
func NewExecutor(tools ToolInvoker, corrector virtualtools.Corrector, options ...ExecutorOption) *StepExecutor {
	e := &StepExecutor{
		tools:     tools,
		corrector: corrector,
		tracer:    otel.Tracer("github.com/ZanzyTHEbar/virtualtools/executor"),
	}
	for _, option := range options {
		option(e)
	}
	if e.corrector == nil {
		log.Println("Warning: StepExecutor initialized without a corrector; failed steps will not be repaired.")
	}
	return e
}

// Execute runs call. On failure it asks the corrector for exactly one
// substitute call and runs that once. Failures never escape as errors: a step
// that cannot be completed returns a StepResult with OK == false.
func (e *StepExecutor) Execute(ctx context.Context, call virtualtools.ToolCall) virtualtools.StepResult {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "virtualtools.step", trace.WithAttributes(
		attribute.String("tool.name", call.Tool),
		attribute.String("tool.call", call.String()),
	))
	defer span.End()

	result := e.execute(ctx, span, call)
	e.metrics.record(result, time.Since(start))

	if result.OK {
		span.SetAttributes(attribute.Float64("step.result", result.Value), attribute.Bool("step.corrected", result.Corrected))
		e.publish(ctx, eventbus.EventStepSuccess, result)
	} else {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, "step failed")
		e.publish(ctx, eventbus.EventStepFailure, result)
	}
	return result
}

func (e *StepExecutor) execute(ctx context.Context, span trace.Span, call virtualtools.ToolCall) virtualtools.StepResult {
	result := virtualtools.StepResult{Call: call, Executed: call}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	value, err := e.tools.Invoke(call.Tool, call.Args)
	if err == nil {
		log.Printf("Step succeeded (call: %s, result: %v)", call, value)
		result.Value, result.OK = value, true
		return result
	}

	log.Printf("Step failed (call: %s, error: %v)", call, err)
	span.AddEvent("tool.failed", trace.WithAttributes(attribute.String("error", err.Error())))
	result.Err = err

	if e.corrector == nil {
		return result
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		result.Err = ctxErr
		return result
	}

	e.metrics.correctionAttempted()
	span.AddEvent("correction.attempted")
	e.publish(ctx, eventbus.EventCorrectionAttempted, result)

	corrected, corrErr := e.corrector.Correct(ctx, call.Tool, call.Args, err.Error())
	if corrErr != nil {
		return e.correctionFailed(ctx, span, result, corrErr)
	}
	log.Printf("Correction suggested (original: %s, corrected: %s)", call, corrected)
	result.Executed = corrected

	value, corrErr = e.tools.Invoke(corrected.Tool, corrected.Args)
	if corrErr != nil {
		return e.correctionFailed(ctx, span, result, corrErr)
	}

	log.Printf("Corrected step succeeded (call: %s, result: %v)", corrected, value)
	span.AddEvent("correction.succeeded", trace.WithAttributes(attribute.String("tool.corrected", corrected.String())))
	e.metrics.correctionSucceeded()
	result.Value, result.OK, result.Corrected = value, true, true
	e.publish(ctx, eventbus.EventCorrectionSuccess, result)
	return result
}

// correctionFailed marks the step terminally failed. The original failure stays
// reachable through the joined error.
func (e *StepExecutor) correctionFailed(ctx context.Context, span trace.Span, result virtualtools.StepResult, err error) virtualtools.StepResult {
	log.Printf("Correction failed (call: %s, error: %v)", result.Call, err)
	span.AddEvent("correction.failed", trace.WithAttributes(attribute.String("error", err.Error())))
	e.metrics.correctionFailed()
	result.Err = &StepError{Original: result.Err, Correction: err}
	result.OK = false
	e.publish(ctx, eventbus.EventCorrectionFailure, result)
	return result
}

func (e *StepExecutor) publish(ctx context.Context, eventType eventbus.EventType, result virtualtools.StepResult) {
	event := eventbus.NewEvent(eventType, result, eventSource, map[string]interface{}{
		"tool": result.Call.Tool,
	})
	if err := eventbus.PublishIfSet(ctx, e.eventBus, event); err != nil {
		log.Printf("Error publishing %s event: %v", eventType, err)
	}
}

// GetMetrics returns a snapshot of the executor's counters.
func (e *StepExecutor) GetMetrics() ExecutorMetrics {
	return e.metrics.Copy()
}

// ResetMetrics zeroes the executor's counters.
func (e *StepExecutor) ResetMetrics() {
	e.metrics.reset()
}

// StepError carries both failures of a step whose correction also failed.
type StepError struct {
	Original   error
	Correction error
}

func (e *StepError) Error() string {
	return "step failed: " + e.Original.Error() + "; correction failed: " + e.Correction.Error()
}

// Unwrap exposes both failures to errors.Is and errors.As.
func (e *StepError) Unwrap() []error {
	return []error{e.Original, e.Correction}
}
