package virtualtools

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names recorded by the orchestrator.
const (
	MetricPlanCacheHits    = "virtualtools.plan_cache.hits"
	MetricPlanCacheMisses  = "virtualtools.plan_cache.misses"
	MetricPlanCacheInserts = "virtualtools.plan_cache.inserts"
	MetricSolveOutcomes    = "virtualtools.solve.outcomes"
)

type instruments struct {
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	cacheInserts  metric.Int64Counter
	solveOutcomes metric.Int64Counter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	hits, err := meter.Int64Counter(
		MetricPlanCacheHits,
		metric.WithDescription("Questions answered from a cached plan"),
		metric.WithUnit("{question}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		MetricPlanCacheMisses,
		metric.WithDescription("Questions that required the planner"),
		metric.WithUnit("{question}"),
	)
	if err != nil {
		return nil, err
	}

	inserts, err := meter.Int64Counter(
		MetricPlanCacheInserts,
		metric.WithDescription("Validated plans added to the plan store"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return nil, err
	}

	outcomes, err := meter.Int64Counter(
		MetricSolveOutcomes,
		metric.WithDescription("Solve calls by terminal status"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &instruments{
		cacheHits:     hits,
		cacheMisses:   misses,
		cacheInserts:  inserts,
		solveOutcomes: outcomes,
	}, nil
}

func (i *instruments) recordOutcome(ctx context.Context, status Status) {
	i.solveOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
}
