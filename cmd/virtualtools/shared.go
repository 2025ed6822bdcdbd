package main

import (
	"context"
	"log"
	"os"

	"github.com/ZanzyTHEbar/virtualtools"
	"github.com/ZanzyTHEbar/virtualtools/internal/adapters"
	"github.com/ZanzyTHEbar/virtualtools/internal/cache"
	"github.com/ZanzyTHEbar/virtualtools/internal/config"
	"github.com/ZanzyTHEbar/virtualtools/internal/eventbus"
	"github.com/ZanzyTHEbar/virtualtools/internal/executor"
	"github.com/ZanzyTHEbar/virtualtools/internal/prompt"
	"github.com/ZanzyTHEbar/virtualtools/internal/tools"
)

func commandContext() (context.Context, context.CancelFunc) {
	if options.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), options.Timeout)
}

// loadConfig reads the config file and applies environment and flag overrides.
func loadConfig(ctx context.Context) (virtualtools.Config, error) {
	cfg, err := config.Load(ctx, options.Config)
	if err != nil {
		return cfg, err
	}
	cfg = config.FromEnv(cfg, os.Getenv)
	if options.Cache != "" {
		cfg.CachePath = options.Cache
	}
	if options.Faults {
		cfg.Tools.FaultInjection = true
	}
	return cfg, config.Validate(cfg)
}

func newToolRegistry(cfg virtualtools.Config) *tools.Registry {
	if !cfg.Tools.FaultInjection {
		return tools.NewRegistry()
	}
	return tools.NewRegistry(tools.WithFaultInjector(tools.NewRandomFaultInjector(cfg.Tools.Seed)))
}

func newPlanStore(ctx context.Context, cfg virtualtools.Config) *cache.FilePlanStore {
	return cache.NewFilePlanStore(ctx, cfg.CachePath, cache.WithLogger(&cache.StdLogger{}))
}

func newEventBus() *eventbus.SyncEventBus {
	bus := eventbus.NewSyncEventBus()
	if options.Verbose {
		_, _ = bus.SubscribeAll(func(ctx context.Context, event eventbus.Event) error {
			log.Printf("EVENT: %s (source: %s, run_id: %v)", event.Type(), event.Source(), event.Metadata()["run_id"])
			return nil
		})
	}
	return bus
}

// newOrchestrator wires the model-backed planner and corrector, the tool
// registry and the file plan store into an Orchestrator.
func newOrchestrator(ctx context.Context, cfg virtualtools.Config) (*virtualtools.Orchestrator, error) {
	registry := newToolRegistry(cfg)
	prompts, err := prompt.New(ctx, cfg.Model, registry.Names())
	if err != nil {
		return nil, err
	}
	bus := newEventBus()

	planner := adapters.NewGenkitPlannerAdapter(prompts)
	corrector := adapters.NewGenkitCorrectorAdapter(prompts)
	stepExecutor := executor.NewExecutor(registry, corrector, executor.WithEventBus(bus))

	return virtualtools.New(
		virtualtools.WithConfig(cfg),
		virtualtools.WithPlanner(planner),
		virtualtools.WithExecutor(stepExecutor),
		virtualtools.WithPlanStore(newPlanStore(ctx, cfg)),
		virtualtools.WithEventBus(bus),
	)
}
