package main

import (
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/virtualtools/internal/cache"
)

// SeedCmd loads plan files into the plan cache. Existing entries are kept.
type SeedCmd struct{}

func (s *SeedCmd) Execute(args []string) error {
	if len(args) == 0 {
		return errors.New("seed: at least one plan file is required")
	}
	ctx, cancel := commandContext()
	defer cancel()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	store := newPlanStore(ctx, cfg)

	for _, source := range args {
		plans, err := cache.LoadAndValidatePlanFile(ctx, source)
		if err != nil {
			return err
		}
		added, err := cache.Seed(ctx, store, plans)
		if err != nil {
			return fmt.Errorf("seed %s: %w", source, err)
		}
		fmt.Printf("%s: added %d of %d plans to %s\n", source, added, len(plans), store.Location())
	}
	return nil
}
