package main

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SolveCmd answers one question.
type SolveCmd struct {
	Question string `short:"q" long:"question" required:"true" description:"question to answer"`
	Expected string `short:"e" long:"expected" description:"expected numeric answer; without it the result is never cached"`
}

func (s *SolveCmd) Execute(_ []string) error {
	var expected *float64
	if s.Expected != "" {
		v, err := strconv.ParseFloat(s.Expected, 64)
		if err != nil {
			return fmt.Errorf("invalid expected value %q: %w", s.Expected, err)
		}
		expected = &v
	}

	ctx, cancel := commandContext()
	defer cancel()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	orchestrator, err := newOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}

	outcome := orchestrator.Solve(ctx, s.Question, expected)
	data, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	if !outcome.OK() {
		return fmt.Errorf("solve: %s", outcome.Message())
	}
	return nil
}
