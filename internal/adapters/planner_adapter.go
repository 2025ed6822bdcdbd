package adapters

import (
	"context"
	"log"

	"github.com/ZanzyTHEbar/virtualtools"
)

// Prompt names registered by the prompt package.
const (
	PlannerPrompt   = "virtualtools.planner"
	CorrectorPrompt = "virtualtools.corrector"
)

// Generator renders a named prompt with input and returns the model's text.
type Generator interface {
	Generate(ctx context.Context, promptName string, input map[string]interface{}) (string, error)
}

// GenkitPlannerAdapter implements virtualtools.Planner on top of a Genkit prompt.
type GenkitPlannerAdapter struct {
	generator  Generator
	promptName string
}

// PlannerOption configures a GenkitPlannerAdapter.
type PlannerOption func(*GenkitPlannerAdapter)

// WithPlannerPrompt overrides the prompt name.
func WithPlannerPrompt(name string) PlannerOption {
	return func(a *GenkitPlannerAdapter) {
		a.promptName = name
	}
}

// NewGenkitPlannerAdapter creates a new planner backed by generator.
func NewGenkitPlannerAdapter(generator Generator, options ...PlannerOption) *GenkitPlannerAdapter {
	a := &GenkitPlannerAdapter{generator: generator, promptName: PlannerPrompt}
	for _, option := range options {
		option(a)
	}
	return a
}

// Plan implements the virtualtools.Planner interface.
func (a *GenkitPlannerAdapter) Plan(ctx context.Context, question string) (virtualtools.Plan, error) {
	text, err := a.generator.Generate(ctx, a.promptName, map[string]interface{}{
		"question": question,
	})
	if err != nil {
		return nil, virtualtools.NewPlanGenerationError(err)
	}

	plan, err := ParsePlan(text)
	if err != nil {
		log.Printf("Planner returned unparseable output (question: %q, raw_output: %q)", question, text)
		return nil, err
	}
	log.Printf("Plan generated (question: %q, plan: %s)", question, plan)
	return plan, nil
}
