// Package prompt owns the Genkit instance and the planner/corrector prompts.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/virtualtools"
	"github.com/ZanzyTHEbar/virtualtools/internal/adapters"
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	googleai "github.com/firebase/genkit/go/plugins/googlegenai"
)

// Registry manages the loading and execution of Genkit prompts.
type Registry struct {
	genkitInstance *genkit.Genkit
}

// NewRegistry initializes the Genkit environment and creates a prompt registry.
// It takes Genkit initialization options, such as plugin configurations and the prompt directory.
func NewRegistry(ctx context.Context, opts ...genkit.GenkitOption) (*Registry, error) {
	g, err := genkit.Init(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Genkit: %w", err)
	}

	return &Registry{
		genkitInstance: g,
	}, nil
}

// New creates a registry for the Google AI plugin described by cfg and defines
// the planner and corrector prompts restricted to toolNames.
func New(ctx context.Context, cfg virtualtools.ModelConfig, toolNames []string) (*Registry, error) {
	if cfg.APIKey == "" {
		return nil, virtualtools.NewConfigurationError("model API key is not set", nil)
	}
	r, err := NewRegistry(ctx,
		genkit.WithPlugins(&googleai.GoogleAI{APIKey: cfg.APIKey}),
		genkit.WithDefaultModel(cfg.Name),
	)
	if err != nil {
		return nil, virtualtools.NewConfigurationError("genkit initialization failed", err)
	}
	if err := r.DefineToolPrompts(cfg, toolNames); err != nil {
		return nil, virtualtools.NewConfigurationError("prompt definition failed", err)
	}
	return r, nil
}

// DefineToolPrompts registers the planner and corrector prompts.
func (r *Registry) DefineToolPrompts(cfg virtualtools.ModelConfig, toolNames []string) error {
	if err := r.DefinePartial("toolNames", strings.Join(toolNames, ", ")); err != nil {
		return err
	}
	config := &ai.GenerationCommonConfig{
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     cfg.Temperature,
	}
	if _, err := r.DefinePrompt(adapters.PlannerPrompt,
		ai.WithPrompt(plannerTemplate),
		ai.WithModelName(cfg.Name),
		ai.WithConfig(config),
	); err != nil {
		return err
	}
	if _, err := r.DefinePrompt(adapters.CorrectorPrompt,
		ai.WithPrompt(correctorTemplate),
		ai.WithModelName(cfg.Name),
		ai.WithConfig(config),
	); err != nil {
		return err
	}
	return nil
}

// GetPrompt retrieves a loaded prompt by its name using Genkit's lookup.
func (r *Registry) GetPrompt(name string) (*ai.Prompt, error) {
	p := genkit.LookupPrompt(r.genkitInstance, name)
	if p == nil {
		return nil, fmt.Errorf("prompt '%s' not found", name)
	}
	return p, nil
}

// ExecutePrompt retrieves a prompt by name, renders it with the given input,
// and executes it using the Genkit instance.
// It returns the generated response from the underlying model.
func (r *Registry) ExecutePrompt(ctx context.Context, promptName string, input map[string]interface{}, execOpts ...ai.PromptExecuteOption) (*ai.ModelResponse, error) {
	p, err := r.GetPrompt(promptName)
	if err != nil {
		return nil, err
	}

	allOpts := append([]ai.PromptExecuteOption{ai.WithInput(input)}, execOpts...)

	resp, err := p.Execute(ctx, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute prompt '%s': %w", promptName, err)
	}

	return resp, nil
}

// Generate implements adapters.Generator.
func (r *Registry) Generate(ctx context.Context, promptName string, input map[string]interface{}) (string, error) {
	resp, err := r.ExecutePrompt(ctx, promptName, input)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// DefinePrompt allows defining prompts programmatically via the registry.
func (r *Registry) DefinePrompt(name string, opts ...ai.PromptOption) (*ai.Prompt, error) {
	p, err := genkit.DefinePrompt(r.genkitInstance, name, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to define prompt '%s': %w", name, err)
	}
	return p, nil
}

// DefinePartial allows defining partials programmatically via the registry.
func (r *Registry) DefinePartial(name, template string) error {
	err := genkit.DefinePartial(r.genkitInstance, name, template)
	if err != nil {
		return fmt.Errorf("failed to define partial '%s': %w", name, err)
	}
	return nil
}
