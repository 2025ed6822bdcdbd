package adapters

import (
	"context"
	"log"
	"strings"

	"github.com/ZanzyTHEbar/virtualtools"
)

// GenkitCorrectorAdapter implements virtualtools.Corrector on top of a Genkit prompt.
type GenkitCorrectorAdapter struct {
	generator  Generator
	promptName string
}

// NewGenkitCorrectorAdapter creates a new corrector backed by generator.
func NewGenkitCorrectorAdapter(generator Generator) *GenkitCorrectorAdapter {
	return &GenkitCorrectorAdapter{generator: generator, promptName: CorrectorPrompt}
}

// Correct implements the virtualtools.Corrector interface.
func (a *GenkitCorrectorAdapter) Correct(ctx context.Context, toolName string, args []virtualtools.Arg, errMessage string) (virtualtools.ToolCall, error) {
	text, err := a.generator.Generate(ctx, a.promptName, map[string]interface{}{
		"tool":  toolName,
		"args":  formatArgs(args),
		"error": errMessage,
	})
	if err != nil {
		return virtualtools.ToolCall{}, virtualtools.NewCorrectionGenerationError(toolName, err)
	}

	call, err := ParseCorrection(text)
	if err != nil {
		log.Printf("Corrector returned unparseable output (tool: %s, raw_output: %q)", toolName, text)
		return virtualtools.ToolCall{}, err
	}
	return call, nil
}

func formatArgs(args []virtualtools.Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
