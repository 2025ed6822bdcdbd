package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/virtualtools"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), virtualtools.ModelConfig{Name: "googleai/gemini-1.5-flash"}, []string{"SUM"})
	if !errors.Is(err, virtualtools.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestTemplates(t *testing.T) {
	for name, tmpl := range map[string]string{"planner": plannerTemplate, "corrector": correctorTemplate} {
		if !strings.Contains(tmpl, "{{> toolNames}}") {
			t.Errorf("%s template does not list the tool names", name)
		}
	}
	if !strings.Contains(plannerTemplate, "{{{question}}}") {
		t.Error("planner template does not embed the question")
	}
	for _, field := range []string{"{{tool}}", "{{args}}", "{{{error}}}"} {
		if !strings.Contains(correctorTemplate, field) {
			t.Errorf("corrector template is missing %s", field)
		}
	}
}
