package adapters

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/virtualtools"
)

var (
	errEmptyResponse = errors.New("empty model response")
	errEmptyPlan     = errors.New("plan has no steps")
	errMissingTool   = errors.New("tool call has no tool name")
)

// ParsePlan decodes a model response into a Plan. The response must be exactly
// one JSON array of {"tool", "args"} objects with at least one element.
// Tool names are not checked against the registry.
func ParsePlan(text string) (virtualtools.Plan, error) {
	var plan virtualtools.Plan
	if err := decodeStrict(text, &plan); err != nil {
		return nil, virtualtools.NewPlanParseError(err)
	}
	if len(plan) == 0 {
		return nil, virtualtools.NewPlanParseError(errEmptyPlan)
	}
	for i, call := range plan {
		if call.Tool == "" {
			return nil, virtualtools.NewPlanParseError(fmt.Errorf("step %d: %w", i, errMissingTool))
		}
	}
	return plan, nil
}

// ParseCorrection decodes a model response into exactly one ToolCall. Both a
// bare object and a single-element array are accepted.
func ParseCorrection(text string) (virtualtools.ToolCall, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		var calls []virtualtools.ToolCall
		if err := decodeStrict(trimmed, &calls); err != nil {
			return virtualtools.ToolCall{}, virtualtools.NewCorrectionParseError(err)
		}
		if len(calls) != 1 {
			return virtualtools.ToolCall{}, virtualtools.NewCorrectionParseError(fmt.Errorf("expected exactly one tool call, got %d", len(calls)))
		}
		return checkCall(calls[0])
	}

	var call virtualtools.ToolCall
	if err := decodeStrict(trimmed, &call); err != nil {
		return virtualtools.ToolCall{}, virtualtools.NewCorrectionParseError(err)
	}
	return checkCall(call)
}

func checkCall(call virtualtools.ToolCall) (virtualtools.ToolCall, error) {
	if call.Tool == "" {
		return virtualtools.ToolCall{}, virtualtools.NewCorrectionParseError(errMissingTool)
	}
	return call, nil
}

// decodeStrict decodes a single JSON value and rejects trailing content.
func decodeStrict(text string, v interface{}) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return errEmptyResponse
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected trailing content after JSON value")
	}
	return nil
}
