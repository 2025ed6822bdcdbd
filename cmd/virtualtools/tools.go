package main

import (
	"fmt"
	"strings"
)

// ToolsCmd prints the tool registry.
type ToolsCmd struct{}

func (t *ToolsCmd) Execute(_ []string) error {
	ctx, cancel := commandContext()
	defer cancel()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	registry := newToolRegistry(cfg)

	for _, tool := range registry.Tools() {
		fmt.Printf("%-20s (%s) -> %s\n", tool.Name(), strings.Join(tool.Parameters(), ", "), tool.Returns())
		if tool.Description() != "" {
			fmt.Printf("    %s\n", tool.Description())
		}
	}
	if registry.FaultInjectionEnabled() {
		fmt.Println("fault injection: enabled")
	}
	return nil
}
