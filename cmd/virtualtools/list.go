package main

import (
	"encoding/json"
	"fmt"

	"github.com/ZanzyTHEbar/virtualtools"
)

// ListCmd prints the plan cache.
type ListCmd struct {
	JSON bool `long:"json" description:"print the cache as a JSON object"`
}

func (l *ListCmd) Execute(_ []string) error {
	ctx, cancel := commandContext()
	defer cancel()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	store := newPlanStore(ctx, cfg)

	entries := map[string]virtualtools.Plan{}
	questions := store.Questions(ctx)
	for _, question := range questions {
		plan, err := store.Get(ctx, question)
		if err != nil {
			return err
		}
		entries[question] = plan
	}

	if l.JSON {
		data, err := json.MarshalIndent(entries, "", "    ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	if len(questions) == 0 {
		fmt.Printf("no cached plans in %s\n", store.Location())
		return nil
	}
	for _, question := range questions {
		fmt.Printf("%q\n    %s\n", question, entries[question])
	}
	return nil
}
