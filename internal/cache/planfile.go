package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/ZanzyTHEbar/virtualtools"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// PlanFile is a hand-written set of question -> plan entries used to seed a PlanStore.
type PlanFile struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Entries     []PlanEntry `yaml:"entries" json:"entries"`
}

type PlanEntry struct {
	Question string     `yaml:"question" json:"question"`
	Plan     []PlanStep `yaml:"plan" json:"plan"`
}

type PlanStep struct {
	Tool string        `yaml:"tool" json:"tool"`
	Args []interface{} `yaml:"args" json:"args"`
}

// PlanFileLoader defines an interface for loading a PlanFile from a source URL.
type PlanFileLoader interface {
	Load(ctx context.Context, source string) (*PlanFile, error)
	Format() string // e.g., "yaml", "json"
}

// loaderRegistry holds registered PlanFileLoaders by format name.
var loaderRegistry = make(map[string]PlanFileLoader)

// RegisterPlanFileLoader registers a new PlanFileLoader for a given format.
func RegisterPlanFileLoader(loader PlanFileLoader) {
	loaderRegistry[loader.Format()] = loader
}

// GetPlanFileLoader retrieves a loader by format name (e.g., "yaml").
func GetPlanFileLoader(format string) (PlanFileLoader, bool) {
	loader, ok := loaderRegistry[format]
	return loader, ok
}

// YAMLLoader implements PlanFileLoader for YAML files.
type YAMLLoader struct{}

func (YAMLLoader) Load(ctx context.Context, source string) (*PlanFile, error) {
	data, err := download(ctx, source)
	if err != nil {
		return nil, err
	}
	var pf PlanFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
	}
	return &pf, nil
}

func (YAMLLoader) Format() string { return "yaml" }

// JSONLoader implements PlanFileLoader for JSON files.
type JSONLoader struct{}

func (JSONLoader) Load(ctx context.Context, source string) (*PlanFile, error) {
	data, err := download(ctx, source)
	if err != nil {
		return nil, err
	}
	var pf PlanFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return &pf, nil
}

func (JSONLoader) Format() string { return "json" }

func init() {
	RegisterPlanFileLoader(YAMLLoader{})
	RegisterPlanFileLoader(JSONLoader{})
}

func download(ctx context.Context, source string) ([]byte, error) {
	data, err := afs.New().DownloadWithURL(ctx, url.Normalize(source, file.Scheme))
	if err != nil {
		return nil, fmt.Errorf("failed to open plan file: %w", err)
	}
	return data, nil
}

// FormatOf maps a file extension to a loader format name. Unknown extensions default to yaml.
func FormatOf(source string) string {
	switch strings.ToLower(path.Ext(source)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// Validate checks for blank or duplicate questions, empty plans and unusable steps.
// Tool names are not checked here; unknown tools fail at execution time.
func (pf *PlanFile) Validate() error {
	seen := make(map[string]struct{}, len(pf.Entries))
	for i, e := range pf.Entries {
		if e.Question == "" {
			return fmt.Errorf("entry %d has an empty question", i)
		}
		if _, exists := seen[e.Question]; exists {
			return fmt.Errorf("duplicate question found: %q", e.Question)
		}
		seen[e.Question] = struct{}{}
		if len(e.Plan) == 0 {
			return fmt.Errorf("question %q has an empty plan", e.Question)
		}
		for j, step := range e.Plan {
			if step.Tool == "" {
				return fmt.Errorf("question %q step %d has no tool", e.Question, j)
			}
		}
	}
	return nil
}

// ToPlans converts the entries to a question -> Plan mapping.
func (pf *PlanFile) ToPlans() (map[string]virtualtools.Plan, error) {
	plans := make(map[string]virtualtools.Plan, len(pf.Entries))
	for _, e := range pf.Entries {
		plan := make(virtualtools.Plan, 0, len(e.Plan))
		for j, step := range e.Plan {
			call, err := virtualtools.NewToolCall(step.Tool, step.Args...)
			if err != nil {
				return nil, fmt.Errorf("question %q step %d: %w", e.Question, j, err)
			}
			plan = append(plan, call)
		}
		plans[e.Question] = plan
	}
	return plans, nil
}

// LoadAndValidatePlanFile loads a plan file using the loader for its extension,
// validates it, and returns its plans.
func LoadAndValidatePlanFile(ctx context.Context, source string) (map[string]virtualtools.Plan, error) {
	format := FormatOf(source)
	loader, ok := GetPlanFileLoader(format)
	if !ok {
		return nil, fmt.Errorf("no %s plan loader registered", format)
	}

	pf, err := loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	if err := pf.Validate(); err != nil {
		return nil, err
	}
	return pf.ToPlans()
}

// Seed inserts plans into store. Existing questions are left untouched.
// It returns the number of entries actually added.
func Seed(ctx context.Context, store virtualtools.PlanStore, plans map[string]virtualtools.Plan) (int, error) {
	added := 0
	for _, q := range sortedKeys(plans) {
		ok, err := store.Add(ctx, q, plans[q])
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}
