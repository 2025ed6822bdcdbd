// Package config loads virtualtools.Config from YAML files on any afs location.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/virtualtools"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// APIKeyEnvVars are consulted in order by FromEnv when no API key is configured.
var APIKeyEnvVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// Load reads the YAML config at location over DefaultConfig. Fields absent
// from the file keep their defaults. An empty location returns the defaults.
func Load(ctx context.Context, location string) (virtualtools.Config, error) {
	cfg := virtualtools.DefaultConfig()
	if strings.TrimSpace(location) == "" {
		return cfg, nil
	}

	fs := afs.New()
	URL := url.Normalize(location, file.Scheme)
	if ok, _ := fs.Exists(ctx, URL); !ok {
		return cfg, virtualtools.NewConfigurationError(fmt.Sprintf("config file %s not found", location), nil)
	}
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return cfg, virtualtools.NewConfigurationError(fmt.Sprintf("failed to read config %s", location), err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, virtualtools.NewConfigurationError(fmt.Sprintf("failed to parse config %s", location), err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func Validate(cfg virtualtools.Config) error {
	switch {
	case strings.TrimSpace(cfg.CachePath) == "":
		return virtualtools.NewConfigurationError("cache_path must not be empty", nil)
	case cfg.Validation.Tolerance < 0:
		return virtualtools.NewConfigurationError("validation.tolerance must not be negative", nil)
	case cfg.Model.MaxOutputTokens < 0:
		return virtualtools.NewConfigurationError("model.max_output_tokens must not be negative", nil)
	case cfg.Model.Temperature < 0:
		return virtualtools.NewConfigurationError("model.temperature must not be negative", nil)
	}
	return nil
}

// FromEnv fills the model API key from the environment when the file left it empty.
func FromEnv(cfg virtualtools.Config, getenv func(string) string) virtualtools.Config {
	if cfg.Model.APIKey != "" {
		return cfg
	}
	for _, name := range APIKeyEnvVars {
		if v := getenv(name); v != "" {
			cfg.Model.APIKey = v
			break
		}
	}
	return cfg
}
