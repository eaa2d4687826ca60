package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	yaml "github.com/goccy/go-yaml"
)

// Loader parses a YAML configuration document, expanding ${VAR}
// environment references before unmarshaling, the same two-step shape
// the teacher's config loader uses.
type Loader struct {
	envPattern *regexp.Regexp
}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{envPattern: regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)}
}

// Load reads path, expands environment references, parses the
// resulting YAML into a Config layered on top of Default(), and
// validates it.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return l.Parse(data)
}

// Parse parses YAML bytes into a Config, per Load's contract.
func (l *Loader) Parse(data []byte) (*Config, error) {
	expanded := l.expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("config: parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with the named environment
// variable's value, leaving the reference untouched if unset.
func (l *Loader) expandEnvVars(input string) string {
	return l.envPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}
