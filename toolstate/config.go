package toolstate

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// githubRepoRe validates owner/repo source references.
var githubRepoRe = regexp.MustCompile(`^\w+/[\w.-]+$`)

// Tool is one entry of the tools config.
type Tool struct {
	// Name is the binary name the build must produce.
	Name string

	// Source is the full GitHub URL of the tool's repository.
	Source string

	// Builder is an optional shell command that builds the tool in its
	// checkout. When empty the build is auto-detected (Cargo.toml only).
	Builder string
}

// Config describes the tools the pipeline builds and the canary repositories
// it smoke-tests them against.
type Config struct {
	Tools    map[string]Tool
	Canaries []string
}

type rawToolSpec struct {
	Source  string `yaml:"source"`
	Builder string `yaml:"builder"`
}

type rawConfig struct {
	Tools    map[string]rawToolSpec `yaml:"tools"`
	Canaries []string               `yaml:"canaries"`
}

// LoadConfig reads and validates a config.yml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig validates a config document. Every tool needs a well-formed
// owner/repo source; unknown fields are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var raw rawConfig

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(raw.Tools) == 0 {
		return nil, fmt.Errorf("config declares no tools")
	}

	cfg := &Config{Tools: make(map[string]Tool, len(raw.Tools))}

	for name, spec := range raw.Tools {
		if !githubRepoRe.MatchString(spec.Source) {
			return nil, fmt.Errorf("tool %s: source %q is not owner/repo", name, spec.Source)
		}
		cfg.Tools[name] = Tool{
			Name:    name,
			Source:  githubURL(spec.Source),
			Builder: spec.Builder,
		}
	}

	for _, canary := range raw.Canaries {
		if !githubRepoRe.MatchString(canary) {
			return nil, fmt.Errorf("canary %q is not owner/repo", canary)
		}
		cfg.Canaries = append(cfg.Canaries, githubURL(canary))
	}

	return cfg, nil
}

// Sources returns the distinct source URLs across all tools, sorted.
// Several tools may build from the same repository.
func (c *Config) Sources() []string {
	seen := make(map[string]struct{})
	for _, tool := range c.Tools {
		seen[tool.Source] = struct{}{}
	}

	sources := make([]string, 0, len(seen))
	for source := range seen {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}

func githubURL(ownerRepo string) string {
	return "https://github.com/" + ownerRepo
}
