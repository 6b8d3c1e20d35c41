package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleEntry is one dir_map item. It accepts the two-element sequence form
// ["src", "/dst"] as well as a {source, destination} mapping.
type RuleEntry struct {
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
}

func (r *RuleEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var pair []string
		if err := node.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("line %d: dir_map entry needs [source, destination], got %d items", node.Line, len(pair))
		}
		r.Source, r.Destination = pair[0], pair[1]
		return nil
	case yaml.MappingNode:
		type plain RuleEntry
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*r = RuleEntry(p)
		return nil
	default:
		return fmt.Errorf("line %d: dir_map entry must be a sequence or a mapping", node.Line)
	}
}

func (r RuleEntry) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	node.Content = []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: r.Source, Style: yaml.DoubleQuotedStyle},
		{Kind: yaml.ScalarNode, Value: r.Destination, Style: yaml.DoubleQuotedStyle},
	}
	return node, nil
}

type SSHConfig struct {
	Port                  int      `yaml:"port,omitempty"`
	IdentityFiles         []string `yaml:"identity_files,omitempty"`
	KnownHosts            []string `yaml:"known_hosts,omitempty"`
	InsecureIgnoreHostKey bool     `yaml:"insecure_ignore_host_key,omitempty"`
}

type Config struct {
	Destination string      `yaml:"destination,omitempty"`
	Backend     string      `yaml:"backend,omitempty"`
	Concurrency int         `yaml:"concurrency,omitempty"`
	IgnoreFile  string      `yaml:"ignore_file,omitempty"`
	DirMap      []RuleEntry `yaml:"dir_map"`
	Ignored     []string    `yaml:"ignored"`
	SSH         SSHConfig   `yaml:"ssh,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend:     BackendGit,
		Concurrency: 4,
		IgnoreFile:  DefaultIgnoreFilename,
		DirMap:      []RuleEntry{},
		Ignored:     []string{},
	}
}

// SampleConfig is what `gsync init` writes.
func SampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.DirMap = []RuleEntry{{Source: "src/app", Destination: "/srv/app"}}
	cfg.Ignored = []string{`\.md$`}
	return cfg
}

// LoadConfig reads and validates path. Defaults fill fields the file leaves out.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfigInvalid, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate checks everything that can be checked without a repository:
// backend name, concurrency and every pattern.
func (c *Config) Validate() error {
	if _, err := NewBackend(c.Backend); err != nil {
		return err
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative", ErrConfigInvalid)
	}
	if c.SSH.Port < 0 || c.SSH.Port > 65535 {
		return fmt.Errorf("%w: ssh port %d out of range", ErrConfigInvalid, c.SSH.Port)
	}
	_, err := c.RuleSet()
	return err
}

// RuleSet compiles the configured ignore patterns and dir rules in order.
func (c *Config) RuleSet() (*RuleSet, error) {
	specs := make([]RuleSpec, len(c.DirMap))
	for i, e := range c.DirMap {
		specs[i] = RuleSpec{Source: e.Source, Destination: e.Destination}
	}
	return NewRuleSet(c.Ignored, specs)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
