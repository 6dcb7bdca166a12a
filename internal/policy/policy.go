// Package policy loads and matches operator-supplied approval rules.
//
// Configuration comes from two scopes: a global file under the user's config
// directory and a project file found by walking up from the working
// directory. The project scope wins; list rules concatenate, aliases overlay.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// CurrentVersion is the newest config schema this build understands.
	CurrentVersion = 1

	globalConfigDir  = ".config/cmdvet"
	globalConfigFile = "config.yaml"
	projectFile      = ".cmdvet.yaml"
)

// Rule is a single pattern entry. In YAML it may be written as a bare string
// or as a mapping with an operator-supplied message:
//
//	approve:
//	  - git stash
//	  - pattern: "re:^make (lint|test)$"
//	    message: make targets vetted by the build team
type Rule struct {
	Pattern string `yaml:"pattern"`
	Message string `yaml:"message,omitempty"`

	re *regexp.Regexp // compiled when Pattern has the re: prefix
}

func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		r.Pattern = value.Value
		return nil
	}
	type plain Rule
	return value.Decode((*plain)(r))
}

// RedirectRules holds glob patterns matched against redirect target paths.
type RedirectRules struct {
	Approve []string `yaml:"approve,omitempty"`
	Confirm []string `yaml:"confirm,omitempty"`
	Deny    []string `yaml:"deny,omitempty"`
}

// Config is the merged rule set consulted by the decision engine.
type Config struct {
	Version   int               `yaml:"version"`
	Approve   []Rule            `yaml:"approve,omitempty"`
	Confirm   []Rule            `yaml:"confirm,omitempty"`
	Deny      []Rule            `yaml:"deny,omitempty"`
	Redirects RedirectRules     `yaml:"redirects,omitempty"`
	Aliases   map[string]string `yaml:"aliases,omitempty"`

	// ProjectRoot is the directory holding the project config file, used to
	// resolve relative script patterns. Empty when only the global scope
	// loaded.
	ProjectRoot string `yaml:"-"`
}

// AliasFor returns the configured expansion for a command name.
func (c *Config) AliasFor(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	expansion, ok := c.Aliases[name]
	return expansion, ok
}

// Merge overlays other on top of c. Lists concatenate so project rules are
// checked after global ones; aliases from other win on key collision.
func (c *Config) Merge(other *Config) *Config {
	merged := &Config{
		Version:     max(c.Version, other.Version),
		Approve:     append(append([]Rule{}, c.Approve...), other.Approve...),
		Confirm:     append(append([]Rule{}, c.Confirm...), other.Confirm...),
		Deny:        append(append([]Rule{}, c.Deny...), other.Deny...),
		Aliases:     map[string]string{},
		ProjectRoot: other.ProjectRoot,
	}
	merged.Redirects.Approve = append(append([]string{}, c.Redirects.Approve...), other.Redirects.Approve...)
	merged.Redirects.Confirm = append(append([]string{}, c.Redirects.Confirm...), other.Redirects.Confirm...)
	merged.Redirects.Deny = append(append([]string{}, c.Redirects.Deny...), other.Redirects.Deny...)
	for k, v := range c.Aliases {
		merged.Aliases[k] = v
	}
	for k, v := range other.Aliases {
		merged.Aliases[k] = v
	}
	if merged.ProjectRoot == "" {
		merged.ProjectRoot = c.ProjectRoot
	}
	return merged
}

// Load reads and merges the global and project configs. A missing file is
// fine; a malformed one is a hard error, surfaced immediately rather than
// degrading protection silently.
func Load(cwd string) (*Config, error) {
	cfg := &Config{Version: CurrentVersion, Aliases: map[string]string{}}

	if home, err := os.UserHomeDir(); err == nil {
		globalPath := filepath.Join(home, globalConfigDir, globalConfigFile)
		if global, err := loadFile(globalPath); err != nil {
			return nil, err
		} else if global != nil {
			cfg = cfg.Merge(global)
		}
	}

	if cwd != "" {
		if projPath := findProjectConfig(cwd); projPath != "" {
			proj, err := loadFile(projPath)
			if err != nil {
				return nil, err
			}
			if proj != nil {
				proj.ProjectRoot = filepath.Dir(projPath)
				cfg = cfg.Merge(proj)
			}
		}
	}

	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Version > CurrentVersion {
		return nil, fmt.Errorf("config %s: version %d not supported (max %d)", path, cfg.Version, CurrentVersion)
	}
	if err := cfg.compile(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// compile validates every regex pattern up front so a typo fails at load
// time, not at match time.
func (c *Config) compile() error {
	for _, list := range [][]Rule{c.Approve, c.Confirm, c.Deny} {
		for i := range list {
			if err := list[i].compile(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Rule) compile() error {
	if !strings.HasPrefix(r.Pattern, "re:") {
		return nil
	}
	re, err := regexp.Compile(strings.TrimPrefix(r.Pattern, "re:"))
	if err != nil {
		return fmt.Errorf("pattern %q: %w", r.Pattern, err)
	}
	r.re = re
	return nil
}

func findProjectConfig(cwd string) string {
	dir, err := filepath.Abs(cwd)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, projectFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
