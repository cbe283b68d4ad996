// Package config provides the YAML configuration file for the CLI: account
// aliases, output destinations, and sync settings.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AccountAlias maps a human-friendly alias to an account number, so commands
// can say "brokerage" instead of the raw number.
type AccountAlias struct {
	Alias  string `yaml:"alias"`
	Number string `yaml:"number"`
}

// Output configures where fetched transactions are written. Empty paths
// disable the corresponding writer.
type Output struct {
	JSONPath   string `yaml:"json_path"`
	OFXPath    string `yaml:"ofx_path"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Firestore configures the optional cloud sync target.
type Firestore struct {
	Project    string `yaml:"project"`
	Collection string `yaml:"collection"`
}

// Config is the top-level YAML structure.
type Config struct {
	Accounts  []AccountAlias `yaml:"accounts"`
	Output    Output         `yaml:"output"`
	Firestore Firestore      `yaml:"firestore"`
}

// NewConfig parses and validates configuration from YAML data.
func NewConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config (check syntax, indentation, and field names): %w", err)
	}

	seen := make(map[string]int, len(cfg.Accounts))
	for i, a := range cfg.Accounts {
		if strings.TrimSpace(a.Alias) == "" {
			return nil, fmt.Errorf("account %d: alias cannot be empty", i)
		}
		if strings.TrimSpace(a.Number) == "" {
			return nil, fmt.Errorf("account %d (%s): number cannot be empty", i, a.Alias)
		}
		if prev, dup := seen[a.Alias]; dup {
			return nil, fmt.Errorf("account %d (%s): alias already defined by account %d", i, a.Alias, prev)
		}
		seen[a.Alias] = i
	}

	if cfg.Firestore.Project != "" && cfg.Firestore.Collection == "" {
		cfg.Firestore.Collection = "transactions"
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a filesystem path.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := NewConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given: no aliases,
// no outputs enabled.
func Default() *Config {
	return &Config{}
}

// ResolveAccounts maps each requested name through the alias table,
// preserving order. Names with no alias entry pass through unchanged and are
// treated as raw account numbers.
func (c *Config) ResolveAccounts(requested []string) []string {
	byAlias := make(map[string]string, len(c.Accounts))
	for _, a := range c.Accounts {
		byAlias[a.Alias] = a.Number
	}

	resolved := make([]string, len(requested))
	for i, name := range requested {
		if num, ok := byAlias[name]; ok {
			resolved[i] = num
			continue
		}
		resolved[i] = name
	}
	return resolved
}
