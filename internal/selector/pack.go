// ABOUTME: Keyword pack loading: trigger-term dispatch tables as TOML data.
// ABOUTME: Packs are reloadable configuration, not code, so triggers change without recompiling.

package selector

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Pack is the on-disk keyword dispatch table.
//
//	default = "analytical"
//	priority = ["analytical", "creative", "technical", "crm"]
//
//	[triggers]
//	analytical = ["analyze", "compare", "data"]
//	creative   = ["creative", "poem", "story"]
type Pack struct {
	Default  string              `toml:"default"`
	Priority []string            `toml:"priority"`
	Triggers map[string][]string `toml:"triggers"`
}

// LoadPack reads and validates a keyword pack from a TOML file.
func LoadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyword pack: %w", err)
	}

	var pack Pack
	if err := toml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parsing keyword pack: %w", err)
	}

	if err := pack.Validate(); err != nil {
		return nil, fmt.Errorf("validating keyword pack: %w", err)
	}
	return &pack, nil
}

// Validate checks the pack for the failures that would otherwise surface as
// confusing dispatch behavior at runtime.
func (p *Pack) Validate() error {
	if p.Default == "" {
		return fmt.Errorf("default agent type is required")
	}
	if len(p.Triggers) == 0 {
		return fmt.Errorf("at least one trigger set is required")
	}
	for agentType, terms := range p.Triggers {
		if len(terms) == 0 {
			return fmt.Errorf("agent type %q has an empty trigger list", agentType)
		}
	}
	return nil
}
