package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/rules"
)

type ruleFile struct {
	Rules []rules.Draft `toml:"rule"`
}

// LoadRules reads a TOML rule catalogue made of [[rule]] tables. An empty
// path yields the built-in defaults.
func LoadRules(path string) ([]model.Rule, error) {
	if path == "" {
		return rules.Defaults(), nil
	}
	var f ruleFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	out := make([]model.Rule, 0, len(f.Rules))
	seen := make(map[string]struct{}, len(f.Rules))
	for i, d := range f.Rules {
		r, err := rules.Validate(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %s rule %d: %w", ErrInvalidConfig, path, i+1, err)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate rule id %q", ErrInvalidConfig, path, r.ID)
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
