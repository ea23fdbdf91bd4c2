// Package apt provides the apt provider for package management on the
// target host.
package apt

import (
	"fmt"
)

// Config represents the apt section of the runbook.
type Config struct {
	Update   bool
	Upgrade  bool
	Packages []string
}

// ParseConfig parses the apt configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{
		Packages: make([]string, 0),
	}

	if update, ok := raw["update"]; ok {
		b, ok := update.(bool)
		if !ok {
			return nil, fmt.Errorf("update must be a boolean")
		}
		cfg.Update = b
	}

	if upgrade, ok := raw["upgrade"]; ok {
		b, ok := upgrade.(bool)
		if !ok {
			return nil, fmt.Errorf("upgrade must be a boolean")
		}
		cfg.Upgrade = b
	}

	if packages, ok := raw["packages"]; ok {
		packageList, ok := packages.([]interface{})
		if !ok {
			return nil, fmt.Errorf("packages must be a list")
		}
		for _, p := range packageList {
			name, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("package must be a string")
			}
			cfg.Packages = append(cfg.Packages, name)
		}
	}

	return cfg, nil
}
