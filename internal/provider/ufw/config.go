// Package ufw provides the firewall provider backed by ufw.
package ufw

import (
	"fmt"
)

// Config represents the firewall section of the runbook.
type Config struct {
	Enabled bool
	Allow   []string
}

// ParseConfig parses the firewall configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{
		Allow: make([]string, 0),
	}

	if enabled, ok := raw["enabled"]; ok {
		b, ok := enabled.(bool)
		if !ok {
			return nil, fmt.Errorf("enabled must be a boolean")
		}
		cfg.Enabled = b
	}

	if allow, ok := raw["allow"]; ok {
		ruleList, ok := allow.([]interface{})
		if !ok {
			return nil, fmt.Errorf("allow must be a list")
		}
		for _, r := range ruleList {
			rule, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("allow rule must be a string")
			}
			cfg.Allow = append(cfg.Allow, rule)
		}
	}

	return cfg, nil
}
