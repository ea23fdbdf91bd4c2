// Package ubuntupro provides the Ubuntu Pro provider: subscription
// attach plus optional service enablement (ESM, livepatch).
package ubuntupro

import (
	"fmt"
	"os"
)

// TokenEnvVar is consulted when the runbook does not embed a token.
const TokenEnvVar = "UBUNTU_PRO_TOKEN"

// Config represents the pro section of the runbook.
type Config struct {
	Token    string
	Services []string
}

// ParseConfig parses the pro configuration from a raw map. A missing
// token falls back to the environment so the secret can stay out of
// the versioned runbook.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{
		Services: make([]string, 0),
	}

	if v, ok := raw["token"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("token must be a string")
		}
		cfg.Token = s
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv(TokenEnvVar)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("pro section requires a token (inline or %s)", TokenEnvVar)
	}

	if v, ok := raw["services"]; ok {
		list, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("services must be a list")
		}
		for _, svc := range list {
			name, ok := svc.(string)
			if !ok {
				return nil, fmt.Errorf("service name must be a string")
			}
			cfg.Services = append(cfg.Services, name)
		}
	}

	return cfg, nil
}
