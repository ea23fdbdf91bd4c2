// Package access provides the access provider: authorized_keys
// installation and the out-of-band fallback access check that gates
// every connectivity-risk step.
package access

import (
	"fmt"
	"strings"
)

// Config represents the access section of the runbook.
type Config struct {
	User           string
	AuthorizedKeys []string
	VerifyFallback bool
}

// ParseConfig parses the access configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{
		AuthorizedKeys: make([]string, 0),
		VerifyFallback: true,
	}

	if user, ok := raw["user"]; ok {
		s, ok := user.(string)
		if !ok {
			return nil, fmt.Errorf("user must be a string")
		}
		cfg.User = s
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("access section requires a user")
	}

	if keys, ok := raw["authorized_keys"]; ok {
		keyList, ok := keys.([]interface{})
		if !ok {
			return nil, fmt.Errorf("authorized_keys must be a list")
		}
		for _, k := range keyList {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("authorized key must be a string")
			}
			cfg.AuthorizedKeys = append(cfg.AuthorizedKeys, strings.TrimSpace(key))
		}
	}

	if verify, ok := raw["verify_fallback"]; ok {
		b, ok := verify.(bool)
		if !ok {
			return nil, fmt.Errorf("verify_fallback must be a boolean")
		}
		cfg.VerifyFallback = b
	}

	return cfg, nil
}

// KeyLabel derives a short, ID-safe label for a public key line: the
// key comment when one exists, otherwise a positional name.
func KeyLabel(key string, index int) string {
	fields := strings.Fields(key)
	if len(fields) >= 3 {
		if label := sanitizeLabel(fields[2]); label != "" {
			return label
		}
	}
	return fmt.Sprintf("key-%d", index+1)
}

// sanitizeLabel maps characters outside the step ID alphabet to dashes.
func sanitizeLabel(label string) string {
	var b strings.Builder
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
