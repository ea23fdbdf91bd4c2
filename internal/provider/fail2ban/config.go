// Package fail2ban provides the fail2ban provider: a rendered
// jail.local plus the service that enforces it.
package fail2ban

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// JailLocalPath is where the rendered jail configuration lands.
const JailLocalPath = "/etc/fail2ban/jail.local"

// Config represents the fail2ban section of the runbook.
type Config struct {
	BanTime  string
	FindTime string
	MaxRetry int
	Jails    []string
}

// ParseConfig parses the fail2ban configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{
		BanTime:  "10m",
		FindTime: "10m",
		MaxRetry: 5,
		Jails:    []string{"sshd"},
	}

	if banTime, ok := raw["bantime"]; ok {
		s, ok := banTime.(string)
		if !ok {
			return nil, fmt.Errorf("bantime must be a string")
		}
		cfg.BanTime = s
	}

	if findTime, ok := raw["findtime"]; ok {
		s, ok := findTime.(string)
		if !ok {
			return nil, fmt.Errorf("findtime must be a string")
		}
		cfg.FindTime = s
	}

	if maxRetry, ok := raw["maxretry"]; ok {
		n, ok := maxRetry.(int)
		if !ok {
			return nil, fmt.Errorf("maxretry must be an integer")
		}
		cfg.MaxRetry = n
	}

	if jails, ok := raw["jails"]; ok {
		jailList, ok := jails.([]interface{})
		if !ok {
			return nil, fmt.Errorf("jails must be a list")
		}
		cfg.Jails = make([]string, 0, len(jailList))
		for _, j := range jailList {
			name, ok := j.(string)
			if !ok {
				return nil, fmt.Errorf("jail name must be a string")
			}
			cfg.Jails = append(cfg.Jails, name)
		}
	}

	return cfg, nil
}

// Render produces the jail.local content for this configuration.
// Output is deterministic so the probe can compare it byte for byte
// against the file on disk.
func (c *Config) Render() (string, error) {
	file := ini.Empty()

	def, err := file.NewSection("DEFAULT")
	if err != nil {
		return "", fmt.Errorf("render jail.local: %w", err)
	}
	def.NewKey("bantime", c.BanTime)
	def.NewKey("findtime", c.FindTime)
	def.NewKey("maxretry", fmt.Sprintf("%d", c.MaxRetry))

	for _, jail := range c.Jails {
		section, err := file.NewSection(jail)
		if err != nil {
			return "", fmt.Errorf("render jail.local: %w", err)
		}
		section.NewKey("enabled", "true")
	}

	var buf strings.Builder
	if _, err := file.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("render jail.local: %w", err)
	}
	return buf.String(), nil
}
