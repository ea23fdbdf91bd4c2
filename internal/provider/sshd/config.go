// Package sshd provides the sshd hardening provider. Hardening lands
// as a drop-in under sshd_config.d and is judged by the daemon's
// effective configuration, not by file content.
package sshd

import (
	"fmt"
	"sort"
	"strings"
)

// DropInPath is where the hardening drop-in is written.
const DropInPath = "/etc/ssh/sshd_config.d/90-hostprep.conf"

// Config represents the sshd section of the runbook.
type Config struct {
	PasswordAuthentication *bool
	PermitRootLogin        string
	PubkeyAuthentication   *bool
	Options                map[string]string
}

// ParseConfig parses the sshd configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{
		Options: make(map[string]string),
	}

	if v, ok := raw["password_authentication"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("password_authentication must be a boolean")
		}
		cfg.PasswordAuthentication = &b
	}

	if v, ok := raw["permit_root_login"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("permit_root_login must be a string")
		}
		switch s {
		case "yes", "no", "prohibit-password", "forced-commands-only":
		default:
			return nil, fmt.Errorf("invalid permit_root_login value %q", s)
		}
		cfg.PermitRootLogin = s
	}

	if v, ok := raw["pubkey_authentication"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("pubkey_authentication must be a boolean")
		}
		cfg.PubkeyAuthentication = &b
	}

	if v, ok := raw["options"]; ok {
		options, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("options must be a map")
		}
		for key, val := range options {
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("option %s must be a string", key)
			}
			cfg.Options[key] = s
		}
	}

	return cfg, nil
}

// Directives returns the desired sshd directives in deterministic
// order: the structured fields first, then extra options sorted by
// name.
func (c *Config) Directives() [][2]string {
	var out [][2]string
	if c.PasswordAuthentication != nil {
		out = append(out, [2]string{"PasswordAuthentication", yesNo(*c.PasswordAuthentication)})
	}
	if c.PermitRootLogin != "" {
		out = append(out, [2]string{"PermitRootLogin", c.PermitRootLogin})
	}
	if c.PubkeyAuthentication != nil {
		out = append(out, [2]string{"PubkeyAuthentication", yesNo(*c.PubkeyAuthentication)})
	}

	names := make([]string, 0, len(c.Options))
	for name := range c.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, [2]string{name, c.Options[name]})
	}
	return out
}

// Render produces the drop-in file content.
func (c *Config) Render() string {
	var b strings.Builder
	b.WriteString("# Managed by hostprep. Manual edits will be overwritten.\n")
	for _, d := range c.Directives() {
		b.WriteString(d[0])
		b.WriteString(" ")
		b.WriteString(d[1])
		b.WriteString("\n")
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
