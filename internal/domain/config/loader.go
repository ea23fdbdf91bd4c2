// Package config loads the runbook document and tool settings.
// The runbook is data, not code: the full provisioning plan (packages,
// firewall rules, hardening flags) lives in a reviewable YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// knownSections are the runbook section keys providers understand.
var knownSections = map[string]bool{
	"apt":      true,
	"firewall": true,
	"fail2ban": true,
	"access":   true,
	"sshd":     true,
	"network":  true,
	"pro":      true,
	"commands": true,
}

// Loader loads runbook documents from the filesystem.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses a runbook file into the section map consumed
// by the compiler. Unknown top-level sections are rejected: a typoed
// section would otherwise silently provision nothing.
func (l *Loader) Load(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewRunbookNotFoundError(path)
		}
		return nil, fmt.Errorf("read runbook: %w", err)
	}
	return l.Parse(path, data)
}

// Parse parses runbook YAML.
func (l *Loader) Parse(path string, data []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewYAMLParseError(path, err)
	}

	for section := range doc {
		if !knownSections[section] {
			return nil, NewUnknownSectionError(path, section)
		}
	}

	return doc, nil
}
