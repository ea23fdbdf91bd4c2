package config

import "fmt"

// UserError is a configuration error with enough context for the
// operator to fix it without reading source code.
type UserError struct {
	Message    string
	Context    string
	Suggestion string
	Underlying error
}

// Error returns the user-facing message.
func (e *UserError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s (at %s)", e.Message, e.Context)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *UserError) Unwrap() error {
	return e.Underlying
}

// NewRunbookNotFoundError creates an error for a missing runbook file.
func NewRunbookNotFoundError(path string) *UserError {
	return &UserError{
		Message:    "runbook file not found",
		Context:    path,
		Suggestion: "Create a runbook (hostprep.yaml) or point --runbook at an existing one.",
	}
}

// NewYAMLParseError creates an error for unparseable runbook YAML.
func NewYAMLParseError(path string, err error) *UserError {
	return &UserError{
		Message:    "runbook is not valid YAML",
		Context:    path,
		Suggestion: "Check indentation and quoting near the location in the underlying error.",
		Underlying: err,
	}
}

// NewUnknownSectionError creates an error for an unrecognized runbook
// section, which is almost always a typo.
func NewUnknownSectionError(path, section string) *UserError {
	return &UserError{
		Message:    fmt.Sprintf("unknown runbook section %q", section),
		Context:    path,
		Suggestion: "Valid sections: apt, firewall, fail2ban, access, sshd, network, pro, commands.",
	}
}

// NewSettingsParseError creates an error for an unparseable settings file.
func NewSettingsParseError(path string, err error) *UserError {
	return &UserError{
		Message:    "settings file is not valid TOML",
		Context:    path,
		Suggestion: "Fix the syntax error or delete the file to fall back to defaults.",
		Underlying: err,
	}
}
