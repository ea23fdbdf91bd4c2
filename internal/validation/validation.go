// Package validation provides input validation for runbook values that
// end up on a command line.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// packageNamePattern follows Debian package naming rules.
	packageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)

	// rulePattern matches ufw rule specs: a port with optional
	// protocol (22, 22/tcp, 8000:8100/tcp) or an application profile
	// name (OpenSSH).
	rulePattern = regexp.MustCompile(`^(?:[0-9]+(?::[0-9]+)?(?:/(?:tcp|udp))?|[A-Za-z][A-Za-z0-9 .-]*)$`)

	// interfacePattern matches Linux network interface names.
	interfacePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9.-]{0,14}$`)

	// Characters that should never appear in values handed to a shell.
	dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "{", "}", "<", ">", "!", "\n", "\r"}
)

// checkDangerous rejects shell metacharacters and null bytes.
func checkDangerous(kind, value string) error {
	if strings.ContainsRune(value, '\x00') {
		return fmt.Errorf("%s contains null byte", kind)
	}
	for _, char := range dangerousChars {
		if strings.Contains(value, char) {
			return fmt.Errorf("%s contains invalid character: %q", kind, char)
		}
	}
	return nil
}

// ValidatePackageName validates an apt package name.
func ValidatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("package name cannot be empty")
	}
	if len(name) > 128 {
		return fmt.Errorf("package name too long (max 128 characters)")
	}
	if err := checkDangerous("package name", name); err != nil {
		return err
	}
	if !packageNamePattern.MatchString(name) {
		return fmt.Errorf("invalid package name %q: must be lowercase alphanumeric with +, ., -", name)
	}
	return nil
}

// ValidateFirewallRule validates a ufw rule spec (port[/proto] or
// application profile).
func ValidateFirewallRule(rule string) error {
	if rule == "" {
		return fmt.Errorf("firewall rule cannot be empty")
	}
	if err := checkDangerous("firewall rule", rule); err != nil {
		return err
	}
	if !rulePattern.MatchString(rule) {
		return fmt.Errorf("invalid firewall rule %q: use port[/proto] or an application profile name", rule)
	}
	return nil
}

// ValidateInterfaceName validates a network interface name.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name cannot be empty")
	}
	if err := checkDangerous("interface name", name); err != nil {
		return err
	}
	if !interfacePattern.MatchString(name) {
		return fmt.Errorf("invalid interface name %q", name)
	}
	return nil
}

// ValidateUsername validates a unix account name.
func ValidateUsername(name string) error {
	if name == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if err := checkDangerous("username", name); err != nil {
		return err
	}
	if !regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`).MatchString(name) {
		return fmt.Errorf("invalid username %q", name)
	}
	return nil
}

// ValidatePublicKey performs a shape check on an OpenSSH public key
// line (type, base64 blob, optional comment).
func ValidatePublicKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return fmt.Errorf("public key cannot be empty")
	}
	if strings.ContainsAny(trimmed, "\n\r") {
		return fmt.Errorf("public key must be a single line")
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return fmt.Errorf("public key must have a type and a base64 blob")
	}
	switch fields[0] {
	case "ssh-ed25519", "ssh-rsa", "ecdsa-sha2-nistp256", "ecdsa-sha2-nistp384", "ecdsa-sha2-nistp521":
	default:
		return fmt.Errorf("unsupported public key type %q", fields[0])
	}
	return nil
}
