package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apt:
  update: true
  packages:
    - ufw
    - fail2ban
firewall:
  enabled: true
  allow:
    - OpenSSH
`), 0o600))

	doc, err := NewLoader().Load(path)
	require.NoError(t, err)

	assert.Contains(t, doc, "apt")
	assert.Contains(t, doc, "firewall")
}

func TestLoader_Load_Missing(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "runbook file not found", userErr.Message)
	assert.NotEmpty(t, userErr.Suggestion)
}

func TestLoader_Parse_BadYAML(t *testing.T) {
	_, err := NewLoader().Parse("runbook.yaml", []byte("apt: [unclosed"))
	require.Error(t, err)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "runbook is not valid YAML", userErr.Message)
}

func TestLoader_Parse_UnknownSection(t *testing.T) {
	_, err := NewLoader().Parse("runbook.yaml", []byte("firewal:\n  enabled: true\n"))
	require.Error(t, err)

	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.Message, "firewal")
	assert.Contains(t, userErr.Suggestion, "firewall")
}

func TestLoader_Parse_AllKnownSections(t *testing.T) {
	doc, err := NewLoader().Parse("runbook.yaml", []byte(`
apt: {update: true}
firewall: {enabled: true}
fail2ban: {}
access: {user: deploy}
sshd: {password_authentication: false}
network: {interface: eth0, address: "192.0.2.10/24"}
pro: {token: abc}
commands: []
`))
	require.NoError(t, err)
	assert.Len(t, doc, 8)
}
