package fail2ban_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
	"github.com/felixgeelhaar/hostprep/internal/provider/fail2ban"
	"github.com/felixgeelhaar/hostprep/internal/testutil/mocks"
)

func runCtx() runbook.RunContext {
	return runbook.NewRunContext(context.TODO())
}

func TestParseConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := fail2ban.ParseConfig(map[string]interface{}{})
	require.NoError(t, err)

	assert.Equal(t, "10m", cfg.BanTime)
	assert.Equal(t, "10m", cfg.FindTime)
	assert.Equal(t, 5, cfg.MaxRetry)
	assert.Equal(t, []string{"sshd"}, cfg.Jails)
}

func TestParseConfig_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := fail2ban.ParseConfig(map[string]interface{}{
		"bantime":  "1h",
		"maxretry": 3,
		"jails":    []interface{}{"sshd", "nginx-http-auth"},
	})
	require.NoError(t, err)

	assert.Equal(t, "1h", cfg.BanTime)
	assert.Equal(t, 3, cfg.MaxRetry)
	assert.Equal(t, []string{"sshd", "nginx-http-auth"}, cfg.Jails)
}

func TestConfig_Render_Deterministic(t *testing.T) {
	t.Parallel()

	cfg := &fail2ban.Config{BanTime: "10m", FindTime: "10m", MaxRetry: 5, Jails: []string{"sshd"}}

	first, err := cfg.Render()
	require.NoError(t, err)
	second, err := cfg.Render()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "bantime")
	assert.Contains(t, first, "[sshd]")
	assert.Contains(t, first, "enabled")
}

func TestJailFileStep_Probe_ContentMatches(t *testing.T) {
	t.Parallel()

	content := "[DEFAULT]\nbantime = 10m\n\n[sshd]\nenabled = true\n"
	runner := mocks.NewCommandRunner()
	runner.AddResult("sudo", []string{"cat", fail2ban.JailLocalPath}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   content,
	})

	step := fail2ban.NewJailFileStep(content, nil, runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeSatisfied, status)
}

func TestJailFileStep_Probe_ContentDrifted(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("sudo", []string{"cat", fail2ban.JailLocalPath}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "[DEFAULT]\nbantime = 24h\n",
	})

	step := fail2ban.NewJailFileStep("[DEFAULT]\nbantime = 10m\n", nil, runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeUnsatisfied, status)
}

func TestJailFileStep_Probe_MissingFileIsUnsatisfied(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("sudo", []string{"cat", fail2ban.JailLocalPath}, ports.CommandResult{
		ExitCode: 1,
		Stderr:   "cat: /etc/fail2ban/jail.local: No such file or directory",
	})

	step := fail2ban.NewJailFileStep("content", nil, runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeUnsatisfied, status)
}

func TestJailFileStep_Probe_ReadErrorIsUnknown(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("sudo", []string{"cat", fail2ban.JailLocalPath}, ports.CommandResult{
		ExitCode: 1,
		Stderr:   "cat: /etc/fail2ban/jail.local: Permission denied",
	})

	step := fail2ban.NewJailFileStep("content", nil, runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeUnknown, status)
}

func TestJailFileStep_Apply_PipesContent(t *testing.T) {
	t.Parallel()

	content := "[DEFAULT]\nbantime = 10m\n"
	runner := mocks.NewCommandRunner()
	runner.AddResult("sudo", []string{"tee", fail2ban.JailLocalPath}, ports.CommandResult{ExitCode: 0})
	runner.AddResult("sudo", []string{"systemctl", "try-restart", "fail2ban"}, ports.CommandResult{ExitCode: 0})

	step := fail2ban.NewJailFileStep(content, nil, runner)
	require.NoError(t, step.Apply(runCtx()))

	calls := runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, content, calls[0].Input)
}

func TestServiceStep_Probe(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		stdout string
		exit   int
		want   runbook.ProbeStatus
	}{
		{"active", "active\n", 0, runbook.ProbeSatisfied},
		{"inactive", "inactive\n", 3, runbook.ProbeUnsatisfied},
		{"failed", "failed\n", 3, runbook.ProbeUnsatisfied},
		{"unit unknown", "", 4, runbook.ProbeUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			runner := mocks.NewCommandRunner()
			runner.AddResult("systemctl", []string{"is-active", "fail2ban"}, ports.CommandResult{
				ExitCode: tc.exit,
				Stdout:   tc.stdout,
			})

			step := fail2ban.NewServiceStep(nil, runner)
			status, err := step.Probe(runCtx())

			require.NoError(t, err)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestProvider_Compile_ServiceWaitsForJailFile(t *testing.T) {
	t.Parallel()

	provider := fail2ban.NewProvider(mocks.NewCommandRunner())
	ctx := runbook.NewCompileContext(map[string]interface{}{
		"apt": map[string]interface{}{
			"packages": []interface{}{"fail2ban"},
		},
		"fail2ban": map[string]interface{}{},
	})

	steps, err := provider.Compile(ctx)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, "fail2ban:jail-config", steps[0].ID().String())
	require.Len(t, steps[0].DependsOn(), 1)
	assert.Equal(t, "apt:package:fail2ban", steps[0].DependsOn()[0].String())

	assert.Equal(t, "fail2ban:service", steps[1].ID().String())
	require.Len(t, steps[1].DependsOn(), 1)
	assert.Equal(t, "fail2ban:jail-config", steps[1].DependsOn()[0].String())
}
