package apt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
	"github.com/felixgeelhaar/hostprep/internal/provider/apt"
	"github.com/felixgeelhaar/hostprep/internal/testutil/mocks"
)

func runCtx() runbook.RunContext {
	return runbook.NewRunContext(context.TODO())
}

func TestPackageStep_ID(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	step := apt.NewPackageStep("fail2ban", nil, runner)

	assert.Equal(t, "apt:package:fail2ban", step.ID().String())
	assert.Empty(t, step.DependsOn())
	assert.Equal(t, runbook.RiskSafe, step.Risk())
}

func TestPackageStep_DependsOnUpdate(t *testing.T) {
	t.Parallel()

	updateID := runbook.MustNewStepID("apt:update")
	step := apt.NewPackageStep("ufw", &updateID, mocks.NewCommandRunner())

	require.Len(t, step.DependsOn(), 1)
	assert.Equal(t, "apt:update", step.DependsOn()[0].String())
}

func TestPackageStep_Probe_Installed(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("dpkg-query", []string{"-W", "-f=${db:Status-Status}", "ufw"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "installed",
	})

	step := apt.NewPackageStep("ufw", nil, runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeSatisfied, status)
}

func TestPackageStep_Probe_NotInstalled(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("dpkg-query", []string{"-W", "-f=${db:Status-Status}", "ufw"}, ports.CommandResult{
		ExitCode: 1,
		Stderr:   "dpkg-query: no packages found matching ufw",
	})

	step := apt.NewPackageStep("ufw", nil, runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeUnsatisfied, status)
}

func TestPackageStep_Probe_UnexpectedExitIsUnknown(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("dpkg-query", []string{"-W", "-f=${db:Status-Status}", "ufw"}, ports.CommandResult{
		ExitCode: 2,
		Stderr:   "dpkg frontend lock held",
	})

	step := apt.NewPackageStep("ufw", nil, runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeUnknown, status)
}

func TestPackageStep_Apply(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("sudo", []string{"apt-get", "install", "-y", "ufw"}, ports.CommandResult{ExitCode: 0})

	step := apt.NewPackageStep("ufw", nil, runner)
	require.NoError(t, step.Apply(runCtx()))

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "sudo", calls[0].Command)
}

func TestPackageStep_Apply_RejectsInvalidName(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	step := apt.NewPackageStep("Ufw", nil, runner)
	err := step.Apply(runCtx())

	require.Error(t, err)
	// No command may reach the runner.
	assert.Empty(t, runner.Calls())
}

func TestUpdateStep_Probe_FreshIndex(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("find", []string{"/var/lib/apt/lists", "-maxdepth", "0", "-mmin", "-60"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "/var/lib/apt/lists\n",
	})

	step := apt.NewUpdateStep(runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeSatisfied, status)
}

func TestUpdateStep_Probe_StaleIndex(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("find", []string{"/var/lib/apt/lists", "-maxdepth", "0", "-mmin", "-60"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "",
	})

	step := apt.NewUpdateStep(runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeUnsatisfied, status)
}

func TestUpgradeStep_Probe_NothingPending(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("apt-get", []string{"-s", "upgrade"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "0 upgraded, 0 newly installed, 0 to remove and 0 not upgraded.",
	})

	step := apt.NewUpgradeStep(nil, runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeSatisfied, status)
}

func TestProvider_Compile(t *testing.T) {
	t.Parallel()

	provider := apt.NewProvider(mocks.NewCommandRunner())
	ctx := runbook.NewCompileContext(map[string]interface{}{
		"apt": map[string]interface{}{
			"update":   true,
			"upgrade":  true,
			"packages": []interface{}{"ufw", "fail2ban"},
		},
	})

	steps, err := provider.Compile(ctx)
	require.NoError(t, err)
	require.Len(t, steps, 4)

	assert.Equal(t, "apt:update", steps[0].ID().String())
	assert.Equal(t, "apt:package:ufw", steps[1].ID().String())
	// Installs wait for the index refresh.
	require.Len(t, steps[1].DependsOn(), 1)
	assert.Equal(t, "apt:update", steps[1].DependsOn()[0].String())
	// The upgrade waits for everything else in the section.
	assert.Len(t, steps[3].DependsOn(), 3)
}

func TestProvider_Compile_NoSection(t *testing.T) {
	t.Parallel()

	provider := apt.NewProvider(mocks.NewCommandRunner())
	steps, err := provider.Compile(runbook.NewCompileContext(map[string]interface{}{}))

	require.NoError(t, err)
	assert.Nil(t, steps)
}

func TestParseConfig_Invalid(t *testing.T) {
	t.Parallel()

	_, err := apt.ParseConfig(map[string]interface{}{"packages": "ufw"})
	require.Error(t, err)

	_, err = apt.ParseConfig(map[string]interface{}{"update": "yes"})
	require.Error(t, err)
}
