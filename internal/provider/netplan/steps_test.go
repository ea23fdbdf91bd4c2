package netplan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/hostprep/internal/domain/runbook"
	"github.com/felixgeelhaar/hostprep/internal/ports"
	"github.com/felixgeelhaar/hostprep/internal/provider/netplan"
	"github.com/felixgeelhaar/hostprep/internal/testutil/mocks"
)

func runCtx() runbook.RunContext {
	return runbook.NewRunContext(context.TODO())
}

func staticConfig() *netplan.Config {
	return &netplan.Config{
		Interface:   "ens18",
		Address:     "192.0.2.10/24",
		Gateway:     "192.0.2.1",
		Nameservers: []string{"192.0.2.1", "9.9.9.9"},
	}
}

func TestParseConfig_RequiredFields(t *testing.T) {
	t.Parallel()

	_, err := netplan.ParseConfig(map[string]interface{}{"address": "192.0.2.10/24"})
	require.Error(t, err)

	_, err = netplan.ParseConfig(map[string]interface{}{"interface": "ens18"})
	require.Error(t, err)

	cfg, err := netplan.ParseConfig(map[string]interface{}{
		"interface": "ens18",
		"address":   "192.0.2.10/24",
	})
	require.NoError(t, err)
	assert.Equal(t, "ens18", cfg.Interface)
	assert.Empty(t, cfg.Gateway)
}

func TestConfig_Render(t *testing.T) {
	t.Parallel()

	content, err := staticConfig().Render()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(content), &doc))

	network := doc["network"].(map[string]interface{})
	assert.Equal(t, 2, network["version"])

	eth := network["ethernets"].(map[string]interface{})["ens18"].(map[string]interface{})
	assert.Equal(t, []interface{}{"192.0.2.10/24"}, eth["addresses"])

	route := eth["routes"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "default", route["to"])
	assert.Equal(t, "192.0.2.1", route["via"])
}

func TestConfig_Render_OmitsEmptySections(t *testing.T) {
	t.Parallel()

	cfg := &netplan.Config{Interface: "eth0", Address: "192.0.2.10/24"}
	content, err := cfg.Render()
	require.NoError(t, err)

	assert.NotContains(t, content, "routes")
	assert.NotContains(t, content, "nameservers")
}

func TestStaticAddressStep_Risk(t *testing.T) {
	t.Parallel()

	step := netplan.NewStaticAddressStep(staticConfig(), "", nil, mocks.NewCommandRunner())
	assert.Equal(t, "network:static:ens18", step.ID().String())
	assert.Equal(t, runbook.RiskConnectivity, step.Risk())
}

func TestStaticAddressStep_Probe_AddressPresent(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("ip", []string{"-br", "addr", "show", "dev", "ens18"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "ens18  UP  192.0.2.10/24 fe80::1/64\n",
	})

	step := netplan.NewStaticAddressStep(staticConfig(), "", nil, runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeSatisfied, status)
}

func TestStaticAddressStep_Probe_AddressMissing(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("ip", []string{"-br", "addr", "show", "dev", "ens18"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "ens18  UP  198.51.100.7/24\n",
	})

	step := netplan.NewStaticAddressStep(staticConfig(), "", nil, runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeUnsatisfied, status)
}

func TestStaticAddressStep_Probe_UnknownInterfaceIsUnknown(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("ip", []string{"-br", "addr", "show", "dev", "ens18"}, ports.CommandResult{
		ExitCode: 1,
		Stderr:   `Device "ens18" does not exist.`,
	})

	step := netplan.NewStaticAddressStep(staticConfig(), "", nil, runner)
	status, err := step.Probe(runCtx())

	require.NoError(t, err)
	assert.Equal(t, runbook.ProbeUnknown, status)
}

func TestStaticAddressStep_Apply(t *testing.T) {
	t.Parallel()

	cfg := staticConfig()
	content, err := cfg.Render()
	require.NoError(t, err)

	runner := mocks.NewCommandRunner()
	runner.AddResult("sudo", []string{"tee", netplan.OverlayPath}, ports.CommandResult{ExitCode: 0})
	runner.AddResult("sudo", []string{"chmod", "600", netplan.OverlayPath}, ports.CommandResult{ExitCode: 0})
	runner.AddResult("sudo", []string{"netplan", "apply"}, ports.CommandResult{ExitCode: 0})

	step := netplan.NewStaticAddressStep(cfg, content, nil, runner)
	require.NoError(t, step.Apply(runCtx()))

	calls := runner.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, content, calls[0].Input)
	assert.Equal(t, []string{"chmod", "600", netplan.OverlayPath}, calls[1].Args)
}

func TestProvider_Compile_DependsOnFallback(t *testing.T) {
	t.Parallel()

	provider := netplan.NewProvider(mocks.NewCommandRunner(), true)
	ctx := runbook.NewCompileContext(map[string]interface{}{
		"access": map[string]interface{}{"user": "deploy"},
		"network": map[string]interface{}{
			"interface": "ens18",
			"address":   "192.0.2.10/24",
		},
	})

	steps, err := provider.Compile(ctx)
	require.NoError(t, err)
	require.Len(t, steps, 1)

	require.Len(t, steps[0].DependsOn(), 1)
	assert.True(t, steps[0].DependsOn()[0].Equals(runbook.FallbackStepID))
}

func TestProvider_Compile_RejectsBadInterface(t *testing.T) {
	t.Parallel()

	provider := netplan.NewProvider(mocks.NewCommandRunner(), false)
	ctx := runbook.NewCompileContext(map[string]interface{}{
		"network": map[string]interface{}{
			"interface": "ens18; reboot",
			"address":   "192.0.2.10/24",
		},
	})

	_, err := provider.Compile(ctx)
	require.Error(t, err)
}

func TestProvider_Compile_NoSection(t *testing.T) {
	t.Parallel()

	provider := netplan.NewProvider(mocks.NewCommandRunner(), false)
	steps, err := provider.Compile(runbook.NewCompileContext(nil))

	require.NoError(t, err)
	assert.Nil(t, steps)
}
