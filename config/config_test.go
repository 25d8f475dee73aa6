package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/nanobench/params"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "local", cfg.Backend)
	assert.Equal(t, "/sys/nb", cfg.Local.Root)
	assert.Equal(t, "/proc/nanoBench", cfg.Local.Results)
	assert.Equal(t, "/data/local/tmp/nanobench", cfg.Remote.Dir)
	require.NotNil(t, cfg.Options.AlignmentOffset)
	assert.Equal(t, 0, *cfg.Options.AlignmentOffset)
	assert.Nil(t, cfg.Options.UnrollCount)

	settings, err := cfg.Options.Settings()
	require.NoError(t, err)
	assert.Equal(t, []params.Setting{
		params.NewSetting(params.AlignmentOffset, params.Int(0)),
		params.NewSetting(params.CodeOffset, params.Int(0)),
	}, settings)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "nanobench.yaml", `
backend: remote
remote:
  dir: /data/local/tmp/bench
options:
  config: |
    0E.01 UOPS_ISSUED.ANY
  unroll_count: 100
  aggregate_function: min
  basic_mode: true
  no_mem: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "remote", cfg.Backend)
	assert.Equal(t, "/data/local/tmp/bench", cfg.Remote.Dir)

	settings, err := cfg.Options.Settings()
	require.NoError(t, err)

	want := []params.Setting{
		params.NewSetting(params.Config, params.Blob([]byte("0E.01 UOPS_ISSUED.ANY\n"))),
		params.NewSetting(params.UnrollCount, params.Int(100)),
		params.NewSetting(params.AlignmentOffset, params.Int(0)),
		params.NewSetting(params.CodeOffset, params.Int(0)),
		params.NewSetting(params.AggregateFunction, params.String("min")),
		params.NewSetting(params.BasicMode, params.Bool(true)),
		params.NewSetting(params.NoMem, params.Bool(false)),
	}
	assert.Equal(t, want, settings)

	tc, err := cfg.ResolveToolchain()
	require.NoError(t, err)
	assert.Equal(t, "aarch64", tc.Arch)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NANOBENCH_BACKEND", "remote")
	t.Setenv("NANOBENCH_LOCAL_ROOT", "/tmp/nb")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "remote", cfg.Backend)
	assert.Equal(t, "/tmp/nb", cfg.Local.Root)
}

func TestLoadEnvOverridesOptions(t *testing.T) {
	t.Setenv("NANOBENCH_OPTIONS_UNROLL_COUNT", "77")
	t.Setenv("NANOBENCH_OPTIONS_BASIC_MODE", "true")
	t.Setenv("NANOBENCH_OPTIONS_AGGREGATE_FUNCTION", "min")

	cfg, err := Load("")
	require.NoError(t, err)

	require.NotNil(t, cfg.Options.UnrollCount)
	assert.Equal(t, 77, *cfg.Options.UnrollCount)
	require.NotNil(t, cfg.Options.BasicMode)
	assert.True(t, *cfg.Options.BasicMode)
	require.NotNil(t, cfg.Options.AggregateFunction)
	assert.Equal(t, "min", *cfg.Options.AggregateFunction)
	assert.Nil(t, cfg.Options.LoopCount)

	settings, err := cfg.Options.Settings()
	require.NoError(t, err)
	assert.Contains(t, settings, params.NewSetting(params.UnrollCount, params.Int(77)))
	assert.Contains(t, settings, params.NewSetting(params.BasicMode, params.Bool(true)))
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Backend = "ssh"
	require.Error(t, cfg.Validate())

	cfg.Backend = "local"
	cfg.Toolchain.Arch = "riscv"
	require.Error(t, cfg.Validate())
}

func TestSettingsReadsConfigFile(t *testing.T) {
	file := writeFile(t, "cfg_Skylake.txt", "C4.00 BR_INST_RETIRED.ALL_BRANCHES\n")

	inline := "ignored"
	opts := OptionsConfig{Config: &inline, ConfigFile: file}

	settings, err := opts.Settings()
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.Equal(t, "C4.00 BR_INST_RETIRED.ALL_BRANCHES\n", settings[0].Value.Text())

	opts.ConfigFile = filepath.Join(t.TempDir(), "missing")
	_, err = opts.Settings()
	require.Error(t, err)
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	path := writeFile(t, "nanobench.yaml", `
options:
  unroll_count: 100
  loop_count: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--loop-count", "0", "--basic-mode", "--backend", "remote"}))

	require.NoError(t, cfg.ApplyFlags(fs))

	assert.Equal(t, "remote", cfg.Backend)
	assert.Equal(t, 100, *cfg.Options.UnrollCount, "flag default must not override file")
	assert.Equal(t, 0, *cfg.Options.LoopCount)
	require.NotNil(t, cfg.Options.BasicMode)
	assert.True(t, *cfg.Options.BasicMode)
	assert.Nil(t, cfg.Options.NoMem)
	assert.Nil(t, cfg.Options.AggregateFunction)
}

func TestOptionFlagsHaveNoDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)

	for _, name := range []string{"n-measurements", "unroll-count", "loop-count", "warm-up-count", "initial-warm-up-count"} {
		assert.Equal(t, "0", fs.Lookup(name).DefValue, name)
	}

	assert.Empty(t, fs.Lookup("agg").DefValue)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, cfg.ApplyFlags(fs))

	assert.Nil(t, cfg.Options.NMeasurements)
	assert.Nil(t, cfg.Options.UnrollCount)
	assert.Nil(t, cfg.Options.WarmUpCount)
	assert.Nil(t, cfg.Options.AggregateFunction)
}

func TestLoadTransportEnv(t *testing.T) {
	t.Setenv("ADB", "/opt/platform-tools/adb")
	t.Setenv("ANDROID_SERIAL", "R58M123ABC")

	e, err := LoadTransportEnv()
	require.NoError(t, err)
	assert.Equal(t, "/opt/platform-tools/adb", e.ADB)
	assert.Equal(t, "R58M123ABC", e.Serial)
}
