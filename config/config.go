// Package config loads nanobench settings from a YAML file, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/weiihann/nanobench/backend"
	"github.com/weiihann/nanobench/encode"
	"github.com/weiihann/nanobench/params"
)

// Config is the full harness configuration.
type Config struct {
	Backend   string          `mapstructure:"backend"`
	Scratch   ScratchConfig   `mapstructure:"scratch"`
	Local     LocalConfig     `mapstructure:"local"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Toolchain ToolchainConfig `mapstructure:"toolchain"`
	Options   OptionsConfig   `mapstructure:"options"`
}

// ScratchConfig controls the staging directory.
type ScratchConfig struct {
	Dir   string `mapstructure:"dir"`
	Tmpfs bool   `mapstructure:"tmpfs"`
	Size  string `mapstructure:"size"`
}

// LocalConfig locates the kernel control facility.
type LocalConfig struct {
	Root    string `mapstructure:"root"`
	Results string `mapstructure:"results"`
}

// RemoteConfig describes the device side of remote runs.
type RemoteConfig struct {
	Dir        string `mapstructure:"dir"`
	Executable string `mapstructure:"executable"`
}

// ToolchainConfig selects the assembler. An empty Arch follows the backend:
// x86-64 for local, aarch64 for remote.
type ToolchainConfig struct {
	Arch string `mapstructure:"arch"`
}

// OptionsConfig holds benchmark options. Nil fields are left unset.
type OptionsConfig struct {
	Config             *string `mapstructure:"config"`
	ConfigFile         string  `mapstructure:"config_file"`
	MSRConfig          *string `mapstructure:"msr_config"`
	MSRConfigFile      string  `mapstructure:"msr_config_file"`
	NMeasurements      *int    `mapstructure:"n_measurements"`
	UnrollCount        *int    `mapstructure:"unroll_count"`
	LoopCount          *int    `mapstructure:"loop_count"`
	WarmUpCount        *int    `mapstructure:"warm_up_count"`
	InitialWarmUpCount *int    `mapstructure:"initial_warm_up_count"`
	AlignmentOffset    *int    `mapstructure:"alignment_offset"`
	CodeOffset         *int    `mapstructure:"code_offset"`
	AggregateFunction  *string `mapstructure:"aggregate_function"`
	BasicMode          *bool   `mapstructure:"basic_mode"`
	NoMem              *bool   `mapstructure:"no_mem"`
	Verbose            *bool   `mapstructure:"verbose"`
}

// TransportEnv is the adb environment.
type TransportEnv struct {
	ADB    string `env:"ADB" envDefault:"adb"`
	Serial string `env:"ANDROID_SERIAL"`
}

func setDefaults(v *viper.Viper) {
	local := backend.DefaultLocalConfig()
	remote := backend.DefaultRemoteConfig()

	v.SetDefault("backend", "local")
	v.SetDefault("scratch.dir", "")
	v.SetDefault("scratch.tmpfs", false)
	v.SetDefault("scratch.size", "100M")
	v.SetDefault("local.root", local.Root)
	v.SetDefault("local.results", local.Results)
	v.SetDefault("remote.dir", remote.Dir)
	v.SetDefault("remote.executable", remote.Executable)
	v.SetDefault("toolchain.arch", "")
	v.SetDefault("options.alignment_offset", 0)
	v.SetDefault("options.code_offset", 0)
}

// optionKeys are the options section keys. They have no defaults, so each
// is bound to its environment variable explicitly for Unmarshal to see it.
var optionKeys = []string{
	"config", "config_file", "msr_config", "msr_config_file",
	"n_measurements", "unroll_count", "loop_count", "warm_up_count",
	"initial_warm_up_count", "alignment_offset", "code_offset",
	"aggregate_function", "basic_mode", "no_mem", "verbose",
}

func bindEnv(v *viper.Viper) error {
	for _, key := range optionKeys {
		if err := v.BindEnv("options." + key); err != nil {
			return fmt.Errorf("bind env for options.%s: %w", key, err)
		}
	}

	return nil
}

// Load reads the YAML file at path, if any, and applies NANOBENCH_*
// environment overrides (NANOBENCH_BACKEND, NANOBENCH_SCRATCH_DIR,
// NANOBENCH_OPTIONS_UNROLL_COUNT, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NANOBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

// LoadTransportEnv reads the adb settings from the environment.
func LoadTransportEnv() (TransportEnv, error) {
	var e TransportEnv
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}

	return e, nil
}

// Validate rejects unknown backend and architecture names.
func (c *Config) Validate() error {
	if !slices.Contains(backend.KnownBackends(), c.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %s)",
			c.Backend, strings.Join(backend.KnownBackends(), ", "))
	}

	if c.Toolchain.Arch != "" {
		if _, err := encode.ForArch(c.Toolchain.Arch); err != nil {
			return err
		}
	}

	return nil
}

// ResolveToolchain picks the assembler toolchain for the configured backend.
func (c *Config) ResolveToolchain() (encode.Toolchain, error) {
	if c.Toolchain.Arch != "" {
		return encode.ForArch(c.Toolchain.Arch)
	}

	if c.Backend == "remote" {
		return encode.AArch64(), nil
	}

	return encode.X86(), nil
}

// Settings converts the options into harness settings in canonical order.
// Blob options given as files are read here.
func (o OptionsConfig) Settings() ([]params.Setting, error) {
	var out []params.Setting

	blob := func(opt params.Option, inline *string, file string) error {
		switch {
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s file: %w", opt, err)
			}

			out = append(out, params.NewSetting(opt, params.Blob(data)))
		case inline != nil:
			out = append(out, params.NewSetting(opt, params.Blob([]byte(*inline))))
		}

		return nil
	}

	if err := blob(params.Config, o.Config, o.ConfigFile); err != nil {
		return nil, err
	}

	if err := blob(params.MSRConfig, o.MSRConfig, o.MSRConfigFile); err != nil {
		return nil, err
	}

	ints := []struct {
		opt params.Option
		val *int
	}{
		{params.NMeasurements, o.NMeasurements},
		{params.UnrollCount, o.UnrollCount},
		{params.LoopCount, o.LoopCount},
		{params.WarmUpCount, o.WarmUpCount},
		{params.InitialWarmUpCount, o.InitialWarmUpCount},
		{params.AlignmentOffset, o.AlignmentOffset},
		{params.CodeOffset, o.CodeOffset},
	}
	for _, i := range ints {
		if i.val != nil {
			out = append(out, params.NewSetting(i.opt, params.Int(*i.val)))
		}
	}

	if o.AggregateFunction != nil {
		out = append(out, params.NewSetting(params.AggregateFunction,
			params.String(*o.AggregateFunction)))
	}

	bools := []struct {
		opt params.Option
		val *bool
	}{
		{params.BasicMode, o.BasicMode},
		{params.NoMem, o.NoMem},
		{params.Verbose, o.Verbose},
	}
	for _, b := range bools {
		if b.val != nil {
			out = append(out, params.NewSetting(b.opt, params.Bool(*b.val)))
		}
	}

	return out, nil
}
