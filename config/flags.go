package config

import (
	"github.com/spf13/pflag"
)

// BindFlags registers the command-line overrides on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("backend", "local", "Measurement backend: local, remote")
	fs.String("scratch-dir", "", "Staging directory (default: fresh temp dir)")
	fs.Bool("tmpfs", false, "Mount a tmpfs ramdisk on the staging directory")
	fs.String("arch", "", "Assembler architecture: x86-64, aarch64 (default: follow backend)")
	fs.String("remote-dir", "", "Device working directory")
	fs.String("remote-executable", "", "Local path of the nb binary pushed to the device")

	// Option flags carry zero defaults: an unset flag leaves the option
	// unrecorded and the target keeps its own value.
	fs.String("config", "", "Counter configuration file")
	fs.String("msr-config", "", "MSR configuration file")
	fs.Int("n-measurements", 0, "Number of measurements (default: target's own)")
	fs.Int("unroll-count", 0, "Number of copies of the benchmark code (default: target's own)")
	fs.Int("loop-count", 0, "Loop iterations around the unrolled code (default: target's own)")
	fs.Int("warm-up-count", 0, "Warm-up runs before each measurement series (default: target's own)")
	fs.Int("initial-warm-up-count", 0, "Warm-up runs before the first series (default: target's own)")
	fs.Int("alignment-offset", 0, "Alignment offset of the benchmark code")
	fs.Int("code-offset", 0, "Offset of the code inside the run buffer")
	fs.String("agg", "", "Aggregate function: avg, med, min, max (default: target's own)")
	fs.Bool("basic-mode", false, "Measure without the empty-loop baseline")
	fs.Bool("no-mem", false, "Keep counter values in registers only")
	fs.Bool("verbose", false, "Include per-measurement details in the report")
}

// ApplyFlags overrides c with every flag that was set explicitly on fs.
// Flag defaults never override file or environment values.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"backend", &c.Backend},
		{"scratch-dir", &c.Scratch.Dir},
		{"arch", &c.Toolchain.Arch},
		{"remote-dir", &c.Remote.Dir},
		{"remote-executable", &c.Remote.Executable},
		{"config", &c.Options.ConfigFile},
		{"msr-config", &c.Options.MSRConfigFile},
	}
	for _, s := range strs {
		if !fs.Changed(s.name) {
			continue
		}

		v, err := fs.GetString(s.name)
		if err != nil {
			return err
		}

		*s.dst = v
	}

	if fs.Changed("tmpfs") {
		v, err := fs.GetBool("tmpfs")
		if err != nil {
			return err
		}

		c.Scratch.Tmpfs = v
	}

	ints := []struct {
		name string
		dst  **int
	}{
		{"n-measurements", &c.Options.NMeasurements},
		{"unroll-count", &c.Options.UnrollCount},
		{"loop-count", &c.Options.LoopCount},
		{"warm-up-count", &c.Options.WarmUpCount},
		{"initial-warm-up-count", &c.Options.InitialWarmUpCount},
		{"alignment-offset", &c.Options.AlignmentOffset},
		{"code-offset", &c.Options.CodeOffset},
	}
	for _, i := range ints {
		if !fs.Changed(i.name) {
			continue
		}

		v, err := fs.GetInt(i.name)
		if err != nil {
			return err
		}

		*i.dst = &v
	}

	if fs.Changed("agg") {
		v, err := fs.GetString("agg")
		if err != nil {
			return err
		}

		c.Options.AggregateFunction = &v
	}

	bools := []struct {
		name string
		dst  **bool
	}{
		{"basic-mode", &c.Options.BasicMode},
		{"no-mem", &c.Options.NoMem},
		{"verbose", &c.Options.Verbose},
	}
	for _, b := range bools {
		if !fs.Changed(b.name) {
			continue
		}

		v, err := fs.GetBool(b.name)
		if err != nil {
			return err
		}

		*b.dst = &v
	}

	return nil
}
