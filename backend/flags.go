package backend

import "github.com/weiihann/nanobench/params"

type flagStyle int

const (
	// flagValue emits "-name value".
	flagValue flagStyle = iota
	// flagNamedByValue emits "-value"; the value is the flag.
	flagNamedByValue
	// flagPresence emits "-name" when true and nothing when false.
	flagPresence
)

type remoteFlag struct {
	option params.Option
	name   string
	style  flagStyle
}

// remoteFlags maps options to nb command-line flags, in emission order.
// Options missing here (msrConfig, codeOffset) are not supported by nb.
var remoteFlags = []remoteFlag{
	{params.NMeasurements, "-n_measurements", flagValue},
	{params.UnrollCount, "-unroll_count", flagValue},
	{params.LoopCount, "-loop_count", flagValue},
	{params.WarmUpCount, "-warm_up_count", flagValue},
	{params.InitialWarmUpCount, "-initial_warm_up_count", flagValue},
	{params.AlignmentOffset, "-alignment_offset", flagValue},
	{params.AggregateFunction, "", flagNamedByValue},
	{params.BasicMode, "-basic_mode", flagPresence},
	{params.NoMem, "-no_mem", flagPresence},
	{params.Verbose, "-verbose", flagPresence},
}

func (f remoteFlag) appendTo(argv []string, v params.Value) []string {
	switch f.style {
	case flagValue:
		return append(argv, f.name, v.String())
	case flagNamedByValue:
		if v.Text() == "" {
			return argv
		}

		return append(argv, "-"+v.Text())
	case flagPresence:
		if v.Bool() {
			return append(argv, f.name)
		}

		return argv
	default:
		return argv
	}
}

// slotFlags are the nb flags naming each payload file.
var slotFlags = map[Slot]string{
	SlotCode:        "-code",
	SlotInit:        "-code_init",
	SlotOneTimeInit: "-code_one_time_init",
}
