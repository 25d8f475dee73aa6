// Package params tracks nanoBench configuration options and decides which
// changes need to be propagated to the measurement target.
package params

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOption = errors.New("unknown option")
	ErrKindMismatch  = errors.New("option kind mismatch")
)

// Kind is the value type an option accepts.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindBlob:
		return "blob"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Option names a single nanoBench setting.
type Option string

const (
	Config             Option = "config"
	MSRConfig          Option = "msrConfig"
	NMeasurements      Option = "nMeasurements"
	UnrollCount        Option = "unrollCount"
	LoopCount          Option = "loopCount"
	WarmUpCount        Option = "warmUpCount"
	InitialWarmUpCount Option = "initialWarmUpCount"
	AlignmentOffset    Option = "alignmentOffset"
	CodeOffset         Option = "codeOffset"
	AggregateFunction  Option = "aggregateFunction"
	BasicMode          Option = "basicMode"
	NoMem              Option = "noMem"
	Verbose            Option = "verbose"
)

type optionInfo struct {
	kind     Kind
	endpoint string
}

var catalog = map[Option]optionInfo{
	Config:             {KindBlob, "config"},
	MSRConfig:          {KindBlob, "msr_config"},
	NMeasurements:      {KindInt, "n_measurements"},
	UnrollCount:        {KindInt, "unroll_count"},
	LoopCount:          {KindInt, "loop_count"},
	WarmUpCount:        {KindInt, "warm_up"},
	InitialWarmUpCount: {KindInt, "initial_warm_up"},
	AlignmentOffset:    {KindInt, "alignment_offset"},
	CodeOffset:         {KindInt, "code_offset"},
	AggregateFunction:  {KindString, "agg"},
	BasicMode:          {KindBool, "basic_mode"},
	NoMem:              {KindBool, "no_mem"},
	Verbose:            {KindBool, "verbose"},
}

// Options returns every known option in the order the control facility
// documents them.
func Options() []Option {
	return []Option{
		Config, MSRConfig, NMeasurements, UnrollCount, LoopCount,
		WarmUpCount, InitialWarmUpCount, AlignmentOffset, CodeOffset,
		AggregateFunction, BasicMode, NoMem, Verbose,
	}
}

// Lookup resolves an option by its name.
func Lookup(name string) (Option, error) {
	opt := Option(name)
	if _, ok := catalog[opt]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOption, name)
	}

	return opt, nil
}

// Valid reports whether o is a known option.
func (o Option) Valid() bool {
	_, ok := catalog[o]
	return ok
}

// Kind returns the value kind o accepts.
func (o Option) Kind() Kind {
	return catalog[o].kind
}

// Endpoint returns the name of the control endpoint backing o.
func (o Option) Endpoint() string {
	return catalog[o].endpoint
}
