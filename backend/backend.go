// Package backend applies settings and payloads to a nanoBench measurement
// target and triggers runs. Local drives the kernel control files of the
// running machine; Remote drives the user-space nb binary on a device reached
// through a Transport.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiihann/nanobench/params"
)

var (
	// ErrInterfaceUnavailable means a local control endpoint is missing or
	// cannot be accessed, usually because the kernel module is not loaded.
	ErrInterfaceUnavailable = errors.New("control interface unavailable")
	// ErrConfigurationMissing means a remote run was attempted before a
	// counter configuration blob was set.
	ErrConfigurationMissing = errors.New("counter configuration missing")
)

// Slot names one payload stage of a benchmark.
type Slot int

const (
	SlotCode Slot = iota
	SlotInit
	SlotOneTimeInit
)

// Slots returns every slot in delivery order.
func Slots() []Slot {
	return []Slot{SlotCode, SlotInit, SlotOneTimeInit}
}

func (s Slot) String() string {
	switch s {
	case SlotCode:
		return "code"
	case SlotInit:
		return "init"
	case SlotOneTimeInit:
		return "one_time_init"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Payloads holds the path of the staged binary for each slot. An empty path
// means the slot is not used.
type Payloads struct {
	Code        string
	Init        string
	OneTimeInit string
}

// Get returns the path staged for s.
func (p Payloads) Get(s Slot) string {
	switch s {
	case SlotCode:
		return p.Code
	case SlotInit:
		return p.Init
	case SlotOneTimeInit:
		return p.OneTimeInit
	default:
		return ""
	}
}

// Set stores path for s.
func (p *Payloads) Set(s Slot, path string) {
	switch s {
	case SlotCode:
		p.Code = path
	case SlotInit:
		p.Init = path
	case SlotOneTimeInit:
		p.OneTimeInit = path
	}
}

// Backend is a measurement target.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Apply propagates settings that changed since the last Apply.
	Apply(ctx context.Context, changes []params.Setting) error
	// Deliver hands the staged payload binaries to the target.
	Deliver(ctx context.Context, payloads Payloads) error
	// Execute runs the benchmark and returns the raw counter report. It
	// blocks until the measurement completes.
	Execute(ctx context.Context) (string, error)
	// Reset returns the target to its default settings.
	Reset(ctx context.Context) error
}

// KnownBackends returns the supported backend names.
func KnownBackends() []string {
	return []string{"local", "remote"}
}
