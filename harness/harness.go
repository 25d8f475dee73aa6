// Package harness runs nanoBench benchmarks. A Harness owns one parameter
// store and one backend and is not safe for concurrent use; run independent
// Harness values against independent targets instead.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/weiihann/nanobench/backend"
	"github.com/weiihann/nanobench/encode"
	"github.com/weiihann/nanobench/params"
	"github.com/weiihann/nanobench/report"
)

// ErrNotConfigured is returned by Run before the first Configure or Reset.
var ErrNotConfigured = errors.New("harness not configured")

// AmbiguousPayloadError reports a payload slot with more than one variant.
type AmbiguousPayloadError struct {
	Slot     backend.Slot
	Variants int
}

func (e *AmbiguousPayloadError) Error() string {
	return fmt.Sprintf("payload %s: %d variants given, want at most one",
		e.Slot, e.Variants)
}

// State is the lifecycle position of a Harness.
type State int

const (
	StateUninitialized State = iota
	StateConfigured
	// StateReady holds while payloads are on the target and the run is in
	// flight.
	StateReady
	StateRan
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateReady:
		return "ready"
	case StateRan:
		return "ran"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request holds the payload of each slot for one run.
type Request struct {
	Code        encode.Payload
	Init        encode.Payload
	OneTimeInit encode.Payload
}

func (r Request) payload(s backend.Slot) encode.Payload {
	switch s {
	case backend.SlotCode:
		return r.Code
	case backend.SlotInit:
		return r.Init
	case backend.SlotOneTimeInit:
		return r.OneTimeInit
	default:
		return encode.Payload{}
	}
}

// Harness drives benchmark runs on a single backend.
type Harness struct {
	backend backend.Backend
	encoder *encode.Encoder
	store   *params.Store
	state   State
	logger  *slog.Logger
}

// New returns a Harness in the uninitialized state.
func New(b backend.Backend, enc *encode.Encoder, logger *slog.Logger) *Harness {
	return &Harness{
		backend: b,
		encoder: enc,
		store:   params.NewStore(),
		logger:  logger.With(slog.String("backend", b.Name())),
	}
}

// State returns the current lifecycle state.
func (h *Harness) State() State {
	return h.state
}

// Setting returns the value last configured for opt.
func (h *Harness) Setting(opt params.Option) (params.Value, bool) {
	return h.store.Get(opt)
}

// Configure records settings and propagates the ones that changed to the
// backend. All settings are validated before any is recorded. A backend
// failure leaves the store ahead of the target; call Reset to resync.
func (h *Harness) Configure(ctx context.Context, settings ...params.Setting) error {
	for _, s := range settings {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("configure: %w", err)
		}
	}

	var changes []params.Setting

	for _, s := range settings {
		changed, err := h.store.Set(s.Option, s.Value)
		if err != nil {
			return fmt.Errorf("configure %s: %w", s.Option, err)
		}

		if changed {
			changes = append(changes, s)
		}
	}

	if len(changes) > 0 {
		if err := h.backend.Apply(ctx, changes); err != nil {
			return fmt.Errorf("apply settings: %w", err)
		}
	}

	h.logger.DebugContext(ctx, "configured",
		slog.Int("settings", len(settings)),
		slog.Int("changed", len(changes)),
	)

	h.state = StateConfigured

	return nil
}

// Reset forgets every setting and resets the target, so the next Configure
// propagates everything again.
func (h *Harness) Reset(ctx context.Context) error {
	h.store.Reset()

	if err := h.backend.Reset(ctx); err != nil {
		return fmt.Errorf("reset %s: %w", h.backend.Name(), err)
	}

	h.state = StateConfigured

	return nil
}

// Run encodes the payloads, executes them on the backend and returns the
// parsed counter report.
func (h *Harness) Run(ctx context.Context, req Request) (*report.Counters, error) {
	if h.state == StateUninitialized {
		return nil, ErrNotConfigured
	}

	for _, slot := range backend.Slots() {
		if n := req.payload(slot).Variants(); n > 1 {
			return nil, &AmbiguousPayloadError{Slot: slot, Variants: n}
		}
	}

	var payloads backend.Payloads

	for _, slot := range backend.Slots() {
		path, err := h.encoder.Encode(ctx, slot.String(), req.payload(slot))
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", slot, err)
		}

		payloads.Set(slot, path)
	}

	h.logger.InfoContext(ctx, "starting run")

	wallStart := time.Now()

	if err := h.backend.Deliver(ctx, payloads); err != nil {
		return nil, fmt.Errorf("deliver payloads: %w", err)
	}

	h.state = StateReady

	raw, err := h.backend.Execute(ctx)
	if err != nil {
		h.state = StateConfigured
		return nil, fmt.Errorf("execute: %w", err)
	}

	counters, err := report.Parse(raw)
	if err != nil {
		h.state = StateConfigured
		return nil, fmt.Errorf("parse report: %w\nraw: %s", err, raw)
	}

	h.state = StateRan

	h.logger.InfoContext(ctx, "run finished",
		slog.Duration("wall_time", time.Since(wallStart)),
		slog.Int("counters", counters.Len()),
	)

	return counters, nil
}
