package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/weiihann/nanobench/params"
	"github.com/weiihann/nanobench/scratch"
)

// LocalConfig locates the kernel control facility.
type LocalConfig struct {
	// Root holds one control file per option plus reset, clear and the
	// payload endpoints.
	Root string
	// Results is read to trigger a run; the read blocks until the
	// measurement completes.
	Results string
}

// DefaultLocalConfig returns the paths the nanoBench kernel module exposes.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Root:    "/sys/nb",
		Results: "/proc/nanoBench",
	}
}

// Local drives the control facility of the running kernel.
type Local struct {
	cfg     LocalConfig
	scratch *scratch.Dir
	logger  *slog.Logger

	r14Size int64
}

// NewLocal checks that the control facility is present and returns a Local
// backend. Blob settings are staged in dir because the facility takes file
// paths, not contents.
func NewLocal(cfg LocalConfig, dir *scratch.Dir, logger *slog.Logger) (*Local, error) {
	for _, path := range []string{cfg.Root, cfg.Results} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInterfaceUnavailable, err)
		}
	}

	return &Local{
		cfg:     cfg,
		scratch: dir,
		logger:  logger.With(slog.String("backend", "local")),
	}, nil
}

func (l *Local) Name() string { return "local" }

// Apply writes each changed setting to its control endpoint. Writes are not
// rolled back when a later one fails.
func (l *Local) Apply(ctx context.Context, changes []params.Setting) error {
	for _, ch := range changes {
		content := ch.Value.String()

		if ch.Value.Kind() == params.KindBlob {
			path, err := l.scratch.WriteFile(ch.Option.Endpoint(), []byte(ch.Value.Text()))
			if err != nil {
				return fmt.Errorf("stage %s: %w", ch.Option, err)
			}

			content = path
		}

		if err := l.write(ch.Option.Endpoint(), content); err != nil {
			return err
		}

		l.logger.DebugContext(ctx, "parameter written",
			slog.String("option", string(ch.Option)),
			slog.String("endpoint", ch.Option.Endpoint()),
		)
	}

	return nil
}

// Deliver clears the previous payloads and points the facility at the new
// binaries.
func (l *Local) Deliver(ctx context.Context, payloads Payloads) error {
	if err := l.read("clear"); err != nil {
		return err
	}

	for _, slot := range Slots() {
		path := payloads.Get(slot)
		if path == "" {
			continue
		}

		if err := l.write(slot.String(), path); err != nil {
			return err
		}

		l.logger.DebugContext(ctx, "payload delivered",
			slog.String("slot", slot.String()),
			slog.String("path", path),
		)
	}

	return nil
}

// Execute reads the results endpoint, which runs the benchmark.
func (l *Local) Execute(ctx context.Context) (string, error) {
	l.logger.DebugContext(ctx, "reading results", slog.String("path", l.cfg.Results))

	data, err := os.ReadFile(l.cfg.Results)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrInterfaceUnavailable, l.cfg.Results, err)
	}

	return string(data), nil
}

// Reset triggers the facility's own reset endpoint.
func (l *Local) Reset(ctx context.Context) error {
	l.logger.DebugContext(ctx, "resetting control facility")
	return l.read("reset")
}

// R14Size returns the size in bytes of the memory area the kernel module
// points R14 at. The r14_size endpoint reports it in MB as the third field of
// its first line; the value is read once and cached.
func (l *Local) R14Size(ctx context.Context) (int64, error) {
	if l.r14Size > 0 {
		return l.r14Size, nil
	}

	path := filepath.Join(l.cfg.Root, "r14_size")

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %w", ErrInterfaceUnavailable, path, err)
	}

	line, _, _ := strings.Cut(string(data), "\n")

	fields := strings.Fields(line)
	if len(fields) < 3 {
		return 0, fmt.Errorf("parse %s: unexpected content %q", path, line)
	}

	mb, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	l.r14Size = mb * 1024 * 1024

	l.logger.DebugContext(ctx, "r14 size", slog.Int64("bytes", l.r14Size))

	return l.r14Size, nil
}

// write replaces the content of an existing endpoint. Endpoints are never
// created.
func (l *Local) write(endpoint, content string) error {
	path := filepath.Join(l.cfg.Root, endpoint)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrInterfaceUnavailable, path, err)
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}

func (l *Local) read(endpoint string) error {
	path := filepath.Join(l.cfg.Root, endpoint)

	if _, err := os.ReadFile(path); err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrInterfaceUnavailable, path, err)
	}

	return nil
}
