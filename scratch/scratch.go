// Package scratch manages the staging directory that holds encoded payloads
// and configuration files before they are handed to the measurement target.
// The directory is created on first use and torn down by Close.
package scratch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned when a closed Dir is used.
var ErrClosed = errors.New("scratch dir closed")

// Options controls where and how the scratch directory is created.
type Options struct {
	// Dir is the directory to use. Empty picks a fresh directory under
	// os.TempDir().
	Dir string
	// Tmpfs mounts a tmpfs of Size on Dir, mirroring a ramdisk.
	Tmpfs bool
	Size  string
}

// Dir is a lazily created scratch directory. It is safe to call Close from a
// signal handler while another goroutine is using the Dir.
type Dir struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	path    string
	created bool
	mounted bool
	closed  bool
}

// New returns a Dir that has not touched the filesystem yet.
func New(opts Options, logger *slog.Logger) *Dir {
	return &Dir{
		opts:   opts,
		logger: logger,
	}
}

// Path returns the scratch directory, creating (and mounting) it on first
// use.
func (d *Dir) Path() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", ErrClosed
	}

	if d.path != "" {
		return d.path, nil
	}

	path := d.opts.Dir
	if path == "" {
		path = filepath.Join(os.TempDir(), "nanobench-"+uuid.NewString()[:8])
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		d.created = true
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir %s: %w", path, err)
	}

	if d.opts.Tmpfs {
		if err := mountTmpfs(path, d.opts.Size); err != nil {
			if d.created {
				os.Remove(path)
			}

			return "", fmt.Errorf("mount tmpfs on %s: %w", path, err)
		}

		d.mounted = true
	}

	d.path = path

	d.logger.Debug("scratch dir ready",
		slog.String("path", path),
		slog.Bool("tmpfs", d.mounted),
	)

	return path, nil
}

// File returns the path of name inside the scratch directory.
func (d *Dir) File(name string) (string, error) {
	dir, err := d.Path()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, name), nil
}

// WriteFile writes data to name inside the scratch directory and returns
// the full path.
func (d *Dir) WriteFile(name string, data []byte) (string, error) {
	path, err := d.File(name)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write scratch file %s: %w", path, err)
	}

	return path, nil
}

// Close unmounts and removes the directory if this Dir set it up. Calling
// Close more than once is a no-op.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	d.closed = true

	if d.path == "" {
		return nil
	}

	var errs []error

	if d.mounted {
		if err := unmount(d.path); err != nil {
			errs = append(errs, fmt.Errorf("unmount %s: %w", d.path, err))
		}
	}

	if d.created {
		if err := os.RemoveAll(d.path); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", d.path, err))
		}
	}

	d.logger.Debug("scratch dir released", slog.String("path", d.path))

	return errors.Join(errs...)
}
