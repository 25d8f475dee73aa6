package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/weiihann/nanobench/params"
	"github.com/weiihann/nanobench/scratch"
)

const (
	remoteExecutable = "nb"
	remoteConfig     = "config"
	remoteOutput     = "results"
)

// Transport moves files to and from a device and runs commands on it.
type Transport interface {
	Push(ctx context.Context, local, remote string) error
	Pull(ctx context.Context, remote, local string) error
	Shell(ctx context.Context, argv ...string) (string, error)
}

// RemoteConfig describes the device side of a remote run.
type RemoteConfig struct {
	// Dir is the device working directory. It is removed after every run.
	Dir string
	// Executable is the local path of the nb binary built for the device.
	Executable string
}

// DefaultRemoteConfig returns the layout used for Android devices.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Dir:        "/data/local/tmp/nanobench",
		Executable: "../../user/libs/arm64-v8a/nb",
	}
}

// Remote runs nb on a device. Settings travel as command-line flags, so
// Apply only records them and Execute passes every recorded setting.
type Remote struct {
	cfg       RemoteConfig
	transport Transport
	scratch   *scratch.Dir
	logger    *slog.Logger

	settings map[params.Option]params.Value
	config   string
	staged   Payloads
}

// NewRemote returns a Remote backend. Blob settings and pulled results are
// kept in dir.
func NewRemote(
	cfg RemoteConfig,
	transport Transport,
	dir *scratch.Dir,
	logger *slog.Logger,
) *Remote {
	return &Remote{
		cfg:       cfg,
		transport: transport,
		scratch:   dir,
		logger:    logger.With(slog.String("backend", "remote")),
		settings:  make(map[params.Option]params.Value),
	}
}

func (r *Remote) Name() string { return "remote" }

// Apply records the changed settings for the next command line. The counter
// configuration blob is staged for upload.
func (r *Remote) Apply(ctx context.Context, changes []params.Setting) error {
	for _, ch := range changes {
		if ch.Option == params.Config {
			file, err := r.scratch.WriteFile(remoteConfig, []byte(ch.Value.Text()))
			if err != nil {
				return fmt.Errorf("stage %s: %w", ch.Option, err)
			}

			r.config = file
		}

		r.settings[ch.Option] = ch.Value

		r.logger.DebugContext(ctx, "parameter recorded",
			slog.String("option", string(ch.Option)),
		)
	}

	return nil
}

// Deliver uploads the present payloads, the nb executable and the counter
// configuration to the device working directory.
func (r *Remote) Deliver(ctx context.Context, payloads Payloads) error {
	if err := r.requireConfig(); err != nil {
		return err
	}

	if _, err := r.transport.Shell(ctx, "mkdir", "-p", r.cfg.Dir); err != nil {
		return fmt.Errorf("create %s: %w", r.cfg.Dir, err)
	}

	r.staged = Payloads{}

	for _, slot := range Slots() {
		local := payloads.Get(slot)
		if local == "" {
			continue
		}

		remote := r.remotePath(slot.String() + ".bin")
		if err := r.transport.Push(ctx, local, remote); err != nil {
			return fmt.Errorf("push %s: %w", slot, err)
		}

		r.staged.Set(slot, remote)
	}

	if err := r.transport.Push(ctx, r.cfg.Executable, r.remotePath(remoteExecutable)); err != nil {
		return fmt.Errorf("push executable: %w", err)
	}

	if err := r.transport.Push(ctx, r.config, r.remotePath(remoteConfig)); err != nil {
		return fmt.Errorf("push config: %w", err)
	}

	return nil
}

// Execute runs nb on the device, pulls the report back and removes the
// device working directory.
func (r *Remote) Execute(ctx context.Context) (string, error) {
	if err := r.requireConfig(); err != nil {
		return "", err
	}

	argv := r.Command()

	r.logger.InfoContext(ctx, "running on device", slog.Any("argv", argv))

	if _, err := r.transport.Shell(ctx, argv...); err != nil {
		return "", fmt.Errorf("run nb: %w", err)
	}

	local, err := r.scratch.File(remoteOutput)
	if err != nil {
		return "", err
	}

	if err := os.Remove(local); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("remove stale %s: %w", local, err)
	}

	if err := r.transport.Pull(ctx, r.remotePath(remoteOutput), local); err != nil {
		return "", fmt.Errorf("pull results: %w", err)
	}

	if _, err := r.transport.Shell(ctx, "rm", "-r", r.cfg.Dir); err != nil {
		return "", fmt.Errorf("remove %s: %w", r.cfg.Dir, err)
	}

	r.staged = Payloads{}

	data, err := os.ReadFile(local)
	if err != nil {
		return "", fmt.Errorf("read results %s: %w", local, err)
	}

	return string(data), nil
}

// Reset forgets every recorded setting. nb keeps no state between runs, so
// the device is not contacted.
func (r *Remote) Reset(ctx context.Context) error {
	clear(r.settings)
	r.config = ""
	r.staged = Payloads{}

	r.logger.DebugContext(ctx, "remote settings cleared")

	return nil
}

// Command returns the nb command line for the current settings and delivered
// payloads.
func (r *Remote) Command() []string {
	argv := []string{r.remotePath(remoteExecutable)}

	for _, slot := range Slots() {
		if p := r.staged.Get(slot); p != "" {
			argv = append(argv, slotFlags[slot], p)
		}
	}

	if _, ok := r.settings[params.Config]; ok {
		argv = append(argv, "-config", r.remotePath(remoteConfig))
	}

	argv = append(argv, "-output", r.remotePath(remoteOutput))

	for _, f := range remoteFlags {
		if v, ok := r.settings[f.option]; ok {
			argv = f.appendTo(argv, v)
		}
	}

	return append(argv, "-cpu", "0")
}

func (r *Remote) requireConfig() error {
	if _, ok := r.settings[params.Config]; !ok {
		return ErrConfigurationMissing
	}

	return nil
}

func (r *Remote) remotePath(name string) string {
	return path.Join(r.cfg.Dir, name)
}
