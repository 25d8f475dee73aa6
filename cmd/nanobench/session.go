package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/weiihann/nanobench/backend"
	"github.com/weiihann/nanobench/config"
	"github.com/weiihann/nanobench/encode"
	"github.com/weiihann/nanobench/harness"
	"github.com/weiihann/nanobench/scratch"
	"github.com/weiihann/nanobench/transport"
)

// session bundles a harness with the scratch directory it stages into.
type session struct {
	cfg     *config.Config
	backend backend.Backend
	harness *harness.Harness
	scratch *scratch.Dir
	logger  *slog.Logger

	stopSignals func()
}

func bindSessionFlags(cmd *cobra.Command) {
	config.BindFlags(cmd.Flags())
}

func openSession(
	ctx context.Context,
	logger *slog.Logger,
	flags *pflag.FlagSet,
	file string,
) (*session, error) {
	cfg, err := config.Load(file)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyFlags(flags); err != nil {
		return nil, fmt.Errorf("apply flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tc, err := cfg.ResolveToolchain()
	if err != nil {
		return nil, err
	}

	dir := scratch.New(scratch.Options{
		Dir:   cfg.Scratch.Dir,
		Tmpfs: cfg.Scratch.Tmpfs,
		Size:  cfg.Scratch.Size,
	}, logger)

	s := &session{
		cfg:         cfg,
		scratch:     dir,
		logger:      logger,
		stopSignals: releaseOnSignal(logger, dir),
	}

	b, err := newBackend(cfg, dir, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.backend = b
	s.harness = harness.New(b, encode.New(tc, dir, logger), logger)

	logger.DebugContext(ctx, "session ready",
		slog.String("backend", cfg.Backend),
		slog.String("arch", tc.Arch),
	)

	return s, nil
}

func newBackend(cfg *config.Config, dir *scratch.Dir, logger *slog.Logger) (backend.Backend, error) {
	switch cfg.Backend {
	case "local":
		return backend.NewLocal(backend.LocalConfig{
			Root:    cfg.Local.Root,
			Results: cfg.Local.Results,
		}, dir, logger)

	case "remote":
		env, err := config.LoadTransportEnv()
		if err != nil {
			return nil, err
		}

		adb := transport.NewADB(env.ADB, env.Serial, logger)

		return backend.NewRemote(backend.RemoteConfig{
			Dir:        cfg.Remote.Dir,
			Executable: cfg.Remote.Executable,
		}, adb, dir, logger), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// configure applies the file, environment and flag options.
func (s *session) configure(ctx context.Context) error {
	settings, err := s.cfg.Options.Settings()
	if err != nil {
		return err
	}

	return s.harness.Configure(ctx, settings...)
}

// Close releases the scratch directory.
func (s *session) Close() {
	s.stopSignals()

	if err := s.scratch.Close(); err != nil {
		s.logger.Warn("failed to release scratch dir",
			slog.String("error", err.Error()),
		)
	}
}

// releaseOnSignal tears down dir when the process is interrupted. A run
// blocked on the control facility cannot be cancelled, so the handler exits
// the process itself after cleaning up.
func releaseOnSignal(logger *slog.Logger, dir *scratch.Dir) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigs:
			logger.Warn("interrupted, releasing scratch dir",
				slog.String("signal", sig.String()),
			)

			if err := dir.Close(); err != nil {
				logger.Warn("failed to release scratch dir",
					slog.String("error", err.Error()),
				)
			}

			os.Exit(1)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
