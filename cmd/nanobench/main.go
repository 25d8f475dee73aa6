// Package main provides the CLI entry point for nanobench, a harness that
// runs microbenchmarks under the nanoBench performance-counter facility,
// either on this machine or on an Android device over adb.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiihann/nanobench/backend"
	"github.com/weiihann/nanobench/report"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level)
	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.Error("nanobench failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "nanobench",
		Short: "Run microbenchmarks under hardware performance counters",
		Long: `Nanobench assembles a benchmark snippet, hands it to the nanoBench
measurement facility (the kernel module on this machine, or the nb binary on
a device reached over adb) and prints the measured counter values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose-log", false,
		"Enable debug logging")

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newSuiteCmd(logger))
	root.AddCommand(newResetCmd(logger))
	root.AddCommand(newR14Cmd(logger))

	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		file       string
		outputJSON bool
		payloads   payloadFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single benchmark",
		Long: `Configure the measurement target, run one benchmark and print its
counter report. Each payload slot takes assembly source, an object file or a
raw binary, but only one of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := openSession(ctx, logger, cmd.Flags(), file)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.configure(ctx); err != nil {
				return err
			}

			counters, err := s.harness.Run(ctx, payloads.request())
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			return writeReport(cmd, outputJSON, []report.Result{{Name: "run", Counters: counters}})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&file, "file", "f", "",
		"Path to a YAML settings file")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")
	payloads.bind(cmd)
	bindSessionFlags(cmd)

	return cmd
}

func newSuiteCmd(logger *slog.Logger) *cobra.Command {
	var (
		file       string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "suite <cases.jsonl>",
		Short: "Run every benchmark of a JSONL suite",
		Long: `Run the cases of a JSONL suite one after another on the same target and
print a comparison table. Settings from flags and the settings file apply to
every case; per-case options are applied on top of them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, logger, file, args[0], outputJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&file, "file", "f", "",
		"Path to a YAML settings file")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")
	bindSessionFlags(cmd)

	return cmd
}

func newResetCmd(logger *slog.Logger) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings of the measurement target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := openSession(ctx, logger, cmd.Flags(), file)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.harness.Reset(ctx); err != nil {
				return err
			}

			logger.InfoContext(ctx, "target reset",
				slog.String("backend", s.cfg.Backend))

			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "",
		"Path to a YAML settings file")
	bindSessionFlags(cmd)

	return cmd
}

func newR14Cmd(logger *slog.Logger) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "r14-size",
		Short: "Print the size of the memory area R14 points to",
		Long: `Print the size in bytes of the memory area the kernel module reserves
for benchmarks to address through R14. Only the local backend reports it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := openSession(ctx, logger, cmd.Flags(), file)
			if err != nil {
				return err
			}
			defer s.Close()

			local, ok := s.backend.(*backend.Local)
			if !ok {
				return fmt.Errorf("r14-size is not supported by the %s backend", s.backend.Name())
			}

			size, err := local.R14Size(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), size)

			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "",
		"Path to a YAML settings file")
	bindSessionFlags(cmd)

	return cmd
}
