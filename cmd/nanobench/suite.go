package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiihann/nanobench/params"
	"github.com/weiihann/nanobench/report"
	"github.com/weiihann/nanobench/suite"
)

func runSuite(
	cmd *cobra.Command,
	logger *slog.Logger,
	file, suitePath string,
	outputJSON bool,
) error {
	ctx := cmd.Context()

	f, err := os.Open(suitePath)
	if err != nil {
		return fmt.Errorf("open suite %s: %w", suitePath, err)
	}
	defer f.Close()

	cases, err := suite.Load(f)
	if err != nil {
		return fmt.Errorf("load suite %s: %w", suitePath, err)
	}

	if len(cases) == 0 {
		return fmt.Errorf("suite %s has no cases", suitePath)
	}

	s, err := openSession(ctx, logger, cmd.Flags(), file)
	if err != nil {
		return err
	}
	defer s.Close()

	base, err := s.cfg.Options.Settings()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting suite",
		slog.String("suite", suitePath),
		slog.Int("cases", len(cases)),
	)

	results := make([]report.Result, 0, len(cases))

	for i, c := range cases {
		extra, err := c.Settings()
		if err != nil {
			return err
		}

		// Options of the previous case must not leak into this one.
		if i > 0 && len(cases[i-1].Options) > 0 {
			if err := s.harness.Reset(ctx); err != nil {
				return fmt.Errorf("case %s: %w", c.Name, err)
			}
		}

		settings := append(append([]params.Setting(nil), base...), extra...)
		if err := s.harness.Configure(ctx, settings...); err != nil {
			return fmt.Errorf("case %s: %w", c.Name, err)
		}

		counters, err := s.harness.Run(ctx, c.Request())
		if err != nil {
			return fmt.Errorf("case %s: %w", c.Name, err)
		}

		results = append(results, report.Result{Name: c.Name, Counters: counters})
	}

	return writeReport(cmd, outputJSON, results)
}

func writeReport(cmd *cobra.Command, outputJSON bool, results []report.Result) error {
	w := cmd.OutOrStdout()

	if outputJSON {
		if err := report.GenerateJSON(w, results); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}

		return nil
	}

	if err := report.Generate(w, results); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	return nil
}
