// Package main provides the CLI entry point for sweepstat, a
// perf-counter benchmark-sweep harness.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weiihann/sweepstat/builder"
	"github.com/weiihann/sweepstat/config"
	"github.com/weiihann/sweepstat/measure"
	"github.com/weiihann/sweepstat/report"
	"github.com/weiihann/sweepstat/sink"
	"github.com/weiihann/sweepstat/sweep"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "sweepstat",
		Short: "Perf-counter benchmark-sweep harness",
		Long: `Sweepstat rebuilds a target artifact across a grid of build
configurations (SMP count x boolean mode, with repeated trials), runs a
fixed workload under perf stat for each point, and persists every run's
combined output under a deterministic filename for later analysis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newReportCmd(logger))

	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		configPath   string
		smpMax       int
		trials       int
		workloadPath string
		workloadArgs []string
		outDir       string
		buildDir     string
		makePath     string
		smpVar       string
		modeVar      string
		buildArgs    []string
		perfPath     string
		events       []string
		timeout      time.Duration
		failFast     bool
		outputJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full build/measure sweep",
		Long: `Iterate the full cross product of SMP counts, trial indices, and
both mode values. For each point: make clean, rebuild with the point's
parameters, run the workload under perf stat, and write the combined
output to the result directory. Failed points are logged and skipped
unless --fail-fast is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()

			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}

				cfg = loaded
			}

			// Flags override file values, but only when set explicitly.
			flags := cmd.Flags()
			if flags.Changed("smp-max") {
				cfg.SMPMax = smpMax
			}
			if flags.Changed("trials") {
				cfg.Trials = trials
			}
			if flags.Changed("workload") {
				cfg.Workload.Path = workloadPath
			}
			if flags.Changed("workload-args") {
				cfg.Workload.Args = workloadArgs
			}
			if flags.Changed("out-dir") {
				cfg.OutDir = outDir
			}
			if flags.Changed("build-dir") {
				cfg.Build.Dir = buildDir
			}
			if flags.Changed("make") {
				cfg.Build.Make = makePath
			}
			if flags.Changed("smp-var") {
				cfg.Build.SMPVar = smpVar
			}
			if flags.Changed("mode-var") {
				cfg.Build.ModeVar = modeVar
			}
			if flags.Changed("build-args") {
				cfg.Build.Args = buildArgs
			}
			if flags.Changed("perf") {
				cfg.Sampler.Perf = perfPath
			}
			if flags.Changed("events") {
				cfg.Sampler.Events = events
			}
			if flags.Changed("timeout") {
				cfg.Timeout = config.Duration(timeout)
			}
			if flags.Changed("fail-fast") {
				cfg.FailFast = failFast
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return runSweep(cmd.Context(), logger, cfg, outputJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "",
		"Path to a YAML sweep specification (flags override it)")
	flags.IntVar(&smpMax, "smp-max", 0,
		"Inclusive upper bound of the SMP axis (>= 1)")
	flags.IntVar(&trials, "trials", 0,
		"Number of repeated trials per configuration (>= 1)")
	flags.StringVar(&workloadPath, "workload", "",
		"Path to the workload artifact to measure")
	flags.StringSliceVar(&workloadArgs, "workload-args", nil,
		"Fixed arguments passed to the workload on every run")
	flags.StringVar(&outDir, "out-dir", "perflog",
		"Directory result artifacts are written into")
	flags.StringVar(&buildDir, "build-dir", ".",
		"Directory containing the target's makefile")
	flags.StringVar(&makePath, "make", builder.DefaultMakePath,
		"Make executable used for clean and build")
	flags.StringVar(&smpVar, "smp-var", builder.DefaultSMPVar,
		"Make variable receiving the SMP count")
	flags.StringVar(&modeVar, "mode-var", builder.DefaultModeVar,
		"Make variable receiving the mode bit (0 or 1)")
	flags.StringSliceVar(&buildArgs, "build-args", nil,
		"Extra arguments appended to every build invocation")
	flags.StringVar(&perfPath, "perf", measure.DefaultPerfPath,
		"Counter-sampler executable")
	flags.StringSliceVar(&events, "events", nil,
		"Counter channels to sample (default: the fixed built-in set)")
	flags.DurationVar(&timeout, "timeout", 0,
		"Per-invocation timeout for build and measurement (0 = none)")
	flags.BoolVar(&failFast, "fail-fast", false,
		"Abort the sweep on the first failed point")
	flags.BoolVar(&outputJSON, "json", false,
		"Print the sweep summary as JSON instead of a log line")

	return cmd
}

func runSweep(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	outputJSON bool,
) error {
	buildDir, err := filepath.Abs(cfg.Build.Dir)
	if err != nil {
		return fmt.Errorf("resolve build dir: %w", err)
	}

	logger.InfoContext(ctx, "starting sweep",
		slog.Int("smp_max", cfg.SMPMax),
		slog.Int("trials", cfg.Trials),
		slog.Int("points", 2*cfg.SMPMax*cfg.Trials),
		slog.String("workload", cfg.Workload.Path),
		slog.String("build_dir", buildDir),
		slog.String("out_dir", cfg.OutDir),
		slog.Bool("fail_fast", cfg.FailFast),
	)

	// Step 1: construct the collaborators.
	mk := builder.New(buildDir, logger)
	if cfg.Build.Make != "" {
		mk.MakePath = cfg.Build.Make
	}
	if cfg.Build.SMPVar != "" {
		mk.SMPVar = cfg.Build.SMPVar
	}
	if cfg.Build.ModeVar != "" {
		mk.ModeVar = cfg.Build.ModeVar
	}
	mk.ExtraArgs = cfg.Build.Args

	sampler := measure.NewSampler(measure.Workload{
		Path: cfg.Workload.Path,
		Args: cfg.Workload.Args,
	}, logger)
	if cfg.Sampler.Perf != "" {
		sampler.PerfPath = cfg.Sampler.Perf
	}
	if len(cfg.Sampler.Events) > 0 {
		sampler.Events = cfg.Sampler.Events
	}

	results := sink.NewDir(cfg.OutDir)

	// Step 2: run the sweep.
	driver, err := sweep.NewDriver(sweep.Config{
		SMPMax:   cfg.SMPMax,
		Trials:   cfg.Trials,
		Timeout:  time.Duration(cfg.Timeout),
		FailFast: cfg.FailFast,
	}, mk, sampler, results, logger)
	if err != nil {
		return err
	}

	summary, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	// Step 3: emit the summary. Per-point failures never affect the
	// exit status; they are only visible here and in the logs.
	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
	}

	return nil
}

func newReportCmd(logger *slog.Logger) *cobra.Command {
	var (
		dir        string
		smpMax     int
		trials     int
		outputJSON bool
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a sweep result directory",
		Long: `Scan a result directory against the grid implied by the given
bounds and report which artifacts are present, empty, or missing. The
counter values themselves are not parsed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if noColor {
				color.NoColor = true
			}

			entries, err := report.Scan(dir, smpMax, trials)
			if err != nil {
				return err
			}

			logger.Info("scanned result directory",
				slog.String("dir", dir),
				slog.Int("entries", len(entries)),
			)

			if outputJSON {
				return report.GenerateJSON(os.Stdout, entries)
			}

			return report.Generate(os.Stdout, entries)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dir, "dir", "perflog",
		"Result directory to scan")
	flags.IntVar(&smpMax, "smp-max", 0,
		"Inclusive upper bound of the SMP axis used for the sweep")
	flags.IntVar(&trials, "trials", 0,
		"Number of trials used for the sweep")
	flags.BoolVar(&outputJSON, "json", false,
		"Output entries as JSON instead of a table")
	flags.BoolVar(&noColor, "no-color", false,
		"Disable colored status output")

	return cmd
}
