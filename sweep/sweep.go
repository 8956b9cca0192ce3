// Package sweep drives the build/measure/persist loop over the full
// configuration grid: SMP count ascending, trial index ascending, then
// the boolean build mode (off before on) for every pair. Points run
// strictly sequentially; each one is built, measured, and persisted
// before the next is attempted.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Point identifies one measurement in the sweep: an SMP count, a trial
// index, and the boolean build mode. All three are baked into the
// artifact name, so no two points share one.
type Point struct {
	SMP   int
	Trial int
	Mode  bool
}

// ModeBit returns the mode flag as 0 or 1, the form it takes in build
// variables and artifact names.
func (p Point) ModeBit() int {
	if p.Mode {
		return 1
	}

	return 0
}

func (p Point) String() string {
	return fmt.Sprintf("smp=%d trial=%d mode=%d", p.SMP, p.Trial, p.ModeBit())
}

// Builder rebuilds the target artifact with a point's SMP count and
// mode flag baked in. A prior build must be fully cleaned first.
type Builder interface {
	Build(ctx context.Context, p Point) error
}

// Measurer runs the fixed workload under the counter sampler and
// returns the combined output captured so far, even when the run
// failed or was cut short.
type Measurer interface {
	Measure(ctx context.Context) ([]byte, error)
}

// Sink persists one measurement's output under the point's artifact
// name.
type Sink interface {
	Write(p Point, data []byte) error
}

// Config holds the sweep bounds and failure policy.
type Config struct {
	// SMPMax is the inclusive upper bound of the SMP axis; the axis
	// always starts at 1.
	SMPMax int

	// Trials is the number of repeated measurements per (SMP, mode)
	// pair, starting at 1.
	Trials int

	// Timeout bounds each Build and each Measure invocation
	// separately. Zero means no limit, matching the original
	// automation.
	Timeout time.Duration

	// FailFast aborts the sweep on the first failed point instead of
	// advancing to the next one.
	FailFast bool
}

// Summary counts what happened across one sweep execution.
type Summary struct {
	Points          int `json:"points"`
	Artifacts       int `json:"artifacts"`
	BuildFailures   int `json:"build_failures"`
	MeasureFailures int `json:"measure_failures"`
	TimedOut        int `json:"timed_out"`
	SinkFailures    int `json:"sink_failures"`
}

// Failed reports whether any point failed in any way.
func (s Summary) Failed() bool {
	return s.BuildFailures+s.MeasureFailures+s.TimedOut+s.SinkFailures > 0
}

// Driver enumerates the configuration grid and runs one point at a
// time through its collaborators.
type Driver struct {
	cfg      Config
	builder  Builder
	measurer Measurer
	sink     Sink
	logger   *slog.Logger
}

// NewDriver validates the bounds and returns a Driver.
func NewDriver(
	cfg Config,
	builder Builder,
	measurer Measurer,
	sink Sink,
	logger *slog.Logger,
) (*Driver, error) {
	if cfg.SMPMax < 1 {
		return nil, fmt.Errorf("smp bound must be >= 1, got %d", cfg.SMPMax)
	}

	if cfg.Trials < 1 {
		return nil, fmt.Errorf("trial bound must be >= 1, got %d", cfg.Trials)
	}

	return &Driver{
		cfg:      cfg,
		builder:  builder,
		measurer: measurer,
		sink:     sink,
		logger:   logger,
	}, nil
}

// Run executes the full cross product of 2 * SMPMax * Trials points in
// lexicographic order. A failed point is logged, counted, and left
// behind unless FailFast is set; ctx cancellation stops the sweep
// between points.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	for smp := 1; smp <= d.cfg.SMPMax; smp++ {
		for trial := 1; trial <= d.cfg.Trials; trial++ {
			for _, mode := range []bool{false, true} {
				if err := ctx.Err(); err != nil {
					return sum, fmt.Errorf("sweep interrupted: %w", err)
				}

				p := Point{SMP: smp, Trial: trial, Mode: mode}
				sum.Points++

				if err := d.runPoint(ctx, p, &sum); err != nil {
					return sum, err
				}
			}
		}
	}

	d.logger.InfoContext(ctx, "sweep complete",
		slog.Int("points", sum.Points),
		slog.Int("artifacts", sum.Artifacts),
		slog.Int("build_failures", sum.BuildFailures),
		slog.Int("measure_failures", sum.MeasureFailures),
		slog.Int("timed_out", sum.TimedOut),
		slog.Int("sink_failures", sum.SinkFailures),
	)

	return sum, nil
}

// runPoint performs Build, then Measure unconditionally, then persists
// whatever output was captured. The returned error is non-nil only
// when the sweep must stop (FailFast).
func (d *Driver) runPoint(ctx context.Context, p Point, sum *Summary) error {
	logger := d.logger.With(
		slog.Int("smp", p.SMP),
		slog.Int("trial", p.Trial),
		slog.Int("mode", p.ModeBit()),
	)

	if err := d.invoke(ctx, func(ctx context.Context) error {
		return d.builder.Build(ctx, p)
	}); err != nil {
		if isTimeout(err) {
			sum.TimedOut++
			logger.Warn("build timed out",
				slog.Duration("timeout", d.cfg.Timeout))
		} else {
			sum.BuildFailures++
			logger.Warn("build failed", slog.String("error", err.Error()))
		}

		if d.cfg.FailFast {
			return fmt.Errorf("build %v: %w", p, err)
		}
	}

	// Measure even after a failed build: the original automation never
	// checked, and a stale or missing artifact still produces a log
	// worth inspecting.
	var output []byte

	if err := d.invoke(ctx, func(ctx context.Context) error {
		var merr error
		output, merr = d.measurer.Measure(ctx)

		return merr
	}); err != nil {
		if isTimeout(err) {
			sum.TimedOut++
			logger.Warn("measurement timed out",
				slog.Duration("timeout", d.cfg.Timeout))
		} else {
			sum.MeasureFailures++
			logger.Warn("measurement failed",
				slog.String("error", err.Error()))
		}

		if d.cfg.FailFast {
			return fmt.Errorf("measure %v: %w", p, err)
		}
	}

	if err := d.sink.Write(p, output); err != nil {
		sum.SinkFailures++
		logger.Warn("persist failed", slog.String("error", err.Error()))

		if d.cfg.FailFast {
			return fmt.Errorf("persist %v: %w", p, err)
		}

		return nil
	}

	sum.Artifacts++

	return nil
}

// invoke runs fn under the per-invocation timeout, if one is set.
func (d *Driver) invoke(
	ctx context.Context,
	fn func(context.Context) error,
) error {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	return fn(ctx)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
