// Package measure runs the fixed workload under a hardware
// performance-counter sampler and captures its combined output.
package measure

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultPerfPath is the sampler binary used when none is configured.
const DefaultPerfPath = "perf"

// DefaultEvents is the fixed set of counter channels sampled for every
// run.
var DefaultEvents = []string{
	"cache-references",
	"cache-misses",
	"cycles",
	"instructions",
	"branches",
	"faults",
	"migrations",
	"L1-dcache-loads",
	"L1-dcache-load-misses",
	"L1-dcache-stores",
	"L1-dcache-store-misses",
	"L1-dcache-prefetches",
	"LLC-loads",
	"LLC-load-misses",
	"LLC-stores",
	"LLC-store-misses",
	"LLC-prefetches",
}

// Workload is the fixed command measured on every sweep point. It
// never varies with the sweep parameters; those are baked into the
// artifact at build time.
type Workload struct {
	Path string
	Args []string
}

// Sampler wraps the workload in `perf stat` over a fixed event set.
type Sampler struct {
	// PerfPath is the sampler binary (default "perf").
	PerfPath string

	// Events are the counter channels to sample; DefaultEvents when
	// empty.
	Events []string

	Workload Workload
	Logger   *slog.Logger
}

// NewSampler returns a Sampler for the given workload with defaults
// filled in.
func NewSampler(workload Workload, logger *slog.Logger) *Sampler {
	return &Sampler{
		PerfPath: DefaultPerfPath,
		Events:   DefaultEvents,
		Workload: workload,
		Logger:   logger,
	}
}

// Measure runs the workload to completion under the sampler in
// system-wide wall-clock mode and returns the interleaved
// stdout+stderr stream. The captured bytes are returned even when the
// invocation fails or the context expires, so a truncated run still
// leaves an inspectable artifact.
func (s *Sampler) Measure(ctx context.Context) ([]byte, error) {
	perfPath := s.PerfPath
	if perfPath == "" {
		perfPath = DefaultPerfPath
	}

	events := s.Events
	if len(events) == 0 {
		events = DefaultEvents
	}

	args := []string{"stat", "-a", "-e", strings.Join(events, ",")}
	args = append(args, "--", s.Workload.Path)
	args = append(args, s.Workload.Args...)

	cmd := exec.CommandContext(ctx, perfPath, args...)

	// A killed sampler can leave the workload holding the output pipe;
	// don't let Wait block on it forever.
	cmd.WaitDelay = 10 * time.Second

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	s.Logger.InfoContext(ctx, "starting measurement",
		slog.String("sampler", perfPath),
		slog.String("workload", s.Workload.Path),
	)

	start := time.Now()

	if err := cmd.Run(); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return combined.Bytes(), fmt.Errorf("run sampler: %w", cerr)
		}

		return combined.Bytes(), fmt.Errorf("run sampler: %w", err)
	}

	s.Logger.InfoContext(ctx, "measurement finished",
		slog.Duration("wall_time", time.Since(start)),
		slog.Int("output_bytes", combined.Len()),
	)

	return combined.Bytes(), nil
}
