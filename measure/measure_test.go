package measure

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePerf writes a shell script standing in for perf: it echoes its
// arguments to stdout and a counter line to stderr.
func fakePerf(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fake-perf")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write fake perf: %v", err)
	}

	return path
}

func TestMeasureInvocation(t *testing.T) {
	s := NewSampler(Workload{
		Path: "/opt/emu/emu",
		Args: []string{"-k", "Image", "-b", "minimal.dtb"},
	}, discardLogger())
	s.PerfPath = fakePerf(t, `echo "$@"`)

	out, err := s.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	got := string(out)

	if !strings.HasPrefix(got, "stat -a -e ") {
		t.Errorf("sampler args = %q, want stat -a -e prefix", got)
	}
	if !strings.Contains(got, "cache-references,cache-misses,cycles") {
		t.Errorf("sampler args = %q, want default event list", got)
	}
	if !strings.Contains(got, "LLC-prefetches") {
		t.Errorf("sampler args = %q, want full event list", got)
	}
	if !strings.Contains(got, "-- /opt/emu/emu -k Image -b minimal.dtb") {
		t.Errorf("sampler args = %q, want workload after --", got)
	}
}

func TestMeasureCustomEvents(t *testing.T) {
	s := NewSampler(Workload{Path: "/bin/true"}, discardLogger())
	s.PerfPath = fakePerf(t, `echo "$@"`)
	s.Events = []string{"cycles", "instructions"}

	out, err := s.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	if !strings.Contains(string(out), "-e cycles,instructions ") {
		t.Errorf("sampler args = %q, want custom event list", out)
	}
}

func TestMeasureCombinesStreams(t *testing.T) {
	s := NewSampler(Workload{Path: "workload"}, discardLogger())
	s.PerfPath = fakePerf(t,
		"echo workload output\necho ' 1234 cycles' 1>&2\n")

	out, err := s.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}

	got := string(out)
	if !strings.Contains(got, "workload output") {
		t.Errorf("output = %q, want stdout captured", got)
	}
	if !strings.Contains(got, "1234 cycles") {
		t.Errorf("output = %q, want stderr captured", got)
	}
}

func TestMeasureReturnsOutputOnFailure(t *testing.T) {
	s := NewSampler(Workload{Path: "workload"}, discardLogger())
	s.PerfPath = fakePerf(t, "echo before crash\nexit 3\n")

	out, err := s.Measure(context.Background())
	if err == nil {
		t.Fatal("expected error for non-zero sampler exit")
	}

	if !strings.Contains(string(out), "before crash") {
		t.Errorf("output = %q, want bytes captured before failure", out)
	}
}

func TestMeasureTimeout(t *testing.T) {
	s := NewSampler(Workload{Path: "workload"}, discardLogger())
	s.PerfPath = fakePerf(t, "echo started\nexec sleep 10\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := s.Measure(ctx)
	if err == nil {
		t.Fatal("expected error for expired context")
	}

	if ctx.Err() != context.DeadlineExceeded {
		t.Fatalf("ctx.Err() = %v", ctx.Err())
	}
}
