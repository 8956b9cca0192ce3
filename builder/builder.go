// Package builder rebuilds the target artifact for one sweep point by
// driving the target's own makefile.
package builder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/weiihann/sweepstat/sweep"
)

// Defaults used when the corresponding Make field is empty.
const (
	DefaultMakePath = "make"
	DefaultSMPVar   = "SMP"
	DefaultModeVar  = "ENABLE_SCALED_TIMER"
)

// Make builds the artifact with `make clean` followed by a fresh
// `make` carrying the point's parameters as make variables. The clean
// is unconditional so object state from a previous configuration can
// never leak into the next build.
type Make struct {
	// Dir is the target's source directory, where make runs.
	Dir string

	// MakePath is the make executable (default "make").
	MakePath string

	// SMPVar and ModeVar name the make variables that receive the
	// point's SMP count and mode bit.
	SMPVar  string
	ModeVar string

	// ExtraArgs are appended to every build invocation after the
	// sweep variables.
	ExtraArgs []string

	// Output receives build output; defaults to stderr.
	Output io.Writer

	Logger *slog.Logger
}

// New returns a Make for the given source directory with defaults
// filled in.
func New(dir string, logger *slog.Logger) *Make {
	return &Make{
		Dir:      dir,
		MakePath: DefaultMakePath,
		SMPVar:   DefaultSMPVar,
		ModeVar:  DefaultModeVar,
		Logger:   logger,
	}
}

// Build cleans and rebuilds the artifact for p. The returned error
// reflects the exit status of either make invocation; it wraps
// ctx.Err() when the context expired.
func (m *Make) Build(ctx context.Context, p sweep.Point) error {
	m.Logger.InfoContext(ctx, "building artifact",
		slog.Int("smp", p.SMP),
		slog.Int("mode", p.ModeBit()),
		slog.String("dir", m.Dir),
	)

	if err := m.run(ctx, "clean"); err != nil {
		return fmt.Errorf("make clean: %w", err)
	}

	args := []string{
		fmt.Sprintf("%s=%d", m.smpVar(), p.SMP),
		fmt.Sprintf("%s=%d", m.modeVar(), p.ModeBit()),
	}
	args = append(args, m.ExtraArgs...)

	if err := m.run(ctx, args...); err != nil {
		return fmt.Errorf("make %s=%d %s=%d: %w",
			m.smpVar(), p.SMP, m.modeVar(), p.ModeBit(), err)
	}

	return nil
}

func (m *Make) run(ctx context.Context, args ...string) error {
	makePath := m.MakePath
	if makePath == "" {
		makePath = DefaultMakePath
	}

	cmd := exec.CommandContext(ctx, makePath, args...)
	cmd.Dir = m.Dir
	cmd.Stdout = m.output()
	cmd.Stderr = m.output()

	if err := cmd.Run(); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		return err
	}

	return nil
}

func (m *Make) output() io.Writer {
	if m.Output != nil {
		return m.Output
	}

	return os.Stderr
}

func (m *Make) smpVar() string {
	if m.SMPVar == "" {
		return DefaultSMPVar
	}

	return m.SMPVar
}

func (m *Make) modeVar() string {
	if m.ModeVar == "" {
		return DefaultModeVar
	}

	return m.ModeVar
}
