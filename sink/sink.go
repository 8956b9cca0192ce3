// Package sink persists measurement output under deterministic,
// collision-free filenames that encode the full sweep point.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/weiihann/sweepstat/sweep"
)

// Ext is the artifact filename extension.
const Ext = ".log"

// Dir writes one artifact per sweep point into a single directory,
// creating it on first use. Writes truncate: re-running a sweep with
// the same bounds replaces the previous run's artifacts.
type Dir struct {
	path string
}

// NewDir returns a Dir rooted at path. The directory is not created
// until the first write.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the directory artifacts are written into.
func (d *Dir) Path() string {
	return d.path
}

// Write persists data under the artifact name for p. A nil or empty
// blob still produces a file, so every attempted point leaves a trace.
func (d *Dir) Write(p sweep.Point, data []byte) error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("create result dir %s: %w", d.path, err)
	}

	name := Name(p)

	if err := os.WriteFile(filepath.Join(d.path, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}

// Name returns the artifact filename for p. The mapping is injective
// over all valid points and reversible via ParseName.
func Name(p sweep.Point) string {
	return fmt.Sprintf("smp%d_trial%d_mode%d%s", p.SMP, p.Trial, p.ModeBit(), Ext)
}

// ParseName recovers the sweep point from an artifact filename. Only
// canonical names round-trip: a name that parses but would not be
// regenerated byte-for-byte by Name is rejected.
func ParseName(name string) (sweep.Point, error) {
	base, ok := strings.CutSuffix(name, Ext)
	if !ok {
		return sweep.Point{}, fmt.Errorf("artifact name %q: missing %s suffix", name, Ext)
	}

	var smp, trial, mode int

	n, err := fmt.Sscanf(base, "smp%d_trial%d_mode%d", &smp, &trial, &mode)
	if err != nil || n != 3 {
		return sweep.Point{}, fmt.Errorf("malformed artifact name %q", name)
	}

	if smp < 1 || trial < 1 || mode < 0 || mode > 1 {
		return sweep.Point{}, fmt.Errorf("artifact name %q: values out of range", name)
	}

	p := sweep.Point{SMP: smp, Trial: trial, Mode: mode == 1}

	if Name(p) != name {
		return sweep.Point{}, fmt.Errorf("non-canonical artifact name %q", name)
	}

	return p, nil
}
