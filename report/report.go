// Package report summarizes the contents of a sweep result directory
// without interpreting the sampled counter values.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/weiihann/sweepstat/sink"
	"github.com/weiihann/sweepstat/sweep"
)

// Artifact status values.
const (
	StatusOK      = "ok"
	StatusEmpty   = "empty"
	StatusMissing = "missing"
)

// Entry describes one expected artifact in the result directory.
type Entry struct {
	SMP       int    `json:"smp"`
	Trial     int    `json:"trial"`
	Mode      int    `json:"mode"`
	File      string `json:"file"`
	SizeBytes int64  `json:"size_bytes"`
	Status    string `json:"status"`
}

// Scan checks the result directory against the full grid implied by
// the given bounds and classifies every expected artifact as ok,
// empty, or missing. Entries come back in sweep order.
func Scan(dir string, smpMax, trials int) ([]Entry, error) {
	if smpMax < 1 || trials < 1 {
		return nil, fmt.Errorf("bounds must be >= 1, got smp_max=%d trials=%d",
			smpMax, trials)
	}

	entries := make([]Entry, 0, 2*smpMax*trials)

	for smp := 1; smp <= smpMax; smp++ {
		for trial := 1; trial <= trials; trial++ {
			for _, mode := range []bool{false, true} {
				p := sweep.Point{SMP: smp, Trial: trial, Mode: mode}
				name := sink.Name(p)

				entry := Entry{
					SMP:   p.SMP,
					Trial: p.Trial,
					Mode:  p.ModeBit(),
					File:  name,
				}

				info, err := os.Stat(filepath.Join(dir, name))
				switch {
				case err != nil:
					entry.Status = StatusMissing
				case info.Size() == 0:
					entry.Status = StatusEmpty
				default:
					entry.Status = StatusOK
					entry.SizeBytes = info.Size()
				}

				entries = append(entries, entry)
			}
		}
	}

	return entries, nil
}

// Generate writes a markdown coverage table for the scanned entries.
func Generate(w io.Writer, entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("no entries to report")
	}

	ok, empty, missing := tally(entries)

	fmt.Fprintln(w, "## Sweep Coverage")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d expected artifacts: %d ok, %d empty, %d missing\n",
		len(entries), ok, empty, missing)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| SMP | Trial | Mode | File | Size | Status |")
	fmt.Fprintln(w, "|-----|-------|------|------|------|--------|")

	for _, e := range entries {
		fmt.Fprintf(w, "| %d | %d | %d | %s | %s | %s |\n",
			e.SMP,
			e.Trial,
			e.Mode,
			e.File,
			formatBytes(e.SizeBytes),
			formatStatus(e.Status),
		)
	}

	return nil
}

// GenerateJSON writes the scanned entries as JSON to w.
func GenerateJSON(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(entries)
}

func tally(entries []Entry) (ok, empty, missing int) {
	for _, e := range entries {
		switch e.Status {
		case StatusOK:
			ok++
		case StatusEmpty:
			empty++
		case StatusMissing:
			missing++
		}
	}

	return ok, empty, missing
}

func formatStatus(status string) string {
	switch status {
	case StatusEmpty:
		return color.New(color.FgYellow).Sprint("EMPTY")
	case StatusMissing:
		return color.New(color.FgRed, color.Bold).Sprint("MISSING")
	default:
		return status
	}
}

func formatBytes(b int64) string {
	if b == 0 {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}
