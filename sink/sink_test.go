package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/weiihann/sweepstat/sweep"
)

func TestNameRoundTrip(t *testing.T) {
	seen := make(map[string]bool)

	for smp := 1; smp <= 3; smp++ {
		for trial := 1; trial <= 2; trial++ {
			for _, mode := range []bool{false, true} {
				p := sweep.Point{SMP: smp, Trial: trial, Mode: mode}
				name := Name(p)

				if seen[name] {
					t.Fatalf("name %q produced twice", name)
				}
				seen[name] = true

				got, err := ParseName(name)
				if err != nil {
					t.Fatalf("ParseName(%q) failed: %v", name, err)
				}

				if got != p {
					t.Errorf("ParseName(%q) = %+v, want %+v", name, got, p)
				}
			}
		}
	}

	if len(seen) != 12 {
		t.Errorf("generated %d names, want 12", len(seen))
	}
}

func TestName(t *testing.T) {
	p := sweep.Point{SMP: 16, Trial: 3, Mode: true}
	if got, want := Name(p), "smp16_trial3_mode1.log"; got != want {
		t.Errorf("Name = %q, want %q", got, want)
	}
}

func TestParseNameRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong extension", "smp1_trial1_mode0.txt"},
		{"no extension", "smp1_trial1_mode0"},
		{"garbage", "results_summary_1.log"},
		{"zero smp", "smp0_trial1_mode0.log"},
		{"zero trial", "smp1_trial0_mode1.log"},
		{"mode out of range", "smp1_trial1_mode2.log"},
		{"negative smp", "smp-1_trial1_mode0.log"},
		{"padded smp", "smp01_trial1_mode0.log"},
		{"trailing junk", "smp1_trial1_mode0x.log"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseName(tt.input); err == nil {
				t.Errorf("ParseName(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestWriteCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "perflog")
	d := NewDir(dir)

	p := sweep.Point{SMP: 1, Trial: 1}
	if err := d.Write(p, []byte("counters\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, Name(p)))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}

	if string(data) != "counters\n" {
		t.Errorf("artifact content = %q", data)
	}

	// A second write must tolerate the existing directory.
	if err := d.Write(sweep.Point{SMP: 1, Trial: 1, Mode: true}, nil); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}
}

func TestWriteEmptyBlob(t *testing.T) {
	dir := t.TempDir()
	d := NewDir(dir)

	p := sweep.Point{SMP: 2, Trial: 1}
	if err := d.Write(p, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, Name(p)))
	if err != nil {
		t.Fatalf("stat artifact: %v", err)
	}

	if info.Size() != 0 {
		t.Errorf("artifact size = %d, want 0", info.Size())
	}
}

func TestWriteOverwrites(t *testing.T) {
	dir := t.TempDir()
	d := NewDir(dir)
	p := sweep.Point{SMP: 1, Trial: 1}

	if err := d.Write(p, []byte("first run with longer content\n")); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}

	if err := d.Write(p, []byte("second\n")); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, Name(p)))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}

	if string(data) != "second\n" {
		t.Errorf("artifact content = %q, want the second run only", data)
	}
}
