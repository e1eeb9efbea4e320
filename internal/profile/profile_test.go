package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltin_Known(t *testing.T) {
	for _, name := range Names() {
		p, err := Builtin(name)
		if err != nil {
			t.Fatalf("Builtin(%q) unexpected error: %v", name, err)
		}
		if p.Name != name {
			t.Errorf("Builtin(%q).Name = %q", name, p.Name)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("Builtin(%q) invalid: %v", name, err)
		}
	}
}

func TestBuiltin_Unknown(t *testing.T) {
	if _, err := Builtin("moderate"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("error = %v, want ErrUnknownProfile", err)
	}
}

func TestBuiltin_ReturnsCopy(t *testing.T) {
	p, _ := Builtin(Default)
	p.Maker.WakeMean = 99
	q, _ := Builtin(Default)
	if q.Maker.WakeMean == 99 {
		t.Error("mutating a returned profile changed the builtin")
	}
}

func TestParse_OverlaysBase(t *testing.T) {
	doc := []byte(`
base: most_volatile
name: custom
noise:
  wake_mean: 2.5
maker:
  max_size: 250
`)
	p, err := Parse(doc, Default)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "custom" {
		t.Errorf("Name = %q, want custom", p.Name)
	}
	if p.Noise.WakeMean != 2.5 {
		t.Errorf("Noise.WakeMean = %v, want 2.5", p.Noise.WakeMean)
	}
	if p.Maker.MaxSize != 250 || p.Maker.MinSize != 10 {
		t.Errorf("Maker sizes = %d..%d, want 10..250", p.Maker.MinSize, p.Maker.MaxSize)
	}
	if p.Fundamental.BeliefStdDev != 0.05 {
		t.Errorf("BeliefStdDev = %v, want base value 0.05", p.Fundamental.BeliefStdDev)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown base", "base: calm\n", ErrUnknownProfile},
		{"negative start", "start_price: -1\n", ErrInvalidProfile},
		{"zero wake", "maker:\n  wake_mean: 0\n", ErrInvalidProfile},
		{"inverted sizes", "maker:\n  min_size: 50\n  max_size: 10\n", ErrInvalidProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc), Default); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := Parse([]byte("maker: [1, 2"), Default); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("time_step: 30\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadFile(path, Default)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TimeStep != 30 || p.Name != Default {
		t.Errorf("got time_step=%v name=%q, want 30/%q", p.TimeStep, p.Name, Default)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Default); err == nil {
		t.Error("expected error for missing file")
	}
}
