package domain

import (
	"errors"
	"math"
	"testing"
)

func TestClampPrice(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{"above floor", 101.5, 101.5},
		{"at floor", 0.01, 0.01},
		{"below floor", 0.004, 0.01},
		{"zero", 0, 0.01},
		{"negative", -3, 0.01},
		{"nan", math.NaN(), 0.01},
		{"negative infinity", math.Inf(-1), 0.01},
		{"positive infinity", math.Inf(1), MaxPrice},
		{"above ceiling", 5e12, MaxPrice},
		{"at ceiling", MaxPrice, MaxPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampPrice(tt.input); got != tt.want {
				t.Errorf("ClampPrice(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIDAllocator_StrictlyIncreasing(t *testing.T) {
	var ids IDAllocator
	if ids.Peek() != 1 {
		t.Fatalf("Peek() = %d, want 1", ids.Peek())
	}
	prev := uint64(0)
	for i := 0; i < 100; i++ {
		id := ids.Next()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestSide_StringAndOpposite(t *testing.T) {
	if Buy.String() != "BUY" || Sell.String() != "SELL" {
		t.Errorf("labels = %s/%s, want BUY/SELL", Buy, Sell)
	}
	if Buy.Opposite() != Sell || Sell.Opposite() != Buy {
		t.Error("Opposite() should swap sides")
	}
}

func TestParseScenario(t *testing.T) {
	for code, want := range []Scenario{ScenarioNormal, ScenarioPumpDump, ScenarioShortSqueeze} {
		got, err := ParseScenario(code)
		if err != nil {
			t.Fatalf("ParseScenario(%d) unexpected error: %v", code, err)
		}
		if got != want {
			t.Errorf("ParseScenario(%d) = %v, want %v", code, got, want)
		}
	}
	if _, err := ParseScenario(3); !errors.Is(err, ErrUnknownScenario) {
		t.Errorf("ParseScenario(3) error = %v, want ErrUnknownScenario", err)
	}
	if _, err := ParseScenario(-1); !errors.Is(err, ErrUnknownScenario) {
		t.Errorf("ParseScenario(-1) error = %v, want ErrUnknownScenario", err)
	}
}
