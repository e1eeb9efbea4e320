// Package profile holds the named parameter sets that shape how volatile
// a simulated market is.
package profile

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Default is the profile used when none is configured.
const Default = "very_volatile"

var (
	ErrUnknownProfile = errors.New("unknown_profile")
	ErrInvalidProfile = errors.New("invalid_profile")
)

// MakerParams configures market makers.
type MakerParams struct {
	WakeMean     float64 `yaml:"wake_mean"`
	MinSize      int64   `yaml:"min_size"`
	MaxSize      int64   `yaml:"max_size"`
	SpreadFactor float64 `yaml:"spread_factor"`
}

// FundamentalParams configures fundamental traders.
type FundamentalParams struct {
	WakeMean     float64 `yaml:"wake_mean"`
	PumpWakeMean float64 `yaml:"pump_wake_mean"`
	BeliefStdDev float64 `yaml:"belief_stddev"`
}

// MomentumParams configures momentum traders.
type MomentumParams struct {
	WakeMean  float64 `yaml:"wake_mean"`
	FirstWake float64 `yaml:"first_wake"`
}

// NoiseParams configures noise traders.
type NoiseParams struct {
	WakeMean float64 `yaml:"wake_mean"`
}

// Profile is a full parameter set. Times are simulated seconds; drift and
// volatility of the true value are annualized.
type Profile struct {
	Name              string            `yaml:"name"`
	StartPrice        float64           `yaml:"start_price"`
	TimeStep          float64           `yaml:"time_step"`
	AnnualDrift       float64           `yaml:"annual_drift"`
	AnnualVolatility  float64           `yaml:"annual_volatility"`
	InitialVolatility float64           `yaml:"initial_volatility"`
	VolatilityAlpha   float64           `yaml:"volatility_alpha"`
	Maker             MakerParams       `yaml:"maker"`
	Fundamental       FundamentalParams `yaml:"fundamental"`
	Momentum          MomentumParams    `yaml:"momentum"`
	Noise             NoiseParams       `yaml:"noise"`
}

func veryVolatile() Profile {
	return Profile{
		Name:              "very_volatile",
		StartPrice:        100,
		TimeStep:          60,
		AnnualDrift:       0.28,
		AnnualVolatility:  1.50,
		InitialVolatility: 0.005,
		VolatilityAlpha:   0.01,
		Maker:             MakerParams{WakeMean: 1.5, MinSize: 100, MaxSize: 500, SpreadFactor: 0.2},
		Fundamental:       FundamentalParams{WakeMean: 5, PumpWakeMean: 0.5, BeliefStdDev: 0.005},
		Momentum:          MomentumParams{WakeMean: 3, FirstWake: 20},
		Noise:             NoiseParams{WakeMean: 15},
	}
}

// mostVolatile keeps the very_volatile agent rules but trades thinner maker
// liquidity and wider disagreement on fair value for faster noise flow.
func mostVolatile() Profile {
	p := veryVolatile()
	p.Name = "most_volatile"
	p.Maker = MakerParams{WakeMean: 10, MinSize: 10, MaxSize: 100, SpreadFactor: 0.2}
	p.Fundamental.BeliefStdDev = 0.05
	p.Momentum.FirstWake = 10
	p.Noise.WakeMean = 5
	return p
}

var builtins = map[string]func() Profile{
	"very_volatile": veryVolatile,
	"most_volatile": mostVolatile,
}

// Names lists the builtin profiles in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a copy of the named builtin profile.
func Builtin(name string) (Profile, error) {
	fn, ok := builtins[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q, must be one of %v", ErrUnknownProfile, name, Names())
	}
	return fn(), nil
}

// LoadFile reads a YAML profile. The document may name a builtin under
// "base" (default: base) whose values it overrides field by field.
func LoadFile(path, base string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return Parse(data, base)
}

// Parse decodes a YAML profile document; see LoadFile.
func Parse(data []byte, base string) (Profile, error) {
	var header struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if header.Base != "" {
		base = header.Base
	}
	p, err := Builtin(base)
	if err != nil {
		return Profile{}, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks that every rate and size is usable.
func (p Profile) Validate() error {
	switch {
	case p.StartPrice <= 0:
		return fmt.Errorf("%w: start_price must be > 0", ErrInvalidProfile)
	case p.TimeStep <= 0:
		return fmt.Errorf("%w: time_step must be > 0", ErrInvalidProfile)
	case p.AnnualVolatility < 0:
		return fmt.Errorf("%w: annual_volatility must be >= 0", ErrInvalidProfile)
	case p.InitialVolatility < 0:
		return fmt.Errorf("%w: initial_volatility must be >= 0", ErrInvalidProfile)
	case p.VolatilityAlpha < 0 || p.VolatilityAlpha > 1:
		return fmt.Errorf("%w: volatility_alpha must be in [0, 1]", ErrInvalidProfile)
	case p.Maker.WakeMean <= 0 || p.Fundamental.WakeMean <= 0 || p.Fundamental.PumpWakeMean <= 0 ||
		p.Momentum.WakeMean <= 0 || p.Noise.WakeMean <= 0:
		return fmt.Errorf("%w: wake means must be > 0", ErrInvalidProfile)
	case p.Maker.MinSize <= 0 || p.Maker.MaxSize < p.Maker.MinSize:
		return fmt.Errorf("%w: maker sizes must satisfy 0 < min_size <= max_size", ErrInvalidProfile)
	case p.Fundamental.BeliefStdDev < 0:
		return fmt.Errorf("%w: belief_stddev must be >= 0", ErrInvalidProfile)
	}
	return nil
}
