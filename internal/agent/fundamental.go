package agent

import (
	"math"
	"math/rand"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/profile"
)

const (
	squeezeCoverSize      = 5000
	squeezeCoverDeviation = 0.15
	pumpDeadband          = 0.005
)

// Fundamental trades the gap between the market and its private estimate
// of fair value.
type Fundamental struct {
	base
	params profile.FundamentalParams
	belief float64
}

// NewFundamental creates a fundamental trader. Its belief noise is drawn
// once here and kept for its lifetime.
func NewFundamental(rng *rand.Rand, params profile.FundamentalParams) *Fundamental {
	f := &Fundamental{base: base{rng: rng}, params: params}
	f.belief = 1 + params.BeliefStdDev*rng.NormFloat64()
	return f
}

func (f *Fundamental) Kind() Kind { return KindFundamental }

// Belief returns the fixed multiplicative belief noise.
func (f *Fundamental) Belief() float64 { return f.belief }

func (f *Fundamental) Act(obs Observation, now float64, ids *domain.IDAllocator) (domain.Order, bool) {
	obs.Market.Observe(obs.Reference)
	if !f.eligible(now) {
		return domain.Order{}, false
	}
	wake := f.params.WakeMean
	if f.scenario == domain.ScenarioPumpDump {
		wake = f.params.PumpWakeMean
	}
	f.sleep(now, wake)

	ref := obs.Reference
	fair := obs.TrueValue * f.belief
	if f.scenario == domain.ScenarioShortSqueeze {
		fair *= 0.95
	}
	deviation := (ref - fair) / fair

	switch f.scenario {
	case domain.ScenarioPumpDump:
		return f.pump(ids, now, ref, deviation)
	case domain.ScenarioShortSqueeze:
		if deviation > squeezeCoverDeviation {
			return newOrder(ids, now, domain.Buy, ref*1.02, squeezeCoverSize), true
		}
		if deviation > 0 {
			return newOrder(ids, now, domain.Sell, ref*0.995, 3*normalSize(deviation)), true
		}
	}

	aggr := aggressiveness(deviation)
	if deviation > 0 {
		return newOrder(ids, now, domain.Sell, (1-aggr)*fair+aggr*ref*0.998, normalSize(deviation)), true
	}
	return newOrder(ids, now, domain.Buy, (1-aggr)*fair+aggr*ref*1.002, normalSize(deviation)), true
}

// pump trades with a deadband and a mix of passive and laddered sells.
func (f *Fundamental) pump(ids *domain.IDAllocator, now, ref, deviation float64) (domain.Order, bool) {
	if math.Abs(deviation) < pumpDeadband {
		return domain.Order{}, false
	}
	qty := 50 + int64(math.Abs(deviation)/0.02*400)
	qty = max(20, int64(float64(qty)*0.6))

	if deviation <= 0 {
		return newOrder(ids, now, domain.Buy, ref*0.99, qty), true
	}
	if f.rng.Float64() < 0.3 {
		return newOrder(ids, now, domain.Sell, ref*0.99, qty), true
	}
	return newOrder(ids, now, domain.Sell, ref*f.uniform(1.005, 1.02), qty), true
}

// aggressiveness reaches 1 at a 2% deviation.
func aggressiveness(deviation float64) float64 {
	return math.Min(1, math.Abs(deviation)/0.02)
}

func normalSize(deviation float64) int64 {
	return 50 + int64(aggressiveness(deviation)*400)
}
