package agent

import (
	"math"
	"math/rand"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/profile"
)

const (
	noiseSizeMu    = 4.0
	noiseSizeSigma = 0.5
	panicThreshold = 0.05
)

// Noise trades at random with volatility-scaled price impact. Under
// PumpDump it follows the crowd until the drawdown from the shared peak
// turns it into a panic seller.
type Noise struct {
	base
	params profile.NoiseParams
}

// NewNoise creates a noise trader.
func NewNoise(rng *rand.Rand, params profile.NoiseParams) *Noise {
	return &Noise{base: base{rng: rng}, params: params}
}

func (n *Noise) Kind() Kind { return KindNoise }

func (n *Noise) Act(obs Observation, now float64, ids *domain.IDAllocator) (domain.Order, bool) {
	obs.Market.Observe(obs.Reference)
	if !n.eligible(now) {
		return domain.Order{}, false
	}
	wake := n.params.WakeMean
	if n.scenario == domain.ScenarioPumpDump {
		wake *= 5
	}
	n.sleep(now, wake)

	ref := obs.Reference
	size := n.logNormal(noiseSizeMu, noiseSizeSigma)

	if n.scenario == domain.ScenarioPumpDump {
		return n.herd(ids, now, ref, obs.Market.Peak(), size), true
	}

	sellProb := 0.5
	if n.scenario == domain.ScenarioShortSqueeze {
		sellProb = 0.65
	}
	side := domain.Buy
	if n.rng.Float64() < sellProb {
		side = domain.Sell
	}
	impact := math.Abs(n.rng.NormFloat64()) * (0.05 + 0.5*obs.Volatility) * ref
	price := ref - impact
	if side == domain.Buy {
		price = ref + impact
	}
	return newOrder(ids, now, side, price, clampInt(int64(size), 1, 200)), true
}

// herd implements the PumpDump crowd: buy pressure decays with drawdown
// and collapses into a full panic sell below the threshold.
func (n *Noise) herd(ids *domain.IDAllocator, now, ref, peak, size float64) domain.Order {
	drawdown := 0.0
	if peak > 0 {
		drawdown = (peak - ref) / peak
	}
	buyProb := 0.9 - drawdown*8
	if buyProb < panicThreshold {
		qty := clampInt(int64(size)*8, 100, 2000)
		return newOrder(ids, now, domain.Sell, ref*0.85, qty)
	}

	side := domain.Sell
	if n.rng.Float64() < buyProb {
		side = domain.Buy
	}
	mult := 1.5
	if n.rng.Float64() < 0.2 {
		mult = 3
	}
	qty := clampInt(int64(size*mult), 1, 500)
	if side == domain.Buy {
		return newOrder(ids, now, side, ref*1.05, qty)
	}
	return newOrder(ids, now, side, ref*0.95, qty)
}
