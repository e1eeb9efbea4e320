package agent

import (
	"math"
	"math/rand"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/profile"
)

// Maker quotes one side per wake around the reference price, with a spread
// that widens with realized volatility.
type Maker struct {
	base
	params profile.MakerParams
}

// NewMaker creates a market maker.
func NewMaker(rng *rand.Rand, params profile.MakerParams) *Maker {
	return &Maker{base: base{rng: rng}, params: params}
}

func (m *Maker) Kind() Kind { return KindMaker }

// Act posts a single quote per wake.
func (m *Maker) Act(obs Observation, now float64, ids *domain.IDAllocator) (domain.Order, bool) {
	obs.Market.Observe(obs.Reference)
	if !m.eligible(now) {
		return domain.Order{}, false
	}
	m.sleep(now, m.params.WakeMean)

	side := domain.Sell
	if m.rng.Float64() > 0.5 {
		side = domain.Buy
	}
	spread := math.Max(domain.MinTick, m.params.SpreadFactor*obs.Volatility*obs.Reference) * m.uniform(0.9, 1.1)
	if m.scenario == domain.ScenarioPumpDump {
		spread *= 4
	}
	price := obs.Reference + spread
	if side == domain.Buy {
		price = obs.Reference - spread
	}
	size := m.params.MinSize + m.rng.Int63n(m.params.MaxSize-m.params.MinSize+1)
	return newOrder(ids, now, side, price, size), true
}
