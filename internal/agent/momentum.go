package agent

import (
	"math/rand"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/profile"
)

const (
	momentumSize = 50
	fastAlpha    = 0.05
	slowAlpha    = 0.01
)

// Momentum follows the crossover of a fast and a slow moving average.
type Momentum struct {
	base
	params     profile.MomentumParams
	fast, slow float64
}

// NewMomentum creates a momentum trader with both averages seeded at
// startPrice.
func NewMomentum(rng *rand.Rand, params profile.MomentumParams, startPrice float64) *Momentum {
	return &Momentum{
		base:   base{rng: rng, next: params.FirstWake},
		params: params,
		fast:   startPrice,
		slow:   startPrice,
	}
}

func (m *Momentum) Kind() Kind { return KindMomentum }

// Averages returns the fast and slow moving averages.
func (m *Momentum) Averages() (fast, slow float64) { return m.fast, m.slow }

// Act updates the averages on every call and trades on eligible wakes
// when the crossover signal clears the volatility-scaled threshold.
func (m *Momentum) Act(obs Observation, now float64, ids *domain.IDAllocator) (domain.Order, bool) {
	obs.Market.Observe(obs.Reference)
	m.fast = fastAlpha*obs.Reference + (1-fastAlpha)*m.fast
	m.slow = slowAlpha*obs.Reference + (1-slowAlpha)*m.slow
	if !m.eligible(now) {
		return domain.Order{}, false
	}
	wake := m.params.WakeMean
	if m.scenario != domain.ScenarioNormal {
		wake *= 3
	}
	m.sleep(now, wake)

	signal := m.fast - m.slow
	threshold := 0.05 * obs.Volatility * obs.Reference
	switch {
	case signal > threshold:
		return newOrder(ids, now, domain.Buy, obs.Reference+threshold, momentumSize), true
	case signal < -threshold:
		return newOrder(ids, now, domain.Sell, obs.Reference-threshold, momentumSize), true
	}
	return domain.Order{}, false
}
