// Package agent implements the autonomous trading archetypes. Each agent is
// independently clocked: it keeps its own next-eligible wake time and its
// own random source, and decides per call whether to emit an order.
package agent

import (
	"math"
	"math/rand"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Kind identifies an archetype. The user is included so stats and wire
// labels can share one enum.
type Kind uint8

const (
	KindMaker Kind = iota
	KindFundamental
	KindNoise
	KindMomentum
	KindUser
)

// Label returns the actor label used on the wire.
func (k Kind) Label() string {
	switch k {
	case KindMaker:
		return "MARKET_MAKER"
	case KindFundamental:
		return "FUNDAMENTAL"
	case KindNoise:
		return "NOISE"
	case KindMomentum:
		return "MOMENTUM"
	default:
		return "USER"
	}
}

// PeakTracker is the shared market peak as seen by agents.
type PeakTracker interface {
	Observe(price float64)
	Peak() float64
}

// Observation is the read-only market view handed to every agent each tick.
type Observation struct {
	Reference  float64 // mid price, or last trade when the book is one-sided
	Volatility float64 // realized volatility estimate
	TrueValue  float64
	Market     PeakTracker
}

// Agent is implemented by each archetype.
type Agent interface {
	Kind() Kind
	Act(obs Observation, now float64, ids *domain.IDAllocator) (domain.Order, bool)
	SetScenario(s domain.Scenario)
}

// base carries what every archetype shares: the wake gate, the local
// scenario flag and a private random source.
type base struct {
	rng      *rand.Rand
	next     float64
	scenario domain.Scenario
}

func (b *base) SetScenario(s domain.Scenario) { b.scenario = s }

// eligible reports whether the agent may act at now.
func (b *base) eligible(now float64) bool { return now >= b.next }

// sleep schedules the next wake an exponential interval after now.
func (b *base) sleep(now, mean float64) {
	b.next = now + b.rng.ExpFloat64()*mean
}

func (b *base) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*b.rng.Float64()
}

// logNormal draws exp(mu + sigma*Z).
func (b *base) logNormal(mu, sigma float64) float64 {
	return math.Exp(mu + sigma*b.rng.NormFloat64())
}

func newOrder(ids *domain.IDAllocator, now float64, side domain.Side, price float64, qty int64) domain.Order {
	return domain.Order{
		ID:        ids.Next(),
		Timestamp: now,
		Price:     domain.ClampPrice(price),
		Quantity:  qty,
		Side:      side,
	}
}

func clampInt(v, lo, hi int64) int64 {
	return max(lo, min(hi, v))
}
