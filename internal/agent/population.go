package agent

import (
	"math/rand"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/profile"
)

// Group is one archetype's agents in their fixed iteration order.
type Group struct {
	Kind   Kind
	Agents []Agent
}

// Population is every agent of a run, grouped by archetype in dispatch
// order: makers, fundamentals, noise, momentum.
type Population struct {
	groups []Group
}

// NewPopulation builds the agents described by cfg. Each agent gets its own
// random source seeded from seeds, so a fixed seed reproduces a run.
func NewPopulation(cfg domain.SimConfig, p profile.Profile, seeds *rand.Rand) *Population {
	child := func() *rand.Rand { return rand.New(rand.NewSource(seeds.Int63())) }

	makers := make([]Agent, 0, cfg.Makers)
	for i := 0; i < cfg.Makers; i++ {
		makers = append(makers, NewMaker(child(), p.Maker))
	}
	fundamentals := make([]Agent, 0, cfg.Fundamentals)
	for i := 0; i < cfg.Fundamentals; i++ {
		fundamentals = append(fundamentals, NewFundamental(child(), p.Fundamental))
	}
	noise := make([]Agent, 0, cfg.Noise)
	for i := 0; i < cfg.Noise; i++ {
		noise = append(noise, NewNoise(child(), p.Noise))
	}
	momentum := make([]Agent, 0, cfg.Momentum)
	for i := 0; i < cfg.Momentum; i++ {
		momentum = append(momentum, NewMomentum(child(), p.Momentum, p.StartPrice))
	}

	return &Population{groups: []Group{
		{Kind: KindMaker, Agents: makers},
		{Kind: KindFundamental, Agents: fundamentals},
		{Kind: KindNoise, Agents: noise},
		{Kind: KindMomentum, Agents: momentum},
	}}
}

// Groups returns the archetype groups in dispatch order.
func (p *Population) Groups() []Group {
	return p.groups
}

// All returns every agent in dispatch order.
func (p *Population) All() []Agent {
	var all []Agent
	for _, g := range p.groups {
		all = append(all, g.Agents...)
	}
	return all
}

// Len returns the number of agents.
func (p *Population) Len() int {
	n := 0
	for _, g := range p.groups {
		n += len(g.Agents)
	}
	return n
}
