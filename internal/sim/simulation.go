// Package sim runs the market: a fixed-period tick loop that drains
// commands, matches user and agent orders, advances the true value and
// broadcasts telemetry at a throttled rate.
//
// A Simulation is owned by the goroutine that calls Step or Run. Only
// Snapshot may be called from elsewhere.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/efreitasn/marketsim/internal/agent"
	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/engine"
	"github.com/efreitasn/marketsim/internal/obs"
	"github.com/efreitasn/marketsim/internal/profile"
	"github.com/efreitasn/marketsim/internal/scenario"
	"github.com/efreitasn/marketsim/internal/transport"
	"github.com/efreitasn/marketsim/internal/wire"
)

// secondsPerYear converts simulated seconds into trading years.
const secondsPerYear = 252 * 6.5 * 3600

// Config holds the loop settings.
type Config struct {
	RunID          string
	TickInterval   time.Duration
	BroadcastEvery int
	DecayFraction  float64
	Seed           int64
}

// userOrder is a queued ORDER command.
type userOrder struct {
	side     domain.Side
	quantity int64
	price    float64
}

// Simulation is the market state and its tick loop.
type Simulation struct {
	cfg     Config
	profile profile.Profile
	source  transport.Source
	pub     transport.Publisher
	clock   Clock
	logger  *slog.Logger
	metrics *obs.Metrics

	rng        *rand.Rand
	book       *engine.OrderBook
	ids        domain.IDAllocator
	market     *scenario.SharedMarket
	controller *scenario.Controller
	population *agent.Population

	pending    []userOrder
	simTime    float64
	trueValue  float64
	price      float64 // last traded
	prevPrice  float64 // last traded at the end of the previous tick
	volatility float64
	tickVolume int64
	stats      [agent.KindUser + 1]domain.AgentStats
	tick       uint64

	started bool
	paused  bool
	stopped bool

	snapshot atomic.Pointer[Snapshot]
}

// New creates a Simulation waiting for START. metrics may be nil.
func New(
	cfg Config,
	p profile.Profile,
	source transport.Source,
	pub transport.Publisher,
	clock Clock,
	logger *slog.Logger,
	metrics *obs.Metrics,
) *Simulation {
	market := scenario.NewSharedMarket(p.StartPrice)
	rng := rand.New(rand.NewSource(cfg.Seed))
	s := &Simulation{
		cfg:        cfg,
		profile:    p,
		source:     source,
		pub:        pub,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		rng:        rng,
		book:       engine.NewOrderBook(),
		market:     market,
		controller: scenario.NewController(market, logger),
		population: agent.NewPopulation(domain.SimConfig{}, p, rng),
		trueValue:  p.StartPrice,
		price:      p.StartPrice,
		prevPrice:  p.StartPrice,
		volatility: p.InitialVolatility,
	}
	s.publishSnapshot()
	return s
}

// AwaitStart blocks on the command source until a valid START arrives and
// builds the population it describes. A STOP ends the wait with the
// simulation stopped. Anything else is logged and dropped.
func (s *Simulation) AwaitStart(ctx context.Context) error {
	for {
		line, err := s.source.Next(ctx)
		if err != nil {
			return fmt.Errorf("await start: %w", err)
		}
		cmd, err := wire.ParseCommand(line)
		if err != nil {
			s.reject(line, err)
			continue
		}
		switch cmd.Verb {
		case wire.VerbStart:
			s.metrics.IncCommand(cmd.Verb.String())
			s.Start(cmd.Population)
			return nil
		case wire.VerbStop:
			s.metrics.IncCommand(cmd.Verb.String())
			s.stopped = true
			s.logger.Info("simulation stopped before start")
			s.publishSnapshot()
			return nil
		default:
			s.logger.Info("command dropped before start", slog.String("verb", cmd.Verb.String()))
		}
	}
}

// Start builds the agent population. Only the first call has an effect.
func (s *Simulation) Start(cfg domain.SimConfig) {
	if s.started {
		s.logger.Info("start ignored, simulation already running")
		return
	}
	s.started = true
	s.population = agent.NewPopulation(cfg, s.profile, rand.New(rand.NewSource(s.rng.Int63())))
	for _, a := range s.population.All() {
		s.controller.Register(a)
	}
	s.metrics.SetScenario(int(s.controller.State()))
	s.logger.Info("simulation started",
		slog.Int("makers", cfg.Makers),
		slog.Int("fundamentals", cfg.Fundamentals),
		slog.Int("momentum", cfg.Momentum),
		slog.Int("noise", cfg.Noise),
		slog.String("profile", s.profile.Name),
	)
	s.publishSnapshot()
}

// Run ticks every TickInterval until STOP or until ctx is done. Each tick
// sleeps until its absolute deadline; a late tick starts the next one late
// and is never caught up.
func (s *Simulation) Run(ctx context.Context) error {
	for {
		start := s.clock.Now()
		s.Step()
		if s.stopped {
			return nil
		}
		deadline := start.Add(s.cfg.TickInterval)
		if s.clock.Now().After(deadline) {
			s.metrics.IncOverrun()
		}
		if err := s.clock.SleepUntil(ctx, deadline); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Info("simulation cancelled", slog.Uint64("tick", s.tick))
				return err
			}
			return fmt.Errorf("sleep: %w", err)
		}
	}
}

// Step runs one tick without sleeping.
func (s *Simulation) Step() {
	if s.stopped {
		return
	}
	begin := s.clock.Now()
	defer func() { s.metrics.ObserveTick(s.clock.Now().Sub(begin)) }()

	changed := s.drain()
	if !s.started || s.stopped || s.paused {
		if changed {
			s.publishSnapshot()
		}
		return
	}

	s.tickVolume = 0
	s.submitUserOrders()

	s.simTime += s.profile.TimeStep
	s.advanceTrueValue()

	view := agent.Observation{
		Reference:  s.book.BestMid(s.price),
		Volatility: s.volatility,
		TrueValue:  s.trueValue,
		Market:     s.market,
	}
	for _, g := range s.population.Groups() {
		for _, a := range g.Agents {
			if o, ok := a.Act(view, s.simTime, &s.ids); ok {
				s.execute(g.Kind, o)
			}
		}
	}

	if s.price > 0 && s.prevPrice > 0 {
		ret := math.Log(s.price / s.prevPrice)
		alpha := s.profile.VolatilityAlpha
		s.volatility = (1-alpha)*s.volatility + alpha*math.Abs(ret)
	}
	s.prevPrice = s.price

	s.tick++
	if s.cfg.BroadcastEvery > 0 && s.tick%uint64(s.cfg.BroadcastEvery) == 0 {
		s.broadcast()
		s.publishSnapshot()
	} else if changed {
		s.publishSnapshot()
	}
}

// drain applies every pending command. It reports whether any state
// visible in the snapshot changed.
func (s *Simulation) drain() bool {
	changed := false
	for !s.stopped {
		line, ok := s.source.Poll()
		if !ok {
			break
		}
		cmd, err := wire.ParseCommand(line)
		if err != nil {
			s.reject(line, err)
			continue
		}
		s.metrics.IncCommand(cmd.Verb.String())
		if s.apply(cmd) {
			changed = true
		}
	}
	return changed
}

func (s *Simulation) apply(cmd wire.Command) bool {
	if !s.started && cmd.Verb != wire.VerbStart && cmd.Verb != wire.VerbStop {
		s.logger.Info("command dropped before start", slog.String("verb", cmd.Verb.String()))
		return false
	}
	switch cmd.Verb {
	case wire.VerbStart:
		s.Start(cmd.Population)
		return false
	case wire.VerbOrder:
		s.pending = append(s.pending, userOrder{side: cmd.Side, quantity: cmd.Quantity, price: cmd.Price})
	case wire.VerbScenario:
		s.controller.Transition(cmd.Scenario)
		s.metrics.SetScenario(int(cmd.Scenario))
	case wire.VerbPause:
		s.paused = true
		s.logger.Info("simulation paused", slog.Uint64("tick", s.tick))
	case wire.VerbResume:
		s.paused = false
		s.logger.Info("simulation resumed", slog.Uint64("tick", s.tick))
	case wire.VerbStop:
		s.stopped = true
		s.logger.Info("simulation stopped", slog.Uint64("tick", s.tick))
	}
	return true
}

func (s *Simulation) reject(line string, err error) {
	reason := wire.ErrMalformed.Error()
	if errors.Is(err, wire.ErrUnknownVerb) {
		reason = wire.ErrUnknownVerb.Error()
	}
	s.metrics.IncRejected(reason)
	s.logger.Warn("command rejected",
		slog.String("line", line),
		slog.String("error", err.Error()),
	)
}

// submitUserOrders matches queued user orders ahead of every agent and
// reports each fill immediately.
func (s *Simulation) submitUserOrders() {
	for _, u := range s.pending {
		o := domain.Order{
			ID:        s.ids.Next(),
			Timestamp: s.simTime,
			Price:     domain.ClampPrice(u.price),
			Quantity:  u.quantity,
			Side:      u.side,
		}
		fill := s.execute(agent.KindUser, o)
		if avg, ok := fill.AveragePrice(); ok {
			s.pub.Publish(wire.Trade(agent.KindUser.Label(), o.Side, fill.Quantity, avg))
		}
	}
	s.pending = s.pending[:0]
}

// execute submits o and folds its trades into the tick state.
func (s *Simulation) execute(kind agent.Kind, o domain.Order) domain.Fill {
	trades := s.book.Submit(o)
	for _, t := range trades {
		s.tickVolume += t.Quantity
		s.price = t.Price
		s.stats[kind].Add(o.Side, t.Quantity)
		if kind == agent.KindFundamental {
			s.controller.RecordFundamentalFill(o.Side, t.Quantity)
		}
	}
	fill := domain.Summarize(trades)
	s.metrics.ObserveFills(kind.Label(), len(trades), fill.Quantity)
	return fill
}

// advanceTrueValue applies one geometric Brownian motion step.
func (s *Simulation) advanceTrueValue() {
	dt := s.profile.TimeStep / secondsPerYear
	mu, sigma := s.profile.AnnualDrift, s.profile.AnnualVolatility
	drift := (mu - 0.5*sigma*sigma) * dt
	shock := sigma * math.Sqrt(dt) * s.rng.NormFloat64()
	s.trueValue *= math.Exp(drift + shock)
}

// broadcast decays the book and publishes the window telemetry, then
// starts a new window.
func (s *Simulation) broadcast() {
	removed := s.book.Decay(s.cfg.DecayFraction, s.rng)
	if s.book.Compact() {
		s.logger.Debug("book compacted", slog.Int("queued", s.book.QueueLen()))
	}
	s.logger.Debug("book decayed", slog.Int("removed", removed), slog.Int("resting", s.book.Len()))

	s.pub.Publish(wire.EncodeSentiment(wire.Sentiment{
		Fundamental: s.stats[agent.KindFundamental],
		Momentum:    s.stats[agent.KindMomentum],
		Maker:       s.stats[agent.KindMaker],
		Noise:       s.stats[agent.KindNoise],
		User:        s.stats[agent.KindUser],
	}))
	m := s.controller.Metrics(s.price, s.trueValue)
	s.pub.Publish(wire.ScenarioMetrics(m.Hype, m.Bubble, m.ShortInterest, m.Panic))
	s.pub.Publish(wire.Data(s.price, s.tickVolume))
	spread, liquidity := s.book.Metrics()
	s.pub.Publish(wire.Metrics(spread, liquidity))

	for i := range s.stats {
		s.stats[i].Reset()
	}
	s.metrics.SetRestingOrders(s.book.Len())
}

func (s *Simulation) publishSnapshot() {
	m := s.controller.Metrics(s.price, s.trueValue)
	spread, liquidity := s.book.Metrics()
	s.snapshot.Store(&Snapshot{
		RunID:         s.cfg.RunID,
		Profile:       s.profile.Name,
		State:         s.state(),
		Scenario:      s.controller.State().String(),
		Tick:          s.tick,
		SimTime:       s.simTime,
		Price:         s.price,
		TrueValue:     s.trueValue,
		Volatility:    s.volatility,
		Peak:          s.market.Peak(),
		Spread:        spread,
		Liquidity:     liquidity,
		RestingOrders: s.book.Len(),
		Agents:        s.population.Len(),
		PendingOrders: len(s.pending),
		Hype:          m.Hype,
		Bubble:        m.Bubble,
		ShortInterest: m.ShortInterest,
		Panic:         m.Panic,
		UpdatedAt:     s.clock.Now(),
	})
}

func (s *Simulation) state() string {
	switch {
	case s.stopped:
		return StateStopped
	case !s.started:
		return StateWaiting
	case s.paused:
		return StatePaused
	}
	return StateRunning
}

// Snapshot returns the latest published state. Safe for concurrent use.
func (s *Simulation) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// Stopped reports whether a STOP command ended the run.
func (s *Simulation) Stopped() bool {
	return s.stopped
}
