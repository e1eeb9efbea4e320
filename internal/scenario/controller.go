package scenario

import (
	"log/slog"
	"math"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Participant is anything that keeps a local scenario flag.
type Participant interface {
	SetScenario(domain.Scenario)
}

// Metrics are the per-window scenario meters, all in percent except
// ShortInterest which is a share count.
type Metrics struct {
	Hype          float64
	Bubble        float64
	ShortInterest int64
	Panic         float64
}

// Controller owns the market scenario and the shared market peak. State
// only changes through Transition.
type Controller struct {
	state         domain.Scenario
	market        *SharedMarket
	participants  []Participant
	shortInterest int64
	logger        *slog.Logger
}

// NewController creates a Controller in the Normal state.
func NewController(market *SharedMarket, logger *slog.Logger) *Controller {
	return &Controller{
		state:  domain.ScenarioNormal,
		market: market,
		logger: logger,
	}
}

// Register adds participants. They receive the current state immediately.
func (c *Controller) Register(ps ...Participant) {
	for _, p := range ps {
		p.SetScenario(c.state)
	}
	c.participants = append(c.participants, ps...)
}

// State returns the active scenario.
func (c *Controller) State() domain.Scenario {
	return c.state
}

// Market returns the shared market state.
func (c *Controller) Market() *SharedMarket {
	return c.market
}

// Transition switches to s and pushes it to every participant. Entering
// any state other than PumpDump resets the shared peak; entering
// ShortSqueeze also starts a fresh short interest count.
func (c *Controller) Transition(s domain.Scenario) {
	prev := c.state
	c.state = s
	for _, p := range c.participants {
		p.SetScenario(s)
	}
	if s != domain.ScenarioPumpDump {
		c.market.Reset()
	}
	if s == domain.ScenarioShortSqueeze {
		c.shortInterest = 0
	}
	c.logger.Info("scenario transition",
		slog.String("from", prev.String()),
		slog.String("to", s.String()),
		slog.Float64("peak", c.market.Peak()),
	)
}

// RecordFundamentalFill tracks net fundamental selling while a short
// squeeze is in play.
func (c *Controller) RecordFundamentalFill(side domain.Side, qty int64) {
	if c.state != domain.ScenarioShortSqueeze {
		return
	}
	if side == domain.Sell {
		c.shortInterest += qty
	} else {
		c.shortInterest -= qty
	}
}

// ShortInterest returns the current count.
func (c *Controller) ShortInterest() int64 {
	return c.shortInterest
}

// Hype is 90% at the peak, falling 8 points per 1% drawdown. Zero outside
// PumpDump.
func (c *Controller) Hype(price float64) float64 {
	if c.state != domain.ScenarioPumpDump {
		return 0
	}
	return math.Max(0, (0.9-8*c.market.Drawdown(price))*100)
}

// BubbleRatio is how far price sits above true value, in percent.
func BubbleRatio(price, trueValue float64) float64 {
	if trueValue <= 0 || price <= trueValue {
		return 0
	}
	return (price - trueValue) / trueValue * 100
}

// PanicMeter scales the bubble ratio into a 0-100 meter. Zero outside
// ShortSqueeze.
func (c *Controller) PanicMeter(bubble float64) float64 {
	if c.state != domain.ScenarioShortSqueeze {
		return 0
	}
	return math.Min(100, bubble*3)
}

// Metrics computes all meters for the given traded price and true value.
func (c *Controller) Metrics(price, trueValue float64) Metrics {
	bubble := BubbleRatio(price, trueValue)
	return Metrics{
		Hype:          c.Hype(price),
		Bubble:        bubble,
		ShortInterest: c.shortInterest,
		Panic:         c.PanicMeter(bubble),
	}
}
