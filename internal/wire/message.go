package wire

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Outbound message verbs.
const (
	VerbData            = "DATA"
	VerbTrade           = "TRADE"
	VerbSentiment       = "SENTIMENT"
	VerbScenarioMetrics = "SCENARIO_METRICS"
	VerbMetrics         = "METRICS"
)

// Sentiment is the per-window traded volume of every actor.
type Sentiment struct {
	Fundamental domain.AgentStats
	Momentum    domain.AgentStats
	Maker       domain.AgentStats
	Noise       domain.AgentStats
	User        domain.AgentStats
}

// Data encodes the last traded price and the tick volume.
func Data(price float64, volume int64) string {
	return join(VerbData, fixed(price, 6), itoa(volume))
}

// Trade encodes a fill report for one actor's order.
func Trade(label string, side domain.Side, qty int64, avgPrice float64) string {
	return join(VerbTrade, label, side.String(), itoa(qty), formatDecimal(avgPrice))
}

// EncodeSentiment encodes ten volumes as buy/sell pairs in the order
// fundamental, momentum, maker, noise, user.
func EncodeSentiment(s Sentiment) string {
	fields := []string{VerbSentiment}
	for _, st := range []domain.AgentStats{s.Fundamental, s.Momentum, s.Maker, s.Noise, s.User} {
		fields = append(fields, itoa(st.BuyVolume), itoa(st.SellVolume))
	}
	return strings.Join(fields, " ")
}

// ScenarioMetrics encodes the scenario meters.
func ScenarioMetrics(hype, bubble float64, shortInterest int64, panic float64) string {
	return join(VerbScenarioMetrics, formatDecimal(hype), formatDecimal(bubble), itoa(shortInterest), formatDecimal(panic))
}

// Metrics encodes the spread and top-of-book liquidity.
func Metrics(spread float64, liquidity int64) string {
	return join(VerbMetrics, formatDecimal(spread), itoa(liquidity))
}

func join(fields ...string) string { return strings.Join(fields, " ") }

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

// fixed prints v with exactly places decimals.
func fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// formatDecimal prints v rounded to four places without trailing zeros.
func formatDecimal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return decimal.NewFromFloat(v).Round(4).String()
}
