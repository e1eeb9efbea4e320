// Package wire encodes and decodes the line-oriented text messages
// exchanged with the relay: space separated fields behind a leading verb.
package wire

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/marketsim/internal/domain"
)

var (
	ErrMalformed   = errors.New("malformed_command")
	ErrUnknownVerb = errors.New("unknown_verb")
)

// Verb is an inbound command verb.
type Verb uint8

const (
	VerbStart Verb = iota + 1
	VerbOrder
	VerbScenario
	VerbPause
	VerbResume
	VerbStop
)

var verbNames = map[string]Verb{
	"START":    VerbStart,
	"ORDER":    VerbOrder,
	"SCENARIO": VerbScenario,
	"PAUSE":    VerbPause,
	"RESUME":   VerbResume,
	"STOP":     VerbStop,
}

var verbLabels = [...]string{
	VerbStart:    "START",
	VerbOrder:    "ORDER",
	VerbScenario: "SCENARIO",
	VerbPause:    "PAUSE",
	VerbResume:   "RESUME",
	VerbStop:     "STOP",
}

func (v Verb) String() string {
	if v == 0 || int(v) >= len(verbLabels) {
		return "UNKNOWN"
	}
	return verbLabels[v]
}

// Command is a decoded inbound message. Only the fields of its verb are
// meaningful.
type Command struct {
	Verb Verb

	// START
	Population domain.SimConfig

	// ORDER
	Side     domain.Side
	Quantity int64
	Price    float64

	// SCENARIO
	Scenario domain.Scenario
}

// ParseCommand decodes one inbound line. Trailing fields beyond those the
// verb needs are ignored; anything missing or out of range is rejected.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty message", ErrMalformed)
	}
	verb, ok := verbNames[fields[0]]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownVerb, fields[0])
	}
	args := fields[1:]
	cmd := Command{Verb: verb}

	switch verb {
	case VerbStart:
		counts, err := ints(verb, args, 4)
		if err != nil {
			return Command{}, err
		}
		cmd.Population = domain.SimConfig{
			Makers:       int(counts[0]),
			Fundamentals: int(counts[1]),
			Momentum:     int(counts[2]),
			Noise:        int(counts[3]),
		}
		if err := cmd.Population.Validate(); err != nil {
			return Command{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

	case VerbOrder:
		if len(args) < 3 {
			return Command{}, fmt.Errorf("%w: ORDER wants 3 fields, got %d", ErrMalformed, len(args))
		}
		vals, err := ints(verb, args[:2], 2)
		if err != nil {
			return Command{}, err
		}
		switch vals[0] {
		case 0:
			cmd.Side = domain.Buy
		case 1:
			cmd.Side = domain.Sell
		default:
			return Command{}, fmt.Errorf("%w: side %d", ErrMalformed, vals[0])
		}
		cmd.Quantity = vals[1]
		price, err := decimal.NewFromString(args[2])
		if err != nil {
			return Command{}, fmt.Errorf("%w: price %q", ErrMalformed, args[2])
		}
		cmd.Price = price.InexactFloat64()
		if math.IsInf(cmd.Price, 0) || cmd.Price > domain.MaxPrice {
			return Command{}, fmt.Errorf("%w: price %q out of range", ErrMalformed, args[2])
		}

	case VerbScenario:
		vals, err := ints(verb, args, 1)
		if err != nil {
			return Command{}, err
		}
		s, err := domain.ParseScenario(int(vals[0]))
		if err != nil {
			return Command{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		cmd.Scenario = s
	}
	return cmd, nil
}

// ints parses the first n args as non-negative integers.
func ints(verb Verb, args []string, n int) ([]int64, error) {
	if len(args) < n {
		return nil, fmt.Errorf("%w: %s wants %d fields, got %d", ErrMalformed, verb, n, len(args))
	}
	out := make([]int64, n)
	for i := range out {
		v, err := strconv.ParseInt(args[i], 10, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: %s field %d %q", ErrMalformed, verb, i+1, args[i])
		}
		out[i] = v
	}
	return out, nil
}

// String encodes the command back into its wire form.
func (c Command) String() string {
	switch c.Verb {
	case VerbStart:
		p := c.Population
		return fmt.Sprintf("START %d %d %d %d", p.Makers, p.Fundamentals, p.Momentum, p.Noise)
	case VerbOrder:
		return fmt.Sprintf("ORDER %d %d %s", c.Side, c.Quantity, formatDecimal(c.Price))
	case VerbScenario:
		return fmt.Sprintf("SCENARIO %d", c.Scenario)
	}
	return c.Verb.String()
}
