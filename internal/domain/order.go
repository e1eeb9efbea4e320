package domain

import "math"

// MinTick is the lowest price an order may carry. Computed prices below it
// are clamped up rather than rejected.
const MinTick = 0.01

// MaxPrice is the highest price the book accepts. Inbound prices above it
// are rejected at the wire; computed ones are capped.
const MaxPrice = 1e9

// Side indicates whether an order buys or sells.
type Side uint8

const (
	Buy Side = iota
	Sell
)

// String returns the wire label for the side.
func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order is a limit instruction. Quantity is the resting (remaining)
// quantity once the order is on the book.
type Order struct {
	ID        uint64
	Timestamp float64 // simulated seconds
	Price     float64
	Quantity  int64
	Side      Side
}

// ClampPrice maps NaN and anything below MinTick to MinTick, and caps
// everything above MaxPrice (+Inf included).
func ClampPrice(p float64) float64 {
	switch {
	case math.IsNaN(p) || p < MinTick:
		return MinTick
	case p > MaxPrice:
		return MaxPrice
	}
	return p
}

// IDAllocator hands out strictly increasing order ids. The zero value
// starts at 1.
type IDAllocator struct {
	next uint64
}

// Next returns a fresh id.
func (a *IDAllocator) Next() uint64 {
	a.next++
	return a.next
}

// Peek returns the id the next call to Next would return.
func (a *IDAllocator) Peek() uint64 {
	return a.next + 1
}
