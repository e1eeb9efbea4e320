package engine

import (
	"github.com/google/btree"

	"github.com/efreitasn/marketsim/internal/domain"
)

const degree = 32

// compactMinStale is the number of stale queue entries below which Compact
// leaves the queues alone.
const compactMinStale = 1024

// OrderBookEntry is a queue reference to a resting order. It is a snapshot
// of the sort key only; quantity lives in the active order table.
type OrderBookEntry struct {
	Price     float64
	Timestamp float64
	OrderID   uint64
}

// PriceLevel represents an aggregated price level in the order book.
type PriceLevel struct {
	Price         float64
	TotalQuantity int64
	OrderCount    int
}

// bidLess defines ordering for the bid side: price descending, then
// timestamp ascending, then order id ascending. Min() is the best bid.
func bidLess(a, b OrderBookEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.OrderID < b.OrderID
}

// askLess defines ordering for the ask side: price ascending, then
// timestamp ascending, then order id ascending. Min() is the best ask.
func askLess(a, b OrderBookEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.OrderID < b.OrderID
}

// Random is the source Decay draws from.
type Random interface {
	Float64() float64
}

// OrderBook holds both sides of a single instrument. The active table is
// authoritative; queue entries whose id is missing from it are stale and
// are dropped when they reach the head.
//
// OrderBook is not safe for concurrent use. The tick loop owns it.
type OrderBook struct {
	bids   *btree.BTreeG[OrderBookEntry]
	asks   *btree.BTreeG[OrderBookEntry]
	active map[uint64]*domain.Order
	live   [2]int // resting orders per side, indexed by domain.Side
	stale  int
}

// NewOrderBook creates an empty order book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:   btree.NewG[OrderBookEntry](degree, bidLess),
		asks:   btree.NewG[OrderBookEntry](degree, askLess),
		active: make(map[uint64]*domain.Order),
	}
}

func (ob *OrderBook) queue(side domain.Side) *btree.BTreeG[OrderBookEntry] {
	if side == domain.Buy {
		return ob.bids
	}
	return ob.asks
}

// head discards stale entries from the front of the queue and returns the
// first live one.
func (ob *OrderBook) head(side domain.Side) (OrderBookEntry, *domain.Order, bool) {
	q := ob.queue(side)
	for {
		entry, ok := q.Min()
		if !ok {
			return OrderBookEntry{}, nil, false
		}
		if o, live := ob.active[entry.OrderID]; live {
			return entry, o, true
		}
		q.DeleteMin()
		if ob.stale > 0 {
			ob.stale--
		}
	}
}

// Submit matches an incoming order against the opposite side with
// price-time priority and rests any remainder. Trades execute at the
// resting order's price. A non-positive quantity is a no-op.
func (ob *OrderBook) Submit(order domain.Order) []domain.Trade {
	if order.Quantity <= 0 {
		return nil
	}
	order.Price = domain.ClampPrice(order.Price)

	var trades []domain.Trade
	opposite := order.Side.Opposite()
	for order.Quantity > 0 {
		entry, resting, ok := ob.head(opposite)
		if !ok {
			break
		}
		if order.Side == domain.Sell && entry.Price < order.Price {
			break
		}
		if order.Side == domain.Buy && entry.Price > order.Price {
			break
		}

		fillQty := min(resting.Quantity, order.Quantity)
		trades = append(trades, domain.Trade{
			Price:     resting.Price,
			Quantity:  fillQty,
			Timestamp: order.Timestamp,
		})
		resting.Quantity -= fillQty
		order.Quantity -= fillQty

		if resting.Quantity == 0 {
			delete(ob.active, entry.OrderID)
			ob.queue(opposite).DeleteMin()
			ob.live[opposite]--
		}
	}

	if order.Quantity > 0 {
		ob.rest(order)
	}
	return trades
}

func (ob *OrderBook) rest(order domain.Order) {
	o := order
	ob.active[o.ID] = &o
	ob.queue(o.Side).ReplaceOrInsert(OrderBookEntry{
		Price:     o.Price,
		Timestamp: o.Timestamp,
		OrderID:   o.ID,
	})
	ob.live[o.Side]++
}

// Best returns the live best bid and best ask. Either may be absent.
func (ob *OrderBook) Best() (bid, ask domain.Order, hasBid, hasAsk bool) {
	if _, o, ok := ob.head(domain.Buy); ok {
		bid, hasBid = *o, true
	}
	if _, o, ok := ob.head(domain.Sell); ok {
		ask, hasAsk = *o, true
	}
	return bid, ask, hasBid, hasAsk
}

// BestMid returns the midpoint of the best bid and ask, or fallback when
// either side is empty.
func (ob *OrderBook) BestMid(fallback float64) float64 {
	bid, ask, hasBid, hasAsk := ob.Best()
	if !hasBid || !hasAsk {
		return fallback
	}
	return 0.5 * (bid.Price + ask.Price)
}

// Metrics returns the spread and the combined quantity of the two best
// orders. Both are zero unless both sides have liquidity.
func (ob *OrderBook) Metrics() (spread float64, liquidity int64) {
	bid, ask, hasBid, hasAsk := ob.Best()
	if !hasBid || !hasAsk {
		return 0, 0
	}
	return ask.Price - bid.Price, ask.Quantity + bid.Quantity
}

// Decay removes each resting order from the active table with probability
// fraction. Queue entries are left in place and go stale. Orders are
// visited in queue order so a seeded source gives reproducible results.
// It returns the number of orders removed.
func (ob *OrderBook) Decay(fraction float64, rng Random) int {
	if fraction <= 0 || len(ob.active) == 0 {
		return 0
	}
	removed := 0
	visit := func(side domain.Side) {
		ob.queue(side).Ascend(func(entry OrderBookEntry) bool {
			if _, live := ob.active[entry.OrderID]; !live {
				return true
			}
			if rng.Float64() < fraction {
				delete(ob.active, entry.OrderID)
				ob.live[side]--
				ob.stale++
				removed++
			}
			return true
		})
	}
	visit(domain.Buy)
	visit(domain.Sell)
	return removed
}

// Compact rebuilds both queues without stale entries once they outnumber
// live orders. It never changes what the book reports.
func (ob *OrderBook) Compact() bool {
	if ob.stale < compactMinStale || ob.stale <= len(ob.active) {
		return false
	}
	rebuild := func(q *btree.BTreeG[OrderBookEntry], less btree.LessFunc[OrderBookEntry]) *btree.BTreeG[OrderBookEntry] {
		fresh := btree.NewG[OrderBookEntry](degree, less)
		q.Ascend(func(entry OrderBookEntry) bool {
			if _, live := ob.active[entry.OrderID]; live {
				fresh.ReplaceOrInsert(entry)
			}
			return true
		})
		return fresh
	}
	ob.bids = rebuild(ob.bids, bidLess)
	ob.asks = rebuild(ob.asks, askLess)
	ob.stale = 0
	return true
}

// Get returns the current state of a resting order.
func (ob *OrderBook) Get(id uint64) (domain.Order, bool) {
	o, ok := ob.active[id]
	if !ok {
		return domain.Order{}, false
	}
	return *o, true
}

// Len returns the number of resting orders.
func (ob *OrderBook) Len() int {
	return len(ob.active)
}

// Depth returns the number of resting bids and asks.
func (ob *OrderBook) Depth() (bids, asks int) {
	return ob.live[domain.Buy], ob.live[domain.Sell]
}

// QueueLen returns the number of queue entries, stale ones included.
func (ob *OrderBook) QueueLen() int {
	return ob.bids.Len() + ob.asks.Len()
}

// TopBids returns up to n aggregated live price levels from the bid side,
// ordered by price descending.
func (ob *OrderBook) TopBids(n int) []PriceLevel {
	return ob.topLevels(ob.bids, n)
}

// TopAsks returns up to n aggregated live price levels from the ask side,
// ordered by price ascending.
func (ob *OrderBook) TopAsks(n int) []PriceLevel {
	return ob.topLevels(ob.asks, n)
}

// topLevels iterates the B-tree in order, skipping stale entries, and
// aggregates live orders into at most n price levels.
func (ob *OrderBook) topLevels(tree *btree.BTreeG[OrderBookEntry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(entry OrderBookEntry) bool {
		o, live := ob.active[entry.OrderID]
		if !live {
			return true
		}
		if len(levels) > 0 && levels[len(levels)-1].Price == entry.Price {
			levels[len(levels)-1].TotalQuantity += o.Quantity
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         entry.Price,
			TotalQuantity: o.Quantity,
			OrderCount:    1,
		})
		return true
	})
	return levels
}
