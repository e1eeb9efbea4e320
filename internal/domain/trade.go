package domain

// Trade is a single execution. The price is always the resting order's.
type Trade struct {
	Price     float64
	Quantity  int64
	Timestamp float64
}

// Fill summarizes the trades produced by one incoming order.
type Fill struct {
	Quantity int64
	Notional float64
}

// Summarize folds trades into a Fill.
func Summarize(trades []Trade) Fill {
	var f Fill
	for _, t := range trades {
		f.Quantity += t.Quantity
		f.Notional += t.Price * float64(t.Quantity)
	}
	return f
}

// AveragePrice returns the volume-weighted fill price, or (0, false) when
// nothing was filled.
func (f Fill) AveragePrice() (float64, bool) {
	if f.Quantity == 0 {
		return 0, false
	}
	return f.Notional / float64(f.Quantity), true
}
