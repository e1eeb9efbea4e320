package scenario

// SharedMarket is the common-knowledge view every agent reads and updates:
// the highest reference price seen since the last reset.
//
// It is confined to the tick goroutine and does no locking.
type SharedMarket struct {
	peak float64
}

// NewSharedMarket creates a SharedMarket whose peak starts at initial.
func NewSharedMarket(initial float64) *SharedMarket {
	return &SharedMarket{peak: initial}
}

// Observe raises the peak to p if p is higher.
func (m *SharedMarket) Observe(p float64) {
	if p > m.peak {
		m.peak = p
	}
}

// Peak returns the running maximum.
func (m *SharedMarket) Peak() float64 {
	return m.peak
}

// Reset sets the peak back to zero.
func (m *SharedMarket) Reset() {
	m.peak = 0
}

// Drawdown returns (peak - price) / peak, or 0 while the peak is unset.
func (m *SharedMarket) Drawdown(price float64) float64 {
	if m.peak <= 0 {
		return 0
	}
	return (m.peak - price) / m.peak
}
