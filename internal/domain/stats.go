package domain

// AgentStats accumulates traded volume for one actor within a broadcast
// window. It carries nothing across windows.
type AgentStats struct {
	BuyVolume  int64
	SellVolume int64
}

// Add records qty on the given side.
func (s *AgentStats) Add(side Side, qty int64) {
	if side == Buy {
		s.BuyVolume += qty
	} else {
		s.SellVolume += qty
	}
}

// Reset clears the window.
func (s *AgentStats) Reset() {
	*s = AgentStats{}
}

// SimConfig is the agent population of one run.
type SimConfig struct {
	Makers       int
	Fundamentals int
	Momentum     int
	Noise        int
}

// Validate rejects negative counts.
func (c SimConfig) Validate() error {
	if c.Makers < 0 || c.Fundamentals < 0 || c.Momentum < 0 || c.Noise < 0 {
		return ErrInvalidPopulation
	}
	return nil
}

// Total is the number of agents in the run.
func (c SimConfig) Total() int {
	return c.Makers + c.Fundamentals + c.Momentum + c.Noise
}
