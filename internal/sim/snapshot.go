package sim

import "time"

// Run states reported in a Snapshot.
const (
	StateWaiting = "waiting"
	StateRunning = "running"
	StatePaused  = "paused"
	StateStopped = "stopped"
)

// Snapshot is a read-only copy of the simulation state, published for
// other goroutines.
type Snapshot struct {
	RunID         string    `json:"run_id"`
	Profile       string    `json:"profile"`
	State         string    `json:"state"`
	Scenario      string    `json:"scenario"`
	Tick          uint64    `json:"tick"`
	SimTime       float64   `json:"sim_time"`
	Price         float64   `json:"last_price"`
	TrueValue     float64   `json:"true_value"`
	Volatility    float64   `json:"volatility"`
	Peak          float64   `json:"peak"`
	Spread        float64   `json:"spread"`
	Liquidity     int64     `json:"liquidity"`
	RestingOrders int       `json:"resting_orders"`
	Agents        int       `json:"agents"`
	PendingOrders int       `json:"pending_orders"`
	Hype          float64   `json:"hype"`
	Bubble        float64   `json:"bubble"`
	ShortInterest int64     `json:"short_interest"`
	Panic         float64   `json:"panic"`
	UpdatedAt     time.Time `json:"updated_at"`
}
