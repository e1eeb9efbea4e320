package domain

import "fmt"

// Scenario is the market narrative agents consult before acting.
type Scenario uint8

const (
	ScenarioNormal Scenario = iota
	ScenarioPumpDump
	ScenarioShortSqueeze
)

// ParseScenario converts the wire code (0, 1, 2) into a Scenario.
func ParseScenario(code int) (Scenario, error) {
	switch Scenario(code) {
	case ScenarioNormal, ScenarioPumpDump, ScenarioShortSqueeze:
		return Scenario(code), nil
	}
	return ScenarioNormal, fmt.Errorf("%w: %d", ErrUnknownScenario, code)
}

func (s Scenario) String() string {
	switch s {
	case ScenarioPumpDump:
		return "pump_dump"
	case ScenarioShortSqueeze:
		return "short_squeeze"
	default:
		return "normal"
	}
}
