package domain

import "errors"

// Sentinel errors for domain-level error handling.
var (
	ErrUnknownScenario   = errors.New("unknown_scenario")
	ErrInvalidPopulation = errors.New("invalid_population")
)
