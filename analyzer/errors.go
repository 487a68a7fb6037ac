package analyzer

import "errors"

var (
	errTickRate   = errors.New("analyzer: tick rate must be > 0")
	errAutoGain   = errors.New("analyzer: auto-gain decay must be in (0, 1)")
	errSigmaMult  = errors.New("analyzer: beat sigma multiplier must be > 0")
	errRiseFactor = errors.New("analyzer: beat rise factor must be >= 1")
	errBeatWindow = errors.New("analyzer: beat window must be > 0 and cooldown >= 0")
	errHalfLife   = errors.New("analyzer: beat half-life must be > 0")
	errIdleRate   = errors.New("analyzer: idle rate must be > 0")
)
