package fxchain

import "github.com/wearesublngual/vibe-weaver-10/dsp"

const (
	// Below this control value the stage is fully bypassed.
	breakActivation = 0.05

	breakMinRateHz = 0.5
	breakMidRateHz = 2.0
	breakMaxRateHz = 8.0
)

// breakStage is an amplitude gate driven by a low-frequency oscillator
// through a shaping curve. Depth is bounded so gating never reaches
// absolute silence: gate gain never drops below the configured floor.
type breakStage struct {
	sampleRate float32
	floor      float64

	lfo   *dsp.LFO
	depth *dsp.Ramp

	control float64
	state   stageState
}

func newBreakStage(sampleRate, rampMs float32, floor float64) *breakStage {
	return &breakStage{
		sampleRate: sampleRate,
		floor:      floor,
		lfo:        dsp.NewLFO(sampleRate, breakMinRateHz),
		depth:      dsp.NewRamp(0, sampleRate, rampMs),
	}
}

// breakDepth maps the control to gate depth (how low volume dips) through
// independent piecewise segments, capped at 1-floor.
func (s *breakStage) breakDepth(c float64) float64 {
	var depth float64
	switch {
	case c < 0.4:
		depth = c / 0.4 * 0.3
	case c < 0.8:
		depth = 0.3 + (c-0.4)/0.4*0.3
	default:
		depth = 0.6 + (c-0.8)/0.2*0.15
	}
	if max := 1 - s.floor; depth > max {
		depth = max
	}
	return depth
}

// breakRate maps the control to gate rate (how fast volume dips), slower
// rise below mid, steeper above.
func breakRate(c float64) float64 {
	if c < 0.5 {
		return breakMinRateHz + c/0.5*(breakMidRateHz-breakMinRateHz)
	}
	return breakMidRateHz + (c-0.5)/0.5*(breakMaxRateHz-breakMidRateHz)
}

func (s *breakStage) setControl(c float64, settled bool) {
	s.control = c
	if c < breakActivation {
		s.depth.SetTarget(0)
	} else {
		s.depth.SetTarget(float32(s.breakDepth(c)))
		s.lfo.SetRate(float32(breakRate(c)))
	}
	s.state = nextState(s.state, c, settled)
}

func (s *breakStage) bypassed() bool {
	return s.control < breakActivation && s.depth.Value() == 0 && s.depth.Target() == 0
}

func (s *breakStage) ProcessInPlace(block []float32) {
	if s.bypassed() {
		return
	}
	floor := float32(s.floor)
	for i := range block {
		// Squared unipolar sine: dips are sharper than rises.
		u := s.lfo.NextUnipolar()
		shaped := u * u
		gain := 1 - s.depth.Next()*shaped
		if gain < floor {
			gain = floor
		}
		block[i] *= gain
	}
}

func (s *breakStage) dispose() {
	s.lfo.Reset()
	s.depth.Jump(0)
}
