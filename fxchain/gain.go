package fxchain

import "github.com/wearesublngual/vibe-weaver-10/dsp"

// Gain is a simple ramped gain node used as the chain's splice endpoints.
type Gain struct {
	ramp *dsp.Ramp
}

// NewGain creates a unity-gain node.
func NewGain(sampleRate, rampMs float32) *Gain {
	return &Gain{ramp: dsp.NewRamp(1.0, sampleRate, rampMs)}
}

// SetGain glides toward the new gain over the ramp time.
func (g *Gain) SetGain(gain float32) {
	g.ramp.SetTarget(gain)
}

// Gain returns the current (possibly mid-ramp) gain.
func (g *Gain) Gain() float32 {
	return g.ramp.Value()
}

// ProcessInPlace applies the ramped gain to a block.
func (g *Gain) ProcessInPlace(block []float32) {
	// Fast path once the ramp has settled at unity.
	if g.ramp.Value() == 1 && g.ramp.Target() == 1 {
		return
	}
	for i := range block {
		block[i] *= g.ramp.Next()
	}
}
