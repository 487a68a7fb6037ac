package fxchain

import (
	"math"

	"github.com/wearesublngual/vibe-weaver-10/dsp"
)

const (
	driftMaxCutoffHz = 16000
	driftMaxDepthOct = 1.5
	driftMinRateHz   = 0.05
	driftMaxRateHz   = 0.5

	// Filter coefficients are retuned at this sample interval while the
	// LFO sweeps; retuning every sample buys nothing audible.
	driftCoeffInterval = 32
)

// driftStage is a resonant low-pass whose cutoff is swept by a slow
// secondary oscillator. The cutoff has an enforced floor: at maximum drift
// the signal is colored, never silenced.
type driftStage struct {
	sampleRate float32
	floorHz    float64

	filter *dsp.Biquad
	lfo    *dsp.LFO

	center *dsp.Ramp // sweep-center cutoff in Hz
	q      *dsp.Ramp
	depth  *dsp.Ramp // sweep depth in octaves

	sinceRetune int
	lastLFO     float32

	control float64
	state   stageState
}

func newDriftStage(sampleRate, rampMs float32, floorHz float64) *driftStage {
	s := &driftStage{
		sampleRate: sampleRate,
		floorHz:    floorHz,
		filter:     dsp.NewLowpass(driftMaxCutoffHz, sampleRate, 0.7071),
		lfo:        dsp.NewLFO(sampleRate, driftMinRateHz),
		center:     dsp.NewRamp(driftMaxCutoffHz, sampleRate, rampMs),
		q:          dsp.NewRamp(0.9, sampleRate, rampMs),
		depth:      dsp.NewRamp(0, sampleRate, rampMs),
	}
	return s
}

// driftCenterHz maps the control to the sweep-center cutoff. Clamped to the
// floor so even full drift keeps the filter open enough.
func (s *driftStage) driftCenterHz(c float64) float64 {
	open := math.Pow(1-c, 1.5)
	hz := s.floorHz + (driftMaxCutoffHz-s.floorHz)*open
	if hz < s.floorHz {
		hz = s.floorHz
	}
	return hz
}

// driftDepthOct caps sweep depth so the swept cutoff stays at or above the
// floor: center / 2^depth >= floor.
func (s *driftStage) driftDepthOct(c float64, centerHz float64) float64 {
	depth := driftMaxDepthOct * c
	if limit := math.Log2(centerHz / s.floorHz); depth > limit {
		depth = limit
	}
	if depth < 0 {
		depth = 0
	}
	return depth
}

func driftRateHz(c float64) float64 {
	return driftMinRateHz + (driftMaxRateHz-driftMinRateHz)*c
}

func driftQ(c float64) float64 {
	return 0.9 + 5.0*c
}

// minCutoffHz returns the lowest cutoff the current settings can sweep to.
func (s *driftStage) minCutoffHz() float64 {
	return float64(s.center.Value()) / math.Pow(2, float64(s.depth.Value()))
}

func (s *driftStage) setControl(c float64, settled bool) {
	s.control = c
	center := s.driftCenterHz(c)
	s.center.SetTarget(float32(center))
	s.depth.SetTarget(float32(s.driftDepthOct(c, center)))
	s.q.SetTarget(float32(driftQ(c)))
	s.lfo.SetRate(float32(driftRateHz(c)))
	s.state = nextState(s.state, c, settled)
}

func (s *driftStage) bypassed() bool {
	return s.state == stageIdle && s.center.Value() >= driftMaxCutoffHz-1 && s.center.Target() >= driftMaxCutoffHz-1
}

func (s *driftStage) retune() {
	center := float64(s.center.Value())
	depth := float64(s.depth.Value())
	cutoff := center * math.Pow(2, depth*float64(s.lastLFO))
	if cutoff < s.floorHz {
		cutoff = s.floorHz
	}
	s.filter.SetLowpass(float32(cutoff), s.sampleRate, s.q.Value())
}

func (s *driftStage) ProcessInPlace(block []float32) {
	if s.bypassed() {
		return
	}
	for i, in := range block {
		s.center.Next()
		s.depth.Next()
		s.q.Next()
		s.lastLFO = s.lfo.Next()

		if s.sinceRetune == 0 {
			s.retune()
		}
		s.sinceRetune++
		if s.sinceRetune >= driftCoeffInterval {
			s.sinceRetune = 0
		}

		block[i] = s.filter.Process(in)
	}
}

func (s *driftStage) dispose() {
	s.filter.Reset()
	s.lfo.Reset()
	s.center.Jump(driftMaxCutoffHz)
	s.depth.Jump(0)
}
