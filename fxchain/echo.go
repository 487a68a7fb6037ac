package fxchain

import "github.com/wearesublngual/vibe-weaver-10/dsp"

// Echo wet-mix breakpoints: barely audible below the first knee, roomy
// through the middle, dubby at the top.
const (
	echoKnee1    = 0.3
	echoKnee2    = 0.7
	echoWetKnee1 = 0.12
	echoWetKnee2 = 0.35
	echoWetMax   = 0.55

	// Feedback is hard-clamped so the delay can never self-oscillate
	// into runaway gain, regardless of the control value.
	echoFeedbackCeiling = 0.6

	echoMinDelayMs = 150
	echoMaxDelayMs = 500
)

type echoStage struct {
	sampleRate float32

	delay    *dsp.DelayLine
	wet      *dsp.Ramp
	feedback *dsp.Ramp
	delaySmp *dsp.Ramp

	control float64
	state   stageState
}

func newEchoStage(sampleRate, rampMs float32) *echoStage {
	maxSamples := int(sampleRate*echoMaxDelayMs/1000) + 2
	s := &echoStage{
		sampleRate: sampleRate,
		delay:      dsp.NewDelayLine(maxSamples),
		wet:        dsp.NewRamp(0, sampleRate, rampMs),
		feedback:   dsp.NewRamp(0, sampleRate, rampMs),
		delaySmp:   dsp.NewRamp(sampleRate*echoMinDelayMs/1000, sampleRate, rampMs),
	}
	return s
}

// echoWetMix maps the 0-1 control to wet mix through three piecewise-linear
// segments.
func echoWetMix(c float64) float64 {
	switch {
	case c < echoKnee1:
		return c / echoKnee1 * echoWetKnee1
	case c < echoKnee2:
		return echoWetKnee1 + (c-echoKnee1)/(echoKnee2-echoKnee1)*(echoWetKnee2-echoWetKnee1)
	default:
		return echoWetKnee2 + (c-echoKnee2)/(1-echoKnee2)*(echoWetMax-echoWetKnee2)
	}
}

func echoFeedback(c float64) float64 {
	fb := c * 0.7
	if fb > echoFeedbackCeiling {
		fb = echoFeedbackCeiling
	}
	return fb
}

func echoDelayMs(c float64) float64 {
	return echoMinDelayMs + (echoMaxDelayMs-echoMinDelayMs)*c
}

func (s *echoStage) setControl(c float64, settled bool) {
	s.control = c
	s.wet.SetTarget(float32(echoWetMix(c)))
	s.feedback.SetTarget(float32(echoFeedback(c)))
	s.delaySmp.SetTarget(float32(echoDelayMs(c)) / 1000 * s.sampleRate)
	s.state = nextState(s.state, c, settled)
}

func (s *echoStage) bypassed() bool {
	return s.state == stageIdle && s.wet.Value() == 0 && s.wet.Target() == 0
}

func (s *echoStage) ProcessInPlace(block []float32) {
	if s.bypassed() {
		return
	}
	for i, in := range block {
		delayed := s.delay.ReadFractional(s.delaySmp.Next())
		s.delay.Write(in + delayed*s.feedback.Next())
		block[i] = in + delayed*s.wet.Next()
	}
}

func (s *echoStage) dispose() {
	s.delay.Reset()
	s.wet.Jump(0)
	s.feedback.Jump(0)
}

// nextState advances the per-stage smoothing state machine.
func nextState(cur stageState, control float64, settled bool) stageState {
	switch {
	case settled && control < convergedEps:
		return stageIdle
	case settled:
		return stageSteady
	default:
		return stageConverging
	}
}
