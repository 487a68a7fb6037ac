package dsp

import "math"

// LFO is a phase-accumulating sine oscillator for sub-audio modulation.
type LFO struct {
	sampleRate float32
	rateHz     float32
	phase      float64 // kept in [0, 2π)
}

// NewLFO creates an oscillator at the given rate in Hz.
func NewLFO(sampleRate, rateHz float32) *LFO {
	return &LFO{
		sampleRate: sampleRate,
		rateHz:     rateHz,
	}
}

// SetRate changes the oscillation rate without resetting phase, so rate
// sweeps stay click-free.
func (l *LFO) SetRate(rateHz float32) {
	if rateHz < 0 {
		rateHz = 0
	}
	l.rateHz = rateHz
}

// Rate returns the current rate in Hz.
func (l *LFO) Rate() float32 {
	return l.rateHz
}

// Next advances one sample and returns the sine output in [-1, 1].
func (l *LFO) Next() float32 {
	out := float32(math.Sin(l.phase))
	l.phase += 2 * math.Pi * float64(l.rateHz) / float64(l.sampleRate)
	if l.phase >= 2*math.Pi {
		l.phase -= 2 * math.Pi
	}
	return out
}

// NextUnipolar advances one sample and returns output mapped to [0, 1].
func (l *LFO) NextUnipolar() float32 {
	return 0.5 + 0.5*l.Next()
}

// Reset rewinds the oscillator phase to zero.
func (l *LFO) Reset() {
	l.phase = 0
}
