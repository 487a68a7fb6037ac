package analyzer

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// SpectrumSource supplies a normalized magnitude spectrum, one byte per
// frequency bin (0-255, browser analyser convention).
type SpectrumSource interface {
	// Bins returns the number of frequency bins.
	Bins() int
	// BinHz returns the width of one bin in Hz.
	BinHz() float64
	// ReadSpectrum fills dst with the current byte magnitudes. dst has
	// Bins() elements.
	ReadSpectrum(dst []byte)
}

// PCMSource adapts a pushed stream of mono float samples into a
// SpectrumSource: Hann window, real FFT, magnitude-to-dB byte mapping with
// temporal smoothing, matching the convention downstream code expects.
type PCMSource struct {
	sampleRate int
	fftSize    int

	ring    []float64
	ringPos int
	filled  int

	window   []float64
	forward  func()
	buf      []float64
	spec     []complex128
	smoothed []float64

	// dB mapping range and inter-frame smoothing factor.
	minDB     float64
	maxDB     float64
	smoothing float64
}

// NewPCMSource creates a source analyzing fftSize-sample windows at the
// given rate. fftSize must be a power of two.
func NewPCMSource(sampleRate, fftSize int) (*PCMSource, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("analyzer: sample rate must be > 0: %d", sampleRate)
	}
	if fftSize < 32 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("analyzer: fft size must be a power of two >= 32: %d", fftSize)
	}
	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyzer: fft plan: %w", err)
	}

	window := make([]float64, fftSize)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
	}

	s := &PCMSource{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		ring:       make([]float64, fftSize),
		window:     window,
		buf:        make([]float64, fftSize),
		spec:       make([]complex128, fftSize/2+1),
		smoothed:   make([]float64, fftSize/2),
		minDB:      -100,
		maxDB:      -30,
		smoothing:  0.8,
	}
	s.forward = func() { plan.Forward(s.spec, s.buf) }
	return s, nil
}

// SampleRate returns the analysis sample rate in Hz.
func (s *PCMSource) SampleRate() int {
	return s.sampleRate
}

// Bins returns the number of frequency bins.
func (s *PCMSource) Bins() int {
	return s.fftSize / 2
}

// BinHz returns the width of one bin in Hz.
func (s *PCMSource) BinHz() float64 {
	return float64(s.sampleRate) / float64(s.fftSize)
}

// Push appends mono samples to the analysis ring. Older samples fall out of
// the window once more than fftSize have been pushed.
func (s *PCMSource) Push(samples []float32) {
	for _, v := range samples {
		s.ring[s.ringPos] = float64(v)
		s.ringPos = (s.ringPos + 1) % s.fftSize
		if s.filled < s.fftSize {
			s.filled++
		}
	}
}

// PushFloat64 is Push for float64 sample slices.
func (s *PCMSource) PushFloat64(samples []float64) {
	for _, v := range samples {
		s.ring[s.ringPos] = v
		s.ringPos = (s.ringPos + 1) % s.fftSize
		if s.filled < s.fftSize {
			s.filled++
		}
	}
}

// ReadSpectrum computes the current windowed magnitude spectrum as bytes.
func (s *PCMSource) ReadSpectrum(dst []byte) {
	// Unroll the ring into time order, oldest sample first.
	for i := 0; i < s.fftSize; i++ {
		s.buf[i] = s.ring[(s.ringPos+i)%s.fftSize] * s.window[i]
	}
	s.forward()

	norm := 2.0 / float64(s.fftSize)
	span := s.maxDB - s.minDB
	n := s.Bins()
	if len(dst) < n {
		n = len(dst)
	}
	for k := 0; k < n; k++ {
		mag := cmplx.Abs(s.spec[k]) * norm
		s.smoothed[k] = s.smoothing*s.smoothed[k] + (1-s.smoothing)*mag

		db := 20 * math.Log10(s.smoothed[k]+1e-12)
		v := (db - s.minDB) / span * 255
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		dst[k] = byte(v)
	}
}
