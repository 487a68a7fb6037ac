// Package analyzer turns a live magnitude spectrum into a smoothed,
// normalized feature frame once per render tick: band energies, overall
// energy with auto-gain, spectral flux, and adaptive beat detection.
package analyzer

// BandRange delimits one perceptual loudness band in Hz.
type BandRange struct {
	LoHz float64
	HiHz float64
}

// Config exposes every tuned constant of the extractor. The beat-detection
// thresholds in particular were arrived at empirically; cmd/beat-tune
// re-validates them against synthetic corpora.
type Config struct {
	// TickRate is the nominal analyze rate in ticks per second.
	TickRate float64

	// Band edges approximating sub-bass+bass, low-mid, mid, and high.
	Bass   BandRange
	LowMid BandRange
	Mid    BandRange
	High   BandRange

	// Asymmetric smoothing: attack is applied when a band rises, release
	// when it falls. Attack >> release so transients punch through but
	// decay musically instead of chattering.
	BassAttack    float64
	BassRelease   float64
	UpperAttack   float64
	UpperRelease  float64
	EnergyAttack  float64
	EnergyRelease float64

	// Auto-gain: per-tick decay of the observed energy maximum.
	AutoGainDecay float64

	// Beat detection.
	BeatSigmaMult  float64 // bass must exceed mean + this many stddevs
	BeatRiseFactor float64 // and exceed the previous frame by this ratio
	BeatFluxFloor  float64 // and spectral flux must exceed this floor
	BeatCooldownMs float64 // minimum spacing between reported beats
	BeatWindowMs   float64 // rolling bass-history window length

	// BeatHalfLifeMs controls beat-intensity decay after a beat.
	BeatHalfLifeMs float64

	// IdleRateHz paces the synthetic breathing signal used when no
	// source is attached.
	IdleRateHz float64
}

// DefaultConfig returns the tuning used by the live visualizer.
func DefaultConfig() Config {
	return Config{
		TickRate: 60,

		Bass:   BandRange{20, 250},
		LowMid: BandRange{250, 500},
		Mid:    BandRange{500, 2000},
		High:   BandRange{2000, 8000},

		BassAttack:    0.55,
		BassRelease:   0.06,
		UpperAttack:   0.45,
		UpperRelease:  0.08,
		EnergyAttack:  0.4,
		EnergyRelease: 0.05,

		AutoGainDecay: 0.999,

		BeatSigmaMult:  1.5,
		BeatRiseFactor: 1.2,
		BeatFluxFloor:  0.015,
		BeatCooldownMs: 120,
		BeatWindowMs:   700,

		BeatHalfLifeMs: 150,

		IdleRateHz: 0.25,
	}
}

// Validate reports the first out-of-range field.
func (c *Config) Validate() error {
	if c.TickRate <= 0 {
		return errTickRate
	}
	if c.AutoGainDecay <= 0 || c.AutoGainDecay >= 1 {
		return errAutoGain
	}
	if c.BeatSigmaMult <= 0 {
		return errSigmaMult
	}
	if c.BeatRiseFactor < 1 {
		return errRiseFactor
	}
	if c.BeatCooldownMs < 0 || c.BeatWindowMs <= 0 {
		return errBeatWindow
	}
	if c.BeatHalfLifeMs <= 0 {
		return errHalfLife
	}
	if c.IdleRateHz <= 0 {
		return errIdleRate
	}
	return nil
}
