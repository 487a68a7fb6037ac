package analyzer

import "math"

// beatDetector keeps a rolling window of bass-band history and fires when
// four independent conditions line up: statistical outlier, rising edge,
// onset-confirming flux, and an elapsed cooldown. The four-way AND avoids
// false positives on sustained loud passages and missed beats on quiet
// tracks.
type beatDetector struct {
	history  []float64
	pos      int
	filled   int
	prevBass float64

	cooldownTicks int
	cooldownLeft  int

	sigmaMult  float64
	riseFactor float64
	fluxFloor  float64
}

func newBeatDetector(cfg *Config) *beatDetector {
	windowTicks := int(cfg.BeatWindowMs / 1000 * cfg.TickRate)
	if windowTicks < 4 {
		windowTicks = 4
	}
	cooldown := int(cfg.BeatCooldownMs / 1000 * cfg.TickRate)
	if cooldown < 1 {
		cooldown = 1
	}
	return &beatDetector{
		history:       make([]float64, windowTicks),
		cooldownTicks: cooldown,
		sigmaMult:     cfg.BeatSigmaMult,
		riseFactor:    cfg.BeatRiseFactor,
		fluxFloor:     cfg.BeatFluxFloor,
	}
}

// Step consumes one tick of bass energy and spectral flux. It returns
// whether a beat fired and how far above the adaptive threshold the bass
// landed (0 when no beat).
func (b *beatDetector) Step(bass, flux float64) (bool, float64) {
	prev := b.prevBass
	b.prevBass = bass

	mean, stddev := b.stats()
	b.push(bass)

	if b.cooldownLeft > 0 {
		b.cooldownLeft--
		return false, 0
	}
	// Need enough history for the statistics to mean anything.
	if b.filled < len(b.history)/2 {
		return false, 0
	}

	threshold := mean + b.sigmaMult*stddev
	rising := prev <= 0 || bass > prev*b.riseFactor
	if bass <= threshold || !rising || flux <= b.fluxFloor {
		return false, 0
	}

	b.cooldownLeft = b.cooldownTicks
	excess := bass - threshold
	if stddev > 1e-9 {
		excess /= b.sigmaMult * stddev
	}
	if excess > 1 {
		excess = 1
	}
	return true, excess
}

func (b *beatDetector) push(v float64) {
	b.history[b.pos] = v
	b.pos = (b.pos + 1) % len(b.history)
	if b.filled < len(b.history) {
		b.filled++
	}
}

func (b *beatDetector) stats() (mean, stddev float64) {
	if b.filled == 0 {
		return 0, 0
	}
	for i := 0; i < b.filled; i++ {
		mean += b.history[i]
	}
	mean /= float64(b.filled)
	var sq float64
	for i := 0; i < b.filled; i++ {
		d := b.history[i] - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(b.filled))
}

func (b *beatDetector) reset() {
	for i := range b.history {
		b.history[i] = 0
	}
	b.pos = 0
	b.filled = 0
	b.prevBass = 0
	b.cooldownLeft = 0
}
