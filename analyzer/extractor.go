package analyzer

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// Frame is the per-tick feature bundle handed to consumers. All float
// fields are in [0, 1]. It is a value type with no persistent identity.
type Frame struct {
	Bass   float64
	LowMid float64
	Mid    float64
	High   float64
	Energy float64

	BeatDetected  bool
	BeatIntensity float64
}

// Extractor computes a Frame from a SpectrumSource once per tick. An absent
// source is a valid state: Analyze then returns a synthetic slow-breathing
// idle signal so downstream rendering never looks dead.
type Extractor struct {
	cfg    Config
	source SpectrumSource

	raw  []byte
	norm []float64
	prev []float64

	bass   float64
	lowMid float64
	mid    float64
	high   float64
	energy float64

	observedMax float64

	beat          *beatDetector
	beatIntensity float64
	beatDecay     float64 // per-tick multiplier
	prevBass      float64

	idlePhase float64
}

// New creates an extractor with the given tuning.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Extractor{
		cfg:         cfg,
		observedMax: 1e-4,
		beat:        newBeatDetector(&cfg),
	}
	// Per-tick decay with the configured half-life.
	halfLifeTicks := cfg.BeatHalfLifeMs / 1000 * cfg.TickRate
	e.beatDecay = float64(approx.FastExp(float32(math.Ln2 * -1 / halfLifeTicks)))
	return e, nil
}

// NewDefault creates an extractor with DefaultConfig.
func NewDefault() *Extractor {
	e, err := New(DefaultConfig())
	if err != nil {
		panic(err) // DefaultConfig always validates
	}
	return e
}

// SetSource attaches or detaches (nil) the live spectrum source.
func (e *Extractor) SetSource(src SpectrumSource) {
	e.source = src
	if src == nil {
		return
	}
	bins := src.Bins()
	if len(e.raw) != bins {
		e.raw = make([]byte, bins)
		e.norm = make([]float64, bins)
		e.prev = make([]float64, bins)
	}
}

// Reset clears all smoothed state and beat history.
func (e *Extractor) Reset() {
	e.bass, e.lowMid, e.mid, e.high, e.energy = 0, 0, 0, 0, 0
	e.observedMax = 1e-4
	e.beatIntensity = 0
	e.prevBass = 0
	e.idlePhase = 0
	e.beat.reset()
	for i := range e.prev {
		e.prev[i] = 0
	}
}

// Analyze produces the next feature frame. Call once per render tick.
func (e *Extractor) Analyze() Frame {
	if e.source == nil {
		return e.idleFrame()
	}

	e.source.ReadSpectrum(e.raw)
	// Spectral flux: positive-only frame-to-frame deltas, normalized by
	// bin count. Used downstream as an onset-confirmation signal.
	flux := 0.0
	for i, b := range e.raw {
		v := float64(b) / 255.0
		if d := v - e.prev[i]; d > 0 {
			flux += d
		}
		e.norm[i] = v
	}
	copy(e.prev, e.norm)
	flux /= float64(len(e.norm))

	binHz := e.source.BinHz()
	rawBass := e.bandRMS(e.cfg.Bass, binHz)
	rawLowMid := e.bandRMS(e.cfg.LowMid, binHz)
	rawMid := e.bandRMS(e.cfg.Mid, binHz)
	rawHigh := e.bandRMS(e.cfg.High, binHz)

	e.bass = asymSmooth(e.bass, rawBass, e.cfg.BassAttack, e.cfg.BassRelease)
	e.lowMid = asymSmooth(e.lowMid, rawLowMid, e.cfg.UpperAttack, e.cfg.UpperRelease)
	e.mid = asymSmooth(e.mid, rawMid, e.cfg.UpperAttack, e.cfg.UpperRelease)
	e.high = asymSmooth(e.high, rawHigh, e.cfg.UpperAttack, e.cfg.UpperRelease)

	rawEnergy := rms(e.norm)
	e.energy = asymSmooth(e.energy, rawEnergy, e.cfg.EnergyAttack, e.cfg.EnergyRelease)

	// Auto-gain: normalize against a slowly decaying observed maximum so
	// quiet and loud sources land in the same range.
	e.observedMax *= e.cfg.AutoGainDecay
	if e.energy > e.observedMax {
		e.observedMax = e.energy
	}
	energy := clamp01(e.energy / e.observedMax)

	beat, excess := e.beat.Step(e.bass, flux)

	// Beat intensity decays exponentially and is floored by an
	// instantaneous bass-velocity term, so a hit stays visible even at
	// low overall energy.
	e.beatIntensity *= e.beatDecay
	if beat {
		e.beatIntensity = 0.6 + 0.4*excess
	}
	bassVel := e.bass - e.prevBass
	e.prevBass = e.bass
	if bassVel > 0 {
		vel := clamp01(bassVel * 4)
		e.beatIntensity += (1 - e.beatIntensity) * vel * 0.3
	}
	e.beatIntensity = clamp01(e.beatIntensity)

	return Frame{
		Bass:          clamp01(e.bass),
		LowMid:        clamp01(e.lowMid),
		Mid:           clamp01(e.mid),
		High:          clamp01(e.high),
		Energy:        energy,
		BeatDetected:  beat,
		BeatIntensity: e.beatIntensity,
	}
}

// bandRMS computes RMS (not arithmetic mean) over the band's bin range; RMS
// tracks perceived loudness better than a linear average.
func (e *Extractor) bandRMS(band BandRange, binHz float64) float64 {
	lo := int(band.LoHz / binHz)
	hi := int(band.HiHz / binHz)
	if lo < 0 {
		lo = 0
	}
	if hi > len(e.norm) {
		hi = len(e.norm)
	}
	if lo >= hi {
		return 0
	}
	var sum float64
	for i := lo; i < hi; i++ {
		sum += e.norm[i] * e.norm[i]
	}
	return math.Sqrt(sum / float64(hi-lo))
}

func (e *Extractor) idleFrame() Frame {
	e.idlePhase += 2 * math.Pi * e.cfg.IdleRateHz / e.cfg.TickRate
	if e.idlePhase >= 2*math.Pi {
		e.idlePhase -= 2 * math.Pi
	}
	breath := 0.5 + 0.5*math.Sin(e.idlePhase)
	return Frame{
		Bass:          0.10 + 0.08*breath,
		LowMid:        0.08 + 0.05*breath,
		Mid:           0.06 + 0.04*breath,
		High:          0.04 + 0.03*breath,
		Energy:        0.12 + 0.10*breath,
		BeatDetected:  false,
		BeatIntensity: 0.05 * breath,
	}
}

func asymSmooth(current, target, attack, release float64) float64 {
	if target > current {
		return current + (target-current)*attack
	}
	return current + (target-current)*release
}

func rms(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
