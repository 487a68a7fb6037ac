package engine

import (
	"github.com/wearesublngual/vibe-weaver-10/analyzer"
	"github.com/wearesublngual/vibe-weaver-10/perceptual"
)

// EffectiveStrength implements the energy-layer model: audio pushes an
// effect from its user-set base toward, but never past, the 1.0 ceiling,
// and never below the base. effective(0) = base, effective(1) = 1.
func EffectiveStrength(base, energy float64) float64 {
	return base + energy*(1-base)
}

// MappedParams holds the per-tick effective strengths after perceptual
// mapping and the energy layer.
type MappedParams struct {
	Symmetry   float64
	Recursion  float64
	Breathing  float64
	Flow       float64
	Saturation float64
	Speed      float64
}

// mapParams runs every raw control through the perceptual curves, applies
// the dose master gain, then layers the audio-driven contribution on top.
// Each effect listens to the feature that reads most naturally for it.
func mapParams(p VisualizerParams, f analyzer.Frame) MappedParams {
	p = p.Clamp()
	dose := perceptual.MapToPerceptualZone(p.Dose)

	base := func(x float64) float64 {
		return perceptual.MapToPerceptualZone(x) * dose
	}
	react := func(level float64) float64 {
		return perceptual.MapAudioReactivity(level, dose)
	}

	return MappedParams{
		Symmetry:   EffectiveStrength(base(p.Symmetry), react(f.LowMid)),
		Recursion:  EffectiveStrength(base(p.Recursion), react(f.Energy)),
		Breathing:  EffectiveStrength(base(p.Breathing), react(f.Bass)),
		Flow:       EffectiveStrength(base(p.Flow), react(f.Mid)),
		Saturation: EffectiveStrength(base(p.Saturation), react(f.High)),
		Speed:      perceptual.MapSpeed(0.5+0.5*dose, f.Energy),
	}
}
