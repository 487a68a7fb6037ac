package engine

// VisualizerParams holds the six user-facing visual controls, all in [0, 1].
// Dose is a master gain multiplying the effect of the other five.
type VisualizerParams struct {
	Dose       float64
	Symmetry   float64
	Recursion  float64
	Breathing  float64
	Flow       float64
	Saturation float64
}

// NewDefaultVisualizerParams creates a mid-range starting point.
func NewDefaultVisualizerParams() VisualizerParams {
	return VisualizerParams{
		Dose:       0.5,
		Symmetry:   0.3,
		Recursion:  0.25,
		Breathing:  0.4,
		Flow:       0.35,
		Saturation: 0.5,
	}
}

// Clamp returns a copy with every control clamped to [0, 1].
func (p VisualizerParams) Clamp() VisualizerParams {
	p.Dose = clamp01(p.Dose)
	p.Symmetry = clamp01(p.Symmetry)
	p.Recursion = clamp01(p.Recursion)
	p.Breathing = clamp01(p.Breathing)
	p.Flow = clamp01(p.Flow)
	p.Saturation = clamp01(p.Saturation)
	return p
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
