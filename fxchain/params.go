package fxchain

// Params holds the three user-facing effect controls, all in [0, 1].
// These are targets only; the chain keeps its own smoothed copy that
// converges toward them a little each Update.
type Params struct {
	Echo  float64
	Drift float64
	Break float64
}

// NewDefaultParams creates an all-dry starting point.
func NewDefaultParams() Params {
	return Params{}
}

// Clamp returns a copy with every control clamped to [0, 1].
func (p Params) Clamp() Params {
	p.Echo = clamp01(p.Echo)
	p.Drift = clamp01(p.Drift)
	p.Break = clamp01(p.Break)
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
