// Package perceptual maps linear 0-1 controls onto curves that keep every
// slider position inside a safe but expressive envelope. Every raw control in
// the system passes through one of these functions before it is used
// physically.
package perceptual

import "math"

// Zone breakpoints: input below ZoneSubtleIn compresses into the subtle
// range, the middle expands into the expressive range, and the top eases
// into the experimental range. Both adjoining formulas produce the exact
// boundary outputs, so the curve is continuous.
const (
	ZoneSubtleIn  = 0.4
	ZoneSubtleOut = 0.2
	ZoneExprIn    = 0.8
	ZoneExprOut   = 0.7
)

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

// MapToPerceptualZone maps a linear control to the three-segment perceptual
// curve. Monotonic non-decreasing with f(0)=0 and f(1)=1.
func MapToPerceptualZone(x float64) float64 {
	x = clamp01(x)
	switch {
	case x <= ZoneSubtleIn:
		t := x / ZoneSubtleIn
		return ZoneSubtleOut * smoothstep(t)
	case x <= ZoneExprIn:
		t := (x - ZoneSubtleIn) / (ZoneExprIn - ZoneSubtleIn)
		return ZoneSubtleOut + (ZoneExprOut-ZoneSubtleOut)*smoothstep(t)
	default:
		t := (x - ZoneExprIn) / (1 - ZoneExprIn)
		return ZoneExprOut + (1-ZoneExprOut)*smoothstep(t)
	}
}

// MapAudioReactivity applies a soft-knee compressor to an audio level.
// The level is scaled by the reactivity intensity, then a knee at 0.3
// attenuates quiet signal and compresses loud signal instead of clipping.
func MapAudioReactivity(level, intensity float64) float64 {
	level = clamp01(level)
	intensity = clamp01(intensity)

	const knee = 0.3
	scaled := level * (0.3 + 0.7*intensity)
	if scaled < knee {
		return scaled * scaled / knee
	}
	return clamp01(knee + (scaled-knee)*0.7)
}

// MapSpeed scales a base speed by a storm control with diminishing returns,
// so a single control cannot make motion runaway at high settings.
func MapSpeed(base, storm float64) float64 {
	return base * (0.4 + 0.6*math.Sqrt(clamp01(storm)))
}

// MapDensity scales a base density by a seafloor control with diminishing
// returns, mirroring MapSpeed for spatial density.
func MapDensity(base, seafloor float64) float64 {
	return base * (0.3 + 0.7*math.Sqrt(clamp01(seafloor)))
}
