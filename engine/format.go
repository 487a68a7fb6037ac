package engine

import "math"

// Format is a state-buffer precision tier. Init negotiates the highest tier
// the surface supports, falling back one step at a time.
type Format int

const (
	// FormatRGBA32F stores full float32 per channel.
	FormatRGBA32F Format = iota
	// FormatRGBA16F stores half-precision floats.
	FormatRGBA16F
	// FormatRGBA8 stores 8-bit normalized values; the minimum viable tier.
	FormatRGBA8
)

func (f Format) String() string {
	switch f {
	case FormatRGBA32F:
		return "rgba32f"
	case FormatRGBA16F:
		return "rgba16f"
	default:
		return "rgba8"
	}
}

// negotiationOrder lists formats from most to least preferred.
var negotiationOrder = []Format{FormatRGBA32F, FormatRGBA16F, FormatRGBA8}

// quantize stores v at the format's precision. All state channels are kept
// normalized to [0, 1], which is what makes the 8-bit tier viable at all.
func (f Format) quantize(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	switch f {
	case FormatRGBA32F:
		return float64(float32(v))
	case FormatRGBA16F:
		return roundHalf(v)
	default:
		return math.Round(v*255) / 255
	}
}

// roundHalf rounds a value to IEEE half-precision spacing. For normalized
// state this reduces the mantissa to 10 bits. Values below half's smallest
// subnormal flush to zero; without that the scale below overflows and the
// division produces NaN.
func roundHalf(v float64) float64 {
	if v < 0x1p-24 {
		return 0
	}
	exp := math.Floor(math.Log2(v))
	scale := math.Exp2(10 - exp)
	return math.Round(v*scale) / scale
}
