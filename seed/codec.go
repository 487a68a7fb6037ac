// Package seed serializes the full control-parameter set into a fixed-format
// shareable string and back. Encoding quantizes each control to one byte, so
// a round trip is lossy by up to 1/255 per component; this is accepted, not
// a defect.
package seed

import (
	"fmt"
	"math"
	"strings"

	"github.com/wearesublngual/vibe-weaver-10/engine"
	"github.com/wearesublngual/vibe-weaver-10/fxchain"
)

// Prefix starts every seed string.
const Prefix = "SR-"

// byte count: 6 visual controls + 3 effect controls.
const payloadBytes = 9

func quantize(x float64) byte {
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}
	q := math.Round(x * 255)
	if q < 0 {
		q = 0
	}
	if q > 255 {
		q = 255
	}
	return byte(q)
}

// Encode renders the nine control values as SR- plus 18 uppercase hex
// characters, in the fixed order dose, symmetry, recursion, breathing, flow,
// saturation, echo, drift, break.
func Encode(v engine.VisualizerParams, a fxchain.Params) string {
	payload := [payloadBytes]byte{
		quantize(v.Dose),
		quantize(v.Symmetry),
		quantize(v.Recursion),
		quantize(v.Breathing),
		quantize(v.Flow),
		quantize(v.Saturation),
		quantize(a.Echo),
		quantize(a.Drift),
		quantize(a.Break),
	}
	var b strings.Builder
	b.WriteString(Prefix)
	for _, p := range payload {
		fmt.Fprintf(&b, "%02X", p)
	}
	return b.String()
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

func parsePayload(s string) ([payloadBytes]byte, bool) {
	var out [payloadBytes]byte
	if !strings.HasPrefix(s, Prefix) {
		return out, false
	}
	body := s[len(Prefix):]
	if len(body) != payloadBytes*2 {
		return out, false
	}
	for i := 0; i < payloadBytes; i++ {
		hi, ok1 := hexNibble(body[i*2])
		lo, ok2 := hexNibble(body[i*2+1])
		if !ok1 || !ok2 {
			return out, false
		}
		out[i] = hi<<4 | lo
	}
	return out, true
}

// IsValid reports whether s is a well-formed seed string. Hex digits are
// accepted in either case.
func IsValid(s string) bool {
	_, ok := parsePayload(s)
	return ok
}

// Decode reconstructs the control values from a seed string. A malformed
// seed returns ok=false, never an error or panic, so a bad paste cannot
// interrupt the render loop.
func Decode(s string) (engine.VisualizerParams, fxchain.Params, bool) {
	payload, ok := parsePayload(s)
	if !ok {
		return engine.VisualizerParams{}, fxchain.Params{}, false
	}
	f := func(i int) float64 { return float64(payload[i]) / 255.0 }
	v := engine.VisualizerParams{
		Dose:       f(0),
		Symmetry:   f(1),
		Recursion:  f(2),
		Breathing:  f(3),
		Flow:       f(4),
		Saturation: f(5),
	}
	a := fxchain.Params{
		Echo:  f(6),
		Drift: f(7),
		Break: f(8),
	}
	return v, a, true
}

// Normalize returns the canonical uppercase form of a valid seed, or the
// input unchanged when invalid.
func Normalize(s string) string {
	if !IsValid(s) {
		return s
	}
	return Prefix + strings.ToUpper(s[len(Prefix):])
}
