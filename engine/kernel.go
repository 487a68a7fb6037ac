package engine

import (
	"image"
	"math"

	"github.com/wearesublngual/vibe-weaver-10/analyzer"
	"github.com/wearesublngual/vibe-weaver-10/noise"
)

// UpdateKernel advances one simulation step: given the current state
// buffer, the noise field, audio features, and mapped params, it writes the
// next state buffer. Concrete backends (CPU reference, compute shader,
// fragment shader) can vary behind this interface without touching the
// surrounding engine logic.
type UpdateKernel interface {
	Step(dst, src *StateBuffer, field *noise.Field, frame analyzer.Frame, p MappedParams, dt float64)
}

// RenderKernel draws a color frame from the current state and an optional
// substrate image.
type RenderKernel interface {
	Draw(dst *image.RGBA, src *StateBuffer, substrate *image.RGBA, frame analyzer.Frame, p MappedParams, t float64)
}

// Simulation tuning. CouplingGain times the maximum delta-time must stay
// inside the explicit stability bound for the periodic-grid coupling term;
// see the stability test.
const (
	CouplingGain = 2.0
	// MaxDeltaTime clamps the step fed to the update kernel so a stalled
	// frame cannot inject a destabilizing large step. Seconds.
	MaxDeltaTime = 0.05

	baseRateHz    = 0.08 // phase revolutions per second at Speed=1, noise=0
	energyDecay   = 0.6  // accumulated-energy decay per second
	beatDecayRate = 4.0  // beat channel decay per second
)

// cpuUpdateKernel is the reference backend.
type cpuUpdateKernel struct{}

func (cpuUpdateKernel) Step(dst, src *StateBuffer, field *noise.Field, frame analyzer.Frame, p MappedParams, dt float64) {
	w, h := src.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			phase, coupling, energy, beat := src.At(x, y)
			n := field.At(x, y)

			// Neighbor pull, Kuramoto style: sin of the phase
			// difference to each 4-neighbor, averaged. Working on
			// normalized phase, so differences are scaled by 2π
			// inside the sin.
			var pull float64
			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				np, _, _, _ := src.At(x+d[0], y+d[1])
				pull += math.Sin(2 * math.Pi * (np - phase))
			}
			pull /= 4

			// Coupling relaxes toward a flow-and-noise driven target.
			couplingTarget := 0.25 + 0.5*p.Flow + 0.2*n
			coupling += (couplingTarget - coupling) * math.Min(1, dt*2)

			omega := baseRateHz * p.Speed * (0.6 + 0.4*n)
			kick := 0.15 * frame.BeatIntensity * p.Recursion
			phase += dt * (omega + CouplingGain*coupling*pull/(2*math.Pi) + kick)
			phase -= math.Floor(phase) // wrap to [0, 1)

			energy *= math.Exp(-energyDecay * dt)
			energy += frame.Energy * dt * 0.8
			if energy > 1 {
				energy = 1
			}

			beat *= math.Exp(-beatDecayRate * dt)
			if frame.BeatIntensity > beat {
				beat = frame.BeatIntensity
			}

			dst.Set(x, y, phase, coupling, energy, beat)
		}
	}
}

// cpuRenderKernel is the reference color pass: a chain of coordinate
// transforms gated by effective strength, then saturation/hue staging,
// beat flash, and a center-weighted vignette.
type cpuRenderKernel struct{}

func (cpuRenderKernel) Draw(dst *image.RGBA, src *StateBuffer, substrate *image.RGBA, frame analyzer.Frame, p MappedParams, t float64) {
	bounds := dst.Bounds()
	outW := bounds.Dx()
	outH := bounds.Dy()
	simW, simH := src.Size()

	for py := 0; py < outH; py++ {
		// Centered coordinates in [-1, 1], aspect preserved on y.
		v := 2*float64(py)/float64(outH) - 1
		for px := 0; px < outW; px++ {
			u := 2*float64(px)/float64(outW) - 1

			r := math.Hypot(u, v)
			theta := math.Atan2(v, u)

			// Log-polar tunnel warp.
			if p.Recursion > 0.001 {
				lr := math.Log(r + 1e-3)
				lr -= t * 0.25 * p.Recursion
				r = (1-p.Recursion)*r + p.Recursion*math.Abs(math.Mod(lr, 1.2))
			}

			// Kaleidoscopic angular fold.
			if p.Symmetry > 0.001 {
				folds := 2 + int(p.Symmetry*6)
				sector := 2 * math.Pi / float64(folds)
				theta = math.Mod(math.Mod(theta, sector)+sector, sector)
				if theta > sector/2 {
					theta = sector - theta
				}
			}

			// Radial pulse tied to the bass feature.
			r *= 1 - 0.25*p.Breathing*frame.Bass

			// Noise-driven directional displacement.
			su := 0.5 + 0.5*r*math.Cos(theta)
			sv := 0.5 + 0.5*r*math.Sin(theta)
			if p.Flow > 0.001 {
				cellX := int(su * float64(simW))
				cellY := int(sv * float64(simH))
				_, coupling, _, _ := src.At(cellX, cellY)
				drift := 0.08 * p.Flow * coupling
				su += drift * math.Cos(theta+math.Pi/2)
				sv += drift * math.Sin(theta+math.Pi/2)
			}

			su -= math.Floor(su)
			sv -= math.Floor(sv)

			cellX := int(su * float64(simW))
			cellY := int(sv * float64(simH))
			phase, _, energy, beat := src.At(cellX, cellY)

			var cr, cg, cb float64
			if substrate != nil {
				sw := substrate.Bounds().Dx()
				sh := substrate.Bounds().Dy()
				c := substrate.RGBAAt(substrate.Bounds().Min.X+int(su*float64(sw)), substrate.Bounds().Min.Y+int(sv*float64(sh)))
				cr = float64(c.R) / 255
				cg = float64(c.G) / 255
				cb = float64(c.B) / 255
			} else {
				// Simulation-only render: hue from phase, value
				// from accumulated energy.
				cr, cg, cb = hsv(phase, 1, 0.25+0.75*energy)
			}

			// Staged saturation/hue treatment.
			cr, cg, cb = regrade(cr, cg, cb, phase, p.Saturation, energy)

			// Beat-triggered flash.
			flash := 0.35 * beat * frame.BeatIntensity
			cr += (1 - cr) * flash
			cg += (1 - cg) * flash
			cb += (1 - cb) * flash

			// Center-weighted vignette.
			vig := 1 - 0.45*r*r
			if vig < 0 {
				vig = 0
			}
			cr *= vig
			cg *= vig
			cb *= vig

			i := dst.PixOffset(bounds.Min.X+px, bounds.Min.Y+py)
			dst.Pix[i] = toByte(cr)
			dst.Pix[i+1] = toByte(cg)
			dst.Pix[i+2] = toByte(cb)
			dst.Pix[i+3] = 255
		}
	}
}

// regrade desaturates or enriches the sampled color and rotates hue with
// the cell phase.
func regrade(r, g, b, phase, saturation, energy float64) (float64, float64, float64) {
	gray := 0.299*r + 0.587*g + 0.114*b
	sat := 0.3 + 0.7*saturation
	r = gray + (r-gray)*sat
	g = gray + (g-gray)*sat
	b = gray + (b-gray)*sat

	// Hue rotation strength rises with saturation and energy.
	hr, hg, hb := hsv(phase, saturation, 0.5+0.5*energy)
	mix := 0.25 * saturation
	return r + (hr-r)*mix, g + (hg-g)*mix, b + (hb-b)*mix
}

// hsv converts hue (as a 0-1 turn), saturation, and value to RGB.
func hsv(h, s, v float64) (float64, float64, float64) {
	h -= math.Floor(h)
	h *= 6
	i := int(h)
	f := h - float64(i)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch i % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

func toByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
