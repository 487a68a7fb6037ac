package engine

import (
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/wearesublngual/vibe-weaver-10/analyzer"
)

// fakeSurface supports a configurable subset of formats.
type fakeSurface struct {
	w, h      int
	supported map[Format]bool
}

func (s *fakeSurface) Size() (int, int) { return s.w, s.h }

func (s *fakeSurface) Supports(f Format) bool { return s.supported[f] }

func allFormatsSurface(w, h int) *fakeSurface {
	return &fakeSurface{w: w, h: h, supported: map[Format]bool{
		FormatRGBA32F: true,
		FormatRGBA16F: true,
		FormatRGBA8:   true,
	}}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SimSize = 24 // keep the tests fast
	e := New(cfg)
	if err := e.Init(allFormatsSurface(64, 48)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return e
}

func TestEffectiveStrengthEnergyLayer(t *testing.T) {
	for bi := 0; bi <= 20; bi++ {
		base := float64(bi) / 20
		if got := EffectiveStrength(base, 0); got != base {
			t.Fatalf("EffectiveStrength(%v, 0) = %v, want base", base, got)
		}
		if got := EffectiveStrength(base, 1); got != 1 {
			t.Fatalf("EffectiveStrength(%v, 1) = %v, want 1", base, got)
		}
		prev := base
		for ei := 1; ei <= 20; ei++ {
			energy := float64(ei) / 20
			got := EffectiveStrength(base, energy)
			if got < base || got > 1 {
				t.Fatalf("EffectiveStrength(%v, %v) = %v, outside [base, 1]", base, energy, got)
			}
			if base < 1 && got <= prev {
				t.Fatalf("EffectiveStrength(%v, %v) = %v, not increasing past %v", base, energy, got, prev)
			}
			prev = got
		}
	}
}

func TestFormatNegotiationPrefersHighestTier(t *testing.T) {
	e := New(Config{SimSize: 8})
	if err := e.Init(allFormatsSurface(32, 32)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if e.Format() != FormatRGBA32F {
		t.Fatalf("negotiated %s on a full-capability surface, want rgba32f", e.Format())
	}
	e.Dispose()
}

func TestFormatNegotiationFallsBack(t *testing.T) {
	var logged []string
	cfg := Config{SimSize: 8, Logf: func(format string, args ...any) {
		logged = append(logged, format)
	}}
	e := New(cfg)
	s := &fakeSurface{w: 32, h: 32, supported: map[Format]bool{FormatRGBA8: true}}
	if err := e.Init(s); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if e.Format() != FormatRGBA8 {
		t.Fatalf("negotiated %s, want rgba8", e.Format())
	}
	if len(logged) == 0 {
		t.Fatalf("fallback chain produced no log output")
	}
	e.Dispose()
}

func TestFormatNegotiationExhaustedIsError(t *testing.T) {
	e := New(Config{SimSize: 8})
	s := &fakeSurface{w: 32, h: 32, supported: map[Format]bool{}}
	err := e.Init(s)
	if err == nil {
		t.Fatalf("Init succeeded with no supported formats")
	}
	for _, name := range []string{"rgba32f", "rgba16f", "rgba8"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error %q does not name tried format %s", err, name)
		}
	}
}

func TestInitRejectsBadSurface(t *testing.T) {
	if err := New(Config{}).Init(nil); err == nil {
		t.Fatalf("Init accepted a nil surface")
	}
	if err := New(Config{}).Init(allFormatsSurface(0, 10)); err == nil {
		t.Fatalf("Init accepted a zero-width surface")
	}
}

func TestSameSeedIsDeterministic(t *testing.T) {
	run := func() []uint8 {
		e := newTestEngine(t)
		defer e.Dispose()
		e.SetSeed("SR-0A1B2C3D4E5F607182")

		params := NewDefaultVisualizerParams()
		frame := analyzer.Frame{Bass: 0.4, LowMid: 0.3, Mid: 0.25, High: 0.2, Energy: 0.5, BeatIntensity: 0.3}
		for i := 0; i < 30; i++ {
			e.Update(frame, params, 1.0/60)
		}
		img := e.Render()
		out := make([]uint8, len(img.Pix))
		copy(out, img.Pix)
		return out
	}

	a := run()
	b := run()
	if len(a) != len(b) {
		t.Fatalf("frame sizes differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("frames diverge at byte %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestSeedCaseAndWhitespaceInsensitive(t *testing.T) {
	e1 := newTestEngine(t)
	defer e1.Dispose()
	e2 := newTestEngine(t)
	defer e2.Dispose()

	e1.SetSeed("SR-0a1b2c3d4e5f607182")
	e2.SetSeed("  SR-0A1B2C3D4E5F607182  ")

	w, h := e1.State().Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p1, c1, _, _ := e1.State().At(x, y)
			p2, c2, _, _ := e2.State().At(x, y)
			if p1 != p2 || c1 != c2 {
				t.Fatalf("seed normalization failed at (%d,%d)", x, y)
			}
		}
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	e1 := newTestEngine(t)
	defer e1.Dispose()
	e2 := newTestEngine(t)
	defer e2.Dispose()

	e1.SetSeed("SR-000000000000000001")
	e2.SetSeed("SR-000000000000000002")

	w, h := e1.State().Size()
	same := 0
	total := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p1, _, _, _ := e1.State().At(x, y)
			p2, _, _, _ := e2.State().At(x, y)
			if p1 == p2 {
				same++
			}
			total++
		}
	}
	if same > total/10 {
		t.Fatalf("different seeds share %d/%d identical phases", same, total)
	}
}

func TestUpdateClampsDeltaTime(t *testing.T) {
	frame := analyzer.Frame{Energy: 0.7, BeatIntensity: 0.5}
	params := NewDefaultVisualizerParams()

	run := func(dt float64) []float64 {
		e := newTestEngine(t)
		defer e.Dispose()
		e.SetSeed("SR-000000000000000042")
		e.Update(frame, params, dt)
		w, h := e.State().Size()
		out := make([]float64, 0, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p, _, _, _ := e.State().At(x, y)
				out = append(out, p)
			}
		}
		return out
	}

	huge := run(10) // a stalled frame
	clamped := run(MaxDeltaTime)
	for i := range huge {
		if huge[i] != clamped[i] {
			t.Fatalf("dt=10 and dt=MaxDeltaTime diverge at cell %d: %v vs %v", i, huge[i], clamped[i])
		}
	}

	// Negative dt clamps to zero: state holds except for noise coupling.
	e := newTestEngine(t)
	defer e.Dispose()
	e.SetSeed("SR-000000000000000042")
	p0, _, _, _ := e.State().At(5, 5)
	e.Update(frame, params, -3)
	p1, _, _, _ := e.State().At(5, 5)
	if p0 != p1 {
		t.Fatalf("negative dt advanced phase: %v -> %v", p0, p1)
	}
}

func TestStateStaysNormalized(t *testing.T) {
	e := newTestEngine(t)
	defer e.Dispose()
	e.SetSeed("SR-FFFFFFFFFFFFFFFFFF")

	params := VisualizerParams{Dose: 1, Symmetry: 1, Recursion: 1, Breathing: 1, Flow: 1, Saturation: 1}
	frame := analyzer.Frame{Bass: 1, LowMid: 1, Mid: 1, High: 1, Energy: 1, BeatDetected: true, BeatIntensity: 1}
	for i := 0; i < 300; i++ {
		e.Update(frame, params, 1.0/60)
	}

	w, h := e.State().Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p, c, en, bt := e.State().At(x, y)
			for name, v := range map[string]float64{"phase": p, "coupling": c, "energy": en, "beat": bt} {
				if v < 0 || v > 1 || math.IsNaN(v) {
					t.Fatalf("%s at (%d,%d) = %v, outside [0,1]", name, x, y, v)
				}
			}
		}
	}
}

func TestRenderWithAndWithoutSubstrate(t *testing.T) {
	e := newTestEngine(t)
	defer e.Dispose()
	e.SetSeed("SR-0102030405060708FF")

	frame := analyzer.Frame{Bass: 0.5, Energy: 0.6, BeatIntensity: 0.4}
	params := NewDefaultVisualizerParams()
	for i := 0; i < 10; i++ {
		e.Update(frame, params, 1.0/60)
	}

	bare := e.Render()
	if bare.Bounds().Dx() != 64 || bare.Bounds().Dy() != 48 {
		t.Fatalf("frame bounds %v, want 64x48", bare.Bounds())
	}
	sum := 0
	for _, v := range bare.Pix {
		sum += int(v)
	}
	if sum == 0 {
		t.Fatalf("simulation-only render is all black")
	}

	// Attach a solid red substrate; the output must shift toward it.
	sub := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			sub.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	e.SetImage(sub)
	tinted := e.Render()
	var r, g int
	for i := 0; i < len(tinted.Pix); i += 4 {
		r += int(tinted.Pix[i])
		g += int(tinted.Pix[i+1])
	}
	if r <= g {
		t.Fatalf("red substrate did not tint the frame: r=%d g=%d", r, g)
	}

	// Detaching restores the simulation-only render path.
	e.SetImage(nil)
	if img := e.Render(); img == nil {
		t.Fatalf("render failed after substrate detach")
	}
}

func TestStateBufferWrapsToroidally(t *testing.T) {
	b := NewStateBuffer(8, 8, FormatRGBA32F)
	b.Set(0, 0, 0.5, 0.25, 0.75, 1)
	p1, c1, e1, beat1 := b.At(0, 0)
	p2, c2, e2, beat2 := b.At(8, 8)
	p3, _, _, _ := b.At(-8, -8)
	if p1 != p2 || c1 != c2 || e1 != e2 || beat1 != beat2 {
		t.Fatalf("At(8,8) does not wrap to At(0,0)")
	}
	if p1 != p3 {
		t.Fatalf("At(-8,-8) does not wrap to At(0,0)")
	}
}

func TestQuantizationTiers(t *testing.T) {
	const v = 0.123456789
	b8 := NewStateBuffer(1, 1, FormatRGBA8)
	b8.Set(0, 0, v, v, v, v)
	got, _, _, _ := b8.At(0, 0)
	want := math.Round(v*255) / 255
	if got != want {
		t.Fatalf("rgba8 stored %v, want %v", got, want)
	}

	b32 := NewStateBuffer(1, 1, FormatRGBA32F)
	b32.Set(0, 0, v, v, v, v)
	got32, _, _, _ := b32.At(0, 0)
	if math.Abs(got32-v) > 1e-7 {
		t.Fatalf("rgba32f stored %v, want ~%v", got32, v)
	}

	b16 := NewStateBuffer(1, 1, FormatRGBA16F)
	b16.Set(0, 0, v, v, v, v)
	got16, _, _, _ := b16.At(0, 0)
	if math.Abs(got16-v) > 1e-3 {
		t.Fatalf("rgba16f stored %v, too far from %v", got16, v)
	}

	// Out-of-range values clamp at every tier.
	b8.Set(0, 0, -1, 2, 0, 1)
	p, c, _, _ := b8.At(0, 0)
	if p != 0 || c != 1 {
		t.Fatalf("rgba8 clamp failed: %v, %v", p, c)
	}

	// Subnormal values flush to zero in the half tier. Beat and energy decay
	// multiplicatively and never hit exact zero, so tiny residues are a
	// normal long-run state and must not round to NaN.
	for _, tiny := range []float64{1e-310, 5e-315, 0x1p-25, 1e-20} {
		b16.Set(0, 0, tiny, tiny, tiny, tiny)
		gotTiny, _, _, _ := b16.At(0, 0)
		if math.IsNaN(gotTiny) {
			t.Fatalf("rgba16f quantize(%v) = NaN", tiny)
		}
		if gotTiny != 0 {
			t.Fatalf("rgba16f quantize(%v) = %v, want 0", tiny, gotTiny)
		}
	}
	// The smallest half subnormal itself still round-trips nonzero.
	b16.Set(0, 0, 0x1p-24, 0, 0, 0)
	gotMin, _, _, _ := b16.At(0, 0)
	if gotMin == 0 || math.IsNaN(gotMin) {
		t.Fatalf("rgba16f quantize(2^-24) = %v, want nonzero finite", gotMin)
	}
}

func TestUpdateBeforeInitPanics(t *testing.T) {
	e := New(Config{})
	defer func() {
		if recover() == nil {
			t.Fatalf("Update before Init did not panic")
		}
	}()
	e.Update(analyzer.Frame{}, VisualizerParams{}, 1.0/60)
}

func TestUseAfterDisposePanics(t *testing.T) {
	e := newTestEngine(t)
	e.Dispose()
	e.Dispose() // idempotent

	defer func() {
		if recover() == nil {
			t.Fatalf("Render after Dispose did not panic")
		}
	}()
	e.Render()
}
