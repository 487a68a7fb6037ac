// Package engine owns the GPU-style double-buffered simulation state and
// produces rendered frames each tick. The concrete kernels sit behind
// capability interfaces; this build ships the CPU reference backend.
package engine

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/draw"
	"strings"

	"github.com/wearesublngual/vibe-weaver-10/analyzer"
	"github.com/wearesublngual/vibe-weaver-10/noise"
)

// Surface is the renderable target a host supplies to Init. Supports
// reports whether a state-buffer format can be created on this device.
type Surface interface {
	Size() (width, height int)
	Supports(f Format) bool
}

// Config holds engine tuning. Zero values fall back to defaults.
type Config struct {
	// SimSize is the simulation grid edge length in cells.
	SimSize int
	// NoiseScale is the spatial frequency of the noise field.
	NoiseScale float64
	// NoiseRefreshTicks is how many ticks pass between noise-field
	// regenerations.
	NoiseRefreshTicks int
	// Logf receives capability-fallback notices. Nil silences them.
	Logf func(format string, args ...any)
}

// DefaultConfig returns the production engine tuning.
func DefaultConfig() Config {
	return Config{
		SimSize:           96,
		NoiseScale:        4.0,
		NoiseRefreshTicks: 3,
	}
}

// Engine drives the ping-pong simulation state and the render pass.
type Engine struct {
	cfg Config

	surface Surface
	format  Format

	// Ping-pong state: exactly one buffer is current at any time.
	current *StateBuffer
	next    *StateBuffer

	gen   *noise.Generator
	field *noise.Field

	substrate *image.RGBA
	frameImg  *image.RGBA

	update UpdateKernel
	render RenderKernel

	seed         string
	time         float64
	ticksToNoise int

	lastFrame  analyzer.Frame
	lastParams MappedParams

	initialized bool
	disposed    bool
}

// New creates an engine; Init must be called before the first tick.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.SimSize <= 0 {
		cfg.SimSize = def.SimSize
	}
	if cfg.NoiseScale <= 0 {
		cfg.NoiseScale = def.NoiseScale
	}
	if cfg.NoiseRefreshTicks <= 0 {
		cfg.NoiseRefreshTicks = def.NoiseRefreshTicks
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) logf(format string, args ...any) {
	if e.cfg.Logf != nil {
		e.cfg.Logf(format, args...)
	}
}

// Init negotiates a state-buffer format on the surface and allocates all
// GPU-side resources. Only a fully exhausted fallback chain is an error.
func (e *Engine) Init(surface Surface) error {
	if surface == nil {
		return fmt.Errorf("engine: nil surface")
	}
	if e.initialized {
		return fmt.Errorf("engine: already initialized")
	}

	chosen := Format(-1)
	for _, f := range negotiationOrder {
		if surface.Supports(f) {
			chosen = f
			break
		}
		e.logf("engine: format %s unavailable, falling back", f)
	}
	if chosen < 0 {
		var names []string
		for _, f := range negotiationOrder {
			names = append(names, f.String())
		}
		return fmt.Errorf("engine: no supported state buffer format (tried %s)", strings.Join(names, ", "))
	}
	if chosen != negotiationOrder[0] {
		e.logf("engine: using %s state buffers", chosen)
	}

	w, h := surface.Size()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("engine: surface size must be positive: %dx%d", w, h)
	}

	e.surface = surface
	e.format = chosen
	e.current = NewStateBuffer(e.cfg.SimSize, e.cfg.SimSize, chosen)
	e.next = NewStateBuffer(e.cfg.SimSize, e.cfg.SimSize, chosen)

	e.gen = noise.NewGenerator(1)
	e.field = noise.NewField(e.gen, e.cfg.SimSize, e.cfg.SimSize, e.cfg.NoiseScale)

	e.frameImg = image.NewRGBA(image.Rect(0, 0, w, h))
	e.update = cpuUpdateKernel{}
	e.render = cpuRenderKernel{}

	e.initialized = true
	e.seedState(1)
	return nil
}

// Format returns the negotiated state-buffer format.
func (e *Engine) Format() Format {
	return e.format
}

// SetSeed reseeds the noise generator and deterministically reinitializes
// the state buffers from the seed's derived hash. The same seed always
// produces the same initial field.
func (e *Engine) SetSeed(seed string) {
	e.mustLive("SetSeed")
	e.seed = seed
	e.seedState(hashSeed(seed))
}

// Seed returns the last seed string passed to SetSeed.
func (e *Engine) Seed() string {
	return e.seed
}

func hashSeed(seed string) int64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(strings.TrimSpace(seed))))
	return int64(h.Sum64())
}

func (e *Engine) seedState(numeric int64) {
	e.gen = noise.NewGenerator(numeric)
	e.field.Reseed(e.gen)
	e.time = 0
	e.ticksToNoise = 0

	w, h := e.current.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			nx := 4 * float64(x) / float64(w)
			ny := 4 * float64(y) / float64(h)
			phase := 0.5 + 0.5*e.gen.At(nx, ny, 0)
			phase -= float64(int(phase)) // keep in [0, 1)
			coupling := 0.4 + 0.2*e.gen.At(nx, ny, 7.3)
			e.current.Set(x, y, phase, coupling, 0, 0)
			e.next.Set(x, y, 0, 0, 0, 0)
		}
	}
}

// SetImage attaches an optional substrate texture for the render pass, or
// detaches it when img is nil. A missing substrate is a valid state: the
// render falls back to simulation-only coloring.
func (e *Engine) SetImage(img image.Image) {
	e.mustLive("SetImage")
	if img == nil {
		e.substrate = nil
		return
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	e.substrate = rgba
}

// Update advances the simulation one tick. Delta-time is clamped before it
// reaches the kernel so a stalled frame cannot destabilize the state.
func (e *Engine) Update(frame analyzer.Frame, params VisualizerParams, dt float64) {
	e.mustLive("Update")
	if dt < 0 {
		dt = 0
	}
	if dt > MaxDeltaTime {
		dt = MaxDeltaTime
	}
	e.time += dt

	// Regenerating the noise field every tick is wasted work; advance it
	// only every few ticks, with the accumulated step.
	if e.ticksToNoise <= 0 {
		e.field.Advance(dt * float64(e.cfg.NoiseRefreshTicks))
		e.ticksToNoise = e.cfg.NoiseRefreshTicks
	}
	e.ticksToNoise--

	mapped := mapParams(params, frame)
	e.update.Step(e.next, e.current, e.field, frame, mapped, dt)
	e.current, e.next = e.next, e.current

	e.lastFrame = frame
	e.lastParams = mapped
}

// Render draws the current state into the frame image and returns it. The
// returned image is reused between calls.
func (e *Engine) Render() *image.RGBA {
	e.mustLive("Render")
	e.render.Draw(e.frameImg, e.current, e.substrate, e.lastFrame, e.lastParams, e.time)
	return e.frameImg
}

// State exposes the current state buffer for inspection and tests.
func (e *Engine) State() *StateBuffer {
	return e.current
}

// Dispose releases both state buffers, the noise field, any substrate
// texture, and the kernels, in that order. The surface may be reclaimed by
// the host afterwards.
func (e *Engine) Dispose() {
	if e.disposed || !e.initialized {
		e.disposed = true
		return
	}
	e.current.release()
	e.next.release()
	e.current = nil
	e.next = nil
	e.field = nil
	e.substrate = nil
	e.update = nil
	e.render = nil
	e.frameImg = nil
	e.surface = nil
	e.disposed = true
}

func (e *Engine) mustLive(op string) {
	if !e.initialized {
		panic("engine: " + op + " called before Init")
	}
	if e.disposed {
		panic("engine: " + op + " called after Dispose")
	}
}
