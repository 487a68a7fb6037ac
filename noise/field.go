package noise

// Field holds a 2D grid of noise samples that evolves slowly over time.
// Regeneration is explicit (Advance) so callers can refresh only every few
// ticks instead of paying the sampling cost each frame.
type Field struct {
	gen       *Generator
	width     int
	height    int
	scale     float64
	time      float64
	values    []float64
	generated bool
}

// NewField creates a width x height field driven by gen. Scale controls the
// spatial frequency of the sampled noise.
func NewField(gen *Generator, width, height int, scale float64) *Field {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if scale <= 0 {
		scale = 4.0
	}
	return &Field{
		gen:    gen,
		width:  width,
		height: height,
		scale:  scale,
		values: make([]float64, width*height),
	}
}

// Reseed swaps the underlying generator and invalidates the current grid.
func (f *Field) Reseed(gen *Generator) {
	f.gen = gen
	f.generated = false
	f.time = 0
}

// Advance moves the field's time coordinate forward and regenerates the
// grid. dt is in seconds.
func (f *Field) Advance(dt float64) {
	f.time += dt
	f.regenerate()
}

func (f *Field) regenerate() {
	for y := 0; y < f.height; y++ {
		ny := f.scale * float64(y) / float64(f.height)
		for x := 0; x < f.width; x++ {
			nx := f.scale * float64(x) / float64(f.width)
			f.values[y*f.width+x] = f.gen.FBm(nx, ny, f.time*0.35, 3)
		}
	}
	f.generated = true
}

// At returns the noise value at grid coordinates, in roughly [-1, 1].
// Coordinates wrap, matching the toroidal simulation domain.
func (f *Field) At(x, y int) float64 {
	if !f.generated {
		f.regenerate()
	}
	x = ((x % f.width) + f.width) % f.width
	y = ((y % f.height) + f.height) % f.height
	return f.values[y*f.width+x]
}

// Sample returns bilinearly interpolated noise at normalized coordinates
// u, v in [0, 1).
func (f *Field) Sample(u, v float64) float64 {
	if !f.generated {
		f.regenerate()
	}
	fx := u * float64(f.width)
	fy := v * float64(f.height)
	x0 := int(fx)
	y0 := int(fy)
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	v00 := f.At(x0, y0)
	v10 := f.At(x0+1, y0)
	v01 := f.At(x0, y0+1)
	v11 := f.At(x0+1, y0+1)

	top := v00 + tx*(v10-v00)
	bot := v01 + tx*(v11-v01)
	return top + ty*(bot-top)
}

// Size returns the grid dimensions.
func (f *Field) Size() (int, int) {
	return f.width, f.height
}
