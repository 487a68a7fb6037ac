package engine

// State channel layout, one texel per simulated cell.
const (
	chPhase    = 0 // oscillator phase, normalized to [0, 1) of a full turn
	chCoupling = 1 // neighbor coupling strength
	chEnergy   = 2 // accumulated audio energy
	chBeat     = 3 // beat decay envelope
)

// StateBuffer is one of the two ping-pong simulation buffers. Writes are
// quantized to the negotiated format so lower precision tiers behave the
// same as their GPU equivalents would.
type StateBuffer struct {
	w, h   int
	format Format
	data   []float64
}

// NewStateBuffer allocates a w x h buffer at the given precision.
func NewStateBuffer(w, h int, format Format) *StateBuffer {
	return &StateBuffer{
		w:      w,
		h:      h,
		format: format,
		data:   make([]float64, w*h*4),
	}
}

// Size returns the buffer dimensions in cells.
func (b *StateBuffer) Size() (int, int) {
	return b.w, b.h
}

// Format returns the precision tier the buffer was allocated with.
func (b *StateBuffer) Format() Format {
	return b.format
}

func (b *StateBuffer) index(x, y int) int {
	x = ((x % b.w) + b.w) % b.w
	y = ((y % b.h) + b.h) % b.h
	return (y*b.w + x) * 4
}

// At returns the four state channels at a cell. Coordinates wrap, matching
// the toroidal simulation domain.
func (b *StateBuffer) At(x, y int) (phase, coupling, energy, beat float64) {
	i := b.index(x, y)
	return b.data[i], b.data[i+1], b.data[i+2], b.data[i+3]
}

// Set writes the four state channels at a cell, quantized to the buffer
// format. Phase must already be normalized to [0, 1).
func (b *StateBuffer) Set(x, y int, phase, coupling, energy, beat float64) {
	i := b.index(x, y)
	b.data[i] = b.format.quantize(phase)
	b.data[i+1] = b.format.quantize(coupling)
	b.data[i+2] = b.format.quantize(energy)
	b.data[i+3] = b.format.quantize(beat)
}

// release drops the backing store. The buffer must not be used afterwards.
func (b *StateBuffer) release() {
	b.data = nil
}
