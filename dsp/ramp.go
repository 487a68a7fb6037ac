package dsp

// Ramp glides a parameter linearly toward its target over a fixed time,
// replacing instant assignment so node parameter changes stay click-free.
type Ramp struct {
	current float32
	target  float32
	step    float32
	rampLen int // samples over which a full ramp completes
}

// NewRamp creates a ramp starting at value that reaches new targets over
// rampMs milliseconds.
func NewRamp(value float32, sampleRate float32, rampMs float32) *Ramp {
	n := int(sampleRate * rampMs / 1000.0)
	if n < 1 {
		n = 1
	}
	return &Ramp{
		current: value,
		target:  value,
		rampLen: n,
	}
}

// SetTarget schedules a glide from the current value to target.
func (r *Ramp) SetTarget(target float32) {
	r.target = target
	r.step = (target - r.current) / float32(r.rampLen)
}

// Target returns the pending target value.
func (r *Ramp) Target() float32 {
	return r.target
}

// Value returns the current value without advancing.
func (r *Ramp) Value() float32 {
	return r.current
}

// Next advances one sample and returns the new value.
func (r *Ramp) Next() float32 {
	if r.current == r.target {
		return r.current
	}
	next := r.current + r.step
	if (r.step > 0 && next >= r.target) || (r.step < 0 && next <= r.target) {
		next = r.target
	}
	r.current = next
	return r.current
}

// Skip advances n samples at once, as if Next had been called n times.
func (r *Ramp) Skip(n int) {
	for i := 0; i < n && r.current != r.target; i++ {
		r.Next()
	}
}

// Jump sets current and target immediately, bypassing the glide. Intended
// for initialization, not for live parameter changes.
func (r *Ramp) Jump(value float32) {
	r.current = value
	r.target = value
	r.step = 0
}
