// Package fxchain implements the user-adjustable audio signal chain: three
// cascaded, continuously-smoothed stages (echo, drift, break) spliced
// between a host's source and destination nodes.
//
// Smoothing happens at two independent levels. Each Update moves the
// chain's private smoothed controls a fixed fraction toward the externally
// set targets, and every physical node parameter then glides toward its
// freshly computed value through a short ramp. Both time constants matter:
// together they give slider movements a felt, non-mechanical quality.
package fxchain

import (
	"fmt"
	"math"
)

// Node processes a block of mono samples in place. The chain's endpoints
// are Nodes so a host can splice them into its own signal path.
type Node interface {
	ProcessInPlace(block []float32)
}

// Config holds the chain's tunable constants.
type Config struct {
	SampleRate int

	// ControlSmoothing is the per-Update convergence fraction of the
	// smoothed controls toward their targets.
	ControlSmoothing float64

	// RampMs is the node-level parameter glide time in milliseconds.
	RampMs float64

	// CutoffFloorHz bounds how far the drift filter may close. Device
	// dependent in practice; anything in 2-4 kHz keeps the signal
	// colored instead of silenced.
	CutoffFloorHz float64

	// GateFloor is the minimum gate gain, so break never reaches
	// absolute silence.
	GateFloor float64
}

// DefaultConfig returns the production tuning at the given sample rate.
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate:       sampleRate,
		ControlSmoothing: 0.05,
		RampMs:           30,
		CutoffFloorHz:    2500,
		GateFloor:        0.25,
	}
}

// stageState tracks each stage's smoothing phase.
type stageState int

const (
	stageIdle stageState = iota
	stageConverging
	stageSteady
)

func (s stageState) String() string {
	switch s {
	case stageIdle:
		return "idle"
	case stageConverging:
		return "converging"
	default:
		return "steady"
	}
}

// convergedEps is how close current must be to target to count as steady.
const convergedEps = 1e-3

// Chain is the three-stage effects chain.
type Chain struct {
	cfg Config

	target  Params
	current Params

	echo  *echoStage
	drift *driftStage
	gate  *breakStage

	input  *Gain
	output *Gain

	disposed bool
}

// New creates a chain. SampleRate must be positive; everything else falls
// back to DefaultConfig values when zero.
func New(cfg Config) (*Chain, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("fxchain: sample rate must be > 0: %d", cfg.SampleRate)
	}
	def := DefaultConfig(cfg.SampleRate)
	if cfg.ControlSmoothing <= 0 || cfg.ControlSmoothing > 1 {
		cfg.ControlSmoothing = def.ControlSmoothing
	}
	if cfg.RampMs <= 0 {
		cfg.RampMs = def.RampMs
	}
	if cfg.CutoffFloorHz <= 0 {
		cfg.CutoffFloorHz = def.CutoffFloorHz
	}
	if cfg.GateFloor <= 0 || cfg.GateFloor >= 1 {
		cfg.GateFloor = def.GateFloor
	}

	sr := float32(cfg.SampleRate)
	rampMs := float32(cfg.RampMs)
	return &Chain{
		cfg:    cfg,
		echo:   newEchoStage(sr, rampMs),
		drift:  newDriftStage(sr, rampMs, cfg.CutoffFloorHz),
		gate:   newBreakStage(sr, rampMs, cfg.GateFloor),
		input:  NewGain(sr, rampMs),
		output: NewGain(sr, rampMs),
	}, nil
}

// SetParams stores new control targets. The chain's smoothed copy converges
// toward them over subsequent Updates; nothing changes instantly.
func (c *Chain) SetParams(p Params) {
	c.target = p.Clamp()
}

// Params returns the externally set targets.
func (c *Chain) Params() Params {
	return c.target
}

// Current returns the internally smoothed controls.
func (c *Chain) Current() Params {
	return c.current
}

// Update advances the control-level smoothing one tick and pushes freshly
// computed physical targets onto the stages. Call once per render tick.
func (c *Chain) Update() {
	c.mustLive("Update")

	k := c.cfg.ControlSmoothing
	c.current.Echo += (c.target.Echo - c.current.Echo) * k
	c.current.Drift += (c.target.Drift - c.current.Drift) * k
	c.current.Break += (c.target.Break - c.current.Break) * k

	c.echo.setControl(c.current.Echo, math.Abs(c.target.Echo-c.current.Echo) < convergedEps)
	c.drift.setControl(c.current.Drift, math.Abs(c.target.Drift-c.current.Drift) < convergedEps)
	c.gate.setControl(c.current.Break, math.Abs(c.target.Break-c.current.Break) < convergedEps)
}

// Input returns the splice point the host feeds its source into.
func (c *Chain) Input() Node {
	return c.input
}

// Output returns the splice point the host connects to its destination.
func (c *Chain) Output() Node {
	return c.output
}

// ProcessInPlace runs a block of mono samples through the full chain.
func (c *Chain) ProcessInPlace(block []float32) {
	c.mustLive("ProcessInPlace")
	if len(block) == 0 {
		return
	}
	c.input.ProcessInPlace(block)
	c.echo.ProcessInPlace(block)
	c.drift.ProcessInPlace(block)
	c.gate.ProcessInPlace(block)
	c.output.ProcessInPlace(block)
}

// Dispose releases stage resources. Using the chain afterwards is a
// programming error and fails loudly.
func (c *Chain) Dispose() {
	if c.disposed {
		return
	}
	c.echo.dispose()
	c.drift.dispose()
	c.gate.dispose()
	c.disposed = true
}

func (c *Chain) mustLive(op string) {
	if c.disposed {
		panic("fxchain: " + op + " called after Dispose")
	}
}
