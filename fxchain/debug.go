package fxchain

// StageDebug exposes the fully computed intermediate values of every stage
// for introspection tooling. Values reflect the smoothed controls, not the
// raw targets.
type StageDebug struct {
	// Controls after smoothing.
	Echo  float64
	Drift float64
	Break float64

	EchoState  string
	DriftState string
	BreakState string

	// Echo stage.
	WetMix   float64
	Feedback float64
	DelayMs  float64

	// Drift stage.
	CutoffHz    float64
	MinCutoffHz float64
	Q           float64
	LFODepthOct float64
	LFORateHz   float64

	// Break stage.
	GateDepth  float64
	GateRateHz float64
	GateFloor  float64
}

// Debug returns a snapshot of the computed stage values.
func (c *Chain) Debug() StageDebug {
	return StageDebug{
		Echo:  c.current.Echo,
		Drift: c.current.Drift,
		Break: c.current.Break,

		EchoState:  c.echo.state.String(),
		DriftState: c.drift.state.String(),
		BreakState: c.gate.state.String(),

		WetMix:   echoWetMix(c.current.Echo),
		Feedback: echoFeedback(c.current.Echo),
		DelayMs:  echoDelayMs(c.current.Echo),

		CutoffHz:    float64(c.drift.center.Value()),
		MinCutoffHz: c.drift.minCutoffHz(),
		Q:           driftQ(c.current.Drift),
		LFODepthOct: float64(c.drift.depth.Value()),
		LFORateHz:   driftRateHz(c.current.Drift),

		GateDepth:  c.gate.breakDepth(c.current.Break),
		GateRateHz: breakRate(c.current.Break),
		GateFloor:  c.gate.floor,
	}
}
