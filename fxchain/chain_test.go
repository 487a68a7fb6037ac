package fxchain

import (
	"math"
	"testing"
)

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	c, err := New(DefaultConfig(44100))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsBadSampleRate(t *testing.T) {
	if _, err := New(Config{SampleRate: 0}); err == nil {
		t.Fatalf("accepted zero sample rate")
	}
	if _, err := New(Config{SampleRate: -1}); err == nil {
		t.Fatalf("accepted negative sample rate")
	}
}

func TestNewFillsZeroConfigFields(t *testing.T) {
	c, err := New(Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	def := DefaultConfig(48000)
	if c.cfg.ControlSmoothing != def.ControlSmoothing {
		t.Fatalf("ControlSmoothing = %v, want default %v", c.cfg.ControlSmoothing, def.ControlSmoothing)
	}
	if c.cfg.CutoffFloorHz != def.CutoffFloorHz {
		t.Fatalf("CutoffFloorHz = %v, want default %v", c.cfg.CutoffFloorHz, def.CutoffFloorHz)
	}
	if c.cfg.GateFloor != def.GateFloor {
		t.Fatalf("GateFloor = %v, want default %v", c.cfg.GateFloor, def.GateFloor)
	}
}

func TestControlsConvergeGradually(t *testing.T) {
	c := newTestChain(t)
	c.SetParams(Params{Echo: 1})

	c.Update()
	first := c.Current().Echo
	if first <= 0 || first >= 0.1 {
		t.Fatalf("one update moved echo to %v, want a small fraction of the target", first)
	}

	// 5% per update closes the gap exponentially; after ~200 updates the
	// control is effectively settled.
	for i := 0; i < 200; i++ {
		c.Update()
	}
	if got := c.Current().Echo; math.Abs(got-1) > convergedEps {
		t.Fatalf("echo control settled at %v, want ~1", got)
	}
}

func TestSetParamsClamps(t *testing.T) {
	c := newTestChain(t)
	c.SetParams(Params{Echo: 3, Drift: -2, Break: 0.5})
	got := c.Params()
	if got.Echo != 1 || got.Drift != 0 || got.Break != 0.5 {
		t.Fatalf("targets not clamped: %+v", got)
	}
}

func TestFeedbackNeverExceedsCeiling(t *testing.T) {
	for i := 0; i <= 100; i++ {
		c := float64(i) / 100
		if fb := echoFeedback(c); fb > echoFeedbackCeiling {
			t.Fatalf("echoFeedback(%v) = %v, above ceiling %v", c, fb, echoFeedbackCeiling)
		}
	}
	// The ceiling is actually reached, otherwise the clamp is dead code.
	if fb := echoFeedback(1); fb != echoFeedbackCeiling {
		t.Fatalf("echoFeedback(1) = %v, want %v", fb, echoFeedbackCeiling)
	}
}

func TestEchoWetMixMonotonic(t *testing.T) {
	prev := echoWetMix(0)
	if prev != 0 {
		t.Fatalf("echoWetMix(0) = %v, want 0", prev)
	}
	for i := 1; i <= 100; i++ {
		c := float64(i) / 100
		wm := echoWetMix(c)
		if wm < prev {
			t.Fatalf("wet mix decreased at control %v: %v -> %v", c, prev, wm)
		}
		prev = wm
	}
	if math.Abs(prev-echoWetMax) > 1e-12 {
		t.Fatalf("echoWetMix(1) = %v, want %v", prev, echoWetMax)
	}
}

func TestEchoStableUnderMaxFeedback(t *testing.T) {
	c := newTestChain(t)
	c.SetParams(Params{Echo: 1})
	// Drive the controls all the way to the target.
	for i := 0; i < 400; i++ {
		c.Update()
	}

	block := make([]float32, 512)
	var peak float32
	for n := 0; n < 400; n++ { // ~4.6 s of audio
		for i := range block {
			block[i] = 0.5
		}
		c.ProcessInPlace(block)
		for _, v := range block {
			if a := float32(math.Abs(float64(v))); a > peak {
				peak = a
			}
		}
	}
	// Feedback 0.6, wet 0.55: geometric series bounds the output well
	// below runaway.
	if peak > 2 {
		t.Fatalf("echo output peaked at %v, looks like runaway feedback", peak)
	}
	if math.IsNaN(float64(peak)) {
		t.Fatalf("echo produced NaN")
	}
}

func TestDriftMinCutoffRespectsFloor(t *testing.T) {
	cfg := DefaultConfig(44100)
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	block := make([]float32, 256)
	for i := 0; i <= 10; i++ {
		c.SetParams(Params{Drift: float64(i) / 10})
		for u := 0; u < 100; u++ {
			c.Update()
			c.ProcessInPlace(block)
		}
		d := c.Debug()
		if d.MinCutoffHz < cfg.CutoffFloorHz-1 {
			t.Fatalf("drift %v sweeps cutoff to %v Hz, floor is %v",
				float64(i)/10, d.MinCutoffHz, cfg.CutoffFloorHz)
		}
	}
}

func TestDriftAttenuatesHighsAtFullControl(t *testing.T) {
	c := newTestChain(t)

	// Reference: dry chain passes a high tone through unchanged.
	dry := sineBlocks(12000, 44100, 200, c)

	c2 := newTestChain(t)
	c2.SetParams(Params{Drift: 1})
	for i := 0; i < 400; i++ {
		c2.Update()
	}
	wet := sineBlocks(12000, 44100, 200, c2)

	if wet > dry*0.7 {
		t.Fatalf("full drift left 12 kHz at %v of dry level %v", wet, dry)
	}
}

// sineBlocks pushes a sine through the chain and returns the settled output
// peak.
func sineBlocks(freq, sampleRate float64, blocks int, c *Chain) float64 {
	const blockSize = 256
	block := make([]float32, blockSize)
	var peak float64
	n := 0
	for b := 0; b < blocks; b++ {
		for i := range block {
			block[i] = float32(math.Sin(2 * math.Pi * freq * float64(n) / sampleRate))
			n++
		}
		c.ProcessInPlace(block)
		if b > blocks/2 {
			for _, v := range block {
				if a := math.Abs(float64(v)); a > peak {
					peak = a
				}
			}
		}
	}
	return peak
}

func TestGateGainNeverBelowFloor(t *testing.T) {
	cfg := DefaultConfig(44100)
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.SetParams(Params{Break: 1})
	for i := 0; i < 400; i++ {
		c.Update()
	}

	block := make([]float32, 441) // one tick at 44.1 kHz, 100 ticks = 1 s
	var min float32 = 1
	for n := 0; n < 100; n++ {
		for i := range block {
			block[i] = 1
		}
		c.Update()
		c.ProcessInPlace(block)
		for _, v := range block {
			if v < min {
				min = v
			}
		}
	}
	if float64(min) < cfg.GateFloor-1e-3 {
		t.Fatalf("gate dipped to %v, floor is %v", min, cfg.GateFloor)
	}
	// The gate must actually gate: at full break the dips go well below
	// unity.
	if min > 0.6 {
		t.Fatalf("gate barely moved: min gain %v at full break", min)
	}
}

func TestBreakBelowActivationIsBypassed(t *testing.T) {
	c := newTestChain(t)
	c.SetParams(Params{Break: 0.03}) // below the activation threshold
	for i := 0; i < 400; i++ {
		c.Update()
	}
	block := make([]float32, 256)
	for i := range block {
		block[i] = 0.7
	}
	c.ProcessInPlace(block)
	for i, v := range block {
		if v != 0.7 {
			t.Fatalf("sub-activation break altered sample %d: %v", i, v)
		}
	}
}

func TestZeroParamsChainIsTransparent(t *testing.T) {
	c := newTestChain(t)
	for i := 0; i < 50; i++ {
		c.Update()
	}
	block := make([]float32, 512)
	want := make([]float32, len(block))
	for i := range block {
		v := float32(math.Sin(0.07 * float64(i)))
		block[i] = v
		want[i] = v
	}
	c.ProcessInPlace(block)
	for i := range block {
		if block[i] != want[i] {
			t.Fatalf("dry chain altered sample %d: %v -> %v", i, want[i], block[i])
		}
	}
}

func TestStageStatesProgress(t *testing.T) {
	c := newTestChain(t)
	c.Update()
	if d := c.Debug(); d.EchoState != "idle" {
		t.Fatalf("fresh chain echo state = %q, want idle", d.EchoState)
	}

	c.SetParams(Params{Echo: 0.8})
	c.Update()
	if d := c.Debug(); d.EchoState != "converging" {
		t.Fatalf("echo state after retarget = %q, want converging", d.EchoState)
	}

	for i := 0; i < 400; i++ {
		c.Update()
	}
	if d := c.Debug(); d.EchoState != "steady" {
		t.Fatalf("echo state after settling = %q, want steady", d.EchoState)
	}

	c.SetParams(Params{})
	for i := 0; i < 400; i++ {
		c.Update()
	}
	if d := c.Debug(); d.EchoState != "idle" {
		t.Fatalf("echo state after returning to zero = %q, want idle", d.EchoState)
	}
}

func TestDebugReflectsControls(t *testing.T) {
	c := newTestChain(t)
	c.SetParams(Params{Echo: 1, Drift: 1, Break: 1})
	block := make([]float32, 256)
	for i := 0; i < 400; i++ {
		c.Update()
		c.ProcessInPlace(block)
	}
	d := c.Debug()
	if math.Abs(d.WetMix-echoWetMax) > 1e-6 {
		t.Fatalf("WetMix = %v, want %v", d.WetMix, echoWetMax)
	}
	if d.Feedback != echoFeedbackCeiling {
		t.Fatalf("Feedback = %v, want %v", d.Feedback, echoFeedbackCeiling)
	}
	if math.Abs(d.DelayMs-echoMaxDelayMs) > 1 {
		t.Fatalf("DelayMs = %v, want ~%v", d.DelayMs, float64(echoMaxDelayMs))
	}
	if d.LFORateHz < driftMinRateHz || d.LFORateHz > driftMaxRateHz {
		t.Fatalf("LFORateHz = %v, outside [%v, %v]", d.LFORateHz, driftMinRateHz, driftMaxRateHz)
	}
	if d.GateFloor != c.cfg.GateFloor {
		t.Fatalf("GateFloor = %v, want %v", d.GateFloor, c.cfg.GateFloor)
	}
}

func TestUseAfterDisposePanics(t *testing.T) {
	c := newTestChain(t)
	c.Dispose()
	c.Dispose() // second dispose is a no-op, not a panic

	defer func() {
		if recover() == nil {
			t.Fatalf("Update after Dispose did not panic")
		}
	}()
	c.Update()
}

func TestProcessAfterDisposePanics(t *testing.T) {
	c := newTestChain(t)
	c.Dispose()
	defer func() {
		if recover() == nil {
			t.Fatalf("ProcessInPlace after Dispose did not panic")
		}
	}()
	c.ProcessInPlace(make([]float32, 16))
}
