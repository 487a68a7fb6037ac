// beat-tune searches the beat-detector constants against synthetic labeled
// kick patterns. The shipped defaults were tuned by ear across iterations;
// this tool exists to validate them against something measurable.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"

	"github.com/cwbudde/mayfly"

	"github.com/wearesublngual/vibe-weaver-10/analysis"
	"github.com/wearesublngual/vibe-weaver-10/analyzer"
)

type knobDef struct {
	Name string
	Min  float64
	Max  float64
}

var knobs = []knobDef{
	{"beat_sigma_mult", 0.5, 3.0},
	{"beat_rise_factor", 1.0, 2.0},
	{"beat_flux_floor", 0.0, 0.08},
	{"beat_cooldown_ms", 40, 300},
}

func fromNormalized(pos []float64) analyzer.Config {
	cfg := analyzer.DefaultConfig()
	vals := make([]float64, len(knobs))
	for i, d := range knobs {
		p := pos[i]
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		vals[i] = d.Min + p*(d.Max-d.Min)
	}
	cfg.BeatSigmaMult = vals[0]
	cfg.BeatRiseFactor = vals[1]
	cfg.BeatFluxFloor = vals[2]
	cfg.BeatCooldownMs = vals[3]
	return cfg
}

// testCase is one synthetic kick pattern.
type testCase struct {
	bpm       float64
	durationS float64
	noise     float64
	seed      int64
}

var corpus = []testCase{
	{bpm: 80, durationS: 12, noise: 0.02, seed: 11},
	{bpm: 110, durationS: 12, noise: 0.05, seed: 23},
	{bpm: 128, durationS: 12, noise: 0.10, seed: 37},
	{bpm: 150, durationS: 12, noise: 0.04, seed: 51},
}

const sampleRate = 44100

// synthesize builds a kick train over low noise and returns the samples
// plus the labeled onset times in seconds.
func synthesize(tc testCase) ([]float32, []float64) {
	rng := rand.New(rand.NewSource(tc.seed))
	n := int(tc.durationS * sampleRate)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32((rng.Float64()*2 - 1) * tc.noise)
	}

	interval := 60.0 / tc.bpm
	var onsets []float64
	for t := 0.5; t < tc.durationS-0.5; t += interval {
		onsets = append(onsets, t)
		start := int(t * sampleRate)
		// 60 Hz burst with a fast exponential decay, a crude kick.
		for i := 0; i < sampleRate/8 && start+i < n; i++ {
			ts := float64(i) / sampleRate
			amp := 0.9 * math.Exp(-ts/0.04)
			out[start+i] += float32(amp * math.Sin(2*math.Pi*60*ts))
		}
	}
	return out, onsets
}

// evaluate runs the detector with cfg over the corpus and returns the mean
// analysis score (lower is better).
func evaluate(cfg analyzer.Config) (float64, error) {
	var total float64
	for _, tc := range corpus {
		samples, onsets := synthesize(tc)

		src, err := analyzer.NewPCMSource(sampleRate, 2048)
		if err != nil {
			return 0, err
		}
		ex, err := analyzer.New(cfg)
		if err != nil {
			return 0, err
		}
		ex.SetSource(src)

		samplesPerTick := sampleRate / int(cfg.TickRate)
		var predicted []float64
		for off := 0; off+samplesPerTick <= len(samples); off += samplesPerTick {
			src.Push(samples[off : off+samplesPerTick])
			frame := ex.Analyze()
			if frame.BeatDetected {
				predicted = append(predicted, float64(off+samplesPerTick)/sampleRate)
			}
		}

		m := analysis.Compare(onsets, predicted, 90)
		total += m.Score
	}
	return total / float64(len(corpus)), nil
}

func main() {
	pop := flag.Int("pop", 16, "Mayfly population size")
	iters := flag.Int("iters", 40, "Mayfly iterations")
	optSeed := flag.Int64("seed", 1, "Optimizer random seed")
	flag.Parse()

	base := analyzer.DefaultConfig()
	baseScore, err := evaluate(base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "beat-tune: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Baseline: sigma=%.2f rise=%.2f flux=%.4f cooldown=%.0fms score=%.4f\n",
		base.BeatSigmaMult, base.BeatRiseFactor, base.BeatFluxFloor, base.BeatCooldownMs, baseScore)

	cfg := mayfly.NewDefaultConfig()
	cfg.ProblemSize = len(knobs)
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = *iters
	cfg.NPop = *pop
	cfg.NPopF = *pop
	cfg.NC = 2 * *pop
	cfg.NM = maxInt(1, int(math.Round(0.05*float64(*pop))))
	cfg.Rand = rand.New(rand.NewSource(*optSeed))

	var mu sync.Mutex
	best := baseScore
	bestCfg := base
	evals := 0

	cfg.ObjectiveFunc = func(pos []float64) float64 {
		cand := fromNormalized(pos)
		score, err := evaluate(cand)
		if err != nil {
			return 10 // worse than any reachable score
		}
		mu.Lock()
		evals++
		if score < best {
			best = score
			bestCfg = cand
			fmt.Printf("Improved eval=%d score=%.4f sigma=%.2f rise=%.2f flux=%.4f cooldown=%.0fms\n",
				evals, score, cand.BeatSigmaMult, cand.BeatRiseFactor, cand.BeatFluxFloor, cand.BeatCooldownMs)
		}
		mu.Unlock()
		return score
	}

	if _, err := runMayfly(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "beat-tune: optimize: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nBest after %d evals (score %.4f, baseline %.4f):\n", evals, best, baseScore)
	fmt.Printf("  beat_sigma_mult:  %.3f\n", bestCfg.BeatSigmaMult)
	fmt.Printf("  beat_rise_factor: %.3f\n", bestCfg.BeatRiseFactor)
	fmt.Printf("  beat_flux_floor:  %.4f\n", bestCfg.BeatFluxFloor)
	fmt.Printf("  beat_cooldown_ms: %.0f\n", bestCfg.BeatCooldownMs)
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
