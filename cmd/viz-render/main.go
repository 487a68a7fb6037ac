// viz-render runs the full pipeline offline: WAV in, rendered PNG frames
// and a per-tick feature CSV out. Delta-times are fixed, so the output is
// fully deterministic for a given seed and input.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/wearesublngual/vibe-weaver-10/analyzer"
	"github.com/wearesublngual/vibe-weaver-10/engine"
	"github.com/wearesublngual/vibe-weaver-10/fxchain"
	"github.com/wearesublngual/vibe-weaver-10/internal/wavio"
	"github.com/wearesublngual/vibe-weaver-10/preset"
	"github.com/wearesublngual/vibe-weaver-10/seed"
)

// offlineSurface is a render target backed by nothing but a size; it
// accepts every buffer format.
type offlineSurface struct {
	w, h int
}

func (s offlineSurface) Size() (int, int) { return s.w, s.h }

func (s offlineSurface) Supports(engine.Format) bool { return true }

func main() {
	input := flag.String("input", "", "Input WAV file")
	outDir := flag.String("out", "out/frames", "Output directory for PNG frames")
	csvPath := flag.String("features", "", "Optional CSV path for per-tick features")
	width := flag.Int("width", 640, "Frame width in pixels")
	height := flag.Int("height", 480, "Frame height in pixels")
	fps := flag.Float64("fps", 60, "Render tick rate")
	frameEvery := flag.Int("frame-every", 4, "Write every Nth frame as PNG")
	seedStr := flag.String("seed", "", "Seed string (SR-...); params from the seed override the preset")
	presetPath := flag.String("preset", "", "Preset JSON file (optional)")
	analysisRate := flag.Int("analysis-rate", 44100, "Internal analysis sample rate in Hz")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "viz-render: -input is required")
		os.Exit(1)
	}

	p := preset.Default()
	if *presetPath != "" {
		var err error
		p, err = preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "viz-render: %v\n", err)
			os.Exit(1)
		}
	}
	if *seedStr != "" {
		v, a, ok := seed.Decode(*seedStr)
		if !ok {
			fmt.Fprintf(os.Stderr, "viz-render: invalid seed %q\n", *seedStr)
			os.Exit(1)
		}
		p.Visual = v
		p.Effects = a
	}

	samples, rate, err := wavio.ReadMono(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "viz-render: read %s: %v\n", *input, err)
		os.Exit(1)
	}
	samples, err = wavio.ResampleIfNeeded(samples, rate, *analysisRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "viz-render: resample: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Input: %d frames @ %d Hz (%.2fs)\n", len(samples), *analysisRate, float64(len(samples))/float64(*analysisRate))

	p.Analyzer.TickRate = *fps
	extractor, err := analyzer.New(p.Analyzer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "viz-render: %v\n", err)
		os.Exit(1)
	}
	source, err := analyzer.NewPCMSource(*analysisRate, 2048)
	if err != nil {
		fmt.Fprintf(os.Stderr, "viz-render: %v\n", err)
		os.Exit(1)
	}
	extractor.SetSource(source)

	chain, err := fxchain.New(fxchain.DefaultConfig(*analysisRate))
	if err != nil {
		fmt.Fprintf(os.Stderr, "viz-render: %v\n", err)
		os.Exit(1)
	}
	defer chain.Dispose()
	chain.SetParams(p.Effects)

	eng := engine.New(engine.Config{
		Logf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
	})
	if err := eng.Init(offlineSurface{*width, *height}); err != nil {
		fmt.Fprintf(os.Stderr, "viz-render: %v\n", err)
		os.Exit(1)
	}
	defer eng.Dispose()
	if *seedStr != "" {
		eng.SetSeed(*seedStr)
	}

	var csv *os.File
	if *csvPath != "" {
		if err := os.MkdirAll(filepath.Dir(*csvPath), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "viz-render: %v\n", err)
			os.Exit(1)
		}
		csv, err = os.Create(*csvPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "viz-render: %v\n", err)
			os.Exit(1)
		}
		defer csv.Close()
		fmt.Fprintln(csv, "tick,bass,low_mid,mid,high,energy,beat,beat_intensity")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "viz-render: %v\n", err)
		os.Exit(1)
	}

	dt := 1.0 / *fps
	samplesPerTick := int(float64(*analysisRate) * dt)
	block := make([]float32, samplesPerTick)

	ticks := len(samples) / samplesPerTick
	written := 0
	beats := 0
	for tick := 0; tick < ticks; tick++ {
		off := tick * samplesPerTick
		for i := 0; i < samplesPerTick; i++ {
			block[i] = float32(samples[off+i])
		}

		chain.Update()
		chain.ProcessInPlace(block)
		source.Push(block)

		frame := extractor.Analyze()
		if frame.BeatDetected {
			beats++
		}
		eng.Update(frame, p.Visual, dt)

		if csv != nil {
			beat := 0
			if frame.BeatDetected {
				beat = 1
			}
			fmt.Fprintf(csv, "%d,%.4f,%.4f,%.4f,%.4f,%.4f,%d,%.4f\n",
				tick, frame.Bass, frame.LowMid, frame.Mid, frame.High, frame.Energy, beat, frame.BeatIntensity)
		}

		if *frameEvery > 0 && tick%*frameEvery == 0 {
			img := eng.Render()
			path := filepath.Join(*outDir, fmt.Sprintf("frame-%06d.png", tick))
			f, err := os.Create(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "viz-render: %v\n", err)
				os.Exit(1)
			}
			if err := png.Encode(f, img); err != nil {
				f.Close()
				fmt.Fprintf(os.Stderr, "viz-render: encode %s: %v\n", path, err)
				os.Exit(1)
			}
			f.Close()
			written++
		}
	}

	fmt.Printf("Rendered %d ticks, wrote %d frames, detected %d beats\n", ticks, written, beats)
}
