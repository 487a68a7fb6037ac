// seed-tool encodes, decodes, and validates seed strings from the command
// line.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/wearesublngual/vibe-weaver-10/engine"
	"github.com/wearesublngual/vibe-weaver-10/fxchain"
	"github.com/wearesublngual/vibe-weaver-10/preset"
	"github.com/wearesublngual/vibe-weaver-10/seed"
)

func main() {
	decode := flag.String("decode", "", "Seed string to decode")
	check := flag.String("check", "", "Seed string to validate")
	presetPath := flag.String("preset", "", "Preset JSON to encode (defaults used when empty)")
	dose := flag.Float64("dose", -1, "Override dose (0-1)")
	symmetry := flag.Float64("symmetry", -1, "Override symmetry (0-1)")
	recursion := flag.Float64("recursion", -1, "Override recursion (0-1)")
	breathing := flag.Float64("breathing", -1, "Override breathing (0-1)")
	flow := flag.Float64("flow", -1, "Override flow (0-1)")
	saturation := flag.Float64("saturation", -1, "Override saturation (0-1)")
	echo := flag.Float64("echo", -1, "Override echo (0-1)")
	drift := flag.Float64("drift", -1, "Override drift (0-1)")
	brk := flag.Float64("break", -1, "Override break (0-1)")
	flag.Parse()

	switch {
	case *check != "":
		if seed.IsValid(*check) {
			fmt.Printf("valid: %s\n", seed.Normalize(*check))
			return
		}
		fmt.Println("invalid")
		os.Exit(1)

	case *decode != "":
		v, a, ok := seed.Decode(*decode)
		if !ok {
			fmt.Fprintf(os.Stderr, "seed-tool: invalid seed %q\n", *decode)
			os.Exit(1)
		}
		printParams(v, a)

	default:
		p := preset.Default()
		if *presetPath != "" {
			var err error
			p, err = preset.LoadJSON(*presetPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "seed-tool: %v\n", err)
				os.Exit(1)
			}
		}
		applyOverride(&p.Visual.Dose, *dose)
		applyOverride(&p.Visual.Symmetry, *symmetry)
		applyOverride(&p.Visual.Recursion, *recursion)
		applyOverride(&p.Visual.Breathing, *breathing)
		applyOverride(&p.Visual.Flow, *flow)
		applyOverride(&p.Visual.Saturation, *saturation)
		applyOverride(&p.Effects.Echo, *echo)
		applyOverride(&p.Effects.Drift, *drift)
		applyOverride(&p.Effects.Break, *brk)

		s := seed.Encode(p.Visual, p.Effects)
		fmt.Println(s)
	}
}

func applyOverride(dst *float64, v float64) {
	if v >= 0 {
		*dst = v
	}
}

func printParams(v engine.VisualizerParams, a fxchain.Params) {
	fmt.Printf("dose:       %.4f\n", v.Dose)
	fmt.Printf("symmetry:   %.4f\n", v.Symmetry)
	fmt.Printf("recursion:  %.4f\n", v.Recursion)
	fmt.Printf("breathing:  %.4f\n", v.Breathing)
	fmt.Printf("flow:       %.4f\n", v.Flow)
	fmt.Printf("saturation: %.4f\n", v.Saturation)
	fmt.Printf("echo:       %.4f\n", a.Echo)
	fmt.Printf("drift:      %.4f\n", a.Drift)
	fmt.Printf("break:      %.4f\n", a.Break)
}
