// Package preset loads JSON parameter files layering visual controls,
// effect controls, and analyzer tuning overrides on top of defaults.
package preset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wearesublngual/vibe-weaver-10/analyzer"
	"github.com/wearesublngual/vibe-weaver-10/engine"
	"github.com/wearesublngual/vibe-weaver-10/fxchain"
)

// File is the JSON schema for visualizer presets. All fields are optional;
// absent fields keep their defaults.
type File struct {
	Visual   *VisualSetting   `json:"visual"`
	Effects  *EffectsSetting  `json:"effects"`
	Analyzer *AnalyzerSetting `json:"analyzer"`
}

// VisualSetting is a partial override of the six visual controls.
type VisualSetting struct {
	Dose       *float64 `json:"dose"`
	Symmetry   *float64 `json:"symmetry"`
	Recursion  *float64 `json:"recursion"`
	Breathing  *float64 `json:"breathing"`
	Flow       *float64 `json:"flow"`
	Saturation *float64 `json:"saturation"`
}

// EffectsSetting is a partial override of the three effect controls.
type EffectsSetting struct {
	Echo  *float64 `json:"echo"`
	Drift *float64 `json:"drift"`
	Break *float64 `json:"break"`
}

// AnalyzerSetting is a partial override of the beat-detection tuning.
type AnalyzerSetting struct {
	BeatSigmaMult  *float64 `json:"beat_sigma_mult"`
	BeatRiseFactor *float64 `json:"beat_rise_factor"`
	BeatFluxFloor  *float64 `json:"beat_flux_floor"`
	BeatCooldownMs *float64 `json:"beat_cooldown_ms"`
}

// Preset is the fully resolved parameter set.
type Preset struct {
	Visual   engine.VisualizerParams
	Effects  fxchain.Params
	Analyzer analyzer.Config
}

// Default returns the preset used when no file is given.
func Default() Preset {
	return Preset{
		Visual:   engine.NewDefaultVisualizerParams(),
		Effects:  fxchain.NewDefaultParams(),
		Analyzer: analyzer.DefaultConfig(),
	}
}

// LoadJSON loads a preset JSON file and applies it on top of defaults.
func LoadJSON(path string) (Preset, error) {
	p := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return p, fmt.Errorf("preset %s: %w", path, err)
	}
	if err := ApplyFile(&p, &f); err != nil {
		return p, fmt.Errorf("preset %s: %w", path, err)
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing preset.
func ApplyFile(dst *Preset, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination preset")
	}
	if f == nil {
		return nil
	}
	if f.Visual != nil {
		if err := applyControl(&dst.Visual.Dose, f.Visual.Dose, "visual.dose"); err != nil {
			return err
		}
		if err := applyControl(&dst.Visual.Symmetry, f.Visual.Symmetry, "visual.symmetry"); err != nil {
			return err
		}
		if err := applyControl(&dst.Visual.Recursion, f.Visual.Recursion, "visual.recursion"); err != nil {
			return err
		}
		if err := applyControl(&dst.Visual.Breathing, f.Visual.Breathing, "visual.breathing"); err != nil {
			return err
		}
		if err := applyControl(&dst.Visual.Flow, f.Visual.Flow, "visual.flow"); err != nil {
			return err
		}
		if err := applyControl(&dst.Visual.Saturation, f.Visual.Saturation, "visual.saturation"); err != nil {
			return err
		}
	}
	if f.Effects != nil {
		if err := applyControl(&dst.Effects.Echo, f.Effects.Echo, "effects.echo"); err != nil {
			return err
		}
		if err := applyControl(&dst.Effects.Drift, f.Effects.Drift, "effects.drift"); err != nil {
			return err
		}
		if err := applyControl(&dst.Effects.Break, f.Effects.Break, "effects.break"); err != nil {
			return err
		}
	}
	if f.Analyzer != nil {
		a := f.Analyzer
		if a.BeatSigmaMult != nil {
			if *a.BeatSigmaMult <= 0 {
				return fmt.Errorf("analyzer.beat_sigma_mult must be > 0")
			}
			dst.Analyzer.BeatSigmaMult = *a.BeatSigmaMult
		}
		if a.BeatRiseFactor != nil {
			if *a.BeatRiseFactor < 1 {
				return fmt.Errorf("analyzer.beat_rise_factor must be >= 1")
			}
			dst.Analyzer.BeatRiseFactor = *a.BeatRiseFactor
		}
		if a.BeatFluxFloor != nil {
			if *a.BeatFluxFloor < 0 {
				return fmt.Errorf("analyzer.beat_flux_floor must be >= 0")
			}
			dst.Analyzer.BeatFluxFloor = *a.BeatFluxFloor
		}
		if a.BeatCooldownMs != nil {
			if *a.BeatCooldownMs < 0 {
				return fmt.Errorf("analyzer.beat_cooldown_ms must be >= 0")
			}
			dst.Analyzer.BeatCooldownMs = *a.BeatCooldownMs
		}
	}
	return nil
}

func applyControl(dst *float64, src *float64, name string) error {
	if src == nil {
		return nil
	}
	if *src < 0 || *src > 1 {
		return fmt.Errorf("%s must be in [0, 1]: %g", name, *src)
	}
	*dst = *src
	return nil
}
