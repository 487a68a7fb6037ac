// Package analysis scores predicted beat events against labeled onsets.
// It exists so detector tuning can optimize against something objective
// instead of eyeballing blinking lights.
package analysis

import "math"

// Metrics contains match statistics between labeled and predicted beat
// times and a combined score in [0, 1] where lower is better.
type Metrics struct {
	ReferenceBeats int `json:"reference_beats"`
	PredictedBeats int `json:"predicted_beats"`
	Matched        int `json:"matched"`

	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
	FScore        float64 `json:"f_score"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`

	Score float64 `json:"score"`
}

// Compare matches predicted beat times (seconds) against reference onsets
// using a greedy nearest-match within toleranceMs. Each reference onset
// matches at most one prediction and vice versa.
func Compare(reference, predicted []float64, toleranceMs float64) Metrics {
	m := Metrics{
		ReferenceBeats: len(reference),
		PredictedBeats: len(predicted),
	}
	if toleranceMs <= 0 {
		toleranceMs = 80
	}
	tol := toleranceMs / 1000

	usedPred := make([]bool, len(predicted))
	var latencySum float64
	for _, ref := range reference {
		bestIdx := -1
		bestDist := tol
		for i, p := range predicted {
			if usedPred[i] {
				continue
			}
			d := math.Abs(p - ref)
			if d <= bestDist {
				bestDist = d
				bestIdx = i
			}
		}
		if bestIdx >= 0 {
			usedPred[bestIdx] = true
			m.Matched++
			latencySum += (predicted[bestIdx] - ref) * 1000
		}
	}

	if m.PredictedBeats > 0 {
		m.Precision = float64(m.Matched) / float64(m.PredictedBeats)
	}
	if m.ReferenceBeats > 0 {
		m.Recall = float64(m.Matched) / float64(m.ReferenceBeats)
	}
	if m.Precision+m.Recall > 0 {
		m.FScore = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	if m.Matched > 0 {
		m.MeanLatencyMs = latencySum / float64(m.Matched)
	}

	// Lower is better: miss/false-positive cost plus a small penalty for
	// systematic lateness.
	latencyPenalty := math.Min(1, math.Abs(m.MeanLatencyMs)/toleranceMs)
	m.Score = (1 - m.FScore) + 0.1*latencyPenalty
	return m
}
