package receiver

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// StatKind identifies which element a deviation sample belongs to
// (spec.md §4.10).
type StatKind int

const (
	KindDot StatKind = iota
	KindDash
	KindIms
	KindIcsSpace
)

// maxStatSamples bounds each kind's deviation history. spec.md §9 notes a
// fixed 256-sample ring is "acceptable but coarse" and suggests per-kind
// accumulators for O(1) query instead; this keeps a small bounded slice
// per kind (not one shared ring) so a busy kind can't starve a quiet one
// out of the window.
const maxStatSamples = 256

// Statistics accumulates per-kind deviation samples (observed − ideal, in
// microseconds) and reports their RMS via gonum/stat, per spec.md §4.10.
type Statistics struct {
	samples [4][]float64
}

// recordDeviation appends one (kind, delta) sample, evicting the oldest
// sample for that kind once maxStatSamples is reached.
func (r *Receiver) recordDeviation(kind StatKind, observed, ideal int64) {
	delta := float64(observed - ideal)
	s := &r.stats.samples[kind]
	if len(*s) >= maxStatSamples {
		*s = (*s)[1:]
	}
	*s = append(*s, delta)
}

// RMS returns sqrt(mean(delta^2)) for kind, or 0 if no samples have been
// recorded yet. The mean-of-squares reduction uses gonum/stat.Mean over a
// squared copy of the deviation samples.
func (stats Statistics) RMS(kind StatKind) float64 {
	samples := stats.samples[kind]
	if len(samples) == 0 {
		return 0
	}
	squared := make([]float64, len(samples))
	for i, d := range samples {
		squared[i] = d * d
	}
	return math.Sqrt(stat.Mean(squared, nil))
}

// Overall returns the RMS deviation across every kind combined, for a
// single-number health indicator instead of four per-kind ones.
func (stats Statistics) Overall() float64 {
	var squared []float64
	for _, samples := range stats.samples {
		for _, d := range samples {
			squared = append(squared, d*d)
		}
	}
	if len(squared) == 0 {
		return 0
	}
	return math.Sqrt(stat.Mean(squared, nil))
}

// GetStatistics returns a snapshot of the receiver's accumulated
// deviation statistics.
func (r *Receiver) GetStatistics() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Statistics{}
	for k := range r.stats.samples {
		out.samples[k] = append([]float64(nil), r.stats.samples[k]...)
	}
	return out
}
