// Package synth synthesises PCM samples for a Tone over a buffer
// sub-range, carrying sine phase continuously across synthesis calls so
// fragment boundaries (where one tone ends mid-buffer and the next
// begins) produce no audible click (spec.md §4.5).
package synth

import (
	"math"

	"github.com/ColonelBlimp/cwengine/internal/slope"
	"github.com/ColonelBlimp/cwengine/internal/tonequeue"
)

// Phase tracks the carried sine phase for one generator's sample stream.
// It is owned by the generator worker and passed to Synthesize on every
// call; callers must not share one Phase across concurrent streams.
type Phase struct {
	offset float64 // radians, normalised to [0, 2π)
}

// Reset zeroes the carried phase, used at generator start-up (spec.md
// §4.6: "on start, reset phase").
func (p *Phase) Reset() { p.offset = 0 }

// PrepareTone fills in a Tone's derived sample-space fields (NSamples,
// RisingSlopeNSamples, FallingSlopeNSamples) from its duration, the
// sample rate, and the slope table currently configured for its edges.
// Recalculation formulas per spec.md §4.5.
func PrepareTone(t *tonequeue.Tone, sampleRate int, slopeTable *slope.Table) {
	t.NSamples = int(int64(sampleRate) * t.DurationUs / 1_000_000)

	slopeSamples := slopeTable.N()
	if slopeSamples > t.NSamples/2 {
		slopeSamples = t.NSamples / 2
	}

	switch t.Slope {
	case tonequeue.StandardSlopes:
		t.RisingSlopeNSamples = slopeSamples
		t.FallingSlopeNSamples = slopeSamples
	case tonequeue.RisingOnly:
		t.RisingSlopeNSamples = slopeSamples
		t.FallingSlopeNSamples = 0
	case tonequeue.FallingOnly:
		t.RisingSlopeNSamples = 0
		t.FallingSlopeNSamples = slopeSamples
	default: // NoSlopes
		t.RisingSlopeNSamples = 0
		t.FallingSlopeNSamples = 0
	}
}

// Synthesize fills buf[start:stop+1] (inclusive range, matching spec.md's
// convention) with samples for tone, advancing tone.SampleIterator and the
// carried phase as it goes. sampleRate and volume are the generator's
// current settings; slopeTable supplies the envelope ramp.
//
// It returns the number of samples written, which is always
// stop-start+1 unless the tone runs out of NSamples first (the caller is
// expected to size [start, stop] to not overrun the tone).
func Synthesize(buf []int16, start, stop int, tone *tonequeue.Tone, phase *Phase, sampleRate int, volume float64, slopeTable *slope.Table) int {
	silent := tone.FrequencyHz <= 0 || tone.DurationUs == 0
	amps := slopeTable.Amplitudes()

	written := 0
	t := 0.0
	dt := 1.0 / float64(sampleRate)
	angularFreq := 2 * math.Pi * float64(tone.FrequencyHz)

	for i := start; i <= stop && tone.SampleIterator < tone.NSamples; i++ {
		amplitude := volume
		switch {
		case tone.SampleIterator < tone.RisingSlopeNSamples && len(amps) > 0:
			amplitude = amps[tone.SampleIterator]
		case tone.SampleIterator >= tone.NSamples-tone.FallingSlopeNSamples && len(amps) > 0:
			idx := tone.NSamples - tone.SampleIterator - 1
			amplitude = amps[idx]
		}

		var sample float64
		if silent {
			sample = 0
		} else {
			ph := angularFreq*t + phase.offset
			sample = amplitude * math.Sin(ph)
		}
		buf[i] = int16(sample)

		tone.SampleIterator++
		t += dt
		written++
	}

	if !silent {
		ph := math.Mod(angularFreq*t+phase.offset, 2*math.Pi)
		if ph < 0 {
			ph += 2 * math.Pi
		}
		phase.offset = ph
	}

	return written
}

// PaddingTone builds a silent tone sized to exactly fill n samples, used
// by the worker when the queue drains mid-buffer (spec.md §4.5).
func PaddingTone(n int) tonequeue.Tone {
	return tonequeue.Tone{
		FrequencyHz: 0,
		NSamples:    n,
		Slope:       tonequeue.NoSlopes,
	}
}

// SilencingTone builds a falling-slope tone of at least minSamples,
// derived from the previous tone's slope state, used by the worker to
// drop cleanly to zero when a silencing request arrives (spec.md §4.5,
// §4.6 step 3).
func SilencingTone(prev tonequeue.Tone, minSamples int, slopeTable *slope.Table) tonequeue.Tone {
	n := slopeTable.N()
	if n < minSamples {
		n = minSamples
	}
	return tonequeue.Tone{
		FrequencyHz:          prev.FrequencyHz,
		NSamples:             n,
		Slope:                tonequeue.FallingOnly,
		FallingSlopeNSamples: slopeTable.N(),
	}
}
