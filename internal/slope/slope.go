// Package slope computes the precomputed envelope amplitude table used to
// shape the rising/falling edges of a tone (spec.md §4.4). The table ramps
// from 0 to the absolute volume and is reused for both the rising
// (iterate 0→N) and falling (iterate N→0) edge of a tone.
package slope

import (
	"errors"
	"math"
)

// Shape selects the envelope curve. Rectangular forces slope length to 0:
// the table is unused and the tone's edges are instantaneous.
type Shape int

const (
	Linear Shape = iota
	Sine
	RaisedCosine
	Rectangular
)

// ErrRectangularWithDuration is returned by Table.Set when a rectangular
// shape is requested together with a nonzero slope duration.
var ErrRectangularWithDuration = errors.New("slope: rectangular shape requires zero duration")

// NoChange is the sentinel spec.md §4.4 calls "-1": pass it for shape or
// durationUs to leave that field unchanged in a partial Set call.
const NoChange = -1

// Table holds the current shape/duration and the precomputed amplitude
// samples. It is reallocated only when N (the sample count implied by
// sample rate and slope duration) changes, and recomputed whenever the
// shape or the absolute volume changes.
type Table struct {
	shape      Shape
	durationUs int64
	sampleRate int
	volume     float64 // absolute volume, 0..32767-ish PCM amplitude scale

	amplitudes []float64 // length N; reused for rising (fwd) and falling (rev)
}

// NewTable creates a Table for the given shape/duration/sample-rate/volume.
// A rectangular shape forces durationUs to 0 regardless of the value passed.
func NewTable(shape Shape, durationUs int64, sampleRate int, volume float64) *Table {
	t := &Table{sampleRate: sampleRate, volume: volume}
	// Construction never fails: invalid combinations here silently normalise
	// to rectangular/zero, mirroring Set's "S,-1 forces duration 0" rule.
	if shape == Rectangular {
		durationUs = 0
	}
	t.shape = shape
	t.durationUs = durationUs
	t.recompute()
	return t
}

// Shape returns the current envelope shape.
func (t *Table) Shape() Shape { return t.shape }

// DurationUs returns the current slope duration in microseconds.
func (t *Table) DurationUs() int64 { return t.durationUs }

// N returns the current number of samples in a single (rising or falling)
// slope, derived from sample rate and slope duration.
func (t *Table) N() int {
	return sampleCount(t.sampleRate, t.durationUs)
}

// Amplitudes returns the current precomputed table (length N). Rectangular
// shapes return a nil/empty slice: the table is unused by design.
func (t *Table) Amplitudes() []float64 {
	return t.amplitudes
}

// Set updates shape and/or duration. Pass NoChange for either argument to
// leave it unchanged (spec.md §4.4's "-1" convention). A rectangular shape
// combined with a nonzero duration fails with ErrRectangularWithDuration;
// setting shape to rectangular while leaving duration unspecified forces the
// duration to 0 instead of failing.
func (t *Table) Set(shape int, durationUs int64) error {
	if shape == NoChange && durationUs == NoChange {
		return nil
	}

	newShape := t.shape
	if shape != NoChange {
		newShape = Shape(shape)
	}
	newDuration := t.durationUs
	if durationUs != NoChange {
		newDuration = durationUs
	}

	if newShape == Rectangular {
		if shape != NoChange && durationUs != NoChange && durationUs > 0 {
			return ErrRectangularWithDuration
		}
		newDuration = 0
	}

	before := t.N()
	shapeChanged := newShape != t.shape
	t.shape = newShape
	t.durationUs = newDuration
	after := sampleCount(t.sampleRate, t.durationUs)
	if before != after || shapeChanged {
		t.recompute()
	}
	return nil
}

// SetSampleRate updates the sample rate the table derives N from, and
// recomputes if N changes as a result.
func (t *Table) SetSampleRate(sampleRate int) {
	before := t.N()
	t.sampleRate = sampleRate
	after := sampleCount(t.sampleRate, t.durationUs)
	if before != after {
		t.recompute()
	}
}

// SetVolume updates the absolute volume the table ramps to, and always
// recomputes (the table's values, not just its length, depend on volume).
func (t *Table) SetVolume(volume float64) {
	t.volume = volume
	t.recompute()
}

func (t *Table) recompute() {
	n := sampleCount(t.sampleRate, t.durationUs)
	if t.shape == Rectangular || n <= 0 {
		t.amplitudes = nil
		return
	}
	amps := make([]float64, n)
	switch t.shape {
	case Linear:
		for k := 0; k < n; k++ {
			amps[k] = t.volume * float64(k) / float64(n)
		}
	case Sine:
		for k := 0; k < n; k++ {
			amps[k] = t.volume * math.Sin(float64(k)*math.Pi/2/float64(n))
		}
	case RaisedCosine:
		for k := 0; k < n; k++ {
			amps[k] = t.volume * (1 - (1+math.Cos(float64(k)*math.Pi/float64(n)))/2)
		}
	default:
		amps = nil
	}
	t.amplitudes = amps
}

// sampleCount derives N = (sampleRate/100) * durationUs / 10000, per
// spec.md §4.4.
func sampleCount(sampleRate int, durationUs int64) int {
	if durationUs <= 0 || sampleRate <= 0 {
		return 0
	}
	return int((int64(sampleRate/100) * durationUs) / 10000)
}
