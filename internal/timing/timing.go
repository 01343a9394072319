// Package timing derives Morse element durations from speed/gap/weighting
// parameters (the generator side) and classification ranges from speed/
// tolerance/adaptive-mode parameters (the receiver side).
//
// Grounded on spec.md §4.2. CAL is the calibration constant such that
// "PARIS " sent once occupies exactly 50 dot-units of time at the given
// words-per-minute speed: unit_us = CAL / wpm.
package timing

// CAL is the PARIS-calibration constant, in microsecond-wpm units.
const CAL = 1_200_000

// GeneratorParams are the inputs a Calculator derives send timings from.
type GeneratorParams struct {
	SpeedWPM     int
	WeightingPct int // [20, 80], 50 = unweighted
	GapUnits     int // [0, 60], Farnsworth additional gap
}

// Durations holds every microsecond duration the generator's enqueue layer
// needs, recomputed from GeneratorParams.
type Durations struct {
	Dot              int64
	Dash             int64
	InterMarkSpace   int64 // ims
	InterCharSpace   int64 // ics
	InterWordSpace   int64 // iws
	AdditionalSpace  int64 // gap * unit
	AdjustmentSpace  int64 // Farnsworth tail: (7 * additional) / 3
}

// Calculator lazily recomputes Durations when GeneratorParams change.
// params_in_sync in spec.md §4.2 is modelled as the dirty bool below: any
// setter that mutates params clears it, and Current() recomputes on demand.
type Calculator struct {
	params  GeneratorParams
	current Durations
	dirty   bool
}

// NewCalculator creates a Calculator for the given initial parameters.
func NewCalculator(p GeneratorParams) *Calculator {
	c := &Calculator{params: p, dirty: true}
	c.recompute()
	return c
}

// SetParams replaces the parameters and marks durations dirty; the next
// Current() call recomputes them.
func (c *Calculator) SetParams(p GeneratorParams) {
	c.params = p
	c.dirty = true
}

// Params returns the current input parameters.
func (c *Calculator) Params() GeneratorParams {
	return c.params
}

// Current returns the derived durations, recomputing first if the
// parameters changed since the last call.
func (c *Calculator) Current() Durations {
	if c.dirty {
		c.recompute()
	}
	return c.current
}

func (c *Calculator) recompute() {
	c.current = Derive(c.params)
	c.dirty = false
}

// Derive computes Durations directly from GeneratorParams, with no cached
// state. Current() is the cached, normal-path entry point; Derive is
// exposed for callers (and tests) that want a pure function.
func Derive(p GeneratorParams) Durations {
	speed := p.SpeedWPM
	if speed <= 0 {
		speed = 1
	}
	unit := int64(CAL / speed)

	weightAdj := (2 * int64(p.WeightingPct-50) * unit) / 100
	dot := unit + weightAdj
	dash := 3 * dot

	w := (28 * weightAdj) / 22
	ims := unit - w
	ics := 3*unit + w
	iws := 7*unit - w

	additional := int64(p.GapUnits) * unit
	adjustment := (7 * additional) / 3

	return Durations{
		Dot:             dot,
		Dash:            dash,
		InterMarkSpace:  ims,
		InterCharSpace:  ics,
		InterWordSpace:  iws,
		AdditionalSpace: additional,
		AdjustmentSpace: adjustment,
	}
}

// ReceiverParams are the inputs receiver classification ranges are derived
// from.
type ReceiverParams struct {
	SpeedWPM     int
	TolerancePct int  // [0, 100], fixed-mode tolerance around ideal
	Adaptive     bool // adaptive vs fixed mode
	GapUnits     int  // Farnsworth gap, used for ics_max extension in fixed mode
}

// Range is an inclusive [Min, Max] duration range in microseconds, with the
// unperturbed target duration kept alongside for statistics.
type Range struct {
	Min   int64
	Ideal int64
	Max   int64
}

// ReceiverLimits holds every classification range the receiver's state
// machine consults, plus the Farnsworth delays used to extend ics_max in
// fixed mode.
type ReceiverLimits struct {
	Dot              Range
	Dash             Range
	InterMarkSpace   Range
	InterCharSpace   Range
	AdditionalDelay  int64
	AdjustmentDelay  int64
}

// DeriveReceiverLimits computes ReceiverLimits from ReceiverParams, per
// spec.md §4.2's fixed/adaptive rules.
func DeriveReceiverLimits(p ReceiverParams) ReceiverLimits {
	speed := p.SpeedWPM
	if speed <= 0 {
		speed = 1
	}
	unit := int64(CAL / speed)

	dotIdeal := unit
	dashIdeal := 3 * unit
	imsIdeal := unit
	icsIdeal := 3 * unit

	additional := int64(p.GapUnits) * unit
	adjustment := (7 * additional) / 3

	if p.Adaptive {
		dot := Range{Min: 0, Ideal: dotIdeal, Max: 2 * dotIdeal}
		dash := Range{Min: dot.Max, Ideal: dashIdeal, Max: maxInt64}
		ims := Range{Min: dot.Min, Ideal: imsIdeal, Max: dot.Max}
		ics := Range{Min: dot.Max + 1, Ideal: icsIdeal, Max: 5 * dotIdeal}
		return ReceiverLimits{
			Dot: dot, Dash: dash, InterMarkSpace: ims, InterCharSpace: ics,
			AdditionalDelay: additional, AdjustmentDelay: adjustment,
		}
	}

	tol := (int64(p.TolerancePct) * dotIdeal) / 100
	dot := Range{Min: clampNonNeg(dotIdeal - tol), Ideal: dotIdeal, Max: dotIdeal + tol}
	dash := Range{Min: dashIdeal - tol, Ideal: dashIdeal, Max: dashIdeal + tol}
	ims := Range{Min: clampNonNeg(imsIdeal - tol), Ideal: imsIdeal, Max: imsIdeal + tol}
	ics := Range{
		Min:   icsIdeal - tol,
		Ideal: icsIdeal,
		Max:   icsIdeal + tol + additional + adjustment,
	}
	return ReceiverLimits{
		Dot: dot, Dash: dash, InterMarkSpace: ims, InterCharSpace: ics,
		AdditionalDelay: additional, AdjustmentDelay: adjustment,
	}
}

const maxInt64 int64 = 1<<63 - 1

func clampNonNeg(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
