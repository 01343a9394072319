package generator

import (
	"log"

	"github.com/ColonelBlimp/cwengine/internal/cwerr"
	"github.com/ColonelBlimp/cwengine/internal/morse"
	"github.com/ColonelBlimp/cwengine/internal/tonequeue"
)

// EnqueueRepresentation validates rep, enqueues each symbol as a mark
// followed by an inter-mark-space, then appends an inter-character-space.
// Fails with Again if the queue is already at its high-water mark.
func (g *Generator) EnqueueRepresentation(rep string) error {
	if !morse.IsValidRepresentationSyntax(rep) {
		return invalidArg("invalid representation syntax")
	}
	if g.Queue().IsFull() {
		return cwerr.New(cwerr.Again, "generator.EnqueueRepresentation", "queue at high-water mark")
	}
	if err := g.enqueueSymbols(rep); err != nil {
		return err
	}
	return g.EnqueueInterCharacterSpace()
}

// EnqueueRepresentationNoICS is like EnqueueRepresentation but omits the
// trailing inter-character-space.
func (g *Generator) EnqueueRepresentationNoICS(rep string) error {
	if !morse.IsValidRepresentationSyntax(rep) {
		return invalidArg("invalid representation syntax")
	}
	if g.Queue().IsFull() {
		return cwerr.New(cwerr.Again, "generator.EnqueueRepresentationNoICS", "queue at high-water mark")
	}
	return g.enqueueSymbols(rep)
}

func (g *Generator) enqueueSymbols(rep string) error {
	d := g.durations()
	for i, sym := range rep {
		dur := d.Dot
		if sym == '-' {
			dur = d.Dash
		}
		tone := tonequeue.Tone{
			FrequencyHz:      g.Frequency(),
			DurationUs:       dur,
			Slope:            tonequeue.StandardSlopes,
			FirstOfCharacter: i == 0,
		}
		if err := g.Queue().Enqueue(tone); err != nil {
			g.resetSpaceUnits()
			return err
		}
		g.setSpaceUnits(0)

		ims := tonequeue.Tone{DurationUs: d.InterMarkSpace, Slope: tonequeue.NoSlopes}
		if err := g.Queue().Enqueue(ims); err != nil {
			g.resetSpaceUnits()
			return err
		}
		g.setSpaceUnits(1)
	}
	return nil
}

// EnqueueCharacter looks up c's representation and enqueues it with a
// trailing inter-character-space. ' ' is treated as
// EnqueueInterWordSpace. Fails with NotFound if c has no representation.
func (g *Generator) EnqueueCharacter(c rune) error {
	if c == ' ' {
		return g.EnqueueInterWordSpace()
	}
	rep, ok := morse.RepresentationOf(c)
	if !ok {
		return cwerr.New(cwerr.NotFound, "generator.EnqueueCharacter", "no representation for character")
	}
	return g.EnqueueRepresentation(rep)
}

// EnqueueCharacterNoICS is like EnqueueCharacter but omits the trailing
// inter-character-space.
func (g *Generator) EnqueueCharacterNoICS(c rune) error {
	if c == ' ' {
		return g.EnqueueInterWordSpace()
	}
	rep, ok := morse.RepresentationOf(c)
	if !ok {
		return cwerr.New(cwerr.NotFound, "generator.EnqueueCharacterNoICS", "no representation for character")
	}
	return g.EnqueueRepresentationNoICS(rep)
}

// EnqueueString validates then enqueues every character of s with an
// inter-character-space after each.
func (g *Generator) EnqueueString(s string) error {
	for _, c := range s {
		if c != ' ' && !morse.IsValidCharacter(c) {
			return cwerr.New(cwerr.NotFound, "generator.EnqueueString", "no representation for character")
		}
	}
	for _, c := range s {
		if err := g.EnqueueCharacter(c); err != nil {
			return err
		}
	}
	return nil
}

// EnqueueInterCharacterSpace enqueues a space shortened by whatever space
// units are already pending (spec.md §4.7): the target is ics units,
// reduced by 1 (a just-enqueued inter-mark-space) or left full on any
// other valid antecedent count (0, 3, 7). An invalid antecedent count logs
// and falls back to the full ics duration.
func (g *Generator) EnqueueInterCharacterSpace() error {
	d := g.durations()
	units := g.spaceUnits()

	target := d.InterCharSpace
	switch units {
	case 0, 3, 7:
		// already at or past ics; nothing to shorten.
	case 1:
		target -= d.InterMarkSpace // the ims already enqueued covers one unit
	default:
		log.Printf("generator: invalid antecedent space-unit count %d before ics, using full duration", units)
	}
	target += d.AdditionalSpace

	tone := tonequeue.Tone{DurationUs: target, Slope: tonequeue.NoSlopes}
	if err := g.Queue().Enqueue(tone); err != nil {
		g.resetSpaceUnits()
		return err
	}
	g.setSpaceUnits(3)
	return nil
}

// EnqueueInterWordSpace enqueues an inter-word-space, shortened by any
// pending 1 or 3 space units, split into N sub-tones (N = 2 unless
// SetDebugIWSSplit sets another count, 1 included) so that a
// low-water-mark == 1 listener reliably observes the 2->1 transition
// (spec.md §4.7). A nonzero Farnsworth adjustment-space is appended as a
// separate trailing tone.
func (g *Generator) EnqueueInterWordSpace() error {
	d := g.durations()
	units := g.spaceUnits()

	target := d.InterWordSpace
	switch units {
	case 1:
		target -= d.InterMarkSpace // the ims already enqueued covers one unit
	case 3:
		target -= d.InterCharSpace // the ics already enqueued covers three units
	case 0, 7:
		// already full width.
	default:
		log.Printf("generator: invalid antecedent space-unit count %d before iws, using full duration", units)
	}

	n := g.debugIWSSplit()
	if n < 1 {
		n = 1
	}
	per := target / int64(n)
	remainder := target - per*int64(n-1)
	for i := 0; i < n; i++ {
		dur := per
		if i == n-1 {
			dur = remainder
		}
		tone := tonequeue.Tone{DurationUs: dur, Slope: tonequeue.NoSlopes}
		if err := g.Queue().Enqueue(tone); err != nil {
			g.resetSpaceUnits()
			return err
		}
	}

	if d.AdjustmentSpace > 0 {
		adj := tonequeue.Tone{DurationUs: d.AdjustmentSpace, Slope: tonequeue.NoSlopes}
		if err := g.Queue().Enqueue(adj); err != nil {
			g.resetSpaceUnits()
			return err
		}
	}

	g.setSpaceUnits(7)
	return nil
}

// BeginMark enqueues a rising-slope forever tone at the generator's
// current frequency, used for key-down events (spec.md §4.7).
func (g *Generator) BeginMark() error {
	tone := tonequeue.Tone{
		FrequencyHz: g.Frequency(),
		DurationUs:  tonequeue.ForeverQuantumUs,
		Slope:       tonequeue.RisingOnly,
		Forever:     true,
	}
	if err := g.Queue().Enqueue(tone); err != nil {
		return err
	}
	g.setSpaceUnits(0)
	return nil
}

// BeginSpace enqueues a falling-slope tone, optionally followed by a
// silent forever tone to keep a sample-based sink's callback alive
// between key-up and the next key-down (spec.md §4.7).
func (g *Generator) BeginSpace(keepAlive bool) error {
	fall := tonequeue.Tone{DurationUs: tonequeue.ForeverQuantumUs, Slope: tonequeue.FallingOnly}
	if err := g.Queue().Enqueue(fall); err != nil {
		return err
	}
	if keepAlive {
		silent := tonequeue.Tone{DurationUs: tonequeue.ForeverQuantumUs, Forever: true}
		if err := g.Queue().Enqueue(silent); err != nil {
			return err
		}
	}
	return nil
}

// EnqueueKeyerSymbol enqueues a single dot or dash with standard slopes
// (spec.md §4.7's keyer symbol event). Pass false for dash to send a dot.
func (g *Generator) EnqueueKeyerSymbol(dash bool) error {
	d := g.durations()
	dur := d.Dot
	if dash {
		dur = d.Dash
	}
	tone := tonequeue.Tone{FrequencyHz: g.Frequency(), DurationUs: dur, Slope: tonequeue.StandardSlopes}
	if err := g.Queue().Enqueue(tone); err != nil {
		g.resetSpaceUnits()
		return err
	}
	g.setSpaceUnits(0)
	return nil
}

// EnqueueKeyerInterMarkSpace enqueues a no-slopes inter-mark-space, the
// gap a keyer inserts between symbols of one character.
func (g *Generator) EnqueueKeyerInterMarkSpace() error {
	d := g.durations()
	tone := tonequeue.Tone{DurationUs: d.InterMarkSpace, Slope: tonequeue.NoSlopes}
	return g.Queue().Enqueue(tone)
}

func (g *Generator) spaceUnits() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.spaceUnitsCount
}

func (g *Generator) setSpaceUnits(n int) {
	g.mu.Lock()
	g.spaceUnitsCount = n
	g.mu.Unlock()
}

func (g *Generator) resetSpaceUnits() { g.setSpaceUnits(0) }

// debugIWSSplit returns the configured number of sub-tones an
// inter-word-space is split into. Overridable for tests that need to
// observe the low-water 2->1 transition with a coarser split than the
// production default.
func (g *Generator) debugIWSSplit() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.iwsSplitOverride > 0 {
		return g.iwsSplitOverride
	}
	return 2
}

// SetDebugIWSSplit overrides the inter-word-space sub-tone count. Passing
// 0 restores the default (2). Exposed for tests exercising the
// low-water-callback edge at N == 1, per spec.md's debug hook.
func (g *Generator) SetDebugIWSSplit(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.iwsSplitOverride = n
}
