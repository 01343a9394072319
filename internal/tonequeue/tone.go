// Package tonequeue implements the bounded, thread-safe producer/consumer
// ring of tone descriptors described in spec.md §3/§4.3: a fixed-capacity
// circular buffer with a low-water callback and wait/flush primitives.
//
// Grounded on spec.md §4.3 and §9 (the "forever tone" is modelled as a
// peek-and-leave dequeue variant rather than a flag the caller must
// interpret). Concurrency shape generalises the teacher's atomic-pointer
// callback idiom (internal/audio/capture.go, internal/dsp/detector.go) into
// a condvar-based design, since spec.md requires genuinely blocking waiters
// which an atomic pointer cannot express.
package tonequeue

// Frequency bounds a Tone's nonzero frequency must fall within (spec.md
// §3's FREQ_MIN/FREQ_MAX), independent of the generator's user-facing
// frequency parameter range (spec.md §6: [0, 4000] Hz, 0 permitted as a
// special "silence" value).
const (
	FreqMin = 20
	FreqMax = 4000

	// QueueCapMax is the hard ceiling on queue capacity (spec.md §3).
	QueueCapMax = 3000

	// ForeverQuantumUs is the fixed duration a "forever" tone carries; it
	// is re-emitted by Dequeue until displaced, so its actual audible
	// length is unbounded and this is just the bookkeeping quantum.
	ForeverQuantumUs int64 = 2000
)

// SlopeMode selects which edges of a tone get envelope shaping.
type SlopeMode int

const (
	NoSlopes SlopeMode = iota
	RisingOnly
	FallingOnly
	StandardSlopes
)

// Tone is one mark or space descriptor. FrequencyHz == 0 means silence.
// The sample-space fields (NSamples, RisingSlopeNSamples,
// FallingSlopeNSamples, SampleIterator) are zero when enqueued and filled
// in by internal/synth at play time.
type Tone struct {
	FrequencyHz int
	DurationUs  int64
	Slope       SlopeMode
	Forever     bool

	// FirstOfCharacter marks the first tone of a character, so
	// RemoveLastCharacter knows where to stop walking backwards.
	FirstOfCharacter bool

	// Derived sample-space fields, computed by internal/synth.PrepareTone.
	NSamples             int
	RisingSlopeNSamples  int
	FallingSlopeNSamples int
	SampleIterator       int
}

// Validate checks the invariants spec.md §3 states for a Tone: duration >=
// 0, and frequency either 0 or within [FreqMin, FreqMax] — except a
// forever tone, whose duration must equal the re-emission quantum.
func (t Tone) Validate() error {
	if t.DurationUs < 0 {
		return invalidArg("duration must be >= 0")
	}
	if t.Forever {
		if t.DurationUs != ForeverQuantumUs {
			return invalidArg("forever tone duration must equal the re-emission quantum")
		}
		return nil
	}
	if t.FrequencyHz != 0 && (t.FrequencyHz < FreqMin || t.FrequencyHz > FreqMax) {
		return invalidArg("frequency must be 0 or within [FreqMin, FreqMax]")
	}
	return nil
}
