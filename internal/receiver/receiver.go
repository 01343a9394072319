// Package receiver implements the mark/space classification state machine
// described in spec.md §4.9: given caller-supplied timestamps at the
// boundaries of marks, it builds up a dot/dash representation and signals
// character/word boundaries, with optional adaptive speed tracking.
//
// Grounded on spec.md §9's redesign note: classification ("what kind of
// mark is this duration") is kept separate from state transition ("what
// state does the receiver move to"), unlike the teacher's
// internal/cw/morse.go tree-walk decoder which conflates the two.
package receiver

import (
	"log"
	"sync"

	"github.com/ColonelBlimp/cwengine/internal/cwerr"
	"github.com/ColonelBlimp/cwengine/internal/morse"
	"github.com/ColonelBlimp/cwengine/internal/timing"
)

// State is the receiver's current position in spec.md §4.9's state
// machine.
type State int

const (
	Idle State = iota
	InTone
	AfterTone
	EndChar
	EndWord
	ErrChar
	ErrWord
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InTone:
		return "in-tone"
	case AfterTone:
		return "after-tone"
	case EndChar:
		return "end-char"
	case EndWord:
		return "end-word"
	case ErrChar:
		return "err-char"
	case ErrWord:
		return "err-word"
	default:
		return "unknown"
	}
}

// maxRepresentationLen bounds the representation buffer; spec.md doesn't
// name an exact figure, so this follows the longest standard Morse
// representation plus headroom for malformed input before ErrChar fires.
const maxRepresentationLen = 16

// defaultNoiseSpikeThresholdUs is the default floor below which a
// mark-end duration is treated as noise rather than a real dot, per
// original_source/ (the C receiver's NOISE_SPIKE_THRESHOLD default, not
// stated numerically in spec.md).
const defaultNoiseSpikeThresholdUs = 10_000

// Receiver holds the classification state machine for one incoming CW
// stream. Not safe for concurrent calls (spec.md §5: "called from one
// task at a time").
type Receiver struct {
	mu sync.Mutex

	params              timing.ReceiverParams
	limits              timing.ReceiverLimits
	noiseSpikeThreshold int64

	state State
	rep   [maxRepresentationLen]byte
	repN  int

	toneStart int64
	toneEnd   int64
	haveEnd   bool

	adaptive    bool
	avgDot      float64
	avgDash     float64
	initialized bool

	stats Statistics
}

// New creates a Receiver for the given parameters.
func New(p timing.ReceiverParams) *Receiver {
	r := &Receiver{
		params:              p,
		limits:              timing.DeriveReceiverLimits(p),
		noiseSpikeThreshold: defaultNoiseSpikeThresholdUs,
		adaptive:            p.Adaptive,
	}
	return r
}

// SetSpeed sets the receiver's fixed-mode (or adaptive seed) speed in wpm.
func (r *Receiver) SetSpeed(wpm int) error {
	if wpm < 4 || wpm > 60 {
		return cwerr.New(cwerr.InvalidArgument, "receiver.SetSpeed", "speed out of range")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params.SpeedWPM = wpm
	r.limits = timing.DeriveReceiverLimits(r.params)
	return nil
}

// Speed returns the receiver's current speed in wpm.
func (r *Receiver) Speed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params.SpeedWPM
}

// SetTolerance sets the fixed-mode classification tolerance percentage.
// Fails with Permission in adaptive mode.
func (r *Receiver) SetTolerance(pct int) error {
	if pct < 0 || pct > 100 {
		return cwerr.New(cwerr.InvalidArgument, "receiver.SetTolerance", "tolerance out of range")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adaptive {
		return cwerr.New(cwerr.Permission, "receiver.SetTolerance", "tolerance is fixed-mode only")
	}
	r.params.TolerancePct = pct
	r.limits = timing.DeriveReceiverLimits(r.params)
	return nil
}

// Tolerance returns the current fixed-mode tolerance percentage.
func (r *Receiver) Tolerance() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params.TolerancePct
}

// SetNoiseSpikeThreshold sets the minimum mark duration (µs) treated as a
// real tone rather than noise.
func (r *Receiver) SetNoiseSpikeThreshold(us int64) error {
	if us < 0 {
		return cwerr.New(cwerr.InvalidArgument, "receiver.SetNoiseSpikeThreshold", "threshold must be >= 0")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.noiseSpikeThreshold = us
	return nil
}

// NoiseSpikeThreshold returns the current noise-spike threshold in µs.
func (r *Receiver) NoiseSpikeThreshold() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.noiseSpikeThreshold
}

// SetAdaptive enables or disables adaptive speed tracking.
func (r *Receiver) SetAdaptive(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adaptive = on
	r.params.Adaptive = on
	r.limits = timing.DeriveReceiverLimits(r.params)
	if !on {
		r.initialized = false
	}
}

// IsAdaptive reports whether adaptive speed tracking is enabled.
func (r *Receiver) IsAdaptive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adaptive
}

// GetReceiveBufferLength returns the number of symbols in the
// representation buffer.
func (r *Receiver) GetReceiveBufferLength() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repN
}

// GetReceiveBufferCapacity returns the representation buffer's capacity.
func (r *Receiver) GetReceiveBufferCapacity() int { return maxRepresentationLen }

// State returns the receiver's current state.
func (r *Receiver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ClearBuffer empties the representation buffer and returns to Idle.
func (r *Receiver) ClearBuffer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repN = 0
	r.state = Idle
}

// Reset clears the buffer and zeroes the statistics accumulators.
func (r *Receiver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repN = 0
	r.state = Idle
	r.stats = Statistics{}
	r.initialized = false
}

// MarkBegin records the start of a mark at ts. Legal from Idle or
// AfterTone; any other state fails with OutOfRange. From AfterTone, the
// elapsed space since the previous tone-end is recorded as an
// ims-statistics sample.
func (r *Receiver) MarkBegin(ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case Idle:
		r.toneStart = ts
		r.state = InTone
		return nil
	case AfterTone:
		if r.haveEnd {
			r.recordDeviation(KindIms, ts-r.toneEnd, r.limits.InterMarkSpace.Ideal)
		}
		r.toneStart = ts
		r.state = InTone
		return nil
	default:
		return cwerr.New(cwerr.OutOfRange, "receiver.MarkBegin", "not legal from state "+r.state.String())
	}
}

// MarkEnd records the end of a mark at ts, classifies its duration, and
// appends a dot or dash to the representation buffer. A duration at or
// below the noise-spike threshold reverts the state and signals Again
// instead of appending anything.
func (r *Receiver) MarkEnd(ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != InTone {
		return cwerr.New(cwerr.OutOfRange, "receiver.MarkEnd", "not legal from state "+r.state.String())
	}

	length := ts - r.toneStart
	if length <= r.noiseSpikeThreshold {
		if r.repN == 0 {
			r.state = Idle
		} else {
			r.state = AfterTone
		}
		return cwerr.New(cwerr.Again, "receiver.MarkEnd", "noise spike, ignored")
	}

	kind, isDot, classified := classifyMark(length, r.limits)
	if !classified {
		if length > r.limits.InterCharSpace.Max {
			r.state = ErrWord
		} else {
			r.state = ErrChar
		}
		return cwerr.New(cwerr.NotFound, "receiver.MarkEnd", "duration matches no mark range")
	}

	if r.repN >= maxRepresentationLen {
		r.state = ErrChar
		return cwerr.New(cwerr.NoMemory, "receiver.MarkEnd", "representation buffer full")
	}

	sym := byte('-')
	if isDot {
		sym = '.'
	}
	r.rep[r.repN] = sym
	r.repN++

	ideal := r.limits.Dot.Ideal
	if !isDot {
		ideal = r.limits.Dash.Ideal
	}
	r.recordDeviation(kind, length, ideal)

	if r.adaptive {
		r.updateAdaptive(length, isDot)
	}

	r.toneEnd = ts
	r.haveEnd = true
	r.state = AfterTone
	return nil
}

// AddDot appends a dot directly, jumping from Idle/AfterTone to
// AfterTone, bypassing mark timing (spec.md §4.9).
func (r *Receiver) AddDot(ts int64) error { return r.addMark(ts, true) }

// AddDash appends a dash directly, jumping from Idle/AfterTone to
// AfterTone, bypassing mark timing (spec.md §4.9).
func (r *Receiver) AddDash(ts int64) error { return r.addMark(ts, false) }

func (r *Receiver) addMark(ts int64, isDot bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Idle && r.state != AfterTone {
		return cwerr.New(cwerr.OutOfRange, "receiver.AddMark", "not legal from state "+r.state.String())
	}
	if r.repN >= maxRepresentationLen {
		r.state = ErrChar
		return cwerr.New(cwerr.NoMemory, "receiver.AddMark", "representation buffer full")
	}
	sym := byte('-')
	if isDot {
		sym = '.'
	}
	r.rep[r.repN] = sym
	r.repN++
	r.toneEnd = ts
	r.haveEnd = true
	r.state = AfterTone
	return nil
}

// PollRepresentation reports the current representation buffer's
// contents, end-of-word status, and whether the boundary resolved as
// EndChar/EndWord or an error state.
func (r *Receiver) PollRepresentation(ts int64) (rep string, endOfWord bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case EndWord, ErrWord:
		rep = string(r.rep[:r.repN])
		if r.state == ErrWord {
			return rep, true, cwerr.New(cwerr.NotFound, "receiver.PollRepresentation", "word ended in error")
		}
		return rep, true, nil
	case Idle, InTone:
		return "", false, cwerr.New(cwerr.OutOfRange, "receiver.PollRepresentation", "not ready")
	}

	gap := ts - r.toneEnd
	switch {
	case gap >= r.limits.InterCharSpace.Min && gap <= r.limits.InterCharSpace.Max:
		if r.state == AfterTone {
			r.state = EndChar
		}
		rep = string(r.rep[:r.repN])
		if r.state == ErrChar {
			return rep, false, cwerr.New(cwerr.NotFound, "receiver.PollRepresentation", "character ended in error")
		}
		return rep, false, nil
	case gap > r.limits.InterCharSpace.Max:
		wasErr := r.state == ErrChar
		r.state = EndWord
		if wasErr {
			r.state = ErrWord
		}
		rep = string(r.rep[:r.repN])
		if wasErr {
			return rep, true, cwerr.New(cwerr.NotFound, "receiver.PollRepresentation", "word ended in error")
		}
		return rep, true, nil
	default:
		return "", false, cwerr.New(cwerr.Again, "receiver.PollRepresentation", "gap too short to resolve yet")
	}
}

// PollCharacter composes PollRepresentation with a representation→
// character lookup, failing with NotFound if the representation is not a
// known character.
func (r *Receiver) PollCharacter(ts int64) (c rune, endOfWord bool, err error) {
	rep, eow, err := r.PollRepresentation(ts)
	if err != nil {
		return 0, eow, err
	}
	if rep == "" {
		return 0, eow, nil
	}
	ch, ok := morse.CharacterOf(rep)
	if !ok {
		return 0, eow, cwerr.New(cwerr.NotFound, "receiver.PollCharacter", "representation has no known character")
	}
	return ch, eow, nil
}

// classifyMark reports which mark kind length falls into, if any.
func classifyMark(length int64, limits timing.ReceiverLimits) (kind StatKind, isDot bool, ok bool) {
	if length >= limits.Dot.Min && length <= limits.Dot.Max {
		return KindDot, true, true
	}
	if length >= limits.Dash.Min && length <= limits.Dash.Max {
		return KindDash, false, true
	}
	return 0, false, false
}

func (r *Receiver) updateAdaptive(length int64, isDot bool) {
	const alpha = 0.15 // moving-average weight; favors recent marks without chasing single-sample noise
	if !r.initialized {
		r.avgDot = float64(r.limits.Dot.Ideal)
		r.avgDash = float64(r.limits.Dash.Ideal)
		r.initialized = true
	}
	if isDot {
		r.avgDot = r.avgDot*(1-alpha) + float64(length)*alpha
	} else {
		r.avgDash = r.avgDash*(1-alpha) + float64(length)*alpha
	}

	threshold := r.avgDot + (r.avgDash-r.avgDot)/2
	if threshold <= 0 {
		return
	}
	wpm := int(2 * timing.CAL / int64(threshold)) // threshold spans 2 units
	if wpm < 4 {
		wpm = 4
		log.Printf("receiver: adaptive speed clamped to SPEED_MIN (4 wpm)")
	}
	if wpm > 60 {
		wpm = 60
		log.Printf("receiver: adaptive speed clamped to SPEED_MAX (60 wpm)")
	}
	r.params.SpeedWPM = wpm
	r.limits = timing.DeriveReceiverLimits(r.params)
}

// AdaptiveState reports the receiver's current adaptive-mode tracking
// state: the moving averages and the derived threshold, for diagnostics.
type AdaptiveState struct {
	AvgDotUs     float64
	AvgDashUs    float64
	ThresholdUs  float64
	DerivedSpeed int
}

// GetAdaptiveState returns the current adaptive tracking state.
func (r *Receiver) GetAdaptiveState() AdaptiveState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return AdaptiveState{
		AvgDotUs:     r.avgDot,
		AvgDashUs:    r.avgDash,
		ThresholdUs:  r.avgDot + (r.avgDash-r.avgDot)/2,
		DerivedSpeed: r.params.SpeedWPM,
	}
}
