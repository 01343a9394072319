// Package generator implements the Morse tone generator: a tone queue
// feeding a worker goroutine that synthesises samples and writes them to a
// Sink, plus the parameter set and enqueue layer described in spec.md §4.6
// and §4.7.
//
// Grounded on spec.md §4.1's Generator field list and the teacher's
// internal/audio capture lifecycle (open/start/stop/close with a running
// flag guarded by a mutex), mirrored here for the playback direction.
package generator

import (
	"sync"
	"sync/atomic"

	"github.com/ColonelBlimp/cwengine/internal/cwerr"
	"github.com/ColonelBlimp/cwengine/internal/sink"
	"github.com/ColonelBlimp/cwengine/internal/slope"
	"github.com/ColonelBlimp/cwengine/internal/synth"
	"github.com/ColonelBlimp/cwengine/internal/timing"
	"github.com/ColonelBlimp/cwengine/internal/tonequeue"
	"github.com/google/uuid"
)

// Parameter bounds, per spec.md §5.
const (
	SpeedMinWPM = 4
	SpeedMaxWPM = 60

	FrequencyMin = 0
	FrequencyMax = 4000

	VolumeMin = 0
	VolumeMax = 100

	GapMin = 0
	GapMax = 60

	WeightingMin = 20
	WeightingMax = 80
)

// KeyValue is the generator's notion of the key/sidetone line: Open means
// silent (mark absent), Closed means sounding (mark present).
type KeyValue int

const (
	Open KeyValue = iota
	Closed
)

// KeyValueCallback is invoked only on Open<->Closed transitions (spec.md
// §4.6: "successive identical values are filtered").
type KeyValueCallback func(label string, value KeyValue)

// Keyer receives mark/space elapsed notifications for external timing
// (e.g. driving a physical key or a practice oscillator).
type Keyer interface {
	NotifyElapsed(forMark bool, durationUs int64)
}

// Generator owns one tone queue, a sink, and a worker goroutine. Zero
// value is not usable; construct with New.
type Generator struct {
	mu sync.Mutex

	label string
	queue *tonequeue.Queue
	sink  sink.Sink

	speedWPM     int
	frequencyHz  int
	volumePct    int
	gapUnits     int
	weightingPct int
	absVolume    float64

	sampleRate int

	slopeTable *slope.Table
	calc       *timing.Calculator
	phase      synth.Phase

	spaceUnitsCount  int // 0, 1, 3, or 7 per spec.md §4.7
	iwsSplitOverride int // 0 = default (2); spec.md debug hook

	running  bool
	doWork   atomic.Bool
	silenced atomic.Bool
	doneCh   chan struct{}

	onEmpty    OnEmptyQueue
	keyValueCB KeyValueCallback
	lastKeyVal KeyValue
	keyer      Keyer

	soundDevice string
	soundSystem sink.Backend
}

// New creates a Generator with default parameters (20 wpm, 800 Hz, full
// volume, no gap, unweighted) writing to the given Sink. label defaults to
// a fresh UUID when empty, so key-value callbacks can disambiguate
// multiple generators without the caller having to name one.
func New(s sink.Sink, label string) *Generator {
	if label == "" {
		label = uuid.NewString()
	}
	g := &Generator{
		label:        label,
		queue:        tonequeue.New(tonequeue.QueueCapMax),
		sink:         s,
		speedWPM:     20,
		frequencyHz:  800,
		volumePct:    100,
		gapUnits:     0,
		weightingPct: 50,
		absVolume:    maxAbsVolume,
	}
	g.calc = timing.NewCalculator(timing.GeneratorParams{SpeedWPM: g.speedWPM, WeightingPct: g.weightingPct, GapUnits: g.gapUnits})
	g.slopeTable = slope.NewTable(slope.RaisedCosine, defaultSlopeDurationUs, defaultSampleRate, g.absVolume)
	g.sampleRate = defaultSampleRate
	return g
}

const (
	maxAbsVolume           = 8000
	defaultSampleRate      = 48000
	defaultSlopeDurationUs = 5000
)

// Label returns the generator's identifying label.
func (g *Generator) Label() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.label
}

// SetLabel changes the generator's identifying label (spec.md §6).
func (g *Generator) SetLabel(label string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.label = label
}

// SetSoundDevice records the backend and device name Start will open the
// sink with (spec.md §6: get-sound-device/get-sound-system). Has no effect
// on an already-running generator; call before Start.
func (g *Generator) SetSoundDevice(backend sink.Backend, deviceName string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.soundSystem = backend
	g.soundDevice = sink.ResolveDeviceName(backend, deviceName)
}

// GetSoundDevice returns the resolved device name the generator will open
// (or did open) its sink with.
func (g *Generator) GetSoundDevice() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.soundDevice
}

// GetSoundSystem returns the backend tag the generator will open (or did
// open) its sink with.
func (g *Generator) GetSoundSystem() sink.Backend {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.soundSystem
}

// Queue exposes the underlying tone queue, for the enqueue layer and
// tests.
func (g *Generator) Queue() *tonequeue.Queue { return g.queue }

// SetSpeed sets the send speed in words per minute. Fails with
// InvalidArgument outside [SpeedMinWPM, SpeedMaxWPM].
func (g *Generator) SetSpeed(wpm int) error {
	if wpm < SpeedMinWPM || wpm > SpeedMaxWPM {
		return invalidArg("speed out of range")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.speedWPM = wpm
	g.calc.SetParams(timing.GeneratorParams{SpeedWPM: wpm, WeightingPct: g.weightingPct, GapUnits: g.gapUnits})
	return nil
}

// Speed returns the current send speed in words per minute.
func (g *Generator) Speed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.speedWPM
}

// SpeedLimits returns [SpeedMinWPM, SpeedMaxWPM].
func (g *Generator) SpeedLimits() (min, max int) { return SpeedMinWPM, SpeedMaxWPM }

// SetFrequency sets the sidetone frequency in Hz. Fails with
// InvalidArgument outside [FrequencyMin, FrequencyMax].
func (g *Generator) SetFrequency(hz int) error {
	if hz < FrequencyMin || hz > FrequencyMax {
		return invalidArg("frequency out of range")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frequencyHz = hz
	return nil
}

// Frequency returns the current sidetone frequency in Hz.
func (g *Generator) Frequency() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frequencyHz
}

// FrequencyLimits returns [FrequencyMin, FrequencyMax].
func (g *Generator) FrequencyLimits() (min, max int) { return FrequencyMin, FrequencyMax }

// SetVolume sets the output volume as a percentage. Fails with
// InvalidArgument outside [VolumeMin, VolumeMax]. Reshapes the slope
// table, since its amplitude values depend on absolute volume.
func (g *Generator) SetVolume(pct int) error {
	if pct < VolumeMin || pct > VolumeMax {
		return invalidArg("volume out of range")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.volumePct = pct
	g.absVolume = maxAbsVolume * float64(pct) / 100
	g.slopeTable.SetVolume(g.absVolume)
	return nil
}

// Volume returns the current volume as a percentage.
func (g *Generator) Volume() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.volumePct
}

// VolumeLimits returns [VolumeMin, VolumeMax].
func (g *Generator) VolumeLimits() (min, max int) { return VolumeMin, VolumeMax }

// SetGap sets the Farnsworth additional gap, in dot-units. Fails with
// InvalidArgument outside [GapMin, GapMax].
func (g *Generator) SetGap(units int) error {
	if units < GapMin || units > GapMax {
		return invalidArg("gap out of range")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gapUnits = units
	g.calc.SetParams(timing.GeneratorParams{SpeedWPM: g.speedWPM, WeightingPct: g.weightingPct, GapUnits: units})
	return nil
}

// Gap returns the current Farnsworth additional gap, in dot-units.
func (g *Generator) Gap() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gapUnits
}

// GapLimits returns [GapMin, GapMax].
func (g *Generator) GapLimits() (min, max int) { return GapMin, GapMax }

// SetWeighting sets the dot/dash weighting percentage (50 = unweighted).
// Fails with InvalidArgument outside [WeightingMin, WeightingMax].
func (g *Generator) SetWeighting(pct int) error {
	if pct < WeightingMin || pct > WeightingMax {
		return invalidArg("weighting out of range")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.weightingPct = pct
	g.calc.SetParams(timing.GeneratorParams{SpeedWPM: g.speedWPM, WeightingPct: pct, GapUnits: g.gapUnits})
	return nil
}

// Weighting returns the current dot/dash weighting percentage.
func (g *Generator) Weighting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.weightingPct
}

// WeightingLimits returns [WeightingMin, WeightingMax].
func (g *Generator) WeightingLimits() (min, max int) { return WeightingMin, WeightingMax }

// SetSlope updates the envelope shape/duration. See slope.Table.Set for
// the NoChange convention.
func (g *Generator) SetSlope(shape int, durationUs int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.slopeTable.Set(shape, durationUs)
}

// RegisterKeyValueCallback installs cb, invoked only on Open<->Closed
// transitions of the generator's key value.
func (g *Generator) RegisterKeyValueCallback(cb KeyValueCallback) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keyValueCB = cb
}

// RegisterLowWaterCallback installs cb on the underlying tone queue,
// invoked from the worker goroutine (never with the queue's lock held)
// the next time queue length drops to or below level having previously
// been above it (spec.md §6). Passing a nil cb removes it.
func (g *Generator) RegisterLowWaterCallback(level int, cb func(q *tonequeue.Queue)) {
	g.queue.RegisterLowWaterCallback(level, cb)
}

// AttachKeyer attaches k, notified of elapsed mark/space durations by the
// worker (spec.md §4.6 step 8). A nil keyer detaches.
func (g *Generator) AttachKeyer(k Keyer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keyer = k
}

func (g *Generator) durations() timing.Durations {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calc.Current()
}

func invalidArg(msg string) error {
	return cwerr.New(cwerr.InvalidArgument, "generator", msg)
}
