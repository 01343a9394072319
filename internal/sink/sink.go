// Package sink implements the generator's output collaborator (spec.md
// §4.8): a narrow interface backed by Null, Console, or a malgo-backed
// Soundcard device, selected by Backend tag.
//
// Grounded on the teacher's internal/audio/capture.go malgo lifecycle
// (Init/Start/Stop/Uninit under a mutex, atomic running flag), mirrored
// here for the playback direction: a sink's Write calls block for
// wall-clock time proportional to the samples/duration delivered, which is
// how the generator's tone durations become real audio.
package sink

import (
	"github.com/ColonelBlimp/cwengine/internal/cwerr"
)

// Backend selects which concrete Sink implementation Open constructs.
type Backend int

const (
	None Backend = iota
	Null
	Console
	OSS
	ALSA
	PulseAudio
	Soundcard
)

// Config configures a Sink at Open time.
type Config struct {
	Backend    Backend
	DeviceName string
	SampleRate uint32
	Channels   uint32
}

// Sink is the generator's playback collaborator. Exactly one of WriteSamples
// or WriteTone is meaningful per backend: sample-based sinks implement
// WriteSamples and ignore WriteTone (and vice versa for the Null/Console
// state-based sinks), but both methods exist on every Sink so the worker
// does not need a type switch.
type Sink interface {
	// Open configures the sink and returns the negotiated sample rate and
	// the buffer size (in frames) the caller should allocate.
	Open(cfg Config) (sampleRate int, bufferFrames int, err error)
	Close() error

	// WriteSamples blocks until the samples have been consumed by the
	// backend (or, for Null, until the equivalent wall-clock time has
	// elapsed).
	WriteSamples(samples []int16) error

	// WriteTone blocks for durationUs representing a single on/off state,
	// used by Null/Console instead of WriteSamples.
	WriteTone(on bool, durationUs int64) error

	// UsesSamples reports whether the worker should call WriteSamples
	// (true) or WriteTone (false) for this sink.
	UsesSamples() bool
}

// Open constructs and opens a Sink for cfg.Backend. Selecting Soundcard
// without a concrete OS backend resolved by the platform's malgo context
// is rejected with InvalidArgument (spec.md §4.8: "selecting a soundcard
// umbrella backend without choosing a concrete backend is rejected").
func Open(cfg Config) (Sink, int, int, error) {
	var s Sink
	switch cfg.Backend {
	case None, Null:
		s = NewNull()
	case Console:
		s = NewConsole()
	case Soundcard:
		return nil, 0, 0, cwerr.New(cwerr.InvalidArgument, "sink.Open", "soundcard is an umbrella backend; choose OSS, ALSA, or PulseAudio")
	case OSS, ALSA, PulseAudio:
		s = NewSoundcard()
	default:
		return nil, 0, 0, cwerr.New(cwerr.InvalidArgument, "sink.Open", "unknown backend")
	}

	rate, frames, err := s.Open(cfg)
	if err != nil {
		return nil, 0, 0, err
	}
	return s, rate, frames, nil
}

// ResolveDeviceName implements spec.md §4.8's device-name selection rule:
// an empty or default-matching name yields either the library default
// device name (Null/Console/OSS/ALSA) or an empty string (PulseAudio
// default).
func ResolveDeviceName(backend Backend, name string) string {
	if name != "" && name != "default" {
		return name
	}
	switch backend {
	case PulseAudio:
		return ""
	default:
		return "default"
	}
}
