package sink

import (
	"sync"
	"unsafe"

	"github.com/ColonelBlimp/cwengine/internal/cwerr"
	"github.com/gen2brain/malgo"
)

// SoundcardSink plays samples through a malgo (miniaudio) playback
// device. It backs the OSS/ALSA/PulseAudio backend tags: malgo abstracts
// the OS backend, so one implementation serves all of them. The tag is not
// passed to malgo (every tag opens a context with malgo's default backend
// order); it only decides whether a device name is looked up, which
// PulseAudio skips.
//
// Grounded on internal/audio/capture.go's Init/Start/Stop/Uninit
// lifecycle, mirrored for playback. Where Capture hands samples out
// through a channel, Soundcard instead pulls samples into the device's
// callback from a pending buffer guarded by a mutex/condvar, so that
// WriteSamples can block until the device has actually consumed them
// (spec.md §4.8: "the generator relies on the write call to consume
// wall-clock time equal to the samples being delivered").
type SoundcardSink struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	pending   []int16
	consumed  bool
	open      bool
}

// NewSoundcard creates a SoundcardSink.
func NewSoundcard() *SoundcardSink {
	s := &SoundcardSink{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *SoundcardSink) Open(cfg Config) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return 0, 0, cwerr.Wrap(cwerr.SoundSystemUnavailable, "sink.Open", "init audio context", err)
	}
	s.ctx = ctx

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 48000
	}
	channels := cfg.Channels
	if channels == 0 {
		channels = 1
	}

	deviceConfig := malgo.DeviceConfig{
		DeviceType:         malgo.Playback,
		SampleRate:         sampleRate,
		PeriodSizeInFrames: 256,
		Playback: malgo.SubConfig{
			Format:   malgo.FormatS16,
			Channels: channels,
		},
	}

	if cfg.DeviceName != "" && cfg.Backend != PulseAudio {
		devices, derr := ctx.Devices(malgo.Playback)
		if derr == nil {
			for _, d := range devices {
				if d.Name() == cfg.DeviceName {
					deviceConfig.Playback.DeviceID = d.ID.Pointer()
					break
				}
			}
		}
	}

	onSendFrames := func(outputSamples, _ []byte, frameCount uint32) {
		out := bytesAsInt16(outputSamples)
		s.mu.Lock()
		n := copy(out, s.pending)
		s.pending = s.pending[n:]
		if len(s.pending) == 0 {
			s.consumed = true
			s.cond.Broadcast()
		}
		s.mu.Unlock()
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		ctx.Uninit()
		return 0, 0, cwerr.Wrap(cwerr.SoundSystemUnavailable, "sink.Open", "init playback device", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		return 0, 0, cwerr.Wrap(cwerr.SoundSystemUnavailable, "sink.Open", "start playback device", err)
	}

	s.device = device
	s.open = true
	return int(sampleRate), 256, nil
}

func (s *SoundcardSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	s.device.Uninit()
	s.ctx.Uninit()
	s.open = false
	return nil
}

// WriteSamples hands samples to the playback callback and blocks until it
// reports them fully consumed.
func (s *SoundcardSink) WriteSamples(samples []int16) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return cwerr.New(cwerr.OutOfRange, "sink.WriteSamples", "sink not open")
	}
	s.pending = samples
	s.consumed = false
	for !s.consumed {
		s.cond.Wait()
	}
	s.mu.Unlock()
	return nil
}

func (s *SoundcardSink) WriteTone(bool, int64) error {
	return cwerr.New(cwerr.InvalidArgument, "sink.WriteTone", "soundcard sink is sample-based")
}

func (s *SoundcardSink) UsesSamples() bool { return true }

func bytesAsInt16(b []byte) []int16 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&b[0])), len(b)/2)
}

// ListPlaybackDevices enumerates playback devices, mirroring
// internal/audio.Capture.ListDevices for the output side.
func ListPlaybackDevices() ([]malgo.DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, cwerr.Wrap(cwerr.SoundSystemUnavailable, "sink.ListPlaybackDevices", "init audio context", err)
	}
	defer ctx.Uninit()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, cwerr.Wrap(cwerr.SoundSystemUnavailable, "sink.ListPlaybackDevices", "enumerate devices", err)
	}
	return infos, nil
}
