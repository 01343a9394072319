package sink

import "time"

// NullSink discards audio but still blocks for the real-time duration of
// each write, so tone timing above it stays correct even with no sound
// card attached. Used for headless testing and CI.
type NullSink struct {
	sampleRate int
}

// NewNull creates a NullSink.
func NewNull() *NullSink { return &NullSink{} }

func (n *NullSink) Open(cfg Config) (int, int, error) {
	n.sampleRate = int(cfg.SampleRate)
	if n.sampleRate <= 0 {
		n.sampleRate = 48000
	}
	return n.sampleRate, 256, nil
}

func (n *NullSink) Close() error { return nil }

func (n *NullSink) WriteSamples(samples []int16) error {
	us := time.Duration(len(samples)) * time.Second / time.Duration(n.sampleRate)
	time.Sleep(us)
	return nil
}

func (n *NullSink) WriteTone(_ bool, durationUs int64) error {
	time.Sleep(time.Duration(durationUs) * time.Microsecond)
	return nil
}

func (n *NullSink) UsesSamples() bool { return false }
