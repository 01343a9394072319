package sink

import (
	"fmt"
	"os"
	"time"
)

// ConsoleSink prints a '#'/'.' per state transition to stderr and blocks
// for the real-time duration of each tone, mirroring a practice-oscillator
// visualisation. It is state-based (UsesSamples returns false): the
// generator worker calls WriteTone, never WriteSamples.
type ConsoleSink struct{}

// NewConsole creates a ConsoleSink.
func NewConsole() *ConsoleSink { return &ConsoleSink{} }

func (c *ConsoleSink) Open(Config) (int, int, error) {
	return 48000, 256, nil
}

func (c *ConsoleSink) Close() error { return nil }

func (c *ConsoleSink) WriteSamples([]int16) error { return nil }

func (c *ConsoleSink) WriteTone(on bool, durationUs int64) error {
	if on {
		fmt.Fprint(os.Stderr, "#")
	} else {
		fmt.Fprint(os.Stderr, ".")
	}
	time.Sleep(time.Duration(durationUs) * time.Microsecond)
	return nil
}

func (c *ConsoleSink) UsesSamples() bool { return false }
