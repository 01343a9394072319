package generator

import (
	"log"
	"time"

	"github.com/ColonelBlimp/cwengine/internal/sink"
	"github.com/ColonelBlimp/cwengine/internal/synth"
	"github.com/ColonelBlimp/cwengine/internal/tonequeue"
)

// OnEmptyQueue, if registered, is invoked by the worker each time it finds
// the tone queue empty, before it blocks waiting for the next tone.
type OnEmptyQueue func()

// Start opens the sink, launches the worker goroutine, and waits briefly
// for it to settle (spec.md §4.6: "a brief settling wait after thread
// creation"). Returns the sink's own Open error if the sink cannot be
// opened, or InvalidArgument if the generator is already running.
func (g *Generator) Start() error {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return invalidArg("generator already running")
	}

	cfg := sink.Config{
		Backend:    g.soundSystem,
		DeviceName: g.soundDevice,
		SampleRate: uint32(defaultSampleRate),
		Channels:   1,
	}
	g.mu.Unlock()
	rate, frames, err := g.sink.Open(cfg)
	g.mu.Lock()
	if err != nil {
		g.mu.Unlock()
		return err
	}
	g.sampleRate = rate
	g.slopeTable.SetSampleRate(rate)
	g.phase.Reset()

	g.running = true
	g.doWork.Store(true)
	g.silenced.Store(false)
	g.doneCh = make(chan struct{})
	buf := make([]int16, frames)
	g.mu.Unlock()

	go g.workerLoop(buf)
	time.Sleep(2 * time.Millisecond) // settling wait
	return nil
}

// Stop flushes the queue, requests silencing, clears do-work, and waits
// for the worker goroutine to exit.
func (g *Generator) Stop() error {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return nil
	}
	done := g.doneCh
	g.mu.Unlock()

	g.queue.Flush()
	g.silenced.Store(true)

	// Enqueue a single synthetic tone so the worker actually wakes,
	// dequeues, and replaces it with a falling-slope tone derived from
	// whatever was sounding, then wait for that tone to be played and
	// signalled before clearing do-work: silencing always runs to
	// completion on stop (spec.md §7), even mid-mark.
	if err := g.queue.Enqueue(tonequeue.Tone{}); err == nil {
		g.queue.WaitForEndOfCurrentTone()
	}

	g.doWork.Store(false)
	g.queue.Flush() // broadcasts waitCond so a blocked worker observes !doWork

	<-done

	g.mu.Lock()
	g.running = false
	err := g.sink.Close()
	g.mu.Unlock()
	return err
}

// IsRunning reports whether the worker goroutine is active.
func (g *Generator) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

func (g *Generator) workerLoop(buf []int16) {
	defer close(g.doneCh)

	var prevTone tonequeue.Tone
	havePrev := false
	bufPos := 0

	flushBuffer := func() {
		if bufPos == 0 {
			return
		}
		useSamples := g.sink.UsesSamples()
		if useSamples {
			if err := g.sink.WriteSamples(buf[:bufPos]); err != nil {
				log.Printf("generator: sink write failed: %v", err)
			}
		}
		bufPos = 0
	}

	for {
		tone, justEmptied, ok := g.queue.Dequeue()
		_ = justEmptied

		if !ok {
			flushBuffer()
			g.updateKeyValue(tonequeue.Tone{}) // empty queue reads as Open (spec.md §4.6)
			if !g.doWork.Load() {
				return
			}
			if cb := g.onEmptyQueue(); cb != nil {
				cb()
			}
			n := g.queue.WaitForLevel(func(n int) bool { return n > 0 || !g.doWork.Load() })
			if n == 0 && !g.doWork.Load() {
				return
			}
			continue
		}

		g.updateKeyValue(tone)

		if g.silenced.Load() {
			// SilencingTone is sized in samples; PrepareTone would recompute
			// the size from DurationUs, so derive the duration instead.
			tone = synth.SilencingTone(prevTone, len(buf), g.slopeTable)
			tone.DurationUs = int64(tone.NSamples) * 1_000_000 / int64(g.sampleRate)
		} else {
			synth.PrepareTone(&tone, g.sampleRate, g.slopeTable)
		}

		if g.sink.UsesSamples() {
			for tone.SampleIterator < tone.NSamples {
				space := len(buf) - bufPos
				if space == 0 {
					flushBuffer()
					space = len(buf)
				}
				stop := bufPos + space - 1
				if stop >= len(buf) {
					stop = len(buf) - 1
				}
				written := synth.Synthesize(buf, bufPos, stop, &tone, &g.phase, g.sampleRate, g.absVolume, g.slopeTable)
				bufPos += written
				if bufPos >= len(buf) {
					flushBuffer()
				}
				if written == 0 {
					break
				}
			}
		} else {
			on := tone.FrequencyHz > 0
			if err := g.sink.WriteTone(on, tone.DurationUs); err != nil {
				log.Printf("generator: sink write failed: %v", err)
			}
		}

		// Low-water callbacks fire between sink writes (spec.md §4.3),
		// never with the queue's internal lock held.
		g.queue.TakeLowWaterEvent()

		suppressSignal := havePrev && prevTone.Forever && tone.Forever && (prevTone.FrequencyHz > 0) == (tone.FrequencyHz > 0)
		if !suppressSignal {
			g.queue.SignalEndOfTone()
		}

		if k := g.keyerRef(); k != nil {
			k.NotifyElapsed(tone.FrequencyHz > 0, tone.DurationUs)
		}

		prevTone = tone
		havePrev = true

		if g.silenced.Load() {
			g.queue.Flush()
			g.silenced.Store(false)
		}
	}
}

func (g *Generator) onEmptyQueue() OnEmptyQueue {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.onEmpty
}

func (g *Generator) keyerRef() Keyer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keyer
}

// RegisterOnEmptyQueue installs cb, invoked by the worker whenever it
// finds the tone queue empty.
func (g *Generator) RegisterOnEmptyQueue(cb OnEmptyQueue) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onEmpty = cb
}

func (g *Generator) updateKeyValue(tone tonequeue.Tone) {
	value := Closed
	if tone.FrequencyHz <= 0 || tone.DurationUs == 0 {
		value = Open
	}

	g.mu.Lock()
	cb := g.keyValueCB
	changed := g.lastKeyVal != value
	g.lastKeyVal = value
	label := g.label
	g.mu.Unlock()

	if changed && cb != nil {
		cb(label, value)
	}
}
