package tonequeue

import (
	"sync"

	"github.com/ColonelBlimp/cwengine/internal/cwerr"
)

func invalidArg(msg string) error {
	return cwerr.New(cwerr.InvalidArgument, "tonequeue", msg)
}

// LowWaterCallback is invoked (via TakeLowWaterEvent, polled by the
// generator worker) when the queue length drops to or below the low-water
// mark after having been above it. It is edge-triggered: it fires once per
// crossing, not once per Dequeue while under the mark.
type LowWaterCallback func(q *Queue)

// Queue is a bounded, thread-safe FIFO of Tones (spec.md §3/§4.3). It is
// backed by a slice used as a circular buffer so Enqueue/Dequeue never
// reallocate once Capacity is set.
//
// Two condition variables share the queue's mutex: waitCond wakes anyone
// blocked in WaitForLevel whenever length changes, and toneCond wakes
// anyone blocked in WaitForEndOfCurrentTone whenever the worker explicitly
// signals the end of the tone it is currently sounding via
// SignalEndOfTone — ordinary Dequeue calls do not bump it, since a forever
// tone is dequeued repeatedly without ending.
type Queue struct {
	mu sync.Mutex

	buf      []Tone
	head     int
	length   int
	capacity int
	highWater int

	waitCond *sync.Cond
	toneCond *sync.Cond
	toneGen  uint64

	belowLowWater bool // armed once length has been seen > lowWater
	lowWater      int
	lowWaterCB    LowWaterCallback
	lowWaterEvent bool
}

// New creates a Queue with the given capacity (clamped to
// [1, QueueCapMax]). The high-water mark defaults to capacity (no headroom
// reserved) until SetHighWater is called.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > QueueCapMax {
		capacity = QueueCapMax
	}
	q := &Queue{
		buf:       make([]Tone, capacity),
		capacity:  capacity,
		highWater: capacity,
	}
	q.waitCond = sync.NewCond(&q.mu)
	q.toneCond = sync.NewCond(&q.mu)
	return q
}

// SetCapacity resizes the queue. It fails with InvalidArgument if shrinking
// below the current length would drop queued tones.
func (q *Queue) SetCapacity(capacity int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if capacity < 1 || capacity > QueueCapMax {
		return invalidArg("capacity out of range")
	}
	if capacity < q.length {
		return invalidArg("capacity would truncate queued tones")
	}

	buf := make([]Tone, capacity)
	for i := 0; i < q.length; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
	q.capacity = capacity
	if q.highWater > capacity {
		q.highWater = capacity
	}
	return nil
}

// SetHighWater sets the soft enqueue limit (spec.md §3: Enqueue fails with
// QueueFull once length >= high-water, even though hard capacity is
// higher). Fails with InvalidArgument if level is outside [1, Capacity].
func (q *Queue) SetHighWater(level int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if level < 1 || level > q.capacity {
		return invalidArg("high-water level out of range")
	}
	q.highWater = level
	return nil
}

// Capacity returns the hard capacity.
func (q *Queue) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// Length returns the current number of queued tones.
func (q *Queue) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}

// IsFull reports whether Length has reached the high-water mark.
func (q *Queue) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length >= q.highWater
}

// IsNonempty reports whether the queue holds at least one tone.
func (q *Queue) IsNonempty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length > 0
}

// Enqueue appends tone to the tail. It fails with QueueFull once length has
// reached the high-water mark, and with the Tone's own Validate error if
// the tone is malformed.
func (q *Queue) Enqueue(tone Tone) error {
	if err := tone.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.length >= q.highWater {
		return cwerr.New(cwerr.QueueFull, "tonequeue.Enqueue", "length >= high-water mark")
	}

	tail := (q.head + q.length) % len(q.buf)
	q.buf[tail] = tone
	q.length++
	if q.length > q.lowWater {
		q.belowLowWater = true
	}
	q.waitCond.Broadcast()
	return nil
}

// Dequeue removes and returns the head tone, reporting whether the queue
// became empty as a result (JustEmptied).
//
// A forever tone (spec.md §9) is never removed by an ordinary Dequeue: it
// is peeked and left at the head, so repeated Dequeue calls keep returning
// it until it is displaced by Flush or RemoveLastCharacter. JustEmptied is
// therefore always false while a forever tone occupies the head.
func (q *Queue) Dequeue() (tone Tone, justEmptied bool, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.length == 0 {
		return Tone{}, false, false
	}

	head := q.buf[q.head]
	if head.Forever {
		return head, false, true
	}

	q.head = (q.head + 1) % len(q.buf)
	q.length--
	q.checkLowWater()
	q.waitCond.Broadcast()
	return head, q.length == 0, true
}

// Flush discards every queued tone, including a forever tone occupying the
// head, and returns the queue to empty.
func (q *Queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.head = 0
	q.length = 0
	q.checkLowWater()
	q.waitCond.Broadcast()
}

// RemoveLastCharacter discards tones from the tail back to (and including)
// the most recently enqueued FirstOfCharacter tone, used to implement
// backspace-style correction. It reports how many tones were removed.
func (q *Queue) RemoveLastCharacter() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for q.length > 0 {
		tailIdx := (q.head + q.length - 1) % len(q.buf)
		t := q.buf[tailIdx]
		q.length--
		removed++
		if t.FirstOfCharacter {
			break
		}
	}
	q.checkLowWater()
	q.waitCond.Broadcast()
	return removed
}

// WaitForLevel blocks until Length() satisfies pred, then returns the
// length observed.
func (q *Queue) WaitForLevel(pred func(length int) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !pred(q.length) {
		q.waitCond.Wait()
	}
	return q.length
}

// SignalEndOfTone is called by the generator worker when it finishes
// sounding the tone it dequeued (i.e. the sink has played its full
// duration), waking any WaitForEndOfCurrentTone callers.
func (q *Queue) SignalEndOfTone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.toneGen++
	q.toneCond.Broadcast()
}

// WaitForEndOfCurrentTone blocks until the worker calls SignalEndOfTone at
// least once after this call begins waiting.
func (q *Queue) WaitForEndOfCurrentTone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	start := q.toneGen
	for q.toneGen == start {
		q.toneCond.Wait()
	}
}

// RegisterLowWaterCallback installs cb, invoked (via TakeLowWaterEvent)
// the next time length drops to or below level having previously been
// above it. Passing a nil cb disables the callback.
func (q *Queue) RegisterLowWaterCallback(level int, cb LowWaterCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lowWater = level
	q.lowWaterCB = cb
	q.belowLowWater = q.length > level
}

// TakeLowWaterEvent reports whether the low-water mark was crossed since
// the last call, invoking the registered callback if so. The worker calls
// this between sink writes (spec.md: "invoked from the worker between
// sink writes"), since the callback itself must not be called with the
// queue's internal lock held.
func (q *Queue) TakeLowWaterEvent() bool {
	q.mu.Lock()
	fired := q.lowWaterEvent
	q.lowWaterEvent = false
	cb := q.lowWaterCB
	q.mu.Unlock()

	if fired && cb != nil {
		cb(q)
	}
	return fired
}

// checkLowWater must be called with q.mu held, after any length decrease.
func (q *Queue) checkLowWater() {
	if q.belowLowWater && q.length <= q.lowWater {
		q.belowLowWater = false
		q.lowWaterEvent = true
	} else if q.length > q.lowWater {
		q.belowLowWater = true
	}
}
