// Package history provides a bounded ring of timestamped samples used to
// look up what a signal's value was a short time in the past, e.g. to align
// a delayed barometer reading with the state the vehicle had when the
// reading was physically taken.
package history

type sample struct {
	atMicros uint32
	value    float64
}

// Queue is a fixed-capacity ring of (timestamp, value) samples. Samples must
// be pushed in time order; once full, each push evicts the oldest sample.
type Queue struct {
	buf  []sample
	head int // next write position
	n    int
}

// NewQueue returns an empty queue holding at most capacity samples.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{buf: make([]sample, capacity)}
}

// Push records value at atMicros, evicting the oldest sample when full.
func (q *Queue) Push(atMicros uint32, value float64) {
	q.buf[q.head] = sample{atMicros: atMicros, value: value}
	q.head = (q.head + 1) % len(q.buf)
	if q.n < len(q.buf) {
		q.n++
	}
}

// ValueAt returns the value of the newest sample taken at or before
// atMicros. The timestamp comparison is wraparound-safe for uint32
// microsecond clocks. When every retained sample is newer than atMicros the
// oldest retained value is returned; ok is false only when the queue is
// empty.
func (q *Queue) ValueAt(atMicros uint32) (value float64, ok bool) {
	if q.n == 0 {
		return 0, false
	}
	idx := q.head
	var oldest float64
	for i := 0; i < q.n; i++ {
		idx--
		if idx < 0 {
			idx = len(q.buf) - 1
		}
		s := q.buf[idx]
		if int32(atMicros-s.atMicros) >= 0 {
			return s.value, true
		}
		oldest = s.value
	}
	return oldest, true
}

// Len returns the number of retained samples.
func (q *Queue) Len() int { return q.n }

// Cap returns the fixed capacity.
func (q *Queue) Cap() int { return len(q.buf) }

// Reset discards all samples.
func (q *Queue) Reset() {
	q.head = 0
	q.n = 0
}
