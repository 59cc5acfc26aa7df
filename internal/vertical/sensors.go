package vertical

// BaroSample is one barometric altitude reading, already converted to cm
// above the arming reference by the driver layer. Fresh is true when the
// reading is new since the previous cycle; the barometer's conversion
// latency is compensated separately via the estimator's history queue.
type BaroSample struct {
	HeightCm float64
	AtMicros uint32
	Fresh    bool
}

// RangeSample is one short-range height reading from a RangeSensor.
type RangeSample struct {
	HeightCm float64
	AtMicros uint32
	Fresh    bool
}

// RangeSensor is the capability interface for short-range altitude hardware
// (ToF laser, sonar). The selector consults the interface instead of
// compiled-in sensor branches; the concrete variant is chosen at
// configuration time. Sampling and validation of the raw hardware is the
// driver's job: implementations here only hand over the latest snapshot.
type RangeSensor interface {
	// Sample returns the latest reading and consumes its freshness: a
	// second call in the same cycle reports Fresh=false until a new
	// reading is stored.
	Sample() RangeSample
	// Limits returns the usable height envelope in cm. Readings outside
	// it are rejected by the selector.
	Limits() (minCm, maxCm float64)
}

// ToF is a RangeSensor backed by a short-range time-of-flight ranger. The
// driver stores readings with SetReading; the control cycle consumes them
// with Sample. Single-writer, single-reader per cycle.
type ToF struct {
	minCm, maxCm float64
	last         RangeSample
}

// NewToF returns a ToF holder with the given usable envelope in cm.
func NewToF(minCm, maxCm float64) *ToF {
	return &ToF{minCm: minCm, maxCm: maxCm}
}

// SetReading stores a new reading and marks it fresh.
func (t *ToF) SetReading(heightCm float64, atMicros uint32) {
	t.last = RangeSample{HeightCm: heightCm, AtMicros: atMicros, Fresh: true}
}

func (t *ToF) Sample() RangeSample {
	s := t.last
	t.last.Fresh = false
	return s
}

func (t *ToF) Limits() (minCm, maxCm float64) { return t.minCm, t.maxCm }

// Sonar is a RangeSensor backed by an ultrasonic ranger. Identical handover
// semantics to ToF; it exists as a separate type so configuration can name
// the hardware and future variants can diverge (beam-width gating, etc.).
type Sonar struct {
	minCm, maxCm float64
	last         RangeSample
}

// NewSonar returns a Sonar holder with the given usable envelope in cm.
func NewSonar(minCm, maxCm float64) *Sonar {
	return &Sonar{minCm: minCm, maxCm: maxCm}
}

// SetReading stores a new reading and marks it fresh.
func (s *Sonar) SetReading(heightCm float64, atMicros uint32) {
	s.last = RangeSample{HeightCm: heightCm, AtMicros: atMicros, Fresh: true}
}

func (s *Sonar) Sample() RangeSample {
	out := s.last
	s.last.Fresh = false
	return out
}

func (s *Sonar) Limits() (minCm, maxCm float64) { return s.minCm, s.maxCm }

// NoRange is the RangeSensor variant for vehicles without short-range
// hardware; it never reports a fresh sample, so the selector always falls
// through to the barometer.
type NoRange struct{}

func (NoRange) Sample() RangeSample            { return RangeSample{} }
func (NoRange) Limits() (minCm, maxCm float64) { return 0, 0 }
