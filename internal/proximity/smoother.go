package proximity

// Smoother is a bounded rolling buffer of raw RSSI samples with a running mean.
// Once Cap samples are held, every Push evicts the oldest one.
type Smoother struct {
	// samples is the ring storage, len(samples) == capacity.
	samples []int16
	// head is the index the next sample is written to.
	head int
	// size is the number of valid samples, never larger than len(samples).
	size int
	// sum is the running total of the valid samples.
	sum int64
}

// NewSmoother creates a smoother holding at most capacity samples.
// Capacities below one are raised to one.
func NewSmoother(capacity int) *Smoother {
	if capacity < 1 {
		capacity = 1
	}

	return &Smoother{samples: make([]int16, capacity)}
}

// Push appends a sample, evicting the oldest one when the buffer is full.
func (s *Smoother) Push(rssi int16) {
	if s.size == len(s.samples) {
		s.sum -= int64(s.samples[s.head])
	} else {
		s.size++
	}

	s.samples[s.head] = rssi
	s.sum += int64(rssi)
	s.head = (s.head + 1) % len(s.samples)
}

// Mean returns the arithmetic mean of the buffered samples.
// The second result is false when the buffer is empty.
func (s *Smoother) Mean() (float64, bool) {
	if s.size == 0 {
		return 0, false
	}

	return float64(s.sum) / float64(s.size), true
}

// Full reports whether the buffer holds Cap samples.
func (s *Smoother) Full() bool {
	return s.size == len(s.samples)
}

// Len returns the number of buffered samples.
func (s *Smoother) Len() int {
	return s.size
}

// Cap returns the window size.
func (s *Smoother) Cap() int {
	return len(s.samples)
}

// Reset drops every sample.
func (s *Smoother) Reset() {
	s.head = 0
	s.size = 0
	s.sum = 0
}

// Values returns the buffered samples, oldest first.
func (s *Smoother) Values() []int16 {
	out := make([]int16, 0, s.size)

	start := (s.head - s.size + len(s.samples)) % len(s.samples)
	for i := range s.size {
		out = append(out, s.samples[(start+i)%len(s.samples)])
	}

	return out
}
