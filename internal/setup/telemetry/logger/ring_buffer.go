package logger

// RingBuffer keeps the most recent log lines up to a fixed capacity.
type RingBuffer struct {
	lines     []string
	head      int // next write position
	size      int
	totalSeen int // lines written since the last rotation
}

// NewRingBuffer creates a new ring buffer with the specified capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}

	return &RingBuffer{lines: make([]string, capacity)}
}

// Capacity returns the maximum number of retained lines.
func (rb *RingBuffer) Capacity() int {
	return len(rb.lines)
}

// Add appends a line, overwriting the oldest one when full.
func (rb *RingBuffer) Add(line string) {
	rb.lines[rb.head] = line
	rb.head = (rb.head + 1) % len(rb.lines)

	if rb.size < len(rb.lines) {
		rb.size++
	}

	rb.totalSeen++
}

// Lines returns all retained lines in chronological order.
func (rb *RingBuffer) Lines() []string {
	if rb.size == 0 {
		return nil
	}

	result := make([]string, rb.size)
	start := (rb.head - rb.size + len(rb.lines)) % len(rb.lines)

	for i := range rb.size {
		result[i] = rb.lines[(start+i)%len(rb.lines)]
	}

	return result
}
