package runner

import (
	"sync"
)

// tailBuffer keeps only the last N bytes written to it so we can attach a
// representative snippet of a run's output to its Outcome without retaining
// the entire stream in memory. Failures are usually evidenced near the end of
// output, so the tail is the part worth keeping.
type tailBuffer struct {
	maxBytes int

	mu       sync.Mutex
	total    int64
	contents []byte
}

func newTailBuffer(maxBytes int) *tailBuffer {
	if maxBytes <= 0 {
		maxBytes = DefaultTailBytes
	}
	return &tailBuffer{
		maxBytes: maxBytes,
		contents: make([]byte, 0, maxBytes),
	}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))

	// A single write larger than the cap replaces the whole buffer.
	if len(p) >= b.maxBytes {
		b.contents = b.contents[:0]
		b.contents = append(b.contents, p[len(p)-b.maxBytes:]...)
		return len(p), nil
	}

	// Shift out the oldest bytes to make room, then append.
	if excess := len(b.contents) + len(p) - b.maxBytes; excess > 0 {
		n := copy(b.contents, b.contents[excess:])
		b.contents = b.contents[:n]
	}
	b.contents = append(b.contents, p...)
	return len(p), nil
}

// Bytes returns a copy of the retained tail.
func (b *tailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := make([]byte, len(b.contents))
	copy(cp, b.contents)
	return cp
}

// TotalBytes returns how many bytes were written overall, retained or not.
func (b *tailBuffer) TotalBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Truncated reports whether any leading bytes were dropped.
func (b *tailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.contents)) < b.total
}
