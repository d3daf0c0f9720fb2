package bridge

import "sync"

// Ring is a fixed-size ring buffer holding the tail of a process's output.
// Bounds memory for chatty processes while keeping a recent window
// available for the output tail endpoint.
type Ring struct {
	mu   sync.RWMutex
	buf  []byte
	head int
	tail int
	full bool
}

// NewRing creates a ring buffer of the given capacity. Sizes <= 0 fall
// back to 64KB, which captures most command output.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 64 * 1024
	}
	return &Ring{buf: make([]byte, size)}
}

// Write implements io.Writer, overwriting the oldest data when full.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range p {
		if r.full {
			r.tail = (r.tail + 1) % len(r.buf)
		}
		r.buf[r.head] = b
		r.head = (r.head + 1) % len(r.buf)
		if r.head == r.tail {
			r.full = true
		}
	}
	return len(p), nil
}

// Bytes returns the buffered output in write order.
func (r *Ring) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch {
	case !r.full && r.head == r.tail:
		return []byte{}
	case r.full && r.head == r.tail:
		out := make([]byte, len(r.buf))
		copy(out, r.buf[r.tail:])
		copy(out[len(r.buf)-r.tail:], r.buf[:r.head])
		return out
	case r.head > r.tail:
		out := make([]byte, r.head-r.tail)
		copy(out, r.buf[r.tail:r.head])
		return out
	default:
		out := make([]byte, len(r.buf)-r.tail+r.head)
		copy(out, r.buf[r.tail:])
		copy(out[len(r.buf)-r.tail:], r.buf[:r.head])
		return out
	}
}

// Len returns the number of buffered bytes.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch {
	case !r.full && r.head == r.tail:
		return 0
	case r.full && r.head == r.tail:
		return len(r.buf)
	case r.head > r.tail:
		return r.head - r.tail
	default:
		return len(r.buf) - r.tail + r.head
	}
}
