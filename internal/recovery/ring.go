package recovery

// ring is a fixed-capacity buffer that keeps the most recent values,
// overwriting the oldest once full.
type ring[T any] struct {
	buf  []T
	cap  int
	next int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{cap: capacity}
}

func (r *ring[T]) Append(v T) {
	if len(r.buf) < r.cap {
		r.buf = append(r.buf, v)
		r.next = len(r.buf) % r.cap
		return
	}
	r.buf[r.next] = v
	r.next = (r.next + 1) % r.cap
}

func (r *ring[T]) Len() int { return len(r.buf) }

// Items returns a copy ordered oldest to newest.
func (r *ring[T]) Items() []T {
	if len(r.buf) < r.cap {
		return append([]T(nil), r.buf...)
	}
	out := make([]T, 0, r.cap)
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}
