// Package buffer holds the bounded tick history the decision pipeline reads from.
package buffer

// Ring is a fixed-capacity FIFO. Pushing into a full ring evicts the oldest element.
type Ring[T any] struct {
	items []T
	head  int // index of the oldest element
	size  int
}

// NewRing allocates a ring holding at most capacity elements (minimum 1).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, returning the evicted element when the ring was full.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	capacity := len(r.items)
	if r.size < capacity {
		r.items[(r.head+r.size)%capacity] = v
		r.size++
		return evicted, false
	}
	evicted = r.items[r.head]
	r.items[r.head] = v
	r.head = (r.head + 1) % capacity
	return evicted, true
}

// Len reports the number of stored elements.
func (r *Ring[T]) Len() int { return r.size }

// At returns the i-th element, 0 being the oldest. It panics when i is out of range.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.size {
		panic("buffer: ring index out of range")
	}
	return r.items[(r.head+i)%len(r.items)]
}

// Last returns the most recent element.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.At(r.size - 1), true
}

// AppendTo appends the contents oldest-first to dst and returns the extended slice.
func (r *Ring[T]) AppendTo(dst []T) []T {
	for i := 0; i < r.size; i++ {
		dst = append(dst, r.items[(r.head+i)%len(r.items)])
	}
	return dst
}
