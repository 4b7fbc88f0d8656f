package evaluator

// sample is one per-tick observation of a guard's signal. A sample
// with ok=false marks a tick where the signal was missing; it can
// never satisfy a comparison, so stale rings cannot fire a guard.
type sample struct {
	value float64
	ok    bool
}

// ring is a fixed-size rolling window over the most recent samples of
// one guard's signal. It is sized once at graph load and evicts the
// oldest sample on each push, keeping the tick free of allocation.
type ring struct {
	buf  []sample
	head int
	fill int
}

func newRing(size int) *ring {
	if size < 1 {
		size = 1
	}
	return &ring{buf: make([]sample, size)}
}

func (r *ring) push(s sample) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
	if r.fill < len(r.buf) {
		r.fill++
	}
}

// window reports whether the ring has seen a full window of ticks and,
// if so, yields every held sample to the predicate. It returns false
// as soon as a sample fails.
func (r *ring) window(pred func(sample) bool) bool {
	if r.fill < len(r.buf) {
		return false
	}
	for _, s := range r.buf {
		if !pred(s) {
			return false
		}
	}
	return true
}

// reset discards the window. Called when the supervisor enters a new
// state so guard history never leaks across states.
func (r *ring) reset() {
	r.fill = 0
	r.head = 0
}
