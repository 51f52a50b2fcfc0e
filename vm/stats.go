package vm

// heapCounters tracks allocations of one object class (lambdas or
// continuation frames).
type heapCounters struct {
	allocs   uint64
	frees    uint64
	peakLive uint64
}

func (c *heapCounters) alloc() {
	c.allocs++
	if live := c.allocs - c.frees; live > c.peakLive {
		c.peakLive = live
	}
}

func (c *heapCounters) free() {
	c.frees++
}

func (c *heapCounters) snapshot() HeapStats {
	return HeapStats{
		Allocs:   c.allocs,
		Frees:    c.frees,
		Live:     c.allocs - c.frees,
		PeakLive: c.peakLive,
	}
}

// HeapStats counts dynamically allocated objects. Static instances are not
// included.
type HeapStats struct {
	Allocs   uint64
	Frees    uint64
	Live     uint64
	PeakLive uint64
}

// Stats is a snapshot of runtime counters.
type Stats struct {
	Heap  HeapStats // lambdas
	Conts HeapStats // continuation frames

	// Steps is the number of applications the trampoline has dispatched.
	Steps uint64

	// MaxDepth is the deepest nesting of native dispatch calls observed.
	// A single trampoline keeps it at 1 regardless of program depth;
	// each RetCall made from inside a primitive adds one level.
	MaxDepth int

	Statics int
}

// Stats returns the current counters.
func (rt *Runtime) Stats() Stats {
	return Stats{
		Heap:     rt.heap.snapshot(),
		Conts:    rt.conts.snapshot(),
		Steps:    rt.steps,
		MaxDepth: rt.maxDepth,
		Statics:  len(rt.statics),
	}
}

// LiveObjects returns the number of dynamic lambdas not yet freed.
func (rt *Runtime) LiveObjects() uint64 {
	return rt.heap.allocs - rt.heap.frees
}

// ResetStats clears the step and depth counters. Heap counters keep
// running so live-object balances stay meaningful.
func (rt *Runtime) ResetStats() {
	rt.steps = 0
	rt.maxDepth = 0
}
