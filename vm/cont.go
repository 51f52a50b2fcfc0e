package vm

// Cont is one frame of a pending continuation chain: the lambda to apply to
// the next returned value, and the frames after it. A frame owns one
// reference to fn and is consumed exactly once.
type Cont struct {
	next *Cont
	fn   *Lambda
}

// PushCont prepends fn to the chain next. Ownership of fn moves into the
// frame.
func (rt *Runtime) PushCont(next *Cont, fn *Lambda) *Cont {
	rt.conts.alloc()
	return &Cont{next: next, fn: fn}
}

// Next returns the frame after c.
func (c *Cont) Next() *Cont { return c.next }

// Fn returns the frame's continuation lambda without acquiring it.
func (c *Cont) Fn() *Lambda { return c.fn }

// Len returns the number of frames in the chain starting at c.
func (c *Cont) Len() int {
	n := 0
	for ; c != nil; c = c.next {
		n++
	}
	return n
}

// popCont consumes the head frame, returning its owned fn and the rest of
// the chain.
func (rt *Runtime) popCont(c *Cont) (*Lambda, *Cont) {
	fn, next := c.fn, c.next
	c.fn, c.next = nil, nil
	rt.conts.free()
	return fn, next
}

// DropCont releases every frame of a chain without running it.
func (rt *Runtime) DropCont(c *Cont) {
	for c != nil {
		var fn *Lambda
		fn, c = rt.popCont(c)
		if fn != nil {
			rt.Release(fn)
		}
	}
}
