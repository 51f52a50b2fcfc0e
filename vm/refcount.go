package vm

// ---------------------------------------------------------------------------
// Reference counting
// ---------------------------------------------------------------------------

// Acquire adds n owners to l.
func (rt *Runtime) Acquire(l *Lambda, n uint64) {
	if rt.opts.Checked && l.freed {
		rt.abortObj(ErrUseAfterFree, l)
	}
	l.refcount += n
}

// Release drops one owner of l. When the last owner goes away the object's
// destructor runs, its captures are released and its storage is returned.
//
// Freeing is iterative: objects whose count reaches zero are queued and
// drained by the outermost Release, so dropping a chain of a million nested
// closures uses constant native stack.
func (rt *Runtime) Release(l *Lambda) {
	if l.refcount == 0 {
		rt.abortObj(ErrUseAfterFree, l)
	}
	if l.refcount > 1 {
		l.refcount--
		return
	}
	if l.static {
		rt.abortObj(ErrStaticReleased, l)
	}
	l.refcount = 0
	rt.freeQueue = append(rt.freeQueue, l)
	if rt.freeing {
		// A destructor released something; the outer loop picks it up.
		return
	}

	rt.drainFreeQueue()
}

// drainFreeQueue frees queued objects until none remain. An abort midway
// drops the rest of the queue so a recovered runtime can free again.
func (rt *Runtime) drainFreeQueue() {
	rt.freeing = true
	defer func() {
		clear(rt.freeQueue)
		rt.freeQueue = rt.freeQueue[:0]
		rt.freeing = false
	}()
	for len(rt.freeQueue) > 0 {
		n := len(rt.freeQueue) - 1
		obj := rt.freeQueue[n]
		rt.freeQueue[n] = nil
		rt.freeQueue = rt.freeQueue[:n]
		rt.free(obj)
	}
}

// free destroys an object whose count has reached zero and queues any
// captures that die with it.
func (rt *Runtime) free(l *Lambda) {
	if l.destructor != nil {
		d := l.destructor
		l.destructor = nil
		d(l.payload)
	}
	for i, c := range l.captures {
		l.captures[i] = nil
		if c == nil {
			continue
		}
		if c.refcount > 1 {
			c.refcount--
			continue
		}
		if c.refcount == 0 {
			rt.abortObj(ErrUseAfterFree, c)
		}
		if c.static {
			rt.abortObj(ErrStaticReleased, c)
		}
		c.refcount = 0
		rt.freeQueue = append(rt.freeQueue, c)
	}
	l.captures = nil
	l.payload = nil
	l.impl = nil
	l.freed = true
	rt.heap.free()
}

// checkLive aborts if l has been freed. It is a no-op unless the runtime
// is in checked mode.
func (rt *Runtime) checkLive(l *Lambda) {
	if rt.opts.Checked && (l == nil || l.freed) {
		rt.abortObj(ErrUseAfterFree, l)
	}
}
