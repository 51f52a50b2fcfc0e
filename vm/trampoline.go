package vm

import (
	"context"
	"fmt"
)

// cancelCheckInterval is how many steps RunContext dispatches between
// context checks.
const cancelCheckInterval = 1024

// ---------------------------------------------------------------------------
// Trampoline
// ---------------------------------------------------------------------------

// Run dispatches steps until one is final and returns its value. Pending
// program output is flushed before returning.
func (rt *Runtime) Run(step Step) *Lambda {
	for !step.done {
		step = rt.dispatch(step)
	}
	rt.Flush()
	return step.value
}

// RunContext is Run with cancellation. If ctx ends first, the pending
// application and every continuation frame are released and the context's
// error is returned wrapped in ErrCanceled.
func (rt *Runtime) RunContext(ctx context.Context, step Step) (*Lambda, error) {
	for n := 0; !step.done; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				rt.Discard(step)
				rt.Flush()
				rt.log.Infof("runtime %s: canceled after %d steps", rt.id, rt.steps)
				return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
			}
		}
		step = rt.dispatch(step)
	}
	rt.Flush()
	return step.value, nil
}

// Discard releases everything a step owns without running it.
func (rt *Runtime) Discard(step Step) {
	if step.done {
		if step.value != nil {
			rt.Release(step.value)
		}
		return
	}
	rt.Release(step.fn)
	rt.Release(step.arg)
	rt.DropCont(step.cont)
}

func (rt *Runtime) dispatch(step Step) Step {
	fn := step.fn
	if rt.opts.Checked {
		rt.checkLive(fn)
		rt.checkLive(step.arg)
	}
	if fn.impl == nil {
		rt.abortObj(ErrNoDispatch, fn)
	}
	rt.steps++
	rt.depth++
	if rt.depth > rt.maxDepth {
		rt.maxDepth = rt.depth
	}
	next := fn.impl(rt, step.arg, fn, step.cont)
	rt.depth--
	return next
}

// ---------------------------------------------------------------------------
// Blocking entry points
// ---------------------------------------------------------------------------

// RetCall applies fn to arg and runs until the result is returned to the
// terminal continuation. Both references are consumed; the result is
// owned by the caller.
func (rt *Runtime) RetCall(fn, arg *Lambda) *Lambda {
	rt.Acquire(rt.ret, 1)
	return rt.Run(rt.Call(fn, arg, rt.PushCont(nil, rt.ret)))
}

// RetCallContext is RetCall with cancellation.
func (rt *Runtime) RetCallContext(ctx context.Context, fn, arg *Lambda) (*Lambda, error) {
	rt.Acquire(rt.ret, 1)
	return rt.RunContext(ctx, rt.Call(fn, arg, rt.PushCont(nil, rt.ret)))
}

// NullCall applies fn to the dummy null instance. Used to force thunks and
// initialize globals.
func (rt *Runtime) NullCall(fn *Lambda) *Lambda {
	rt.Acquire(rt.null, 1)
	return rt.RetCall(fn, rt.null)
}

// NullCallContext is NullCall with cancellation.
func (rt *Runtime) NullCallContext(ctx context.Context, fn *Lambda) (*Lambda, error) {
	rt.Acquire(rt.null, 1)
	return rt.RetCallContext(ctx, fn, rt.null)
}

// retImpl is the terminal continuation: it ends the trampoline with its
// argument.
func retImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	rt.Release(self)
	if cont != nil {
		rt.abortObj(ErrDanglingCont, arg)
	}
	return Final(arg)
}

// nullImpl absorbs its argument and returns itself.
func nullImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	rt.Release(arg)
	return rt.ContCall(self, cont)
}
