package vm

// Impl is a lambda's dispatch. It receives an owned argument, an owned
// self reference and the pending continuation chain, and returns the next
// step instead of calling onward, so evaluation depth never becomes native
// stack depth.
type Impl func(rt *Runtime, arg, self *Lambda, cont *Cont) Step

// Step is either a pending application of fn to arg under cont, or a final
// value produced by the terminal continuation.
type Step struct {
	fn    *Lambda
	arg   *Lambda
	cont  *Cont
	value *Lambda
	done  bool
}

// Final returns a completed step carrying v.
func Final(v *Lambda) Step {
	return Step{value: v, done: true}
}

func (s Step) Done() bool     { return s.done }
func (s Step) Value() *Lambda { return s.value }
func (s Step) Fn() *Lambda    { return s.fn }
func (s Step) Arg() *Lambda   { return s.arg }
func (s Step) Cont() *Cont    { return s.cont }

// Call returns the pending application of fn to arg. Both references are
// owned by the step.
func (rt *Runtime) Call(fn, arg *Lambda, cont *Cont) Step {
	return Step{fn: fn, arg: arg, cont: cont}
}

// Apply is Call with the receiver first.
func (rt *Runtime) Apply(self, arg *Lambda, cont *Cont) Step {
	return rt.Call(self, arg, cont)
}

// ContCall passes value to the head of cont, consuming that frame.
func (rt *Runtime) ContCall(value *Lambda, cont *Cont) Step {
	if cont == nil {
		rt.abortObj(ErrNoContinuation, value)
	}
	fn, next := rt.popCont(cont)
	return rt.Call(fn, value, next)
}
