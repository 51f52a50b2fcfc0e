package vm

// Extern names of the standard singletons.
const (
	ExternTrue  = "std_true"
	ExternFalse = "std_false"
	ExternError = "std_error"
)

// registerStd builds the Church booleans and the error value.
//
//	true  = a -> b -> a
//	false = a -> b -> b
//	error = _ -> error
func (rt *Runtime) registerStd() {
	rt.trueObj = rt.defineStd(ExternTrue, trueImpl)
	rt.falseObj = rt.defineStd(ExternFalse, falseImpl)
	rt.falseK = rt.NewStatic(InstanceSpec{Name: "std_false_k", Kind: KindBuiltin, Impl: identityImpl})
	rt.errorObj = rt.defineStd(ExternError, errorImpl)
}

func (rt *Runtime) defineStd(name string, impl Impl) *Lambda {
	return rt.defineBuiltin(name, impl, nil)
}

// True returns an acquired reference to the true singleton.
func (rt *Runtime) True() *Lambda {
	rt.Acquire(rt.trueObj, 1)
	return rt.trueObj
}

// False returns an acquired reference to the false singleton.
func (rt *Runtime) False() *Lambda {
	rt.Acquire(rt.falseObj, 1)
	return rt.falseObj
}

// Bool returns True() or False().
func (rt *Runtime) Bool(b bool) *Lambda {
	if b {
		return rt.True()
	}
	return rt.False()
}

// Error returns an acquired reference to the error singleton.
func (rt *Runtime) Error() *Lambda {
	rt.Acquire(rt.errorObj, 1)
	return rt.errorObj
}

// IsTrue and IsFalse identify the boolean singletons.
func (rt *Runtime) IsTrue(l *Lambda) bool  { return l == rt.trueObj }
func (rt *Runtime) IsFalse(l *Lambda) bool { return l == rt.falseObj }

// IsError reports whether l is the error singleton.
func (rt *Runtime) IsError(l *Lambda) bool { return l == rt.errorObj }

// trueImpl captures its first argument in a new closure that returns it.
func trueImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	s := rt.Enter(self)
	defer s.Close()
	k := rt.NewInstance(InstanceSpec{Kind: KindBuiltin, Impl: constImpl, Captures: []*Lambda{arg}})
	return rt.ContCall(k, cont)
}

// constImpl returns capture 0, ignoring its argument.
func constImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	s := rt.Enter(arg, self)
	defer s.Close()
	v := self.captures[0]
	rt.Acquire(v, 1)
	return rt.ContCall(v, cont)
}

// falseImpl drops its first argument and returns the identity.
func falseImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	s := rt.Enter(arg, self)
	defer s.Close()
	rt.Acquire(rt.falseK, 1)
	return rt.ContCall(rt.falseK, cont)
}

func identityImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	rt.Release(self)
	return rt.ContCall(arg, cont)
}

// errorImpl absorbs its argument; error applied to anything is error.
func errorImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	rt.Release(arg)
	return rt.ContCall(self, cont)
}
