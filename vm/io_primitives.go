package vm

// ---------------------------------------------------------------------------
// Numeral and I/O primitives
// ---------------------------------------------------------------------------

// Extern names of the numeral and I/O primitives.
const (
	ExternZero   = "lambda_io_zero"
	ExternSucc   = "lambda_io_succ"
	ExternPred   = "lambda_io_pred"
	ExternIsZero = "lambda_io_iszero"
	ExternPutc   = "lambda_io_putc"
	ExternGetc   = "lambda_io_getc"
	ExternDebug  = "lambda_io_debug"
)

func (rt *Runtime) registerIOPrimitives() {
	// zero carries a zeroed word so it also reads as the numeral 0.
	rt.defineBuiltin(ExternZero, zeroImpl, make([]byte, WordSize))
	rt.defineBuiltin(ExternSucc, succImpl, nil)
	rt.defineBuiltin(ExternPred, predImpl, nil)
	rt.defineBuiltin(ExternIsZero, isZeroImpl, nil)
	rt.defineBuiltin(ExternPutc, putcImpl, nil)
	rt.defineBuiltin(ExternGetc, getcImpl, nil)
	rt.defineBuiltin(ExternDebug, debugImpl, nil)
}

// Every primitive below owns arg and self on entry; the scope releases
// both on return.

func zeroImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	s := rt.Enter(arg, self)
	defer s.Close()
	return rt.ContCall(rt.Error(), cont)
}

func succImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	s := rt.Enter(arg, self)
	defer s.Close()
	n, ok := GetNum(arg)
	if !ok {
		return rt.ContCall(rt.Error(), cont)
	}
	return rt.ContCall(rt.MkNum(n+1), cont)
}

// predImpl wraps around at zero, as unsigned word arithmetic does.
func predImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	s := rt.Enter(arg, self)
	defer s.Close()
	n, ok := GetNum(arg)
	if !ok {
		return rt.ContCall(rt.Error(), cont)
	}
	return rt.ContCall(rt.MkNum(n-1), cont)
}

func isZeroImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	s := rt.Enter(arg, self)
	defer s.Close()
	n, ok := GetNum(arg)
	if !ok {
		return rt.ContCall(rt.Error(), cont)
	}
	return rt.ContCall(rt.Bool(n == 0), cont)
}

// putcImpl writes the low byte of its numeral argument.
func putcImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	s := rt.Enter(arg, self)
	defer s.Close()
	if n, ok := GetNum(arg); ok {
		rt.writeByte(byte(n))
	}
	return rt.ContCall(rt.Error(), cont)
}

// getcImpl reads one byte of input, or EOFNum at end of input. Pending
// output is flushed first so prompts appear before the read blocks.
func getcImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	s := rt.Enter(arg, self)
	defer s.Close()
	rt.Flush()
	n := uint64(EOFNum)
	if b := rt.readByte(); b >= 0 {
		n = uint64(b)
	}
	return rt.ContCall(rt.MkNum(n), cont)
}

func debugImpl(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	s := rt.Enter(arg, self)
	defer s.Close()
	if rt.opts.OnTrap != nil {
		rt.opts.OnTrap(rt)
	} else {
		st := rt.Stats()
		rt.log.Noticef("trap: arg=%s steps=%d live=%d conts=%d", arg, st.Steps, st.Heap.Live, st.Conts.Live)
	}
	return rt.ContCall(rt.Error(), cont)
}
