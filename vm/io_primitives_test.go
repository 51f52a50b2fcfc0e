package vm

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestNumeralRoundTrip(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	for _, n := range []uint64{0, 1, 255, 256, 1 << 32, InvalidNum - 1} {
		l := rt.MkNum(n)
		if l.Kind() != KindNumeral || l.PayloadBytes() != WordSize {
			t.Errorf("MkNum(%d): kind %v, %d bytes", n, l.Kind(), l.PayloadBytes())
		}
		if got := numOf(t, rt, l); got != n {
			t.Errorf("GetNum(MkNum(%d)) = %d", n, got)
		}
	}
	checkBalanced(t, rt)
}

func TestGetNumRejectsNonNumerals(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	for _, l := range []*Lambda{rt.trueObj, rt.errorObj, rt.Alloc(0, 4)} {
		if n, ok := GetNum(l); ok || n != InvalidNum {
			t.Errorf("GetNum(%s) = %d, %v; want InvalidNum, false", l, n, ok)
		}
	}
}

func TestNumeralAppliedReturnsItself(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	n := rt.MkNum(5)
	rt.Acquire(n, 1)
	got := rt.RetCall(n, rt.True())
	if got != n {
		t.Errorf("numeral applied returned %s, want itself", got)
	}
	rt.Release(got)
	rt.Release(n)
	checkBalanced(t, rt)
	checkStaticsSettled(t, rt)
}

func TestSuccPred(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	tests := []struct {
		prim string
		in   uint64
		want uint64
	}{
		{ExternSucc, 0, 1},
		{ExternSucc, 41, 42},
		{ExternSucc, 255, 256},
		{ExternPred, 1, 0},
		{ExternPred, 1000, 999},
		{ExternPred, 0, InvalidNum}, // wraps
	}
	for _, tc := range tests {
		got := numOf(t, rt, rt.RetCall(ext(t, rt, tc.prim), rt.MkNum(tc.in)))
		if got != tc.want {
			t.Errorf("%s(%d) = %d, want %d", tc.prim, tc.in, got, tc.want)
		}
	}
	checkBalanced(t, rt)
	checkStaticsSettled(t, rt)
}

func TestPredInvertsSucc(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	for _, n := range []uint64{0, 1, 7, 1 << 40} {
		s := rt.RetCall(ext(t, rt, ExternSucc), rt.MkNum(n))
		if got := numOf(t, rt, rt.RetCall(ext(t, rt, ExternPred), s)); got != n {
			t.Errorf("pred(succ(%d)) = %d", n, got)
		}
	}
	for _, n := range []uint64{1, 7, 1 << 40, InvalidNum} {
		p := rt.RetCall(ext(t, rt, ExternPred), rt.MkNum(n))
		if got := numOf(t, rt, rt.RetCall(ext(t, rt, ExternSucc), p)); got != n {
			t.Errorf("succ(pred(%d)) = %d", n, got)
		}
	}
	checkBalanced(t, rt)
}

func TestZeroReadsAsNumeral(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	zero := ext(t, rt, ExternZero)
	if n, ok := GetNum(zero); !ok || n != 0 {
		t.Errorf("GetNum(zero) = %d, %v", n, ok)
	}
	if got := numOf(t, rt, rt.RetCall(ext(t, rt, ExternSucc), zero)); got != 1 {
		t.Errorf("succ(zero) = %d, want 1", got)
	}
	checkStaticsSettled(t, rt)
}

func TestZeroAppliedIsError(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	tests := []struct {
		name string
		arg  func() *Lambda
	}{
		{"numeral", func() *Lambda { return rt.MkNum(3) }},
		{"true", rt.True},
		{"error", rt.Error},
		{"closure", func() *Lambda { return rt.RetCall(rt.True(), rt.MkNum(7)) }},
	}
	for _, tc := range tests {
		got := rt.RetCall(ext(t, rt, ExternZero), tc.arg())
		if !rt.IsError(got) {
			t.Errorf("zero(%s) = %s, want error", tc.name, got)
		}
		rt.Release(got)
	}
	checkBalanced(t, rt)
	checkStaticsSettled(t, rt)
}

func TestIsZero(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	tests := []struct {
		name string
		arg  func() *Lambda
		want func(*Lambda) bool
	}{
		{"numeral 0", func() *Lambda { return rt.MkNum(0) }, rt.IsTrue},
		{"numeral 7", func() *Lambda { return rt.MkNum(7) }, rt.IsFalse},
		{"zero", func() *Lambda { return ext(t, rt, ExternZero) }, rt.IsTrue},
		{"boolean", func() *Lambda { return rt.False() }, rt.IsError},
	}
	for _, tc := range tests {
		got := rt.RetCall(ext(t, rt, ExternIsZero), tc.arg())
		if !tc.want(got) {
			t.Errorf("iszero(%s) = %s", tc.name, got)
		}
		rt.Release(got)
	}
	checkBalanced(t, rt)
	checkStaticsSettled(t, rt)
}

func TestNonNumeralArgumentsYieldError(t *testing.T) {
	rt, out := newTestRuntime(t, "")
	for _, prim := range []string{ExternSucc, ExternPred, ExternIsZero, ExternPutc} {
		got := rt.RetCall(ext(t, rt, prim), rt.True())
		if !rt.IsError(got) {
			t.Errorf("%s(true) = %s, want error", prim, got)
		}
		rt.Release(got)
	}
	if out.Len() != 0 {
		t.Errorf("putc of non-numeral wrote %q", out.String())
	}
	checkStaticsSettled(t, rt)
}

func TestPutc(t *testing.T) {
	rt, out := newTestRuntime(t, "")
	for _, n := range []uint64{'h', 'i', 256 + '!'} {
		got := rt.RetCall(ext(t, rt, ExternPutc), rt.MkNum(n))
		if !rt.IsError(got) {
			t.Errorf("putc returned %s, want error", got)
		}
		rt.Release(got)
	}
	if out.String() != "hi!" {
		t.Errorf("output = %q, want %q", out.String(), "hi!")
	}
	checkBalanced(t, rt)
}

func TestGetcUntilEOF(t *testing.T) {
	rt, _ := newTestRuntime(t, "ab")
	want := []uint64{'a', 'b', EOFNum, EOFNum}
	for i, w := range want {
		if got := numOf(t, rt, rt.RetCall(ext(t, rt, ExternGetc), rt.Error())); got != w {
			t.Errorf("getc #%d = %d, want %d", i, got, w)
		}
	}
	checkBalanced(t, rt)
	checkStaticsSettled(t, rt)
}

func TestGetcPutcEcho(t *testing.T) {
	input := "hello, lambda\n\x00\xff"
	rt, out := newTestRuntime(t, input)
	for {
		c := rt.RetCall(ext(t, rt, ExternGetc), rt.Error())
		if n, _ := GetNum(c); n == EOFNum {
			rt.Release(c)
			break
		}
		rt.Release(rt.RetCall(ext(t, rt, ExternPutc), c))
	}
	if out.String() != input {
		t.Errorf("echo = %q, want %q", out.String(), input)
	}
	checkBalanced(t, rt)
}

// probeReader records the output written before the first read.
type probeReader struct {
	out  *bytes.Buffer
	seen string
	r    io.Reader
}

func (p *probeReader) Read(b []byte) (int, error) {
	p.seen = p.out.String()
	return p.r.Read(b)
}

func TestGetcFlushesPendingOutput(t *testing.T) {
	var out bytes.Buffer
	probe := &probeReader{out: &out, r: strings.NewReader("z")}
	rt := NewRuntime(Options{Input: probe, Output: &out})

	// putc 'A' then getc, within one trampoline run.
	rt.Acquire(rt.ret, 1)
	cont := rt.PushCont(rt.PushCont(nil, rt.ret), ext(t, rt, ExternGetc))
	got := rt.Run(rt.Call(ext(t, rt, ExternPutc), rt.MkNum('A'), cont))

	if probe.seen != "A" {
		t.Errorf("output visible at read = %q, want %q", probe.seen, "A")
	}
	if n := numOf(t, rt, got); n != 'z' {
		t.Errorf("getc = %d, want %d", n, 'z')
	}
}

func TestFlushEachByte(t *testing.T) {
	var out bytes.Buffer
	rt := NewRuntime(Options{Input: strings.NewReader(""), Output: &out, FlushEachByte: true})
	rt.Acquire(rt.ret, 1)
	cont := rt.PushCont(nil, rt.ret)
	// Dispatch putc by hand so Run's final flush does not hide buffering.
	step := rt.dispatch(rt.Call(ext(t, rt, ExternPutc), rt.MkNum('x'), cont))
	if out.String() != "x" {
		t.Errorf("output before run completes = %q, want %q", out.String(), "x")
	}
	rt.Release(rt.Run(step))
}

func TestDebugTrap(t *testing.T) {
	var traps int
	rt := NewRuntime(Options{
		Input:  strings.NewReader(""),
		Output: io.Discard,
		OnTrap: func(*Runtime) { traps++ },
	})
	got := rt.RetCall(ext(t, rt, ExternDebug), rt.MkNum(1))
	if !rt.IsError(got) {
		t.Errorf("debug returned %s, want error", got)
	}
	rt.Release(got)
	if traps != 1 {
		t.Errorf("traps = %d, want 1", traps)
	}

	// Default trap handler only logs.
	rt2, _ := newTestRuntime(t, "")
	rt2.Release(rt2.RetCall(ext(t, rt2, ExternDebug), rt2.MkNum(1)))
	checkBalanced(t, rt2)
}

func TestPrimitiveRefcountBalance(t *testing.T) {
	rt, _ := newTestRuntime(t, "0123456789")
	prims := []struct {
		name string
		arg  func() *Lambda
	}{
		{ExternZero, func() *Lambda { return rt.MkNum(1) }},
		{ExternSucc, func() *Lambda { return rt.MkNum(1) }},
		{ExternPred, func() *Lambda { return rt.MkNum(1) }},
		{ExternIsZero, func() *Lambda { return rt.MkNum(0) }},
		{ExternIsZero, func() *Lambda { return rt.MkNum(1) }},
		{ExternPutc, func() *Lambda { return rt.MkNum(' ') }},
		{ExternGetc, func() *Lambda { return rt.Error() }},
		{ExternTrue, func() *Lambda { return rt.MkNum(1) }},
		{ExternFalse, func() *Lambda { return rt.MkNum(1) }},
		{ExternError, func() *Lambda { return rt.MkNum(1) }},
	}
	for _, p := range prims {
		for i := 0; i < 100; i++ {
			rt.Release(rt.RetCall(ext(t, rt, p.name), p.arg()))
		}
		st := rt.Stats()
		if st.Heap.Live != 0 {
			t.Errorf("%s: %d live objects after 100 calls", p.name, st.Heap.Live)
		}
	}
	checkBalanced(t, rt)
	checkStaticsSettled(t, rt)
}
