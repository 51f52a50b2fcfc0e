package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// newTestRuntime returns a checked runtime reading input and writing to
// the returned buffer.
func newTestRuntime(t *testing.T, input string) (*Runtime, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	rt := NewRuntime(Options{
		Input:   strings.NewReader(input),
		Output:  &out,
		Checked: true,
		OnAbort: func(*AbortError) {},
	})
	return rt, &out
}

// expectAbort runs fn and returns the abort it raised.
func expectAbort(t *testing.T, rt *Runtime, fn func()) *AbortError {
	t.Helper()
	err := rt.Safe(fn)
	var ae *AbortError
	if !errors.As(err, &ae) {
		t.Fatalf("expected abort, got %v", err)
	}
	return ae
}

// ext returns an acquired reference to a registered extern.
func ext(t *testing.T, rt *Runtime, name string) *Lambda {
	t.Helper()
	l, ok := rt.Extern(name)
	if !ok {
		t.Fatalf("extern %s not registered", name)
	}
	rt.Acquire(l, 1)
	return l
}

// numOf reads a numeral result and releases it.
func numOf(t *testing.T, rt *Runtime, l *Lambda) uint64 {
	t.Helper()
	n, ok := GetNum(l)
	if !ok {
		t.Fatalf("%s is not a numeral", l)
	}
	rt.Release(l)
	return n
}

func checkBalanced(t *testing.T, rt *Runtime) {
	t.Helper()
	st := rt.Stats()
	if st.Heap.Live != 0 {
		t.Errorf("live objects = %d, want 0 (allocs %d, frees %d)", st.Heap.Live, st.Heap.Allocs, st.Heap.Frees)
	}
	if st.Conts.Live != 0 {
		t.Errorf("live continuation frames = %d, want 0", st.Conts.Live)
	}
}

// checkStaticsSettled verifies every static instance is back to the single
// reference the runtime holds.
func checkStaticsSettled(t *testing.T, rt *Runtime) {
	t.Helper()
	for _, s := range rt.statics {
		if s.refcount != 1 {
			t.Errorf("static %s refcount = %d, want 1", s.name, s.refcount)
		}
	}
}
