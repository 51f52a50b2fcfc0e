package vm

import (
	"errors"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	l := rt.MkNum(7)
	rt.Acquire(l, 3)
	if l.RefCount() != 4 {
		t.Fatalf("refcount = %d, want 4", l.RefCount())
	}
	for i := 0; i < 3; i++ {
		rt.Release(l)
	}
	if l.IsFreed() || l.RefCount() != 1 {
		t.Fatalf("after 3 releases: freed=%v rc=%d", l.IsFreed(), l.RefCount())
	}
	rt.Release(l)
	if !l.IsFreed() {
		t.Error("object not freed at zero")
	}
	checkBalanced(t, rt)
}

func TestReleaseCascadesThroughCaptures(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	shared := rt.MkNum(1)
	rt.Acquire(shared, 1)

	outer := rt.Alloc(2, 0)
	outer.SetImpl(KindHost, identityImpl)
	inner := rt.Alloc(1, 0)
	inner.SetImpl(KindHost, identityImpl)
	inner.SetCapture(0, shared)
	outer.SetCapture(0, inner)
	outer.SetCapture(1, shared)

	rt.Release(outer)
	if !outer.IsFreed() || !inner.IsFreed() {
		t.Errorf("outer freed=%v inner freed=%v", outer.IsFreed(), inner.IsFreed())
	}
	if !shared.IsFreed() {
		t.Errorf("shared capture rc=%d, want freed", shared.RefCount())
	}
	checkBalanced(t, rt)
}

func TestDeepReleaseIsIterative(t *testing.T) {
	const depth = 1000000
	rt, _ := newTestRuntime(t, "")

	l := rt.MkNum(0)
	for i := 0; i < depth; i++ {
		c := rt.Alloc(1, 0)
		c.SetImpl(KindHost, identityImpl)
		c.captures[0] = l
		l = c
	}
	if live := rt.LiveObjects(); live != depth+1 {
		t.Fatalf("live = %d, want %d", live, depth+1)
	}
	rt.Release(l)
	checkBalanced(t, rt)
}

func TestStaticReleaseAborts(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	s := rt.NewStatic(InstanceSpec{Name: "s", Kind: KindHost, Impl: identityImpl})

	ae := expectAbort(t, rt, func() { rt.Release(s) })
	if !errors.Is(ae, ErrStaticReleased) {
		t.Errorf("abort = %v, want ErrStaticReleased", ae)
	}
}

func TestStaticReleasedThroughCaptureAborts(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	s := rt.NewStatic(InstanceSpec{Name: "s", Kind: KindHost, Impl: identityImpl})

	// Capturing without acquiring steals the runtime's reference.
	c := rt.Alloc(1, 0)
	c.SetImpl(KindHost, identityImpl)
	c.SetCapture(0, s)
	ae := expectAbort(t, rt, func() { rt.Release(c) })
	if !errors.Is(ae, ErrStaticReleased) {
		t.Errorf("abort = %v, want ErrStaticReleased", ae)
	}
}

func TestReleaseWorksAfterRecoveredAbort(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	s := rt.NewStatic(InstanceSpec{Name: "s", Kind: KindHost, Impl: identityImpl})
	c := rt.Alloc(1, 0)
	c.SetImpl(KindHost, identityImpl)
	c.SetCapture(0, s)
	expectAbort(t, rt, func() { rt.Release(c) })

	if rt.freeing || len(rt.freeQueue) != 0 {
		t.Fatalf("freeing = %v, queued = %d after abort", rt.freeing, len(rt.freeQueue))
	}
	live := rt.LiveObjects()
	n := rt.MkNum(3)
	rt.Release(n)
	if !n.IsFreed() {
		t.Error("release after a recovered abort did not free")
	}
	if got := rt.LiveObjects(); got != live {
		t.Errorf("live objects = %d, want %d", got, live)
	}
}

func TestUseAfterFree(t *testing.T) {
	rt, _ := newTestRuntime(t, "")

	l := rt.MkNum(1)
	rt.Release(l)

	tests := []struct {
		name string
		fn   func()
	}{
		{"acquire", func() { rt.Acquire(l, 1) }},
		{"release", func() { rt.Release(l) }},
		{"apply", func() { rt.Run(rt.Call(l, rt.Error(), nil)) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ae := expectAbort(t, rt, tc.fn)
			if !errors.Is(ae, ErrUseAfterFree) {
				t.Errorf("abort = %v, want ErrUseAfterFree", ae)
			}
		})
	}
}

func TestUncheckedAcquireOfFreedIsSilent(t *testing.T) {
	rt := NewRuntime(Options{OnAbort: func(*AbortError) {}})
	l := rt.MkNum(1)
	rt.Release(l)
	if err := rt.Safe(func() { rt.Acquire(l, 1) }); err != nil {
		t.Errorf("unchecked Acquire aborted: %v", err)
	}
}

func TestDestructorRunsOnceBeforeCaptures(t *testing.T) {
	rt, _ := newTestRuntime(t, "")

	var events []string
	inner := rt.NewInstance(InstanceSpec{
		Kind:     KindHost,
		Impl:     identityImpl,
		Userdata: []byte("inner"),
		Destructor: func(ud []byte) {
			events = append(events, string(ud))
		},
	})
	var innerAliveInOuter bool
	outer := rt.NewInstance(InstanceSpec{
		Kind:     KindHost,
		Impl:     identityImpl,
		Captures: []*Lambda{inner},
		Userdata: []byte("outer"),
		Destructor: func(ud []byte) {
			innerAliveInOuter = !inner.IsFreed()
			events = append(events, string(ud))
		},
	})

	rt.Release(outer)
	if len(events) != 2 || events[0] != "outer" || events[1] != "inner" {
		t.Errorf("destructor events = %v, want [outer inner]", events)
	}
	if !innerAliveInOuter {
		t.Error("capture freed before owner's destructor ran")
	}
	checkBalanced(t, rt)
}

func TestDestructorMayRelease(t *testing.T) {
	rt, _ := newTestRuntime(t, "")
	held := rt.MkNum(9)
	l := rt.NewInstance(InstanceSpec{
		Kind: KindHost,
		Impl: identityImpl,
		Destructor: func([]byte) {
			rt.Release(held)
		},
	})
	rt.Release(l)
	if !held.IsFreed() {
		t.Error("object released by destructor not freed")
	}
	checkBalanced(t, rt)
}
