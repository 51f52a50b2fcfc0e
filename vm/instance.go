package vm

import "fmt"

// InstanceSpec describes a closure to construct: its dispatch, the
// references it captures (ownership transfers to the new object) and an
// initial payload (copied).
type InstanceSpec struct {
	Name       string
	Kind       Kind
	Impl       Impl
	Captures   []*Lambda
	Userdata   []byte
	Destructor Destructor
}

// NewInstance allocates a dynamic instance from spec. The result has
// refcount 1 and belongs to the caller.
func (rt *Runtime) NewInstance(spec InstanceSpec) *Lambda {
	l := rt.Alloc(len(spec.Captures), len(spec.Userdata))
	copy(l.payload, spec.Userdata)
	for i, c := range spec.Captures {
		l.SetCapture(i, c)
	}
	l.SetDestructor(spec.Destructor)
	l.SetImpl(spec.Kind, spec.Impl)
	return l
}

// NewStatic builds a singleton that lives as long as the runtime. The
// runtime holds its initial reference, so its count never reaches zero;
// users still Acquire before handing it out. Statics are not counted as
// heap objects.
func (rt *Runtime) NewStatic(spec InstanceSpec) *Lambda {
	l := &Lambda{
		refcount: 1,
		static:   true,
		name:     spec.Name,
	}
	if len(spec.Captures) > 0 {
		l.captures = make([]*Lambda, len(spec.Captures))
		copy(l.captures, spec.Captures)
	}
	if len(spec.Userdata) > 0 {
		l.payload = make([]byte, len(spec.Userdata))
		copy(l.payload, spec.Userdata)
	}
	if spec.Impl != nil {
		l.SetImpl(spec.Kind, spec.Impl)
	} else {
		l.kind = spec.Kind
	}
	rt.statics = append(rt.statics, l)
	return l
}

// newStaticShell creates a static with empty capture slots and no
// dispatch, for linking instances that refer to each other.
func (rt *Runtime) newStaticShell(name string, captureCount int) *Lambda {
	l := rt.NewStatic(InstanceSpec{Name: name, Kind: KindUnset})
	if captureCount > 0 {
		l.captures = make([]*Lambda, captureCount)
	}
	return l
}

// ---------------------------------------------------------------------------
// Externs
// ---------------------------------------------------------------------------

// Define registers l under name for linked programs. l should be static.
func (rt *Runtime) Define(name string, l *Lambda) error {
	if _, exists := rt.externs[name]; exists {
		return fmt.Errorf("%w: extern %s", ErrDuplicate, name)
	}
	if l.name == "" {
		l.name = name
	}
	rt.externs[name] = l
	return nil
}

// Extern looks up a registered extern. The result is not acquired.
func (rt *Runtime) Extern(name string) (*Lambda, bool) {
	l, ok := rt.externs[name]
	return l, ok
}

// defineBuiltin creates a static primitive and registers it as an extern.
func (rt *Runtime) defineBuiltin(name string, impl Impl, userdata []byte) *Lambda {
	l := rt.NewStatic(InstanceSpec{Name: name, Kind: KindBuiltin, Impl: impl, Userdata: userdata})
	if err := rt.Define(name, l); err != nil {
		rt.Abort(err)
	}
	return l
}
