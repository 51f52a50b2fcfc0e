package vm

import (
	"fmt"
)

// Lambda is the single heap entity of the runtime: a closure with a fixed
// number of captured references and a fixed-size opaque payload.
//
// The layout mirrors a flat object header:
//   - impl: dispatch, assigned once during construction
//   - refcount: number of live owners
//   - captures: owned references to other lambdas
//   - payload: raw bytes the dispatch interprets (numerals, host data)
//
// Sizes never change after allocation.
type Lambda struct {
	impl     Impl
	refcount uint64
	captures []*Lambda
	payload  []byte

	kind       Kind
	static     bool
	freed      bool
	destructor Destructor
	name       string // static instances only
}

// Kind tags a lambda for inspection. Dispatch never depends on it.
type Kind uint8

const (
	KindUnset    Kind = iota // allocated, dispatch not yet assigned
	KindBuiltin              // runtime primitive
	KindCompiled             // closure running a linked implementation
	KindNumeral              // word-sized natural number
	KindSentinel             // ret/null terminal instances
	KindHost                 // created by embedding code
)

var kindNames = [...]string{
	KindUnset:    "unset",
	KindBuiltin:  "builtin",
	KindCompiled: "compiled",
	KindNumeral:  "numeral",
	KindSentinel: "sentinel",
	KindHost:     "host",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Destructor runs once when an object is freed, before its captures are
// released. It sees the payload only.
type Destructor func(userdata []byte)

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

// Alloc reserves a lambda with room for captureCount references and
// payloadBytes of zeroed payload. The result has refcount 1, empty capture
// slots and no dispatch; callers must SetImpl before sharing it.
func (rt *Runtime) Alloc(captureCount, payloadBytes int) *Lambda {
	if captureCount < 0 || payloadBytes < 0 {
		rt.Abort(fmt.Errorf("%w: %d captures, %d bytes", ErrBadAllocation, captureCount, payloadBytes))
	}
	l := &Lambda{refcount: 1}
	if captureCount > 0 {
		l.captures = make([]*Lambda, captureCount)
	}
	if payloadBytes > 0 {
		l.payload = make([]byte, payloadBytes)
	}
	rt.heap.alloc()
	return l
}

// SetImpl assigns the dispatch. It may be called once per object.
func (l *Lambda) SetImpl(kind Kind, fn Impl) {
	if l.impl != nil {
		panic(&AbortError{Err: ErrImplReassigned, Obj: l.String()})
	}
	l.kind = kind
	l.impl = fn
}

// SetCapture stores an owned reference into an empty capture slot.
func (l *Lambda) SetCapture(i int, obj *Lambda) {
	if i < 0 || i >= len(l.captures) {
		panic(&AbortError{Err: fmt.Errorf("%w: slot %d of %d", ErrCaptureSlot, i, len(l.captures)), Obj: l.String()})
	}
	if l.captures[i] != nil {
		panic(&AbortError{Err: fmt.Errorf("%w: slot %d already filled", ErrCaptureSlot, i), Obj: l.String()})
	}
	l.captures[i] = obj
}

// SetDestructor installs a hook run when the object is freed.
func (l *Lambda) SetDestructor(d Destructor) {
	l.destructor = d
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Userdata returns the payload bytes. The slice aliases the object.
func (l *Lambda) Userdata() []byte { return l.payload }

// Capture returns capture i without acquiring it.
func (l *Lambda) Capture(i int) *Lambda { return l.captures[i] }

func (l *Lambda) RefCount() uint64  { return l.refcount }
func (l *Lambda) CaptureCount() int { return len(l.captures) }
func (l *Lambda) PayloadBytes() int { return len(l.payload) }
func (l *Lambda) Kind() Kind        { return l.kind }
func (l *Lambda) IsStatic() bool    { return l.static }
func (l *Lambda) IsFreed() bool     { return l.freed }

// Name returns the registered name of a static instance, or "".
func (l *Lambda) Name() string { return l.name }

func (l *Lambda) String() string {
	if l == nil {
		return "<nil lambda>"
	}
	var state string
	switch {
	case l.freed:
		state = " freed"
	case l.static:
		state = " static"
	}
	name := ""
	if l.name != "" {
		name = " " + l.name
	}
	if n, ok := GetNum(l); ok && l.kind == KindNumeral {
		return fmt.Sprintf("<%s%s %d rc=%d%s>", l.kind, name, n, l.refcount, state)
	}
	return fmt.Sprintf("<%s%s rc=%d caps=%d bytes=%d%s>",
		l.kind, name, l.refcount, len(l.captures), len(l.payload), state)
}
