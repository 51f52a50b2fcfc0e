package vm

import (
	"errors"
	"fmt"
)

// Fatal runtime conditions. These are reported through Runtime.Abort and
// never returned to lambda code.
var (
	ErrBadAllocation      = errors.New("invalid allocation size")
	ErrImplReassigned     = errors.New("dispatch assigned twice")
	ErrNoDispatch         = errors.New("applied lambda has no dispatch")
	ErrCaptureSlot        = errors.New("invalid capture slot")
	ErrStaticReleased     = errors.New("static instance released to zero")
	ErrUseAfterFree       = errors.New("use of freed lambda")
	ErrNoContinuation     = errors.New("continue-call with empty continuation")
	ErrDanglingCont       = errors.New("terminal continuation reached with frames pending")
	ErrScopeNotOwned      = errors.New("forwarding a reference the scope does not own")
	ErrUninitializedValue = errors.New("global read before initialization")
)

// Link errors, returned from Runtime.Link.
var (
	ErrUnknownImplementation = errors.New("unknown implementation")
	ErrUnknownInstance       = errors.New("unknown instance")
	ErrUnknownExtern         = errors.New("unknown extern")
	ErrUnknownDefinition     = errors.New("unknown definition")
	ErrUnknownCrate          = errors.New("unknown crate")
	ErrDuplicate             = errors.New("duplicate symbol")
	ErrCaptureRange          = errors.New("capture out of range")
)

// ErrCanceled is returned by RunContext when its context ends first.
var ErrCanceled = errors.New("evaluation canceled")

// AbortError carries a fatal runtime condition out of the trampoline.
type AbortError struct {
	Err error
	Obj string // rendering of the offending object, if any
}

func (e *AbortError) Error() string {
	if e.Obj == "" {
		return "lamb: abort: " + e.Err.Error()
	}
	return fmt.Sprintf("lamb: abort: %v (%s)", e.Err, e.Obj)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}
