package vm

import (
	"bufio"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Runtime: owner of the heap, the primitive set and program I/O
// ---------------------------------------------------------------------------

// Options configures a Runtime. The zero value uses stdin/stdout.
type Options struct {
	Input  io.Reader
	Output io.Writer

	// FlushEachByte flushes Output after every putc, for interactive
	// terminals.
	FlushEachByte bool

	// Checked enables use-after-free detection on acquire, release and
	// apply.
	Checked bool

	// OnAbort observes fatal conditions before the runtime panics with
	// the same *AbortError. The default logs at critical level.
	OnAbort func(err *AbortError)

	// OnTrap is invoked by the debug primitive. The default logs the
	// runtime statistics.
	OnTrap func(rt *Runtime)

	// Logger overrides the "lamb.vm" logger.
	Logger commonlog.Logger
}

// Runtime is a single-threaded lambda heap plus the primitives and static
// instances that operate on it. A Runtime must not be shared between
// goroutines.
type Runtime struct {
	id   uuid.UUID
	opts Options
	log  commonlog.Logger

	in     *bufio.Reader
	out    *bufio.Writer
	outErr error

	heap     heapCounters
	conts    heapCounters
	steps    uint64
	depth    int
	maxDepth int

	// Release worklist; freeing is set while it drains.
	freeQueue []*Lambda
	freeing   bool

	externs map[string]*Lambda
	statics []*Lambda

	// Well-known instances
	ret      *Lambda
	null     *Lambda
	trueObj  *Lambda
	falseObj *Lambda
	falseK   *Lambda // false applied to its first argument
	errorObj *Lambda
}

// NewRuntime creates a runtime and builds its static instances.
func NewRuntime(opts Options) *Runtime {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	rt := &Runtime{
		id:      uuid.New(),
		opts:    opts,
		log:     opts.Logger,
		in:      bufio.NewReader(opts.Input),
		out:     bufio.NewWriter(opts.Output),
		externs: make(map[string]*Lambda),
	}
	if rt.log == nil {
		rt.log = commonlog.GetLogger("lamb.vm")
	}

	rt.bootstrap()
	return rt
}

func (rt *Runtime) bootstrap() {
	// Terminal instances used by RetCall and NullCall
	rt.ret = rt.NewStatic(InstanceSpec{Name: "ret", Kind: KindSentinel, Impl: retImpl})
	rt.null = rt.NewStatic(InstanceSpec{Name: "null", Kind: KindSentinel, Impl: nullImpl})

	// Church booleans and the error value
	rt.registerStd()

	// Numeral and I/O primitives
	rt.registerIOPrimitives()
}

// ID identifies this runtime instance in logs.
func (rt *Runtime) ID() string { return rt.id.String() }

// Checked reports whether use-after-free detection is on.
func (rt *Runtime) Checked() bool { return rt.opts.Checked }

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() commonlog.Logger { return rt.log }

// Externs returns the names of all registered externs, sorted.
func (rt *Runtime) Externs() []string {
	names := make([]string, 0, len(rt.externs))
	for name := range rt.externs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Fatal errors
// ---------------------------------------------------------------------------

// Abort reports a fatal condition and does not return. Pending output is
// flushed first so the program's last writes are not lost.
func (rt *Runtime) Abort(err error) {
	ae, ok := err.(*AbortError)
	if !ok {
		ae = &AbortError{Err: err}
	}
	rt.Flush()
	if rt.opts.OnAbort != nil {
		rt.opts.OnAbort(ae)
	} else {
		rt.log.Criticalf("runtime %s: %s", rt.id, ae)
	}
	panic(ae)
}

func (rt *Runtime) abortObj(err error, l *Lambda) {
	rt.Abort(&AbortError{Err: err, Obj: l.String()})
}

// Safe runs fn and converts an abort into an error. Other panics are
// propagated.
func (rt *Runtime) Safe(fn func()) (err error) {
	depth := rt.depth
	defer func() {
		if r := recover(); r != nil {
			if ae, ok := r.(*AbortError); ok {
				// Dispatches unwound by the panic never decremented.
				rt.depth = depth
				err = ae
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

// ---------------------------------------------------------------------------
// Program I/O
// ---------------------------------------------------------------------------

func (rt *Runtime) writeByte(b byte) {
	if rt.outErr != nil {
		return
	}
	if err := rt.out.WriteByte(b); err != nil {
		rt.outErr = err
		rt.log.Errorf("output: %s", err)
		return
	}
	if rt.opts.FlushEachByte {
		rt.Flush()
	}
}

// readByte returns the next input byte, or -1 at end of input.
func (rt *Runtime) readByte() int {
	b, err := rt.in.ReadByte()
	if err != nil {
		if err != io.EOF {
			rt.log.Warningf("input: %s", err)
		}
		return -1
	}
	return int(b)
}

// Flush writes buffered program output.
func (rt *Runtime) Flush() error {
	if rt.outErr != nil {
		return rt.outErr
	}
	if err := rt.out.Flush(); err != nil {
		rt.outErr = err
		return err
	}
	return nil
}
