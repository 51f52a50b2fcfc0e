package vm

import (
	"fmt"

	"github.com/chazu/lamb/ir"
)

// ---------------------------------------------------------------------------
// Compiled closures
// ---------------------------------------------------------------------------

// compiledImpl is a linked ir.Implementation. Its reference plan is fixed
// at link time: every literal read by the body is counted, and run
// acquires exactly as many references as the body hands on before
// releasing self.
type compiledImpl struct {
	path       string
	src        *ir.Implementation
	maxCapture int

	body ir.BodyKind
	ops  [3]operand // Return: value; calls: fn, arg[, next]
	nops int

	argUses     int
	captureUses []captureUse
	staticUses  []staticUse
	globalUses  []globalUse
}

type operandKind uint8

const (
	opArg operandKind = iota
	opCapture
	opStatic // static instance or extern
	opGlobal
	opConstruct
)

// operand is one resolved literal.
type operand struct {
	kind   operandKind
	index  int           // opCapture
	obj    *Lambda       // opStatic
	global *global       // opGlobal
	impl   *compiledImpl // opConstruct
	caps   []operand     // opConstruct; opArg, opCapture or opStatic only
}

type captureUse struct {
	index int
	count uint64
}

type staticUse struct {
	obj   *Lambda
	count uint64
}

type globalUse struct {
	global *global
	count  uint64
}

// global is a definition cell. Definitions marked for initialization are
// empty until Module.Init runs.
type global struct {
	path      string
	def       *ir.Definition
	inst      *Lambda
	value     *Lambda
	needsInit bool
}

func (g *global) load(rt *Runtime) *Lambda {
	if g.value == nil {
		rt.Abort(fmt.Errorf("%w: %s", ErrUninitializedValue, g.path))
	}
	return g.value
}

func (ci *compiledImpl) useCapture(index int) {
	for i := range ci.captureUses {
		if ci.captureUses[i].index == index {
			ci.captureUses[i].count++
			return
		}
	}
	ci.captureUses = append(ci.captureUses, captureUse{index: index, count: 1})
}

func (ci *compiledImpl) useStatic(obj *Lambda) {
	for i := range ci.staticUses {
		if ci.staticUses[i].obj == obj {
			ci.staticUses[i].count++
			return
		}
	}
	ci.staticUses = append(ci.staticUses, staticUse{obj: obj, count: 1})
}

func (ci *compiledImpl) useGlobal(g *global) {
	for i := range ci.globalUses {
		if ci.globalUses[i].global == g {
			ci.globalUses[i].count++
			return
		}
	}
	ci.globalUses = append(ci.globalUses, globalUse{global: g, count: 1})
}

// run is the dispatch of every closure built from ci.
func (ci *compiledImpl) run(rt *Runtime, arg, self *Lambda, cont *Cont) Step {
	for _, u := range ci.captureUses {
		rt.Acquire(self.captures[u.index], u.count)
	}
	for _, u := range ci.staticUses {
		rt.Acquire(u.obj, u.count)
	}
	for _, u := range ci.globalUses {
		rt.Acquire(u.global.load(rt), u.count)
	}
	switch {
	case ci.argUses == 0:
		rt.Release(arg)
	case ci.argUses > 1:
		rt.Acquire(arg, uint64(ci.argUses-1))
	}

	var vals [3]*Lambda
	for i := 0; i < ci.nops; i++ {
		vals[i] = ci.ops[i].realize(rt, arg, self)
	}
	rt.Release(self)

	switch ci.body {
	case ir.BodyReturn:
		return rt.ContCall(vals[0], cont)
	case ir.BodyTailCall:
		return rt.Call(vals[0], vals[1], cont)
	default:
		return rt.Call(vals[0], vals[1], rt.PushCont(cont, vals[2]))
	}
}

// realize produces the operand's value. References were acquired by run;
// constructions allocate and take ownership of theirs.
func (op *operand) realize(rt *Runtime, arg, self *Lambda) *Lambda {
	switch op.kind {
	case opArg:
		return arg
	case opCapture:
		return self.captures[op.index]
	case opStatic:
		return op.obj
	case opGlobal:
		return op.global.value
	}
	l := rt.Alloc(len(op.caps), 0)
	l.SetImpl(KindCompiled, op.impl.run)
	for i := range op.caps {
		l.captures[i] = op.caps[i].realize(rt, arg, self)
	}
	return l
}
