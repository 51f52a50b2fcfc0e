package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/lamb/ir"
)

// ---------------------------------------------------------------------------
// Module: linked programs
// ---------------------------------------------------------------------------

// Module is a set of programs linked against a runtime. Static instances
// live as long as the runtime; globals marked for initialization are
// filled by Init and emptied by Fini.
type Module struct {
	rt          *Runtime
	crates      []string
	impls       map[string]*compiledImpl
	instances   map[string]*Lambda
	globals     map[string]*global
	inits       []*global
	initialized bool
}

// Link resolves progs against each other and the runtime's externs. All
// problems found are reported together.
func (rt *Runtime) Link(progs ...*ir.Program) (*Module, error) {
	m := &Module{
		rt:        rt,
		impls:     make(map[string]*compiledImpl),
		instances: make(map[string]*Lambda),
		globals:   make(map[string]*global),
	}
	mark := len(rt.statics)

	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	// Pass 1: declare every symbol.
	crates := make(map[string]bool)
	for _, p := range progs {
		if p.Crate != "" {
			if crates[p.Crate] {
				fail("%w: crate %s", ErrDuplicate, p.Crate)
			}
			crates[p.Crate] = true
			m.crates = append(m.crates, p.Crate)
		}
		for i := range p.Implementations {
			impl := &p.Implementations[i]
			key := impl.Path.String()
			if _, dup := m.impls[key]; dup {
				fail("%w: impl %s", ErrDuplicate, key)
				continue
			}
			m.impls[key] = &compiledImpl{path: key, src: impl, maxCapture: impl.MaxCapture()}
		}
		for i := range p.Instances {
			inst := &p.Instances[i]
			key := inst.Path.String()
			if _, dup := m.instances[key]; dup {
				fail("%w: inst %s", ErrDuplicate, key)
				continue
			}
			m.instances[key] = rt.newStaticShell(key, len(inst.Captures))
		}
		for i := range p.Definitions {
			def := &p.Definitions[i]
			key := def.Path.String()
			if _, dup := m.globals[key]; dup {
				fail("%w: definition %s", ErrDuplicate, key)
				continue
			}
			m.globals[key] = &global{path: key, def: def, needsInit: def.NeedsInit}
		}
	}

	// Pass 2: resolve references.
	for _, p := range progs {
		for _, name := range p.ExternCrates {
			if !crates[name] {
				fail("%w: %s (required by %s)", ErrUnknownCrate, name, p.Crate)
			}
		}
		for _, name := range p.Externs {
			if _, ok := rt.Extern(name); !ok {
				fail("%w: %s", ErrUnknownExtern, name)
			}
		}
		for i := range p.Implementations {
			ci := m.impls[p.Implementations[i].Path.String()]
			if ci.src != &p.Implementations[i] {
				continue
			}
			if err := m.compile(ci); err != nil {
				errs = append(errs, err)
			}
		}
		for i := range p.Instances {
			if err := m.bindInstance(&p.Instances[i]); err != nil {
				errs = append(errs, err)
			}
		}
		for i := range p.Definitions {
			def := &p.Definitions[i]
			g := m.globals[def.Path.String()]
			if g.def != def {
				continue
			}
			inst, ok := m.instances[def.Inst.String()]
			if !ok {
				fail("%w: %s (definition %s)", ErrUnknownInstance, def.Inst, g.path)
				continue
			}
			g.inst = inst
			if def.NeedsInit {
				m.inits = append(m.inits, g)
			} else {
				g.value = inst
			}
		}
	}

	if len(errs) > 0 {
		rt.statics = rt.statics[:mark]
		return nil, errors.Join(errs...)
	}
	rt.log.Debugf("linked %v: %d impls, %d instances, %d globals",
		m.crates, len(m.impls), len(m.instances), len(m.globals))
	return m, nil
}

func (m *Module) compile(ci *compiledImpl) error {
	src := ci.src
	ci.body = src.Body
	lits := src.Literals()
	if len(lits) == 0 {
		return fmt.Errorf("impl %s: invalid body %v", ci.path, src.Body)
	}
	for i, lit := range lits {
		if lit == nil {
			return fmt.Errorf("impl %s: missing operand %d", ci.path, i)
		}
		op, err := m.operand(ci, lit)
		if err != nil {
			return fmt.Errorf("impl %s: %w", ci.path, err)
		}
		ci.ops[i] = op
	}
	ci.nops = len(lits)
	return nil
}

func (m *Module) operand(ci *compiledImpl, lit *ir.Literal) (operand, error) {
	switch lit.Kind {
	case ir.LitCapture:
		return captureOperand(ci, lit.ID), nil

	case ir.LitExtern:
		obj, ok := m.rt.Extern(lit.Name)
		if !ok {
			return operand{}, fmt.Errorf("%w: %s", ErrUnknownExtern, lit.Name)
		}
		ci.useStatic(obj)
		return operand{kind: opStatic, obj: obj}, nil

	case ir.LitDefinition:
		g, ok := m.globals[lit.Path.String()]
		if !ok {
			return operand{}, fmt.Errorf("%w: %s", ErrUnknownDefinition, lit.Path)
		}
		ci.useGlobal(g)
		return operand{kind: opGlobal, global: g}, nil

	case ir.LitInstance:
		obj, ok := m.instances[lit.Inst.String()]
		if !ok {
			return operand{}, fmt.Errorf("%w: %s", ErrUnknownInstance, lit.Inst)
		}
		ci.useStatic(obj)
		return operand{kind: opStatic, obj: obj}, nil

	case ir.LitConstruct:
		target, ok := m.impls[lit.Impl.String()]
		if !ok {
			return operand{}, fmt.Errorf("%w: %s", ErrUnknownImplementation, lit.Impl)
		}
		if target.maxCapture > len(lit.Captures) {
			return operand{}, fmt.Errorf("%w: %s reads $%d but is built with %d captures",
				ErrCaptureRange, target.path, target.maxCapture, len(lit.Captures))
		}
		op := operand{kind: opConstruct, impl: target, caps: make([]operand, len(lit.Captures))}
		for i, c := range lit.Captures {
			if c.Inst == nil {
				op.caps[i] = captureOperand(ci, c.ID)
				continue
			}
			obj, ok := m.instances[c.Inst.String()]
			if !ok {
				return operand{}, fmt.Errorf("%w: %s", ErrUnknownInstance, c.Inst)
			}
			ci.useStatic(obj)
			op.caps[i] = operand{kind: opStatic, obj: obj}
		}
		return op, nil
	}
	return operand{}, fmt.Errorf("invalid literal kind %d", lit.Kind)
}

// captureOperand maps $0 to the argument and $n to capture n-1.
func captureOperand(ci *compiledImpl, id int) operand {
	if id == 0 {
		ci.argUses++
		return operand{kind: opArg}
	}
	ci.useCapture(id - 1)
	return operand{kind: opCapture, index: id - 1}
}

func (m *Module) bindInstance(inst *ir.Instance) error {
	key := inst.Path.String()
	l := m.instances[key]
	if l.impl != nil || len(l.captures) != len(inst.Captures) {
		// duplicate declaration; reported in pass 1
		return nil
	}
	ci, ok := m.impls[inst.Impl.String()]
	if !ok {
		return fmt.Errorf("inst %s: %w: %s", key, ErrUnknownImplementation, inst.Impl)
	}
	if ci.maxCapture > len(inst.Captures) {
		return fmt.Errorf("inst %s: %w: %s reads $%d but has %d captures",
			key, ErrCaptureRange, ci.path, ci.maxCapture, len(inst.Captures))
	}
	for i, c := range inst.Captures {
		target, ok := m.instances[c.String()]
		if !ok {
			return fmt.Errorf("inst %s: %w: %s", key, ErrUnknownInstance, c)
		}
		l.captures[i] = target
	}
	l.SetImpl(KindCompiled, ci.run)
	return nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Crates returns the linked crate names in link order.
func (m *Module) Crates() []string { return m.crates }

// Init evaluates the initialized definitions in declaration order. After a
// failure, calling Init again resumes with the first unset definition.
func (m *Module) Init(ctx context.Context) error {
	if m.initialized {
		return nil
	}
	var runErr error
	err := m.rt.Safe(func() {
		for _, g := range m.inits {
			if g.value != nil {
				// Set by an earlier Init that failed further on.
				continue
			}
			m.rt.Acquire(g.inst, 1)
			v, err := m.rt.NullCallContext(ctx, g.inst)
			if err != nil {
				runErr = fmt.Errorf("init %s: %w", g.path, err)
				return
			}
			g.value = v
		}
	})
	if err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	m.initialized = true
	m.rt.log.Debugf("initialized %d globals", len(m.inits))
	return nil
}

// Fini releases initialized definitions in reverse order.
func (m *Module) Fini() {
	for i := len(m.inits) - 1; i >= 0; i-- {
		g := m.inits[i]
		if g.value != nil {
			m.rt.Release(g.value)
			g.value = nil
		}
	}
	m.initialized = false
}

// Global returns an acquired reference to the value of a definition.
func (m *Module) Global(path string) (*Lambda, error) {
	g, ok := m.globals[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, path)
	}
	if g.value == nil {
		return nil, fmt.Errorf("%w: %s", ErrUninitializedValue, path)
	}
	m.rt.Acquire(g.value, 1)
	return g.value, nil
}

// RunMain applies the definition at path to the null instance and drops
// the result. Aborts are returned as *AbortError.
func (m *Module) RunMain(ctx context.Context, path string) error {
	fn, err := m.Global(path)
	if err != nil {
		return err
	}
	var runErr error
	err = m.rt.Safe(func() {
		var result *Lambda
		result, runErr = m.rt.NullCallContext(ctx, fn)
		if result != nil {
			m.rt.Release(result)
		}
	})
	if err != nil {
		return err
	}
	st := m.rt.Stats()
	m.rt.log.Debugf("run %s: %d steps, %d live objects", path, st.Steps, st.Heap.Live)
	return runErr
}
