// Package ir defines the compiled intermediate form consumed by the lambda
// runtime: definitions, static instances and continuation-split
// implementations, plus a text syntax for reading and writing them.
package ir

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

// Path is an absolute, '::'-separated name such as std::true.
type Path []string

// ParsePath splits s on "::".
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, "::"))
}

func (p Path) String() string {
	return strings.Join(p, "::")
}

// Crate returns the first path component.
func (p Path) Crate() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Equal reports whether p and q name the same thing.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// InstancePath names a statically allocated instance: path%id.
type InstancePath struct {
	Path Path `cbor:"1,keyasint"`
	ID   int  `cbor:"2,keyasint"`
}

func (p InstancePath) String() string {
	return p.Path.String() + "%" + strconv.Itoa(p.ID)
}

// ImplPath names one implementation function: path!lambda!continuation.
// A single source lambda is split into one implementation per continuation.
type ImplPath struct {
	Path   Path `cbor:"1,keyasint"`
	Lambda int  `cbor:"2,keyasint"`
	Cont   int  `cbor:"3,keyasint"`
}

func (p ImplPath) String() string {
	return p.Path.String() + "!" + strconv.Itoa(p.Lambda) + "!" + strconv.Itoa(p.Cont)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Definition binds a global name to an instance. When NeedsInit is set the
// global holds the result of applying the instance to a dummy argument at
// startup rather than the instance itself.
type Definition struct {
	Path      Path         `cbor:"1,keyasint"`
	Inst      InstancePath `cbor:"2,keyasint"`
	NeedsInit bool         `cbor:"3,keyasint,omitempty"`
	Public    bool         `cbor:"4,keyasint,omitempty"`
}

// Instance is a static closure: an implementation plus captured instances.
type Instance struct {
	Path     InstancePath   `cbor:"1,keyasint"`
	Impl     ImplPath       `cbor:"2,keyasint"`
	Captures []InstancePath `cbor:"3,keyasint,omitempty"`
}

// BodyKind selects the shape of an implementation body.
type BodyKind uint8

const (
	// BodyReturn passes Value to the current continuation.
	BodyReturn BodyKind = iota + 1
	// BodyTailCall applies Fn to Arg with the current continuation.
	BodyTailCall
	// BodyContinueCall applies Fn to Arg, continuing with Next and then
	// the current continuation.
	BodyContinueCall
)

func (k BodyKind) String() string {
	switch k {
	case BodyReturn:
		return "return"
	case BodyTailCall:
		return "tailcall"
	case BodyContinueCall:
		return "continuecall"
	}
	return "invalid"
}

// Implementation is the code of one closure. $0 is the argument and $n
// (n >= 1) the closure's capture n-1.
type Implementation struct {
	Path  ImplPath `cbor:"1,keyasint"`
	Body  BodyKind `cbor:"2,keyasint"`
	Value *Literal `cbor:"3,keyasint,omitempty"` // BodyReturn
	Fn    *Literal `cbor:"4,keyasint,omitempty"` // calls
	Arg   *Literal `cbor:"5,keyasint,omitempty"` // calls
	Next  *Literal `cbor:"6,keyasint,omitempty"` // BodyContinueCall
}

// Literals returns the body's literals in evaluation order.
func (impl *Implementation) Literals() []*Literal {
	switch impl.Body {
	case BodyReturn:
		return []*Literal{impl.Value}
	case BodyTailCall:
		return []*Literal{impl.Fn, impl.Arg}
	case BodyContinueCall:
		return []*Literal{impl.Fn, impl.Arg, impl.Next}
	}
	return nil
}

// Captures returns the distinct capture ids ($n, n >= 1) the body reads,
// in first-use order.
func (impl *Implementation) Captures() []int {
	seen := make(map[int]bool)
	var ids []int
	add := func(id int) {
		if id > 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, lit := range impl.Literals() {
		if lit == nil {
			continue
		}
		switch lit.Kind {
		case LitCapture:
			add(lit.ID)
		case LitConstruct:
			for _, c := range lit.Captures {
				if c.Inst == nil {
					add(c.ID)
				}
			}
		}
	}
	return ids
}

// MaxCapture returns the largest capture id the body reads, i.e. the
// minimum number of capture slots a closure running it must have.
func (impl *Implementation) MaxCapture() int {
	max := 0
	for _, id := range impl.Captures() {
		if id > max {
			max = id
		}
	}
	return max
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

// LiteralKind identifies the kind of value a literal denotes.
type LiteralKind uint8

const (
	LitCapture    LiteralKind = iota + 1 // $n
	LitExtern                            // name
	LitDefinition                        // crate::name
	LitInstance                          // crate::name%n
	LitConstruct                         // crate::name!l!c[caps]
)

// Literal is a value operand of an implementation body.
type Literal struct {
	Kind     LiteralKind   `cbor:"1,keyasint"`
	ID       int           `cbor:"2,keyasint,omitempty"`
	Name     string        `cbor:"3,keyasint,omitempty"`
	Path     Path          `cbor:"4,keyasint,omitempty"`
	Inst     *InstancePath `cbor:"5,keyasint,omitempty"`
	Impl     *ImplPath     `cbor:"6,keyasint,omitempty"`
	Captures []CaptureRef  `cbor:"7,keyasint,omitempty"`
}

// CaptureRef is one capture of a constructed closure: either a capture id
// of the enclosing implementation or a static instance.
type CaptureRef struct {
	ID   int           `cbor:"1,keyasint,omitempty"`
	Inst *InstancePath `cbor:"2,keyasint,omitempty"`
}

// Capture returns a $id literal.
func Capture(id int) *Literal {
	return &Literal{Kind: LitCapture, ID: id}
}

// Extern returns a literal naming a host-provided object.
func Extern(name string) *Literal {
	return &Literal{Kind: LitExtern, Name: name}
}

// Global returns a literal reading a definition.
func Global(path Path) *Literal {
	return &Literal{Kind: LitDefinition, Path: path}
}

// Static returns a literal referencing a static instance.
func Static(inst InstancePath) *Literal {
	return &Literal{Kind: LitInstance, Inst: &inst}
}

// Construct returns a literal allocating a new closure of impl.
func Construct(impl ImplPath, caps ...CaptureRef) *Literal {
	return &Literal{Kind: LitConstruct, Impl: &impl, Captures: caps}
}

// ---------------------------------------------------------------------------
// Program
// ---------------------------------------------------------------------------

// Program is one compiled crate.
type Program struct {
	Crate           string           `cbor:"1,keyasint"`
	ExternCrates    []string         `cbor:"2,keyasint,omitempty"`
	Externs         []string         `cbor:"3,keyasint,omitempty"`
	Definitions     []Definition     `cbor:"4,keyasint,omitempty"`
	Instances       []Instance       `cbor:"5,keyasint,omitempty"`
	Implementations []Implementation `cbor:"6,keyasint,omitempty"`
}

// Definition looks up a definition by path.
func (p *Program) Definition(path Path) *Definition {
	for i := range p.Definitions {
		if p.Definitions[i].Path.Equal(path) {
			return &p.Definitions[i]
		}
	}
	return nil
}
