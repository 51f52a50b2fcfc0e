package ir

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Print writes prog in the text syntax accepted by Parse. Statements are
// grouped: extern crates, externs, definitions, instances, implementations.
// Programs whose definition paths cannot be read back are rejected with
// ErrUnqualifiedPath before anything is written.
func Print(w io.Writer, prog *Program) error {
	if err := checkQualified(prog); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, name := range prog.ExternCrates {
		bw.WriteString("extern crate " + name + ";\n")
	}
	for _, name := range prog.Externs {
		bw.WriteString("extern " + name + ";\n")
	}
	for i := range prog.Definitions {
		bw.WriteString(FormatDefinition(&prog.Definitions[i]) + "\n")
	}
	for i := range prog.Instances {
		bw.WriteString(FormatInstance(&prog.Instances[i]) + "\n")
	}
	for i := range prog.Implementations {
		bw.WriteString(FormatImplementation(&prog.Implementations[i]) + "\n")
	}
	return bw.Flush()
}

// ErrUnqualifiedPath reports a definition path with a single component,
// which the text syntax cannot tell apart from an extern name.
var ErrUnqualifiedPath = errors.New("ir: definition path is not crate-qualified")

func checkQualified(prog *Program) error {
	for i := range prog.Definitions {
		if d := &prog.Definitions[i]; len(d.Path) < 2 {
			return fmt.Errorf("%w: definition %s", ErrUnqualifiedPath, d.Path)
		}
	}
	for i := range prog.Implementations {
		impl := &prog.Implementations[i]
		for _, lit := range impl.Literals() {
			if lit != nil && lit.Kind == LitDefinition && len(lit.Path) < 2 {
				return fmt.Errorf("%w: %s in %s", ErrUnqualifiedPath, lit.Path, impl.Path)
			}
		}
	}
	return nil
}

// String renders prog as text.
func (p *Program) String() string {
	var sb strings.Builder
	Print(&sb, p)
	return sb.String()
}

// FormatDefinition renders one definition statement.
func FormatDefinition(def *Definition) string {
	var sb strings.Builder
	if def.Public {
		sb.WriteString("pub ")
	}
	sb.WriteString(def.Path.String())
	sb.WriteString(" = ")
	sb.WriteString(def.Inst.String())
	if def.NeedsInit {
		sb.WriteString(" $$")
	}
	sb.WriteByte(';')
	return sb.String()
}

// FormatInstance renders one inst statement.
func FormatInstance(inst *Instance) string {
	caps := make([]string, len(inst.Captures))
	for i, c := range inst.Captures {
		caps[i] = c.String()
	}
	return "inst " + inst.Path.String() + " = " + inst.Impl.String() +
		"[" + strings.Join(caps, " ") + "];"
}

// FormatImplementation renders one impl statement.
func FormatImplementation(impl *Implementation) string {
	head := "impl " + impl.Path.String() + " = "
	switch impl.Body {
	case BodyReturn:
		return head + impl.Value.String() + ";"
	case BodyTailCall:
		return head + impl.Fn.String() + " " + impl.Arg.String() + ";"
	case BodyContinueCall:
		return head + impl.Fn.String() + " " + impl.Arg.String() + " -> " + impl.Next.String() + ";"
	}
	return head + "<invalid>;"
}

func (l *Literal) String() string {
	if l == nil {
		return "<nil>"
	}
	switch l.Kind {
	case LitCapture:
		return "$" + strconv.Itoa(l.ID)
	case LitExtern:
		return l.Name
	case LitDefinition:
		return l.Path.String()
	case LitInstance:
		return l.Inst.String()
	case LitConstruct:
		caps := make([]string, len(l.Captures))
		for i, c := range l.Captures {
			caps[i] = c.String()
		}
		return l.Impl.String() + "[" + strings.Join(caps, " ") + "]"
	}
	return "<invalid>"
}

func (c CaptureRef) String() string {
	if c.Inst != nil {
		return c.Inst.String()
	}
	return "$" + strconv.Itoa(c.ID)
}
