package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/lamb/image"
	"github.com/chazu/lamb/ir"
	"github.com/tliron/commonlog"
)

// Crate file extensions, in lookup order.
const (
	SourceExt = ".lir"
	ImageExt  = image.Extension
)

var (
	ErrCrateNotFound = errors.New("crate not found")
	ErrCrateCycle    = errors.New("crate dependency cycle")
	ErrCrateMismatch = errors.New("crate name mismatch")
)

var log = commonlog.GetLogger("lamb.manifest")

// ResolvedCrate is a crate located on disk and loaded.
type ResolvedCrate struct {
	Name    string
	Path    string
	Program *ir.Program
}

// Resolver locates crates by name across source directories and
// explicitly added files.
type Resolver struct {
	dirs  []string
	files map[string]string // crate name -> path
}

// NewResolver creates a resolver searching dirs in order.
func NewResolver(dirs ...string) *Resolver {
	return &Resolver{
		dirs:  dirs,
		files: make(map[string]string),
	}
}

// AddFile registers path as the source of the crate named after it and
// returns that name. Added files take precedence over directory lookup.
func (r *Resolver) AddFile(path string) (string, error) {
	name := CrateName(path)
	if err := ValidateCrateName(name); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if prev, ok := r.files[name]; ok && prev != path {
		return "", fmt.Errorf("crate %s given twice: %s and %s", name, prev, path)
	}
	r.files[name] = path
	return name, nil
}

// Lookup returns the file providing crate name.
func (r *Resolver) Lookup(name string) (string, error) {
	if path, ok := r.files[name]; ok {
		return path, nil
	}
	for _, dir := range r.dirs {
		for _, ext := range []string{SourceExt, ImageExt} {
			path := filepath.Join(dir, name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s (searched %s)", ErrCrateNotFound, name, strings.Join(r.dirs, ", "))
}

// Resolve loads the root crates and everything they reference through
// extern crate declarations. Crates are returned in load order
// (topologically sorted: dependencies before dependents).
func (r *Resolver) Resolve(roots ...string) ([]ResolvedCrate, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var order []ResolvedCrate
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s -> %s", ErrCrateCycle, strings.Join(stack, " -> "), name)
		}
		state[name] = visiting
		stack = append(stack, name)

		path, err := r.Lookup(name)
		if err != nil {
			return err
		}
		prog, err := LoadCrate(name, path)
		if err != nil {
			return err
		}
		for _, dep := range prog.ExternCrates {
			if err := visit(dep); err != nil {
				return fmt.Errorf("resolving %s: %w", name, err)
			}
		}

		stack = stack[:len(stack)-1]
		state[name] = done
		order = append(order, ResolvedCrate{Name: name, Path: path, Program: prog})
		log.Debugf("resolved crate %s from %s", name, path)
		return nil
	}

	for _, root := range roots {
		if err := visit(root); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// LoadCrate reads a crate from a .lir text file or a .limg image.
func LoadCrate(name, path string) (*ir.Program, error) {
	if strings.EqualFold(filepath.Ext(path), ImageExt) {
		img, err := image.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if img.Crate != name {
			return nil, fmt.Errorf("%w: %s holds crate %s, want %s", ErrCrateMismatch, path, img.Crate, name)
		}
		return img.Program, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return ir.Parse(name, path, string(data))
}

// Programs returns the programs of crates in order.
func Programs(crates []ResolvedCrate) []*ir.Program {
	progs := make([]*ir.Program, len(crates))
	for i, c := range crates {
		progs[i] = c.Program
	}
	return progs
}
