// Package manifest handles lamb.toml (or lamb.yaml) project configuration
// and locates the crates a program is linked from.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileNames are the manifest file names recognized, in lookup order.
var FileNames = []string{"lamb.toml", "lamb.yaml", "lamb.yml"}

var ErrNoManifest = errors.New("no lamb.toml or lamb.yaml")

// Manifest represents a lamb project configuration.
type Manifest struct {
	Project Project `toml:"project" yaml:"project"`
	Source  Source  `toml:"source" yaml:"source"`
	Runtime Runtime `toml:"runtime" yaml:"runtime"`
	Log     Log     `toml:"log" yaml:"log"`

	// Dir is the directory containing the manifest file (set at load time).
	Dir string `toml:"-" yaml:"-"`
	// Path is the manifest file itself.
	Path string `toml:"-" yaml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" yaml:"name"`
	Version string `toml:"version" yaml:"version"`
}

// Source configures where crates are found and which definition runs.
type Source struct {
	Dirs   []string `toml:"dirs" yaml:"dirs"`
	Crates []string `toml:"crates" yaml:"crates"`
	Entry  string   `toml:"entry" yaml:"entry"`
}

// Runtime configures the evaluator.
type Runtime struct {
	Checked bool   `toml:"checked" yaml:"checked"`
	Input   string `toml:"input" yaml:"input"`
	Output  string `toml:"output" yaml:"output"`
	// FlushEachByte forces per-byte output flushing on or off. When unset
	// the runner decides based on whether output is a terminal.
	FlushEachByte *bool `toml:"flush-each-byte" yaml:"flush-each-byte"`
}

// Log configures diagnostics.
type Log struct {
	Verbosity int    `toml:"verbosity" yaml:"verbosity"`
	File      string `toml:"file" yaml:"file"`
}

// Load parses the manifest file found in dir.
func Load(dir string) (*Manifest, error) {
	path := findIn(dir)
	if path == "" {
		return nil, fmt.Errorf("%w in %s", ErrNoManifest, dir)
	}
	return LoadFile(path)
}

// LoadFile parses a manifest file, choosing the decoder by extension.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = toml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	m.Dir = filepath.Dir(m.Path)

	// Defaults
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Source.Entry == "" && len(m.Source.Crates) > 0 {
		m.Source.Entry = m.Source.Crates[len(m.Source.Crates)-1] + "::main"
	}
	for _, c := range m.Source.Crates {
		if err := ValidateCrateName(c); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a manifest file, then loads
// and returns it. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if path := findIn(dir); path != "" {
			return LoadFile(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func findIn(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, m.Abs(d))
	}
	return paths
}

// Abs resolves p relative to the manifest directory. Empty stays empty.
func (m *Manifest) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// Roots returns the crates to resolve: the configured list, or else the
// crate of the entry definition.
func (m *Manifest) Roots() []string {
	if len(m.Source.Crates) > 0 {
		return m.Source.Crates
	}
	if i := strings.Index(m.Source.Entry, "::"); i > 0 {
		return []string{m.Source.Entry[:i]}
	}
	return nil
}
