package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/lamb/manifest"
	"github.com/chazu/lamb/vm"
)

const echoSource = `
extern lambda_io_getc;
extern lambda_io_putc;
pub echo::main = echo::main%0;
inst echo::main%0 = echo::main!0!0[];
impl echo::main!0!0 = lambda_io_getc $0 -> echo::main!0!1[];
impl echo::main!0!1 = lambda_io_putc $0;
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// project writes a manifest redirecting program I/O to files in dir.
func project(t *testing.T, source string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lamb.toml"), `
[source]
`+source+`
[runtime]
checked = true
input = "in.txt"
output = "out.txt"
`)
	writeFile(t, filepath.Join(dir, "in.txt"), "Q!")
	return dir
}

func TestRunProject(t *testing.T) {
	dir := project(t, `crates = ["echo"]`)
	writeFile(t, filepath.Join(dir, "src", "echo.lir"), echoSource)

	if err := run(context.Background(), options{configDir: dir}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "out.txt")); got != "Q" {
		t.Errorf("output = %q, want %q", got, "Q")
	}
}

func TestEmitThenRunImage(t *testing.T) {
	dir := project(t, "")
	src := filepath.Join(dir, "echo.lir")
	writeFile(t, src, echoSource)
	img := filepath.Join(dir, "build", "echo"+manifest.ImageExt)
	if err := os.MkdirAll(filepath.Dir(img), 0755); err != nil {
		t.Fatal(err)
	}

	if err := run(context.Background(), options{configDir: dir, emit: img, files: []string{src}}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := run(context.Background(), options{configDir: dir, files: []string{img}}); err != nil {
		t.Fatalf("run image: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "out.txt")); got != "Q" {
		t.Errorf("output = %q, want %q", got, "Q")
	}
}

func TestRunErrors(t *testing.T) {
	t.Run("no crates", func(t *testing.T) {
		dir := project(t, "")
		if err := run(context.Background(), options{configDir: dir}); err == nil {
			t.Error("run succeeded without crates")
		}
	})
	t.Run("missing entry", func(t *testing.T) {
		dir := project(t, `crates = ["echo"]`)
		writeFile(t, filepath.Join(dir, "src", "echo.lir"), echoSource)
		err := run(context.Background(), options{configDir: dir, entry: "echo::nope"})
		if !errors.Is(err, vm.ErrUnknownDefinition) {
			t.Errorf("run = %v, want ErrUnknownDefinition", err)
		}
	})
	t.Run("link error", func(t *testing.T) {
		dir := project(t, `crates = ["bad"]`)
		writeFile(t, filepath.Join(dir, "src", "bad.lir"), "extern nowhere;\n")
		err := run(context.Background(), options{configDir: dir})
		if !errors.Is(err, vm.ErrUnknownExtern) {
			t.Errorf("run = %v, want ErrUnknownExtern", err)
		}
	})
	t.Run("emit needs one source file", func(t *testing.T) {
		dir := project(t, "")
		if err := run(context.Background(), options{configDir: dir, emit: "x.limg"}); err == nil {
			t.Error("emit succeeded without input")
		}
	})
}
