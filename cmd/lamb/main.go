// Lamb CLI - links compiled lambda crates and runs their entry point
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chazu/lamb/image"
	"github.com/chazu/lamb/ir"
	"github.com/chazu/lamb/manifest"
	"github.com/chazu/lamb/vm"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("lamb.cmd")

type options struct {
	verbosity int
	entry     string
	configDir string
	checked   bool
	stats     bool
	emit      string
	print     bool
	files     []string
}

func main() {
	var opts options
	flag.IntVar(&opts.verbosity, "v", 0, "Log verbosity (0 = errors only, 1 = notices, 2 = info, 3+ = debug)")
	flag.StringVar(&opts.entry, "m", "", "Entry definition (e.g., 'echo::main')")
	flag.StringVar(&opts.configDir, "config", "", "Directory to search for lamb.toml or lamb.yaml (default: current directory)")
	flag.BoolVar(&opts.checked, "checked", false, "Detect use-after-free and double release")
	flag.BoolVar(&opts.stats, "stats", false, "Print heap and trampoline statistics on exit")
	flag.StringVar(&opts.emit, "emit", "", "Compile the given .lir file to an image at this path and exit")
	flag.BoolVar(&opts.print, "print", false, "Print the loaded crates in IR syntax and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lamb [options] [crate files...]\n\n")
		fmt.Fprintf(os.Stderr, "Links .lir and .limg crates and runs the entry definition.\n")
		fmt.Fprintf(os.Stderr, "Without files, crates are resolved from the project manifest.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lamb                           # Run the project in the current directory\n")
		fmt.Fprintf(os.Stderr, "  lamb -m echo::main src/echo.lir\n")
		fmt.Fprintf(os.Stderr, "  lamb -emit echo.limg src/echo.lir\n")
		fmt.Fprintf(os.Stderr, "  lamb -print lib.limg           # Disassemble an image\n")
	}
	flag.Parse()
	opts.files = flag.Args()

	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	m, err := loadManifest(opts.configDir)
	if err != nil {
		return err
	}

	verbosity, logFile := opts.verbosity, ""
	if m != nil {
		if verbosity == 0 {
			verbosity = m.Log.Verbosity
		}
		logFile = m.Abs(m.Log.File)
	}
	if logFile != "" {
		commonlog.Configure(verbosity, &logFile)
	} else {
		commonlog.Configure(verbosity, nil)
	}

	if opts.emit != "" {
		return emit(opts.emit, opts.files)
	}

	crates, err := resolve(m, opts.files)
	if err != nil {
		return err
	}

	if opts.print {
		out := bufio.NewWriter(os.Stdout)
		for _, c := range crates {
			fmt.Fprintf(out, "# crate %s (%s)\n", c.Name, c.Path)
			if err := ir.Print(out, c.Program); err != nil {
				return err
			}
		}
		return out.Flush()
	}

	entry := opts.entry
	if entry == "" && m != nil {
		entry = m.Source.Entry
	}
	if entry == "" {
		entry = crates[len(crates)-1].Name + "::main"
	}

	rtOpts, closeIO, err := runtimeOptions(m, opts)
	if err != nil {
		return err
	}
	defer closeIO()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	rt := vm.NewRuntime(rtOpts)
	log.Infof("runtime %s: linking %d crates", rt.ID(), len(crates))

	mod, err := rt.Link(manifest.Programs(crates)...)
	if err != nil {
		return fmt.Errorf("link: %w", err)
	}
	if err := mod.Init(ctx); err != nil {
		mod.Fini()
		return fmt.Errorf("init: %w", err)
	}
	runErr := mod.RunMain(ctx, entry)
	mod.Fini()
	flushErr := rt.Flush()

	if opts.stats {
		printStats(os.Stderr, rt.Stats())
	}
	if runErr != nil {
		return runErr
	}
	return flushErr
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return manifest.FindAndLoad(cwd)
}

// resolve loads the crates named on the command line, or the manifest's
// roots, plus their dependencies.
func resolve(m *manifest.Manifest, files []string) ([]manifest.ResolvedCrate, error) {
	var dirs []string
	if m != nil {
		dirs = m.SourceDirPaths()
	}
	// Dependencies of an explicit file are also looked up next to it.
	for _, f := range files {
		dirs = append(dirs, filepath.Dir(f))
	}
	r := manifest.NewResolver(dirs...)

	var roots []string
	for _, f := range files {
		name, err := r.AddFile(f)
		if err != nil {
			return nil, err
		}
		roots = append(roots, name)
	}
	if len(files) == 0 && m != nil {
		roots = m.Roots()
	}
	if len(roots) == 0 {
		return nil, errors.New("no crates given and no [source] crates or entry in the manifest")
	}
	return r.Resolve(roots...)
}

func emit(out string, files []string) error {
	if len(files) != 1 || !strings.HasSuffix(files[0], manifest.SourceExt) {
		return fmt.Errorf("-emit takes exactly one %s file", manifest.SourceExt)
	}
	name := manifest.CrateName(files[0])
	if err := manifest.ValidateCrateName(name); err != nil {
		return err
	}
	prog, err := manifest.LoadCrate(name, files[0])
	if err != nil {
		return err
	}
	img, err := image.Build(prog)
	if err != nil {
		return err
	}
	if err := image.WriteFile(out, img); err != nil {
		return err
	}
	log.Noticef("wrote crate %s to %s (hash %s)", name, out, img.HashString())
	return nil
}

// runtimeOptions opens the configured program input and output. Per-byte
// flushing defaults to on when output is a terminal.
func runtimeOptions(m *manifest.Manifest, opts options) (vm.Options, func(), error) {
	var rc manifest.Runtime
	if m != nil {
		rc = m.Runtime
		rc.Input, rc.Output = m.Abs(rc.Input), m.Abs(rc.Output)
	}

	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	vo := vm.Options{
		Input:   os.Stdin,
		Output:  os.Stdout,
		Checked: opts.checked || rc.Checked,
	}
	outFile := os.Stdout
	if rc.Input != "" {
		f, err := os.Open(rc.Input)
		if err != nil {
			return vo, closeAll, err
		}
		closers = append(closers, f)
		vo.Input = f
	}
	if rc.Output != "" {
		f, err := os.Create(rc.Output)
		if err != nil {
			closeAll()
			return vo, func() {}, err
		}
		closers = append(closers, f)
		vo.Output = f
		outFile = f
	}

	if rc.FlushEachByte != nil {
		vo.FlushEachByte = *rc.FlushEachByte
	} else {
		fd := outFile.Fd()
		vo.FlushEachByte = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return vo, closeAll, nil
}

func printStats(w io.Writer, st vm.Stats) {
	fmt.Fprintf(w, "objects:  %d allocated, %d freed, %d live, %d peak\n",
		st.Heap.Allocs, st.Heap.Frees, st.Heap.Live, st.Heap.PeakLive)
	fmt.Fprintf(w, "frames:   %d pushed, %d popped, %d live\n",
		st.Conts.Allocs, st.Conts.Frees, st.Conts.Live)
	fmt.Fprintf(w, "steps:    %d (max depth %d)\n", st.Steps, st.MaxDepth)
	fmt.Fprintf(w, "statics:  %d\n", st.Statics)
}
