// Package cli implements the tycore command-line driver: a thin,
// one-shot client of internal/engine.Db, in the same register as the
// teacher's pkg/cli/entry.go (a handful of handleX functions tried in
// order against os.Args, each returning whether it claimed the
// invocation) but scoped to what spec.md §6 actually exposes — check a
// set of files, print their diagnostics, exit non-zero if any are
// errors.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/tycore/tycore/internal/diagnostics"
	"github.com/tycore/tycore/internal/engine"
	"github.com/tycore/tycore/internal/files"
	"github.com/tycore/tycore/internal/pyconfig"
)

// Run is the single entry point cmd/tycore/main.go calls. It returns the
// process exit code rather than calling os.Exit itself, so tests can
// drive it without forking a process.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	switch args[0] {
	case "-help", "--help", "help":
		printUsage(stdout)
		return 0
	case "check":
		return runCheck(args[1:], stdout, stderr)
	default:
		// No subcommand named: treat every argument as a path to check,
		// matching the teacher's habit of a bare-path default mode
		// (funxy <script>.lang runs it; tycore <path> checks it).
		return runCheck(args, stdout, stderr)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tycore check [path ...]")
	fmt.Fprintln(w, "       tycore <path ...>   (shorthand for check)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Checks the given files or directories (recursively, *.py only,")
	fmt.Fprintln(w, "respecting ty.toml/pyproject.toml include/exclude globs if present)")
	fmt.Fprintln(w, "and prints diagnostics. Exits 1 if any error-severity diagnostic fired.")
}

// runCheck loads cfg (from ty.toml/pyproject.toml found near the first
// path, or pyconfig.Default()), discovers every *.py file under the given
// paths, feeds them to a fresh Db as a single ApplyChanges batch (spec.md
// §6's ChangeEvent schema, EvCreated for each discovered path), and prints
// CheckFile's result for each, sorted by path for stable CLI output
// (spec.md §5: the core promises no cross-file ordering, so the driver —
// here, not the core — imposes one).
func runCheck(paths []string, stdout, stderr io.Writer) int {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	cfg, cfgDiags := loadConfigNear(paths[0])
	db, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "tycore: %v\n", err)
		return 1
	}

	discovered, walkErrs := discoverPythonFiles(paths)
	events := make([]engine.ChangeEvent, 0, len(discovered))
	for _, p := range discovered {
		events = append(events, engine.ChangeEvent{Kind: engine.EvCreated, Path: p})
	}
	db.ApplyChanges(events, engine.OSStater{})

	p := newPrinter(stdout, isatty.IsTerminal(os.Stdout.Fd()))
	exitCode := 0

	for _, d := range cfgDiags {
		p.printConfigDiagnostic(d)
		if d.Severity == diagnostics.SeverityError {
			exitCode = 1
		}
	}
	for _, e := range walkErrs {
		fmt.Fprintf(stderr, "tycore: %v\n", e)
	}

	var fileList []*files.File
	for _, f := range db.ProjectFiles() {
		fileList = append(fileList, f)
	}
	sort.Slice(fileList, func(i, j int) bool { return fileList[i].Path().Path < fileList[j].Path().Path })

	for _, f := range fileList {
		text, _ := db.ReadToString(f)
		diags := db.CheckFile(f)
		for _, d := range diags {
			p.printDiagnostic(f, text, d)
			if d.Severity == diagnostics.SeverityError {
				exitCode = 1
			}
		}
	}
	return exitCode
}

// loadConfigNear searches upward from start (a file or directory path)
// for ty.toml or pyproject.toml, the same "nearest config wins" discovery
// spec.md §6 describes, and falls back to pyconfig.Default() with no
// diagnostics when neither is found.
func loadConfigNear(start string) (pyconfig.Config, []diagnostics.Diagnostic) {
	dir := start
	if info, err := os.Stat(start); err == nil && !info.IsDir() {
		dir = filepath.Dir(start)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	for {
		for _, name := range []string{"ty.toml", "pyproject.toml"} {
			candidate := filepath.Join(abs, name)
			data, err := os.ReadFile(candidate)
			if err != nil {
				continue
			}
			return pyconfig.Load(data)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			break
		}
		abs = parent
	}
	return pyconfig.Default(), nil
}

// discoverPythonFiles walks each root collecting *.py files (a directory
// is walked recursively; a file is taken as-is regardless of extension,
// matching an editor's "check exactly what I opened" expectation).
func discoverPythonFiles(roots []string) ([]string, []error) {
	var out []string
	var errs []error
	seen := make(map[string]struct{})
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", root, err))
			continue
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		walkErr := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return nil // best-effort walk, matching the teacher's directory scan in handleTest
			}
			if fi.IsDir() {
				if fi.Name() == ".git" || fi.Name() == "__pycache__" {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(fi.Name(), ".py") {
				add(path)
			}
			return nil
		})
		if walkErr != nil {
			errs = append(errs, walkErr)
		}
	}
	sort.Strings(out)
	return out, errs
}
