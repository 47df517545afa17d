package cli

import (
	"fmt"
	"io"

	"github.com/tycore/tycore/internal/diagnostics"
	"github.com/tycore/tycore/internal/files"
)

// printer renders diagnostics to an io.Writer, colorizing severity labels
// only when color is enabled — the same ANSI-wrap-or-passthrough shape as
// the teacher's ansiWrap/ansiFg (internal/evaluator/builtins_term.go),
// trimmed to the one use this CLI actually has (severity labels), decided
// once via isatty rather than per call.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer, color bool) *printer {
	return &printer{w: w, color: color}
}

func (p *printer) ansiFg(code int, s string) string {
	if !p.color {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[39m", code, s)
}

func severityColor(s diagnostics.Severity) int {
	switch s {
	case diagnostics.SeverityError:
		return 31 // red
	case diagnostics.SeverityWarning:
		return 33 // yellow
	default:
		return 36 // cyan
	}
}

// printDiagnostic renders one file-anchored diagnostic as
// "path:line:col: severity: message [rule]", with secondary ranges
// indented below it, mirroring rustc/ruff-style single-line-per-span
// output rather than inventing a new schema.
func (p *printer) printDiagnostic(f *files.File, text string, d diagnostics.Diagnostic) {
	line, col, _, _ := d.Primary.LineCol(text)
	sev := p.ansiFg(severityColor(d.Severity), d.Severity.String())
	fmt.Fprintf(p.w, "%s:%d:%d: %s: %s [%s]\n", f.Path().Path, line, col, sev, d.Message, d.Rule)
	for _, sec := range d.Secondary {
		if sec.File == f {
			sline, scol, _, _ := sec.LineCol(text)
			fmt.Fprintf(p.w, "  %s:%d:%d: %s\n", sec.File.Path().Path, sline, scol, sec.Annotation)
			continue
		}
		// Secondary span in another file: no source text fetched here, so
		// report the raw byte offset rather than guess a line/col.
		fmt.Fprintf(p.w, "  %s@byte %d: %s\n", sec.File.Path().Path, sec.Bytes.Start, sec.Annotation)
	}
}

// printConfigDiagnostic renders a project-level diagnostic (spec.md §7's
// "configuration errors ... surfaced as project-level settings
// diagnostics"), which has no file/range to anchor on.
func (p *printer) printConfigDiagnostic(d diagnostics.Diagnostic) {
	sev := p.ansiFg(severityColor(d.Severity), d.Severity.String())
	fmt.Fprintf(p.w, "<config>: %s: %s [%s]\n", sev, d.Message, d.Rule)
}
