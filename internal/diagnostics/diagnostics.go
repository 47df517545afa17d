// Package diagnostics implements the checker's diagnostic schema and error
// taxonomy: diagnostics are data returned from queries, never exceptions,
// treating compile errors as values collected during a walk rather than
// panicking out of the analyzer. Diagnostic carries a richer schema than a
// bare message string: secondary ranges, a Fix list with Applicability, and
// a stable rule id instead of a free-form message type per error kind.
package diagnostics

import (
	"fmt"

	"github.com/tycore/tycore/internal/files"
	"github.com/tycore/tycore/internal/pyast"
)

// Severity is its own type (rather than an implicit error/warning split)
// so a lint rule can be configured down to "warning" or off without
// changing its reporting code (internal/pyconfig).
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// RuleID is the stable identifier every diagnostic carries — configuration
// (internal/pyconfig) enables/disables/reseverities rules by this id, not
// by message text.
type RuleID string

const (
	RuleIO                      RuleID = "io"
	RuleSyntaxError             RuleID = "syntax-error"
	RuleInvalidTypeForm         RuleID = "invalid-type-form"
	RuleInvalidNamedTuple       RuleID = "invalid-named-tuple-member"
	RuleInvalidMethodOverride   RuleID = "invalid-method-override"
	RuleOverrideOfFinalMethod   RuleID = "override-of-final-method"
	RuleInvalidExplicitOverride RuleID = "invalid-explicit-override"
	RuleInvalidSetting          RuleID = "invalid-setting"
	RuleInternalError           RuleID = "internal-error"
)

// Range is a primary or secondary location: a file plus a half-open byte
// range, with line/col resolved lazily by LineCol since most diagnostics
// are never displayed (e.g. when only counted for a CI gate).
type Range struct {
	File  *files.File
	Bytes pyast.Range
}

// LineCol resolves r against the file's current text for display.
func (r Range) LineCol(text string) (startLine, startCol, endLine, endCol int) {
	starts := files.LineIndex(text)
	startLine, startCol = files.LineCol(starts, r.Bytes.Start)
	endLine, endCol = files.LineCol(starts, r.Bytes.End)
	return
}

// RangeOf builds a Range from any AST node's own range, the common case.
func RangeOf(f *files.File, n pyast.Node) Range {
	return Range{File: f, Bytes: n.GetRange()}
}

// SecondaryRange is a related location shown alongside the primary one,
// e.g. "ancestor declared here" for an override diagnostic.
type SecondaryRange struct {
	Range
	Annotation string
}

// Applicability is how safe a Fix's edits are to apply automatically:
// Safe, Unsafe, or Manual.
type Applicability int

const (
	ApplicabilitySafe Applicability = iota
	ApplicabilityUnsafe
	ApplicabilityManual
)

// Edit is one non-overlapping text replacement within a Fix.
type Edit struct {
	Range       pyast.Range
	Replacement string
}

// Fix is an optional suggested correction: a label plus a list of
// non-overlapping edits and how safe they are to apply without review.
type Fix struct {
	Label         string
	Edits         []Edit
	Applicability Applicability
}

// Diagnostic is the reporting unit: a rule id, a primary location, zero or
// more annotated secondary locations, a message, a severity, and an
// optional fix.
type Diagnostic struct {
	Rule      RuleID
	Primary   Range
	Secondary []SecondaryRange
	Message   string
	Severity  Severity
	Fix       *Fix
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s [%s]", d.Severity, d.Message, d.Rule)
}

// Bag accumulates diagnostics for one query, deduping by a stable key so a
// query re-run after a narrow incremental invalidation doesn't double-
// report the same finding from two overlapping sub-queries.
type Bag struct {
	seen  map[string]struct{}
	items []Diagnostic
}

// NewBag returns an empty accumulator.
func NewBag() *Bag {
	return &Bag{seen: make(map[string]struct{})}
}

// Add appends d unless an equal-keyed diagnostic was already added.
func (b *Bag) Add(d Diagnostic) {
	key := fmt.Sprintf("%s:%d:%d:%s", d.Rule, d.Primary.Bytes.Start, d.Primary.Bytes.End, d.Message)
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	b.items = append(b.items, d)
}

// Diagnostics returns the accumulated list in insertion order.
func (b *Bag) Diagnostics() []Diagnostic {
	return b.items
}
