// Package engine implements the analysis engine's external interface: the
// `Db` facade that wires internal/files, internal/parsedcache,
// internal/semindex, internal/usedef, internal/infer, internal/types,
// internal/override, and internal/vendored behind the incremental engine
// (internal/query) into one value a driver (cmd/tycore, an LSP, a file
// watcher) can call.
//
// Db itself carries no business logic: it owns the interner, the parsed-
// module cache, the project configuration, and three tracked queries
// (semantic index, use-def map, check_file), keyed by file so a change to one file's
// revision only invalidates the queries that actually read it — the
// verify-or-recompute contract internal/query implements, exercised end to
// end here rather than unit-tested per package.
//
// Db is a persistent, revision-aware value: construct it once, then mutate
// it via ApplyChanges and re-query it indefinitely for as long as the
// process runs.
package engine

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/tycore/tycore/internal/diagnostics"
	"github.com/tycore/tycore/internal/files"
	"github.com/tycore/tycore/internal/infer"
	"github.com/tycore/tycore/internal/override"
	"github.com/tycore/tycore/internal/parsedcache"
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/pyconfig"
	"github.com/tycore/tycore/internal/query"
	"github.com/tycore/tycore/internal/semindex"
	"github.com/tycore/tycore/internal/types"
	"github.com/tycore/tycore/internal/usedef"
	"github.com/tycore/tycore/internal/vendored"
)

// Db is the long-lived incremental-analysis database. Every exported
// method is safe to call from multiple goroutines concurrently with
// readers (cooperative parallelism with a single logical revision);
// ApplyChanges is the one method a caller must serialize against itself
// and against the fast-path reads it races with.
type Db struct {
	database *query.Database
	interner *files.Interner
	parsed   *parsedcache.Cache
	vendored *vendored.Store

	mu        sync.RWMutex
	config    pyconfig.Config
	roots     map[*files.File]struct{} // project files discovered by Created/Rescan
	virtByKey map[string]*files.File   // display name -> handle, so Changed reuses Created's identity

	semIndexQ *query.Query[*files.File, *semIndexResult]
	useDefQ   *query.Query[useDefKey, *usedef.UseDefMap]
	checkQ    *query.Query[*files.File, []diagnostics.Diagnostic]

	// semIndexComputes counts calls to computeSemIndex per file, i.e.
	// actual reparses/rebuilds rather than verified-unchanged backdates.
	// Exercised only by this package's own tests asserting that changing
	// one file must not force recomputation of another file's semantic
	// index; production callers have no need of it.
	computeCountsMu  sync.Mutex
	semIndexComputes map[*files.File]int
}

// semIndexResult bundles the parsed module and its semantic index: both
// are recomputed together since the index is built directly from the
// parse, and callers of SemanticIndex almost always need the AST too (to
// resolve a Definition's Node back to source text, build a ClassInfo,
// etc).
type semIndexResult struct {
	ref *parsedcache.ParsedModuleRef
	idx *semindex.SemanticIndex
}

type useDefKey struct {
	file  *files.File
	scope semindex.ScopeID
}

// New builds an empty Db at config. The vendored stub namespace is opened
// immediately (an empty in-memory SQLite database, internal/vendored, which
// engine only reads) and lives as long as the Db, whether or not any
// vendored path is ever looked up.
func New(config pyconfig.Config) (*Db, error) {
	store, err := vendored.Open()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	db := &Db{
		database:         query.NewDatabase(),
		interner:         files.NewInterner(),
		parsed:           parsedcache.NewCache(),
		vendored:         store,
		config:           config,
		roots:            make(map[*files.File]struct{}),
		virtByKey:        make(map[string]*files.File),
		semIndexComputes: make(map[*files.File]int),
	}
	db.semIndexQ = query.NewQuery("semantic_index", db.computeSemIndex, semIndexEqual)
	db.useDefQ = query.NewQuery("use_def_map", db.computeUseDef, useDefEqual)
	db.checkQ = query.NewQuery("check_file", db.computeCheckFile, diagnosticsEqual)
	return db, nil
}

// Config returns the project configuration currently in effect.
func (d *Db) Config() pyconfig.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// SetConfig installs a new project configuration, taking effect for
// queries executed after this call. It does not itself bump any File's
// revision — Include/Exclude only affect which files ApplyChanges
// discovers, not already-interned files' content.
func (d *Db) SetConfig(cfg pyconfig.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config = cfg
}

// Revision exposes the current global revision, mostly for tests asserting
// a change did or did not bump it.
func (d *Db) Revision() query.Revision { return d.database.CurrentRevision() }

// Cancel requests that in-flight queries unwind. It does not block for
// them to actually stop.
func (d *Db) Cancel() { d.database.Cancel() }

// SystemPathToFile interns an absolute system path, returning a handle
// even if the path does not currently exist on disk.
func (d *Db) SystemPathToFile(path string) *files.File {
	return d.interner.SystemPathToFile(path)
}

// ExistingFile is a convenience filter: it yields nil when the handle's
// current status is Deleted.
func (d *Db) ExistingFile(path string) *files.File {
	ctx := query.NewCtx(d.database)
	f := d.interner.SystemPathToFile(path)
	if f.Status(ctx) == files.StatusDeleted {
		return nil
	}
	return f
}

// VendoredPathToFile interns a vendored path, hydrating its content from
// the vendored store on first lookup so later File.ReadToString calls see
// it without re-querying the store.
func (d *Db) VendoredPathToFile(path string) (*files.File, error) {
	f := d.interner.VendoredPathToFile(path)
	content, ok, err := d.vendored.Get(path)
	if err != nil {
		return nil, err
	}
	if ok {
		d.interner.SetVirtualContent(d.database, f, content)
	}
	return f, nil
}

// OpenVirtual mints a fresh editor-buffer handle with initial content,
// registering it under name so a later ApplyChanges batch carrying an
// EvChangedVirtual/EvDeletedVirtual for the same name reuses this identity
// instead of minting another one.
func (d *Db) OpenVirtual(name, content string) *files.File {
	f := d.interner.OpenVirtual(name)
	d.interner.SetVirtualContent(d.database, f, content)
	d.mu.Lock()
	d.virtByKey[name] = f
	d.mu.Unlock()
	return f
}

// ReadToString reads file's current source text, for callers (the CLI
// diagnostic printer, fix appliers) that need source text rather than a
// parsed/indexed view of it.
func (d *Db) ReadToString(file *files.File) (string, error) {
	ctx := query.NewCtx(d.database)
	return file.ReadToString(ctx)
}

// ParsedModule returns file's stable parsed-module handle; call .Load on
// the result to pin an AST.
func (d *Db) ParsedModule(file *files.File) *parsedcache.ParsedModule {
	return d.parsed.Get(file)
}

// Load is the convenience one-call form of `parsed_module(db, file).Load(db)`.
func (d *Db) Load(file *files.File) *parsedcache.ParsedModuleRef {
	ctx := query.NewCtx(d.database)
	return d.parsed.Get(file).Load(ctx, d.parsed)
}

// SemanticIndex builds or returns the memoized semantic index for file,
// participating in the incremental engine: re-parses and rebuilds only
// when file's revision (or anything the index build reads) changed since
// this query was last verified.
func (d *Db) SemanticIndex(file *files.File) *semindex.SemanticIndex {
	ctx := query.NewCtx(d.database)
	return d.semIndexQ.Get(ctx, file).idx
}

func (d *Db) computeSemIndex(ctx *query.Ctx, file *files.File) *semIndexResult {
	d.computeCountsMu.Lock()
	d.semIndexComputes[file]++
	d.computeCountsMu.Unlock()
	ref := d.parsed.Get(file).Load(ctx, d.parsed)
	return &semIndexResult{ref: ref, idx: semindex.Build(ref.Module)}
}

// semIndexComputeCount reports how many times computeSemIndex actually ran
// for file (as opposed to being verified-unchanged and backdated). Test-only.
func (d *Db) semIndexComputeCount(file *files.File) int {
	d.computeCountsMu.Lock()
	defer d.computeCountsMu.Unlock()
	return d.semIndexComputes[file]
}

// semIndexEqual never treats two builds as equal: a fresh parse always
// produces a fresh *SemanticIndex value (nothing downstream tries to
// recover identity-equality across reparses), so verified-at backdating is
// the only fast path; a real content change always propagates.
func semIndexEqual(a, b *semIndexResult) bool { return a == b }

// UseDefFor builds or returns the memoized use-def map for one file's
// scope, building it from that scope's own statement body (recorded on
// semindex.Scope.Body) the first time it's asked for.
func (d *Db) UseDefFor(file *files.File, scope semindex.ScopeID) *usedef.UseDefMap {
	ctx := query.NewCtx(d.database)
	return d.useDefQ.Get(ctx, useDefKey{file: file, scope: scope})
}

func (d *Db) computeUseDef(ctx *query.Ctx, key useDefKey) *usedef.UseDefMap {
	idx := d.semIndexQ.Get(ctx, key.file).idx
	sc := idx.Scopes[key.scope]
	return usedef.Build(idx, key.scope, sc.Body)
}

func useDefEqual(a, b *usedef.UseDefMap) bool { return a == b }

// fileScopeGraph adapts one (file, SemanticIndex) pair to infer.ScopeGraph,
// routing nested-scope use-def lookups back through the Db's own memoized
// query instead of recomputing per call.
type fileScopeGraph struct {
	db   *Db
	file *files.File
	idx  *semindex.SemanticIndex
}

func (g fileScopeGraph) Index() *semindex.SemanticIndex { return g.idx }

func (g fileScopeGraph) UseDefFor(scope semindex.ScopeID) *usedef.UseDefMap {
	return g.db.UseDefFor(g.file, scope)
}

// Infer builds an Inferrer over file, seeded with globals resolved from
// already-checked sibling modules (possibly nil/empty, which is always
// sound — gradual typing falls back to Unknown for anything unresolved).
func (d *Db) Infer(file *files.File, globals map[string]types.Type) (*infer.Inferrer, *semindex.SemanticIndex) {
	idx := d.SemanticIndex(file)
	return infer.NewInferrer(fileScopeGraph{db: d, file: file, idx: idx}, globals), idx
}

// InferExpressionType returns the type of expr as it appears in scope
// within file.
func (d *Db) InferExpressionType(file *files.File, scope semindex.ScopeID, expr pyast.Expr) types.Type {
	inf, idx := d.Infer(file, nil)
	return inf.ExpressionType(idx, scope, expr)
}

// CheckFile returns the aggregated parse errors, type-form errors, and
// override-checker diagnostics for file, sorted by (byte_range, rule_code)
// — sorting is the consumer's job, not the core's, so it happens here
// rather than inside any one diagnostic-producing stage.
func (d *Db) CheckFile(file *files.File) []diagnostics.Diagnostic {
	ctx := query.NewCtx(d.database)
	return d.checkQ.Get(ctx, file)
}

func (d *Db) computeCheckFile(ctx *query.Ctx, file *files.File) []diagnostics.Diagnostic {
	res := d.semIndexQ.Get(ctx, file)
	bag := diagnostics.NewBag()

	for _, se := range res.ref.Errors {
		bag.Add(diagnostics.Diagnostic{
			Rule:     diagnostics.RuleSyntaxError,
			Primary:  diagnostics.Range{File: file, Bytes: pyast.Range{Start: se.Tok.Offset, End: se.Tok.End()}},
			Message:  se.Message,
			Severity: diagnostics.SeverityError,
		})
	}

	idx := res.idx
	inf := infer.NewInferrer(fileScopeGraph{db: d, file: file, idx: idx}, nil)

	checkAnnotationForms(bag, file, idx, inf)
	checkClasses(bag, file, idx, inf)

	out := applyConfig(d.config, bag.Diagnostics())
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Primary.Bytes.Start != out[j].Primary.Bytes.Start {
			return out[i].Primary.Bytes.Start < out[j].Primary.Bytes.Start
		}
		if out[i].Primary.Bytes.End != out[j].Primary.Bytes.End {
			return out[i].Primary.Bytes.End < out[j].Primary.Bytes.End
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

// applyConfig drops rules the project configuration disables and resolves
// every survivor's configured severity.
func applyConfig(cfg pyconfig.Config, in []diagnostics.Diagnostic) []diagnostics.Diagnostic {
	out := in[:0:0]
	for _, d := range in {
		sev, enabled := cfg.Severity(d.Rule, d.Severity)
		if !enabled {
			continue
		}
		d.Severity = sev
		out = append(out, d)
	}
	return out
}

func diagnosticsEqual(a, b []diagnostics.Diagnostic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].String() != b[i].String() || a[i].Primary != b[i].Primary {
			return false
		}
	}
	return true
}

// checkAnnotationForms walks every AnnAssign and Param annotation in the
// file and emits RuleInvalidTypeForm for one that fails to evaluate (e.g.
// `ClassVar[int, str]`, which carries the right qualifier but the wrong
// argument count, or a qualifier nested inside another one).
func checkAnnotationForms(bag *diagnostics.Bag, file *files.File, idx *semindex.SemanticIndex, inf *infer.Inferrer) {
	report := func(scope semindex.ScopeID, ann pyast.Expr) {
		if err := inf.CheckAnnotationForm(idx, scope, ann); err != nil {
			bag.Add(diagnostics.Diagnostic{
				Rule:     diagnostics.RuleInvalidTypeForm,
				Primary:  diagnostics.RangeOf(file, ann),
				Message:  err.Error(),
				Severity: diagnostics.SeverityError,
			})
		}
	}
	for _, def := range idx.Definitions {
		switch d := def.Node.(type) {
		case *pyast.AnnAssign:
			report(def.Scope, d.Annotation)
		case *pyast.Param:
			if d.Annotation != nil {
				report(def.Scope, d.Annotation)
			}
		}
	}
}

// checkClasses runs internal/override.Check over every class scope in the
// file, resolving each class's bases against the file's own top-level (and
// nested) class definitions.
func checkClasses(bag *diagnostics.Bag, file *files.File, idx *semindex.SemanticIndex, inf *infer.Inferrer) {
	lookup := fileClassLookup(idx)
	for scopeID, sc := range idx.Scopes {
		if sc.Kind != semindex.ScopeClass {
			continue
		}
		classDef, ok := sc.Node.(*pyast.ClassDef)
		if !ok {
			continue
		}
		info := infer.BuildClassInfo(file, idx, semindex.ScopeID(scopeID), classDef, inf, lookup)
		for _, diag := range override.Check(info) {
			bag.Add(diag)
		}
	}
}

func fileClassLookup(idx *semindex.SemanticIndex) infer.ClassLookup {
	byName := make(map[string]struct {
		scope semindex.ScopeID
		node  *pyast.ClassDef
	})
	for scopeID, sc := range idx.Scopes {
		if sc.Kind != semindex.ScopeClass {
			continue
		}
		if cd, ok := sc.Node.(*pyast.ClassDef); ok {
			byName[cd.Name] = struct {
				scope semindex.ScopeID
				node  *pyast.ClassDef
			}{semindex.ScopeID(scopeID), cd}
		}
	}
	return func(name string) (semindex.ScopeID, *pyast.ClassDef, bool) {
		e, ok := byName[name]
		return e.scope, e.node, ok
	}
}

// OSStater reads real files off disk, fingerprinting by size+mtime so
// SyncPath can skip a revision bump when neither changed.
type OSStater struct{}

func (OSStater) Stat(path string) (string, string, *files.Permissions, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", "", nil, false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", "", nil, false
	}
	stamp := fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
	perm := &files.Permissions{Readable: true, Writable: info.Mode().Perm()&0200 != 0}
	return stamp, string(content), perm, true
}

// ChangeEventKind discriminates the ChangeEvent variants.
type ChangeEventKind int

const (
	EvCreated ChangeEventKind = iota
	EvChanged
	EvOpened
	EvDeleted
	EvCreatedVirtual
	EvChangedVirtual
	EvDeletedVirtual
	EvRescan
)

// ChangeEvent is one entry in a change batch. Path is unused for Rescan;
// Content is only meaningful for the *Virtual variants, which have no
// on-disk backing for OSStater to read.
type ChangeEvent struct {
	Kind    ChangeEventKind
	Path    string
	Content string
}

// ChangeResult summarizes one ApplyChanges batch: how many distinct paths
// were actually touched after coalescing, and whether a config file was
// among them.
type ChangeResult struct {
	FilesChanged  int
	ConfigChanged bool
	NewRevision   query.Revision
}

// ApplyChanges applies a batch of change events to the project. It
// coalesces duplicate paths (keeping the last event per path), re-stats each Changed/Created/Opened path through stater, marks
// Deleted paths without forgetting their interned handle, and bumps every
// file's revision on Rescan.
func (d *Db) ApplyChanges(events []ChangeEvent, stater files.Stater) ChangeResult {
	d.database.Cancel() // a writer arriving cancels in-flight readers

	coalesced := coalesce(events)
	result := ChangeResult{}

	// Stat every Created/Changed/Opened path concurrently up front: the
	// syscalls are independent of each other and of the sequential pass
	// below, which only applies already-fetched results and must stay
	// serialized so revision bumps remain single-writer (spec.md §5).
	var statPaths []string
	for _, ev := range coalesced {
		if ev.Kind == EvCreated || ev.Kind == EvChanged || ev.Kind == EvOpened {
			statPaths = append(statPaths, ev.Path)
		}
	}
	stats := d.interner.BatchStat(statPaths, stater)

	for _, ev := range coalesced {
		switch ev.Kind {
		case EvRescan:
			result.FilesChanged += d.rescanAll(stater)
			continue
		case EvCreated, EvChanged, EvOpened:
			f := d.interner.SystemPathToFile(ev.Path)
			before := f.Status(query.NewCtx(d.database))
			d.interner.ApplyStat(d.database, ev.Path, stats[ev.Path])
			d.mu.Lock()
			d.roots[f] = struct{}{}
			d.mu.Unlock()
			after := f.Status(query.NewCtx(d.database))
			if before != after || ev.Kind != EvOpened {
				result.FilesChanged++
			}
			if isConfigPath(ev.Path) {
				result.ConfigChanged = true
			}
		case EvDeleted:
			f := d.interner.SystemPathToFile(ev.Path)
			d.interner.SetDeleted(d.database, f)
			result.FilesChanged++
		case EvCreatedVirtual:
			d.OpenVirtual(ev.Path, ev.Content)
			result.FilesChanged++
		case EvChangedVirtual:
			d.mu.Lock()
			f, ok := d.virtByKey[ev.Path]
			d.mu.Unlock()
			if !ok {
				f = d.OpenVirtual(ev.Path, ev.Content)
			} else {
				d.interner.SetVirtualContent(d.database, f, ev.Content)
			}
			result.FilesChanged++
		case EvDeletedVirtual:
			d.mu.Lock()
			f, ok := d.virtByKey[ev.Path]
			delete(d.virtByKey, ev.Path)
			d.mu.Unlock()
			if ok {
				d.interner.SetDeleted(d.database, f)
				result.FilesChanged++
			}
		}
	}

	result.NewRevision = d.database.CurrentRevision()
	return result
}

// coalesce keeps only the last event recorded per path: a batch containing
// both a Changed and a later Deleted for the same path should behave as a
// single Deleted, not as two separate file-syncs.
func coalesce(events []ChangeEvent) []ChangeEvent {
	order := make([]string, 0, len(events))
	byPath := make(map[string]ChangeEvent, len(events))
	var rescans int
	for _, ev := range events {
		if ev.Kind == EvRescan {
			rescans++
			continue
		}
		if _, seen := byPath[ev.Path]; !seen {
			order = append(order, ev.Path)
		}
		byPath[ev.Path] = ev
	}
	out := make([]ChangeEvent, 0, len(order)+rescans)
	for i := 0; i < rescans; i++ {
		out = append(out, ChangeEvent{Kind: EvRescan})
	}
	for _, p := range order {
		out = append(out, byPath[p])
	}
	return out
}

func isConfigPath(path string) bool {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	return base == "pyproject.toml" || base == "ty.toml" || base == ".gitignore"
}

// rescanAll re-stats every known system file through stater, the full
// sweep a filesystem-watcher gap (editor closed, events missed) asks for:
// unlike a targeted Changed event, the caller doesn't know which paths
// actually moved, so every known path is re-synced and only the ones whose
// stat output actually differs end up bumping a revision. Returns how many
// files were walked.
func (d *Db) rescanAll(stater files.Stater) int {
	known := d.interner.SystemFiles()
	paths := make([]string, len(known))
	for i, f := range known {
		paths[i] = f.Path().Path
	}
	stats := d.interner.BatchStat(paths, stater)
	for _, p := range paths {
		d.interner.ApplyStat(d.database, p, stats[p])
	}
	return len(known)
}

// ProjectFiles returns every system-path file discovered so far via
// Created/Changed/Opened events and currently matching the project
// configuration's include/exclude globs.
func (d *Db) ProjectFiles() []*files.File {
	d.mu.RLock()
	cfg := d.config
	roots := make([]*files.File, 0, len(d.roots))
	for f := range d.roots {
		roots = append(roots, f)
	}
	d.mu.RUnlock()

	ctx := query.NewCtx(d.database)
	out := make([]*files.File, 0, len(roots))
	for _, f := range roots {
		if f.Status(ctx) != files.StatusExists {
			continue
		}
		if cfg.IncludesPath(f.Path().Path) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path().Path < out[j].Path().Path })
	return out
}
