// Package files implements the file/source layer: interned file handles
// over three path variants (system, vendored, virtual), each backed by a
// query.Input so reads participate in the incremental engine's dependency
// tracking.
//
// The interner is a mutex-guarded map keyed by normalized path, returning
// the same *File for the same path for the database's lifetime.
package files

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tycore/tycore/internal/query"
)

// PathKind distinguishes the three FilePath variants.
type PathKind int

const (
	// PathSystem is an absolute path on the real filesystem.
	PathSystem PathKind = iota
	// PathVendored is a read-only path into the embedded stub namespace
	// (internal/vendored).
	PathVendored
	// PathVirtual is an editor-held buffer with no disk backing
	// ("untitled:Untitled-1" style).
	PathVirtual
)

func (k PathKind) String() string {
	switch k {
	case PathSystem:
		return "system"
	case PathVendored:
		return "vendored"
	case PathVirtual:
		return "virtual"
	default:
		return "unknown"
	}
}

// FilePath identifies a file independent of whether it currently exists.
// Virtual paths additionally carry a UUID so two buffers opened under the
// same display name (e.g. two "Untitled-1" tabs in different windows) never
// collide in the interner.
type FilePath struct {
	Kind PathKind
	Path string // absolute system path, or vendored-relative path, or a virtual display name
	id   string // virtual-only: stable identity distinguishing same-named buffers
}

// NewSystemPath builds a FilePath for an absolute on-disk path. The caller
// is expected to have already resolved it to an absolute, `/`-separated
// form; this layer does not itself touch the filesystem to canonicalize
// it.
func NewSystemPath(absPath string) FilePath {
	return FilePath{Kind: PathSystem, Path: absPath}
}

// NewVendoredPath builds a FilePath into the embedded vendored namespace.
func NewVendoredPath(relPath string) FilePath {
	return FilePath{Kind: PathVendored, Path: relPath}
}

// NewVirtualPath mints a fresh virtual path with the given display name.
// Each call produces a distinct identity even if name repeats, matching
// editors that allow multiple untitled buffers with the same label.
func NewVirtualPath(name string) FilePath {
	return FilePath{Kind: PathVirtual, Path: name, id: uuid.NewString()}
}

// key is the interner's lookup key: distinct kinds with the same textual
// path never collide, and two virtual paths never collide with each other.
func (p FilePath) key() string {
	return fmt.Sprintf("%d:%s:%s", p.Kind, p.Path, p.id)
}

// String renders the path for display: `untitled:Name` for virtual paths,
// the bare path otherwise.
func (p FilePath) String() string {
	switch p.Kind {
	case PathVirtual:
		return "untitled:" + p.Path
	default:
		return p.Path
	}
}

// Status records whether a file currently exists. Deleted is a status, not
// a removal: the interned handle survives so queries depending on the
// file's eventual reappearance can be re-triggered.
type Status int

const (
	StatusExists Status = iota
	StatusDeleted
)

// Permissions is the minimal POSIX-ish permission summary the core cares
// about (read-only vendored files report !Writable).
type Permissions struct {
	Readable bool
	Writable bool
}

// fileState is the value type carried by a File's query.Input: everything
// that can change out from under a stable handle.
type fileState struct {
	status      Status
	permissions *Permissions
	content     string
	// stamp is an opaque fingerprint of the last real stat/read (size,
	// mtime-ish ordinal) used by sync to decide whether a re-stat actually
	// changed anything: a revision only bumps when the stat() output
	// actually changed.
	stamp string
}

func fileStateEqual(a, b fileState) bool {
	return a.status == b.status &&
		permEqual(a.permissions, b.permissions) &&
		a.content == b.content &&
		a.stamp == b.stamp
}

func permEqual(a, b *Permissions) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// File is an interned handle, stable for the database's lifetime. Its
// mutable attributes (status, permissions, content) are all carried on one
// query.Input so a single revision bump covers every field that changed
// together in one sync.
type File struct {
	path  FilePath
	state *query.Input[fileState]
}

// Path returns the handle's identifying path.
func (f *File) Path() FilePath { return f.path }

// Status reads the file's current existence status, recording a dependency
// on ctx.
func (f *File) Status(ctx *query.Ctx) Status {
	return f.state.Get(ctx).status
}

// Permissions reads the file's current permissions, or nil if unknown.
func (f *File) Permissions(ctx *query.Ctx) *Permissions {
	return f.state.Get(ctx).permissions
}

// ReadToString returns the file's current content, recording a dependency
// on the file's revision. Two reads within the same revision return
// byte-identical content because the underlying Input is immutable
// between writes.
func (f *File) ReadToString(ctx *query.Ctx) (string, error) {
	st := f.state.Get(ctx)
	if st.status == StatusDeleted {
		return "", fmt.Errorf("files: %s: no such file", f.path)
	}
	return st.content, nil
}

// Interner maps FilePath to stable *File handles.
type Interner struct {
	mu    sync.Mutex
	files map[string]*File
}

func NewInterner() *Interner {
	return &Interner{files: make(map[string]*File)}
}

// SystemPathToFile interns path, creating a handle (with StatusDeleted
// content, as if never read) on first lookup. A file need not exist on disk
// to be interned: queries may depend on its eventual creation.
func (in *Interner) SystemPathToFile(path string) *File {
	return in.intern(NewSystemPath(normalizeSystemPath(path)))
}

// VendoredPathToFile interns a vendored path. Vendored files are immutable
// once loaded (their revision never bumps after the first Set): they
// identify files embedded in the binary, read-only with an immutable
// revision.
func (in *Interner) VendoredPathToFile(path string) *File {
	return in.intern(NewVendoredPath(path))
}

// OpenVirtual interns a brand-new virtual buffer.
func (in *Interner) OpenVirtual(name string) *File {
	return in.intern(NewVirtualPath(name))
}

func (in *Interner) intern(p FilePath) *File {
	in.mu.Lock()
	defer in.mu.Unlock()
	k := p.key()
	if f, ok := in.files[k]; ok {
		return f
	}
	f := &File{
		path:  p,
		state: query.NewInput(fileState{status: StatusDeleted}, durabilityFor(p)),
	}
	in.files[k] = f
	return f
}

// Lookup returns the interned handle for path if one exists, without
// creating it.
func (in *Interner) Lookup(p FilePath) (*File, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	f, ok := in.files[p.key()]
	return f, ok
}

// SystemFiles returns every currently-interned system-path handle, for a
// driver's full-rescan sweep which must re-stat every known file rather
// than just the ones named in a targeted change batch.
func (in *Interner) SystemFiles() []*File {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]*File, 0, len(in.files))
	for _, f := range in.files {
		if f.path.Kind == PathSystem {
			out = append(out, f)
		}
	}
	return out
}

func durabilityFor(p FilePath) query.Durability {
	if p.Kind == PathVendored {
		return query.DurabilityHigh
	}
	return query.DurabilityLow
}

func normalizeSystemPath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// SyncPath re-stats path (via stater) and updates the interned File's
// input fields, bumping its revision only if the observed stamp differs
// from the last one recorded — cheap when metadata is unchanged. If the
// file no longer exists, status becomes StatusDeleted and content is
// cleared.
func (in *Interner) SyncPath(db *query.Database, path string, stater Stater) error {
	f := in.SystemPathToFile(path)
	return in.sync(db, f, stater)
}

// Stater abstracts the filesystem read so tests and virtual drivers never
// need a real disk file.
type Stater interface {
	// Stat returns a content fingerprint and the file's content, or ok=false
	// if the path does not exist.
	Stat(path string) (stamp string, content string, perm *Permissions, ok bool)
}

func (in *Interner) sync(db *query.Database, f *File, stater Stater) error {
	stamp, content, perm, ok := stater.Stat(f.path.Path)
	next := statToState(stamp, content, perm, ok)
	f.state.Set(db, next, fileStateEqual)
	return nil
}

func statToState(stamp, content string, perm *Permissions, ok bool) fileState {
	if !ok {
		return fileState{status: StatusDeleted}
	}
	return fileState{status: StatusExists, permissions: perm, content: content, stamp: stamp}
}

// StatResult is one path's outcome from a BatchStat call: the raw stat
// fingerprint, content, and permissions a caller applies to the interned
// File once all the batch's I/O has completed.
type StatResult struct {
	Stamp   string
	Content string
	Perm    *Permissions
	Ok      bool
}

// BatchStat re-stats many paths concurrently through stater, the I/O-bound
// part of a Rescan or large Created/Changed batch: stat syscalls for
// unrelated paths have no ordering dependency on each other, so they run in
// parallel goroutines (one per path, errgroup-bounded) instead of
// sequentially. The actual File input mutation is left to the caller
// (ApplyStat), since bumping query revisions must stay serialized under the
// engine's single-writer discipline (spec.md §5).
func (in *Interner) BatchStat(paths []string, stater Stater) map[string]StatResult {
	results := make([]StatResult, len(paths))
	var g errgroup.Group
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			stamp, content, perm, ok := stater.Stat(p)
			results[i] = StatResult{Stamp: stamp, Content: content, Perm: perm, Ok: ok}
			return nil
		})
	}
	_ = g.Wait() // Stater.Stat reports absence via ok=false, never an error
	out := make(map[string]StatResult, len(paths))
	for i, p := range paths {
		out[p] = results[i]
	}
	return out
}

// ApplyStat installs a previously-fetched StatResult (see BatchStat) onto
// path's interned File, bumping its revision only if the observed stamp
// differs from the last one recorded.
func (in *Interner) ApplyStat(db *query.Database, path string, r StatResult) *File {
	f := in.SystemPathToFile(path)
	next := statToState(r.Stamp, r.Content, r.Perm, r.Ok)
	f.state.Set(db, next, fileStateEqual)
	return f
}

// SetVirtualContent installs new content for a virtual buffer, always
// bumping its revision on a real change (virtual buffers have no on-disk
// stamp to compare).
func (in *Interner) SetVirtualContent(db *query.Database, f *File, content string) {
	f.state.Set(db, fileState{status: StatusExists, content: content}, fileStateEqual)
}

// SetDeleted marks f as deleted without forgetting its interned identity:
// Deleted is a status, not a removal.
func (in *Interner) SetDeleted(db *query.Database, f *File) {
	f.state.Set(db, fileState{status: StatusDeleted}, fileStateEqual)
}

// LineIndex returns the 0-based byte offset of the start of each line in
// text, for diagnostics that need to convert a byte range back to
// line/column without re-scanning the source.
func LineIndex(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// LineCol converts a 0-based byte offset to a 1-based (line, column) pair
// using a precomputed line index.
func LineCol(starts []int, offset int) (line, col int) {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, offset - starts[lo] + 1
}
