// Package query implements the demand-driven, content-addressed memoization
// engine described in spec.md §4.1: inputs whose revision is bumped
// externally, tracked queries that memoize a pure function of those inputs,
// and a verify-or-recompute ("backdate") algorithm that re-executes a query
// only when something it actually read has changed.
//
// The shape follows the teacher's own layering style (small, explicit,
// mutex-guarded state, no hidden globals — see internal/vm.VM in the
// teacher) generalized to the salsa-like incremental model spec.md
// describes. Concurrency comes from golang.org/x/sync, already a teacher
// dependency: singleflight (below) coalesces concurrent cache misses for
// the same query key; the sibling errgroup fan-out for a change batch's
// stat syscalls lives in internal/files.Interner.BatchStat, called from
// internal/engine.Db.ApplyChanges.
package query

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Revision is a monotonic token. Revision 0 is never observed by a query;
// the database starts at revision 1 so that a zero-value verifiedAt/changedAt
// on a fresh memo entry always compares as "older than current".
type Revision uint64

// Durability classifies an input (spec.md §4.1 "Durability"). Vendored
// files are High; ordinary project files are Low. The classification is
// recorded and reported by Input.Durability; the verify-or-recompute
// algorithm below does not consult it, so no revalidation is skipped on
// its account.
type Durability int

const (
	DurabilityLow Durability = iota
	DurabilityHigh
)

// Database owns the current revision counter and the cancellation
// generation. It carries no query state itself — Input and Query values
// reference it so the whole graph can be swept by one Bump or Cancel call.
type Database struct {
	rev       atomic.Uint64
	cancelGen atomic.Uint64
}

// NewDatabase returns a Database starting at revision 1.
func NewDatabase() *Database {
	db := &Database{}
	db.rev.Store(1)
	return db
}

// CurrentRevision returns the revision readers should verify against.
func (db *Database) CurrentRevision() Revision {
	return Revision(db.rev.Load())
}

// Bump advances the current revision and returns the new value. Callers
// mutating Input values must call Bump (directly, or via Input.Set, which
// does so) before readers observe the new value, per spec.md's single
// logical revision scheduling model (§5).
func (db *Database) Bump() Revision {
	return Revision(db.rev.Add(1))
}

// Cancel increments the cancellation generation, signalling every
// in-progress query to unwind (spec.md §4.1 Failure model, §5 Cancellation
// semantics). It does not block for in-flight queries to actually stop.
func (db *Database) Cancel() {
	db.cancelGen.Add(1)
}

func (db *Database) cancelGeneration() uint64 {
	return db.cancelGen.Load()
}

// Cancelled is the panic value a query observes via Ctx.CheckCancelled when
// the database's cancel generation has advanced since the query started.
// The engine recovers it at the outermost call and re-raises it as the
// distinguished "query cancelled" condition callers must handle (spec.md
// §4.1 Failure model): it is never cached.
type Cancelled struct{}

func (Cancelled) Error() string { return "query cancelled" }

// Dependency is anything a tracked query can read: an Input or another
// tracked Query's memoized entry for a specific key. changedSince answers
// "has your value changed since revision at", recursively verifying nested
// tracked queries as needed.
type Dependency interface {
	changedSince(db *Database, at Revision) bool
}

// Ctx is threaded through a running query. It records the dependencies the
// query reads (for the engine's verify-or-recompute algorithm) and exposes
// cancellation checks.
type Ctx struct {
	db        *Database
	cancelGen uint64
	deps      []Dependency
}

// NewCtx starts a fresh dependency-recording context bound to db, snapshotting
// the current cancel generation so CheckCancelled can detect a writer racing
// in mid-query.
func NewCtx(db *Database) *Ctx {
	return &Ctx{db: db, cancelGen: db.cancelGeneration()}
}

// DB returns the bound database, for queries that need to recurse into
// other tracked queries or read ambient config off the database.
func (c *Ctx) DB() *Database { return c.db }

// CheckCancelled panics with Cancelled if a writer has bumped the
// cancellation generation since this Ctx was created. Query implementations
// should call this between recursive sub-query calls (spec.md §5
// "Suspension points").
func (c *Ctx) CheckCancelled() {
	if c.db.cancelGeneration() != c.cancelGen {
		panic(Cancelled{})
	}
}

func (c *Ctx) recordDependency(d Dependency) {
	c.deps = append(c.deps, d)
}

// Input is a database input: a value whose revision is set externally.
// Reading an Input from within a tracked query records a dependency on it.
type Input[T any] struct {
	mu         sync.RWMutex
	value      T
	changedAt  Revision
	durability Durability
}

// NewInput creates an input seeded at revision 1 (it is present before any
// writer touches the database).
func NewInput[T any](initial T, durability Durability) *Input[T] {
	return &Input[T]{value: initial, changedAt: 1, durability: durability}
}

// Get reads the current value and records a dependency on this input.
func (in *Input[T]) Get(ctx *Ctx) T {
	ctx.CheckCancelled()
	in.mu.RLock()
	defer in.mu.RUnlock()
	if ctx != nil {
		ctx.recordDependency(inputDependency[T]{in})
	}
	return in.value
}

// Peek reads the current value without recording a dependency, for callers
// outside a tracked query (e.g. the engine deciding whether to bump a
// revision at all).
func (in *Input[T]) Peek() T {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.value
}

// Set installs a new value. If equal(old, new) holds, the input's changedAt
// is left untouched (§4.2 "Files::sync_path... only bumps... when stat()
// output actually changed"); otherwise changedAt becomes the revision
// reached after bumping db. The caller is responsible for having already
// decided a write should happen (e.g. holding whatever external lock
// serializes writers); Set itself bumps db's revision only when the value
// actually changes, so a no-op Set during a change-event batch does not
// force unrelated queries to revalidate.
func (in *Input[T]) Set(db *Database, value T, equal func(a, b T) bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if equal(in.value, value) {
		in.value = value
		return
	}
	in.value = value
	in.changedAt = db.Bump()
}

// Durability reports this input's durability classification.
func (in *Input[T]) Durability() Durability {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.durability
}

type inputDependency[T any] struct {
	in *Input[T]
}

func (d inputDependency[T]) changedSince(db *Database, at Revision) bool {
	d.in.mu.RLock()
	defer d.in.mu.RUnlock()
	return d.in.changedAt > at
}

// entry is one tracked query's memoized result for a single key.
type entry[V any] struct {
	mu         sync.Mutex
	value      V
	verifiedAt Revision
	changedAt  Revision
	deps       []Dependency
	valid      bool
}

// Query is a tracked query: a memo table over a pure function of (db, key).
// Equal determines whether a freshly recomputed value should be treated as
// unchanged for the purposes of backdating downstream dependents (spec.md
// §4.1 invariant (c): "Equality on tracked outputs must be conservative").
type Query[K comparable, V any] struct {
	name    string
	compute func(ctx *Ctx, key K) V
	equal   func(a, b V) bool

	mu    sync.Mutex
	memo  map[K]*entry[V]
	group singleflight.Group
}

// NewQuery builds a tracked query named name (used only for diagnostics/
// debug dumps) backed by compute, deduplicating recomputed values with
// equal.
func NewQuery[K comparable, V any](name string, compute func(ctx *Ctx, key K) V, equal func(a, b V) bool) *Query[K, V] {
	return &Query[K, V]{name: name, compute: compute, equal: equal, memo: make(map[K]*entry[V])}
}

func (q *Query[K, V]) entryFor(key K) *entry[V] {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.memo[key]
	if !ok {
		e = &entry[V]{}
		q.memo[key] = e
	}
	return e
}

// Get returns the memoized value for key, verifying or recomputing as
// needed, and records a dependency on this query+key in ctx.
func (q *Query[K, V]) Get(ctx *Ctx, key K) V {
	ctx.CheckCancelled()
	v := q.resolve(ctx.db, key)
	ctx.recordDependency(queryDependency[K, V]{q, key})
	return v
}

// resolve runs the verify-or-recompute algorithm for key against db's
// current revision, independent of any particular caller's Ctx (so it can
// also be invoked from changedSince during a dependent's verification).
func (q *Query[K, V]) resolve(db *Database, key K) V {
	current := db.CurrentRevision()
	e := q.entryFor(key)

	e.mu.Lock()
	if e.valid {
		if e.verifiedAt == current {
			v := e.value
			e.mu.Unlock()
			return v
		}
		if q.backdate(db, e, current) {
			v := e.value
			e.mu.Unlock()
			return v
		}
	}
	e.mu.Unlock()

	// Recompute. singleflight coalesces concurrent misses for the same key
	// (spec.md B "per-key coalescing of concurrent misses").
	result, _, _ := q.group.Do(fmt.Sprintf("%v", key), func() (interface{}, error) {
		return q.recompute(db, key, e), nil
	})
	return result.(V)
}

// backdate checks whether every dependency e recorded is still unchanged
// since e.verifiedAt; if so it bumps verifiedAt to current without
// re-running compute (spec.md glossary "Backdate").
func (q *Query[K, V]) backdate(db *Database, e *entry[V], current Revision) bool {
	for _, d := range e.deps {
		if d.changedSince(db, e.verifiedAt) {
			return false
		}
	}
	e.verifiedAt = current
	return true
}

func (q *Query[K, V]) recompute(db *Database, key K, e *entry[V]) V {
	innerCtx := NewCtx(db)
	newValue := q.compute(innerCtx, key)
	current := db.CurrentRevision()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.valid && q.equal(e.value, newValue) {
		e.verifiedAt = current
		e.deps = innerCtx.deps
		return e.value
	}
	e.value = newValue
	e.verifiedAt = current
	e.changedAt = current
	e.deps = innerCtx.deps
	e.valid = true
	return newValue
}

// Invalidate drops the memoized entry for key outright, forcing
// unconditional recomputation on next Get. Used by callers that know a key
// can never be revalidated cheaply (e.g. a file was deleted and its handle
// retired from interest).
func (q *Query[K, V]) Invalidate(key K) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.memo, key)
}

type queryDependency[K comparable, V any] struct {
	q   *Query[K, V]
	key K
}

func (d queryDependency[K, V]) changedSince(db *Database, at Revision) bool {
	d.q.resolve(db, d.key)
	e := d.q.entryFor(d.key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changedAt > at
}

// Name returns the query's diagnostic name.
func (q *Query[K, V]) Name() string { return q.name }
