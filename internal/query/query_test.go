package query_test

import (
	"testing"

	"github.com/tycore/tycore/internal/query"
)

func intEqual(a, b int) bool { return a == b }

func TestBackdateSkipsRecompute(t *testing.T) {
	db := query.NewDatabase()
	in := query.NewInput(10, query.DurabilityLow)
	calls := 0
	double := query.NewQuery("double", func(ctx *query.Ctx, _ struct{}) int {
		calls++
		return in.Get(ctx) * 2
	}, intEqual)

	ctx := query.NewCtx(db)
	if got := double.Get(ctx, struct{}{}); got != 20 {
		t.Fatalf("got %d, want 20", got)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// Re-querying at the same revision, with nothing changed, must not
	// recompute.
	ctx2 := query.NewCtx(db)
	if got := double.Get(ctx2, struct{}{}); got != 20 {
		t.Fatalf("got %d, want 20", got)
	}
	if calls != 1 {
		t.Fatalf("calls = %d after no-op reread, want 1 (should backdate)", calls)
	}
}

func TestChangeForcesRecompute(t *testing.T) {
	db := query.NewDatabase()
	in := query.NewInput(10, query.DurabilityLow)
	calls := 0
	double := query.NewQuery("double", func(ctx *query.Ctx, _ struct{}) int {
		calls++
		return in.Get(ctx) * 2
	}, intEqual)

	ctx := query.NewCtx(db)
	double.Get(ctx, struct{}{})
	in.Set(db, 20, intEqual)

	ctx2 := query.NewCtx(db)
	got := double.Get(ctx2, struct{}{})
	if got != 40 {
		t.Fatalf("got %d, want 40", got)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 after a real change", calls)
	}
}

func TestEqualResultBackdatesDownstream(t *testing.T) {
	db := query.NewDatabase()
	in := query.NewInput(10, query.DurabilityLow)
	parity := query.NewQuery("parity", func(ctx *query.Ctx, _ struct{}) int {
		v := in.Get(ctx)
		return v % 2
	}, intEqual)

	downstreamCalls := 0
	downstream := query.NewQuery("downstream", func(ctx *query.Ctx, _ struct{}) int {
		downstreamCalls++
		return parity.Get(ctx, struct{}{}) + 100
	}, intEqual)

	ctx := query.NewCtx(db)
	downstream.Get(ctx, struct{}{})
	if downstreamCalls != 1 {
		t.Fatalf("downstreamCalls = %d, want 1", downstreamCalls)
	}

	// Changing in from 10 to 12 changes parity's *input* but not its
	// *output* (both are even) — downstream must not re-execute.
	in.Set(db, 12, intEqual)
	ctx2 := query.NewCtx(db)
	downstream.Get(ctx2, struct{}{})
	if downstreamCalls != 1 {
		t.Fatalf("downstreamCalls = %d, want 1 (parity unchanged should backdate downstream)", downstreamCalls)
	}
}

func TestSetWithEqualValueDoesNotBumpRevision(t *testing.T) {
	db := query.NewDatabase()
	in := query.NewInput("a.py", query.DurabilityLow)
	before := db.CurrentRevision()
	in.Set(db, "a.py", func(a, b string) bool { return a == b })
	if db.CurrentRevision() != before {
		t.Fatalf("revision bumped on a no-op Set")
	}
	in.Set(db, "b.py", func(a, b string) bool { return a == b })
	if db.CurrentRevision() == before {
		t.Fatalf("revision did not bump on a real change")
	}
}

func TestCancellationPanics(t *testing.T) {
	db := query.NewDatabase()
	defer func() {
		r := recover()
		if _, ok := r.(query.Cancelled); !ok {
			t.Fatalf("expected query.Cancelled panic, got %v", r)
		}
	}()
	ctx := query.NewCtx(db)
	db.Cancel()
	ctx.CheckCancelled()
	t.Fatal("CheckCancelled did not panic after cancellation")
}
