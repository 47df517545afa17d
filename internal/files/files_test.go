package files_test

import (
	"testing"

	"github.com/tycore/tycore/internal/files"
	"github.com/tycore/tycore/internal/query"
)

type fakeStater map[string]string

func (fs fakeStater) Stat(path string) (string, string, *files.Permissions, bool) {
	content, ok := fs[path]
	if !ok {
		return "", "", nil, false
	}
	return content, content, &files.Permissions{Readable: true, Writable: true}, true
}

func TestInternerReturnsSameHandle(t *testing.T) {
	in := files.NewInterner()
	a := in.SystemPathToFile("/proj/a.py")
	b := in.SystemPathToFile("/proj/a.py")
	if a != b {
		t.Fatalf("expected interned identity for the same path")
	}
}

func TestDeletedIsStatusNotRemoval(t *testing.T) {
	db := query.NewDatabase()
	in := files.NewInterner()
	st := fakeStater{"/proj/a.py": "x = 1\n"}
	if err := in.SyncPath(db, "/proj/a.py", st); err != nil {
		t.Fatal(err)
	}
	f := in.SystemPathToFile("/proj/a.py")
	ctx := query.NewCtx(db)
	if f.Status(ctx) != files.StatusExists {
		t.Fatalf("expected file to exist after sync")
	}

	delete(st, "/proj/a.py")
	if err := in.SyncPath(db, "/proj/a.py", st); err != nil {
		t.Fatal(err)
	}
	ctx2 := query.NewCtx(db)
	if f.Status(ctx2) != files.StatusDeleted {
		t.Fatalf("expected StatusDeleted after removal")
	}
	// Same handle, not a new one.
	f2 := in.SystemPathToFile("/proj/a.py")
	if f != f2 {
		t.Fatalf("deletion must not retire the interned handle")
	}
}

func TestSyncUnchangedContentDoesNotBumpRevision(t *testing.T) {
	db := query.NewDatabase()
	in := files.NewInterner()
	st := fakeStater{"/proj/a.py": "x = 1\n"}
	in.SyncPath(db, "/proj/a.py", st)
	rev := db.CurrentRevision()
	in.SyncPath(db, "/proj/a.py", st)
	if db.CurrentRevision() != rev {
		t.Fatalf("re-syncing identical content must not bump the revision")
	}
}

func TestVirtualPathsWithSameNameDoNotCollide(t *testing.T) {
	in := files.NewInterner()
	a := in.OpenVirtual("Untitled-1")
	b := in.OpenVirtual("Untitled-1")
	if a == b {
		t.Fatalf("two distinct virtual buffers with the same name must not collide")
	}
}

func TestLineCol(t *testing.T) {
	text := "abc\ndef\nghi"
	idx := files.LineIndex(text)
	line, col := files.LineCol(idx, 5) // 'e' in "def"
	if line != 2 || col != 2 {
		t.Fatalf("LineCol(5) = (%d,%d), want (2,2)", line, col)
	}
}

// TestBatchStatMatchesSequentialSync exercises the errgroup-backed fan-out
// path: BatchStat's concurrent results, applied one at a time through
// ApplyStat, must land the interner in the same state a sequential SyncPath
// loop would.
func TestBatchStatMatchesSequentialSync(t *testing.T) {
	db := query.NewDatabase()
	in := files.NewInterner()
	st := fakeStater{
		"/proj/a.py": "x = 1\n",
		"/proj/b.py": "y = 2\n",
		// /proj/c.py intentionally absent: BatchStat must report it as
		// not-found rather than erroring the whole batch.
	}

	paths := []string{"/proj/a.py", "/proj/b.py", "/proj/c.py"}
	results := in.BatchStat(paths, st)
	if len(results) != len(paths) {
		t.Fatalf("BatchStat: want %d results, got %d", len(paths), len(results))
	}
	if !results["/proj/a.py"].Ok || results["/proj/a.py"].Content != "x = 1\n" {
		t.Fatalf("BatchStat: unexpected result for a.py: %+v", results["/proj/a.py"])
	}
	if results["/proj/c.py"].Ok {
		t.Fatalf("BatchStat: c.py does not exist, want Ok=false")
	}

	for _, p := range paths {
		in.ApplyStat(db, p, results[p])
	}
	ctx := query.NewCtx(db)
	fa := in.SystemPathToFile("/proj/a.py")
	fc := in.SystemPathToFile("/proj/c.py")
	if fa.Status(ctx) != files.StatusExists {
		t.Fatalf("a.py: expected StatusExists after ApplyStat")
	}
	if fc.Status(ctx) != files.StatusDeleted {
		t.Fatalf("c.py: expected StatusDeleted after ApplyStat on a missing path")
	}
}
