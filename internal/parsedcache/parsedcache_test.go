package parsedcache_test

import (
	"fmt"
	"testing"

	"github.com/tycore/tycore/internal/files"
	"github.com/tycore/tycore/internal/parsedcache"
	"github.com/tycore/tycore/internal/pyast"
	"github.com/tycore/tycore/internal/query"
)

func TestRoundTripNodeIndexStable(t *testing.T) {
	db := query.NewDatabase()
	in := files.NewInterner()
	f := in.SystemPathToFile("/proj/a.py")
	st := fakeStater{"/proj/a.py": "x = 1\ny = x + 1\n"}
	in.SyncPath(db, "/proj/a.py", st)

	cache := parsedcache.NewCache()
	pm := cache.Get(f)

	ctx := query.NewCtx(db)
	ref1 := pm.Load(ctx, cache)
	if len(ref1.Errors) != 0 {
		t.Fatalf("unexpected parse errors: %v", ref1.Errors)
	}
	keys1 := keysOf(ref1)

	pm.Collect()
	if pm.Loaded() {
		t.Fatalf("expected slot to be empty after Collect")
	}

	ctx2 := query.NewCtx(db)
	ref2 := pm.Load(ctx2, cache)
	keys2 := keysOf(ref2)

	if len(keys1) != len(keys2) {
		t.Fatalf("node count changed across reparse: %d vs %d", len(keys1), len(keys2))
	}
	for i := range keys1 {
		if keys1[i] != keys2[i] {
			t.Fatalf("NodeKey at index %d changed across reparse: %v vs %v", i, keys1[i], keys2[i])
		}
	}
}

func keysOf(ref *parsedcache.ParsedModuleRef) []string {
	var out []string
	for i := 0; i < ref.Index.Len(); i++ {
		n := ref.Index.Lookup(pyast.NodeIndex(i))
		if n == nil {
			continue
		}
		r := n.GetRange()
		out = append(out, fmt.Sprintf("%d:%d:%T", r.Start, r.End, n))
	}
	return out
}

func TestSyntaxErrorStillYieldsUsableTree(t *testing.T) {
	db := query.NewDatabase()
	in := files.NewInterner()
	f := in.SystemPathToFile("/proj/broken.py")
	st := fakeStater{"/proj/broken.py": "def f(:\n    pass\n"}
	in.SyncPath(db, "/proj/broken.py", st)

	cache := parsedcache.NewCache()
	pm := cache.Get(f)
	ctx := query.NewCtx(db)
	ref := pm.Load(ctx, cache)
	if ref.Module == nil {
		t.Fatalf("expected a non-nil module even with syntax errors")
	}
	if len(ref.Errors) == 0 {
		t.Fatalf("expected at least one syntax error for malformed input")
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	db := query.NewDatabase()
	in := files.NewInterner()
	cache := parsedcache.NewCacheWithCapacity(1)

	fa := in.SystemPathToFile("/proj/a.py")
	fb := in.SystemPathToFile("/proj/b.py")
	st := fakeStater{"/proj/a.py": "x = 1\n", "/proj/b.py": "y = 2\n"}
	in.SyncPath(db, "/proj/a.py", st)
	in.SyncPath(db, "/proj/b.py", st)

	pa := cache.Get(fa)
	pb := cache.Get(fb)
	ctx := query.NewCtx(db)
	pa.Load(ctx, cache)
	pb.Load(ctx, cache) // capacity 1: should evict pa's slot

	if pa.Loaded() {
		t.Fatalf("expected pa to be evicted once capacity was exceeded")
	}
	if !pb.Loaded() {
		t.Fatalf("expected pb (most recently loaded) to remain loaded")
	}
}

type fakeStater map[string]string

func (fs fakeStater) Stat(path string) (string, string, *files.Permissions, bool) {
	content, ok := fs[path]
	if !ok {
		return "", "", nil, false
	}
	return content, content, &files.Permissions{Readable: true}, true
}
