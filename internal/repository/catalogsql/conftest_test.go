package catalogsql

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/catalogq/internal/db/sqlite"
	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
)

func newTestRepo(t *testing.T, pageSize int) *Repo {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return New(s.DB(), pageSize)
}

// fixture is a small catalog shared by the fetch tests.
var fixture = []struct {
	id, title, description, level, language string
	tags                                    []string
}{
	{"go-101", "Intro to Go", "Learn the basics of Go", "beginner", "en", []string{"go", "backend"}},
	{"go-201", "Concurrency in Go", "Goroutines and channels", "advanced", "en", []string{"go", "concurrency"}},
	{"py-101", "Python for Data", "Pandas and NumPy basics", "beginner", "en", []string{"python", "data"}},
	{"rs-101", "Rust Fundamentals", "", "intermediate", "de", []string{"rust", "systems"}},
	{"web-101", "Frontend Basics", "HTML, CSS and JavaScript", "beginner", "fr", []string{"frontend", "javascript"}},
}

func seed(t *testing.T, r *Repo, ns string) []domcat.Item {
	t.Helper()
	items := make([]domcat.Item, 0, len(fixture))
	for _, f := range fixture {
		it, err := domcat.NewItem(f.id, f.title, f.description, f.level, f.language, f.tags)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := r.Upsert(context.Background(), ns, it); err != nil {
			t.Fatalf("Upsert(%s): %v", f.id, err)
		}
		items = append(items, it)
	}
	return items
}

func ids(items []domcat.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID()
	}
	return out
}
