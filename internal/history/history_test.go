package history

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecord_AssignsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)

	stored, err := s.Record(Run{ProjectPath: "/tmp/demo", Language: "python", FilesUpdated: 3})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if stored.ID == "" {
		t.Error("no run ID assigned")
	}
	if stored.CreatedAt == "" {
		t.Error("no timestamp assigned")
	}
}

func TestRecent_ReturnsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := s.Record(Run{ProjectPath: "/tmp/demo", Language: "python", FilesCreated: i}); err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
	}

	runs, err := s.Recent("/tmp/demo", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	for _, r := range runs {
		if r.ProjectPath != "/tmp/demo" || r.Language != "python" {
			t.Errorf("run fields not round-tripped: %+v", r)
		}
	}
}

func TestRecent_FiltersByProject(t *testing.T) {
	s := newTestStore(t)

	for _, p := range []string{"/tmp/a", "/tmp/b", "/tmp/a"} {
		if _, err := s.Record(Run{ProjectPath: p, Language: "javascript"}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	runs, err := s.Recent("/tmp/a", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs for /tmp/a, want 2", len(runs))
	}

	all, err := s.Recent("", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d runs across projects, want 3", len(all))
	}
}

func TestRecent_RespectsLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.Record(Run{ProjectPath: "/tmp/demo", Language: "python"}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	runs, err := s.Recent("/tmp/demo", 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
}

func TestNew_OpenFailureIsWrapped(t *testing.T) {
	orig := openDB
	openDB = func(driver, dsn string) (*sql.DB, error) {
		return nil, errors.New("boom")
	}
	defer func() { openDB = orig }()

	_, err := New(Config{DataDir: t.TempDir()})
	if err == nil {
		t.Fatal("New should fail when the database cannot be opened")
	}
	if !strings.Contains(err.Error(), "history:") {
		t.Errorf("error not wrapped with package context: %v", err)
	}
}
