package order

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ghboard/internal/board"
	"ghboard/internal/kv"
	"ghboard/internal/labels"
)

var testRepo = board.RepoContext{Owner: "octo", Repo: "widgets"}

func newFileKV(t *testing.T) kv.Store {
	t.Helper()
	s, err := kv.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	return s
}

// failingKV fails every operation.
type failingKV struct{ sets int }

func (f *failingKV) Get(context.Context, string) (string, error) {
	return "", stderrors.New("disk on fire")
}
func (f *failingKV) Set(context.Context, string, string) error {
	f.sets++
	return stderrors.New("quota exceeded")
}
func (f *failingKV) Delete(context.Context, string) error { return stderrors.New("nope") }
func (f *failingKV) Close() error                         { return nil }

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFileKV(t), testRepo)

	scratch := &board.Card{Title: "scratch"}
	b := newBoard(map[labels.Column][]*board.Card{
		labels.Backlog:    {board.NewSkeletonCard(), issue(456), issue(123), local("1")},
		labels.InProgress: {special(board.StatusCard), scratch},
		labels.Done:       {closedIssue(9)},
	})

	s.Save(ctx, b)
	got := s.Load(ctx)

	want := ColumnOrder{
		labels.Backlog:    {"456", "123", "local-1"},
		labels.InProgress: {"status-card", scratch.Key()},
		labels.Review:     {},
		labels.Done:       {"9"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(scratch.Key(), "card-") {
		t.Errorf("scratch card should get a generated key, got %q", scratch.Key())
	}

	// Saving again keeps the generated key stable for the same card.
	s.Save(ctx, b)
	if diff := cmp.Diff(want, s.Load(ctx)); diff != "" {
		t.Errorf("second save changed keys (-want +got):\n%s", diff)
	}
}

func TestStore_LoadThenApplyReproducesBoard(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFileKV(t), testRepo)

	b := newBoard(map[labels.Column][]*board.Card{
		labels.Backlog: {issue(3), issue(1), issue(2)},
	})
	s.Save(ctx, b)

	// A fresh render in remote order.
	fresh := newBoard(map[labels.Column][]*board.Card{
		labels.Backlog: {issue(1), issue(2), issue(3)},
	})
	Apply(fresh, s.Load(ctx))
	if diff := cmp.Diff(b.Keys(), fresh.Keys()); diff != "" {
		t.Errorf("reloaded board mismatch (-saved +reloaded):\n%s", diff)
	}
}

func TestStore_LoadAbsentAndMalformed(t *testing.T) {
	ctx := context.Background()
	backing := newFileKV(t)
	s := NewStore(backing, testRepo)

	if got := s.Load(ctx); got != nil {
		t.Errorf("Load on empty store = %v, want nil", got)
	}

	for _, bad := range []string{`{not json`, `["a","b"]`, `{"backlog": "123"}`} {
		if err := backing.Set(ctx, s.Key(), bad); err != nil {
			t.Fatal(err)
		}
		if got := s.Load(ctx); got != nil {
			t.Errorf("Load(%q) = %v, want nil", bad, got)
		}
	}
}

func TestStore_StorageFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	failing := &failingKV{}
	s := NewStore(failing, testRepo)

	b := newBoard(map[labels.Column][]*board.Card{labels.Backlog: {issue(1)}})
	s.Save(ctx, b) // must not panic
	if failing.sets != 1 {
		t.Errorf("expected one write attempt, got %d", failing.sets)
	}
	if got := s.Load(ctx); got != nil {
		t.Errorf("Load on failing store = %v, want nil", got)
	}
	s.Save(ctx, nil)
}

func TestStore_ScopedByRepo(t *testing.T) {
	ctx := context.Background()
	backing := newFileKV(t)
	s := NewStore(backing, testRepo)

	if s.Key() != "cardOrder_octo_widgets" {
		t.Fatalf("Key() = %q", s.Key())
	}

	s.Save(ctx, newBoard(map[labels.Column][]*board.Card{labels.Backlog: {issue(1)}}))

	s.SetRepo(board.RepoContext{Owner: "octo", Repo: "gadgets"})
	if s.Key() != "cardOrder_octo_gadgets" {
		t.Fatalf("Key() after switch = %q", s.Key())
	}
	if got := s.Load(ctx); got != nil {
		t.Errorf("other repo should have no order, got %v", got)
	}

	s.SetRepo(testRepo)
	if got := s.Load(ctx); len(got[labels.Backlog]) != 1 {
		t.Errorf("original repo order lost: %v", got)
	}
}

func TestStore_SaveDeduplicatesWithinColumn(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFileKV(t), testRepo)
	b := newBoard(map[labels.Column][]*board.Card{
		labels.Backlog: {issue(1), issue(1), issue(2)},
	})
	s.Save(ctx, b)
	if diff := cmp.Diff([]string{"1", "2"}, s.Load(ctx)[labels.Backlog]); diff != "" {
		t.Errorf("duplicate key saved (-want +got):\n%s", diff)
	}
}

func TestCollapseStore(t *testing.T) {
	ctx := context.Background()
	s := NewCollapseStore(newFileKV(t), testRepo)

	if s.Key() != "columnCollapseStates_octo_widgets" {
		t.Fatalf("Key() = %q", s.Key())
	}
	if got := s.Load(ctx); len(got) != 0 {
		t.Errorf("empty store should load no states, got %v", got)
	}
	if !s.Toggle(ctx, labels.Done) {
		t.Error("first toggle collapses")
	}
	if got := s.Load(ctx); !got[labels.Done] || got[labels.Backlog] {
		t.Errorf("states = %v", got)
	}
	if s.Toggle(ctx, labels.Done) {
		t.Error("second toggle expands")
	}

	failing := NewCollapseStore(&failingKV{}, testRepo)
	if !failing.Toggle(ctx, labels.Review) {
		t.Error("toggle result is returned even when the write fails")
	}
}

func TestTaskStore(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore(newFileKV(t), testRepo)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	if s.Key() != "localTasks_octo_widgets" {
		t.Fatalf("Key() = %q", s.Key())
	}
	if _, err := s.Add(ctx, "   ", "", labels.Backlog); err == nil {
		t.Error("blank title should be rejected")
	}

	a, err := s.Add(ctx, "write docs", "the README", labels.Backlog)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	b, err := s.Add(ctx, "triage", "", labels.Review)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids not unique: %q %q", a.ID, b.ID)
	}
	if a.Card().Key() != "local-"+a.ID {
		t.Errorf("card key = %q", a.Card().Key())
	}

	if err := s.SetColumn(ctx, a.ID, labels.InProgress); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if err := s.Edit(ctx, b.ID, "triage inbox", "daily"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if err := s.SetColumn(ctx, "missing", labels.Done); err == nil {
		t.Error("unknown id should fail")
	}

	want := []LocalTask{
		{ID: a.ID, Title: "write docs", Body: "the README", Column: labels.InProgress, CreatedAt: s.now()},
		{ID: b.ID, Title: "triage inbox", Body: "daily", Column: labels.Review, CreatedAt: s.now()},
	}
	if diff := cmp.Diff(want, s.List(ctx)); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}

	if err := s.Remove(ctx, a.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, a.ID); err != nil {
		t.Errorf("second Remove = %v, want nil", err)
	}
	if got := s.List(ctx); len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("after remove: %v", got)
	}
}
