package remote

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ghboard/internal/board"
	"ghboard/internal/errors"
	"ghboard/internal/labels"
	"ghboard/internal/ratelimit"
)

type recordingNotifier struct {
	mu   sync.Mutex
	errs []error
}

func (n *recordingNotifier) Alert(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errs)
}

var testRepo = board.RepoContext{Owner: "octo", Repo: "widgets"}

func newTestSync(t *testing.T, f *fakeGitHub, token string) (*Sync, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	limiter := ratelimit.New(ratelimit.WithMutationInterval(0))
	s, err := New(limiter, n, Options{
		BaseURL:            f.server.URL,
		Token:              token,
		Timeout:            5 * time.Second,
		DiscoveryCachePath: filepath.Join(t.TempDir(), "repos_cache.json"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, n
}

func TestMoveToDoneStripsStatusAndCloses(t *testing.T) {
	f := newFakeGitHub(t)
	f.add(&fakeIssue{Number: 123, Title: "ship it", Labels: []string{"bug", "In Progress", "review"}})
	s, n := newTestSync(t, f, "tok")

	res, err := s.MoveCard(context.Background(), testRepo, 123, labels.Done, false)
	if err != nil {
		t.Fatalf("MoveCard: %v", err)
	}

	wantCalls := []string{
		"GET /repos/octo/widgets/issues/123/labels",
		"PUT /repos/octo/widgets/issues/123/labels",
		"PATCH /repos/octo/widgets/issues/123",
	}
	if diff := cmp.Diff(wantCalls, f.requests()); diff != "" {
		t.Errorf("request sequence mismatch (-want +got):\n%s", diff)
	}

	got := f.issue(123)
	if diff := cmp.Diff([]string{"bug"}, got.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if got.State != "closed" {
		t.Errorf("state = %q, want closed", got.State)
	}
	if !res.Closed || len(res.Labels) != 1 {
		t.Errorf("result = %+v", res)
	}
	if n.count() != 0 {
		t.Errorf("unexpected alerts: %v", n.errs)
	}
}

func TestMoveOutOfDoneReopens(t *testing.T) {
	f := newFakeGitHub(t)
	f.add(&fakeIssue{Number: 7, State: "closed", Labels: []string{"ui"}})
	s, _ := newTestSync(t, f, "tok")

	res, err := s.MoveCard(context.Background(), testRepo, 7, labels.Review, true)
	if err != nil {
		t.Fatalf("MoveCard: %v", err)
	}
	got := f.issue(7)
	if got.State != "open" || res.Closed {
		t.Errorf("issue should be reopened, state=%q result=%+v", got.State, res)
	}
	if diff := cmp.Diff([]string{"ui", "review"}, got.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveBetweenOpenColumnsKeepsState(t *testing.T) {
	f := newFakeGitHub(t)
	f.add(&fakeIssue{Number: 5, Labels: []string{"review"}})
	s, _ := newTestSync(t, f, "tok")

	if _, err := s.MoveCard(context.Background(), testRepo, 5, labels.Backlog, false); err != nil {
		t.Fatalf("MoveCard: %v", err)
	}
	got := f.issue(5)
	if len(got.Labels) != 0 {
		t.Errorf("backlog should carry no status label, got %v", got.Labels)
	}
	for _, call := range f.requests() {
		if call == "PATCH /repos/octo/widgets/issues/5" {
			t.Error("state must not change for open to open moves")
		}
	}
}

func TestRequestsCarryBearerToken(t *testing.T) {
	f := newFakeGitHub(t)
	f.add(&fakeIssue{Number: 1})
	s, _ := newTestSync(t, f, "s3cr3t")

	if _, err := s.listLabels(context.Background(), testRepo, 1); err != nil {
		t.Fatalf("listLabels: %v", err)
	}
	if f.auth[0] != "Bearer s3cr3t" {
		t.Errorf("Authorization = %q", f.auth[0])
	}
}

func TestCreate(t *testing.T) {
	f := newFakeGitHub(t)
	s, _ := newTestSync(t, f, "tok")

	rec, err := s.Create(context.Background(), testRepo, "new card", "details", []string{"in progress"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Number != 1 || rec.Title != "new card" || rec.Closed() {
		t.Errorf("record = %+v", rec)
	}
	if labels.LabelsToColumn(rec.Labels) != labels.InProgress {
		t.Errorf("labels = %v", rec.Labels)
	}
	if rec.Card().Key() != "1" {
		t.Errorf("card key = %q", rec.Card().Key())
	}
}

func TestCreateUnauthenticatedReturnsNilWithoutRequest(t *testing.T) {
	f := newFakeGitHub(t)
	s, n := newTestSync(t, f, "")

	rec, err := s.Create(context.Background(), testRepo, "t", "", nil)
	if rec != nil {
		t.Errorf("record = %+v, want nil", rec)
	}
	if !errors.IsUnauthenticated(err) {
		t.Errorf("err = %v, want unauthenticated", err)
	}
	if n.count() != 1 {
		t.Errorf("expected one alert, got %d", n.count())
	}
	if len(f.requests()) != 0 {
		t.Errorf("no request should be made, got %v", f.requests())
	}
}

func TestArchiveAddsSentinelKeepingLabels(t *testing.T) {
	f := newFakeGitHub(t)
	f.add(&fakeIssue{Number: 9, Labels: []string{"bug", "review"}})
	s, _ := newTestSync(t, f, "tok")

	if err := s.Archive(context.Background(), testRepo, 9); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if diff := cmp.Diff([]string{"bug", "review", "archive"}, f.issue(9).Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	// Already archived: no write.
	f.clearRequests()
	if err := s.Archive(context.Background(), testRepo, 9); err != nil {
		t.Fatalf("second Archive: %v", err)
	}
	if diff := cmp.Diff([]string{"GET /repos/octo/widgets/issues/9/labels"}, f.requests()); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateIssue(t *testing.T) {
	f := newFakeGitHub(t)
	f.add(&fakeIssue{Number: 3, Title: "old", Labels: []string{"review"}})
	s, _ := newTestSync(t, f, "tok")

	rec, err := s.UpdateIssue(context.Background(), testRepo, 3, "new", "body")
	if err != nil {
		t.Fatalf("UpdateIssue: %v", err)
	}
	if rec.Title != "new" || rec.Body != "body" {
		t.Errorf("record = %+v", rec)
	}
	if diff := cmp.Diff([]string{"review"}, f.issue(3).Labels); diff != "" {
		t.Errorf("edit must not touch labels (-want +got):\n%s", diff)
	}
}

func TestLoadBoardPlacement(t *testing.T) {
	f := newFakeGitHub(t)
	f.pageSize = 2
	f.add(
		&fakeIssue{Number: 1, Labels: []string{"bug"}},
		&fakeIssue{Number: 2, Labels: []string{"In Progress"}},
		&fakeIssue{Number: 3, Labels: []string{"review", "archive"}},
		&fakeIssue{Number: 4, Labels: []string{"review"}},
		&fakeIssue{Number: 5, PR: true},
		&fakeIssue{Number: 6, State: "closed", Labels: []string{"in progress"}},
		&fakeIssue{Number: 7, State: "closed", Labels: []string{"archive"}},
	)
	s, _ := newTestSync(t, f, "tok")

	p, err := s.LoadBoard(context.Background(), testRepo, 0)
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}

	numbers := func(col labels.Column) []int {
		var out []int
		for _, r := range p[col] {
			out = append(out, r.Number)
		}
		return out
	}
	want := map[labels.Column][]int{
		labels.Backlog:    {1},
		labels.InProgress: {2},
		labels.Review:     {4},
		labels.Done:       {6},
	}
	for col, nums := range want {
		if diff := cmp.Diff(nums, numbers(col)); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", col, diff)
		}
	}
	if p.Total() != 4 {
		t.Errorf("Total = %d, want 4", p.Total())
	}
	if !p[labels.Done][0].Closed() {
		t.Error("done records should be closed")
	}
}

func TestLoadClosedLimit(t *testing.T) {
	f := newFakeGitHub(t)
	f.pageSize = 2
	for i := 1; i <= 5; i++ {
		f.add(&fakeIssue{Number: i, State: "closed"})
	}
	s, _ := newTestSync(t, f, "tok")

	recs, err := s.LoadClosed(context.Background(), testRepo, 3)
	if err != nil {
		t.Fatalf("LoadClosed: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("got %d records, want 3", len(recs))
	}
}

func TestRateLimitedResponseBlocksWithoutAlert(t *testing.T) {
	f := newFakeGitHub(t)
	f.add(&fakeIssue{Number: 1})
	f.setRemaining(0)
	s, n := newTestSync(t, f, "tok")

	_, err := s.listLabels(context.Background(), testRepo, 1)
	if !errors.IsRateLimited(err) {
		t.Fatalf("err = %v, want rate limited", err)
	}
	if n.count() != 0 {
		t.Errorf("rate limit must not raise a generic alert, got %v", n.errs)
	}
	if s.Limiter().State() != ratelimit.Blocked {
		t.Errorf("limiter state = %s, want blocked", s.Limiter().State())
	}

	// Further calls short-circuit before spending a request.
	f.clearRequests()
	if _, err := s.MoveCard(context.Background(), testRepo, 1, labels.Review, false); !errors.IsRateLimited(err) {
		t.Errorf("MoveCard err = %v, want rate limited", err)
	}
	if len(f.requests()) != 0 {
		t.Errorf("blocked limiter still sent %v", f.requests())
	}
}

func TestLastRequestOfBudgetBlocksNextCall(t *testing.T) {
	f := newFakeGitHub(t)
	f.add(&fakeIssue{Number: 1})
	f.setRemaining(1)
	s, _ := newTestSync(t, f, "tok")

	if _, err := s.listLabels(context.Background(), testRepo, 1); err != nil {
		t.Fatalf("last budgeted request should succeed: %v", err)
	}
	if s.Limiter().State() != ratelimit.Blocked {
		t.Errorf("state = %s, want blocked once remaining hits 0", s.Limiter().State())
	}
}

func TestAPIErrorAlertsUser(t *testing.T) {
	f := newFakeGitHub(t)
	s, n := newTestSync(t, f, "tok")

	err := s.Close(context.Background(), testRepo, 404)
	if err == nil {
		t.Fatal("expected error for missing issue")
	}
	var userErr *errors.UserError
	if !stderrors.As(err, &userErr) || userErr.Title != "❌ Resource Not Found" {
		t.Errorf("err = %#v", err)
	}
	if n.count() != 1 {
		t.Errorf("expected one alert, got %d", n.count())
	}
}

func TestNetworkErrorAlertsUser(t *testing.T) {
	f := newFakeGitHub(t)
	s, n := newTestSync(t, f, "tok")
	f.server.Close()

	if _, err := s.LoadOpen(context.Background(), testRepo); err == nil {
		t.Fatal("expected connection error")
	}
	if n.count() != 1 {
		t.Errorf("expected one alert, got %d", n.count())
	}
}

func TestProbeRateLimitFeedsLimiter(t *testing.T) {
	f := newFakeGitHub(t)
	f.setRemaining(5)
	s, _ := newTestSync(t, f, "tok")

	if err := s.ProbeRateLimit(context.Background()); err != nil {
		t.Fatalf("ProbeRateLimit: %v", err)
	}
	snap := s.Limiter().Snapshot()
	if snap.Remaining != 5 || snap.Limit != 5000 || snap.State != ratelimit.Warning {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestCallsTargetTheGivenRepo(t *testing.T) {
	f := newFakeGitHub(t)
	f.add(&fakeIssue{Number: 1, Labels: []string{"review"}})
	s, _ := newTestSync(t, f, "tok")
	gadgets := board.RepoContext{Owner: "octo", Repo: "gadgets"}

	if _, err := s.LoadOpen(context.Background(), gadgets); err != nil {
		t.Fatalf("LoadOpen: %v", err)
	}
	if _, err := s.MoveCard(context.Background(), testRepo, 1, labels.Done, false); err != nil {
		t.Fatalf("MoveCard: %v", err)
	}
	want := []string{
		"GET /repos/octo/gadgets/issues",
		"GET /repos/octo/widgets/issues/1/labels",
		"PUT /repos/octo/widgets/issues/1/labels",
		"PATCH /repos/octo/widgets/issues/1",
	}
	if diff := cmp.Diff(want, f.requests()); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOpenFollowsEveryPage(t *testing.T) {
	f := newFakeGitHub(t)
	f.pageSize = 2
	for i := 1; i <= 5; i++ {
		f.add(&fakeIssue{Number: i})
	}
	s, _ := newTestSync(t, f, "tok")

	recs, err := s.LoadOpen(context.Background(), testRepo)
	if err != nil {
		t.Fatalf("LoadOpen: %v", err)
	}
	var got []int
	for _, r := range recs {
		got = append(got, r.Number)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if n := len(f.requests()); n != 3 {
		t.Errorf("made %d requests, want 3 pages", n)
	}
}

func TestSetNotifierWhileRequestsFail(t *testing.T) {
	f := newFakeGitHub(t)
	s, _ := newTestSync(t, f, "tok")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close(context.Background(), testRepo, 404)
		}()
	}
	late := &recordingNotifier{}
	s.SetNotifier(late)
	wg.Wait()

	if err := s.Close(context.Background(), testRepo, 404); err == nil {
		t.Fatal("expected error for missing issue")
	}
	if late.count() == 0 {
		t.Error("replacement notifier never received an alert")
	}
}

func TestPlaceWithoutRemote(t *testing.T) {
	p := Place(
		[]Record{{Number: 1, Labels: []string{"DONE"}, State: StateOpen}},
		[]Record{{Number: 2, Labels: []string{"review"}, State: StateClosed}},
	)
	if len(p[labels.Done]) != 2 {
		t.Errorf("done = %+v", p[labels.Done])
	}
	if _, ok := p[labels.Backlog]; !ok {
		t.Error("every column should be present in the placement")
	}
}
