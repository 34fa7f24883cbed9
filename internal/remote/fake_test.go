package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"
)

type fakeIssue struct {
	Number int
	Title  string
	Body   string
	State  string
	Labels []string
	PR     bool
}

// fakeGitHub is an in-memory subset of the issues API.
type fakeGitHub struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	issues    map[int]*fakeIssue
	calls     []string
	auth      []string
	remaining int
	reset     time.Time
	pageSize  int
	// failWith forces a status for every non rate_limit request.
	failWith int
	repos    []map[string]any
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{
		t:         t,
		issues:    map[int]*fakeIssue{},
		remaining: 4999,
		reset:     time.Now().Add(time.Hour),
		pageSize:  100,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/issues", f.listIssues)
	mux.HandleFunc("POST /repos/{owner}/{repo}/issues", f.createIssue)
	mux.HandleFunc("PATCH /repos/{owner}/{repo}/issues/{n}", f.editIssue)
	mux.HandleFunc("GET /repos/{owner}/{repo}/issues/{n}/labels", f.listLabels)
	mux.HandleFunc("PUT /repos/{owner}/{repo}/issues/{n}/labels", f.replaceLabels)
	mux.HandleFunc("GET /rate_limit", f.rateLimit)
	mux.HandleFunc("GET /user/repos", f.userRepos)

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		exhausted := f.remaining == 0
		if !exhausted && r.URL.Path != "/rate_limit" {
			f.remaining--
		}
		remaining, reset, failWith := f.remaining, f.reset, f.failWith
		f.mu.Unlock()

		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if r.URL.Path != "/rate_limit" {
			if exhausted {
				writeJSON(w, http.StatusForbidden, map[string]any{"message": "API rate limit exceeded"})
				return
			}
			if failWith != 0 {
				writeJSON(w, failWith, map[string]any{"message": http.StatusText(failWith)})
				return
			}
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) add(issues ...*fakeIssue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, i := range issues {
		if i.State == "" {
			i.State = "open"
		}
		f.issues[i.Number] = i
	}
}

func (f *fakeGitHub) issue(n int) fakeIssue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.issues[n]
}

func (f *fakeGitHub) setRemaining(n int) {
	f.mu.Lock()
	f.remaining = n
	f.mu.Unlock()
}

func (f *fakeGitHub) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGitHub) clearRequests() {
	f.mu.Lock()
	f.calls = nil
	f.auth = nil
	f.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeGitHub) render(i *fakeIssue) map[string]any {
	labelObjs := make([]map[string]any, 0, len(i.Labels))
	for _, l := range i.Labels {
		labelObjs = append(labelObjs, map[string]any{"name": l})
	}
	out := map[string]any{
		"number":     i.Number,
		"title":      i.Title,
		"body":       i.Body,
		"state":      i.State,
		"labels":     labelObjs,
		"html_url":   fmt.Sprintf("https://github.com/octo/widgets/issues/%d", i.Number),
		"updated_at": "2024-05-01T12:00:00Z",
	}
	if i.PR {
		out["pull_request"] = map[string]any{"url": "https://api.github.com/repos/octo/widgets/pulls/1"}
	}
	return out
}

func (f *fakeGitHub) lookup(w http.ResponseWriter, r *http.Request) (*fakeIssue, bool) {
	n, _ := strconv.Atoi(r.PathValue("n"))
	i, ok := f.issues[n]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	}
	return i, ok
}

func (f *fakeGitHub) listIssues(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := r.URL.Query().Get("state")
	var nums []int
	for n, i := range f.issues {
		if i.State == state {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	start := (page - 1) * f.pageSize
	end := start + f.pageSize
	if start > len(nums) {
		start = len(nums)
	}
	if end > len(nums) {
		end = len(nums)
	}
	if end < len(nums) {
		next := fmt.Sprintf("%s%s?state=%s&page=%d", f.server.URL, r.URL.Path, state, page+1)
		w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
	}

	out := make([]map[string]any, 0, end-start)
	for _, n := range nums[start:end] {
		out = append(out, f.render(f.issues[n]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeGitHub) createIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string   `json:"title"`
		Body   string   `json:"body"`
		Labels []string `json:"labels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 1
	for k := range f.issues {
		if k >= n {
			n = k + 1
		}
	}
	i := &fakeIssue{Number: n, Title: req.Title, Body: req.Body, State: "open", Labels: req.Labels}
	f.issues[n] = i
	writeJSON(w, http.StatusCreated, f.render(i))
}

func (f *fakeGitHub) editIssue(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.lookup(w, r)
	if !ok {
		return
	}
	if v, ok := req["state"]; ok {
		i.State = v
	}
	if v, ok := req["title"]; ok {
		i.Title = v
	}
	if v, ok := req["body"]; ok {
		i.Body = v
	}
	writeJSON(w, http.StatusOK, f.render(i))
}

func (f *fakeGitHub) listLabels(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, f.render(i)["labels"])
}

func (f *fakeGitHub) replaceLabels(w http.ResponseWriter, r *http.Request) {
	var names []string
	if err := json.NewDecoder(r.Body).Decode(&names); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	if names == nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "labels must be an array"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.lookup(w, r)
	if !ok {
		return
	}
	i.Labels = names
	writeJSON(w, http.StatusOK, f.render(i)["labels"])
}

func (f *fakeGitHub) rateLimit(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	remaining, reset := f.remaining, f.reset
	f.mu.Unlock()
	core := map[string]any{"limit": 5000, "remaining": remaining, "reset": reset.Unix()}
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": map[string]any{"core": core},
		"rate":      core,
	})
}

func (f *fakeGitHub) userRepos(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.repos)
}
