package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v74/github"

	"ghboard/internal/board"
	"ghboard/internal/labels"
	"ghboard/internal/logger"
)

// Issue states as GitHub spells them.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Record is the board's cached rendering of a remote issue.
type Record struct {
	Number    int
	Title     string
	Body      string
	Labels    []string
	State     string
	URL       string
	UpdatedAt time.Time
}

// Closed reports whether the issue is closed.
func (r Record) Closed() bool { return r.State == StateClosed }

// Card renders the record as a board card.
func (r Record) Card() *board.Card {
	return board.NewIssueCard(r.Number, r.Title, r.Body, r.Labels, r.Closed(), r.URL)
}

func recordFromIssue(i *github.Issue) Record {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		names = append(names, l.GetName())
	}
	return Record{
		Number:    i.GetNumber(),
		Title:     i.GetTitle(),
		Body:      i.GetBody(),
		Labels:    names,
		State:     i.GetState(),
		URL:       i.GetHTMLURL(),
		UpdatedAt: i.GetUpdatedAt().Time,
	}
}

// Create opens an issue. It returns nil and an error when unauthenticated or
// when GitHub refuses; the caller inserts the card.
func (s *Sync) Create(ctx context.Context, repo board.RepoContext, title, body string, labelNames []string) (*Record, error) {
	if err := s.gateMutation(ctx, "create an issue"); err != nil {
		return nil, err
	}

	req := &github.IssueRequest{Title: github.Ptr(title)}
	if body != "" {
		req.Body = github.Ptr(body)
	}
	if len(labelNames) > 0 {
		req.Labels = &labelNames
	}

	issue, _, err := s.gh.Issues.Create(ctx, repo.Owner, repo.Repo, req)
	if err != nil {
		return nil, s.fail("create issue", err)
	}
	rec := recordFromIssue(issue)
	logger.GitHub("created #%d in %s", rec.Number, repo)
	return &rec, nil
}

// listLabels reads the issue's current label names. Callers gate first.
func (s *Sync) listLabels(ctx context.Context, repo board.RepoContext, number int) ([]string, error) {
	opts := &github.ListOptions{PerPage: 100}
	var names []string
	for {
		page, resp, err := s.gh.Issues.ListLabelsByIssue(ctx, repo.Owner, repo.Repo, number, opts)
		if err != nil {
			return nil, s.fail(fmt.Sprintf("read labels of #%d", number), err)
		}
		for _, l := range page {
			names = append(names, l.GetName())
		}
		if resp == nil || resp.NextPage == 0 {
			return names, nil
		}
		opts.Page = resp.NextPage
	}
}

// replaceLabels writes the full set. The endpoint replaces every label, so
// callers must have read the current set first.
func (s *Sync) replaceLabels(ctx context.Context, repo board.RepoContext, number int, names []string) ([]string, error) {
	if names == nil {
		// A nil slice would encode as null.
		names = []string{}
	}
	got, _, err := s.gh.Issues.ReplaceLabelsForIssue(ctx, repo.Owner, repo.Repo, number, names)
	if err != nil {
		return nil, s.fail(fmt.Sprintf("update labels of #%d", number), err)
	}
	out := make([]string, 0, len(got))
	for _, l := range got {
		out = append(out, l.GetName())
	}
	return out, nil
}

// UpdateLabelsForColumnMove swaps the issue's status label for the one that
// represents col, keeping unrelated labels. It returns the new label set.
func (s *Sync) UpdateLabelsForColumnMove(ctx context.Context, repo board.RepoContext, number int, col labels.Column) ([]string, error) {
	if err := s.gateMutation(ctx, "move an issue"); err != nil {
		return nil, err
	}
	current, err := s.listLabels(ctx, repo, number)
	if err != nil {
		return nil, err
	}
	next := labels.LabelsForMove(current, col)
	if err := s.limiter.Err(); err != nil {
		return nil, err
	}
	return s.replaceLabels(ctx, repo, number, next)
}

// Close transitions the issue to closed without touching labels.
func (s *Sync) Close(ctx context.Context, repo board.RepoContext, number int) error {
	return s.setState(ctx, repo, number, StateClosed)
}

// Reopen transitions the issue to open without touching labels.
func (s *Sync) Reopen(ctx context.Context, repo board.RepoContext, number int) error {
	return s.setState(ctx, repo, number, StateOpen)
}

func (s *Sync) setState(ctx context.Context, repo board.RepoContext, number int, state string) error {
	op := "close an issue"
	if state == StateOpen {
		op = "reopen an issue"
	}
	if err := s.gateMutation(ctx, op); err != nil {
		return err
	}
	if _, _, err := s.gh.Issues.Edit(ctx, repo.Owner, repo.Repo, number, &github.IssueRequest{State: github.Ptr(state)}); err != nil {
		return s.fail(fmt.Sprintf("set #%d %s", number, state), err)
	}
	logger.GitHub("#%d is now %s", number, state)
	return nil
}

// MoveResult is the remote outcome of a column move.
type MoveResult struct {
	Labels []string
	Closed bool
}

// MoveCard applies a column move: labels first, then closes when entering
// done, or reopens a closed issue that leaves done. A failure stops the
// sequence; earlier steps are not undone.
func (s *Sync) MoveCard(ctx context.Context, repo board.RepoContext, number int, col labels.Column, wasClosed bool) (MoveResult, error) {
	res := MoveResult{Closed: wasClosed}
	names, err := s.UpdateLabelsForColumnMove(ctx, repo, number, col)
	if err != nil {
		return res, err
	}
	res.Labels = names

	switch {
	case col == labels.Done && !wasClosed:
		if err := s.Close(ctx, repo, number); err != nil {
			return res, err
		}
		res.Closed = true
	case col != labels.Done && wasClosed:
		if err := s.Reopen(ctx, repo, number); err != nil {
			return res, err
		}
		res.Closed = false
	}
	return res, nil
}

// Archive adds the archive sentinel label so the issue is skipped on load.
func (s *Sync) Archive(ctx context.Context, repo board.RepoContext, number int) error {
	if err := s.gateMutation(ctx, "archive an issue"); err != nil {
		return err
	}
	current, err := s.listLabels(ctx, repo, number)
	if err != nil {
		return err
	}
	if labels.IsArchived(current) {
		return nil
	}
	if _, err := s.replaceLabels(ctx, repo, number, labels.WithArchive(current)); err != nil {
		return err
	}
	logger.GitHub("archived #%d in %s", number, repo)
	return nil
}

// UpdateIssue edits title and body.
func (s *Sync) UpdateIssue(ctx context.Context, repo board.RepoContext, number int, title, body string) (*Record, error) {
	if err := s.gateMutation(ctx, "edit an issue"); err != nil {
		return nil, err
	}
	issue, _, err := s.gh.Issues.Edit(ctx, repo.Owner, repo.Repo, number, &github.IssueRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
	})
	if err != nil {
		return nil, s.fail(fmt.Sprintf("edit #%d", number), err)
	}
	rec := recordFromIssue(issue)
	return &rec, nil
}
