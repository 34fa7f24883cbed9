package remote

import (
	"context"

	"github.com/google/go-github/v74/github"

	"ghboard/internal/board"
	"ghboard/internal/labels"
	"ghboard/internal/logger"
)

// DefaultClosedLimit caps how many closed issues (most recently updated
// first) are fetched for the done column.
const DefaultClosedLimit = 100

// Placement is the remote-derived column of every issue on the board.
type Placement map[labels.Column][]Record

// Total counts the placed records.
func (p Placement) Total() int {
	n := 0
	for _, recs := range p {
		n += len(recs)
	}
	return n
}

// LoadOpen fetches every open issue, skipping pull requests.
func (s *Sync) LoadOpen(ctx context.Context, repo board.RepoContext) ([]Record, error) {
	return s.listIssues(ctx, repo, StateOpen, 0)
}

// LoadClosed fetches up to limit closed issues (DefaultClosedLimit when
// limit <= 0), skipping pull requests.
func (s *Sync) LoadClosed(ctx context.Context, repo board.RepoContext, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultClosedLimit
	}
	return s.listIssues(ctx, repo, StateClosed, limit)
}

func (s *Sync) listIssues(ctx context.Context, repo board.RepoContext, state string, limit int) ([]Record, error) {
	if err := s.gate("load issues", false); err != nil {
		return nil, err
	}

	opts := &github.IssueListByRepoOptions{
		State:       state,
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var out []Record
	for {
		page, resp, err := s.gh.Issues.ListByRepo(ctx, repo.Owner, repo.Repo, opts)
		if err != nil {
			return nil, s.fail("load "+state+" issues", err)
		}
		for _, issue := range page {
			if issue.IsPullRequest() {
				continue
			}
			out = append(out, recordFromIssue(issue))
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		if err := s.limiter.Err(); err != nil {
			return nil, err
		}
		// Page is promoted from both ListCursorOptions and ListOptions.
		opts.ListOptions.Page = resp.NextPage
	}
}

// LoadBoard fetches open and closed issues and assigns each to a column.
// Archived issues are dropped, open issues follow their status label and
// closed issues always land in done.
func (s *Sync) LoadBoard(ctx context.Context, repo board.RepoContext, closedLimit int) (Placement, error) {
	open, err := s.LoadOpen(ctx, repo)
	if err != nil {
		return nil, err
	}
	closed, err := s.LoadClosed(ctx, repo, closedLimit)
	if err != nil {
		return nil, err
	}
	return Place(open, closed), nil
}

// Place distributes records without any remote call.
func Place(open, closed []Record) Placement {
	p := make(Placement, len(labels.Columns()))
	for _, col := range labels.Columns() {
		p[col] = nil
	}
	archived := 0
	for _, r := range open {
		if labels.IsArchived(r.Labels) {
			archived++
			continue
		}
		col := labels.LabelsToColumn(r.Labels)
		p[col] = append(p[col], r)
	}
	for _, r := range closed {
		if labels.IsArchived(r.Labels) {
			archived++
			continue
		}
		p[labels.Done] = append(p[labels.Done], r)
	}
	logger.GitHub("placed %d issues (%d archived skipped)", p.Total(), archived)
	return p
}
