// Package kanban wires the board model, its persisted order and the GitHub
// sync into the operations the UI triggers.
//
// Operations that talk to GitHub are split in two: a part that only touches
// the network (safe on any goroutine) and a part that mutates the board
// (which must run on the goroutine owning Board). The combined helpers are
// for synchronous callers such as the CLI.
package kanban

import (
	"context"
	"fmt"
	"strings"

	"ghboard/internal/board"
	"ghboard/internal/errors"
	"ghboard/internal/kv"
	"ghboard/internal/labels"
	"ghboard/internal/logger"
	"ghboard/internal/order"
	"ghboard/internal/remote"
)

// Service is constructed once per process and shared by reference.
type Service struct {
	Board    *board.Board
	Sync     *remote.Sync
	Orders   *order.Store
	Collapse *order.CollapseStore
	Tasks    *order.TaskStore
	// ClosedLimit caps closed issues loaded into done.
	ClosedLimit int
}

// New creates a service for repo on top of store and sync.
func New(repo board.RepoContext, store kv.Store, sync *remote.Sync) *Service {
	return &Service{
		Board:    board.New(repo),
		Sync:     sync,
		Orders:   order.NewStore(store, repo),
		Collapse: order.NewCollapseStore(store, repo),
		Tasks:    order.NewTaskStore(store, repo),
	}
}

// Repo is the repository currently shown.
func (s *Service) Repo() board.RepoContext { return s.Board.Repo }

// Authenticated reports whether remote mutations are possible.
func (s *Service) Authenticated() bool { return s.Sync != nil && s.Sync.Authenticated() }

// FetchResult is the network half of a refresh.
type FetchResult struct {
	Repo      board.RepoContext
	Placement remote.Placement
	Remote    bool
	Err       error
}

// Fetch loads the remote issue set of repo. Without a credential the board
// is local-only and nothing is fetched.
func (s *Service) Fetch(ctx context.Context, repo board.RepoContext) FetchResult {
	res := FetchResult{Repo: repo}
	if !s.Authenticated() {
		return res
	}
	res.Remote = true
	res.Placement, res.Err = s.Sync.LoadBoard(ctx, repo, s.ClosedLimit)
	return res
}

// Rebuild replaces the board with the fetched issues, local tasks and the
// special cards, then applies the saved order. A failed fetch leaves the
// board as it was; a result for another repository is ignored.
func (s *Service) Rebuild(ctx context.Context, res FetchResult) error {
	if res.Repo != s.Board.Repo {
		logger.Debug("dropping stale fetch for %s", res.Repo)
		return nil
	}
	if res.Err != nil {
		return res.Err
	}

	s.Board.Clear()
	for _, col := range s.Board.Columns {
		for _, rec := range res.Placement[col.Name] {
			col.Cards = append(col.Cards, rec.Card())
		}
	}

	for _, task := range s.Tasks.List(ctx) {
		col := task.Column
		if s.Board.Column(col) == nil {
			col = labels.Backlog
		}
		s.Board.Column(col).Cards = append(s.Board.Column(col).Cards, task.Card())
	}

	backlog := s.Board.Column(labels.Backlog)
	backlog.Cards = append(s.specialCards(res.Remote), backlog.Cards...)

	collapsed := s.Collapse.Load(ctx)
	for _, col := range s.Board.Columns {
		col.Collapsed = collapsed[col.Name]
	}

	order.Apply(s.Board, s.Orders.Load(ctx))
	logger.Debug("board rebuilt for %s: %v", s.Board.Repo, s.Board.Counts())
	return nil
}

// Refresh is Fetch followed by Rebuild.
func (s *Service) Refresh(ctx context.Context) error {
	return s.Rebuild(ctx, s.Fetch(ctx, s.Board.Repo))
}

func (s *Service) specialCards(synced bool) []*board.Card {
	status := "Local only: set GITHUB_TOKEN to sync with GitHub."
	if synced {
		status = fmt.Sprintf("Synced with %s.", s.Board.Repo)
	}
	if s.Sync != nil {
		if snap := s.Sync.Limiter().Snapshot(); snap.Known {
			status += fmt.Sprintf(" API budget %d/%d.", snap.Remaining, snap.Limit)
		}
	}
	return []*board.Card{
		board.NewSpecialCard(board.StatusCard, "Board status", status),
		board.NewSpecialCard(board.AboutCard, "About ghboard",
			"Cards mirror GitHub issues. Column moves update status labels; done closes the issue."),
	}
}

// MoveRequest describes a move already applied to the board. Repo is the
// board's repository at the time of the move; the push targets it even if
// the board has switched since.
type MoveRequest struct {
	Repo        board.RepoContext
	Key         string
	Number      int
	From, To    labels.Column
	WasClosed   bool
	LocalTaskID string
}

// MoveLocal moves a card on the board and saves the new order.
func (s *Service) MoveLocal(ctx context.Context, key string, to labels.Column, idx int) (MoveRequest, error) {
	from, _, card := s.Board.Find(key)
	if card == nil {
		return MoveRequest{}, fmt.Errorf("no card %q on the board", key)
	}
	if s.Board.Column(to) == nil {
		return MoveRequest{}, errors.NewInvalidColumnError(string(to), columnNames())
	}
	req := MoveRequest{
		Repo:        s.Board.Repo,
		Key:         key,
		Number:      card.IssueNumber,
		From:        from.Name,
		To:          to,
		WasClosed:   card.Closed,
		LocalTaskID: card.LocalTaskID,
	}
	if _, err := s.Board.Move(key, to, idx); err != nil {
		return MoveRequest{}, err
	}
	s.Orders.Save(ctx, s.Board)

	if req.LocalTaskID != "" && req.From != req.To {
		if err := s.Tasks.SetColumn(ctx, req.LocalTaskID, to); err != nil {
			logger.Storage("local task column not saved: %v", err)
		}
	}
	return req, nil
}

// NeedsPush reports whether req changes anything on GitHub.
func (s *Service) NeedsPush(req MoveRequest) bool {
	return req.Number > 0 && req.From != req.To && s.Authenticated()
}

// PushMove performs the remote half of a move. Safe on any goroutine.
func (s *Service) PushMove(ctx context.Context, req MoveRequest) (remote.MoveResult, error) {
	if !s.NeedsPush(req) {
		return remote.MoveResult{Closed: req.WasClosed}, nil
	}
	return s.Sync.MoveCard(ctx, req.Repo, req.Number, req.To, req.WasClosed)
}

// ApplyMove records the remote outcome on the card. On failure the card
// stays where the user put it; outcomes for another repository are ignored.
func (s *Service) ApplyMove(req MoveRequest, res remote.MoveResult, err error) {
	if err != nil || req.Repo != s.Board.Repo {
		return
	}
	_, _, card := s.Board.Find(req.Key)
	if card == nil {
		return
	}
	if res.Labels != nil {
		card.Labels = res.Labels
	}
	card.Closed = res.Closed
}

// MoveCard is the synchronous move helper.
func (s *Service) MoveCard(ctx context.Context, key string, to labels.Column, idx int) (MoveRequest, error) {
	req, err := s.MoveLocal(ctx, key, to, idx)
	if err != nil {
		return req, err
	}
	res, err := s.PushMove(ctx, req)
	s.ApplyMove(req, res, err)
	return req, err
}

// NewCard creates the backing record for a card in repo: an issue when
// authenticated, otherwise a local task. Safe on any goroutine.
func (s *Service) NewCard(ctx context.Context, repo board.RepoContext, title, body string, col labels.Column) (*board.Card, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("card title is required")
	}
	if !s.Authenticated() {
		task, err := s.Tasks.Add(ctx, title, body, col)
		if err != nil {
			return nil, errors.NewStorageError("save", err)
		}
		return task.Card(), nil
	}

	var names []string
	if l, ok := labels.ColumnToLabel(col); ok && col != labels.Done {
		names = []string{l}
	}
	rec, err := s.Sync.Create(ctx, repo, title, body, names)
	if err != nil {
		return nil, err
	}
	if col == labels.Done {
		if err := s.Sync.Close(ctx, repo, rec.Number); err == nil {
			rec.State = remote.StateClosed
		}
	}
	return rec.Card(), nil
}

// InsertCard puts a new card at the top of col and saves the order.
func (s *Service) InsertCard(ctx context.Context, card *board.Card, col labels.Column) error {
	if err := s.Board.Insert(col, 0, card); err != nil {
		return err
	}
	s.Orders.Save(ctx, s.Board)
	return nil
}

// CreateCard is the synchronous create helper.
func (s *Service) CreateCard(ctx context.Context, title, body string, col labels.Column) (*board.Card, error) {
	if s.Board.Column(col) == nil {
		return nil, errors.NewInvalidColumnError(string(col), columnNames())
	}
	card, err := s.NewCard(ctx, s.Board.Repo, title, body, col)
	if err != nil {
		return nil, err
	}
	return card, s.InsertCard(ctx, card, col)
}

// ArchiveRequest describes a card already removed from the board.
type ArchiveRequest struct {
	Repo   board.RepoContext
	Key    string
	Number int
	Remote bool
}

// RemoveCard takes a card off the board regardless of what happens
// remotely, saves the order and returns the new column counts.
func (s *Service) RemoveCard(ctx context.Context, key string) (ArchiveRequest, map[labels.Column]int, error) {
	card := s.Board.Remove(key)
	if card == nil {
		return ArchiveRequest{}, s.Board.Counts(), fmt.Errorf("no card %q on the board", key)
	}
	if card.LocalTaskID != "" {
		if err := s.Tasks.Remove(ctx, card.LocalTaskID); err != nil {
			logger.Storage("local task not removed: %v", err)
		}
	}
	s.Orders.Save(ctx, s.Board)

	req := ArchiveRequest{
		Repo:   s.Board.Repo,
		Key:    key,
		Number: card.IssueNumber,
		Remote: card.IssueNumber > 0 && s.Authenticated(),
	}
	return req, s.Board.Counts(), nil
}

// PushArchive labels the issue as archived. Safe on any goroutine.
func (s *Service) PushArchive(ctx context.Context, req ArchiveRequest) error {
	if !req.Remote {
		return nil
	}
	return s.Sync.Archive(ctx, req.Repo, req.Number)
}

// ArchiveCard is the synchronous archive helper. The card is gone locally
// even when the remote call fails.
func (s *Service) ArchiveCard(ctx context.Context, key string) (map[labels.Column]int, error) {
	req, counts, err := s.RemoveCard(ctx, key)
	if err != nil {
		return counts, err
	}
	return counts, s.PushArchive(ctx, req)
}

// EditCard changes a card's title and body, remotely for issues.
func (s *Service) EditCard(ctx context.Context, key, title, body string) error {
	_, _, card := s.Board.Find(key)
	if card == nil {
		return fmt.Errorf("no card %q on the board", key)
	}
	switch {
	case card.IssueNumber > 0:
		rec, err := s.Sync.UpdateIssue(ctx, s.Board.Repo, card.IssueNumber, title, body)
		if err != nil {
			return err
		}
		card.Title, card.Body = rec.Title, rec.Body
	case card.LocalTaskID != "":
		if err := s.Tasks.Edit(ctx, card.LocalTaskID, title, body); err != nil {
			return errors.NewStorageError("save", err)
		}
		card.Title, card.Body = title, body
	default:
		return fmt.Errorf("card %q cannot be edited", key)
	}
	return nil
}

// SetIssueState closes or reopens an issue without touching its labels,
// then places the card where the next load would: done when closed, the
// column of its status label when open. It reports false when the issue
// was already in the requested state.
func (s *Service) SetIssueState(ctx context.Context, key string, closed bool) (bool, error) {
	_, _, card := s.Board.Find(key)
	if card == nil || card.IssueNumber == 0 {
		return false, fmt.Errorf("issue %q is not on the board", key)
	}
	if card.Closed == closed {
		return false, nil
	}
	if s.Sync == nil {
		return false, errors.NewUnauthenticatedError("change an issue's state")
	}
	repo := s.Board.Repo
	var err error
	if closed {
		err = s.Sync.Close(ctx, repo, card.IssueNumber)
	} else {
		err = s.Sync.Reopen(ctx, repo, card.IssueNumber)
	}
	if err != nil {
		return false, err
	}
	card.Closed = closed

	to := labels.Done
	if !closed {
		to = labels.LabelsToColumn(card.Labels)
	}
	if _, err := s.MoveLocal(ctx, key, to, 0); err != nil {
		return true, err
	}
	return true, nil
}

// ToggleCollapse flips and persists a column's collapsed state.
func (s *Service) ToggleCollapse(ctx context.Context, col labels.Column) bool {
	c := s.Board.Column(col)
	if c == nil {
		return false
	}
	c.Collapsed = s.Collapse.Toggle(ctx, col)
	return c.Collapsed
}

// Collapsed returns the collapse state of every column on the board.
func (s *Service) Collapsed() map[labels.Column]bool {
	out := make(map[labels.Column]bool, len(s.Board.Columns))
	for _, col := range s.Board.Columns {
		out[col.Name] = col.Collapsed
	}
	return out
}

// Counts returns the visible card count per column.
func (s *Service) Counts() map[labels.Column]int { return s.Board.Counts() }

// SetRepo rescopes every store and empties the board. Requests already in
// flight keep the repository they were made for. The rate limiter is shared
// and left alone.
func (s *Service) SetRepo(repo board.RepoContext) {
	s.Board.Repo = repo
	s.Board.Clear()
	s.Orders.SetRepo(repo)
	s.Collapse.SetRepo(repo)
	s.Tasks.SetRepo(repo)
}

// SwitchRepo is SetRepo followed by Refresh.
func (s *Service) SwitchRepo(ctx context.Context, repo board.RepoContext) error {
	s.SetRepo(repo)
	return s.Refresh(ctx)
}

func columnNames() []string {
	cols := labels.Columns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = string(c)
	}
	return out
}
