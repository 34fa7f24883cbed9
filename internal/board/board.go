// Package board holds the in-memory kanban model that the TUI renders and the
// order reconciler rearranges.
package board

import (
	"fmt"
	"strings"

	"ghboard/internal/labels"
)

// RepoContext scopes persisted state to one GitHub repository.
type RepoContext struct {
	Owner string
	Repo  string
}

// ParseRepo accepts "owner/repo".
func ParseRepo(s string) (RepoContext, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return RepoContext{}, fmt.Errorf("invalid repository %q, expected owner/repo", s)
	}
	return RepoContext{Owner: owner, Repo: repo}, nil
}

// Scope is the suffix appended to persisted keys.
func (r RepoContext) Scope() string { return r.Owner + "_" + r.Repo }

func (r RepoContext) String() string { return r.Owner + "/" + r.Repo }

// IsZero reports whether no repository is selected.
func (r RepoContext) IsZero() bool { return r.Owner == "" || r.Repo == "" }

// Card is one entry on the board.
type Card struct {
	Title       string
	Body        string
	Labels      []string
	IssueNumber int
	Closed      bool
	URL         string
	LocalTaskID string
	Special     string
	// Skeleton marks a loading placeholder. Skeletons are never saved.
	Skeleton bool

	id Identity
}

// NewIssueCard builds a card for a remote issue.
func NewIssueCard(number int, title, body string, labelNames []string, closed bool, url string) *Card {
	c := &Card{
		Title:       title,
		Body:        body,
		Labels:      append([]string(nil), labelNames...),
		IssueNumber: number,
		Closed:      closed,
		URL:         url,
	}
	c.id = DeriveIdentity(c)
	return c
}

// NewLocalCard builds a card for a task with no remote issue.
func NewLocalCard(id, title, body string) *Card {
	c := &Card{Title: title, Body: body, LocalTaskID: id}
	c.id = DeriveIdentity(c)
	return c
}

// NewSpecialCard builds one of the semantic cards.
func NewSpecialCard(name, title, body string) *Card {
	c := &Card{Title: title, Body: body, Special: name}
	c.id = DeriveIdentity(c)
	return c
}

// NewSkeletonCard builds a loading placeholder.
func NewSkeletonCard() *Card {
	return &Card{Title: "Loading...", Skeleton: true}
}

// Identity returns the card's identity, deriving and pinning it on first use.
func (c *Card) Identity() Identity {
	if c.id.IsZero() {
		c.id = DeriveIdentity(c)
	}
	return c.id
}

// Key is shorthand for Identity().Key().
func (c *Card) Key() string { return c.Identity().Key() }

// IsClosedIssue reports whether the card mirrors a closed remote issue.
func (c *Card) IsClosedIssue() bool { return c.IssueNumber > 0 && c.Closed }

// Column is an ordered list of cards.
type Column struct {
	Name      labels.Column
	Cards     []*Card
	Collapsed bool
}

// Visible returns the non-skeleton cards in order.
func (c *Column) Visible() []*Card {
	out := make([]*Card, 0, len(c.Cards))
	for _, card := range c.Cards {
		if !card.Skeleton {
			out = append(out, card)
		}
	}
	return out
}

// Skeletons returns the placeholder cards in order.
func (c *Column) Skeletons() []*Card {
	var out []*Card
	for _, card := range c.Cards {
		if card.Skeleton {
			out = append(out, card)
		}
	}
	return out
}

// Count is the number of visible cards.
func (c *Column) Count() int { return len(c.Visible()) }

// Index returns the position of key among all cards, or -1.
func (c *Column) Index(key string) int {
	for i, card := range c.Cards {
		if !card.Skeleton && card.Key() == key {
			return i
		}
	}
	return -1
}

// Board is the set of columns for one repository.
type Board struct {
	Repo    RepoContext
	Columns []*Column
}

// New creates an empty board with the standard columns.
func New(repo RepoContext) *Board {
	b := &Board{Repo: repo}
	for _, name := range labels.Columns() {
		b.Columns = append(b.Columns, &Column{Name: name})
	}
	return b
}

// Column returns the named column or nil.
func (b *Board) Column(name labels.Column) *Column {
	for _, col := range b.Columns {
		if col.Name == name {
			return col
		}
	}
	return nil
}

// Find locates a visible card by key.
func (b *Board) Find(key string) (*Column, int, *Card) {
	for _, col := range b.Columns {
		if i := col.Index(key); i >= 0 {
			return col, i, col.Cards[i]
		}
	}
	return nil, -1, nil
}

// Remove detaches a card and returns it, or nil when absent.
func (b *Board) Remove(key string) *Card {
	col, i, card := b.Find(key)
	if card == nil {
		return nil
	}
	col.Cards = append(col.Cards[:i], col.Cards[i+1:]...)
	return card
}

// Insert places card at idx among the column's visible cards. Out of range
// indexes clamp to the ends.
func (b *Board) Insert(name labels.Column, idx int, card *Card) error {
	col := b.Column(name)
	if col == nil {
		return fmt.Errorf("no column %q", name)
	}
	skeletons := col.Skeletons()
	visible := col.Visible()
	if idx < 0 {
		idx = 0
	}
	if idx > len(visible) {
		idx = len(visible)
	}
	cards := make([]*Card, 0, len(col.Cards)+1)
	cards = append(cards, skeletons...)
	cards = append(cards, visible[:idx]...)
	cards = append(cards, card)
	cards = append(cards, visible[idx:]...)
	col.Cards = cards
	return nil
}

// Move relocates the card with key to position idx of column to.
func (b *Board) Move(key string, to labels.Column, idx int) (*Card, error) {
	if b.Column(to) == nil {
		return nil, fmt.Errorf("no column %q", to)
	}
	card := b.Remove(key)
	if card == nil {
		return nil, fmt.Errorf("no card %q", key)
	}
	if err := b.Insert(to, idx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// Clear drops every card while keeping the columns and their collapse state.
func (b *Board) Clear() {
	for _, col := range b.Columns {
		col.Cards = nil
	}
}

// Counts returns the visible card count per column.
func (b *Board) Counts() map[labels.Column]int {
	out := make(map[labels.Column]int, len(b.Columns))
	for _, col := range b.Columns {
		out[col.Name] = col.Count()
	}
	return out
}

// Keys returns the visible card keys per column, in order.
func (b *Board) Keys() map[labels.Column][]string {
	out := make(map[labels.Column][]string, len(b.Columns))
	for _, col := range b.Columns {
		keys := make([]string, 0, len(col.Cards))
		for _, card := range col.Visible() {
			keys = append(keys, card.Key())
		}
		out[col.Name] = keys
	}
	return out
}
