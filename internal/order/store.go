// Package order persists the visual order of cards per column and
// reconciles it against the live board.
package order

import (
	"context"

	"ghboard/internal/board"
	"ghboard/internal/kv"
	"ghboard/internal/labels"
)

// ColumnOrder maps a column to its saved card keys.
type ColumnOrder map[labels.Column][]string

// Store saves and loads ColumnOrder under cardOrder_<owner>_<repo>.
type Store struct {
	scoped
}

// NewStore creates a Store scoped to repo.
func NewStore(s kv.Store, repo board.RepoContext) *Store {
	return &Store{scoped{kv: s, prefix: OrderKeyPrefix, repo: repo}}
}

// SetRepo switches the scope.
func (s *Store) SetRepo(repo board.RepoContext) { s.setRepo(repo) }

// Snapshot captures the visible cards of each column in order. Identities
// are derived (and pinned) for cards that have none yet.
func Snapshot(b *board.Board) ColumnOrder {
	out := make(ColumnOrder, len(b.Columns))
	for _, col := range b.Columns {
		seen := make(map[string]bool)
		keys := make([]string, 0, len(col.Cards))
		for _, card := range col.Visible() {
			k := card.Key()
			if seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
		out[col.Name] = keys
	}
	return out
}

// Save writes the board's current order. Storage failures are logged and
// otherwise ignored.
func (s *Store) Save(ctx context.Context, b *board.Board) {
	if b == nil {
		return
	}
	_ = s.save(ctx, Snapshot(b))
}

// Load returns the saved order, or nil when there is none or it cannot be
// read or parsed.
func (s *Store) Load(ctx context.Context) ColumnOrder {
	var order ColumnOrder
	if !s.load(ctx, &order) {
		return nil
	}
	return order
}

// Clear removes the saved order for the current scope.
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, s.Key())
}
