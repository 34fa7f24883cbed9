package order

import (
	"context"

	"ghboard/internal/board"
	"ghboard/internal/kv"
	"ghboard/internal/labels"
)

// CollapseStore persists which columns are collapsed, under
// columnCollapseStates_<owner>_<repo>.
type CollapseStore struct {
	scoped
}

func NewCollapseStore(s kv.Store, repo board.RepoContext) *CollapseStore {
	return &CollapseStore{scoped{kv: s, prefix: CollapseKeyPrefix, repo: repo}}
}

func (s *CollapseStore) SetRepo(repo board.RepoContext) { s.setRepo(repo) }

// Load never returns nil; missing or unreadable state means nothing is
// collapsed.
func (s *CollapseStore) Load(ctx context.Context) map[labels.Column]bool {
	states := map[labels.Column]bool{}
	if !s.load(ctx, &states) {
		return map[labels.Column]bool{}
	}
	return states
}

func (s *CollapseStore) Save(ctx context.Context, states map[labels.Column]bool) error {
	return s.save(ctx, states)
}

// Toggle flips one column and returns its new state. The flip is returned
// even when it could not be persisted.
func (s *CollapseStore) Toggle(ctx context.Context, col labels.Column) bool {
	states := s.Load(ctx)
	states[col] = !states[col]
	_ = s.save(ctx, states)
	return states[col]
}
