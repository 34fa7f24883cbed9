package order

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"

	"ghboard/internal/board"
	"ghboard/internal/kv"
	"ghboard/internal/logger"
)

// Persisted key prefixes; the repo scope is appended as _<owner>_<repo>.
const (
	OrderKeyPrefix    = "cardOrder"
	CollapseKeyPrefix = "columnCollapseStates"
	TasksKeyPrefix    = "localTasks"
)

// scoped is a JSON document in a kv.Store keyed by prefix and repo.
type scoped struct {
	kv     kv.Store
	prefix string

	mu   sync.RWMutex
	repo board.RepoContext
}

func (s *scoped) setRepo(repo board.RepoContext) {
	s.mu.Lock()
	s.repo = repo
	s.mu.Unlock()
}

// Repo returns the current scope.
func (s *scoped) Repo() board.RepoContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repo
}

// Key is the storage key for the current scope.
func (s *scoped) Key() string {
	return s.prefix + "_" + s.Repo().Scope()
}

// load decodes the document into v. Absence, read failures and invalid
// JSON all report false.
func (s *scoped) load(ctx context.Context, v any) bool {
	key := s.Key()
	raw, err := s.kv.Get(ctx, key)
	if stderrors.Is(err, kv.ErrNotFound) {
		return false
	}
	if err != nil {
		logger.Storage("read %s failed: %v", key, err)
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		logger.Storage("discarding malformed %s: %v", key, err)
		return false
	}
	return true
}

func (s *scoped) save(ctx context.Context, v any) error {
	key := s.Key()
	data, err := json.Marshal(v)
	if err != nil {
		logger.Storage("encode %s failed: %v", key, err)
		return err
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		logger.Storage("write %s failed: %v", key, err)
		return err
	}
	return nil
}
