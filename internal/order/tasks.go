package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ghboard/internal/board"
	"ghboard/internal/kv"
	"ghboard/internal/labels"
)

// LocalTask is a card with no remote issue behind it.
type LocalTask struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Body      string        `json:"body,omitempty"`
	Column    labels.Column `json:"column"`
	CreatedAt time.Time     `json:"created_at"`
}

// Card renders the task as a board card.
func (t LocalTask) Card() *board.Card {
	return board.NewLocalCard(t.ID, t.Title, t.Body)
}

// TaskStore persists local tasks under localTasks_<owner>_<repo>.
type TaskStore struct {
	scoped
	now func() time.Time
}

func NewTaskStore(s kv.Store, repo board.RepoContext) *TaskStore {
	return &TaskStore{scoped: scoped{kv: s, prefix: TasksKeyPrefix, repo: repo}, now: time.Now}
}

func (s *TaskStore) SetRepo(repo board.RepoContext) { s.setRepo(repo) }

// List returns the tasks; unreadable state is an empty list.
func (s *TaskStore) List(ctx context.Context) []LocalTask {
	var tasks []LocalTask
	if !s.load(ctx, &tasks) {
		return nil
	}
	return tasks
}

// Add creates a task in col.
func (s *TaskStore) Add(ctx context.Context, title, body string, col labels.Column) (LocalTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return LocalTask{}, fmt.Errorf("task title is required")
	}
	task := LocalTask{
		ID:        strings.SplitN(uuid.NewString(), "-", 2)[0],
		Title:     title,
		Body:      body,
		Column:    col,
		CreatedAt: s.now().UTC(),
	}
	tasks := append(s.List(ctx), task)
	if err := s.save(ctx, tasks); err != nil {
		return LocalTask{}, err
	}
	return task, nil
}

// SetColumn records the column a task was moved to.
func (s *TaskStore) SetColumn(ctx context.Context, id string, col labels.Column) error {
	return s.update(ctx, id, func(t *LocalTask) { t.Column = col })
}

// Edit replaces a task's title and body.
func (s *TaskStore) Edit(ctx context.Context, id, title, body string) error {
	return s.update(ctx, id, func(t *LocalTask) {
		t.Title = title
		t.Body = body
	})
}

// Remove deletes a task; removing an unknown id is not an error.
func (s *TaskStore) Remove(ctx context.Context, id string) error {
	tasks := s.List(ctx)
	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tasks) {
		return nil
	}
	return s.save(ctx, kept)
}

func (s *TaskStore) update(ctx context.Context, id string, fn func(*LocalTask)) error {
	tasks := s.List(ctx)
	for i := range tasks {
		if tasks[i].ID == id {
			fn(&tasks[i])
			return s.save(ctx, tasks)
		}
	}
	return fmt.Errorf("no local task %q", id)
}
