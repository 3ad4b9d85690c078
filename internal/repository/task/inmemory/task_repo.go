package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"
	repo "taskDesk/internal/repository"

	"github.com/google/uuid"
)

// TaskStorage keeps tasks and their history behind one lock, so a status
// change and its history entry are applied together or not at all.
// Stored values are copied on the way in and out.
type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	history map[uuid.UUID][]*task.HistoryEntry
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		history: make(map[uuid.UUID][]*task.HistoryEntry),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Connection is stable")
	return nil
}

func (s *TaskStorage) CreateBatch(ctx context.Context, tasks []*task.Task, entries []*task.HistoryEntry) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, t := range tasks {
		if _, exists := s.storage[t.UUID]; exists {
			return repo.ErrVersionConflict
		}
	}

	now := time.Now().UTC()
	for _, t := range tasks {
		t.CreatedAt = now
		t.Version = 1
		s.storage[t.UUID] = cloneTask(t)
		s.ids = append(s.ids, t.UUID)
	}
	for _, e := range entries {
		s.history[e.TaskID] = append(s.history[e.TaskID], cloneEntry(e))
	}
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneTask(taskToGet), nil
}

// Apply stores t if its version still matches and appends entry.
func (s *TaskStorage) Apply(ctx context.Context, t *task.Task, entry *task.HistoryEntry) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[t.UUID]
	if !ok {
		return repo.ErrNotFound
	}
	if existing.Version != t.Version {
		return repo.ErrVersionConflict
	}

	now := time.Now().UTC()
	t.UpdatedAt = &now
	t.Version++

	s.storage[t.UUID] = cloneTask(t)
	s.history[t.UUID] = append(s.history[t.UUID], cloneEntry(entry))
	return nil
}

func (s *TaskStorage) History(ctx context.Context, id uuid.UUID) ([]*task.HistoryEntry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if _, ok := s.storage[id]; !ok {
		return nil, repo.ErrNotFound
	}

	entries := make([]*task.HistoryEntry, 0, len(s.history[id]))
	for _, e := range s.history[id] {
		entries = append(entries, cloneEntry(e))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ActionAt.Before(entries[j].ActionAt)
	})
	return entries, nil
}

// List returns the tasks empID sees under view that pass filter, oldest first.
func (s *TaskStorage) List(ctx context.Context, empID int64, view task.View, filter task.Filter) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	now := time.Now()
	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.storage[id]
		if !t.InView(empID, view) || !filter.Matches(t, now) {
			continue
		}
		res = append(res, cloneTask(t))
	}
	return res, nil
}

// ListActive returns up to limit tasks that are not in a terminal status,
// skipping the first offset of them, in creation order.
func (s *TaskStorage) ListActive(ctx context.Context, offset, limit int) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	skipped := 0
	for _, id := range s.ids {
		if len(res) >= limit {
			break
		}
		t := s.storage[id]
		if t.Status.IsTerminal() {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		res = append(res, cloneTask(t))
	}
	return res, nil
}

func cloneTask(t *task.Task) *task.Task {
	c := *t
	if t.ExtendedDate != nil {
		d := *t.ExtendedDate
		c.ExtendedDate = &d
	}
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		c.UpdatedAt = &u
	}
	return &c
}

func cloneEntry(e *task.HistoryEntry) *task.HistoryEntry {
	c := *e
	if e.NewDate != nil {
		d := *e.NewDate
		c.NewDate = &d
	}
	return &c
}
