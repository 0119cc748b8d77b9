// Package taskstore holds the registry of download tasks behind an explicit
// CRUD interface. The in-memory implementation is the single-process
// reference; a networked store can replace it without touching handlers.
package taskstore

import (
	"sort"
	"sync"

	"github.com/vidpull/vidpull/internal/model"
)

// Store is the task registry contract used by the API layer. Implementations
// must be safe for concurrent use. Get and List return copies; mutation goes
// through Update so the store controls its own consistency.
type Store interface {
	Create(task *model.DownloadTask)
	Get(id string) (*model.DownloadTask, bool)
	List() []*model.DownloadTask
	Update(id string, mutate func(task *model.DownloadTask)) bool
	Delete(id string) bool
	DeleteFinished() int
}

// MemoryStore is a mutex-guarded map of tasks.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*model.DownloadTask
}

// NewMemoryStore creates an empty in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*model.DownloadTask)}
}

// Create registers a task. An existing task with the same ID is replaced.
func (s *MemoryStore) Create(task *model.DownloadTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task.Clone()
}

// Get returns a copy of the task.
func (s *MemoryStore) Get(id string) (*model.DownloadTask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return task.Clone(), true
}

// List returns copies of all tasks, newest first.
func (s *MemoryStore) List() []*model.DownloadTask {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*model.DownloadTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

// Update applies mutate to the task under the store lock. Returns false if
// the task does not exist.
func (s *MemoryStore) Update(id string, mutate func(task *model.DownloadTask)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return false
	}
	mutate(task)
	return true
}

// Delete removes a task. Returns false if it does not exist.
func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	return true
}

// DeleteFinished removes all tasks in a terminal state and returns the count.
func (s *MemoryStore) DeleteFinished() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, task := range s.tasks {
		if task.Status.IsFinished() {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}
