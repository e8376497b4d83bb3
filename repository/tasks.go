package repository

import (
	"context"

	"party-planner/domain"
	"party-planner/storage"
)

// TaskRepository manages the tasks collection. The stored order is always
// the active tasks followed by the completed ones.
type TaskRepository struct {
	c   collection[domain.Task]
	ids IDGenerator
}

func newTaskRepository(store Store, ids IDGenerator) *TaskRepository {
	return &TaskRepository{
		c: collection[domain.Task]{
			store:  store,
			key:    storage.KeyTasks,
			idOf:   func(t domain.Task) string { return t.ID },
			withID: func(t domain.Task, id string) domain.Task { t.ID = id; return t },
		},
		ids: ids,
	}
}

func (r *TaskRepository) List(ctx context.Context) ([]domain.Task, error) {
	return r.c.load(ctx)
}

// Add appends the draft to the end of its partition.
func (r *TaskRepository) Add(ctx context.Context, draft domain.Task) ([]domain.Task, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	tasks, err := r.c.load(ctx)
	if err != nil {
		return nil, err
	}
	draft.ID = r.ids()
	active, completed := partition(tasks)
	if draft.Completed {
		completed = append(completed, draft)
	} else {
		active = append(active, draft)
	}
	return r.c.save(ctx, append(active, completed...))
}

func (r *TaskRepository) Update(ctx context.Context, id string, patch domain.Task) ([]domain.Task, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	tasks, err := r.c.load(ctx)
	if err != nil {
		return nil, err
	}
	i := r.c.index(tasks, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	patch.ID = id
	tasks[i] = patch
	active, completed := partition(tasks)
	return r.c.save(ctx, append(active, completed...))
}

func (r *TaskRepository) Remove(ctx context.Context, id string) ([]domain.Task, error) {
	return r.c.remove(ctx, id)
}

// Toggle flips completion and moves the task to the end of the other
// partition.
func (r *TaskRepository) Toggle(ctx context.Context, id string) ([]domain.Task, error) {
	tasks, err := r.c.load(ctx)
	if err != nil {
		return nil, err
	}
	i := r.c.index(tasks, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	task := tasks[i]
	task.Completed = !task.Completed
	rest := append(append([]domain.Task{}, tasks[:i]...), tasks[i+1:]...)
	active, completed := partition(rest)
	if task.Completed {
		completed = append(completed, task)
	} else {
		active = append(active, task)
	}
	return r.c.save(ctx, append(active, completed...))
}

// Reorder arranges the active tasks in the order of ids. Unknown or
// completed ids are ignored; active tasks missing from ids keep their
// relative order after the listed ones.
func (r *TaskRepository) Reorder(ctx context.Context, ids []string) ([]domain.Task, error) {
	tasks, err := r.c.load(ctx)
	if err != nil {
		return nil, err
	}
	active, completed := partition(tasks)
	byID := make(map[string]domain.Task, len(active))
	for _, t := range active {
		byID[t.ID] = t
	}
	ordered := make([]domain.Task, 0, len(active))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
			delete(byID, id)
		}
	}
	for _, t := range active {
		if _, ok := byID[t.ID]; ok {
			ordered = append(ordered, t)
		}
	}
	return r.c.save(ctx, append(ordered, completed...))
}

func partition(tasks []domain.Task) (active, completed []domain.Task) {
	active = make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			active = append(active, t)
		}
	}
	return active, completed
}
