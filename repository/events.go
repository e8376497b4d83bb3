package repository

import (
	"context"

	"party-planner/domain"
	"party-planner/storage"
)

// EventRepository manages the events collection.
type EventRepository struct {
	c   collection[domain.Event]
	ids IDGenerator
}

func newEventRepository(store Store, ids IDGenerator) *EventRepository {
	return &EventRepository{
		c: collection[domain.Event]{
			store:  store,
			key:    storage.KeyEvents,
			idOf:   func(e domain.Event) string { return e.ID },
			withID: func(e domain.Event, id string) domain.Event { e.ID = id; return e },
		},
		ids: ids,
	}
}

func (r *EventRepository) List(ctx context.Context) ([]domain.Event, error) {
	return r.c.load(ctx)
}

func (r *EventRepository) Add(ctx context.Context, draft domain.Event) ([]domain.Event, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return r.c.add(ctx, r.ids(), draft)
}

func (r *EventRepository) Update(ctx context.Context, id string, patch domain.Event) ([]domain.Event, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return r.c.replace(ctx, id, func(domain.Event) (domain.Event, error) { return patch, nil })
}

func (r *EventRepository) Remove(ctx context.Context, id string) ([]domain.Event, error) {
	return r.c.remove(ctx, id)
}

// ReplaceAll overwrites the whole collection.
func (r *EventRepository) ReplaceAll(ctx context.Context, events []domain.Event) ([]domain.Event, error) {
	if events == nil {
		events = []domain.Event{}
	}
	return r.c.save(ctx, events)
}
