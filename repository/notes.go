package repository

import (
	"context"

	"party-planner/domain"
	"party-planner/storage"
)

// NoteRepository manages free-form notes.
type NoteRepository struct {
	c   collection[domain.Note]
	ids IDGenerator
}

func newNoteRepository(store Store, ids IDGenerator) *NoteRepository {
	return &NoteRepository{
		c: collection[domain.Note]{
			store:  store,
			key:    storage.KeyNotes,
			idOf:   func(n domain.Note) string { return n.ID },
			withID: func(n domain.Note, id string) domain.Note { n.ID = id; return n },
		},
		ids: ids,
	}
}

func (r *NoteRepository) List(ctx context.Context) ([]domain.Note, error) {
	return r.c.load(ctx)
}

// Add stores a new note; text may be empty.
func (r *NoteRepository) Add(ctx context.Context, draft domain.Note) ([]domain.Note, error) {
	return r.c.add(ctx, r.ids(), draft)
}

func (r *NoteRepository) Update(ctx context.Context, id string, patch domain.Note) ([]domain.Note, error) {
	return r.c.replace(ctx, id, func(domain.Note) (domain.Note, error) { return patch, nil })
}

func (r *NoteRepository) Remove(ctx context.Context, id string) ([]domain.Note, error) {
	return r.c.remove(ctx, id)
}
