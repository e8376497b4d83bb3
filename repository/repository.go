package repository

import (
	"context"
	"time"
)

// Repositories groups the typed collection repositories over one store.
type Repositories struct {
	Party       *PartyInfoRepository
	Events      *EventRepository
	Tasks       *TaskRepository
	Guests      *GuestRepository
	Invitations *InvitationRepository
	Shopping    *ShoppingRepository
	Notes       *NoteRepository

	store Store
}

type options struct {
	ids IDGenerator
	loc *time.Location
}

// Option configures the repositories.
type Option func(*options)

func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithLocation sets the zone used for rendering dates into text.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func New(store Store, opts ...Option) *Repositories {
	o := options{ids: UUIDs(), loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repositories{
		Party:       &PartyInfoRepository{store: store},
		Events:      newEventRepository(store, o.ids),
		Tasks:       newTaskRepository(store, o.ids),
		Guests:      newGuestRepository(store, o.ids),
		Invitations: newInvitationRepository(store, o.ids, o.loc),
		Shopping:    newShoppingRepository(store, o.ids),
		Notes:       newNoteRepository(store, o.ids),
		store:       store,
	}
}

// Store returns the underlying store, for composed writes.
func (r *Repositories) Store() Store { return r.store }

// Reset wipes every collection. It is the danger-zone reset and cannot be
// undone.
func (r *Repositories) Reset(ctx context.Context) error {
	return r.store.Clear(ctx)
}
