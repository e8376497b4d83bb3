package repository

import (
	"context"
	"sort"
	"strings"

	"party-planner/domain"
	"party-planner/storage"
)

// GuestRepository manages the guest list. Every collection it returns is
// sorted by last name, then first name, ignoring case.
type GuestRepository struct {
	c   collection[domain.Guest]
	ids IDGenerator
}

func newGuestRepository(store Store, ids IDGenerator) *GuestRepository {
	return &GuestRepository{
		c: collection[domain.Guest]{
			store:  store,
			key:    storage.KeyGuests,
			idOf:   func(g domain.Guest) string { return g.ID },
			withID: func(g domain.Guest, id string) domain.Guest { g.ID = id; return g },
		},
		ids: ids,
	}
}

func (r *GuestRepository) List(ctx context.Context) ([]domain.Guest, error) {
	return sorted(r.c.load(ctx))
}

// Get returns a single guest.
func (r *GuestRepository) Get(ctx context.Context, id string) (domain.Guest, error) {
	guests, err := r.c.load(ctx)
	if err != nil {
		return domain.Guest{}, err
	}
	if i := r.c.index(guests, id); i >= 0 {
		return guests[i], nil
	}
	return domain.Guest{}, domain.ErrNotFound
}

func (r *GuestRepository) Add(ctx context.Context, draft domain.Guest) ([]domain.Guest, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return sorted(r.c.add(ctx, r.ids(), draft))
}

func (r *GuestRepository) Update(ctx context.Context, id string, patch domain.Guest) ([]domain.Guest, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return sorted(r.c.replace(ctx, id, func(domain.Guest) (domain.Guest, error) { return patch, nil }))
}

func (r *GuestRepository) Remove(ctx context.Context, id string) ([]domain.Guest, error) {
	return sorted(r.c.remove(ctx, id))
}

func sorted(guests []domain.Guest, err error) ([]domain.Guest, error) {
	if err != nil {
		return nil, err
	}
	out := append([]domain.Guest(nil), guests...)
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].LastName), strings.ToLower(out[j].LastName)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(out[i].FirstName) < strings.ToLower(out[j].FirstName)
	})
	if out == nil {
		out = []domain.Guest{}
	}
	return out, nil
}
