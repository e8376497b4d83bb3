package repository

import (
	"context"
	"time"

	"party-planner/domain"
	"party-planner/invite"
	"party-planner/storage"
)

// InvitationRepository manages saved invitation texts.
type InvitationRepository struct {
	c   collection[domain.Invitation]
	ids IDGenerator
	loc *time.Location
}

func newInvitationRepository(store Store, ids IDGenerator, loc *time.Location) *InvitationRepository {
	return &InvitationRepository{
		c: collection[domain.Invitation]{
			store:  store,
			key:    storage.KeyInvitations,
			idOf:   func(i domain.Invitation) string { return i.ID },
			withID: func(i domain.Invitation, id string) domain.Invitation { i.ID = id; return i },
		},
		ids: ids,
		loc: loc,
	}
}

func (r *InvitationRepository) List(ctx context.Context) ([]domain.Invitation, error) {
	return r.c.load(ctx)
}

func (r *InvitationRepository) Get(ctx context.Context, id string) (domain.Invitation, error) {
	invitations, err := r.c.load(ctx)
	if err != nil {
		return domain.Invitation{}, err
	}
	if i := r.c.index(invitations, id); i >= 0 {
		return invitations[i], nil
	}
	return domain.Invitation{}, domain.ErrNotFound
}

func (r *InvitationRepository) Add(ctx context.Context, draft domain.Invitation) ([]domain.Invitation, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return r.c.add(ctx, r.ids(), draft)
}

// AddFromTemplate renders template index from info and saves the text.
func (r *InvitationRepository) AddFromTemplate(ctx context.Context, index int, info *domain.PartyInfo) ([]domain.Invitation, error) {
	text, err := invite.Render(index, info, r.loc)
	if err != nil {
		return nil, err
	}
	return r.Add(ctx, domain.Invitation{Text: text})
}

func (r *InvitationRepository) Update(ctx context.Context, id string, patch domain.Invitation) ([]domain.Invitation, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return r.c.replace(ctx, id, func(domain.Invitation) (domain.Invitation, error) { return patch, nil })
}

func (r *InvitationRepository) Remove(ctx context.Context, id string) ([]domain.Invitation, error) {
	return r.c.remove(ctx, id)
}
