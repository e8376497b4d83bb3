package repository

import (
	"context"

	"party-planner/domain"
	"party-planner/storage"
)

// PartyInfoRepository owns the single party_info document.
type PartyInfoRepository struct {
	store Store
}

// Get returns the saved party info, or nil when none has been saved.
func (r *PartyInfoRepository) Get(ctx context.Context) (*domain.PartyInfo, error) {
	var info domain.PartyInfo
	found, err := r.store.ReadOrEmpty(ctx, storage.KeyPartyInfo, &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

// Prepare trims and validates info without writing it.
func (r *PartyInfoRepository) Prepare(info domain.PartyInfo) (domain.PartyInfo, error) {
	info.Normalize()
	if err := info.Validate(); err != nil {
		return domain.PartyInfo{}, err
	}
	return info, nil
}

// Save validates and stores info on its own. Use feed.Builder.SavePartyInfo
// to carry a date change over to events.
func (r *PartyInfoRepository) Save(ctx context.Context, info domain.PartyInfo) (*domain.PartyInfo, error) {
	info, err := r.Prepare(info)
	if err != nil {
		return nil, err
	}
	if err := r.store.Write(ctx, storage.KeyPartyInfo, info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *PartyInfoRepository) Clear(ctx context.Context) error {
	return r.store.Delete(ctx, storage.KeyPartyInfo)
}
