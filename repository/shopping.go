package repository

import (
	"context"

	"party-planner/domain"
	"party-planner/storage"
)

// ShoppingRepository manages the shopping list. Totals are recomputed here
// on every write; totals supplied by callers are ignored.
type ShoppingRepository struct {
	c   collection[domain.ShoppingItem]
	ids IDGenerator
}

func newShoppingRepository(store Store, ids IDGenerator) *ShoppingRepository {
	return &ShoppingRepository{
		c: collection[domain.ShoppingItem]{
			store:  store,
			key:    storage.KeyShoppingList,
			idOf:   func(s domain.ShoppingItem) string { return s.ID },
			withID: func(s domain.ShoppingItem, id string) domain.ShoppingItem { s.ID = id; return s },
		},
		ids: ids,
	}
}

func (r *ShoppingRepository) List(ctx context.Context) ([]domain.ShoppingItem, error) {
	return r.c.load(ctx)
}

func (r *ShoppingRepository) Add(ctx context.Context, draft domain.ShoppingItem) ([]domain.ShoppingItem, error) {
	if err := prepareItem(&draft); err != nil {
		return nil, err
	}
	return r.c.add(ctx, r.ids(), draft)
}

func (r *ShoppingRepository) Update(ctx context.Context, id string, patch domain.ShoppingItem) ([]domain.ShoppingItem, error) {
	if err := prepareItem(&patch); err != nil {
		return nil, err
	}
	return r.c.replace(ctx, id, func(domain.ShoppingItem) (domain.ShoppingItem, error) { return patch, nil })
}

func (r *ShoppingRepository) Remove(ctx context.Context, id string) ([]domain.ShoppingItem, error) {
	return r.c.remove(ctx, id)
}

// Toggle flips the purchased flag.
func (r *ShoppingRepository) Toggle(ctx context.Context, id string) ([]domain.ShoppingItem, error) {
	return r.c.replace(ctx, id, func(item domain.ShoppingItem) (domain.ShoppingItem, error) {
		item.Completed = !item.Completed
		item.Recompute()
		return item, nil
	})
}

// Totals sums the item totals of the list.
func Totals(items []domain.ShoppingItem) float64 {
	var sum float64
	for _, item := range items {
		sum += item.Total
	}
	return sum
}

func prepareItem(item *domain.ShoppingItem) error {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return err
	}
	item.Recompute()
	return nil
}
