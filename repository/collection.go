package repository

import (
	"context"

	"party-planner/domain"
	"party-planner/storage"
)

// Store is the subset of *storage.Store the repositories rely on.
type Store interface {
	ReadOrEmpty(ctx context.Context, key storage.Key, dest any) (bool, error)
	Write(ctx context.Context, key storage.Key, value any) error
	WriteAll(ctx context.Context, docs map[storage.Key]any) error
	Delete(ctx context.Context, key storage.Key) error
	Clear(ctx context.Context) error
}

// collection implements read-modify-write of a whole JSON array.
type collection[T any] struct {
	store  Store
	key    storage.Key
	idOf   func(T) string
	withID func(T, string) T
}

func (c collection[T]) load(ctx context.Context) ([]T, error) {
	var items []T
	if _, err := c.store.ReadOrEmpty(ctx, c.key, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c collection[T]) save(ctx context.Context, items []T) ([]T, error) {
	if err := c.store.Write(ctx, c.key, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c collection[T]) add(ctx context.Context, id string, item T) ([]T, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return c.save(ctx, append(items, c.withID(item, id)))
}

// replace swaps the item with the given id for next(current). The id is
// kept. Unknown ids return domain.ErrNotFound without writing.
func (c collection[T]) replace(ctx context.Context, id string, next func(T) (T, error)) ([]T, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	i := c.index(items, id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	updated, err := next(items[i])
	if err != nil {
		return nil, err
	}
	items[i] = c.withID(updated, id)
	return c.save(ctx, items)
}

// remove drops the item with the given id. Removing an unknown id returns
// the collection unchanged and skips the write.
func (c collection[T]) remove(ctx context.Context, id string) ([]T, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if c.idOf(item) != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return items, nil
	}
	return c.save(ctx, kept)
}

func (c collection[T]) index(items []T, id string) int {
	for i, item := range items {
		if c.idOf(item) == id {
			return i
		}
	}
	return -1
}
