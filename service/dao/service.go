package dao

import "context"

// Service abstracts persistence of an entity type T keyed by K. Concrete
// implementations may be in-memory, filesystem or database backed; callers
// must not assume anything beyond this contract.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context) ([]*T, error)
}
