package credential

import "context"

// Cache stores recently read sets keyed by lowercase learner address.
type Cache interface {
	Get(ctx context.Context, address string) (Set, bool, error)
	Put(ctx context.Context, address string, set Set) error
	Invalidate(ctx context.Context, address string) error
}
