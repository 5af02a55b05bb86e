package quotes

import (
	"context"
)

// Store persists quotes. Every read method increments the access counter of
// the quotes it returns and reports the incremented value.
type Store interface {
	List(ctx context.Context, opts ListOptions) ([]Quote, error)
	Get(ctx context.Context, id int64) (Quote, error)
	Random(ctx context.Context) (Quote, error)
	Search(ctx context.Context, filter SearchFilter) ([]Quote, error)
	Insert(ctx context.Context, quote NewQuote) (Quote, error)
	// InsertMany stores all quotes in one transaction, or none of them.
	InsertMany(ctx context.Context, quotes []NewQuote) ([]Quote, error)
	Count(ctx context.Context) (int64, error)
}
