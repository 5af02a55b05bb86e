package importer

import (
	"context"
	"fmt"

	"github.com/platinummonkey/quotes/pkg/quotes"
)

// BatchInserter stores quotes atomically
type BatchInserter interface {
	InsertMany(ctx context.Context, batch []quotes.NewQuote) ([]quotes.Quote, error)
}

// Loader validates parsed quotes and stores them in one transaction
type Loader struct {
	store     BatchInserter
	validator *quotes.Validator
}

// NewLoader creates a loader writing to store
func NewLoader(store BatchInserter) *Loader {
	return &Loader{
		store:     store,
		validator: quotes.NewValidator(),
	}
}

// Load stores every quote or none. It returns the number stored.
func (l *Loader) Load(ctx context.Context, batch []quotes.NewQuote) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	for i, quote := range batch {
		if err := l.validator.ValidateQuote(quote); err != nil {
			return 0, fmt.Errorf("quote %d: %w", i+1, err)
		}
	}

	stored, err := l.store.InsertMany(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to store quotes: %w", err)
	}
	return len(stored), nil
}
