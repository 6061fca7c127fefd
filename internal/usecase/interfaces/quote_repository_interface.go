package interfaces

import (
	"context"

	"quotes_service/internal/domain/entities"
)

// MutateFunc changes a quote in place. Returning an error aborts the write.
type MutateFunc func(q *entities.Quote) error

// IQuoteRepository abstracts quote persistence.
//
// Every write is atomic: a failed or conflicting call leaves the stored quote unchanged.
// Lookups return a zero Quote (empty Number) and a nil error when nothing matches.
type IQuoteRepository interface {
	// Create stores a numbered quote. A second Create with the same number fails with
	// entities.ErrConcurrencyConflict.
	Create(ctx context.Context, q entities.Quote) (entities.Quote, error)
	GetByNumber(ctx context.Context, number string) (entities.Quote, error)
	// Mutate loads the quote, applies fn to a copy, recalculates totals and saves it only
	// if nobody else wrote in between.
	Mutate(ctx context.Context, number string, fn MutateFunc) (entities.Quote, error)
	// FindMaxSequence returns the highest numeric part of any stored quote number, 0 if none.
	FindMaxSequence(ctx context.Context) (int64, error)
	List(ctx context.Context, filter entities.QuoteFilter) ([]entities.Quote, error)
}
