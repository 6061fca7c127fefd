package repository

import (
	"context"
	"fmt"
	"sync"

	"quotes_service/internal/domain/entities"
	"quotes_service/internal/usecase/interfaces"
)

// QuoteMemoryRepository keeps quotes in process memory. It backs STORAGE_DRIVER=memory
// and the tests; it is not shared between replicas.
type QuoteMemoryRepository struct {
	mu     sync.RWMutex
	quotes map[string]entities.Quote
}

var _ interfaces.IQuoteRepository = (*QuoteMemoryRepository)(nil)

func NewQuoteMemoryRepository() *QuoteMemoryRepository {
	return &QuoteMemoryRepository{quotes: make(map[string]entities.Quote)}
}

func (r *QuoteMemoryRepository) Create(ctx context.Context, q entities.Quote) (entities.Quote, error) {
	if err := ctx.Err(); err != nil {
		return entities.Quote{}, err
	}
	q = q.Clone()
	q.RecalculateTotal()
	if err := q.CheckInvariants(); err != nil {
		return entities.Quote{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.quotes[q.Number]; exists {
		return entities.Quote{}, fmt.Errorf("%w: quote %s already exists", entities.ErrConcurrencyConflict, q.Number)
	}
	q.Version = 1
	r.quotes[q.Number] = q
	return q.Clone(), nil
}

func (r *QuoteMemoryRepository) GetByNumber(ctx context.Context, number string) (entities.Quote, error) {
	if err := ctx.Err(); err != nil {
		return entities.Quote{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quotes[number]
	if !ok {
		return entities.Quote{}, nil
	}
	return q.Clone(), nil
}

func (r *QuoteMemoryRepository) Mutate(ctx context.Context, number string, fn interfaces.MutateFunc) (entities.Quote, error) {
	if err := ctx.Err(); err != nil {
		return entities.Quote{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.quotes[number]
	if !ok {
		return entities.Quote{}, nil
	}
	working := stored.Clone()
	if err := fn(&working); err != nil {
		return entities.Quote{}, err
	}
	working.RecalculateTotal()
	if err := working.CheckInvariants(); err != nil {
		return entities.Quote{}, err
	}
	working.Number = stored.Number
	working.Version = stored.Version + 1
	r.quotes[number] = working
	return working.Clone(), nil
}

func (r *QuoteMemoryRepository) FindMaxSequence(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var max int64
	for _, q := range r.quotes {
		if seq := q.Sequence(); seq > max {
			max = seq
		}
	}
	return max, nil
}

func (r *QuoteMemoryRepository) List(ctx context.Context, filter entities.QuoteFilter) ([]entities.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.Quote, 0)
	for _, q := range r.quotes {
		if filter.Matches(q) {
			out = append(out, q.Clone())
		}
	}
	return out, nil
}
