package repository

import (
	"context"
	"fmt"
	"sync/atomic"

	"quotes_service/internal/domain/entities"
	"quotes_service/internal/usecase/interfaces"
)

// SequenceMemoryAllocator is a process-local counter. Only valid together with
// QuoteMemoryRepository.
type SequenceMemoryAllocator struct {
	value atomic.Int64
	max   int64
}

var _ interfaces.ISequenceAllocator = (*SequenceMemoryAllocator)(nil)

func NewSequenceMemoryAllocator() *SequenceMemoryAllocator {
	return &SequenceMemoryAllocator{max: entities.MaxQuoteSequence}
}

func (a *SequenceMemoryAllocator) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for {
		cur := a.value.Load()
		if cur >= a.max {
			return 0, fmt.Errorf("%w: counter at %d", entities.ErrSequenceExhausted, cur)
		}
		if a.value.CompareAndSwap(cur, cur+1) {
			return cur + 1, nil
		}
	}
}

func (a *SequenceMemoryAllocator) Seed(ctx context.Context, floor int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for {
		cur := a.value.Load()
		if cur >= floor {
			return nil
		}
		if a.value.CompareAndSwap(cur, floor) {
			return nil
		}
	}
}
