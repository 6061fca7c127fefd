package interfaces

import "context"

// ISequenceAllocator hands out quote sequence numbers.
//
// Next is atomic across every process sharing the backing store: two calls never return
// the same value and a call that returns after another started strictly later gets a
// larger value. Numbers may be skipped, never reused.
//
// Errors: entities.ErrRetryableAllocation when the store is temporarily unavailable,
// entities.ErrSequenceExhausted once the counter passes entities.MaxQuoteSequence.
type ISequenceAllocator interface {
	Next(ctx context.Context) (int64, error)
	// Seed raises the counter to at least floor. It never lowers it.
	Seed(ctx context.Context, floor int64) error
}
