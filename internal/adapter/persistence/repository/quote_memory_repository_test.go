package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"quotes_service/internal/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuote(t *testing.T, number string) entities.Quote {
	t.Helper()
	qty := decimal.RequireFromString("2.5")
	rate := decimal.RequireFromString("10.10")
	order := 0
	q, err := entities.NewQuote(entities.NewQuoteParams{
		ProjectRef:    "proj-1",
		LotRef:        "lot-7",
		ContractorRef: "contractor-1",
		LineItems:     []entities.LineItemInput{{Description: "Paint", Quantity: &qty, Rate: &rate, DisplayOrder: &order}},
	}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, q.AssignNumber(number))
	return q
}

func TestQuoteMemoryRepository_CreateAndGet(t *testing.T) {
	r := NewQuoteMemoryRepository()
	ctx := context.Background()

	created, err := r.Create(ctx, sampleQuote(t, "QT-0000001"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, "25.25", created.TotalAmount.StringFixed(2))

	_, err = r.Create(ctx, sampleQuote(t, "QT-0000001"))
	require.ErrorIs(t, err, entities.ErrConcurrencyConflict)

	got, err := r.GetByNumber(ctx, "QT-0000001")
	require.NoError(t, err)
	assert.Equal(t, created.Number, got.Number)

	missing, err := r.GetByNumber(ctx, "QT-0000999")
	require.NoError(t, err)
	assert.Empty(t, missing.Number)
}

func TestQuoteMemoryRepository_ReturnedQuotesAreCopies(t *testing.T) {
	r := NewQuoteMemoryRepository()
	ctx := context.Background()
	created, err := r.Create(ctx, sampleQuote(t, "QT-0000001"))
	require.NoError(t, err)

	created.LineItems[0].Description = "changed outside"
	got, err := r.GetByNumber(ctx, "QT-0000001")
	require.NoError(t, err)
	assert.Equal(t, "Paint", got.LineItems[0].Description)
}

func TestQuoteMemoryRepository_Mutate(t *testing.T) {
	r := NewQuoteMemoryRepository()
	ctx := context.Background()
	_, err := r.Create(ctx, sampleQuote(t, "QT-0000001"))
	require.NoError(t, err)

	t.Run("applies and recalculates", func(t *testing.T) {
		updated, err := r.Mutate(ctx, "QT-0000001", func(q *entities.Quote) error {
			q.LineItems[0].Quantity = decimal.RequireFromString("3")
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "30.30", updated.TotalAmount.StringFixed(2))
		assert.Equal(t, int64(2), updated.Version)
	})

	t.Run("fn error leaves stored quote untouched", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := r.Mutate(ctx, "QT-0000001", func(q *entities.Quote) error {
			q.Status = entities.QuoteStatusApproved
			return boom
		})
		require.ErrorIs(t, err, boom)
		got, _ := r.GetByNumber(ctx, "QT-0000001")
		assert.Equal(t, entities.QuoteStatusSubmitted, got.Status)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("invariant violation is rejected", func(t *testing.T) {
		_, err := r.Mutate(ctx, "QT-0000001", func(q *entities.Quote) error {
			q.LineItems = nil
			return nil
		})
		require.ErrorIs(t, err, entities.ErrInvalidQuoteData)
	})

	t.Run("missing quote", func(t *testing.T) {
		called := false
		got, err := r.Mutate(ctx, "QT-0000404", func(q *entities.Quote) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.Empty(t, got.Number)
		assert.False(t, called)
	})
}

func TestQuoteMemoryRepository_ListAndMaxSequence(t *testing.T) {
	r := NewQuoteMemoryRepository()
	ctx := context.Background()

	max, err := r.FindMaxSequence(ctx)
	require.NoError(t, err)
	assert.Zero(t, max)

	for _, n := range []string{"QT-0000003", "QT-0000010", "QT-0000007"} {
		_, err := r.Create(ctx, sampleQuote(t, n))
		require.NoError(t, err)
	}
	max, err = r.FindMaxSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), max)

	all, err := r.List(ctx, entities.QuoteFilter{ProjectRef: "proj-1"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := r.List(ctx, entities.QuoteFilter{Status: entities.QuoteStatusApproved})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSequenceMemoryAllocator(t *testing.T) {
	a := NewSequenceMemoryAllocator()
	ctx := context.Background()

	require.NoError(t, a.Seed(ctx, 5))
	v, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)

	require.NoError(t, a.Seed(ctx, 2))
	v, err = a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	require.NoError(t, a.Seed(ctx, entities.MaxQuoteSequence))
	_, err = a.Next(ctx)
	require.ErrorIs(t, err, entities.ErrSequenceExhausted)
}
