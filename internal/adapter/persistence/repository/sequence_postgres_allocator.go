package repository

import (
	"context"
	"errors"
	"fmt"

	"quotes_service/internal/domain/entities"
	"quotes_service/internal/usecase/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SequencePostgresAllocator increments a row of quote_counters in one statement. The row
// lock taken by the upsert serializes concurrent callers.
type SequencePostgresAllocator struct {
	pool *pgxpool.Pool
}

var _ interfaces.ISequenceAllocator = (*SequencePostgresAllocator)(nil)

func NewSequencePostgresAllocator(pool *pgxpool.Pool) *SequencePostgresAllocator {
	return &SequencePostgresAllocator{pool: pool}
}

func (a *SequencePostgresAllocator) Next(ctx context.Context) (int64, error) {
	var value int64
	err := a.pool.QueryRow(ctx, `INSERT INTO quote_counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = quote_counters.value + 1
		WHERE quote_counters.value < $2
		RETURNING value`, quoteSequenceCounter, entities.MaxQuoteSequence).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		// The WHERE clause suppressed the update: the counter is at the maximum.
		return 0, fmt.Errorf("%w: counter %s reached %d", entities.ErrSequenceExhausted, quoteSequenceCounter, entities.MaxQuoteSequence)
	}
	if err != nil {
		return 0, classifyPgAllocationError(err)
	}
	return value, nil
}

func (a *SequencePostgresAllocator) Seed(ctx context.Context, floor int64) error {
	_, err := a.pool.Exec(ctx, `INSERT INTO quote_counters (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = GREATEST(quote_counters.value, EXCLUDED.value)`,
		quoteSequenceCounter, floor)
	if err != nil {
		return classifyPgAllocationError(err)
	}
	return nil
}

func classifyPgAllocationError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03", "57P03", "53300":
			return fmt.Errorf("%w: %s", entities.ErrRetryableAllocation, pgErr.Message)
		}
		return err
	}
	// No server error means the request never got an answer: connection refused, reset
	// or pool exhausted.
	return fmt.Errorf("%w: %v", entities.ErrRetryableAllocation, err)
}
