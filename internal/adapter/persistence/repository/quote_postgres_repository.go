package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quotes_service/internal/domain/entities"
	"quotes_service/internal/domain/money"
	"quotes_service/internal/usecase/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const quoteColumns = `quote_number, project_ref, lot_ref, category, contractor_ref, status, line_items,
	approved_by, approved_at, rejection_reason, customer_acknowledged_by, customer_acknowledged_at,
	version, created_at, updated_at`

type lineItemRow struct {
	ID           string          `json:"id"`
	Description  string          `json:"itemDescription"`
	Quantity     decimal.Decimal `json:"quantity"`
	Rate         decimal.Decimal `json:"rate"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
	DisplayOrder int             `json:"displayOrder"`
}

// QuotePostgresRepository persists quotes in Postgres. Line items live in a JSONB column
// of the quote row so a quote is always read and written as one unit.
type QuotePostgresRepository struct {
	pool *pgxpool.Pool
}

var _ interfaces.IQuoteRepository = (*QuotePostgresRepository)(nil)

func NewQuotePostgresRepository(pool *pgxpool.Pool) *QuotePostgresRepository {
	return &QuotePostgresRepository{pool: pool}
}

func (r *QuotePostgresRepository) Create(ctx context.Context, q entities.Quote) (entities.Quote, error) {
	q = q.Clone()
	q.RecalculateTotal()
	if err := q.CheckInvariants(); err != nil {
		return entities.Quote{}, err
	}
	q.Version = 1

	items, err := encodeLineItems(q.LineItems)
	if err != nil {
		return entities.Quote{}, err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO quotes (`+quoteColumns+`, sequence, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		q.Number, q.ProjectRef, q.LotRef, q.Category, q.ContractorRef, string(q.Status), items,
		q.ApprovedBy, q.ApprovedAt, q.RejectionReason, q.CustomerAcknowledgedBy, q.CustomerAcknowledgedAt,
		q.Version, q.CreatedAt, q.UpdatedAt, q.Sequence(), money.Format(q.TotalAmount),
	)
	if err != nil {
		return entities.Quote{}, classifyPgWriteError(err, q.Number)
	}
	return q, nil
}

func (r *QuotePostgresRepository) GetByNumber(ctx context.Context, number string) (entities.Quote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE quote_number = $1`, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.Quote{}, nil
	}
	return q, err
}

// Mutate holds a row lock for the duration of fn, so concurrent transitions on the same
// quote are serialized and the second one sees the first one's result.
func (r *QuotePostgresRepository) Mutate(ctx context.Context, number string, fn interfaces.MutateFunc) (entities.Quote, error) {
	var result entities.Quote
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		stored, err := scanQuote(tx.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE quote_number = $1 FOR UPDATE`, number))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		working := stored.Clone()
		if err := fn(&working); err != nil {
			return err
		}
		working.RecalculateTotal()
		if err := working.CheckInvariants(); err != nil {
			return err
		}
		working.Number = stored.Number
		working.Version = stored.Version + 1

		items, err := encodeLineItems(working.LineItems)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE quotes SET
				category = $2, status = $3, line_items = $4, total_amount = $5,
				approved_by = $6, approved_at = $7, rejection_reason = $8,
				customer_acknowledged_by = $9, customer_acknowledged_at = $10,
				version = $11, updated_at = $12
			WHERE quote_number = $1 AND version = $13`,
			working.Number, working.Category, string(working.Status), items, money.Format(working.TotalAmount),
			working.ApprovedBy, working.ApprovedAt, working.RejectionReason,
			working.CustomerAcknowledgedBy, working.CustomerAcknowledgedAt,
			working.Version, working.UpdatedAt, stored.Version,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return fmt.Errorf("%w: quote %s changed underneath the row lock", entities.ErrConcurrencyConflict, number)
		}
		result = working
		return nil
	})
	if err != nil {
		return entities.Quote{}, classifyPgWriteError(err, number)
	}
	return result, nil
}

func (r *QuotePostgresRepository) FindMaxSequence(ctx context.Context) (int64, error) {
	var max int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM quotes`).Scan(&max)
	return max, err
}

func (r *QuotePostgresRepository) List(ctx context.Context, filter entities.QuoteFilter) ([]entities.Quote, error) {
	var (
		where []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("project_ref", filter.ProjectRef)
	add("lot_ref", filter.LotRef)
	add("contractor_ref", filter.ContractorRef)
	add("status", string(filter.Status))

	sql := `SELECT ` + quoteColumns + ` FROM quotes`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY sequence`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entities.Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanQuote(row pgx.Row) (entities.Quote, error) {
	var (
		q       entities.Quote
		status  string
		rawJSON []byte
	)
	err := row.Scan(
		&q.Number, &q.ProjectRef, &q.LotRef, &q.Category, &q.ContractorRef, &status, &rawJSON,
		&q.ApprovedBy, &q.ApprovedAt, &q.RejectionReason, &q.CustomerAcknowledgedBy, &q.CustomerAcknowledgedAt,
		&q.Version, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return entities.Quote{}, err
	}
	q.Status = entities.QuoteStatus(status)
	q.CreatedAt = q.CreatedAt.UTC()
	q.UpdatedAt = q.UpdatedAt.UTC()
	q.ApprovedAt = utcPtr(q.ApprovedAt)
	q.CustomerAcknowledgedAt = utcPtr(q.CustomerAcknowledgedAt)

	if q.LineItems, err = decodeLineItems(rawJSON); err != nil {
		return entities.Quote{}, fmt.Errorf("quote %s line items: %w", q.Number, err)
	}
	q.RecalculateTotal()
	return q, nil
}

func encodeLineItems(items []entities.LineItem) (string, error) {
	rows := make([]lineItemRow, 0, len(items))
	for _, li := range items {
		rows = append(rows, lineItemRow{
			ID:           li.ID,
			Description:  li.Description,
			Quantity:     li.Quantity,
			Rate:         li.Rate,
			LineTotal:    li.LineTotal,
			DisplayOrder: li.DisplayOrder,
		})
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeLineItems(raw []byte) ([]entities.LineItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []lineItemRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	items := make([]entities.LineItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, entities.LineItem{
			ID:           r.ID,
			Description:  r.Description,
			Quantity:     r.Quantity,
			Rate:         r.Rate,
			LineTotal:    r.LineTotal,
			DisplayOrder: r.DisplayOrder,
		})
	}
	return items, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// classifyPgWriteError maps unique violations and lock/serialization failures onto
// ErrConcurrencyConflict. Domain errors from the mutation pass through untouched.
func classifyPgWriteError(err error, number string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return fmt.Errorf("%w: quote %s already exists", entities.ErrConcurrencyConflict, number)
	case "40001", "40P01", "55P03":
		return fmt.Errorf("%w: quote %s: %s", entities.ErrConcurrencyConflict, number, pgErr.Message)
	}
	return err
}
