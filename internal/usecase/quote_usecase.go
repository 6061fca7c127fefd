package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"quotes_service/internal/domain/entities"
	"quotes_service/internal/domain/lifecycle"
	"quotes_service/internal/domain/policy"
	"quotes_service/internal/infrastructure/logger"
	"quotes_service/internal/usecase/interfaces"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultAllocationMaxAttempts     uint = 5
	defaultAllocationInitialInterval      = 50 * time.Millisecond
)

// CreateQuoteCommand is the input of CreateQuote and CreateDraftQuote.
// ContractorRef is taken from the caller on CreateQuote; the administrative draft path
// requires it explicitly.
type CreateQuoteCommand struct {
	ProjectRef    string
	LotRef        string
	Category      string
	ContractorRef string
	LineItems     []entities.LineItemInput
}

// UpdateQuoteCommand edits a draft. A nil field keeps the stored value; a non-nil empty
// LineItems clears every line item.
type UpdateQuoteCommand struct {
	Category  *string
	LineItems []entities.LineItemInput
}

// IQuoteUseCase exposes the quote workflow.
//
//   - contractors create (SUBMITTED), edit drafts and submit them
//   - owners create drafts on behalf of a contractor, approve and reject
//   - customers acknowledge approved quotes
//
// Every write is a single atomic repository call.
type IQuoteUseCase interface {
	CreateQuote(ctx context.Context, p policy.Principal, cmd CreateQuoteCommand) (entities.Quote, error)
	CreateDraftQuote(ctx context.Context, p policy.Principal, cmd CreateQuoteCommand) (entities.Quote, error)
	UpdateQuote(ctx context.Context, p policy.Principal, number string, cmd UpdateQuoteCommand) (entities.Quote, error)
	SubmitQuote(ctx context.Context, p policy.Principal, number string) (entities.Quote, error)
	ApproveQuote(ctx context.Context, p policy.Principal, number string) (entities.Quote, error)
	RejectQuote(ctx context.Context, p policy.Principal, number, reason string) (entities.Quote, error)
	AcknowledgeQuote(ctx context.Context, p policy.Principal, number string) (entities.Quote, error)

	GetByNumber(ctx context.Context, p policy.Principal, number string) (entities.Quote, error)
	ListByProject(ctx context.Context, p policy.Principal, projectRef string) ([]entities.Quote, error)
	ListByLot(ctx context.Context, p policy.Principal, lotRef string) ([]entities.Quote, error)
	ListByContractor(ctx context.Context, p policy.Principal, contractorRef string) ([]entities.Quote, error)
	ListByStatus(ctx context.Context, p policy.Principal, status string) ([]entities.Quote, error)
	ListSubmitted(ctx context.Context, p policy.Principal) ([]entities.Quote, error)
	ListSubmittedByProject(ctx context.Context, p policy.Principal, projectRef string) ([]entities.Quote, error)
	ListAll(ctx context.Context, p policy.Principal) ([]entities.Quote, error)
}

type QuoteUseCase struct {
	repo interfaces.IQuoteRepository
	seq  interfaces.ISequenceAllocator
	log  *logger.Logger
	now  func() time.Time

	allocMaxAttempts     uint
	allocInitialInterval time.Duration
}

var _ IQuoteUseCase = (*QuoteUseCase)(nil)

type Option func(*QuoteUseCase)

func WithLogger(l *logger.Logger) Option {
	return func(u *QuoteUseCase) {
		if l != nil {
			u.log = l
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(u *QuoteUseCase) {
		if now != nil {
			u.now = now
		}
	}
}

// WithAllocationRetry bounds how often a retryable allocation failure is retried.
func WithAllocationRetry(maxAttempts uint, initialInterval time.Duration) Option {
	return func(u *QuoteUseCase) {
		if maxAttempts > 0 {
			u.allocMaxAttempts = maxAttempts
		}
		if initialInterval > 0 {
			u.allocInitialInterval = initialInterval
		}
	}
}

func NewQuoteUseCase(repo interfaces.IQuoteRepository, seq interfaces.ISequenceAllocator, opts ...Option) *QuoteUseCase {
	u := &QuoteUseCase{
		repo:                 repo,
		seq:                  seq,
		log:                  logger.Nop(),
		now:                  time.Now,
		allocMaxAttempts:     defaultAllocationMaxAttempts,
		allocInitialInterval: defaultAllocationInitialInterval,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *QuoteUseCase) CreateQuote(ctx context.Context, p policy.Principal, cmd CreateQuoteCommand) (entities.Quote, error) {
	if err := policy.Authorize(policy.ActionCreate, p, nil); err != nil {
		return entities.Quote{}, err
	}
	if ref := strings.TrimSpace(cmd.ContractorRef); ref != "" && ref != p.ID {
		return entities.Quote{}, fmt.Errorf("%w: contractors create quotes only for themselves", entities.ErrUnauthorized)
	}
	cmd.ContractorRef = p.ID
	return u.create(ctx, p, cmd, entities.QuoteStatusSubmitted)
}

func (u *QuoteUseCase) CreateDraftQuote(ctx context.Context, p policy.Principal, cmd CreateQuoteCommand) (entities.Quote, error) {
	if err := policy.Authorize(policy.ActionCreateDraft, p, nil); err != nil {
		return entities.Quote{}, err
	}
	return u.create(ctx, p, cmd, entities.QuoteStatusDraft)
}

// create validates everything before a number is allocated so rejected input never
// consumes a sequence value.
func (u *QuoteUseCase) create(ctx context.Context, p policy.Principal, cmd CreateQuoteCommand, status entities.QuoteStatus) (entities.Quote, error) {
	q, err := entities.NewQuote(entities.NewQuoteParams{
		ProjectRef:    cmd.ProjectRef,
		LotRef:        cmd.LotRef,
		Category:      cmd.Category,
		ContractorRef: cmd.ContractorRef,
		Status:        status,
		LineItems:     cmd.LineItems,
	}, u.now())
	if err != nil {
		return entities.Quote{}, err
	}

	seq, err := u.allocate(ctx)
	if err != nil {
		u.log.Error("quote number allocation failed", "actor", p.ID, "error", err)
		return entities.Quote{}, err
	}
	number, err := entities.FormatQuoteNumber(seq)
	if err != nil {
		u.log.Error("quote number out of range", "sequence", seq, "error", err)
		return entities.Quote{}, err
	}
	if err := q.AssignNumber(number); err != nil {
		return entities.Quote{}, err
	}

	created, err := u.repo.Create(ctx, q)
	if err != nil {
		// The number is burnt; gaps are acceptable, duplicates are not.
		u.log.Error("quote create failed", "quote_number", number, "actor", p.ID, "error", err)
		return entities.Quote{}, err
	}
	u.log.Info("quote created", "quote_number", created.Number, "status", created.Status, "actor", p.ID, "total", created.TotalAmount.StringFixed(2))
	return created, nil
}

// allocate claims the next sequence value, retrying transient failures with exponential
// backoff. Exhaustion and unknown errors are returned at once.
func (u *QuoteUseCase) allocate(ctx context.Context) (int64, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.allocInitialInterval

	attempt := 0
	return backoff.Retry(ctx, func() (int64, error) {
		attempt++
		seq, err := u.seq.Next(ctx)
		if err == nil {
			return seq, nil
		}
		if errors.Is(err, entities.ErrRetryableAllocation) {
			u.log.Warn("quote number allocation retry", "attempt", attempt, "error", err)
			return 0, err
		}
		return 0, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(u.allocMaxAttempts))
}

func (u *QuoteUseCase) UpdateQuote(ctx context.Context, p policy.Principal, number string, cmd UpdateQuoteCommand) (entities.Quote, error) {
	return u.mutate(ctx, p, number, policy.ActionUpdate, func(q *entities.Quote, now time.Time) error {
		if err := lifecycle.RequireEditable(q); err != nil {
			return err
		}
		if cmd.LineItems != nil {
			if err := q.ReplaceLineItems(cmd.LineItems, now); err != nil {
				return err
			}
		}
		if cmd.Category != nil {
			q.SetCategory(*cmd.Category, now)
		}
		q.TouchUpdatedAt(now)
		return nil
	})
}

func (u *QuoteUseCase) SubmitQuote(ctx context.Context, p policy.Principal, number string) (entities.Quote, error) {
	return u.mutate(ctx, p, number, policy.ActionSubmit, func(q *entities.Quote, now time.Time) error {
		return lifecycle.SubmitQuote(q, now)
	})
}

func (u *QuoteUseCase) ApproveQuote(ctx context.Context, p policy.Principal, number string) (entities.Quote, error) {
	q, err := u.mutate(ctx, p, number, policy.ActionApprove, func(q *entities.Quote, now time.Time) error {
		return lifecycle.ApproveQuote(q, p.ID, now)
	})
	if err != nil {
		return entities.Quote{}, err
	}
	// Notification dispatch is owned by another service; it consumes this event.
	u.log.Info("quote approval recorded", "event", "quote.approved", "quote_number", q.Number, "contractor", q.ContractorRef, "project", q.ProjectRef)
	return q, nil
}

func (u *QuoteUseCase) RejectQuote(ctx context.Context, p policy.Principal, number, reason string) (entities.Quote, error) {
	if err := lifecycle.ValidateRejectionReason(reason); err != nil {
		return entities.Quote{}, err
	}
	return u.mutate(ctx, p, number, policy.ActionReject, func(q *entities.Quote, now time.Time) error {
		return lifecycle.RejectQuote(q, reason, p.ID, now)
	})
}

func (u *QuoteUseCase) AcknowledgeQuote(ctx context.Context, p policy.Principal, number string) (entities.Quote, error) {
	return u.mutate(ctx, p, number, policy.ActionAcknowledge, func(q *entities.Quote, now time.Time) error {
		return lifecycle.AcknowledgeQuote(q, p.ID, now)
	})
}

// mutate runs authorization and the change inside the repository's atomic boundary, so
// the decision is made against the same state that gets written.
func (u *QuoteUseCase) mutate(ctx context.Context, p policy.Principal, number string, action policy.Action, fn func(q *entities.Quote, now time.Time) error) (entities.Quote, error) {
	number = strings.TrimSpace(number)
	if !entities.IsQuoteNumber(number) {
		return entities.Quote{}, fmt.Errorf("%w: %q", entities.ErrQuoteNotFound, number)
	}
	now := u.now()

	updated, err := u.repo.Mutate(ctx, number, func(q *entities.Quote) error {
		if err := policy.Authorize(action, p, q); err != nil {
			return err
		}
		return fn(q, now)
	})
	if err != nil {
		u.log.Warn("quote "+string(action)+" failed", "quote_number", number, "actor", p.ID, "error", err)
		return entities.Quote{}, err
	}
	if updated.Number == "" {
		return entities.Quote{}, fmt.Errorf("%w: %s", entities.ErrQuoteNotFound, number)
	}
	u.log.Info("quote "+string(action), "quote_number", updated.Number, "status", updated.Status, "actor", p.ID)
	return updated, nil
}

func (u *QuoteUseCase) GetByNumber(ctx context.Context, p policy.Principal, number string) (entities.Quote, error) {
	number = strings.TrimSpace(number)
	if !entities.IsQuoteNumber(number) {
		return entities.Quote{}, fmt.Errorf("%w: %q", entities.ErrQuoteNotFound, number)
	}

	q, err := u.repo.GetByNumber(ctx, number)
	if err != nil {
		return entities.Quote{}, err
	}
	if q.Number == "" {
		return entities.Quote{}, fmt.Errorf("%w: %s", entities.ErrQuoteNotFound, number)
	}
	if err := policy.Authorize(policy.ActionView, p, &q); err != nil {
		return entities.Quote{}, err
	}
	q.RecalculateTotal()
	return q, nil
}

func (u *QuoteUseCase) ListByProject(ctx context.Context, p policy.Principal, projectRef string) ([]entities.Quote, error) {
	projectRef, err := requireRef("projectRef", projectRef)
	if err != nil {
		return nil, err
	}
	return u.list(ctx, p, entities.QuoteFilter{ProjectRef: projectRef}, byNumber)
}

func (u *QuoteUseCase) ListByLot(ctx context.Context, p policy.Principal, lotRef string) ([]entities.Quote, error) {
	lotRef, err := requireRef("lotRef", lotRef)
	if err != nil {
		return nil, err
	}
	return u.list(ctx, p, entities.QuoteFilter{LotRef: lotRef}, byNumber)
}

func (u *QuoteUseCase) ListByContractor(ctx context.Context, p policy.Principal, contractorRef string) ([]entities.Quote, error) {
	contractorRef, err := requireRef("contractorRef", contractorRef)
	if err != nil {
		return nil, err
	}
	if err := policy.CanListContractor(p, contractorRef); err != nil {
		return nil, err
	}
	return u.list(ctx, p, entities.QuoteFilter{ContractorRef: contractorRef}, byNumber)
}

func (u *QuoteUseCase) ListByStatus(ctx context.Context, p policy.Principal, status string) ([]entities.Quote, error) {
	st, ok := entities.ParseQuoteStatus(status)
	if !ok {
		return nil, entities.NewValidationError(entities.FieldViolation{Field: "status", Message: fmt.Sprintf("unknown status %q", status)})
	}
	return u.list(ctx, p, entities.QuoteFilter{Status: st}, byNumber)
}

// ListSubmitted is the owner's review queue.
func (u *QuoteUseCase) ListSubmitted(ctx context.Context, p policy.Principal) ([]entities.Quote, error) {
	if err := policy.Authorize(policy.ActionListAll, p, nil); err != nil {
		return nil, err
	}
	return u.list(ctx, p, entities.QuoteFilter{Status: entities.QuoteStatusSubmitted}, byNumber)
}

func (u *QuoteUseCase) ListSubmittedByProject(ctx context.Context, p policy.Principal, projectRef string) ([]entities.Quote, error) {
	if err := policy.Authorize(policy.ActionListAll, p, nil); err != nil {
		return nil, err
	}
	projectRef, err := requireRef("projectRef", projectRef)
	if err != nil {
		return nil, err
	}
	return u.list(ctx, p, entities.QuoteFilter{ProjectRef: projectRef, Status: entities.QuoteStatusSubmitted}, byNumber)
}

func (u *QuoteUseCase) ListAll(ctx context.Context, p policy.Principal) ([]entities.Quote, error) {
	if err := policy.Authorize(policy.ActionListAll, p, nil); err != nil {
		return nil, err
	}
	return u.list(ctx, p, entities.QuoteFilter{}, byNewest)
}

func (u *QuoteUseCase) list(ctx context.Context, p policy.Principal, filter entities.QuoteFilter, less func(a, b entities.Quote) bool) ([]entities.Quote, error) {
	if !p.Authenticated() {
		return nil, fmt.Errorf("%w: caller is not authenticated", entities.ErrUnauthorized)
	}
	quotes, err := u.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	visible := policy.FilterVisible(p, quotes)
	for i := range visible {
		visible[i].RecalculateTotal()
	}
	sort.SliceStable(visible, func(i, j int) bool { return less(visible[i], visible[j]) })
	return visible, nil
}

func byNumber(a, b entities.Quote) bool {
	return a.Number < b.Number
}

func byNewest(a, b entities.Quote) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Number > b.Number
}

func requireRef(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", entities.NewValidationError(entities.FieldViolation{Field: field, Message: "is required"})
	}
	return v, nil
}
