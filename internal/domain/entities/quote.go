package entities

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"quotes_service/internal/domain/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus is the lifecycle position of a quote.
//
//	DRAFT -> SUBMITTED -> APPROVED | REJECTED
//
// APPROVED and REJECTED are terminal. DRAFT is only produced by the administrative
// creation path; quotes created by contractors start SUBMITTED.
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "DRAFT"
	QuoteStatusSubmitted QuoteStatus = "SUBMITTED"
	QuoteStatusApproved  QuoteStatus = "APPROVED"
	QuoteStatusRejected  QuoteStatus = "REJECTED"
)

func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSubmitted, QuoteStatusApproved, QuoteStatusRejected:
		return true
	}
	return false
}

func (s QuoteStatus) Terminal() bool {
	return s == QuoteStatusApproved || s == QuoteStatusRejected
}

// ParseQuoteStatus accepts any casing.
func ParseQuoteStatus(s string) (QuoteStatus, bool) {
	st := QuoteStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Line item limits. With them every line total stays below 10^16 and a full quote total
// below 10^18, which fits NUMERIC(20,2) and keeps a stored quote well under DynamoDB's
// item size limit.
const (
	MaxLineItems             = 100
	MaxDescriptionLength     = 500
	MaxQuantityIntegerDigits = 6
	MaxRateIntegerDigits     = 10
	MaxAmountPlaces          = 6
)

// LineItem is owned by its quote and has no lifecycle of its own.
type LineItem struct {
	ID           string
	Description  string
	Quantity     decimal.Decimal
	Rate         decimal.Decimal
	LineTotal    decimal.Decimal
	DisplayOrder int
}

// LineItemInput is caller-supplied line data. Nil pointers mean "missing".
type LineItemInput struct {
	Description  string
	Quantity     *decimal.Decimal
	Rate         *decimal.Decimal
	DisplayOrder *int
}

// Quote is the aggregate root. TotalAmount and LineTotal are derived and must only be
// changed through RecalculateTotal.
type Quote struct {
	Number        string
	ProjectRef    string
	LotRef        string
	Category      string
	ContractorRef string
	Status        QuoteStatus
	LineItems     []LineItem
	TotalAmount   decimal.Decimal

	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectionReason string

	CustomerAcknowledgedBy string
	CustomerAcknowledgedAt *time.Time

	// Version increases on every persisted mutation; storage uses it for compare-and-set.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewQuoteParams is the input of NewQuote.
type NewQuoteParams struct {
	ProjectRef    string
	LotRef        string
	Category      string
	ContractorRef string
	Status        QuoteStatus
	LineItems     []LineItemInput
}

// NewQuote validates params and builds an unnumbered quote with computed totals.
// All violations are reported together.
func NewQuote(p NewQuoteParams, now time.Time) (Quote, error) {
	var violations []FieldViolation

	projectRef := strings.TrimSpace(p.ProjectRef)
	if projectRef == "" {
		violations = append(violations, FieldViolation{Field: "projectRef", Message: "is required"})
	}
	contractorRef := strings.TrimSpace(p.ContractorRef)
	if contractorRef == "" {
		violations = append(violations, FieldViolation{Field: "contractorRef", Message: "is required"})
	}

	status := p.Status
	if status == "" {
		status = QuoteStatusSubmitted
	}
	if status != QuoteStatusDraft && status != QuoteStatusSubmitted {
		violations = append(violations, FieldViolation{Field: "status", Message: fmt.Sprintf("cannot create a quote in %s status", status)})
	}
	if status != QuoteStatusDraft && len(p.LineItems) == 0 {
		violations = append(violations, FieldViolation{Field: "lineItems", Message: "at least one line item is required"})
	}

	items, itemViolations := BuildLineItems(p.LineItems)
	violations = append(violations, itemViolations...)

	if err := NewValidationError(violations...); err != nil {
		return Quote{}, err
	}

	now = now.UTC()
	q := Quote{
		ProjectRef:    projectRef,
		LotRef:        strings.TrimSpace(p.LotRef),
		Category:      strings.TrimSpace(p.Category),
		ContractorRef: contractorRef,
		Status:        status,
		LineItems:     items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	q.RecalculateTotal()
	return q, nil
}

// BuildLineItems validates inputs and returns items sorted by DisplayOrder.
func BuildLineItems(inputs []LineItemInput) ([]LineItem, []FieldViolation) {
	var violations []FieldViolation
	if len(inputs) > MaxLineItems {
		violations = append(violations, FieldViolation{Field: "lineItems", Message: fmt.Sprintf("at most %d line items are allowed", MaxLineItems)})
	}
	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		field := func(name string) string { return fmt.Sprintf("lineItems[%d].%s", i, name) }

		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			violations = append(violations, FieldViolation{Field: field("itemDescription"), Message: "must not be empty"})
		}
		if utf8.RuneCountInString(desc) > MaxDescriptionLength {
			violations = append(violations, FieldViolation{Field: field("itemDescription"), Message: fmt.Sprintf("must be at most %d characters", MaxDescriptionLength)})
		}
		switch {
		case in.Quantity == nil:
			violations = append(violations, FieldViolation{Field: field("quantity"), Message: "is required"})
		case !in.Quantity.IsPositive():
			violations = append(violations, FieldViolation{Field: field("quantity"), Message: "must be greater than 0"})
		default:
			violations = append(violations, checkAmountShape(field("quantity"), *in.Quantity, MaxQuantityIntegerDigits)...)
		}
		switch {
		case in.Rate == nil:
			violations = append(violations, FieldViolation{Field: field("rate"), Message: "is required"})
		case in.Rate.IsNegative():
			violations = append(violations, FieldViolation{Field: field("rate"), Message: "must not be negative"})
		default:
			violations = append(violations, checkAmountShape(field("rate"), *in.Rate, MaxRateIntegerDigits)...)
		}
		switch {
		case in.DisplayOrder == nil:
			violations = append(violations, FieldViolation{Field: field("displayOrder"), Message: "is required"})
		case *in.DisplayOrder < 0:
			violations = append(violations, FieldViolation{Field: field("displayOrder"), Message: "must be >= 0"})
		}

		if in.Quantity == nil || in.Rate == nil || in.DisplayOrder == nil {
			continue
		}
		items = append(items, LineItem{
			ID:           uuid.NewString(),
			Description:  desc,
			Quantity:     *in.Quantity,
			Rate:         *in.Rate,
			DisplayOrder: *in.DisplayOrder,
		})
	}
	if len(violations) > 0 {
		return nil, violations
	}
	sortLineItems(items)
	return items, nil
}

// checkAmountShape bounds digits before any arithmetic runs on the value.
func checkAmountShape(field string, d decimal.Decimal, maxIntDigits int) []FieldViolation {
	intDigits, places := money.Shape(d)
	var out []FieldViolation
	if intDigits > maxIntDigits {
		out = append(out, FieldViolation{Field: field, Message: fmt.Sprintf("must have at most %d integer digits", maxIntDigits)})
	}
	if places > MaxAmountPlaces {
		out = append(out, FieldViolation{Field: field, Message: fmt.Sprintf("must have at most %d decimal places", MaxAmountPlaces)})
	}
	return out
}

func sortLineItems(items []LineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DisplayOrder < items[j].DisplayOrder
	})
}

// AssignNumber sets the quote number. A number is assigned once and never changes.
func (q *Quote) AssignNumber(number string) error {
	if q.Number != "" {
		return fmt.Errorf("quote number already assigned: %s", q.Number)
	}
	if !IsQuoteNumber(number) {
		return fmt.Errorf("malformed quote number %q", number)
	}
	q.Number = number
	return nil
}

// RecalculateTotal recomputes every line total and the quote total. It is idempotent and
// yields zero for a quote without line items.
func (q *Quote) RecalculateTotal() {
	if len(q.LineItems) == 0 {
		q.TotalAmount = money.Zero
		return
	}
	totals := make([]decimal.Decimal, 0, len(q.LineItems))
	for i := range q.LineItems {
		q.LineItems[i].LineTotal = money.LineTotal(q.LineItems[i].Quantity, q.LineItems[i].Rate)
		totals = append(totals, q.LineItems[i].LineTotal)
	}
	q.TotalAmount = money.Sum(totals...)
}

// ReplaceLineItems discards the current line items and installs the validated inputs.
// Items are not merged by identity.
func (q *Quote) ReplaceLineItems(inputs []LineItemInput, now time.Time) error {
	items, violations := BuildLineItems(inputs)
	if q.Status != QuoteStatusDraft && len(inputs) == 0 {
		violations = append(violations, FieldViolation{Field: "lineItems", Message: "at least one line item is required"})
	}
	if err := NewValidationError(violations...); err != nil {
		return err
	}
	q.LineItems = items
	q.RecalculateTotal()
	q.TouchUpdatedAt(now)
	return nil
}

// SetCategory updates the free-text category.
func (q *Quote) SetCategory(category string, now time.Time) {
	q.Category = strings.TrimSpace(category)
	q.TouchUpdatedAt(now)
}

func (q *Quote) TouchUpdatedAt(now time.Time) {
	q.UpdatedAt = now.UTC()
}

func (q Quote) HasLineItems() bool {
	return len(q.LineItems) > 0
}

// Sequence returns the numeric part of the quote number, or 0 when unnumbered.
func (q Quote) Sequence() int64 {
	seq, err := ParseQuoteNumber(q.Number)
	if err != nil {
		return 0
	}
	return seq
}

// Clone returns a deep copy so a failed mutation can never leak into stored state.
func (q Quote) Clone() Quote {
	out := q
	if q.LineItems != nil {
		out.LineItems = make([]LineItem, len(q.LineItems))
		copy(out.LineItems, q.LineItems)
	}
	if q.ApprovedAt != nil {
		t := *q.ApprovedAt
		out.ApprovedAt = &t
	}
	if q.CustomerAcknowledgedAt != nil {
		t := *q.CustomerAcknowledgedAt
		out.CustomerAcknowledgedAt = &t
	}
	return out
}

// CheckInvariants reports any broken aggregate invariant. Repositories call it before writing.
func (q Quote) CheckInvariants() error {
	var violations []FieldViolation
	if !q.Status.Valid() {
		violations = append(violations, FieldViolation{Field: "status", Message: fmt.Sprintf("unknown status %q", q.Status)})
	}
	if q.Status != QuoteStatusDraft && len(q.LineItems) == 0 {
		violations = append(violations, FieldViolation{Field: "lineItems", Message: "at least one line item is required"})
	}
	if (q.Status == QuoteStatusRejected) != (strings.TrimSpace(q.RejectionReason) != "") {
		violations = append(violations, FieldViolation{Field: "rejectionReason", Message: "must be set exactly when the quote is rejected"})
	}
	totals := make([]decimal.Decimal, 0, len(q.LineItems))
	for i, it := range q.LineItems {
		if !it.LineTotal.Equal(money.LineTotal(it.Quantity, it.Rate)) {
			violations = append(violations, FieldViolation{Field: fmt.Sprintf("lineItems[%d].lineTotal", i), Message: "does not equal round2(quantity x rate)"})
		}
		totals = append(totals, it.LineTotal)
	}
	if !q.TotalAmount.Equal(money.Sum(totals...)) {
		violations = append(violations, FieldViolation{Field: "totalAmount", Message: "does not equal the sum of line totals"})
	}
	return NewValidationError(violations...)
}

// QuoteFilter selects quotes for listing. Empty fields match everything.
type QuoteFilter struct {
	ProjectRef    string
	LotRef        string
	ContractorRef string
	Status        QuoteStatus
}

func (f QuoteFilter) Matches(q Quote) bool {
	if f.ProjectRef != "" && q.ProjectRef != f.ProjectRef {
		return false
	}
	if f.LotRef != "" && q.LotRef != f.LotRef {
		return false
	}
	if f.ContractorRef != "" && q.ContractorRef != f.ContractorRef {
		return false
	}
	if f.Status != "" && q.Status != f.Status {
		return false
	}
	return true
}
